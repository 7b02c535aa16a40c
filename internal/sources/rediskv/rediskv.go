// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package rediskv implements a key-value Connector (spec §4.B) over
// github.com/redis/go-redis/v9, for CONNECT entries declared as
// `Redis(...)`. A node's rendered QUERY text is a whitespace/comma
// tokenized Redis command, following the same raw-command shape the
// teacher's redis-execute-cmd tool sends to Client.Do.
package rediskv

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/cenkalti/backoff/v5"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"

	"github.com/qgl-project/querygraph/internal/format"
	"github.com/qgl-project/querygraph/internal/frame"
	"github.com/qgl-project/querygraph/internal/qgerr"
	"github.com/qgl-project/querygraph/internal/sources"
	"github.com/qgl-project/querygraph/internal/util"
	"github.com/qgl-project/querygraph/internal/value"
)

// Driver is the CONNECT-section driver name: `conn <- Redis(host=..., ...)`.
const Driver = "Redis"

var _ sources.ConnectorConfig = Config{}

func init() {
	if !sources.Register(Driver, newConfig) {
		panic(fmt.Sprintf("CONNECT driver %q already registered", Driver))
	}
}

func newConfig(ctx context.Context, name string, params map[string]string) (sources.ConnectorConfig, error) {
	cfg := Config{Name: name}
	if err := util.DecodeDriverParams(ctx, params, &cfg); err != nil {
		return nil, fmt.Errorf("rediskv: invalid CONNECT entry %q: %w", name, err)
	}
	return cfg, nil
}

// Config is a decoded `Redis(...)` CONNECT entry.
type Config struct {
	Name     string `yaml:"-"`
	Host     string `yaml:"host" validate:"required"`
	Port     string `yaml:"port"`
	Password string `yaml:"password"`
	DB       string `yaml:"db"`
}

func (c Config) ConnectorConfigKind() format.SourceKind { return format.KV }

func (c Config) Initialize(ctx context.Context, tracer trace.Tracer) (sources.Connector, error) {
	db := 0
	if c.DB != "" {
		parsed, err := strconv.Atoi(c.DB)
		if err != nil {
			return nil, qgerr.Wrap(qgerr.KindConnector, fmt.Errorf("invalid db %q: %w", c.DB, err))
		}
		db = parsed
	}
	port := c.Port
	if port == "" {
		port = "6379"
	}

	_, span := sources.InitConnectionSpan(ctx, tracer, format.KV, c.Name)
	defer span.End()

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", c.Host, port),
		Password: c.Password,
		DB:       db,
	})
	if err := pingWithRetry(ctx, client); err != nil {
		_ = client.Close()
		return nil, qgerr.Wrap(qgerr.KindConnector, fmt.Errorf("unable to connect successfully: %w", err))
	}
	return &Connector{name: c.Name, client: client}, nil
}

func pingWithRetry(ctx context.Context, client *redis.Client) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, client.Ping(ctx).Err()
	}, backoff.WithMaxTries(3), backoff.WithBackOff(backoff.NewExponentialBackOff()))
	return err
}

var _ sources.Connector = (*Connector)(nil)

// Connector is a live go-redis-backed key-value source.
type Connector struct {
	name   string
	client *redis.Client
}

func (c *Connector) Name() string            { return c.name }
func (c *Connector) Kind() format.SourceKind { return format.KV }

func (c *Connector) Close() error {
	return c.client.Close()
}

// ExecuteQuery tokenizes query as a raw Redis command and runs it with
// Client.Do, shaping the reply into a Frame. fields is ignored: key-value
// commands have no projectable columns.
func (c *Connector) ExecuteQuery(ctx context.Context, query string, fields []string) (*frame.Frame, error) {
	args := tokenizeCommand(query)
	if len(args) == 0 {
		return nil, qgerr.Newf(qgerr.KindConnector, "empty redis command")
	}
	result, err := c.client.Do(ctx, args...).Result()
	if err != nil && err != redis.Nil {
		return nil, qgerr.Wrap(qgerr.KindConnector, err)
	}
	if err == redis.Nil {
		result = nil
	}
	f, err := replyToFrame(result)
	if err != nil {
		return nil, qgerr.Wrap(qgerr.KindConnector, err)
	}
	return f, nil
}

// ExecuteInsert tokenizes query as a raw Redis command and runs it for its
// side effects (e.g. `SET key val`).
func (c *Connector) ExecuteInsert(ctx context.Context, query string) error {
	args := tokenizeCommand(query)
	if len(args) == 0 {
		return qgerr.Newf(qgerr.KindConnector, "empty redis command")
	}
	if err := c.client.Do(ctx, args...).Err(); err != nil && err != redis.Nil {
		return qgerr.Wrap(qgerr.KindConnector, err)
	}
	return nil
}

func tokenizeCommand(query string) []any {
	fields := strings.FieldsFunc(query, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	args := make([]any, len(fields))
	for i, f := range fields {
		args[i] = f
	}
	return args
}

func replyToFrame(reply any) (*frame.Frame, error) {
	switch v := reply.(type) {
	case nil:
		return frame.New([]string{"value"}, map[string][]value.Value{"value": nil})
	case map[string]string:
		keys := make([]value.Value, 0, len(v))
		vals := make([]value.Value, 0, len(v))
		for k, val := range v {
			keys = append(keys, value.String(k))
			vals = append(vals, value.String(val))
		}
		return frame.New([]string{"key", "value"}, map[string][]value.Value{"key": keys, "value": vals})
	case []any:
		col := make([]value.Value, len(v))
		for i, e := range v {
			cv, err := replyElemToValue(e)
			if err != nil {
				return nil, err
			}
			col[i] = cv
		}
		return frame.New([]string{"value"}, map[string][]value.Value{"value": col})
	case []string:
		col := make([]value.Value, len(v))
		for i, e := range v {
			col[i] = value.String(e)
		}
		return frame.New([]string{"value"}, map[string][]value.Value{"value": col})
	default:
		cv, err := replyElemToValue(v)
		if err != nil {
			return nil, err
		}
		return frame.New([]string{"value"}, map[string][]value.Value{"value": {cv}})
	}
}

func replyElemToValue(v any) (value.Value, error) {
	if v == nil {
		return value.Null(), nil
	}
	switch t := v.(type) {
	case string:
		return value.String(t), nil
	case int64:
		return value.Int(t), nil
	default:
		return value.FromAny(v)
	}
}
