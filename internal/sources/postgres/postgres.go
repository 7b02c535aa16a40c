// Copyright 2024 Google LLC
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

// Package postgres implements a relational-SQL Connector (spec §4.B) over
// github.com/jackc/pgx/v5, for CONNECT entries declared as `Sql(...)`.
package postgres

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/trace"

	"github.com/qgl-project/querygraph/internal/format"
	"github.com/qgl-project/querygraph/internal/frame"
	"github.com/qgl-project/querygraph/internal/qgerr"
	"github.com/qgl-project/querygraph/internal/sources"
	"github.com/qgl-project/querygraph/internal/util"
	"github.com/qgl-project/querygraph/internal/value"
)

// Driver is the CONNECT-section driver name: `conn <- Sql(host=..., ...)`.
const Driver = "Sql"

var _ sources.ConnectorConfig = Config{}

func init() {
	if !sources.Register(Driver, newConfig) {
		panic(fmt.Sprintf("CONNECT driver %q already registered", Driver))
	}
}

func newConfig(ctx context.Context, name string, params map[string]string) (sources.ConnectorConfig, error) {
	cfg := Config{Name: name}
	if err := util.DecodeDriverParams(ctx, params, &cfg); err != nil {
		return nil, fmt.Errorf("postgres: invalid CONNECT entry %q: %w", name, err)
	}
	return cfg, nil
}

// Config is a decoded `Sql(...)` CONNECT entry.
type Config struct {
	Name     string `yaml:"-"`
	Host     string `yaml:"host" validate:"required"`
	Port     string `yaml:"port"`
	User     string `yaml:"user" validate:"required"`
	Password string `yaml:"password"`
	Database string `yaml:"database" validate:"required"`
	SSLMode  string `yaml:"sslmode"`
}

func (c Config) ConnectorConfigKind() format.SourceKind { return format.SQL }

func (c Config) Initialize(ctx context.Context, tracer trace.Tracer) (sources.Connector, error) {
	qp := map[string]string{}
	if c.SSLMode != "" {
		qp["sslmode"] = c.SSLMode
	}
	pool, err := initPostgresConnectionPool(ctx, tracer, c.Name, c.Host, c.Port, c.User, c.Password, c.Database, qp)
	if err != nil {
		return nil, qgerr.Wrap(qgerr.KindConnector, fmt.Errorf("unable to create pool: %w", err))
	}
	if err := pingWithRetry(ctx, pool); err != nil {
		pool.Close()
		return nil, qgerr.Wrap(qgerr.KindConnector, fmt.Errorf("unable to connect successfully: %w", err))
	}
	return &Connector{name: c.Name, pool: pool}, nil
}

func pingWithRetry(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, pool.Ping(ctx)
	}, backoff.WithMaxTries(3), backoff.WithBackOff(backoff.NewExponentialBackOff()))
	return err
}

func initPostgresConnectionPool(ctx context.Context, tracer trace.Tracer, name, host, port, user, pass, dbname string, queryParams map[string]string) (*pgxpool.Pool, error) {
	ctx, span := sources.InitConnectionSpan(ctx, tracer, format.SQL, name)
	defer span.End()

	if port == "" {
		port = "5432"
	}
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, pass),
		Host:     fmt.Sprintf("%s:%s", host, port),
		Path:     dbname,
		RawQuery: ConvertParamMapToRawQuery(queryParams),
	}
	pool, err := pgxpool.New(ctx, u.String())
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	return pool, nil
}

// ConvertParamMapToRawQuery renders queryParams as a deterministic
// (sorted-key) URL query string.
func ConvertParamMapToRawQuery(queryParams map[string]string) string {
	if len(queryParams) == 0 {
		return ""
	}
	keys := make([]string, 0, len(queryParams))
	for k := range queryParams {
		if queryParams[k] != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	values := url.Values{}
	for _, k := range keys {
		values.Set(k, queryParams[k])
	}
	return values.Encode()
}

var _ sources.Connector = (*Connector)(nil)

// Connector is a live pgx-backed relational-SQL source.
type Connector struct {
	name string
	pool *pgxpool.Pool
}

func (c *Connector) Name() string           { return c.name }
func (c *Connector) Kind() format.SourceKind { return format.SQL }

func (c *Connector) Close() error {
	c.pool.Close()
	return nil
}

// ExecuteQuery runs a rendered SELECT and materializes the result into a
// Frame, column order following pgx's reported field descriptions. The
// fields hint is ignored: a SQL QUERY block already names its own columns.
// The statement is checked with ValidateSQLQuery first, rejecting anything
// that looks like a write or an injection attempt.
func (c *Connector) ExecuteQuery(ctx context.Context, query string, _ []string) (*frame.Frame, error) {
	if res := util.ValidateSQLQuery(query); !res.IsValid {
		return nil, qgerr.Newf(qgerr.KindConnector, "QUERY failed validation: %v", res.Warnings)
	}

	rows, err := c.pool.Query(ctx, query)
	if err != nil {
		return nil, qgerr.Wrap(qgerr.KindConnector, err)
	}
	defer rows.Close()

	descs := rows.FieldDescriptions()
	names := make([]string, len(descs))
	for i, f := range descs {
		names[i] = f.Name
	}
	cols := make(map[string][]value.Value, len(names))
	for _, n := range names {
		cols[n] = nil
	}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, qgerr.Wrap(qgerr.KindConnector, err)
		}
		for i, v := range vals {
			cv, err := pgValueToValue(v)
			if err != nil {
				return nil, qgerr.Wrap(qgerr.KindConnector, err)
			}
			cols[names[i]] = append(cols[names[i]], cv)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, qgerr.Wrap(qgerr.KindConnector, err)
	}
	return frame.New(names, cols)
}

func pgValueToValue(v any) (value.Value, error) {
	if v == nil {
		return value.Null(), nil
	}
	if t, ok := v.(time.Time); ok {
		return value.DateTime(t), nil
	}
	return value.FromAny(v)
}

// ExecuteInsert runs a rendered statement for its side effects only.
func (c *Connector) ExecuteInsert(ctx context.Context, query string) error {
	if _, err := c.pool.Exec(ctx, query); err != nil {
		return qgerr.Wrap(qgerr.KindConnector, err)
	}
	return nil
}
