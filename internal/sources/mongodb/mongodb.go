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

// Package mongodb implements a document-store Connector (spec §4.B) over
// go.mongodb.org/mongo-driver/v2, for CONNECT entries declared as
// `Mongodb(...)`. A node's rendered QUERY text is a JSON filter document
// evaluated against one fixed collection named in the CONNECT entry.
package mongodb

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.opentelemetry.io/otel/trace"

	"github.com/qgl-project/querygraph/internal/format"
	"github.com/qgl-project/querygraph/internal/frame"
	"github.com/qgl-project/querygraph/internal/qgerr"
	"github.com/qgl-project/querygraph/internal/sources"
	"github.com/qgl-project/querygraph/internal/util"
	"github.com/qgl-project/querygraph/internal/value"
)

// Driver is the CONNECT-section driver name: `conn <- Mongodb(host=..., ...)`.
const Driver = "Mongodb"

var _ sources.ConnectorConfig = Config{}

func init() {
	if !sources.Register(Driver, newConfig) {
		panic(fmt.Sprintf("CONNECT driver %q already registered", Driver))
	}
}

func newConfig(ctx context.Context, name string, params map[string]string) (sources.ConnectorConfig, error) {
	cfg := Config{Name: name}
	if err := util.DecodeDriverParams(ctx, params, &cfg); err != nil {
		return nil, fmt.Errorf("mongodb: invalid CONNECT entry %q: %w", name, err)
	}
	return cfg, nil
}

// Config is a decoded `Mongodb(...)` CONNECT entry.
type Config struct {
	Name       string `yaml:"-"`
	Host       string `yaml:"host" validate:"required"`
	Port       string `yaml:"port"`
	Database   string `yaml:"db_name" validate:"required"`
	Collection string `yaml:"collection" validate:"required"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
}

func (c Config) ConnectorConfigKind() format.SourceKind { return format.Doc }

func (c Config) Initialize(ctx context.Context, tracer trace.Tracer) (sources.Connector, error) {
	client, err := initMongoClient(ctx, tracer, c.Name, c.uri())
	if err != nil {
		return nil, qgerr.Wrap(qgerr.KindConnector, fmt.Errorf("unable to create MongoDB client: %w", err))
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, qgerr.Wrap(qgerr.KindConnector, fmt.Errorf("unable to connect successfully: %w", err))
	}
	coll := client.Database(c.Database).Collection(c.Collection)
	return &Connector{name: c.Name, client: client, coll: coll}, nil
}

func (c Config) uri() string {
	host := c.Host
	if c.Port != "" {
		host = fmt.Sprintf("%s:%s", c.Host, c.Port)
	}
	if c.User != "" {
		return fmt.Sprintf("mongodb://%s:%s@%s/%s", c.User, c.Password, host, c.Database)
	}
	return fmt.Sprintf("mongodb://%s/%s", host, c.Database)
}

func initMongoClient(ctx context.Context, tracer trace.Tracer, name, uri string) (*mongo.Client, error) {
	_, span := sources.InitConnectionSpan(ctx, tracer, format.Doc, name)
	defer span.End()

	clientOpts := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(clientOpts)
	if err != nil {
		return nil, fmt.Errorf("unable to create MongoDB client: %w", err)
	}
	return client, nil
}

var _ sources.Connector = (*Connector)(nil)

// Connector is a live document-store source backed by a single MongoDB
// collection fixed at CONNECT time.
type Connector struct {
	name   string
	client *mongo.Client
	coll   *mongo.Collection
}

func (c *Connector) Name() string            { return c.name }
func (c *Connector) Kind() format.SourceKind { return format.Doc }

func (c *Connector) Close() error {
	return c.client.Disconnect(context.Background())
}

// ExecuteQuery parses query as a JSON filter document and runs it against
// the CONNECT-fixed collection. fields, if non-empty, is applied as an
// inclusion projection (the FIELDS clause).
func (c *Connector) ExecuteQuery(ctx context.Context, query string, fields []string) (*frame.Frame, error) {
	filter, err := decodeFilter(query)
	if err != nil {
		return nil, qgerr.Wrap(qgerr.KindConnector, err)
	}

	findOpts := options.Find()
	if len(fields) > 0 {
		proj := bson.M{}
		for _, f := range fields {
			proj[f] = 1
		}
		findOpts.SetProjection(proj)
	}

	cursor, err := c.coll.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, qgerr.Wrap(qgerr.KindConnector, err)
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, qgerr.Wrap(qgerr.KindConnector, err)
	}
	return docsToFrame(docs, fields)
}

func docsToFrame(docs []bson.M, fields []string) (*frame.Frame, error) {
	names := fields
	if len(names) == 0 {
		seen := map[string]bool{}
		for _, d := range docs {
			for k := range d {
				if !seen[k] {
					seen[k] = true
					names = append(names, k)
				}
			}
		}
	}
	cols := make(map[string][]value.Value, len(names))
	for _, n := range names {
		col := make([]value.Value, len(docs))
		for i, d := range docs {
			v, err := bsonValueToValue(d[n])
			if err != nil {
				return nil, err
			}
			col[i] = v
		}
		cols[n] = col
	}
	return frame.New(names, cols)
}

func bsonValueToValue(v any) (value.Value, error) {
	if v == nil {
		return value.Null(), nil
	}
	switch t := v.(type) {
	case bson.A:
		elems := make([]value.Value, len(t))
		for i, e := range t {
			cv, err := bsonValueToValue(e)
			if err != nil {
				return value.Value{}, err
			}
			elems[i] = cv
		}
		return value.List(elems), nil
	case bson.M:
		m := make(map[string]value.Value, len(t))
		for k, e := range t {
			cv, err := bsonValueToValue(e)
			if err != nil {
				return value.Value{}, err
			}
			m[k] = cv
		}
		return value.Map(m), nil
	case int32:
		return value.Int(int64(t)), nil
	default:
		return value.FromAny(v)
	}
}

// ExecuteInsert parses query as a JSON document and inserts it into the
// CONNECT-fixed collection.
func (c *Connector) ExecuteInsert(ctx context.Context, query string) error {
	doc, err := decodeFilter(query)
	if err != nil {
		return qgerr.Wrap(qgerr.KindConnector, fmt.Errorf("invalid document to insert: %w", err))
	}
	if _, err := c.coll.InsertOne(ctx, doc); err != nil {
		return qgerr.Wrap(qgerr.KindConnector, err)
	}
	return nil
}

// decodeFilter parses a rendered QUERY string as a JSON document, routing
// it through util.DecodeJSON + util.ConvertNumbers so integer and float
// literals in the filter survive with their original kind instead of
// collapsing to float64 the way a plain json.Unmarshal into bson.M would.
func decodeFilter(query string) (bson.M, error) {
	var raw map[string]any
	if err := util.DecodeJSON(strings.NewReader(query), &raw); err != nil {
		return nil, fmt.Errorf("invalid document filter: %w", err)
	}
	converted, err := util.ConvertNumbers(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid numeric literal in document filter: %w", err)
	}
	return bson.M(converted.(map[string]any)), nil
}
