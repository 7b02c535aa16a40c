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

// Package sources implements the Connector Registry (spec §4.B): a
// process-scoped map from CONNECT-declared driver names to ConnectorConfig
// factories, mirroring the kind-keyed registry the tool and source packages
// use throughout the teacher codebase.
package sources

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/qgl-project/querygraph/internal/format"
	"github.com/qgl-project/querygraph/internal/frame"
	"github.com/qgl-project/querygraph/internal/qgerr"
)

// ConnectorConfigFactory decodes the CONNECT clause's key=value parameters
// for one driver kind into a concrete ConnectorConfig.
type ConnectorConfigFactory func(ctx context.Context, name string, params map[string]string) (ConnectorConfig, error)

var registry = make(map[string]ConnectorConfigFactory)

// Register associates a CONNECT driver name (e.g. "Sql", "Mongodb", "Redis")
// with a factory. Called from each driver package's init(). Returns false if
// the driver name is already registered.
func Register(driver string, factory ConnectorConfigFactory) bool {
	if _, exists := registry[driver]; exists {
		return false
	}
	registry[driver] = factory
	return true
}

// DecodeConfig looks up the registered factory for driver and decodes
// params into a ConnectorConfig.
func DecodeConfig(ctx context.Context, driver, name string, params map[string]string) (ConnectorConfig, error) {
	factory, ok := registry[driver]
	if !ok {
		return nil, qgerr.Newf(qgerr.KindGraphConfig, "unknown CONNECT driver %q", driver).WithNode(name)
	}
	cfg, err := factory(ctx, name, params)
	if err != nil {
		return nil, qgerr.Wrap(qgerr.KindGraphConfig, fmt.Errorf("unable to parse connector %q as driver %q: %w", name, driver, err)).WithNode(name)
	}
	return cfg, nil
}

// ConnectorConfig is what a CONNECT entry decodes to before the connection
// is actually opened.
type ConnectorConfig interface {
	ConnectorConfigKind() format.SourceKind
	Initialize(ctx context.Context, tracer trace.Tracer) (Connector, error)
}

// Connector is a live, driver-backed connection a QueryNode executes its
// rendered query against.
type Connector interface {
	Name() string
	Kind() format.SourceKind
	// ExecuteQuery runs the rendered query and returns its result as a
	// Frame. fields carries the RETRIEVE block's optional FIELDS
	// projection hint (nil if absent); relational connectors typically
	// ignore it since the query text already names columns, while
	// document connectors use it to restrict what's returned.
	ExecuteQuery(ctx context.Context, query string, fields []string) (*frame.Frame, error)
	ExecuteInsert(ctx context.Context, query string) error
	Close() error
}

// InitConnectionSpan starts a tracing span around a connector's dial/connect
// step.
func InitConnectionSpan(ctx context.Context, tracer trace.Tracer, kind format.SourceKind, name string) (context.Context, trace.Span) {
	return tracer.Start(
		ctx,
		"querygraph/sources/connect",
		trace.WithAttributes(attribute.String("source_kind", string(kind)), attribute.String("source_name", name)),
	)
}

// Named pairs one CONNECT-declared name with its live Connector.
type Named struct {
	Name      string
	Connector Connector
}

// Registry is the per-Graph, read-only-after-build set of live Connectors
// produced from a QGL CONNECT section.
type Registry struct {
	byName map[string]Connector
}

// NewRegistry builds a Registry from the CONNECT section's declared order,
// failing with an error if any name repeats.
func NewRegistry(connectors []Named) (*Registry, error) {
	byName := make(map[string]Connector, len(connectors))
	for _, c := range connectors {
		if _, exists := byName[c.Name]; exists {
			return nil, qgerr.Newf(qgerr.KindGraphConfig, "duplicate connector name %q", c.Name)
		}
		byName[c.Name] = c.Connector
	}
	return &Registry{byName: byName}, nil
}

// Lookup returns the named Connector, or an error if it was never declared.
func (r *Registry) Lookup(name string) (Connector, error) {
	c, ok := r.byName[name]
	if !ok {
		return nil, qgerr.Newf(qgerr.KindGraphConfig, "unknown connector %q", name)
	}
	return c, nil
}

// Close closes every connector in the registry, collecting the first error.
func (r *Registry) Close() error {
	var firstErr error
	for _, c := range r.byName {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
