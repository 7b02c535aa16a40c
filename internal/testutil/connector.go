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

// Package testutil holds small in-memory test doubles shared by the
// internal/qgl and internal/exec test suites, in place of the inline fakes
// each driver test in the teacher codebase declares locally.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"github.com/qgl-project/querygraph/internal/format"
	"github.com/qgl-project/querygraph/internal/frame"
	"github.com/qgl-project/querygraph/internal/qgerr"
	"github.com/qgl-project/querygraph/internal/sources"
)

// StubDriver is the CONNECT-section driver name for StubConfig, registered
// by RegisterStubDriver.
const StubDriver = "Stub"

// StubConfig is a decoded `Stub(...)` CONNECT entry. It carries no
// parameters: the frames a StubConnector returns are wired up by the test
// via SetQueryResult after the graph is built.
type StubConfig struct {
	Name string
	Kind format.SourceKind
}

func (c StubConfig) ConnectorConfigKind() format.SourceKind { return c.Kind }

func (c StubConfig) Initialize(ctx context.Context, tracer trace.Tracer) (sources.Connector, error) {
	return &StubConnector{name: c.Name, kind: c.Kind, results: map[string]*frame.Frame{}}, nil
}

// RegisterStubDriver registers the Stub driver with a fixed SourceKind,
// decoding any CONNECT params map (ignored) into a StubConfig. Tests that
// need several stub connectors of different kinds should call this once per
// kind under distinct driver names via RegisterStubDriverNamed.
func RegisterStubDriver(kind format.SourceKind) bool {
	return RegisterStubDriverNamed(StubDriver, kind)
}

// RegisterStubDriverNamed registers the Stub connector under an arbitrary
// CONNECT driver name, so a single test binary can register more than one
// stub kind without a "driver already registered" panic.
func RegisterStubDriverNamed(driver string, kind format.SourceKind) bool {
	return sources.Register(driver, func(ctx context.Context, name string, params map[string]string) (sources.ConnectorConfig, error) {
		return StubConfig{Name: name, Kind: kind}, nil
	})
}

// StubConnector is an in-memory Connector whose ExecuteQuery result is
// keyed by the literal rendered query text, set up by the test ahead of
// time with SetQueryResult.
type StubConnector struct {
	name string
	kind format.SourceKind

	mu      sync.Mutex
	results map[string]*frame.Frame
	queries []string
}

func (c *StubConnector) Name() string            { return c.name }
func (c *StubConnector) Kind() format.SourceKind { return c.kind }
func (c *StubConnector) Close() error            { return nil }

// SetQueryResult registers the Frame ExecuteQuery returns for an exact
// rendered query string.
func (c *StubConnector) SetQueryResult(query string, f *frame.Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[query] = f
}

// Queries returns every query string ExecuteQuery has observed, in call
// order, so a test can assert on what the template engine rendered.
func (c *StubConnector) Queries() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.queries))
	copy(out, c.queries)
	return out
}

func (c *StubConnector) ExecuteQuery(ctx context.Context, query string, fields []string) (*frame.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries = append(c.queries, query)
	f, ok := c.results[query]
	if !ok {
		return nil, qgerr.Newf(qgerr.KindConnector, "stub connector %q has no result registered for query %q", c.name, query)
	}
	return f, nil
}

func (c *StubConnector) ExecuteInsert(ctx context.Context, query string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries = append(c.queries, query)
	return nil
}

var _ sources.Connector = (*StubConnector)(nil)

// ConnectorFor fetches the live StubConnector a Graph's registry built for
// name, for use with SetQueryResult. Returns an error if name was never
// registered or is not a StubConnector.
func ConnectorFor(registry *sources.Registry, name string) (*StubConnector, error) {
	c, err := registry.Lookup(name)
	if err != nil {
		return nil, err
	}
	sc, ok := c.(*StubConnector)
	if !ok {
		return nil, fmt.Errorf("testutil: connector %q is not a StubConnector", name)
	}
	return sc, nil
}
