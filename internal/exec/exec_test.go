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

package exec_test

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"

	"github.com/qgl-project/querygraph/internal/exec"
	"github.com/qgl-project/querygraph/internal/format"
	"github.com/qgl-project/querygraph/internal/frame"
	"github.com/qgl-project/querygraph/internal/qgerr"
	"github.com/qgl-project/querygraph/internal/qgl"
	"github.com/qgl-project/querygraph/internal/sources"
	"github.com/qgl-project/querygraph/internal/testutil"
	"github.com/qgl-project/querygraph/internal/value"
)

func init() {
	testutil.RegisterStubDriverNamed("ExecStub", format.SQL)
}

// buildAndInit builds doc, initializes its connectors, and returns the live
// "pg" stub connector alongside the registry and a teardown func.
func buildAndInit(t *testing.T, doc string) (*qgl.Graph, *sources.Registry, *testutil.StubConnector, func()) {
	t.Helper()
	g, err := qgl.BuildGraph(context.Background(), doc)
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}
	registry, err := qgl.InitializeConnectors(context.Background(), otel.Tracer(""), g)
	if err != nil {
		t.Fatalf("InitializeConnectors: %v", err)
	}
	conn, err := testutil.ConnectorFor(registry, "pg")
	if err != nil {
		t.Fatalf("ConnectorFor: %v", err)
	}
	return g, registry, conn, func() { registry.Close() }
}

const singleNodeDoc = `
CONNECT
    pg <- ExecStub(host=localhost)

RETRIEVE
    QUERY | SELECT * FROM T WHERE id IN {% ids|value_list:int %};
    USING pg
    AS n
`

func TestExecute_SingleIndependentNode(t *testing.T) {
	g, registry, conn, closeFn := buildAndInit(t, singleNodeDoc)
	defer closeFn()

	want, err := frame.New([]string{"id"}, map[string][]value.Value{"id": {value.Int(1), value.Int(2)}})
	if err != nil {
		t.Fatalf("frame.New: %v", err)
	}
	conn.SetQueryResult("SELECT * FROM T WHERE id IN (1,2)", want)

	got, err := exec.Execute(context.Background(), g, registry, map[string]value.Value{
		"ids": value.List([]value.Value{value.Int(1), value.Int(2)}),
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got.NumRows() != 2 {
		t.Fatalf("expected 2 rows, got %d", got.NumRows())
	}
}

func TestExecute_MissingIndependentParamFails(t *testing.T) {
	g, registry, _, closeFn := buildAndInit(t, singleNodeDoc)
	defer closeFn()

	_, err := exec.Execute(context.Background(), g, registry, map[string]value.Value{})
	if !qgerr.OfKind(err, qgerr.KindIndependentParam) {
		t.Fatalf("expected IndependentParameterError, got %v", err)
	}
}

const parentChildDoc = `
CONNECT
    pg <- ExecStub(host=localhost)

RETRIEVE
    QUERY | SELECT * FROM Parents;
    USING pg
    AS p
    ---
    QUERY | SELECT * FROM Children WHERE name IN {{ p|value_list:str }};
    USING pg
    AS c

JOIN
    LEFT (p[Title] ==> c[name])
`

func TestExecute_ParentChildFold(t *testing.T) {
	g, registry, conn, closeFn := buildAndInit(t, parentChildDoc)
	defer closeFn()

	parentFrame, err := frame.New([]string{"Title"}, map[string][]value.Value{
		"Title": {value.String("a"), value.String("b")},
	})
	if err != nil {
		t.Fatalf("frame.New: %v", err)
	}
	conn.SetQueryResult("SELECT * FROM Parents", parentFrame)

	childFrame, err := frame.New([]string{"name", "score"}, map[string][]value.Value{
		"name":  {value.String("a"), value.String("b")},
		"score": {value.Int(10), value.Int(20)},
	})
	if err != nil {
		t.Fatalf("frame.New: %v", err)
	}
	conn.SetQueryResult("SELECT * FROM Children WHERE name IN ('a','b')", childFrame)

	got, err := exec.Execute(context.Background(), g, registry, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !got.HasColumn("Title") || !got.HasColumn("score") {
		t.Fatalf("expected folded frame to carry both parent and child columns, got %v", got.Names())
	}
	if got.NumRows() != 2 {
		t.Fatalf("expected 2 rows after fold, got %d", got.NumRows())
	}
}

func TestExecute_CancelledContext(t *testing.T) {
	g, registry, conn, closeFn := buildAndInit(t, singleNodeDoc)
	defer closeFn()

	want, err := frame.New([]string{"id"}, map[string][]value.Value{"id": {value.Int(1)}})
	if err != nil {
		t.Fatalf("frame.New: %v", err)
	}
	conn.SetQueryResult("SELECT * FROM T WHERE id IN (1)", want)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = exec.Execute(ctx, g, registry, map[string]value.Value{
		"ids": value.List([]value.Value{value.Int(1)}),
	})
	if !qgerr.OfKind(err, qgerr.KindCancelled) {
		t.Fatalf("expected CancelledError, got %v", err)
	}
}
