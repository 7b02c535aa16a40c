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

package qgl_test

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"

	"github.com/qgl-project/querygraph/internal/format"
	"github.com/qgl-project/querygraph/internal/qgerr"
	"github.com/qgl-project/querygraph/internal/qgl"
	"github.com/qgl-project/querygraph/internal/testutil"
)

func init() {
	testutil.RegisterStubDriver(format.SQL)
}

const s1Doc = `
CONNECT
    pg <- Stub(host=localhost)

RETRIEVE
    QUERY | SELECT * FROM T WHERE id IN {% ids|value_list:int %};
    USING pg
    AS n
`

func TestBuildGraph_SingleIndependentNode(t *testing.T) {
	g, err := qgl.BuildGraph(context.Background(), s1Doc)
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}
	if g.Root == nil || g.Root.Name != "n" {
		t.Fatalf("expected root node %q, got %+v", "n", g.Root)
	}
	if !g.Root.IsIndependent() {
		t.Fatalf("expected root to be independent")
	}
	if len(g.Root.Children) != 0 {
		t.Fatalf("expected no children, got %d", len(g.Root.Children))
	}

	registry, err := qgl.InitializeConnectors(context.Background(), otel.Tracer(""), g)
	if err != nil {
		t.Fatalf("InitializeConnectors: %v", err)
	}
	defer registry.Close()

	conn, err := testutil.ConnectorFor(registry, "pg")
	if err != nil {
		t.Fatalf("ConnectorFor: %v", err)
	}
	if conn.Name() != "pg" {
		t.Fatalf("expected connector name 'pg', got %q", conn.Name())
	}
}

const s2Doc = `
CONNECT
    pg <- Stub(host=localhost)

RETRIEVE
    QUERY | SELECT * FROM Parents;
    USING pg
    AS p
    ---
    QUERY | SELECT * FROM T WHERE name IN {{ p|value_list:str }};
    USING pg
    AS c

JOIN
    LEFT (p[Title] ==> c[name])
`

func TestBuildGraph_ParentChildJoin(t *testing.T) {
	g, err := qgl.BuildGraph(context.Background(), s2Doc)
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}
	if g.Root.Name != "p" {
		t.Fatalf("expected root 'p', got %q", g.Root.Name)
	}
	if len(g.Root.Children) != 1 || g.Root.Children[0].Name != "c" {
		t.Fatalf("expected root's child to be 'c', got %+v", g.Root.Children)
	}
	child, err := g.Nodes("c")
	if err != nil {
		t.Fatalf("Nodes(c): %v", err)
	}
	if child.IsIndependent() {
		t.Fatalf("expected 'c' to have a dependent parameter")
	}
	if child.JoinCtx.Kind != "LEFT" || len(child.JoinCtx.Pairs) != 1 {
		t.Fatalf("unexpected join context: %+v", child.JoinCtx)
	}
	if child.JoinCtx.Pairs[0].ParentCol != "Title" || child.JoinCtx.Pairs[0].ChildCol != "name" {
		t.Fatalf("unexpected join pair: %+v", child.JoinCtx.Pairs[0])
	}
}

const s6CycleDoc = `
CONNECT
    pg <- Stub(host=localhost)

RETRIEVE
    QUERY | SELECT 1;
    USING pg
    AS r
    ---
    QUERY | SELECT 1;
    USING pg
    AS c

JOIN
    LEFT (r[a] ==> c[b])
    LEFT (c[a] ==> r[b])
`

func TestBuildGraph_CycleRejected(t *testing.T) {
	_, err := qgl.BuildGraph(context.Background(), s6CycleDoc)
	if err == nil {
		t.Fatalf("expected CycleError, got nil")
	}
	if !qgerr.OfKind(err, qgerr.KindCycle) {
		t.Fatalf("expected CycleError, got %v", err)
	}
}

func TestBuildGraph_UnknownConnectorFails(t *testing.T) {
	doc := `
CONNECT
    pg <- Stub(host=localhost)

RETRIEVE
    QUERY | SELECT 1;
    USING missing
    AS n
`
	_, err := qgl.BuildGraph(context.Background(), doc)
	if !qgerr.OfKind(err, qgerr.KindGraphConfig) {
		t.Fatalf("expected GraphConfigError, got %v", err)
	}
}

func TestBuildGraph_DuplicateNodeNameFails(t *testing.T) {
	doc := `
CONNECT
    pg <- Stub(host=localhost)

RETRIEVE
    QUERY | SELECT 1;
    USING pg
    AS n
    ---
    QUERY | SELECT 2;
    USING pg
    AS n
`
	_, err := qgl.BuildGraph(context.Background(), doc)
	if !qgerr.OfKind(err, qgerr.KindGraphConfig) {
		t.Fatalf("expected GraphConfigError, got %v", err)
	}
}

func TestBuildGraph_FieldsAndThen(t *testing.T) {
	doc := `
CONNECT
    mongo <- Stub(host=localhost)

RETRIEVE
    QUERY | {"tags": "x"};
    FIELDS album, title
    USING mongo
    THEN | mutate(upper_title=uppercase(title));
    AS n
`
	g, err := qgl.BuildGraph(context.Background(), doc)
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}
	n, err := g.Nodes("n")
	if err != nil {
		t.Fatalf("Nodes(n): %v", err)
	}
	if len(n.Fields) != 2 || n.Fields[0] != "album" || n.Fields[1] != "title" {
		t.Fatalf("unexpected FIELDS parse: %+v", n.Fields)
	}
	if len(n.Pipeline.Stages) != 1 {
		t.Fatalf("expected one manipulation stage from THEN, got %d", len(n.Pipeline.Stages))
	}
}
