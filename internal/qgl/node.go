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

// Package qgl implements the Graph Builder (spec §4.F): parsing a QGL
// document's CONNECT, RETRIEVE and JOIN sections into a typed QueryGraph of
// QueryNodes, wired with join contexts and manipulation pipelines.
package qgl

import (
	"github.com/qgl-project/querygraph/internal/frame"
	"github.com/qgl-project/querygraph/internal/join"
	"github.com/qgl-project/querygraph/internal/manipulate"
	"github.com/qgl-project/querygraph/internal/qgerr"
	"github.com/qgl-project/querygraph/internal/sources"
	"github.com/qgl-project/querygraph/internal/template"
)

// QueryNode is one RETRIEVE block bound to a connector, a query template, an
// optional manipulation pipeline, and (for non-root nodes) a JoinContext.
//
// Parent is a non-owning back-reference; Children is owned. Frame is
// populated exactly once per execution cycle by the scheduler.
type QueryNode struct {
	Name     string
	Template *template.Template
	Fields   []string
	ConnName string
	Pipeline *manipulate.Pipeline
	JoinCtx  join.Context

	Parent   *QueryNode
	Children []*QueryNode

	Frame    *frame.Frame
	Executed bool
}

// IsIndependent reports whether n's template contains no dependent
// parameters, i.e. it can be retrieved without its parent's frame.
func (n *QueryNode) IsIndependent() bool {
	return !n.Template.HasDependentParameters()
}

// connectEntry is a decoded, not-yet-initialized CONNECT declaration.
type connectEntry struct {
	name   string
	driver string
	config sources.ConnectorConfig
}

// Graph owns exactly one root QueryNode and a name-indexed lookup of every
// node declared in the document, plus the decoded (but not yet connected)
// CONNECT entries.
type Graph struct {
	Root  *QueryNode
	nodes map[string]*QueryNode

	connectOrder  []connectEntry
	retrieveOrder []string
}

// Nodes returns the QueryNode declared with the given AS name.
func (g *Graph) Nodes(name string) (*QueryNode, error) {
	n, ok := g.nodes[name]
	if !ok {
		return nil, qgerr.Newf(qgerr.KindGraphConfig, "unresolved node reference %q", name)
	}
	return n, nil
}

// NodeNames returns every declared node name, in RETRIEVE declaration order.
func (g *Graph) NodeNames() []string {
	names := make([]string, len(g.retrieveOrder))
	copy(names, g.retrieveOrder)
	return names
}
