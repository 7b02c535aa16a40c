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

package qgl

import (
	"context"

	"github.com/qgl-project/querygraph/internal/qgerr"
)

// BuildGraph parses a QGL document's CONNECT, RETRIEVE and JOIN sections
// into a Graph (spec §4.F). It decodes every CONNECT entry's driver-specific
// config but does not dial out; call InitializeConnectors to open live
// connections once the Graph is known to be well-formed.
//
// Fails with a *qgerr.Error of kind QglSyntaxError for malformed input, or
// GraphConfigError for duplicate/unresolved names or a CycleError.
func BuildGraph(ctx context.Context, qglText string) (*Graph, error) {
	connectBody, retrieveBody, joinBody, err := sections(qglText)
	if err != nil {
		return nil, err
	}

	connects, err := parseConnect(ctx, connectBody)
	if err != nil {
		return nil, err
	}
	connNames := make(map[string]bool, len(connects))
	for _, c := range connects {
		connNames[c.name] = true
	}

	nodeList, err := parseRetrieve(retrieveBody, connNames)
	if err != nil {
		return nil, err
	}
	if len(nodeList) == 0 {
		return nil, qgerr.New(qgerr.KindQglSyntax, "RETRIEVE section declares no nodes")
	}

	g := &Graph{nodes: make(map[string]*QueryNode, len(nodeList)), connectOrder: connects}
	for _, n := range nodeList {
		g.nodes[n.Name] = n
		g.retrieveOrder = append(g.retrieveOrder, n.Name)
	}

	decls, err := parseJoin(joinBody)
	if err != nil {
		return nil, err
	}

	isChild := map[string]bool{}
	for _, d := range decls {
		parent, ok := g.nodes[d.parent]
		if !ok {
			return nil, qgerr.Newf(qgerr.KindGraphConfig, "unresolved node reference %q", d.parent)
		}
		child, ok := g.nodes[d.child]
		if !ok {
			return nil, qgerr.Newf(qgerr.KindGraphConfig, "unresolved node reference %q", d.child)
		}
		if child.Parent != nil {
			return nil, qgerr.Newf(qgerr.KindGraphConfig, "node %q already has a parent, cannot attach to %q", d.child, d.parent)
		}
		if isDescendant(child, parent) {
			return nil, qgerr.Newf(qgerr.KindCycle, "attaching %q as a child of %q would create a cycle", d.child, d.parent)
		}
		child.Parent = parent
		child.JoinCtx = d.ctx
		parent.Children = append(parent.Children, child)
		isChild[d.child] = true
	}

	var root *QueryNode
	for _, name := range g.retrieveOrder {
		if !isChild[name] {
			root = g.nodes[name]
			break
		}
	}
	if root == nil {
		return nil, qgerr.New(qgerr.KindGraphConfig, "no root node: every declared node is a JOIN child")
	}
	g.Root = root

	reached := map[string]bool{}
	markReachable(root, reached)
	for _, name := range g.retrieveOrder {
		if !reached[name] {
			return nil, qgerr.Newf(qgerr.KindGraphConfig, "node %q is unreachable from root %q", name, root.Name)
		}
	}

	return g, nil
}

// isDescendant reports whether candidate is reachable from of's subtree,
// i.e. candidate is of or a descendant of of. Used to reject attaching a
// node as a child of any node already in its own subtree (spec's CycleError
// invariant).
func isDescendant(of, candidate *QueryNode) bool {
	if of == candidate {
		return true
	}
	for _, c := range of.Children {
		if isDescendant(c, candidate) {
			return true
		}
	}
	return false
}

func markReachable(n *QueryNode, reached map[string]bool) {
	reached[n.Name] = true
	for _, c := range n.Children {
		markReachable(c, reached)
	}
}
