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

// Package exec implements the Execution Scheduler (spec §4.G): validating
// caller-supplied independent parameters, running a QueryGraph's nodes in
// topological wavefronts, applying each node's manipulation pipeline, and
// folding the resulting frames back up the tree in reverse topological
// order.
package exec

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	qgltrace "github.com/qgl-project/querygraph/internal/telemetry/trace"

	"github.com/qgl-project/querygraph/internal/frame"
	"github.com/qgl-project/querygraph/internal/join"
	"github.com/qgl-project/querygraph/internal/manipulate"
	"github.com/qgl-project/querygraph/internal/qgerr"
	"github.com/qgl-project/querygraph/internal/qgl"
	"github.com/qgl-project/querygraph/internal/sources"
	"github.com/qgl-project/querygraph/internal/telemetry"
	"github.com/qgl-project/querygraph/internal/template"
	"github.com/qgl-project/querygraph/internal/util"
	"github.com/qgl-project/querygraph/internal/value"
)

// Execute runs g against registry, resolving independent parameters from
// params, and returns the fully folded root frame.
//
// The run proceeds in five steps, mirroring the QGL execution model: (1)
// validate that every independent parameter any node references is present
// in params, (2) compute the node tree's topological (parent-before-child)
// order, (3) execute nodes wavefront by wavefront, siblings in parallel, (4)
// apply each node's manipulation pipeline to its retrieved frame as soon as
// it lands, and (5) fold child frames into their parents in reverse
// topological order.
func Execute(ctx context.Context, g *qgl.Graph, registry *sources.Registry, params map[string]value.Value) (*frame.Frame, error) {
	runID := uuid.New().String()
	ctx, span := qgltrace.Tracer().Start(ctx, "querygraph/exec/execute",
		trace.WithAttributes(attribute.String("run_id", runID)))
	defer span.End()

	order, err := validateAndOrder(g, params)
	if err != nil {
		return nil, err
	}

	if err := executeWavefronts(ctx, order, registry, params); err != nil {
		return nil, err
	}

	return foldTree(ctx, g.Root)
}

// validateAndOrder performs the structural pre-validation pass (every
// independent parameter referenced anywhere in the graph must be supplied)
// and returns nodes in parent-before-child (topological) order.
func validateAndOrder(g *qgl.Graph, params map[string]value.Value) ([]*qgl.QueryNode, error) {
	var order []*qgl.QueryNode
	var missing []string
	seenMissing := map[string]bool{}

	var walk func(n *qgl.QueryNode)
	walk = func(n *qgl.QueryNode) {
		order = append(order, n)
		for _, name := range n.Template.IndependentParamNames() {
			if _, ok := params[name]; !ok && !seenMissing[name] {
				seenMissing[name] = true
				missing = append(missing, name)
			}
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(g.Root)

	if len(missing) > 0 {
		return nil, qgerr.Newf(qgerr.KindIndependentParam, "missing independent parameters: %v", missing)
	}
	return order, nil
}

// wavefronts groups order into successive levels: level 0 is the root,
// level k+1 is every node whose parent is in level k.
func wavefronts(order []*qgl.QueryNode) [][]*qgl.QueryNode {
	depth := map[*qgl.QueryNode]int{}
	maxDepth := 0
	for _, n := range order {
		d := 0
		if n.Parent != nil {
			d = depth[n.Parent] + 1
		}
		depth[n] = d
		if d > maxDepth {
			maxDepth = d
		}
	}
	levels := make([][]*qgl.QueryNode, maxDepth+1)
	for _, n := range order {
		d := depth[n]
		levels[d] = append(levels[d], n)
	}
	return levels
}

func executeWavefronts(ctx context.Context, order []*qgl.QueryNode, registry *sources.Registry, params map[string]value.Value) error {
	for _, level := range wavefronts(order) {
		g, gctx := errgroup.WithContext(ctx)
		for _, n := range level {
			n := n
			g.Go(func() error {
				return executeNode(gctx, n, registry, params)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

func executeNode(ctx context.Context, n *qgl.QueryNode, registry *sources.Registry, params map[string]value.Value) error {
	if err := ctx.Err(); err != nil {
		return contextErr(err, n.Name)
	}

	conn, err := registry.Lookup(n.ConnName)
	if err != nil {
		return err
	}

	var parentFrame *frame.Frame
	if n.Parent != nil {
		parentFrame = n.Parent.Frame
		// A dependent parameter may name the parent node itself, as in
		// {{ p|value_list:str }}; it then reads the parent column of the
		// node's first join pair.
		if parentFrame != nil && len(n.JoinCtx.Pairs) > 0 && !parentFrame.HasColumn(n.Parent.Name) {
			if col, err := parentFrame.Column(n.JoinCtx.Pairs[0].ParentCol); err == nil {
				if aliased, err := parentFrame.WithColumn(n.Parent.Name, col); err == nil {
					parentFrame = aliased
				}
			}
		}
	}

	queryText, err := template.Render(n.Template, conn.Kind(), params, parentFrame)
	if err != nil {
		return err
	}

	telemetry.ActiveNodeUpDownCounter().Add(ctx, 1)
	defer telemetry.ActiveNodeUpDownCounter().Add(ctx, -1)

	ctx, span := qgltrace.Tracer().Start(ctx, "querygraph/exec/node",
		trace.WithAttributes(
			attribute.String("node_name", n.Name),
			attribute.String("query", util.SanitizeSQLQuery(queryText)),
		))
	defer span.End()

	retrieved, err := conn.ExecuteQuery(ctx, queryText, n.Fields)
	if err != nil {
		telemetry.ConnectorErrorCounter().Add(ctx, 1)
		return qgerr.Wrap(qgerr.KindConnector, err).WithNode(n.Name)
	}

	manipulated, err := manipulate.Apply(n.Pipeline, retrieved)
	if err != nil {
		return err
	}

	n.Frame = manipulated
	n.Executed = true
	telemetry.NodeExecuteCounter().Add(ctx, 1)
	return nil
}

// foldTree performs the reverse-topological join fold: each node's children
// are folded (depth-first, in declared sibling order) into the node's own
// frame before the node returns it to its own parent.
func foldTree(ctx context.Context, n *qgl.QueryNode) (*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, contextErr(err, n.Name)
	}
	result := n.Frame
	for _, child := range n.Children {
		childFrame, err := foldTree(ctx, child)
		if err != nil {
			return nil, err
		}
		folded, err := join.Fold(child.JoinCtx, result, childFrame)
		if err != nil {
			if qe, ok := err.(*qgerr.Error); ok {
				return nil, qe.WithNode(child.Name)
			}
			return nil, qgerr.Wrap(qgerr.KindGraphConfig, err).WithNode(child.Name)
		}
		result = folded
	}
	return result, nil
}

func contextErr(err error, node string) error {
	if err == context.Canceled {
		return qgerr.Wrap(qgerr.KindCancelled, err).WithNode(node)
	}
	return qgerr.Wrap(qgerr.KindDeadlineExceeded, fmt.Errorf("execution deadline exceeded: %w", err)).WithNode(node)
}
