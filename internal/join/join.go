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

// Package join implements the Join Engine (spec §4.H): applying a node's
// JoinContext to fold its frame into its parent's.
package join

import (
	"github.com/qgl-project/querygraph/internal/frame"
	"github.com/qgl-project/querygraph/internal/qgerr"
)

// Kind is a join's row-keeping policy.
type Kind string

const (
	Left  Kind = "LEFT"
	Right Kind = "RIGHT"
	Inner Kind = "INNER"
	Outer Kind = "OUTER"
)

// ColPair is one parent[col] ==> child[col] equivalence.
type ColPair struct {
	ParentCol string
	ChildCol  string
}

// Context is the join configuration attached to a non-root QueryNode.
type Context struct {
	Kind  Kind
	Pairs []ColPair
}

// IsEmpty reports whether c is the zero Context, i.e. a root node.
func (c Context) IsEmpty() bool {
	return c.Kind == "" && len(c.Pairs) == 0
}

// Fold merges child into parent according to ctx, returning the parent's
// post-fold frame.
func Fold(ctx Context, parent, child *frame.Frame) (*frame.Frame, error) {
	kind, err := frameJoinKind(ctx.Kind)
	if err != nil {
		return nil, err
	}
	pairs := make([]frame.ColPair, len(ctx.Pairs))
	for i, p := range ctx.Pairs {
		pairs[i] = frame.ColPair{Left: p.ParentCol, Right: p.ChildCol}
	}
	out, err := frame.Merge(parent, child, kind, pairs)
	if err != nil {
		return nil, qgerr.Wrap(qgerr.KindGraphConfig, err)
	}
	return out, nil
}

func frameJoinKind(k Kind) (frame.JoinKind, error) {
	switch k {
	case Left:
		return frame.JoinLeft, nil
	case Right:
		return frame.JoinRight, nil
	case Inner:
		return frame.JoinInner, nil
	case Outer:
		return frame.JoinOuter, nil
	default:
		return "", qgerr.Newf(qgerr.KindGraphConfig, "unknown join kind %q", k)
	}
}
