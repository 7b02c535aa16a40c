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

package manipulate

import (
	"github.com/qgl-project/querygraph/internal/expr"
	"github.com/qgl-project/querygraph/internal/frame"
	"github.com/qgl-project/querygraph/internal/qgerr"
	"github.com/qgl-project/querygraph/internal/value"
)

// Apply runs p's stages against f in order, each stage's output feeding the
// next stage's input.
func Apply(p *Pipeline, f *frame.Frame) (*frame.Frame, error) {
	cur := f
	for _, s := range p.Stages {
		next, err := applyStage(s, cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

func applyStage(s Stage, f *frame.Frame) (*frame.Frame, error) {
	switch st := s.(type) {
	case Mutate:
		return applyMutate(st, f)
	case Rename:
		out, err := f.Rename(st.Mapping)
		return out, wrapManip(err)
	case Select:
		out, err := f.Select(st.Cols)
		return out, wrapManip(err)
	case Remove:
		out, err := f.Drop(st.Cols...)
		return out, wrapManip(err)
	case Flatten:
		out, err := f.Flatten(st.Col)
		return out, wrapManip(err)
	case Unpack:
		return applyUnpack(st, f)
	case GroupedSummary:
		return applyGroupedSummary(st, f)
	case DropNa:
		out, err := f.DropNA()
		return out, wrapManip(err)
	default:
		return nil, qgerr.Newf(qgerr.KindManipulation, "unhandled stage type %T", s)
	}
}

func wrapManip(err error) error {
	if err == nil {
		return nil
	}
	if qgerr.OfKind(err, qgerr.KindManipulation) {
		return err
	}
	return qgerr.Wrap(qgerr.KindManipulation, err)
}

func applyMutate(st Mutate, f *frame.Frame) (*frame.Frame, error) {
	cur := f
	for _, a := range st.Assignments {
		rv, err := expr.Eval(a.Expr, cur)
		if err != nil {
			return nil, wrapManip(err)
		}
		col := rv.Series
		if !rv.IsSeries {
			col = broadcast(rv.Scalar, cur.NumRows())
		}
		next, err := cur.WithColumn(a.Col, col)
		if err != nil {
			return nil, wrapManip(err)
		}
		cur = next
	}
	return cur, nil
}

func broadcast(v value.Value, n int) []value.Value {
	out := make([]value.Value, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func applyUnpack(st Unpack, f *frame.Frame) (*frame.Frame, error) {
	cur := f
	for _, d := range st.Directives {
		col, err := cur.Column(d.SourceCol)
		if err != nil {
			return nil, wrapManip(err)
		}
		out := make([]value.Value, len(col))
		for i, cell := range col {
			v, ok := resolveKeyPath(cell, d.KeyPath)
			if !ok {
				if d.HasDefault {
					out[i] = d.Default
					continue
				}
				return nil, qgerr.Newf(qgerr.KindManipulation, "unpack: key path %v not found in column %q row %d", d.KeyPath, d.SourceCol, i)
			}
			out[i] = v
		}
		next, err := cur.WithColumn(d.NewCol, out)
		if err != nil {
			return nil, wrapManip(err)
		}
		cur = next
	}
	return cur, nil
}

func resolveKeyPath(v value.Value, path []string) (value.Value, bool) {
	cur := v
	for _, key := range path {
		switch cur.Kind() {
		case value.KindMap:
			next, ok := cur.Map()[key]
			if !ok {
				return value.Value{}, false
			}
			cur = next
		case value.KindList:
			idx, err := indexFromKey(key)
			if err != nil || idx < 0 || idx >= len(cur.List()) {
				return value.Value{}, false
			}
			cur = cur.List()[idx]
		default:
			return value.Value{}, false
		}
	}
	return cur, true
}

func indexFromKey(key string) (int, error) {
	n := 0
	if key == "" {
		return -1, qgerr.New(qgerr.KindManipulation, "empty list index in unpack key path")
	}
	for _, r := range key {
		if r < '0' || r > '9' {
			return -1, qgerr.Newf(qgerr.KindManipulation, "non-numeric list index %q in unpack key path", key)
		}
		n = n*10 + int(r-'0')
	}
	return n, nil
}

func applyGroupedSummary(st GroupedSummary, f *frame.Frame) (*frame.Frame, error) {
	aggs := make([]frame.Aggregation, len(st.Aggregations))
	for i, a := range st.Aggregations {
		reducer := a.Reducer
		aggs[i] = frame.Aggregation{
			OutCol:    a.OutCol,
			TargetCol: a.TargetCol,
			Reducer: func(vs []value.Value) (value.Value, error) {
				return expr.CallReducer(reducer, vs)
			},
		}
	}
	out, err := f.GroupBy(st.GroupBy, aggs)
	return out, wrapManip(err)
}
