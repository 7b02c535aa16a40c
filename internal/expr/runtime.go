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

package expr

import "github.com/qgl-project/querygraph/internal/value"

// RuntimeVal is an intermediate evaluation result: either a single Value or
// a Value series the length of the frame being evaluated against.
type RuntimeVal struct {
	IsSeries bool
	Scalar   value.Value
	Series   []value.Value
}

func scalarVal(v value.Value) RuntimeVal { return RuntimeVal{Scalar: v} }

func seriesVal(vs []value.Value) RuntimeVal { return RuntimeVal{IsSeries: true, Series: vs} }

// broadcastLen returns the length two series-aware values must agree on, or
// -1 if both are scalars (no series length to enforce).
func broadcastLen(a, b RuntimeVal) (int, bool) {
	switch {
	case a.IsSeries && b.IsSeries:
		return len(a.Series), len(a.Series) == len(b.Series)
	case a.IsSeries:
		return len(a.Series), true
	case b.IsSeries:
		return len(b.Series), true
	default:
		return -1, true
	}
}

func (r RuntimeVal) at(i int) value.Value {
	if r.IsSeries {
		return r.Series[i]
	}
	return r.Scalar
}

// elementwiseBinary applies fn to every row, broadcasting scalar operands across a
// series operand. Returns a scalar RuntimeVal when neither input is a
// series.
func elementwiseBinary(a, b RuntimeVal, fn func(a, b value.Value) (value.Value, error)) (RuntimeVal, error) {
	n, ok := broadcastLen(a, b)
	if !ok {
		return RuntimeVal{}, errLengthMismatch(len(a.Series), len(b.Series))
	}
	if n < 0 {
		v, err := fn(a.Scalar, b.Scalar)
		if err != nil {
			return RuntimeVal{}, err
		}
		return scalarVal(v), nil
	}
	out := make([]value.Value, n)
	for i := 0; i < n; i++ {
		v, err := fn(a.at(i), b.at(i))
		if err != nil {
			return RuntimeVal{}, err
		}
		out[i] = v
	}
	return seriesVal(out), nil
}

func elementwiseUnary(a RuntimeVal, fn func(value.Value) (value.Value, error)) (RuntimeVal, error) {
	if !a.IsSeries {
		v, err := fn(a.Scalar)
		if err != nil {
			return RuntimeVal{}, err
		}
		return scalarVal(v), nil
	}
	out := make([]value.Value, len(a.Series))
	for i, v := range a.Series {
		r, err := fn(v)
		if err != nil {
			return RuntimeVal{}, err
		}
		out[i] = r
	}
	return seriesVal(out), nil
}
