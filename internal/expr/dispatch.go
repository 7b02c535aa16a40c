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

import (
	"fmt"

	"github.com/qgl-project/querygraph/internal/qgerr"
	"github.com/qgl-project/querygraph/internal/value"
)

// ArgTag identifies the runtime shape an overload parameter accepts.
type ArgTag string

const (
	TagNull   ArgTag = "null"
	TagBool   ArgTag = "bool"
	TagInt    ArgTag = "int"
	TagFloat  ArgTag = "float"
	TagString ArgTag = "string"
	TagDate   ArgTag = "date"
	TagDT     ArgTag = "datetime"
	TagList   ArgTag = "list"
	TagMap    ArgTag = "map"
	TagSeries ArgTag = "series"
	TagAny    ArgTag = "any"
)

// Overload is one multi-dispatch implementation registered under a function
// name: a tuple of parameter tags plus the handler invoked on exact (or
// widened) match.
type Overload struct {
	Params   []ArgTag
	Variadic bool
	Handler  func(args []RuntimeVal) (RuntimeVal, error)
}

var functionTable = map[string][]Overload{}

// registerFunc adds an overload under name. Called from init() in
// functions.go; a repeated name appends a further overload to the ones
// already registered under it.
func registerFunc(name string, o Overload) {
	functionTable[name] = append(functionTable[name], o)
}

func tagMatches(tag ArgTag, v RuntimeVal) bool {
	if tag == TagAny {
		return true
	}
	if tag == TagSeries {
		return v.IsSeries
	}
	if v.IsSeries {
		return false
	}
	return ArgTag(v.Scalar.Kind()) == tag
}

// widen tries to coerce args[i] to satisfy tag when an exact match failed:
// int literals widen to float, and a bare scalar widens to a length-1
// series when the overload declares a series parameter.
func widen(tag ArgTag, v RuntimeVal) (RuntimeVal, bool) {
	if tag == TagFloat && !v.IsSeries && v.Scalar.Kind() == value.KindInt {
		return scalarVal(value.Float(v.Scalar.Float())), true
	}
	if tag == TagSeries && !v.IsSeries {
		return seriesVal([]value.Value{v.Scalar}), true
	}
	return v, false
}

func matchOverload(o Overload, args []RuntimeVal) ([]RuntimeVal, bool) {
	if o.Variadic {
		if len(args) < len(o.Params) {
			return nil, false
		}
	} else if len(args) != len(o.Params) {
		return nil, false
	}
	out := make([]RuntimeVal, len(args))
	copy(out, args)
	for i, tag := range o.Params {
		if tagMatches(tag, out[i]) {
			continue
		}
		if w, ok := widen(tag, out[i]); ok {
			out[i] = w
			continue
		}
		return nil, false
	}
	// variadic tail must match the last declared tag
	if o.Variadic {
		tail := o.Params[len(o.Params)-1]
		for i := len(o.Params); i < len(out); i++ {
			if tagMatches(tail, out[i]) {
				continue
			}
			if w, ok := widen(tail, out[i]); ok {
				out[i] = w
				continue
			}
			return nil, false
		}
	}
	return out, true
}

// Dispatch resolves name against its registered overloads and invokes the
// first match, widening scalar/series and int/float mismatches before
// giving up with an ExprFuncError.
func Dispatch(name string, args []RuntimeVal) (RuntimeVal, error) {
	overloads, ok := functionTable[name]
	if !ok {
		return RuntimeVal{}, qgerr.Newf(qgerr.KindExprFunc, "unknown function %q", name)
	}
	for _, o := range overloads {
		if matched, ok := matchOverload(o, args); ok {
			v, err := o.Handler(matched)
			if err != nil {
				return RuntimeVal{}, qgerr.Wrap(qgerr.KindExprFunc, err)
			}
			return v, nil
		}
	}
	return RuntimeVal{}, qgerr.Newf(qgerr.KindExprFunc, "no overload of %q matches argument types %v", name, describeArgs(args))
}

func describeArgs(args []RuntimeVal) []string {
	out := make([]string, len(args))
	for i, a := range args {
		if a.IsSeries {
			out[i] = fmt.Sprintf("series(len=%d)", len(a.Series))
		} else {
			out[i] = string(a.Scalar.Kind())
		}
	}
	return out
}

func errLengthMismatch(a, b int) error {
	return qgerr.Newf(qgerr.KindExprFunc, "series length mismatch: %d vs %d", a, b)
}

// CallReducer invokes a registered series-in function (the GroupedSummary
// reducers, but also usable for any series-only overload) against a plain
// column, for callers outside the expression evaluator such as the
// manipulation pipeline's summarize stage.
func CallReducer(name string, series []value.Value) (value.Value, error) {
	rv, err := Dispatch(name, []RuntimeVal{seriesVal(series)})
	if err != nil {
		return value.Value{}, err
	}
	if rv.IsSeries {
		return value.Value{}, qgerr.Newf(qgerr.KindExprFunc, "%q is not a reducer (returned a series)", name)
	}
	return rv.Scalar, nil
}
