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

package expr_test

import (
	"testing"

	"github.com/qgl-project/querygraph/internal/expr"
	"github.com/qgl-project/querygraph/internal/frame"
	"github.com/qgl-project/querygraph/internal/value"
)

func mustFrame(t *testing.T, names []string, data map[string][]value.Value) *frame.Frame {
	t.Helper()
	f, err := frame.New(names, data)
	if err != nil {
		t.Fatalf("frame.New: %v", err)
	}
	return f
}

func TestEvalArithmeticOnColumns(t *testing.T) {
	f := mustFrame(t, []string{"a", "b"}, map[string][]value.Value{
		"a": {value.Int(1), value.Int(2)},
		"b": {value.Int(10), value.Int(20)},
	})
	e, err := expr.Parse("a + b * 2")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	rv, err := expr.Eval(e, f)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if !rv.IsSeries || len(rv.Series) != 2 {
		t.Fatalf("expected a 2-element series, got %+v", rv)
	}
	if rv.Series[0].Int() != 21 || rv.Series[1].Int() != 42 {
		t.Errorf("got [%v, %v], want [21, 42]", rv.Series[0].Int(), rv.Series[1].Int())
	}
}

func TestEvalUppercaseVectorized(t *testing.T) {
	f := mustFrame(t, []string{"name"}, map[string][]value.Value{
		"name": {value.String("ann"), value.String("bo")},
	})
	e, err := expr.Parse("uppercase(name)")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	rv, err := expr.Eval(e, f)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if rv.Series[0].String() != "ANN" || rv.Series[1].String() != "BO" {
		t.Errorf("got [%q, %q]", rv.Series[0].String(), rv.Series[1].String())
	}
}

func TestEvalSumReducer(t *testing.T) {
	f := mustFrame(t, []string{"v"}, map[string][]value.Value{
		"v": {value.Int(1), value.Int(2), value.Int(3)},
	})
	e, err := expr.Parse("sum(v)")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	rv, err := expr.Eval(e, f)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if rv.IsSeries {
		t.Fatal("sum() should collapse to a scalar")
	}
	if rv.Scalar.Int() != 6 {
		t.Errorf("sum = %d, want 6", rv.Scalar.Int())
	}
}

func TestEvalComparisonAndBoolean(t *testing.T) {
	f := mustFrame(t, []string{"v"}, map[string][]value.Value{
		"v": {value.Int(1), value.Int(5), value.Int(9)},
	})
	e, err := expr.Parse("v > 2 and v < 9")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	rv, err := expr.Eval(e, f)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	want := []bool{false, true, false}
	for i, w := range want {
		if rv.Series[i].Bool() != w {
			t.Errorf("row %d = %v, want %v", i, rv.Series[i].Bool(), w)
		}
	}
}

func TestEvalLag(t *testing.T) {
	f := mustFrame(t, []string{"v"}, map[string][]value.Value{
		"v": {value.Int(10), value.Int(20), value.Int(30)},
	})
	e, err := expr.Parse("lag(v, 1)")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	rv, err := expr.Eval(e, f)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if !rv.Series[0].IsNull() {
		t.Errorf("row 0 should be null, got %v", rv.Series[0])
	}
	if rv.Series[1].Int() != 10 || rv.Series[2].Int() != 20 {
		t.Errorf("got [%v, %v], want [10, 20]", rv.Series[1].Int(), rv.Series[2].Int())
	}
}

func TestEvalReplaceDispatchRejectsNonStringArgs(t *testing.T) {
	f := mustFrame(t, []string{"v"}, map[string][]value.Value{
		"v": {value.String("hello")},
	})
	e, err := expr.Parse("replace(v, 1, \"x\")")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := expr.Eval(e, f); err == nil {
		t.Fatal("expected ExprFuncError for non-string replace argument")
	}
}

func TestEvalScalarEnvironment(t *testing.T) {
	e, err := expr.Parse("uppercase(name)")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	v, err := expr.EvalScalar(e, map[string]value.Value{"name": value.String("abc")})
	if err != nil {
		t.Fatalf("EvalScalar: %v", err)
	}
	if v.String() != "ABC" {
		t.Errorf("got %q, want ABC", v.String())
	}
}

func TestUnknownFunctionIsExprFuncError(t *testing.T) {
	f := mustFrame(t, []string{"v"}, map[string][]value.Value{"v": {value.Int(1)}})
	e, err := expr.Parse("frobnicate(v)")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := expr.Eval(e, f); err == nil {
		t.Fatal("expected error for unknown function")
	}
}
