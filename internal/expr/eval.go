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
	"github.com/qgl-project/querygraph/internal/frame"
	"github.com/qgl-project/querygraph/internal/qgerr"
	"github.com/qgl-project/querygraph/internal/value"
)

// Eval evaluates e against f, resolving ColumnRef nodes to f's columns.
// Literal-only sub-expressions fold to scalars; anything touching a column
// produces a series the length of f.
func Eval(e Expr, f *frame.Frame) (RuntimeVal, error) {
	switch n := e.(type) {
	case Literal:
		return scalarVal(n.Value), nil
	case ColumnRef:
		col, err := f.Column(n.Name)
		if err != nil {
			return RuntimeVal{}, qgerr.Wrap(qgerr.KindExpr, err)
		}
		return seriesVal(col), nil
	case Call:
		args := make([]RuntimeVal, len(n.Args))
		for i, a := range n.Args {
			v, err := Eval(a, f)
			if err != nil {
				return RuntimeVal{}, err
			}
			args[i] = v
		}
		return Dispatch(n.Name, args)
	case Binary:
		left, err := Eval(n.Left, f)
		if err != nil {
			return RuntimeVal{}, err
		}
		right, err := Eval(n.Right, f)
		if err != nil {
			return RuntimeVal{}, err
		}
		return evalBinary(n.Op, left, right)
	case Unary:
		operand, err := Eval(n.Operand, f)
		if err != nil {
			return RuntimeVal{}, err
		}
		return evalUnary(n.Op, operand)
	default:
		return RuntimeVal{}, qgerr.Newf(qgerr.KindExpr, "unhandled expression node %T", e)
	}
}

// EvalScalar evaluates e against a flat parameter environment, for contexts
// with no frame (independent-parameter defaults, template modifiers).
func EvalScalar(e Expr, env map[string]value.Value) (value.Value, error) {
	switch n := e.(type) {
	case Literal:
		return n.Value, nil
	case ColumnRef:
		v, ok := env[n.Name]
		if !ok {
			return value.Value{}, qgerr.Newf(qgerr.KindExpr, "undefined parameter %q", n.Name)
		}
		return v, nil
	case Call:
		args := make([]RuntimeVal, len(n.Args))
		for i, a := range n.Args {
			v, err := EvalScalar(a, env)
			if err != nil {
				return value.Value{}, err
			}
			args[i] = scalarVal(v)
		}
		rv, err := Dispatch(n.Name, args)
		if err != nil {
			return value.Value{}, err
		}
		if rv.IsSeries {
			return value.Value{}, qgerr.New(qgerr.KindExpr, "scalar environment: function returned a series")
		}
		return rv.Scalar, nil
	case Binary:
		left, err := EvalScalar(n.Left, env)
		if err != nil {
			return value.Value{}, err
		}
		right, err := EvalScalar(n.Right, env)
		if err != nil {
			return value.Value{}, err
		}
		rv, err := evalBinary(n.Op, scalarVal(left), scalarVal(right))
		if err != nil {
			return value.Value{}, err
		}
		return rv.Scalar, nil
	case Unary:
		operand, err := EvalScalar(n.Operand, env)
		if err != nil {
			return value.Value{}, err
		}
		rv, err := evalUnary(n.Op, scalarVal(operand))
		if err != nil {
			return value.Value{}, err
		}
		return rv.Scalar, nil
	default:
		return value.Value{}, qgerr.Newf(qgerr.KindExpr, "unhandled expression node %T", e)
	}
}

func evalBinary(op string, left, right RuntimeVal) (RuntimeVal, error) {
	switch op {
	case "+", "-", "*", "/", "%":
		return elementwiseBinary(left, right, func(a, b value.Value) (value.Value, error) {
			return arith(op, a, b)
		})
	case "==", "!=", "<", "<=", ">", ">=":
		return elementwiseBinary(left, right, func(a, b value.Value) (value.Value, error) {
			return compare(op, a, b)
		})
	case "and", "or":
		return elementwiseBinary(left, right, func(a, b value.Value) (value.Value, error) {
			return boolOp(op, a, b)
		})
	default:
		return RuntimeVal{}, qgerr.Newf(qgerr.KindExpr, "unknown binary operator %q", op)
	}
}

func evalUnary(op string, operand RuntimeVal) (RuntimeVal, error) {
	switch op {
	case "-":
		return elementwiseUnary(operand, func(v value.Value) (value.Value, error) {
			if v.Kind() == value.KindInt {
				return value.Int(-v.Int()), nil
			}
			if v.IsNumeric() {
				return value.Float(-v.Float()), nil
			}
			return value.Value{}, qgerr.Newf(qgerr.KindExpr, "unary '-' requires a numeric operand, got %s", v.Kind())
		})
	case "not":
		return elementwiseUnary(operand, func(v value.Value) (value.Value, error) {
			if v.Kind() != value.KindBool {
				return value.Value{}, qgerr.Newf(qgerr.KindExpr, "unary 'not' requires a bool operand, got %s", v.Kind())
			}
			return value.Bool(!v.Bool()), nil
		})
	default:
		return RuntimeVal{}, qgerr.Newf(qgerr.KindExpr, "unknown unary operator %q", op)
	}
}

func arith(op string, a, b value.Value) (value.Value, error) {
	if op == "+" && a.Kind() == value.KindString && b.Kind() == value.KindString {
		return value.String(a.String() + b.String()), nil
	}
	if !a.IsNumeric() || !b.IsNumeric() {
		return value.Value{}, qgerr.Newf(qgerr.KindExpr, "operator %q requires numeric operands, got %s and %s", op, a.Kind(), b.Kind())
	}
	if a.Kind() == value.KindInt && b.Kind() == value.KindInt {
		switch op {
		case "+":
			return value.Int(a.Int() + b.Int()), nil
		case "-":
			return value.Int(a.Int() - b.Int()), nil
		case "*":
			return value.Int(a.Int() * b.Int()), nil
		case "/":
			if b.Int() == 0 {
				return value.Value{}, qgerr.New(qgerr.KindExpr, "division by zero")
			}
			return value.Int(a.Int() / b.Int()), nil
		case "%":
			if b.Int() == 0 {
				return value.Value{}, qgerr.New(qgerr.KindExpr, "modulo by zero")
			}
			return value.Int(a.Int() % b.Int()), nil
		}
	}
	x, y := a.Float(), b.Float()
	switch op {
	case "+":
		return value.Float(x + y), nil
	case "-":
		return value.Float(x - y), nil
	case "*":
		return value.Float(x * y), nil
	case "/":
		if y == 0 {
			return value.Value{}, qgerr.New(qgerr.KindExpr, "division by zero")
		}
		return value.Float(x / y), nil
	case "%":
		return value.Value{}, qgerr.New(qgerr.KindExpr, "modulo requires integer operands")
	}
	return value.Value{}, qgerr.Newf(qgerr.KindExpr, "unknown arithmetic operator %q", op)
}

func compare(op string, a, b value.Value) (value.Value, error) {
	if op == "==" {
		return value.Bool(value.Equal(a, b)), nil
	}
	if op == "!=" {
		return value.Bool(!value.Equal(a, b)), nil
	}
	var lt, gt bool
	switch {
	case a.IsNumeric() && b.IsNumeric():
		lt, gt = a.Float() < b.Float(), a.Float() > b.Float()
	case a.Kind() == value.KindString && b.Kind() == value.KindString:
		lt, gt = a.String() < b.String(), a.String() > b.String()
	case (a.Kind() == value.KindDate || a.Kind() == value.KindDateTime) && (b.Kind() == value.KindDate || b.Kind() == value.KindDateTime):
		lt, gt = a.Time().Before(b.Time()), a.Time().After(b.Time())
	default:
		return value.Value{}, qgerr.Newf(qgerr.KindExpr, "operator %q not comparable between %s and %s", op, a.Kind(), b.Kind())
	}
	switch op {
	case "<":
		return value.Bool(lt), nil
	case "<=":
		return value.Bool(lt || !gt), nil
	case ">":
		return value.Bool(gt), nil
	case ">=":
		return value.Bool(gt || !lt), nil
	}
	return value.Value{}, qgerr.Newf(qgerr.KindExpr, "unknown comparison operator %q", op)
}

func boolOp(op string, a, b value.Value) (value.Value, error) {
	if a.Kind() != value.KindBool || b.Kind() != value.KindBool {
		return value.Value{}, qgerr.Newf(qgerr.KindExpr, "operator %q requires bool operands, got %s and %s", op, a.Kind(), b.Kind())
	}
	if op == "and" {
		return value.Bool(a.Bool() && b.Bool()), nil
	}
	return value.Bool(a.Bool() || b.Bool()), nil
}
