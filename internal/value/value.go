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

// Package value implements the tagged Value type shared by frames,
// expressions, and the template engine.
package value

import (
	"fmt"
	"time"
)

// Kind is the tag of a Value.
type Kind string

const (
	KindNull     Kind = "null"
	KindBool     Kind = "bool"
	KindInt      Kind = "int"
	KindFloat    Kind = "float"
	KindString   Kind = "string"
	KindDate     Kind = "date"
	KindDateTime Kind = "datetime"
	KindList     Kind = "list"
	KindMap      Kind = "map"
)

// Value is a tagged, possibly-nested value. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	t    time.Time
	list []Value
	m    map[string]Value
}

// Null returns the null Value.
func Null() Value { return Value{kind: KindNull} }

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

func Int(i int64) Value { return Value{kind: KindInt, i: i} }

func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

func String(s string) Value { return Value{kind: KindString, s: s} }

func Date(t time.Time) Value { return Value{kind: KindDate, t: t} }

func DateTime(t time.Time) Value { return Value{kind: KindDateTime, t: t} }

func List(vs []Value) Value { return Value{kind: KindList, list: vs} }

func Map(m map[string]Value) Value { return Value{kind: KindMap, m: m} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) Bool() bool { return v.b }

func (v Value) Int() int64 { return v.i }

func (v Value) Float() float64 {
	if v.kind == KindInt {
		return float64(v.i)
	}
	return v.f
}

func (v Value) String() string { return v.s }

func (v Value) Time() time.Time { return v.t }

func (v Value) List() []Value { return v.list }

func (v Value) Map() map[string]Value { return v.m }

// IsNumeric reports whether v is an int or a float.
func (v Value) IsNumeric() bool {
	return v.kind == KindInt || v.kind == KindFloat
}

// Equal reports whether two values carry the same kind and payload.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		// allow int/float widening for equality of numeric kinds
		if a.IsNumeric() && b.IsNumeric() {
			return a.Float() == b.Float()
		}
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindInt:
		return a.i == b.i
	case KindFloat:
		return a.f == b.f
	case KindString:
		return a.s == b.s
	case KindDate, KindDateTime:
		return a.t.Equal(b.t)
	case KindList:
		if len(a.list) != len(b.list) {
			return false
		}
		for i := range a.list {
			if !Equal(a.list[i], b.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(a.m) != len(b.m) {
			return false
		}
		for k, av := range a.m {
			bv, ok := b.m[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	}
	return false
}

// FromAny lifts a plain Go value (as decoded from YAML/JSON or returned by a
// driver) into a Value. Unsupported types produce an error.
func FromAny(v any) (Value, error) {
	switch t := v.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case int:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case float32:
		return Float(float64(t)), nil
	case float64:
		return Float(t), nil
	case string:
		return String(t), nil
	case time.Time:
		return DateTime(t), nil
	case []any:
		out := make([]Value, 0, len(t))
		for _, e := range t {
			ev, err := FromAny(e)
			if err != nil {
				return Value{}, err
			}
			out = append(out, ev)
		}
		return List(out), nil
	case []string:
		out := make([]Value, 0, len(t))
		for _, e := range t {
			out = append(out, String(e))
		}
		return List(out), nil
	case map[string]any:
		out := make(map[string]Value, len(t))
		for k, e := range t {
			ev, err := FromAny(e)
			if err != nil {
				return Value{}, err
			}
			out[k] = ev
		}
		return Map(out), nil
	default:
		return Value{}, fmt.Errorf("value: unsupported Go type %T", v)
	}
}

// ToAny lowers a Value back to a plain Go value, the inverse of FromAny.
func ToAny(v Value) any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindDate, KindDateTime:
		return v.t
	case KindList:
		out := make([]any, 0, len(v.list))
		for _, e := range v.list {
			out = append(out, ToAny(e))
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.m))
		for k, e := range v.m {
			out[k] = ToAny(e)
		}
		return out
	}
	return nil
}
