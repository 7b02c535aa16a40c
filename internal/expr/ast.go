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

// Package expr implements the expression language (spec §4.C): a small AST
// of literals, column references, function calls, and binary/unary
// operators, evaluated against a Frame (vectorized) or a scalar parameter
// environment.
package expr

import "github.com/qgl-project/querygraph/internal/value"

// Expr is any node of the expression AST.
type Expr interface {
	exprNode()
}

// Literal is a constant value baked into the expression text.
type Literal struct {
	Value value.Value
}

// ColumnRef names a frame column, either bare (`name`) or explicit
// (`col[name]`).
type ColumnRef struct {
	Name string
}

// Call is a function invocation, dispatched by name and argument types.
type Call struct {
	Name string
	Args []Expr
}

// Binary is a two-operand operator application.
type Binary struct {
	Op    string
	Left  Expr
	Right Expr
}

// Unary is a one-operand prefix operator application.
type Unary struct {
	Op      string
	Operand Expr
}

func (Literal) exprNode()   {}
func (ColumnRef) exprNode() {}
func (Call) exprNode()      {}
func (Binary) exprNode()    {}
func (Unary) exprNode()     {}
