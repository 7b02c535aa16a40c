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

	"github.com/qgl-project/querygraph/internal/value"
)

// Parse compiles a single expression-language string into an AST, per the
// grammar used by Mutate arguments and manipulation predicates (spec §4.C).
func Parse(src string) (Expr, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	e, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.cur().kind != tokEOF {
		return nil, fmt.Errorf("expr: unexpected trailing token %q", p.cur().text)
	}
	return e, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) cur() token  { return p.toks[p.pos] }
func (p *parser) advance()    { p.pos++ }
func (p *parser) isIdent(s string) bool {
	return p.cur().kind == tokIdent && p.cur().text == s
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isIdent("or") {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: "or", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.isIdent("and") {
		p.advance()
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: "and", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseEquality() (Expr, error) {
	left, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for p.cur().kind == tokOp && (p.cur().text == "==" || p.cur().text == "!=") {
		op := p.cur().text
		p.advance()
		right, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseRelational() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.cur().kind == tokOp && isRelOp(p.cur().text) {
		op := p.cur().text
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func isRelOp(s string) bool {
	return s == "<" || s == "<=" || s == ">" || s == ">="
}

func (p *parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.cur().kind == tokOp && (p.cur().text == "+" || p.cur().text == "-") {
		op := p.cur().text
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur().kind == tokOp && (p.cur().text == "*" || p.cur().text == "/" || p.cur().text == "%") {
		op := p.cur().text
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (Expr, error) {
	if p.cur().kind == tokOp && p.cur().text == "-" {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return Unary{Op: "-", Operand: operand}, nil
	}
	if p.isIdent("not") {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return Unary{Op: "not", Operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, error) {
	t := p.cur()
	switch t.kind {
	case tokInt:
		p.advance()
		f, n, err := parseNumberLiteral(tokInt, t.text)
		_ = f
		if err != nil {
			return nil, fmt.Errorf("expr: bad integer literal %q: %w", t.text, err)
		}
		return Literal{Value: value.Int(n)}, nil
	case tokFloat:
		p.advance()
		f, _, err := parseNumberLiteral(tokFloat, t.text)
		if err != nil {
			return nil, fmt.Errorf("expr: bad float literal %q: %w", t.text, err)
		}
		return Literal{Value: value.Float(f)}, nil
	case tokString:
		p.advance()
		return Literal{Value: value.String(t.text)}, nil
	case tokLParen:
		p.advance()
		e, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.cur().kind != tokRParen {
			return nil, fmt.Errorf("expr: expected ')'")
		}
		p.advance()
		return e, nil
	case tokIdent:
		return p.parseIdentExpr()
	default:
		return nil, fmt.Errorf("expr: unexpected token %q", t.text)
	}
}

func (p *parser) parseIdentExpr() (Expr, error) {
	name := p.cur().text
	p.advance()
	switch name {
	case "true":
		return Literal{Value: value.Bool(true)}, nil
	case "false":
		return Literal{Value: value.Bool(false)}, nil
	case "null":
		return Literal{Value: value.Null()}, nil
	case "col":
		if p.cur().kind != tokLBracket {
			return nil, fmt.Errorf("expr: expected '[' after col")
		}
		p.advance()
		if p.cur().kind != tokString && p.cur().kind != tokIdent {
			return nil, fmt.Errorf("expr: expected column name inside col[]")
		}
		colName := p.cur().text
		p.advance()
		if p.cur().kind != tokRBracket {
			return nil, fmt.Errorf("expr: expected ']'")
		}
		p.advance()
		return ColumnRef{Name: colName}, nil
	}
	if p.cur().kind == tokLParen {
		p.advance()
		var args []Expr
		for p.cur().kind != tokRParen {
			a, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
			if p.cur().kind == tokComma {
				p.advance()
				continue
			}
			break
		}
		if p.cur().kind != tokRParen {
			return nil, fmt.Errorf("expr: expected ')' to close call to %q", name)
		}
		p.advance()
		return Call{Name: name, Args: args}, nil
	}
	return ColumnRef{Name: name}, nil
}
