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
	"fmt"
	"strings"

	"github.com/qgl-project/querygraph/internal/expr"
	"github.com/qgl-project/querygraph/internal/qgerr"
)

// Parse compiles a `>>`-chained manipulation pipeline string into a
// Pipeline. `group_by(...)` must be immediately followed by
// `summarize(...)`; the pair collapses into a single GroupedSummary stage.
func Parse(src string) (*Pipeline, error) {
	tokens := splitTopLevel(src, '>', '>')
	var stages []Stage
	for i := 0; i < len(tokens); i++ {
		name, args, err := splitCall(tokens[i])
		if err != nil {
			return nil, qgerr.Wrap(qgerr.KindQglSyntax, err)
		}
		switch name {
		case "mutate":
			s, err := parseMutate(args)
			if err != nil {
				return nil, err
			}
			stages = append(stages, s)
		case "rename":
			s, err := parseRename(args)
			if err != nil {
				return nil, err
			}
			stages = append(stages, s)
		case "select":
			stages = append(stages, Select{Cols: splitTopLevel(args, ',')})
		case "remove":
			stages = append(stages, Remove{Cols: splitTopLevel(args, ',')})
		case "flatten":
			col := strings.TrimSpace(args)
			if col == "" {
				return nil, qgerr.New(qgerr.KindQglSyntax, "flatten() requires a column name")
			}
			stages = append(stages, Flatten{Col: col})
		case "unpack":
			s, err := parseUnpack(args)
			if err != nil {
				return nil, err
			}
			stages = append(stages, s)
		case "drop_na":
			stages = append(stages, DropNa{})
		case "group_by":
			if i+1 >= len(tokens) {
				return nil, qgerr.New(qgerr.KindQglSyntax, "group_by() must be followed by summarize()")
			}
			sumName, sumArgs, err := splitCall(tokens[i+1])
			if err != nil {
				return nil, qgerr.Wrap(qgerr.KindQglSyntax, err)
			}
			if sumName != "summarize" {
				return nil, qgerr.New(qgerr.KindQglSyntax, "group_by() must be followed by summarize()")
			}
			aggs, err := parseSummarize(sumArgs)
			if err != nil {
				return nil, err
			}
			stages = append(stages, GroupedSummary{
				GroupBy:      splitTopLevel(args, ','),
				Aggregations: aggs,
			})
			i++ // consume the paired summarize() token
		default:
			return nil, qgerr.Newf(qgerr.KindQglSyntax, "unknown manipulation stage %q", name)
		}
	}
	return &Pipeline{Stages: stages}, nil
}

func splitCall(tok string) (name string, args string, err error) {
	tok = strings.TrimSpace(tok)
	open := strings.IndexByte(tok, '(')
	if open < 0 || !strings.HasSuffix(tok, ")") {
		return "", "", fmt.Errorf("manipulate: malformed stage %q, expected name(args)", tok)
	}
	return strings.TrimSpace(tok[:open]), tok[open+1 : len(tok)-1], nil
}

func parseMutate(args string) (Mutate, error) {
	var assigns []Assignment
	for _, a := range splitTopLevel(args, ',') {
		lhs, rhs, err := splitAssignment(a)
		if err != nil {
			return Mutate{}, qgerr.Wrap(qgerr.KindQglSyntax, err)
		}
		e, err := expr.Parse(rhs)
		if err != nil {
			return Mutate{}, qgerr.Wrap(qgerr.KindQglSyntax, err)
		}
		assigns = append(assigns, Assignment{Col: lhs, Expr: e})
	}
	return Mutate{Assignments: assigns}, nil
}

func parseRename(args string) (Rename, error) {
	mapping := map[string]string{}
	for _, a := range splitTopLevel(args, ',') {
		lhs, rhs, err := splitAssignment(a)
		if err != nil {
			return Rename{}, qgerr.Wrap(qgerr.KindQglSyntax, err)
		}
		mapping[lhs] = strings.TrimSpace(rhs)
	}
	return Rename{Mapping: mapping}, nil
}

func parseUnpack(args string) (Unpack, error) {
	var directives []UnpackDirective
	var sharedDefault *UnpackDirective
	for _, a := range splitTopLevel(args, ',') {
		lhs, rhs, err := splitAssignment(a)
		if err != nil {
			return Unpack{}, qgerr.Wrap(qgerr.KindQglSyntax, err)
		}
		if lhs == "default" {
			e, err := expr.Parse(rhs)
			if err != nil {
				return Unpack{}, qgerr.Wrap(qgerr.KindQglSyntax, err)
			}
			v, err := expr.EvalScalar(e, nil)
			if err != nil {
				return Unpack{}, qgerr.Wrap(qgerr.KindQglSyntax, err)
			}
			sharedDefault = &UnpackDirective{Default: v, HasDefault: true}
			continue
		}
		parts := strings.Split(strings.TrimSpace(rhs), ".")
		if len(parts) < 2 {
			return Unpack{}, qgerr.Newf(qgerr.KindQglSyntax, "unpack() directive %q needs a source_col.key path", a)
		}
		directives = append(directives, UnpackDirective{
			NewCol:    lhs,
			SourceCol: parts[0],
			KeyPath:   parts[1:],
		})
	}
	if sharedDefault != nil {
		for i := range directives {
			directives[i].Default = sharedDefault.Default
			directives[i].HasDefault = true
		}
	}
	return Unpack{Directives: directives}, nil
}

func parseSummarize(args string) ([]AggDirective, error) {
	var aggs []AggDirective
	for _, a := range splitTopLevel(args, ',') {
		lhs, rhs, err := splitAssignment(a)
		if err != nil {
			return nil, qgerr.Wrap(qgerr.KindQglSyntax, err)
		}
		reducer, callArgs, err := splitCall(rhs)
		if err != nil {
			return nil, qgerr.Newf(qgerr.KindQglSyntax, "summarize() aggregation %q must call a reducer", a)
		}
		target := strings.TrimSpace(callArgs)
		aggs = append(aggs, AggDirective{OutCol: lhs, Reducer: reducer, TargetCol: target})
	}
	return aggs, nil
}

// splitTopLevel splits s on occurrences of sep (one or two bytes forming the
// separator, e.g. ',' or ">>") that are not nested inside parentheses or
// string literals.
func splitTopLevel(s string, sep ...byte) []string {
	var out []string
	depth := 0
	start := 0
	inStr := byte(0)
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case inStr != 0:
			if c == inStr {
				inStr = 0
			}
		case c == '\'' || c == '"':
			inStr = c
		case c == '(':
			depth++
		case c == ')':
			depth--
		case depth == 0 && matchesSep(s, i, sep):
			out = append(out, strings.TrimSpace(s[start:i]))
			i += len(sep)
			start = i
			continue
		}
		i++
	}
	last := strings.TrimSpace(s[start:])
	if last != "" || len(out) > 0 {
		out = append(out, last)
	}
	return filterEmpty(out)
}

func matchesSep(s string, i int, sep []byte) bool {
	if i+len(sep) > len(s) {
		return false
	}
	for j, b := range sep {
		if s[i+j] != b {
			return false
		}
	}
	return true
}

func filterEmpty(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// splitAssignment splits "lhs = rhs" on the first bare '=' (not part of
// "==", "!=", "<=", ">=").
func splitAssignment(s string) (lhs, rhs string, err error) {
	depth := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '(':
			depth++
		case ')':
			depth--
		case '=':
			if depth != 0 {
				continue
			}
			prev := byte(0)
			if i > 0 {
				prev = s[i-1]
			}
			next := byte(0)
			if i+1 < len(s) {
				next = s[i+1]
			}
			if next == '=' || prev == '!' || prev == '<' || prev == '>' || prev == '=' {
				continue
			}
			return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:]), nil
		}
	}
	return "", "", fmt.Errorf("manipulate: expected 'name = expr' in %q", s)
}
