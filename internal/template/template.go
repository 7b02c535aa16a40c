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

// Package template implements the query-template engine (spec §4.E):
// tokenizing `{{…}}` (dependent), `{%…%}` (independent) and `{#…#}`
// (comment) spans, and rendering each against the caller's parameter map
// and/or the parent node's frame.
package template

import (
	"regexp"
	"strings"

	"github.com/qgl-project/querygraph/internal/format"
	"github.com/qgl-project/querygraph/internal/frame"
	"github.com/qgl-project/querygraph/internal/qgerr"
	"github.com/qgl-project/querygraph/internal/value"
)

// Modifier selects how a parameter's resolved value is rendered.
type Modifier string

const (
	ModValue     Modifier = "value"
	ModValueList Modifier = "value_list"
)

type segmentKind int

const (
	segLiteral segmentKind = iota
	segComment
	segIndependent
	segDependent
)

// ParamRef is a parsed `name | modifier : type` reference.
type ParamRef struct {
	Name     string
	Modifier Modifier
	HasType  bool
	Type     format.TypeHint
}

type segment struct {
	kind    segmentKind
	literal string
	param   ParamRef
}

// Template is a compiled query template: an ordered list of literal and
// parameter segments.
type Template struct {
	segments []segment
}

var tokenPattern = regexp.MustCompile(`\{\{.*?\}\}|\{%.*?%\}|\{#.*?#\}`)

// Parse tokenizes src into a Template.
func Parse(src string) (*Template, error) {
	var segs []segment
	lastEnd := 0
	matches := tokenPattern.FindAllStringIndex(src, -1)
	for _, m := range matches {
		start, end := m[0], m[1]
		if start > lastEnd {
			segs = append(segs, segment{kind: segLiteral, literal: src[lastEnd:start]})
		}
		tok := src[start:end]
		seg, err := parseToken(tok)
		if err != nil {
			return nil, err
		}
		segs = append(segs, seg)
		lastEnd = end
	}
	if lastEnd < len(src) {
		segs = append(segs, segment{kind: segLiteral, literal: src[lastEnd:]})
	}
	return &Template{segments: segs}, nil
}

func parseToken(tok string) (segment, error) {
	switch {
	case strings.HasPrefix(tok, "{#") && strings.HasSuffix(tok, "#}"):
		return segment{kind: segComment}, nil
	case strings.HasPrefix(tok, "{%") && strings.HasSuffix(tok, "%}"):
		ref, err := parseParamRef(tok[2 : len(tok)-2])
		if err != nil {
			return segment{}, err
		}
		return segment{kind: segIndependent, param: ref}, nil
	case strings.HasPrefix(tok, "{{") && strings.HasSuffix(tok, "}}"):
		ref, err := parseParamRef(tok[2 : len(tok)-2])
		if err != nil {
			return segment{}, err
		}
		return segment{kind: segDependent, param: ref}, nil
	default:
		return segment{}, qgerr.Newf(qgerr.KindQglSyntax, "unrecognized template token %q", tok)
	}
}

func parseParamRef(inner string) (ParamRef, error) {
	inner = strings.TrimSpace(inner)
	parts := strings.SplitN(inner, "|", 2)
	ref := ParamRef{Name: strings.TrimSpace(parts[0]), Modifier: ModValue}
	if ref.Name == "" {
		return ParamRef{}, qgerr.Newf(qgerr.KindQglSyntax, "empty parameter name in template token")
	}
	if len(parts) == 1 {
		return ref, nil
	}
	rest := strings.TrimSpace(parts[1])
	modType := strings.SplitN(rest, ":", 2)
	mod := Modifier(strings.TrimSpace(modType[0]))
	if mod != ModValue && mod != ModValueList {
		return ParamRef{}, qgerr.Newf(qgerr.KindQglSyntax, "unknown template modifier %q", mod)
	}
	ref.Modifier = mod
	if len(modType) == 2 {
		hint, err := format.ParseHint(strings.TrimSpace(modType[1]))
		if err != nil {
			return ParamRef{}, qgerr.Wrap(qgerr.KindQglSyntax, err)
		}
		ref.Type = hint
		ref.HasType = true
	}
	return ref, nil
}

// HasDependentParameters reports whether t contains any `{{…}}` token. A
// node whose template returns false here is independent (spec §4.E).
func (t *Template) HasDependentParameters() bool {
	for _, s := range t.segments {
		if s.kind == segDependent {
			return true
		}
	}
	return false
}

// IndependentParamNames returns the distinct `{%…%}` parameter names t
// references, in first-occurrence order. Used by the scheduler's structural
// pre-validation pass (spec §4.G step 1) to catch a missing caller-supplied
// parameter before any connector is invoked.
func (t *Template) IndependentParamNames() []string {
	var names []string
	seen := map[string]bool{}
	for _, s := range t.segments {
		if s.kind != segIndependent {
			continue
		}
		if !seen[s.param.Name] {
			seen[s.param.Name] = true
			names = append(names, s.param.Name)
		}
	}
	return names
}

// Render produces the final query string for kind, resolving independent
// parameters from params and dependent parameters from parentFrame's
// columns. parentFrame may be nil iff the template has no dependent
// parameters.
func Render(t *Template, kind format.SourceKind, params map[string]value.Value, parentFrame *frame.Frame) (string, error) {
	var sb strings.Builder
	for _, s := range t.segments {
		switch s.kind {
		case segLiteral:
			sb.WriteString(s.literal)
		case segComment:
			// emits nothing
		case segIndependent:
			lit, err := renderIndependent(s.param, kind, params)
			if err != nil {
				return "", err
			}
			sb.WriteString(lit)
		case segDependent:
			lit, err := renderDependent(s.param, kind, parentFrame)
			if err != nil {
				return "", err
			}
			sb.WriteString(lit)
		}
	}
	return sb.String(), nil
}

func renderIndependent(ref ParamRef, kind format.SourceKind, params map[string]value.Value) (string, error) {
	v, ok := params[ref.Name]
	if !ok {
		return "", qgerr.Newf(qgerr.KindIndependentParam, "missing independent parameter %q", ref.Name)
	}
	hint := hintFor(ref, v)
	container := format.ContainerScalar
	if ref.Modifier == ModValueList {
		container = format.ContainerValueList
	}
	lit, err := format.Format(kind, v, hint, container)
	if err != nil {
		return "", qgerr.Wrap(qgerr.KindIndependentParam, err)
	}
	return lit, nil
}

func renderDependent(ref ParamRef, kind format.SourceKind, parentFrame *frame.Frame) (string, error) {
	if parentFrame == nil {
		return "", qgerr.Newf(qgerr.KindDependentParam, "dependent parameter %q requires a parent frame", ref.Name)
	}
	col, err := parentFrame.Column(ref.Name)
	if err != nil {
		return "", qgerr.Wrap(qgerr.KindDependentParam, err)
	}
	hint := hintFor(ref, firstNonNull(col))
	switch ref.Modifier {
	case ModValueList:
		v := value.List(col)
		lit, err := format.Format(kind, v, hint, format.ContainerValueList)
		if err != nil {
			return "", qgerr.Wrap(qgerr.KindDependentParam, err)
		}
		return lit, nil
	default: // ModValue: the column must resolve to exactly one row
		if len(col) != 1 {
			return "", qgerr.Newf(qgerr.KindDependentParam, "dependent parameter %q with 'value' modifier requires a single-row parent frame, got %d rows", ref.Name, len(col))
		}
		lit, err := format.Format(kind, col[0], hint, format.ContainerScalar)
		if err != nil {
			return "", qgerr.Wrap(qgerr.KindDependentParam, err)
		}
		return lit, nil
	}
}

func firstNonNull(col []value.Value) value.Value {
	for _, v := range col {
		if !v.IsNull() {
			return v
		}
	}
	if len(col) > 0 {
		return col[0]
	}
	return value.Null()
}

func hintFor(ref ParamRef, sample value.Value) format.TypeHint {
	if ref.HasType {
		return ref.Type
	}
	switch sample.Kind() {
	case value.KindInt:
		return format.HintInt
	case value.KindFloat:
		return format.HintFloat
	case value.KindBool:
		return format.HintBool
	case value.KindDate:
		return format.HintDate
	case value.KindDateTime:
		return format.HintDateTime
	default:
		return format.HintString
	}
}
