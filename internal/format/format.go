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

// Package format implements the per-source-kind literal renderer (spec
// §4.A): mapping a semantic Value to the in-query literal text a
// relational-SQL, document, or key-value connector expects.
package format

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/qgl-project/querygraph/internal/qgerr"
	"github.com/qgl-project/querygraph/internal/value"
)

// SourceKind selects the formatting dialect, matching a Connector's Kind.
type SourceKind string

const (
	SQL SourceKind = "sql"
	Doc SourceKind = "doc"
	KV  SourceKind = "kv"
)

// TypeHint is the declared semantic type of a template parameter.
type TypeHint string

const (
	HintString   TypeHint = "str"
	HintInt      TypeHint = "int"
	HintFloat    TypeHint = "float"
	HintDate     TypeHint = "date"
	HintDateTime TypeHint = "datetime"
	HintBool     TypeHint = "bool"
)

// ContainerKind selects scalar vs. list rendering.
type ContainerKind string

const (
	ContainerScalar    ContainerKind = "scalar"
	ContainerValueList ContainerKind = "value_list"
)

// Format renders v as a literal for kind, honoring hint's declared type and
// container's scalar/value_list shape. It fails with a *qgerr.Error of kind
// FormatError when v's runtime kind does not match hint.
func Format(kind SourceKind, v value.Value, hint TypeHint, container ContainerKind) (string, error) {
	if container == ContainerValueList {
		if v.Kind() != value.KindList {
			return "", qgerr.Newf(qgerr.KindFormat, "value_list modifier requires a list value, got %s", v.Kind())
		}
		elems := v.List()
		lits := make([]string, len(elems))
		for i, e := range elems {
			lit, err := formatScalar(kind, e, hint)
			if err != nil {
				return "", err
			}
			lits[i] = lit
		}
		return wrapList(kind, lits), nil
	}
	return formatScalar(kind, v, hint)
}

func wrapList(kind SourceKind, lits []string) string {
	joined := strings.Join(lits, ",")
	switch kind {
	case Doc:
		return "[" + joined + "]"
	case KV:
		return joined
	default: // SQL and anything else defaults to a parenthesized SQL list
		return "(" + joined + ")"
	}
}

func formatScalar(kind SourceKind, v value.Value, hint TypeHint) (string, error) {
	if err := checkKind(v, hint); err != nil {
		return "", err
	}
	switch hint {
	case HintString:
		return formatString(kind, v.String()), nil
	case HintInt:
		return strconv.FormatInt(v.Int(), 10), nil
	case HintFloat:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64), nil
	case HintBool:
		return formatBool(kind, v.Bool()), nil
	case HintDate:
		return formatTemporal(kind, v, "2006-01-02"), nil
	case HintDateTime:
		return formatTemporal(kind, v, "2006-01-02 15:04:05"), nil
	default:
		return "", qgerr.Newf(qgerr.KindFormat, "unknown type hint %q", hint)
	}
}

func checkKind(v value.Value, hint TypeHint) error {
	ok := false
	switch hint {
	case HintString:
		ok = v.Kind() == value.KindString
	case HintInt:
		ok = v.Kind() == value.KindInt
	case HintFloat:
		ok = v.Kind() == value.KindFloat || v.Kind() == value.KindInt
	case HintBool:
		ok = v.Kind() == value.KindBool
	case HintDate:
		ok = v.Kind() == value.KindDate || v.Kind() == value.KindDateTime
	case HintDateTime:
		ok = v.Kind() == value.KindDateTime || v.Kind() == value.KindDate
	}
	if !ok {
		return qgerr.Newf(qgerr.KindFormat, "value of kind %s does not match declared type %q", v.Kind(), hint)
	}
	return nil
}

func formatString(kind SourceKind, s string) string {
	switch kind {
	case SQL:
		return "'" + strings.ReplaceAll(s, "'", "''") + "'"
	case Doc:
		return strconv.Quote(s)
	case KV:
		return s
	default:
		return "'" + s + "'"
	}
}

func formatBool(kind SourceKind, b bool) string {
	switch kind {
	case SQL:
		if b {
			return "TRUE"
		}
		return "FALSE"
	default:
		if b {
			return "true"
		}
		return "false"
	}
}

func formatTemporal(kind SourceKind, v value.Value, layout string) string {
	s := v.Time().Format(layout)
	switch kind {
	case KV:
		return s
	default:
		return formatString(kind, s)
	}
}

// ParseHint validates a raw ":type" suffix from template/DSL syntax.
func ParseHint(s string) (TypeHint, error) {
	switch TypeHint(s) {
	case HintString, HintInt, HintFloat, HintDate, HintDateTime, HintBool:
		return TypeHint(s), nil
	default:
		return "", fmt.Errorf("format: unknown type hint %q", s)
	}
}
