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

package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/qgl-project/querygraph/internal/value"
)

// parseParams turns repeated --param name[:type]=value flags into an
// independent-parameter map. type is one of int, float, bool, date,
// datetime, str; when omitted the value's type is inferred.
func parseParams(raw []string) (map[string]value.Value, error) {
	out := make(map[string]value.Value, len(raw))
	for _, p := range raw {
		eq := strings.IndexByte(p, '=')
		if eq < 0 {
			return nil, fmt.Errorf("malformed --param %q, expected name[:type]=value", p)
		}
		lhs, rhs := p[:eq], p[eq+1:]
		name, typ, hasType := strings.Cut(lhs, ":")
		if name == "" {
			return nil, fmt.Errorf("malformed --param %q, empty name", p)
		}
		v, err := parseParamValue(typ, hasType, rhs)
		if err != nil {
			return nil, fmt.Errorf("--param %q: %w", p, err)
		}
		out[name] = v
	}
	return out, nil
}

func parseParamValue(typ string, hasType bool, raw string) (value.Value, error) {
	if hasType {
		switch typ {
		case "int":
			i, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return value.Value{}, err
			}
			return value.Int(i), nil
		case "float":
			f, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return value.Value{}, err
			}
			return value.Float(f), nil
		case "bool":
			b, err := strconv.ParseBool(raw)
			if err != nil {
				return value.Value{}, err
			}
			return value.Bool(b), nil
		case "date":
			t, err := time.Parse("2006-01-02", raw)
			if err != nil {
				return value.Value{}, err
			}
			return value.Date(t), nil
		case "datetime":
			t, err := time.Parse("2006-01-02 15:04:05", raw)
			if err != nil {
				return value.Value{}, err
			}
			return value.DateTime(t), nil
		case "str":
			return value.String(raw), nil
		default:
			return value.Value{}, fmt.Errorf("unknown param type %q", typ)
		}
	}
	return inferParamValue(raw), nil
}

func inferParamValue(raw string) value.Value {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return value.Int(i)
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return value.Float(f)
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return value.Bool(b)
	}
	return value.String(raw)
}
