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

package qgl

import (
	"regexp"
	"strings"

	"github.com/qgl-project/querygraph/internal/qgerr"
)

var identPattern = `[A-Za-z][A-Za-z0-9_$]*`

var sectionHeader = regexp.MustCompile(`(?m)^[ \t]*(CONNECT|RETRIEVE|JOIN)[ \t]*$`)

// sections splits a QGL document into its CONNECT/RETRIEVE/JOIN bodies. Any
// of the three may be absent; the JOIN section is optional for a
// single-node graph.
func sections(src string) (connect, retrieve, join string, err error) {
	locs := sectionHeader.FindAllStringSubmatchIndex(src, -1)
	if len(locs) == 0 {
		return "", "", "", qgerr.New(qgerr.KindQglSyntax, "no CONNECT, RETRIEVE or JOIN section found")
	}
	bodies := map[string]string{}
	for i, loc := range locs {
		name := src[loc[2]:loc[3]]
		bodyStart := loc[1]
		bodyEnd := len(src)
		if i+1 < len(locs) {
			bodyEnd = locs[i+1][0]
		}
		if _, dup := bodies[name]; dup {
			return "", "", "", qgerr.Newf(qgerr.KindQglSyntax, "duplicate %s section", name)
		}
		bodies[name] = src[bodyStart:bodyEnd]
	}
	return bodies["CONNECT"], bodies["RETRIEVE"], bodies["JOIN"], nil
}

// splitArgs splits a CONNECT driver's argument list on top-level commas,
// respecting single- and double-quoted strings.
func splitArgs(s string) []string {
	var out []string
	start := 0
	inStr := byte(0)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inStr != 0:
			if c == inStr {
				inStr = 0
			}
		case c == '\'' || c == '"':
			inStr = c
		case c == ',':
			out = append(out, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	last := strings.TrimSpace(s[start:])
	if last != "" {
		out = append(out, last)
	}
	return out
}

// unquote strips a single layer of matching quotes, if present.
func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

func nonEmptyLines(body string) []string {
	var out []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
