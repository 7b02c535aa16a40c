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
	"context"
	"regexp"
	"strings"

	"github.com/qgl-project/querygraph/internal/qgerr"
	"github.com/qgl-project/querygraph/internal/sources"
)

// connectLine matches `<name> <- <Driver>(key=val, …)`.
var connectLine = regexp.MustCompile(`^(` + identPattern + `)\s*<-\s*(` + identPattern + `)\((.*)\)$`)

// parseConnect decodes every CONNECT declaration into a connectEntry,
// deferring the actual dial/connect step to InitializeConnectors. Duplicate
// names fail with GraphConfigError, matching the Connector Registry's
// build-time duplicate check (spec §4.B).
func parseConnect(ctx context.Context, body string) ([]connectEntry, error) {
	var entries []connectEntry
	seen := map[string]bool{}
	for _, line := range nonEmptyLines(body) {
		m := connectLine.FindStringSubmatch(line)
		if m == nil {
			return nil, qgerr.Newf(qgerr.KindQglSyntax, "malformed CONNECT entry %q", line)
		}
		name, driver, args := m[1], m[2], m[3]
		if seen[name] {
			return nil, qgerr.Newf(qgerr.KindGraphConfig, "duplicate connector name %q", name)
		}
		seen[name] = true

		params := map[string]string{}
		for _, arg := range splitArgs(args) {
			lhs, rhs, err := splitKV(arg)
			if err != nil {
				return nil, qgerr.Wrap(qgerr.KindQglSyntax, err).WithNode(name)
			}
			params[lhs] = unquote(rhs)
		}

		cfg, err := sources.DecodeConfig(ctx, driver, name, params)
		if err != nil {
			return nil, qgerr.Wrap(qgerr.KindGraphConfig, err).WithNode(name)
		}
		entries = append(entries, connectEntry{name: name, driver: driver, config: cfg})
	}
	return entries, nil
}

func splitKV(arg string) (key, val string, err error) {
	i := strings.IndexByte(arg, '=')
	if i < 0 {
		return "", "", qgerr.Newf(qgerr.KindQglSyntax, "malformed CONNECT parameter %q, expected key=val", arg)
	}
	return strings.TrimSpace(arg[:i]), strings.TrimSpace(arg[i+1:]), nil
}
