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

	"github.com/qgl-project/querygraph/internal/manipulate"
	"github.com/qgl-project/querygraph/internal/qgerr"
	"github.com/qgl-project/querygraph/internal/template"
)

// retrieveBlock matches one RETRIEVE node body:
//
//	QUERY | <template>;
//	[FIELDS <cols>]
//	USING <conn_name>
//	[THEN | <pipeline>;]
//	AS <node_name>
//
// FIELDS and THEN are optional supplements (spec §4.F, §6); `(?s)` lets the
// QUERY/THEN bodies span multiple lines up to their terminating `;`.
var retrieveBlock = regexp.MustCompile(`(?s)QUERY\s*\|\s*(.*?);\s*` +
	`(?:FIELDS\s+([^\n]+?)\s*)?` +
	`USING\s+(` + identPattern + `)\s*` +
	`(?:THEN\s*\|\s*(.*?);\s*)?` +
	`AS\s+(` + identPattern + `)\s*`)

// parseRetrieve parses every `---`-separated node block in body into a
// QueryNode, validating USING references against the declared connector
// names and parsing each block's THEN pipeline. Join contexts are filled in
// by the caller once the JOIN section has been parsed.
func parseRetrieve(body string, connNames map[string]bool) ([]*QueryNode, error) {
	var nodes []*QueryNode
	seen := map[string]bool{}
	for _, blockText := range splitBlocks(body) {
		m := retrieveBlock.FindStringSubmatch(blockText)
		if m == nil {
			return nil, qgerr.Newf(qgerr.KindQglSyntax, "malformed RETRIEVE node %q", strings.TrimSpace(blockText))
		}
		queryText, fieldsText, connName, pipelineText, name := m[1], m[2], m[3], m[4], m[5]

		if seen[name] {
			return nil, qgerr.Newf(qgerr.KindGraphConfig, "duplicate node name %q", name)
		}
		seen[name] = true

		if !connNames[connName] {
			return nil, qgerr.Newf(qgerr.KindGraphConfig, "node %q references undeclared connector %q", name, connName).WithNode(name)
		}

		tmpl, err := template.Parse(queryText)
		if err != nil {
			return nil, qgerr.Wrap(qgerr.KindQglSyntax, err).WithNode(name)
		}

		var fields []string
		if strings.TrimSpace(fieldsText) != "" {
			for _, f := range strings.Split(fieldsText, ",") {
				if f = strings.TrimSpace(f); f != "" {
					fields = append(fields, f)
				}
			}
		}

		pipeline, err := manipulate.Parse(strings.TrimSpace(pipelineText))
		if err != nil {
			return nil, qgerr.Wrap(qgerr.KindQglSyntax, err).WithNode(name)
		}

		nodes = append(nodes, &QueryNode{
			Name:     name,
			Template: tmpl,
			Fields:   fields,
			ConnName: connName,
			Pipeline: pipeline,
		})
	}
	return nodes, nil
}

// splitBlocks splits a RETRIEVE section body on `---` separator lines.
func splitBlocks(body string) []string {
	raw := regexp.MustCompile(`(?m)^[ \t]*---[ \t]*$`).Split(body, -1)
	var out []string
	for _, b := range raw {
		if strings.TrimSpace(b) != "" {
			out = append(out, b)
		}
	}
	return out
}
