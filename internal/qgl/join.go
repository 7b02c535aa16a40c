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

	"github.com/qgl-project/querygraph/internal/join"
	"github.com/qgl-project/querygraph/internal/qgerr"
)

// joinLine matches `<KIND> (<pairs>)`.
var joinLine = regexp.MustCompile(`^(LEFT|RIGHT|INNER|OUTER)\s*\((.*)\)$`)

// joinPair matches one `parent[col] ==> child[col]` equivalence.
var joinPair = regexp.MustCompile(`^(` + identPattern + `)\[(` + identPattern + `)\]\s*==>\s*(` + identPattern + `)\[(` + identPattern + `)\]$`)

// joinDecl is one parsed JOIN line before it is resolved against the node
// table: a parent/child name pair, a kind, and the declared column pairs.
type joinDecl struct {
	parent, child string
	ctx           join.Context
}

// parseJoin parses the JOIN section (absent for a single, parentless node)
// into declaration order, preserving the section's order for the scheduler's
// sibling fold tie-break (spec §4.G's ordering guarantee).
func parseJoin(body string) ([]joinDecl, error) {
	var decls []joinDecl
	for _, line := range nonEmptyLines(body) {
		m := joinLine.FindStringSubmatch(line)
		if m == nil {
			return nil, qgerr.Newf(qgerr.KindQglSyntax, "malformed JOIN entry %q", line)
		}
		kind := join.Kind(m[1])

		var parent, child string
		var pairs []join.ColPair
		for _, seg := range strings.Split(m[2], ",") {
			pm := joinPair.FindStringSubmatch(strings.TrimSpace(seg))
			if pm == nil {
				return nil, qgerr.Newf(qgerr.KindQglSyntax, "malformed JOIN column pair %q", seg)
			}
			p, pc, c, cc := pm[1], pm[2], pm[3], pm[4]
			if parent == "" {
				parent, child = p, c
			} else if p != parent || c != child {
				return nil, qgerr.Newf(qgerr.KindQglSyntax, "JOIN entry %q mixes more than one parent/child pair", line)
			}
			pairs = append(pairs, join.ColPair{ParentCol: pc, ChildCol: cc})
		}
		decls = append(decls, joinDecl{parent: parent, child: child, ctx: join.Context{Kind: kind, Pairs: pairs}})
	}
	return decls, nil
}
