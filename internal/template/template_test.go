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

package template_test

import (
	"testing"

	"github.com/qgl-project/querygraph/internal/format"
	"github.com/qgl-project/querygraph/internal/frame"
	"github.com/qgl-project/querygraph/internal/template"
	"github.com/qgl-project/querygraph/internal/value"
)

func TestRenderIndependentValueList(t *testing.T) {
	// scenario S1
	tmpl, err := template.Parse("SELECT * FROM T WHERE id IN {% ids|value_list:int %}")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if tmpl.HasDependentParameters() {
		t.Fatal("expected no dependent parameters")
	}
	params := map[string]value.Value{
		"ids": value.List([]value.Value{value.Int(1), value.Int(2), value.Int(3)}),
	}
	got, err := template.Render(tmpl, format.SQL, params, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := "SELECT * FROM T WHERE id IN (1,2,3)"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRenderDependentValueList(t *testing.T) {
	// scenario S2
	tmpl, err := template.Parse("SELECT * FROM T WHERE name IN {{ Title|value_list:str }}")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !tmpl.HasDependentParameters() {
		t.Fatal("expected dependent parameters")
	}
	parent, err := frame.New([]string{"Title"}, map[string][]value.Value{
		"Title": {value.String("a"), value.String("b")},
	})
	if err != nil {
		t.Fatalf("frame.New: %v", err)
	}
	got, err := template.Render(tmpl, format.SQL, nil, parent)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := "SELECT * FROM T WHERE name IN ('a','b')"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRenderMissingIndependentParameterFails(t *testing.T) {
	tmpl, err := template.Parse("{% missing|value:str %}")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := template.Render(tmpl, format.SQL, nil, nil); err == nil {
		t.Fatal("expected IndependentParameterError")
	}
}

func TestRenderDependentWithoutParentFrameFails(t *testing.T) {
	tmpl, err := template.Parse("{{ col|value_list:str }}")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := template.Render(tmpl, format.SQL, nil, nil); err == nil {
		t.Fatal("expected DependentParameterError")
	}
}

func TestCommentEmitsNothing(t *testing.T) {
	tmpl, err := template.Parse("a{# this is dropped #}b")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got, err := template.Render(tmpl, format.SQL, nil, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "ab" {
		t.Errorf("got %q, want %q", got, "ab")
	}
}

func TestCommentingOutParameterEqualsRemovingIt(t *testing.T) {
	// testable property 4: render(T, params) with all-literal parameters is
	// pure string substitution; commenting out {% %} with {# #} equals the
	// same render with that parameter removed.
	withParam, err := template.Parse("WHERE x = {% v|value:int %} AND y = 1")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	commentedOut, err := template.Parse("WHERE x = {# v|value:int #} AND y = 1")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	withoutParam, err := template.Parse("WHERE x =  AND y = 1")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	params := map[string]value.Value{"v": value.Int(7)}
	gotCommented, err := template.Render(commentedOut, format.SQL, params, nil)
	if err != nil {
		t.Fatalf("Render commentedOut: %v", err)
	}
	gotRemoved, err := template.Render(withoutParam, format.SQL, params, nil)
	if err != nil {
		t.Fatalf("Render withoutParam: %v", err)
	}
	if gotCommented != gotRemoved {
		t.Errorf("commented-out render %q != param-removed render %q", gotCommented, gotRemoved)
	}
	if _, err := template.Render(withParam, format.SQL, params, nil); err != nil {
		t.Fatalf("Render withParam (sanity check): %v", err)
	}
}
