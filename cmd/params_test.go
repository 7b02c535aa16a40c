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
	"testing"

	"github.com/qgl-project/querygraph/internal/value"
)

func TestParseParams_Inferred(t *testing.T) {
	got, err := parseParams([]string{"id=42", "name=alice", "active=true"})
	if err != nil {
		t.Fatalf("parseParams: %v", err)
	}
	if got["id"].Kind() != value.KindInt || got["id"].Int() != 42 {
		t.Fatalf("unexpected id: %+v", got["id"])
	}
	if got["name"].Kind() != value.KindString || got["name"].String() != "alice" {
		t.Fatalf("unexpected name: %+v", got["name"])
	}
	if got["active"].Kind() != value.KindBool || !got["active"].Bool() {
		t.Fatalf("unexpected active: %+v", got["active"])
	}
}

func TestParseParams_ExplicitType(t *testing.T) {
	got, err := parseParams([]string{"code:str=007"})
	if err != nil {
		t.Fatalf("parseParams: %v", err)
	}
	if got["code"].Kind() != value.KindString || got["code"].String() != "007" {
		t.Fatalf("expected explicit str type to prevent numeric inference, got %+v", got["code"])
	}
}

func TestParseParams_Malformed(t *testing.T) {
	if _, err := parseParams([]string{"noequalssign"}); err == nil {
		t.Fatalf("expected an error for a param with no '='")
	}
}
