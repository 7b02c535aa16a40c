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

package format_test

import (
	"testing"

	"github.com/qgl-project/querygraph/internal/format"
	"github.com/qgl-project/querygraph/internal/value"
)

func TestFormatValueListSQL(t *testing.T) {
	// scenario S1: ids|value_list:int over a SQL source renders (1,2,3)
	v := value.List([]value.Value{value.Int(1), value.Int(2), value.Int(3)})
	got, err := format.Format(format.SQL, v, format.HintInt, format.ContainerValueList)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if got != "(1,2,3)" {
		t.Errorf("got %q, want %q", got, "(1,2,3)")
	}
}

func TestFormatValueListDoc(t *testing.T) {
	v := value.List([]value.Value{value.String("a"), value.String("b")})
	got, err := format.Format(format.Doc, v, format.HintString, format.ContainerValueList)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if got != `["a","b"]` {
		t.Errorf("got %q, want %q", got, `["a","b"]`)
	}
}

func TestFormatScalarStringSQLEscapesQuotes(t *testing.T) {
	got, err := format.Format(format.SQL, value.String("o'brien"), format.HintString, format.ContainerScalar)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if got != "'o''brien'" {
		t.Errorf("got %q, want %q", got, "'o''brien'")
	}
}

func TestFormatTypeMismatchFails(t *testing.T) {
	_, err := format.Format(format.SQL, value.String("not an int"), format.HintInt, format.ContainerScalar)
	if err == nil {
		t.Fatal("expected FormatError, got nil")
	}
}

func TestFormatValueListRequiresListValue(t *testing.T) {
	_, err := format.Format(format.SQL, value.Int(1), format.HintInt, format.ContainerValueList)
	if err == nil {
		t.Fatal("expected error for scalar value with value_list modifier")
	}
}
