// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package util

import (
	"context"
	"encoding/json"
	"testing"
)

type driverConfig struct {
	Host string `yaml:"host" validate:"required"`
	Port string `yaml:"port"`
}

func TestDecodeDriverParams(t *testing.T) {
	var cfg driverConfig
	params := map[string]string{"host": "localhost", "port": "5432"}
	if err := DecodeDriverParams(context.Background(), params, &cfg); err != nil {
		t.Fatalf("DecodeDriverParams: %v", err)
	}
	if cfg.Host != "localhost" || cfg.Port != "5432" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestDecodeDriverParams_MissingRequired(t *testing.T) {
	var cfg driverConfig
	params := map[string]string{"port": "5432"}
	if err := DecodeDriverParams(context.Background(), params, &cfg); err == nil {
		t.Fatalf("expected an error for missing required field 'host'")
	}
}

func TestConvertNumbers(t *testing.T) {
	in := map[string]any{"count": json.Number("3"), "avg": json.Number("2.5")}
	out, err := ConvertNumbers(in)
	if err != nil {
		t.Fatalf("ConvertNumbers: %v", err)
	}
	m := out.(map[string]any)
	if v, ok := m["count"].(int64); !ok || v != 3 {
		t.Fatalf("expected count=int64(3), got %#v", m["count"])
	}
	if v, ok := m["avg"].(float64); !ok || v != 2.5 {
		t.Fatalf("expected avg=float64(2.5), got %#v", m["avg"])
	}
}

// Rendered query text passed to ValidateSQLQuery/SanitizeSQLQuery below is
// shaped like template.Render's own output for a RETRIEVE block's QUERY
// clause, not an arbitrary hand-written statement.

func TestValidateSQLQuery_RenderedRetrieveQuery(t *testing.T) {
	rendered := "SELECT * FROM orders WHERE id IN (1,2,3)"
	result := ValidateSQLQuery(rendered)
	if !result.IsValid {
		t.Fatalf("expected a plain rendered IN-list query to validate, got warnings %v", result.Warnings)
	}
}

func TestValidateSQLQuery_RejectsDropInRenderedQuery(t *testing.T) {
	rendered := "DROP TABLE orders"
	result := ValidateSQLQuery(rendered)
	if result.IsValid {
		t.Fatal("expected a DROP statement to fail validation")
	}
}

func TestSanitizeSQLQuery_StripsCommentFromRenderedQuery(t *testing.T) {
	rendered := "SELECT * FROM orders WHERE id IN (1,2,3) -- debug\n"
	got := SanitizeSQLQuery(rendered)
	want := "SELECT * FROM orders WHERE id IN (1,2,3)"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
