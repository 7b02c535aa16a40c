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

// Package util holds small decoding and validation helpers shared by the
// CONNECT-driver packages and the CLI.
package util

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	yaml "github.com/goccy/go-yaml"
)

// DecodeJSON decodes a given reader into an interface using the json
// decoder, preserving int/float distinction via json.Number.
func DecodeJSON(r io.Reader, v interface{}) error {
	defer io.Copy(io.Discard, r) //nolint:errcheck
	d := json.NewDecoder(r)
	d.UseNumber()
	return d.Decode(v)
}

// ConvertNumbers traverses a decoded JSON value and converts json.Number
// leaves to int64 or float64, so downstream code never has to special-case
// json.Number.
func ConvertNumbers(data any) (any, error) {
	switch v := data.(type) {
	case map[string]any:
		for key, val := range v {
			convertedVal, err := ConvertNumbers(val)
			if err != nil {
				return nil, err
			}
			v[key] = convertedVal
		}
		return v, nil

	case []any:
		for i, val := range v {
			convertedVal, err := ConvertNumbers(val)
			if err != nil {
				return nil, err
			}
			v[i] = convertedVal
		}
		return v, nil

	case json.Number:
		if strings.Contains(v.String(), ".") {
			return v.Float64()
		}
		return v.Int64()

	default:
		return data, nil
	}
}

// NewStrictDecoder marshals v back to YAML bytes and wraps them in a
// decoder that rejects unknown fields and runs struct-tag validation on
// decode. Used to turn a raw CONNECT `key=val` parameter map into a
// strictly-validated, driver-specific Config struct.
func NewStrictDecoder(v interface{}) (*yaml.Decoder, error) {
	b, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("fail to marshal %q: %w", v, err)
	}

	dec := yaml.NewDecoder(
		bytes.NewReader(b),
		yaml.Strict(),
		yaml.Validator(validator.New()),
	)
	return dec, nil
}

// SQLValidationResult is the result of ValidateSQLQuery.
type SQLValidationResult struct {
	IsValid     bool     `json:"isValid"`
	Warnings    []string `json:"warnings,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// ValidateSQLQuery performs basic validation on a rendered SQL query,
// flagging destructive statements and common injection patterns. Used by
// the postgres connector ahead of ExecuteQuery.
func ValidateSQLQuery(query string) SQLValidationResult {
	result := SQLValidationResult{
		IsValid:     true,
		Warnings:    []string{},
		Suggestions: []string{},
	}

	normalizedQuery := strings.TrimSpace(strings.ToUpper(query))

	if normalizedQuery == "" {
		result.IsValid = false
		result.Warnings = append(result.Warnings, "Query is empty")
		return result
	}

	dangerousPatterns := []struct {
		pattern string
		message string
	}{
		{`--.*`, "Query contains SQL comments"},
		{`/\*.*\*/`, "Query contains block comments"},
		{`DROP\s+`, "Query contains DROP statement"},
		{`DELETE\s+FROM\s+`, "Query contains DELETE statement"},
		{`UPDATE\s+.*SET\s+`, "Query contains UPDATE statement"},
		{`INSERT\s+INTO\s+`, "Query contains INSERT statement"},
		{`CREATE\s+`, "Query contains CREATE statement"},
		{`ALTER\s+`, "Query contains ALTER statement"},
		{`TRUNCATE\s+`, "Query contains TRUNCATE statement"},
		{`EXEC\s+`, "Query contains EXEC statement"},
		{`EXECUTE\s+`, "Query contains EXECUTE statement"},
		{`CALL\s+`, "Query contains CALL statement"},
	}

	for _, dp := range dangerousPatterns {
		if matched, _ := regexp.MatchString(dp.pattern, normalizedQuery); matched {
			result.Warnings = append(result.Warnings, dp.message)
		}
	}

	suspiciousPatterns := []struct {
		pattern string
		message string
	}{
		{`UNION\s+`, "Query contains UNION statement"},
		{`OR\s+1\s*=\s*1`, "Query contains suspicious OR condition"},
		{`AND\s+1\s*=\s*1`, "Query contains suspicious AND condition"},
		{`'\s*OR\s*'`, "Query contains suspicious OR with quotes"},
		{`'\s*AND\s*'`, "Query contains suspicious AND with quotes"},
		{`;\s*DROP`, "Query contains semicolon followed by DROP"},
		{`;\s*DELETE`, "Query contains semicolon followed by DELETE"},
		{`;\s*UPDATE`, "Query contains semicolon followed by UPDATE"},
		{`;\s*INSERT`, "Query contains semicolon followed by INSERT"},
	}

	for _, sp := range suspiciousPatterns {
		if matched, _ := regexp.MatchString(sp.pattern, normalizedQuery); matched {
			result.Warnings = append(result.Warnings, sp.message)
		}
	}

	if strings.HasPrefix(normalizedQuery, "SELECT") && !strings.Contains(normalizedQuery, "WHERE") {
		result.Suggestions = append(result.Suggestions, "Consider adding a WHERE clause to limit the result set")
	}
	if strings.Contains(normalizedQuery, "SELECT *") {
		result.Suggestions = append(result.Suggestions, "Consider specifying column names instead of using SELECT *")
	}
	if strings.HasPrefix(normalizedQuery, "SELECT") && !strings.Contains(normalizedQuery, "LIMIT") {
		result.Suggestions = append(result.Suggestions, "Consider adding a LIMIT clause to prevent large result sets")
	}

	if len(result.Warnings) > 0 {
		result.IsValid = false
	}

	return result
}

// SanitizeSQLQuery strips comments and collapses whitespace in a rendered
// SQL query before it's logged or displayed.
func SanitizeSQLQuery(query string) string {
	query = strings.TrimSpace(query)

	spaceRegex := regexp.MustCompile(`\s+`)
	query = spaceRegex.ReplaceAllString(query, " ")

	commentRegex := regexp.MustCompile(`--.*$`)
	query = commentRegex.ReplaceAllString(query, "")

	blockCommentRegex := regexp.MustCompile(`/\*.*?\*/`)
	query = blockCommentRegex.ReplaceAllString(query, "")

	return strings.TrimSpace(query)
}

// DecodeDriverParams decodes a CONNECT clause's `key=val` parameter map into
// dst, a driver-specific Config struct tagged with `yaml`/`validate`. It
// rejects unknown parameter names and enforces `validate:"required"` tags,
// the same strict-decode contract NewStrictDecoder gives YAML tool/source
// configs.
func DecodeDriverParams(ctx context.Context, params map[string]string, dst interface{}) error {
	raw := make(map[string]any, len(params))
	for k, v := range params {
		raw[k] = v
	}
	decoder, err := NewStrictDecoder(raw)
	if err != nil {
		return err
	}
	return decoder.DecodeContext(ctx, dst)
}
