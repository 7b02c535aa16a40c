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
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/qgl-project/querygraph/internal/frame"
	"github.com/qgl-project/querygraph/internal/value"
)

func writeFrame(w io.Writer, f *frame.Frame, format string) error {
	switch format {
	case "json":
		return writeFrameJSON(w, f)
	case "table", "":
		return writeFrameTable(w, f)
	default:
		return fmt.Errorf("unknown output format %q, expected 'table' or 'json'", format)
	}
}

func writeFrameJSON(w io.Writer, f *frame.Frame) error {
	names := f.Names()
	cols := make([][]value.Value, len(names))
	for i, name := range names {
		col, err := f.Column(name)
		if err != nil {
			return err
		}
		cols[i] = col
	}

	rows := make([]map[string]any, f.NumRows())
	for r := 0; r < f.NumRows(); r++ {
		row := make(map[string]any, len(names))
		for i, name := range names {
			row[name] = value.ToAny(cols[i][r])
		}
		rows[r] = row
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func writeFrameTable(w io.Writer, f *frame.Frame) error {
	names := f.Names()
	if _, err := fmt.Fprintln(w, strings.Join(names, "\t")); err != nil {
		return err
	}
	cols := make([][]value.Value, len(names))
	for i, name := range names {
		col, err := f.Column(name)
		if err != nil {
			return err
		}
		cols[i] = col
	}
	for r := 0; r < f.NumRows(); r++ {
		cells := make([]string, len(names))
		for i := range names {
			cells[i] = cellString(cols[i][r])
		}
		if _, err := fmt.Fprintln(w, strings.Join(cells, "\t")); err != nil {
			return err
		}
	}
	return nil
}

func cellString(v value.Value) string {
	if v.IsNull() {
		return ""
	}
	return fmt.Sprint(value.ToAny(v))
}
