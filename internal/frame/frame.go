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

// Package frame implements the ordered, named-column tabular container the
// rest of the system operates on. No third-party columnar/dataframe library
// appears anywhere in the reference corpus (see DESIGN.md), and the spec
// declares the Frame's internal representation opaque and out of scope, so
// it is implemented directly over Go slices and maps.
//
// A Frame is treated as immutable: every transformation returns a new
// Frame, leaving the receiver untouched. This matches the scheduler's
// "written once, read once" discipline (spec §5) without requiring locks.
package frame

import (
	"fmt"

	"github.com/qgl-project/querygraph/internal/value"
)

// Frame is an ordered collection of named columns of equal length.
type Frame struct {
	names []string
	cols  map[string][]value.Value
	rows  int
}

// New builds a Frame from an explicit column order and data. All columns
// must have equal length.
func New(names []string, data map[string][]value.Value) (*Frame, error) {
	rows := -1
	for _, n := range names {
		col, ok := data[n]
		if !ok {
			return nil, fmt.Errorf("frame: column %q listed in names but missing from data", n)
		}
		if rows == -1 {
			rows = len(col)
		} else if len(col) != rows {
			return nil, fmt.Errorf("frame: column %q has length %d, want %d", n, len(col), rows)
		}
	}
	if rows == -1 {
		rows = 0
	}
	cols := make(map[string][]value.Value, len(names))
	namesCopy := make([]string, len(names))
	copy(namesCopy, names)
	for _, n := range names {
		c := make([]value.Value, len(data[n]))
		copy(c, data[n])
		cols[n] = c
	}
	return &Frame{names: namesCopy, cols: cols, rows: rows}, nil
}

// Empty returns a Frame with no columns and no rows.
func Empty() *Frame {
	return &Frame{names: nil, cols: map[string][]value.Value{}, rows: 0}
}

// NumRows returns the number of rows.
func (f *Frame) NumRows() int { return f.rows }

// Names returns the column names in declared order.
func (f *Frame) Names() []string {
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}

// HasColumn reports whether name is a column of f.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.cols[name]
	return ok
}

// Column returns a copy of the named column's values.
func (f *Frame) Column(name string) ([]value.Value, error) {
	c, ok := f.cols[name]
	if !ok {
		return nil, fmt.Errorf("frame: no such column %q", name)
	}
	out := make([]value.Value, len(c))
	copy(out, c)
	return out, nil
}

// MustColumn is Column without the error, for call sites that already know
// the column exists (e.g. after a structural validation pass).
func (f *Frame) MustColumn(name string) []value.Value {
	c, err := f.Column(name)
	if err != nil {
		panic(err)
	}
	return c
}

// WithColumn returns a new Frame with name set (or replaced) to vals. vals
// must have the same length as the frame's existing rows, unless the frame
// has no columns yet, in which case it defines the row count.
func (f *Frame) WithColumn(name string, vals []value.Value) (*Frame, error) {
	rows := f.rows
	if len(f.names) == 0 {
		rows = len(vals)
	} else if len(vals) != rows {
		return nil, fmt.Errorf("frame: column %q has length %d, want %d", name, len(vals), rows)
	}
	names := f.names
	if _, exists := f.cols[name]; !exists {
		names = append(append([]string{}, f.names...), name)
	}
	cols := f.cloneCols()
	cp := make([]value.Value, len(vals))
	copy(cp, vals)
	cols[name] = cp
	return &Frame{names: names, cols: cols, rows: rows}, nil
}

// AppendColumn adds a brand-new column from a list of values; it is an
// error for the column to already exist.
func (f *Frame) AppendColumn(name string, vals []value.Value) (*Frame, error) {
	if f.HasColumn(name) {
		return nil, fmt.Errorf("frame: column %q already exists", name)
	}
	return f.WithColumn(name, vals)
}

// Drop returns a new Frame with the named columns removed.
func (f *Frame) Drop(names ...string) (*Frame, error) {
	remove := make(map[string]bool, len(names))
	for _, n := range names {
		if !f.HasColumn(n) {
			return nil, fmt.Errorf("frame: cannot drop missing column %q", n)
		}
		remove[n] = true
	}
	newNames := make([]string, 0, len(f.names))
	for _, n := range f.names {
		if !remove[n] {
			newNames = append(newNames, n)
		}
	}
	cols := make(map[string][]value.Value, len(newNames))
	for _, n := range newNames {
		cols[n] = append([]value.Value{}, f.cols[n]...)
	}
	return &Frame{names: newNames, cols: cols, rows: f.rows}, nil
}

// Select returns a new Frame retaining exactly the listed columns, in the
// listed order.
func (f *Frame) Select(names []string) (*Frame, error) {
	cols := make(map[string][]value.Value, len(names))
	newNames := make([]string, 0, len(names))
	for _, n := range names {
		c, err := f.Column(n)
		if err != nil {
			return nil, err
		}
		cols[n] = c
		newNames = append(newNames, n)
	}
	return &Frame{names: newNames, cols: cols, rows: f.rows}, nil
}

// Rename applies mapping atomically; colliding targets are an error.
func (f *Frame) Rename(mapping map[string]string) (*Frame, error) {
	seen := make(map[string]string, len(f.names))
	newNames := make([]string, len(f.names))
	for i, n := range f.names {
		newName := n
		if renamed, ok := mapping[n]; ok {
			newName = renamed
		}
		if prior, ok := seen[newName]; ok && prior != n {
			return nil, fmt.Errorf("frame: rename collision, both %q and %q map to %q", prior, n, newName)
		}
		seen[newName] = n
		newNames[i] = newName
	}
	cols := make(map[string][]value.Value, len(f.names))
	for i, n := range f.names {
		cols[newNames[i]] = append([]value.Value{}, f.cols[n]...)
	}
	return &Frame{names: newNames, cols: cols, rows: f.rows}, nil
}

// Apply evaluates fn element-wise over col, returning a new column (the
// caller is responsible for attaching it via WithColumn).
func (f *Frame) Apply(col string, fn func(value.Value) (value.Value, error)) ([]value.Value, error) {
	c, err := f.Column(col)
	if err != nil {
		return nil, err
	}
	out := make([]value.Value, len(c))
	for i, v := range c {
		nv, err := fn(v)
		if err != nil {
			return nil, fmt.Errorf("frame: apply on column %q row %d: %w", col, i, err)
		}
		out[i] = nv
	}
	return out, nil
}

// DropNA returns a new Frame with any row containing a null in any column
// removed.
func (f *Frame) DropNA() (*Frame, error) {
	keep := make([]bool, f.rows)
	for i := range keep {
		keep[i] = true
		for _, n := range f.names {
			if f.cols[n][i].IsNull() {
				keep[i] = false
				break
			}
		}
	}
	cols := make(map[string][]value.Value, len(f.names))
	newRows := 0
	for _, n := range f.names {
		col := make([]value.Value, 0, f.rows)
		for i, v := range f.cols[n] {
			if keep[i] {
				col = append(col, v)
			}
		}
		cols[n] = col
		newRows = len(col)
	}
	return &Frame{names: append([]string{}, f.names...), cols: cols, rows: newRows}, nil
}

func (f *Frame) cloneCols() map[string][]value.Value {
	cols := make(map[string][]value.Value, len(f.cols)+1)
	for k, v := range f.cols {
		cp := make([]value.Value, len(v))
		copy(cp, v)
		cols[k] = cp
	}
	return cols
}

// Row returns the values of row i in the frame's declared column order.
func (f *Frame) Row(i int) []value.Value {
	out := make([]value.Value, len(f.names))
	for j, n := range f.names {
		out[j] = f.cols[n][i]
	}
	return out
}

// Concat stacks frames with identical column sets row-wise, in the order
// given.
func Concat(frames []*Frame) (*Frame, error) {
	if len(frames) == 0 {
		return Empty(), nil
	}
	names := frames[0].Names()
	cols := make(map[string][]value.Value, len(names))
	for _, n := range names {
		cols[n] = nil
	}
	for _, fr := range frames {
		if len(fr.Names()) != len(names) {
			return nil, fmt.Errorf("frame: concat column count mismatch")
		}
		for _, n := range names {
			c, err := fr.Column(n)
			if err != nil {
				return nil, fmt.Errorf("frame: concat missing column %q: %w", n, err)
			}
			cols[n] = append(cols[n], c...)
		}
	}
	return &Frame{names: names, cols: cols, rows: len(cols[names[0]])}, nil
}
