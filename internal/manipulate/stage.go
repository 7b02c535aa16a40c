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

// Package manipulate implements the `>>`-chained manipulation pipeline
// (spec §4.D): an ordered list of stages applied to a Frame in sequence.
package manipulate

import (
	"github.com/qgl-project/querygraph/internal/expr"
	"github.com/qgl-project/querygraph/internal/value"
)

// Stage is one step of a manipulation pipeline.
type Stage interface {
	stageNode()
}

// Assignment is one `col = expr` pair inside a Mutate stage.
type Assignment struct {
	Col  string
	Expr expr.Expr
}

// Mutate evaluates each assignment against the current frame, in order;
// later assignments may reference columns introduced by earlier ones.
type Mutate struct {
	Assignments []Assignment
}

// Rename applies old->new atomically; see Open Question (i): the DSL form
// (`rename(old=new, …)`) is parsed straight into this map form.
type Rename struct {
	Mapping map[string]string
}

// Select retains exactly the listed columns, in the listed order.
type Select struct {
	Cols []string
}

// Remove drops the listed columns.
type Remove struct {
	Cols []string
}

// Flatten expands a list-valued column into one row per element.
type Flatten struct {
	Col string
}

// UnpackDirective resolves a dotted key path through a nested cell into a
// new scalar column.
type UnpackDirective struct {
	NewCol     string
	SourceCol  string
	KeyPath    []string
	Default    value.Value
	HasDefault bool
}

// Unpack applies each directive to produce new columns.
type Unpack struct {
	Directives []UnpackDirective
}

// AggDirective is one `out_col = reducer(target_col)` pair inside a
// GroupedSummary stage.
type AggDirective struct {
	OutCol    string
	Reducer   string
	TargetCol string
}

// GroupedSummary merges the DSL's adjacent `group_by(...) >> summarize(...)`
// pair into a single stage.
type GroupedSummary struct {
	GroupBy      []string
	Aggregations []AggDirective
}

// DropNa drops any row with a null in any column. Per Open Question (ii),
// the parser accepts the literal `drop_na()`.
type DropNa struct{}

func (Mutate) stageNode()         {}
func (Rename) stageNode()         {}
func (Select) stageNode()         {}
func (Remove) stageNode()         {}
func (Flatten) stageNode()        {}
func (Unpack) stageNode()         {}
func (GroupedSummary) stageNode() {}
func (DropNa) stageNode()         {}

// Pipeline is an ordered list of stages, applied left to right.
type Pipeline struct {
	Stages []Stage
}
