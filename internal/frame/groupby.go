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

package frame

import (
	"fmt"

	"github.com/qgl-project/querygraph/internal/value"
)

// Reducer collapses a column's per-group values into a single Value.
type Reducer func([]value.Value) (value.Value, error)

// Aggregation describes one GroupedSummary output column.
type Aggregation struct {
	OutCol    string
	Reducer   Reducer
	TargetCol string
}

// GroupBy partitions rows by the tuple of groupCols (in first-seen order)
// and applies each Aggregation to its TargetCol. The output frame's columns
// are the group-by columns followed by the aggregation output columns, in
// that order.
func (f *Frame) GroupBy(groupCols []string, aggs []Aggregation) (*Frame, error) {
	for _, c := range groupCols {
		if !f.HasColumn(c) {
			return nil, fmt.Errorf("frame: group_by column %q not found", c)
		}
	}
	for _, a := range aggs {
		if !f.HasColumn(a.TargetCol) {
			return nil, fmt.Errorf("frame: summarize target column %q not found", a.TargetCol)
		}
	}

	type groupKey string
	order := []groupKey{}
	groupRows := map[groupKey][]int{}
	groupVals := map[groupKey][]value.Value{}

	for i := 0; i < f.rows; i++ {
		keyVals := make([]value.Value, len(groupCols))
		key := groupKey("")
		for j, c := range groupCols {
			v := f.cols[c][i]
			keyVals[j] = v
			key += groupKey(fmt.Sprintf("\x1f%v\x1e%v", v.Kind(), value.ToAny(v)))
		}
		if _, ok := groupRows[key]; !ok {
			order = append(order, key)
			groupVals[key] = keyVals
		}
		groupRows[key] = append(groupRows[key], i)
	}

	outNames := append([]string{}, groupCols...)
	for _, a := range aggs {
		outNames = append(outNames, a.OutCol)
	}
	outCols := make(map[string][]value.Value, len(outNames))
	for _, n := range outNames {
		outCols[n] = make([]value.Value, 0, len(order))
	}

	for _, key := range order {
		for j, c := range groupCols {
			outCols[c] = append(outCols[c], groupVals[key][j])
		}
		rowIdx := groupRows[key]
		for _, a := range aggs {
			vals := make([]value.Value, len(rowIdx))
			for k, ri := range rowIdx {
				vals[k] = f.cols[a.TargetCol][ri]
			}
			reduced, err := a.Reducer(vals)
			if err != nil {
				return nil, fmt.Errorf("frame: aggregation %q over %q: %w", a.OutCol, a.TargetCol, err)
			}
			outCols[a.OutCol] = append(outCols[a.OutCol], reduced)
		}
	}

	return &Frame{names: outNames, cols: outCols, rows: len(order)}, nil
}
