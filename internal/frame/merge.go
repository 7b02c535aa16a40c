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

// JoinKind selects merge semantics.
type JoinKind string

const (
	JoinLeft  JoinKind = "left"
	JoinRight JoinKind = "right"
	JoinInner JoinKind = "inner"
	JoinOuter JoinKind = "outer"
)

// ColPair names one equivalence column on each side of a merge.
type ColPair struct {
	Left  string
	Right string
}

// Merge combines left and right on the column-equivalence pairs under the
// given join kind. Multi-column joins are supported: a row matches when
// every pair is equal. Row order for "left" and "inner" preserves the
// parent (left) frame's order, then within each group the child (right)
// frame's order, per spec §4.H.
func Merge(left, right *Frame, kind JoinKind, pairs []ColPair) (*Frame, error) {
	if len(pairs) == 0 {
		return nil, fmt.Errorf("frame: merge requires at least one column pair")
	}
	for _, p := range pairs {
		if !left.HasColumn(p.Left) {
			return nil, fmt.Errorf("frame: merge: left frame missing column %q", p.Left)
		}
		if !right.HasColumn(p.Right) {
			return nil, fmt.Errorf("frame: merge: right frame missing column %q", p.Right)
		}
	}

	rightIndex := buildKeyIndex(right, pairsRightCols(pairs))

	outNames, leftName, rightName := mergedNames(left, right)

	type rowPair struct {
		l, r int // -1 means no row (null-fill)
	}
	var rows []rowPair

	switch kind {
	case JoinInner, JoinLeft, JoinOuter:
		matchedRight := make(map[int]bool, right.rows)
		for li := 0; li < left.rows; li++ {
			key := rowKey(left, pairsLeftCols(pairs), li)
			ris, ok := rightIndex[key]
			if !ok || len(ris) == 0 {
				if kind == JoinLeft || kind == JoinOuter {
					rows = append(rows, rowPair{l: li, r: -1})
				}
				continue
			}
			for _, ri := range ris {
				rows = append(rows, rowPair{l: li, r: ri})
				matchedRight[ri] = true
			}
		}
		if kind == JoinOuter {
			for ri := 0; ri < right.rows; ri++ {
				if !matchedRight[ri] {
					rows = append(rows, rowPair{l: -1, r: ri})
				}
			}
		}
	case JoinRight:
		leftIndex := buildKeyIndex(left, pairsLeftCols(pairs))
		for ri := 0; ri < right.rows; ri++ {
			key := rowKey(right, pairsRightCols(pairs), ri)
			lis, ok := leftIndex[key]
			if !ok || len(lis) == 0 {
				rows = append(rows, rowPair{l: -1, r: ri})
				continue
			}
			for _, li := range lis {
				rows = append(rows, rowPair{l: li, r: ri})
			}
		}
	default:
		return nil, fmt.Errorf("frame: unknown join kind %q", kind)
	}

	outCols := make(map[string][]value.Value, len(outNames))
	for _, n := range outNames {
		outCols[n] = make([]value.Value, 0, len(rows))
	}
	for _, rp := range rows {
		for _, n := range left.names {
			name := leftName(n)
			if rp.l == -1 {
				outCols[name] = append(outCols[name], value.Null())
			} else {
				outCols[name] = append(outCols[name], left.cols[n][rp.l])
			}
		}
		for _, n := range right.names {
			name := rightName(n)
			if rp.r == -1 {
				outCols[name] = append(outCols[name], value.Null())
			} else {
				outCols[name] = append(outCols[name], right.cols[n][rp.r])
			}
		}
	}

	return &Frame{names: outNames, cols: outCols, rows: len(rows)}, nil
}

func pairsLeftCols(pairs []ColPair) []string {
	out := make([]string, len(pairs))
	for i, p := range pairs {
		out[i] = p.Left
	}
	return out
}

func pairsRightCols(pairs []ColPair) []string {
	out := make([]string, len(pairs))
	for i, p := range pairs {
		out[i] = p.Right
	}
	return out
}

func rowKey(f *Frame, cols []string, row int) string {
	key := ""
	for _, c := range cols {
		v := f.cols[c][row]
		key += fmt.Sprintf("\x1f%v\x1e%v", v.Kind(), value.ToAny(v))
	}
	return key
}

func buildKeyIndex(f *Frame, cols []string) map[string][]int {
	idx := make(map[string][]int, f.rows)
	for i := 0; i < f.rows; i++ {
		k := rowKey(f, cols, i)
		idx[k] = append(idx[k], i)
	}
	return idx
}

// mergedNames computes the combined column list plus per-side renamers that
// suffix every column name present on both sides (key columns included)
// with "_left"/"_right", mirroring
// common dataframe-merge convention.
func mergedNames(left, right *Frame) (names []string, leftName, rightName func(string) string) {
	leftSet := make(map[string]bool, len(left.names))
	for _, n := range left.names {
		leftSet[n] = true
	}
	rightSet := make(map[string]bool, len(right.names))
	for _, n := range right.names {
		rightSet[n] = true
	}
	leftName = func(n string) string {
		if rightSet[n] {
			return n + "_left"
		}
		return n
	}
	rightName = func(n string) string {
		if leftSet[n] {
			return n + "_right"
		}
		return n
	}
	for _, n := range left.names {
		names = append(names, leftName(n))
	}
	for _, n := range right.names {
		names = append(names, rightName(n))
	}
	return names, leftName, rightName
}
