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

// Flatten expands col (whose cells must be list Values) so each element
// becomes its own row; all other columns are replicated. Row order is
// lexicographic by (original row index, element index).
func (f *Frame) Flatten(col string) (*Frame, error) {
	c, err := f.Column(col)
	if err != nil {
		return nil, err
	}
	outCols := make(map[string][]value.Value, len(f.names))
	for _, n := range f.names {
		outCols[n] = []value.Value{}
	}
	total := 0
	for rowIdx, cell := range c {
		if cell.Kind() != value.KindList {
			return nil, fmt.Errorf("frame: flatten column %q row %d is not a list", col, rowIdx)
		}
		elems := cell.List()
		for _, e := range elems {
			for _, n := range f.names {
				if n == col {
					outCols[n] = append(outCols[n], e)
				} else {
					outCols[n] = append(outCols[n], f.cols[n][rowIdx])
				}
			}
			total++
		}
	}
	return &Frame{names: append([]string{}, f.names...), cols: outCols, rows: total}, nil
}
