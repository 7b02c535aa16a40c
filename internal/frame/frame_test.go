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

package frame_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/qgl-project/querygraph/internal/frame"
	"github.com/qgl-project/querygraph/internal/value"
)

func ints(vs ...int64) []value.Value {
	out := make([]value.Value, len(vs))
	for i, v := range vs {
		out[i] = value.Int(v)
	}
	return out
}

func strs(vs ...string) []value.Value {
	out := make([]value.Value, len(vs))
	for i, v := range vs {
		out[i] = value.String(v)
	}
	return out
}

func toInts(t *testing.T, vs []value.Value) []int64 {
	t.Helper()
	out := make([]int64, len(vs))
	for i, v := range vs {
		out[i] = v.Int()
	}
	return out
}

func TestRenameRoundTrip(t *testing.T) {
	f, err := frame.New([]string{"A", "B"}, map[string][]value.Value{
		"A": ints(1, 2, 3),
		"B": ints(4, 5, 6),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	renamed, err := f.Rename(map[string]string{"A": "tmp"})
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	roundTripped, err := renamed.Rename(map[string]string{"tmp": "A"})
	if err != nil {
		t.Fatalf("Rename back: %v", err)
	}
	if diff := cmp.Diff(f.Names(), roundTripped.Names()); diff != "" {
		t.Errorf("rename round trip names mismatch (-want +got):\n%s", diff)
	}
	for _, col := range f.Names() {
		a := toInts(t, f.MustColumn(col))
		b := toInts(t, roundTripped.MustColumn(col))
		if diff := cmp.Diff(a, b); diff != "" {
			t.Errorf("column %q mismatch (-want +got):\n%s", col, diff)
		}
	}
}

func TestSelectIdempotent(t *testing.T) {
	f, err := frame.New([]string{"A", "B", "C"}, map[string][]value.Value{
		"A": ints(1, 2), "B": ints(3, 4), "C": ints(5, 6),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	once, err := f.Select([]string{"A", "B"})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	twice, err := once.Select([]string{"A", "B"})
	if err != nil {
		t.Fatalf("Select twice: %v", err)
	}
	if diff := cmp.Diff(once.Names(), twice.Names()); diff != "" {
		t.Errorf("select idempotence mismatch (-want +got):\n%s", diff)
	}
}

func TestDropNA(t *testing.T) {
	f, err := frame.New([]string{"A", "B"}, map[string][]value.Value{
		"A": {value.Int(1), value.Null(), value.Int(3)},
		"B": {value.Int(4), value.Int(5), value.Null()},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := f.DropNA()
	if err != nil {
		t.Fatalf("DropNA: %v", err)
	}
	if out.NumRows() != 1 {
		t.Fatalf("NumRows = %d, want 1", out.NumRows())
	}
}

func TestFlatten(t *testing.T) {
	// scenario S5 from spec.md: id=[1,2], tags=[[x,y],[z]]
	f, err := frame.New([]string{"id", "tags"}, map[string][]value.Value{
		"id": ints(1, 2),
		"tags": {
			value.List(strs("x", "y")),
			value.List(strs("z")),
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := f.Flatten("tags")
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	if out.NumRows() != 3 {
		t.Fatalf("NumRows = %d, want 3", out.NumRows())
	}
	gotIDs := toInts(t, out.MustColumn("id"))
	if diff := cmp.Diff([]int64{1, 1, 2}, gotIDs); diff != "" {
		t.Errorf("id column mismatch (-want +got):\n%s", diff)
	}
	tags := out.MustColumn("tags")
	gotTags := []string{tags[0].String(), tags[1].String(), tags[2].String()}
	if diff := cmp.Diff([]string{"x", "y", "z"}, gotTags); diff != "" {
		t.Errorf("tags column mismatch (-want +got):\n%s", diff)
	}
}

func TestGroupBySumSpread(t *testing.T) {
	// scenario S4: k=[a,a,b,b], v=[1,3,10,20]
	f, err := frame.New([]string{"k", "v"}, map[string][]value.Value{
		"k": strs("a", "a", "b", "b"),
		"v": ints(1, 3, 10, 20),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sum := func(vs []value.Value) (value.Value, error) {
		var total float64
		for _, v := range vs {
			total += v.Float()
		}
		return value.Int(int64(total)), nil
	}
	spread := func(vs []value.Value) (value.Value, error) {
		mn, mx := vs[0].Float(), vs[0].Float()
		for _, v := range vs {
			if v.Float() < mn {
				mn = v.Float()
			}
			if v.Float() > mx {
				mx = v.Float()
			}
		}
		return value.Int(int64(mx - mn)), nil
	}
	out, err := f.GroupBy([]string{"k"}, []frame.Aggregation{
		{OutCol: "s", Reducer: sum, TargetCol: "v"},
		{OutCol: "sp", Reducer: spread, TargetCol: "v"},
	})
	if err != nil {
		t.Fatalf("GroupBy: %v", err)
	}
	if diff := cmp.Diff([]string{"k", "s", "sp"}, out.Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	gotS := toInts(t, out.MustColumn("s"))
	gotSp := toInts(t, out.MustColumn("sp"))
	if diff := cmp.Diff([]int64{4, 30}, gotS); diff != "" {
		t.Errorf("sum mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int64{2, 10}, gotSp); diff != "" {
		t.Errorf("spread mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeLeftJoin(t *testing.T) {
	// scenario S2: parent p has Title=[a,b]; child c has name=[a]; LEFT join on p[Title]==>c[name]
	parent, err := frame.New([]string{"Title"}, map[string][]value.Value{
		"Title": strs("a", "b"),
	})
	if err != nil {
		t.Fatalf("New parent: %v", err)
	}
	child, err := frame.New([]string{"name", "val"}, map[string][]value.Value{
		"name": strs("a"),
		"val":  ints(100),
	})
	if err != nil {
		t.Fatalf("New child: %v", err)
	}
	out, err := frame.Merge(parent, child, frame.JoinLeft, []frame.ColPair{{Left: "Title", Right: "name"}})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if out.NumRows() != 2 {
		t.Fatalf("NumRows = %d, want 2", out.NumRows())
	}
	vals := out.MustColumn("val")
	if vals[0].IsNull() || vals[0].Int() != 100 {
		t.Errorf("row 0 val = %v, want 100", vals[0])
	}
	if !vals[1].IsNull() {
		t.Errorf("row 1 val = %v, want null", vals[1])
	}
}
