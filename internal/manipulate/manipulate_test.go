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

package manipulate_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/qgl-project/querygraph/internal/frame"
	"github.com/qgl-project/querygraph/internal/manipulate"
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

func TestMutateChain(t *testing.T) {
	// scenario S3: A=[1,2,3,4], B=[0,0,0,0]; mutate(x=A+B) >> mutate(y=x*2)
	f, err := frame.New([]string{"A", "B"}, map[string][]value.Value{
		"A": ints(1, 2, 3, 4),
		"B": ints(0, 0, 0, 0),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p, err := manipulate.Parse("mutate(x=A+B) >> mutate(y=x*2)")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	out, err := manipulate.Apply(p, f)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	y := toInts(t, out.MustColumn("y"))
	if diff := cmp.Diff([]int64{2, 4, 6, 8}, y); diff != "" {
		t.Errorf("y mismatch (-want +got):\n%s", diff)
	}
}

func TestGroupByThenSummarize(t *testing.T) {
	// scenario S4: k=[a,a,b,b], v=[1,3,10,20]
	f, err := frame.New([]string{"k", "v"}, map[string][]value.Value{
		"k": strs("a", "a", "b", "b"),
		"v": ints(1, 3, 10, 20),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p, err := manipulate.Parse("group_by(k) >> summarize(s=sum(v), sp=spread(v))")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	out, err := manipulate.Apply(p, f)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if diff := cmp.Diff([]string{"k", "s", "sp"}, out.Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	s := toInts(t, out.MustColumn("s"))
	sp := toInts(t, out.MustColumn("sp"))
	if diff := cmp.Diff([]int64{4, 30}, s); diff != "" {
		t.Errorf("s mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int64{2, 10}, sp); diff != "" {
		t.Errorf("sp mismatch (-want +got):\n%s", diff)
	}
}

func TestGroupByWithoutSummarizeFails(t *testing.T) {
	if _, err := manipulate.Parse("group_by(k)"); err == nil {
		t.Fatal("expected error when group_by() is not followed by summarize()")
	}
}

func TestFlattenThenRename(t *testing.T) {
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
	p, err := manipulate.Parse("flatten(tags) >> rename(id=ID)")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	out, err := manipulate.Apply(p, f)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if out.NumRows() != 3 {
		t.Fatalf("NumRows = %d, want 3", out.NumRows())
	}
	if !out.HasColumn("ID") {
		t.Fatal("expected renamed column ID")
	}
}

func TestDropNaLiteral(t *testing.T) {
	// Open Question (ii): the parser accepts the literal drop_na(), not a
	// group_by-prefixed form.
	f, err := frame.New([]string{"A"}, map[string][]value.Value{
		"A": {value.Int(1), value.Null()},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p, err := manipulate.Parse("drop_na()")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	out, err := manipulate.Apply(p, f)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if out.NumRows() != 1 {
		t.Fatalf("NumRows = %d, want 1", out.NumRows())
	}
}

func TestRenameCollisionFails(t *testing.T) {
	f, err := frame.New([]string{"a", "b"}, map[string][]value.Value{
		"a": ints(1), "b": ints(2),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p, err := manipulate.Parse("rename(a=c, b=c)")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := manipulate.Apply(p, f); err == nil {
		t.Fatal("expected ManipulationError on rename collision")
	}
}

func TestUnpackWithDefault(t *testing.T) {
	f, err := frame.New([]string{"raw"}, map[string][]value.Value{
		"raw": {
			value.Map(map[string]value.Value{"user": value.Map(map[string]value.Value{"id": value.Int(7)})}),
			value.Map(map[string]value.Value{}),
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p, err := manipulate.Parse("unpack(user_id=raw.user.id, default=-1)")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	out, err := manipulate.Apply(p, f)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	got := toInts(t, out.MustColumn("user_id"))
	if diff := cmp.Diff([]int64{7, -1}, got); diff != "" {
		t.Errorf("user_id mismatch (-want +got):\n%s", diff)
	}
}
