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

package expr

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/qgl-project/querygraph/internal/value"
)

// registerElementwise1 registers both a scalar and a vectorized overload for
// a single-argument function whose parameter is tagged paramTag: scalar
// overloads accept one value of that kind, series overloads map the same
// handler element-by-element.
func registerElementwise1(name string, paramTag ArgTag, fn func(value.Value) (value.Value, error)) {
	registerFunc(name, Overload{
		Params: []ArgTag{paramTag},
		Handler: func(args []RuntimeVal) (RuntimeVal, error) {
			v, err := fn(args[0].Scalar)
			if err != nil {
				return RuntimeVal{}, err
			}
			return scalarVal(v), nil
		},
	})
	registerFunc(name, Overload{
		Params: []ArgTag{TagSeries},
		Handler: func(args []RuntimeVal) (RuntimeVal, error) {
			return elementwiseUnary(args[0], fn)
		},
	})
}

func init() {
	registerLenFunc()
	registerElementwise1("log", TagFloat, func(v value.Value) (value.Value, error) {
		return value.Float(math.Log(v.Float())), nil
	})
	registerElementwise1("uppercase", TagString, func(v value.Value) (value.Value, error) {
		return value.String(strings.ToUpper(v.String())), nil
	})
	registerElementwise1("lowercase", TagString, func(v value.Value) (value.Value, error) {
		return value.String(strings.ToLower(v.String())), nil
	})
	registerElementwise1("capitalize", TagString, func(v value.Value) (value.Value, error) {
		s := v.String()
		if s == "" {
			return value.String(s), nil
		}
		return value.String(strings.ToUpper(s[:1]) + s[1:]), nil
	})
	registerToDateFuncs()
	registerRegexSubFunc()
	registerReplaceFunc()
	registerSliceFunc()
	registerReformatDtStrFunc()
	registerLagFunc()
	registerReducers()
}

func registerLenFunc() {
	lenOf := func(v value.Value) (value.Value, error) {
		switch v.Kind() {
		case value.KindString:
			return value.Int(int64(len(v.String()))), nil
		case value.KindList:
			return value.Int(int64(len(v.List()))), nil
		default:
			return value.Value{}, fmt.Errorf("expr: len() does not accept %s", v.Kind())
		}
	}
	registerFunc("len", Overload{
		Params: []ArgTag{TagString},
		Handler: func(args []RuntimeVal) (RuntimeVal, error) {
			v, err := lenOf(args[0].Scalar)
			return scalarVal(v), err
		},
	})
	registerFunc("len", Overload{
		Params: []ArgTag{TagList},
		Handler: func(args []RuntimeVal) (RuntimeVal, error) {
			v, err := lenOf(args[0].Scalar)
			return scalarVal(v), err
		},
	})
	registerFunc("len", Overload{
		Params: []ArgTag{TagSeries},
		Handler: func(args []RuntimeVal) (RuntimeVal, error) {
			return elementwiseUnary(args[0], lenOf)
		},
	})
}

func registerToDateFuncs() {
	parse := func(kind value.Kind, layout string) func(v, fmtArg value.Value) (value.Value, error) {
		return func(v, fmtArg value.Value) (value.Value, error) {
			l := layout
			if fmtArg.Kind() == value.KindString && fmtArg.String() != "" {
				l = goLayout(fmtArg.String())
			}
			t, err := time.Parse(l, v.String())
			if err != nil {
				return value.Value{}, fmt.Errorf("expr: to_date/to_datetime: %w", err)
			}
			if kind == value.KindDate {
				return value.Date(t), nil
			}
			return value.DateTime(t), nil
		}
	}
	dateFn := parse(value.KindDate, "2006-01-02")
	dtFn := parse(value.KindDateTime, "2006-01-02 15:04:05")
	for _, spec := range []struct {
		name string
		fn   func(value.Value, value.Value) (value.Value, error)
	}{
		{"to_date", dateFn}, {"to_datetime", dtFn},
	} {
		name, fn := spec.name, spec.fn
		registerFunc(name, Overload{
			Params: []ArgTag{TagString, TagString},
			Handler: func(args []RuntimeVal) (RuntimeVal, error) {
				v, err := fn(args[0].Scalar, args[1].Scalar)
				return scalarVal(v), err
			},
		})
		registerFunc(name, Overload{
			Params: []ArgTag{TagSeries, TagString},
			Handler: func(args []RuntimeVal) (RuntimeVal, error) {
				return elementwiseBinary(args[0], args[1], fn)
			},
		})
	}
}

// goLayout translates the small set of strftime-style directives the QGL
// format strings use into Go's reference-time layout.
func goLayout(strftime string) string {
	r := strings.NewReplacer(
		"%Y", "2006", "%m", "01", "%d", "02",
		"%H", "15", "%M", "04", "%S", "05",
	)
	return r.Replace(strftime)
}

func registerRegexSubFunc() {
	sub := func(v, pattern, repl value.Value) (value.Value, error) {
		re, err := regexp.Compile(pattern.String())
		if err != nil {
			return value.Value{}, fmt.Errorf("expr: regex_sub: %w", err)
		}
		return value.String(re.ReplaceAllString(v.String(), repl.String())), nil
	}
	registerFunc("regex_sub", Overload{
		Params: []ArgTag{TagString, TagString, TagString},
		Handler: func(args []RuntimeVal) (RuntimeVal, error) {
			v, err := sub(args[0].Scalar, args[1].Scalar, args[2].Scalar)
			return scalarVal(v), err
		},
	})
	registerFunc("regex_sub", Overload{
		Params: []ArgTag{TagSeries, TagString, TagString},
		Handler: func(args []RuntimeVal) (RuntimeVal, error) {
			out := make([]value.Value, len(args[0].Series))
			for i, elem := range args[0].Series {
				v, err := sub(elem, args[1].Scalar, args[2].Scalar)
				if err != nil {
					return RuntimeVal{}, err
				}
				out[i] = v
			}
			return seriesVal(out), nil
		},
	})
}

// registerReplaceFunc implements replace(value, old, new). The dispatch
// contract checks the types of old and new as well as value, addressing the
// open question of extending the overload beyond the first argument.
func registerReplaceFunc() {
	rep := func(v, old, new_ value.Value) (value.Value, error) {
		return value.String(strings.ReplaceAll(v.String(), old.String(), new_.String())), nil
	}
	registerFunc("replace", Overload{
		Params: []ArgTag{TagString, TagString, TagString},
		Handler: func(args []RuntimeVal) (RuntimeVal, error) {
			v, err := rep(args[0].Scalar, args[1].Scalar, args[2].Scalar)
			return scalarVal(v), err
		},
	})
	registerFunc("replace", Overload{
		Params: []ArgTag{TagSeries, TagString, TagString},
		Handler: func(args []RuntimeVal) (RuntimeVal, error) {
			out := make([]value.Value, len(args[0].Series))
			for i, elem := range args[0].Series {
				v, err := rep(elem, args[1].Scalar, args[2].Scalar)
				if err != nil {
					return RuntimeVal{}, err
				}
				out[i] = v
			}
			return seriesVal(out), nil
		},
	})
}

func registerSliceFunc() {
	sliceStr := func(v, start, stop value.Value) (value.Value, error) {
		s := []rune(v.String())
		lo, hi := clampSlice(len(s), start.Int(), stop.Int())
		return value.String(string(s[lo:hi])), nil
	}
	sliceList := func(v, start, stop value.Value) (value.Value, error) {
		l := v.List()
		lo, hi := clampSlice(len(l), start.Int(), stop.Int())
		return value.List(append([]value.Value{}, l[lo:hi]...)), nil
	}
	registerFunc("slice", Overload{
		Params: []ArgTag{TagString, TagInt, TagInt},
		Handler: func(args []RuntimeVal) (RuntimeVal, error) {
			v, err := sliceStr(args[0].Scalar, args[1].Scalar, args[2].Scalar)
			return scalarVal(v), err
		},
	})
	registerFunc("slice", Overload{
		Params: []ArgTag{TagList, TagInt, TagInt},
		Handler: func(args []RuntimeVal) (RuntimeVal, error) {
			v, err := sliceList(args[0].Scalar, args[1].Scalar, args[2].Scalar)
			return scalarVal(v), err
		},
	})
}

func clampSlice(n int, start, stop int64) (int, int) {
	if start < 0 {
		start += int64(n)
	}
	if stop < 0 {
		stop += int64(n)
	}
	if start < 0 {
		start = 0
	}
	if stop > int64(n) {
		stop = int64(n)
	}
	if stop < start {
		stop = start
	}
	return int(start), int(stop)
}

func registerReformatDtStrFunc() {
	reformat := func(v, inFmt, outFmt value.Value) (value.Value, error) {
		t, err := time.Parse(goLayout(inFmt.String()), v.String())
		if err != nil {
			return value.Value{}, fmt.Errorf("expr: reformat_dt_str: %w", err)
		}
		return value.String(t.Format(goLayout(outFmt.String()))), nil
	}
	registerFunc("reformat_dt_str", Overload{
		Params: []ArgTag{TagString, TagString, TagString},
		Handler: func(args []RuntimeVal) (RuntimeVal, error) {
			v, err := reformat(args[0].Scalar, args[1].Scalar, args[2].Scalar)
			return scalarVal(v), err
		},
	})
	registerFunc("reformat_dt_str", Overload{
		Params: []ArgTag{TagSeries, TagString, TagString},
		Handler: func(args []RuntimeVal) (RuntimeVal, error) {
			out := make([]value.Value, len(args[0].Series))
			for i, elem := range args[0].Series {
				v, err := reformat(elem, args[1].Scalar, args[2].Scalar)
				if err != nil {
					return RuntimeVal{}, err
				}
				out[i] = v
			}
			return seriesVal(out), nil
		},
	})
}

// registerLagFunc implements lag(series, periods): shifts an entire series,
// unlike the elementwise functions above, so it cannot be auto-vectorized.
func registerLagFunc() {
	registerFunc("lag", Overload{
		Params: []ArgTag{TagSeries, TagInt},
		Handler: func(args []RuntimeVal) (RuntimeVal, error) {
			series := args[0].Series
			periods := int(args[1].Scalar.Int())
			out := make([]value.Value, len(series))
			for i := range series {
				src := i - periods
				if src < 0 || src >= len(series) {
					out[i] = value.Null()
					continue
				}
				out[i] = series[src]
			}
			return seriesVal(out), nil
		},
	})
}

func registerReducers() {
	registerFunc("sum", Overload{Params: []ArgTag{TagSeries}, Handler: reduceSum})
	registerFunc("mean", Overload{Params: []ArgTag{TagSeries}, Handler: reduceMean})
	registerFunc("min", Overload{Params: []ArgTag{TagSeries}, Handler: reduceMin})
	registerFunc("max", Overload{Params: []ArgTag{TagSeries}, Handler: reduceMax})
	registerFunc("count", Overload{Params: []ArgTag{TagSeries}, Handler: reduceCount})
	registerFunc("spread", Overload{Params: []ArgTag{TagSeries}, Handler: reduceSpread})
}

func reduceSum(args []RuntimeVal) (RuntimeVal, error) {
	series := args[0].Series
	if allInts(series) {
		var total int64
		for _, v := range series {
			total += v.Int()
		}
		return scalarVal(value.Int(total)), nil
	}
	var total float64
	for _, v := range series {
		total += v.Float()
	}
	return scalarVal(value.Float(total)), nil
}

func reduceMean(args []RuntimeVal) (RuntimeVal, error) {
	series := args[0].Series
	if len(series) == 0 {
		return scalarVal(value.Null()), nil
	}
	var total float64
	for _, v := range series {
		total += v.Float()
	}
	return scalarVal(value.Float(total / float64(len(series)))), nil
}

func reduceMin(args []RuntimeVal) (RuntimeVal, error) {
	return reduceMinMax(args[0].Series, false)
}

func reduceMax(args []RuntimeVal) (RuntimeVal, error) {
	return reduceMinMax(args[0].Series, true)
}

func reduceMinMax(series []value.Value, wantMax bool) (RuntimeVal, error) {
	if len(series) == 0 {
		return scalarVal(value.Null()), nil
	}
	best := series[0]
	for _, v := range series[1:] {
		if (wantMax && v.Float() > best.Float()) || (!wantMax && v.Float() < best.Float()) {
			best = v
		}
	}
	return scalarVal(best), nil
}

func reduceCount(args []RuntimeVal) (RuntimeVal, error) {
	n := 0
	for _, v := range args[0].Series {
		if !v.IsNull() {
			n++
		}
	}
	return scalarVal(value.Int(int64(n))), nil
}

func reduceSpread(args []RuntimeVal) (RuntimeVal, error) {
	series := args[0].Series
	if len(series) == 0 {
		return scalarVal(value.Null()), nil
	}
	mn, mx := series[0].Float(), series[0].Float()
	for _, v := range series[1:] {
		if v.Float() < mn {
			mn = v.Float()
		}
		if v.Float() > mx {
			mx = v.Float()
		}
	}
	if allInts(series) {
		return scalarVal(value.Int(int64(mx - mn))), nil
	}
	return scalarVal(value.Float(mx - mn)), nil
}

func allInts(vs []value.Value) bool {
	for _, v := range vs {
		if v.Kind() != value.KindInt {
			return false
		}
	}
	return true
}
