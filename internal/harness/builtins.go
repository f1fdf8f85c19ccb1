package harness

import (
	"fmt"
	"reflect"

	"github.com/roach88/flume/internal/stream"
	"github.com/roach88/flume/internal/translate"
)

// Builtins returns a fresh registry holding the scenario function
// vocabulary. Unless noted otherwise the functions operate on int
// elements; scenarios are responsible for pairing functions with
// matching inputs.
//
//	double     mapper      n -> 2n
//	negate     mapper      n -> -n
//	stringify  mapper      e -> fmt.Sprint(e)
//	count_up   flat mapper n -> [1, 2, ..., n]
//	positive   predicate   n > 0
//	even       predicate   n % 2 == 0
//	sum        aggregator  sum of the group (0 for empty)
//	count      aggregator  group length
//	pair       combiner    "left/right" via %v (nil-safe)
//	add        combiner    left + right (both sides must be ints)
func Builtins() *translate.Registry {
	r := translate.NewRegistry()

	r.MustRegister("double", stream.Mapper(func(e stream.Element) stream.Element {
		return e.(int) * 2
	}))
	r.MustRegister("negate", stream.Mapper(func(e stream.Element) stream.Element {
		return -e.(int)
	}))
	r.MustRegister("stringify", stream.Mapper(func(e stream.Element) stream.Element {
		return fmt.Sprint(e)
	}))
	r.MustRegister("count_up", stream.FlatMapper(func(e stream.Element) []stream.Element {
		n := e.(int)
		out := make([]stream.Element, 0, n)
		for i := 1; i <= n; i++ {
			out = append(out, i)
		}
		return out
	}))
	r.MustRegister("positive", stream.Predicate(func(e stream.Element) bool {
		return e.(int) > 0
	}))
	r.MustRegister("even", stream.Predicate(func(e stream.Element) bool {
		return e.(int)%2 == 0
	}))
	r.MustRegister("sum", stream.Aggregator(func(group []stream.Element) stream.Element {
		total := 0
		for _, e := range group {
			total += e.(int)
		}
		return total
	}))
	r.MustRegister("count", stream.Aggregator(func(group []stream.Element) stream.Element {
		return len(group)
	}))
	r.MustRegister("pair", stream.Combiner(func(left, right stream.Element) stream.Element {
		return fmt.Sprintf("%v/%v", left, right)
	}))
	r.MustRegister("add", stream.Combiner(func(left, right stream.Element) stream.Element {
		return left.(int) + right.(int)
	}))

	return r
}

// typeFor resolves a scenario type name to the runtime type it admits.
func typeFor(name string) (reflect.Type, bool) {
	switch name {
	case "string":
		return reflect.TypeOf(""), true
	case "int":
		return reflect.TypeOf(0), true
	case "bool":
		return reflect.TypeOf(false), true
	}
	return nil, false
}

// transformationByName resolves a scenario transformation name to the
// rewrite pass it runs.
func transformationByName(name string) (translate.Transformation, bool) {
	switch name {
	case "merge_scopes":
		return translate.MergeScopes{}, true
	}
	return nil, false
}
