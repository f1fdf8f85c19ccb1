package exec

import "github.com/roach88/flume/internal/stream"

// Func is an executable function resolved during translation. The same
// Func is shared by every node translated from the same function
// reference, so implementations holding internal state see all call
// sites.
type Func struct {
	name string
	impl any
}

// NewFunc wraps an implementation under the given name. Inline functions
// carry an empty name.
func NewFunc(name string, impl any) *Func {
	return &Func{name: name, impl: impl}
}

// Name returns the registered name, or "" for inline functions.
func (f *Func) Name() string { return f.name }

// String renders the function for diagnostics and graph dumps.
func (f *Func) String() string {
	if f == nil {
		return "<nil>"
	}
	if f.name == "" {
		return "inline"
	}
	return f.name
}

// Mapper returns the implementation as a mapper, if it is one. Plain
// function literals of the right signature are accepted alongside the
// named type.
func (f *Func) Mapper() (stream.Mapper, bool) {
	switch fn := f.impl.(type) {
	case stream.Mapper:
		return fn, true
	case func(stream.Element) stream.Element:
		return fn, true
	}
	return nil, false
}

// FlatMapper returns the implementation as a flat mapper, if it is one.
func (f *Func) FlatMapper() (stream.FlatMapper, bool) {
	switch fn := f.impl.(type) {
	case stream.FlatMapper:
		return fn, true
	case func(stream.Element) []stream.Element:
		return fn, true
	}
	return nil, false
}

// Predicate returns the implementation as a predicate, if it is one.
func (f *Func) Predicate() (stream.Predicate, bool) {
	switch fn := f.impl.(type) {
	case stream.Predicate:
		return fn, true
	case func(stream.Element) bool:
		return fn, true
	}
	return nil, false
}

// Aggregator returns the implementation as an aggregator, if it is one.
func (f *Func) Aggregator() (stream.Aggregator, bool) {
	switch fn := f.impl.(type) {
	case stream.Aggregator:
		return fn, true
	case func([]stream.Element) stream.Element:
		return fn, true
	}
	return nil, false
}

// Combiner returns the implementation as a combiner, if it is one.
func (f *Func) Combiner() (stream.Combiner, bool) {
	switch fn := f.impl.(type) {
	case stream.Combiner:
		return fn, true
	case func(stream.Element, stream.Element) stream.Element:
		return fn, true
	}
	return nil, false
}
