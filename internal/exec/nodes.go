package exec

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/roach88/flume/internal/ident"
	"github.com/roach88/flume/internal/stream"
)

// Root is the entry of an executable graph. Executions push batch
// elements into it; it fans everything out unchanged.
type Root struct {
	base
}

func NewRoot(origin ident.NodeID) *Root {
	return &Root{base: base{origin: origin}}
}

func (*Root) Kind() Kind { return KindRoot }

func (r *Root) feed(rs *runState, m message, _ int) {
	r.emit(rs, m)
}

// Map applies a mapper to each element and forwards markers unchanged.
type Map struct {
	base
	f  *Func
	fn stream.Mapper
}

func NewMap(origin ident.NodeID, f *Func) (*Map, error) {
	fn, ok := f.Mapper()
	if !ok {
		return nil, fmt.Errorf("function %s is not a mapper", f)
	}
	return &Map{base: base{origin: origin}, f: f, fn: fn}, nil
}

func (*Map) Kind() Kind { return KindMap }

func (n *Map) feed(rs *runState, m message, _ int) {
	if m.kind == msgData {
		m.elem = n.fn(m.elem)
	}
	n.emit(rs, m)
}

// FlatMap expands each element into zero or more elements.
type FlatMap struct {
	base
	f  *Func
	fn stream.FlatMapper
}

func NewFlatMap(origin ident.NodeID, f *Func) (*FlatMap, error) {
	fn, ok := f.FlatMapper()
	if !ok {
		return nil, fmt.Errorf("function %s is not a flat mapper", f)
	}
	return &FlatMap{base: base{origin: origin}, f: f, fn: fn}, nil
}

func (*FlatMap) Kind() Kind { return KindFlatMap }

func (n *FlatMap) feed(rs *runState, m message, _ int) {
	if m.kind != msgData {
		n.emit(rs, m)
		return
	}
	for _, out := range n.fn(m.elem) {
		n.emit(rs, message{kind: msgData, elem: out})
	}
}

// Filter forwards only elements its predicate accepts.
type Filter struct {
	base
	f  *Func
	fn stream.Predicate
}

func NewFilter(origin ident.NodeID, f *Func) (*Filter, error) {
	fn, ok := f.Predicate()
	if !ok {
		return nil, fmt.Errorf("function %s is not a predicate", f)
	}
	return &Filter{base: base{origin: origin}, f: f, fn: fn}, nil
}

func (*Filter) Kind() Kind { return KindFilter }

func (n *Filter) feed(rs *runState, m message, _ int) {
	if m.kind == msgData && !n.fn(m.elem) {
		return
	}
	n.emit(rs, m)
}

// FilterNonNull drops nil elements, including typed nil pointers and
// nil-valued maps, slices, channels, and funcs.
type FilterNonNull struct {
	base
}

func NewFilterNonNull(origin ident.NodeID) *FilterNonNull {
	return &FilterNonNull{base: base{origin: origin}}
}

func (*FilterNonNull) Kind() Kind { return KindFilterNonNull }

func (n *FilterNonNull) feed(rs *runState, m message, _ int) {
	if m.kind == msgData && isNull(m.elem) {
		return
	}
	n.emit(rs, m)
}

func isNull(e stream.Element) bool {
	if e == nil {
		return true
	}
	v := reflect.ValueOf(e)
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return v.IsNil()
	}
	return false
}

// FilterType forwards only elements assignable to at least one of its
// admitted types. Interface types admit every implementation.
type FilterType struct {
	base
	types []reflect.Type
}

func NewFilterType(origin ident.NodeID, types []reflect.Type) *FilterType {
	kept := make([]reflect.Type, 0, len(types))
	seen := make(map[reflect.Type]bool, len(types))
	for _, t := range types {
		if t == nil || seen[t] {
			continue
		}
		seen[t] = true
		kept = append(kept, t)
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].String() < kept[j].String() })
	return &FilterType{base: base{origin: origin}, types: kept}
}

func (*FilterType) Kind() Kind { return KindFilterType }

// Types returns the admitted types, deduplicated and sorted by name.
func (n *FilterType) Types() []reflect.Type {
	out := make([]reflect.Type, len(n.types))
	copy(out, n.types)
	return out
}

func (n *FilterType) feed(rs *runState, m message, _ int) {
	if m.kind == msgData && !n.admits(m.elem) {
		return
	}
	n.emit(rs, m)
}

func (n *FilterType) admits(e stream.Element) bool {
	t := reflect.TypeOf(e)
	if t == nil {
		return false
	}
	for _, want := range n.types {
		if t.AssignableTo(want) {
			return true
		}
	}
	return false
}

// Aggregate buffers the elements of each scope bracket and emits one
// aggregated element per close marker. Elements outside any bracket
// aggregate at end of input. The drop form stays silent for empty
// groups instead of aggregating an empty slice.
type Aggregate struct {
	base
	kind Kind
	f    *Func
	fn   stream.Aggregator
	drop bool
}

func NewAggregate(origin ident.NodeID, f *Func) (*Aggregate, error) {
	return newAggregate(origin, KindAggregate, f, false)
}

func NewAggregateDrop(origin ident.NodeID, f *Func) (*Aggregate, error) {
	return newAggregate(origin, KindAggregateDrop, f, true)
}

func newAggregate(origin ident.NodeID, kind Kind, f *Func, drop bool) (*Aggregate, error) {
	fn, ok := f.Aggregator()
	if !ok {
		return nil, fmt.Errorf("function %s is not an aggregator", f)
	}
	return &Aggregate{base: base{origin: origin}, kind: kind, f: f, fn: fn, drop: drop}, nil
}

func (n *Aggregate) Kind() Kind { return n.kind }

type aggState struct {
	frames [][]stream.Element
}

func (n *Aggregate) state(rs *runState) *aggState {
	return stateFor(rs, n, func() *aggState {
		return &aggState{frames: make([][]stream.Element, 1)}
	})
}

func (n *Aggregate) feed(rs *runState, m message, _ int) {
	st := n.state(rs)
	switch m.kind {
	case msgData:
		st.frames[len(st.frames)-1] = append(st.frames[len(st.frames)-1], m.elem)
	case msgOpen:
		st.frames = append(st.frames, nil)
		n.emit(rs, m)
	case msgClose:
		if len(st.frames) > 1 {
			frame := st.frames[len(st.frames)-1]
			st.frames = st.frames[:len(st.frames)-1]
			n.flush(rs, frame)
		}
		n.emit(rs, m)
	case msgEOF:
		n.flush(rs, st.frames[0])
		st.frames[0] = nil
		n.emit(rs, m)
	}
}

// flush emits the aggregate of one frame. It runs before the closing
// marker is forwarded, so the result still belongs to every enclosing
// bracket downstream.
func (n *Aggregate) flush(rs *runState, frame []stream.Element) {
	if n.drop && len(frame) == 0 {
		return
	}
	n.emit(rs, message{kind: msgData, elem: n.fn(frame)})
}

// Combine pairs the elements arriving on its two input ports positionally
// within each scope bracket and at end of input. Unmatched positions pair
// against nil; the drop form discards them instead.
type Combine struct {
	base
	kind Kind
	f    *Func
	fn   stream.Combiner
	drop bool
}

func NewCombine(origin ident.NodeID, f *Func) (*Combine, error) {
	return newCombine(origin, KindCombine, f, false)
}

func NewCombineDrop(origin ident.NodeID, f *Func) (*Combine, error) {
	return newCombine(origin, KindCombineDrop, f, true)
}

func newCombine(origin ident.NodeID, kind Kind, f *Func, drop bool) (*Combine, error) {
	fn, ok := f.Combiner()
	if !ok {
		return nil, fmt.Errorf("function %s is not a combiner", f)
	}
	return &Combine{base: base{origin: origin}, kind: kind, f: f, fn: fn, drop: drop}, nil
}

func (n *Combine) Kind() Kind { return n.kind }

type combineFrame struct {
	sides [2][]stream.Element
}

type combineState struct {
	frames  []*combineFrame
	pending map[markerKey]*arrival
}

func (n *Combine) state(rs *runState) *combineState {
	return stateFor(rs, n, func() *combineState {
		return &combineState{
			frames:  []*combineFrame{{}},
			pending: make(map[markerKey]*arrival),
		}
	})
}

func (n *Combine) feed(rs *runState, m message, port int) {
	st := n.state(rs)
	switch m.kind {
	case msgData:
		if port != 0 && port != 1 {
			return
		}
		top := st.frames[len(st.frames)-1]
		top.sides[port] = append(top.sides[port], m.elem)
	case msgOpen:
		if markArrival(st.pending, markerKey{kind: msgOpen, scope: m.scope}, port, 2) {
			st.frames = append(st.frames, &combineFrame{})
			n.emit(rs, m)
		}
	case msgClose:
		if markArrival(st.pending, markerKey{kind: msgClose, scope: m.scope}, port, 2) {
			if len(st.frames) > 1 {
				frame := st.frames[len(st.frames)-1]
				st.frames = st.frames[:len(st.frames)-1]
				n.flush(rs, frame)
			}
			n.emit(rs, m)
		}
	case msgEOF:
		if markArrival(st.pending, markerKey{kind: msgEOF}, port, 2) {
			n.flush(rs, st.frames[0])
			st.frames[0] = &combineFrame{}
			n.emit(rs, m)
		}
	}
}

func (n *Combine) flush(rs *runState, frame *combineFrame) {
	left, right := frame.sides[0], frame.sides[1]
	limit := max(len(left), len(right))
	if n.drop {
		limit = min(len(left), len(right))
	}
	for i := 0; i < limit; i++ {
		var le, re stream.Element
		if i < len(left) {
			le = left[i]
		}
		if i < len(right) {
			re = right[i]
		}
		n.emit(rs, message{kind: msgData, elem: n.fn(le, re)})
	}
}

// Union merges any number of inputs. Elements pass straight through;
// each marker is forwarded once, after every input port has seen it.
type Union struct {
	base
	arity int
}

func NewUnion(origin ident.NodeID, arity int) *Union {
	return &Union{base: base{origin: origin}, arity: arity}
}

func (*Union) Kind() Kind { return KindUnion }

// Arity returns the number of input ports.
func (n *Union) Arity() int { return n.arity }

type unionState struct {
	pending map[markerKey]*arrival
}

func (n *Union) feed(rs *runState, m message, port int) {
	if m.kind == msgData {
		n.emit(rs, m)
		return
	}
	st := stateFor(rs, n, func() *unionState {
		return &unionState{pending: make(map[markerKey]*arrival)}
	})
	if markArrival(st.pending, markerKey{kind: m.kind, scope: m.scope}, port, n.arity) {
		n.emit(rs, m)
	}
}

// Scope brackets every incoming element with open and close markers
// carrying its scope id, turning each element into a group of its own
// for downstream grouping nodes. Markers of enclosing scopes pass
// through untouched.
type Scope struct {
	base
	scope ident.ScopeID
}

func NewScope(origin ident.NodeID, scope ident.ScopeID) *Scope {
	return &Scope{base: base{origin: origin}, scope: scope}
}

func (*Scope) Kind() Kind { return KindScope }

// ScopeID returns the id carried by this node's markers.
func (n *Scope) ScopeID() ident.ScopeID { return n.scope }

func (n *Scope) feed(rs *runState, m message, _ int) {
	if m.kind != msgData {
		n.emit(rs, m)
		return
	}
	n.emit(rs, message{kind: msgOpen, scope: n.scope})
	n.emit(rs, m)
	n.emit(rs, message{kind: msgClose, scope: n.scope})
}

// Unscope swallows the open and close markers of the scopes it ends and
// forwards everything else.
type Unscope struct {
	base
	scopes map[ident.ScopeID]bool
	order  []ident.ScopeID
}

func NewUnscope(origin ident.NodeID, scopes []ident.ScopeID) *Unscope {
	set := make(map[ident.ScopeID]bool, len(scopes))
	order := make([]ident.ScopeID, 0, len(scopes))
	for _, s := range scopes {
		if set[s] {
			continue
		}
		set[s] = true
		order = append(order, s)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	return &Unscope{base: base{origin: origin}, scopes: set, order: order}
}

func (*Unscope) Kind() Kind { return KindUnscope }

// ScopeIDs returns the ended scope ids, deduplicated and ascending.
func (n *Unscope) ScopeIDs() []ident.ScopeID {
	out := make([]ident.ScopeID, len(n.order))
	copy(out, n.order)
	return out
}

func (n *Unscope) feed(rs *runState, m message, _ int) {
	if (m.kind == msgOpen || m.kind == msgClose) && n.scopes[m.scope] {
		return
	}
	n.emit(rs, m)
}

// Consumer delivers elements to a sink and stops markers. It is always a
// leaf of the executable graph.
type Consumer struct {
	base
	sink stream.Sink
}

func NewConsumer(origin ident.NodeID, sink stream.Sink) *Consumer {
	return &Consumer{base: base{origin: origin}, sink: sink}
}

func (*Consumer) Kind() Kind { return KindConsumer }

func (n *Consumer) feed(_ *runState, m message, _ int) {
	if m.kind == msgData && n.sink != nil {
		n.sink(m.elem)
	}
}
