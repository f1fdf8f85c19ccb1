package queryir

import (
	"reflect"
	"sort"

	"github.com/roach88/flume/internal/ident"
	"github.com/roach88/flume/internal/stream"
)

// Kind names a node variant. Used in logs, errors, and the canonical form.
type Kind string

// Node variant kinds.
const (
	KindRoot          Kind = "root"
	KindMap           Kind = "map"
	KindFlatMap       Kind = "flat_map"
	KindFilter        Kind = "filter"
	KindFilterNonNull Kind = "filter_non_null"
	KindFilterType    Kind = "filter_type"
	KindAggregate     Kind = "aggregate"
	KindAggregateDrop Kind = "aggregate_drop"
	KindCombine       Kind = "combine"
	KindCombineDrop   Kind = "combine_drop"
	KindConsumer      Kind = "consumer"
	KindUnion         Kind = "union"
	KindScope         Kind = "scope"
	KindUnscope       Kind = "unscope"
)

// Node is one operation in a query graph.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and enables
// exhaustive type switches in the translation builder.
//
// Node variants:
//   - Root: stream entry point (no parents)
//   - Map, FlatMap: element transformation
//   - Filter, FilterNonNull, FilterType: element selection
//   - Aggregate, AggregateDrop: group reduction
//   - Combine, CombineDrop: pairing of two parallel branches
//   - Union: merge of several branches
//   - Scope, Unscope: evaluation-context brackets (see scope.go)
//   - Consumer: terminal sink
type Node interface {
	// ID returns the node's graph-unique identity.
	ID() ident.NodeID
	// Kind returns the variant name.
	Kind() Kind
	// Parents returns the node's data-flow predecessors in input-port
	// order. The returned slice is the node's own and must not be
	// modified by callers.
	Parents() []Node
	// Terminal reports whether the node is a terminal sink.
	Terminal() bool

	irNode() // Marker method - seals interface to this package
}

// nodeMeta carries the identity and parent edges shared by all variants.
// Parent lists are fixed here at construction; nothing in this package
// mutates them afterwards.
type nodeMeta struct {
	id      ident.NodeID
	parents []Node
}

func newMeta(ids ident.Source, parents ...Node) nodeMeta {
	return nodeMeta{id: ids.NextNodeID(), parents: parents}
}

func (m *nodeMeta) ID() ident.NodeID { return m.id }
func (m *nodeMeta) Parents() []Node  { return m.parents }
func (m *nodeMeta) Terminal() bool   { return false }
func (m *nodeMeta) irNode()          {}

// Root is the entry point of a query graph: the node input elements are
// fed into. It has no parents. A graph may technically hold several Root
// nodes; the builder treats the first one reached in dependency order as
// the executable entry point.
type Root struct {
	nodeMeta
}

// NewRoot creates a stream entry point.
func NewRoot(ids ident.Source) *Root {
	return &Root{nodeMeta: newMeta(ids)}
}

func (*Root) Kind() Kind { return KindRoot }

// Map transforms each element into exactly one output element.
type Map struct {
	nodeMeta
	fn FuncRef
}

// NewMap creates a one-to-one transformation of parent's elements.
func NewMap(ids ident.Source, parent Node, fn FuncRef) *Map {
	return &Map{nodeMeta: newMeta(ids, parent), fn: fn}
}

func (*Map) Kind() Kind { return KindMap }

// Fn returns the transform reference resolved at build time.
func (m *Map) Fn() FuncRef { return m.fn }

// FlatMap transforms each element into zero or more output elements.
type FlatMap struct {
	nodeMeta
	fn FuncRef
}

// NewFlatMap creates a one-to-many transformation of parent's elements.
func NewFlatMap(ids ident.Source, parent Node, fn FuncRef) *FlatMap {
	return &FlatMap{nodeMeta: newMeta(ids, parent), fn: fn}
}

func (*FlatMap) Kind() Kind { return KindFlatMap }

// Fn returns the transform reference resolved at build time.
func (f *FlatMap) Fn() FuncRef { return f.fn }

// Filter keeps only elements satisfying a predicate.
type Filter struct {
	nodeMeta
	fn FuncRef
}

// NewFilter creates a predicate selection over parent's elements.
func NewFilter(ids ident.Source, parent Node, fn FuncRef) *Filter {
	return &Filter{nodeMeta: newMeta(ids, parent), fn: fn}
}

func (*Filter) Kind() Kind { return KindFilter }

// Fn returns the predicate reference resolved at build time.
func (f *Filter) Fn() FuncRef { return f.fn }

// FilterNonNull drops null-valued elements. No payload: the check is
// structural, not a user predicate.
type FilterNonNull struct {
	nodeMeta
}

// NewFilterNonNull creates a null-dropping selection over parent's elements.
func NewFilterNonNull(ids ident.Source, parent Node) *FilterNonNull {
	return &FilterNonNull{nodeMeta: newMeta(ids, parent)}
}

func (*FilterNonNull) Kind() Kind { return KindFilterNonNull }

// FilterType keeps only elements whose runtime type is assignable to at
// least one of the acceptable types. The set is deduplicated and held in
// a deterministic order (sorted by type name) so two graphs built from
// the same type set are structurally identical.
type FilterType struct {
	nodeMeta
	types []reflect.Type
}

// NewFilterType creates a runtime-type selection over parent's elements.
// Nil entries are ignored; duplicates collapse.
func NewFilterType(ids ident.Source, parent Node, types ...reflect.Type) *FilterType {
	seen := make(map[reflect.Type]bool, len(types))
	kept := make([]reflect.Type, 0, len(types))
	for _, t := range types {
		if t == nil || seen[t] {
			continue
		}
		seen[t] = true
		kept = append(kept, t)
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].String() < kept[j].String() })
	return &FilterType{nodeMeta: newMeta(ids, parent), types: kept}
}

func (*FilterType) Kind() Kind { return KindFilterType }

// Types returns the acceptable runtime types in deterministic order.
// The returned slice is the node's own and must not be modified.
func (f *FilterType) Types() []reflect.Type { return f.types }

// Aggregate reduces each completed element group to a single element.
// Groups are delimited by the enclosing scope; elements outside any scope
// form one group per execution. The aggregator is applied to empty groups
// too, so it can materialize a zero value (for example a count of 0).
type Aggregate struct {
	nodeMeta
	fn FuncRef
}

// NewAggregate creates a group reduction over parent's elements.
func NewAggregate(ids ident.Source, parent Node, fn FuncRef) *Aggregate {
	return &Aggregate{nodeMeta: newMeta(ids, parent), fn: fn}
}

func (*Aggregate) Kind() Kind { return KindAggregate }

// Fn returns the aggregator reference resolved at build time.
func (a *Aggregate) Fn() FuncRef { return a.fn }

// AggregateDrop is Aggregate except that empty groups produce no output
// element instead of a reduction of nothing.
type AggregateDrop struct {
	nodeMeta
	fn FuncRef
}

// NewAggregateDrop creates an empty-group-suppressing reduction.
func NewAggregateDrop(ids ident.Source, parent Node, fn FuncRef) *AggregateDrop {
	return &AggregateDrop{nodeMeta: newMeta(ids, parent), fn: fn}
}

func (*AggregateDrop) Kind() Kind { return KindAggregateDrop }

// Fn returns the aggregator reference resolved at build time.
func (a *AggregateDrop) Fn() FuncRef { return a.fn }

// Combine pairs elements from two parallel branches positionally and
// merges each pair with a combiner. When one branch runs short within a
// group, the missing side is passed to the combiner as nil.
type Combine struct {
	nodeMeta
	fn FuncRef
}

// NewCombine creates a positional merge of the left and right branches.
// Parent order is significant: left is input port 0, right is port 1.
func NewCombine(ids ident.Source, left, right Node, fn FuncRef) *Combine {
	return &Combine{nodeMeta: newMeta(ids, left, right), fn: fn}
}

func (*Combine) Kind() Kind { return KindCombine }

// Fn returns the combiner reference resolved at build time.
func (c *Combine) Fn() FuncRef { return c.fn }

// Left returns the port-0 predecessor.
func (c *Combine) Left() Node { return c.parents[0] }

// Right returns the port-1 predecessor.
func (c *Combine) Right() Node { return c.parents[1] }

// CombineDrop is Combine except that unpaired positions are dropped
// instead of padded with nil.
type CombineDrop struct {
	nodeMeta
	fn FuncRef
}

// NewCombineDrop creates an unpaired-dropping positional merge.
func NewCombineDrop(ids ident.Source, left, right Node, fn FuncRef) *CombineDrop {
	return &CombineDrop{nodeMeta: newMeta(ids, left, right), fn: fn}
}

func (*CombineDrop) Kind() Kind { return KindCombineDrop }

// Fn returns the combiner reference resolved at build time.
func (c *CombineDrop) Fn() FuncRef { return c.fn }

// Left returns the port-0 predecessor.
func (c *CombineDrop) Left() Node { return c.parents[0] }

// Right returns the port-1 predecessor.
func (c *CombineDrop) Right() Node { return c.parents[1] }

// Union merges the element streams of all parents into one stream.
type Union struct {
	nodeMeta
}

// NewUnion creates a merge of the given branches. Parent order determines
// input-port numbering.
func NewUnion(ids ident.Source, parents ...Node) *Union {
	return &Union{nodeMeta: newMeta(ids, parents...)}
}

func (*Union) Kind() Kind { return KindUnion }

// Consumer is a terminal sink: elements reaching it are handed to the
// sink function and do not flow further. A nil sink discards.
type Consumer struct {
	nodeMeta
	sink stream.Sink
}

// NewConsumer creates a terminal sink for parent's elements.
func NewConsumer(ids ident.Source, parent Node, sink stream.Sink) *Consumer {
	return &Consumer{nodeMeta: newMeta(ids, parent), sink: sink}
}

func (*Consumer) Kind() Kind     { return KindConsumer }
func (*Consumer) Terminal() bool { return true }

// Sink returns the sink function carried into the executable node.
func (c *Consumer) Sink() stream.Sink { return c.sink }
