package exec

import (
	"github.com/roach88/flume/internal/ident"
	"github.com/roach88/flume/internal/stream"
)

// Kind identifies the runtime behavior of an executable node.
type Kind string

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

// messageKind distinguishes data elements from the control markers that
// delimit scope brackets and end of input.
type messageKind uint8

const (
	msgData messageKind = iota
	msgOpen
	msgClose
	msgEOF
)

// message is the unit pushed along executable edges. Data messages carry
// an element; open and close markers carry the scope id they bracket.
type message struct {
	kind  messageKind
	elem  stream.Element
	scope ident.ScopeID
}

// Node is an executable graph node. Implementations live in this package
// only; the unexported methods seal the interface.
type Node interface {
	// Origin reports the id of the query node this node was translated
	// from.
	Origin() ident.NodeID

	// Kind reports the node's runtime behavior.
	Kind() Kind

	// Consumers returns the attached downstream nodes in attach order.
	// A node attached on several ports appears once per port.
	Consumers() []Node

	addConsumer(n Node, port int)
	feed(rs *runState, m message, port int)
}

// Attach wires child as a downstream consumer of parent, receiving
// parent's output on the given input port. Ports are meaningful for
// multi-input nodes (0 and 1 for combine sides, 0..arity-1 for union);
// single-input nodes ignore them. Attach is not safe for concurrent use
// and must not be called once the pipeline is executing.
func Attach(parent, child Node, port int) {
	parent.addConsumer(child, port)
}

// edge is one downstream attachment.
type edge struct {
	node Node
	port int
}

// base carries the origin id and downstream edges shared by every node.
type base struct {
	origin    ident.NodeID
	consumers []edge
}

func (b *base) Origin() ident.NodeID { return b.origin }

func (b *base) Consumers() []Node {
	out := make([]Node, len(b.consumers))
	for i, e := range b.consumers {
		out[i] = e.node
	}
	return out
}

func (b *base) addConsumer(n Node, port int) {
	b.consumers = append(b.consumers, edge{node: n, port: port})
}

// emit pushes a message to every attached consumer, depth first.
func (b *base) emit(rs *runState, m message) {
	for _, e := range b.consumers {
		e.node.feed(rs, m, e.port)
	}
}

// runState holds all mutable progress of one execution, keyed by node.
// Node descriptors stay immutable so concurrent executions never contend.
type runState struct {
	states map[Node]any
}

func newRunState() *runState {
	return &runState{states: make(map[Node]any)}
}

// stateFor returns the per-run state of n, creating it on first use.
func stateFor[T any](rs *runState, n Node, init func() *T) *T {
	if s, ok := rs.states[n]; ok {
		return s.(*T)
	}
	s := init()
	rs.states[n] = s
	return s
}

// markerKey identifies one logical marker as it arrives on the input
// ports of a multi-input node. End-of-input markers share a single key.
type markerKey struct {
	kind  messageKind
	scope ident.ScopeID
}

// arrival tracks which input ports have seen a marker.
type arrival struct {
	seen  []bool
	count int
}

// markArrival records a marker arriving on the given port and reports
// whether every port has now seen it. Completed markers are cleared so
// the next bracket of the same scope counts fresh.
func markArrival(pending map[markerKey]*arrival, key markerKey, port, arity int) bool {
	a := pending[key]
	if a == nil {
		a = &arrival{seen: make([]bool, arity)}
		pending[key] = a
	}
	if port >= 0 && port < arity && !a.seen[port] {
		a.seen[port] = true
		a.count++
	}
	if a.count == arity {
		delete(pending, key)
		return true
	}
	return false
}
