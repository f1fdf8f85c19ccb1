// Package ident provides identity allocation for query graphs.
//
// Two identifier spaces exist: NodeID (one per graph node) and ScopeID
// (one per logical evaluation scope; structural copies of a scope node
// share it). Both are handed out by an explicit allocator passed into
// graph construction, so there is no hidden process-wide counter and
// tests can seed or reset identity sequences deterministically.
package ident

import "sync/atomic"

// NodeID uniquely identifies a node within a query graph.
//
// The zero value is NoNodeID and never allocated.
type NodeID int64

// ScopeID identifies a logical evaluation scope. Structural duplicates of
// the same scope node share a ScopeID while having distinct NodeIDs.
//
// The zero value is NoScopeID and never allocated.
type ScopeID int64

// Sentinel identifiers. Allocators start above these.
const (
	NoNodeID  NodeID  = 0
	NoScopeID ScopeID = 0
)

// IsValid reports whether the id was produced by an allocator.
func (id NodeID) IsValid() bool { return id > NoNodeID }

// IsValid reports whether the id was produced by an allocator.
func (id ScopeID) IsValid() bool { return id > NoScopeID }

// Source allocates graph identifiers.
//
// Graph-construction calls accept a Source rather than a concrete
// allocator so tests can substitute a resettable implementation.
type Source interface {
	// NextNodeID returns a node id never returned before by this source.
	NextNodeID() NodeID
	// NextScopeID returns a scope id never returned before by this source.
	NextScopeID() ScopeID
}

// Allocator is the production Source: two strictly increasing counters.
//
// Thread-safety: Allocator is safe for concurrent use (atomic operations),
// so independent goroutines may build disjoint graphs against one
// allocator without coordination.
type Allocator struct {
	node  atomic.Int64
	scope atomic.Int64
}

// NewAllocator creates an allocator whose first NextNodeID and
// NextScopeID calls return 1.
func NewAllocator() *Allocator {
	return &Allocator{}
}

// NewAllocatorAt creates an allocator resuming above the given positions.
// Used when extending a graph whose highest identifiers are known.
func NewAllocatorAt(node NodeID, scope ScopeID) *Allocator {
	a := &Allocator{}
	a.node.Store(int64(node))
	a.scope.Store(int64(scope))
	return a
}

// NextNodeID returns the next node id and advances the counter.
// Calls are linearizable - each call returns a unique, increasing value.
func (a *Allocator) NextNodeID() NodeID {
	return NodeID(a.node.Add(1))
}

// NextScopeID returns the next scope id and advances the counter.
func (a *Allocator) NextScopeID() ScopeID {
	return ScopeID(a.scope.Add(1))
}

// NodeTop returns the highest node id handed out so far.
func (a *Allocator) NodeTop() NodeID {
	return NodeID(a.node.Load())
}

// ScopeTop returns the highest scope id handed out so far.
func (a *Allocator) ScopeTop() ScopeID {
	return ScopeID(a.scope.Load())
}
