// Package testutil provides deterministic test doubles for identity
// allocation and build-token generation.
package testutil

import (
	"sync"

	"github.com/roach88/flume/internal/ident"
)

// DeterministicAllocator provides a thread-safe, resettable identity source
// for tests.
//
// Unlike ident.Allocator, DeterministicAllocator can be reset for test reuse.
// This enables the same scenario to run multiple times with identical node
// and scope ids.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicAllocator struct {
	mu    sync.Mutex
	node  int64
	scope int64
}

// NewDeterministicAllocator creates a new allocator starting at 0.
//
// The first call to NextNodeID (or NextScopeID) returns 1.
func NewDeterministicAllocator() *DeterministicAllocator {
	return &DeterministicAllocator{}
}

// NextNodeID increments and returns the next node id.
//
// Implements ident.Source.
func (a *DeterministicAllocator) NextNodeID() ident.NodeID {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.node++
	return ident.NodeID(a.node)
}

// NextScopeID increments and returns the next scope id.
//
// Implements ident.Source.
func (a *DeterministicAllocator) NextScopeID() ident.ScopeID {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.scope++
	return ident.ScopeID(a.scope)
}

// NodeTop returns the highest node id handed out so far without advancing.
func (a *DeterministicAllocator) NodeTop() ident.NodeID {
	a.mu.Lock()
	defer a.mu.Unlock()
	return ident.NodeID(a.node)
}

// ScopeTop returns the highest scope id handed out so far without advancing.
func (a *DeterministicAllocator) ScopeTop() ident.ScopeID {
	a.mu.Lock()
	defer a.mu.Unlock()
	return ident.ScopeID(a.scope)
}

// Reset resets both counters to 0.
//
// Used for test reuse. After Reset(), the next NextNodeID call returns 1.
func (a *DeterministicAllocator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.node = 0
	a.scope = 0
}
