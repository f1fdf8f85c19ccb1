package queryir

import (
	"fmt"
	"sort"

	"github.com/roach88/flume/internal/ident"
)

// Scope opens an evaluation context: downstream of a Scope node, each
// element of the parent stream is processed within its own bracketed
// context until a paired Unscope closes it. Scope carries two identities:
// its node id (structural, unique) and its scope id (logical; structural
// duplicates of the same scope share it).
//
// The unscopes set is the Scope side of the pairing invariant: after any
// lifecycle operation, u is in s's unscopes exactly when s is in u's
// scopeStarts. All mutation goes through pair/unpair below - callers never
// touch the sets directly, which is what keeps a half-linked pair
// unrepresentable.
type Scope struct {
	nodeMeta
	scope    ident.ScopeID
	unscopes map[ident.NodeID]*Unscope
}

// NewScope creates a scope opener over parent's elements. The scope id
// comes from the caller so that structural duplicates can share it; fresh
// scopes take ids.NextScopeID().
func NewScope(ids ident.Source, parent Node, scope ident.ScopeID) *Scope {
	return &Scope{
		nodeMeta: newMeta(ids, parent),
		scope:    scope,
		unscopes: make(map[ident.NodeID]*Unscope),
	}
}

func (*Scope) Kind() Kind { return KindScope }

// ScopeID returns the logical scope identity.
func (s *Scope) ScopeID() ident.ScopeID { return s.scope }

// Unscopes returns the paired Unscope nodes sorted by node id.
func (s *Scope) Unscopes() []*Unscope {
	out := make([]*Unscope, 0, len(s.unscopes))
	for _, u := range s.unscopes {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// CanMergeWith reports whether s and o are structurally identical for
// deduplication purposes: same logical scope id. Node ids and pairing
// sets deliberately do not participate - a rewrite pass merging two
// eligible scopes repairs the pairings via ApplyTranslation.
func (s *Scope) CanMergeWith(o *Scope) bool {
	if o == nil {
		return false
	}
	return s.scope == o.scope
}

// Copy duplicates the scope under a fresh node id, keeping the same
// logical scope id and the same parent. The duplicate is re-registered
// with every paired Unscope on both sides: each such Unscope afterwards
// terminates both the original and the duplicate.
func (s *Scope) Copy(ids ident.Source) *Scope {
	return s.copyWith(ids, s.parents[0])
}

func (s *Scope) copyWith(ids ident.Source, parent Node) *Scope {
	c := NewScope(ids, parent, s.scope)
	for _, u := range s.unscopes {
		pair(c, u)
	}
	return c
}

// ApplyTranslation redirects pairings after a rewrite: for each paired
// Unscope that the table maps to a replacement, the stale pairing is
// removed and the replacement pairing installed, both directions. Exactly
// one redirection hop - the table is consulted once per counterpart, never
// chased transitively. Counterparts the table does not map (or maps to a
// non-Unscope node) are left untouched.
func (s *Scope) ApplyTranslation(t *TranslationTable) {
	for _, u := range s.Unscopes() {
		repl, ok := t.Lookup(u)
		if !ok {
			continue
		}
		ru, ok := repl.(*Unscope)
		if !ok || ru == u {
			continue
		}
		unpair(s, u)
		pair(s, ru)
	}
}

// Delete removes the scope from every paired Unscope's scopeStarts and
// empties its own set, leaving no dangling back-references. The node
// itself may linger in discarded structures afterwards; nothing points
// back at it.
func (s *Scope) Delete() {
	for _, u := range s.Unscopes() {
		unpair(s, u)
	}
}

// Unscope closes evaluation contexts opened by its paired Scope nodes.
// scopeStarts is the Unscope side of the pairing invariant; it is
// non-empty at construction and mutated only through the lifecycle
// operations.
type Unscope struct {
	nodeMeta
	scopeStarts map[ident.NodeID]*Scope
}

// NewUnscope creates a scope closer over parent's elements, paired with
// the given scopes on both sides. At least one scope is required: an
// Unscope that closes nothing is meaningless and fails construction.
func NewUnscope(ids ident.Source, parent Node, scopes ...*Scope) (*Unscope, error) {
	if len(scopes) == 0 {
		return nil, fmt.Errorf("unscope requires at least one scope")
	}
	u := &Unscope{
		nodeMeta:    newMeta(ids, parent),
		scopeStarts: make(map[ident.NodeID]*Scope, len(scopes)),
	}
	for _, s := range scopes {
		if s == nil {
			return nil, fmt.Errorf("unscope scope must not be nil")
		}
		pair(s, u)
	}
	return u, nil
}

func (*Unscope) Kind() Kind { return KindUnscope }

// ScopeStarts returns the paired Scope nodes sorted by node id.
func (u *Unscope) ScopeStarts() []*Scope {
	out := make([]*Scope, 0, len(u.scopeStarts))
	for _, s := range u.scopeStarts {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// ScopeIDs returns the logical scope ids referenced by the paired scopes,
// deduplicated and ascending. This is the payload the executable node
// carries, and the basis of merge eligibility.
func (u *Unscope) ScopeIDs() []ident.ScopeID {
	seen := make(map[ident.ScopeID]bool, len(u.scopeStarts))
	out := make([]ident.ScopeID, 0, len(u.scopeStarts))
	for _, s := range u.scopeStarts {
		if seen[s.scope] {
			continue
		}
		seen[s.scope] = true
		out = append(out, s.scope)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// CanMergeWith reports whether u and o close the same logical scope set.
// The comparison is structural (scope ids), not reference equality on the
// scope nodes: two Unscopes pairing distinct duplicates of one logical
// scope are still mergeable.
func (u *Unscope) CanMergeWith(o *Unscope) bool {
	if o == nil {
		return false
	}
	a, b := u.ScopeIDs(), o.ScopeIDs()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Copy duplicates the unscope under a fresh node id with the same parent.
// The scopeStarts set is carried over, but the duplicate is NOT registered
// in the paired Scopes' unscopes sets: duplicating a closer does not by
// itself mean the scopes gain a second closing edge. Call Rebind on the
// copy if the duplication is a real new edge.
func (u *Unscope) Copy(ids ident.Source) *Unscope {
	return u.copyWith(ids, u.parents[0])
}

func (u *Unscope) copyWith(ids ident.Source, parent Node) *Unscope {
	c := &Unscope{
		nodeMeta:    newMeta(ids, parent),
		scopeStarts: make(map[ident.NodeID]*Scope, len(u.scopeStarts)),
	}
	for id, s := range u.scopeStarts {
		c.scopeStarts[id] = s
	}
	return c
}

// Rebind completes the pairings of a copied unscope: every scope in
// scopeStarts gains this node in its unscopes set. Idempotent.
func (u *Unscope) Rebind() {
	for _, s := range u.ScopeStarts() {
		pair(s, u)
	}
}

// ApplyTranslation redirects pairings after a rewrite, mirror image of
// Scope.ApplyTranslation: paired scopes mapped by the table are unpaired
// and the replacements paired in, one hop, both directions.
func (u *Unscope) ApplyTranslation(t *TranslationTable) {
	for _, s := range u.ScopeStarts() {
		repl, ok := t.Lookup(s)
		if !ok {
			continue
		}
		rs, ok := repl.(*Scope)
		if !ok || rs == s {
			continue
		}
		unpair(s, u)
		pair(rs, u)
	}
}

// Delete removes the unscope from every paired Scope's unscopes set and
// empties its own scopeStarts.
func (u *Unscope) Delete() {
	for _, s := range u.ScopeStarts() {
		unpair(s, u)
	}
}

// FlowType combines the flow classifications feeding this unscope: its own
// direct predecessor's classification joined with the classification of
// each paired Scope's single predecessor, reduced with Flow.Union. Any
// predecessor missing from classified yields FlowError - a designated
// value, not an error return, so classification of the rest of a graph
// can proceed.
func (u *Unscope) FlowType(classified map[ident.NodeID]Flow) Flow {
	flow, ok := flowOf(u.parents[0], classified)
	if !ok {
		return FlowError
	}
	for _, s := range u.ScopeStarts() {
		f, ok := flowOf(s.parents[0], classified)
		if !ok {
			return FlowError
		}
		flow = flow.Union(f)
	}
	return flow
}

// SecondaryLinks reports the node ids of the paired Scopes' predecessors,
// deduplicated and ascending - the cross-edges a renderer draws from an
// unscope back to the streams it merges. ok is false when any predecessor
// is missing from classified, mirroring FlowType's error value.
func (u *Unscope) SecondaryLinks(classified map[ident.NodeID]Flow) ([]ident.NodeID, bool) {
	seen := make(map[ident.NodeID]bool, len(u.scopeStarts))
	out := make([]ident.NodeID, 0, len(u.scopeStarts))
	for _, s := range u.ScopeStarts() {
		p := s.parents[0]
		if p == nil {
			return nil, false
		}
		if _, ok := classified[p.ID()]; !ok {
			return nil, false
		}
		if seen[p.ID()] {
			continue
		}
		seen[p.ID()] = true
		out = append(out, p.ID())
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, true
}

func flowOf(n Node, classified map[ident.NodeID]Flow) (Flow, bool) {
	if n == nil {
		return FlowError, false
	}
	f, ok := classified[n.ID()]
	return f, ok
}

// pair and unpair are the only mutations of pairing state. Both edit the
// two sides together, so the invariant
//
//	u in s.unscopes  <=>  s in u.scopeStarts
//
// holds after every call.
func pair(s *Scope, u *Unscope) {
	s.unscopes[u.id] = u
	u.scopeStarts[s.id] = s
}

func unpair(s *Scope, u *Unscope) {
	delete(s.unscopes, u.id)
	delete(u.scopeStarts, s.id)
}
