package queryir

import (
	"errors"
	"fmt"
)

// Validate checks a graph's structural integrity before translation:
//
//  1. Every parent edge points at a member of the graph - a node whose
//     parent was never Add-ed (or is nil) cannot be translated.
//  2. Arity: Union needs at least one parent. Other arities are fixed by
//     the constructors.
//  3. Scope pairing is bidirectional: u in s.unscopes exactly when s in
//     u.scopeStarts, and every pairing counterpart is itself a member of
//     the graph. A counterpart outside the graph usually means a Copy was
//     made but never added.
//
// An Unscope whose scope set has been emptied by Delete is legal here:
// construction rejects empty sets, but deleting a scope legitimately
// leaves its closers with nothing to strip.
//
// All problems found are reported together, joined into one error.
// Validate is a pure function with no side effects.
func Validate(g *Graph) error {
	v := &validator{graph: g}
	for _, n := range g.Nodes() {
		v.validateNode(n)
	}
	return errors.Join(v.issues...)
}

// validator accumulates problems during traversal.
type validator struct {
	graph  *Graph
	issues []error
}

// addIssue appends a problem report.
func (v *validator) addIssue(format string, args ...any) {
	v.issues = append(v.issues, fmt.Errorf(format, args...))
}

func (v *validator) validateNode(n Node) {
	if !n.ID().IsValid() {
		v.addIssue("node %d (%s): id was not allocated", n.ID(), n.Kind())
	}

	for i, p := range n.Parents() {
		if p == nil {
			v.addIssue("node %d (%s): parent %d is nil", n.ID(), n.Kind(), i)
			continue
		}
		member, ok := v.graph.Node(p.ID())
		if !ok {
			v.addIssue("node %d (%s): parent %d (node %d) is not in the graph", n.ID(), n.Kind(), i, p.ID())
			continue
		}
		if member != p {
			v.addIssue("node %d (%s): parent %d has id %d but is a different node than the member with that id", n.ID(), n.Kind(), i, p.ID())
		}
	}

	switch t := n.(type) {
	case *Union:
		if len(t.Parents()) == 0 {
			v.addIssue("node %d (union): no parents", n.ID())
		}
	case *Scope:
		v.validateScopePairing(t)
	case *Unscope:
		v.validateUnscopePairing(t)
	}
}

func (v *validator) validateScopePairing(s *Scope) {
	for _, u := range s.Unscopes() {
		if got, ok := u.scopeStarts[s.ID()]; !ok || got != s {
			v.addIssue("scope %d: paired unscope %d does not point back", s.ID(), u.ID())
		}
		if _, ok := v.graph.Node(u.ID()); !ok {
			v.addIssue("scope %d: paired unscope %d is not in the graph", s.ID(), u.ID())
		}
	}
}

func (v *validator) validateUnscopePairing(u *Unscope) {
	for _, s := range u.ScopeStarts() {
		if got, ok := s.unscopes[u.ID()]; !ok || got != u {
			v.addIssue("unscope %d: paired scope %d does not point back", u.ID(), s.ID())
		}
		if _, ok := v.graph.Node(s.ID()); !ok {
			v.addIssue("unscope %d: paired scope %d is not in the graph", u.ID(), s.ID())
		}
	}
}
