package queryir

import (
	"fmt"

	"github.com/roach88/flume/internal/ident"
)

// Rewrite materializes the substitutions in table as a new graph.
//
// Parent lists are immutable, so replacing one node ripples: every
// downstream node whose (transitive) parents were substituted is cloned
// with the substituted parents, under a fresh node id, and the clone is
// recorded in the table so nodes further downstream see it. The walk runs
// in dependency order, which keeps every table consultation a single hop.
//
// Scope cross-links are repaired as the last step: ApplyTranslation runs
// once per Scope and Unscope of the rewritten graph, in dependency order.
// Cloned Scopes re-register with their paired Unscopes through the copy
// semantics; cloned Unscopes are Rebind-ed because their clone is a real
// closing edge in the new graph.
//
// The input graph is left semantically intact except for pairing state on
// nodes shared with the output; callers are expected to discard it.
func Rewrite(g *Graph, ids ident.Source, table *TranslationTable) (*Graph, error) {
	if table == nil {
		table = NewTranslationTable()
	}
	order, err := g.DependencyOrder()
	if err != nil {
		return nil, err
	}

	out := NewGraph()
	for _, n := range order {
		if repl, ok := table.Lookup(n); ok {
			out.Add(repl)
			continue
		}
		parents := n.Parents()
		resolved := make([]Node, len(parents))
		redirected := false
		for i, p := range parents {
			resolved[i] = p
			if repl, ok := table.Lookup(p); ok {
				resolved[i] = repl
				redirected = true
			}
		}
		if !redirected {
			out.Add(n)
			continue
		}
		clone, err := cloneWith(ids, n, resolved)
		if err != nil {
			return nil, err
		}
		table.Map(n, clone)
		out.Add(clone)
	}

	final, err := out.DependencyOrder()
	if err != nil {
		return nil, err
	}
	for _, n := range final {
		switch v := n.(type) {
		case *Scope:
			v.ApplyTranslation(table)
		case *Unscope:
			v.ApplyTranslation(table)
		}
	}
	return out, nil
}

// cloneWith duplicates n under a fresh id with the given parents, which
// must match n's arity. Payloads carry over; scope pairing follows the
// copy semantics of each side.
func cloneWith(ids ident.Source, n Node, parents []Node) (Node, error) {
	switch v := n.(type) {
	case *Root:
		return NewRoot(ids), nil
	case *Map:
		return NewMap(ids, parents[0], v.fn), nil
	case *FlatMap:
		return NewFlatMap(ids, parents[0], v.fn), nil
	case *Filter:
		return NewFilter(ids, parents[0], v.fn), nil
	case *FilterNonNull:
		return NewFilterNonNull(ids, parents[0]), nil
	case *FilterType:
		return NewFilterType(ids, parents[0], v.types...), nil
	case *Aggregate:
		return NewAggregate(ids, parents[0], v.fn), nil
	case *AggregateDrop:
		return NewAggregateDrop(ids, parents[0], v.fn), nil
	case *Combine:
		return NewCombine(ids, parents[0], parents[1], v.fn), nil
	case *CombineDrop:
		return NewCombineDrop(ids, parents[0], parents[1], v.fn), nil
	case *Union:
		return NewUnion(ids, parents...), nil
	case *Consumer:
		return NewConsumer(ids, parents[0], v.sink), nil
	case *Scope:
		return v.copyWith(ids, parents[0]), nil
	case *Unscope:
		c := v.copyWith(ids, parents[0])
		c.Rebind()
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported query node type: %T", n)
	}
}
