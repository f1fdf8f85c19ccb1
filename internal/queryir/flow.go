package queryir

import "github.com/roach88/flume/internal/ident"

// Flow classifies how many elements a node contributes downstream, used
// by diagnostics and rendering. It forms a small join lattice:
//
//	Unknown < Single < Optional < Many, with Error absorbing everything.
//
// Unknown is the zero value and the identity of Union; Error is the
// designated degraded value produced when classification inputs are
// unresolved. Classification never fails with an error return - a graph
// region that cannot be classified is simply marked FlowError.
type Flow int

const (
	// FlowUnknown is the zero value: not yet classified.
	FlowUnknown Flow = iota
	// FlowSingle: exactly one element.
	FlowSingle
	// FlowOptional: zero or one element.
	FlowOptional
	// FlowMany: any number of elements.
	FlowMany
	// FlowError: classification could not be resolved.
	FlowError
)

// Union joins two classifications. Associative and commutative; Error
// absorbs, Unknown is the identity.
func (f Flow) Union(o Flow) Flow {
	if f == FlowError || o == FlowError {
		return FlowError
	}
	if f < o {
		return o
	}
	return f
}

func (f Flow) String() string {
	switch f {
	case FlowUnknown:
		return "unknown"
	case FlowSingle:
		return "single"
	case FlowOptional:
		return "optional"
	case FlowMany:
		return "many"
	case FlowError:
		return "error"
	default:
		return "invalid"
	}
}

// ClassifyFlows computes the flow classification of every node in the
// graph, walking in dependency order so each node's predecessors are
// classified before the node itself - the ordering Unscope.FlowType
// requires of its Scope predecessors. Returns an error only when the
// graph has no dependency order (cycle); unresolvable classification
// within an ordered graph yields FlowError entries instead.
func ClassifyFlows(g *Graph) (map[ident.NodeID]Flow, error) {
	order, err := g.DependencyOrder()
	if err != nil {
		return nil, err
	}
	flows := make(map[ident.NodeID]Flow, len(order))
	for _, n := range order {
		flows[n.ID()] = classify(n, flows)
	}
	return flows, nil
}

func classify(n Node, flows map[ident.NodeID]Flow) Flow {
	switch v := n.(type) {
	case *Root:
		return FlowMany
	case *Unscope:
		return v.FlowType(flows)
	}

	// Remaining variants derive from their already-classified parents.
	in := FlowUnknown
	for _, p := range n.Parents() {
		f, ok := flowOf(p, flows)
		if !ok {
			return FlowError
		}
		in = in.Union(f)
	}

	switch v := n.(type) {
	case *Map, *Scope, *Consumer:
		return in
	case *FlatMap:
		return FlowMany
	case *Filter, *FilterNonNull, *FilterType:
		// Filtering can only remove: a guaranteed single becomes optional.
		if in == FlowSingle {
			return FlowOptional
		}
		return in
	case *Aggregate:
		return FlowSingle
	case *AggregateDrop:
		return FlowOptional
	case *Combine, *CombineDrop:
		return in
	case *Union:
		if len(v.Parents()) > 1 {
			return FlowMany
		}
		return in
	default:
		return FlowError
	}
}
