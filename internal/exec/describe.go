package exec

import (
	"fmt"
	"strings"
)

// Describe renders a pipeline as an indented tree, entry first, consumers
// in attach order. Nodes reached through more than one edge print in
// full at their first visit and as a one-line reference afterwards. The
// output is deterministic for a given build and is meant for golden
// tests and debugging.
func Describe(p *Pipeline) string {
	var b strings.Builder
	fmt.Fprintf(&b, "pipeline token=%s nodes=%d\n", p.token, p.size)
	seen := make(map[Node]bool)
	var walk func(n Node, depth int)
	walk = func(n Node, depth int) {
		b.WriteString(strings.Repeat("  ", depth))
		b.WriteString(label(n))
		if seen[n] {
			b.WriteString(" (shared)\n")
			return
		}
		seen[n] = true
		b.WriteByte('\n')
		for _, c := range n.Consumers() {
			walk(c, depth+1)
		}
	}
	walk(p.root, 0)
	return b.String()
}

func label(n Node) string {
	switch v := n.(type) {
	case *Root:
		return fmt.Sprintf("root#%d", v.Origin())
	case *Map:
		return fmt.Sprintf("map#%d fn=%s", v.Origin(), v.f)
	case *FlatMap:
		return fmt.Sprintf("flat_map#%d fn=%s", v.Origin(), v.f)
	case *Filter:
		return fmt.Sprintf("filter#%d fn=%s", v.Origin(), v.f)
	case *FilterNonNull:
		return fmt.Sprintf("filter_non_null#%d", v.Origin())
	case *FilterType:
		names := make([]string, len(v.types))
		for i, t := range v.types {
			names[i] = t.String()
		}
		return fmt.Sprintf("filter_type#%d types=[%s]", v.Origin(), strings.Join(names, " "))
	case *Aggregate:
		return fmt.Sprintf("%s#%d fn=%s", v.kind, v.Origin(), v.f)
	case *Combine:
		return fmt.Sprintf("%s#%d fn=%s", v.kind, v.Origin(), v.f)
	case *Union:
		return fmt.Sprintf("union#%d arity=%d", v.Origin(), v.arity)
	case *Scope:
		return fmt.Sprintf("scope#%d opens=%d", v.Origin(), v.scope)
	case *Unscope:
		parts := make([]string, len(v.order))
		for i, s := range v.order {
			parts[i] = fmt.Sprintf("%d", s)
		}
		return fmt.Sprintf("unscope#%d closes=[%s]", v.Origin(), strings.Join(parts, " "))
	case *Consumer:
		return fmt.Sprintf("consumer#%d", v.Origin())
	default:
		return fmt.Sprintf("%s#%d", n.Kind(), n.Origin())
	}
}
