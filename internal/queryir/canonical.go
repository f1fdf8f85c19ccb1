package queryir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces the canonical JSON form of a graph, the ONLY
// serialization used for structural-identity computation (Fingerprint).
//
// Determinism rules:
//  1. Nodes emitted in ascending node-id order
//  2. Object keys emitted in a fixed (alphabetical) order
//  3. Strings NFC normalized, JSON-encoded without HTML escaping
//  4. Inline lambdas identified by first-encounter ordinal, so the form
//     is stable across process runs (pointer values never leak in)
//
// Sinks and function implementations do not participate: two graphs with
// the same shape, ids, and function references are canonically equal even
// when their Go function values differ.
func MarshalCanonical(g *Graph) ([]byte, error) {
	nodes := g.Nodes()
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID() < nodes[j].ID() })

	inlines := make(map[*InlineFunc]int)
	var buf bytes.Buffer
	buf.WriteString(`{"nodes":[`)
	for i, n := range nodes {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeCanonicalNode(&buf, n, inlines); err != nil {
			return nil, err
		}
	}
	buf.WriteString(`]}`)
	return buf.Bytes(), nil
}

func writeCanonicalNode(buf *bytes.Buffer, n Node, inlines map[*InlineFunc]int) error {
	buf.WriteByte('{')

	// Fixed key order: fn, id, kind, parents, scope, scopes, types.
	if ref, ok := funcRefOf(n); ok {
		buf.WriteString(`"fn":`)
		if err := writeCanonicalFuncRef(buf, n, ref, inlines); err != nil {
			return err
		}
		buf.WriteByte(',')
	}

	fmt.Fprintf(buf, `"id":%d,"kind":`, n.ID())
	if err := writeCanonicalString(buf, string(n.Kind())); err != nil {
		return err
	}

	buf.WriteString(`,"parents":[`)
	for i, p := range n.Parents() {
		if p == nil {
			return fmt.Errorf("node %d: nil parent %d", n.ID(), i)
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		fmt.Fprintf(buf, "%d", p.ID())
	}
	buf.WriteByte(']')

	switch v := n.(type) {
	case *Scope:
		fmt.Fprintf(buf, `,"scope":%d`, v.scope)
	case *Unscope:
		buf.WriteString(`,"scopes":[`)
		for i, id := range v.ScopeIDs() {
			if i > 0 {
				buf.WriteByte(',')
			}
			fmt.Fprintf(buf, "%d", id)
		}
		buf.WriteByte(']')
	case *FilterType:
		buf.WriteString(`,"types":[`)
		for i, t := range v.types {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonicalString(buf, t.String()); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	}

	buf.WriteByte('}')
	return nil
}

// funcRefOf extracts the transform reference of function-carrying
// variants. Consumer sinks deliberately excluded: a sink is an opaque
// side effect, not part of the graph's structural identity.
func funcRefOf(n Node) (FuncRef, bool) {
	switch v := n.(type) {
	case *Map:
		return v.fn, true
	case *FlatMap:
		return v.fn, true
	case *Filter:
		return v.fn, true
	case *Aggregate:
		return v.fn, true
	case *AggregateDrop:
		return v.fn, true
	case *Combine:
		return v.fn, true
	case *CombineDrop:
		return v.fn, true
	default:
		return nil, false
	}
}

func writeCanonicalFuncRef(buf *bytes.Buffer, n Node, ref FuncRef, inlines map[*InlineFunc]int) error {
	switch r := ref.(type) {
	case *InlineFunc:
		ord, ok := inlines[r]
		if !ok {
			ord = len(inlines) + 1
			inlines[r] = ord
		}
		fmt.Fprintf(buf, `{"inline":%d}`, ord)
		return nil
	case NamedFunc:
		buf.WriteString(`{"name":`)
		if err := writeCanonicalString(buf, string(r)); err != nil {
			return err
		}
		buf.WriteByte('}')
		return nil
	case nil:
		return fmt.Errorf("node %d (%s): missing function reference", n.ID(), n.Kind())
	default:
		return fmt.Errorf("node %d (%s): unsupported function reference type %T", n.ID(), n.Kind(), ref)
	}
}

// writeCanonicalString emits a JSON string, NFC normalized at the
// serialization boundary, without HTML escaping (< > & stay literal).
func writeCanonicalString(buf *bytes.Buffer, s string) error {
	normalized := norm.NFC.String(s)

	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return err
	}

	// json.Encoder adds a trailing newline, remove it.
	out := tmp.Bytes()
	if len(out) > 0 && out[len(out)-1] == '\n' {
		out = out[:len(out)-1]
	}
	buf.Write(out)
	return nil
}
