package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flume/internal/ident"
)

func TestGraph_Add_Transitive(t *testing.T) {
	ids := ident.NewAllocator()
	root := NewRoot(ids)
	m := NewMap(ids, root, NamedFunc("f"))
	c := NewConsumer(ids, m, nil)

	g := NewGraph()
	g.Add(c) // seeding with the sink pulls in the whole chain

	assert.Equal(t, 3, g.Len())
	for _, n := range []Node{root, m, c} {
		got, ok := g.Node(n.ID())
		require.True(t, ok, "node %d should be a member", n.ID())
		assert.Same(t, n, got)
	}
}

func TestGraph_Add_Idempotent(t *testing.T) {
	ids := ident.NewAllocator()
	root := NewRoot(ids)
	m := NewMap(ids, root, NamedFunc("f"))

	g := NewGraph()
	g.Add(m)
	g.Add(m)
	g.Add(root)

	assert.Equal(t, 2, g.Len())
}

func TestGraph_Add_IgnoresNil(t *testing.T) {
	g := NewGraph()
	g.Add(nil)
	assert.Equal(t, 0, g.Len())
}

func TestGraph_DependencyOrder_ParentsFirst(t *testing.T) {
	ids := ident.NewAllocator()
	root := NewRoot(ids)
	left := NewMap(ids, root, NamedFunc("a"))
	right := NewMap(ids, root, NamedFunc("b"))
	cmb := NewCombine(ids, left, right, NamedFunc("pair"))
	c := NewConsumer(ids, cmb, nil)

	g := NewGraph()
	g.Add(c)

	order, err := g.DependencyOrder()
	require.NoError(t, err)
	require.Len(t, order, 5)

	pos := make(map[ident.NodeID]int)
	for i, n := range order {
		pos[n.ID()] = i
	}
	for _, n := range order {
		for _, p := range n.Parents() {
			assert.Less(t, pos[p.ID()], pos[n.ID()],
				"parent %d must come before node %d", p.ID(), n.ID())
		}
	}
}

func TestGraph_DependencyOrder_Deterministic(t *testing.T) {
	ids := ident.NewAllocator()
	root := NewRoot(ids)
	a := NewMap(ids, root, NamedFunc("a"))
	b := NewMap(ids, root, NamedFunc("b"))
	u := NewUnion(ids, a, b)
	c := NewConsumer(ids, u, nil)

	g := NewGraph()
	g.Add(c)

	first, err := g.DependencyOrder()
	require.NoError(t, err)
	second, err := g.DependencyOrder()
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Same(t, first[i], second[i], "walks over the same graph must agree")
	}
}

func TestGraph_DependencyOrder_SharedUpstreamOnce(t *testing.T) {
	ids := ident.NewAllocator()
	root := NewRoot(ids)
	shared := NewMap(ids, root, NamedFunc("f"))
	cmb := NewCombine(ids, shared, shared, NamedFunc("pair"))

	g := NewGraph()
	g.Add(cmb)

	order, err := g.DependencyOrder()
	require.NoError(t, err)

	count := 0
	for _, n := range order {
		if n.ID() == shared.ID() {
			count++
		}
	}
	assert.Equal(t, 1, count, "a node reachable twice appears once")
}

func TestGraph_DependencyOrder_DetectsCycle(t *testing.T) {
	// Parent lists are immutable through the public API, so a real cycle
	// cannot be constructed. Forge one to prove the walker does not trust
	// its input.
	a := &Map{nodeMeta: nodeMeta{id: 1}, fn: NamedFunc("a")}
	b := &Map{nodeMeta: nodeMeta{id: 2}, fn: NamedFunc("b")}
	a.parents = []Node{b}
	b.parents = []Node{a}

	g := NewGraph()
	g.Add(a)

	_, err := g.DependencyOrder()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestGraph_Nodes_InsertionOrder(t *testing.T) {
	ids := ident.NewAllocator()
	root := NewRoot(ids)
	m := NewMap(ids, root, NamedFunc("f"))

	g := NewGraph()
	g.Add(root)
	g.Add(m)

	nodes := g.Nodes()
	require.Len(t, nodes, 2)
	assert.Same(t, root, nodes[0])
	assert.Same(t, m, nodes[1])
}

func TestTranslationTable_Basics(t *testing.T) {
	ids := ident.NewAllocator()
	root := NewRoot(ids)
	old := NewMap(ids, root, NamedFunc("f"))
	repl := NewMap(ids, root, NamedFunc("g"))

	table := NewTranslationTable()
	assert.Equal(t, 0, table.Len())

	_, ok := table.Lookup(old)
	assert.False(t, ok)

	table.Map(old, repl)
	got, ok := table.Lookup(old)
	require.True(t, ok)
	assert.Same(t, repl, got)
	assert.Equal(t, 1, table.Len())

	// Re-mapping overwrites.
	repl2 := NewMap(ids, root, NamedFunc("h"))
	table.Map(old, repl2)
	got, _ = table.Lookup(old)
	assert.Same(t, repl2, got)
	assert.Equal(t, 1, table.Len())
}

func TestTranslationTable_NilSafety(t *testing.T) {
	var table *TranslationTable

	_, ok := table.Lookup(nil)
	assert.False(t, ok, "nil table looks up nothing")
	assert.Equal(t, 0, table.Len())
}
