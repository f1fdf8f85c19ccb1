package queryir

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flume/internal/ident"
	"github.com/roach88/flume/internal/stream"
)

func TestNode_ConstructionAssignsIncreasingIDs(t *testing.T) {
	ids := ident.NewAllocator()

	root := NewRoot(ids)
	m := NewMap(ids, root, NamedFunc("double"))
	c := NewConsumer(ids, m, nil)

	assert.Equal(t, ident.NodeID(1), root.ID())
	assert.Equal(t, ident.NodeID(2), m.ID())
	assert.Equal(t, ident.NodeID(3), c.ID())
}

func TestNode_ParentsInPortOrder(t *testing.T) {
	ids := ident.NewAllocator()
	root := NewRoot(ids)
	left := NewMap(ids, root, NamedFunc("a"))
	right := NewMap(ids, root, NamedFunc("b"))

	cmb := NewCombine(ids, left, right, NamedFunc("pair"))

	require.Len(t, cmb.Parents(), 2)
	assert.Same(t, left, cmb.Parents()[0], "left branch is input port 0")
	assert.Same(t, right, cmb.Parents()[1], "right branch is input port 1")
	assert.Same(t, left, cmb.Left())
	assert.Same(t, right, cmb.Right())
}

func TestRoot_HasNoParents(t *testing.T) {
	ids := ident.NewAllocator()
	root := NewRoot(ids)

	assert.Empty(t, root.Parents())
	assert.Equal(t, KindRoot, root.Kind())
}

func TestNode_Kinds(t *testing.T) {
	ids := ident.NewAllocator()
	root := NewRoot(ids)
	scope := NewScope(ids, root, ids.NextScopeID())
	unscope, err := NewUnscope(ids, scope, scope)
	require.NoError(t, err)

	tests := []struct {
		node Node
		kind Kind
	}{
		{root, KindRoot},
		{NewMap(ids, root, NamedFunc("f")), KindMap},
		{NewFlatMap(ids, root, NamedFunc("f")), KindFlatMap},
		{NewFilter(ids, root, NamedFunc("p")), KindFilter},
		{NewFilterNonNull(ids, root), KindFilterNonNull},
		{NewFilterType(ids, root, reflect.TypeOf("")), KindFilterType},
		{NewAggregate(ids, root, NamedFunc("sum")), KindAggregate},
		{NewAggregateDrop(ids, root, NamedFunc("sum")), KindAggregateDrop},
		{NewCombine(ids, root, root, NamedFunc("c")), KindCombine},
		{NewCombineDrop(ids, root, root, NamedFunc("c")), KindCombineDrop},
		{NewUnion(ids, root), KindUnion},
		{NewConsumer(ids, root, nil), KindConsumer},
		{scope, KindScope},
		{unscope, KindUnscope},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.node.Kind())
		})
	}
}

func TestNode_TerminalFlag(t *testing.T) {
	ids := ident.NewAllocator()
	root := NewRoot(ids)
	m := NewMap(ids, root, NamedFunc("f"))
	c := NewConsumer(ids, m, nil)

	assert.False(t, root.Terminal())
	assert.False(t, m.Terminal())
	assert.True(t, c.Terminal(), "consumer is the terminal sink")
}

func TestNode_SealedInterface(t *testing.T) {
	ids := ident.NewAllocator()
	root := NewRoot(ids)

	// Type switch is exhaustive - the builder relies on this set being closed.
	nodes := []Node{
		root,
		NewMap(ids, root, NamedFunc("f")),
		NewUnion(ids, root),
		NewConsumer(ids, root, nil),
	}
	for _, n := range nodes {
		switch n.(type) {
		case *Root, *Map, *FlatMap, *Filter, *FilterNonNull, *FilterType,
			*Aggregate, *AggregateDrop, *Combine, *CombineDrop,
			*Union, *Consumer, *Scope, *Unscope:
			// OK
		default:
			t.Fatalf("unexpected node type %T", n)
		}
	}
}

func TestFilterType_DeduplicatesAndOrders(t *testing.T) {
	ids := ident.NewAllocator()
	root := NewRoot(ids)

	strType := reflect.TypeOf("")
	intType := reflect.TypeOf(0)

	// Duplicates and nils collapse; order of arguments does not matter.
	f1 := NewFilterType(ids, root, strType, intType, strType, nil)
	f2 := NewFilterType(ids, root, intType, strType)

	require.Len(t, f1.Types(), 2)
	assert.Equal(t, f1.Types(), f2.Types(), "type sets are held in deterministic order")
}

func TestFilterType_EmptySet(t *testing.T) {
	ids := ident.NewAllocator()
	root := NewRoot(ids)

	// An empty acceptable set is representable; it keeps nothing at runtime.
	f := NewFilterType(ids, root)
	assert.Empty(t, f.Types())
}

func TestUnion_ArityFollowsParents(t *testing.T) {
	ids := ident.NewAllocator()
	root := NewRoot(ids)
	a := NewMap(ids, root, NamedFunc("a"))
	b := NewMap(ids, root, NamedFunc("b"))
	c := NewMap(ids, root, NamedFunc("c"))

	u := NewUnion(ids, a, b, c)
	assert.Len(t, u.Parents(), 3)
}

func TestConsumer_CarriesSink(t *testing.T) {
	ids := ident.NewAllocator()
	root := NewRoot(ids)

	var got []stream.Element
	c := NewConsumer(ids, root, func(e stream.Element) { got = append(got, e) })

	require.NotNil(t, c.Sink())
	c.Sink()("x")
	assert.Equal(t, []stream.Element{"x"}, got)
}

func TestInlineFunc_PointerIdentity(t *testing.T) {
	double := func(e stream.Element) stream.Element { return e.(int) * 2 }

	a := Inline(stream.Mapper(double))
	b := Inline(stream.Mapper(double))

	// Two wrappers around the same Go function are distinct lambdas.
	assert.NotSame(t, a, b)

	var ra FuncRef = a
	var rb FuncRef = a
	assert.Equal(t, ra, rb, "the same wrapper compares equal as a FuncRef")
}

func TestNamedFunc_EqualByName(t *testing.T) {
	var a FuncRef = NamedFunc("double")
	var b FuncRef = NamedFunc("double")
	var c FuncRef = NamedFunc("triple")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestFuncRef_UsableAsMapKey(t *testing.T) {
	inline := Inline(stream.Mapper(func(e stream.Element) stream.Element { return e }))

	memo := map[FuncRef]int{
		NamedFunc("double"): 1,
		inline:              2,
	}

	assert.Equal(t, 1, memo[NamedFunc("double")])
	assert.Equal(t, 2, memo[inline])
}
