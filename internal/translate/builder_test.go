package translate

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flume/internal/exec"
	"github.com/roach88/flume/internal/ident"
	"github.com/roach88/flume/internal/queryir"
	"github.com/roach88/flume/internal/stream"
)

// collector is a sink recording everything delivered to it.
type collector struct {
	got []stream.Element
}

func (c *collector) sink(e stream.Element) { c.got = append(c.got, e) }

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	reg.MustRegister("double", stream.Mapper(func(e stream.Element) stream.Element {
		return e.(int) * 2
	}))
	reg.MustRegister("negate", stream.Mapper(func(e stream.Element) stream.Element {
		return -e.(int)
	}))
	reg.MustRegister("positive", stream.Predicate(func(e stream.Element) bool {
		return e.(int) > 0
	}))
	reg.MustRegister("count_up", stream.FlatMapper(func(e stream.Element) []stream.Element {
		n := e.(int)
		out := make([]stream.Element, 0, n)
		for i := 1; i <= n; i++ {
			out = append(out, i)
		}
		return out
	}))
	reg.MustRegister("sum", stream.Aggregator(func(es []stream.Element) stream.Element {
		total := 0
		for _, e := range es {
			total += e.(int)
		}
		return total
	}))
	reg.MustRegister("pair", stream.Combiner(func(l, r stream.Element) stream.Element {
		return fmt.Sprintf("%v/%v", l, r)
	}))
	return reg
}

func TestBuilder_BuildLinearPipeline(t *testing.T) {
	ids := ident.NewAllocator()
	g := queryir.NewGraph()
	root := queryir.NewRoot(ids)
	m := queryir.NewMap(ids, root, queryir.NamedFunc("double"))
	out := &collector{}
	g.Add(queryir.NewConsumer(ids, m, out.sink))

	b := New(ids, testRegistry(t), nil, NewFixedGenerator("build-1"))
	p, err := b.Build(g)
	require.NoError(t, err)

	assert.Equal(t, "build-1", p.Token())
	assert.Equal(t, 3, p.Size())

	exec.Run(p, []int{1, 2, 3})
	assert.Equal(t, []stream.Element{2, 4, 6}, out.got)
}

// A node feeding several downstream consumers is translated once; every
// downstream edge attaches to the same executable node.
func TestBuilder_SharedUpstreamTranslatedOnce(t *testing.T) {
	ids := ident.NewAllocator()
	g := queryir.NewGraph()
	root := queryir.NewRoot(ids)
	m := queryir.NewMap(ids, root, queryir.NamedFunc("double"))
	cmb := queryir.NewCombine(ids, m, m, queryir.NamedFunc("pair"))
	out := &collector{}
	g.Add(queryir.NewConsumer(ids, cmb, out.sink))

	b := New(ids, testRegistry(t), nil, NewFixedGenerator("build-1"))
	p, err := b.Build(g)
	require.NoError(t, err)

	assert.Equal(t, 4, p.Size())

	entry := p.Entry().Consumers()
	require.Len(t, entry, 1)
	ports := entry[0].Consumers()
	require.Len(t, ports, 2)
	assert.Same(t, ports[0], ports[1])

	exec.Run(p, []int{1, 2})
	assert.Equal(t, []stream.Element{"2/2", "4/4"}, out.got)
}

func TestBuilder_ScopedAggregationPipeline(t *testing.T) {
	ids := ident.NewAllocator()
	g := queryir.NewGraph()
	root := queryir.NewRoot(ids)
	sc := queryir.NewScope(ids, root, ids.NextScopeID())
	fm := queryir.NewFlatMap(ids, sc, queryir.NamedFunc("count_up"))
	agg := queryir.NewAggregateDrop(ids, fm, queryir.NamedFunc("sum"))
	un, err := queryir.NewUnscope(ids, agg, sc)
	require.NoError(t, err)
	out := &collector{}
	g.Add(queryir.NewConsumer(ids, un, out.sink))

	b := New(ids, testRegistry(t), nil, NewFixedGenerator("build-1"))
	p, err := b.Build(g)
	require.NoError(t, err)

	exec.Run(p, []int{3, 2})
	assert.Equal(t, []stream.Element{6, 3}, out.got)
}

// One build holding every node variant at once.
func TestBuilder_AllVariantsTranslate(t *testing.T) {
	ids := ident.NewAllocator()
	g := queryir.NewGraph()
	root := queryir.NewRoot(ids)
	sc := queryir.NewScope(ids, root, ids.NextScopeID())
	fm := queryir.NewFlatMap(ids, sc, queryir.NamedFunc("count_up"))
	fp := queryir.NewFilter(ids, fm, queryir.NamedFunc("positive"))
	fnn := queryir.NewFilterNonNull(ids, fp)
	ft := queryir.NewFilterType(ids, fnn, reflect.TypeOf(0))
	m := queryir.NewMap(ids, ft, queryir.NamedFunc("double"))
	agg := queryir.NewAggregate(ids, m, queryir.NamedFunc("sum"))
	aggd := queryir.NewAggregateDrop(ids, m, queryir.NamedFunc("sum"))
	cmb := queryir.NewCombine(ids, agg, aggd, queryir.NamedFunc("pair"))
	cmbd := queryir.NewCombineDrop(ids, agg, aggd, queryir.NamedFunc("pair"))
	uni := queryir.NewUnion(ids, cmb, cmbd)
	un, err := queryir.NewUnscope(ids, uni, sc)
	require.NoError(t, err)
	out := &collector{}
	g.Add(queryir.NewConsumer(ids, un, out.sink))

	b := New(ids, testRegistry(t), nil, NewFixedGenerator("build-1"))
	p, err := b.Build(g)
	require.NoError(t, err)
	assert.Equal(t, 14, p.Size())

	exec.Run(p, []int{2})

	// Inside the bracket of element 2: 1..2 doubled sums to 6 on both
	// aggregate branches, pairing twice through the union. At end of
	// input the plain aggregate still flushes its empty base frame; the
	// drop variants stay silent, so the pad side is nil and the dropping
	// combine emits nothing.
	assert.Equal(t, []stream.Element{"6/6", "6/6", "0/<nil>"}, out.got)
}

func TestBuilder_InlineFunctions(t *testing.T) {
	ids := ident.NewAllocator()
	g := queryir.NewGraph()
	root := queryir.NewRoot(ids)
	m := queryir.NewMap(ids, root, queryir.Inline(stream.Mapper(func(e stream.Element) stream.Element {
		return e.(int) + 10
	})))
	out := &collector{}
	g.Add(queryir.NewConsumer(ids, m, out.sink))

	b := New(ids, testRegistry(t), nil, NewFixedGenerator("build-1"))
	p, err := b.Build(g)
	require.NoError(t, err)

	exec.Run(p, []int{1, 2})
	assert.Equal(t, []stream.Element{11, 12}, out.got)
}

func TestBuilder_EmptyGraphMissingRoot(t *testing.T) {
	ids := ident.NewAllocator()
	b := New(ids, testRegistry(t), nil, NewFixedGenerator("build-1"))

	_, err := b.Build(queryir.NewGraph())
	require.Error(t, err)
	assert.True(t, IsMissingRootError(err))

	var be *BuildError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, "build-1", be.BuildToken)
}

func TestBuilder_UnknownFunction(t *testing.T) {
	ids := ident.NewAllocator()
	g := queryir.NewGraph()
	root := queryir.NewRoot(ids)
	m := queryir.NewMap(ids, root, queryir.NamedFunc("nope"))
	g.Add(queryir.NewConsumer(ids, m, nil))

	b := New(ids, testRegistry(t), nil, NewFixedGenerator("build-1"))
	_, err := b.Build(g)
	require.Error(t, err)

	var be *BuildError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, ErrCodeUnknownFunction, be.Code)
	assert.Equal(t, m.ID(), be.NodeID)
	assert.Contains(t, be.Message, `"nope"`)
}

func TestBuilder_FunctionKindMismatch(t *testing.T) {
	ids := ident.NewAllocator()
	g := queryir.NewGraph()
	root := queryir.NewRoot(ids)
	// "double" is a mapper; a filter needs a predicate.
	f := queryir.NewFilter(ids, root, queryir.NamedFunc("double"))
	g.Add(queryir.NewConsumer(ids, f, nil))

	b := New(ids, testRegistry(t), nil, NewFixedGenerator("build-1"))
	_, err := b.Build(g)
	require.Error(t, err)

	var be *BuildError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, ErrCodeFunctionKindMismatch, be.Code)
	assert.Equal(t, f.ID(), be.NodeID)
	assert.Contains(t, be.Message, "not a predicate")
}

// Validation is opt-in: the same malformed graph fails structurally with
// WithValidation and only trips over the missing root without it.
func TestBuilder_ValidationOptIn(t *testing.T) {
	ids := ident.NewAllocator()
	g := queryir.NewGraph()
	g.Add(queryir.NewUnion(ids))

	lax := New(ids, testRegistry(t), nil, NewFixedGenerator("lax-1"))
	_, err := lax.Build(g)
	require.Error(t, err)
	assert.True(t, IsMissingRootError(err))

	strict := New(ids, testRegistry(t), nil, NewFixedGenerator("strict-1"), WithValidation())
	_, err = strict.Build(g)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestBuilder_MergeScopesTransformation(t *testing.T) {
	ids := ident.NewAllocator()
	g := queryir.NewGraph()
	root := queryir.NewRoot(ids)
	sid := ids.NextScopeID()
	s1 := queryir.NewScope(ids, root, sid)
	s2 := queryir.NewScope(ids, root, sid)
	a1 := queryir.NewMap(ids, s1, queryir.NamedFunc("double"))
	a2 := queryir.NewMap(ids, s2, queryir.NamedFunc("negate"))
	u1, err := queryir.NewUnscope(ids, a1, s1)
	require.NoError(t, err)
	u2, err := queryir.NewUnscope(ids, a2, s2)
	require.NoError(t, err)
	uni := queryir.NewUnion(ids, u1, u2)
	out := &collector{}
	g.Add(queryir.NewConsumer(ids, uni, out.sink))
	require.Equal(t, 9, g.Len())

	b := New(ids, testRegistry(t), []Transformation{MergeScopes{}}, NewFixedGenerator("merge-1"))
	p, err := b.Build(g)
	require.NoError(t, err)

	// The duplicate scope node is gone from the executable graph.
	assert.Equal(t, 8, p.Size())

	exec.Run(p, []int{1, 2})
	assert.Equal(t, []stream.Element{2, -1, 4, -2}, out.got)
}

type failingPass struct{}

func (failingPass) Name() string { return "boom_pass" }

func (failingPass) Apply(g *queryir.Graph, ids ident.Source) (*queryir.Graph, error) {
	return nil, errors.New("boom")
}

func TestBuilder_TransformationFailureWrapped(t *testing.T) {
	ids := ident.NewAllocator()
	g := queryir.NewGraph()
	g.Add(queryir.NewRoot(ids))

	b := New(ids, testRegistry(t), []Transformation{failingPass{}}, NewFixedGenerator("build-1"))
	_, err := b.Build(g)
	require.Error(t, err)

	var be *BuildError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, ErrCodeInvalidGraph, be.Code)
	assert.Contains(t, be.Message, "boom_pass")
	assert.Contains(t, be.Message, "boom")
}

// Two builds of one graph yield independent pipelines that share the
// sink functions carried by the IR consumers.
func TestBuilder_BuildTwiceSameGraph(t *testing.T) {
	ids := ident.NewAllocator()
	g := queryir.NewGraph()
	root := queryir.NewRoot(ids)
	m := queryir.NewMap(ids, root, queryir.NamedFunc("double"))
	out := &collector{}
	g.Add(queryir.NewConsumer(ids, m, out.sink))

	b := New(ids, testRegistry(t), nil, NewFixedGenerator("first", "second"))
	p1, err := b.Build(g)
	require.NoError(t, err)
	p2, err := b.Build(g)
	require.NoError(t, err)

	assert.Equal(t, "first", p1.Token())
	assert.Equal(t, "second", p2.Token())
	assert.Equal(t, p1.Size(), p2.Size())
	assert.NotSame(t, p1.Entry(), p2.Entry())

	exec.Run(p1, []int{1})
	exec.Run(p2, []int{2})
	assert.Equal(t, []stream.Element{2, 4}, out.got)
}

// Builds without rewriting transformations may share a graph across
// goroutines.
func TestBuilder_ConcurrentBuilds(t *testing.T) {
	ids := ident.NewAllocator()
	g := queryir.NewGraph()
	root := queryir.NewRoot(ids)
	m := queryir.NewMap(ids, root, queryir.NamedFunc("double"))
	g.Add(queryir.NewConsumer(ids, m, nil))

	b := New(ids, testRegistry(t), nil, UUIDv7Generator{})

	const builds = 20
	pipelines := make(chan *exec.Pipeline, builds)
	var wg sync.WaitGroup
	for i := 0; i < builds; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := b.Build(g)
			assert.NoError(t, err)
			pipelines <- p
		}()
	}
	wg.Wait()
	close(pipelines)

	tokens := make(map[string]bool)
	for p := range pipelines {
		require.NotNil(t, p)
		require.False(t, tokens[p.Token()], "token %s assigned twice", p.Token())
		tokens[p.Token()] = true
		assert.Equal(t, 3, p.Size())
	}
	assert.Equal(t, builds, len(tokens))
}
