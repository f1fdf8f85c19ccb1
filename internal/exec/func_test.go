package exec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flume/internal/stream"
)

func TestFunc_Name(t *testing.T) {
	named := NewFunc("double", stream.Mapper(func(e stream.Element) stream.Element { return e }))
	assert.Equal(t, "double", named.Name())
	assert.Equal(t, "double", named.String())

	inline := NewFunc("", stream.Mapper(func(e stream.Element) stream.Element { return e }))
	assert.Equal(t, "", inline.Name())
	assert.Equal(t, "inline", inline.String())

	var missing *Func
	assert.Equal(t, "<nil>", missing.String())
}

func TestFunc_TypedAccessors(t *testing.T) {
	m := NewFunc("m", stream.Mapper(func(e stream.Element) stream.Element { return e }))
	fn, ok := m.Mapper()
	require.True(t, ok)
	assert.Equal(t, 7, fn(7))

	_, ok = m.Predicate()
	assert.False(t, ok)
	_, ok = m.Aggregator()
	assert.False(t, ok)
	_, ok = m.Combiner()
	assert.False(t, ok)
	_, ok = m.FlatMapper()
	assert.False(t, ok)
}

// Plain function literals carry the underlying signature rather than the
// named type; the accessors must accept both.
func TestFunc_AcceptsLiteralSignatures(t *testing.T) {
	m := NewFunc("m", func(e stream.Element) stream.Element { return e })
	_, ok := m.Mapper()
	assert.True(t, ok)

	fm := NewFunc("fm", func(e stream.Element) []stream.Element { return nil })
	_, ok = fm.FlatMapper()
	assert.True(t, ok)

	p := NewFunc("p", func(e stream.Element) bool { return true })
	_, ok = p.Predicate()
	assert.True(t, ok)

	a := NewFunc("a", func(es []stream.Element) stream.Element { return len(es) })
	_, ok = a.Aggregator()
	assert.True(t, ok)

	c := NewFunc("c", func(l, r stream.Element) stream.Element { return l })
	_, ok = c.Combiner()
	assert.True(t, ok)
}

func TestFunc_SignatureKindsAreDisjoint(t *testing.T) {
	p := NewFunc("p", func(e stream.Element) bool { return true })
	_, ok := p.Mapper()
	assert.False(t, ok)
	_, ok = p.Aggregator()
	assert.False(t, ok)

	a := NewFunc("a", func(es []stream.Element) stream.Element { return nil })
	_, ok = a.Mapper()
	assert.False(t, ok)
	_, ok = a.FlatMapper()
	assert.False(t, ok)
}

func TestNodeConstructors_RejectWrongFunctionKind(t *testing.T) {
	pred := NewFunc("positive", stream.Predicate(func(e stream.Element) bool { return true }))

	_, err := NewMap(1, pred)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a mapper")

	_, err = NewFlatMap(1, pred)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a flat mapper")

	_, err = NewAggregate(1, pred)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an aggregator")

	_, err = NewCombine(1, pred)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a combiner")

	mapper := NewFunc("double", stream.Mapper(func(e stream.Element) stream.Element { return e }))
	_, err = NewFilter(1, mapper)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a predicate")
}
