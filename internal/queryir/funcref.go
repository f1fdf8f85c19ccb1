package queryir

// FuncRef identifies the transform a node applies, resolved to a concrete
// function at build time.
//
// This is a sealed interface - only types in this package implement it.
// Both implementations are comparable, so a FuncRef serves directly as a
// memoization key: within one build, equal references resolve to the same
// compiled function instance.
//
// Two forms exist:
//   - *InlineFunc: a function value supplied at graph-construction time.
//     Go function values are not comparable, so the wrapper pointer is the
//     lambda's identity - reuse one *InlineFunc across sites to share a
//     compiled instance; wrapping the same Go function twice yields two
//     distinct lambdas.
//   - NamedFunc: a name resolved against the function registry at build
//     time. Equal names are the same function everywhere.
type FuncRef interface {
	funcRef() // Marker method - seals interface to this package
}

// InlineFunc wraps a function value declared inline at a use site.
// The wrapped value must be one of the stream function kinds; the kind is
// checked against the use site when the executable node is constructed.
type InlineFunc struct {
	fn any
}

// Inline wraps a function value for inline use. The wrapper's pointer
// identity is the lambda identity.
func Inline(fn any) *InlineFunc {
	return &InlineFunc{fn: fn}
}

// Impl returns the wrapped function value.
func (f *InlineFunc) Impl() any { return f.fn }

func (*InlineFunc) funcRef() {}

// NamedFunc references a function declared in the registry under this
// name. Names are NFC-normalized at registration and at lookup.
type NamedFunc string

func (NamedFunc) funcRef() {}
