package translate

import (
	"fmt"
	"log/slog"

	"github.com/roach88/flume/internal/exec"
	"github.com/roach88/flume/internal/ident"
	"github.com/roach88/flume/internal/queryir"
)

// Builder translates query graphs into executable pipelines.
//
// A Builder is configured once and reused: identity source, function
// registry, transformation passes, and token generator are fixed at
// construction.
//
// Thread-safety model:
//   - Build(): safe from any goroutine; each build owns its Context
//   - Concurrent builds may share an input graph only when the builder
//     carries no rewriting transformations (see package doc)
//
// INVARIANTS:
//   - transformations slice order NEVER changes after construction
//   - Nodes are translated parents-strictly-before-children
//   - Every executable node carries the id of the query node it came from
type Builder struct {
	ids             ident.Source
	registry        *Registry
	transformations []Transformation
	tokens          TokenGenerator
	validate        bool
}

// BuilderOption allows configuration of builder parameters.
type BuilderOption func(*Builder)

// WithValidation makes every build validate the graph structurally before
// translating, failing with INVALID_GRAPH on defects. Off by default:
// graphs built through the constructors are well-formed, and validation
// walks the whole graph once more.
func WithValidation() BuilderOption {
	return func(b *Builder) {
		b.validate = true
	}
}

// New creates a Builder with the given identity source, function registry,
// transformation passes, and token generator.
//
// The transformations slice must be in application order. It is copied to
// prevent external mutation from changing pass order between builds.
//
// Options can be passed to configure the builder (e.g., WithValidation).
func New(
	ids ident.Source,
	registry *Registry,
	transformations []Transformation,
	tokens TokenGenerator,
	opts ...BuilderOption,
) *Builder {
	var passes []Transformation
	if transformations != nil {
		passes = make([]Transformation, len(transformations))
		copy(passes, transformations)
	}

	b := &Builder{
		ids:             ids,
		registry:        registry,
		transformations: passes,
		tokens:          tokens,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Build translates g into an executable pipeline.
//
// Stages: token generation, optional validation, transformation passes in
// registration order, dependency-ordered node translation, finalization.
// On failure the returned error is a *BuildError carrying the build token.
func (b *Builder) Build(g *queryir.Graph) (*exec.Pipeline, error) {
	token := b.tokens.Generate()
	slog.Debug("build starting", "build", token, "nodes", g.Len())

	if b.validate {
		if err := queryir.Validate(g); err != nil {
			return nil, &BuildError{
				Code:       ErrCodeInvalidGraph,
				Message:    err.Error(),
				BuildToken: token,
			}
		}
	}

	for _, tr := range b.transformations {
		next, err := tr.Apply(g, b.ids)
		if err != nil {
			return nil, &BuildError{
				Code:       ErrCodeInvalidGraph,
				Message:    fmt.Sprintf("transformation %s: %v", tr.Name(), err),
				BuildToken: token,
			}
		}
		slog.Debug("transformation applied",
			"build", token,
			"transformation", tr.Name(),
			"nodes", next.Len())
		g = next
	}

	order, err := g.DependencyOrder()
	if err != nil {
		return nil, &BuildError{
			Code:       ErrCodeGraphCycle,
			Message:    err.Error(),
			BuildToken: token,
		}
	}

	ctx := newContext(token)
	for _, n := range order {
		if err := b.translateNode(ctx, n); err != nil {
			return nil, err
		}
	}

	p, err := ctx.Executable()
	if err != nil {
		return nil, err
	}
	slog.Info("build finished", "build", token, "nodes", p.Size())
	return p, nil
}

// translateNode constructs the executable counterpart of n, records it,
// and attaches it to its already-translated parents.
func (b *Builder) translateNode(ctx *Context, n queryir.Node) error {
	var built exec.Node

	switch v := n.(type) {
	case *queryir.Root:
		built = exec.NewRoot(v.ID())

	case *queryir.Map:
		f, err := ctx.resolve(v.Fn(), b.registry, v.ID())
		if err != nil {
			return err
		}
		node, err := exec.NewMap(v.ID(), f)
		if err != nil {
			return newKindMismatchError(ctx.token, v.ID(), err)
		}
		built = node

	case *queryir.FlatMap:
		f, err := ctx.resolve(v.Fn(), b.registry, v.ID())
		if err != nil {
			return err
		}
		node, err := exec.NewFlatMap(v.ID(), f)
		if err != nil {
			return newKindMismatchError(ctx.token, v.ID(), err)
		}
		built = node

	case *queryir.Filter:
		f, err := ctx.resolve(v.Fn(), b.registry, v.ID())
		if err != nil {
			return err
		}
		node, err := exec.NewFilter(v.ID(), f)
		if err != nil {
			return newKindMismatchError(ctx.token, v.ID(), err)
		}
		built = node

	case *queryir.FilterNonNull:
		built = exec.NewFilterNonNull(v.ID())

	case *queryir.FilterType:
		built = exec.NewFilterType(v.ID(), v.Types())

	case *queryir.Aggregate:
		f, err := ctx.resolve(v.Fn(), b.registry, v.ID())
		if err != nil {
			return err
		}
		node, err := exec.NewAggregate(v.ID(), f)
		if err != nil {
			return newKindMismatchError(ctx.token, v.ID(), err)
		}
		built = node

	case *queryir.AggregateDrop:
		f, err := ctx.resolve(v.Fn(), b.registry, v.ID())
		if err != nil {
			return err
		}
		node, err := exec.NewAggregateDrop(v.ID(), f)
		if err != nil {
			return newKindMismatchError(ctx.token, v.ID(), err)
		}
		built = node

	case *queryir.Combine:
		f, err := ctx.resolve(v.Fn(), b.registry, v.ID())
		if err != nil {
			return err
		}
		node, err := exec.NewCombine(v.ID(), f)
		if err != nil {
			return newKindMismatchError(ctx.token, v.ID(), err)
		}
		built = node

	case *queryir.CombineDrop:
		f, err := ctx.resolve(v.Fn(), b.registry, v.ID())
		if err != nil {
			return err
		}
		node, err := exec.NewCombineDrop(v.ID(), f)
		if err != nil {
			return newKindMismatchError(ctx.token, v.ID(), err)
		}
		built = node

	case *queryir.Union:
		built = exec.NewUnion(v.ID(), len(v.Parents()))

	case *queryir.Scope:
		built = exec.NewScope(v.ID(), v.ScopeID())

	case *queryir.Unscope:
		built = exec.NewUnscope(v.ID(), v.ScopeIDs())

	case *queryir.Consumer:
		built = exec.NewConsumer(v.ID(), v.Sink())

	default:
		return &BuildError{
			Code:       ErrCodeUnsupportedNode,
			Message:    fmt.Sprintf("no translation for node type %T", n),
			BuildToken: ctx.token,
			NodeID:     n.ID(),
		}
	}

	if err := ctx.record(n.ID(), built); err != nil {
		return err
	}
	return b.attach(ctx, n, built)
}

// attach wires built to the executable counterparts of n's parents, one
// edge per parent, port numbering following parent order.
func (b *Builder) attach(ctx *Context, n queryir.Node, built exec.Node) error {
	for port, p := range n.Parents() {
		if p == nil {
			return &BuildError{
				Code:       ErrCodeInvalidGraph,
				Message:    fmt.Sprintf("nil parent at port %d", port),
				BuildToken: ctx.token,
				NodeID:     n.ID(),
			}
		}
		parent, err := ctx.Translated(p.ID())
		if err != nil {
			return err
		}
		exec.Attach(parent, built, port)
	}
	return nil
}
