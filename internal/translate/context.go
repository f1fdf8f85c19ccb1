package translate

import (
	"fmt"

	"github.com/roach88/flume/internal/exec"
	"github.com/roach88/flume/internal/ident"
	"github.com/roach88/flume/internal/queryir"
)

// Context accumulates the state of one build: the query-node to
// executable-node mapping, the entry root, and the per-build function
// memo.
//
// Lifecycle: a context starts accumulating; Executable() finalizes it
// into a pipeline. After finalization the context is read-only and
// record attempts fail with CONTEXT_FINALIZED. Executable() itself is
// idempotent and keeps returning the same pipeline.
//
// Thread-safety: none. A context belongs to exactly one build running on
// one goroutine.
type Context struct {
	token     string
	nodes     map[ident.NodeID]exec.Node
	root      *exec.Root
	funcs     map[queryir.FuncRef]*exec.Func
	finalized bool
	pipeline  *exec.Pipeline
}

func newContext(token string) *Context {
	return &Context{
		token: token,
		nodes: make(map[ident.NodeID]exec.Node),
		funcs: make(map[queryir.FuncRef]*exec.Func),
	}
}

// Token returns the build token.
func (c *Context) Token() string { return c.token }

// Size returns the number of recorded nodes.
func (c *Context) Size() int { return len(c.nodes) }

// Translated returns the executable counterpart already recorded for id.
// A miss is an ordering violation: the dependency-order walk records
// parents strictly before their children, so a missing parent means the
// walk order was broken upstream.
func (c *Context) Translated(id ident.NodeID) (exec.Node, error) {
	n, ok := c.nodes[id]
	if !ok {
		return nil, newOrderingError(c.token, id)
	}
	return n, nil
}

// record stores the executable counterpart of query node id. The first
// recorded root becomes the pipeline entry.
func (c *Context) record(id ident.NodeID, n exec.Node) error {
	if c.finalized {
		return &BuildError{
			Code:       ErrCodeContextFinalized,
			Message:    "context is finalized, no further nodes can be recorded",
			BuildToken: c.token,
			NodeID:     id,
		}
	}
	if _, exists := c.nodes[id]; exists {
		return &BuildError{
			Code:       ErrCodeInvalidGraph,
			Message:    "query node translated twice",
			BuildToken: c.token,
			NodeID:     id,
		}
	}
	c.nodes[id] = n
	if r, ok := n.(*exec.Root); ok && c.root == nil {
		c.root = r
	}
	return nil
}

// resolve returns the compiled function for ref, memoized for the build.
// Every use site of one reference shares the same instance, so stateful
// implementations observe all their call sites.
func (c *Context) resolve(ref queryir.FuncRef, reg *Registry, at ident.NodeID) (*exec.Func, error) {
	if f, ok := c.funcs[ref]; ok {
		return f, nil
	}

	var f *exec.Func
	switch r := ref.(type) {
	case queryir.NamedFunc:
		name := string(r)
		var ok bool
		if reg != nil {
			f, ok = reg.Lookup(name)
		}
		if !ok {
			return nil, &BuildError{
				Code:       ErrCodeUnknownFunction,
				Message:    fmt.Sprintf("function %q not registered", name),
				BuildToken: c.token,
				NodeID:     at,
			}
		}
	case *queryir.InlineFunc:
		f = exec.NewFunc("", r.Impl())
	case nil:
		return nil, &BuildError{
			Code:       ErrCodeInvalidGraph,
			Message:    "missing function reference",
			BuildToken: c.token,
			NodeID:     at,
		}
	default:
		return nil, &BuildError{
			Code:       ErrCodeInvalidGraph,
			Message:    fmt.Sprintf("unsupported function reference type %T", ref),
			BuildToken: c.token,
			NodeID:     at,
		}
	}

	c.funcs[ref] = f
	return f, nil
}

// Executable finalizes the context into a pipeline. Idempotent: repeated
// calls return the same pipeline. Fails with ROOT_NOT_FOUND when no root
// node was recorded, without finalizing.
func (c *Context) Executable() (*exec.Pipeline, error) {
	if c.finalized {
		return c.pipeline, nil
	}
	if c.root == nil {
		return nil, &BuildError{
			Code:       ErrCodeRootNotFound,
			Message:    "graph has no root node",
			BuildToken: c.token,
		}
	}
	c.finalized = true
	c.pipeline = exec.NewPipeline(c.root, c.token, len(c.nodes))
	return c.pipeline, nil
}
