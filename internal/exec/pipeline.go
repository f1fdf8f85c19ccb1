package exec

import (
	"github.com/roach88/flume/internal/stream"
)

// Pipeline is a finished executable graph. It is immutable and safe to
// execute from any number of goroutines at once; every execution carries
// its own state.
type Pipeline struct {
	root  *Root
	token string
	size  int
}

// NewPipeline wraps a fully attached graph. The token identifies the
// build that produced it; size is the number of translated nodes.
func NewPipeline(root *Root, token string, size int) *Pipeline {
	return &Pipeline{root: root, token: token, size: size}
}

// Token returns the build token of the translation that produced this
// pipeline.
func (p *Pipeline) Token() string { return p.token }

// Size returns the number of nodes in the graph.
func (p *Pipeline) Size() int { return p.size }

// Entry returns the root node.
func (p *Pipeline) Entry() Node { return p.root }

// Execute pushes a batch through the graph: each element in order,
// followed by the end-of-input marker that flushes grouping nodes.
// Sinks fire synchronously on the calling goroutine before Execute
// returns.
func (p *Pipeline) Execute(batch []stream.Element) {
	rs := newRunState()
	for _, e := range batch {
		p.root.feed(rs, message{kind: msgData, elem: e}, 0)
	}
	p.root.feed(rs, message{kind: msgEOF}, 0)
}

// Run executes a typed batch. It is Execute with the boxing written
// once instead of at every call site.
func Run[IN any](p *Pipeline, batch []IN) {
	elems := make([]stream.Element, len(batch))
	for i, v := range batch {
		elems[i] = v
	}
	p.Execute(elems)
}
