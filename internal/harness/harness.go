package harness

import (
	"fmt"
	"io"
	"log/slog"
	"reflect"

	"github.com/roach88/flume/internal/exec"
	"github.com/roach88/flume/internal/ident"
	"github.com/roach88/flume/internal/queryir"
	"github.com/roach88/flume/internal/stream"
	"github.com/roach88/flume/internal/testutil"
	"github.com/roach88/flume/internal/translate"
)

// collector records the elements a consumer's sink receives.
type collector struct {
	got []stream.Element
}

func (c *collector) sink(e stream.Element) {
	c.got = append(c.got, e)
}

// Harness is the scenario execution engine.
// It assembles, builds, and runs scenarios with a deterministic allocator
// and a static build token.
type Harness struct {
	alloc    *testutil.DeterministicAllocator
	registry *translate.Registry
	logger   *slog.Logger
}

// assembly is the constructed query graph plus the handle bookkeeping
// expectation evaluation needs.
type assembly struct {
	graph *queryir.Graph
	nodes map[string]queryir.Node
	sinks map[string]*collector
}

// Run executes a scenario and returns the result.
//
// Each scenario runs with a fresh deterministic allocator for isolation:
// node ids are assigned 1..n in declaration order, so repeated runs of
// the same scenario produce identical graphs and pipeline dumps.
//
// Execution flow:
//  1. Assemble the query graph from the node list
//  2. Classify flows on the declared graph
//  3. Build (static token, builtin registry, declared transformations)
//  4. On an error expectation, check the build error code and stop
//  5. Feed the input batch and collect per-consumer outputs
//  6. Evaluate output and flow expectations
//
// Infrastructure failures (a node declaration the graph constructors
// reject) are returned as an error; expectation failures land in the
// result.
func Run(scenario *Scenario) (*Result, error) {
	h := &Harness{
		alloc:    testutil.NewDeterministicAllocator(),
		registry: Builtins(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	return h.run(scenario)
}

func (h *Harness) run(scenario *Scenario) (*Result, error) {
	asm, err := h.assemble(scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble graph: %w", err)
	}

	result := NewResult()

	// Classify before building: a rewriting transformation consumes the
	// input graph, and flow expectations refer to the declared nodes.
	flows, err := queryir.ClassifyFlows(asm.graph)
	if err != nil {
		return nil, fmt.Errorf("failed to classify flows: %w", err)
	}
	for handle, n := range asm.nodes {
		result.Flows[handle] = flows[n.ID()].String()
	}

	passes := make([]translate.Transformation, 0, len(scenario.Transformations))
	for _, name := range scenario.Transformations {
		tr, ok := transformationByName(name)
		if !ok {
			return nil, fmt.Errorf("unknown transformation %q", name)
		}
		passes = append(passes, tr)
	}

	builder := translate.New(
		h.alloc,
		h.registry,
		passes,
		testutil.NewStaticTokenGenerator(scenario.BuildToken),
		translate.WithValidation(),
	)
	pipeline, err := builder.Build(asm.graph)

	if scenario.Expect.Error != "" {
		evaluateBuildError(result, scenario.Expect.Error, err)
		return result, nil
	}
	if err != nil {
		result.AddError(fmt.Sprintf("build failed: %v", err))
		return result, nil
	}

	result.Token = pipeline.Token()
	result.Structure = exec.Describe(pipeline)
	h.logger.Info("scenario built",
		"scenario", scenario.Name,
		"build", result.Token,
		"nodes", pipeline.Size(),
	)

	pipeline.Execute(scenario.Input)
	for handle, c := range asm.sinks {
		result.Outputs[handle] = append([]stream.Element(nil), c.got...)
	}

	for _, msg := range evaluateOutputs(scenario.Expect.Outputs, result.Outputs) {
		result.AddError(msg)
	}
	for _, msg := range evaluateFlows(scenario.Expect.Flows, result.Flows) {
		result.AddError(msg)
	}

	return result, nil
}

// assemble constructs the query graph declared by the scenario. Nodes are
// built in declaration order (validation guarantees parents come first);
// scope labels map to shared scope ids on first use.
func (h *Harness) assemble(scenario *Scenario) (*assembly, error) {
	asm := &assembly{
		graph: queryir.NewGraph(),
		nodes: make(map[string]queryir.Node, len(scenario.Nodes)),
		sinks: make(map[string]*collector),
	}
	scopeIDs := make(map[string]ident.ScopeID)

	for _, spec := range scenario.Nodes {
		parents := make([]queryir.Node, len(spec.Parents))
		for i, p := range spec.Parents {
			parents[i] = asm.nodes[p]
		}

		var n queryir.Node
		switch queryir.Kind(spec.Kind) {
		case queryir.KindRoot:
			n = queryir.NewRoot(h.alloc)

		case queryir.KindMap:
			n = queryir.NewMap(h.alloc, parents[0], queryir.NamedFunc(spec.Fn))

		case queryir.KindFlatMap:
			n = queryir.NewFlatMap(h.alloc, parents[0], queryir.NamedFunc(spec.Fn))

		case queryir.KindFilter:
			n = queryir.NewFilter(h.alloc, parents[0], queryir.NamedFunc(spec.Fn))

		case queryir.KindFilterNonNull:
			n = queryir.NewFilterNonNull(h.alloc, parents[0])

		case queryir.KindFilterType:
			types := make([]reflect.Type, len(spec.Types))
			for i, name := range spec.Types {
				t, ok := typeFor(name)
				if !ok {
					return nil, fmt.Errorf("node %s: unknown type %q", spec.Handle, name)
				}
				types[i] = t
			}
			n = queryir.NewFilterType(h.alloc, parents[0], types...)

		case queryir.KindAggregate:
			n = queryir.NewAggregate(h.alloc, parents[0], queryir.NamedFunc(spec.Fn))

		case queryir.KindAggregateDrop:
			n = queryir.NewAggregateDrop(h.alloc, parents[0], queryir.NamedFunc(spec.Fn))

		case queryir.KindCombine:
			n = queryir.NewCombine(h.alloc, parents[0], parents[1], queryir.NamedFunc(spec.Fn))

		case queryir.KindCombineDrop:
			n = queryir.NewCombineDrop(h.alloc, parents[0], parents[1], queryir.NamedFunc(spec.Fn))

		case queryir.KindUnion:
			n = queryir.NewUnion(h.alloc, parents...)

		case queryir.KindScope:
			sid, ok := scopeIDs[spec.Scope]
			if !ok {
				sid = h.alloc.NextScopeID()
				scopeIDs[spec.Scope] = sid
			}
			n = queryir.NewScope(h.alloc, parents[0], sid)

		case queryir.KindUnscope:
			scopes := make([]*queryir.Scope, len(spec.Unscope))
			for i, handle := range spec.Unscope {
				s, ok := asm.nodes[handle].(*queryir.Scope)
				if !ok {
					return nil, fmt.Errorf("node %s: unscope[%d] handle %q is not a scope node", spec.Handle, i, handle)
				}
				scopes[i] = s
			}
			u, err := queryir.NewUnscope(h.alloc, parents[0], scopes...)
			if err != nil {
				return nil, fmt.Errorf("node %s: %w", spec.Handle, err)
			}
			n = u

		case queryir.KindConsumer:
			c := &collector{}
			asm.sinks[spec.Handle] = c
			n = queryir.NewConsumer(h.alloc, parents[0], c.sink)

		default:
			return nil, fmt.Errorf("node %s: unknown kind %q", spec.Handle, spec.Kind)
		}

		asm.nodes[spec.Handle] = n
		asm.graph.Add(n)
	}

	return asm, nil
}
