package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/flume/internal/queryir"
	"github.com/roach88/flume/internal/translate"
)

// Scenario defines a conformance test scenario.
// Scenarios assemble a query graph from a declarative node list, build it,
// feed it an input batch, and assert on outputs, flows, or build failure.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files derive their
	// file names from it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// BuildToken is an optional fixed build token for deterministic runs.
	// If empty, defaults to "test-build-default" for golden file comparison.
	BuildToken string `yaml:"build_token,omitempty"`

	// Transformations lists rewrite passes applied by the builder, in
	// order. Supported: merge_scopes.
	Transformations []string `yaml:"transformations,omitempty"`

	// Nodes declares the query graph, parents-first. Node ids are
	// assigned in declaration order.
	Nodes []NodeSpec `yaml:"nodes"`

	// Input is the element batch fed to the built pipeline. Scalar
	// values only (string, int, bool).
	Input []any `yaml:"input,omitempty"`

	// Expect declares the scenario's expectations.
	Expect ExpectClause `yaml:"expect"`
}

// NodeSpec declares a single query graph node.
type NodeSpec struct {
	// Handle names the node within the scenario. Unique, required.
	Handle string `yaml:"handle"`

	// Kind is the node variant (root, map, flat_map, filter,
	// filter_non_null, filter_type, aggregate, aggregate_drop, combine,
	// combine_drop, consumer, union, scope, unscope).
	Kind string `yaml:"kind"`

	// Parents lists the handles of the node's predecessors in input-port
	// order. Referenced nodes must be declared earlier.
	Parents []string `yaml:"parents,omitempty"`

	// Fn is the builtin function name for function-carrying kinds.
	// Unknown names are passed through to the builder, which reports
	// UNKNOWN_FUNCTION - useful for error scenarios.
	Fn string `yaml:"fn,omitempty"`

	// Types lists acceptable element type names for filter_type
	// (string, int, bool).
	Types []string `yaml:"types,omitempty"`

	// Scope is the logical scope label for scope nodes. Scope nodes
	// sharing a label share one scope id.
	Scope string `yaml:"scope,omitempty"`

	// Unscope lists the handles of the scope nodes an unscope closes.
	Unscope []string `yaml:"unscope,omitempty"`
}

// ExpectClause declares what a scenario asserts.
type ExpectClause struct {
	// Outputs maps consumer handles to the expected element sequence,
	// compared positionally.
	Outputs map[string][]any `yaml:"outputs,omitempty"`

	// Flows maps handles to expected flow classifications (unknown,
	// single, optional, many, error).
	Flows map[string]string `yaml:"flows,omitempty"`

	// Error is an expected build error code. Mutually exclusive with
	// Outputs and Flows.
	Error string `yaml:"error,omitempty"`
}

// knownKinds is the set of declarable node variants.
var knownKinds = map[string]bool{
	string(queryir.KindRoot):          true,
	string(queryir.KindMap):           true,
	string(queryir.KindFlatMap):       true,
	string(queryir.KindFilter):        true,
	string(queryir.KindFilterNonNull): true,
	string(queryir.KindFilterType):    true,
	string(queryir.KindAggregate):     true,
	string(queryir.KindAggregateDrop): true,
	string(queryir.KindCombine):       true,
	string(queryir.KindCombineDrop):   true,
	string(queryir.KindConsumer):      true,
	string(queryir.KindUnion):         true,
	string(queryir.KindScope):         true,
	string(queryir.KindUnscope):       true,
}

// fnKinds is the set of kinds that carry a function reference.
var fnKinds = map[string]bool{
	string(queryir.KindMap):           true,
	string(queryir.KindFlatMap):       true,
	string(queryir.KindFilter):        true,
	string(queryir.KindAggregate):     true,
	string(queryir.KindAggregateDrop): true,
	string(queryir.KindCombine):       true,
	string(queryir.KindCombineDrop):   true,
}

// knownErrorCodes is the set of build error codes an error expectation
// may name.
var knownErrorCodes = map[string]bool{
	string(translate.ErrCodeInvalidGraph):         true,
	string(translate.ErrCodeGraphCycle):           true,
	string(translate.ErrCodeRootNotFound):         true,
	string(translate.ErrCodeNodeNotTranslated):    true,
	string(translate.ErrCodeUnknownFunction):      true,
	string(translate.ErrCodeFunctionKindMismatch): true,
	string(translate.ErrCodeUnsupportedNode):      true,
	string(translate.ErrCodeContextFinalized):     true,
}

// flowNames is the set of classification names a flow expectation may use.
var flowNames = map[string]bool{
	"unknown":  true,
	"single":   true,
	"optional": true,
	"many":     true,
	"error":    true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "node:" vs "nodes:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and the node
// list is internally consistent.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Nodes) == 0 {
		return fmt.Errorf("nodes list is required and must be non-empty")
	}

	for i, name := range s.Transformations {
		if _, ok := transformationByName(name); !ok {
			return fmt.Errorf("transformations[%d]: unknown transformation %q", i, name)
		}
	}

	// Validate nodes in declaration order, tracking handles seen so far
	// so parent and unscope references can be checked to point backwards.
	declared := make(map[string]string, len(s.Nodes)) // handle -> kind
	for i, n := range s.Nodes {
		if err := validateNode(i, &n, declared); err != nil {
			return err
		}
		declared[n.Handle] = n.Kind
	}

	for i, v := range s.Input {
		switch v.(type) {
		case string, int, int64, bool:
		default:
			return fmt.Errorf("input[%d]: unsupported value %v (type %T)", i, v, v)
		}
	}

	return validateExpect(&s.Expect, declared)
}

// validateNode validates a single node declaration against the handles
// declared before it.
func validateNode(index int, n *NodeSpec, declared map[string]string) error {
	if n.Handle == "" {
		return fmt.Errorf("nodes[%d]: handle is required", index)
	}
	if _, dup := declared[n.Handle]; dup {
		return fmt.Errorf("nodes[%d]: duplicate handle %q", index, n.Handle)
	}
	if n.Kind == "" {
		return fmt.Errorf("nodes[%d]: kind is required", index)
	}
	if !knownKinds[n.Kind] {
		return fmt.Errorf("nodes[%d]: unknown kind %q", index, n.Kind)
	}

	// Parent references must point at earlier declarations.
	for j, p := range n.Parents {
		if _, ok := declared[p]; !ok {
			return fmt.Errorf("nodes[%d]: parents[%d] references undeclared handle %q", index, j, p)
		}
	}

	// Parent arity per kind.
	switch n.Kind {
	case string(queryir.KindRoot):
		if len(n.Parents) != 0 {
			return fmt.Errorf("nodes[%d]: root takes no parents", index)
		}
	case string(queryir.KindCombine), string(queryir.KindCombineDrop):
		if len(n.Parents) != 2 {
			return fmt.Errorf("nodes[%d]: %s requires exactly two parents (left, right)", index, n.Kind)
		}
	case string(queryir.KindUnion):
		if len(n.Parents) == 0 {
			return fmt.Errorf("nodes[%d]: union requires at least one parent", index)
		}
	default:
		if len(n.Parents) != 1 {
			return fmt.Errorf("nodes[%d]: %s requires exactly one parent", index, n.Kind)
		}
	}

	// Function payload.
	if fnKinds[n.Kind] {
		if n.Fn == "" {
			return fmt.Errorf("nodes[%d]: fn is required for %s", index, n.Kind)
		}
	} else if n.Fn != "" {
		return fmt.Errorf("nodes[%d]: fn is not allowed for %s", index, n.Kind)
	}

	// Type payload.
	if n.Kind == string(queryir.KindFilterType) {
		if len(n.Types) == 0 {
			return fmt.Errorf("nodes[%d]: types list is required for filter_type", index)
		}
		for j, name := range n.Types {
			if _, ok := typeFor(name); !ok {
				return fmt.Errorf("nodes[%d]: types[%d] names unknown type %q", index, j, name)
			}
		}
	} else if len(n.Types) != 0 {
		return fmt.Errorf("nodes[%d]: types is not allowed for %s", index, n.Kind)
	}

	// Scope payload.
	if n.Kind == string(queryir.KindScope) {
		if n.Scope == "" {
			return fmt.Errorf("nodes[%d]: scope label is required for scope", index)
		}
	} else if n.Scope != "" {
		return fmt.Errorf("nodes[%d]: scope is not allowed for %s", index, n.Kind)
	}

	// Unscope payload: handles of earlier scope nodes.
	if n.Kind == string(queryir.KindUnscope) {
		if len(n.Unscope) == 0 {
			return fmt.Errorf("nodes[%d]: unscope list is required for unscope", index)
		}
		for j, h := range n.Unscope {
			kind, ok := declared[h]
			if !ok {
				return fmt.Errorf("nodes[%d]: unscope[%d] references undeclared handle %q", index, j, h)
			}
			if kind != string(queryir.KindScope) {
				return fmt.Errorf("nodes[%d]: unscope[%d] references %q which is a %s, not a scope", index, j, h, kind)
			}
		}
	} else if len(n.Unscope) != 0 {
		return fmt.Errorf("nodes[%d]: unscope is not allowed for %s", index, n.Kind)
	}

	return nil
}

// validateExpect validates the expect clause against the declared handles.
func validateExpect(e *ExpectClause, declared map[string]string) error {
	if e.Error != "" {
		if !knownErrorCodes[e.Error] {
			return fmt.Errorf("expect.error: unknown build error code %q", e.Error)
		}
		if len(e.Outputs) != 0 || len(e.Flows) != 0 {
			return fmt.Errorf("expect.error is mutually exclusive with outputs and flows")
		}
		return nil
	}

	if len(e.Outputs) == 0 && len(e.Flows) == 0 {
		return fmt.Errorf("expect requires at least one of outputs, flows, error")
	}

	for h := range e.Outputs {
		kind, ok := declared[h]
		if !ok {
			return fmt.Errorf("expect.outputs: %q is not a declared handle", h)
		}
		if kind != string(queryir.KindConsumer) {
			return fmt.Errorf("expect.outputs: %q is a %s, not a consumer", h, kind)
		}
	}

	for h, flow := range e.Flows {
		if _, ok := declared[h]; !ok {
			return fmt.Errorf("expect.flows: %q is not a declared handle", h)
		}
		if !flowNames[flow] {
			return fmt.Errorf("expect.flows[%s]: unknown classification %q", h, flow)
		}
	}

	return nil
}
