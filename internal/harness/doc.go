// Package harness provides conformance testing for query-graph builds.
//
// The harness assembles a query graph from a declarative scenario,
// builds it into an executable pipeline, runs an input batch through it,
// and validates the collected outputs, flow classifications, or expected
// build failure.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	build_token: "test-build-00000000-0000-0000-0000-000000000001"
//	transformations:
//	  - merge_scopes
//	nodes:
//	  - handle: source
//	    kind: root
//	  - handle: open
//	    kind: scope
//	    parents: [source]
//	    scope: group
//	  - handle: expand
//	    kind: flat_map
//	    parents: [open]
//	    fn: count_up
//	  - handle: total
//	    kind: aggregate_drop
//	    parents: [expand]
//	    fn: sum
//	  - handle: close
//	    kind: unscope
//	    parents: [total]
//	    unscope: [open]
//	  - handle: sink
//	    kind: consumer
//	    parents: [close]
//	input: [3, 2]
//	expect:
//	  outputs:
//	    sink: [6, 3]
//	  flows:
//	    close: many
//
// Nodes are declared parents-first; node ids are assigned in declaration
// order by a fresh deterministic allocator, so the same scenario always
// produces the same graph. Scope nodes sharing a `scope` label share one
// logical scope id; `unscope` lists the handles of the scope nodes being
// closed. Functions are referenced by builtin name (see Builtins).
//
// # Expectations
//
// The expect clause supports three forms:
//
//   - outputs: per-consumer-handle list of expected elements, compared
//     positionally against what the consumer's sink collected
//   - flows: per-handle expected flow classification (unknown, single,
//     optional, many, error), checked against ClassifyFlows on the
//     declared graph
//   - error: an expected build error code (e.g. UNKNOWN_FUNCTION); the
//     scenario passes only when the build fails with that code
//
// An error expectation excludes the other two: a failed build produces
// nothing to run.
//
// # Deterministic Testing
//
// All scenarios execute with a deterministic allocator and a static build
// token to ensure reproducible results and golden snapshot comparison.
//
// The harness uses:
//   - Fresh testutil.DeterministicAllocator per run (node ids 1..n)
//   - Static build token (from scenario.build_token or "test-build-default")
//   - The Builtins function registry
//
// This ensures identical pipeline structure dumps across runs for golden
// file comparison.
//
// # Usage
//
// Load and run a scenario:
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/scoped_sum.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
//
// Snapshot the built pipeline structure:
//
//	err := harness.RunWithGolden(t, scenario)
package harness
