package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRunWithGolden_ExampleScenarios snapshots the pipeline structure of
// every executable scenario in testdata/scenarios.
// First run with -update to create golden files:
//
//	go test ./internal/harness -update
func TestRunWithGolden_ExampleScenarios(t *testing.T) {
	names := []string{
		"linear_double",
		"aggregate_then_filter",
		"combine_branches",
		"merge_scopes",
		"typed_cleanup",
		"combine_drop_uneven",
	}

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
			require.NoError(t, err)

			require.NoError(t, RunWithGolden(t, scenario))
		})
	}
}

func TestRunWithGolden_InlineScenario(t *testing.T) {
	scenario := &Scenario{
		Name:        "inline_negate",
		Description: "Inline scenario snapshots like a loaded one",
		BuildToken:  "test-build-inline-001",
		Nodes: []NodeSpec{
			{Handle: "source", Kind: "root"},
			{Handle: "negated", Kind: "map", Parents: []string{"source"}, Fn: "negate"},
			{Handle: "sink", Kind: "consumer", Parents: []string{"negated"}},
		},
		Input: []any{1, 2},
		Expect: ExpectClause{
			Outputs: map[string][]any{"sink": {-1, -2}},
		},
	}

	require.NoError(t, RunWithGolden(t, scenario))
}

func TestAssertGolden_FromResult(t *testing.T) {
	scenario := &Scenario{
		Name:        "assert_golden_source",
		Description: "AssertGolden works on an already-run result",
		BuildToken:  "test-build-assert-golden",
		Nodes: []NodeSpec{
			{Handle: "source", Kind: "root"},
			{Handle: "kept", Kind: "filter", Parents: []string{"source"}, Fn: "positive"},
			{Handle: "sink", Kind: "consumer", Parents: []string{"kept"}},
		},
		Input: []any{3, -1, 2},
		Expect: ExpectClause{
			Outputs: map[string][]any{"sink": {3, 2}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	require.NoError(t, AssertGolden(t, "assert_golden_from_result", result))
}

func TestAssertGolden_NoStructure(t *testing.T) {
	// A build-error scenario never produces a pipeline, so there is
	// nothing to snapshot.
	err := AssertGolden(t, "never_written", NewResult())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "produced no pipeline structure to snapshot")
}
