package harness

import (
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// RunWithGolden executes a scenario and compares the built pipeline
// structure against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Golden files serve as the source of truth for expected pipeline
// structure: same scenario, same allocator sequence, same dump. The
// scenario's own expectations are evaluated as usual and surface in the
// returned result's Errors; this function only adds the snapshot
// comparison.
//
// Returns an error when the scenario could not execute or produced no
// pipeline to snapshot. Structure mismatches fail t via goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}

	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares the given result's pipeline structure against a
// golden file. This is useful when a scenario has already run and the
// caller wants the snapshot comparison without re-running.
//
// Parameters:
//   - t: testing.T instance for test assertions
//   - name: name used for the golden file (without extension)
//   - result: the result from running a scenario
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	if result.Structure == "" {
		return fmt.Errorf("scenario %q produced no pipeline structure to snapshot", name)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(result.Structure))

	return nil
}
