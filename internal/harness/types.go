package harness

import "github.com/roach88/flume/internal/stream"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success.
	// True if every expectation held.
	Pass bool `json:"pass"`

	// Token is the build token stamped on the pipeline. Empty when the
	// build failed.
	Token string `json:"token,omitempty"`

	// Structure is the pipeline structure dump (exec.Describe). Empty
	// when the build failed. Used for golden comparison.
	Structure string `json:"structure,omitempty"`

	// Outputs maps each consumer handle to the elements its sink
	// collected, in arrival order.
	Outputs map[string][]stream.Element `json:"outputs,omitempty"`

	// Flows maps each declared handle to its flow classification on the
	// declared graph.
	Flows map[string]string `json:"flows,omitempty"`

	// Errors contains expectation failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for scenario execution.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Outputs: make(map[string][]stream.Element),
		Flows:   make(map[string]string),
		Errors:  []string{},
	}
}

// AddError adds an expectation failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
