package harness

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/roach88/flume/internal/stream"
	"github.com/roach88/flume/internal/translate"
)

// AssertionError is recorded when an expectation fails.
// It includes both sides to help debug the failure.
type AssertionError struct {
	Subject  string // What was checked, e.g. "outputs[sink]"
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Subject)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// evaluateBuildError checks an error expectation against the build
// outcome: the build must have failed with a BuildError carrying the
// expected code.
func evaluateBuildError(result *Result, wantCode string, err error) {
	if err == nil {
		result.AddError((&AssertionError{
			Subject:  "build error",
			Expected: wantCode,
			Actual:   "build succeeded",
		}).Error())
		return
	}

	var be *translate.BuildError
	if !errors.As(err, &be) {
		result.AddError((&AssertionError{
			Subject:  "build error",
			Expected: wantCode,
			Actual:   fmt.Sprintf("non-build error: %v", err),
		}).Error())
		return
	}

	if string(be.Code) != wantCode {
		result.AddError((&AssertionError{
			Subject:  "build error",
			Expected: wantCode,
			Actual:   fmt.Sprintf("%s (%v)", be.Code, be),
		}).Error())
	}
}

// evaluateOutputs compares expected per-consumer outputs against the
// collected sequences. Handles are checked in sorted order so failure
// lists are deterministic.
func evaluateOutputs(expected map[string][]any, actual map[string][]stream.Element) []string {
	if len(expected) == 0 {
		return nil
	}

	handles := make([]string, 0, len(expected))
	for h := range expected {
		handles = append(handles, h)
	}
	sort.Strings(handles)

	var errs []string
	for _, h := range handles {
		if !elementsEqual(expected[h], actual[h]) {
			errs = append(errs, (&AssertionError{
				Subject:  fmt.Sprintf("outputs[%s]", h),
				Expected: fmt.Sprintf("%v", expected[h]),
				Actual:   fmt.Sprintf("%v", actual[h]),
			}).Error())
		}
	}
	return errs
}

// evaluateFlows compares expected flow classifications against the
// computed ones.
func evaluateFlows(expected map[string]string, actual map[string]string) []string {
	if len(expected) == 0 {
		return nil
	}

	handles := make([]string, 0, len(expected))
	for h := range expected {
		handles = append(handles, h)
	}
	sort.Strings(handles)

	var errs []string
	for _, h := range handles {
		if actual[h] != expected[h] {
			errs = append(errs, (&AssertionError{
				Subject:  fmt.Sprintf("flows[%s]", h),
				Expected: expected[h],
				Actual:   actual[h],
			}).Error())
		}
	}
	return errs
}

// elementsEqual compares an expected element list against a collected
// one positionally. A nil expected element matches only a nil collected
// element.
func elementsEqual(expected []any, actual []stream.Element) bool {
	if len(expected) != len(actual) {
		return false
	}
	for i := range expected {
		if expected[i] == nil || actual[i] == nil {
			if expected[i] != actual[i] {
				return false
			}
			continue
		}
		if !reflect.DeepEqual(expected[i], actual[i]) {
			return false
		}
	}
	return true
}
