package translate

import (
	"errors"
	"fmt"

	"github.com/roach88/flume/internal/ident"
)

// BuildError represents a failure detected during graph translation.
//
// Build errors include:
//   - Structural defects: validation failures, dependency cycles
//   - Ordering violations: a node translated before its parents
//   - Resolution failures: unknown function names, kind mismatches
//   - Lifecycle misuse: recording into a finalized context
//
// BuildError includes structured fields for diagnostics and recovery.
type BuildError struct {
	// Code identifies the error category.
	Code BuildErrorCode

	// Message is a human-readable description.
	Message string

	// BuildToken identifies the affected build.
	BuildToken string

	// NodeID identifies the query node involved, when one is.
	NodeID ident.NodeID

	// Details contains additional context.
	Details map[string]string
}

// BuildErrorCode categorizes build errors.
type BuildErrorCode string

const (
	// ErrCodeInvalidGraph indicates the graph failed structural validation.
	ErrCodeInvalidGraph BuildErrorCode = "INVALID_GRAPH"

	// ErrCodeGraphCycle indicates the graph's parent edges form a cycle.
	ErrCodeGraphCycle BuildErrorCode = "GRAPH_CYCLE"

	// ErrCodeRootNotFound indicates no entry root was translated.
	ErrCodeRootNotFound BuildErrorCode = "ROOT_NOT_FOUND"

	// ErrCodeNodeNotTranslated indicates a parent lookup ran ahead of the
	// dependency order.
	ErrCodeNodeNotTranslated BuildErrorCode = "NODE_NOT_TRANSLATED"

	// ErrCodeUnknownFunction indicates a named reference has no registry
	// entry.
	ErrCodeUnknownFunction BuildErrorCode = "UNKNOWN_FUNCTION"

	// ErrCodeFunctionKindMismatch indicates a resolved function does not
	// fit its use site.
	ErrCodeFunctionKindMismatch BuildErrorCode = "FUNCTION_KIND_MISMATCH"

	// ErrCodeUnsupportedNode indicates a node variant the builder cannot
	// translate.
	ErrCodeUnsupportedNode BuildErrorCode = "UNSUPPORTED_NODE"

	// ErrCodeContextFinalized indicates recording into a context after
	// Executable() sealed it.
	ErrCodeContextFinalized BuildErrorCode = "CONTEXT_FINALIZED"
)

// Error implements the error interface.
func (e *BuildError) Error() string {
	if e.BuildToken != "" && e.NodeID.IsValid() {
		return fmt.Sprintf("%s: %s (build=%s, node=%d)", e.Code, e.Message, e.BuildToken, e.NodeID)
	}
	if e.BuildToken != "" {
		return fmt.Sprintf("%s: %s (build=%s)", e.Code, e.Message, e.BuildToken)
	}
	if e.NodeID.IsValid() {
		return fmt.Sprintf("%s: %s (node=%d)", e.Code, e.Message, e.NodeID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsOrderingError returns true if the error is an ordering violation
// (a node translated before its parents).
// Uses errors.As to handle wrapped errors.
func IsOrderingError(err error) bool {
	var be *BuildError
	if errors.As(err, &be) {
		return be.Code == ErrCodeNodeNotTranslated
	}
	return false
}

// IsMissingRootError returns true if the error reports a build without an
// entry root.
// Uses errors.As to handle wrapped errors.
func IsMissingRootError(err error) bool {
	var be *BuildError
	if errors.As(err, &be) {
		return be.Code == ErrCodeRootNotFound
	}
	return false
}

// IsValidationError returns true if the error reports a structural
// validation failure.
// Uses errors.As to handle wrapped errors.
func IsValidationError(err error) bool {
	var be *BuildError
	if errors.As(err, &be) {
		return be.Code == ErrCodeInvalidGraph
	}
	return false
}

// IsCycleError returns true if the error reports a dependency cycle.
// Uses errors.As to handle wrapped errors.
func IsCycleError(err error) bool {
	var be *BuildError
	if errors.As(err, &be) {
		return be.Code == ErrCodeGraphCycle
	}
	return false
}

// newOrderingError creates a BuildError for a parent translated out of
// dependency order.
func newOrderingError(token string, id ident.NodeID) *BuildError {
	return &BuildError{
		Code:       ErrCodeNodeNotTranslated,
		Message:    "query node has no executable counterpart yet",
		BuildToken: token,
		NodeID:     id,
	}
}

// newKindMismatchError creates a BuildError for a function that does not
// fit its use site.
func newKindMismatchError(token string, id ident.NodeID, cause error) *BuildError {
	return &BuildError{
		Code:       ErrCodeFunctionKindMismatch,
		Message:    cause.Error(),
		BuildToken: token,
		NodeID:     id,
	}
}
