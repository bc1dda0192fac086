package orchestrator

import (
	"fmt"
	"strings"

	"github.com/dusk-indust/casier/internal/lock"
)

// ValidationError reports a malformed or inconsistent request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s: %s", e.Field, e.Reason)
}

// MissingEvaluationError reports a document type that needs an evaluation
// when the request carries none.
type MissingEvaluationError struct {
	DocumentType string
}

func (e *MissingEvaluationError) Error() string {
	return fmt.Sprintf("document type %q requires an evaluation", e.DocumentType)
}

// UnmetDependencyError lists required prerequisite document types that have
// not been generated yet.
type UnmetDependencyError struct {
	DocumentType string
	Missing      []string
}

func (e *UnmetDependencyError) Error() string {
	return fmt.Sprintf("document type %q has unmet prerequisites: %s",
		e.DocumentType, strings.Join(e.Missing, ", "))
}

// GenerationError reports a failure of the remote generation service. The
// artifact has already been moved to the error state.
type GenerationError struct {
	ArtifactID string
	Message    string
	Err        error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation of artifact %s failed: %s", e.ArtifactID, e.Message)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// ErrDispatchInProgress is returned when a Locker reports that the same
// (client, evaluation, document type) is already being generated.
var ErrDispatchInProgress = lock.ErrHeld
