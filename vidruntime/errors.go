package vidruntime

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure produced by this package matches exactly one
// of these via errors.Is, so callers can branch on the class of failure
// without string matching.
var (
	// ErrConfig indicates an invalid pipeline configuration, such as a
	// weight path that does not point at a regular file.
	ErrConfig = errors.New("vidruntime: invalid configuration")

	// ErrModelLoad indicates a model failed to load, or a model operation
	// was invoked while the model was unloaded.
	ErrModelLoad = errors.New("vidruntime: model load failure")

	// ErrGPUMemory indicates the pre-flight capacity check found less free
	// device memory than the request needs.
	ErrGPUMemory = errors.New("vidruntime: insufficient GPU memory")

	// ErrPipeline indicates a pipeline-level failure: construction, the
	// staged load, or generating before the models are loaded.
	ErrPipeline = errors.New("vidruntime: pipeline failure")

	// ErrGeneration indicates an invalid generation request or an
	// unclassified failure during the generation run itself.
	ErrGeneration = errors.New("vidruntime: generation failure")
)

// Error is the structured error for model and generation failures. It
// carries a technical message destined for logs and an optional
// user-facing message safe to show verbatim; UserMessage falls back to
// the technical text when no user message was set.
type Error struct {
	kind    error  // one of the five kind sentinels
	Message string // technical description
	User    string // user-facing description, may be empty
	Err     error  // underlying cause, may be nil

	// RequiredMB and AvailableMB are populated on ErrGPUMemory so
	// callers can report the shortfall without parsing messages.
	RequiredMB  float64
	AvailableMB float64
}

// Error formats the kind, the technical message and the cause.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind.Error(), e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.kind.Error(), e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error { return e.Err }

// Is matches the error's kind sentinel, so errors.Is(err, ErrModelLoad)
// works without losing the wrapped cause.
func (e *Error) Is(target error) bool { return target == e.kind }

// Kind returns the kind sentinel this error matches.
func (e *Error) Kind() error { return e.kind }

// UserMessage returns the user-facing message, or the technical message
// when none was set.
func (e *Error) UserMessage() string {
	if e.User != "" {
		return e.User
	}
	return e.Message
}

// NewConfigError builds an ErrConfig error.
func NewConfigError(message, user string) *Error {
	return &Error{kind: ErrConfig, Message: message, User: user}
}

// NewModelLoadError builds an ErrModelLoad error wrapping cause.
func NewModelLoadError(message, user string, cause error) *Error {
	return &Error{kind: ErrModelLoad, Message: message, User: user, Err: cause}
}

// NewGPUMemoryError builds an ErrGPUMemory error from the shortfall
// figures. operation names what was being attempted, for the user text.
func NewGPUMemoryError(requiredMB, availableMB float64, operation string) *Error {
	return &Error{
		kind:    ErrGPUMemory,
		Message: fmt.Sprintf("GPU memory insufficient: %.0fMB < %.0fMB", availableMB, requiredMB),
		User: fmt.Sprintf(
			"Insufficient GPU memory for %s. Required: %.0fMB, Available: %.0fMB. "+
				"Try reducing the resolution or freeing GPU memory.",
			operation, requiredMB, availableMB),
		RequiredMB:  requiredMB,
		AvailableMB: availableMB,
	}
}

// NewPipelineError builds an ErrPipeline error wrapping cause.
func NewPipelineError(message, user string, cause error) *Error {
	return &Error{kind: ErrPipeline, Message: message, User: user, Err: cause}
}

// NewGenerationError builds an ErrGeneration error wrapping cause.
func NewGenerationError(message, user string, cause error) *Error {
	return &Error{kind: ErrGeneration, Message: message, User: user, Err: cause}
}

// isDomainError reports whether err already carries one of the five
// kinds. Generate uses it to pass classified failures through unchanged
// and wrap everything else as ErrGeneration.
func isDomainError(err error) bool {
	var de *Error
	return errors.As(err, &de)
}
