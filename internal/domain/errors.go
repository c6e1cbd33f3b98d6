package domain

import "errors"

var (
	// ErrValidation marks malformed or incomplete mapping/selection input. Not retryable.
	ErrValidation = errors.New("validation failed")
	// ErrMappingConflict is returned when a question is already mapped, or a mapping was changed
	// concurrently. Callers should re-fetch the assignable set and retry.
	ErrMappingConflict = errors.New("mapping conflict")
	// ErrNotFound indicates a stale id reference.
	ErrNotFound = errors.New("not found")
	// ErrNoAttemptData is returned when submitting an attempt that has no persisted snapshot.
	ErrNoAttemptData = errors.New("no attempt data")
	// ErrNetworkFailure wraps transport failures while submitting. The local snapshot is kept.
	ErrNetworkFailure = errors.New("network failure")
	// ErrSessionInvalid indicates the caller's session could not be verified.
	ErrSessionInvalid = errors.New("session invalid")

	// ErrQuizNotFound indicates the quiz could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuizClosed is returned when a quiz is hidden or outside its start/end window.
	ErrQuizClosed = errors.New("quiz not open for attempts")
	// ErrSubmissionInFlight rejects re-entrant submissions and edits while one is pending.
	ErrSubmissionInFlight = errors.New("submission already in flight")
	// ErrAttemptSubmitted rejects mutations of an attempt that has been acknowledged.
	ErrAttemptSubmitted = errors.New("attempt already submitted")
	// ErrAttemptExpired rejects edits once the countdown has reached zero. Submit and reset
	// remain available.
	ErrAttemptExpired = errors.New("attempt time is up")
)

// ValidationError carries the field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return "validation failed: " + e.Field + ": " + e.Reason
}

// Is lets callers match any ValidationError with errors.Is(err, ErrValidation).
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid builds a ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
