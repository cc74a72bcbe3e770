package enrichment

import "errors"

// Common errors returned by Invoker implementations
var (
	// ErrResourceExhausted is returned when the credential used for the call
	// has hit its rate or quota limit and must cool down
	ErrResourceExhausted = errors.New("credential quota exhausted")

	// ErrInvalidCredential is returned when the service rejects the
	// credential itself; the credential is permanently unusable
	ErrInvalidCredential = errors.New("credential rejected by service")

	// ErrTransient is returned for temporary failures that might resolve on
	// retry with a different attempt or credential
	ErrTransient = errors.New("transient enrichment failure")

	// ErrInvalidConfig is returned when an invoker is constructed with an
	// invalid configuration
	ErrInvalidConfig = errors.New("invalid enricher configuration")
)
