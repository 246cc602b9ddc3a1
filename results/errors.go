package results

import "errors"

// Sentinel errors returned by strategies. Wrapped errors carry the subject
// and the reason; test with errors.Is.
var (
	// ErrUnscoreable means the scorer cannot produce a score for the subject.
	ErrUnscoreable = errors.New("unscoreable")
	// ErrValidation means the validator cannot validate the subject.
	ErrValidation = errors.New("validation error")
	// ErrUnknownStrategy means no strategy is registered under the requested kind.
	ErrUnknownStrategy = errors.New("unknown strategy")
)
