package refdata

import "errors"

// ErrReferenceNotFound is returned when a language, certification type or
// delivery option id does not resolve. Callers must surface it; multipliers
// are never silently defaulted.
var ErrReferenceNotFound = errors.New("reference not found")
