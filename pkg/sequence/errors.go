package sequence

import "errors"

var (
	// ErrNoOrigin marks a controller without an origin link. It stays inert.
	ErrNoOrigin = errors.New("sequence: no origin element")
	// ErrInvalidOrigin marks an origin whose href is missing or malformed.
	ErrInvalidOrigin = errors.New("sequence: invalid origin href")
	// ErrCrossOrigin marks an origin pointing at another origin than the page.
	ErrCrossOrigin = errors.New("sequence: origin href is cross-origin")
	// ErrFormNotFound is reported when a successful response holds no form
	// matching the form filter.
	ErrFormNotFound = errors.New("sequence: form not found in response")
	// ErrNoTarget is returned when a step has neither a URL, a form nor a
	// previous request to retry.
	ErrNoTarget = errors.New("sequence: step has no target")
)
