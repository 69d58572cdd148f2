// Package errs holds the error kinds shared across sensorium's
// packages: plain sentinel values callers compare with errors.Is,
// wrapped with call context via fmt.Errorf("%w: ...", ...).
package errs

import "errors"

var (
	// ErrInvalidInput marks a non-finite or otherwise malformed numeric
	// input to the estimator or association kernel.
	ErrInvalidInput = errors.New("sensorium: invalid numeric input")

	// ErrDecode marks a value in the store that failed to unmarshal.
	// Callers treat it as non-fatal and skip the offending key.
	ErrDecode = errors.New("sensorium: decode failure")

	// ErrStore marks a connectivity, timeout, or protocol failure
	// talking to the shared store. Fatal for the current tick.
	ErrStore = errors.New("sensorium: store failure")

	// ErrConfig marks invalid configuration at construction. Fatal at
	// startup.
	ErrConfig = errors.New("sensorium: invalid configuration")
)
