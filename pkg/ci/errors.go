package ci

import "errors"

// Errors returned by the ci package.
var (
	// ErrNoEngine is returned when constructing a Session without a protocol
	// engine.
	ErrNoEngine = errors.New("ci: no protocol engine configured")

	// ErrUnknownDevice is returned for operations on a MUID that has not
	// been discovered.
	ErrUnknownDevice = errors.New("ci: unknown device")

	// ErrEndpointNotReady is returned when a property request is attempted
	// before the device's endpoint reply has been observed.
	ErrEndpointNotReady = errors.New("ci: endpoint not ready")

	// ErrMUIDExhausted is returned when MUID generation repeatedly produces
	// reserved values. Practically unreachable.
	ErrMUIDExhausted = errors.New("ci: could not generate MUID")
)
