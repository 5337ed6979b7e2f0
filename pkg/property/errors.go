package property

import "errors"

// Errors returned by the property package.
var (
	// ErrNoTransmitter is returned when constructing a Requestor without a
	// transmit function.
	ErrNoTransmitter = errors.New("property: no transmitter configured")

	// ErrTransmitFailed wraps a transmitter error. The pending entry added
	// for the request is rolled back so the next call can retry immediately.
	ErrTransmitFailed = errors.New("property: transmit failed")

	// ErrEmptyBody is returned when parsing an empty resource body.
	ErrEmptyBody = errors.New("property: empty body")

	// ErrInvalidBody is returned when a resource body is not valid JSON of
	// the expected shape.
	ErrInvalidBody = errors.New("property: invalid body")
)
