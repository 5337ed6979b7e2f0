package transport

import "errors"

// Transport errors.
var (
	// ErrClosed is returned when an operation is attempted on a closed transport.
	ErrClosed = errors.New("transport: closed")

	// ErrInvalidAddress is returned when an invalid peer address is provided.
	ErrInvalidAddress = errors.New("transport: invalid address")

	// ErrNoHandler is returned when no packet handler is configured.
	ErrNoHandler = errors.New("transport: no packet handler configured")

	// ErrAlreadyStarted is returned when Start is called on an already running transport.
	ErrAlreadyStarted = errors.New("transport: already started")

	// ErrDatagramTooLarge is returned when an outgoing datagram exceeds the
	// maximum size.
	ErrDatagramTooLarge = errors.New("transport: datagram too large")

	// ErrNoPackets is returned when a send is attempted with nothing to send.
	ErrNoPackets = errors.New("transport: no packets to send")
)
