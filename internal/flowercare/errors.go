package flowercare

import "errors"

// Error kinds returned by the protocol engine. Every public operation
// either returns a fully valid result or fails with exactly one of
// these, wrapped with context; callers branch with errors.Is.
var (
	// ErrConnectionFailed reports a failed connection attempt, or a
	// transport failure on an established link (a characteristic read or
	// discovery that the radio rejected).
	ErrConnectionFailed = errors.New("flowercare: connection failed")
	// ErrConnectionTimeout reports a connect or transfer that exceeded
	// the caller-supplied deadline.
	ErrConnectionTimeout = errors.New("flowercare: connection timeout")
	// ErrNotConnected reports an operation attempted outside the
	// Connected state. No transport I/O is performed.
	ErrNotConnected = errors.New("flowercare: not connected")
	// ErrCommandWrite reports a failed command write.
	ErrCommandWrite = errors.New("flowercare: command write failed")
	// ErrStaleRead reports the firmware's unpopulated-characteristic
	// sentinel, returned when the live read happens without (or too soon
	// after) the mode-change write.
	ErrStaleRead = errors.New("flowercare: stale sensor data")
	// ErrMalformedFrame reports a length or structural mismatch during
	// decoding.
	ErrMalformedFrame = errors.New("flowercare: malformed frame")
	// ErrUnknownCommand reports a command name outside the closed
	// command set. This is a programming error, not a runtime condition.
	ErrUnknownCommand = errors.New("flowercare: unknown command")
)
