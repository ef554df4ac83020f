package flowercare

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/plantmon/flowercare/internal/ble"
)

// LinkState is the connection state of a Link.
type LinkState int

const (
	StateDisconnected LinkState = iota
	StateConnecting
	StateConnected
	StateDisconnecting
)

func (s LinkState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	default:
		return fmt.Sprintf("LinkState(%d)", int(s))
	}
}

// Link owns the physical connection to one device. It is held
// exclusively by one Session and must not be used from two call sites
// concurrently: the radio does not tolerate interleaved command
// sequences, so operations are serialized by the caller's single-flow
// usage, not by internal locking.
type Link struct {
	adapter ble.Adapter
	address string
	log     *slog.Logger

	state LinkState
	conn  ble.Connection
	chars map[string]ble.Characteristic // discovered, keyed by characteristic UUID
}

func newLink(adapter ble.Adapter, address string, log *slog.Logger) *Link {
	return &Link{
		adapter: adapter,
		address: address,
		log:     log,
		state:   StateDisconnected,
	}
}

// State returns the current connection state.
func (l *Link) State() LinkState { return l.state }

// Connect moves the link Disconnected → Connecting → Connected. On
// failure or timeout the link ends Disconnected and nothing is held.
func (l *Link) Connect(ctx context.Context, timeout time.Duration) error {
	if l.state != StateDisconnected {
		return fmt.Errorf("%w: connect attempted in state %s", ErrConnectionFailed, l.state)
	}
	l.state = StateConnecting

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := l.adapter.Connect(ctx, l.address)
	if err != nil {
		l.state = StateDisconnected
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s after %s", ErrConnectionTimeout, l.address, timeout)
		}
		return fmt.Errorf("%w: %s: %v", ErrConnectionFailed, l.address, err)
	}

	l.conn = conn
	l.chars = make(map[string]ble.Characteristic)
	l.state = StateConnected
	l.log.Debug("link connected", "address", l.address)
	return nil
}

// Disconnect releases the link. It always succeeds from the caller's
// perspective: transport errors during teardown are logged and
// swallowed, since the caller cannot recover a connection it is
// abandoning. Safe to call in any state.
func (l *Link) Disconnect() {
	if l.state == StateDisconnected {
		return
	}
	l.state = StateDisconnecting
	if l.conn != nil {
		if err := l.conn.Disconnect(); err != nil {
			l.log.Warn("disconnect failed", "address", l.address, "error", err)
		}
	}
	l.conn = nil
	l.chars = nil
	l.state = StateDisconnected
	l.log.Debug("link disconnected", "address", l.address)
}

// Read reads a characteristic value. Fails with ErrNotConnected without
// touching the transport when the link is not Connected; transport
// failures surface as ErrConnectionFailed, and on ctx expiry the link
// is released and left Disconnected.
func (l *Link) Read(ctx context.Context, serviceUUID, charUUID string) ([]byte, error) {
	char, err := l.characteristic(serviceUUID, charUUID)
	if err != nil {
		return nil, err
	}

	type result struct {
		data []byte
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		data, err := char.Read()
		ch <- result{data, err}
	}()

	var res result
	select {
	case <-ctx.Done():
	case res = <-ch:
	}
	// Cancellation wins even when the transport read has already
	// completed, so the teardown path is deterministic.
	if ctxErr := ctx.Err(); ctxErr != nil {
		l.Disconnect()
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: read %s", ErrConnectionTimeout, charUUID)
		}
		return nil, fmt.Errorf("flowercare: read %s: %w", charUUID, ctxErr)
	}
	if res.err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrConnectionFailed, charUUID, res.err)
	}
	return res.data, nil
}

// Write writes a payload to a characteristic. Same state and timeout
// rules as Read; transport failures surface as ErrCommandWrite.
func (l *Link) Write(ctx context.Context, serviceUUID, charUUID string, payload []byte) error {
	char, err := l.characteristic(serviceUUID, charUUID)
	if err != nil {
		return err
	}

	ch := make(chan error, 1)
	go func() {
		ch <- char.Write(payload)
	}()

	var writeErr error
	select {
	case <-ctx.Done():
	case writeErr = <-ch:
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		l.Disconnect()
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return fmt.Errorf("%w: write %s", ErrConnectionTimeout, charUUID)
		}
		return fmt.Errorf("flowercare: write %s: %w", charUUID, ctxErr)
	}
	if writeErr != nil {
		return fmt.Errorf("%w: %s: %v", ErrCommandWrite, charUUID, writeErr)
	}
	return nil
}

// characteristic gates on the Connected state and caches discovery
// results for the lifetime of the connection.
func (l *Link) characteristic(serviceUUID, charUUID string) (ble.Characteristic, error) {
	if l.state != StateConnected {
		return nil, fmt.Errorf("%w: link is %s", ErrNotConnected, l.state)
	}
	if char, ok := l.chars[charUUID]; ok {
		return char, nil
	}
	char, err := l.conn.DiscoverCharacteristic(serviceUUID, charUUID)
	if err != nil {
		return nil, fmt.Errorf("%w: discover %s: %v", ErrConnectionFailed, charUUID, err)
	}
	l.chars[charUUID] = char
	return char, nil
}
