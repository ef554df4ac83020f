package flowercare

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/plantmon/flowercare/internal/ble"
)

// SessionOptions configures a Session.
type SessionOptions struct {
	// ConnectTimeout bounds each connection attempt.
	ConnectTimeout time.Duration
	// SettleDelay is the pause between the mode-change write and the
	// live-data read. The firmware needs processing time before the
	// characteristic holds valid data.
	SettleDelay time.Duration
	Logger      *slog.Logger
}

// DefaultSessionOptions returns sensible defaults.
func DefaultSessionOptions() SessionOptions {
	return SessionOptions{
		ConnectTimeout: 10 * time.Second,
		SettleDelay:    500 * time.Millisecond,
	}
}

// Session composes the connection state machine, the command set and
// the frame codec into the public device operations. A session owns its
// link exclusively and performs each operation exactly once per call;
// retry policy is layered on top by the caller (see Retry).
//
// A session must not be invoked concurrently from two call sites. The
// radio link does not tolerate interleaved command sequences, so the
// single-flow contract is documented rather than enforced with locks.
// Sessions for different physical devices are independent.
type Session struct {
	handle DeviceHandle
	link   *Link
	opts   SessionOptions
	log    *slog.Logger
	now    func() time.Time
}

// NewSession creates a disconnected session for a discovered device.
// Use Connect/Disconnect directly or the With bracket.
func NewSession(adapter ble.Adapter, handle DeviceHandle, opts SessionOptions) *Session {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = 500 * time.Millisecond
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "session"), slog.String("address", handle.Address))
	return &Session{
		handle: handle,
		link:   newLink(adapter, handle.Address, log),
		opts:   opts,
		log:    log,
		now:    time.Now,
	}
}

// Handle returns the device handle the session was created from.
func (s *Session) Handle() DeviceHandle { return s.handle }

// State returns the connection state.
func (s *Session) State() LinkState { return s.link.State() }

// Connect establishes the link.
func (s *Session) Connect(ctx context.Context) error {
	return s.link.Connect(ctx, s.opts.ConnectTimeout)
}

// Disconnect releases the link. Best-effort; never fails.
func (s *Session) Disconnect() {
	s.link.Disconnect()
}

// With connects, runs fn against the connected session, and guarantees
// exactly one disconnect on every exit path.
func (s *Session) With(ctx context.Context, fn func(*Session) error) error {
	if err := s.Connect(ctx); err != nil {
		return err
	}
	defer s.Disconnect()
	return fn(s)
}

// ReadLiveData switches the device into realtime mode, waits for the
// firmware to settle, then reads and decodes the live frame. The
// returned reading is stamped with the read time.
func (s *Session) ReadLiveData(ctx context.Context) (SensorReading, error) {
	if err := s.writeCommand(ctx, CmdRealtimeData); err != nil {
		return SensorReading{}, err
	}
	if err := s.settle(ctx); err != nil {
		return SensorReading{}, err
	}

	raw, err := s.link.Read(ctx, serviceData, charSensorData)
	if err != nil {
		return SensorReading{}, err
	}
	if isStaleFrame(raw) {
		return SensorReading{}, fmt.Errorf("%w: % x", ErrStaleRead, raw)
	}
	reading, err := DecodeLiveReading(raw)
	if err != nil {
		return SensorReading{}, err
	}
	reading.Timestamp = s.now()
	return reading, nil
}

// ReadDeviceInfo reads name, firmware version and battery level. The
// optional characteristics degrade independently: an unreadable name
// falls back to the advertised name, an unreadable firmware payload
// leaves version and battery unset. Partial success is valid.
func (s *Session) ReadDeviceInfo(ctx context.Context) (DeviceInfo, error) {
	if s.link.State() != StateConnected {
		return DeviceInfo{}, fmt.Errorf("%w: link is %s", ErrNotConnected, s.link.State())
	}

	info := DeviceInfo{Name: s.handle.Name, Address: s.handle.Address}
	if info.Name == "" {
		info.Name = "Unknown"
	}

	if raw, err := s.link.Read(ctx, serviceGenericAccess, charDeviceName); err == nil {
		if name := trimDeviceName(raw); name != "" {
			info.Name = name
		}
	} else if errors.Is(err, ErrNotConnected) || errors.Is(err, ErrConnectionTimeout) {
		return DeviceInfo{}, err
	} else {
		s.log.Debug("device name unavailable", "error", err)
	}

	if raw, err := s.link.Read(ctx, serviceData, charFirmwareBattery); err == nil {
		if batt, fw, derr := DecodeFirmwareBattery(raw); derr == nil {
			info.FirmwareVersion = fw
			info.BatteryLevel = &batt
		} else {
			s.log.Debug("firmware payload malformed", "error", derr)
		}
	} else if errors.Is(err, ErrNotConnected) || errors.Is(err, ErrConnectionTimeout) {
		return DeviceInfo{}, err
	} else {
		s.log.Debug("firmware characteristic unavailable", "error", err)
	}

	return info, nil
}

// ReadHistory reads every stored historical entry and converts each
// device-relative offset into an absolute timestamp using the device
// clock reference captured at the start of the call. Entries are
// returned in device storage order, which is assumed chronological; no
// re-sorting happens, so a firmware ordering anomaly stays visible.
//
// The call is atomic: cancellation or any failure mid-iteration
// discards partial results, and cancellation also releases the link.
// With tens of entries at one round-trip each, expect many seconds.
func (s *Session) ReadHistory(ctx context.Context) ([]HistoricalEntry, error) {
	epochRaw, err := s.link.Read(ctx, serviceHistory, charEpochTime)
	if err != nil {
		return nil, err
	}
	deviceClock, err := DecodeDeviceEpoch(epochRaw)
	if err != nil {
		return nil, err
	}
	reference := s.now()

	if err := s.writeCommand(ctx, CmdHistoryReadInit); err != nil {
		return nil, err
	}
	headerRaw, err := s.link.Read(ctx, serviceHistory, charHistoryData)
	if err != nil {
		return nil, err
	}
	count, err := DecodeHistoryHeader(headerRaw)
	if err != nil {
		return nil, err
	}
	s.log.Debug("history header", "entries", count, "device_clock", deviceClock)

	entries := make([]HistoricalEntry, 0, count)
	for i := uint16(0); i < count; i++ {
		if ctx.Err() != nil {
			s.link.Disconnect()
			return nil, fmt.Errorf("flowercare: history read cancelled after %d of %d entries: %w", i, count, ctx.Err())
		}
		if err := s.link.Write(ctx, serviceHistory, charHistoryControl, HistoryEntryAddress(i)); err != nil {
			return nil, err
		}
		raw, err := s.link.Read(ctx, serviceHistory, charHistoryData)
		if err != nil {
			return nil, err
		}
		offset, reading, err := DecodeHistoricalEntry(raw)
		if err != nil {
			return nil, fmt.Errorf("flowercare: entry %d: %w", i, err)
		}
		// An entry cannot be recorded in the device clock's future; the
		// unsigned subtraction below would wrap and date it decades back.
		if offset > deviceClock {
			return nil, fmt.Errorf("%w: entry %d offset %ds is ahead of the device clock %ds", ErrMalformedFrame, i, offset, deviceClock)
		}

		// The entry's offset and the clock reference share the device
		// epoch, so their difference is the entry's age at reference time.
		age := time.Duration(deviceClock-offset) * time.Second
		ts := reference.Add(-age)
		reading.Timestamp = ts
		entries = append(entries, HistoricalEntry{
			Timestamp:    ts,
			DeviceOffset: offset,
			Reading:      reading,
		})
	}
	return entries, nil
}

// BlinkLED makes the device blink its LED. Fire-and-forget.
func (s *Session) BlinkLED(ctx context.Context) error {
	return s.writeCommand(ctx, CmdBlinkLED)
}

func (s *Session) writeCommand(ctx context.Context, name Command) error {
	payload, err := EncodeCommand(name)
	if err != nil {
		return err
	}
	serviceUUID, charUUID, err := CommandTarget(name)
	if err != nil {
		return err
	}
	return s.link.Write(ctx, serviceUUID, charUUID, payload)
}

func (s *Session) settle(ctx context.Context) error {
	select {
	case <-ctx.Done():
		s.link.Disconnect()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: settle", ErrConnectionTimeout)
		}
		return fmt.Errorf("flowercare: settle: %w", ctx.Err())
	case <-time.After(s.opts.SettleDelay):
		return nil
	}
}
