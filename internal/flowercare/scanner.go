package flowercare

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/plantmon/flowercare/internal/ble"
)

// Scanner discovers Flower Care devices from BLE advertisements. A
// device matches when its advertised name contains the name marker or
// its advertisement carries the Xiaomi root service UUID.
type Scanner struct {
	adapter ble.Adapter
	log     *slog.Logger
}

// NewScanner creates a scanner on the given adapter.
func NewScanner(adapter ble.Adapter, log *slog.Logger) *Scanner {
	if log == nil {
		log = slog.Default()
	}
	return &Scanner{
		adapter: adapter,
		log:     log.With(slog.String("component", "scanner")),
	}
}

func matchesDevice(adv ble.Advertisement) bool {
	if adv.HasService {
		return true
	}
	return strings.Contains(strings.ToLower(adv.Name), strings.ToLower(DeviceNameMarker))
}

// Scan passively collects advertisements for the duration, filters to
// Flower Care devices and deduplicates by address, last seen wins.
func (s *Scanner) Scan(ctx context.Context, timeout time.Duration) ([]DeviceHandle, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	slots := make(map[string]int)
	var handles []DeviceHandle
	err := s.adapter.Scan(ctx, AdvertisedServiceUUID, func(adv ble.Advertisement) {
		if !matchesDevice(adv) {
			return
		}
		h := DeviceHandle{Name: adv.Name, Address: adv.Address, RSSI: adv.RSSI}
		if i, ok := slots[adv.Address]; ok {
			handles[i] = h
			return
		}
		slots[adv.Address] = len(handles)
		handles = append(handles, h)
	})
	if err != nil && ctx.Err() == nil {
		return nil, fmt.Errorf("flowercare: scan: %w", err)
	}
	s.log.Debug("scan finished", "devices", len(handles))
	return handles, nil
}

// FindByAddress scans until a matching device with the given address
// appears or the timeout elapses. Absence of a nearby device is an
// expected outcome, not an error: found is false and err is nil when
// nothing turned up.
func (s *Scanner) FindByAddress(ctx context.Context, address string, timeout time.Duration) (handle DeviceHandle, found bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	want := strings.ToLower(address)
	err = s.adapter.Scan(ctx, AdvertisedServiceUUID, func(adv ble.Advertisement) {
		if found || !matchesDevice(adv) {
			return
		}
		if strings.ToLower(adv.Address) != want {
			return
		}
		handle = DeviceHandle{Name: adv.Name, Address: adv.Address, RSSI: adv.RSSI}
		found = true
		cancel()
	})
	if err != nil && ctx.Err() == nil {
		return DeviceHandle{}, false, fmt.Errorf("flowercare: scan: %w", err)
	}
	return handle, found, nil
}

// Stream yields device handles incrementally as advertisements arrive,
// for indefinite background discovery, until ctx is done. Each
// invocation starts a fresh scan and deduplicates within itself; the
// returned channel is closed when the scan stops and the stream is not
// reusable afterwards.
func (s *Scanner) Stream(ctx context.Context) <-chan DeviceHandle {
	out := make(chan DeviceHandle)
	go func() {
		defer close(out)
		seen := make(map[string]bool)
		err := s.adapter.Scan(ctx, AdvertisedServiceUUID, func(adv ble.Advertisement) {
			if !matchesDevice(adv) || seen[adv.Address] {
				return
			}
			seen[adv.Address] = true
			select {
			case out <- DeviceHandle{Name: adv.Name, Address: adv.Address, RSSI: adv.RSSI}:
			case <-ctx.Done():
			}
		})
		if err != nil && ctx.Err() == nil {
			s.log.Warn("stream scan failed", "error", err)
		}
	}()
	return out
}
