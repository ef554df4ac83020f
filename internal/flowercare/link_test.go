package flowercare

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/plantmon/flowercare/internal/ble/bletest"
)

const testAddress = "C4:7C:8D:6A:6E:01"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLinkConnectDisconnect(t *testing.T) {
	adapter := bletest.NewAdapter()
	link := newLink(adapter, testAddress, testLogger())

	if link.State() != StateDisconnected {
		t.Fatalf("initial state = %s, want disconnected", link.State())
	}

	if err := link.Connect(context.Background(), time.Second); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if link.State() != StateConnected {
		t.Errorf("state after connect = %s, want connected", link.State())
	}

	link.Disconnect()
	if link.State() != StateDisconnected {
		t.Errorf("state after disconnect = %s, want disconnected", link.State())
	}
	if got := adapter.Connection().Disconnects(); got != 1 {
		t.Errorf("transport disconnects = %d, want 1", got)
	}
}

func TestLinkConnectTimeout(t *testing.T) {
	adapter := bletest.NewAdapter()
	adapter.ConnectDelay = 100 * time.Millisecond
	link := newLink(adapter, testAddress, testLogger())

	err := link.Connect(context.Background(), time.Millisecond)
	if !errors.Is(err, ErrConnectionTimeout) {
		t.Fatalf("Connect() error = %v, want ErrConnectionTimeout", err)
	}
	if link.State() != StateDisconnected {
		t.Errorf("state after timeout = %s, want disconnected", link.State())
	}
}

func TestLinkConnectFailure(t *testing.T) {
	adapter := bletest.NewAdapter()
	adapter.ConnectErr = errors.New("radio unavailable")
	link := newLink(adapter, testAddress, testLogger())

	err := link.Connect(context.Background(), time.Second)
	if !errors.Is(err, ErrConnectionFailed) {
		t.Fatalf("Connect() error = %v, want ErrConnectionFailed", err)
	}
	if link.State() != StateDisconnected {
		t.Errorf("state after failure = %s, want disconnected", link.State())
	}
}

func TestLinkConnectWhileConnected(t *testing.T) {
	adapter := bletest.NewAdapter()
	link := newLink(adapter, testAddress, testLogger())

	if err := link.Connect(context.Background(), time.Second); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := link.Connect(context.Background(), time.Second); !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("second Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestLinkReadNotConnected(t *testing.T) {
	adapter := bletest.NewAdapter()
	link := newLink(adapter, testAddress, testLogger())

	_, err := link.Read(context.Background(), serviceData, charSensorData)
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Read() error = %v, want ErrNotConnected", err)
	}
	// No transport I/O may happen outside the Connected state.
	if adapter.ConnectCalls() != 0 {
		t.Errorf("connect calls = %d, want 0", adapter.ConnectCalls())
	}
	if got := adapter.Connection().Char(charSensorData).ReadCalls(); got != 0 {
		t.Errorf("characteristic reads = %d, want 0", got)
	}
}

func TestLinkWriteNotConnected(t *testing.T) {
	adapter := bletest.NewAdapter()
	link := newLink(adapter, testAddress, testLogger())

	err := link.Write(context.Background(), serviceData, charModeChange, []byte{0xA0, 0x1F})
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Write() error = %v, want ErrNotConnected", err)
	}
	if got := len(adapter.Connection().Char(charModeChange).Writes()); got != 0 {
		t.Errorf("characteristic writes = %d, want 0", got)
	}
}

func TestLinkReadWrite(t *testing.T) {
	adapter := bletest.NewAdapter()
	adapter.Connection().Char(charSensorData).QueueRead([]byte{0x01, 0x02})
	link := newLink(adapter, testAddress, testLogger())

	if err := link.Connect(context.Background(), time.Second); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	data, err := link.Read(context.Background(), serviceData, charSensorData)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(data) != 2 || data[0] != 0x01 {
		t.Errorf("Read() = % x, want 01 02", data)
	}

	if err := link.Write(context.Background(), serviceData, charModeChange, []byte{0xA0, 0x1F}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	writes := adapter.Connection().Char(charModeChange).Writes()
	if len(writes) != 1 {
		t.Fatalf("writes = %d, want 1", len(writes))
	}
}

func TestLinkReadFailure(t *testing.T) {
	adapter := bletest.NewAdapter()
	adapter.Connection().Char(charSensorData).ReadErr = errors.New("att error 0x0e")
	link := newLink(adapter, testAddress, testLogger())

	if err := link.Connect(context.Background(), time.Second); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	_, err := link.Read(context.Background(), serviceData, charSensorData)
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Read() error = %v, want ErrConnectionFailed", err)
	}
}

func TestLinkDiscoverFailure(t *testing.T) {
	adapter := bletest.NewAdapter()
	adapter.Connection().DiscoverErr = errors.New("service missing")
	link := newLink(adapter, testAddress, testLogger())

	if err := link.Connect(context.Background(), time.Second); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	_, err := link.Read(context.Background(), serviceData, charSensorData)
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Read() error = %v, want ErrConnectionFailed", err)
	}
}

func TestLinkReadCancelled(t *testing.T) {
	adapter := bletest.NewAdapter()
	adapter.Connection().Char(charSensorData).QueueRead([]byte{0x01, 0x02})
	link := newLink(adapter, testAddress, testLogger())

	if err := link.Connect(context.Background(), time.Second); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Even when the transport answers instantly the cancelled context
	// must win, so the outcome does not depend on select ordering.
	_, err := link.Read(ctx, serviceData, charSensorData)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Read() error = %v, want context.Canceled", err)
	}
	if link.State() != StateDisconnected {
		t.Errorf("state after cancelled read = %s, want disconnected", link.State())
	}
}

func TestLinkWriteFailure(t *testing.T) {
	adapter := bletest.NewAdapter()
	adapter.Connection().Char(charModeChange).WriteErr = errors.New("gatt failure")
	link := newLink(adapter, testAddress, testLogger())

	if err := link.Connect(context.Background(), time.Second); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	err := link.Write(context.Background(), serviceData, charModeChange, []byte{0xA0, 0x1F})
	if !errors.Is(err, ErrCommandWrite) {
		t.Errorf("Write() error = %v, want ErrCommandWrite", err)
	}
}

func TestLinkDisconnectIdempotent(t *testing.T) {
	adapter := bletest.NewAdapter()
	link := newLink(adapter, testAddress, testLogger())

	// Disconnect from Disconnected is a no-op, never an error.
	link.Disconnect()
	if link.State() != StateDisconnected {
		t.Errorf("state = %s, want disconnected", link.State())
	}
	if got := adapter.Connection().Disconnects(); got != 0 {
		t.Errorf("transport disconnects = %d, want 0", got)
	}
}

func TestLinkStateString(t *testing.T) {
	states := map[LinkState]string{
		StateDisconnected:  "disconnected",
		StateConnecting:    "connecting",
		StateConnected:     "connected",
		StateDisconnecting: "disconnecting",
	}
	for state, want := range states {
		if got := state.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(state), got, want)
		}
	}
}
