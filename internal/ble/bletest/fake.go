// Package bletest provides a deterministic in-memory BLE transport for
// tests. Characteristics return scripted values, record every write, and
// count every transport call so tests can assert that no I/O happened.
package bletest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/plantmon/flowercare/internal/ble"
)

// Characteristic is a fake GATT characteristic. Reads consume queued
// values in order; the last queued value repeats once the queue drains.
type Characteristic struct {
	mu        sync.Mutex
	queue     [][]byte
	last      []byte
	writes    [][]byte
	readCalls int

	ReadErr  error
	WriteErr error
	// ReadHook, when set, runs at the start of every Read with the
	// 1-based call number. Tests use it to cancel contexts or flip
	// errors mid-sequence.
	ReadHook func(call int)
}

// QueueRead appends scripted read responses.
func (c *Characteristic) QueueRead(values ...[]byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue = append(c.queue, values...)
}

func (c *Characteristic) Read() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readCalls++
	if c.ReadHook != nil {
		c.ReadHook(c.readCalls)
	}
	if c.ReadErr != nil {
		return nil, c.ReadErr
	}
	if len(c.queue) > 0 {
		c.last = c.queue[0]
		c.queue = c.queue[1:]
	}
	cp := make([]byte, len(c.last))
	copy(cp, c.last)
	return cp, nil
}

func (c *Characteristic) Write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.WriteErr != nil {
		return c.WriteErr
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	c.writes = append(c.writes, cp)
	return nil
}

// Writes returns a copy of all recorded writes.
func (c *Characteristic) Writes() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.writes))
	copy(out, c.writes)
	return out
}

// ReadCalls returns the number of Read invocations, including failed ones.
func (c *Characteristic) ReadCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readCalls
}

// Connection is a fake BLE connection holding characteristics keyed by
// their UUID.
type Connection struct {
	mu          sync.Mutex
	chars       map[string]*Characteristic
	disconnects int

	DiscoverErr error
}

func NewConnection() *Connection {
	return &Connection{chars: make(map[string]*Characteristic)}
}

// Char returns the characteristic with the given UUID, creating it on
// first use. Use it to script reads before the code under test connects.
func (c *Connection) Char(uuid string) *Characteristic {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.chars[uuid]
	if !ok {
		ch = &Characteristic{}
		c.chars[uuid] = ch
	}
	return ch
}

func (c *Connection) DiscoverCharacteristic(serviceUUID, charUUID string) (ble.Characteristic, error) {
	if c.DiscoverErr != nil {
		return nil, c.DiscoverErr
	}
	return c.Char(charUUID), nil
}

func (c *Connection) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnects++
	return nil
}

// Disconnects returns how many times Disconnect was called.
func (c *Connection) Disconnects() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnects
}

// Adapter is a fake BLE radio. Scan delivers the configured
// advertisements once and then blocks until the context is done, like a
// real radio that keeps listening.
type Adapter struct {
	mu           sync.Mutex
	conn         *Connection
	connectCalls int
	scanCalls    int

	Advertisements []ble.Advertisement
	EnableErr      error
	ConnectErr     error
	// ConnectDelay simulates a slow radio; Connect honors ctx while waiting.
	ConnectDelay time.Duration
}

func NewAdapter() *Adapter {
	return &Adapter{conn: NewConnection()}
}

// Connection returns the fake connection every Connect call hands out.
func (a *Adapter) Connection() *Connection {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.conn
}

func (a *Adapter) Enable() error { return a.EnableErr }

func (a *Adapter) Scan(ctx context.Context, serviceUUID string, fn func(ble.Advertisement)) error {
	a.mu.Lock()
	a.scanCalls++
	advs := a.Advertisements
	a.mu.Unlock()

	for _, adv := range advs {
		if ctx.Err() != nil {
			return nil
		}
		fn(adv)
	}
	<-ctx.Done()
	return nil
}

func (a *Adapter) Connect(ctx context.Context, address string) (ble.Connection, error) {
	a.mu.Lock()
	a.connectCalls++
	delay := a.ConnectDelay
	a.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("bletest: connect to %s: %w", address, ctx.Err())
		case <-time.After(delay):
		}
	}
	if a.ConnectErr != nil {
		return nil, a.ConnectErr
	}
	return a.Connection(), nil
}

// ConnectCalls returns how many times Connect was attempted.
func (a *Adapter) ConnectCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connectCalls
}

var _ ble.Adapter = (*Adapter)(nil)
var _ ble.Connection = (*Connection)(nil)
var _ ble.Characteristic = (*Characteristic)(nil)
