// Package ble abstracts the Bluetooth Low Energy transport behind small
// capability interfaces: scan for advertisements, connect to a peripheral,
// read and write GATT characteristics. The protocol engine is written
// against these interfaces so it can run on real hardware or on the
// deterministic fake in the bletest package.
package ble

import "context"

// Advertisement is a single received BLE advertisement.
type Advertisement struct {
	Name    string
	Address string
	RSSI    int
	// HasService reports whether the advertisement carried the service
	// UUID that was passed to Scan.
	HasService bool
}

// Characteristic represents a BLE GATT characteristic.
type Characteristic interface {
	// Read returns the characteristic's current value.
	Read() ([]byte, error)
	// Write sends data to the characteristic.
	Write(data []byte) error
}

// Connection represents an active BLE connection to a peripheral.
type Connection interface {
	// DiscoverCharacteristic finds a characteristic by UUID within a service.
	DiscoverCharacteristic(serviceUUID, charUUID string) (Characteristic, error)
	// Disconnect terminates the connection.
	Disconnect() error
}

// Adapter abstracts the BLE radio for testing.
type Adapter interface {
	// Enable powers on the BLE adapter.
	Enable() error
	// Scan delivers received advertisements to fn until ctx is done.
	// Advertisements carrying serviceUUID are marked with HasService;
	// everything else is still delivered so callers can filter by name.
	Scan(ctx context.Context, serviceUUID string, fn func(Advertisement)) error
	// Connect establishes a connection to the peripheral at address.
	Connect(ctx context.Context, address string) (Connection, error)
}
