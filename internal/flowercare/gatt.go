// Package flowercare implements the device protocol for Xiaomi Flower
// Care (MiFlora) soil sensors: discovery, the connection state machine,
// the mode-switch command sequence, and the binary frame codec for live
// and historical readings.
package flowercare

// Advertisement filter constants. Devices are recognized either by the
// advertised root service UUID or by their advertised name.
const (
	// AdvertisedServiceUUID is the Xiaomi root service present in every
	// Flower Care advertisement.
	AdvertisedServiceUUID = "0000fe95-0000-1000-8000-00805f9b34fb"
	// DeviceNameMarker matches advertised names case-insensitively.
	DeviceNameMarker = "Flower care"
)

// GATT services.
const (
	serviceGenericAccess = "00001800-0000-1000-8000-00805f9b34fb"
	serviceData          = "00001204-0000-1000-8000-00805f9b34fb"
	serviceHistory       = "00001206-0000-1000-8000-00805f9b34fb"
)

// GATT characteristics.
const (
	charDeviceName      = "00002a00-0000-1000-8000-00805f9b34fb" // read: advertised name
	charModeChange      = "00001a00-0000-1000-8000-00805f9b34fb" // write: mode commands
	charSensorData      = "00001a01-0000-1000-8000-00805f9b34fb" // read: live frame
	charFirmwareBattery = "00001a02-0000-1000-8000-00805f9b34fb" // read: battery + firmware
	charHistoryControl  = "00001a10-0000-1000-8000-00805f9b34fb" // write: history pointer
	charHistoryData     = "00001a11-0000-1000-8000-00805f9b34fb" // read: header / entry
	charEpochTime       = "00001a12-0000-1000-8000-00805f9b34fb" // read: device clock
)
