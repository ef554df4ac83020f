package flowercare

import (
	"fmt"
	"time"
)

// SensorReading is one sensor snapshot. Values are kept exactly as the
// device reported them; out-of-range noise is preserved, not rejected.
// Use InPhysicalRange to flag implausible values.
type SensorReading struct {
	Temperature  float64 // °C
	Brightness   uint32  // lux
	Moisture     uint8   // percent
	Conductivity uint16  // µS/cm
	// Timestamp is the capture time. Live frames carry no timestamp, so
	// the session stamps them with the read time; historical entries get
	// their derived absolute time. Zero means unknown.
	Timestamp time.Time
}

// InPhysicalRange reports whether the reading is within the documented
// physical ranges of the sensor. The device occasionally reports
// out-of-range noise, which the codec preserves.
func (r SensorReading) InPhysicalRange() bool {
	return r.Temperature >= -50 && r.Temperature <= 100 && r.Moisture <= 100
}

func (r SensorReading) String() string {
	return fmt.Sprintf("Temperature: %.1f°C, Brightness: %d lux, Moisture: %d%%, Conductivity: %d µS/cm",
		r.Temperature, r.Brightness, r.Moisture, r.Conductivity)
}

// DeviceInfo is an immutable device metadata snapshot. It is re-fetched
// on demand and never cached by the engine. FirmwareVersion and
// BatteryLevel are nil-equivalent (empty string / nil pointer) when the
// packed firmware characteristic could not be read.
type DeviceInfo struct {
	Name            string
	Address         string
	FirmwareVersion string
	BatteryLevel    *int // percent, 0-100
}

func (i DeviceInfo) String() string {
	fw := "unknown"
	if i.FirmwareVersion != "" {
		fw = i.FirmwareVersion
	}
	batt := "unknown"
	if i.BatteryLevel != nil {
		batt = fmt.Sprintf("%d%%", *i.BatteryLevel)
	}
	return fmt.Sprintf("Device: %s (%s), Firmware: %s, Battery: %s", i.Name, i.Address, fw, batt)
}

// HistoricalEntry is one device-stored past measurement.
type HistoricalEntry struct {
	// Timestamp is the absolute capture time, derived from the device's
	// clock reference at session time.
	Timestamp time.Time
	// DeviceOffset is the device's internal clock value at capture,
	// seconds since its epoch, exactly as stored in the entry frame.
	DeviceOffset uint32
	Reading      SensorReading
}

func (e HistoricalEntry) String() string {
	return fmt.Sprintf("%s: %s", e.Timestamp.Format(time.RFC3339), e.Reading)
}

// DeviceHandle identifies a discovered device, as yielded by the
// scanner and consumed by NewSession.
type DeviceHandle struct {
	Name    string
	Address string
	RSSI    int
}
