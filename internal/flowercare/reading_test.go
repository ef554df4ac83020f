package flowercare

import (
	"testing"
	"time"
)

func TestSensorReadingString(t *testing.T) {
	r := SensorReading{Temperature: 23.5, Brightness: 150, Moisture: 65, Conductivity: 520}
	want := "Temperature: 23.5°C, Brightness: 150 lux, Moisture: 65%, Conductivity: 520 µS/cm"
	if got := r.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestSensorReadingInPhysicalRange(t *testing.T) {
	tests := []struct {
		name string
		r    SensorReading
		want bool
	}{
		{"normal", SensorReading{Temperature: 23.5, Moisture: 65}, true},
		{"freezing ok", SensorReading{Temperature: -10.3, Moisture: 0}, true},
		{"too cold", SensorReading{Temperature: -60}, false},
		{"too hot", SensorReading{Temperature: 110}, false},
		{"moisture noise", SensorReading{Temperature: 20, Moisture: 130}, false},
	}
	for _, tt := range tests {
		if got := tt.r.InPhysicalRange(); got != tt.want {
			t.Errorf("%s: InPhysicalRange() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestDeviceInfoString(t *testing.T) {
	batt := 85
	info := DeviceInfo{
		Name:            "Flower care",
		Address:         "AA:BB:CC:DD:EE:FF",
		FirmwareVersion: "3.3.6",
		BatteryLevel:    &batt,
	}
	want := "Device: Flower care (AA:BB:CC:DD:EE:FF), Firmware: 3.3.6, Battery: 85%"
	if got := info.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestDeviceInfoStringPartial(t *testing.T) {
	info := DeviceInfo{Name: "Flower care", Address: "AA:BB:CC:DD:EE:FF"}
	want := "Device: Flower care (AA:BB:CC:DD:EE:FF), Firmware: unknown, Battery: unknown"
	if got := info.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestHistoricalEntryString(t *testing.T) {
	ts := time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)
	e := HistoricalEntry{
		Timestamp: ts,
		Reading:   SensorReading{Temperature: 23.5, Brightness: 150, Moisture: 65, Conductivity: 520},
	}
	want := "2023-01-01T12:00:00Z: Temperature: 23.5°C, Brightness: 150 lux, Moisture: 65%, Conductivity: 520 µS/cm"
	if got := e.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
