package flowercare

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Frame sizes. The codec requires exact lengths: the device always
// transmits full frames, so anything else is a transport or firmware
// fault that must surface instead of being truncated or padded away.
const (
	liveFrameLen     = 10
	historyEntryLen  = 14
	epochFrameLen    = 4
	historyHeaderLen = 16
)

// DecodeLiveReading decodes the 10-byte live-data frame:
//
//	bytes 0..2  temperature, little-endian signed 16-bit, tenths of °C
//	byte  2     reserved
//	bytes 3..7  brightness, little-endian unsigned 32-bit, lux
//	byte  7     moisture, percent
//	bytes 8..10 conductivity, little-endian unsigned 16-bit, µS/cm
//
// The returned reading carries no timestamp; the caller stamps it.
func DecodeLiveReading(data []byte) (SensorReading, error) {
	if len(data) != liveFrameLen {
		return SensorReading{}, fmt.Errorf("%w: live frame is %d bytes, want %d", ErrMalformedFrame, len(data), liveFrameLen)
	}
	return decodeSensorValues(data), nil
}

// DecodeHistoricalEntry decodes a 14-byte historical entry frame: a
// 4-byte little-endian device clock offset followed by the live-data
// layout.
func DecodeHistoricalEntry(data []byte) (offsetSeconds uint32, reading SensorReading, err error) {
	if len(data) != historyEntryLen {
		return 0, SensorReading{}, fmt.Errorf("%w: history entry is %d bytes, want %d", ErrMalformedFrame, len(data), historyEntryLen)
	}
	return binary.LittleEndian.Uint32(data[0:4]), decodeSensorValues(data[4:]), nil
}

// DecodeDeviceEpoch decodes the 4-byte little-endian device clock,
// seconds since the device's internal epoch at the moment of the read.
func DecodeDeviceEpoch(data []byte) (uint32, error) {
	if len(data) != epochFrameLen {
		return 0, fmt.Errorf("%w: epoch frame is %d bytes, want %d", ErrMalformedFrame, len(data), epochFrameLen)
	}
	return binary.LittleEndian.Uint32(data), nil
}

// DecodeHistoryHeader decodes the 16-byte header read from the history
// characteristic after the init command and returns the device-reported
// entry count.
func DecodeHistoryHeader(data []byte) (uint16, error) {
	if len(data) != historyHeaderLen {
		return 0, fmt.Errorf("%w: history header is %d bytes, want %d", ErrMalformedFrame, len(data), historyHeaderLen)
	}
	return binary.LittleEndian.Uint16(data[0:2]), nil
}

// DecodeFirmwareBattery decodes the packed firmware characteristic:
// byte 0 battery percent, byte 1 separator, the rest an ASCII firmware
// version string. Layout reconstructed from observed payloads; validate
// against hardware before treating it as bit-exact.
func DecodeFirmwareBattery(data []byte) (batteryPercent int, firmware string, err error) {
	if len(data) < 3 {
		return 0, "", fmt.Errorf("%w: firmware frame is %d bytes, want at least 3", ErrMalformedFrame, len(data))
	}
	firmware = strings.TrimRight(string(data[2:]), "\x00")
	return int(data[0]), strings.TrimSpace(firmware), nil
}

func decodeSensorValues(data []byte) SensorReading {
	return SensorReading{
		Temperature:  float64(int16(binary.LittleEndian.Uint16(data[0:2]))) / 10.0,
		Brightness:   binary.LittleEndian.Uint32(data[3:7]),
		Moisture:     data[7],
		Conductivity: binary.LittleEndian.Uint16(data[8:10]),
	}
}

// isStaleFrame recognizes the firmware's unpopulated-characteristic
// sentinel: the AA BB pattern returned before a mode change, or an
// all-zero frame.
func isStaleFrame(data []byte) bool {
	if len(data) >= 2 && data[0] == 0xAA && data[1] == 0xBB {
		return true
	}
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return len(data) > 0
}

// trimDeviceName strips the NUL padding the name characteristic carries.
func trimDeviceName(data []byte) string {
	return strings.TrimSpace(strings.TrimRight(string(data), "\x00"))
}
