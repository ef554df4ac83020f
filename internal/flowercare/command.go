package flowercare

import (
	"encoding/binary"
	"fmt"
)

// Command names one entry in the closed command set the firmware
// understands.
type Command string

const (
	// CmdRealtimeData switches the device into realtime mode. Without
	// this write the sensor-data characteristic returns stale bytes.
	CmdRealtimeData Command = "realtime-data"
	// CmdHistoryReadInit arms the history read pointer.
	CmdHistoryReadInit Command = "history-read-init"
	// CmdHistoryReadEntry selects history entry 0. Use
	// HistoryEntryAddress for other indices.
	CmdHistoryReadEntry Command = "history-read-entry"
	// CmdBlinkLED makes the device blink its LED once.
	CmdBlinkLED Command = "blink-led"
)

type commandSpec struct {
	service        string
	characteristic string
	payload        []byte
}

var commands = map[Command]commandSpec{
	CmdRealtimeData:     {serviceData, charModeChange, []byte{0xA0, 0x1F}},
	CmdHistoryReadInit:  {serviceHistory, charHistoryControl, []byte{0xA0, 0x00}},
	CmdHistoryReadEntry: {serviceHistory, charHistoryControl, []byte{0xA1, 0x00, 0x00}},
	CmdBlinkLED:         {serviceData, charModeChange, []byte{0xFD, 0xFF}},
}

// EncodeCommand returns the wire payload for name. The command set is
// closed: anything else fails with ErrUnknownCommand.
func EncodeCommand(name Command) ([]byte, error) {
	spec, ok := commands[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
	out := make([]byte, len(spec.payload))
	copy(out, spec.payload)
	return out, nil
}

// CommandTarget returns the service and characteristic UUIDs name is
// written to.
func CommandTarget(name Command) (serviceUUID, charUUID string, err error) {
	spec, ok := commands[name]
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
	return spec.service, spec.characteristic, nil
}

// HistoryEntryAddress returns the history-pointer payload selecting the
// entry at index: the read-entry opcode followed by the index as
// little-endian uint16.
func HistoryEntryAddress(index uint16) []byte {
	out := []byte{0xA1, 0, 0}
	binary.LittleEndian.PutUint16(out[1:], index)
	return out
}
