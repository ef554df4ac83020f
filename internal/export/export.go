// Package export renders historical sensor data for external consumers.
// The engine itself owns no storage; these writers are the supported
// hand-off formats.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/plantmon/flowercare/internal/flowercare"
)

var csvHeader = []string{"timestamp", "temperature", "brightness", "moisture", "conductivity"}

// WriteCSV writes entries as CSV with an RFC 3339 timestamp column.
func WriteCSV(w io.Writer, entries []flowercare.HistoricalEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}
	for _, e := range entries {
		row := []string{
			e.Timestamp.Format(time.RFC3339),
			strconv.FormatFloat(e.Reading.Temperature, 'f', 1, 64),
			strconv.FormatUint(uint64(e.Reading.Brightness), 10),
			strconv.FormatUint(uint64(e.Reading.Moisture), 10),
			strconv.FormatUint(uint64(e.Reading.Conductivity), 10),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("export: write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

type jsonEntry struct {
	Timestamp    time.Time `json:"timestamp"`
	Temperature  float64   `json:"temperature"`
	Brightness   uint32    `json:"brightness"`
	Moisture     uint8     `json:"moisture"`
	Conductivity uint16    `json:"conductivity"`
}

// WriteJSON writes entries as an indented JSON array.
func WriteJSON(w io.Writer, entries []flowercare.HistoricalEntry) error {
	out := make([]jsonEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, jsonEntry{
			Timestamp:    e.Timestamp,
			Temperature:  e.Reading.Temperature,
			Brightness:   e.Reading.Brightness,
			Moisture:     e.Reading.Moisture,
			Conductivity: e.Reading.Conductivity,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("export: encode json: %w", err)
	}
	return nil
}
