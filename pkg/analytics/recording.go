package analytics

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrInvalidRecording is returned when a recording file does not contain a
// JSON array of records.
var ErrInvalidRecording = errors.New("recording does not contain JSON data")

// SaveRecording writes records to disk as a single indented JSON array so
// the file stays hand-inspectable. The write is atomic (temp file + rename).
func SaveRecording(path string, records []RawRecord) error {
	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal recording: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create recording dir: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp recording: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp recording: %w", err)
	}
	return nil
}

// LoadRecording reads a recording file back, preserving record order.
func LoadRecording(path string) ([]RawRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}

	records, err := DecodeRecording(data)
	if err != nil {
		return nil, fmt.Errorf("recording %q: %w", path, err)
	}
	return records, nil
}

// DecodeRecording parses a JSON array of raw records.
func DecodeRecording(data []byte) ([]RawRecord, error) {
	var records []RawRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, ErrInvalidRecording
	}
	return records, nil
}
