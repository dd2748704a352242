package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// FSStore implements Store using filesystem persistence. Measurements live
// under <baseDir>/captures/<id>.json.
//
// Thread-safety: writes use the temp-file + rename pattern, so concurrent
// readers never observe a partial document and no locks are needed.
type FSStore struct {
	baseDir string
}

// NewFSStore creates a filesystem-backed measurement store, creating the
// base directory when missing.
func NewFSStore(baseDir string) (*FSStore, error) {
	if err := os.MkdirAll(filepath.Join(baseDir, "captures"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create capture directory: %w", err)
	}
	return &FSStore{baseDir: baseDir}, nil
}

func (fs *FSStore) measurementPath(id string) string {
	return filepath.Join(fs.baseDir, "captures", id+".json")
}

// SaveMeasurement atomically persists a measurement.
func (fs *FSStore) SaveMeasurement(measurement *Measurement) error {
	if measurement == nil {
		return fmt.Errorf("measurement cannot be nil")
	}
	if err := measurement.Validate(); err != nil {
		return fmt.Errorf("invalid measurement: %w", err)
	}

	data, err := json.MarshalIndent(measurement, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize measurement: %w", err)
	}

	finalPath := fs.measurementPath(measurement.ID)
	tempPath := finalPath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp measurement file: %w", err)
	}
	if err := os.Rename(tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename measurement file: %w", err)
	}

	slog.Debug("Measurement saved", "id", measurement.ID, "path", finalPath)
	return nil
}

// LoadMeasurement reads a measurement by ID.
func (fs *FSStore) LoadMeasurement(id string) (*Measurement, error) {
	data, err := os.ReadFile(fs.measurementPath(id))
	if err != nil {
		return nil, fmt.Errorf("failed to read measurement %q: %w", id, err)
	}

	var measurement Measurement
	if err := json.Unmarshal(data, &measurement); err != nil {
		return nil, fmt.Errorf("failed to parse measurement %q: %w", id, err)
	}
	return &measurement, nil
}

// ListMeasurements returns the IDs of all persisted measurements, in
// file-name order.
func (fs *FSStore) ListMeasurements() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(fs.baseDir, "captures"))
	if err != nil {
		return nil, fmt.Errorf("failed to list captures: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	return ids, nil
}

// DeleteMeasurement removes a measurement by ID.
func (fs *FSStore) DeleteMeasurement(id string) error {
	if err := os.Remove(fs.measurementPath(id)); err != nil {
		return fmt.Errorf("failed to delete measurement %q: %w", id, err)
	}
	return nil
}
