package records

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Houeta/batch-geocoder/internal/models"
)

// Load reads the input address list. Any failure here is fatal for the run:
// without readable input there is nothing to process.
func Load(path string) ([]models.AddressRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file %s: %w", path, err)
	}

	var addresses []models.AddressRecord
	if err = json.Unmarshal(raw, &addresses); err != nil {
		return nil, fmt.Errorf("failed to parse input file %s: %w", path, err)
	}

	return addresses, nil
}

// Write persists the annotated records to path, replacing any previous
// output. The write goes to a temp file first and is renamed into place, so
// an interrupted write never leaves a truncated output artifact behind.
func Write(path string, results []models.OutputRecord) error {
	raw, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp output file: %w", err)
	}

	if _, err = tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write temp output file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp output file: %w", err)
	}

	if err = os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace output file: %w", err)
	}

	return nil
}
