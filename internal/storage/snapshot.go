package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hoanghai1803/pulse/internal/models"
)

// Snapshot is the on-disk form of a captured record set. It is produced by
// the snapshot command and served in snapshot mode.
type Snapshot struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Records     []models.Record `json:"records"`
}

// LoadSnapshot reads the snapshot at path into a new MemoryStore.
func LoadSnapshot(path string) (*MemoryStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %q: %w", path, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot %q: %w", path, err)
	}

	return NewMemoryStore(snap.Records...), nil
}

// WriteSnapshot writes snap to path as indented JSON, creating parent
// directories. The file is replaced atomically.
func WriteSnapshot(path string, snap Snapshot) error {
	if snap.Records == nil {
		snap.Records = []models.Record{}
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating snapshot directory %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*.json")
	if err != nil {
		return fmt.Errorf("creating temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // already renamed on success

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing snapshot %q: %w", path, err)
	}
	return nil
}
