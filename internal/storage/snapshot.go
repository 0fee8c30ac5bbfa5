package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"

	"github.com/dshills/codexref/pkg/types"
)

// SnapshotFormatVersion is the version written into every snapshot header.
// Snapshots with a different major version are rejected on load.
const SnapshotFormatVersion = "1.0.0"

// ErrSnapshotVersion is returned when a snapshot was written by an incompatible format
var ErrSnapshotVersion = errors.New("incompatible snapshot format")

// snapshot is the durable, whole-collection form of the store
type snapshot struct {
	FormatVersion string               `json:"formatVersion"`
	ID            string               `json:"id"`
	WrittenAt     time.Time            `json:"writtenAt"`
	Files         map[string]FileState `json:"files"`
	Records       []*types.Record      `json:"records"`
}

func newSnapshot(records []*types.Record, files map[string]FileState) *snapshot {
	return &snapshot{
		FormatVersion: SnapshotFormatVersion,
		ID:            uuid.NewString(),
		WrittenAt:     time.Now().UTC(),
		Files:         files,
		Records:       records,
	}
}

// readSnapshot loads a snapshot; a missing file yields (nil, nil)
func readSnapshot(path string) (*snapshot, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", path, err)
	}

	if err := checkFormatVersion(snap.FormatVersion); err != nil {
		return nil, err
	}
	if snap.Files == nil {
		snap.Files = make(map[string]FileState)
	}
	return &snap, nil
}

func checkFormatVersion(v string) error {
	got, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("%w: invalid version %q", ErrSnapshotVersion, v)
	}
	want := semver.MustParse(SnapshotFormatVersion)
	if got.Major() != want.Major() {
		return fmt.Errorf("%w: snapshot %s, supported %d.x", ErrSnapshotVersion, got, want.Major())
	}
	return nil
}

// writeSnapshot writes the snapshot atomically: temp file in the same
// directory, fsync, then rename over the previous snapshot.
func writeSnapshot(path string, snap *snapshot) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	enc := json.NewEncoder(tmp)
	if err := enc.Encode(snap); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}
