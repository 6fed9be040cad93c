package task

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// SnapshotVersion is the envelope version written by this build.
const SnapshotVersion = 1

// DefaultStorageKey is the key the task snapshot is stored under.
const DefaultStorageKey = "docket.tasks"

// Snapshot is the persisted envelope around the full task collection.
type Snapshot struct {
	Version int       `json:"version"`
	SavedAt time.Time `json:"saved_at"`
	Tasks   []Task    `json:"tasks"`
}

// Encode serializes tasks into a versioned snapshot envelope.
func Encode(tasks []Task, savedAt time.Time) ([]byte, error) {
	if tasks == nil {
		tasks = []Task{}
	}
	data, err := json.Marshal(Snapshot{
		Version: SnapshotVersion,
		SavedAt: savedAt.UTC(),
		Tasks:   tasks,
	})
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// Decode parses a snapshot. A bare JSON array is accepted as a version 0
// snapshot written before the envelope existed.
func Decode(data []byte) ([]Task, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("decode snapshot: empty body")
	}

	if trimmed[0] == '[' {
		var tasks []Task
		if err := json.Unmarshal(trimmed, &tasks); err != nil {
			return nil, fmt.Errorf("decode legacy snapshot: %w", err)
		}
		return tasks, nil
	}

	var snap Snapshot
	if err := json.Unmarshal(trimmed, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Version > SnapshotVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, snap.Version)
	}
	if snap.Tasks == nil {
		snap.Tasks = []Task{}
	}
	return snap.Tasks, nil
}
