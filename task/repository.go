package task

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Repository loads and saves the whole task collection at once.
type Repository interface {
	// Load returns the last saved collection, or ErrNoSnapshot if nothing
	// has been saved yet.
	Load(ctx context.Context) ([]Task, error)

	// SaveAll overwrites the stored collection with tasks.
	SaveAll(ctx context.Context, tasks []Task) error
}

// Preserver is implemented by repositories that can set the stored snapshot
// aside. The Store calls Preserve before overwriting a snapshot it could not
// read, such as one written by a newer build.
type Preserver interface {
	Preserve(ctx context.Context) error
}

// UnreadableSuffix is appended to the file name or storage key a preserved
// snapshot is moved to.
const UnreadableSuffix = ".unreadable"

// FileRepository stores the snapshot envelope in a single JSON file.
type FileRepository struct {
	path string
}

// NewFileRepository returns a Repository writing to path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

// Load reads and decodes the snapshot file.
func (f *FileRepository) Load(_ context.Context) ([]Task, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	return Decode(data)
}

// SaveAll writes the snapshot to a temp file and renames it into place.
func (f *FileRepository) SaveAll(_ context.Context, tasks []Task) error {
	data, err := Encode(tasks, time.Now())
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o750); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".tasks-*.json")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

// Preserve renames the snapshot file to path+UnreadableSuffix.
func (f *FileRepository) Preserve(_ context.Context) error {
	err := os.Rename(f.path, f.path+UnreadableSuffix)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("preserve snapshot: %w", err)
	}
	return nil
}

// MemoryRepository keeps the encoded snapshot in memory. LoadErr and SaveErr
// let tests simulate storage failures.
type MemoryRepository struct {
	mu      sync.Mutex
	data    []byte
	kept    []byte
	saves   int
	LoadErr error
	SaveErr error
}

// NewMemoryRepository returns an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Load decodes the last saved snapshot.
func (m *MemoryRepository) Load(_ context.Context) ([]Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	if m.data == nil {
		return nil, ErrNoSnapshot
	}
	return Decode(m.data)
}

// SaveAll encodes and retains tasks.
func (m *MemoryRepository) SaveAll(_ context.Context, tasks []Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	data, err := Encode(tasks, time.Now())
	if err != nil {
		return err
	}
	m.data = data
	m.saves++
	return nil
}

// Saves returns how many snapshots have been written.
func (m *MemoryRepository) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Seed stores raw as the snapshot without encoding it.
func (m *MemoryRepository) Seed(raw []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), raw...)
}

// Preserve copies the current snapshot aside.
func (m *MemoryRepository) Preserve(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kept = append([]byte(nil), m.data...)
	return nil
}

// Preserved returns the snapshot last set aside by Preserve.
func (m *MemoryRepository) Preserved() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.kept...)
}

// Raw returns the last encoded snapshot.
func (m *MemoryRepository) Raw() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.data...)
}
