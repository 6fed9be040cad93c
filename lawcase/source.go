package lawcase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Source supplies fully-resolved case records. The case REST backend
// implements it in production; FileSource serves local installs and tests.
type Source interface {
	ListCases(ctx context.Context) ([]Case, error)
	GetCase(ctx context.Context, id string) (*Case, error)
}

// FileSource reads a JSON array of cases from disk on every call.
type FileSource struct {
	path string
}

// NewFileSource returns a Source backed by the JSON file at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// ListCases reads and decodes the cases file. A missing file yields no cases.
func (f *FileSource) ListCases(_ context.Context) ([]Case, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cases %s: %w", f.path, err)
	}
	var cases []Case
	if err := json.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("parse cases %s: %w", f.path, err)
	}
	return cases, nil
}

// GetCase returns the case with the given id.
func (f *FileSource) GetCase(ctx context.Context, id string) (*Case, error) {
	cases, err := f.ListCases(ctx)
	if err != nil {
		return nil, err
	}
	for i := range cases {
		if cases[i].ID == id {
			return &cases[i], nil
		}
	}
	return nil, fmt.Errorf("case %s: %w", id, ErrNotFound)
}

// StaticSource is an in-memory Source over a fixed slice.
type StaticSource []Case

// ListCases returns a copy of the slice.
func (s StaticSource) ListCases(_ context.Context) ([]Case, error) {
	out := make([]Case, len(s))
	copy(out, s)
	return out, nil
}

// GetCase returns the case with the given id.
func (s StaticSource) GetCase(_ context.Context, id string) (*Case, error) {
	for i := range s {
		if s[i].ID == id {
			c := s[i]
			return &c, nil
		}
	}
	return nil, fmt.Errorf("case %s: %w", id, ErrNotFound)
}
