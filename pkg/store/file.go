package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/matzehuels/netlens/pkg/errors"
	"github.com/matzehuels/netlens/pkg/network"
)

// FileStore keeps each record as a JSON file in a directory.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
}

// NewFileStore creates a file-backed store.
// If baseDir is empty, defaults to ~/.config/netlens/research/
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		baseDir = filepath.Join(home, ".config", "netlens", "research")
	}
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("create research dir: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (s *FileStore) recordPath(id string) string {
	return filepath.Join(s.baseDir, id+".json")
}

func (s *FileStore) Get(ctx context.Context, id string) (*network.Research, error) {
	if err := errors.ValidateID(id); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	return readRecord(s.recordPath(id), id)
}

func (s *FileStore) Put(ctx context.Context, r *network.Research) error {
	if err := prepare(r); err != nil {
		return err
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal research: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.baseDir, ".research-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("write research file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return fmt.Errorf("write research file: %w", err)
	}
	if err := os.Rename(name, s.recordPath(r.ID)); err != nil {
		os.Remove(name)
		return fmt.Errorf("write research file: %w", err)
	}
	return nil
}

// List skips files that cannot be parsed.
func (s *FileStore) List(ctx context.Context) ([]*network.Research, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read research dir: %w", err)
	}

	var out []*network.Research
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		r, err := readRecord(filepath.Join(s.baseDir, entry.Name()), entry.Name())
		if err != nil {
			continue
		}
		out = append(out, r)
	}
	sortNewest(out)
	return out, nil
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := errors.ValidateID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.recordPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove research file: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

// Path returns the directory holding the record files.
func (s *FileStore) Path() string {
	return s.baseDir
}

func readRecord(path, id string) (*network.Research, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, notFound(id)
		}
		return nil, fmt.Errorf("read research file: %w", err)
	}
	var r network.Research
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse research %s", id)
	}
	return &r, nil
}

var _ Store = (*FileStore)(nil)
