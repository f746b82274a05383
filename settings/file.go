package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps every owner's preferences in one JSON document on disk.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore stores preferences at path. The file and its directory are
// created on the first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(_ context.Context, owner string) (Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.read()
	if err != nil {
		return Preferences{}, err
	}
	p, ok := all[owner]
	if !ok {
		return Defaults(), nil
	}
	return p.WithDefaults(), nil
}

func (s *FileStore) Save(_ context.Context, owner string, p Preferences) (Preferences, error) {
	p, err := prepare(p)
	if err != nil {
		return Preferences{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.read()
	if err != nil {
		return Preferences{}, err
	}
	all[owner] = p
	if err := s.write(all); err != nil {
		return Preferences{}, err
	}
	return p, nil
}

func (s *FileStore) Clear(_ context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := all[owner]; !ok {
		return nil
	}
	delete(all, owner)
	return s.write(all)
}

func (s *FileStore) read() (map[string]Preferences, error) {
	all := map[string]Preferences{}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return all, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings %s: %w", s.path, err)
	}
	if len(data) == 0 {
		return all, nil
	}
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("decode settings %s: %w", s.path, err)
	}
	return all, nil
}

// write replaces the file through a rename so readers never see a partial
// document.
func (s *FileStore) write(all map[string]Preferences) error {
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create settings dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".settings-*")
	if err != nil {
		return fmt.Errorf("create settings temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close settings temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace settings %s: %w", s.path, err)
	}
	return nil
}
