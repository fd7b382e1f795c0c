// Copyright (c) 2025 BVK Chaitanya

// Package session implements a single-slot durable store for the bot's last
// successful login credential.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ErrStoreUnavailable is returned when the backing storage cannot be read or
// written.
var ErrStoreUnavailable = errors.New("session store unavailable")

// DefaultFileName is the file name used for the session record.
const DefaultFileName = "session.json"

// Record holds the credential material issued by the remote service after a
// successful login.
type Record struct {
	AccountName string `json:"account_name"`

	// SessionBlob is opaque to everyone except the connection manager.
	SessionBlob string `json:"credential_material"`

	CapturedAt time.Time `json:"captured_at"`
}

func (r *Record) Check() error {
	if len(r.AccountName) == 0 {
		return fmt.Errorf("account name cannot be empty: %w", os.ErrInvalid)
	}
	if len(r.SessionBlob) == 0 {
		return fmt.Errorf("credential material cannot be empty: %w", os.ErrInvalid)
	}
	if r.CapturedAt.IsZero() {
		return fmt.Errorf("capture time cannot be zero: %w", os.ErrInvalid)
	}
	return nil
}

// FileStore keeps the session record as a JSON file in a directory.
type FileStore struct {
	mu sync.Mutex

	dir  string
	name string
}

// NewFileStore returns a store that keeps the session record in the given
// directory. Directory is created on first Save if it doesn't exist.
func NewFileStore(dir string) (*FileStore, error) {
	if !filepath.IsAbs(dir) {
		return nil, fmt.Errorf("session directory %q must be an absolute path: %w", dir, os.ErrInvalid)
	}
	s := &FileStore{
		dir:  filepath.Clean(dir),
		name: DefaultFileName,
	}
	return s, nil
}

// Path returns the session record file path.
func (s *FileStore) Path() string {
	return filepath.Join(s.dir, s.name)
}

// Save replaces the current record atomically.
func (s *FileStore) Save(ctx context.Context, r *Record) error {
	if err := r.Check(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("could not marshal session record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("could not create session directory %q: %w: %w", s.dir, ErrStoreUnavailable, err)
	}
	if err := writeFile(s.Path(), data, 0600); err != nil {
		return fmt.Errorf("could not write session record: %w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// Load returns the current record. Returns nil record and nil error if the
// record doesn't exist or is corrupted.
func (s *FileStore) Load(ctx context.Context) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fpath := s.Path()
	data, err := os.ReadFile(fpath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("could not read session record: %w: %w", ErrStoreUnavailable, err)
	}

	r := new(Record)
	if err := json.Unmarshal(data, r); err != nil {
		slog.Warn("session record is corrupted (ignored)", "path", fpath, "err", err)
		return nil, nil
	}
	if err := r.Check(); err != nil {
		slog.Warn("session record is incomplete (ignored)", "path", fpath, "err", err)
		return nil, nil
	}
	return r, nil
}

// Clear removes the record. Clearing a missing record is not an error.
func (s *FileStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.Path()); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("could not remove session record: %w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// writeFile writes data into a temporary file in the same directory and
// renames it over the target, so readers see either old or new content.
func writeFile(fpath string, data []byte, mode os.FileMode) (status error) {
	dir, base := filepath.Split(fpath)
	fp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return err
	}
	tmp := fp.Name()
	defer func() {
		if status != nil {
			fp.Close()
			os.Remove(tmp)
		}
	}()

	if err := fp.Chmod(mode); err != nil {
		return err
	}
	if _, err := fp.Write(data); err != nil {
		return err
	}
	if err := fp.Sync(); err != nil {
		return err
	}
	if err := fp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, fpath)
}
