package state

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"
)

// FileStateStore keeps the stored keys in a single JSON file.
// Every Set/Delete is a read-modify-write under an in-process mutex and a
// cross-process flock, finished by an atomic tmp-then-rename write, so a
// reader never sees a half-written file.
type FileStateStore struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

// NewFileStateStore creates a new FileStateStore for the given file path.
func NewFileStateStore(path string, logger *slog.Logger) *FileStateStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStateStore{
		path:   path,
		logger: logger,
	}
}

// Get returns the value stored under key.
func (s *FileStateStore) Get(_ context.Context, key string) (string, bool, error) {
	st, err := s.Load()
	if err != nil {
		return "", false, err
	}
	v, ok := st.Values[key]
	return v, ok, nil
}

// Set stores value under key.
func (s *FileStateStore) Set(_ context.Context, key, value string) error {
	return s.update(func(st *AppState) {
		st.Values[key] = value
	})
}

// Delete removes keys. Deleting from a missing file is a no-op.
func (s *FileStateStore) Delete(_ context.Context, keys ...string) error {
	if !s.Exists() {
		return nil
	}
	return s.update(func(st *AppState) {
		for _, k := range keys {
			delete(st.Values, k)
		}
	})
}

// Load reads and parses the state file.
// If the file does not exist, it returns DefaultState().
// If the file contains invalid JSON, it returns an error.
// Warns if the file has permissions more open than 0600.
func (s *FileStateStore) Load() (*AppState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return s.DefaultState(), nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	// Unix permission bits mean nothing on Windows.
	if runtime.GOOS != "windows" {
		if info, statErr := os.Stat(s.path); statErr == nil {
			mode := info.Mode().Perm()
			if mode&0077 != 0 {
				s.logger.Warn("state file has too-open permissions, should be 0600",
					"path", s.path, "current_mode", fmt.Sprintf("%04o", mode))
			}
		}
	}

	var st AppState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parse state file: %w", err)
	}
	if st.Values == nil {
		st.Values = make(map[string]string)
	}
	return &st, nil
}

// update applies fn to the current state and writes the result.
//
// The write sequence is:
//  1. Acquire in-process mutex
//  2. Acquire flock on path+".lock"
//  3. Load current state (default if missing)
//  4. Apply fn
//  5. Write to path+".tmp" with 0600 permissions, fsync, rename over path
//  6. Release flock and mutex
func (s *FileStateStore) update(fn func(*AppState)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lockFile, err := os.OpenFile(s.path+".lock", os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	defer func() { _ = lockFile.Close() }()

	if err := flockLock(lockFile.Fd()); err != nil {
		return fmt.Errorf("acquire file lock: %w", err)
	}
	defer flockUnlock(lockFile.Fd()) //nolint:errcheck

	st, err := s.Load()
	if err != nil {
		return err
	}
	fn(st)
	st.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	data = append(data, '\n')

	if err := s.writeAtomic(data); err != nil {
		return err
	}
	if err := os.Chmod(s.path, 0600); err != nil {
		s.logger.Warn("failed to set permissions on state file", "error", err)
	}

	s.logger.Debug("state saved", "path", s.path, "keys", len(st.Values))
	return nil
}

// writeAtomic writes data to a temp file, fsyncs it, and renames it
// over the target path. On any error the temp file is cleaned up.
func (s *FileStateStore) writeAtomic(data []byte) error {
	tmpPath := s.path + ".tmp"

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	cleanup := func() {
		_ = f.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := f.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("fsync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp to state: %w", err)
	}
	return nil
}

// DefaultState returns an empty version "1" state.
func (s *FileStateStore) DefaultState() *AppState {
	now := time.Now().UTC()
	return &AppState{
		Version:   "1",
		Values:    make(map[string]string),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Exists returns true if the state file exists on disk.
func (s *FileStateStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Path returns the configured file path.
func (s *FileStateStore) Path() string {
	return s.path
}
