// Package jsonfile stores trail records in a single JSON array on disk.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/refinery/internal/core/logging"
	"github.com/colonyops/refinery/internal/core/trail"
)

// TrailStore implements trail.Store using a JSON file for persistence.
// The file holds a JSON array of records, oldest first.
type TrailStore struct {
	path string
	mu   sync.RWMutex
	log  zerolog.Logger
}

var _ trail.Store = (*TrailStore)(nil)

// NewTrailStore creates a new JSON file trail store at the given path.
func NewTrailStore(path string) *TrailStore {
	return &TrailStore{path: path, log: logging.Component("trail")}
}

// Path returns the backing file path.
func (s *TrailStore) Path() string {
	return s.path
}

// Append adds rec to the end of the file.
func (s *TrailStore) Append(_ context.Context, rec trail.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		records, err = s.recover(err)
		if err != nil {
			return err
		}
	}

	records = append(records, rec)
	return s.save(records)
}

// List returns all records, oldest first.
func (s *TrailStore) List(_ context.Context) ([]trail.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.load()
}

// Get returns a record by ID. Returns trail.ErrNotFound if not found.
func (s *TrailStore) Get(_ context.Context, id string) (trail.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, err := s.load()
	if err != nil {
		return trail.Record{}, err
	}

	for _, rec := range records {
		if rec.ID == id {
			return rec, nil
		}
	}

	return trail.Record{}, trail.ErrNotFound
}

// load reads the trail file from disk.
// Returns an empty slice if the file doesn't exist or is empty.
func (s *TrailStore) load() ([]trail.Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []trail.Record{}, nil
		}
		return nil, fmt.Errorf("read trail file: %w", err)
	}

	if len(data) == 0 {
		return []trail.Record{}, nil
	}

	var records []trail.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, &corruptError{err: err}
	}

	return records, nil
}

type corruptError struct{ err error }

func (e *corruptError) Error() string { return "parse trail file: " + e.err.Error() }
func (e *corruptError) Unwrap() error { return e.err }

// recover moves an unparseable trail file aside so appends can continue.
// Other load errors are returned unchanged.
func (s *TrailStore) recover(loadErr error) ([]trail.Record, error) {
	var ce *corruptError
	if !errors.As(loadErr, &ce) {
		return nil, loadErr
	}

	backup := fmt.Sprintf("%s.corrupt.%s", s.path, time.Now().Format("20060102-150405"))
	if err := os.Rename(s.path, backup); err != nil {
		return nil, fmt.Errorf("backup corrupt trail file: %w", err)
	}

	s.log.Warn().Err(loadErr).Str("backup", backup).Msg("trail file was corrupt, starting a new one")
	return []trail.Record{}, nil
}

// save writes the trail file to disk atomically.
func (s *TrailStore) save(records []trail.Record) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}

	return os.Rename(tmp, s.path)
}
