// Package store persists the accumulated record corpus as a single JSON file.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/commentradar/internal/model"
)

// Store owns one JSON record file. All read-modify-write sequences on the
// file go through a single mutex.
type Store struct {
	path string
	mu   sync.Mutex
	log  logrus.FieldLogger
}

// MergeResult describes the outcome of one merge
type MergeResult struct {
	Added int // new unique records appended
	Total int // records in the store after the write
}

// New creates a store for the file at path
func New(path string, log logrus.FieldLogger) *Store {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Store{
		path: path,
		log:  log.WithField("component", "store"),
	}
}

// Path returns the file path of the store
func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted records. A missing or empty file is an empty store.
func (s *Store) Load() ([]model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Merge appends the records whose key is not yet stored and rewrites the file.
func (s *Store) Merge(records []model.Record) (MergeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.load()
	if err != nil {
		return MergeResult{}, err
	}

	merged, added := Reconcile(existing, records)
	if err := s.write(merged); err != nil {
		return MergeResult{}, err
	}

	s.log.WithFields(logrus.Fields{
		"path":     s.path,
		"existing": len(existing),
		"incoming": len(records),
		"added":    len(added),
		"total":    len(merged),
	}).Info("Store merged")

	return MergeResult{Added: len(added), Total: len(merged)}, nil
}

// Replace overwrites the store with records, dropping everything persisted before.
func (s *Store) Replace(records []model.Record) (MergeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if records == nil {
		records = []model.Record{}
	}
	if err := s.write(records); err != nil {
		return MergeResult{}, err
	}

	s.log.WithFields(logrus.Fields{
		"path":  s.path,
		"total": len(records),
	}).Info("Store overwritten")

	return MergeResult{Added: len(records), Total: len(records)}, nil
}

// Reconcile returns existing followed by the records of incoming whose key is
// neither in existing nor earlier in incoming. Existing records are never
// dropped or reordered. The second return value holds the appended records.
func Reconcile(existing, incoming []model.Record) (merged, added []model.Record) {
	seen := make(map[model.Key]struct{}, len(existing)+len(incoming))
	for _, r := range existing {
		seen[r.Key()] = struct{}{}
	}

	merged = make([]model.Record, 0, len(existing)+len(incoming))
	merged = append(merged, existing...)

	for _, r := range incoming {
		k := r.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		added = append(added, r)
	}
	merged = append(merged, added...)
	return merged, added
}

func (s *Store) load() ([]model.Record, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []model.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store %s: %w", s.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []model.Record{}, nil
	}

	var records []model.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode store %s: %w", s.path, err)
	}
	if records == nil {
		records = []model.Record{}
	}
	return records, nil
}

// write replaces the file atomically via a temp file in the same directory.
func (s *Store) write(records []model.Record) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode store: %w", err)
	}

	dir := filepath.Dir(s.path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create store dir: %w", err)
		}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("chmod store: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace store %s: %w", s.path, err)
	}
	return nil
}
