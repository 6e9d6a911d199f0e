// Package state persists the set of listing identifiers seen by earlier
// runs so that later runs only fetch new responses.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// SeenSet is the set of identifiers enumerated so far. It only grows.
type SeenSet struct {
	ids map[string]struct{}
}

// NewSeenSet builds a set from ids.
func NewSeenSet(ids ...string) *SeenSet {
	s := &SeenSet{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Has reports whether id was seen.
func (s *SeenSet) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Add records id and reports whether it was new.
func (s *SeenSet) Add(id string) bool {
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Len returns the number of identifiers.
func (s *SeenSet) Len() int {
	return len(s.ids)
}

// Sorted returns the identifiers in lexical order.
func (s *SeenSet) Sorted() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Store reads and writes a SeenSet as a JSON array.
type Store struct {
	path string
}

// NewStore returns a store backed by path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the state file. A missing file is a first run; an unreadable or
// corrupt file is logged and treated the same way.
func (st *Store) Load() (*SeenSet, error) {
	data, err := os.ReadFile(st.path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewSeenSet(), nil
	}
	if err != nil {
		slog.Warn("state file unreadable, starting empty", slog.String("path", st.path), slog.Any("error", err))
		return NewSeenSet(), nil
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		slog.Warn("state file corrupt, starting empty", slog.String("path", st.path), slog.Any("error", err))
		return NewSeenSet(), nil
	}
	return NewSeenSet(ids...), nil
}

// Save writes the full set, sorted and indented, replacing the previous file
// atomically.
func (st *Store) Save(set *SeenSet) error {
	if set == nil {
		set = NewSeenSet()
	}
	data, err := json.MarshalIndent(set.Sorted(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(st.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(st.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close state: %w", err)
	}
	if err := os.Rename(tmp.Name(), st.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
