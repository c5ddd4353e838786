// Package setstore provides static word-list sets used by moderation
// detectors: profanity lexicons, spam domains, and similar. Sets are loaded at
// startup and read-only afterwards.
package setstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

type SetStore interface {
	InSet(ctx context.Context, name, val string) (bool, error)
}

type MemSetStore struct {
	Sets map[string]map[string]bool
}

func NewMemSetStore() *MemSetStore {
	return &MemSetStore{
		Sets: make(map[string]map[string]bool),
	}
}

func (s *MemSetStore) InSet(ctx context.Context, name, val string) (bool, error) {
	set, ok := s.Sets[name]
	if !ok {
		// NOTE: currently returns false when entire set isn't found
		return false, nil
	}
	_, ok = set[val]
	return ok, nil
}

func (s *MemSetStore) AddToSet(name string, vals []string) {
	m, ok := s.Sets[name]
	if !ok {
		m = make(map[string]bool, len(vals))
		s.Sets[name] = m
	}
	for _, val := range vals {
		m[val] = true
	}
}

// Loads sets from a JSON file of the form {"set-name": ["val", ...]}. Merges
// with any already-loaded sets, replacing same-named sets wholesale.
func (s *MemSetStore) LoadFromFileJSON(p string) error {
	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	raw, err := io.ReadAll(f)
	if err != nil {
		return err
	}

	var lists map[string][]string
	if err := json.Unmarshal(raw, &lists); err != nil {
		return fmt.Errorf("parsing word list file: %w", err)
	}

	for name, l := range lists {
		m := make(map[string]bool, len(l))
		for _, val := range l {
			m[val] = true
		}
		s.Sets[name] = m
	}
	return nil
}
