// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package collapse remembers which result groups the user has folded.
//
// State is keyed by stable strings derived from file paths and chapter
// positions, so it survives re-rendering and re-filtering of the same
// result set. It is reset when a new search replaces the results.
package collapse

import (
	"fmt"
	"sort"
	"sync"
)

// FileKey returns the key for the group of all hits in one file.
func FileKey(path string) string {
	return "file::" + path
}

// ChapterKey returns the key for one heading group inside a file. index is
// the position of the heading group within the file's results.
func ChapterKey(path string, index int, heading string) string {
	return fmt.Sprintf("chapter::%s::%d::%s", path, index, heading)
}

// Store maps keys to collapsed flags. It is safe for concurrent use.
type Store struct {
	mu    sync.Mutex
	state map[string]bool
}

// New returns an empty store.
func New() *Store {
	return &Store{state: make(map[string]bool)}
}

// Get reports whether key is collapsed. Unknown keys are expanded.
func (s *Store) Get(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state[key]
}

// Set records the collapsed flag for key.
func (s *Store) Set(key string, collapsed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		s.state = make(map[string]bool)
	}
	if !collapsed {
		delete(s.state, key)
		return
	}
	s.state[key] = true
}

// Toggle flips key and returns the new value.
func (s *Store) Toggle(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		s.state = make(map[string]bool)
	}
	if s.state[key] {
		delete(s.state, key)
		return false
	}
	s.state[key] = true
	return true
}

// Reset forgets every key.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.state)
}

// Len returns the number of collapsed keys.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state)
}

// Collapsed returns the collapsed keys, sorted.
func (s *Store) Collapsed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.state))
	for k := range s.state {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
