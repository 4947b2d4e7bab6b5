// Package artifact keeps finalized binary objects (recordings and
// snapshots) in memory and hands out blob: URLs referencing them.
package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned for URLs that were never issued or were revoked.
var ErrNotFound = errors.New("artifact not found")

// Artifact is an immutable binary object referenced by URL.
type Artifact struct {
	ID        string
	URL       string
	MediaType string
	Data      []byte
	Width     int // images only
	Height    int // images only
	Created   time.Time
}

// Size returns the length of the artifact in bytes.
func (a *Artifact) Size() int {
	return len(a.Data)
}

// Store maps blob URLs to artifacts.
type Store struct {
	mu    sync.RWMutex
	items map[string]*Artifact
}

func NewStore() *Store {
	return &Store{items: make(map[string]*Artifact)}
}

// Put registers data under a fresh URL. The store takes ownership of data.
func (s *Store) Put(mediaType string, data []byte) *Artifact {
	id := uuid.New().String()
	a := &Artifact{
		ID:        id,
		URL:       "blob:" + id,
		MediaType: mediaType,
		Data:      data,
		Created:   time.Now(),
	}

	s.mu.Lock()
	s.items[a.URL] = a
	s.mu.Unlock()

	return a
}

// Resolve returns the artifact referenced by url.
func (s *Store) Resolve(url string) (*Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.items[url]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
	}
	return a, nil
}

// Revoke releases url. Revoking an unknown URL is a no-op.
func (s *Store) Revoke(url string) {
	s.mu.Lock()
	delete(s.items, url)
	s.mu.Unlock()
}

// Len returns the number of live artifacts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Save writes a to dir/name, replacing any existing file, and returns the
// written path.
func Save(a *Artifact, dir, name string) (string, error) {
	if a == nil {
		return "", ErrNotFound
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}

	path := filepath.Join(dir, name)
	tmpPath := path + ".tmp"
	defer os.Remove(tmpPath)

	if err := os.WriteFile(tmpPath, a.Data, 0644); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return "", fmt.Errorf("failed to move artifact: %w", err)
	}

	return path, nil
}
