package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pwerioflow/link/internal/storage"
)

// fileEntry stores an uploaded file in memory.
type fileEntry struct {
	ContentType string
	Data        []byte
	URL         string
	ModTime     time.Time
}

// Storage implements storage.Storage using an in-memory map.
// Contents are lost on restart; it backs tests and throwaway deployments.
type Storage struct {
	mu      sync.RWMutex
	files   map[string]*fileEntry
	baseURL string
}

// New creates a new in-memory storage instance.
func New(baseURL string) *Storage {
	return &Storage{
		files:   make(map[string]*fileEntry),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Upload stores the file in memory and returns the generated URL.
func (s *Storage) Upload(_ context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	data, err := io.ReadAll(input.Data)
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", input.Key, err)
	}

	url := s.baseURL + storage.PathPrefix + input.Key

	s.mu.Lock()
	s.files[input.Key] = &fileEntry{
		ContentType: input.ContentType,
		Data:        data,
		URL:         url,
		ModTime:     time.Now().UTC(),
	}
	s.mu.Unlock()

	return &storage.UploadResult{Key: input.Key, URL: url}, nil
}

// Delete removes a file from memory.
func (s *Storage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.files[key]; !exists {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, key)
	}
	delete(s.files, key)
	return nil
}

// GetURL returns the URL for the given key.
func (s *Storage) GetURL(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.files[key]
	if !exists {
		return "", fmt.Errorf("%w: %s", storage.ErrNotFound, key)
	}
	return entry.URL, nil
}

// ServeHTTP serves a stored file. r.URL.Path is the key, with or without
// the /media/ prefix.
func (s *Storage) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, storage.PathPrefix), "/")

	s.mu.RLock()
	entry, exists := s.files[key]
	s.mu.RUnlock()
	if !exists {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", entry.ContentType)
	http.ServeContent(w, r, key, entry.ModTime, bytes.NewReader(entry.Data))
}
