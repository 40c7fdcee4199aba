package storage

import (
	"context"
	"errors"
	"sync"

	lendingapp "github.com/terraloan/backend/internal/application/lending"
)

// Ensure StubFileStorage implements FileStorage
var _ lendingapp.FileStorage = (*StubFileStorage)(nil)

// StubFileStorage keeps uploaded documents in memory. Use it for
// development and tests until a real storage backend is configured.
type StubFileStorage struct {
	// BaseURL is the base URL for generated object links
	BaseURL string

	mu      sync.RWMutex
	objects map[string][]byte
}

// NewStubFileStorage creates a new StubFileStorage
func NewStubFileStorage() *StubFileStorage {
	return &StubFileStorage{
		BaseURL: "https://storage.example.com",
		objects: make(map[string][]byte),
	}
}

// Upload stores the document in memory and returns a synthetic URL
func (s *StubFileStorage) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if key == "" {
		return "", errors.New("storage key is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	s.objects[key] = stored

	return s.BaseURL + "/" + key, nil
}

// Get returns a stored document, for test assertions
func (s *StubFileStorage) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[key]
	return data, ok
}
