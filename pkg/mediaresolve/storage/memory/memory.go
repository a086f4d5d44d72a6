package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/lumenlms/mediaresolve/pkg/mediaresolve"
)

// Store is an in-memory placeholder store for tests and development.
type Store struct {
	mu    sync.RWMutex
	blobs map[uuid.UUID][]byte
}

// New creates a new in-memory placeholder store
func New() *Store {
	return &Store{blobs: make(map[uuid.UUID][]byte)}
}

// PutPlaceholder stores the image and returns a memory:// URI for it.
func (s *Store) PutPlaceholder(ctx context.Context, assetID uuid.UUID, png []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := make([]byte, len(png))
	copy(buf, png)
	s.blobs[assetID] = buf
	return fmt.Sprintf("memory://thumbnails/%s.png", assetID), nil
}

// Get returns the stored image for an asset, if any.
func (s *Store) Get(assetID uuid.UUID) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.blobs[assetID]
	return b, ok
}

var _ mediaresolve.PlaceholderStore = (*Store)(nil)
