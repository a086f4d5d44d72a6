package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/lumenlms/mediaresolve/pkg/mediaresolve"
)

// Repository implements mediaresolve.Repository using in-memory storage.
// The byExternalID index is maintained under the same mutex as the insert,
// which gives it the atomic uniqueness-constraint semantics the
// registration resolver requires from any backing store.
type Repository struct {
	mu           sync.RWMutex
	assets       map[uuid.UUID]*mediaresolve.VideoAsset
	byExternalID map[string]uuid.UUID
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		assets:       make(map[uuid.UUID]*mediaresolve.VideoAsset),
		byExternalID: make(map[string]uuid.UUID),
	}
}

func (r *Repository) CreateAsset(ctx context.Context, asset *mediaresolve.VideoAsset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if asset.ExternalProcessorAssetID != "" {
		if _, exists := r.byExternalID[asset.ExternalProcessorAssetID]; exists {
			return mediaresolve.ErrDuplicateExternalID
		}
	}

	// Store a copy to avoid external modifications
	assetCopy := cloneAsset(asset)
	r.assets[asset.ID] = assetCopy
	if asset.ExternalProcessorAssetID != "" {
		r.byExternalID[asset.ExternalProcessorAssetID] = asset.ID
	}
	return nil
}

func (r *Repository) GetAsset(ctx context.Context, id uuid.UUID) (*mediaresolve.VideoAsset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	asset, exists := r.assets[id]
	if !exists {
		return nil, mediaresolve.ErrAssetNotFound
	}
	return cloneAsset(asset), nil
}

func (r *Repository) GetAssetByExternalID(ctx context.Context, externalID string) (*mediaresolve.VideoAsset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.byExternalID[externalID]
	if !exists {
		return nil, mediaresolve.ErrAssetNotFound
	}
	return cloneAsset(r.assets[id]), nil
}

func (r *Repository) UpdateAsset(ctx context.Context, asset *mediaresolve.VideoAsset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.assets[asset.ID]; !exists {
		return mediaresolve.ErrAssetNotFound
	}
	r.assets[asset.ID] = cloneAsset(asset)
	return nil
}

func (r *Repository) ListAssetsByState(ctx context.Context, state mediaresolve.ProcessingState) ([]*mediaresolve.VideoAsset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*mediaresolve.VideoAsset
	for _, asset := range r.assets {
		if asset.ProcessingState == state {
			result = append(result, cloneAsset(asset))
		}
	}

	// Sort by created_at descending
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// cloneAsset deep-copies the slices and pointers callers might mutate.
func cloneAsset(a *mediaresolve.VideoAsset) *mediaresolve.VideoAsset {
	out := *a
	if a.StorageReferences != nil {
		out.StorageReferences = make([]mediaresolve.StorageReference, len(a.StorageReferences))
		copy(out.StorageReferences, a.StorageReferences)
		for i := range out.StorageReferences {
			if v := a.StorageReferences[i].VerifiedAt; v != nil {
				t := *v
				out.StorageReferences[i].VerifiedAt = &t
			}
		}
	}
	if a.Thumbnail != nil {
		thumb := *a.Thumbnail
		if v := a.Thumbnail.VerifiedAt; v != nil {
			t := *v
			thumb.VerifiedAt = &t
		}
		out.Thumbnail = &thumb
	}
	return &out
}
