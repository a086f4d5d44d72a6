package mediaresolve

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the main interface for the mediaresolve library
type Service interface {
	// Registration operations
	RegisterAsset(ctx context.Context, req RegisterAssetRequest) (*VideoAsset, bool, error)
	GetAsset(ctx context.Context, id uuid.UUID) (*VideoAsset, error)
	GetAssetByExternalID(ctx context.Context, externalID string) (*VideoAsset, error)

	// Discovery operations
	DiscoverLocation(ctx context.Context, assetID uuid.UUID, kind AssetKind) (*DiscoveryResult, error)
	RepairReferences(ctx context.Context, assetID uuid.UUID) (*VideoAsset, error)

	// Thumbnail operations
	EnsureThumbnail(ctx context.Context, assetID uuid.UUID) (*ThumbnailReference, error)
	UpgradeThumbnail(ctx context.Context, assetID uuid.UUID) (*ThumbnailReference, error)

	// Playback operations
	ResolvePlayback(ctx context.Context, assetID uuid.UUID) (*PlaybackSession, error)
}

// Request DTOs

// RegisterAssetRequest contains parameters for registering an uploaded
// video. ExternalProcessorAssetID may be empty when the processor has not
// assigned an id yet; registration is then unconditional with no dedup key.
type RegisterAssetRequest struct {
	ExternalProcessorAssetID string
	Draft                    VideoAssetDraft
}
