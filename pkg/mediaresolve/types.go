package mediaresolve

import (
	"time"

	"github.com/google/uuid"
)

// ProcessingState is the domain type for video asset lifecycle states.
type ProcessingState string

// Processing state constants (typed).
const (
	StatePending          ProcessingState = "pending"
	StateRegistered       ProcessingState = "registered"
	StateThumbnailPending ProcessingState = "thumbnail_pending"
	StateReady            ProcessingState = "ready"
	StateDiscoveryFailed  ProcessingState = "discovery_failed"
)

// BackendType classifies where an asset's bytes are actually served from.
type BackendType string

// Backend type constants (typed).
const (
	BackendObjectStore     BackendType = "object_store"
	BackendCDN             BackendType = "cdn"
	BackendProcessorStream BackendType = "processor_stream"
	BackendOriginRelay     BackendType = "origin_relay"
)

// ThumbnailMethod records which strategy produced a thumbnail, so callers
// can decide whether a later upgrade to a higher-quality strategy is worth
// attempting.
type ThumbnailMethod string

// Thumbnail method constants (typed).
const (
	ThumbnailMethodNative      ThumbnailMethod = "native"
	ThumbnailMethodSecondary   ThumbnailMethod = "secondary"
	ThumbnailMethodPlaceholder ThumbnailMethod = "placeholder"
)

// AssetKind distinguishes the two byte streams discovery can search for.
type AssetKind string

// Asset kind constants (typed).
const (
	KindVideo     AssetKind = "video"
	KindThumbnail AssetKind = "thumbnail"
)

// StorageReference points at one possible home for an asset's bytes.
// Insertion order in VideoAsset.StorageReferences reflects discovery
// priority, not guaranteed reachability. VerifiedAt is set only
// immediately after a successful probe and is advisory beyond a short TTL.
type StorageReference struct {
	BackendType BackendType `json:"backend_type"`
	URI         string      `json:"uri"`
	VerifiedAt  *time.Time  `json:"verified_at,omitempty"`
}

// VerifiedWithin reports whether the reference was probed successfully
// within the given TTL of now.
func (r StorageReference) VerifiedWithin(ttl time.Duration, now time.Time) bool {
	if r.VerifiedAt == nil {
		return false
	}
	return now.Sub(*r.VerifiedAt) <= ttl
}

// ThumbnailReference is the single thumbnail location plus its provenance.
type ThumbnailReference struct {
	StorageReference
	Method ThumbnailMethod `json:"method"`
}

// VideoAsset is the durable record for one uploaded video.
//
// ExternalProcessorAssetID is the identifier assigned by the external
// media processor; when non-empty it is unique across all assets, and that
// uniqueness is enforced by the storage layer, not by application checks.
type VideoAsset struct {
	ID                       uuid.UUID          `json:"id"`
	ExternalProcessorAssetID string             `json:"external_processor_asset_id,omitempty"`
	Title                    string             `json:"title,omitempty"`
	UploadKey                string             `json:"upload_key,omitempty"`
	OriginalFilename         string             `json:"original_filename,omitempty"`
	StorageReferences        []StorageReference `json:"storage_references"`
	Thumbnail                *ThumbnailReference `json:"thumbnail,omitempty"`
	ProcessingState          ProcessingState    `json:"processing_state"`
	CreatedAt                time.Time          `json:"created_at"`
	UpdatedAt                time.Time          `json:"updated_at"`
}

// ReferenceFor returns the first storage reference of the given backend
// type, or nil if none exists.
func (a *VideoAsset) ReferenceFor(bt BackendType) *StorageReference {
	for i := range a.StorageReferences {
		if a.StorageReferences[i].BackendType == bt {
			return &a.StorageReferences[i]
		}
	}
	return nil
}

// HasReference reports whether any storage reference uses the given URI.
func (a *VideoAsset) HasReference(uri string) bool {
	for i := range a.StorageReferences {
		if a.StorageReferences[i].URI == uri {
			return true
		}
	}
	return false
}

// VideoAssetDraft carries the candidate metadata a caller has at
// registration time, before a durable record exists.
type VideoAssetDraft struct {
	Title            string             `json:"title,omitempty"`
	UploadKey        string             `json:"upload_key,omitempty"`
	OriginalFilename string             `json:"original_filename,omitempty"`
	StorageReferences []StorageReference `json:"storage_references,omitempty"`
}

// StorageCandidate is one plausible location produced by the catalog.
// Confidence orders candidates most-likely-first; it carries no
// reachability promise.
type StorageCandidate struct {
	BackendType BackendType `json:"backend_type"`
	URI         string      `json:"uri"`
	Confidence  int         `json:"confidence"`
}

// DiscoveryResult is the outcome of a single discovery pass.
type DiscoveryResult struct {
	Found       bool        `json:"found"`
	URI         string      `json:"uri,omitempty"`
	BackendType BackendType `json:"backend_type,omitempty"`
	SizeBytes   int64       `json:"size_bytes,omitempty"`
	ContentType string      `json:"content_type,omitempty"`
}

// ThumbnailOutcome is the result of one thumbnail strategy attempt.
type ThumbnailOutcome struct {
	URI         string          `json:"uri"`
	BackendType BackendType     `json:"backend_type"`
	Method      ThumbnailMethod `json:"method"`
}

// PlaybackCandidate is one entry in the ordered playback fallback list.
type PlaybackCandidate struct {
	BackendType BackendType `json:"backend_type"`
	URI         string      `json:"uri"`
}
