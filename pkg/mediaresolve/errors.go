package mediaresolve

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrAssetNotFound indicates a video asset was not found
	ErrAssetNotFound = errors.New("video asset not found")

	// ErrDuplicateExternalID indicates the storage layer rejected an insert
	// because another asset already holds the same external processor asset id.
	// Repositories must return it (wrapped or bare) on a uniqueness violation;
	// the registration resolver depends on it to detect lost races.
	ErrDuplicateExternalID = errors.New("duplicate external processor asset id")

	// ErrStorageUnavailable indicates a transient storage-layer connectivity
	// failure. Callers may retry under their own policy; the registration
	// resolver never retries it itself.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrRegistrationInconsistency indicates the registration resolver hit a
	// state that should be impossible: a uniqueness violation followed by
	// repeated reads that find no row. Fatal, never retried automatically.
	ErrRegistrationInconsistency = errors.New("registration inconsistency")

	// ErrDiscoveryExhausted indicates every catalog candidate was unreachable.
	// Non-fatal; the caller may retry later or mark the asset degraded.
	ErrDiscoveryExhausted = errors.New("discovery exhausted: no reachable storage location")

	// ErrThumbnailPipelineExhausted should never occur: the placeholder
	// strategy is the terminal fallback and cannot fail. Treated as a
	// programming error if observed.
	ErrThumbnailPipelineExhausted = errors.New("thumbnail pipeline exhausted")

	// ErrPlaybackExhausted indicates every playback candidate failed at the
	// client. The single user-visible terminal error of this subsystem.
	ErrPlaybackExhausted = errors.New("playback exhausted: no working playback source")

	// ErrProcessorNotReady indicates the external media processor has not
	// finished preparing the asset.
	ErrProcessorNotReady = errors.New("external processor asset not ready")
)

// AssetError represents an error related to an operation on one asset
type AssetError struct {
	AssetID uuid.UUID
	Op      string
	Err     error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("asset operation %s failed for asset %s: %v", e.Op, e.AssetID, e.Err)
}

func (e *AssetError) Unwrap() error {
	return e.Err
}

// ProbeError represents a failed reachability check against one URI
type ProbeError struct {
	URI    string
	Reason ProbeReason
	Err    error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe of %s failed (%s): %v", e.URI, e.Reason, e.Err)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}
