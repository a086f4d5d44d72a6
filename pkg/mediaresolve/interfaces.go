package mediaresolve

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for video asset persistence.
//
// CreateAsset must be backed by a storage-level uniqueness constraint on
// the external processor asset id: when two callers race to create the
// same id, exactly one insert succeeds and the loser receives
// ErrDuplicateExternalID. An application-level existence check is not an
// acceptable substitute.
type Repository interface {
	CreateAsset(ctx context.Context, asset *VideoAsset) error
	GetAsset(ctx context.Context, id uuid.UUID) (*VideoAsset, error)
	GetAssetByExternalID(ctx context.Context, externalID string) (*VideoAsset, error)
	UpdateAsset(ctx context.Context, asset *VideoAsset) error
	ListAssetsByState(ctx context.Context, state ProcessingState) ([]*VideoAsset, error)
}

// ProbeReason classifies why a probe did not find reachable bytes, so
// callers can apply different retry policies to timeouts versus explicit
// not-found responses.
type ProbeReason string

// Probe reason constants (typed).
const (
	ReasonNotFound ProbeReason = "not_found"
	ReasonTimeout  ProbeReason = "timeout"
	ReasonError    ProbeReason = "error"
)

// ProbeResult reports the outcome of a single reachability check.
type ProbeResult struct {
	Reachable             bool
	SizeBytes             int64
	ContentType           string
	SupportsRangeRequests bool
	Reason                ProbeReason
}

// Prober performs a cheap existence/metadata check against one URI without
// downloading content. Implementations must enforce their own timeout and
// must distinguish timeouts from explicit not-found responses via
// ProbeResult.Reason. A non-nil error means the probe itself could not be
// carried out (malformed URI, unsupported scheme); an unreachable target
// is reported through the result, not the error.
type Prober interface {
	Probe(ctx context.Context, uri string) (*ProbeResult, error)
}

// ProcessorAsset is the external media processor's view of one asset.
type ProcessorAsset struct {
	ExternalID   string
	Ready        bool
	StreamURI    string
	ThumbnailURI string
}

// MediaProcessor is the consumed contract of the external media processor:
// given an external asset id, report readiness plus native stream and
// thumbnail URIs.
type MediaProcessor interface {
	GetAsset(ctx context.Context, externalID string) (*ProcessorAsset, error)
}

// ThumbnailJob tracks one submitted secondary-transcoding job.
type ThumbnailJob struct {
	ID        string
	Done      bool
	Failed    bool
	ResultURI string
}

// ThumbnailJobClient is the consumed contract of the secondary transcoding
// service used by the thumbnail pipeline's second strategy.
type ThumbnailJobClient interface {
	SubmitThumbnailJob(ctx context.Context, sourceURI string) (*ThumbnailJob, error)
	GetJob(ctx context.Context, jobID string) (*ThumbnailJob, error)
}

// PlaceholderStore persists a locally generated placeholder image and
// returns a reference to it. The memory implementation is sufficient for
// tests; production wiring points it at an object-store backed store.
type PlaceholderStore interface {
	PutPlaceholder(ctx context.Context, assetID uuid.UUID, png []byte) (uri string, err error)
}

// Clock abstracts time for TTL checks. Production code uses RealClock;
// tests substitute fixed clocks.
type Clock interface {
	Now() time.Time
}

// RealClock is the production Clock.
type RealClock struct{}

// Now returns the current UTC time.
func (RealClock) Now() time.Time { return time.Now().UTC() }
