package mediaresolve

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Secondary-job polling bounds.
const (
	thumbnailJobPollInterval = 2 * time.Second
	thumbnailJobDeadline     = 60 * time.Second
)

// thumbnailStrategy is one link in the fallback chain. A nil outcome with
// a nil error is not allowed: a strategy either produces a thumbnail or
// explains why it could not.
type thumbnailStrategy interface {
	name() string
	attempt(ctx context.Context, asset *VideoAsset) (*ThumbnailOutcome, error)
}

// EnsureThumbnail returns the asset's thumbnail reference, producing one
// through the fallback pipeline if none exists yet. Strategies run in
// priority order (native extraction, secondary transcoding job, synthetic
// placeholder) and the first success wins. Individual strategy failures
// are logged and never abort the chain; the placeholder terminal strategy
// cannot fail, so the pipeline always converges.
func (s *service) EnsureThumbnail(ctx context.Context, assetID uuid.UUID) (*ThumbnailReference, error) {
	asset, err := s.repository.GetAsset(ctx, assetID)
	if err != nil {
		return nil, &AssetError{AssetID: assetID, Op: "thumbnail.read", Err: err}
	}
	if asset.Thumbnail != nil {
		return asset.Thumbnail, nil
	}

	outcome, err := s.runThumbnailPipeline(ctx, asset, s.thumbnailStrategies())
	if err != nil {
		return nil, err
	}
	return s.persistThumbnail(ctx, asset, outcome)
}

// UpgradeThumbnail retries the higher-quality strategies for an asset that
// is stuck on a placeholder thumbnail, typically after the external
// processor has become ready. Assets with native or secondary thumbnails
// are returned unchanged; so is a placeholder asset for which the better
// strategies still fail.
func (s *service) UpgradeThumbnail(ctx context.Context, assetID uuid.UUID) (*ThumbnailReference, error) {
	asset, err := s.repository.GetAsset(ctx, assetID)
	if err != nil {
		return nil, &AssetError{AssetID: assetID, Op: "thumbnail.read", Err: err}
	}
	if asset.Thumbnail == nil {
		return s.EnsureThumbnail(ctx, assetID)
	}
	if asset.Thumbnail.Method != ThumbnailMethodPlaceholder {
		return asset.Thumbnail, nil
	}

	strategies := s.thumbnailStrategies()
	// Drop the terminal placeholder: an upgrade that falls back to a
	// placeholder would be a no-op.
	if n := len(strategies); n > 0 {
		strategies = strategies[:n-1]
	}
	outcome, err := s.runThumbnailPipeline(ctx, asset, strategies)
	if err != nil {
		if errors.Is(err, ErrThumbnailPipelineExhausted) {
			return asset.Thumbnail, nil
		}
		return nil, err
	}
	return s.persistThumbnail(ctx, asset, outcome)
}

func (s *service) thumbnailStrategies() []thumbnailStrategy {
	var out []thumbnailStrategy
	if s.processor != nil {
		out = append(out, &nativeThumbnailStrategy{processor: s.processor})
	}
	if s.thumbJobs != nil {
		out = append(out, &secondaryThumbnailStrategy{
			jobs:         s.thumbJobs,
			pollInterval: thumbnailJobPollInterval,
			deadline:     thumbnailJobDeadline,
		})
	}
	out = append(out, &placeholderThumbnailStrategy{store: s.placeholders})
	return out
}

func (s *service) runThumbnailPipeline(ctx context.Context, asset *VideoAsset, strategies []thumbnailStrategy) (*ThumbnailOutcome, error) {
	for _, strat := range strategies {
		// Cancellation is honored at strategy boundaries.
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		outcome, err := strat.attempt(ctx, asset)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn("thumbnail strategy failed",
				"asset_id", asset.ID, "strategy", strat.name(), "error", err)
			continue
		}
		s.logger.Info("thumbnail produced",
			"asset_id", asset.ID, "strategy", strat.name(), "method", outcome.Method)
		return outcome, nil
	}

	// Only reachable when the placeholder strategy was excluded (upgrade
	// path) or, impossibly, failed.
	return nil, fmt.Errorf("asset %s: %w", asset.ID, ErrThumbnailPipelineExhausted)
}

func (s *service) persistThumbnail(ctx context.Context, asset *VideoAsset, outcome *ThumbnailOutcome) (*ThumbnailReference, error) {
	now := s.clock.Now()
	asset.Thumbnail = &ThumbnailReference{
		StorageReference: StorageReference{
			BackendType: outcome.BackendType,
			URI:         outcome.URI,
		},
		Method: outcome.Method,
	}
	if asset.ProcessingState == StateThumbnailPending && len(asset.StorageReferences) > 0 {
		asset.ProcessingState = StateReady
	}
	asset.UpdatedAt = now
	if err := s.repository.UpdateAsset(ctx, asset); err != nil {
		return nil, &AssetError{AssetID: asset.ID, Op: "thumbnail.update", Err: err}
	}
	return asset.Thumbnail, nil
}

// nativeThumbnailStrategy asks the external media processor for the
// thumbnail it extracted during ingest. Only applicable when the asset is
// registered with the processor and the processor reports ready.
type nativeThumbnailStrategy struct {
	processor MediaProcessor
}

func (n *nativeThumbnailStrategy) name() string { return "native" }

func (n *nativeThumbnailStrategy) attempt(ctx context.Context, asset *VideoAsset) (*ThumbnailOutcome, error) {
	if asset.ExternalProcessorAssetID == "" {
		return nil, fmt.Errorf("asset has no external processor id")
	}
	pa, err := n.processor.GetAsset(ctx, asset.ExternalProcessorAssetID)
	if err != nil {
		return nil, err
	}
	if !pa.Ready {
		return nil, ErrProcessorNotReady
	}
	if pa.ThumbnailURI == "" {
		return nil, fmt.Errorf("processor reports ready but no thumbnail uri")
	}
	return &ThumbnailOutcome{
		URI:         pa.ThumbnailURI,
		BackendType: BackendProcessorStream,
		Method:      ThumbnailMethodNative,
	}, nil
}

// secondaryThumbnailStrategy submits a dedicated extraction job to the
// secondary transcoding service and polls it to completion within a
// bounded deadline.
type secondaryThumbnailStrategy struct {
	jobs         ThumbnailJobClient
	pollInterval time.Duration
	deadline     time.Duration
}

func (s *secondaryThumbnailStrategy) name() string { return "secondary" }

func (s *secondaryThumbnailStrategy) attempt(ctx context.Context, asset *VideoAsset) (*ThumbnailOutcome, error) {
	source := secondarySourceURI(asset)
	if source == "" {
		return nil, fmt.Errorf("no storage reference to extract from")
	}

	ctx, cancel := context.WithTimeout(ctx, s.deadline)
	defer cancel()

	job, err := s.jobs.SubmitThumbnailJob(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("submit job: %w", err)
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		if job.Done {
			if job.Failed {
				return nil, fmt.Errorf("job %s failed", job.ID)
			}
			return &ThumbnailOutcome{
				URI:         job.ResultURI,
				BackendType: BackendObjectStore,
				Method:      ThumbnailMethodSecondary,
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("job %s: %w", job.ID, ctx.Err())
		case <-ticker.C:
		}
		job, err = s.jobs.GetJob(ctx, job.ID)
		if err != nil {
			return nil, fmt.Errorf("poll job: %w", err)
		}
	}
}

// secondarySourceURI picks the video source a thumbnail job should read,
// preferring verified references.
func secondarySourceURI(asset *VideoAsset) string {
	for _, ref := range asset.StorageReferences {
		if ref.VerifiedAt != nil {
			return ref.URI
		}
	}
	if len(asset.StorageReferences) > 0 {
		return asset.StorageReferences[0].URI
	}
	return ""
}

// placeholderThumbnailStrategy is the terminal fallback: it renders a
// deterministic placeholder image locally. With a configured store the
// image is persisted there; without one (or if the store write fails) the
// image is returned inline as a data URI, so the strategy cannot fail.
type placeholderThumbnailStrategy struct {
	store PlaceholderStore
}

func (p *placeholderThumbnailStrategy) name() string { return "placeholder" }

func (p *placeholderThumbnailStrategy) attempt(ctx context.Context, asset *VideoAsset) (*ThumbnailOutcome, error) {
	png := RenderPlaceholderPNG(asset.ID, asset.Title)

	if p.store != nil {
		uri, err := p.store.PutPlaceholder(ctx, asset.ID, png)
		if err == nil {
			return &ThumbnailOutcome{
				URI:         uri,
				BackendType: BackendObjectStore,
				Method:      ThumbnailMethodPlaceholder,
			}, nil
		}
	}

	return &ThumbnailOutcome{
		URI:         placeholderDataURI(png),
		BackendType: BackendOriginRelay,
		Method:      ThumbnailMethodPlaceholder,
	}, nil
}
