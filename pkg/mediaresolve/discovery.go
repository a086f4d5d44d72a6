package mediaresolve

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DiscoverLocation enumerates plausible storage locations for the asset's
// bytes of the given kind and probes them in catalog order, returning the
// first reachable one. This is an any-of search: it stops at the first
// success, and a fully unreachable catalog yields Found=false rather than
// an error. DiscoverLocation never mutates the asset; RepairReferences is
// the step that persists a successful discovery.
func (s *service) DiscoverLocation(ctx context.Context, assetID uuid.UUID, kind AssetKind) (*DiscoveryResult, error) {
	asset, err := s.repository.GetAsset(ctx, assetID)
	if err != nil {
		return nil, &AssetError{AssetID: assetID, Op: "discover.read", Err: err}
	}
	return s.discoverForAsset(ctx, asset, kind)
}

// discoverForAsset probes catalog candidates in order. It returns a
// non-nil error only when the context is cancelled; individual probe
// failures are converted into candidate-failed signals and logged.
func (s *service) discoverForAsset(ctx context.Context, asset *VideoAsset, kind AssetKind) (*DiscoveryResult, error) {
	candidates := s.catalog.Candidates(asset, kind)

	for _, cand := range candidates {
		// Cancellation is honored at candidate boundaries; an in-flight
		// probe is abandoned through its context.
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		prober, err := s.proberFor(cand.URI)
		if err != nil {
			s.logger.Warn("skipping unprobeable candidate",
				"asset_id", asset.ID, "kind", kind, "uri", cand.URI, "error", err)
			continue
		}

		res, err := prober.Probe(ctx, cand.URI)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn("probe failed",
				"asset_id", asset.ID, "kind", kind, "uri", cand.URI, "error", err)
			continue
		}
		if !res.Reachable {
			s.logger.Debug("candidate unreachable",
				"asset_id", asset.ID, "kind", kind, "uri", cand.URI, "reason", res.Reason)
			continue
		}

		return &DiscoveryResult{
			Found:       true,
			URI:         cand.URI,
			BackendType: cand.BackendType,
			SizeBytes:   res.SizeBytes,
			ContentType: res.ContentType,
		}, nil
	}

	return &DiscoveryResult{Found: false}, nil
}

// RepairReferences re-discovers the asset's video and thumbnail bytes and
// persists what it finds: verified references are appended (or stamped),
// and the processing state is advanced, or set to discovery_failed when
// the video bytes cannot be located anywhere. The two discoveries run
// concurrently; nothing is written until both have completed, so a
// cancelled repair never leaves a partial update behind.
//
// References verified within the service's TTL are trusted as-is and not
// re-probed.
func (s *service) RepairReferences(ctx context.Context, assetID uuid.UUID) (*VideoAsset, error) {
	asset, err := s.repository.GetAsset(ctx, assetID)
	if err != nil {
		return nil, &AssetError{AssetID: assetID, Op: "repair.read", Err: err}
	}

	now := s.clock.Now()
	videoFresh := s.hasFreshReference(asset)
	thumbFresh := asset.Thumbnail != nil && asset.Thumbnail.VerifiedWithin(s.verifyTTL, now)
	if videoFresh && thumbFresh {
		return asset, nil
	}

	var videoRes, thumbRes *DiscoveryResult
	g, gctx := errgroup.WithContext(ctx)
	if !videoFresh {
		g.Go(func() error {
			res, err := s.discoverForAsset(gctx, asset, KindVideo)
			videoRes = res
			return err
		})
	}
	if !thumbFresh {
		g.Go(func() error {
			res, err := s.discoverForAsset(gctx, asset, KindThumbnail)
			thumbRes = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now = s.clock.Now()
	if videoRes != nil {
		if !videoRes.Found {
			asset.ProcessingState = StateDiscoveryFailed
			asset.UpdatedAt = now
			if uerr := s.repository.UpdateAsset(ctx, asset); uerr != nil {
				return nil, &AssetError{AssetID: assetID, Op: "repair.update", Err: uerr}
			}
			return asset, fmt.Errorf("repair asset %s: %w", assetID, ErrDiscoveryExhausted)
		}
		s.applyVideoDiscovery(asset, videoRes, now)
	}
	if thumbRes != nil && thumbRes.Found {
		s.applyThumbnailDiscovery(asset, thumbRes, now)
	}

	asset.ProcessingState = s.nextStateAfterRepair(asset)
	asset.UpdatedAt = now
	if err := s.repository.UpdateAsset(ctx, asset); err != nil {
		return nil, &AssetError{AssetID: assetID, Op: "repair.update", Err: err}
	}
	return asset, nil
}

func (s *service) hasFreshReference(asset *VideoAsset) bool {
	now := s.clock.Now()
	for _, ref := range asset.StorageReferences {
		if ref.VerifiedWithin(s.verifyTTL, now) {
			return true
		}
	}
	return false
}

func (s *service) applyVideoDiscovery(asset *VideoAsset, res *DiscoveryResult, now time.Time) {
	verified := now
	for i := range asset.StorageReferences {
		if asset.StorageReferences[i].URI == res.URI {
			asset.StorageReferences[i].VerifiedAt = &verified
			return
		}
	}
	asset.StorageReferences = append(asset.StorageReferences, StorageReference{
		BackendType: res.BackendType,
		URI:         res.URI,
		VerifiedAt:  &verified,
	})
}

func (s *service) applyThumbnailDiscovery(asset *VideoAsset, res *DiscoveryResult, now time.Time) {
	verified := now
	method := ThumbnailMethodNative
	if asset.Thumbnail != nil && asset.Thumbnail.Method != "" {
		method = asset.Thumbnail.Method
	}
	asset.Thumbnail = &ThumbnailReference{
		StorageReference: StorageReference{
			BackendType: res.BackendType,
			URI:         res.URI,
			VerifiedAt:  &verified,
		},
		Method: method,
	}
}

// nextStateAfterRepair keeps state transitions monotonic: discovery_failed
// returns to pending territory once bytes are located again, and an asset
// with located video bytes is ready once a thumbnail exists.
func (s *service) nextStateAfterRepair(asset *VideoAsset) ProcessingState {
	if len(asset.StorageReferences) == 0 {
		return asset.ProcessingState
	}
	if asset.Thumbnail == nil {
		return StateThumbnailPending
	}
	return StateReady
}
