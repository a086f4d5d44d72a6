package mediaresolve

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// registerOutcome is the tagged result of one find-or-create pass.
// Registration is driven by these values rather than by error types, so
// the control flow stays readable under the race it exists to handle.
type registerOutcome int

const (
	outcomeFound registerOutcome = iota
	outcomeCreated
	outcomeLostRace // insert hit the uniqueness constraint; winner's row expected
)

// RegisterAsset registers an uploaded video exactly once per external
// processor asset id.
//
// With an empty external id there is no dedup key: a fresh row is always
// inserted and no race window exists. With a non-empty id the resolver
// reads first, inserts on miss, and relies on the storage layer's
// uniqueness constraint to arbitrate concurrent inserts: the loser
// re-reads the winner's row. The read-after-violation loop is bounded at
// registerRetry iterations; if the row is still invisible after that
// (replication lag, storage bug) the call fails with
// ErrRegistrationInconsistency instead of spinning.
func (s *service) RegisterAsset(ctx context.Context, req RegisterAssetRequest) (*VideoAsset, bool, error) {
	if req.ExternalProcessorAssetID == "" {
		asset, err := s.createAsset(ctx, req)
		if err != nil {
			return nil, false, err
		}
		return asset, true, nil
	}

	for attempt := 0; attempt < s.registerRetry; attempt++ {
		asset, outcome, err := s.findOrCreate(ctx, req)
		if err != nil {
			return nil, false, err
		}
		switch outcome {
		case outcomeFound:
			return asset, false, nil
		case outcomeCreated:
			return asset, true, nil
		case outcomeLostRace:
			// The winner's row must exist now; loop re-reads it. A retry
			// also covers a transient read-after-write visibility gap.
			s.logger.Info("lost registration race, re-reading winner",
				"external_id", req.ExternalProcessorAssetID,
				"attempt", attempt+1)
		}
	}

	s.logger.Error("registration inconsistency: unique violation but row not readable",
		"external_id", req.ExternalProcessorAssetID,
		"attempts", s.registerRetry)
	return nil, false, fmt.Errorf("register %s after %d attempts: %w",
		req.ExternalProcessorAssetID, s.registerRetry, ErrRegistrationInconsistency)
}

// findOrCreate performs one read-then-insert pass.
func (s *service) findOrCreate(ctx context.Context, req RegisterAssetRequest) (*VideoAsset, registerOutcome, error) {
	existing, err := s.repository.GetAssetByExternalID(ctx, req.ExternalProcessorAssetID)
	if err == nil {
		return existing, outcomeFound, nil
	}
	if !errors.Is(err, ErrAssetNotFound) {
		return nil, 0, &AssetError{Op: "register.read", Err: err}
	}

	asset, err := s.createAsset(ctx, req)
	if err == nil {
		return asset, outcomeCreated, nil
	}
	if errors.Is(err, ErrDuplicateExternalID) {
		return nil, outcomeLostRace, nil
	}
	return nil, 0, err
}

func (s *service) createAsset(ctx context.Context, req RegisterAssetRequest) (*VideoAsset, error) {
	now := s.clock.Now()
	state := StatePending
	if len(req.Draft.StorageReferences) > 0 {
		state = StateRegistered
	}
	asset := &VideoAsset{
		ID:                       uuid.New(),
		ExternalProcessorAssetID: req.ExternalProcessorAssetID,
		Title:                    req.Draft.Title,
		UploadKey:                req.Draft.UploadKey,
		OriginalFilename:         req.Draft.OriginalFilename,
		StorageReferences:        req.Draft.StorageReferences,
		ProcessingState:          state,
		CreatedAt:                now,
		UpdatedAt:                now,
	}

	if err := s.repository.CreateAsset(ctx, asset); err != nil {
		if errors.Is(err, ErrDuplicateExternalID) {
			return nil, err
		}
		return nil, &AssetError{
			AssetID: asset.ID,
			Op:      "register.create",
			Err:     err,
		}
	}
	return asset, nil
}
