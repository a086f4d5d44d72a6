package mediaresolve

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// PlaybackSession walks an ordered candidate list from the client side:
// Trying(i) advances to Trying(i+1) on playback error and ends Exhausted
// once the list runs out. A candidate that failed is never retried within
// the same session.
type PlaybackSession struct {
	Candidates []PlaybackCandidate
	idx        int
}

// Current returns the candidate the player should be trying, or false
// when the session is exhausted.
func (ps *PlaybackSession) Current() (*PlaybackCandidate, bool) {
	if ps.idx >= len(ps.Candidates) {
		return nil, false
	}
	return &ps.Candidates[ps.idx], true
}

// Advance moves past the current (failed) candidate and returns the next
// one. When no candidates remain it returns ErrPlaybackExhausted, the
// single user-visible terminal error of this subsystem.
func (ps *PlaybackSession) Advance() (*PlaybackCandidate, error) {
	ps.idx++
	next, ok := ps.Current()
	if !ok {
		return nil, ErrPlaybackExhausted
	}
	return next, nil
}

// Exhausted reports whether every candidate has failed.
func (ps *PlaybackSession) Exhausted() bool {
	return ps.idx >= len(ps.Candidates)
}

// NextCandidate is the stateless form of Advance: given the ordered list
// and the index that just failed, it returns the next candidate to try,
// or false when the list is exhausted.
func NextCandidate(candidates []PlaybackCandidate, failedIndex int) (*PlaybackCandidate, bool) {
	next := failedIndex + 1
	if next < 0 || next >= len(candidates) {
		return nil, false
	}
	return &candidates[next], true
}

// ResolvePlayback builds the ordered playback candidate list for an
// asset. The ordering is the injected configuration list (default:
// processor stream, CDN, object store, origin relay); the processor
// stream is offered only when the asset is ready and its reference was
// verified within the TTL, and the origin relay is synthesized from the
// catalog when the asset has no explicit relay reference, since the relay
// must stay reachable even for stale records.
func (s *service) ResolvePlayback(ctx context.Context, assetID uuid.UUID) (*PlaybackSession, error) {
	asset, err := s.repository.GetAsset(ctx, assetID)
	if err != nil {
		return nil, &AssetError{AssetID: assetID, Op: "playback.read", Err: err}
	}

	candidates := s.resolveCandidates(asset)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("asset %s has no playback candidates: %w", assetID, ErrPlaybackExhausted)
	}
	return &PlaybackSession{Candidates: candidates}, nil
}

func (s *service) resolveCandidates(asset *VideoAsset) []PlaybackCandidate {
	now := s.clock.Now()
	var out []PlaybackCandidate

	for _, bt := range s.playbackOrder {
		ref := asset.ReferenceFor(bt)

		switch bt {
		case BackendProcessorStream:
			if asset.ProcessingState != StateReady {
				continue
			}
			if ref == nil || !ref.VerifiedWithin(s.verifyTTL, now) {
				continue
			}
		case BackendOriginRelay:
			if ref == nil {
				if uri := s.relayURI(asset); uri != "" {
					out = append(out, PlaybackCandidate{BackendType: bt, URI: uri})
				}
				continue
			}
		default:
			if ref == nil {
				continue
			}
		}

		out = append(out, PlaybackCandidate{BackendType: bt, URI: ref.URI})
	}
	return out
}

// relayURI pulls the origin-relay convention out of the catalog.
func (s *service) relayURI(asset *VideoAsset) string {
	for _, cand := range s.catalog.Candidates(asset, KindVideo) {
		if cand.BackendType == BackendOriginRelay {
			return cand.URI
		}
	}
	return ""
}
