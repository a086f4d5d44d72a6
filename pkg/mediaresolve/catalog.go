package mediaresolve

import (
	"fmt"
	"path"
	"sort"
	"strings"
)

// Candidate confidence tiers. Known references outrank convention-derived
// guesses; upload-key conventions outrank id-only conventions.
const (
	confidenceKnown      = 100
	confidenceUploadKey  = 80
	confidenceAssetID    = 60
	confidenceFilename   = 40
	confidenceOriginLast = 20
)

// CatalogConfig holds the base locations candidates are constructed from.
// Empty fields disable that backend's conventions.
type CatalogConfig struct {
	// ObjectStoreBaseURI is the bucket root, e.g. "s3://media-bucket".
	ObjectStoreBaseURI string
	// CDNBaseURL fronts the object store, e.g. "https://cdn.example.com".
	CDNBaseURL string
	// OriginRelayBaseURL is the pass-through endpoint on the origin server,
	// e.g. "https://app.example.com/relay".
	OriginRelayBaseURL string
}

// Catalog generates ordered lists of plausible storage locations for an
// asset from deterministic naming-convention rules. It performs no I/O;
// reachability is the Probe Engine's concern.
type Catalog struct {
	cfg CatalogConfig
}

// NewCatalog creates a Catalog with trailing slashes normalized away.
func NewCatalog(cfg CatalogConfig) *Catalog {
	cfg.ObjectStoreBaseURI = strings.TrimSuffix(cfg.ObjectStoreBaseURI, "/")
	cfg.CDNBaseURL = strings.TrimSuffix(cfg.CDNBaseURL, "/")
	cfg.OriginRelayBaseURL = strings.TrimSuffix(cfg.OriginRelayBaseURL, "/")
	return &Catalog{cfg: cfg}
}

// Candidates returns plausible locations for the given kind of bytes,
// ordered most-likely-first. Known references on the asset rank above
// convention-derived guesses. Thumbnail candidates are built only from
// thumbnail-shaped conventions; a video URI is never offered for the
// thumbnail kind.
func (c *Catalog) Candidates(asset *VideoAsset, kind AssetKind) []StorageCandidate {
	var out []StorageCandidate

	switch kind {
	case KindThumbnail:
		if asset.Thumbnail != nil && asset.Thumbnail.URI != "" {
			out = append(out, StorageCandidate{
				BackendType: asset.Thumbnail.BackendType,
				URI:         asset.Thumbnail.URI,
				Confidence:  confidenceKnown,
			})
		}
		out = append(out, c.thumbnailConventions(asset)...)
	default:
		for _, ref := range asset.StorageReferences {
			out = append(out, StorageCandidate{
				BackendType: ref.BackendType,
				URI:         ref.URI,
				Confidence:  confidenceKnown,
			})
		}
		out = append(out, c.videoConventions(asset)...)
	}

	out = dedupeCandidates(out)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}

func (c *Catalog) videoConventions(asset *VideoAsset) []StorageCandidate {
	var out []StorageCandidate

	if asset.UploadKey != "" {
		key := strings.TrimPrefix(asset.UploadKey, "/")
		if c.cfg.ObjectStoreBaseURI != "" {
			out = append(out, StorageCandidate{
				BackendType: BackendObjectStore,
				URI:         fmt.Sprintf("%s/%s", c.cfg.ObjectStoreBaseURI, key),
				Confidence:  confidenceUploadKey,
			})
		}
		if c.cfg.CDNBaseURL != "" {
			out = append(out, StorageCandidate{
				BackendType: BackendCDN,
				URI:         fmt.Sprintf("%s/%s", c.cfg.CDNBaseURL, key),
				Confidence:  confidenceUploadKey,
			})
		}
	}

	// Conventional id-based layout: videos/<asset id>/<original filename>,
	// falling back to videos/<asset id>.mp4 when no filename survived upload.
	name := asset.OriginalFilename
	if name == "" {
		name = asset.ID.String() + ".mp4"
	}
	idKey := path.Join("videos", asset.ID.String(), name)
	if c.cfg.ObjectStoreBaseURI != "" {
		out = append(out, StorageCandidate{
			BackendType: BackendObjectStore,
			URI:         fmt.Sprintf("%s/%s", c.cfg.ObjectStoreBaseURI, idKey),
			Confidence:  confidenceAssetID,
		})
	}
	if c.cfg.CDNBaseURL != "" {
		out = append(out, StorageCandidate{
			BackendType: BackendCDN,
			URI:         fmt.Sprintf("%s/%s", c.cfg.CDNBaseURL, idKey),
			Confidence:  confidenceAssetID,
		})
	}

	if c.cfg.OriginRelayBaseURL != "" {
		out = append(out, StorageCandidate{
			BackendType: BackendOriginRelay,
			URI:         fmt.Sprintf("%s/videos/%s", c.cfg.OriginRelayBaseURL, asset.ID),
			Confidence:  confidenceOriginLast,
		})
	}
	return out
}

func (c *Catalog) thumbnailConventions(asset *VideoAsset) []StorageCandidate {
	var out []StorageCandidate

	thumbKey := path.Join("thumbnails", asset.ID.String()+".jpg")
	if c.cfg.ObjectStoreBaseURI != "" {
		out = append(out, StorageCandidate{
			BackendType: BackendObjectStore,
			URI:         fmt.Sprintf("%s/%s", c.cfg.ObjectStoreBaseURI, thumbKey),
			Confidence:  confidenceAssetID,
		})
	}
	if c.cfg.CDNBaseURL != "" {
		out = append(out, StorageCandidate{
			BackendType: BackendCDN,
			URI:         fmt.Sprintf("%s/%s", c.cfg.CDNBaseURL, thumbKey),
			Confidence:  confidenceAssetID,
		})
	}

	// Upload-key-shaped thumbnail: same key with the extension swapped,
	// under a thumbnails/ prefix.
	if asset.UploadKey != "" {
		key := strings.TrimPrefix(asset.UploadKey, "/")
		base := strings.TrimSuffix(key, path.Ext(key))
		swapped := path.Join("thumbnails", base+".jpg")
		if c.cfg.ObjectStoreBaseURI != "" {
			out = append(out, StorageCandidate{
				BackendType: BackendObjectStore,
				URI:         fmt.Sprintf("%s/%s", c.cfg.ObjectStoreBaseURI, swapped),
				Confidence:  confidenceFilename,
			})
		}
		if c.cfg.CDNBaseURL != "" {
			out = append(out, StorageCandidate{
				BackendType: BackendCDN,
				URI:         fmt.Sprintf("%s/%s", c.cfg.CDNBaseURL, swapped),
				Confidence:  confidenceFilename,
			})
		}
	}

	if c.cfg.OriginRelayBaseURL != "" {
		out = append(out, StorageCandidate{
			BackendType: BackendOriginRelay,
			URI:         fmt.Sprintf("%s/thumbnails/%s", c.cfg.OriginRelayBaseURL, asset.ID),
			Confidence:  confidenceOriginLast,
		})
	}
	return out
}

// dedupeCandidates keeps the highest-confidence entry per URI, preserving
// first-seen order among equals.
func dedupeCandidates(in []StorageCandidate) []StorageCandidate {
	seen := make(map[string]int, len(in))
	var out []StorageCandidate
	for _, cand := range in {
		if i, ok := seen[cand.URI]; ok {
			if cand.Confidence > out[i].Confidence {
				out[i].Confidence = cand.Confidence
			}
			continue
		}
		seen[cand.URI] = len(out)
		out = append(out, cand)
	}
	return out
}
