package mediaresolve_test

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/lumenlms/mediaresolve/pkg/mediaresolve"
)

func testCatalog() *mediaresolve.Catalog {
	return mediaresolve.NewCatalog(mediaresolve.CatalogConfig{
		ObjectStoreBaseURI: "s3://media-bucket",
		CDNBaseURL:         "https://cdn.example.com/",
		OriginRelayBaseURL: "https://app.example.com/relay",
	})
}

func TestCatalog_VideoCandidates_OrderedByConfidence(t *testing.T) {
	asset := &mediaresolve.VideoAsset{
		ID:               uuid.New(),
		UploadKey:        "uploads/2024/lecture.mp4",
		OriginalFilename: "lecture.mp4",
	}

	cands := testCatalog().Candidates(asset, mediaresolve.KindVideo)
	require.NotEmpty(t, cands)

	// Upload-key conventions outrank id-based ones; relay comes last.
	assert.Equal(t, "s3://media-bucket/uploads/2024/lecture.mp4", cands[0].URI)
	assert.Equal(t, mediaresolve.BackendObjectStore, cands[0].BackendType)

	for i := 1; i < len(cands); i++ {
		assert.GreaterOrEqual(t, cands[i-1].Confidence, cands[i].Confidence,
			"candidates must be ordered most-likely-first")
	}
	last := cands[len(cands)-1]
	assert.Equal(t, mediaresolve.BackendOriginRelay, last.BackendType)
}

func TestCatalog_KnownReferencesRankFirst(t *testing.T) {
	asset := &mediaresolve.VideoAsset{
		ID:        uuid.New(),
		UploadKey: "uploads/a.mp4",
		StorageReferences: []mediaresolve.StorageReference{
			{BackendType: mediaresolve.BackendCDN, URI: "https://cdn.example.com/known/a.mp4"},
		},
	}

	cands := testCatalog().Candidates(asset, mediaresolve.KindVideo)
	require.NotEmpty(t, cands)
	assert.Equal(t, "https://cdn.example.com/known/a.mp4", cands[0].URI)
}

func TestCatalog_ThumbnailCandidates_NeverIncludeVideoURIs(t *testing.T) {
	asset := &mediaresolve.VideoAsset{
		ID:        uuid.New(),
		UploadKey: "uploads/a.mp4",
		StorageReferences: []mediaresolve.StorageReference{
			{BackendType: mediaresolve.BackendObjectStore, URI: "s3://media-bucket/uploads/a.mp4"},
		},
	}

	cands := testCatalog().Candidates(asset, mediaresolve.KindThumbnail)
	require.NotEmpty(t, cands)
	for _, cand := range cands {
		assert.NotEqual(t, "s3://media-bucket/uploads/a.mp4", cand.URI,
			"video URI must never be offered as a thumbnail candidate")
		if cand.BackendType != mediaresolve.BackendOriginRelay {
			assert.Contains(t, cand.URI, "thumbnails/")
		}
	}
}

func TestCatalog_ThumbnailCandidates_KnownThumbnailFirst(t *testing.T) {
	asset := &mediaresolve.VideoAsset{
		ID: uuid.New(),
		Thumbnail: &mediaresolve.ThumbnailReference{
			StorageReference: mediaresolve.StorageReference{
				BackendType: mediaresolve.BackendCDN,
				URI:         "https://cdn.example.com/thumbnails/known.jpg",
			},
			Method: mediaresolve.ThumbnailMethodNative,
		},
	}

	cands := testCatalog().Candidates(asset, mediaresolve.KindThumbnail)
	require.NotEmpty(t, cands)
	assert.Equal(t, "https://cdn.example.com/thumbnails/known.jpg", cands[0].URI)
}

func TestCatalog_Deterministic(t *testing.T) {
	asset := &mediaresolve.VideoAsset{ID: uuid.New(), UploadKey: "uploads/x.mp4"}
	cat := testCatalog()

	first := cat.Candidates(asset, mediaresolve.KindVideo)
	second := cat.Candidates(asset, mediaresolve.KindVideo)
	assert.Equal(t, first, second)
}

func TestCatalog_DuplicateURIsCollapse(t *testing.T) {
	asset := &mediaresolve.VideoAsset{
		ID:        uuid.New(),
		UploadKey: "uploads/a.mp4",
		StorageReferences: []mediaresolve.StorageReference{
			// Same URI the upload-key convention would generate.
			{BackendType: mediaresolve.BackendObjectStore, URI: "s3://media-bucket/uploads/a.mp4"},
		},
	}

	cands := testCatalog().Candidates(asset, mediaresolve.KindVideo)
	seen := make(map[string]bool)
	for _, cand := range cands {
		assert.False(t, seen[cand.URI], "duplicate candidate URI %s", cand.URI)
		seen[cand.URI] = true
	}
}

func TestCatalog_EmptyConfigSkipsBackends(t *testing.T) {
	cat := mediaresolve.NewCatalog(mediaresolve.CatalogConfig{
		CDNBaseURL: "https://cdn.example.com",
	})
	asset := &mediaresolve.VideoAsset{ID: uuid.New(), UploadKey: "uploads/a.mp4"}

	for _, cand := range cat.Candidates(asset, mediaresolve.KindVideo) {
		assert.True(t, strings.HasPrefix(cand.URI, "https://cdn.example.com/"),
			"only CDN conventions are configured, got %s", cand.URI)
	}
}
