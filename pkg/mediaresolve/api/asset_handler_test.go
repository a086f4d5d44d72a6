package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/lumenlms/mediaresolve/pkg/mediaresolve"
	"github.com/lumenlms/mediaresolve/pkg/mediaresolve/api"
	"github.com/lumenlms/mediaresolve/pkg/mediaresolve/repo/memory"
	memorystorage "github.com/lumenlms/mediaresolve/pkg/mediaresolve/storage/memory"
)

func setupRouter(t *testing.T, opts ...mediaresolve.Option) (chi.Router, mediaresolve.Service) {
	t.Helper()

	options := append([]mediaresolve.Option{
		mediaresolve.WithRepository(memory.New()),
		mediaresolve.WithPlaceholderStore(memorystorage.New()),
	}, opts...)
	svc, err := mediaresolve.New(options...)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Mount("/assets", api.NewAssetHandler(svc).Routes())
	return r, svc
}

func postJSON(t *testing.T, router chi.Router, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func get(router chi.Router, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRegisterAsset_CreatesAndReplays(t *testing.T) {
	router, _ := setupRouter(t)

	body := map[string]string{
		"external_processor_asset_id": "ext-100",
		"title":                       "lecture one",
		"original_filename":           "lecture-one.mp4",
	}

	rec := postJSON(t, router, "/assets/", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var first struct {
		Asset   mediaresolve.VideoAsset `json:"asset"`
		Created bool                    `json:"created"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	assert.True(t, first.Created)
	assert.Equal(t, "ext-100", first.Asset.ExternalProcessorAssetID)

	// Replaying the same registration returns the same asset, not created.
	rec = postJSON(t, router, "/assets/", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var second struct {
		Asset   mediaresolve.VideoAsset `json:"asset"`
		Created bool                    `json:"created"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.False(t, second.Created)
	assert.Equal(t, first.Asset.ID, second.Asset.ID)
}

func TestRegisterAsset_BadBody(t *testing.T) {
	router, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/assets/", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetAsset(t *testing.T) {
	router, svc := setupRouter(t)

	asset, _, err := svc.RegisterAsset(context.Background(), mediaresolve.RegisterAssetRequest{
		Draft: mediaresolve.VideoAssetDraft{Title: "lookup"},
	})
	require.NoError(t, err)

	rec := get(router, "/assets/"+asset.ID.String())
	require.Equal(t, http.StatusOK, rec.Code)

	var got mediaresolve.VideoAsset
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, asset.ID, got.ID)
	assert.Equal(t, "lookup", got.Title)
}

func TestGetAsset_NotFound(t *testing.T) {
	router, _ := setupRouter(t)

	rec := get(router, "/assets/"+uuid.NewString())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetAsset_InvalidID(t *testing.T) {
	router, _ := setupRouter(t)

	rec := get(router, "/assets/not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDiscoverLocation(t *testing.T) {
	prober := &recordingProber{result: &mediaresolve.ProbeResult{Reachable: true, SizeBytes: 42}}
	router, svc := setupRouter(t,
		mediaresolve.WithCatalog(mediaresolve.NewCatalog(mediaresolve.CatalogConfig{
			CDNBaseURL: "https://cdn.example.com",
		})),
		mediaresolve.WithProber("https", prober),
	)

	asset, _, err := svc.RegisterAsset(context.Background(), mediaresolve.RegisterAssetRequest{
		Draft: mediaresolve.VideoAssetDraft{Title: "discover me", UploadKey: "uploads/disc.mp4"},
	})
	require.NoError(t, err)

	rec := get(router, "/assets/"+asset.ID.String()+"/discover?kind=video")
	require.Equal(t, http.StatusOK, rec.Code)

	var result mediaresolve.DiscoveryResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Found)
	assert.Contains(t, result.URI, "https://cdn.example.com")
}

func TestDiscoverLocation_BadKind(t *testing.T) {
	router, svc := setupRouter(t)

	asset, _, err := svc.RegisterAsset(context.Background(), mediaresolve.RegisterAssetRequest{
		Draft: mediaresolve.VideoAssetDraft{Title: "x"},
	})
	require.NoError(t, err)

	rec := get(router, "/assets/"+asset.ID.String()+"/discover?kind=subtitles")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRepairReferences_DegradedAssetStillRendered(t *testing.T) {
	// No probers configured and no catalog bases: discovery cannot find
	// the video, so repair reports the degraded state in the body.
	router, svc := setupRouter(t)

	asset, _, err := svc.RegisterAsset(context.Background(), mediaresolve.RegisterAssetRequest{
		Draft: mediaresolve.VideoAssetDraft{Title: "lost"},
	})
	require.NoError(t, err)

	rec := postJSON(t, router, "/assets/"+asset.ID.String()+"/repair", struct{}{})
	require.Equal(t, http.StatusOK, rec.Code)

	var got mediaresolve.VideoAsset
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, mediaresolve.StateDiscoveryFailed, got.ProcessingState)
}

func TestEnsureThumbnail(t *testing.T) {
	router, svc := setupRouter(t)

	asset, _, err := svc.RegisterAsset(context.Background(), mediaresolve.RegisterAssetRequest{
		Draft: mediaresolve.VideoAssetDraft{Title: "thumbless"},
	})
	require.NoError(t, err)

	rec := postJSON(t, router, "/assets/"+asset.ID.String()+"/thumbnail", struct{}{})
	require.Equal(t, http.StatusOK, rec.Code)

	var thumb mediaresolve.ThumbnailReference
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &thumb))
	assert.Equal(t, mediaresolve.ThumbnailMethodPlaceholder, thumb.Method)
	assert.NotEmpty(t, thumb.URI)
}

func TestUpgradeThumbnail(t *testing.T) {
	router, svc := setupRouter(t)

	asset, _, err := svc.RegisterAsset(context.Background(), mediaresolve.RegisterAssetRequest{
		Draft: mediaresolve.VideoAssetDraft{Title: "stuck"},
	})
	require.NoError(t, err)
	_, err = svc.EnsureThumbnail(context.Background(), asset.ID)
	require.NoError(t, err)

	rec := postJSON(t, router, "/assets/"+asset.ID.String()+"/thumbnail/upgrade", struct{}{})
	require.Equal(t, http.StatusOK, rec.Code)

	var thumb mediaresolve.ThumbnailReference
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &thumb))
	assert.Equal(t, mediaresolve.ThumbnailMethodPlaceholder, thumb.Method)
}

func TestResolvePlayback(t *testing.T) {
	router, svc := setupRouter(t,
		mediaresolve.WithCatalog(mediaresolve.NewCatalog(mediaresolve.CatalogConfig{
			OriginRelayBaseURL: "https://app.example.com/relay",
		})),
	)

	asset, _, err := svc.RegisterAsset(context.Background(), mediaresolve.RegisterAssetRequest{
		Draft: mediaresolve.VideoAssetDraft{Title: "playable"},
	})
	require.NoError(t, err)

	rec := get(router, "/assets/"+asset.ID.String()+"/playback")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Candidates []mediaresolve.PlaybackCandidate `json:"candidates"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Candidates)
	assert.Equal(t, mediaresolve.BackendOriginRelay, resp.Candidates[0].BackendType)
}

func TestResolvePlayback_Exhausted(t *testing.T) {
	router, svc := setupRouter(t)

	asset, _, err := svc.RegisterAsset(context.Background(), mediaresolve.RegisterAssetRequest{
		Draft: mediaresolve.VideoAssetDraft{Title: "unplayable"},
	})
	require.NoError(t, err)

	rec := get(router, "/assets/"+asset.ID.String()+"/playback")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

// recordingProber answers every probe with a fixed result.
type recordingProber struct {
	result *mediaresolve.ProbeResult
	probes int
}

func (p *recordingProber) Probe(ctx context.Context, uri string) (*mediaresolve.ProbeResult, error) {
	p.probes++
	return p.result, nil
}
