package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/lumenlms/mediaresolve/pkg/mediaresolve"
)

// RegisterAssetRequest is the request body for registering an asset
type RegisterAssetRequest struct {
	ExternalProcessorAssetID string `json:"external_processor_asset_id,omitempty"`
	Title                    string `json:"title,omitempty"`
	UploadKey                string `json:"upload_key,omitempty"`
	OriginalFilename         string `json:"original_filename,omitempty"`
}

// RegisterAssetResponse is the response body for registration
type RegisterAssetResponse struct {
	Asset   *mediaresolve.VideoAsset `json:"asset"`
	Created bool                     `json:"created"`
}

// PlaybackResponse is the response body for playback resolution
type PlaybackResponse struct {
	Candidates []mediaresolve.PlaybackCandidate `json:"candidates"`
}

// AssetHandler handles HTTP requests for video assets using pkg/mediaresolve
type AssetHandler struct {
	service mediaresolve.Service
}

// NewAssetHandler creates a new asset handler
func NewAssetHandler(service mediaresolve.Service) *AssetHandler {
	return &AssetHandler{service: service}
}

// Routes returns the routes for assets
func (h *AssetHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.RegisterAsset)
	r.Get("/{id}", h.GetAsset)
	r.Get("/{id}/discover", h.DiscoverLocation)
	r.Post("/{id}/repair", h.RepairReferences)
	r.Post("/{id}/thumbnail", h.EnsureThumbnail)
	r.Post("/{id}/thumbnail/upgrade", h.UpgradeThumbnail)
	r.Get("/{id}/playback", h.ResolvePlayback)

	return r
}

// RegisterAsset registers an uploaded video, idempotently per external id.
func (h *AssetHandler) RegisterAsset(w http.ResponseWriter, r *http.Request) {
	var req RegisterAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	asset, created, err := h.service.RegisterAsset(r.Context(), mediaresolve.RegisterAssetRequest{
		ExternalProcessorAssetID: req.ExternalProcessorAssetID,
		Draft: mediaresolve.VideoAssetDraft{
			Title:            req.Title,
			UploadKey:        req.UploadKey,
			OriginalFilename: req.OriginalFilename,
		},
	})
	if err != nil {
		if errors.Is(err, mediaresolve.ErrRegistrationInconsistency) {
			slog.Error("Registration inconsistency", "external_id", req.ExternalProcessorAssetID, "error", err)
			http.Error(w, "registration inconsistency", http.StatusConflict)
			return
		}
		slog.Error("Failed to register asset", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	slog.Info("Asset registered", "asset_id", asset.ID.String(), "created", created)
	if created {
		render.Status(r, http.StatusCreated)
	}
	render.JSON(w, r, RegisterAssetResponse{Asset: asset, Created: created})
}

// GetAsset returns one asset by id.
func (h *AssetHandler) GetAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := h.assetID(w, r)
	if !ok {
		return
	}

	asset, err := h.service.GetAsset(r.Context(), id)
	if err != nil {
		h.renderError(w, id, err)
		return
	}
	render.JSON(w, r, asset)
}

// DiscoverLocation runs a read-only discovery pass for the asset.
func (h *AssetHandler) DiscoverLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.assetID(w, r)
	if !ok {
		return
	}

	kind := mediaresolve.AssetKind(r.URL.Query().Get("kind"))
	if kind == "" {
		kind = mediaresolve.KindVideo
	}
	if kind != mediaresolve.KindVideo && kind != mediaresolve.KindThumbnail {
		http.Error(w, "kind must be 'video' or 'thumbnail'", http.StatusBadRequest)
		return
	}

	result, err := h.service.DiscoverLocation(r.Context(), id, kind)
	if err != nil {
		h.renderError(w, id, err)
		return
	}
	render.JSON(w, r, result)
}

// RepairReferences re-discovers and persists the asset's storage references.
func (h *AssetHandler) RepairReferences(w http.ResponseWriter, r *http.Request) {
	id, ok := h.assetID(w, r)
	if !ok {
		return
	}

	asset, err := h.service.RepairReferences(r.Context(), id)
	if err != nil {
		if errors.Is(err, mediaresolve.ErrDiscoveryExhausted) {
			// The degraded asset state is the useful payload here.
			render.Status(r, http.StatusOK)
			render.JSON(w, r, asset)
			return
		}
		h.renderError(w, id, err)
		return
	}
	render.JSON(w, r, asset)
}

// EnsureThumbnail produces a thumbnail through the fallback pipeline.
func (h *AssetHandler) EnsureThumbnail(w http.ResponseWriter, r *http.Request) {
	id, ok := h.assetID(w, r)
	if !ok {
		return
	}

	thumb, err := h.service.EnsureThumbnail(r.Context(), id)
	if err != nil {
		h.renderError(w, id, err)
		return
	}
	render.JSON(w, r, thumb)
}

// UpgradeThumbnail retries higher-quality strategies for placeholder thumbnails.
func (h *AssetHandler) UpgradeThumbnail(w http.ResponseWriter, r *http.Request) {
	id, ok := h.assetID(w, r)
	if !ok {
		return
	}

	thumb, err := h.service.UpgradeThumbnail(r.Context(), id)
	if err != nil {
		h.renderError(w, id, err)
		return
	}
	render.JSON(w, r, thumb)
}

// ResolvePlayback returns the ordered playback candidate list.
func (h *AssetHandler) ResolvePlayback(w http.ResponseWriter, r *http.Request) {
	id, ok := h.assetID(w, r)
	if !ok {
		return
	}

	session, err := h.service.ResolvePlayback(r.Context(), id)
	if err != nil {
		if errors.Is(err, mediaresolve.ErrPlaybackExhausted) {
			http.Error(w, "no working playback source", http.StatusConflict)
			return
		}
		h.renderError(w, id, err)
		return
	}
	render.JSON(w, r, PlaybackResponse{Candidates: session.Candidates})
}

func (h *AssetHandler) assetID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		slog.Error("Invalid asset ID", "asset_id", idStr, "error", err)
		http.Error(w, "Invalid asset ID", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func (h *AssetHandler) renderError(w http.ResponseWriter, id uuid.UUID, err error) {
	switch {
	case errors.Is(err, mediaresolve.ErrAssetNotFound):
		http.Error(w, "Asset not found", http.StatusNotFound)
	case errors.Is(err, mediaresolve.ErrStorageUnavailable):
		slog.Error("Storage unavailable", "asset_id", id.String(), "error", err)
		http.Error(w, "Storage unavailable", http.StatusServiceUnavailable)
	default:
		slog.Error("Asset operation failed", "asset_id", id.String(), "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
