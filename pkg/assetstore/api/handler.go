package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/msmehub/assetstore/pkg/assetstore"
)

// Handler handles HTTP requests for the asset store
type Handler struct {
	service assetstore.Service
}

// NewHandler creates a new asset store handler
func NewHandler(service assetstore.Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the routes for the asset store
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/assets", h.StoreAsset)
	r.Get("/assets/{id}", h.GetAsset)

	r.Post("/assets/chunked", h.BeginChunkedAsset)
	r.Get("/assets/chunked/{id}", h.GetChunkedAssetInfo)
	r.Post("/assets/chunked/{id}/chunks", h.UploadChunk)
	r.Post("/assets/chunked/{id}/finalize", h.FinalizeChunkedAsset)
	r.Delete("/assets/chunked/{id}", h.AbortChunkedAsset)

	r.Get("/chunks/{id}", h.GetChunk)

	r.Post("/admin/sweep", h.SweepExpiredSessions)

	return r
}

// StoreAssetRequest is the request body for the single-call store path
type StoreAssetRequest struct {
	ContentType string                `json:"content_type"`
	Data        []byte                `json:"data"`
	Entity      *assetstore.EntityRef `json:"entity,omitempty"`
}

// BeginChunkedAssetRequest is the request body for opening a session
type BeginChunkedAssetRequest struct {
	ContentType string                `json:"content_type"`
	TotalSize   int64                 `json:"total_size"`
	Entity      *assetstore.EntityRef `json:"entity,omitempty"`
}

// UploadChunkRequest is the request body for appending a chunk
type UploadChunkRequest struct {
	Seq  int    `json:"seq"`
	Data []byte `json:"data"`
}

// FinalizeRequest is the request body for sealing a session
type FinalizeRequest struct {
	ExpectedSize int64  `json:"expected_size"`
	Checksum     string `json:"checksum,omitempty"`
}

// SweepRequest is the request body for an expiry sweep
type SweepRequest struct {
	OlderThanSeconds int64 `json:"older_than_seconds"`
}

// ChunkedAssetResponse is the response body for a chunked asset header
type ChunkedAssetResponse struct {
	ID          uuid.UUID             `json:"id"`
	ContentType string                `json:"content_type"`
	Owner       uuid.UUID             `json:"owner"`
	ChunkIDs    []uuid.UUID           `json:"chunk_ids"`
	TotalSize   int64                 `json:"total_size"`
	StoredSize  int64                 `json:"stored_size"`
	Sealed      bool                  `json:"sealed"`
	Checksum    string                `json:"checksum,omitempty"`
	Entity      *assetstore.EntityRef `json:"entity,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
}

func chunkedAssetResponse(asset *assetstore.ChunkedAsset) ChunkedAssetResponse {
	return ChunkedAssetResponse{
		ID:          asset.ID,
		ContentType: asset.ContentType,
		Owner:       asset.Owner,
		ChunkIDs:    asset.ChunkIDs,
		TotalSize:   asset.TotalSize,
		StoredSize:  asset.StoredSize,
		Sealed:      asset.Sealed,
		Checksum:    asset.Checksum,
		Entity:      asset.Entity,
		CreatedAt:   asset.CreatedAt,
	}
}

func (h *Handler) StoreAsset(w http.ResponseWriter, r *http.Request) {
	caller, err := PrincipalFromRequest(r)
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, err)
		return
	}

	var req StoreAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	asset, err := h.service.StoreAsset(r.Context(), assetstore.StoreAssetRequest{
		Caller:      caller,
		ContentType: req.ContentType,
		Data:        req.Data,
		Entity:      req.Entity,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]interface{}{
		"id":           asset.ID,
		"content_type": asset.ContentType,
		"owner":        asset.Owner,
		"size":         len(asset.Data),
		"created_at":   asset.CreatedAt,
	})
}

func (h *Handler) GetAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	asset, err := h.service.GetAsset(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if asset == nil {
		writeError(w, r, http.StatusNotFound, assetstore.ErrAssetNotFound)
		return
	}

	render.JSON(w, r, asset)
}

func (h *Handler) BeginChunkedAsset(w http.ResponseWriter, r *http.Request) {
	caller, err := PrincipalFromRequest(r)
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, err)
		return
	}

	var req BeginChunkedAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	asset, err := h.service.BeginChunkedAsset(r.Context(), assetstore.BeginChunkedAssetRequest{
		Caller:      caller,
		ContentType: req.ContentType,
		TotalSize:   req.TotalSize,
		Entity:      req.Entity,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, chunkedAssetResponse(asset))
}

func (h *Handler) GetChunkedAssetInfo(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	asset, err := h.service.GetChunkedAssetInfo(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if asset == nil {
		writeError(w, r, http.StatusNotFound, assetstore.ErrAssetNotFound)
		return
	}

	render.JSON(w, r, chunkedAssetResponse(asset))
}

func (h *Handler) UploadChunk(w http.ResponseWriter, r *http.Request) {
	caller, err := PrincipalFromRequest(r)
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, err)
		return
	}

	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req UploadChunkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	chunkID, err := h.service.UploadChunk(r.Context(), assetstore.UploadChunkRequest{
		Caller:  caller,
		AssetID: id,
		Seq:     req.Seq,
		Data:    req.Data,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]interface{}{"chunk_id": chunkID})
}

func (h *Handler) FinalizeChunkedAsset(w http.ResponseWriter, r *http.Request) {
	caller, err := PrincipalFromRequest(r)
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, err)
		return
	}

	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req FinalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	asset, err := h.service.FinalizeChunkedAsset(r.Context(), assetstore.FinalizeChunkedAssetRequest{
		Caller:       caller,
		AssetID:      id,
		ExpectedSize: req.ExpectedSize,
		Checksum:     req.Checksum,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	render.JSON(w, r, chunkedAssetResponse(asset))
}

func (h *Handler) AbortChunkedAsset(w http.ResponseWriter, r *http.Request) {
	caller, err := PrincipalFromRequest(r)
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, err)
		return
	}

	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.service.AbortChunkedAsset(r.Context(), assetstore.AbortChunkedAssetRequest{
		Caller:  caller,
		AssetID: id,
	}); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetChunk(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	data, err := h.service.GetChunk(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if data == nil {
		writeError(w, r, http.StatusNotFound, assetstore.ErrChunkNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(data)
}

func (h *Handler) SweepExpiredSessions(w http.ResponseWriter, r *http.Request) {
	if _, err := PrincipalFromRequest(r); err != nil {
		writeError(w, r, http.StatusUnauthorized, err)
		return
	}

	var req SweepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if req.OlderThanSeconds <= 0 {
		writeError(w, r, http.StatusBadRequest, errors.New("older_than_seconds must be positive"))
		return
	}

	swept, err := h.service.SweepExpiredSessions(r.Context(), time.Duration(req.OlderThanSeconds)*time.Second)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{"swept": swept})
}

// Helpers

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, errors.New("invalid id"))
		return uuid.Nil, false
	}
	return id, true
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": err.Error()})
}

// writeServiceError maps service errors onto HTTP status codes
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, assetstore.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, assetstore.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, assetstore.ErrAssetNotFound), errors.Is(err, assetstore.ErrChunkNotFound):
		status = http.StatusNotFound
	case errors.Is(err, assetstore.ErrSessionSealed):
		status = http.StatusConflict
	case errors.Is(err, assetstore.ErrStorageFull):
		status = http.StatusInsufficientStorage
	}

	if status == http.StatusInternalServerError {
		slog.Error("asset store request failed", "path", r.URL.Path, "error", err)
	}

	writeError(w, r, status, err)
}
