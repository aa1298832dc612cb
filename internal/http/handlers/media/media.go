package media

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/princekumarofficial/course-media-service/internal/http/middleware"
	"github.com/princekumarofficial/course-media-service/internal/services/ingest"
	"github.com/princekumarofficial/course-media-service/internal/types/media"
	"github.com/princekumarofficial/course-media-service/internal/utils/response"
)

// Service is the upload coordinator as seen by the HTTP layer
type Service interface {
	Initiate(ctx context.Context, u ingest.Upload) (*ingest.InitiateResult, error)
	Complete(ctx context.Context, mediaID, tenantID string, parts []media.Part) (*media.Record, error)
	Cancel(ctx context.Context, mediaID, tenantID string) error
	Delete(ctx context.Context, mediaID, tenantID string) error
	GetAccessURL(ctx context.Context, mediaID, tenantID string, ttlMinutes int) (*ingest.AccessURL, error)
	Status(ctx context.Context, mediaID, tenantID string) (*ingest.UploadStatus, error)
	RefreshPartURLs(ctx context.Context, mediaID, tenantID string, partNumbers []int) ([]media.PartURL, error)
}

type MediaHandlers struct {
	service  Service
	validate *validator.Validate
}

// NewMediaHandlers creates a new media handlers instance
func NewMediaHandlers(service Service) *MediaHandlers {
	return &MediaHandlers{
		service:  service,
		validate: validator.New(),
	}
}

// decode reads a JSON body into dst and validates it. It writes the error
// response and returns false on failure.
func (h *MediaHandlers) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("request body cannot be empty")))
		return false
	} else if err != nil {
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("invalid request body")))
		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(ve))
			return false
		}
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
		return false
	}
	return true
}

func principal(w http.ResponseWriter, r *http.Request) (middleware.Principal, bool) {
	p, ok := middleware.GetPrincipalFromContext(r.Context())
	if !ok {
		response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
	}
	return p, ok
}

func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, resp := response.FromError(err)
	if status >= http.StatusInternalServerError {
		slog.Error("Media request failed",
			slog.String("operation", op),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
	}
	response.WriteJSON(w, status, resp)
}

// InitiateUpload starts a chunked upload
// @Summary Initiate a multipart upload
// @Description Reserve quota for the declared size and get one presigned PUT URL per part
// @Tags uploads
// @Accept json
// @Produce json
// @Param request body media.InitiateUploadRequest true "File to upload"
// @Success 201 {object} ingest.InitiateResult "Upload initiated"
// @Failure 400 {object} response.Response "Bad request"
// @Failure 401 {object} response.Response "Unauthorized"
// @Failure 413 {object} response.Response "Quota exceeded"
// @Failure 429 {object} response.Response "Rate limit exceeded"
// @Failure 503 {object} response.Response "Object store unavailable"
// @Security BearerAuth
// @Router /media/uploads [post]
func (h *MediaHandlers) InitiateUpload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}

		var req media.InitiateUploadRequest
		if !h.decode(w, r, &req) {
			return
		}

		result, err := h.service.Initiate(r.Context(), ingest.Upload{
			TenantID:     p.TenantID,
			UploaderID:   p.UserID,
			Title:        req.Title,
			Filename:     req.Filename,
			ContentType:  req.ContentType,
			DeclaredSize: req.Size,
			ChunkSize:    req.ChunkSize,
		})
		if err != nil {
			writeServiceError(w, r, "initiate", err)
			return
		}

		response.WriteJSON(w, http.StatusCreated, response.RequestOK("Upload initiated", result))
	}
}

// GetUploadStatus reports the media record and received parts
// @Summary Get upload status
// @Tags uploads
// @Produce json
// @Param id path string true "Media ID"
// @Success 200 {object} ingest.UploadStatus "Upload status"
// @Failure 404 {object} response.Response "Media not found"
// @Security BearerAuth
// @Router /media/uploads/{id} [get]
func (h *MediaHandlers) GetUploadStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}

		status, err := h.service.Status(r.Context(), r.PathValue("id"), p.TenantID)
		if err != nil {
			writeServiceError(w, r, "status", err)
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Upload status retrieved", status))
	}
}

// RefreshPartURLs re-signs part URLs that expired
// @Summary Refresh presigned part URLs
// @Tags uploads
// @Accept json
// @Produce json
// @Param id path string true "Media ID"
// @Param request body media.RefreshPartURLsRequest true "Parts to re-sign"
// @Success 200 {array} media.PartURL "Fresh part URLs"
// @Failure 400 {object} response.Response "Bad request"
// @Failure 404 {object} response.Response "Media or session not found"
// @Failure 409 {object} response.Response "Upload no longer in progress"
// @Security BearerAuth
// @Router /media/uploads/{id}/part-urls [post]
func (h *MediaHandlers) RefreshPartURLs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}

		var req media.RefreshPartURLsRequest
		if !h.decode(w, r, &req) {
			return
		}

		urls, err := h.service.RefreshPartURLs(r.Context(), r.PathValue("id"), p.TenantID, req.PartNumbers)
		if err != nil {
			writeServiceError(w, r, "refresh_part_urls", err)
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Part URLs refreshed", urls))
	}
}

// CompleteUpload finalizes the upload from the client's part list
// @Summary Complete a multipart upload
// @Tags uploads
// @Accept json
// @Produce json
// @Param id path string true "Media ID"
// @Param request body media.CompleteUploadRequest true "Uploaded parts"
// @Success 200 {object} media.Record "Upload completed"
// @Failure 400 {object} response.Response "Bad request"
// @Failure 404 {object} response.Response "Media or session not found"
// @Failure 409 {object} response.Response "Media already terminal"
// @Failure 422 {object} response.Response "Parts missing eTags"
// @Failure 503 {object} response.Response "Object store unavailable"
// @Security BearerAuth
// @Router /media/uploads/{id}/complete [post]
func (h *MediaHandlers) CompleteUpload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}

		var req media.CompleteUploadRequest
		if !h.decode(w, r, &req) {
			return
		}

		rec, err := h.service.Complete(r.Context(), r.PathValue("id"), p.TenantID, req.Parts)
		if err != nil {
			writeServiceError(w, r, "complete", err)
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Upload completed", rec))
	}
}

// CancelUpload aborts an unfinished upload and releases its quota
// @Summary Cancel an upload
// @Tags uploads
// @Param id path string true "Media ID"
// @Success 204 "Upload cancelled"
// @Failure 404 {object} response.Response "Media not found"
// @Failure 409 {object} response.Response "Media already completed"
// @Failure 503 {object} response.Response "Object store unavailable"
// @Security BearerAuth
// @Router /media/uploads/{id} [delete]
func (h *MediaHandlers) CancelUpload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}

		if err := h.service.Cancel(r.Context(), r.PathValue("id"), p.TenantID); err != nil {
			writeServiceError(w, r, "cancel", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// DeleteMedia removes completed media and releases its quota
// @Summary Delete completed media
// @Tags media
// @Param id path string true "Media ID"
// @Success 204 "Media deleted"
// @Failure 404 {object} response.Response "Media not found"
// @Failure 409 {object} response.Response "Media not completed"
// @Failure 503 {object} response.Response "Object store unavailable"
// @Security BearerAuth
// @Router /media/{id} [delete]
func (h *MediaHandlers) DeleteMedia() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}

		if err := h.service.Delete(r.Context(), r.PathValue("id"), p.TenantID); err != nil {
			writeServiceError(w, r, "delete", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// GetAccessURL creates a presigned download link
// @Summary Get a download URL
// @Tags media
// @Produce json
// @Param id path string true "Media ID"
// @Param ttl_minutes query int false "Link lifetime in minutes (default 60, max 10080)"
// @Success 200 {object} ingest.AccessURL "Download URL"
// @Failure 400 {object} response.Response "Bad request"
// @Failure 404 {object} response.Response "Media not found"
// @Failure 409 {object} response.Response "Media not ready"
// @Security BearerAuth
// @Router /media/{id}/access-url [get]
func (h *MediaHandlers) GetAccessURL() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}

		ttlMinutes := 0
		if raw := r.URL.Query().Get("ttl_minutes"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("ttl_minutes must be an integer")))
				return
			}
			ttlMinutes = n
		}

		access, err := h.service.GetAccessURL(r.Context(), r.PathValue("id"), p.TenantID, ttlMinutes)
		if err != nil {
			writeServiceError(w, r, "access_url", err)
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Access URL generated", access))
	}
}
