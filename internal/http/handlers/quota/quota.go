package quota

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/princekumarofficial/course-media-service/internal/http/middleware"
	"github.com/princekumarofficial/course-media-service/internal/types/quota"
	"github.com/princekumarofficial/course-media-service/internal/utils/response"
)

// Manager reads and updates tenant allowances
type Manager interface {
	Usage(ctx context.Context, tenantID string) ([]quota.Record, error)
	SetQuota(ctx context.Context, tenantID string, class quota.Class, totalBytes int64, expiresAt time.Time) error
}

// UsageReport is the per-class view returned to tenants
type UsageReport struct {
	TenantID string        `json:"tenant_id"`
	Classes  []ClassReport `json:"classes"`
}

type ClassReport struct {
	Class          quota.Class `json:"quota_class"`
	TotalBytes     int64       `json:"total_bytes"`
	UsedBytes      int64       `json:"used_bytes"`
	AvailableBytes int64       `json:"available_bytes"`
	ExpiresAt      time.Time   `json:"expires_at"`
	Expired        bool        `json:"expired"`
}

func report(tenantID string, records []quota.Record, now time.Time) UsageReport {
	r := UsageReport{TenantID: tenantID, Classes: make([]ClassReport, 0, len(records))}
	for _, rec := range records {
		r.Classes = append(r.Classes, ClassReport{
			Class:          rec.Class,
			TotalBytes:     rec.TotalBytes,
			UsedBytes:      rec.UsedBytes,
			AvailableBytes: rec.Available(),
			ExpiresAt:      rec.ExpiresAt,
			Expired:        rec.Expired(now),
		})
	}
	return r
}

// GetUsage handles reading the caller's tenant allowances
// @Summary Get quota usage
// @Description Used and available bytes per quota class for the caller's tenant
// @Tags quota
// @Produce json
// @Success 200 {object} UsageReport "Quota usage"
// @Failure 401 {object} response.Response "Unauthorized"
// @Failure 500 {object} response.Response "Internal server error"
// @Security BearerAuth
// @Router /quota [get]
func GetUsage(manager Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := middleware.GetPrincipalFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		records, err := manager.Usage(r.Context(), p.TenantID)
		if err != nil {
			slog.Error("Failed to load quota usage", slog.String("tenant_id", p.TenantID), slog.String("error", err.Error()))
			response.WriteError(w, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Quota usage retrieved", report(p.TenantID, records, time.Now())))
	}
}

// SetQuota handles upserting a tenant allowance
// @Summary Set a tenant quota
// @Description Create or replace one quota class allowance. Used bytes are kept.
// @Tags admin
// @Accept json
// @Produce json
// @Param tenant path string true "Tenant ID"
// @Param request body quota.SetQuotaRequest true "Allowance"
// @Success 200 {object} response.Response "Quota updated"
// @Failure 400 {object} response.Response "Bad request"
// @Failure 403 {object} response.Response "Admin role required"
// @Security BearerAuth
// @Router /admin/quotas/{tenant} [put]
func SetQuota(manager Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := strings.TrimSpace(r.PathValue("tenant"))
		if tenantID == "" {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("tenant is required")))
			return
		}

		var req quota.SetQuotaRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		if errors.Is(err, io.EOF) {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("request body cannot be empty")))
			return
		}
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		// Accept lower-case class names from scripts
		if class, err := quota.ParseClass(string(req.Class)); err == nil {
			req.Class = class
		}

		if err := validator.New().Struct(req); err != nil {
			var ve validator.ValidationErrors
			if errors.As(err, &ve) {
				response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(ve))
				return
			}
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		if err := manager.SetQuota(r.Context(), tenantID, req.Class, req.TotalBytes, req.ExpiresAt); err != nil {
			slog.Error("Failed to set quota",
				slog.String("tenant_id", tenantID),
				slog.String("quota_class", string(req.Class)),
				slog.String("error", err.Error()))
			response.WriteError(w, err)
			return
		}

		slog.Info("Quota updated",
			slog.String("tenant_id", tenantID),
			slog.String("quota_class", string(req.Class)),
			slog.Int64("total_bytes", req.TotalBytes))

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Quota updated", nil))
	}
}
