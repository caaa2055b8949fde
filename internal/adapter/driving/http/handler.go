// Package httphandler exposes the administrative JSON API.
package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/mjoubert/viproster/internal/application"
	"github.com/mjoubert/viproster/internal/domain/port/driven"
)

// Handler holds the dependencies for all administrative API endpoints.
type Handler struct {
	vips   *application.VipService
	roster application.RefreshScheduler
	logger *slog.Logger
}

// NewHandler creates a new Handler with the given dependencies.
func NewHandler(vips *application.VipService, roster application.RefreshScheduler, logger *slog.Logger) *Handler {
	return &Handler{vips: vips, roster: roster, logger: logger}
}

// RegisterAPIRoutes registers all administrative API routes on the given mux.
func RegisterAPIRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /api/v1/vips", h.ListVips)
	mux.HandleFunc("GET /api/v1/vips/{holder}", h.GetVip)
	mux.HandleFunc("POST /api/v1/vips/{holder}/extend", h.ExtendVip)
	mux.HandleFunc("POST /api/v1/vips/{holder}/permanent", h.SetPermanentVip)
	mux.HandleFunc("DELETE /api/v1/vips/{holder}", h.RemoveVip)
	mux.HandleFunc("POST /api/v1/refresh", h.ForceRefresh)
	mux.HandleFunc("GET /api/v1/health", h.Health)
}

// ApplyMiddleware wraps the handler with recovery and request logging.
func ApplyMiddleware(next http.Handler, logger *slog.Logger) http.Handler {
	return recoveryMiddleware(logger, loggingMiddleware(logger, next))
}

// ListVips returns one page of VIP records. Query parameters: page (1-based),
// per_page, and expiring_within_days to restrict to soon-expiring records.
func (h *Handler) ListVips(w http.ResponseWriter, r *http.Request) {
	opts := application.ListOptions{}

	if v := r.URL.Query().Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			writeError(w, http.StatusBadRequest, "page must be a positive integer")
			return
		}
		opts.Page = page
	}

	if v := r.URL.Query().Get("per_page"); v != "" {
		perPage, err := strconv.Atoi(v)
		if err != nil || perPage < 1 {
			writeError(w, http.StatusBadRequest, "per_page must be a positive integer")
			return
		}
		opts.PerPage = perPage
	}

	if v := r.URL.Query().Get("expiring_within_days"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days < 1 {
			writeError(w, http.StatusBadRequest, "expiring_within_days must be a positive integer")
			return
		}
		opts.ExpiringWithin = time.Duration(days) * 24 * time.Hour
	}

	records, total, err := h.vips.List(r.Context(), opts)
	if err != nil {
		h.logger.Error("list vips failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list vip records")
		return
	}

	items := make([]VipResponse, 0, len(records))
	for _, rec := range records {
		items = append(items, toVipResponse(rec))
	}

	writeJSON(w, http.StatusOK, ListVipsResponse{Vips: items, Total: total})
}

// GetVip returns a single VIP record, or 404 when the holder has none.
func (h *Handler) GetVip(w http.ResponseWriter, r *http.Request) {
	holderID := r.PathValue("holder")

	rec, err := h.vips.Get(r.Context(), holderID)
	if err != nil {
		h.logger.Error("get vip failed", "holder", holderID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get vip record")
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "no vip record for holder")
		return
	}

	writeJSON(w, http.StatusOK, toVipResponse(*rec))
}

// ExtendVip adds days to the holder's entitlement, creating it if absent.
func (h *Handler) ExtendVip(w http.ResponseWriter, r *http.Request) {
	holderID := r.PathValue("holder")

	var req ExtendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Days < 1 {
		writeError(w, http.StatusBadRequest, "days must be a positive integer")
		return
	}

	result, err := h.vips.Extend(r.Context(), holderID, req.Days, req.Note)
	if err != nil {
		h.logger.Error("extend vip failed", "holder", holderID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to extend vip")
		return
	}

	resp := ExtendResponse{Holder: holderID, Permanent: result.Permanent}
	if result.ExpiresAt != nil {
		resp.ExpiresAt = result.ExpiresAt.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

// SetPermanentVip makes the holder's entitlement permanent.
func (h *Handler) SetPermanentVip(w http.ResponseWriter, r *http.Request) {
	holderID := r.PathValue("holder")

	var req PermanentRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	if err := h.vips.SetPermanent(r.Context(), holderID, req.Note); err != nil {
		h.logger.Error("set permanent failed", "holder", holderID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to set vip permanent")
		return
	}

	writeJSON(w, http.StatusOK, ExtendResponse{Holder: holderID, Permanent: true})
}

// RemoveVip deletes the record and revokes the role.
func (h *Handler) RemoveVip(w http.ResponseWriter, r *http.Request) {
	holderID := r.PathValue("holder")

	if err := h.vips.Remove(r.Context(), holderID); err != nil {
		if errors.Is(err, driven.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "no vip record for holder")
			return
		}
		h.logger.Error("remove vip failed", "holder", holderID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to remove vip")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ForceRefresh schedules a roster display refresh.
func (h *Handler) ForceRefresh(w http.ResponseWriter, _ *http.Request) {
	h.roster.RequestRefresh("manual refresh")
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refresh scheduled"})
}

// Health reports service liveness.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
