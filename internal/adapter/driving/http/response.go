package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/mjoubert/viproster/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// VipResponse is the JSON representation of a VIP record.
type VipResponse struct {
	Holder    string   `json:"holder"`
	Permanent bool     `json:"permanent"`
	ExpiresAt string   `json:"expires_at,omitempty"`
	Note      string   `json:"note"`
	Alerts    []string `json:"alerts"`
	UpdatedAt string   `json:"updated_at"`
}

// ListVipsResponse is the paged listing body.
type ListVipsResponse struct {
	Vips  []VipResponse `json:"vips"`
	Total int           `json:"total"`
}

// ExtendRequest is the body of POST /api/v1/vips/{holder}/extend.
type ExtendRequest struct {
	Days int    `json:"days"`
	Note string `json:"note"`
}

// PermanentRequest is the body of POST /api/v1/vips/{holder}/permanent.
type PermanentRequest struct {
	Note string `json:"note"`
}

// ExtendResponse is the body returned by extend and permanent operations.
type ExtendResponse struct {
	Holder    string `json:"holder"`
	Permanent bool   `json:"permanent"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

func toVipResponse(rec model.VipRecord) VipResponse {
	resp := VipResponse{
		Holder:    rec.HolderID,
		Permanent: rec.Permanent,
		Note:      rec.Note,
		Alerts:    alertNames(rec.Alerts),
		UpdatedAt: rec.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if rec.ExpiresAt != nil {
		resp.ExpiresAt = rec.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func alertNames(flags model.AlertFlags) []string {
	names := []string{}
	for _, f := range []struct {
		flag model.AlertFlags
		name string
	}{
		{model.AlertReminder7d, "reminder_7d"},
		{model.AlertReminder3d, "reminder_3d"},
		{model.AlertReminder1d, "reminder_1d"},
		{model.AlertGraceStarted, "grace_started"},
		{model.AlertRevoked, "revoked"},
	} {
		if flags.Has(f.flag) {
			names = append(names, f.name)
		}
	}
	return names
}
