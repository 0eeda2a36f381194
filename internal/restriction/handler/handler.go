// Package handler exposes the ban lifecycle over HTTP. Routes are mounted
// under the admin surface; operator authentication is applied by the router.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"warden/internal/restriction/models"
	"warden/internal/restriction/service"
	id "warden/pkg/domain"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/platform/httputil"
)

type Handler struct {
	service *service.Service
	logger  *slog.Logger
}

func New(service *service.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the lifecycle routes on the given router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/users/{userID}/ban", h.ban)
	r.Post("/users/{userID}/unban", h.unban)
	r.Get("/users/{userID}/ban-history", h.banHistory)
}

func (h *Handler) ban(w http.ResponseWriter, r *http.Request) {
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req models.BanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w,
			dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	duration, err := models.ParseBanDuration(req.Duration)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.Ban(r.Context(), userID, req.Reason, duration)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) unban(w http.ResponseWriter, r *http.Request) {
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	// The lift reason is optional; an empty or absent body lifts without one.
	var req models.UnbanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.WriteError(w,
			dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.service.Unban(r.Context(), userID, req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

type banEventResponse struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	Reason     string     `json:"reason"`
	Duration   string     `json:"duration"`
	ImposedAt  time.Time  `json:"imposed_at"`
	LiftedAt   *time.Time `json:"lifted_at,omitempty"`
	Actor      string     `json:"actor,omitempty"`
	LiftReason *string    `json:"lift_reason,omitempty"`
	RecordedAt time.Time  `json:"recorded_at"`
}

type banHistoryResponse struct {
	UserID string             `json:"user_id"`
	Events []banEventResponse `json:"events"`
}

func (h *Handler) banHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	events, err := h.service.History(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	resp := banHistoryResponse{
		UserID: userID.String(),
		Events: make([]banEventResponse, 0, len(events)),
	}
	for _, event := range events {
		resp.Events = append(resp.Events, banEventResponse{
			ID:         event.ID.String(),
			Type:       string(event.Type),
			Reason:     event.Reason,
			Duration:   event.Duration.String(),
			ImposedAt:  event.ImposedAt,
			LiftedAt:   event.LiftedAt,
			Actor:      event.Actor,
			LiftReason: event.LiftReason,
			RecordedAt: event.RecordedAt,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
