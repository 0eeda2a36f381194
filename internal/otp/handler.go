package otp

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	dErrors "warden/pkg/domain-errors"
	"warden/pkg/platform/httputil"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the password-reset routes on the given router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/password-reset/request", h.request)
	r.Post("/password-reset/confirm", h.confirm)
}

type requestPayload struct {
	Email string `json:"email"`
}

type confirmPayload struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (h *Handler) request(w http.ResponseWriter, r *http.Request) {
	var req requestPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := h.service.Request(r.Context(), req.Email); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	var req confirmPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := h.service.Confirm(r.Context(), req.Email, req.Code); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}
