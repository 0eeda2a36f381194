// Package handler exposes the temporal query layer over HTTP under the admin
// surface.
package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"warden/internal/analytics/models"
	"warden/internal/analytics/service"
	restriction "warden/internal/restriction/models"
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

// Register mounts the query routes on the given router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/banned-users", h.listBanned)
	r.Route("/stats", func(r chi.Router) {
		r.Get("/new-users", h.newUsers)
		r.Get("/growth", h.growth)
		r.Get("/user-counts", h.userCounts)
		r.Get("/snapshot", h.snapshot)
		r.Get("/retention", h.retention)
	})
}

func (h *Handler) listBanned(w http.ResponseWriter, r *http.Request) {
	var durationFilter *restriction.BanDuration
	if raw := r.URL.Query().Get("duration"); raw != "" {
		duration, err := restriction.ParseBanDuration(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		durationFilter = &duration
	}

	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 20)

	result, err := h.service.ListBanned(r.Context(), durationFilter, page, pageSize)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) newUsers(w http.ResponseWriter, r *http.Request) {
	period, err := models.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	count, err := h.service.CountNewByPeriod(r.Context(), period)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"period": string(period),
		"count":  count,
	})
}

func (h *Handler) growth(w http.ResponseWriter, r *http.Request) {
	growth, err := h.service.GrowthPercentage(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]float64{"growth_percentage": growth})
}

func (h *Handler) userCounts(w http.ResponseWriter, r *http.Request) {
	start, err := queryDate(r, "start")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	end, err := queryDate(r, "end")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	unit, err := models.ParseBucketUnit(r.URL.Query().Get("unit"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	buckets, err := h.service.BucketedCounts(r.Context(), start, end, unit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"unit":    string(unit),
		"buckets": buckets,
	})
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.service.Snapshot(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) retention(w http.ResponseWriter, r *http.Request) {
	cohortStart, err := queryDate(r, "cohort_start")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	cohortEnd, err := queryDate(r, "cohort_end")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	activeStart, err := queryDate(r, "active_start")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	activeEnd, err := queryDate(r, "active_end")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	count, err := h.service.ActiveInPeriod(r.Context(), cohortStart, cohortEnd, activeStart, activeEnd)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int64{"count": count})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func queryDate(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	value, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, dErrors.New(dErrors.CodeInvalidInput, "invalid "+name+" date: expected YYYY-MM-DD")
	}
	return value, nil
}
