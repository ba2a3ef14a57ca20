package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Varun5711/shortbox/internal/analytics"
	"github.com/Varun5711/shortbox/internal/logger"
	"github.com/Varun5711/shortbox/internal/models"
	"github.com/go-chi/chi/v5"
)

type StatsService interface {
	GetStats(ctx context.Context, kind models.Kind, code string, days int) (*analytics.Stats, error)
}

// StatsHandler reports resolution statistics for one entry.
type StatsHandler struct {
	stats StatsService
	log   *logger.Logger
}

func NewStatsHandler(stats StatsService, log *logger.Logger) *StatsHandler {
	return &StatsHandler{stats: stats, log: log}
}

func (h *StatsHandler) Register(r chi.Router) {
	r.Get("/api/stats/{kind}/{code}", h.GetStats)
}

func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	kind := models.Kind(chi.URLParam(r, "kind"))
	switch kind {
	case models.KindRedirect, models.KindList, models.KindClip:
	default:
		respondError(w, http.StatusBadRequest, "invalid_kind", "kind must be one of redirect, list, clip")
		return
	}

	days := 30
	if daysParam := r.URL.Query().Get("days"); daysParam != "" {
		if d, err := strconv.Atoi(daysParam); err == nil && d > 0 && d <= 366 {
			days = d
		}
	}

	stats, err := h.stats.GetStats(r.Context(), kind, chi.URLParam(r, "code"), days)
	if err != nil {
		h.log.Error("Failed to get stats: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load stats")
		return
	}

	respondJSON(w, http.StatusOK, stats)
}
