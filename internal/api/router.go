// Package api exposes the price-history query surface over HTTP.
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/byteball/perp-stats/internal/domain"
	"github.com/byteball/perp-stats/internal/storage"
)

// Handler serves the weekly/monthly price series queries.
type Handler struct {
	snapshots storage.SnapshotStore
	logger    *log.Logger
}

// NewHandler creates a new API handler.
func NewHandler(snapshots storage.SnapshotStore, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{snapshots: snapshots, logger: logger}
}

// Router builds the chi router with all API routes.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", h.handleHealth)
	r.Get("/api/lastWeek", h.handleLastWeek)
	r.Get("/api/lastMonth", h.handleLastMonth)

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// handleLastWeek returns the asset's price series since the start of
// day seven days ago, shifted by the client's tzOffset in minutes.
func (h *Handler) handleLastWeek(w http.ResponseWriter, r *http.Request) {
	asset := r.URL.Query().Get("asset")
	if asset == "" {
		http.Error(w, "asset is required", http.StatusBadRequest)
		return
	}

	tzOffset := 0
	if raw := r.URL.Query().Get("tzOffset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "tzOffset must be an integer", http.StatusBadRequest)
			return
		}
		tzOffset = parsed
	}

	samples, err := h.snapshots.GetLastWeek(r.Context(), asset, tzOffset)
	if err != nil {
		h.logger.Printf("[api] lastWeek query for %s failed: %v", asset, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.writeSeries(w, samples)
}

// handleLastMonth returns one point per calendar day over the last 30
// days: the earliest sample of each day.
func (h *Handler) handleLastMonth(w http.ResponseWriter, r *http.Request) {
	asset := r.URL.Query().Get("asset")
	if asset == "" {
		http.Error(w, "asset is required", http.StatusBadRequest)
		return
	}

	samples, err := h.snapshots.GetLastMonth(r.Context(), asset)
	if err != nil {
		h.logger.Printf("[api] lastMonth query for %s failed: %v", asset, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.writeSeries(w, samples)
}

// seriesPoint is one point of a price series response.
type seriesPoint struct {
	Timestamp int64   `json:"timestamp"`
	Price     float64 `json:"price"`
}

func (h *Handler) writeSeries(w http.ResponseWriter, samples []*domain.PriceSample) {
	points := make([]seriesPoint, 0, len(samples))
	for _, sample := range samples {
		points = append(points, seriesPoint{Timestamp: sample.Timestamp, Price: sample.Price})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(points); err != nil {
		h.logger.Printf("[api] encode response: %v", err)
	}
}
