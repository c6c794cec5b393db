package handlers

import (
	"encoding/json"
	"math"
	"net/http"
)

// HandleDeleteMedia removes mapping rows for the posted URLs and invalidates
// their edge-cache entries. Dropping only the rows would leave deleted
// content servable until natural eviction, so both layers go together.
func (h *GatewayHandler) HandleDeleteMedia(w http.ResponseWriter, r *http.Request) {
	if !h.requireAuth(w, r) {
		return
	}

	var urls []string
	if err := json.NewDecoder(r.Body).Decode(&urls); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if len(urls) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "nothing to delete"})
		return
	}

	if err := h.store.DeleteMedia(r.Context(), urls); err != nil {
		h.log.WithError(err).Error("Media deletion failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	for _, url := range urls {
		if err := h.cache.Invalidate(r.Context(), url); err != nil {
			h.log.WithError(err).WithField("url", url).Warn("Cache invalidation failed")
		}
	}

	h.log.WithField("count", len(urls)).Info("Deleted media")
	writeJSON(w, http.StatusOK, map[string]string{"message": "Deleted"})
}

// HandleAdminStats reports dashboard aggregates. Sampled accumulators are
// rounded for display; the stored values stay fractional.
func (h *GatewayHandler) HandleAdminStats(w http.ResponseWriter, r *http.Request) {
	if !h.requireAuth(w, r) {
		return
	}

	stats, err := h.store.DashboardStats(r.Context())
	if err != nil {
		h.log.WithError(err).Error("Dashboard stats query failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	type dailyRow struct {
		Date      string  `json:"date"`
		Requests  int64   `json:"requests"`
		Bandwidth float64 `json:"bandwidth"`
		Visitors  int64   `json:"visitors"`
	}
	daily := make([]dailyRow, 0, len(stats.Daily))
	for _, d := range stats.Daily {
		daily = append(daily, dailyRow{
			Date:      d.Date,
			Requests:  int64(math.Round(d.Requests)),
			Bandwidth: d.Bandwidth,
			Visitors:  int64(math.Round(d.Visitors)),
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"file_count":  stats.FileCount,
		"total_size":  stats.TotalSize,
		"total_views": int64(math.Round(stats.TotalViews)),
		"daily":       daily,
	})
}

// HandleAdminMedia lists recent uploads. Backend object ids stay internal.
func (h *GatewayHandler) HandleAdminMedia(w http.ResponseWriter, r *http.Request) {
	if !h.requireAuth(w, r) {
		return
	}

	media, err := h.store.RecentMedia(r.Context(), 100)
	if err != nil {
		h.log.WithError(err).Error("Media listing query failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	type mediaRow struct {
		URL       string `json:"url"`
		SizeBytes int64  `json:"size_bytes"`
		Views     int64  `json:"views"`
	}
	rows := make([]mediaRow, 0, len(media))
	for _, m := range media {
		rows = append(rows, mediaRow{
			URL:       m.URL,
			SizeBytes: m.SizeBytes,
			Views:     int64(math.Round(m.Views)),
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"media": rows})
}
