package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/telegraph-host/media-gateway/internal/blob"
	"github.com/telegraph-host/media-gateway/internal/retrieval"
)

// HandleMedia serves a canonical URL: edge cache first, backend on miss.
// Telemetry is recorded after the response bytes are written and never
// delays or fails the response.
func (h *GatewayHandler) HandleMedia(w http.ResponseWriter, r *http.Request) {
	if !strings.Contains(strings.TrimPrefix(r.URL.Path, "/"), ".") {
		http.NotFound(w, r)
		return
	}

	url := fmt.Sprintf("https://%s%s", h.cfg.Domain, r.URL.Path)

	entry, outcome, err := h.resolver.Retrieve(r.Context(), url)
	if err != nil {
		switch {
		case errors.Is(err, retrieval.ErrNotFound), errors.Is(err, blob.ErrLocationMissing):
			http.NotFound(w, r)
		default:
			h.log.WithError(err).WithField("url", url).Error("Retrieval failed")
			http.Error(w, "Failed to fetch content", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", entry.ContentType)
	w.Header().Set("Cache-Control", entry.CacheControl)
	w.Header().Set("Content-Length", fmt.Sprint(len(entry.Body)))
	w.Header().Set("X-Cache", strings.ToUpper(string(outcome)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(entry.Body); err != nil {
		h.log.WithFields(logrus.Fields{
			"url":   url,
			"error": err,
		}).Debug("Client went away mid-response")
	}

	h.sampler.RecordAccess(url)
}
