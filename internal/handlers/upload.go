package handlers

import (
	"errors"
	"net/http"

	"github.com/telegraph-host/media-gateway/internal/ingest"
)

// HandleUpload accepts a multipart upload on the `file` field and responds
// with the canonical URL the content will be served under.
func (h *GatewayHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "missing file field")
		return
	}
	defer file.Close()

	if header.Size > h.cfg.MaxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge,
			(&ingest.PayloadTooLargeError{Limit: h.cfg.MaxUploadBytes}).Error())
		return
	}

	if h.cfg.EnableAuth && !h.authenticate(r) {
		w.Header().Set("WWW-Authenticate", `Basic realm="Upload"`)
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	url, err := h.ingestor.Ingest(r.Context(), ingest.Upload{
		Content:   file,
		Filename:  header.Filename,
		MimeType:  header.Header.Get("Content-Type"),
		SizeBytes: header.Size,
	})
	if err != nil {
		var tooLarge *ingest.PayloadTooLargeError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, tooLarge.Error())
			return
		}
		h.log.WithError(err).Error("Upload failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"data": url})
}
