package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

func RegisterRoutes(r *mux.Router, h *GatewayHandler) {
	r.HandleFunc("/healthz", HandleHealth).Methods(http.MethodGet)
	r.HandleFunc("/upload", h.HandleUpload).Methods(http.MethodPost)
	r.HandleFunc("/delete-images", h.HandleDeleteMedia).Methods(http.MethodPost)
	r.HandleFunc("/admin/stats", h.HandleAdminStats).Methods(http.MethodGet)
	r.HandleFunc("/admin/media", h.HandleAdminMedia).Methods(http.MethodGet)
	r.PathPrefix("/").HandlerFunc(h.HandleMedia).Methods(http.MethodGet)
}
