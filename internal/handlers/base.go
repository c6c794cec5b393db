package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/telegraph-host/media-gateway/internal/cache"
	"github.com/telegraph-host/media-gateway/internal/config"
	"github.com/telegraph-host/media-gateway/internal/ingest"
	"github.com/telegraph-host/media-gateway/internal/retrieval"
	"github.com/telegraph-host/media-gateway/internal/store"
	"github.com/telegraph-host/media-gateway/internal/telemetry"
)

type GatewayHandler struct {
	cfg      *config.Config
	store    *store.Store
	cache    cache.Cache
	ingestor *ingest.Service
	resolver *retrieval.Resolver
	sampler  *telemetry.Sampler
	log      *logrus.Entry
}

func NewGatewayHandler(
	logger *logrus.Logger,
	cfg *config.Config,
	st *store.Store,
	c cache.Cache,
	ingestor *ingest.Service,
	resolver *retrieval.Resolver,
	sampler *telemetry.Sampler,
) *GatewayHandler {
	return &GatewayHandler{
		cfg:      cfg,
		store:    st,
		cache:    c,
		ingestor: ingestor,
		resolver: resolver,
		sampler:  sampler,
		log:      logger.WithField("component", "gateway_handler"),
	}
}

func (h *GatewayHandler) authenticate(r *http.Request) bool {
	username, password, ok := r.BasicAuth()
	if !ok {
		return false
	}
	return username == h.cfg.AuthUsername && password == h.cfg.AuthPassword
}

func (h *GatewayHandler) requireAuth(w http.ResponseWriter, r *http.Request) bool {
	if h.authenticate(r) {
		return true
	}
	w.Header().Set("WWW-Authenticate", `Basic realm="Admin"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
	return false
}

func HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
