// Package handlers implements the gateway's HTTP handlers: the chat
// completions proxy pipeline, the preferences endpoints, and the models
// listing.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/suxyu/archgw/internal/catalog"
	"github.com/suxyu/archgw/internal/router"
)

// Handlers holds all handler dependencies.
type Handlers struct {
	Catalog *catalog.Catalog
	Router  *router.Service

	// UpstreamEndpoint is the chat-completions URL every proxied request is
	// forwarded to.
	UpstreamEndpoint string

	// Upstream is shared across requests and keeps its own connection pool.
	Upstream *http.Client

	startedAt time.Time
}

// New creates a Handlers instance. upstreamTimeout of zero disables the
// client timeout, which long streaming responses require.
func New(cat *catalog.Catalog, rs *router.Service, upstreamEndpoint string, upstreamTimeout time.Duration) *Handlers {
	return &Handlers{
		Catalog:          cat,
		Router:           rs,
		UpstreamEndpoint: upstreamEndpoint,
		Upstream:         &http.Client{Timeout: upstreamTimeout},
		startedAt:        time.Now().UTC(),
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
