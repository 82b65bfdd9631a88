package handlers

import (
	"net/http"

	"github.com/suxyu/archgw/pkg/openai"
)

// ListModels handles GET /v1/models with an OpenAI-style list object
// enumerating the configured providers.
func (h *Handlers) ListModels(w http.ResponseWriter, r *http.Request) {
	providers := h.Catalog.Snapshot().Providers()

	list := openai.ModelList{Object: "list", Data: make([]openai.Model, 0, len(providers))}
	for _, p := range providers {
		list.Data = append(list.Data, openai.Model{
			ID:      p.Name,
			Object:  "model",
			Created: h.startedAt.Unix(),
			OwnedBy: "archgw",
		})
	}
	respondJSON(w, http.StatusOK, list)
}

// ModelsPreflight handles OPTIONS /v1/models for browser clients.
func (h *Handlers) ModelsPreflight(w http.ResponseWriter, r *http.Request) {
	header := w.Header()
	header.Set("Allow", "GET, POST, OPTIONS")
	header.Set("Access-Control-Allow-Origin", "*")
	header.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	header.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
	header.Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNoContent)
}
