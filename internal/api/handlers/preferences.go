package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/suxyu/archgw/internal/catalog"
)

// ListPreferences handles GET /v1/router/preferences.
func (h *Handlers) ListPreferences(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.Catalog.ListPreferences())
}

// UpdatePreferences handles PUT /v1/router/preferences. The batch applies
// atomically: an unknown provider name rejects the whole update.
func (h *Handlers) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var batch []catalog.ModelUsagePreference
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := h.Catalog.UpdatePreferences(batch)
	if err != nil {
		var unknown *catalog.UnknownProviderError
		if errors.As(err, &unknown) {
			log.Warn().Str("name", unknown.Name).Msg("preferences update names unknown provider")
			respondError(w, http.StatusBadRequest, unknown.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if len(updated) == 0 {
		respondError(w, http.StatusNotFound, "Provider not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"updated_models": updated})
}
