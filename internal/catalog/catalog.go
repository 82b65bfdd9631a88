// Package catalog maintains the gateway's provider catalog and the routing
// views derived from it.
//
// Two views are kept: the JSON route-preference list embedded into the router
// prompt, and the route-name → provider-model map used after classification.
// Writers (the preferences endpoint) rebuild both views and publish a fresh
// immutable snapshot; readers grab the current snapshot pointer and never
// block each other.
package catalog

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// Provider is one configured upstream model binding. A provider with a
// non-empty Usage is routable: its Name is the route name the router LLM is
// expected to emit and Usage is the route description.
type Provider struct {
	Name  string `json:"name" yaml:"name"`
	Model string `json:"model,omitempty" yaml:"model,omitempty"`
	Usage string `json:"usage,omitempty" yaml:"usage,omitempty"`
}

// RoutePreference is the {name, description} pair serialized into the router
// prompt for every routable provider.
type RoutePreference struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// ModelUsagePreference is the preferences-endpoint record shape.
type ModelUsagePreference struct {
	Name  string `json:"name"`
	Model string `json:"model"`
	Usage string `json:"usage,omitempty"`
}

// UnknownProviderError reports a preferences update naming a provider that is
// not configured. The whole batch is rejected.
type UnknownProviderError struct {
	Name string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("model not found: %s", e.Name)
}

// Snapshot is an immutable view of the catalog at an instant. It is safe to
// share across goroutines and cheap to hold for the duration of a request.
type Snapshot struct {
	routesJSON  string
	routeModels map[string]string
	providers   []Provider
}

// RoutesJSON returns the JSON array of route preferences for the prompt.
func (s *Snapshot) RoutesJSON() string { return s.routesJSON }

// ModelFor resolves a route name to its provider model. The second return is
// false when the route is unknown or the provider carries no model.
func (s *Snapshot) ModelFor(route string) (string, bool) {
	model, ok := s.routeModels[route]
	if !ok || model == "" {
		return "", false
	}
	return model, true
}

// HasRoutableProviders reports whether any provider carries a usage.
func (s *Snapshot) HasRoutableProviders() bool {
	return len(s.routeModels) > 0
}

// Providers returns the configured providers in configuration order.
func (s *Snapshot) Providers() []Provider { return s.providers }

// Catalog is the shared provider catalog. All reads go through Snapshot();
// the write lock is held only to publish a rebuilt snapshot.
type Catalog struct {
	mu   sync.RWMutex
	snap *Snapshot
}

// New builds a catalog from the configured providers.
func New(providers []Provider) *Catalog {
	snap := buildSnapshot(providers)

	log.Debug().
		Str("routes", strings.ReplaceAll(snap.routesJSON, "\n", "\\n")).
		Msg("provider catalog built")

	return &Catalog{snap: snap}
}

// Snapshot returns the current immutable catalog view.
func (c *Catalog) Snapshot() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// HasRoutableProviders reports whether any configured provider has a usage.
func (c *Catalog) HasRoutableProviders() bool {
	return c.Snapshot().HasRoutableProviders()
}

// ListPreferences returns every provider as a preferences record.
func (c *Catalog) ListPreferences() []ModelUsagePreference {
	snap := c.Snapshot()
	prefs := make([]ModelUsagePreference, 0, len(snap.providers))
	for _, p := range snap.providers {
		prefs = append(prefs, ModelUsagePreference{
			Name:  p.Name,
			Model: p.Model,
			Usage: p.Usage,
		})
	}
	return prefs
}

// UpdatePreferences replaces the usage text of every named provider and
// publishes a rebuilt snapshot. The batch is validated up front: an unknown
// provider name rejects the whole update with *UnknownProviderError and the
// catalog is left untouched. Provider models are not modified here.
func (c *Catalog) UpdatePreferences(batch []ModelUsagePreference) ([]ModelUsagePreference, error) {
	byName := make(map[string]ModelUsagePreference, len(batch))
	for _, pref := range batch {
		byName[pref.Name] = pref
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	known := make(map[string]bool, len(c.snap.providers))
	for _, p := range c.snap.providers {
		known[p.Name] = true
	}
	for name := range byName {
		if !known[name] {
			return nil, &UnknownProviderError{Name: name}
		}
	}

	providers := make([]Provider, len(c.snap.providers))
	copy(providers, c.snap.providers)

	var updated []ModelUsagePreference
	for i := range providers {
		pref, ok := byName[providers[i].Name]
		if !ok {
			continue
		}
		providers[i].Usage = pref.Usage
		updated = append(updated, ModelUsagePreference{
			Name:  providers[i].Name,
			Model: providers[i].Model,
			Usage: providers[i].Usage,
		})
	}

	c.snap = buildSnapshot(providers)

	log.Info().Int("updated", len(updated)).Msg("usage preferences updated")
	return updated, nil
}

func buildSnapshot(providers []Provider) *Snapshot {
	owned := make([]Provider, len(providers))
	copy(owned, providers)

	var prefs []RoutePreference
	routeModels := make(map[string]string)
	for _, p := range owned {
		if p.Usage == "" {
			continue
		}
		prefs = append(prefs, RoutePreference{Name: p.Name, Description: p.Usage})
		routeModels[p.Name] = p.Model
	}

	routesJSON := "[]"
	if len(prefs) > 0 {
		// Marshal of plain structs cannot fail.
		data, _ := json.Marshal(prefs)
		routesJSON = string(data)
	}

	return &Snapshot{
		routesJSON:  routesJSON,
		routeModels: routeModels,
		providers:   owned,
	}
}
