package router

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/suxyu/archgw/internal/catalog"
)

// routeOther is the sentinel the router LLM answers when no route applies.
const routeOther = "other"

// ParseError reports router LLM output that survived lexical cleanup but
// still failed to parse as JSON. Cleaned carries the post-cleanup string for
// diagnostics.
type ParseError struct {
	Cleaned string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse router response %q: %v", e.Cleaned, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseRouterResponse extracts the selected route name from the router LLM's
// textual reply. An empty return with nil error means no route was selected.
func ParseRouterResponse(content string) (string, error) {
	if content == "" {
		return "", nil
	}

	cleaned := fixJSONResponse(content)

	var reply struct {
		Route *string `json:"route"`
	}
	if err := json.Unmarshal([]byte(cleaned), &reply); err != nil {
		return "", &ParseError{Cleaned: cleaned, Err: err}
	}

	if reply.Route == nil || *reply.Route == "" || *reply.Route == routeOther {
		return "", nil
	}
	return *reply.Route, nil
}

// fixJSONResponse applies lexical fixes for the JSON dialects the router LLM
// is known to emit. The fixes are order-dependent: quote swap before fence
// stripping.
func fixJSONResponse(body string) string {
	body = strings.ReplaceAll(body, "'", `"`)
	body = strings.ReplaceAll(body, `\n`, "")
	body = strings.TrimPrefix(body, "```json")
	body = strings.TrimSuffix(body, "```")
	return body
}

// ResolveModel maps a route name to the provider model to send upstream. When
// an override is in effect it replaces the catalog view entirely: only its
// entries are consulted.
func ResolveModel(route string, override []UsagePreferenceOverride, snap *catalog.Snapshot) (string, bool) {
	if len(override) > 0 {
		for _, o := range override {
			for _, pref := range o.RoutingPreferences {
				if pref.Name == route {
					return o.Model, true
				}
			}
		}
		return "", false
	}
	return snap.ModelFor(route)
}
