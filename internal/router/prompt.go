// Package router implements the intent-classification subsystem: building the
// router-LLM prompt from a conversation, parsing the router's reply, and the
// service that orchestrates the round trip.
package router

import (
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/suxyu/archgw/internal/catalog"
	"github.com/suxyu/archgw/pkg/openai"
)

// MaxTokenLen bounds the router prompt. Tokens are estimated as chars/4; the
// heuristic under-counts CJK-heavy input, a known limitation.
const MaxTokenLen = 2048

const routerPromptTemplate = `
You are a helpful assistant designed to find the best suited route.
You are provided with route description within <routes></routes> XML tags:
<routes>
{routes}
</routes>

<conversation>
{conversation}
</conversation>

Your task is to decide which route is best suit with user intent on the conversation in <conversation></conversation> XML tags.  Follow the instruction:
1. If the latest intent from user is irrelevant or user intent is full filled, response with other route {"route": "other"}.
2. You must analyze the route descriptions and find the best match route for user latest intent.
3. You only response the name of the route that best matches the user's request, use the exact name in the <routes></routes>.

Based on your analysis, provide your response in the following JSON formats if you decide to match any route:
{"route": "route_name"}
`

const routerTemperature = 0.01

// UsagePreferenceOverride is a per-request replacement for the catalog's
// routing view, carried as a YAML string in metadata.archgw_preference_config.
type UsagePreferenceOverride struct {
	Model              string                    `yaml:"model" json:"model"`
	RoutingPreferences []catalog.RoutePreference `yaml:"routing_preferences" json:"routing_preferences"`
}

// ParsePreferenceConfig decodes the metadata override. Callers treat any
// error as "no override".
func ParsePreferenceConfig(raw string) ([]UsagePreferenceOverride, error) {
	var overrides []UsagePreferenceOverride
	if err := yaml.Unmarshal([]byte(raw), &overrides); err != nil {
		return nil, err
	}
	return overrides, nil
}

// promptMessage is the normalized {role, content} shape embedded in the
// prompt's conversation JSON.
type promptMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// BuildRouterRequest turns a conversation and a catalog snapshot into the
// single-turn chat-completions request sent to the router LLM. The output is a
// pure function of its inputs.
func BuildRouterRequest(messages []openai.Message, snap *catalog.Snapshot, override []UsagePreferenceOverride, routingModel string) openai.ChatCompletionsRequest {
	filtered := filterClassifiable(messages)
	kept := trimToBudget(filtered)

	if len(kept) > 0 {
		if kept[0].Role != openai.RoleUser || kept[len(kept)-1].Role != openai.RoleUser {
			log.Warn().
				Str("first_role", kept[0].Role).
				Str("last_role", kept[len(kept)-1].Role).
				Msg("router prompt conversation does not start or end with a user turn")
		}
	}

	conversation := make([]promptMessage, 0, len(kept))
	for _, m := range kept {
		conversation = append(conversation, promptMessage{
			Role:    m.Role,
			Content: m.Content.Flatten(),
		})
	}
	conversationJSON, _ := json.Marshal(conversation)

	routes := snap.RoutesJSON()
	if len(override) > 0 {
		routes = overrideRoutesJSON(override)
	}

	prompt := strings.Replace(routerPromptTemplate, "{routes}", routes, 1)
	prompt = strings.Replace(prompt, "{conversation}", string(conversationJSON), 1)

	temperature := routerTemperature
	return openai.ChatCompletionsRequest{
		Model:       routingModel,
		Messages:    []openai.Message{openai.UserMessage(prompt)},
		Temperature: &temperature,
		Stream:      false,
	}
}

// filterClassifiable keeps user and assistant turns with non-empty textual
// content. System and tool turns, and assistant turns that only carry tool
// calls, hold no user intent.
func filterClassifiable(messages []openai.Message) []openai.Message {
	var kept []openai.Message
	for _, m := range messages {
		if m.Role != openai.RoleUser && m.Role != openai.RoleAssistant {
			continue
		}
		if m.Content.Flatten() == "" {
			continue
		}
		kept = append(kept, m)
	}
	return kept
}

// trimToBudget walks the filtered conversation newest-first and keeps
// messages while the running chars/4 estimate stays within MaxTokenLen. The
// counter is seeded with the template's own length. A user turn that would
// overflow the budget is kept anyway so the latest user intent always reaches
// the router; anything older is cut.
func trimToBudget(filtered []openai.Message) []openai.Message {
	total := len(routerPromptTemplate) / 4
	var kept []openai.Message

	for i := len(filtered) - 1; i >= 0; i-- {
		m := filtered[i]
		estimate := len(m.Content.Flatten()) / 4
		if total+estimate > MaxTokenLen {
			if m.Role == openai.RoleUser {
				kept = append([]openai.Message{m}, kept...)
			}
			break
		}
		total += estimate
		kept = append([]openai.Message{m}, kept...)
	}

	if len(kept) == 0 && len(filtered) > 0 {
		kept = filtered[len(filtered)-1:]
	}
	return kept
}

func overrideRoutesJSON(override []UsagePreferenceOverride) string {
	var prefs []catalog.RoutePreference
	for _, o := range override {
		prefs = append(prefs, o.RoutingPreferences...)
	}
	if len(prefs) == 0 {
		return "[]"
	}
	data, _ := json.Marshal(prefs)
	return string(data)
}
