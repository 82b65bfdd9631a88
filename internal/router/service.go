package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/suxyu/archgw/internal/catalog"
	"github.com/suxyu/archgw/pkg/openai"
)

// HeaderProviderHint is the header carrying the resolved provider model, read
// by upstreams that dispatch on it.
const HeaderProviderHint = "x-arch-llm-provider-hint"

// routerModelHeader is a fixed sentinel some upstreams use to recognize
// routing traffic.
const routerModelHeader = "arch-router"

// RequestError is a transport failure talking to the router LLM.
type RequestError struct {
	Err error
}

func (e *RequestError) Error() string { return fmt.Sprintf("router request failed: %v", e.Err) }
func (e *RequestError) Unwrap() error { return e.Err }

// JSONError is a router LLM response body that does not parse as a
// chat-completions response. Body carries the offending payload.
type JSONError struct {
	Body string
	Err  error
}

func (e *JSONError) Error() string {
	return fmt.Sprintf("failed to parse router response JSON: %v, body: %s", e.Err, e.Body)
}
func (e *JSONError) Unwrap() error { return e.Err }

// Decision is the resolved (route, model) pair for one request.
type Decision struct {
	Route string
	Model string
}

// Service orchestrates route determination: prompt construction, the router
// LLM call, response parsing, and route → model resolution.
type Service struct {
	catalog         *catalog.Catalog
	routerURL       string
	routingModel    string
	routingProvider string
	client          *http.Client
}

// NewService creates a router service. timeout of zero means no client
// timeout.
func NewService(cat *catalog.Catalog, routerURL, routingModel, routingProvider string, timeout time.Duration) *Service {
	return &Service{
		catalog:         cat,
		routerURL:       routerURL,
		routingModel:    routingModel,
		routingProvider: routingProvider,
		client:          &http.Client{Timeout: timeout},
	}
}

// DetermineRoute classifies the conversation's latest intent against the
// catalog (or the per-request override) and resolves the winning route to a
// provider model. A nil Decision with nil error means no route applies and
// the caller should fall back to the client-supplied model.
func (s *Service) DetermineRoute(ctx context.Context, messages []openai.Message, traceparent string, override []UsagePreferenceOverride) (*Decision, error) {
	if !s.catalog.HasRoutableProviders() {
		return nil, nil
	}

	snap := s.catalog.Snapshot()
	routerRequest := BuildRouterRequest(messages, snap, override, s.routingModel)

	body, err := json.Marshal(routerRequest)
	if err != nil {
		return nil, fmt.Errorf("marshal router request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.routerURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create router request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderProviderHint, s.routingProvider)
	req.Header.Set("model", routerModelHeader)
	if traceparent != "" {
		req.Header.Set("traceparent", traceparent)
	}

	log.Info().
		Str("model", s.routingModel).
		Str("endpoint", s.routerURL).
		Msg("sending request to router model")

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &RequestError{Err: err}
	}
	defer resp.Body.Close()

	// Router responses are small and never streamed; buffer fully.
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RequestError{Err: err}
	}
	latency := time.Since(start)

	var completion openai.ChatCompletionsResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return nil, &JSONError{Body: string(respBody), Err: err}
	}

	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == nil {
		return nil, nil
	}
	content := completion.Choices[0].Message.Content.Flatten()

	log.Info().
		Str("response", strings.ReplaceAll(content, "\n", "\\n")).
		Dur("latency", latency).
		Msg("router model replied")

	route, err := ParseRouterResponse(content)
	if err != nil {
		return nil, err
	}
	if route == "" {
		return nil, nil
	}

	model, ok := ResolveModel(route, override, snap)
	if !ok {
		log.Warn().Str("route", route).Msg("router selected a route with no resolvable model")
		return nil, nil
	}

	return &Decision{Route: route, Model: model}, nil
}
