package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/suxyu/archgw/internal/router"
	"github.com/suxyu/archgw/pkg/openai"
)

// metadataPreferenceKey is the request-metadata key carrying the YAML-encoded
// per-request preference override. It is stripped before forwarding upstream.
const metadataPreferenceKey = "archgw_preference_config"

// streamChannelCapacity bounds the number of in-flight frames between the
// upstream reader and the client writer. A slow client stalls upstream reads;
// a stalled upstream starves the client. Neither side buffers unboundedly.
const streamChannelCapacity = 16

// ChatCompletions proxies POST /v1/chat/completions: it classifies the
// conversation's intent, injects the provider hint for the winning route, and
// streams the upstream response back under bounded buffering.
func (h *Handlers) ChatCompletions(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New().String()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		log.Warn().Str("request_id", requestID).Err(err).Msg("malformed chat completions body")
		http.Error(w, "failed to parse request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	var chatRequest openai.ChatCompletionsRequest
	if err := json.Unmarshal(body, &chatRequest); err != nil {
		log.Warn().Str("request_id", requestID).Err(err).Msg("chat completions body has unexpected shape")
		http.Error(w, "failed to parse request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	override, outBody := extractPreferenceOverride(doc)
	traceparent := r.Header.Get("traceparent")

	decision, err := h.Router.DetermineRoute(r.Context(), chatRequest.Messages, traceparent, override)
	if err != nil {
		var parseErr *router.ParseError
		var jsonErr *router.JSONError
		if errors.As(err, &parseErr) || errors.As(err, &jsonErr) {
			// Non-conforming router output degrades to the client's own model.
			log.Warn().Str("request_id", requestID).Err(err).Msg("router response unusable, falling back to request model")
			decision = nil
		} else {
			log.Error().Str("request_id", requestID).Err(err).Msg("failed to determine route")
			http.Error(w, "failed to determine route: "+err.Error(), http.StatusInternalServerError)
			return
		}
	}

	resolvedModel := chatRequest.Model
	if decision != nil {
		resolvedModel = decision.Model
		log.Info().
			Str("request_id", requestID).
			Str("route", decision.Route).
			Str("model", decision.Model).
			Msg("route selected")
	} else {
		log.Debug().Str("request_id", requestID).Str("model", resolvedModel).Msg("no route selected, using request model")
	}

	outHeaders := r.Header.Clone()
	// The body was rewritten; the old length no longer applies.
	outHeaders.Del("Content-Length")
	outHeaders.Set(router.HeaderProviderHint, resolvedModel)
	if traceparent != "" {
		outHeaders.Set("traceparent", traceparent)
	}

	upstreamReq, err := http.NewRequestWithContext(r.Context(), http.MethodPost, h.UpstreamEndpoint, bytes.NewReader(outBody))
	if err != nil {
		http.Error(w, "failed to create upstream request: "+err.Error(), http.StatusInternalServerError)
		return
	}
	upstreamReq.Header = outHeaders

	resp, err := h.Upstream.Do(upstreamReq)
	if err != nil {
		log.Error().Str("request_id", requestID).Err(err).Msg("upstream request failed")
		http.Error(w, "failed to reach llm provider: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer resp.Body.Close()

	for name, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	w.WriteHeader(resp.StatusCode)

	h.relay(r.Context(), w, resp.Body, requestID)
}

// extractPreferenceOverride pulls the preference override out of the request
// metadata and returns the rewritten outbound body with the key stripped. An
// unparsable override is ignored, never a request failure.
func extractPreferenceOverride(doc map[string]any) ([]router.UsagePreferenceOverride, []byte) {
	var override []router.UsagePreferenceOverride

	if meta, ok := doc["metadata"].(map[string]any); ok {
		if raw, ok := meta[metadataPreferenceKey].(string); ok {
			parsed, err := router.ParsePreferenceConfig(raw)
			if err != nil {
				log.Debug().Err(err).Msg("ignoring unparsable preference override in metadata")
			} else {
				override = parsed
			}
		}
		delete(meta, metadataPreferenceKey)
		if len(meta) == 0 {
			delete(doc, "metadata")
		}
	}

	// doc came from json.Unmarshal, re-marshal cannot fail.
	outBody, _ := json.Marshal(doc)
	return override, outBody
}

// relay pipes the upstream body to the client through a bounded channel.
// Frames arrive in source order; a mid-stream upstream error terminates the
// stream cleanly; a client disconnect stops the upstream read.
func (h *Handlers) relay(ctx context.Context, w http.ResponseWriter, upstream io.Reader, requestID string) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	frames := make(chan []byte, streamChannelCapacity)

	go func() {
		defer close(frames)
		buf := make([]byte, 32*1024)
		for {
			n, err := upstream.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				select {
				case frames <- chunk:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				if err != io.EOF {
					log.Warn().Str("request_id", requestID).Err(err).Msg("upstream stream ended with error")
				}
				return
			}
		}
	}()

	flusher, _ := w.(http.Flusher)
	for chunk := range frames {
		if _, err := w.Write(chunk); err != nil {
			log.Debug().Str("request_id", requestID).Err(err).Msg("client went away mid-stream")
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}
