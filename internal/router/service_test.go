package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/suxyu/archgw/internal/catalog"
	"github.com/suxyu/archgw/pkg/openai"
)

func routerReply(route string) string {
	return fmt.Sprintf(`{"choices":[{"index":0,"message":{"role":"assistant","content":"{\"route\": \"%s\"}"}}]}`, route)
}

func TestDetermineRouteFastPathWithoutUsage(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer ts.Close()

	cat := catalog.New([]catalog.Provider{{Name: "chat", Model: "gpt-4o"}})
	svc := NewService(cat, ts.URL, "Arch-Router", "arch-router", 5*time.Second)

	decision, err := svc.DetermineRoute(context.Background(), []openai.Message{openai.UserMessage("hi")}, "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision != nil {
		t.Errorf("decision = %+v, want nil", decision)
	}
	if calls.Load() != 0 {
		t.Errorf("router LLM was called %d times on the fast path", calls.Load())
	}
}

func TestDetermineRouteSuccess(t *testing.T) {
	var gotHint, gotModel, gotTraceparent string
	var gotRequest openai.ChatCompletionsRequest

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHint = r.Header.Get(HeaderProviderHint)
		gotModel = r.Header.Get("model")
		gotTraceparent = r.Header.Get("traceparent")
		if err := json.NewDecoder(r.Body).Decode(&gotRequest); err != nil {
			t.Errorf("router request body did not decode: %v", err)
		}
		fmt.Fprint(w, routerReply("code-gen"))
	}))
	defer ts.Close()

	cat := catalog.New([]catalog.Provider{
		{Name: "code-gen", Model: "claude-3-7-sonnet", Usage: "coding tasks"},
		{Name: "chat", Model: "gpt-4o", Usage: "general chat"},
	})
	svc := NewService(cat, ts.URL, "Arch-Router", "arch-router", 5*time.Second)

	traceparent := "00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01"
	decision, err := svc.DetermineRoute(context.Background(), []openai.Message{openai.UserMessage("write a python quicksort")}, traceparent, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision == nil || decision.Route != "code-gen" || decision.Model != "claude-3-7-sonnet" {
		t.Fatalf("decision = %+v, want {code-gen claude-3-7-sonnet}", decision)
	}

	if gotHint != "arch-router" {
		t.Errorf("%s = %q, want arch-router", HeaderProviderHint, gotHint)
	}
	if gotModel != "arch-router" {
		t.Errorf("model header = %q, want arch-router", gotModel)
	}
	if gotTraceparent != traceparent {
		t.Errorf("traceparent = %q, want %q", gotTraceparent, traceparent)
	}
	if gotRequest.Model != "Arch-Router" {
		t.Errorf("router request model = %q, want Arch-Router", gotRequest.Model)
	}
	if gotRequest.Stream {
		t.Error("router request must not be streamed")
	}
}

func TestDetermineRouteOtherFallsBack(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, routerReply("other"))
	}))
	defer ts.Close()

	cat := catalog.New([]catalog.Provider{{Name: "chat", Model: "gpt-4o", Usage: "general chat"}})
	svc := NewService(cat, ts.URL, "Arch-Router", "arch-router", 5*time.Second)

	decision, err := svc.DetermineRoute(context.Background(), []openai.Message{openai.UserMessage("thanks, bye")}, "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision != nil {
		t.Errorf("decision = %+v, want nil for the other sentinel", decision)
	}
}

func TestDetermineRouteEmptyChoices(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer ts.Close()

	cat := catalog.New([]catalog.Provider{{Name: "chat", Model: "gpt-4o", Usage: "general chat"}})
	svc := NewService(cat, ts.URL, "Arch-Router", "arch-router", 5*time.Second)

	decision, err := svc.DetermineRoute(context.Background(), []openai.Message{openai.UserMessage("hi")}, "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision != nil {
		t.Errorf("decision = %+v, want nil", decision)
	}
}

func TestDetermineRouteBadCompletionJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "upstream exploded")
	}))
	defer ts.Close()

	cat := catalog.New([]catalog.Provider{{Name: "chat", Model: "gpt-4o", Usage: "general chat"}})
	svc := NewService(cat, ts.URL, "Arch-Router", "arch-router", 5*time.Second)

	_, err := svc.DetermineRoute(context.Background(), []openai.Message{openai.UserMessage("hi")}, "", nil)
	var jsonErr *JSONError
	if !errors.As(err, &jsonErr) {
		t.Fatalf("error = %v (%T), want *JSONError", err, err)
	}
	if jsonErr.Body != "upstream exploded" {
		t.Errorf("JSONError body = %q", jsonErr.Body)
	}
}

func TestDetermineRouteTransportError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close() // refuse connections

	cat := catalog.New([]catalog.Provider{{Name: "chat", Model: "gpt-4o", Usage: "general chat"}})
	svc := NewService(cat, ts.URL, "Arch-Router", "arch-router", time.Second)

	_, err := svc.DetermineRoute(context.Background(), []openai.Message{openai.UserMessage("hi")}, "", nil)
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("error = %v (%T), want *RequestError", err, err)
	}
}

func TestDetermineRouteUnresolvableRoute(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, routerReply("nonexistent"))
	}))
	defer ts.Close()

	cat := catalog.New([]catalog.Provider{{Name: "chat", Model: "gpt-4o", Usage: "general chat"}})
	svc := NewService(cat, ts.URL, "Arch-Router", "arch-router", 5*time.Second)

	decision, err := svc.DetermineRoute(context.Background(), []openai.Message{openai.UserMessage("hi")}, "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision != nil {
		t.Errorf("decision = %+v, want nil for an unresolvable route", decision)
	}
}
