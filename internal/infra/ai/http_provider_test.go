package ai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseDecisionValidDocument(t *testing.T) {
	raw := []byte(`{"action":"move","target_index":2,"goal":"reach the shelter"}`)
	d := ParseDecision(raw)
	if d.Action != ActionMove {
		t.Errorf("Expected move, got %s", d.Action)
	}
	if d.TargetIndex == nil || *d.TargetIndex != 2 {
		t.Error("Expected target_index 2")
	}
	if d.Goal != "reach the shelter" {
		t.Errorf("Expected goal to decode, got %q", d.Goal)
	}
}

func TestParseDecisionUnknownActionFallsBack(t *testing.T) {
	d := ParseDecision([]byte(`{"action":"teleport"}`))
	if d.Action != ActionNone {
		t.Errorf("Expected schema-invalid action to fall back to none, got %s", d.Action)
	}
}

func TestParseDecisionNonJSONFallsBack(t *testing.T) {
	d := ParseDecision([]byte("I think the agent should probably evacuate"))
	if d.Action != ActionNone {
		t.Errorf("Expected non-JSON body to fall back to none, got %s", d.Action)
	}
}

func TestParseDecisionMissingActionFallsBack(t *testing.T) {
	d := ParseDecision([]byte(`{"message":"hello"}`))
	if d.Action != ActionNone {
		t.Errorf("Expected document without action to fall back to none, got %s", d.Action)
	}
}

func TestDecideSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Expected JSON content type, got %s", ct)
		}
		w.Write([]byte(`{"action":"say","message":"head north"}`))
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, "town-model")
	d, err := p.Decide(context.Background(), DecisionRequest{Agent: AgentSnapshot{ID: "A001"}})
	if err != nil {
		t.Fatalf("Decide failed: %v", err)
	}
	if d.Action != ActionSay || d.Message != "head north" {
		t.Errorf("Expected say decision, got %+v", d)
	}
}

func TestDecideRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, "")
	_, err := p.Decide(context.Background(), DecisionRequest{})
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("Expected ErrRateLimited for a 429, got %v", err)
	}
}

func TestDecideOverloaded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(529)
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, "")
	_, err := p.Decide(context.Background(), DecisionRequest{})
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("Expected overload status to read as rate limiting, got %v", err)
	}
}

func TestDecideServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, "")
	_, err := p.Decide(context.Background(), DecisionRequest{})
	if err == nil || errors.Is(err, ErrRateLimited) {
		t.Errorf("Expected a plain error for a 500, got %v", err)
	}
}

func TestDecideMalformedBodyIsNoopNotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("the agent ponders existence"))
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, "")
	d, err := p.Decide(context.Background(), DecisionRequest{})
	if err != nil {
		t.Fatalf("Expected malformed body to degrade, not fail: %v", err)
	}
	if d.Action != ActionNone {
		t.Errorf("Expected no-op decision, got %s", d.Action)
	}
}

func TestAvailableRequiresEndpoint(t *testing.T) {
	if NewHTTPProvider("", "").Available() {
		t.Error("Expected provider without endpoint to be unavailable")
	}
	if !NewHTTPProvider("http://localhost:9", "").Available() {
		t.Error("Expected provider with endpoint to be available")
	}
}
