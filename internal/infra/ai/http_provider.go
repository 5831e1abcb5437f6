package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// decisionSchema constrains what we accept back from the service. Anything
// that fails validation becomes a no-op decision rather than an error, so a
// hallucinated payload can never corrupt world state.
const decisionSchemaJSON = `{
  "type": "object",
  "properties": {
    "action": {"enum": ["none", "move", "say", "evacuate", "help", "stay"]},
    "target_index": {"type": "integer", "minimum": 0},
    "target_agent_id": {"type": "string"},
    "message": {"type": "string", "maxLength": 280},
    "activity": {"type": "string"},
    "reflection": {"type": "string"},
    "plan": {"type": "string"},
    "goal": {"type": "string"}
  },
  "required": ["action"]
}`

var decisionSchema = jsonschema.MustCompileString("decision.json", decisionSchemaJSON)

// HTTPProvider implements Provider against a JSON-over-HTTP decision
// endpoint.
type HTTPProvider struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewHTTPProvider creates the adapter. The API key comes from the
// environment so it never lands in the tuning file.
func NewHTTPProvider(endpoint, model string) *HTTPProvider {
	return &HTTPProvider{
		endpoint:   endpoint,
		apiKey:     os.Getenv("DECISION_API_KEY"),
		model:      model,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Name returns the provider name.
func (p *HTTPProvider) Name() string {
	return "decision-http"
}

// Available checks whether the endpoint is configured.
func (p *HTTPProvider) Available() bool {
	return p.endpoint != ""
}

// Decide posts the request and parses the response defensively.
func (p *HTTPProvider) Decide(ctx context.Context, req DecisionRequest) (*Decision, error) {
	if !p.Available() {
		return nil, fmt.Errorf("decision endpoint not configured")
	}

	payload := struct {
		Model string `json:"model,omitempty"`
		DecisionRequest
	}{Model: p.model, DecisionRequest: req}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == 529:
		return nil, fmt.Errorf("%w (status %d)", ErrRateLimited, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("decision service error (status %d): %s", resp.StatusCode, respBody)
	}

	return ParseDecision(respBody), nil
}

// ParseDecision validates and decodes a raw response document. Non-JSON or
// schema-invalid documents fall back to the no-op decision.
func ParseDecision(raw []byte) *Decision {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return NoopDecision()
	}
	if err := decisionSchema.Validate(doc); err != nil {
		return NoopDecision()
	}

	var d Decision
	if err := json.Unmarshal(raw, &d); err != nil {
		return NoopDecision()
	}
	return &d
}

// Ensure HTTPProvider implements Provider.
var _ Provider = (*HTTPProvider)(nil)
