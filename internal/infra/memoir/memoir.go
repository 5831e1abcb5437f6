// Package memoir talks to the optional embedding/memory sidecar. Every call
// degrades gracefully: query failures yield no memories, writes are
// fire-and-forget. The simulation never waits on this service.
package memoir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/machitown/disaster-sim/internal/config"
	"github.com/machitown/disaster-sim/internal/platform/logger"
)

// Client is the sidecar HTTP client.
type Client struct {
	endpoint   string
	topK       int
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient builds a client from tuning. An empty endpoint yields a client
// whose Available reports false.
func NewClient(cfg config.MemoryTuning, log *logger.Logger) *Client {
	topK := cfg.TopK
	if topK <= 0 {
		topK = 5
	}
	return &Client{
		endpoint:   cfg.Endpoint,
		topK:       topK,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     log,
	}
}

// Available reports whether the sidecar is configured.
func (c *Client) Available() bool {
	return c.endpoint != ""
}

// Query fetches the most relevant memory snippets for a prompt. Any failure
// returns nil; decisions just proceed without memories.
func (c *Client) Query(text string) []string {
	if !c.Available() {
		return nil
	}

	body, err := json.Marshal(map[string]any{"text": text, "top_k": c.topK})
	if err != nil {
		return nil
	}
	resp, err := c.httpClient.Post(c.endpoint+"/query", "application/json", bytes.NewReader(body))
	if err != nil {
		c.logger.Warn("memory query failed: " + err.Error())
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn(fmt.Sprintf("memory query status %d", resp.StatusCode))
		return nil
	}

	var out struct {
		Memories []string `json:"memories"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil
	}
	return out.Memories
}

// Write stores a memory asynchronously. Failures are logged and forgotten.
func (c *Client) Write(sessionID, text string) {
	if !c.Available() || text == "" {
		return
	}
	go func() {
		body, err := json.Marshal(map[string]any{"session_id": sessionID, "text": text})
		if err != nil {
			return
		}
		resp, err := c.httpClient.Post(c.endpoint+"/write", "application/json", bytes.NewReader(body))
		if err != nil {
			c.logger.Warn("memory write failed: " + err.Error())
			return
		}
		resp.Body.Close()
	}()
}
