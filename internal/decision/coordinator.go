// Package decision gates traffic to the external decision service: bounded
// in-flight requests, a minimum dispatch interval, and exponential backoff
// on rate-limit failures. Every accepted request produces exactly one Result
// for the tick loop to drain, failures included; nothing here ever mutates
// world state directly.
package decision

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/machitown/disaster-sim/internal/infra/ai"
	"github.com/machitown/disaster-sim/internal/platform/logger"
	"github.com/machitown/disaster-sim/internal/platform/metrics"
)

// Result is one completed request handed back to the simulation loop. A nil
// Decision means the request failed; the agent is free again either way.
type Result struct {
	AgentID  string
	Decision *ai.Decision
}

// Tuning bounds the coordinator.
type Tuning struct {
	MaxInflight int
	MinInterval time.Duration
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

// Coordinator paces decision requests. One agent never has more than one
// outstanding request; at most MaxInflight requests run concurrently.
type Coordinator struct {
	provider ai.Provider
	tuning   Tuning
	logger   *logger.Logger

	results chan Result

	mu           sync.Mutex
	inflight     map[string]bool
	spill        []Result
	lastDispatch time.Time
	backoffUntil time.Time
	backoff      time.Duration
}

// NewCoordinator creates a coordinator for the given provider.
func NewCoordinator(provider ai.Provider, tuning Tuning, log *logger.Logger) *Coordinator {
	if tuning.MaxInflight <= 0 {
		tuning.MaxInflight = 4
	}
	if tuning.BackoffBase <= 0 {
		tuning.BackoffBase = 2 * time.Second
	}
	if tuning.BackoffMax <= 0 {
		tuning.BackoffMax = time.Minute
	}
	return &Coordinator{
		provider: provider,
		tuning:   tuning,
		logger:   log,
		results:  make(chan Result, 64),
		inflight: make(map[string]bool),
		backoff:  tuning.BackoffBase,
	}
}

// Drain returns every completion since the last call, failures included.
// The tick loop calls it at its defined point.
func (c *Coordinator) Drain() []Result {
	var out []Result
	for {
		select {
		case r := <-c.results:
			out = append(out, r)
		default:
			c.mu.Lock()
			out = append(out, c.spill...)
			c.spill = nil
			c.mu.Unlock()
			return out
		}
	}
}

// Available reports whether the backing provider is configured at all.
func (c *Coordinator) Available() bool {
	return c.provider != nil && c.provider.Available()
}

// InflightCount returns the number of outstanding requests.
func (c *Coordinator) InflightCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inflight)
}

// Dispatch tries to start requests for the given batch and returns the agent
// ids it accepted. Requests that do not fit the concurrency bound, the
// minimum interval, or an open backoff window are skipped; the next tick
// will try again and the caller must not treat skipped agents as outstanding.
func (c *Coordinator) Dispatch(ctx context.Context, reqs []ai.DecisionRequest) []string {
	if !c.Available() || len(reqs) == 0 {
		return nil
	}

	c.mu.Lock()
	now := time.Now()
	if now.Before(c.backoffUntil) || now.Sub(c.lastDispatch) < c.tuning.MinInterval {
		c.mu.Unlock()
		return nil
	}

	var accepted []ai.DecisionRequest
	var ids []string
	for _, req := range reqs {
		if len(c.inflight) >= c.tuning.MaxInflight {
			break
		}
		if c.inflight[req.Agent.ID] {
			continue
		}
		c.inflight[req.Agent.ID] = true
		accepted = append(accepted, req)
		ids = append(ids, req.Agent.ID)
	}
	if len(accepted) > 0 {
		c.lastDispatch = now
	}
	c.mu.Unlock()

	for _, req := range accepted {
		go c.run(ctx, req)
	}
	return ids
}

func (c *Coordinator) run(ctx context.Context, req ai.DecisionRequest) {
	start := time.Now()
	dec, err := c.provider.Decide(ctx, req)
	metrics.Get().RecordDecisionCall(time.Since(start), errors.Is(err, ai.ErrRateLimited), err)

	c.mu.Lock()
	delete(c.inflight, req.Agent.ID)
	if err != nil {
		if errors.Is(err, ai.ErrRateLimited) {
			c.backoffUntil = time.Now().Add(c.backoff)
			c.backoff *= 2
			if c.backoff > c.tuning.BackoffMax {
				c.backoff = c.tuning.BackoffMax
			}
			c.logger.Warn("decision service rate limited; backing off " + c.backoff.String())
		}
		c.mu.Unlock()
		if !errors.Is(err, ai.ErrRateLimited) && !errors.Is(err, context.Canceled) {
			c.logger.Warn("decision request failed for " + req.Agent.ID + ": " + err.Error())
		}
		// A failed request still completes; the drain has to see it so the
		// agent is released.
		c.deliver(Result{AgentID: req.Agent.ID})
		return
	}
	// Any success resets the backoff to its base.
	c.backoff = c.tuning.BackoffBase
	c.mu.Unlock()

	c.deliver(Result{AgentID: req.Agent.ID, Decision: dec})
}

// deliver never blocks and never loses a completion: results that do not
// fit the channel spill into a slice the next Drain picks up.
func (c *Coordinator) deliver(res Result) {
	select {
	case c.results <- res:
	default:
		c.mu.Lock()
		c.spill = append(c.spill, res)
		c.mu.Unlock()
	}
}
