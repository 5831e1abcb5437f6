// Package ai provides the external decision-service integration layer.
// An agnostic Provider interface hides which backend produces agent
// decisions, so the coordinator can swap implementations.
package ai

import (
	"context"
	"errors"
)

// ErrRateLimited marks a rate-limit-class failure; the coordinator reacts by
// opening its backoff window.
var ErrRateLimited = errors.New("decision service rate limited")

// Actions the decision service may return. Anything else is treated as
// ActionNone.
const (
	ActionNone     = "none"
	ActionMove     = "move"
	ActionSay      = "say"
	ActionEvacuate = "evacuate"
	ActionHelp     = "help"
	ActionStay     = "stay"
)

// Position is a candidate move target.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// AgentSnapshot is the read-only view of one agent shipped to the service.
type AgentSnapshot struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Job         string  `json:"job"`
	Mood        string  `json:"mood"`
	Stress      float64 `json:"stress"`
	AlertStatus string  `json:"alert_status"`
	EvacStatus  string  `json:"evac_status"`
	Activity    string  `json:"activity"`
	Goal        string  `json:"goal,omitempty"`
	Plan        string  `json:"plan,omitempty"`
	X           int     `json:"x"`
	Y           int     `json:"y"`
}

// DecisionRequest is everything the service needs for one agent decision.
type DecisionRequest struct {
	Tick           int64              `json:"tick"`
	TimeOfDay      string             `json:"time_of_day"`
	Disaster       string             `json:"disaster"`
	Tone           string             `json:"tone,omitempty"`
	Agent          AgentSnapshot      `json:"agent"`
	Metrics        map[string]float64 `json:"metrics"`
	RecentEvents   []string           `json:"recent_events,omitempty"`
	CandidateMoves []Position         `json:"candidate_moves,omitempty"`
	NearbyAgents   []string           `json:"nearby_agents,omitempty"`
	Chatter        []string           `json:"chatter,omitempty"`
	Memories       []string           `json:"memories,omitempty"`
}

// Decision is the parsed service response. Zero value means "do nothing".
type Decision struct {
	Action        string `json:"action"`
	TargetIndex   *int   `json:"target_index,omitempty"`
	TargetAgentID string `json:"target_agent_id,omitempty"`
	Message       string `json:"message,omitempty"`
	Activity      string `json:"activity,omitempty"`
	Reflection    string `json:"reflection,omitempty"`
	Plan          string `json:"plan,omitempty"`
	Goal          string `json:"goal,omitempty"`
}

// NoopDecision is the safe fallback for malformed responses.
func NoopDecision() *Decision {
	return &Decision{Action: ActionNone}
}

// Provider is the agnostic interface for decision backends.
type Provider interface {
	// Decide requests one agent decision. Malformed responses are resolved
	// to a no-op decision, not an error.
	Decide(ctx context.Context, req DecisionRequest) (*Decision, error)

	// Available reports whether the provider is configured.
	Available() bool

	// Name identifies the provider for logging.
	Name() string
}
