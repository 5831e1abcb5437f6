// Package sim contains the tick-based simulation core: the session state
// machine, diffusion and movement models, metrics, interventions and
// termination. All world mutation happens on the session's run loop; other
// goroutines talk to it through channels.
package sim

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/machitown/disaster-sim/internal/config"
	"github.com/machitown/disaster-sim/internal/domain/agent"
	"github.com/machitown/disaster-sim/internal/platform/logger"
	"github.com/machitown/disaster-sim/internal/protocol"
	"github.com/machitown/disaster-sim/internal/world"
)

// Broadcaster fans a server message out to every connected observer.
type Broadcaster interface {
	Broadcast(msg protocol.ServerMessage)
}

// EventSink receives timeline events and per-tick metrics for durable,
// best-effort storage. Sink failures must never affect the simulation.
type EventSink interface {
	AppendEvent(e TimelineEvent) error
	AppendMetrics(tick int64, m Metrics) error
}

// InterventionRecord is one entry of the combo-detection history.
type InterventionRecord struct {
	Kind InterventionKind `json:"kind"`
	Tick int64            `json:"tick"`
}

// Session owns all mutable state for one simulation run. It is constructed
// per INIT_SIM and never shared between runs; there is no package-level
// world.
type Session struct {
	ID       string
	Scenario world.GenConfig

	tuning config.SimTuning

	w       *world.World
	dials   Dials
	metrics Metrics
	peaks   MetricPeaks

	timeline *Timeline
	history  []InterventionRecord
	detector *TerminationDetector

	ended      bool
	endReason  EndReason
	endSummary *EndSummary

	// Per-tick accumulation, flushed by the broadcast step.
	pending       PatchSet
	pendingEvents []TimelineEvent

	// Agents with an outstanding decision request move less and must not be
	// re-dispatched.
	aiHold map[string]bool

	broadcaster Broadcaster
	sink        EventSink
	logger      *logger.Logger

	gateway       DecisionGateway
	decisionBatch int
	memory        MemoryRetriever
}

// NewSession generates the world for a scenario and wires the session.
func NewSession(scenario world.GenConfig, tuning config.SimTuning, b Broadcaster, sink EventSink, log *logger.Logger) (*Session, error) {
	w, err := world.Generate(scenario)
	if err != nil {
		return nil, fmt.Errorf("generate world: %w", err)
	}

	s := &Session{
		ID:          uuid.NewString(),
		Scenario:    scenario,
		tuning:      tuning,
		w:           w,
		dials:       DefaultDials(),
		peaks:       make(MetricPeaks),
		timeline:    NewTimeline(tuning.TimelineRing),
		detector:    NewTerminationDetector(tuning.StableWindow, tuning.EscalateWindow, tuning.MaxTicks),
		pending:     NewPatchSet(),
		aiHold:      make(map[string]bool),
		broadcaster: b,
		sink:        sink,
		logger:      log,
	}
	s.metrics = ComputeMetrics(w, s.dials)
	s.peaks.Observe(s.metrics, 0)
	return s, nil
}

// World exposes the world for read-side queries. Callers outside the run
// loop must not mutate it.
func (s *Session) World() *world.World { return s.w }

// Ended reports whether the run has reached a terminal state.
func (s *Session) Ended() bool { return s.ended }

// Metrics returns the most recently computed indicator set.
func (s *Session) Metrics() Metrics { return s.metrics }

// Dials returns the current severity dials.
func (s *Session) Dials() Dials { return s.dials }

// RecentEvents returns up to n recent timeline entries, oldest first.
func (s *Session) RecentEvents(n int) []TimelineEvent { return s.timeline.Recent(n) }

// record appends an event to the timeline, queues it for broadcast and
// writes it through to the sink.
func (s *Session) record(e TimelineEvent) {
	s.timeline.Append(e)
	s.pendingEvents = append(s.pendingEvents, e)
	if s.sink != nil {
		if err := s.sink.AppendEvent(e); err != nil {
			s.logger.Warn("event sink append failed: " + err.Error())
		}
	}
}

// setAlert mutates an agent's alert status and records the patch.
func (s *Session) setAlert(a *agent.Agent, status agent.AlertStatus, ps PatchSet) {
	if a.AlertStatus == status {
		return
	}
	a.AlertStatus = status
	ps.Agent(a.ID).AlertStatus = strPtr(string(status))
}

// setEvac mutates an agent's evacuation stance and records the patch.
func (s *Session) setEvac(a *agent.Agent, status agent.EvacStatus, ps PatchSet) {
	if a.EvacStatus == status {
		return
	}
	a.EvacStatus = status
	ps.Agent(a.ID).EvacStatus = strPtr(string(status))
}

// adjustStress applies a stress delta and records stress+mood patches.
func (s *Session) adjustStress(a *agent.Agent, delta float64, ps PatchSet) {
	before := a.Mood
	a.AdjustStress(delta)
	p := ps.Agent(a.ID)
	p.Stress = f64Ptr(a.Stress)
	if a.Mood != before {
		p.Mood = strPtr(string(a.Mood))
	}
}

// WorldInitMessage builds the full-snapshot message sent to a newly attached
// observer.
func (s *Session) WorldInitMessage() protocol.ServerMessage {
	return protocol.ServerMessage{
		Type: protocol.ServerWorldInit,
		Tick: s.w.Tick,
		Payload: map[string]any{
			"session_id": s.ID,
			"scenario":   s.Scenario,
			"world":      s.w,
			"metrics":    s.metrics,
			"dials":      s.dials,
			"ended":      s.ended,
		},
	}
}

// AgentReasoningMessage answers a SELECT_AGENT command with the agent's
// current goal/plan/reflection. Unknown ids yield a not-found payload rather
// than an error; the client view may be stale.
func (s *Session) AgentReasoningMessage(agentID string) protocol.ServerMessage {
	a, ok := s.w.Agents[agentID]
	if !ok {
		return protocol.ServerMessage{
			Type:    protocol.ServerAgentReasoning,
			Tick:    s.w.Tick,
			Payload: map[string]any{"agent_id": agentID, "found": false},
		}
	}
	return protocol.ServerMessage{
		Type: protocol.ServerAgentReasoning,
		Tick: s.w.Tick,
		Payload: map[string]any{
			"agent_id":   a.ID,
			"found":      true,
			"name":       a.Name,
			"mood":       a.Mood,
			"stress":     a.Stress,
			"activity":   a.Activity,
			"goal":       a.Goal,
			"plan":       a.Plan,
			"reflection": a.Reflection,
		},
	}
}

// EndSummary packages the terminal census for SIM_END and the archive.
type EndSummary struct {
	SessionID string               `json:"session_id"`
	Reason    EndReason            `json:"reason"`
	Tick      int64                `json:"tick"`
	Scenario  world.GenConfig      `json:"scenario"`
	Metrics   Metrics              `json:"metrics"`
	Peaks     MetricPeaks          `json:"peaks"`
	Census    Census               `json:"census"`
	History   []InterventionRecord `json:"interventions"`
}

// Census is the population/alert/evacuation breakdown at end of run.
type Census struct {
	Population int            `json:"population"`
	Alert      map[string]int `json:"alert"`
	Evac       map[string]int `json:"evac"`
	Sheltered  int            `json:"sheltered"`
	AvgStress  float64        `json:"avg_stress"`
}

func (s *Session) buildSummary(reason EndReason) *EndSummary {
	census := Census{
		Population: len(s.w.Agents),
		Alert:      make(map[string]int),
		Evac:       make(map[string]int),
	}
	var stressSum float64
	for _, a := range s.w.Agents {
		census.Alert[string(a.AlertStatus)]++
		census.Evac[string(a.EvacStatus)]++
		if a.EvacStatus == agent.EvacSheltered {
			census.Sheltered++
		}
		stressSum += a.Stress
	}
	if census.Population > 0 {
		census.AvgStress = stressSum / float64(census.Population)
	}

	return &EndSummary{
		SessionID: s.ID,
		Reason:    reason,
		Tick:      s.w.Tick,
		Scenario:  s.Scenario,
		Metrics:   s.metrics,
		Peaks:     s.peaks,
		Census:    census,
		History:   append([]InterventionRecord(nil), s.history...),
	}
}

// Summary returns the end-of-run summary, or nil while still running.
func (s *Session) Summary() *EndSummary { return s.endSummary }
