package sim

import (
	"fmt"

	"github.com/machitown/disaster-sim/internal/domain/agent"
	"github.com/machitown/disaster-sim/internal/infra/ai"
	"github.com/machitown/disaster-sim/internal/protocol"
	"github.com/machitown/disaster-sim/internal/world"
)

// AgentDecision is one completed external decision, applied on the tick
// thread through the same mutation path as scripted events. A nil Decision
// marks a failed request; applying it only releases the agent.
type AgentDecision struct {
	AgentID  string
	Decision *ai.Decision
}

// DecisionGateway is the session's view of the request coordinator. Dispatch
// must never block and returns the agent ids it actually accepted; Drain
// returns every completion since last tick, failures included.
type DecisionGateway interface {
	Dispatch(reqs []ai.DecisionRequest) []string
	Drain() []AgentDecision
}

// MemoryRetriever supplies memory snippets for decision prompts. A nil
// retriever or a failing one degrades to no memories.
type MemoryRetriever interface {
	Query(text string) []string
}

// AttachGateway wires the decision coordinator. Optional; without it agents
// run purely on scripted behavior. batch caps requests per tick.
func (s *Session) AttachGateway(g DecisionGateway, batch int) {
	s.gateway = g
	s.decisionBatch = batch
}

// AttachMemory wires the memory retriever. Optional.
func (s *Session) AttachMemory(m MemoryRetriever) { s.memory = m }

// LocalHour derives the simulated time of day from the tick counter.
func (s *Session) LocalHour() int {
	minutes := int64(s.tuning.StartHour)*60 + s.w.Tick*int64(s.tuning.MinutesPerTick)
	return int(minutes/60) % 24
}

// RunTick advances the simulation by exactly one tick. It is a no-op once
// the session has ended; pausing is handled by the scheduler not firing.
// Returns true when this tick terminated the run.
func (s *Session) RunTick() bool {
	if s.ended {
		return false
	}

	s.w.Tick++
	hour := s.LocalHour()

	// s.pending may already hold patches from interventions applied between
	// ticks; they ride along in this tick's diff.
	s.pending.Merge(s.stepActivityAndMovement(hour))
	s.pending.Merge(s.stepDiffusion())
	s.pending.Merge(s.stepShelterFlow())

	s.dispatchDecisions(hour)
	for _, d := range s.drainDecisions() {
		s.pending.Merge(s.ApplyDecision(d.AgentID, d.Decision))
	}

	s.pending.Merge(s.stepRandomEvent())

	s.metrics = ComputeMetrics(s.w, s.dials)
	s.peaks.Observe(s.metrics, s.w.Tick)
	if s.sink != nil {
		if err := s.sink.AppendMetrics(s.w.Tick, s.metrics); err != nil {
			s.logger.Warn("metrics sink append failed: " + err.Error())
		}
	}

	reason, done := s.detector.Observe(s.metrics, s.w.Tick)

	s.broadcastTick()

	if done {
		s.finish(reason)
		return true
	}
	return false
}

// dispatchDecisions samples a few agents and hands decision requests to the
// gateway. The gateway applies its own pacing; skipped agents simply keep
// their scripted behavior.
func (s *Session) dispatchDecisions(hour int) {
	if s.gateway == nil {
		return
	}

	batch := s.decisionBatch
	if batch <= 0 {
		batch = 3
	}

	reqs := make([]ai.DecisionRequest, 0, batch)
	for _, a := range s.w.Agents {
		if len(reqs) >= batch {
			break
		}
		if s.aiHold[a.ID] || a.EvacStatus == agent.EvacSheltered {
			continue
		}
		// Prefer agents with something going on.
		if a.AlertStatus == agent.AlertNone && s.w.Rng.Float64() < 0.7 {
			continue
		}
		reqs = append(reqs, s.buildDecisionRequest(a, hour))
	}
	// Only accepted requests become outstanding. Anything the gateway skips
	// (backoff window, full concurrency bound) stays free for the next tick.
	for _, id := range s.gateway.Dispatch(reqs) {
		s.aiHold[id] = true
	}
}

func (s *Session) drainDecisions() []AgentDecision {
	if s.gateway == nil {
		return nil
	}
	return s.gateway.Drain()
}

func (s *Session) buildDecisionRequest(a *agent.Agent, hour int) ai.DecisionRequest {
	w := s.w

	neighbors := w.WalkableNeighbors(a.X, a.Y)
	moves := make([]ai.Position, len(neighbors))
	for i, n := range neighbors {
		moves[i] = ai.Position{X: n.X, Y: n.Y}
	}

	var events []string
	for _, e := range s.timeline.Recent(8) {
		if e.Message != "" {
			events = append(events, e.Message)
		}
	}

	var nearby, chatter []string
	for _, other := range w.AgentsWithin(a.X, a.Y, 4, a.ID) {
		nearby = append(nearby, other.Name)
		if other.Bubble != "" {
			chatter = append(chatter, other.Name+": "+other.Bubble)
		}
	}

	var memories []string
	if s.memory != nil {
		memories = s.memory.Query(a.Name + " " + string(a.Activity))
	}

	return ai.DecisionRequest{
		Tick:           w.Tick,
		TimeOfDay:      fmt.Sprintf("%02d:00", hour),
		Disaster:       string(s.Scenario.Disaster),
		Agent: ai.AgentSnapshot{
			ID:          a.ID,
			Name:        a.Name,
			Job:         a.Job,
			Mood:        string(a.Mood),
			Stress:      a.Stress,
			AlertStatus: string(a.AlertStatus),
			EvacStatus:  string(a.EvacStatus),
			Activity:    string(a.Activity),
			Goal:        a.Goal,
			Plan:        a.Plan,
			X:           a.X,
			Y:           a.Y,
		},
		Metrics:        s.metrics.AsMap(),
		RecentEvents:   events,
		CandidateMoves: moves,
		NearbyAgents:   nearby,
		Chatter:        chatter,
		Memories:       memories,
	}
}

// ApplyDecision folds a completed external decision back into agent state.
// It is the same mutation path scripted events use, and a no-op after the
// run has ended or for unknown agents.
func (s *Session) ApplyDecision(agentID string, d *ai.Decision) PatchSet {
	ps := NewPatchSet()
	delete(s.aiHold, agentID)
	if s.ended || d == nil {
		return ps
	}
	a, ok := s.w.Agents[agentID]
	if !ok {
		return ps
	}

	switch d.Action {
	case ai.ActionMove:
		neighbors := s.w.WalkableNeighbors(a.X, a.Y)
		if d.TargetIndex != nil && *d.TargetIndex < len(neighbors) {
			next := neighbors[*d.TargetIndex]
			a.X, a.Y = next.X, next.Y
			p := ps.Agent(a.ID)
			p.X = intPtr(a.X)
			p.Y = intPtr(a.Y)
		}
	case ai.ActionSay:
		if d.Message != "" {
			a.Bubble = d.Message
			ps.Agent(a.ID).Bubble = strPtr(d.Message)
			e := NewEvent(s.w.Tick, EventTalk)
			e.ActorID = a.ID
			e.Pos = &world.Pos{X: a.X, Y: a.Y}
			e.Message = a.Name + ": " + d.Message
			s.record(e)
		}
	case ai.ActionEvacuate:
		s.setEvac(a, agent.EvacEvacuating, ps)
	case ai.ActionHelp:
		s.setEvac(a, agent.EvacHelping, ps)
		if d.TargetAgentID != "" {
			e := NewEvent(s.w.Tick, EventSupport)
			e.ActorID = a.ID
			e.TargetID = d.TargetAgentID
			e.Message = a.Name + " moved to assist"
			s.record(e)
		}
	case ai.ActionStay:
		s.setEvac(a, agent.EvacStay, ps)
	}

	p := ps.Agent(a.ID)
	if d.Activity != "" {
		a.Activity = agent.Activity(d.Activity)
		p.Activity = strPtr(d.Activity)
	}
	if d.Reflection != "" {
		a.Reflection = d.Reflection
		p.Reflection = strPtr(d.Reflection)
	}
	if d.Plan != "" {
		a.Plan = d.Plan
		p.Plan = strPtr(d.Plan)
	}
	if d.Goal != "" {
		a.Goal = d.Goal
		p.Goal = strPtr(d.Goal)
	}

	return ps
}

// stepRandomEvent generates at most one scripted event per tick.
func (s *Session) stepRandomEvent() PatchSet {
	ps := NewPatchSet()
	w := s.w
	if w.Rng.Float64() >= s.tuning.RandomEventProb || len(w.Agents) == 0 {
		return ps
	}

	// Uniform pick over agent map iteration is fine here; the map order is
	// already randomized.
	var target *agent.Agent
	for _, a := range w.Agents {
		target = a
		break
	}

	switch w.Rng.Intn(3) {
	case 0: // rumor flare
		s.setAlert(target, agent.AlertRumor, ps)
		s.adjustStress(target, 6, ps)
		e := NewEvent(w.Tick, EventRumor)
		e.ActorID = target.ID
		e.Pos = &world.Pos{X: target.X, Y: target.Y}
		e.Message = "a troubling rumor starts near " + target.Name
		s.record(e)
	case 1: // siren test reaches one resident
		s.setAlert(target, agent.AlertOfficial, ps)
		s.adjustStress(target, -2, ps)
		e := NewEvent(w.Tick, EventAlert)
		e.ActorID = target.ID
		e.Message = "the town siren reaches " + target.Name
		s.record(e)
	default: // street chatter
		target.Bubble = "Did you hear anything?"
		ps.Agent(target.ID).Bubble = strPtr(target.Bubble)
		e := NewEvent(w.Tick, EventTalk)
		e.ActorID = target.ID
		e.Pos = &world.Pos{X: target.X, Y: target.Y}
		e.Message = target.Name + " chats with a neighbor"
		s.record(e)
	}
	return ps
}

// broadcastTick emits the batched diff, this tick's events, and the metrics
// snapshot. Exactly one WORLD_DIFF per tick, tagged with this tick only.
func (s *Session) broadcastTick() {
	if s.broadcaster == nil {
		return
	}
	tick := s.w.Tick

	if !s.pending.Empty() {
		s.broadcaster.Broadcast(protocol.ServerMessage{
			Type:    protocol.ServerWorldDiff,
			Tick:    tick,
			Payload: s.pending,
		})
	}
	for _, e := range s.pendingEvents {
		s.broadcaster.Broadcast(protocol.ServerMessage{
			Type:    protocol.ServerEvent,
			Tick:    tick,
			Payload: e,
		})
	}
	s.broadcaster.Broadcast(protocol.ServerMessage{
		Type:    protocol.ServerMetrics,
		Tick:    tick,
		Payload: s.metrics,
	})
	s.pending = NewPatchSet()
	s.pendingEvents = nil
}

// finish moves the session to its terminal state and emits SIM_END. After
// this every tick, intervention and decision application is a no-op.
func (s *Session) finish(reason EndReason) {
	s.ended = true
	s.endReason = reason
	s.endSummary = s.buildSummary(reason)
	s.logger.Event("SIM_END", "system", string(reason))

	if s.broadcaster != nil {
		s.broadcaster.Broadcast(protocol.ServerMessage{
			Type:    protocol.ServerSimEnd,
			Tick:    s.w.Tick,
			Payload: s.endSummary,
		})
	}
}
