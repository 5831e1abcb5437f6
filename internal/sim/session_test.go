package sim

import (
	"testing"

	"github.com/machitown/disaster-sim/internal/config"
	"github.com/machitown/disaster-sim/internal/domain/agent"
	"github.com/machitown/disaster-sim/internal/platform/logger"
	"github.com/machitown/disaster-sim/internal/protocol"
	"github.com/machitown/disaster-sim/internal/world"
)

// captureBroadcaster records every message for assertions.
type captureBroadcaster struct {
	msgs []protocol.ServerMessage
}

func (c *captureBroadcaster) Broadcast(msg protocol.ServerMessage) {
	c.msgs = append(c.msgs, msg)
}

func (c *captureBroadcaster) count(msgType string) int {
	n := 0
	for _, m := range c.msgs {
		if m.Type == msgType {
			n++
		}
	}
	return n
}

func newTestSession(t *testing.T, b Broadcaster) *Session {
	t.Helper()
	scenario := world.GenConfig{
		Size:     world.SizeSmall,
		Terrain:  world.TerrainInland,
		Disaster: world.DisasterEarthquake,
		Seed:     7,
	}
	s, err := NewSession(scenario, config.Default().Sim, b, nil, logger.NewLogger())
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	return s
}

func anyAgent(s *Session) *agent.Agent {
	for _, a := range s.w.Agents {
		return a
	}
	return nil
}

func TestNewSessionStartsAtTickZero(t *testing.T) {
	s := newTestSession(t, nil)
	if s.w.Tick != 0 {
		t.Errorf("Expected fresh session at tick 0, got %d", s.w.Tick)
	}
	if s.Ended() {
		t.Error("Expected fresh session to not be ended")
	}
	if s.ID == "" {
		t.Error("Expected session to carry an id")
	}
}

func TestAgentReasoningUnknownID(t *testing.T) {
	s := newTestSession(t, nil)
	msg := s.AgentReasoningMessage("NO_SUCH_AGENT")
	if msg.Type != protocol.ServerAgentReasoning {
		t.Errorf("Expected AGENT_REASONING message, got %s", msg.Type)
	}
	payload, ok := msg.Payload.(map[string]any)
	if !ok {
		t.Fatal("Expected map payload")
	}
	if found, _ := payload["found"].(bool); found {
		t.Error("Expected found=false for unknown agent id")
	}
}

func TestAgentReasoningKnownID(t *testing.T) {
	s := newTestSession(t, nil)
	a := anyAgent(s)
	a.Goal = "reach the shelter"

	msg := s.AgentReasoningMessage(a.ID)
	payload := msg.Payload.(map[string]any)
	if found, _ := payload["found"].(bool); !found {
		t.Fatal("Expected found=true for a real agent")
	}
	if payload["goal"] != "reach the shelter" {
		t.Errorf("Expected goal to round-trip, got %v", payload["goal"])
	}
}

func TestBuildSummaryCensus(t *testing.T) {
	s := newTestSession(t, nil)
	sheltered := 0
	for _, a := range s.w.Agents {
		if sheltered < 3 {
			a.EvacStatus = agent.EvacSheltered
			sheltered++
		}
	}

	summary := s.buildSummary(EndStabilized)
	if summary.Reason != EndStabilized {
		t.Errorf("Expected STABILIZED reason, got %s", summary.Reason)
	}
	if summary.Census.Population != len(s.w.Agents) {
		t.Errorf("Expected census population %d, got %d", len(s.w.Agents), summary.Census.Population)
	}
	if summary.Census.Sheltered != 3 {
		t.Errorf("Expected 3 sheltered in census, got %d", summary.Census.Sheltered)
	}
}

func TestLocalHourAdvancesWithTicks(t *testing.T) {
	s := newTestSession(t, nil)
	if got := s.LocalHour(); got != 8 {
		t.Errorf("Expected start hour 8, got %d", got)
	}
	s.w.Tick = 30 // 30 ticks * 2 min = 1h
	if got := s.LocalHour(); got != 9 {
		t.Errorf("Expected hour 9 after one sim hour, got %d", got)
	}
	s.w.Tick = 30 * 16 // 16h later -> wraps past midnight
	if got := s.LocalHour(); got != 0 {
		t.Errorf("Expected wrap to hour 0, got %d", got)
	}
}
