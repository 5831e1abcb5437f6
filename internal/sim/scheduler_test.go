package sim

import (
	"testing"
	"time"

	"github.com/machitown/disaster-sim/internal/platform/logger"
	"github.com/machitown/disaster-sim/internal/protocol"
)

func newTestLoop(t *testing.T) (*Loop, *Session, *time.Ticker) {
	t.Helper()
	s := newTestSession(t, nil)
	l := NewLoop(s, logger.NewLogger(), nil)
	ticker := time.NewTicker(time.Hour)
	t.Cleanup(ticker.Stop)
	return l, s, ticker
}

func TestSetSpeedValidatesAndReschedules(t *testing.T) {
	l, _, ticker := newTestLoop(t)

	l.handle(Command{Msg: protocol.ClientMessage{Type: protocol.ClientSetSpeed, Speed: 20}}, ticker)
	if l.speed != 20 {
		t.Errorf("Expected speed 20, got %d", l.speed)
	}

	l.handle(Command{Msg: protocol.ClientMessage{Type: protocol.ClientSetSpeed, Speed: 7}}, ticker)
	if l.speed != 20 {
		t.Errorf("Expected unsupported speed ignored, got %d", l.speed)
	}
}

func TestPauseAndResumeToggle(t *testing.T) {
	l, _, ticker := newTestLoop(t)

	l.handle(Command{Msg: protocol.ClientMessage{Type: protocol.ClientPause}}, ticker)
	if !l.paused {
		t.Error("Expected loop paused")
	}
	l.handle(Command{Msg: protocol.ClientMessage{Type: protocol.ClientResume}}, ticker)
	if l.paused {
		t.Error("Expected loop resumed")
	}
}

func TestEndedRunIgnoresMutatingCommands(t *testing.T) {
	l, s, ticker := newTestLoop(t)
	s.ended = true

	l.handle(Command{Msg: protocol.ClientMessage{Type: protocol.ClientSetSpeed, Speed: 20}}, ticker)
	if l.speed != 1 {
		t.Errorf("Expected speed unchanged after the run ended, got %d", l.speed)
	}

	l.handle(Command{Msg: protocol.ClientMessage{Type: protocol.ClientPause}}, ticker)
	if l.paused {
		t.Error("Expected pause ignored after the run ended")
	}

	l.handle(Command{Msg: protocol.ClientMessage{Type: protocol.ClientIntervention, Kind: string(KindOfficialAlert)}}, ticker)
	if len(s.history) != 0 {
		t.Errorf("Expected no intervention history after the run ended, got %d entries", len(s.history))
	}
	if !s.pending.Empty() {
		t.Error("Expected no pending patches after the run ended")
	}
}

func TestEndedRunStillAnswersAgentQueries(t *testing.T) {
	l, s, ticker := newTestLoop(t)
	s.ended = true
	a := anyAgent(s)

	var got *protocol.ServerMessage
	l.handle(Command{
		Msg:   protocol.ClientMessage{Type: protocol.ClientSelectAgent, AgentID: a.ID},
		Reply: func(m protocol.ServerMessage) { got = &m },
	}, ticker)

	if got == nil || got.Type != protocol.ServerAgentReasoning {
		t.Error("Expected an agent reasoning reply after the run ended")
	}
}
