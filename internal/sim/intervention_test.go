package sim

import (
	"testing"

	"github.com/machitown/disaster-sim/internal/domain/agent"
)

func comboEvents(s *Session) []TimelineEvent {
	var out []TimelineEvent
	for _, e := range s.timeline.Recent(0) {
		if e.Meta != nil && e.Meta.Combo != "" {
			out = append(out, e)
		}
	}
	return out
}

func TestComboFiresWithinWindow(t *testing.T) {
	s := newTestSession(t, nil)

	s.w.Tick = 5
	s.ApplyIntervention(KindRumorMonitoring, "")
	s.w.Tick = 10
	s.ApplyIntervention(KindOfficialAlert, "")

	combos := comboEvents(s)
	if len(combos) != 1 {
		t.Fatalf("Expected exactly one combo event, got %d", len(combos))
	}
	if combos[0].Meta.Combo != "Truth Cascade" {
		t.Errorf("Expected Truth Cascade, got %s", combos[0].Meta.Combo)
	}
}

func TestComboDoesNotFireOutsideWindow(t *testing.T) {
	s := newTestSession(t, nil)

	s.w.Tick = 5
	s.ApplyIntervention(KindRumorMonitoring, "")
	s.w.Tick = 20 // window is 8 ticks
	s.ApplyIntervention(KindOfficialAlert, "")

	if combos := comboEvents(s); len(combos) != 0 {
		t.Errorf("Expected no combo outside the window, got %d", len(combos))
	}
}

func TestComboOrderMatters(t *testing.T) {
	s := newTestSession(t, nil)

	s.w.Tick = 5
	s.ApplyIntervention(KindOfficialAlert, "")
	s.w.Tick = 8
	s.ApplyIntervention(KindRumorMonitoring, "")

	if combos := comboEvents(s); len(combos) != 0 {
		t.Errorf("Expected no combo when the sequence is reversed, got %d", len(combos))
	}
}

func TestInterventionAfterEndIsNoop(t *testing.T) {
	s := newTestSession(t, nil)
	s.ended = true

	ps := s.ApplyIntervention(KindOfficialAlert, "")
	if !ps.Empty() {
		t.Error("Expected no patches from an intervention after the run ended")
	}
	if len(s.history) != 0 {
		t.Error("Expected no history entry after the run ended")
	}
}

func TestFactCheckMovesDial(t *testing.T) {
	s := newTestSession(t, nil)
	before := s.dials.FactCheckSpeed

	s.ApplyIntervention(KindFactCheck, "")
	if s.dials.FactCheckSpeed != before+15 {
		t.Errorf("Expected fact-check speed dial +15, got %d -> %d", before, s.dials.FactCheckSpeed)
	}

	// Dials clamp at 100.
	for i := 0; i < 10; i++ {
		s.ApplyIntervention(KindFactCheck, "")
	}
	if s.dials.FactCheckSpeed != 100 {
		t.Errorf("Expected dial clamped at 100, got %d", s.dials.FactCheckSpeed)
	}
}

func TestOpenShelterReopensClosedShelters(t *testing.T) {
	s := newTestSession(t, nil)
	var closed int
	for _, b := range s.w.Buildings {
		if b.IsShelterClass() {
			b.Closed = true
			b.RecomputeStatus()
			closed++
		}
	}
	if closed == 0 {
		t.Fatal("Expected the generated world to contain shelters")
	}

	s.ApplyIntervention(KindOpenShelter, "")
	for _, b := range s.w.Buildings {
		if b.IsShelterClass() && b.Closed {
			t.Errorf("Expected shelter %s to be reopened", b.ID)
		}
	}
}

func TestTriageDispatchTargetsNeedsAssist(t *testing.T) {
	s := newTestSession(t, nil)
	a := anyAgent(s)
	a.Profile.Mobility = agent.MobilityNeedsAssist
	a.Stress = 50

	s.ApplyIntervention(KindTriageDispatch, "")
	if a.Stress >= 50 {
		t.Errorf("Expected triage dispatch to relieve stress, got %.1f", a.Stress)
	}
}

func TestValidKind(t *testing.T) {
	if !ValidKind("official_alert") || !ValidKind("triage_dispatch") {
		t.Error("Expected known kinds to validate")
	}
	if ValidKind("launch_fireworks") {
		t.Error("Expected unknown kind to be rejected")
	}
}
