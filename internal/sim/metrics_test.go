package sim

import (
	"testing"

	"github.com/machitown/disaster-sim/internal/domain/agent"
)

func TestComputeMetricsIsPure(t *testing.T) {
	s := newTestSession(t, nil)
	m1 := ComputeMetrics(s.w, s.dials)
	m2 := ComputeMetrics(s.w, s.dials)
	if m1 != m2 {
		t.Errorf("Expected identical metrics for unchanged world, got %+v vs %+v", m1, m2)
	}
}

func TestComputeMetricsBounds(t *testing.T) {
	s := newTestSession(t, nil)
	// Push the world into an extreme state and confirm the clamp holds.
	for _, a := range s.w.Agents {
		a.AlertStatus = agent.AlertRumor
		a.Stress = 100
		a.Mood = agent.MoodPanic
	}
	m := ComputeMetrics(s.w, Dials{Ambiguity: 100, Misinfo: 100, FactCheckSpeed: 0})
	for name, v := range m.AsMap() {
		if v < 0 || v > 100 {
			t.Errorf("Expected %s in [0,100], got %.2f", name, v)
		}
	}
}

func TestVulnerableReachFullWhenNoVulnerable(t *testing.T) {
	s := newTestSession(t, nil)
	for _, a := range s.w.Agents {
		a.Profile.VulnTags = nil
	}
	m := ComputeMetrics(s.w, s.dials)
	if m.VulnerableReach != 100 {
		t.Errorf("Expected vulnerable reach 100 with no vulnerable agents, got %.1f", m.VulnerableReach)
	}
}

func TestOfficialReachTracksAlertStatus(t *testing.T) {
	s := newTestSession(t, nil)
	for _, a := range s.w.Agents {
		a.AlertStatus = agent.AlertOfficial
	}
	m := ComputeMetrics(s.w, s.dials)
	if m.OfficialReach != 100 {
		t.Errorf("Expected official reach 100 when everyone is informed, got %.1f", m.OfficialReach)
	}
	if m.RumorSpread != 0 {
		t.Errorf("Expected rumor spread 0, got %.1f", m.RumorSpread)
	}
}

func TestMisinfoBeliefRequiresHighStress(t *testing.T) {
	s := newTestSession(t, nil)
	for _, a := range s.w.Agents {
		a.AlertStatus = agent.AlertRumor
		a.Stress = 40 // below the belief cutoff
	}
	m := ComputeMetrics(s.w, s.dials)
	if m.MisinfoBelief != 0 {
		t.Errorf("Expected no misinfo belief below the stress cutoff, got %.1f", m.MisinfoBelief)
	}

	for _, a := range s.w.Agents {
		a.Stress = 70
	}
	m = ComputeMetrics(s.w, s.dials)
	if m.MisinfoBelief != 100 {
		t.Errorf("Expected full misinfo belief above the cutoff, got %.1f", m.MisinfoBelief)
	}
}

func TestMetricPeaksKeepMaximum(t *testing.T) {
	peaks := make(MetricPeaks)
	peaks.Observe(Metrics{PanicIndex: 40}, 1)
	peaks.Observe(Metrics{PanicIndex: 75}, 2)
	peaks.Observe(Metrics{PanicIndex: 50}, 3)

	p := peaks["panic_index"]
	if p.Value != 75 || p.Tick != 2 {
		t.Errorf("Expected peak 75 at tick 2, got %.1f at %d", p.Value, p.Tick)
	}
}
