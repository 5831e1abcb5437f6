package sim

import (
	"fmt"

	"github.com/machitown/disaster-sim/internal/domain/agent"
	"github.com/machitown/disaster-sim/internal/world"
)

// InterventionKind is one of the ten operator actions.
type InterventionKind string

const (
	KindOfficialAlert         InterventionKind = "official_alert"
	KindOpenShelter           InterventionKind = "open_shelter"
	KindFactCheck             InterventionKind = "fact_check"
	KindSupportVulnerable     InterventionKind = "support_vulnerable"
	KindMultilingualBroadcast InterventionKind = "multilingual_broadcast"
	KindRouteGuidance         InterventionKind = "route_guidance"
	KindRumorMonitoring       InterventionKind = "rumor_monitoring"
	KindMobilizeVolunteers    InterventionKind = "mobilize_volunteers"
	KindRebalanceOps          InterventionKind = "rebalance_operations"
	KindTriageDispatch        InterventionKind = "triage_dispatch"
)

// ValidKind reports whether the string names a known intervention.
func ValidKind(kind string) bool {
	switch InterventionKind(kind) {
	case KindOfficialAlert, KindOpenShelter, KindFactCheck,
		KindSupportVulnerable, KindMultilingualBroadcast, KindRouteGuidance,
		KindRumorMonitoring, KindMobilizeVolunteers, KindRebalanceOps,
		KindTriageDispatch:
		return true
	}
	return false
}

// combo is a named two-step intervention sequence. The second step must land
// within the combo window after the first.
type combo struct {
	name  string
	first InterventionKind
}

var combos = map[InterventionKind]combo{
	KindOfficialAlert: {name: "Truth Cascade", first: KindRumorMonitoring},
	KindRouteGuidance: {name: "Evac Express", first: KindMultilingualBroadcast},
	KindRebalanceOps:  {name: "Care Chain", first: KindSupportVulnerable},
}

// ApplyIntervention runs one operator action: the population-wide primary
// effect, the history append, the timeline record, and combo detection.
// It returns the patch set produced so the tick (or the command handler, for
// interventions landing between ticks) can merge and broadcast it.
func (s *Session) ApplyIntervention(kind InterventionKind, message string) PatchSet {
	ps := NewPatchSet()
	if s.ended {
		return ps
	}

	s.applyPrimaryEffect(kind, ps)

	s.history = append(s.history, InterventionRecord{Kind: kind, Tick: s.w.Tick})
	if len(s.history) > s.tuning.HistoryCap {
		s.history = s.history[len(s.history)-s.tuning.HistoryCap:]
	}

	e := NewEvent(s.w.Tick, EventIntervention)
	e.ActorID = "operator"
	e.Message = message
	if e.Message == "" {
		e.Message = fmt.Sprintf("intervention %s issued", kind)
	}
	e.Meta = &EventMeta{Intervention: kind}
	s.record(e)
	s.logger.Event("INTERVENTION", "operator", string(kind))

	if name, ok := s.detectCombo(kind); ok {
		s.applyComboEffect(name, ps)
		ce := NewEvent(s.w.Tick, EventIntervention)
		ce.ActorID = "operator"
		ce.Message = fmt.Sprintf("combo %s triggered", name)
		ce.Meta = &EventMeta{Intervention: kind, Combo: name}
		s.record(ce)
		s.logger.Event("COMBO", "operator", name)
	}

	return ps
}

// detectCombo inspects the most recent history entry (the intervention just
// applied) and searches the trailing window for a matching first step.
func (s *Session) detectCombo(kind InterventionKind) (string, bool) {
	c, ok := combos[kind]
	if !ok {
		return "", false
	}
	latest := s.history[len(s.history)-1]
	for i := len(s.history) - 2; i >= 0; i-- {
		rec := s.history[i]
		if latest.Tick-rec.Tick > s.tuning.ComboWindow {
			break
		}
		if rec.Kind == c.first {
			return c.name, true
		}
	}
	return "", false
}

// acceptance computes how likely an agent is to believe and act on a
// broadcast, combining trust, rumor susceptibility and accessibility.
func acceptance(a *agent.Agent, multilingual bool) float64 {
	p := float64(a.Profile.Trust) / 100
	p *= 1 - 0.3*float64(a.Profile.Susceptibility)/100
	if !multilingual {
		if a.Profile.Language != "ja" {
			p *= 0.6
		}
		if !a.Profile.HearingOK {
			p *= 0.7
		}
	}
	return clamp01(p)
}

func (s *Session) applyPrimaryEffect(kind InterventionKind, ps PatchSet) {
	w := s.w
	switch kind {
	case KindOfficialAlert:
		for _, a := range w.Agents {
			if w.Rng.Float64() >= acceptance(a, false) {
				continue
			}
			s.setAlert(a, agent.AlertOfficial, ps)
			s.adjustStress(a, -3, ps)
			if a.IsVulnerable() && a.EvacStatus == agent.EvacStay &&
				w.Rng.Float64() < officialStartsEvacChance {
				s.setEvac(a, agent.EvacEvacuating, ps)
			}
		}

	case KindOpenShelter:
		for _, b := range w.Buildings {
			if !b.IsShelterClass() {
				continue
			}
			if b.Closed {
				b.Closed = false
				b.RecomputeStatus()
				p := ps.Building(b.ID)
				p.Closed = boolPtr(false)
				p.Status = strPtr(string(b.Status))
			}
			for _, a := range w.AgentsWithin(b.X, b.Y, 4, "") {
				s.adjustStress(a, -1, ps)
			}
		}

	case KindFactCheck:
		s.dials.FactCheckSpeed = clampDial(s.dials.FactCheckSpeed + 15)
		for _, a := range w.Agents {
			if a.AlertStatus != agent.AlertRumor {
				continue
			}
			if w.Rng.Float64() < 1-0.5*float64(a.Profile.Susceptibility)/100 {
				s.setAlert(a, agent.AlertOfficial, ps)
				s.adjustStress(a, -2, ps)
			}
		}

	case KindSupportVulnerable:
		for _, a := range w.Agents {
			if !a.IsVulnerable() {
				continue
			}
			s.adjustStress(a, -2, ps)
			if a.EvacStatus == agent.EvacStay && w.Rng.Float64() < 0.5 {
				s.setEvac(a, agent.EvacEvacuating, ps)
			}
		}

	case KindMultilingualBroadcast:
		for _, a := range w.Agents {
			if a.Profile.Language == "ja" && a.Profile.HearingOK {
				continue
			}
			if w.Rng.Float64() >= acceptance(a, true) {
				continue
			}
			s.setAlert(a, agent.AlertOfficial, ps)
			s.adjustStress(a, -3, ps)
		}

	case KindRouteGuidance:
		for _, a := range w.Agents {
			switch a.EvacStatus {
			case agent.EvacEvacuating:
				s.adjustStress(a, -2, ps)
			case agent.EvacStay:
				if a.AlertStatus == agent.AlertOfficial &&
					w.Rng.Float64() < 0.25*float64(a.Profile.Trust)/100 {
					s.setEvac(a, agent.EvacEvacuating, ps)
				}
			}
		}

	case KindRumorMonitoring:
		s.dials.Misinfo = clampDial(s.dials.Misinfo - 10)
		s.dials.Ambiguity = clampDial(s.dials.Ambiguity - 5)
		for _, a := range w.Agents {
			if a.AlertStatus != agent.AlertRumor {
				continue
			}
			if w.Rng.Float64() < 0.3*float64(a.Profile.Trust)/100 {
				s.setAlert(a, agent.AlertNone, ps)
				s.adjustStress(a, -1, ps)
			}
		}

	case KindMobilizeVolunteers:
		for _, a := range w.Agents {
			if a.IsVulnerable() || a.EvacStatus != agent.EvacStay {
				continue
			}
			if w.Rng.Float64() < 0.25*acceptance(a, false) {
				s.setEvac(a, agent.EvacHelping, ps)
				if a.Stress > 30 && a.Stress < 60 {
					a.Mood = agent.MoodHelpful
					ps.Agent(a.ID).Mood = strPtr(string(agent.MoodHelpful))
				}
			}
		}

	case KindRebalanceOps:
		for _, a := range w.Agents {
			if a.IsVulnerable() {
				if a.EvacStatus == agent.EvacStay && w.Rng.Float64() < 0.3 {
					s.setEvac(a, agent.EvacEvacuating, ps)
				}
				continue
			}
			if a.EvacStatus == agent.EvacEvacuating && w.Rng.Float64() < 0.3 {
				s.setEvac(a, agent.EvacHelping, ps)
			}
		}

	case KindTriageDispatch:
		for _, a := range w.Agents {
			if a.Profile.Mobility != agent.MobilityNeedsAssist {
				continue
			}
			s.adjustStress(a, -4, ps)
			se := NewEvent(s.w.Tick, EventSupport)
			se.TargetID = a.ID
			se.Pos = &world.Pos{X: a.X, Y: a.Y}
			se.Message = "triage team dispatched to " + a.Name
			s.record(se)
		}
	}
}

func (s *Session) applyComboEffect(name string, ps PatchSet) {
	w := s.w
	switch name {
	case "Truth Cascade":
		s.dials.Misinfo = clampDial(s.dials.Misinfo - 15)
		for _, a := range w.Agents {
			if a.AlertStatus != agent.AlertRumor {
				continue
			}
			if w.Rng.Float64() < 0.8*float64(a.Profile.Trust)/100 {
				s.setAlert(a, agent.AlertOfficial, ps)
				s.adjustStress(a, -4, ps)
			}
		}

	case "Evac Express":
		for _, a := range w.Agents {
			switch {
			case a.EvacStatus == agent.EvacEvacuating:
				s.adjustStress(a, -3, ps)
			case a.EvacStatus == agent.EvacStay && a.AlertStatus == agent.AlertOfficial:
				if w.Rng.Float64() < 0.5 {
					s.setEvac(a, agent.EvacEvacuating, ps)
				}
			}
		}

	case "Care Chain":
		for _, a := range w.Agents {
			if a.IsVulnerable() {
				s.adjustStress(a, -3, ps)
				if a.EvacStatus == agent.EvacStay && w.Rng.Float64() < 0.7 {
					s.setEvac(a, agent.EvacEvacuating, ps)
				}
			} else if a.EvacStatus == agent.EvacStay && w.Rng.Float64() < 0.15 {
				s.setEvac(a, agent.EvacHelping, ps)
			}
		}
	}
}

func clampDial(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
