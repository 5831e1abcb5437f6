package sim

import (
	"github.com/machitown/disaster-sim/internal/domain/agent"
	"github.com/machitown/disaster-sim/internal/world"
)

// DeriveActivity maps local hour, age group, role and alert/evac state to a
// mundane daily activity. Deterministic: the same inputs always give the
// same activity.
func DeriveActivity(a *agent.Agent, hour int) agent.Activity {
	if a.EvacStatus != agent.EvacStay {
		return agent.ActivityEmergency
	}
	if a.Profile.Role == agent.RoleFirstResponder && a.AlertStatus != agent.AlertNone {
		return agent.ActivityEmergency
	}

	switch {
	case hour < 6 || hour >= 23:
		return agent.ActivitySleep
	case hour < 8:
		return agent.ActivityHome
	case hour < 9:
		if a.Profile.AgeGroup == agent.AgeElderly {
			return agent.ActivityHome
		}
		return agent.ActivityCommute
	case hour < 15:
		switch a.Profile.AgeGroup {
		case agent.AgeChild:
			return agent.ActivitySchool
		case agent.AgeElderly:
			return agent.ActivityLeisure
		default:
			return agent.ActivityWork
		}
	case hour < 17:
		if a.Profile.AgeGroup == agent.AgeAdult {
			return agent.ActivityWork
		}
		return agent.ActivityLeisure
	case hour < 20:
		return agent.ActivityLeisure
	default:
		return agent.ActivityHome
	}
}

// activityMoveFactor is how much an activity keeps an agent on the move.
func activityMoveFactor(act agent.Activity) float64 {
	switch act {
	case agent.ActivitySleep:
		return 0.05
	case agent.ActivityCommute:
		return 0.9
	case agent.ActivityWork, agent.ActivitySchool:
		return 0.2
	case agent.ActivityHome:
		return 0.3
	case agent.ActivityLeisure:
		return 0.6
	case agent.ActivityEmergency:
		return 1.0
	default:
		return 0.3
	}
}

// stepActivityAndMovement runs the per-agent activity derivation and one
// movement attempt, returning the accumulated patches.
func (s *Session) stepActivityAndMovement(hour int) PatchSet {
	ps := NewPatchSet()
	w := s.w

	for _, a := range w.Agents {
		if a.EvacStatus == agent.EvacSheltered {
			continue // sheltered agents stay put
		}

		act := DeriveActivity(a, hour)
		if act != a.Activity {
			a.Activity = act
			ps.Agent(a.ID).Activity = strPtr(string(act))
		}

		prob := a.MobilityHoldFactor() * activityMoveFactor(act)
		if s.aiHold[a.ID] {
			prob *= aiControlHoldFactor
		}
		if a.EvacStatus == agent.EvacEvacuating &&
			a.Profile.Mobility == agent.MobilityNeedsAssist &&
			w.HasHelperWithin(a.X, a.Y, 2) {
			prob *= escortBoostFactor
		}
		prob = clamp01(prob)

		if w.Rng.Float64() >= prob {
			continue
		}

		var next world.Pos
		var ok bool
		if a.EvacStatus == agent.EvacEvacuating {
			next, ok = s.evacStep(a)
		} else {
			next, ok = w.RandomWalkableNeighbor(a.X, a.Y)
		}
		if !ok {
			continue
		}

		a.X, a.Y = next.X, next.Y
		p := ps.Agent(a.ID)
		p.X = intPtr(a.X)
		p.Y = intPtr(a.Y)
	}

	return ps
}

// evacStep picks the next tile for an evacuating agent: greedy toward the
// nearest open shelter with 82% adherence, otherwise a random walkable
// neighbor so crowds do not deadlock on a blocked approach.
func (s *Session) evacStep(a *agent.Agent) (world.Pos, bool) {
	w := s.w
	shelter := w.NearestOpenShelter(a.X, a.Y)
	if shelter == nil || w.Rng.Float64() >= greedyAdherence {
		return w.RandomWalkableNeighbor(a.X, a.Y)
	}
	return w.StepToward(a.X, a.Y, shelter.X, shelter.Y)
}
