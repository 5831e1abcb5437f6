package sim

import (
	"github.com/machitown/disaster-sim/internal/domain/agent"
	"github.com/machitown/disaster-sim/internal/world"
)

// stepDiffusion runs rumor/official spread between nearby agents, the auto
// fact-check pass, and passive stress drift. Spreaders are snapshotted at
// entry so a status acquired this tick does not chain within the same tick.
func (s *Session) stepDiffusion() PatchSet {
	ps := NewPatchSet()
	w := s.w

	var spreaders []*agent.Agent
	for _, a := range w.Agents {
		if a.AlertStatus == agent.AlertRumor || a.AlertStatus == agent.AlertOfficial {
			spreaders = append(spreaders, a)
		}
	}

	for _, src := range spreaders {
		if src.AlertStatus == agent.AlertRumor {
			s.spreadRumor(src, ps)
		} else {
			s.spreadOfficial(src, ps)
		}
	}

	s.autoFactCheck(ps)
	s.stressDrift(ps)

	return ps
}

func (s *Session) spreadRumor(src *agent.Agent, ps PatchSet) {
	w := s.w
	amp := 0.7 + 0.3*float64(s.dials.Ambiguity)/100 + 0.3*float64(s.dials.Misinfo)/100
	logged := false

	for _, target := range w.AgentsWithin(src.X, src.Y, rumorRadius, src.ID) {
		if target.AlertStatus == agent.AlertRumor {
			continue
		}
		dist := world.Manhattan(src.X, src.Y, target.X, target.Y)
		decay := 1 - float64(dist)/float64(rumorRadius+1)

		chance := float64(target.Profile.Susceptibility) / 100 * 0.3 * decay * amp
		if target.AlertStatus == agent.AlertOfficial {
			chance *= opposingStatusPenalty
		}
		if chance > rumorBaseChanceCap {
			chance = rumorBaseChanceCap
		}
		if w.Rng.Float64() >= chance {
			continue
		}

		s.setAlert(target, agent.AlertRumor, ps)
		bump := rumorStressBase +
			float64(s.dials.Ambiguity)/25 +
			float64(s.dials.Misinfo)/25
		s.adjustStress(target, bump, ps)

		if target.Profile.Mobility != agent.MobilityNeedsAssist &&
			target.EvacStatus == agent.EvacStay &&
			w.Rng.Float64() < rumorForcesEvacChance {
			s.setEvac(target, agent.EvacEvacuating, ps)
		}

		if !logged {
			e := NewEvent(w.Tick, EventRumor)
			e.ActorID = src.ID
			e.TargetID = target.ID
			e.Pos = &world.Pos{X: target.X, Y: target.Y}
			e.Message = src.Name + " passed on an unverified warning"
			s.record(e)
			logged = true
		}
	}
}

func (s *Session) spreadOfficial(src *agent.Agent, ps PatchSet) {
	w := s.w
	amp := 0.7 + 0.6*float64(s.dials.FactCheckSpeed)/100
	logged := false

	for _, target := range w.AgentsWithin(src.X, src.Y, officialRadius, src.ID) {
		if target.AlertStatus == agent.AlertOfficial {
			continue
		}
		dist := world.Manhattan(src.X, src.Y, target.X, target.Y)
		decay := 1 - float64(dist)/float64(officialRadius+1)

		chance := float64(target.Profile.Trust) / 100 * 0.35 * decay * amp
		if target.AlertStatus == agent.AlertRumor {
			chance *= opposingStatusPenalty
		}
		if chance > officialBaseChanceCap {
			chance = officialBaseChanceCap
		}
		if w.Rng.Float64() >= chance {
			continue
		}

		s.setAlert(target, agent.AlertOfficial, ps)
		relief := officialStressBase + float64(s.dials.FactCheckSpeed)/30
		s.adjustStress(target, -relief, ps)

		if target.IsVulnerable() && target.EvacStatus == agent.EvacStay &&
			w.Rng.Float64() < officialStartsEvacChance {
			s.setEvac(target, agent.EvacEvacuating, ps)
		}

		if !logged {
			e := NewEvent(w.Tick, EventOfficial)
			e.ActorID = src.ID
			e.TargetID = target.ID
			e.Pos = &world.Pos{X: target.X, Y: target.Y}
			e.Message = src.Name + " relayed the official advisory"
			s.record(e)
			logged = true
		}
	}
}

// autoFactCheck converts a small sample of rumor holders to official status
// once the official-information delay has elapsed, faster when rumor spread
// is high and fact-checking is well resourced.
func (s *Session) autoFactCheck(ps PatchSet) {
	w := s.w
	if w.Tick <= s.tuning.OfficialDelay {
		return
	}

	chance := 0.04 +
		0.10*float64(s.dials.FactCheckSpeed)/100 +
		0.06*s.metrics.RumorSpread/100

	converted := 0
	for _, a := range w.Agents {
		if converted >= factCheckSampleCap {
			break
		}
		if a.AlertStatus != agent.AlertRumor {
			continue
		}
		if w.Rng.Float64() >= chance {
			continue
		}
		s.setAlert(a, agent.AlertOfficial, ps)
		s.adjustStress(a, -2, ps)
		converted++
	}
}

// stressDrift nudges a 25% sample of agents toward higher stress under high
// confusion / low official reach, and toward lower stress otherwise.
func (s *Session) stressDrift(ps PatchSet) {
	w := s.w
	drift := (s.metrics.Confusion/100 -
		s.metrics.OfficialReach/100 -
		float64(s.dials.FactCheckSpeed)/200) * stressDriftGain

	if drift > -stressDriftDeadband && drift < stressDriftDeadband {
		return
	}

	for _, a := range w.Agents {
		if w.Rng.Float64() >= stressDriftSampleRate {
			continue
		}
		s.adjustStress(a, drift, ps)
	}
}
