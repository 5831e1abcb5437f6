package sim

import (
	"github.com/machitown/disaster-sim/internal/domain/agent"
	"github.com/machitown/disaster-sim/internal/world"
)

// stepShelterFlow handles shelter admission for evacuating agents and the
// extra stress on unescorted needs-assist evacuees. Admission is
// check-then-increment inside the single-threaded tick, so capacity can
// never be overbooked.
func (s *Session) stepShelterFlow() PatchSet {
	ps := NewPatchSet()
	w := s.w

	for _, a := range w.Agents {
		if a.EvacStatus != agent.EvacEvacuating {
			continue
		}

		if a.Profile.Mobility == agent.MobilityNeedsAssist &&
			!w.HasHelperWithin(a.X, a.Y, 2) {
			s.adjustStress(a, unescortedAssistStress, ps)
		}

		b := w.ShelterAdjacentTo(a.X, a.Y)
		if b == nil {
			continue
		}

		if b.IsFull() {
			// Refused at the door: the shelter reads as crowded and the
			// agent has to seek another one.
			b.RecomputeStatus()
			bp := ps.Building(b.ID)
			bp.Status = strPtr(string(b.Status))
			s.adjustStress(a, shelterRefusalStress, ps)
			continue
		}

		if !b.Admit() {
			continue
		}
		bp := ps.Building(b.ID)
		bp.Occupancy = intPtr(b.Occupancy)
		bp.Status = strPtr(string(b.Status))

		s.setEvac(a, agent.EvacSheltered, ps)
		// Arrival implies verified information.
		s.setAlert(a, agent.AlertOfficial, ps)
		s.adjustStress(a, -5, ps)

		e := NewEvent(w.Tick, EventEvacuate)
		e.ActorID = a.ID
		e.TargetID = b.ID
		e.Pos = &world.Pos{X: b.X, Y: b.Y}
		e.Message = a.Name + " reached " + b.Name
		s.record(e)
	}

	return ps
}
