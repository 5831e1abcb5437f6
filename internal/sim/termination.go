package sim

// EndReason says why a run terminated.
type EndReason string

const (
	EndStabilized EndReason = "STABILIZED"
	EndEscalated  EndReason = "ESCALATED"
	EndTimeLimit  EndReason = "TIME_LIMIT"
)

// Victory thresholds: a tick is "stable" only when all nine metrics satisfy
// these simultaneously.
const (
	stableConfusionMax  = 35.0
	stableRumorMax      = 30.0
	stableOfficialMin   = 60.0
	stableVulnerableMin = 60.0
	stablePanicMax      = 40.0
	stableTrustMin      = 55.0
	stableMisinfoMax    = 25.0
	stableMisallocMax   = 40.0
	stableStabilityMin  = 65.0
)

// Crisis thresholds: a tick is "escalated" when five metrics are past these
// simultaneously.
const (
	crisisPanicMin     = 85.0
	crisisConfusionMin = 85.0
	crisisRumorMin     = 80.0
	crisisTrustMax     = 15.0
	crisisStabilityMax = 20.0
)

// TerminationDetector tracks rolling windows of metric thresholds. Either
// consecutive-tick counter resets to zero on any tick that fails its
// predicate; the hard tick ceiling is checked independently.
type TerminationDetector struct {
	stableWindow   int
	escalateWindow int
	maxTicks       int64

	stableRun   int
	escalateRun int
}

// NewTerminationDetector builds a detector with the configured windows.
func NewTerminationDetector(stableWindow, escalateWindow int, maxTicks int64) *TerminationDetector {
	return &TerminationDetector{
		stableWindow:   stableWindow,
		escalateWindow: escalateWindow,
		maxTicks:       maxTicks,
	}
}

// IsStable reports whether all nine metrics are within victory thresholds.
func IsStable(m Metrics) bool {
	return m.Confusion <= stableConfusionMax &&
		m.RumorSpread <= stableRumorMax &&
		m.OfficialReach >= stableOfficialMin &&
		m.VulnerableReach >= stableVulnerableMin &&
		m.PanicIndex <= stablePanicMax &&
		m.TrustIndex >= stableTrustMin &&
		m.MisinfoBelief <= stableMisinfoMax &&
		m.ResourceMisallocation <= stableMisallocMax &&
		m.StabilityScore >= stableStabilityMin
}

// IsEscalated reports whether the five crisis metrics are all past their
// thresholds.
func IsEscalated(m Metrics) bool {
	return m.PanicIndex >= crisisPanicMin &&
		m.Confusion >= crisisConfusionMin &&
		m.RumorSpread >= crisisRumorMin &&
		m.TrustIndex <= crisisTrustMax &&
		m.StabilityScore <= crisisStabilityMax
}

// Observe feeds one tick's metrics into the detector. It returns a terminal
// reason and true the first tick termination is reached.
func (d *TerminationDetector) Observe(m Metrics, tick int64) (EndReason, bool) {
	if IsStable(m) {
		d.stableRun++
	} else {
		d.stableRun = 0
	}
	if IsEscalated(m) {
		d.escalateRun++
	} else {
		d.escalateRun = 0
	}

	if d.stableRun >= d.stableWindow {
		return EndStabilized, true
	}
	if d.escalateRun >= d.escalateWindow {
		return EndEscalated, true
	}
	if tick >= d.maxTicks {
		return EndTimeLimit, true
	}
	return "", false
}
