package sim

// Calibrated balance constants. These were tuned by play, not derived from a
// model; change them only with scenario regression runs in hand.
const (
	rumorRadius    = 3
	officialRadius = 2

	rumorBaseChanceCap    = 0.35
	officialBaseChanceCap = 0.40

	opposingStatusPenalty = 0.5

	rumorStressBase    = 4.0
	officialStressBase = 2.0

	rumorForcesEvacChance    = 0.12
	officialStartsEvacChance = 0.30

	greedyAdherence = 0.82

	aiControlHoldFactor = 0.5
	escortBoostFactor   = 1.15

	unescortedAssistStress = 1.5
	shelterRefusalStress   = 2.0

	stressDriftSampleRate = 0.25
	stressDriftGain       = 2.0
	stressDriftDeadband   = 0.05

	factCheckSampleCap = 5

	// Confusion metric weights (rumor ratio / avg stress / official gap).
	confusionRumorWeight    = 0.6
	confusionStressWeight   = 0.2
	confusionOfficialWeight = 0.2

	panicStressWeight = 0.6
	panicMoodWeight   = 0.4

	misinfoStressCutoff = 55.0
)

// Stability score weights; they sum to 1.0.
const (
	wOfficialReach   = 0.20
	wVulnerableReach = 0.20
	wLowConfusion    = 0.15
	wLowRumor        = 0.10
	wLowPanic        = 0.10
	wTrust           = 0.10
	wLowMisinfo      = 0.05
	wLowMisalloc     = 0.10
)

// Dials are the global severity settings for a scenario, each 0-100. They
// are mutable at runtime: interventions nudge them.
type Dials struct {
	Ambiguity      int `json:"ambiguity"`
	Misinfo        int `json:"misinfo"`
	FactCheckSpeed int `json:"fact_check_speed"`
}

// DefaultDials returns the starting severity for a fresh scenario.
func DefaultDials() Dials {
	return Dials{Ambiguity: 55, Misinfo: 50, FactCheckSpeed: 35}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clamp100(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
