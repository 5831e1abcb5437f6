package sim

import (
	"github.com/machitown/disaster-sim/internal/domain/agent"
	"github.com/machitown/disaster-sim/internal/world"
)

// Metrics are the nine population-level indicators, each in [0,100]. They
// are recomputed wholesale from world state every tick, never patched
// incrementally, so they cannot drift.
type Metrics struct {
	Confusion             float64 `json:"confusion"`
	RumorSpread           float64 `json:"rumor_spread"`
	OfficialReach         float64 `json:"official_reach"`
	VulnerableReach       float64 `json:"vulnerable_reach"`
	PanicIndex            float64 `json:"panic_index"`
	TrustIndex            float64 `json:"trust_index"`
	MisinfoBelief         float64 `json:"misinfo_belief"`
	ResourceMisallocation float64 `json:"resource_misallocation"`
	StabilityScore        float64 `json:"stability_score"`
}

// AsMap returns the metrics keyed by their JSON names, for peak tracking and
// persistence.
func (m Metrics) AsMap() map[string]float64 {
	return map[string]float64{
		"confusion":              m.Confusion,
		"rumor_spread":           m.RumorSpread,
		"official_reach":         m.OfficialReach,
		"vulnerable_reach":       m.VulnerableReach,
		"panic_index":            m.PanicIndex,
		"trust_index":            m.TrustIndex,
		"misinfo_belief":         m.MisinfoBelief,
		"resource_misallocation": m.ResourceMisallocation,
		"stability_score":        m.StabilityScore,
	}
}

// ComputeMetrics derives all nine indicators from the current world state.
// Pure: calling it twice on the same world yields identical values.
func ComputeMetrics(w *world.World, dials Dials) Metrics {
	var m Metrics
	total := len(w.Agents)
	if total == 0 {
		return m
	}

	var (
		rumorCount, officialCount int
		panicCount                int
		stressSum, trustSum       float64
		vulnTotal, vulnReached    int
		vulnWaiting               int
		nonVulnActive             int
		misinfoCount              int
	)

	for _, a := range w.Agents {
		stressSum += a.Stress
		trustSum += float64(a.Profile.Trust)

		switch a.AlertStatus {
		case agent.AlertRumor:
			rumorCount++
			if a.Stress > misinfoStressCutoff {
				misinfoCount++
			}
		case agent.AlertOfficial:
			officialCount++
		}

		if a.Mood == agent.MoodPanic {
			panicCount++
		}

		active := a.EvacStatus == agent.EvacEvacuating ||
			a.EvacStatus == agent.EvacSheltered ||
			a.EvacStatus == agent.EvacHelping

		if a.IsVulnerable() {
			vulnTotal++
			if active {
				vulnReached++
			}
			if a.EvacStatus == agent.EvacStay {
				vulnWaiting++
			}
		} else if a.EvacStatus == agent.EvacEvacuating || a.EvacStatus == agent.EvacHelping {
			nonVulnActive++
		}
	}

	n := float64(total)
	rumorRatio := float64(rumorCount) / n
	officialRatio := float64(officialCount) / n
	avgStress := stressSum / n
	avgTrust := trustSum / n
	panicRatio := float64(panicCount) / n

	m.RumorSpread = clamp100(rumorRatio * 100)
	m.OfficialReach = clamp100(officialRatio * 100)

	confusionBase := confusionRumorWeight*rumorRatio*100 +
		confusionStressWeight*avgStress +
		confusionOfficialWeight*(100-officialRatio*100)
	confusionAmp := 0.8 + 0.2*float64(dials.Ambiguity)/100 + 0.2*float64(dials.Misinfo)/100
	m.Confusion = clamp100(confusionBase * confusionAmp)

	if vulnTotal == 0 {
		m.VulnerableReach = 100
	} else {
		m.VulnerableReach = clamp100(float64(vulnReached) / float64(vulnTotal) * 100)
	}

	m.PanicIndex = clamp100(panicStressWeight*avgStress + panicMoodWeight*panicRatio*100)

	m.TrustIndex = clamp100(avgTrust *
		(0.5 + 0.5*officialRatio) *
		(1 - 0.3*rumorRatio) *
		(1 - 0.2*float64(dials.Ambiguity)/100))

	m.MisinfoBelief = clamp100(float64(misinfoCount) / n * 100)

	waiting := vulnWaiting
	if waiting < 1 {
		waiting = 1
	}
	misallocBase := float64(nonVulnActive) / float64(waiting) * 20
	m.ResourceMisallocation = clamp100(misallocBase * (1 + 0.5*rumorRatio))

	m.StabilityScore = clamp100(
		wOfficialReach*m.OfficialReach +
			wVulnerableReach*m.VulnerableReach +
			wLowConfusion*(100-m.Confusion) +
			wLowRumor*(100-m.RumorSpread) +
			wLowPanic*(100-m.PanicIndex) +
			wTrust*m.TrustIndex +
			wLowMisinfo*(100-m.MisinfoBelief) +
			wLowMisalloc*(100-m.ResourceMisallocation))

	return m
}

// Peak records the maximum observed value of one metric and when it occurred.
type Peak struct {
	Value float64 `json:"value"`
	Tick  int64   `json:"tick"`
}

// MetricPeaks tracks running per-metric maxima for end-of-run reporting.
type MetricPeaks map[string]Peak

// Observe updates the peaks with a freshly computed set of metrics.
func (p MetricPeaks) Observe(m Metrics, tick int64) {
	for name, value := range m.AsMap() {
		if cur, ok := p[name]; !ok || value > cur.Value {
			p[name] = Peak{Value: value, Tick: tick}
		}
	}
}
