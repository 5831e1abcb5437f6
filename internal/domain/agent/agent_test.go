package agent

import "testing"

func TestAdjustStressDerivesMood(t *testing.T) {
	a := New("A001", "Haruto Sato", "fisherman", Profile{Trust: 60}, 1, 1)

	a.AdjustStress(75) // 10 -> 85
	if a.Mood != MoodPanic {
		t.Errorf("Expected panic at stress %.0f, got %s", a.Stress, a.Mood)
	}

	a.AdjustStress(-20) // 85 -> 65
	if a.Mood != MoodAnxious {
		t.Errorf("Expected anxious at stress %.0f, got %s", a.Stress, a.Mood)
	}

	a.AdjustStress(-40) // 65 -> 25
	if a.Mood != MoodCalm {
		t.Errorf("Expected calm at stress %.0f, got %s", a.Stress, a.Mood)
	}
}

func TestAdjustStressMidBandKeepsMood(t *testing.T) {
	a := New("A002", "Yui Tanaka", "nurse", Profile{}, 0, 0)
	a.Mood = MoodHelpful
	a.Stress = 45

	a.AdjustStress(5) // 50: inside the 30-60 band, mood untouched
	if a.Mood != MoodHelpful {
		t.Errorf("Expected helpful to survive mid-band stress, got %s", a.Mood)
	}
}

func TestAdjustStressClamps(t *testing.T) {
	a := New("A003", "Sota Ito", "student", Profile{}, 0, 0)

	a.AdjustStress(500)
	if a.Stress != 100 {
		t.Errorf("Expected stress capped at 100, got %.1f", a.Stress)
	}
	a.AdjustStress(-500)
	if a.Stress != 0 {
		t.Errorf("Expected stress floored at 0, got %.1f", a.Stress)
	}
}

func TestMobilityHoldFactor(t *testing.T) {
	cases := []struct {
		mobility Mobility
		want     float64
	}{
		{MobilityNormal, 1.0},
		{MobilitySlow, 0.6},
		{MobilityNeedsAssist, 0.35},
	}
	for _, c := range cases {
		a := New("A", "n", "j", Profile{Mobility: c.mobility}, 0, 0)
		if got := a.MobilityHoldFactor(); got != c.want {
			t.Errorf("Expected hold factor %.2f for %s, got %.2f", c.want, c.mobility, got)
		}
	}
}

func TestVulnerabilityTags(t *testing.T) {
	a := New("A004", "Mei Kato", "retiree", Profile{VulnTags: []string{"elderly"}}, 0, 0)
	if !a.IsVulnerable() {
		t.Error("Expected agent with vuln tags to be vulnerable")
	}
	if !a.HasVulnTag("elderly") || a.HasVulnTag("foreign") {
		t.Error("Expected exact tag lookup to match only present tags")
	}

	b := New("A005", "Ren Mori", "engineer", Profile{}, 0, 0)
	if b.IsVulnerable() {
		t.Error("Expected agent without tags to not be vulnerable")
	}
}
