// Package agent defines the core domain entity for town residents.
// This package is PURE and must NOT import any infrastructure packages
// (network, sim, platform).
package agent

// AgeGroup classifies a resident by life stage.
type AgeGroup string

const (
	AgeChild   AgeGroup = "child"
	AgeAdult   AgeGroup = "adult"
	AgeElderly AgeGroup = "elderly"
)

// Mobility classifies how freely a resident can move on their own.
type Mobility string

const (
	MobilityNormal      Mobility = "normal"
	MobilitySlow        Mobility = "slow"
	MobilityNeedsAssist Mobility = "needs_assist"
)

// Role is the resident's function in the town.
type Role string

const (
	RoleResident       Role = "resident"
	RoleFirstResponder Role = "first_responder"
	RoleOfficial       Role = "official"
	RoleShopkeeper     Role = "shopkeeper"
	RoleTeacher        Role = "teacher"
	RoleNurse          Role = "nurse"
)

// Mood reflects the resident's emotional state, derived from stress.
type Mood string

const (
	MoodCalm    Mood = "calm"
	MoodAnxious Mood = "anxious"
	MoodPanic   Mood = "panic"
	MoodHelpful Mood = "helpful"
)

// AlertStatus is the resident's current belief state about the disaster.
type AlertStatus string

const (
	AlertNone     AlertStatus = "NONE"
	AlertRumor    AlertStatus = "RUMOR"
	AlertOfficial AlertStatus = "OFFICIAL"
)

// EvacStatus is the resident's behavioral stance.
type EvacStatus string

const (
	EvacStay       EvacStatus = "STAY"
	EvacEvacuating EvacStatus = "EVACUATING"
	EvacSheltered  EvacStatus = "SHELTERED"
	EvacHelping    EvacStatus = "HELPING"
)

// Activity is the resident's mundane daily occupation for the current tick.
type Activity string

const (
	ActivitySleep     Activity = "sleep"
	ActivityCommute   Activity = "commute"
	ActivityWork      Activity = "work"
	ActivitySchool    Activity = "school"
	ActivityHome      Activity = "home"
	ActivityLeisure   Activity = "leisure"
	ActivityEmergency Activity = "emergency"
)

// Profile holds the immutable traits assigned at world generation.
type Profile struct {
	AgeGroup       AgeGroup `json:"age_group"`
	Mobility       Mobility `json:"mobility"`
	Language       string   `json:"language"` // "ja", "en", ...
	HearingOK      bool     `json:"hearing_ok"`
	Household      string   `json:"household"` // "single", "family", "elderly_couple"
	Role           Role     `json:"role"`
	VulnTags       []string `json:"vuln_tags"`      // e.g. "elderly", "disabled", "foreign"
	Trust          int      `json:"trust"`          // 0-100, toward official information
	Susceptibility int      `json:"susceptibility"` // 0-100, to rumors
}

// Agent represents one simulated resident. Agents are created once at world
// generation and never destroyed; only mutable fields change afterwards.
type Agent struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Job     string  `json:"job"`
	Profile Profile `json:"profile"`

	// Mutable state
	Mood   Mood    `json:"mood"`
	Stress float64 `json:"stress"` // 0-100
	Energy float64 `json:"energy"` // 0-100

	AlertStatus AlertStatus `json:"alert_status"`
	EvacStatus  EvacStatus  `json:"evac_status"`
	Activity    Activity    `json:"activity"`

	Goal       string `json:"goal,omitempty"`
	Plan       string `json:"plan,omitempty"`
	Reflection string `json:"reflection,omitempty"`
	Bubble     string `json:"bubble,omitempty"`
	BubbleIcon string `json:"bubble_icon,omitempty"`

	X int `json:"x"`
	Y int `json:"y"`
}

// New creates a fresh agent with calm defaults at the given position.
func New(id, name, job string, profile Profile, x, y int) *Agent {
	return &Agent{
		ID:          id,
		Name:        name,
		Job:         job,
		Profile:     profile,
		Mood:        MoodCalm,
		Stress:      10,
		Energy:      80,
		AlertStatus: AlertNone,
		EvacStatus:  EvacStay,
		Activity:    ActivityHome,
		X:           x,
		Y:           y,
	}
}

// AdjustStress applies a stress delta, clamps to [0,100] and re-derives mood.
// Mood is a pure function of stress: >=80 panic, >=60 anxious, <=30 calm,
// otherwise it keeps its previous value (a helpful agent stays helpful in the
// mid band).
func (a *Agent) AdjustStress(delta float64) {
	a.Stress += delta
	if a.Stress < 0 {
		a.Stress = 0
	}
	if a.Stress > 100 {
		a.Stress = 100
	}
	switch {
	case a.Stress >= 80:
		a.Mood = MoodPanic
	case a.Stress >= 60:
		a.Mood = MoodAnxious
	case a.Stress <= 30:
		a.Mood = MoodCalm
	}
}

// IsVulnerable reports whether the agent carries any vulnerability tag.
func (a *Agent) IsVulnerable() bool {
	return len(a.Profile.VulnTags) > 0
}

// HasVulnTag reports whether the agent carries a specific vulnerability tag.
func (a *Agent) HasVulnTag(tag string) bool {
	for _, t := range a.Profile.VulnTags {
		if t == tag {
			return true
		}
	}
	return false
}

// MobilityHoldFactor is the base movement multiplier for the mobility class.
func (a *Agent) MobilityHoldFactor() float64 {
	switch a.Profile.Mobility {
	case MobilitySlow:
		return 0.6
	case MobilityNeedsAssist:
		return 0.35
	default:
		return 1.0
	}
}
