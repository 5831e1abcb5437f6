package sim

// AgentPatch carries the changed fields of one agent for a diff broadcast.
// Nil fields did not change this tick.
type AgentPatch struct {
	X           *int     `json:"x,omitempty"`
	Y           *int     `json:"y,omitempty"`
	Mood        *string  `json:"mood,omitempty"`
	Stress      *float64 `json:"stress,omitempty"`
	Energy      *float64 `json:"energy,omitempty"`
	AlertStatus *string  `json:"alert_status,omitempty"`
	EvacStatus  *string  `json:"evac_status,omitempty"`
	Activity    *string  `json:"activity,omitempty"`
	Goal        *string  `json:"goal,omitempty"`
	Plan        *string  `json:"plan,omitempty"`
	Reflection  *string  `json:"reflection,omitempty"`
	Bubble      *string  `json:"bubble,omitempty"`
	BubbleIcon  *string  `json:"bubble_icon,omitempty"`
}

// BuildingPatch carries the changed fields of one building.
type BuildingPatch struct {
	Status    *string `json:"status,omitempty"`
	Occupancy *int    `json:"occupancy,omitempty"`
	Closed    *bool   `json:"closed,omitempty"`
}

// PatchSet accumulates one tick's worth of entity mutations, keyed by entity
// id. Merging is last-writer-wins per field, so observers always receive a
// single de-duplicated diff per tick.
type PatchSet struct {
	Agents    map[string]*AgentPatch    `json:"agents,omitempty"`
	Buildings map[string]*BuildingPatch `json:"buildings,omitempty"`
}

// NewPatchSet returns an empty patch accumulator.
func NewPatchSet() PatchSet {
	return PatchSet{
		Agents:    make(map[string]*AgentPatch),
		Buildings: make(map[string]*BuildingPatch),
	}
}

// Empty reports whether the set carries no changes.
func (ps PatchSet) Empty() bool {
	return len(ps.Agents) == 0 && len(ps.Buildings) == 0
}

// Agent returns the patch for an agent id, creating it on first use.
func (ps PatchSet) Agent(id string) *AgentPatch {
	p, ok := ps.Agents[id]
	if !ok {
		p = &AgentPatch{}
		ps.Agents[id] = p
	}
	return p
}

// Building returns the patch for a building id, creating it on first use.
func (ps PatchSet) Building(id string) *BuildingPatch {
	p, ok := ps.Buildings[id]
	if !ok {
		p = &BuildingPatch{}
		ps.Buildings[id] = p
	}
	return p
}

// Merge folds other into ps. Later writes win field by field.
func (ps PatchSet) Merge(other PatchSet) {
	for id, in := range other.Agents {
		out := ps.Agent(id)
		mergeAgentPatch(out, in)
	}
	for id, in := range other.Buildings {
		out := ps.Building(id)
		if in.Status != nil {
			out.Status = in.Status
		}
		if in.Occupancy != nil {
			out.Occupancy = in.Occupancy
		}
		if in.Closed != nil {
			out.Closed = in.Closed
		}
	}
}

func mergeAgentPatch(out, in *AgentPatch) {
	if in.X != nil {
		out.X = in.X
	}
	if in.Y != nil {
		out.Y = in.Y
	}
	if in.Mood != nil {
		out.Mood = in.Mood
	}
	if in.Stress != nil {
		out.Stress = in.Stress
	}
	if in.Energy != nil {
		out.Energy = in.Energy
	}
	if in.AlertStatus != nil {
		out.AlertStatus = in.AlertStatus
	}
	if in.EvacStatus != nil {
		out.EvacStatus = in.EvacStatus
	}
	if in.Activity != nil {
		out.Activity = in.Activity
	}
	if in.Goal != nil {
		out.Goal = in.Goal
	}
	if in.Plan != nil {
		out.Plan = in.Plan
	}
	if in.Reflection != nil {
		out.Reflection = in.Reflection
	}
	if in.Bubble != nil {
		out.Bubble = in.Bubble
	}
	if in.BubbleIcon != nil {
		out.BubbleIcon = in.BubbleIcon
	}
}

func strPtr(s string) *string   { return &s }
func intPtr(i int) *int         { return &i }
func f64Ptr(f float64) *float64 { return &f }
func boolPtr(b bool) *bool      { return &b }
