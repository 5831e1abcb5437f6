// Package building defines the core domain entity for town buildings.
// This package is PURE and must NOT import any infrastructure packages.
package building

// Type identifies what a building is used for.
type Type string

const (
	TypeResidential   Type = "residential"
	TypeOffice        Type = "office"
	TypeSchool        Type = "school"
	TypeHospital      Type = "hospital"
	TypeShelter       Type = "shelter"
	TypeStore         Type = "store"
	TypeBulletinBoard Type = "bulletin_board"
)

// Status is the building's operational state.
type Status string

const (
	StatusOpen    Status = "OPEN"
	StatusClosed  Status = "CLOSED"
	StatusCrowded Status = "CROWDED"
)

// CrowdedRatio is the occupancy/capacity threshold at which a shelter reads
// as crowded.
const CrowdedRatio = 0.9

// Building represents one structure on the grid. Only shelter-class buildings
// carry a capacity; Capacity==0 means "no defined capacity".
type Building struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      Type   `json:"type"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Status    Status `json:"status"`
	Closed    bool   `json:"closed"`
	Capacity  int    `json:"capacity,omitempty"`
	Occupancy int    `json:"occupancy,omitempty"`
}

// New creates an open building of the given type.
func New(id, name string, t Type, x, y int) *Building {
	return &Building{ID: id, Name: name, Type: t, X: x, Y: y, Status: StatusOpen}
}

// IsShelterClass reports whether the building can admit evacuees.
func (b *Building) IsShelterClass() bool {
	return b.Type == TypeShelter
}

// HasCapacity reports whether a capacity limit is defined.
func (b *Building) HasCapacity() bool {
	return b.Capacity > 0
}

// IsFull reports whether the building cannot admit another occupant.
func (b *Building) IsFull() bool {
	return b.HasCapacity() && b.Occupancy >= b.Capacity
}

// Admit increments occupancy by one, capped at capacity, and recomputes
// status. It returns false when the building is closed or already full.
func (b *Building) Admit() bool {
	if b.Closed || b.IsFull() {
		b.RecomputeStatus()
		return false
	}
	b.Occupancy++
	if b.HasCapacity() && b.Occupancy > b.Capacity {
		b.Occupancy = b.Capacity
	}
	b.RecomputeStatus()
	return true
}

// RecomputeStatus derives status from the closed flag and the 90% occupancy
// rule. CLOSED wins over CROWDED.
func (b *Building) RecomputeStatus() {
	switch {
	case b.Closed:
		b.Status = StatusClosed
	case b.HasCapacity() && float64(b.Occupancy) >= CrowdedRatio*float64(b.Capacity):
		b.Status = StatusCrowded
	default:
		b.Status = StatusOpen
	}
}
