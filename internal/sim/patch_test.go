package sim

import "testing"

func TestPatchSetMergeLastWriterWins(t *testing.T) {
	first := NewPatchSet()
	first.Agent("A001").X = intPtr(3)
	first.Agent("A001").Stress = f64Ptr(50)

	second := NewPatchSet()
	second.Agent("A001").X = intPtr(7)
	second.Agent("A001").Mood = strPtr("anxious")

	first.Merge(second)

	p := first.Agents["A001"]
	if *p.X != 7 {
		t.Errorf("Expected later X write to win, got %d", *p.X)
	}
	if p.Stress == nil || *p.Stress != 50 {
		t.Error("Expected untouched field from the first write to survive")
	}
	if p.Mood == nil || *p.Mood != "anxious" {
		t.Error("Expected new field from the second write to land")
	}
}

func TestPatchSetMergeBuildings(t *testing.T) {
	first := NewPatchSet()
	first.Building("B001").Occupancy = intPtr(4)

	second := NewPatchSet()
	second.Building("B001").Occupancy = intPtr(5)
	second.Building("B001").Status = strPtr("CROWDED")

	first.Merge(second)

	p := first.Buildings["B001"]
	if *p.Occupancy != 5 || *p.Status != "CROWDED" {
		t.Errorf("Expected merged building patch occupancy=5 status=CROWDED, got %d %s", *p.Occupancy, *p.Status)
	}
}

func TestPatchSetEmpty(t *testing.T) {
	ps := NewPatchSet()
	if !ps.Empty() {
		t.Error("Expected fresh patch set to be empty")
	}
	ps.Agent("A001")
	if ps.Empty() {
		t.Error("Expected patch set with an entry to be non-empty")
	}
}
