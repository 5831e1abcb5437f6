package world

import (
	"math/rand"
	"testing"

	"github.com/machitown/disaster-sim/internal/domain/agent"
	"github.com/machitown/disaster-sim/internal/domain/building"
)

func flatWorld(width, height int) *World {
	w := &World{
		Width:     width,
		Height:    height,
		Tiles:     make([]TileType, width*height),
		Buildings: make(map[string]*building.Building),
		Agents:    make(map[string]*agent.Agent),
		Rng:       rand.New(rand.NewSource(1)),
	}
	for i := range w.Tiles {
		w.Tiles[i] = TileGrass
	}
	return w
}

func TestTileAtOutOfBoundsReadsWater(t *testing.T) {
	w := flatWorld(4, 4)
	if w.TileAt(-1, 0) != TileWater || w.TileAt(0, 4) != TileWater {
		t.Error("Expected out-of-bounds tiles to read as water")
	}
	if w.IsWalkable(4, 0) {
		t.Error("Expected out-of-bounds tile to be impassable")
	}
}

func TestWalkableNeighborsSkipsWater(t *testing.T) {
	w := flatWorld(3, 3)
	w.Tiles[0*3+1] = TileWater // (1,0)

	neighbors := w.WalkableNeighbors(1, 1)
	if len(neighbors) != 3 {
		t.Fatalf("Expected 3 walkable neighbors, got %d", len(neighbors))
	}
	for _, n := range neighbors {
		if n.X == 1 && n.Y == 0 {
			t.Error("Expected the water tile to be excluded")
		}
	}
}

func TestNearestOpenShelterSkipsClosedAndFull(t *testing.T) {
	w := flatWorld(10, 10)

	near := building.New("B1", "Near", building.TypeShelter, 1, 1)
	near.Capacity = 1
	near.Occupancy = 1

	closed := building.New("B2", "Closed", building.TypeShelter, 2, 2)
	closed.Closed = true

	far := building.New("B3", "Far", building.TypeShelter, 8, 8)
	far.Capacity = 5

	w.Buildings["B1"] = near
	w.Buildings["B2"] = closed
	w.Buildings["B3"] = far

	got := w.NearestOpenShelter(0, 0)
	if got == nil || got.ID != "B3" {
		t.Errorf("Expected the far open shelter to be chosen, got %v", got)
	}
}

func TestStepTowardReducesDistance(t *testing.T) {
	w := flatWorld(5, 5)
	next, ok := w.StepToward(0, 0, 4, 4)
	if !ok {
		t.Fatal("Expected a walkable step")
	}
	if Manhattan(next.X, next.Y, 4, 4) >= Manhattan(0, 0, 4, 4) {
		t.Errorf("Expected step %v to reduce distance to target", next)
	}
}

func TestHasHelperWithin(t *testing.T) {
	w := flatWorld(6, 6)
	helper := agent.New("H1", "Kaito Mori", "nurse", agent.Profile{}, 2, 2)
	helper.EvacStatus = agent.EvacHelping
	w.Agents["H1"] = helper

	if !w.HasHelperWithin(3, 3, 2) {
		t.Error("Expected helper at distance 2 to be found")
	}
	if w.HasHelperWithin(5, 5, 2) {
		t.Error("Expected no helper within radius 2 of the corner")
	}
}

func TestGenerateSmallPreset(t *testing.T) {
	cfg := GenConfig{Size: SizeSmall, Terrain: TerrainInland, Disaster: DisasterEarthquake, Seed: 42}
	w, err := Generate(cfg)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	preset := Presets[SizeSmall]
	if w.Width != preset.Width || w.Height != preset.Height {
		t.Errorf("Expected %dx%d grid, got %dx%d", preset.Width, preset.Height, w.Width, w.Height)
	}
	if len(w.Agents) != preset.Population {
		t.Errorf("Expected population %d, got %d", preset.Population, len(w.Agents))
	}
	if w.Tick != 0 {
		t.Errorf("Expected fresh world at tick 0, got %d", w.Tick)
	}

	shelters := 0
	for _, b := range w.Buildings {
		if b.IsShelterClass() {
			shelters++
			if b.Capacity <= 0 {
				t.Errorf("Expected shelter %s to carry a capacity", b.ID)
			}
		}
	}
	if shelters != preset.Shelters {
		t.Errorf("Expected %d shelters, got %d", preset.Shelters, shelters)
	}

	for _, a := range w.Agents {
		if !w.IsWalkable(a.X, a.Y) {
			t.Errorf("Expected agent %s to spawn on a walkable tile, got (%d,%d)", a.ID, a.X, a.Y)
		}
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	cfg := GenConfig{Size: SizeSmall, Terrain: TerrainCoastal, Disaster: DisasterTsunami, Seed: 7}
	w1, err := Generate(cfg)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	w2, err := Generate(cfg)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	for i := range w1.Tiles {
		if w1.Tiles[i] != w2.Tiles[i] {
			t.Fatalf("Expected identical terrain for seed %d, tile %d differs", cfg.Seed, i)
		}
	}
	for id, a1 := range w1.Agents {
		a2, ok := w2.Agents[id]
		if !ok {
			t.Fatalf("Expected agent %s in both worlds", id)
		}
		if a1.X != a2.X || a1.Y != a2.Y || a1.Name != a2.Name {
			t.Errorf("Expected agent %s to be identical across generations", id)
		}
	}
}

func TestGenerateRejectsUnknownSize(t *testing.T) {
	if _, err := Generate(GenConfig{Size: "GIGANTIC"}); err == nil {
		t.Error("Expected unknown size preset to be rejected")
	}
}
