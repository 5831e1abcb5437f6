// World generation: terrain from layered simplex noise, a road lattice,
// buildings snapped next to roads, and a seeded population with profiles.
// Pure, deterministic given the seed; no ongoing behavior.
package world

import (
	"fmt"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/machitown/disaster-sim/internal/domain/agent"
	"github.com/machitown/disaster-sim/internal/domain/building"
)

// Size selects a world/population preset.
type Size string

const (
	SizeSmall  Size = "SMALL"
	SizeMedium Size = "MEDIUM"
	SizeLarge  Size = "LARGE"
)

// Terrain selects the geographic layout.
type Terrain string

const (
	TerrainCoastal   Terrain = "COASTAL"
	TerrainInland    Terrain = "INLAND"
	TerrainRiverside Terrain = "RIVERSIDE"
	TerrainMountain  Terrain = "MOUNTAIN"
)

// Disaster is the scenario hazard. It flavors names/events; the diffusion
// model itself is hazard-agnostic.
type Disaster string

const (
	DisasterTsunami    Disaster = "TSUNAMI"
	DisasterEarthquake Disaster = "EARTHQUAKE"
	DisasterFlood      Disaster = "FLOOD"
	DisasterMeteor     Disaster = "METEOR"
)

// Preset holds the numeric parameters for one Size.
type Preset struct {
	Width      int
	Height     int
	Population int
	Buildings  int
	Shelters   int
}

// Presets maps every Size to its parameters.
var Presets = map[Size]Preset{
	SizeSmall:  {Width: 28, Height: 20, Population: 60, Buildings: 14, Shelters: 2},
	SizeMedium: {Width: 40, Height: 28, Population: 120, Buildings: 24, Shelters: 3},
	SizeLarge:  {Width: 56, Height: 36, Population: 200, Buildings: 40, Shelters: 5},
}

// GenConfig is the input for world generation.
type GenConfig struct {
	Size     Size     `json:"size"`
	Terrain  Terrain  `json:"terrain"`
	Disaster Disaster `json:"disaster"`
	Seed     int64    `json:"seed"`
}

var firstNames = []string{
	"Haruto", "Yui", "Sota", "Mei", "Ren", "Aoi", "Kaito", "Hina", "Riku",
	"Sakura", "Daichi", "Ema", "Takeru", "Nao", "Kenta", "Miyu", "Shun",
	"Rin", "Tsubasa", "Kanna",
}

var lastNames = []string{
	"Sato", "Suzuki", "Takahashi", "Tanaka", "Watanabe", "Ito", "Yamamoto",
	"Nakamura", "Kobayashi", "Kato", "Yoshida", "Yamada", "Sasaki", "Mori",
}

var jobs = []string{
	"fisherman", "office worker", "shop clerk", "student", "retiree",
	"nurse", "teacher", "delivery driver", "farmer", "engineer",
}

// Generate builds a complete initial world for the configuration. The same
// seed always yields the same world.
func Generate(cfg GenConfig) (*World, error) {
	preset, ok := Presets[cfg.Size]
	if !ok {
		return nil, fmt.Errorf("unknown size preset %q", cfg.Size)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	rng := rand.New(rand.NewSource(seed))
	elevNoise := opensimplex.NewNormalized(seed)

	w := &World{
		Width:     preset.Width,
		Height:    preset.Height,
		Tiles:     make([]TileType, preset.Width*preset.Height),
		Buildings: make(map[string]*building.Building, preset.Buildings),
		Agents:    make(map[string]*agent.Agent, preset.Population),
		Tick:      0,
		Rng:       rng,
	}

	layTerrain(w, cfg.Terrain, elevNoise)
	layRoads(w)
	placeBuildings(w, preset, rng)
	spawnPopulation(w, preset, rng)

	return w, nil
}

func layTerrain(w *World, terrain Terrain, noise opensimplex.Noise) {
	for y := 0; y < w.Height; y++ {
		for x := 0; x < w.Width; x++ {
			elev := noise.Eval2(float64(x)*0.12, float64(y)*0.12)
			tile := TileGrass
			if elev > 0.82 {
				tile = TilePark
			}

			switch terrain {
			case TerrainCoastal:
				// Shoreline along the eastern edge, roughened by noise.
				coast := float64(w.Width) * (0.86 - 0.08*elev)
				if float64(x) > coast {
					tile = TileWater
				}
			case TerrainRiverside:
				river := w.Width/2 + int(3*elev) - 1
				if x == river || x == river+1 {
					tile = TileWater
				}
			case TerrainMountain:
				if elev > 0.72 && y < w.Height/3 {
					tile = TileMountain
				}
			case TerrainInland:
				// No special features; occasional park from high elevation.
			}

			w.Tiles[y*w.Width+x] = tile
		}
	}
}

func layRoads(w *World) {
	for y := 2; y < w.Height-1; y += 5 {
		for x := 0; x < w.Width; x++ {
			if w.TileAt(x, y) == TileGrass || w.TileAt(x, y) == TilePark {
				w.Tiles[y*w.Width+x] = TileRoadH
			}
		}
	}
	for x := 3; x < w.Width-1; x += 7 {
		for y := 0; y < w.Height; y++ {
			switch w.TileAt(x, y) {
			case TileGrass, TilePark:
				w.Tiles[y*w.Width+x] = TileRoadV
			case TileRoadH:
				w.Tiles[y*w.Width+x] = TileRoadCross
			}
		}
	}
}

func placeBuildings(w *World, preset Preset, rng *rand.Rand) {
	types := []building.Type{
		building.TypeResidential, building.TypeResidential,
		building.TypeResidential, building.TypeOffice, building.TypeStore,
		building.TypeSchool, building.TypeHospital, building.TypeBulletinBoard,
	}
	used := make(map[Pos]bool)

	place := func(id, name string, t building.Type) *building.Building {
		for attempt := 0; attempt < 500; attempt++ {
			x := rng.Intn(w.Width)
			y := rng.Intn(w.Height)
			p := Pos{X: x, Y: y}
			if used[p] || w.TileAt(x, y) != TileGrass {
				continue
			}
			if !nextToRoad(w, x, y) {
				continue
			}
			used[p] = true
			b := building.New(id, name, t, x, y)
			w.Buildings[id] = b
			return b
		}
		return nil
	}

	count := 0
	for i := 0; i < preset.Shelters; i++ {
		count++
		b := place(fmt.Sprintf("B%03d", count), fmt.Sprintf("Shelter %d", i+1), building.TypeShelter)
		if b != nil {
			b.Capacity = preset.Population/(preset.Shelters+1) + 5
			b.RecomputeStatus()
		}
	}
	for count < preset.Buildings {
		count++
		t := types[rng.Intn(len(types))]
		place(fmt.Sprintf("B%03d", count), fmt.Sprintf("%s %d", t, count), t)
	}
}

func nextToRoad(w *World, x, y int) bool {
	for _, d := range cardinal {
		if IsRoad(w.TileAt(x+d[0], y+d[1])) {
			return true
		}
	}
	return false
}

func spawnPopulation(w *World, preset Preset, rng *rand.Rand) {
	for i := 0; i < preset.Population; i++ {
		id := fmt.Sprintf("A%03d", i+1)
		name := firstNames[rng.Intn(len(firstNames))] + " " + lastNames[rng.Intn(len(lastNames))]
		job := jobs[rng.Intn(len(jobs))]
		profile := rollProfile(rng)

		x, y := randomWalkableTile(w, rng)
		w.Agents[id] = agent.New(id, name, job, profile, x, y)
	}
}

func rollProfile(rng *rand.Rand) agent.Profile {
	p := agent.Profile{
		AgeGroup:       agent.AgeAdult,
		Mobility:       agent.MobilityNormal,
		Language:       "ja",
		HearingOK:      true,
		Household:      "family",
		Role:           agent.RoleResident,
		Trust:          40 + rng.Intn(51),
		Susceptibility: 20 + rng.Intn(61),
	}

	switch r := rng.Float64(); {
	case r < 0.15:
		p.AgeGroup = agent.AgeChild
		p.Household = "family"
	case r < 0.40:
		p.AgeGroup = agent.AgeElderly
		p.Household = "elderly_couple"
	default:
		if rng.Float64() < 0.3 {
			p.Household = "single"
		}
	}

	if p.AgeGroup == agent.AgeElderly {
		if rng.Float64() < 0.4 {
			p.Mobility = agent.MobilitySlow
		}
		if rng.Float64() < 0.15 {
			p.Mobility = agent.MobilityNeedsAssist
		}
	} else if rng.Float64() < 0.04 {
		p.Mobility = agent.MobilityNeedsAssist
	}

	if rng.Float64() < 0.08 {
		p.Language = "en"
	} else if rng.Float64() < 0.04 {
		p.Language = "zh"
	}
	if rng.Float64() < 0.05 {
		p.HearingOK = false
	}

	switch r := rng.Float64(); {
	case r < 0.05:
		p.Role = agent.RoleFirstResponder
	case r < 0.08:
		p.Role = agent.RoleOfficial
	case r < 0.14:
		p.Role = agent.RoleNurse
	case r < 0.20:
		p.Role = agent.RoleTeacher
	case r < 0.30:
		p.Role = agent.RoleShopkeeper
	}

	// Vulnerability tags follow from the rolled traits.
	if p.AgeGroup == agent.AgeElderly {
		p.VulnTags = append(p.VulnTags, "elderly")
	}
	if p.AgeGroup == agent.AgeChild {
		p.VulnTags = append(p.VulnTags, "child")
	}
	if p.Mobility == agent.MobilityNeedsAssist {
		p.VulnTags = append(p.VulnTags, "disabled")
	}
	if p.Language != "ja" {
		p.VulnTags = append(p.VulnTags, "foreign")
	}
	if !p.HearingOK {
		p.VulnTags = append(p.VulnTags, "hearing")
	}

	return p
}

func randomWalkableTile(w *World, rng *rand.Rand) (int, int) {
	for attempt := 0; attempt < 1000; attempt++ {
		x := rng.Intn(w.Width)
		y := rng.Intn(w.Height)
		if w.IsWalkable(x, y) {
			return x, y
		}
	}
	return 0, 0
}
