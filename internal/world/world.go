// Package world holds the simulation grid and its spatial queries.
package world

import (
	"math/rand"

	"github.com/machitown/disaster-sim/internal/domain/agent"
	"github.com/machitown/disaster-sim/internal/domain/building"
)

// TileType is the terrain category of one grid cell.
type TileType string

const (
	TileGrass     TileType = "grass"
	TileRoadH     TileType = "road_h"
	TileRoadV     TileType = "road_v"
	TileRoadCross TileType = "road_cross"
	TileWater     TileType = "water"
	TilePark      TileType = "park"
	TileMountain  TileType = "mountain"
)

// Pos is a grid coordinate.
type Pos struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// World is the complete mutable simulation state for one session. It is
// owned exclusively by the tick/intervention path; other components read it
// only through query methods.
type World struct {
	Width     int                           `json:"width"`
	Height    int                           `json:"height"`
	Tiles     []TileType                    `json:"tiles"` // row-major, len = Width*Height
	Buildings map[string]*building.Building `json:"buildings"`
	Agents    map[string]*agent.Agent       `json:"agents"`
	Tick      int64                         `json:"tick"`

	Rng *rand.Rand `json:"-"`
}

// InBounds reports whether the coordinate lies on the grid.
func (w *World) InBounds(x, y int) bool {
	return x >= 0 && x < w.Width && y >= 0 && y < w.Height
}

// TileAt returns the tile type at a coordinate. Out-of-bounds reads as water
// so callers treat the edge as impassable.
func (w *World) TileAt(x, y int) TileType {
	if !w.InBounds(x, y) {
		return TileWater
	}
	return w.Tiles[y*w.Width+x]
}

// IsRoad reports whether the tile is any road variant.
func IsRoad(t TileType) bool {
	return t == TileRoadH || t == TileRoadV || t == TileRoadCross
}

// IsWalkable reports whether agents may occupy the tile.
func (w *World) IsWalkable(x, y int) bool {
	switch w.TileAt(x, y) {
	case TileWater, TileMountain:
		return false
	default:
		return true
	}
}

var cardinal = [4][2]int{{0, -1}, {0, 1}, {-1, 0}, {1, 0}}

// WalkableNeighbors returns the walkable 4-neighborhood of a coordinate.
func (w *World) WalkableNeighbors(x, y int) []Pos {
	out := make([]Pos, 0, 4)
	for _, d := range cardinal {
		nx, ny := x+d[0], y+d[1]
		if w.IsWalkable(nx, ny) {
			out = append(out, Pos{X: nx, Y: ny})
		}
	}
	return out
}

// Manhattan returns the L1 distance between two coordinates.
func Manhattan(x1, y1, x2, y2 int) int {
	dx := x1 - x2
	if dx < 0 {
		dx = -dx
	}
	dy := y1 - y2
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}

// AgentsWithin returns agents whose Manhattan distance from (x,y) is at most
// radius, excluding the agent with the given id.
func (w *World) AgentsWithin(x, y, radius int, excludeID string) []*agent.Agent {
	var out []*agent.Agent
	for _, a := range w.Agents {
		if a.ID == excludeID {
			continue
		}
		if Manhattan(a.X, a.Y, x, y) <= radius {
			out = append(out, a)
		}
	}
	return out
}

// HasHelperWithin reports whether any HELPING agent is within radius of (x,y).
func (w *World) HasHelperWithin(x, y, radius int) bool {
	for _, a := range w.Agents {
		if a.EvacStatus == agent.EvacHelping && Manhattan(a.X, a.Y, x, y) <= radius {
			return true
		}
	}
	return false
}

// NearestOpenShelter returns the closest shelter-class building that is not
// closed and not at capacity, or nil when none qualifies.
func (w *World) NearestOpenShelter(x, y int) *building.Building {
	var best *building.Building
	bestDist := int(^uint(0) >> 1)
	for _, b := range w.Buildings {
		if !b.IsShelterClass() || b.Closed || b.IsFull() {
			continue
		}
		d := Manhattan(b.X, b.Y, x, y)
		if d < bestDist {
			best, bestDist = b, d
		}
	}
	return best
}

// ShelterAdjacentTo returns an open shelter-class building within Manhattan
// distance 1 of (x,y), or nil.
func (w *World) ShelterAdjacentTo(x, y int) *building.Building {
	for _, b := range w.Buildings {
		if b.IsShelterClass() && !b.Closed && Manhattan(b.X, b.Y, x, y) <= 1 {
			return b
		}
	}
	return nil
}

// StepToward returns the walkable neighbor of (x,y) that minimizes Manhattan
// distance to (tx,ty). Ties resolve in cardinal order. Returns ok=false when
// no walkable neighbor exists.
func (w *World) StepToward(x, y, tx, ty int) (Pos, bool) {
	neighbors := w.WalkableNeighbors(x, y)
	if len(neighbors) == 0 {
		return Pos{}, false
	}
	best := neighbors[0]
	bestDist := Manhattan(best.X, best.Y, tx, ty)
	for _, n := range neighbors[1:] {
		if d := Manhattan(n.X, n.Y, tx, ty); d < bestDist {
			best, bestDist = n, d
		}
	}
	return best, true
}

// RandomWalkableNeighbor picks a uniformly random walkable neighbor.
func (w *World) RandomWalkableNeighbor(x, y int) (Pos, bool) {
	neighbors := w.WalkableNeighbors(x, y)
	if len(neighbors) == 0 {
		return Pos{}, false
	}
	return neighbors[w.Rng.Intn(len(neighbors))], true
}
