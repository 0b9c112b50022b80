package main

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// Island is a fixed platform with an optional spawner and a bed anchor
type Island struct {
	Index     int
	Center    BlockPos
	BedAnchor BlockPos
	Spawner   *Spawner
	Occupant  string // player id, "" when free
}

// World is the block store plus the generated island and spawner layout
type World struct {
	Blocks   *BlockStore
	Islands  []*Island
	Spawners []*Spawner
}

// WorldGenConfig controls the deterministic layout
type WorldGenConfig struct {
	IslandCount  int     `yaml:"island_count"`
	IslandRadius int     `yaml:"island_radius"` // half-width of a player platform
	RingRadius   float64 `yaml:"ring_radius"`   // distance from the centre island
	CenterRadius int     `yaml:"center_radius"`

	IronInterval    time.Duration `yaml:"iron_interval"`
	GoldInterval    time.Duration `yaml:"gold_interval"`
	DiamondInterval time.Duration `yaml:"diamond_interval"`
	EmeraldInterval time.Duration `yaml:"emerald_interval"`
}

// DefaultWorldGen returns the standard eight-island ring
func DefaultWorldGen() WorldGenConfig {
	return WorldGenConfig{
		IslandCount:     8,
		IslandRadius:    3,
		RingRadius:      36,
		CenterRadius:    4,
		IronInterval:    time.Second,
		GoldInterval:    4 * time.Second,
		DiamondInterval: 15 * time.Second,
		EmeraldInterval: 30 * time.Second,
	}
}

// GenerateWorld builds the island ring. The output depends only on cfg.
func GenerateWorld(cfg WorldGenConfig) *World {
	w := &World{Blocks: NewBlockStore()}

	for i := 0; i < cfg.IslandCount; i++ {
		angle := 2 * math.Pi * float64(i) / float64(cfg.IslandCount)
		c := BlockPos{
			X: int(math.Round(math.Cos(angle) * cfg.RingRadius)),
			Y: 0,
			Z: int(math.Round(math.Sin(angle) * cfg.RingRadius)),
		}
		w.platform(c, cfg.IslandRadius)

		// Bed sits on the inward edge, spawner on the outward edge.
		in := inward(c)
		bed := c.Add(in[0]*(cfg.IslandRadius-1), 1, in[1]*(cfg.IslandRadius-1))
		sp := &Spawner{
			Pos:      c.Add(-in[0]*(cfg.IslandRadius-1), 1, -in[1]*(cfg.IslandRadius-1)).Center(),
			Resource: Iron,
			Interval: cfg.IronInterval,
		}
		w.Spawners = append(w.Spawners, sp)
		w.Islands = append(w.Islands, &Island{
			Index:     i,
			Center:    c,
			BedAnchor: bed,
			Spawner:   sp,
		})
	}

	origin := BlockPos{}
	w.platform(origin, cfg.CenterRadius)
	w.Spawners = append(w.Spawners,
		&Spawner{Pos: origin.Add(-2, 1, 0).Center(), Resource: Gold, Interval: cfg.GoldInterval},
		&Spawner{Pos: origin.Add(2, 1, 0).Center(), Resource: Diamond, Interval: cfg.DiamondInterval},
		&Spawner{Pos: origin.Add(0, 1, 0).Center(), Resource: Emerald, Interval: cfg.EmeraldInterval},
	)
	for i, sp := range w.Spawners {
		sp.Index = i
	}
	return w
}

// platform lays a square grass slab with an end stone underside
func (w *World) platform(c BlockPos, r int) {
	for dx := -r; dx <= r; dx++ {
		for dz := -r; dz <= r; dz++ {
			w.Blocks.Place(c.Add(dx, 0, dz), ItemGrass)
			w.Blocks.Place(c.Add(dx, -1, dz), ItemEndStone)
		}
	}
}

// inward returns the unit grid step from c toward the origin on its dominant axis
func inward(c BlockPos) [2]int {
	if abs(c.X) >= abs(c.Z) {
		return [2]int{-sign(c.X), 0}
	}
	return [2]int{0, -sign(c.Z)}
}

// FreeIsland returns the lowest-index unoccupied island, nil if all are taken
func (w *World) FreeIsland() *Island {
	for _, is := range w.Islands {
		if is.Occupant == "" {
			return is
		}
	}
	return nil
}

// IslandOf returns the island occupied by playerID
func (w *World) IslandOf(playerID string) *Island {
	for _, is := range w.Islands {
		if is.Occupant == playerID {
			return is
		}
	}
	return nil
}

// Release frees the island held by playerID
func (w *World) Release(playerID string) {
	if is := w.IslandOf(playerID); is != nil {
		is.Occupant = ""
	}
}

// SpawnPoint returns the player eye position above a bed anchor
func SpawnPoint(anchor BlockPos) mgl64.Vec3 {
	return anchor.Center().Add(RespawnOffset)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
