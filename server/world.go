package main

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

// BlockPos is an integer cell coordinate. A cell is centred on its coordinate.
type BlockPos struct {
	X int `json:"x" msgpack:"x"`
	Y int `json:"y" msgpack:"y"`
	Z int `json:"z" msgpack:"z"`
}

// CellOf returns the cell containing world point p
func CellOf(p mgl64.Vec3) BlockPos {
	return BlockPos{
		X: int(math.Floor(p.X() + 0.5)),
		Y: int(math.Floor(p.Y() + 0.5)),
		Z: int(math.Floor(p.Z() + 0.5)),
	}
}

// Center returns the world-space centre of the cell
func (b BlockPos) Center() mgl64.Vec3 {
	return mgl64.Vec3{float64(b.X), float64(b.Y), float64(b.Z)}
}

// Add offsets the cell
func (b BlockPos) Add(dx, dy, dz int) BlockPos {
	return BlockPos{b.X + dx, b.Y + dy, b.Z + dz}
}

// Block is one stored cell, used in world sync frames
type Block struct {
	Pos  BlockPos `json:"p" msgpack:"p"`
	Item Item     `json:"i" msgpack:"i"`
}

// BlockObserver is told about removals, used to route bed loss to its owner
type BlockObserver interface {
	BlockRemoved(pos BlockPos, it Item)
}

// BlockStore is the sparse voxel map. At most one block per coordinate.
type BlockStore struct {
	blocks   map[BlockPos]Item
	observer BlockObserver
}

// NewBlockStore creates an empty store
func NewBlockStore() *BlockStore {
	return &BlockStore{blocks: make(map[BlockPos]Item)}
}

// SetObserver installs the removal observer (nil disables)
func (s *BlockStore) SetObserver(o BlockObserver) {
	s.observer = o
}

// Place inserts a block; false if the cell is occupied
func (s *BlockStore) Place(pos BlockPos, it Item) bool {
	if !it.Valid() {
		return false
	}
	if _, ok := s.blocks[pos]; ok {
		return false
	}
	s.blocks[pos] = it
	return true
}

// Remove deletes the block at pos; false if the cell is empty
func (s *BlockStore) Remove(pos BlockPos) (Item, bool) {
	it, ok := s.blocks[pos]
	if !ok {
		return ItemNone, false
	}
	delete(s.blocks, pos)
	if s.observer != nil {
		s.observer.BlockRemoved(pos, it)
	}
	return it, true
}

// Get returns the block at pos, ItemNone if empty
func (s *BlockStore) Get(pos BlockPos) Item {
	return s.blocks[pos]
}

// Has reports whether pos holds a block
func (s *BlockStore) Has(pos BlockPos) bool {
	_, ok := s.blocks[pos]
	return ok
}

// Solid reports whether world point p lies inside a block
func (s *BlockStore) Solid(p mgl64.Vec3) bool {
	return s.Has(CellOf(p))
}

// Len returns the number of stored blocks
func (s *BlockStore) Len() int {
	return len(s.blocks)
}

// Explode removes every block within radius cells of center (a cube), skipping
// cells for which keep returns true. Returns exactly the removed cells.
func (s *BlockStore) Explode(center BlockPos, radius int, keep func(BlockPos, Item) bool) []BlockPos {
	var removed []BlockPos
	for dx := -radius; dx <= radius; dx++ {
		for dy := -radius; dy <= radius; dy++ {
			for dz := -radius; dz <= radius; dz++ {
				pos := center.Add(dx, dy, dz)
				it, ok := s.blocks[pos]
				if !ok {
					continue
				}
				if keep != nil && keep(pos, it) {
					continue
				}
				s.Remove(pos)
				removed = append(removed, pos)
			}
		}
	}
	return removed
}

// Blocks returns every stored block in a stable order
func (s *BlockStore) Blocks() []Block {
	out := make([]Block, 0, len(s.blocks))
	for pos, it := range s.blocks {
		out = append(out, Block{Pos: pos, Item: it})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Pos, out[j].Pos
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		if a.X != b.X {
			return a.X < b.X
		}
		return a.Z < b.Z
	})
	return out
}
