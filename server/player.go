package main

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	PlayerMaxHealth = 10
	EyeHeight       = 1.6 // reported position is the eye; feet are this far below
	BodyHeight      = 1.8
	CrouchOffset    = 0.3 // crouching lowers the eye by this much
)

var (
	// RespawnOffset puts the feet on top of the bed block
	RespawnOffset = mgl64.Vec3{0, 0.5 + EyeHeight, 0}
	// SpectatorPoint is where eliminated and idle players watch from
	SpectatorPoint = mgl64.Vec3{0, 40, 0}
)

// PlayerStats tracks per-match counters
type PlayerStats struct {
	Kills      int `json:"kills"`
	FinalKills int `json:"final_kills"`
	BedsBroken int `json:"beds_broken"`
	Deaths     int `json:"deaths"`
}

// Player is one connection's match state
type Player struct {
	ID        string
	AccountID int64 // 0 = guest
	Name      string

	Position  mgl64.Vec3
	Yaw       float64
	Pitch     float64
	Crouching bool

	Health    int
	MaxHealth int
	Inventory Inventory
	Currency  Currency
	Selected  int
	Weapon    Item
	BedAnchor *BlockPos
	Spectator bool

	LastMelee      time.Time
	LastPearl      time.Time
	LastFireball   time.Time
	LastAttacker   string
	LastAttackedAt time.Time
	LastRegen      time.Time

	Stats PlayerStats
}

// NewPlayer creates a spectator with an empty economy
func NewPlayer(id string) *Player {
	return &Player{
		ID:        id,
		Position:  SpectatorPoint,
		Health:    PlayerMaxHealth,
		MaxHealth: PlayerMaxHealth,
		Currency:  NewCurrency(),
		Spectator: true,
	}
}

// Eye returns the reach and melee origin, lowered while crouching
func (p *Player) Eye() mgl64.Vec3 {
	if p.Crouching {
		return p.Position.Sub(mgl64.Vec3{0, CrouchOffset, 0})
	}
	return p.Position
}

// Feet returns the bottom of the body column
func (p *Player) Feet() mgl64.Vec3 {
	return p.Position.Sub(mgl64.Vec3{0, EyeHeight, 0})
}

// BodyCenter returns the middle of the body column
func (p *Player) BodyCenter() mgl64.Vec3 {
	return p.Feet().Add(mgl64.Vec3{0, BodyHeight / 2, 0})
}

// Occupies reports whether the body column overlaps cell c
func (p *Player) Occupies(c BlockPos) bool {
	f := CellOf(p.Feet().Add(mgl64.Vec3{0, 0.1, 0}))
	h := CellOf(p.Feet().Add(mgl64.Vec3{0, BodyHeight - 0.1, 0}))
	if c.X != f.X || c.Z != f.Z {
		return false
	}
	return c.Y >= f.Y && c.Y <= h.Y
}

// Select changes the held slot and re-derives the equipped weapon
func (p *Player) Select(i int) {
	if i < 0 || i >= InventorySize {
		return
	}
	p.Selected = i
	p.refreshWeapon()
}

func (p *Player) refreshWeapon() {
	s := p.Inventory[p.Selected]
	if s.Count > 0 && s.Item.Def().Weapon {
		p.Weapon = s.Item
	} else {
		p.Weapon = ItemNone
	}
}

// Respawn restores health and moves the player above their bed
func (p *Player) Respawn(anchor BlockPos, now time.Time) {
	p.Health = p.MaxHealth
	p.Position = SpawnPoint(anchor)
	p.Yaw = 0
	p.Pitch = 0
	p.Crouching = false
	p.LastAttacker = ""
	p.LastRegen = now
}

// MakeSpectator removes the player from play
func (p *Player) MakeSpectator() {
	p.Spectator = true
	p.BedAnchor = nil
	p.Position = SpectatorPoint
	p.Health = p.MaxHealth
	p.LastAttacker = ""
}

// ResetEconomy clears inventory, currency and match counters
func (p *Player) ResetEconomy() {
	p.Inventory.Clear()
	p.Currency = NewCurrency()
	p.Selected = 0
	p.Weapon = ItemNone
	p.Stats = PlayerStats{}
}

// ToState converts to the snapshot representation
func (p *Player) ToState() PlayerState {
	return PlayerState{
		ID:        p.ID,
		Name:      p.Name,
		Pos:       roundVec(p.Position),
		Yaw:       round2(p.Yaw),
		Pitch:     round2(p.Pitch),
		Crouch:    p.Crouching,
		HP:        p.Health,
		MaxHP:     p.MaxHealth,
		Held:      p.Inventory[p.Selected].Item,
		HasBed:    p.BedAnchor != nil,
		Spectator: p.Spectator,
	}
}

// InventoryMsg builds the private economy update for this player
func (p *Player) InventoryMsg() InventoryMsg {
	return InventoryMsg{
		Slots:    p.Inventory,
		Currency: p.Currency,
		Selected: p.Selected,
	}
}
