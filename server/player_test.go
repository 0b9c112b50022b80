package main

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

func TestNewPlayer(t *testing.T) {
	p := NewPlayer("test1")
	if p.ID != "test1" {
		t.Errorf("expected ID test1, got %s", p.ID)
	}
	if !p.Spectator {
		t.Error("expected new player to be a spectator")
	}
	if p.Health != PlayerMaxHealth {
		t.Errorf("expected HP %d, got %d", PlayerMaxHealth, p.Health)
	}
	for r := Resource(0); r < resourceCount; r++ {
		if v, ok := p.Currency[r]; !ok || v != 0 {
			t.Errorf("expected zero %s balance, got %d %v", r, v, ok)
		}
	}
}

func TestPlayerBodyGeometry(t *testing.T) {
	p := NewPlayer("test")
	// feet on top of a block at y=9
	p.Position = mgl64.Vec3{0, 9.5 + EyeHeight, 0}
	if !p.Feet().ApproxEqual(mgl64.Vec3{0, 9.5, 0}) {
		t.Errorf("expected feet at y=9.5, got %v", p.Feet())
	}
	if !p.Occupies(BlockPos{0, 10, 0}) || !p.Occupies(BlockPos{0, 11, 0}) {
		t.Error("body should cover the two cells above the feet")
	}
	if p.Occupies(BlockPos{0, 9, 0}) || p.Occupies(BlockPos{0, 12, 0}) || p.Occupies(BlockPos{1, 10, 0}) {
		t.Error("body should not cover cells outside its column")
	}

	p.Crouching = true
	if got, want := p.Eye().Y(), p.Position.Y()-CrouchOffset; got != want {
		t.Errorf("expected crouched eye at %.2f, got %.2f", want, got)
	}
}

func TestPlayerSelectWeapon(t *testing.T) {
	p := NewPlayer("test")
	p.Inventory.Add(ItemWool, 4)
	p.Inventory.Add(ItemDiamondSword, 1)
	p.Select(1)
	if p.Weapon != ItemDiamondSword {
		t.Errorf("expected diamond sword, got %s", p.Weapon)
	}
	p.Select(0)
	if p.Weapon != ItemNone {
		t.Errorf("wool is not a weapon, got %s", p.Weapon)
	}
	p.Select(-1)
	p.Select(InventorySize)
	if p.Selected != 0 {
		t.Errorf("out of range select should be ignored, got %d", p.Selected)
	}
}

func TestPlayerRespawn(t *testing.T) {
	p := NewPlayer("test")
	p.Spectator = false
	p.Health = 0
	p.LastAttacker = "x"
	anchor := BlockPos{10, 1, 0}
	now := time.Unix(100, 0)
	p.Respawn(anchor, now)

	if p.Health != p.MaxHealth {
		t.Errorf("expected full HP, got %d", p.Health)
	}
	if !p.Feet().ApproxEqual(anchor.Center().Add(mgl64.Vec3{0, 0.5, 0})) {
		t.Errorf("expected feet on the bed, got %v", p.Feet())
	}
	if p.LastAttacker != "" || !p.LastRegen.Equal(now) {
		t.Error("respawn should clear combat state")
	}
}

func TestPlayerMakeSpectator(t *testing.T) {
	p := NewPlayer("test")
	p.Spectator = false
	anchor := BlockPos{1, 1, 1}
	p.BedAnchor = &anchor
	p.Inventory.Add(ItemWool, 3)
	p.MakeSpectator()
	if !p.Spectator || p.BedAnchor != nil {
		t.Error("expected spectator without a bed")
	}
	if p.Position != SpectatorPoint {
		t.Errorf("expected spectator point, got %v", p.Position)
	}

	p.Stats.Kills = 3
	p.ResetEconomy()
	if p.Inventory.Count(ItemWool) != 0 || p.Stats.Kills != 0 {
		t.Error("reset should clear inventory and stats")
	}
}

func TestPlayerToState(t *testing.T) {
	p := NewPlayer("test")
	p.Name = "Guest"
	p.Position = mgl64.Vec3{1.23456, 2.5, -3.14159}
	p.Inventory.Add(ItemWool, 1)
	anchor := BlockPos{}
	p.BedAnchor = &anchor

	s := p.ToState()
	if s.ID != "test" || s.Name != "Guest" {
		t.Errorf("unexpected identity %+v", s)
	}
	if s.Pos != (mgl64.Vec3{1.23, 2.5, -3.14}) {
		t.Errorf("expected rounded position, got %v", s.Pos)
	}
	if s.Held != ItemWool || !s.HasBed || !s.Spectator {
		t.Errorf("unexpected state %+v", s)
	}
}
