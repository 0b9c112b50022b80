package main

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// holding replaces p's hotbar with n of it in slot 0
func holding(p *Player, it Item, n int) {
	p.Inventory.Clear()
	p.Inventory.Add(it, n)
	p.Select(0)
}

// moveBed relocates p's bed to pos
func moveBed(t *testing.T, m *Match, p *Player, pos BlockPos) {
	t.Helper()
	dropBed(t, m, p)
	if !m.world.Blocks.Place(pos, ItemBed) {
		t.Fatalf("cell %v not free for a bed", pos)
	}
	m.beds[pos] = p.ID
	p.BedAnchor = &pos
}

// flyUntil ticks until a projectile_remove shows up or the limit passes
func flyUntil(t *testing.T, m *Match, clock *fakeClock, limit time.Duration) Outcome {
	t.Helper()
	var out Outcome
	for elapsed := time.Duration(0); elapsed < limit; elapsed += m.rules.TickInterval() {
		o := step(m, clock)
		out.merge(o)
		if len(o.Of(MsgProjRemove)) > 0 {
			return out
		}
	}
	t.Fatalf("projectile still live after %s", limit)
	return out
}

func TestExplosionNeighbourhood(t *testing.T) {
	m, _ := activeMatch(t, "a", "b")
	a, b := m.Player("a"), m.Player("b")

	for x := 4; x <= 6; x++ {
		for y := 4; y <= 6; y++ {
			for z := -1; z <= 1; z++ {
				if (x == 6 && y == 4 && z == 1) || (x == 4 && y == 6 && z == -1) {
					continue
				}
				m.world.Blocks.Place(BlockPos{x, y, z}, ItemWool)
			}
		}
	}
	ownBed := BlockPos{6, 4, 1}
	enemyBed := BlockPos{4, 6, -1}
	moveBed(t, m, a, ownBed)
	moveBed(t, m, b, enemyBed)
	outside := []BlockPos{{7, 5, 0}, {5, 5, 2}, {3, 4, 0}}
	for _, pos := range outside {
		m.world.Blocks.Place(pos, ItemWool)
	}

	var out Outcome
	m.cur = &out
	m.explode(&Projectile{ID: "pr", Kind: Fireball, OwnerID: "a"}, BlockPos{5, 5, 0})
	m.cur = nil

	ex := out.Of(MsgExplosion)
	if len(ex) != 1 {
		t.Fatalf("expected one explosion, got %d", len(ex))
	}
	removed := ex[0].Msg.Data.(ExplosionMsg).Removed
	if len(removed) != 26 {
		t.Fatalf("expected 26 removed cells, got %d", len(removed))
	}
	for _, pos := range removed {
		if pos == ownBed {
			t.Error("thrower's bed must not be listed")
		}
		if m.world.Blocks.Has(pos) {
			t.Errorf("%v listed but still present", pos)
		}
	}
	if m.world.Blocks.Get(ownBed) != ItemBed || a.BedAnchor == nil {
		t.Error("thrower's bed must survive")
	}
	if b.BedAnchor != nil || m.world.Blocks.Has(enemyBed) {
		t.Error("enemy bed should be destroyed")
	}
	bd := out.Of(MsgBedDestroyed)
	if len(bd) != 1 || bd[0].Msg.Data.(BedDestroyedMsg).By != "a" {
		t.Errorf("expected bed_destroyed credited to a, got %+v", bd)
	}
	if a.Stats.BedsBroken != 1 {
		t.Errorf("expected a bed broken, got %+v", a.Stats)
	}
	for _, pos := range outside {
		if !m.world.Blocks.Has(pos) {
			t.Errorf("%v outside the radius was removed", pos)
		}
	}
}

func TestFireballFlightHitsBlock(t *testing.T) {
	m, clock := activeMatch(t, "a", "b")
	a := m.Player("a")
	holding(a, ItemFireball, 1)
	standAt(a, 0, 5, 0)
	target := BlockPos{5, 5, 0}
	m.world.Blocks.Place(target, ItemWool)

	out := m.Apply("a", ThrowCmd{Kind: Fireball, Aim: mgl64.Vec3{10, 5, 0}})
	if out.Rejected {
		t.Fatalf("throw rejected: %+v", out.Deliveries)
	}
	if len(out.Of(MsgProjSpawn)) != 1 {
		t.Fatal("expected projectile_spawn")
	}
	if a.Inventory.Count(ItemFireball) != 0 {
		t.Error("throw should consume the fireball")
	}
	spawn := out.Of(MsgProjSpawn)[0].Msg.Data.(ProjectileMsg)
	if spawn.Pos != (mgl64.Vec3{1, 5, 0}) {
		t.Errorf("expected spawn one unit ahead of the eye, got %v", spawn.Pos)
	}

	out = flyUntil(t, m, clock, time.Second)
	ex := out.Of(MsgExplosion)
	if len(ex) != 1 {
		t.Fatalf("expected explosion, got %d", len(ex))
	}
	msg := ex[0].Msg.Data.(ExplosionMsg)
	if len(msg.Removed) != 1 || msg.Removed[0] != target {
		t.Errorf("expected only %v removed, got %v", target, msg.Removed)
	}
	if rm := out.Of(MsgProjRemove)[0].Msg.Data.(ProjectileRemoveMsg); rm.Reason != "hit_block" {
		t.Errorf("expected hit_block, got %s", rm.Reason)
	}
	if len(m.projectiles) != 0 {
		t.Error("projectile should be gone")
	}
}

func TestFireballHitsPlayer(t *testing.T) {
	m, clock := activeMatch(t, "a", "b")
	a, b := m.Player("a"), m.Player("b")
	holding(a, ItemFireball, 1)
	standAt(a, 0, 20, 0)
	standAt(b, 5, 20, 0)

	m.Apply("a", ThrowCmd{Kind: Fireball, Aim: mgl64.Vec3{10, 20, 0}})
	out := flyUntil(t, m, clock, time.Second)
	ex := out.Of(MsgExplosion)
	if len(ex) != 1 || len(ex[0].Msg.Data.(ExplosionMsg).Removed) != 0 {
		t.Fatalf("expected an explosion with no blocks, got %+v", ex)
	}
	if b.Health != PlayerMaxHealth-m.rules.FireballDamage {
		t.Errorf("expected hp %d, got %d", PlayerMaxHealth-m.rules.FireballDamage, b.Health)
	}
	if b.LastAttacker != "a" {
		t.Errorf("expected a credited, got %q", b.LastAttacker)
	}
	if rm := out.Of(MsgProjRemove)[0].Msg.Data.(ProjectileRemoveMsg); rm.Reason != "hit_player" {
		t.Errorf("expected hit_player, got %s", rm.Reason)
	}
}

func TestNoPickupsAfterFireballEndsMatch(t *testing.T) {
	m, clock := activeMatch(t, "a", "b")
	a, b := m.Player("a"), m.Player("b")
	dropBed(t, m, b)
	b.Health = 1
	holding(a, ItemFireball, 1)
	standAt(a, 0, 20, 0)
	standAt(b, 5, 20, 0)

	m.Apply("a", ThrowCmd{Kind: Fireball, Aim: mgl64.Vec3{10, 20, 0}})
	for i := 0; i < 40 && m.Phase == PhaseActive; i++ {
		for _, sp := range m.world.Spawners {
			sp.LastSpawn = time.Time{}
		}
		out := step(m, clock)
		if m.Phase != PhaseEnded {
			continue
		}
		if len(out.Of(MsgMatchEnd)) != 1 {
			t.Fatalf("expected match_end on the ending tick, got %d", len(out.Of(MsgMatchEnd)))
		}
		if n := len(out.Of(MsgPickupAdd)); n != 0 {
			t.Errorf("expected no pickups once the match ended, got %d", n)
		}
	}
	if m.Phase != PhaseEnded {
		t.Fatalf("fireball should have ended the match, phase %s", m.Phase)
	}
}

func TestFastFireballDoesNotTunnel(t *testing.T) {
	m, clock := activeMatch(t, "a", "b")
	m.rules.FireballSpeed = 200
	a := m.Player("a")
	holding(a, ItemFireball, 1)
	standAt(a, 0, 20, 0)
	wall := BlockPos{6, 20, 0}
	m.world.Blocks.Place(wall, ItemGlass)

	m.Apply("a", ThrowCmd{Kind: Fireball, Aim: mgl64.Vec3{10, 20, 0}})
	out := flyUntil(t, m, clock, time.Second)
	ex := out.Of(MsgExplosion)
	if len(ex) != 1 {
		t.Fatalf("expected explosion at the wall, got %d", len(ex))
	}
	if m.world.Blocks.Has(wall) {
		t.Error("wall should be destroyed")
	}
}

func TestPearlTeleports(t *testing.T) {
	m, clock := activeMatch(t, "a", "b")
	a := m.Player("a")
	holding(a, ItemEnderPearl, 1)
	standAt(a, 0, 20, 0)
	for y := 10; y <= 22; y++ {
		for z := -1; z <= 1; z++ {
			m.world.Blocks.Place(BlockPos{6, y, z}, ItemEndStone)
		}
	}

	out := m.Apply("a", ThrowCmd{Kind: Pearl, Aim: mgl64.Vec3{10, 20, 0}})
	if out.Rejected {
		t.Fatalf("throw rejected: %+v", out.Deliveries)
	}
	out = flyUntil(t, m, clock, 2*time.Second)
	tp := out.Of(MsgTeleport)
	if len(tp) != 1 || tp[0].Msg.Data.(TeleportMsg).ID != "a" {
		t.Fatalf("expected teleport of a, got %+v", tp)
	}
	if x := a.Position.X(); x < 4 || x >= 5.5 {
		t.Errorf("expected to land in front of the wall, got x=%.2f", x)
	}
	if bodyBlocked(m.world.Blocks, a.Feet()) {
		t.Errorf("landed inside a block at %v", a.Position)
	}
	if a.Inventory.Count(ItemEnderPearl) != 0 {
		t.Error("pearl should be consumed")
	}
}

func TestProjectileTimeout(t *testing.T) {
	m, clock := activeMatch(t, "a", "b")
	m.rules.ProjectileLifetime = 500 * time.Millisecond
	a := m.Player("a")
	holding(a, ItemEnderPearl, 1)
	standAt(a, 0, 60, 0)

	m.Apply("a", ThrowCmd{Kind: Pearl, Aim: mgl64.Vec3{0, 60, 10}})
	out := flyUntil(t, m, clock, time.Second)
	if rm := out.Of(MsgProjRemove)[0].Msg.Data.(ProjectileRemoveMsg); rm.Reason != "timeout" {
		t.Errorf("expected timeout, got %s", rm.Reason)
	}
	if len(out.Of(MsgTeleport)) != 0 {
		t.Error("timed out pearl must not teleport")
	}
}

func TestProjectileVoid(t *testing.T) {
	m, clock := activeMatch(t, "a", "b")
	m.rules.ProjectileVoidY = 19.5
	a := m.Player("a")
	holding(a, ItemFireball, 1)
	standAt(a, 0, 20, 0)

	m.Apply("a", ThrowCmd{Kind: Fireball, Aim: mgl64.Vec3{0, 20, -10}})
	out := flyUntil(t, m, clock, 3*time.Second)
	if rm := out.Of(MsgProjRemove)[0].Msg.Data.(ProjectileRemoveMsg); rm.Reason != "void" {
		t.Errorf("expected void, got %s", rm.Reason)
	}
	if len(out.Of(MsgExplosion)) != 0 {
		t.Error("void removal must not explode")
	}
}

func TestThrowRejections(t *testing.T) {
	m, _ := activeMatch(t, "a", "b")
	a := m.Player("a")
	standAt(a, 0, 20, 0)
	a.Inventory.Clear()

	out := m.Apply("a", ThrowCmd{Kind: Fireball, Aim: mgl64.Vec3{10, 20, 0}})
	if !out.Rejected || out.Of(MsgRevertInventory)[0].Msg.Data.(RevertInventoryMsg).Reason != ErrNoItem.Error() {
		t.Fatal("expected no_item")
	}

	// fireball in slot 1 but slot 0 selected
	a.Inventory.Add(ItemWool, 1)
	a.Inventory.Add(ItemFireball, 2)
	a.Select(0)
	out = m.Apply("a", ThrowCmd{Kind: Fireball, Aim: mgl64.Vec3{10, 20, 0}})
	if !out.Rejected {
		t.Error("throw must use the selected slot")
	}

	a.Select(1)
	if out = m.Apply("a", ThrowCmd{Kind: Fireball, Aim: mgl64.Vec3{10, 20, 0}}); out.Rejected {
		t.Fatalf("throw rejected: %+v", out.Deliveries)
	}
	out = m.Apply("a", ThrowCmd{Kind: Fireball, Aim: mgl64.Vec3{10, 20, 0}})
	if !out.Rejected || out.Of(MsgRevertInventory)[0].Msg.Data.(RevertInventoryMsg).Reason != ErrCooldown.Error() {
		t.Error("expected cooldown")
	}
	if a.Inventory.Count(ItemFireball) != 1 {
		t.Errorf("expected one fireball left, got %d", a.Inventory.Count(ItemFireball))
	}
}

func TestProjectileKindText(t *testing.T) {
	var k ProjectileKind
	if err := k.UnmarshalText([]byte("fireball")); err != nil || k != Fireball {
		t.Errorf("expected fireball, got %v %v", k, err)
	}
	if Pearl.Item() != ItemEnderPearl || Fireball.Item() != ItemFireball {
		t.Error("kind to item mapping is wrong")
	}
	if err := k.UnmarshalText([]byte("arrow")); err == nil {
		t.Error("unknown kind should fail")
	}
}
