package main

import (
	"testing"
	"time"
)

// armed gives p an iron sword in slot 0 and selects it
func armed(t *testing.T, p *Player) {
	t.Helper()
	p.Inventory.Clear()
	if !p.Inventory.Add(ItemIronSword, 1) {
		t.Fatal("could not add sword")
	}
	p.Select(0)
	if p.Weapon != ItemIronSword {
		t.Fatalf("expected iron sword equipped, got %s", p.Weapon)
	}
}

func TestSwordHitsEliminateBedlessTarget(t *testing.T) {
	m, clock := activeMatch(t, "a", "b")
	a, b := m.Player("a"), m.Player("b")
	armed(t, a)
	dropBed(t, m, b)
	standAt(a, 0, 5, 0)
	standAt(b, 2, 5, 0)

	wantHP := []int{7, 4, 1, 0}
	var last Outcome
	for i, want := range wantHP {
		if i > 0 {
			clock.Advance(600 * time.Millisecond)
		}
		last = m.Apply("a", AttackCmd{Target: "b"})
		if last.Rejected {
			t.Fatalf("hit %d rejected: %+v", i+1, last.Deliveries)
		}
		hits := last.Of(MsgHit)
		if len(hits) != 1 {
			t.Fatalf("hit %d: expected one hit event, got %d", i+1, len(hits))
		}
		if got := hits[0].Msg.Data.(HitMsg).HP; got != want {
			t.Errorf("hit %d: expected hp %d, got %d", i+1, want, got)
		}
	}

	if len(last.Of(MsgEliminated)) != 1 {
		t.Fatal("expected eliminated event")
	}
	el := last.Of(MsgEliminated)[0].Msg.Data.(EliminatedMsg)
	if el.ID != "b" || el.By != "a" {
		t.Errorf("unexpected elimination %+v", el)
	}
	if !b.Spectator {
		t.Error("target should be a spectator")
	}
	if m.world.IslandOf("b") != nil {
		t.Error("island should be freed")
	}
	if a.Stats.FinalKills != 1 || a.Stats.Kills != 1 || b.Stats.Deaths != 1 {
		t.Errorf("unexpected stats a=%+v b=%+v", a.Stats, b.Stats)
	}
	if m.Phase != PhaseEnded {
		t.Errorf("expected ended with one survivor, got %s", m.Phase)
	}
}

func TestKnockbackOnlyToTarget(t *testing.T) {
	m, _ := activeMatch(t, "a", "b")
	standAt(m.Player("a"), 0, 5, 0)
	standAt(m.Player("b"), 2, 5, 0)
	out := m.Apply("a", AttackCmd{Target: "b"})

	kb := out.Of(MsgKnockback)
	if len(kb) != 1 {
		t.Fatalf("expected one knockback, got %d", len(kb))
	}
	if kb[0].To != "b" {
		t.Errorf("knockback should be unicast to target, got %q", kb[0].To)
	}
	v := kb[0].Msg.Data.(KnockbackMsg).Impulse
	if v.X() <= 0 || v.Y() <= 0 {
		t.Errorf("expected push along +x with lift, got %v", v)
	}
	if got := out.Of(MsgHit)[0].Msg.Data.(HitMsg).Damage; got != m.rules.FistDamage {
		t.Errorf("expected fist damage %d, got %d", m.rules.FistDamage, got)
	}
}

func TestAttackRejections(t *testing.T) {
	m, clock := activeMatch(t, "a", "b")
	a, b := m.Player("a"), m.Player("b")
	standAt(a, 0, 5, 0)
	standAt(b, 2, 5, 0)

	m.Apply("a", AttackCmd{Target: "b"})
	out := m.Apply("a", AttackCmd{Target: "b"})
	if !out.Rejected {
		t.Fatal("second hit inside cooldown should be rejected")
	}
	rv := out.Of(MsgRevertHit)
	if len(rv) != 1 || rv[0].To != "a" {
		t.Fatalf("expected revert_hit to attacker, got %+v", out.Deliveries)
	}
	if msg := rv[0].Msg.Data.(RevertHitMsg); msg.Reason != ErrCooldown.Error() || msg.HP != b.Health {
		t.Errorf("unexpected revert %+v", msg)
	}

	clock.Advance(time.Second)
	standAt(b, 10, 5, 0)
	out = m.Apply("a", AttackCmd{Target: "b"})
	if !out.Rejected || out.Of(MsgRevertHit)[0].Msg.Data.(RevertHitMsg).Reason != ErrTooFar.Error() {
		t.Error("out of range hit should be rejected")
	}

	out = m.Apply("a", AttackCmd{Target: "a"})
	if !out.Rejected {
		t.Error("self hit should be rejected")
	}
}

func TestDeathWithBedRespawns(t *testing.T) {
	m, _ := activeMatch(t, "a", "b")
	a, b := m.Player("a"), m.Player("b")
	armed(t, a)
	standAt(a, 0, 5, 0)
	standAt(b, 1, 5, 0)
	b.Health = 2

	out := m.Apply("a", AttackCmd{Target: "b"})
	if len(out.Of(MsgRespawn)) != 1 {
		t.Fatal("expected respawn")
	}
	if b.Spectator || b.Health != b.MaxHealth {
		t.Errorf("expected respawned at full hp, got spectator=%v hp=%d", b.Spectator, b.Health)
	}
	if b.Position != SpawnPoint(*b.BedAnchor) {
		t.Errorf("expected respawn at bed, got %v", b.Position)
	}
	if a.Stats.Kills != 1 || a.Stats.FinalKills != 0 {
		t.Errorf("unexpected killer stats %+v", a.Stats)
	}
	if m.Phase != PhaseActive {
		t.Error("match should continue")
	}
}

func TestVoidDeathCreditsLastAttacker(t *testing.T) {
	m, clock := activeMatch(t, "a", "b", "c")
	a, b := m.Player("a"), m.Player("b")
	dropBed(t, m, b)
	standAt(a, 0, 5, 0)
	standAt(b, 1, 5, 0)
	m.Apply("a", AttackCmd{Target: "b"})

	clock.Advance(2 * time.Second)
	standAt(b, 0, -30, 0)
	out := m.Tick()
	el := out.Of(MsgEliminated)
	if len(el) != 1 {
		t.Fatalf("expected elimination, got %d", len(el))
	}
	if msg := el[0].Msg.Data.(EliminatedMsg); msg.By != "a" || msg.Cause != "void" {
		t.Errorf("expected void kill credited to a, got %+v", msg)
	}
	if a.Stats.FinalKills != 1 {
		t.Errorf("expected a final kill, got %+v", a.Stats)
	}
}

func TestVoidDeathCreditExpires(t *testing.T) {
	m, clock := activeMatch(t, "a", "b", "c")
	a, b := m.Player("a"), m.Player("b")
	standAt(a, 0, 5, 0)
	standAt(b, 1, 5, 0)
	m.Apply("a", AttackCmd{Target: "b"})

	clock.Advance(m.rules.AttackCredit + time.Second)
	standAt(b, 0, -30, 0)
	out := m.Tick()
	if len(out.Of(MsgRespawn)) != 1 {
		t.Fatal("bed owner should respawn")
	}
	if a.Stats.Kills != 0 {
		t.Errorf("stale attacker should not be credited, got %+v", a.Stats)
	}
	if b.Stats.Deaths != 1 {
		t.Errorf("expected a death, got %+v", b.Stats)
	}
}

func TestRegen(t *testing.T) {
	m, clock := activeMatch(t, "a", "b")
	a := m.Player("a")
	a.Health = 5
	a.LastRegen = clock.Now()

	runFor(m, clock, m.rules.RegenInterval-m.rules.TickInterval())
	if a.Health != 5 {
		t.Fatalf("expected no regen yet, got %d", a.Health)
	}
	out := step(m, clock)
	if a.Health != 6 {
		t.Fatalf("expected 6 hp, got %d", a.Health)
	}
	found := false
	for _, d := range out.Of(MsgHit) {
		if h := d.Msg.Data.(HitMsg); h.Target == "a" && h.Cause == "regen" {
			found = true
		}
	}
	if !found {
		t.Error("expected a regen hit event")
	}

	a.Health = a.MaxHealth
	runFor(m, clock, 2*m.rules.RegenInterval)
	if a.Health != a.MaxHealth {
		t.Errorf("health must not exceed max, got %d", a.Health)
	}
}

func TestSpectatorCannotAttack(t *testing.T) {
	m, _ := activeMatch(t, "a", "b")
	m.AddPlayer("s")
	out := m.Apply("s", AttackCmd{Target: "a"})
	if !out.Rejected {
		t.Error("spectator attack should be rejected")
	}
	if rv := out.Of(MsgRevertHit); len(rv) != 1 || rv[0].Msg.Data.(RevertHitMsg).Reason != ErrSpectator.Error() {
		t.Errorf("unexpected deliveries %+v", out.Deliveries)
	}
}
