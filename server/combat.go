package main

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

func (m *Match) attack(p *Player, targetID string, now time.Time) {
	target, ok := m.players[targetID]
	if !ok {
		return
	}
	if err := m.validateAttack(p, target, now); err != nil {
		m.cur.reject(p.ID, MsgRevertHit, RevertHitMsg{Target: targetID, HP: target.Health, Reason: err.Error()})
		return
	}
	p.LastMelee = now

	dmg := m.rules.FistDamage
	if p.Weapon != ItemNone {
		dmg = p.Weapon.Def().Damage
	}
	m.cur.to(target.ID, MsgKnockback, KnockbackMsg{Target: target.ID, Impulse: roundVec(m.knockback(p, target))})
	m.damage(target, dmg, p.ID, "melee", now)
}

// knockback pushes the target away from the attacker, falling back to the attacker's
// facing when both stand on the same spot
func (m *Match) knockback(attacker, target *Player) mgl64.Vec3 {
	dir := horizontal(target.Position.Sub(attacker.Position))
	if dir.Len() < 1e-6 {
		dir = yawDirection(attacker.Yaw)
	}
	return dir.Normalize().Mul(m.rules.Knockback).Add(mgl64.Vec3{0, m.rules.KnockbackLift, 0})
}

// damage lowers health, remembers the attacker for credit and kills at zero
func (m *Match) damage(target *Player, amount int, attacker, cause string, now time.Time) {
	if target.Spectator || amount <= 0 {
		return
	}
	if attacker != "" && attacker != target.ID {
		target.LastAttacker = attacker
		target.LastAttackedAt = now
	}
	target.Health -= amount
	if target.Health < 0 {
		target.Health = 0
	}
	target.LastRegen = now
	m.cur.all(MsgHit, HitMsg{Target: target.ID, Attacker: attacker, Damage: amount, HP: target.Health, Cause: cause})
	if target.Health == 0 {
		m.kill(target, attacker, cause, now)
	}
}

// creditFor resolves who gets the kill: the direct attacker, or the last one
// to hit the victim inside the credit window
func (m *Match) creditFor(target *Player, attacker string, now time.Time) string {
	if attacker != "" && attacker != target.ID {
		return attacker
	}
	if target.LastAttacker != "" && now.Sub(target.LastAttackedAt) <= m.rules.AttackCredit {
		return target.LastAttacker
	}
	return ""
}

// kill respawns a player at a live bed, otherwise eliminates them
func (m *Match) kill(target *Player, attacker, cause string, now time.Time) {
	killer := m.creditFor(target, attacker, now)
	target.Stats.Deaths++

	if target.BedAnchor != nil && m.world.Blocks.Get(*target.BedAnchor) == ItemBed {
		if k := m.players[killer]; k != nil {
			k.Stats.Kills++
		}
		target.Respawn(*target.BedAnchor, now)
		m.cur.all(MsgRespawn, RespawnMsg{ID: target.ID, Pos: roundVec(target.Position), HP: target.Health})
		return
	}
	m.eliminate(target, killer, cause, now)
}

// eliminate makes the player a spectator, frees their island and re-checks the win
func (m *Match) eliminate(target *Player, killer, cause string, now time.Time) {
	if k := m.players[killer]; k != nil {
		k.Stats.Kills++
		k.Stats.FinalKills++
	}
	target.MakeSpectator()
	m.world.Release(target.ID)
	remain := m.ActiveCount()

	m.log.WithField("player", target.ID).WithField("by", killer).Info("player eliminated")
	m.cur.all(MsgEliminated, EliminatedMsg{ID: target.ID, By: killer, Cause: cause, Remain: remain})
	m.track(EvtElimination, target, fmt.Sprintf(`{"by":%q,"cause":%q}`, killer, cause))
	m.checkWin(now)
}

// checkVoid kills anyone who fell below the world
func (m *Match) checkVoid(now time.Time) {
	for _, p := range m.activePlayers() {
		if m.Phase != PhaseActive {
			return
		}
		if p.Position.Y() < m.rules.VoidY {
			m.cur.all(MsgHit, HitMsg{Target: p.ID, Damage: p.Health, HP: 0, Cause: "void"})
			p.Health = 0
			m.kill(p, "", "void", now)
		}
	}
}

// regen heals one point per interval while below max
func (m *Match) regen(now time.Time) {
	if m.Phase != PhaseActive {
		return
	}
	for _, p := range m.activePlayers() {
		if p.Health >= p.MaxHealth {
			p.LastRegen = now
			continue
		}
		if now.Sub(p.LastRegen) >= m.rules.RegenInterval {
			p.Health++
			p.LastRegen = now
			m.cur.all(MsgHit, HitMsg{Target: p.ID, Damage: -1, HP: p.Health, Cause: "regen"})
		}
	}
}
