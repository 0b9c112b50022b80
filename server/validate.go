package main

import (
	"errors"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// Rejection reasons. The text is the reason code sent in revert messages.
var (
	ErrSpectator    = errors.New("spectator")
	ErrWrongPhase   = errors.New("wrong_phase")
	ErrOutOfReach   = errors.New("out_of_reach")
	ErrOccupied     = errors.New("occupied")
	ErrNoItem       = errors.New("no_item")
	ErrNotPlaceable = errors.New("not_placeable")
	ErrNotForSale   = errors.New("not_for_sale")
	ErrCantAfford   = errors.New("cannot_afford")
	ErrFull         = errors.New("inventory_full")
	ErrOwnBed       = errors.New("own_bed")
	ErrCooldown     = errors.New("cooldown")
	ErrTooFar       = errors.New("too_far")
	ErrBadTarget    = errors.New("bad_target")
)

// canAct gates every mutating gameplay action
func (m *Match) canAct(p *Player) error {
	if p.Spectator {
		return ErrSpectator
	}
	if m.Phase != PhaseActive {
		return ErrWrongPhase
	}
	return nil
}

// checkReach measures from the player's last reported eye to the cell centre
func (m *Match) checkReach(p *Player, pos BlockPos) error {
	if p.Eye().Sub(pos.Center()).Len() > m.rules.Reach {
		return ErrOutOfReach
	}
	return nil
}

// validateBreak guards breakBlock
func (m *Match) validateBreak(p *Player, pos BlockPos) error {
	if err := m.canAct(p); err != nil {
		return err
	}
	if err := m.checkReach(p, pos); err != nil {
		return err
	}
	if p.BedAnchor != nil && *p.BedAnchor == pos {
		return ErrOwnBed
	}
	return nil
}

// validatePlace guards placeBlock
func (m *Match) validatePlace(p *Player, pos BlockPos, it Item) error {
	if err := m.canAct(p); err != nil {
		return err
	}
	if !it.Def().Placeable {
		return ErrNotPlaceable
	}
	if !p.Inventory.Holds(p.Selected, it) {
		return ErrNoItem
	}
	if err := m.checkReach(p, pos); err != nil {
		return err
	}
	if m.world.Blocks.Has(pos) {
		return ErrOccupied
	}
	for _, other := range m.players {
		if !other.Spectator && other.Occupies(pos) {
			return ErrOccupied
		}
	}
	return nil
}

// validateBuy guards buy
func (m *Match) validateBuy(p *Player, it Item) error {
	if err := m.canAct(p); err != nil {
		return err
	}
	def := it.Def()
	if !it.Valid() || def.Cost == nil {
		return ErrNotForSale
	}
	if !CanAfford(p.Currency, def.Cost) {
		return ErrCantAfford
	}
	if p.Inventory.room(it) < def.BuyAmount {
		return ErrFull
	}
	return nil
}

// validateAttack guards melee
func (m *Match) validateAttack(p, target *Player, now time.Time) error {
	if err := m.canAct(p); err != nil {
		return err
	}
	if target == nil || target == p || target.Spectator {
		return ErrBadTarget
	}
	if !p.LastMelee.IsZero() && now.Sub(p.LastMelee) < m.rules.MeleeCooldown {
		return ErrCooldown
	}
	if p.Eye().Sub(target.Eye()).Len() > m.rules.MeleeRange {
		return ErrTooFar
	}
	return nil
}

// validateThrow guards pearl and fireball throws
func (m *Match) validateThrow(p *Player, kind ProjectileKind, aim mgl64.Vec3, now time.Time) error {
	if err := m.canAct(p); err != nil {
		return err
	}
	last, cd := p.LastPearl, m.rules.PearlCooldown
	if kind == Fireball {
		last, cd = p.LastFireball, m.rules.FireballCooldown
	}
	if !last.IsZero() && now.Sub(last) < cd {
		return ErrCooldown
	}
	if !p.Inventory.Holds(p.Selected, kind.Item()) {
		return ErrNoItem
	}
	if aim.Sub(p.Eye()).Len() < 1e-6 {
		return ErrBadTarget
	}
	return nil
}
