package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// ProjectileOffset is the spawn distance in front of the thrower's eye
const ProjectileOffset = 1.0

// ProjectileKind selects pearl or fireball behaviour
type ProjectileKind int

const (
	Pearl    ProjectileKind = 1
	Fireball ProjectileKind = 2
)

func (k ProjectileKind) String() string {
	switch k {
	case Pearl:
		return "pearl"
	case Fireball:
		return "fireball"
	}
	return "unknown"
}

// Item is the inventory item a throw consumes
func (k ProjectileKind) Item() Item {
	if k == Fireball {
		return ItemFireball
	}
	return ItemEnderPearl
}

func (k ProjectileKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *ProjectileKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "pearl":
		*k = Pearl
	case "fireball":
		*k = Fireball
	default:
		return fmt.Errorf("unknown projectile kind %q", b)
	}
	return nil
}

// Projectile is a thrown pearl or fireball
type Projectile struct {
	ID        string
	Kind      ProjectileKind
	OwnerID   string
	Pos       mgl64.Vec3
	Vel       mgl64.Vec3
	CreatedAt time.Time
	Resolved  bool
}

// NewProjectile launches from the owner's eye toward aim
func NewProjectile(id string, kind ProjectileKind, owner *Player, aim mgl64.Vec3, speed float64, now time.Time) *Projectile {
	eye := owner.Eye()
	dir := aim.Sub(eye).Normalize()
	return &Projectile{
		ID:        id,
		Kind:      kind,
		OwnerID:   owner.ID,
		Pos:       eye.Add(dir.Mul(ProjectileOffset)),
		Vel:       dir.Mul(speed),
		CreatedAt: now,
	}
}

// Update integrates one step under gravity and returns the new position
func (pr *Projectile) Update(dt, gravity float64) mgl64.Vec3 {
	pr.Vel = pr.Vel.Sub(mgl64.Vec3{0, gravity * dt, 0})
	return pr.Pos.Add(pr.Vel.Mul(dt))
}

// ToState converts to protocol state
func (pr *Projectile) ToState() ProjectileState {
	return ProjectileState{
		ID:    pr.ID,
		Kind:  pr.Kind,
		Owner: pr.OwnerID,
		Pos:   roundVec(pr.Pos),
		Vel:   roundVec(pr.Vel),
	}
}

func (m *Match) throw(p *Player, kind ProjectileKind, aim mgl64.Vec3, now time.Time) {
	if err := m.validateThrow(p, kind, aim, now); err != nil {
		m.cur.reject(p.ID, MsgRevertInventory, RevertInventoryMsg{InventoryMsg: p.InventoryMsg(), Reason: err.Error()})
		return
	}
	speed := m.rules.PearlSpeed
	if kind == Fireball {
		speed = m.rules.FireballSpeed
		p.LastFireball = now
	} else {
		p.LastPearl = now
	}
	p.Inventory.Take(p.Selected)
	p.refreshWeapon()

	pr := NewProjectile(m.ids.Next("pr"), kind, p, aim, speed, now)
	m.projectiles[pr.ID] = pr
	m.cur.all(MsgProjSpawn, ProjectileMsg{pr.ToState()})
	m.cur.to(p.ID, MsgInventory, p.InventoryMsg())
}

func (m *Match) stepProjectiles(now time.Time) {
	dt := m.rules.TickInterval().Seconds()
	for _, pr := range m.sortedProjectiles() {
		if m.Phase != PhaseActive {
			return
		}
		m.advance(pr, now, dt)
	}
}

// advance moves one projectile, sampling its path so fast shots cannot skip cells
func (m *Match) advance(pr *Projectile, now time.Time, dt float64) {
	if now.Sub(pr.CreatedAt) >= m.rules.ProjectileLifetime {
		m.removeProjectile(pr, "timeout")
		return
	}
	gravity := m.rules.PearlGravity
	if pr.Kind == Fireball {
		gravity = m.rules.FireballGravity
	}
	next := pr.Update(dt, gravity)
	inGrace := now.Sub(pr.CreatedAt) < m.rules.PearlGrace

	last := pr.Pos
	for _, s := range sweepSamples(pr.Pos, next) {
		if pr.Kind == Fireball {
			if target := m.playerOnSegment(last, s, pr.OwnerID); target != nil {
				m.fireballHitPlayer(pr, target, now)
				return
			}
		}
		if m.world.Blocks.Solid(s) {
			if pr.Kind == Pearl {
				if inGrace {
					continue
				}
				m.landPearl(pr, last, now)
				return
			}
			m.explode(pr, CellOf(s))
			return
		}
		last = s
	}
	pr.Pos = next
	if pr.Pos.Y() < m.rules.ProjectileVoidY {
		m.removeProjectile(pr, "void")
	}
}

// playerOnSegment returns the first live non-owner body the segment a-b touches
func (m *Match) playerOnSegment(a, b mgl64.Vec3, owner string) *Player {
	for _, p := range m.sortedPlayers() {
		if p.Spectator || p.ID == owner {
			continue
		}
		if segmentSphereIntersect(a, b, p.BodyCenter(), m.rules.FireballHitRadius) {
			return p
		}
	}
	return nil
}

func (m *Match) fireballHitPlayer(pr *Projectile, target *Player, now time.Time) {
	m.removeProjectile(pr, "hit_player")
	m.cur.all(MsgExplosion, ExplosionMsg{Owner: pr.OwnerID, Center: roundVec(target.BodyCenter()), Removed: []BlockPos{}})
	m.damage(target, m.rules.FireballDamage, pr.OwnerID, "fireball", now)
}

// explode clears the cube around cell, sparing only the thrower's own bed
func (m *Match) explode(pr *Projectile, cell BlockPos) {
	keep := func(pos BlockPos, it Item) bool {
		return it == ItemBed && m.beds[pos] == pr.OwnerID
	}
	m.removeProjectile(pr, "hit_block")
	m.breaker = pr.OwnerID
	removed := m.world.Blocks.Explode(cell, m.rules.ExplosionRadius, keep)
	m.breaker = ""
	if removed == nil {
		removed = []BlockPos{}
	}
	m.cur.all(MsgExplosion, ExplosionMsg{Owner: pr.OwnerID, Center: cell.Center(), Removed: removed})
}

// landPearl teleports the owner to the last free sample, lifted clear of blocks
func (m *Match) landPearl(pr *Projectile, free mgl64.Vec3, now time.Time) {
	m.removeProjectile(pr, "hit_block")
	owner := m.players[pr.OwnerID]
	if owner == nil || owner.Spectator {
		return
	}
	feet := free.Add(mgl64.Vec3{0, 0.5, 0})
	for i := 0; i < 16 && bodyBlocked(m.world.Blocks, feet); i++ {
		feet = feet.Add(mgl64.Vec3{0, 1, 0})
	}
	owner.Position = feet.Add(mgl64.Vec3{0, EyeHeight, 0})
	owner.Crouching = false
	m.cur.all(MsgTeleport, TeleportMsg{ID: owner.ID, Pos: roundVec(owner.Position)})
	if m.rules.PearlSelfDamage > 0 {
		m.damage(owner, m.rules.PearlSelfDamage, "", "pearl", now)
	}
}

func (m *Match) removeProjectile(pr *Projectile, reason string) {
	if pr.Resolved {
		return
	}
	pr.Resolved = true
	delete(m.projectiles, pr.ID)
	m.cur.all(MsgProjRemove, ProjectileRemoveMsg{ID: pr.ID, Reason: reason})
}

func (m *Match) sortedProjectiles() []*Projectile {
	out := make([]*Projectile, 0, len(m.projectiles))
	for _, pr := range m.projectiles {
		out = append(out, pr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) || (out[i].CreatedAt.Equal(out[j].CreatedAt) && out[i].ID < out[j].ID) })
	return out
}
