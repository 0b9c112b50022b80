package main

import (
	"sort"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// Spawner emits one resource pickup per interval while a match is active
type Spawner struct {
	Index     int
	Pos       mgl64.Vec3
	Resource  Resource
	Interval  time.Duration
	LastSpawn time.Time
	Live      int // pickups currently on the ground from this spawner
}

// Ready reports whether the interval has elapsed
func (sp *Spawner) Ready(now time.Time) bool {
	return now.Sub(sp.LastSpawn) >= sp.Interval
}

// Pickup is one resource unit waiting to be claimed
type Pickup struct {
	ID       string
	Pos      mgl64.Vec3
	Resource Resource
	Spawner  *Spawner
}

// ToState converts to protocol state
func (pk *Pickup) ToState() PickupState {
	return PickupState{
		ID:       pk.ID,
		Pos:      roundVec(pk.Pos),
		Resource: pk.Resource,
	}
}

// stepSpawners emits due pickups. A match that ended earlier in the tick emits nothing.
func (m *Match) stepSpawners(now time.Time) {
	if m.Phase != PhaseActive {
		return
	}
	for _, sp := range m.world.Spawners {
		if !sp.Ready(now) {
			continue
		}
		sp.LastSpawn = now
		if sp.Live >= m.rules.PickupCap {
			continue
		}
		pk := &Pickup{ID: m.ids.Next("pk"), Pos: sp.Pos, Resource: sp.Resource, Spawner: sp}
		sp.Live++
		m.pickups[pk.ID] = pk
		m.cur.all(MsgPickupAdd, pk.ToState())
	}
}

func (m *Match) claim(p *Player, id string) {
	pk, ok := m.pickups[id]
	if !ok {
		return
	}
	revert := func(err error) {
		m.cur.reject(p.ID, MsgRevertPickup, RevertPickupMsg{PickupState: pk.ToState(), Reason: err.Error()})
	}
	if err := m.canAct(p); err != nil {
		revert(err)
		return
	}
	if !CheckCollision(p.Feet(), m.rules.PickupRadius, pk.Pos, 0) {
		revert(ErrTooFar)
		return
	}
	delete(m.pickups, id)
	if pk.Spawner != nil {
		pk.Spawner.Live--
	}
	p.Currency[pk.Resource]++
	m.cur.all(MsgPickupRemove, ClaimMsg{ID: id})
	m.cur.to(p.ID, MsgInventory, p.InventoryMsg())
}

func (m *Match) sortedPickups() []*Pickup {
	out := make([]*Pickup, 0, len(m.pickups))
	for _, pk := range m.pickups {
		out = append(out, pk)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
