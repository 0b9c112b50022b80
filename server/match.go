package main

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
)

// MatchPhase represents the lifecycle of a match
type MatchPhase int

const (
	PhaseWaiting   MatchPhase = 0
	PhaseCountdown MatchPhase = 1
	PhaseActive    MatchPhase = 2
	PhaseEnded     MatchPhase = 3
)

var phaseNames = [...]string{"waiting", "countdown", "active", "ended"}

func (ph MatchPhase) String() string {
	if ph >= 0 && int(ph) < len(phaseNames) {
		return phaseNames[ph]
	}
	return "unknown"
}

// MarshalText encodes the phase by name
func (ph MatchPhase) MarshalText() ([]byte, error) {
	return []byte(ph.String()), nil
}

// UnmarshalText decodes a phase name
func (ph *MatchPhase) UnmarshalText(b []byte) error {
	for i, n := range phaseNames {
		if n == string(b) {
			*ph = MatchPhase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", b)
}

// Tracker receives analytics events. Implementations must not block.
type Tracker interface {
	Track(evtType string, accountID int64, data string)
}

// Match is the authoritative state of the one match this process runs.
// It is not safe for concurrent use; Game serializes access.
type Match struct {
	rules   Rules
	clock   Clock
	ids     IDSource
	tracker Tracker
	log     *logrus.Entry

	world       *World
	players     map[string]*Player
	pickups     map[string]*Pickup
	projectiles map[string]*Projectile
	beds        map[BlockPos]string // bed cell -> owner id
	roster      map[string]*Player  // seated at round start, kept after disconnect

	Phase         MatchPhase
	SuddenDeath   bool
	RoundStart    time.Time
	RoundEnd      time.Time
	CountdownEnds time.Time
	ResetAt       time.Time

	lastCountdown int
	lastTimer     int
	tick          uint64

	cur     *Outcome // effects of the operation in progress
	breaker string   // credited with bed loss during the operation in progress
}

// NewMatch creates a match in the Waiting phase with a freshly generated world
func NewMatch(rules Rules, clock Clock, ids IDSource) *Match {
	if clock == nil {
		clock = systemClock{}
	}
	if ids == nil {
		ids = &SequenceIDs{}
	}
	m := &Match{
		rules:   rules,
		clock:   clock,
		ids:     ids,
		log:     logger.WithField("component", "match"),
		players: make(map[string]*Player),
	}
	m.resetWorld()
	return m
}

// SetTracker installs the analytics sink (nil disables)
func (m *Match) SetTracker(t Tracker) {
	m.tracker = t
}

func (m *Match) resetWorld() {
	m.world = GenerateWorld(m.rules.World)
	m.world.Blocks.SetObserver(m)
	m.pickups = make(map[string]*Pickup)
	m.projectiles = make(map[string]*Projectile)
	m.beds = make(map[BlockPos]string)
}

func (m *Match) track(evt string, p *Player, data string) {
	if m.tracker == nil {
		return
	}
	var aid int64
	if p != nil {
		aid = p.AccountID
	}
	m.tracker.Track(evt, aid, data)
}

// Player returns the player with the given id, nil if absent
func (m *Match) Player(id string) *Player {
	return m.players[id]
}

// World exposes the world for snapshots and tests
func (m *Match) World() *World {
	return m.world
}

// AddPlayer registers a new connection as a spectator, seating it when auto-join is on
func (m *Match) AddPlayer(id string) (*Player, Outcome) {
	var out Outcome
	m.cur = &out
	defer func() { m.cur = nil }()

	p := NewPlayer(id)
	m.players[id] = p
	m.log.WithField("player", id).Info("player connected")
	out.all(MsgPlayerJoin, SeatMsg{ID: id, Island: -1, Spectator: true})
	if m.rules.AutoJoin && m.seatable() {
		m.join(p)
	}
	return p, out
}

// RemovePlayer handles a disconnect: the seat is freed and any match is re-checked
func (m *Match) RemovePlayer(id string) Outcome {
	var out Outcome
	p, ok := m.players[id]
	if !ok {
		return out
	}
	m.cur = &out
	defer func() { m.cur = nil }()

	m.leave(p)
	delete(m.players, id)
	m.log.WithField("player", id).Info("player disconnected")
	out.all(MsgPlayerLeave, SeatMsg{ID: id, Island: -1, Spectator: true})
	return out
}

// Apply validates and applies one player command
func (m *Match) Apply(playerID string, cmd Command) Outcome {
	var out Outcome
	p, ok := m.players[playerID]
	if !ok {
		return out
	}
	m.cur = &out
	defer func() { m.cur = nil }()

	now := m.clock.Now()
	switch c := cmd.(type) {
	case MoveCmd:
		m.move(p, c)
	case BreakCmd:
		m.breakBlock(p, c.Pos)
	case PlaceCmd:
		m.placeBlock(p, c.Pos, c.Item)
	case BuyCmd:
		m.buy(p, c.Item)
	case ClaimCmd:
		m.claim(p, c.PickupID)
	case AttackCmd:
		m.attack(p, c.Target, now)
	case ThrowCmd:
		m.throw(p, c.Kind, c.Aim, now)
	case JoinCmd:
		m.join(p)
	case LeaveCmd:
		m.leave(p)
	}
	return out
}

// Tick advances every time-based system by one fixed step
func (m *Match) Tick() Outcome {
	var out Outcome
	m.cur = &out
	defer func() { m.cur = nil }()

	now := m.clock.Now()
	m.tick++

	switch m.Phase {
	case PhaseWaiting:
		m.checkQuorum(now)
	case PhaseCountdown:
		m.stepCountdown(now)
	case PhaseActive:
		m.stepProjectiles(now)
		m.stepSpawners(now)
		m.checkVoid(now)
		m.regen(now)
		m.stepRound(now)
	case PhaseEnded:
		if !now.Before(m.ResetAt) {
			m.reset()
		}
	}
	return out
}

// Snapshot builds the post-tick state broadcast
func (m *Match) Snapshot() GameState {
	gs := GameState{
		Tick:        m.tick,
		Phase:       m.Phase,
		Players:     make([]PlayerState, 0, len(m.players)),
		Projectiles: make([]ProjectileState, 0, len(m.projectiles)),
	}
	for _, p := range m.sortedPlayers() {
		gs.Players = append(gs.Players, p.ToState())
	}
	for _, pr := range m.sortedProjectiles() {
		gs.Projectiles = append(gs.Projectiles, pr.ToState())
	}
	return gs
}

// WorldFrame builds the full world sync
func (m *Match) WorldFrame() WorldFrame {
	wf := WorldFrame{Blocks: m.world.Blocks.Blocks(), Beds: m.bedList()}
	for _, pk := range m.sortedPickups() {
		wf.Pickups = append(wf.Pickups, pk.ToState())
	}
	return wf
}

// ActiveCount returns the number of non-spectator players
func (m *Match) ActiveCount() int {
	n := 0
	for _, p := range m.players {
		if !p.Spectator {
			n++
		}
	}
	return n
}

func (m *Match) move(p *Player, c MoveCmd) {
	p.Select(c.Selected)
	p.Yaw, p.Pitch, p.Crouching = c.Yaw, Clamp(c.Pitch, -math.Pi/2, math.Pi/2), c.Crouch
	for _, v := range c.Pos {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			m.cur.reject(p.ID, MsgRevertPosition, RevertPositionMsg{Pos: p.Position, Reason: ErrBadTarget.Error()})
			return
		}
	}
	if !p.Spectator && c.Pos.Sub(p.Position).Len() > m.rules.MaxMoveStep {
		m.cur.reject(p.ID, MsgRevertPosition, RevertPositionMsg{Pos: p.Position, Reason: ErrTooFar.Error()})
		return
	}
	p.Position = c.Pos
}

func (m *Match) breakBlock(p *Player, pos BlockPos) {
	if err := m.validateBreak(p, pos); err != nil {
		m.cur.reject(p.ID, MsgRevertBlock, RevertBlockMsg{Pos: pos, Item: m.world.Blocks.Get(pos), Reason: err.Error()})
		return
	}
	if !m.world.Blocks.Has(pos) {
		return
	}
	m.breaker = p.ID
	it, _ := m.world.Blocks.Remove(pos)
	m.breaker = ""
	m.cur.all(MsgBlockRemove, BlockEvent{Pos: pos, Item: it, By: p.ID})
	// a full hotbar still breaks the block; the item is lost
	if it != ItemBed && p.Inventory.Add(it, 1) {
		p.refreshWeapon()
		m.cur.to(p.ID, MsgInventory, p.InventoryMsg())
	}
}

func (m *Match) placeBlock(p *Player, pos BlockPos, it Item) {
	if err := m.validatePlace(p, pos, it); err != nil {
		m.cur.reject(p.ID, MsgRevertBlock, RevertBlockMsg{Pos: pos, Item: m.world.Blocks.Get(pos), Reason: err.Error()})
		return
	}
	m.world.Blocks.Place(pos, it)
	p.Inventory.Take(p.Selected)
	p.refreshWeapon()
	m.cur.all(MsgBlockAdd, BlockEvent{Pos: pos, Item: it, By: p.ID})
	m.cur.to(p.ID, MsgInventory, p.InventoryMsg())
}

func (m *Match) buy(p *Player, it Item) {
	if err := m.validateBuy(p, it); err != nil {
		m.cur.reject(p.ID, MsgRevertInventory, RevertInventoryMsg{InventoryMsg: p.InventoryMsg(), Reason: err.Error()})
		return
	}
	def := it.Def()
	Deduct(p.Currency, def.Cost)
	p.Inventory.Add(it, def.BuyAmount)
	p.refreshWeapon()
	m.cur.to(p.ID, MsgInventory, p.InventoryMsg())
	m.track(EvtPurchase, p, fmt.Sprintf(`{"item":%q}`, def.Key))
}

func (m *Match) join(p *Player) {
	if !p.Spectator {
		return
	}
	if m.Phase != PhaseWaiting && m.Phase != PhaseCountdown {
		m.cur.reject(p.ID, MsgSeat, SeatMsg{ID: p.ID, Island: -1, Spectator: true})
		return
	}
	is := m.world.FreeIsland()
	if is == nil {
		m.cur.reject(p.ID, MsgSeat, SeatMsg{ID: p.ID, Island: -1, Spectator: true})
		return
	}
	is.Occupant = p.ID
	p.Spectator = false
	p.Position = SpawnPoint(is.BedAnchor)
	m.cur.all(MsgSeat, SeatMsg{ID: p.ID, Island: is.Index})
	m.checkQuorum(m.clock.Now())
}

// seatable reports whether a join would currently succeed
func (m *Match) seatable() bool {
	return (m.Phase == PhaseWaiting || m.Phase == PhaseCountdown) && m.world.FreeIsland() != nil
}

func (m *Match) leave(p *Player) {
	if p.Spectator {
		return
	}
	now := m.clock.Now()
	switch m.Phase {
	case PhaseActive:
		m.eliminate(p, "", "left", now)
	default:
		m.world.Release(p.ID)
		p.MakeSpectator()
		m.cur.all(MsgSeat, SeatMsg{ID: p.ID, Island: -1, Spectator: true})
		if m.Phase == PhaseCountdown && m.ActiveCount() < m.rules.MinPlayers {
			m.cancelCountdown()
		}
	}
}

func (m *Match) checkQuorum(now time.Time) {
	if m.Phase == PhaseWaiting && m.ActiveCount() >= m.rules.MinPlayers {
		m.startCountdown(now)
	}
}

func (m *Match) startCountdown(now time.Time) {
	m.Phase = PhaseCountdown
	m.CountdownEnds = now.Add(m.rules.CountdownDuration)
	m.lastCountdown = secondsUntil(now, m.CountdownEnds)
	m.log.WithField("players", m.ActiveCount()).Info("countdown started")
	m.cur.all(MsgCountdown, CountdownMsg{Seconds: m.lastCountdown})
}

func (m *Match) cancelCountdown() {
	m.Phase = PhaseWaiting
	m.log.Info("countdown cancelled")
	m.cur.all(MsgCountdownCancel, CountdownMsg{Seconds: m.lastCountdown})
}

func (m *Match) stepCountdown(now time.Time) {
	if m.ActiveCount() < m.rules.MinPlayers {
		m.cancelCountdown()
		return
	}
	if s := secondsUntil(now, m.CountdownEnds); s != m.lastCountdown {
		m.lastCountdown = s
		m.cur.all(MsgCountdown, CountdownMsg{Seconds: s})
	}
	if !now.Before(m.CountdownEnds) {
		m.startRound(now)
	}
}

// startRound seats every active player on an island, places beds and starts the clock
func (m *Match) startRound(now time.Time) {
	seated := m.activePlayers()
	sort.SliceStable(seated, func(i, j int) bool {
		a, b := m.world.IslandOf(seated[i].ID), m.world.IslandOf(seated[j].ID)
		if a == nil || b == nil {
			return b == nil && a != nil
		}
		return a.Index < b.Index
	})
	for _, is := range m.world.Islands {
		is.Occupant = ""
	}

	m.roster = make(map[string]*Player, len(seated))
	start := MatchStartMsg{Duration: m.rules.RoundDuration.Seconds()}
	for _, p := range seated {
		is := m.world.FreeIsland()
		if is == nil {
			p.MakeSpectator()
			continue
		}
		is.Occupant = p.ID
		anchor := is.BedAnchor
		if m.world.Blocks.Has(anchor) {
			m.world.Blocks.Remove(anchor)
		}
		m.world.Blocks.Place(anchor, ItemBed)
		m.beds[anchor] = p.ID
		p.BedAnchor = &anchor
		p.ResetEconomy()
		p.LastMelee, p.LastPearl, p.LastFireball = time.Time{}, time.Time{}, time.Time{}
		p.Respawn(anchor, now)
		m.roster[p.ID] = p
		start.Players = append(start.Players, SeatMsg{ID: p.ID, Island: is.Index})
	}
	start.Beds = m.bedList()

	for _, sp := range m.world.Spawners {
		sp.LastSpawn = now
	}

	m.Phase = PhaseActive
	m.SuddenDeath = false
	m.RoundStart = now
	m.RoundEnd = now.Add(m.rules.RoundDuration)
	m.lastTimer = secondsUntil(now, m.RoundEnd)

	m.log.WithField("players", len(m.roster)).Info("match started")
	m.cur.all(MsgMatchStart, start)
	for _, p := range m.sortedPlayers() {
		if !p.Spectator {
			m.cur.to(p.ID, MsgInventory, p.InventoryMsg())
		}
	}
	m.track(EvtMatchStart, nil, fmt.Sprintf(`{"players":%d}`, len(m.roster)))
}

func (m *Match) stepRound(now time.Time) {
	if m.Phase != PhaseActive {
		return
	}
	if !m.SuddenDeath && now.Sub(m.RoundStart) >= m.rules.SuddenDeathAt {
		m.suddenDeath()
	}
	if s := secondsUntil(now, m.RoundEnd); s != m.lastTimer {
		m.lastTimer = s
		m.cur.all(MsgTimer, TimerMsg{Remaining: s, Sudden: m.SuddenDeath})
	}
	if !now.Before(m.RoundEnd) {
		m.endMatch(now, "time")
		return
	}
	m.checkWin(now)
}

// suddenDeath strips every bed exactly once
func (m *Match) suddenDeath() {
	m.SuddenDeath = true
	m.log.Info("sudden death")
	m.cur.all(MsgSuddenDeath, struct{}{})
	for _, b := range m.bedList() {
		if _, ok := m.world.Blocks.Remove(b.Pos); ok {
			m.cur.all(MsgBlockRemove, BlockEvent{Pos: b.Pos, Item: ItemBed})
		}
	}
}

func (m *Match) checkWin(now time.Time) {
	if m.Phase == PhaseActive && m.ActiveCount() <= 1 {
		m.endMatch(now, "last_standing")
	}
}

// endMatch moves Active -> Ended. Later calls in the same match are no-ops.
func (m *Match) endMatch(now time.Time, reason string) {
	if m.Phase != PhaseActive {
		return
	}
	m.Phase = PhaseEnded
	m.ResetAt = now.Add(m.rules.EndDelay)

	winner := ""
	if active := m.activePlayers(); len(active) == 1 {
		winner = active[0].ID
	}
	length := now.Sub(m.RoundStart)

	res := &MatchResult{Winner: winner, Reason: reason, Duration: length}
	ids := make([]string, 0, len(m.roster))
	for id := range m.roster {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		p := m.roster[id]
		res.Players = append(res.Players, PlayerResult{
			PlayerID:  id,
			AccountID: p.AccountID,
			Stats:     p.Stats,
			Won:       id == winner,
		})
	}

	m.log.WithFields(logrus.Fields{"winner": winner, "reason": reason}).Info("match ended")
	m.cur.all(MsgMatchEnd, MatchEndMsg{Winner: winner, Reason: reason, Length: length.Seconds()})
	m.cur.Result = res
	m.track(EvtMatchEnd, nil, fmt.Sprintf(`{"reason":%q,"duration":%.1f}`, reason, length.Seconds()))
}

// reset regenerates the world and returns everyone to spectating
func (m *Match) reset() {
	m.resetWorld()
	m.roster = nil
	m.Phase = PhaseWaiting
	m.SuddenDeath = false
	for _, p := range m.players {
		p.MakeSpectator()
		p.ResetEconomy()
	}
	m.log.Info("match reset")
	m.cur.all(MsgMatchReset, struct{}{})
	m.cur.Resync = true
	for _, p := range m.sortedPlayers() {
		m.cur.to(p.ID, MsgInventory, p.InventoryMsg())
	}
}

// BlockRemoved routes bed removals to the owner's bed-loss handling
func (m *Match) BlockRemoved(pos BlockPos, it Item) {
	if it != ItemBed {
		return
	}
	owner, ok := m.beds[pos]
	if !ok {
		return
	}
	delete(m.beds, pos)
	if p := m.players[owner]; p != nil && p.BedAnchor != nil && *p.BedAnchor == pos {
		p.BedAnchor = nil
	}
	by := m.breaker
	if b := m.players[by]; b != nil && by != owner {
		b.Stats.BedsBroken++
		m.track(EvtBedDestroyed, b, fmt.Sprintf(`{"owner":%q}`, owner))
	}
	if m.cur != nil {
		m.cur.all(MsgBedDestroyed, BedDestroyedMsg{Owner: owner, By: by, Pos: pos})
	}
}

func (m *Match) activePlayers() []*Player {
	var out []*Player
	for _, p := range m.sortedPlayers() {
		if !p.Spectator {
			out = append(out, p)
		}
	}
	return out
}

func (m *Match) sortedPlayers() []*Player {
	out := make([]*Player, 0, len(m.players))
	for _, p := range m.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Match) bedList() []BedState {
	out := make([]BedState, 0, len(m.beds))
	for pos, owner := range m.beds {
		out = append(out, BedState{Owner: owner, Pos: pos})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Owner < out[j].Owner })
	return out
}

// secondsUntil rounds the remaining time up to whole seconds, never below zero
func secondsUntil(now, deadline time.Time) int {
	d := deadline.Sub(now)
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
