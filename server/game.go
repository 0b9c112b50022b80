package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"
)

// Broadcaster interface for sending messages to clients
type Broadcaster interface {
	SendJSON(msg interface{})
	SendBinary(data []byte)
}

// rawSender is implemented by clients that accept pre-marshaled JSON
type rawSender interface {
	SendRaw(data []byte)
}

// ResultSink receives finished matches, normally a *Recorder
type ResultSink interface {
	Submit(res *MatchResult)
}

// Game drives the single match: one ticker goroutine plus transport calls,
// all serialized by mu
type Game struct {
	mu      sync.Mutex
	match   *Match
	rules   Rules
	clients map[string]Broadcaster // playerID -> client
	sink    ResultSink
	zenc    *zstd.Encoder
	running bool
	stop    chan struct{}
	done    chan struct{}
	log     *logrus.Entry
}

// NewGame creates a Game around a fresh match
func NewGame(rules Rules, clock Clock, ids IDSource) *Game {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		// only returned for invalid options
		panic(fmt.Sprintf("zstd encoder: %v", err))
	}
	return &Game{
		match:   NewMatch(rules, clock, ids),
		rules:   rules,
		clients: make(map[string]Broadcaster),
		zenc:    enc,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		log:     logger.WithField("component", "game"),
	}
}

// SetResultSink installs the match recorder
func (g *Game) SetResultSink(s ResultSink) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sink = s
}

// SetTracker forwards analytics events from the match
func (g *Game) SetTracker(t Tracker) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.match.SetTracker(t)
}

// Run starts the game loop and blocks until Stop
func (g *Game) Run() {
	g.mu.Lock()
	g.running = true
	g.mu.Unlock()
	defer close(g.done)

	ticker := time.NewTicker(g.rules.TickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.update()
		case <-g.stop:
			return
		}
	}
}

// Stop terminates the game loop and waits for the last tick to finish
func (g *Game) Stop() {
	g.mu.Lock()
	if !g.running {
		g.mu.Unlock()
		return
	}
	g.running = false
	close(g.stop)
	g.mu.Unlock()
	<-g.done
}

// Connect registers a connection, sends it the full world and seats it if auto-join is on
func (g *Game) Connect(id, name string, accountID int64, client Broadcaster) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.clients[id] = client
	p, out := g.match.AddPlayer(id)
	p.Name = name
	p.AccountID = accountID

	client.SendJSON(Envelope{T: MsgWelcome, Data: WelcomeMsg{
		ID:      id,
		Phase:   g.match.Phase,
		Reach:   g.rules.Reach,
		Catalog: ShopCatalog(),
	}})
	if frame, err := g.worldFrame(); err == nil {
		client.SendBinary(frame)
	} else {
		g.log.WithError(err).Error("encode world frame")
	}
	client.SendJSON(Envelope{T: MsgInventory, Data: p.InventoryMsg()})
	g.deliver(out)
}

// Disconnect removes a connection and its player
func (g *Game) Disconnect(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.clients[id]; !ok {
		return
	}
	delete(g.clients, id)
	g.deliver(g.match.RemovePlayer(id))
}

// SetAccount links a logged-in account to a connected player
func (g *Game) SetAccount(id string, accountID int64, name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if p := g.match.Player(id); p != nil {
		p.AccountID = accountID
		p.Name = name
	}
}

// Handle applies one player command and delivers its effects
func (g *Game) Handle(id string, cmd Command) Outcome {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := g.match.Apply(id, cmd)
	g.deliver(out)
	return out
}

// NotifyAccount sends msg to every connection logged in as accountID
func (g *Game) NotifyAccount(accountID int64, msg Envelope) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for id, c := range g.clients {
		if p := g.match.Player(id); p != nil && p.AccountID == accountID {
			c.SendJSON(msg)
		}
	}
}

// Phase returns the current match phase
func (g *Game) Phase() MatchPhase {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.match.Phase
}

// PlayerCount returns the number of connected players
func (g *Game) PlayerCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.clients)
}

// update runs one game tick
func (g *Game) update() {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := g.match.Tick()
	g.deliver(out)
	if out.Resync {
		g.broadcastWorld()
	}
	g.broadcastState()
}

// deliver routes every queued message and hands a finished match to the sink; caller holds mu
func (g *Game) deliver(out Outcome) {
	if out.Result != nil && g.sink != nil {
		g.sink.Submit(out.Result)
	}
	for _, d := range out.Deliveries {
		if d.To != "" {
			if c, ok := g.clients[d.To]; ok {
				c.SendJSON(d.Msg)
			}
			continue
		}
		g.broadcastMsg(d.Msg)
	}
}

// broadcastMsg marshals once and sends to all clients in sorted id order
func (g *Game) broadcastMsg(msg Envelope) {
	data, err := json.Marshal(msg)
	if err != nil {
		g.log.WithError(err).WithField("type", msg.T).Error("marshal broadcast")
		return
	}
	for _, id := range g.clientIDs() {
		c := g.clients[id]
		if rs, ok := c.(rawSender); ok {
			rs.SendRaw(data)
		} else {
			c.SendJSON(msg)
		}
	}
}

// broadcastState sends the post-tick snapshot as a msgpack binary frame
func (g *Game) broadcastState() {
	if len(g.clients) == 0 {
		return
	}
	body, err := msgpack.Marshal(g.match.Snapshot())
	if err != nil {
		g.log.WithError(err).Error("marshal state")
		return
	}
	frame := make([]byte, 0, len(body)+1)
	frame = append(frame, FrameState)
	frame = append(frame, body...)
	for _, c := range g.clients {
		c.SendBinary(frame)
	}
}

func (g *Game) broadcastWorld() {
	frame, err := g.worldFrame()
	if err != nil {
		g.log.WithError(err).Error("encode world frame")
		return
	}
	for _, c := range g.clients {
		c.SendBinary(frame)
	}
}

// worldFrame is FrameWorld followed by zstd(msgpack(WorldFrame))
func (g *Game) worldFrame() ([]byte, error) {
	body, err := msgpack.Marshal(g.match.WorldFrame())
	if err != nil {
		return nil, fmt.Errorf("marshal world: %w", err)
	}
	return g.zenc.EncodeAll(body, []byte{FrameWorld}), nil
}

func (g *Game) clientIDs() []string {
	ids := make([]string, 0, len(g.clients))
	for id := range g.clients {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DecodeWorldFrame reverses worldFrame; used by tools and tests
func DecodeWorldFrame(frame []byte) (WorldFrame, error) {
	var wf WorldFrame
	if len(frame) == 0 || frame[0] != FrameWorld {
		return wf, fmt.Errorf("not a world frame")
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return wf, err
	}
	defer dec.Close()
	body, err := dec.DecodeAll(frame[1:], nil)
	if err != nil {
		return wf, fmt.Errorf("decompress world: %w", err)
	}
	if err := msgpack.Unmarshal(body, &wf); err != nil {
		return wf, fmt.Errorf("unmarshal world: %w", err)
	}
	return wf, nil
}
