package main

import (
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/vmihailenco/msgpack/v5"
)

// mockBroadcaster captures sent messages for testing
type mockBroadcaster struct {
	mu       sync.Mutex
	messages []interface{}
	binary   [][]byte
}

func (m *mockBroadcaster) SendJSON(msg interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
}

func (m *mockBroadcaster) SendBinary(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.binary = append(m.binary, append([]byte(nil), data...))
}

// ofType returns the captured envelopes with type t
func (m *mockBroadcaster) ofType(t string) []Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Envelope
	for _, msg := range m.messages {
		if env, ok := msg.(Envelope); ok && env.T == t {
			out = append(out, env)
		}
	}
	return out
}

func (m *mockBroadcaster) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = nil
	m.binary = nil
}

type captureSink struct {
	results []*MatchResult
}

func (s *captureSink) Submit(res *MatchResult) {
	s.results = append(s.results, res)
}

func newTestGame(t *testing.T) (*Game, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	return NewGame(DefaultRules(), clock, &SequenceIDs{}), clock
}

func TestGameConnectSendsWorld(t *testing.T) {
	g, _ := newTestGame(t)
	c := &mockBroadcaster{}
	g.Connect("p1", "Guest", 0, c)

	w := c.ofType(MsgWelcome)
	if len(w) != 1 {
		t.Fatalf("expected welcome, got %d", len(w))
	}
	welcome := w[0].Data.(WelcomeMsg)
	if welcome.ID != "p1" || welcome.Phase != PhaseWaiting || len(welcome.Catalog) == 0 {
		t.Errorf("unexpected welcome %+v", welcome)
	}
	if len(c.binary) != 1 {
		t.Fatalf("expected one world frame, got %d", len(c.binary))
	}
	wf, err := DecodeWorldFrame(c.binary[0])
	if err != nil {
		t.Fatalf("decode world: %v", err)
	}
	if len(wf.Blocks) != g.match.World().Blocks.Len() {
		t.Errorf("expected %d blocks, got %d", g.match.World().Blocks.Len(), len(wf.Blocks))
	}
	if len(c.ofType(MsgInventory)) != 1 {
		t.Error("expected initial inventory")
	}
	if len(c.ofType(MsgSeat)) != 1 {
		t.Error("auto-join should seat the player")
	}
	if g.PlayerCount() != 1 {
		t.Errorf("expected 1 player, got %d", g.PlayerCount())
	}
}

func TestGameBroadcastsToOthers(t *testing.T) {
	g, _ := newTestGame(t)
	c1, c2 := &mockBroadcaster{}, &mockBroadcaster{}
	g.Connect("p1", "A", 0, c1)
	g.Connect("p2", "B", 0, c2)

	if len(c1.ofType(MsgPlayerJoin)) != 2 {
		t.Errorf("p1 should see both joins, got %d", len(c1.ofType(MsgPlayerJoin)))
	}
	if len(c1.ofType(MsgCountdown)) != 1 || len(c2.ofType(MsgCountdown)) != 1 {
		t.Error("both clients should see the countdown start")
	}

	g.Disconnect("p2")
	if len(c1.ofType(MsgPlayerLeave)) != 1 {
		t.Error("p1 should see the leave")
	}
	if len(c1.ofType(MsgCountdownCancel)) != 1 {
		t.Error("countdown should cancel")
	}
	if g.PlayerCount() != 1 {
		t.Errorf("expected 1 player, got %d", g.PlayerCount())
	}
	g.Disconnect("p2")
}

func TestGameRejectionIsPrivate(t *testing.T) {
	g, clock := newTestGame(t)
	c1, c2 := &mockBroadcaster{}, &mockBroadcaster{}
	g.Connect("p1", "A", 0, c1)
	g.Connect("p2", "B", 0, c2)
	clock.Advance(g.rules.CountdownDuration)
	g.update()
	if g.Phase() != PhaseActive {
		t.Fatalf("expected active, got %s", g.Phase())
	}

	pos := BlockPos{0, 10, 0}
	g.match.World().Blocks.Place(pos, ItemGrass)
	g.match.Player("p1").Position = mgl64.Vec3{7, 10, 0}
	c1.reset()
	c2.reset()

	out := g.Handle("p1", BreakCmd{Pos: pos})
	if !out.Rejected {
		t.Fatal("expected rejection")
	}
	if len(c1.ofType(MsgRevertBlock)) != 1 {
		t.Error("requester should get the revert")
	}
	if len(c2.messages) != 0 {
		t.Errorf("other client should see nothing, got %v", c2.messages)
	}

	g.match.Player("p1").Position = mgl64.Vec3{3, 10, 0}
	g.Handle("p1", BreakCmd{Pos: pos})
	if len(c2.ofType(MsgBlockRemove)) != 1 {
		t.Error("accepted break should be broadcast")
	}
	if len(c2.ofType(MsgInventory)) != 0 {
		t.Error("inventory updates are private")
	}
}

func TestGameStateFrame(t *testing.T) {
	g, clock := newTestGame(t)
	c := &mockBroadcaster{}
	g.Connect("p1", "A", 0, c)
	c.reset()

	clock.Advance(g.rules.TickInterval())
	g.update()
	if len(c.binary) != 1 {
		t.Fatalf("expected one state frame, got %d", len(c.binary))
	}
	frame := c.binary[0]
	if frame[0] != FrameState {
		t.Fatalf("expected state frame kind, got %#x", frame[0])
	}
	var gs GameState
	if err := msgpack.Unmarshal(frame[1:], &gs); err != nil {
		t.Fatalf("unmarshal state: %v", err)
	}
	if gs.Phase != PhaseWaiting || len(gs.Players) != 1 || gs.Players[0].ID != "p1" {
		t.Errorf("unexpected state %+v", gs)
	}
	if gs.Players[0].Name != "A" {
		t.Errorf("expected name A, got %q", gs.Players[0].Name)
	}
}

func TestGameSubmitsResultAndResyncs(t *testing.T) {
	g, clock := newTestGame(t)
	sink := &captureSink{}
	g.SetResultSink(sink)
	c1, c2 := &mockBroadcaster{}, &mockBroadcaster{}
	g.Connect("p1", "A", 7, c1)
	g.Connect("p2", "B", 0, c2)
	clock.Advance(g.rules.CountdownDuration)
	g.update()

	clock.Advance(g.rules.RoundDuration)
	g.update()
	if len(sink.results) != 1 {
		t.Fatalf("expected one result, got %d", len(sink.results))
	}
	res := sink.results[0]
	if res.Reason != "time" || len(res.Players) != 2 || res.Players[0].AccountID != 7 {
		t.Errorf("unexpected result %+v", res)
	}

	c1.reset()
	clock.Advance(g.rules.EndDelay)
	g.update()
	if len(c1.ofType(MsgMatchReset)) != 1 {
		t.Fatal("expected match_reset")
	}
	// world frame first, then the state frame
	if len(c1.binary) != 2 || c1.binary[0][0] != FrameWorld || c1.binary[1][0] != FrameState {
		t.Errorf("expected world then state frame, got %d frames", len(c1.binary))
	}
	if len(sink.results) != 1 {
		t.Error("result must be submitted once")
	}
}

func TestGameNotifyAccount(t *testing.T) {
	g, _ := newTestGame(t)
	c1, c2 := &mockBroadcaster{}, &mockBroadcaster{}
	g.Connect("p1", "A", 0, c1)
	g.Connect("p2", "B", 0, c2)
	g.SetAccount("p1", 42, "alice")

	g.NotifyAccount(42, Envelope{T: MsgAchievement, Data: AchievementMsg{ID: "first_blood"}})
	if len(c1.ofType(MsgAchievement)) != 1 {
		t.Error("account holder should be notified")
	}
	if len(c2.ofType(MsgAchievement)) != 0 {
		t.Error("other players must not be notified")
	}
	if p := g.match.Player("p1"); p.Name != "alice" || p.AccountID != 42 {
		t.Errorf("account not linked: %+v", p)
	}
}

func TestGameRunStop(t *testing.T) {
	g, _ := newTestGame(t)
	go g.Run()
	running := func() bool {
		g.mu.Lock()
		defer g.mu.Unlock()
		return g.running
	}
	for !running() {
		time.Sleep(time.Millisecond)
	}
	g.Stop()
	g.Stop() // second stop is a no-op
}

func TestDecodeWorldFrameRejectsGarbage(t *testing.T) {
	if _, err := DecodeWorldFrame(nil); err == nil {
		t.Error("empty frame should fail")
	}
	if _, err := DecodeWorldFrame([]byte{FrameState, 1, 2}); err == nil {
		t.Error("state frame is not a world frame")
	}
	if _, err := DecodeWorldFrame([]byte{FrameWorld, 1, 2, 3}); err == nil {
		t.Error("corrupt payload should fail")
	}
}

// activeGame seats p1 and p2 and runs the countdown out
func activeGame(t *testing.T) (*Game, *captureSink) {
	t.Helper()
	g, clock := newTestGame(t)
	sink := &captureSink{}
	g.SetResultSink(sink)
	g.Connect("p1", "A", 7, &mockBroadcaster{})
	g.Connect("p2", "B", 8, &mockBroadcaster{})
	clock.Advance(g.rules.CountdownDuration)
	g.update()
	if g.Phase() != PhaseActive {
		t.Fatalf("expected active, got %s", g.Phase())
	}
	return g, sink
}

func expectOneResult(t *testing.T, g *Game, sink *captureSink, winner, reason string) {
	t.Helper()
	if g.Phase() != PhaseEnded {
		t.Fatalf("expected ended, got %s", g.Phase())
	}
	if len(sink.results) != 1 {
		t.Fatalf("expected 1 recorded result, got %d", len(sink.results))
	}
	if res := sink.results[0]; res.Winner != winner || res.Reason != reason {
		t.Errorf("expected %s by %s, got %s by %s", winner, reason, res.Winner, res.Reason)
	}
}

func TestGameRecordsMatchEndedByDisconnect(t *testing.T) {
	g, sink := activeGame(t)
	g.Disconnect("p2")
	expectOneResult(t, g, sink, "p1", "last_standing")
}

func TestGameRecordsMatchEndedByLeave(t *testing.T) {
	g, sink := activeGame(t)
	out := g.Handle("p2", LeaveCmd{})
	if out.Result == nil {
		t.Fatal("leave should end the match")
	}
	expectOneResult(t, g, sink, "p1", "last_standing")
}

func TestGameRecordsMatchEndedByMelee(t *testing.T) {
	g, sink := activeGame(t)
	a, b := g.match.Player("p1"), g.match.Player("p2")
	dropBed(t, g.match, b)
	a.Position = mgl64.Vec3{0, 20, 0}
	b.Position = mgl64.Vec3{2, 20, 0}
	b.Health = 1

	g.Handle("p1", AttackCmd{Target: "p2"})
	expectOneResult(t, g, sink, "p1", "last_standing")
	if res := sink.results[0]; res.Players[0].Stats.FinalKills != 1 {
		t.Errorf("expected a final kill credited to p1, got %+v", res.Players[0].Stats)
	}
}
