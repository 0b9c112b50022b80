package main

import (
	"encoding/json"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Command is the closed set of player intents the match accepts
type Command interface {
	command()
}

// MoveCmd reports the client pose. Selected is -1 to keep the held slot.
type MoveCmd struct {
	Pos      mgl64.Vec3
	Yaw      float64
	Pitch    float64
	Crouch   bool
	Selected int
}

type BreakCmd struct{ Pos BlockPos }

type PlaceCmd struct {
	Pos  BlockPos
	Item Item
}

type BuyCmd struct{ Item Item }

type ClaimCmd struct{ PickupID string }

type AttackCmd struct{ Target string }

type ThrowCmd struct {
	Kind ProjectileKind
	Aim  mgl64.Vec3
}

type JoinCmd struct{}

type LeaveCmd struct{}

func (MoveCmd) command()   {}
func (BreakCmd) command()  {}
func (PlaceCmd) command()  {}
func (BuyCmd) command()    {}
func (ClaimCmd) command()  {}
func (AttackCmd) command() {}
func (ThrowCmd) command()  {}
func (JoinCmd) command()   {}
func (LeaveCmd) command()  {}

// Delivery addresses one message. An empty To means everyone.
type Delivery struct {
	To  string
	Msg Envelope
}

// Outcome is the side-effect set of a command or tick
type Outcome struct {
	Deliveries []Delivery
	Rejected   bool
	Resync     bool         // world regenerated, clients need a full world frame
	Result     *MatchResult // set on the tick a match ends
}

func (o *Outcome) all(t string, d interface{}) {
	o.Deliveries = append(o.Deliveries, Delivery{Msg: Envelope{T: t, Data: d}})
}

func (o *Outcome) to(id, t string, d interface{}) {
	o.Deliveries = append(o.Deliveries, Delivery{To: id, Msg: Envelope{T: t, Data: d}})
}

// reject replaces any queued effects with a single correction to id
func (o *Outcome) reject(id, t string, d interface{}) {
	o.Deliveries = o.Deliveries[:0]
	o.Rejected = true
	o.to(id, t, d)
}

// Of returns the messages of type t, in order
func (o *Outcome) Of(t string) []Delivery {
	var out []Delivery
	for _, d := range o.Deliveries {
		if d.Msg.T == t {
			out = append(out, d)
		}
	}
	return out
}

func (o *Outcome) merge(other Outcome) {
	o.Deliveries = append(o.Deliveries, other.Deliveries...)
	o.Resync = o.Resync || other.Resync
	if other.Result != nil {
		o.Result = other.Result
	}
}

// DecodeCommand turns a gameplay envelope into a Command.
// ok is false for message types that are not gameplay commands.
func DecodeCommand(env InEnvelope) (cmd Command, ok bool, err error) {
	switch env.T {
	case MsgMove:
		var m MoveMsg
		if err := unmarshalData(env.D, &m); err != nil {
			return nil, true, err
		}
		slot := -1
		if m.Selected != nil {
			slot = *m.Selected
		}
		return MoveCmd{Pos: m.Pos, Yaw: m.Yaw, Pitch: m.Pitch, Crouch: m.Crouch, Selected: slot}, true, nil
	case MsgBreak:
		var m BlockMsg
		if err := unmarshalData(env.D, &m); err != nil {
			return nil, true, err
		}
		return BreakCmd{Pos: m.Pos}, true, nil
	case MsgPlace:
		var m BlockMsg
		if err := unmarshalData(env.D, &m); err != nil {
			return nil, true, err
		}
		return PlaceCmd{Pos: m.Pos, Item: m.Item}, true, nil
	case MsgBuy:
		var m BuyMsg
		if err := unmarshalData(env.D, &m); err != nil {
			return nil, true, err
		}
		return BuyCmd{Item: m.Item}, true, nil
	case MsgClaim:
		var m ClaimMsg
		if err := unmarshalData(env.D, &m); err != nil {
			return nil, true, err
		}
		return ClaimCmd{PickupID: m.ID}, true, nil
	case MsgAttack:
		var m AttackMsg
		if err := unmarshalData(env.D, &m); err != nil {
			return nil, true, err
		}
		return AttackCmd{Target: m.Target}, true, nil
	case MsgPearl, MsgFireball:
		var m ThrowMsg
		if err := unmarshalData(env.D, &m); err != nil {
			return nil, true, err
		}
		kind := Pearl
		if env.T == MsgFireball {
			kind = Fireball
		}
		return ThrowCmd{Kind: kind, Aim: m.Aim}, true, nil
	case MsgJoin:
		return JoinCmd{}, true, nil
	case MsgLeave:
		return LeaveCmd{}, true, nil
	}
	return nil, false, nil
}

func unmarshalData(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return fmt.Errorf("missing payload")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
