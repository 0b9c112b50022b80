package main

import (
	"math"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// Clock is the monotonic time source used by the match
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// IDSource hands out unique identifiers for pickups, projectiles and connections
type IDSource interface {
	Next(prefix string) string
}

// SequenceIDs is a monotonic counter id source, compact on the wire
type SequenceIDs struct {
	n atomic.Uint64
}

// Next returns prefix followed by the next counter value
func (s *SequenceIDs) Next(prefix string) string {
	return prefix + strconv.FormatUint(s.n.Add(1), 10)
}

// UUIDs generates random v4 UUIDs, used for connection ids
type UUIDs struct{}

// Next ignores prefix; UUIDs are already globally unique
func (UUIDs) Next(string) string {
	return uuid.NewString()
}

// Clamp restricts v to [min, max]
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// horizontal drops the vertical component of v
func horizontal(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{v.X(), 0, v.Z()}
}

// yawDirection returns the horizontal unit vector a yaw angle faces
func yawDirection(yaw float64) mgl64.Vec3 {
	return mgl64.Vec3{-math.Sin(yaw), 0, -math.Cos(yaw)}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func roundVec(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{round2(v.X()), round2(v.Y()), round2(v.Z())}
}
