package main

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// SamplesPerUnit is the ray sampling density used for projectile sweeps
const SamplesPerUnit = 2

// CheckCollision checks if two spheres overlap
func CheckCollision(a mgl64.Vec3, ra float64, b mgl64.Vec3, rb float64) bool {
	d := b.Sub(a)
	radSum := ra + rb
	return d.Dot(d) <= radSum*radSum
}

// sweepSamples splits from->to into ceil(dist*SamplesPerUnit) evenly spaced points,
// ending exactly at to. A zero-length step yields one sample.
func sweepSamples(from, to mgl64.Vec3) []mgl64.Vec3 {
	dist := to.Sub(from).Len()
	n := int(math.Ceil(dist * SamplesPerUnit))
	if n < 1 {
		n = 1
	}
	out := make([]mgl64.Vec3, n)
	for i := 1; i <= n; i++ {
		out[i-1] = from.Add(to.Sub(from).Mul(float64(i) / float64(n)))
	}
	return out
}

// segmentSphereIntersect checks if segment a-b passes within r of c
func segmentSphereIntersect(a, b, c mgl64.Vec3, r float64) bool {
	d := b.Sub(a)
	f := a.Sub(c)
	qa := d.Dot(d)
	if qa == 0 {
		return f.Dot(f) <= r*r
	}
	qb := 2 * f.Dot(d)
	qc := f.Dot(f) - r*r
	discriminant := qb*qb - 4*qa*qc
	if discriminant < 0 {
		return false
	}
	discriminant = math.Sqrt(discriminant)
	t1 := (-qb - discriminant) / (2 * qa)
	t2 := (-qb + discriminant) / (2 * qa)
	return (t1 >= 0 && t1 <= 1) || (t2 >= 0 && t2 <= 1) || (t1 <= 0 && t2 >= 1)
}

// bodyBlocked reports whether a body standing at feet overlaps any solid cell
func bodyBlocked(s *BlockStore, feet mgl64.Vec3) bool {
	for y := 0.1; y < BodyHeight; y += 0.5 {
		if s.Solid(feet.Add(mgl64.Vec3{0, y, 0})) {
			return true
		}
	}
	return s.Solid(feet.Add(mgl64.Vec3{0, BodyHeight - 0.1, 0}))
}
