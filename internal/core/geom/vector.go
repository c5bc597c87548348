// Package geom holds the small amount of 3D math the sentry and projectile logic needs on top of
// mgl64: a pitch/yaw/roll rotator, two interpolation laws and a few vector helpers.
//
// World axes: X is forward, Y is right, Z is up. Angles are in degrees.
package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

var (
	Forward = mgl64.Vec3{1, 0, 0}
	Right   = mgl64.Vec3{0, 1, 0}
	Up      = mgl64.Vec3{0, 0, 1}
)

const smallNumber = 1e-8

// SafeNormal returns v with unit length, or the zero vector when v is too short to normalize.
func SafeNormal(v mgl64.Vec3) mgl64.Vec3 {
	sq := v.Dot(v)
	if sq < smallNumber {
		return mgl64.Vec3{}
	}
	return v.Mul(1 / math.Sqrt(sq))
}

// Distance is the euclidean distance between a and b.
func Distance(a, b mgl64.Vec3) float64 { return b.Sub(a).Len() }

// DirectionTo is the unit vector from a towards b, zero when the points coincide.
func DirectionTo(a, b mgl64.Vec3) mgl64.Vec3 { return SafeNormal(b.Sub(a)) }

// IsZero reports whether every component of v is within tolerance of zero.
func IsZero(v mgl64.Vec3, tolerance float64) bool {
	return math.Abs(v[0]) <= tolerance && math.Abs(v[1]) <= tolerance && math.Abs(v[2]) <= tolerance
}

// MinMax returns the component-wise minimum and maximum of the given points.
func MinMax(points ...mgl64.Vec3) (lo, hi mgl64.Vec3) {
	if len(points) == 0 {
		return
	}
	lo, hi = points[0], points[0]
	for _, p := range points[1:] {
		for i := 0; i < 3; i++ {
			lo[i] = math.Min(lo[i], p[i])
			hi[i] = math.Max(hi[i], p[i])
		}
	}
	return lo, hi
}
