package geom

import (
	"github.com/go-gl/mathgl/mgl64"
)

const rotatorTolerance = 1e-4

// RInterpTo moves current towards target by a fraction speed*dt of the remaining shortest-path
// difference on each axis. The fraction is clamped to [0, 1] so a large step lands exactly on
// target. A non-positive speed snaps to target; a zero dt leaves current untouched.
func RInterpTo(current, target Rotator, dt, speed float64) Rotator {
	if dt == 0 || current == target {
		return current
	}
	if speed <= 0 {
		return target
	}
	delta := target.Sub(current).Normalized()
	if delta.IsNearlyZero(rotatorTolerance) {
		return target
	}
	step := mgl64.Clamp(speed*dt, 0, 1)
	return current.Add(delta.Scale(step)).Normalized()
}

// SlerpVectorToDirection rotates v towards dir by the fraction alpha of the angle between them,
// along the great circle. Alpha is clamped to [0, 1]. The length of v is preserved. Operating on
// directions instead of angles keeps the result well defined when looking straight up or down.
func SlerpVectorToDirection(v, dir mgl64.Vec3, alpha float64) mgl64.Vec3 {
	if IsZero(SafeNormal(v), smallNumber) || IsZero(SafeNormal(dir), smallNumber) {
		return v
	}
	alpha = mgl64.Clamp(alpha, 0, 1)
	delta := mgl64.QuatBetweenVectors(v, dir)
	return mgl64.QuatSlerp(mgl64.QuatIdent(), delta, alpha).Rotate(v)
}
