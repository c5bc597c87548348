package geom

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Rotator is an orientation expressed as pitch (about Y, positive is nose up), yaw (about Z,
// positive turns from X towards Y) and roll (about X), all in degrees.
type Rotator struct {
	Pitch float64 `json:"pitch" yaml:"pitch"`
	Yaw   float64 `json:"yaw" yaml:"yaw"`
	Roll  float64 `json:"roll" yaml:"roll"`
}

// YawOnly keeps the yaw component and zeroes pitch and roll.
func (r Rotator) YawOnly() Rotator { return Rotator{Yaw: r.Yaw} }

// PitchOnly keeps the pitch component and zeroes yaw and roll.
func (r Rotator) PitchOnly() Rotator { return Rotator{Pitch: r.Pitch} }

func (r Rotator) Add(o Rotator) Rotator {
	return Rotator{Pitch: r.Pitch + o.Pitch, Yaw: r.Yaw + o.Yaw, Roll: r.Roll + o.Roll}
}

func (r Rotator) Sub(o Rotator) Rotator {
	return Rotator{Pitch: r.Pitch - o.Pitch, Yaw: r.Yaw - o.Yaw, Roll: r.Roll - o.Roll}
}

func (r Rotator) Scale(s float64) Rotator {
	return Rotator{Pitch: r.Pitch * s, Yaw: r.Yaw * s, Roll: r.Roll * s}
}

// Normalized wraps every axis into (-180, 180].
func (r Rotator) Normalized() Rotator {
	return Rotator{Pitch: NormalizeAxis(r.Pitch), Yaw: NormalizeAxis(r.Yaw), Roll: NormalizeAxis(r.Roll)}
}

// IsNearlyZero reports whether every normalized axis is within tolerance degrees of zero.
func (r Rotator) IsNearlyZero(tolerance float64) bool {
	n := r.Normalized()
	return math.Abs(n.Pitch) <= tolerance && math.Abs(n.Yaw) <= tolerance && math.Abs(n.Roll) <= tolerance
}

// Vector is the unit forward direction of the rotator. Roll does not affect it.
func (r Rotator) Vector() mgl64.Vec3 {
	sp, cp := math.Sincos(mgl64.DegToRad(r.Pitch))
	sy, cy := math.Sincos(mgl64.DegToRad(r.Yaw))
	return mgl64.Vec3{cp * cy, cp * sy, sp}
}

// Quat converts the rotator into a quaternion: roll first, then pitch, then yaw.
func (r Rotator) Quat() mgl64.Quat {
	yaw := mgl64.QuatRotate(mgl64.DegToRad(r.Yaw), Up)
	pitch := mgl64.QuatRotate(-mgl64.DegToRad(r.Pitch), Right)
	roll := mgl64.QuatRotate(mgl64.DegToRad(r.Roll), Forward)
	return yaw.Mul(pitch).Mul(roll)
}

// RotateVector rotates v from the rotator's local frame into the parent frame.
func (r Rotator) RotateVector(v mgl64.Vec3) mgl64.Vec3 { return r.Quat().Rotate(v) }

func (r Rotator) String() string {
	return fmt.Sprintf("P=%.2f Y=%.2f R=%.2f", r.Pitch, r.Yaw, r.Roll)
}

// RotFromX builds the rotator whose forward vector points along dir. Roll is zero.
// A zero direction yields the zero rotator.
func RotFromX(dir mgl64.Vec3) Rotator {
	if IsZero(dir, smallNumber) {
		return Rotator{}
	}
	return Rotator{
		Pitch: mgl64.RadToDeg(math.Atan2(dir[2], math.Hypot(dir[0], dir[1]))),
		Yaw:   mgl64.RadToDeg(math.Atan2(dir[1], dir[0])),
	}
}

// NormalizeAxis wraps an angle in degrees into (-180, 180].
func NormalizeAxis(angle float64) float64 {
	angle = math.Mod(angle, 360)
	if angle > 180 {
		angle -= 360
	} else if angle <= -180 {
		angle += 360
	}
	return angle
}
