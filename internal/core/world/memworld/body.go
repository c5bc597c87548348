package memworld

import (
	"math"

	"github.com/dhconnelly/rtreego"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/zeusync/sentry/internal/core/events"
	"github.com/zeusync/sentry/internal/core/geom"
	"github.com/zeusync/sentry/internal/core/world"
)

// Shape is the collision primitive of a body. Boxes are axis aligned regardless of rotation.
type Shape uint8

const (
	ShapeSphere Shape = iota
	ShapeBox
)

func (s Shape) String() string {
	if s == ShapeBox {
		return "box"
	}
	return "sphere"
}

// BodySpec describes a body to add to the world.
type BodySpec struct {
	Name        string
	Kind        world.Kind
	Position    mgl64.Vec3
	Rotation    geom.Rotator
	Shape       Shape
	Radius      float64    // sphere
	HalfExtents mgl64.Vec3 // box
	// Blocking bodies stop raycasts and sweeps. Markers such as waypoints are non-blocking.
	Blocking bool
	// Health > 0 attaches a health component.
	Health float64
	// Mass > 0 makes the body physically simulated.
	Mass float64
}

// Body is a world entity with a collider. It implements world.Entity, world.Component and
// world.DamageReceiver.
type Body struct {
	w *World

	id       world.EntityID
	name     string
	kind     world.Kind
	pos      mgl64.Vec3
	rot      geom.Rotator
	shape    Shape
	radius   float64
	half     mgl64.Vec3
	blocking bool
	alive    bool

	health *Health
	rigid  *RigidBody

	bounds rtreego.Rect
}

var (
	_ world.Entity         = (*Body)(nil)
	_ world.Component      = (*Body)(nil)
	_ world.DamageReceiver = (*Body)(nil)
)

func (b *Body) ID() world.EntityID   { return b.id }
func (b *Body) Name() string         { return b.name }
func (b *Body) Kind() world.Kind     { return b.kind }
func (b *Body) Position() mgl64.Vec3 { return b.pos }
func (b *Body) Alive() bool          { return b.alive }
func (b *Body) Shape() Shape         { return b.shape }
func (b *Body) Blocking() bool       { return b.blocking }

func (b *Body) Rotation() geom.Rotator {
	if b.rigid != nil {
		return geom.RotFromX(b.rigid.Orientation.Rotate(geom.Forward))
	}
	return b.rot
}

// Bounds implements rtreego.Spatial. It is refreshed whenever the body is re-indexed.
func (b *Body) Bounds() rtreego.Rect { return b.bounds }

// Extent is the half size of the axis aligned bounding box.
func (b *Body) Extent() mgl64.Vec3 {
	if b.shape == ShapeBox {
		return b.half
	}
	return mgl64.Vec3{b.radius, b.radius, b.radius}
}

// BoundingRadius is the radius of the sphere enclosing the collider.
func (b *Body) BoundingRadius() float64 {
	if b.shape == ShapeBox {
		return b.half.Len()
	}
	return b.radius
}

func (b *Body) box() (lo, hi mgl64.Vec3) {
	e := b.Extent()
	return b.pos.Sub(e), b.pos.Add(e)
}

// Health returns the health component, if any.
func (b *Body) Health() (*Health, bool) { return b.health, b.health != nil }

// Rigid returns the rigid body state, if the body is simulated.
func (b *Body) Rigid() (*RigidBody, bool) { return b.rigid, b.rigid != nil }

func (b *Body) DamageReceiver() (world.Damageable, bool) {
	if b.health == nil {
		return nil, false
	}
	return b.health, true
}

func (b *Body) SimulatingPhysics() bool { return b.alive && b.rigid != nil }

// AddImpulseAtLocation changes linear velocity by impulse/mass and angular velocity by the torque
// the impulse produces about the body center.
func (b *Body) AddImpulseAtLocation(impulse, location mgl64.Vec3) {
	if !b.SimulatingPhysics() {
		return
	}
	r := b.rigid
	r.Velocity = r.Velocity.Add(impulse.Mul(1 / r.Mass))
	arm := location.Sub(b.pos)
	r.AngularVelocity = r.AngularVelocity.Add(arm.Cross(impulse).Mul(1 / r.Inertia))
}

// Health is a numeric pool that signals death once when depleted.
type Health struct {
	body      *Body
	max       float64
	current   float64
	dead      bool
	listeners []world.DeathListener
}

var _ world.Damageable = (*Health)(nil)

func (h *Health) Current() float64 { return h.current }
func (h *Health) Max() float64     { return h.max }
func (h *Health) Dead() bool       { return h.dead }

func (h *Health) TakeDamage(amount float64) {
	if h.dead || amount <= 0 {
		return
	}
	h.current = math.Max(0, h.current-amount)
	w := h.body.w
	events.Publish(w.bus, events.EntityDamaged, source, events.Damage{Entity: h.body.id, Amount: amount, Remaining: h.current})
	if h.current > 0 {
		return
	}
	h.dead = true
	events.Publish(w.bus, events.EntityDied, source, events.Lifecycle{Entity: h.body.id, Name: h.body.name, Kind: h.body.kind})
	for _, l := range h.listeners {
		l.OnDeath()
	}
}

// RigidBody is the simulated state of a physics body. Inertia uses a solid sphere of the
// body's bounding radius.
type RigidBody struct {
	Mass            float64
	Inertia         float64
	Velocity        mgl64.Vec3
	AngularVelocity mgl64.Vec3 // radians per second
	Orientation     mgl64.Quat
}

func newRigidBody(mass, radius float64, rot geom.Rotator) *RigidBody {
	inertia := 0.4 * mass * radius * radius
	if inertia <= 0 {
		inertia = mass
	}
	return &RigidBody{Mass: mass, Inertia: inertia, Orientation: rot.Quat()}
}

func (r *RigidBody) integrate(dt, linearDamping, angularDamping float64) (moved mgl64.Vec3) {
	moved = r.Velocity.Mul(dt)
	if speed := r.AngularVelocity.Len(); speed > 0 {
		spin := mgl64.QuatRotate(speed*dt, r.AngularVelocity.Mul(1/speed))
		r.Orientation = spin.Mul(r.Orientation).Normalize()
	}
	r.Velocity = r.Velocity.Mul(math.Max(0, 1-linearDamping*dt))
	r.AngularVelocity = r.AngularVelocity.Mul(math.Max(0, 1-angularDamping*dt))
	return moved
}
