// Package world declares the narrow collaborator surface the sentry and projectile logic consume:
// entity handles with liveness, collision queries, movement, spawning and simulation time.
//
// Nothing in here owns entities. Every reference is an EntityID resolved through Lookup, and a
// failed lookup is how a caller learns that the entity is gone.
package world

import (
	"strconv"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/zeusync/sentry/internal/core/geom"
)

// EntityID is a non-owning handle to a world entity. The zero value refers to nothing.
type EntityID uint64

// None is the empty handle.
const None EntityID = 0

func (id EntityID) Valid() bool { return id != None }

func (id EntityID) String() string { return strconv.FormatUint(uint64(id), 10) }

// Kind classifies entities.
type Kind string

const (
	KindSentry     Kind = "sentry"
	KindPawn       Kind = "pawn"
	KindProjectile Kind = "projectile"
	KindWaypoint   Kind = "waypoint"
	KindObstacle   Kind = "obstacle"
)

// Entity is a read-only view of something living in the world.
type Entity interface {
	ID() EntityID
	Name() string
	Kind() Kind
	Position() mgl64.Vec3
	Rotation() geom.Rotator
	Alive() bool
}

// Component is the collision primitive reported by a hit.
type Component interface {
	SimulatingPhysics() bool
	AddImpulseAtLocation(impulse, location mgl64.Vec3)
}

// Damageable receives damage.
type Damageable interface {
	TakeDamage(amount float64)
}

// DamageReceiver is implemented by entities that may carry a Damageable.
type DamageReceiver interface {
	DamageReceiver() (Damageable, bool)
}

// Hit describes the first blocking contact of a query.
type Hit struct {
	Entity      Entity
	Component   Component
	ImpactPoint mgl64.Vec3
	Normal      mgl64.Vec3
	Distance    float64
	Blocking    bool
}

// Queries are synchronous collision queries. They never fail: no hit means a clear path.
type Queries interface {
	// Raycast traces the segment origin->dest and reports the nearest blocking hit, skipping ignore.
	Raycast(origin, dest mgl64.Vec3, ignore EntityID) (Hit, bool)
	// SweptMove moves the entity by offset, stopping at the first blocking surface along the path.
	// The entity itself and ignore never stop it.
	SweptMove(id EntityID, offset mgl64.Vec3, ignore EntityID) (Hit, bool)
}

// Registry resolves handles.
type Registry interface {
	Lookup(id EntityID) (Entity, bool)
}

// Mover writes entity transforms back into the world.
type Mover interface {
	SetPosition(id EntityID, position mgl64.Vec3) bool
	SetRotation(id EntityID, rotation geom.Rotator) bool
}

// Clock is simulation time in seconds.
type Clock interface {
	Now() float64
	TimeSince(t float64) float64
}

// Spawner creates and removes entities. Spawn takes the name of an entity type and the entity
// responsible for it, which the spawned entity never collides with.
type Spawner interface {
	Spawn(kind string, position mgl64.Vec3, rotation geom.Rotator, instigator EntityID) (EntityID, error)
	Destroy(id EntityID)
}

// World is everything a behavior needs from its environment except spawning.
type World interface {
	Registry
	Queries
	Mover
	Clock
	Destroy(id EntityID)
}

// OverlapListener receives proximity volume notifications.
type OverlapListener interface {
	OnProximityEnter(other Entity)
	OnProximityExit(other Entity)
}

// DeathListener is notified once when an entity's health is depleted.
type DeathListener interface {
	OnDeath()
}

// DeathFunc adapts a function to DeathListener.
type DeathFunc func()

func (f DeathFunc) OnDeath() { f() }

// Resolve looks id up and reports whether it is still alive.
func Resolve(r Registry, id EntityID) (Entity, bool) {
	if !id.Valid() || r == nil {
		return nil, false
	}
	e, ok := r.Lookup(id)
	if !ok || e == nil || !e.Alive() {
		return nil, false
	}
	return e, true
}
