// Package memworld is an in-memory world: it keeps bodies with sphere or box colliders in an
// R-tree and answers the collision, movement, time and lifecycle queries declared by package
// world. It is the host the simulation runs sentries and projectiles in.
package memworld

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/zeusync/sentry/internal/core/events"
	"github.com/zeusync/sentry/internal/core/events/bus"
	"github.com/zeusync/sentry/internal/core/geom"
	"github.com/zeusync/sentry/internal/core/observability/log"
	"github.com/zeusync/sentry/internal/core/world"
)

const source = "memworld"

var (
	ErrInvalidShape  = errors.New("memworld: collider must have a positive size")
	ErrUnknownEntity = errors.New("memworld: unknown entity")
	ErrNoHealth      = errors.New("memworld: entity has no health")
	ErrInvalidRadius = errors.New("memworld: trigger radius must be positive")
)

var _ world.World = (*World)(nil)

type Option func(*World)

func WithBus(b bus.EventBus) Option { return func(w *World) { w.bus = b } }

func WithLogger(l log.Log) Option { return func(w *World) { w.log = l } }

// WithDamping sets the per-second velocity decay of simulated bodies.
func WithDamping(linear, angular float64) Option {
	return func(w *World) {
		w.linearDamping = linear
		w.angularDamping = angular
	}
}

type World struct {
	bus bus.EventBus
	log log.Log

	linearDamping  float64
	angularDamping float64

	now      float64
	nextID   world.EntityID
	bodies   map[world.EntityID]*Body
	index    *spatialIndex
	triggers []*trigger
}

func New(opts ...Option) *World {
	w := &World{
		log:            log.Nop(),
		linearDamping:  0.5,
		angularDamping: 0.5,
		bodies:         make(map[world.EntityID]*Body),
		index:          newSpatialIndex(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *World) Now() float64 { return w.now }

func (w *World) TimeSince(t float64) float64 { return w.now - t }

// Advance moves the clock forward by dt seconds.
func (w *World) Advance(dt float64) {
	if dt > 0 {
		w.now += dt
	}
}

// Add creates a body from spec and indexes it.
func (w *World) Add(spec BodySpec) (*Body, error) {
	switch spec.Shape {
	case ShapeSphere:
		if spec.Radius <= 0 {
			return nil, fmt.Errorf("%w: sphere %q radius %v", ErrInvalidShape, spec.Name, spec.Radius)
		}
	case ShapeBox:
		h := spec.HalfExtents
		if h[0] <= 0 || h[1] <= 0 || h[2] <= 0 {
			return nil, fmt.Errorf("%w: box %q half extents %v", ErrInvalidShape, spec.Name, h)
		}
	default:
		return nil, fmt.Errorf("%w: unknown shape %d", ErrInvalidShape, spec.Shape)
	}

	w.nextID++
	b := &Body{
		w:        w,
		id:       w.nextID,
		name:     spec.Name,
		kind:     spec.Kind,
		pos:      spec.Position,
		rot:      spec.Rotation,
		shape:    spec.Shape,
		radius:   spec.Radius,
		half:     spec.HalfExtents,
		blocking: spec.Blocking,
		alive:    true,
	}
	if b.name == "" {
		b.name = fmt.Sprintf("%s-%d", spec.Kind, b.id)
	}
	if spec.Health > 0 {
		b.health = &Health{body: b, max: spec.Health, current: spec.Health}
	}
	if spec.Mass > 0 {
		b.rigid = newRigidBody(spec.Mass, b.BoundingRadius(), spec.Rotation)
	}
	w.bodies[b.id] = b
	w.index.insert(b)
	return b, nil
}

func (w *World) Lookup(id world.EntityID) (world.Entity, bool) {
	b, ok := w.Body(id)
	if !ok {
		return nil, false
	}
	return b, true
}

// Body returns the live body with the given id.
func (w *World) Body(id world.EntityID) (*Body, bool) {
	b, ok := w.bodies[id]
	if !ok || !b.alive {
		return nil, false
	}
	return b, true
}

// Bodies returns the live bodies ordered by id.
func (w *World) Bodies() []*Body {
	out := make([]*Body, 0, len(w.bodies))
	for _, b := range w.bodies {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (w *World) SetPosition(id world.EntityID, position mgl64.Vec3) bool {
	b, ok := w.Body(id)
	if !ok {
		return false
	}
	w.index.move(b, position)
	return true
}

func (w *World) SetRotation(id world.EntityID, rotation geom.Rotator) bool {
	b, ok := w.Body(id)
	if !ok {
		return false
	}
	b.rot = rotation
	return true
}

// OnDeath registers a listener on the entity's health component.
func (w *World) OnDeath(id world.EntityID, l world.DeathListener) error {
	b, ok := w.Body(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEntity, id)
	}
	if b.health == nil {
		return fmt.Errorf("%w: %s", ErrNoHealth, id)
	}
	b.health.listeners = append(b.health.listeners, l)
	return nil
}

// Destroy removes the entity. Triggers it was inside receive an exit notification. Destroying an
// unknown or already destroyed entity does nothing.
func (w *World) Destroy(id world.EntityID) {
	b, ok := w.Body(id)
	if !ok {
		return
	}
	b.alive = false
	w.index.remove(b)
	delete(w.bodies, id)
	w.dropTrigger(id)
	w.notifyRemoved(b)
	w.log.Debug("entity destroyed", log.Uint64("entity", uint64(id)), log.String("name", b.name))
	events.Publish(w.bus, events.EntityDestroyed, source, events.Lifecycle{Entity: id, Name: b.name, Kind: b.kind})
}

// Step integrates simulated bodies and then dispatches proximity enter/exit notifications.
func (w *World) Step(dt float64) {
	if dt > 0 {
		for _, b := range w.Bodies() {
			if b.rigid == nil {
				continue
			}
			moved := b.rigid.integrate(dt, w.linearDamping, w.angularDamping)
			if !geom.IsZero(moved, 0) {
				w.index.move(b, b.pos.Add(moved))
			}
		}
	}
	w.updateTriggers()
}

// Len is the number of live bodies.
func (w *World) Len() int { return len(w.bodies) }
