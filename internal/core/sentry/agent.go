// Package sentry implements the behavior controller of an autonomous sentry: every tick it picks
// one of patrol, chase or engage from what it can currently see and what it remembers, then
// turns its aim gimbal, moves, and fires projectiles at a visible target.
package sentry

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/zeusync/sentry/internal/core/events"
	"github.com/zeusync/sentry/internal/core/events/bus"
	"github.com/zeusync/sentry/internal/core/geom"
	"github.com/zeusync/sentry/internal/core/observability/log"
	"github.com/zeusync/sentry/internal/core/world"
)

const (
	source = "sentry"

	// aimInterpSpeed scales the fraction of the remaining angle the aim closes per second.
	aimInterpSpeed = 5.0
	// patrolInterpSpeed is the rotator interpolation rate used while patrolling.
	patrolInterpSpeed = 5.0
	// alignmentThreshold is cos(~11.5°): the aim cone within which the agent fires.
	alignmentThreshold = 0.98
	// arrivalRadius is how close counts as having reached a point.
	arrivalRadius = 5.0
	// fireTimeTolerance absorbs the rounding of a clock accumulated from float tick lengths.
	fireTimeTolerance = 1e-9

	noWaypoint = -1
)

type Option func(*Agent)

func WithBus(b bus.EventBus) Option { return func(a *Agent) { a.bus = b } }

func WithLogger(l log.Log) Option { return func(a *Agent) { a.log = l } }

// WithRand injects the random source used for waypoint selection.
func WithRand(r *rand.Rand) Option { return func(a *Agent) { a.rng = r } }

// WithPlayerFilter replaces the classification of entities that may become a target. By default
// only pawns do.
func WithPlayerFilter(f func(world.Entity) bool) Option {
	return func(a *Agent) { a.isPlayerLike = f }
}

// IsPawn is the default player-like predicate.
func IsPawn(e world.Entity) bool { return e.Kind() == world.KindPawn }

// Agent is a single sentry. It is driven from one goroutine: Tick and the listener callbacks
// must not run concurrently.
type Agent struct {
	id      world.EntityID
	cfg     Config
	world   world.World
	spawner world.Spawner
	bus     bus.EventBus
	log     log.Log
	rng     *rand.Rand

	isPlayerLike func(world.Entity) bool

	// aim gimbal: yaw in world space, pitch relative to the yaw frame. The body keeps its
	// placement rotation; only the gimbal turns.
	yaw   geom.Rotator
	pitch geom.Rotator

	mode   Mode
	target world.EntityID

	lastKnownTarget mgl64.Vec3
	hasSeenTarget   bool

	selected    int
	previous    int
	hasSelected bool

	lastFire float64
	shots    int
	dead     bool
}

var (
	_ world.OverlapListener = (*Agent)(nil)
	_ world.DeathListener   = (*Agent)(nil)
)

// New attaches a sentry controller to the entity id. The fire timer starts at the current
// simulation time, so the first shot needs a full fire interval of alignment.
func New(id world.EntityID, cfg Config, w world.World, spawner world.Spawner, opts ...Option) (*Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	self, ok := world.Resolve(w, id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, id)
	}
	if cfg.Name == "" {
		cfg.Name = self.Name()
	}
	cfg.Waypoints = append([]world.EntityID(nil), cfg.Waypoints...)

	a := &Agent{
		id:           id,
		cfg:          cfg,
		world:        w,
		spawner:      spawner,
		log:          log.Nop(),
		isPlayerLike: IsPawn,
		selected:     noWaypoint,
		previous:     noWaypoint,
		lastFire:     w.Now(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.rng == nil {
		a.rng = NewRand(cfg.Name, 0)
	}
	a.log = a.log.With(log.String("sentry", cfg.Name), log.Uint64("entity", uint64(id)))

	initial := self.Rotation()
	a.yaw = initial.YawOnly()
	a.pitch = initial.PitchOnly()
	return a, nil
}

// Tick runs one behavior step of dt seconds.
func (a *Agent) Tick(dt float64) {
	if a.dead {
		return
	}
	self, ok := world.Resolve(a.world, a.id)
	if !ok {
		a.dead = true
		return
	}
	pos := self.Position()

	target, visible := a.visibleTarget(pos)
	mode := ModePatrol
	switch {
	case visible:
		mode = ModeEngage
	case a.hasSeenTarget:
		mode = ModeChase
	}
	a.setMode(mode)

	switch mode {
	case ModeEngage:
		a.engage(dt, pos, target)
	case ModeChase:
		a.chase(dt, pos)
	default:
		a.patrol(dt, pos)
	}
}

func (a *Agent) setMode(m Mode) {
	if m == a.mode {
		return
	}
	a.log.Debug("mode changed", log.Stringer("from", a.mode), log.Stringer("to", m))
	events.Publish(a.bus, events.ModeChanged, source, events.ModeChange{
		Sentry: a.id,
		From:   a.mode.String(),
		To:     m.String(),
		Time:   a.world.Now(),
	})
	a.mode = m
}

func (a *Agent) engage(dt float64, pos mgl64.Vec3, target world.Entity) {
	a.hasSeenTarget = true
	a.lastKnownTarget = target.Position()

	desired := geom.DirectionTo(a.aimOrigin(pos), a.lastKnownTarget)
	current := geom.SlerpVectorToDirection(a.Aim().Vector(), desired, aimInterpSpeed*dt)

	aim := geom.RotFromX(current)
	a.yaw = aim.YawOnly()
	a.pitch = aim.PitchOnly()

	if current.Dot(desired) <= alignmentThreshold {
		// misaligned: the fire interval restarts
		a.lastFire = a.world.Now()
		return
	}
	if a.world.TimeSince(a.lastFire)+fireTimeTolerance >= 1/a.cfg.FireRate {
		a.fire(pos)
	}
}

func (a *Agent) fire(pos mgl64.Vec3) {
	muzzle, rot := a.muzzle(pos)
	id, err := a.spawner.Spawn(a.cfg.ProjectileType, muzzle, rot, a.id)
	if err != nil {
		a.log.Warn("projectile spawn failed", log.String("type", a.cfg.ProjectileType), log.Error(err))
		return
	}
	now := a.world.Now()
	a.lastFire = now
	a.shots++
	a.log.Debug("fired", log.Uint64("projectile", uint64(id)), log.Vec3("muzzle", muzzle))
	events.Publish(a.bus, events.Fired, source, events.Shot{
		Sentry:     a.id,
		Projectile: id,
		Muzzle:     muzzle,
		Direction:  rot.Vector(),
		Time:       now,
	})
}

func (a *Agent) chase(dt float64, pos mgl64.Vec3) {
	next := a.moveTowards(pos, a.lastKnownTarget, dt)
	if geom.Distance(next, a.lastKnownTarget) < arrivalRadius {
		a.hasSeenTarget = false
		a.log.Debug("reached last known target position", log.Vec3("position", next))
	}
}

func (a *Agent) patrol(dt float64, pos mgl64.Vec3) {
	if len(a.cfg.Waypoints) == 0 {
		return
	}
	if !a.hasSelected {
		a.selectWaypoint(pos)
		return
	}

	wp, ok := world.Resolve(a.world, a.cfg.Waypoints[a.selected])
	if !ok {
		a.hasSelected = false
		return
	}
	goal := wp.Position()
	want := geom.RotFromX(geom.DirectionTo(pos, goal))
	a.yaw = geom.RInterpTo(a.yaw, want.YawOnly(), dt, patrolInterpSpeed)
	a.pitch = geom.RInterpTo(a.pitch, want.PitchOnly(), dt, patrolInterpSpeed)

	if geom.Distance(pos, goal) > arrivalRadius {
		a.moveTowards(pos, goal, dt)
		return
	}
	a.hasSelected = false
	a.log.Debug("reached waypoint", log.Int("index", a.selected))
}

// selectWaypoint tries exactly one candidate. An unreachable candidate leaves the selection empty
// and is retried on the next tick.
func (a *Agent) selectWaypoint(pos mgl64.Vec3) {
	idx := a.sampleWaypoint()
	wp, ok := world.Resolve(a.world, a.cfg.Waypoints[idx])
	if !ok || !a.canReach(pos, wp) {
		return
	}
	a.previous = idx
	a.selected = idx
	a.hasSelected = true
	a.log.Debug("selected waypoint", log.Int("index", idx), log.String("waypoint", wp.Name()))
}

// sampleWaypoint draws uniformly among the waypoints other than the previous one. A single
// waypoint is always drawn.
func (a *Agent) sampleWaypoint() int {
	n := len(a.cfg.Waypoints)
	if n == 1 || a.previous == noWaypoint {
		return a.rng.Intn(n)
	}
	idx := a.rng.Intn(n - 1)
	if idx >= a.previous {
		idx++
	}
	return idx
}

// moveTowards translates the agent towards goal by speed*dt without passing it and returns the
// new position.
func (a *Agent) moveTowards(pos, goal mgl64.Vec3, dt float64) mgl64.Vec3 {
	dist := geom.Distance(pos, goal)
	step := math.Min(a.cfg.Speed*dt, dist)
	if step <= 0 {
		return pos
	}
	next := pos.Add(geom.DirectionTo(pos, goal).Mul(step))
	a.world.SetPosition(a.id, next)
	return next
}

func (a *Agent) visibleTarget(pos mgl64.Vec3) (world.Entity, bool) {
	target, ok := world.Resolve(a.world, a.target)
	if !ok {
		return nil, false
	}
	hit, blocked := a.world.Raycast(a.aimOrigin(pos), target.Position(), a.id)
	if !blocked || !hit.Blocking {
		return target, true
	}
	// the target's own collider does not hide it; anything else does
	return target, hit.Entity != nil && hit.Entity.ID() == target.ID()
}

// canReach reports a clear line from the agent to the waypoint. Any blocking hit, the waypoint's
// own collider included, makes it unreachable.
func (a *Agent) canReach(pos mgl64.Vec3, wp world.Entity) bool {
	hit, blocked := a.world.Raycast(pos, wp.Position(), a.id)
	return !blocked || !hit.Blocking
}

func (a *Agent) aimOrigin(pos mgl64.Vec3) mgl64.Vec3 {
	return pos.Add(a.yaw.RotateVector(a.cfg.AimOffset))
}

func (a *Agent) muzzle(pos mgl64.Vec3) (mgl64.Vec3, geom.Rotator) {
	aim := a.Aim()
	return a.aimOrigin(pos).Add(aim.RotateVector(a.cfg.MuzzleOffset)), aim
}

// OnProximityEnter makes a player-like entity the target, replacing any previous one.
func (a *Agent) OnProximityEnter(other world.Entity) {
	if a.dead || other == nil || other.ID() == a.id || !a.isPlayerLike(other) {
		return
	}
	a.target = other.ID()
	a.log.Info("target in range", log.String("target", other.Name()))
	events.Publish(a.bus, events.TargetAcquired, source, events.TargetChange{Sentry: a.id, Target: a.target})
}

// OnProximityExit clears the target when the entity leaving is the current target.
func (a *Agent) OnProximityExit(other world.Entity) {
	if other == nil || !a.target.Valid() || other.ID() != a.target {
		return
	}
	lost := a.target
	a.target = world.None
	a.log.Info("target lost", log.String("target", other.Name()))
	events.Publish(a.bus, events.TargetLost, source, events.TargetChange{Sentry: a.id, Target: lost})
}

// OnDeath removes the agent from the world. It is terminal.
func (a *Agent) OnDeath() {
	if a.dead {
		return
	}
	a.dead = true
	a.log.Info("destroyed")
	events.Publish(a.bus, events.SentryDied, source, events.Lifecycle{Entity: a.id, Name: a.cfg.Name, Kind: world.KindSentry})
	a.world.Destroy(a.id)
}
