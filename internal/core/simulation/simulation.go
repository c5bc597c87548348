// Package simulation drives a world of sentries, projectiles and pawns with a fixed tick on a
// single goroutine, and publishes a snapshot after every tick.
package simulation

import (
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/zeusync/sentry/internal/core/events/bus"
	"github.com/zeusync/sentry/internal/core/geom"
	"github.com/zeusync/sentry/internal/core/observability/log"
	"github.com/zeusync/sentry/internal/core/projectile"
	"github.com/zeusync/sentry/internal/core/sentry"
	"github.com/zeusync/sentry/internal/core/world"
	"github.com/zeusync/sentry/internal/core/world/memworld"
)

var ErrInvalidSpec = errors.New("simulation: invalid spec")

type Option func(*Simulation)

func WithBus(b bus.EventBus) Option { return func(s *Simulation) { s.bus = b } }

func WithLogger(l log.Log) Option { return func(s *Simulation) { s.log = l } }

// Metrics describe the cost of Step.
type Metrics struct {
	Ticks            uint64
	TotalStepTime    time.Duration
	AverageStepTime  time.Duration
	MaxStepTime      time.Duration
	LastStepDuration time.Duration
}

type Simulation struct {
	runID uuid.UUID
	world *memworld.World
	types *projectile.Registry
	bus   bus.EventBus
	log   log.Log

	agents      []*sentry.Agent
	pawns       []*Pawn
	projectiles []*projectile.Projectile
	// spawned during the current tick, moved from the next one on
	pending []*projectile.Projectile

	tick     uint64
	counters *Counters
	metrics  Metrics

	mu     sync.RWMutex
	latest Snapshot
	hooks  []func(Snapshot)
}

var _ world.Spawner = (*Simulation)(nil)

func New(w *memworld.World, types *projectile.Registry, opts ...Option) *Simulation {
	s := &Simulation{
		runID:    uuid.New(),
		world:    w,
		types:    types,
		log:      log.Nop(),
		counters: NewCounters(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.bus != nil {
		s.bus.AddObserver(s.counters)
	}
	s.log = s.log.With(log.String("run", s.runID.String()))
	return s
}

// SentrySpec places a sentry body and its controller.
type SentrySpec struct {
	Position        mgl64.Vec3
	Rotation        geom.Rotator
	Radius          float64
	Health          float64
	ProximityRadius float64
	Agent           sentry.Config
	// Rand drives waypoint selection; nil derives one from the sentry name.
	Rand *rand.Rand
}

func (s *Simulation) AddSentry(spec SentrySpec) (*sentry.Agent, error) {
	if _, err := s.types.Lookup(spec.Agent.ProjectileType); err != nil {
		return nil, fmt.Errorf("sentry %q: %w", spec.Agent.Name, err)
	}
	if spec.ProximityRadius <= 0 {
		return nil, fmt.Errorf("%w: sentry %q proximity radius %v", ErrInvalidSpec, spec.Agent.Name, spec.ProximityRadius)
	}
	body, err := s.world.Add(memworld.BodySpec{
		Name:     spec.Agent.Name,
		Kind:     world.KindSentry,
		Position: spec.Position,
		Rotation: spec.Rotation,
		Shape:    memworld.ShapeSphere,
		Radius:   spec.Radius,
		Blocking: true,
		Health:   spec.Health,
	})
	if err != nil {
		return nil, fmt.Errorf("sentry %q: %w", spec.Agent.Name, err)
	}

	opts := []sentry.Option{sentry.WithBus(s.bus), sentry.WithLogger(s.log)}
	if spec.Rand != nil {
		opts = append(opts, sentry.WithRand(spec.Rand))
	}
	agent, err := sentry.New(body.ID(), spec.Agent, s.world, s, opts...)
	if err != nil {
		s.world.Destroy(body.ID())
		return nil, fmt.Errorf("sentry %q: %w", spec.Agent.Name, err)
	}
	if err := s.world.AddTrigger(body.ID(), spec.ProximityRadius, agent); err != nil {
		s.world.Destroy(body.ID())
		return nil, fmt.Errorf("sentry %q: %w", spec.Agent.Name, err)
	}
	if spec.Health > 0 {
		if err := s.world.OnDeath(body.ID(), agent); err != nil {
			s.world.Destroy(body.ID())
			return nil, fmt.Errorf("sentry %q: %w", spec.Agent.Name, err)
		}
	}
	s.agents = append(s.agents, agent)
	return agent, nil
}

// PawnSpec places a scripted player-like body.
type PawnSpec struct {
	Name   string
	Path   []mgl64.Vec3
	Speed  float64
	Loop   bool
	Radius float64
	Health float64
}

// AddPawn places the pawn at the first point of its path. A pawn whose health runs out is
// removed from the world.
func (s *Simulation) AddPawn(spec PawnSpec) (*Pawn, error) {
	if len(spec.Path) == 0 {
		return nil, fmt.Errorf("%w: pawn %q has no path", ErrInvalidSpec, spec.Name)
	}
	body, err := s.world.Add(memworld.BodySpec{
		Name:     spec.Name,
		Kind:     world.KindPawn,
		Position: spec.Path[0],
		Shape:    memworld.ShapeSphere,
		Radius:   spec.Radius,
		Blocking: true,
		Health:   spec.Health,
	})
	if err != nil {
		return nil, fmt.Errorf("pawn %q: %w", spec.Name, err)
	}
	id := body.ID()
	if spec.Health > 0 {
		if err := s.world.OnDeath(id, world.DeathFunc(func() { s.world.Destroy(id) })); err != nil {
			return nil, fmt.Errorf("pawn %q: %w", spec.Name, err)
		}
	}
	p := newPawn(id, body.Name(), s.world, spec.Path, spec.Speed, spec.Loop)
	s.pawns = append(s.pawns, p)
	return p, nil
}

// AddWaypoint places a non-blocking marker.
func (s *Simulation) AddWaypoint(name string, position mgl64.Vec3) (world.EntityID, error) {
	b, err := s.world.Add(memworld.BodySpec{
		Name:     name,
		Kind:     world.KindWaypoint,
		Position: position,
		Shape:    memworld.ShapeSphere,
		Radius:   1,
	})
	if err != nil {
		return world.None, fmt.Errorf("waypoint %q: %w", name, err)
	}
	return b.ID(), nil
}

// AddObstacle places a static or, with mass, simulated body. Obstacles with health are removed
// when it runs out.
func (s *Simulation) AddObstacle(spec memworld.BodySpec) (*memworld.Body, error) {
	spec.Kind = world.KindObstacle
	spec.Blocking = true
	b, err := s.world.Add(spec)
	if err != nil {
		return nil, fmt.Errorf("obstacle %q: %w", spec.Name, err)
	}
	if spec.Health > 0 {
		id := b.ID()
		if err := s.world.OnDeath(id, world.DeathFunc(func() { s.world.Destroy(id) })); err != nil {
			return nil, fmt.Errorf("obstacle %q: %w", spec.Name, err)
		}
	}
	return b, nil
}

// Spawn creates a projectile of the named type fired by instigator. It joins the simulation at
// the end of the current tick.
func (s *Simulation) Spawn(kind string, position mgl64.Vec3, rotation geom.Rotator, instigator world.EntityID) (world.EntityID, error) {
	cfg, err := s.types.Lookup(kind)
	if err != nil {
		return world.None, err
	}
	b, err := s.world.Add(memworld.BodySpec{
		Kind:     world.KindProjectile,
		Position: position,
		Rotation: rotation,
		Shape:    memworld.ShapeSphere,
		Radius:   cfg.Radius,
	})
	if err != nil {
		return world.None, err
	}
	p := projectile.New(b.ID(), rotation, cfg, s.world,
		projectile.WithInstigator(instigator),
		projectile.WithBus(s.bus),
		projectile.WithLogger(s.log),
	)
	s.pending = append(s.pending, p)
	return b.ID(), nil
}

func (s *Simulation) Destroy(id world.EntityID) { s.world.Destroy(id) }

// Prime dispatches the overlaps that exist before the first tick.
func (s *Simulation) Prime() {
	s.world.Step(0)
	s.publish()
}

// Step advances the simulation by dt seconds. Within a tick: the clock advances, sentries act,
// projectiles fly, pawns walk, the world integrates bodies and dispatches overlaps, then new
// projectiles join and removed actors are dropped.
func (s *Simulation) Step(dt float64) {
	start := time.Now()

	s.world.Advance(dt)
	for _, a := range s.agents {
		a.Tick(dt)
	}
	for _, p := range s.projectiles {
		p.Tick(dt)
	}
	for _, p := range s.pawns {
		p.Tick(dt)
	}
	s.world.Step(dt)

	s.projectiles = append(s.projectiles, s.pending...)
	s.pending = s.pending[:0]
	s.prune()
	s.tick++

	s.record(time.Since(start))
	s.publish()
}

func (s *Simulation) prune() {
	agents := s.agents[:0]
	for _, a := range s.agents {
		if _, alive := world.Resolve(s.world, a.ID()); alive && !a.Dead() {
			agents = append(agents, a)
		}
	}
	s.agents = agents

	projectiles := s.projectiles[:0]
	for _, p := range s.projectiles {
		if !p.Done() {
			projectiles = append(projectiles, p)
		}
	}
	s.projectiles = projectiles

	pawns := s.pawns[:0]
	for _, p := range s.pawns {
		if p.Alive() {
			pawns = append(pawns, p)
		}
	}
	s.pawns = pawns
}

func (s *Simulation) record(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := &s.metrics
	m.Ticks++
	m.TotalStepTime += d
	m.AverageStepTime = m.TotalStepTime / time.Duration(m.Ticks)
	m.LastStepDuration = d
	if d > m.MaxStepTime {
		m.MaxStepTime = d
	}
}

func (s *Simulation) publish() {
	snap := s.snapshot()
	s.mu.Lock()
	s.latest = snap
	hooks := slices.Clone(s.hooks)
	s.mu.Unlock()
	for _, h := range hooks {
		h(snap)
	}
}

func (s *Simulation) snapshot() Snapshot {
	snap := Snapshot{
		RunID:    s.runID.String(),
		Tick:     s.tick,
		Time:     s.world.Now(),
		Sentries: make([]sentry.State, 0, len(s.agents)),
		Counters: s.counters.Snapshot(),
	}
	for _, a := range s.agents {
		snap.Sentries = append(snap.Sentries, a.State())
	}
	bodies := s.world.Bodies()
	snap.Bodies = make([]BodyState, 0, len(bodies))
	for _, b := range bodies {
		snap.Bodies = append(snap.Bodies, bodyState(b))
	}
	return snap
}

// OnSnapshot registers a hook called on the simulation goroutine after every tick. Hooks must
// not block.
func (s *Simulation) OnSnapshot(h func(Snapshot)) {
	s.mu.Lock()
	s.hooks = append(s.hooks, h)
	s.mu.Unlock()
}

// Latest returns the snapshot of the last completed tick. Safe for concurrent use.
func (s *Simulation) Latest() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

func (s *Simulation) Metrics() Metrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metrics
}

// Close detaches the simulation from the bus.
func (s *Simulation) Close() {
	if s.bus != nil {
		s.bus.RemoveObserver(s.counters)
	}
}

func (s *Simulation) RunID() uuid.UUID                      { return s.runID }
func (s *Simulation) World() *memworld.World                { return s.world }
func (s *Simulation) Tick() uint64                          { return s.tick }
func (s *Simulation) Counters() *Counters                   { return s.counters }
func (s *Simulation) Agents() []*sentry.Agent               { return s.agents }
func (s *Simulation) Pawns() []*Pawn                        { return s.pawns }
func (s *Simulation) Projectiles() []*projectile.Projectile { return s.projectiles }
