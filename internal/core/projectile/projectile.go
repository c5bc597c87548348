// Package projectile implements a straight-flying, single-use projectile: it sweeps forward every
// tick and on its first blocking contact applies damage and an impulse, then removes itself.
package projectile

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/zeusync/sentry/internal/core/events"
	"github.com/zeusync/sentry/internal/core/events/bus"
	"github.com/zeusync/sentry/internal/core/geom"
	"github.com/zeusync/sentry/internal/core/observability/log"
	"github.com/zeusync/sentry/internal/core/world"
)

const source = "projectile"

// Config is the per-type tuning of a projectile.
type Config struct {
	Speed             float64 `yaml:"speed" json:"speed"`
	Damage            float64 `yaml:"damage" json:"damage"`
	ImpulseMultiplier float64 `yaml:"impulse_multiplier" json:"impulse_multiplier"`
	Radius            float64 `yaml:"radius" json:"radius"`
	// Lifetime in seconds after which an unimpeded projectile is removed; zero keeps it forever.
	Lifetime float64 `yaml:"lifetime" json:"lifetime"`
}

func DefaultConfig() Config {
	return Config{
		Speed:             2000,
		Damage:            20,
		ImpulseMultiplier: 10,
		Radius:            5,
	}
}

type Option func(*Projectile)

func WithBus(b bus.EventBus) Option { return func(p *Projectile) { p.bus = b } }

func WithLogger(l log.Log) Option { return func(p *Projectile) { p.log = l } }

// WithInstigator sets the entity that fired the projectile. The projectile flies through it.
func WithInstigator(id world.EntityID) Option { return func(p *Projectile) { p.instigator = id } }

type Projectile struct {
	id         world.EntityID
	instigator world.EntityID
	cfg        Config
	world      world.World
	bus        bus.EventBus
	log        log.Log
	forward    mgl64.Vec3
	spawnedAt  float64
	done       bool
}

// New attaches projectile behavior to an already spawned entity. The rotation fixes the flight
// direction for the projectile's whole life.
func New(id world.EntityID, rotation geom.Rotator, cfg Config, w world.World, opts ...Option) *Projectile {
	p := &Projectile{
		id:        id,
		cfg:       cfg,
		world:     w,
		log:       log.Nop(),
		forward:   rotation.Vector(),
		spawnedAt: w.Now(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Projectile) ID() world.EntityID         { return p.id }
func (p *Projectile) Instigator() world.EntityID { return p.instigator }
func (p *Projectile) Forward() mgl64.Vec3        { return p.forward }
func (p *Projectile) Config() Config             { return p.cfg }
func (p *Projectile) Done() bool                 { return p.done }

// Tick advances the projectile by speed*dt along its forward direction.
func (p *Projectile) Tick(dt float64) {
	if p.done {
		return
	}
	if _, ok := world.Resolve(p.world, p.id); !ok {
		p.done = true
		return
	}
	if p.cfg.Lifetime > 0 && p.world.TimeSince(p.spawnedAt) >= p.cfg.Lifetime {
		p.terminate()
		events.Publish(p.bus, events.ProjectileSpent, source, events.Lifecycle{Entity: p.id, Kind: world.KindProjectile})
		return
	}

	hit, ok := p.world.SweptMove(p.id, p.forward.Mul(p.cfg.Speed*dt), p.instigator)
	if !ok || !hit.Blocking {
		return
	}
	p.impact(hit)
}

func (p *Projectile) impact(hit world.Hit) {
	impact := events.Impact{Projectile: p.id, Instigator: p.instigator, Point: hit.ImpactPoint}

	if hit.Entity != nil {
		impact.Struck = hit.Entity.ID()
		if r, ok := hit.Entity.(world.DamageReceiver); ok {
			if d, ok := r.DamageReceiver(); ok {
				d.TakeDamage(p.cfg.Damage)
				impact.Damaged = true
			}
		}
	}
	if hit.Component != nil && hit.Component.SimulatingPhysics() {
		hit.Component.AddImpulseAtLocation(p.forward.Mul(p.cfg.Speed*p.cfg.ImpulseMultiplier), hit.ImpactPoint)
		impact.Impulse = true
	}

	p.log.Debug("projectile impact",
		log.Uint64("projectile", uint64(p.id)),
		log.Uint64("struck", uint64(impact.Struck)),
		log.Vec3("point", hit.ImpactPoint),
		log.Bool("damaged", impact.Damaged),
		log.Bool("impulse", impact.Impulse),
	)
	p.terminate()
	events.Publish(p.bus, events.ProjectileHit, source, impact)
}

func (p *Projectile) terminate() {
	p.done = true
	p.world.Destroy(p.id)
}
