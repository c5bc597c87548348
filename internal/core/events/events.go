// Package events is the catalog of domain events published on the bus by sentries, projectiles
// and the world.
package events

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/zeusync/sentry/internal/core/events/bus"
	"github.com/zeusync/sentry/internal/core/world"
)

const (
	TargetAcquired  = "sentry.target_acquired"
	TargetLost      = "sentry.target_lost"
	ModeChanged     = "sentry.mode_changed"
	Fired           = "sentry.fired"
	SentryDied      = "sentry.died"
	ProjectileHit   = "projectile.impact"
	ProjectileSpent = "projectile.expired"
	EntityDamaged   = "entity.damaged"
	EntityDied      = "entity.died"
	EntityDestroyed = "entity.destroyed"
)

type TargetChange struct {
	Sentry world.EntityID `json:"sentry"`
	Target world.EntityID `json:"target"`
}

type ModeChange struct {
	Sentry world.EntityID `json:"sentry"`
	From   string         `json:"from"`
	To     string         `json:"to"`
	Time   float64        `json:"time"`
}

type Shot struct {
	Sentry     world.EntityID `json:"sentry"`
	Projectile world.EntityID `json:"projectile"`
	Muzzle     mgl64.Vec3     `json:"muzzle"`
	Direction  mgl64.Vec3     `json:"direction"`
	Time       float64        `json:"time"`
}

type Impact struct {
	Projectile world.EntityID `json:"projectile"`
	Instigator world.EntityID `json:"instigator,omitempty"`
	Struck     world.EntityID `json:"struck"`
	Point      mgl64.Vec3     `json:"point"`
	Damaged    bool           `json:"damaged"`
	Impulse    bool           `json:"impulse"`
}

type Damage struct {
	Entity    world.EntityID `json:"entity"`
	Amount    float64        `json:"amount"`
	Remaining float64        `json:"remaining"`
}

type Lifecycle struct {
	Entity world.EntityID `json:"entity"`
	Name   string         `json:"name"`
	Kind   world.Kind     `json:"kind"`
}

// Publish sends a domain event and drops delivery errors; handlers on the tick path must not be
// able to fault the simulation. A nil bus is allowed.
func Publish(b bus.EventBus, typ, source string, data any) {
	if b == nil {
		return
	}
	_ = b.Publish(bus.NewEvent(typ, source, data))
}
