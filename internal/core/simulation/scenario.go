package simulation

import (
	"fmt"

	"github.com/zeusync/sentry/internal/config"
	"github.com/zeusync/sentry/internal/core/events/bus"
	"github.com/zeusync/sentry/internal/core/observability/log"
	"github.com/zeusync/sentry/internal/core/projectile"
	"github.com/zeusync/sentry/internal/core/sentry"
	"github.com/zeusync/sentry/internal/core/world"
	"github.com/zeusync/sentry/internal/core/world/memworld"
)

// Registry builds the projectile type registry of a scenario.
func Registry(cfg *config.Config) (*projectile.Registry, error) {
	reg := projectile.NewRegistry()
	for _, name := range cfg.ProjectileNames() {
		if err := reg.Register(name, projectile.Config(cfg.Projectiles[name])); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Build populates a new world from the scenario and primes its overlaps. Waypoints are placed
// first so sentries can refer to them by name.
func Build(cfg *config.Config, l log.Log, b bus.EventBus) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if l == nil {
		l = log.Nop()
	}
	types, err := Registry(cfg)
	if err != nil {
		return nil, err
	}
	w := memworld.New(memworld.WithBus(b), memworld.WithLogger(l))
	sim := New(w, types, WithBus(b), WithLogger(l))

	waypoints := make(map[string]world.EntityID, len(cfg.Waypoints))
	for _, wp := range cfg.Waypoints {
		id, err := sim.AddWaypoint(wp.Name, wp.Position)
		if err != nil {
			return nil, err
		}
		waypoints[wp.Name] = id
	}

	for _, o := range cfg.Obstacles {
		spec := memworld.BodySpec{
			Name:        o.Name,
			Position:    o.Position,
			Radius:      o.Radius,
			HalfExtents: o.HalfExtents,
			Mass:        o.Mass,
			Health:      o.Health,
		}
		if o.Shape == "box" {
			spec.Shape = memworld.ShapeBox
		}
		if _, err := sim.AddObstacle(spec); err != nil {
			return nil, err
		}
	}

	for _, sc := range cfg.Sentries {
		route := make([]world.EntityID, 0, len(sc.Waypoints))
		for _, name := range sc.Waypoints {
			id, ok := waypoints[name]
			if !ok {
				return nil, fmt.Errorf("%w: sentry %q: unknown waypoint %q", config.ErrInvalid, sc.Name, name)
			}
			route = append(route, id)
		}
		_, err := sim.AddSentry(SentrySpec{
			Position:        sc.Position,
			Rotation:        sc.Rotation,
			Radius:          sc.Radius,
			Health:          sc.Health,
			ProximityRadius: sc.ProximityRadius,
			Rand:            sentry.NewRand(sc.Name, cfg.Simulation.Seed),
			Agent: sentry.Config{
				Name:           sc.Name,
				Speed:          sc.Speed,
				FireRate:       sc.FireRate,
				ProjectileType: sc.Projectile,
				Waypoints:      route,
				AimOffset:      sc.AimOffset,
				MuzzleOffset:   sc.MuzzleOffset,
			},
		})
		if err != nil {
			return nil, err
		}
	}

	for _, pc := range cfg.Pawns {
		_, err := sim.AddPawn(PawnSpec{
			Name:   pc.Name,
			Path:   pc.Path,
			Speed:  pc.Speed,
			Loop:   pc.Loop,
			Radius: pc.Radius,
			Health: pc.Health,
		})
		if err != nil {
			return nil, err
		}
	}

	sim.Prime()
	l.Info("scenario built",
		log.Int("sentries", len(cfg.Sentries)),
		log.Int("pawns", len(cfg.Pawns)),
		log.Int("bodies", w.Len()),
	)
	return sim, nil
}
