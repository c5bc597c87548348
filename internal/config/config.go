// Package config describes a scenario: the world to build, the sentries and pawns living in it,
// and how to run and observe it.
package config

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/zeusync/sentry/internal/core/geom"
	"github.com/zeusync/sentry/internal/core/observability/log"
	"github.com/zeusync/sentry/internal/core/projectile"
	"github.com/zeusync/sentry/internal/core/sentry"
	"gopkg.in/yaml.v3"
)

// DefaultProjectile is the projectile type every scenario knows.
const DefaultProjectile = "bolt"

type Config struct {
	Simulation  Simulation                `yaml:"simulation"`
	Log         Log                       `yaml:"log"`
	Server      Server                    `yaml:"server"`
	Projectiles map[string]ProjectileType `yaml:"projectiles"`
	Waypoints   []Waypoint                `yaml:"waypoints"`
	Obstacles   []Obstacle                `yaml:"obstacles"`
	Sentries    []Sentry                  `yaml:"sentries"`
	Pawns       []Pawn                    `yaml:"pawns"`
}

type Simulation struct {
	// TickRate is the number of ticks per simulated second.
	TickRate float64 `yaml:"tick_rate"`
	Seed     int64   `yaml:"seed"`
	// MaxTicks stops the run after that many ticks; zero runs until cancelled.
	MaxTicks uint64 `yaml:"max_ticks"`
	// Realtime paces ticks against the wall clock.
	Realtime bool `yaml:"realtime"`
}

// DeltaTime is the fixed tick length in seconds.
func (s Simulation) DeltaTime() float64 { return 1 / s.TickRate }

type Log struct {
	Level       string   `yaml:"level"`
	Encoding    string   `yaml:"encoding"` // json or console
	OutputPaths []string `yaml:"output_paths"`
}

// Logger converts the section into the logger configuration.
func (l Log) Logger() (log.Config, error) {
	level, err := log.ParseLevel(l.Level)
	if err != nil {
		return log.Config{}, err
	}
	return log.Config{Level: level, Encoding: l.Encoding, OutputPaths: l.OutputPaths}, nil
}

type Server struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	// Interval is the minimum time between two snapshots sent to a viewer.
	Interval time.Duration `yaml:"interval"`
}

// ProjectileType is a projectile.Config whose omitted fields keep their defaults.
type ProjectileType projectile.Config

func (p *ProjectileType) UnmarshalYAML(n *yaml.Node) error {
	type plain ProjectileType
	*p = ProjectileType(projectile.DefaultConfig())
	return n.Decode((*plain)(p))
}

type Waypoint struct {
	Name     string     `yaml:"name"`
	Position mgl64.Vec3 `yaml:"position"`
}

type Obstacle struct {
	Name        string     `yaml:"name"`
	Shape       string     `yaml:"shape"` // box or sphere
	Position    mgl64.Vec3 `yaml:"position"`
	Radius      float64    `yaml:"radius"`
	HalfExtents mgl64.Vec3 `yaml:"half_extents"`
	// Mass > 0 makes the obstacle react to impacts.
	Mass   float64 `yaml:"mass"`
	Health float64 `yaml:"health"`
}

type Sentry struct {
	Name            string       `yaml:"name"`
	Position        mgl64.Vec3   `yaml:"position"`
	Rotation        geom.Rotator `yaml:"rotation"`
	Speed           float64      `yaml:"speed"`
	FireRate        float64      `yaml:"fire_rate"`
	Projectile      string       `yaml:"projectile"`
	Waypoints       []string     `yaml:"waypoints"`
	ProximityRadius float64      `yaml:"proximity_radius"`
	AimOffset       mgl64.Vec3   `yaml:"aim_offset"`
	MuzzleOffset    mgl64.Vec3   `yaml:"muzzle_offset"`
	Radius          float64      `yaml:"radius"`
	Health          float64      `yaml:"health"`
}

func (s *Sentry) UnmarshalYAML(n *yaml.Node) error {
	type plain Sentry
	*s = DefaultSentry()
	return n.Decode((*plain)(s))
}

// Pawn is a player-like body walking a fixed path.
type Pawn struct {
	Name   string       `yaml:"name"`
	Path   []mgl64.Vec3 `yaml:"path"`
	Speed  float64      `yaml:"speed"`
	Loop   bool         `yaml:"loop"`
	Radius float64      `yaml:"radius"`
	Health float64      `yaml:"health"`
}

func (p *Pawn) UnmarshalYAML(n *yaml.Node) error {
	type plain Pawn
	*p = DefaultPawn()
	return n.Decode((*plain)(p))
}

func Default() *Config {
	return &Config{
		Simulation: Simulation{TickRate: 60},
		Log:        Log{Level: "info", Encoding: "json"},
		Server:     Server{Addr: ":8080", Interval: 100 * time.Millisecond},
		Projectiles: map[string]ProjectileType{
			DefaultProjectile: ProjectileType(projectile.DefaultConfig()),
		},
	}
}

func DefaultSentry() Sentry {
	return Sentry{
		Speed:           sentry.DefaultSpeed,
		FireRate:        sentry.DefaultFireRate,
		Projectile:      DefaultProjectile,
		ProximityRadius: sentry.DefaultProximityRadius,
		AimOffset:       mgl64.Vec3{0, 0, 20},
		MuzzleOffset:    mgl64.Vec3{40, 0, 0},
		Radius:          25,
		Health:          100,
	}
}

func DefaultPawn() Pawn {
	return Pawn{
		Speed:  150,
		Radius: 20,
		Health: 100,
	}
}
