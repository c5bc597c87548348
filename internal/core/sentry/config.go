package sentry

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/zeusync/sentry/internal/core/world"
)

var (
	ErrInvalidConfig = errors.New("sentry: invalid config")
	ErrUnknownEntity = errors.New("sentry: unknown entity")
)

const (
	DefaultSpeed           = 100.0
	DefaultFireRate        = 2.0
	DefaultProximityRadius = 500.0
)

// Config is placement-time data. It is read-only once the agent is built.
type Config struct {
	Name           string
	Speed          float64
	FireRate       float64 // shots per second
	ProjectileType string
	// Waypoints is the patrol route, in order. The agent never mutates the referenced entities.
	Waypoints []world.EntityID
	// AimOffset places the pitch gimbal (the aim origin) relative to the agent, in the yaw frame.
	AimOffset mgl64.Vec3
	// MuzzleOffset places the muzzle relative to the aim origin, in the aim frame.
	MuzzleOffset mgl64.Vec3
}

func DefaultConfig() Config {
	return Config{
		Speed:    DefaultSpeed,
		FireRate: DefaultFireRate,
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.Speed < 0 {
		errs = append(errs, fmt.Errorf("%w: speed %v is negative", ErrInvalidConfig, c.Speed))
	}
	if c.FireRate <= 0 {
		errs = append(errs, fmt.Errorf("%w: fire rate %v must be positive", ErrInvalidConfig, c.FireRate))
	}
	if c.ProjectileType == "" {
		errs = append(errs, fmt.Errorf("%w: projectile type is required", ErrInvalidConfig))
	}
	for i, wp := range c.Waypoints {
		if !wp.Valid() {
			errs = append(errs, fmt.Errorf("%w: waypoint %d has no entity", ErrInvalidConfig, i))
		}
	}
	return errors.Join(errs...)
}
