package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/zeusync/sentry/internal/core/observability/log"
	"github.com/zeusync/sentry/internal/core/projectile"
	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("config: invalid scenario")

// Load decodes a YAML scenario on top of Default and validates it. Unknown keys are rejected.
func Load(r io.Reader) (*Config, error) {
	c := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer f.Close()
	c, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Validate reports every problem of the scenario at once.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.Simulation.TickRate <= 0 {
		bad("simulation.tick_rate must be positive, got %v", c.Simulation.TickRate)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		bad("log.level: %v", err)
	}
	if c.Log.Encoding != "" && c.Log.Encoding != "json" && c.Log.Encoding != "console" {
		bad("log.encoding must be json or console, got %q", c.Log.Encoding)
	}
	if c.Server.Enabled && c.Server.Addr == "" {
		bad("server.addr is required when the server is enabled")
	}

	for _, name := range c.ProjectileNames() {
		if err := projectile.Config(c.Projectiles[name]).Validate(); err != nil {
			bad("projectile %q: %v", name, err)
		}
	}

	names := make(map[string]string)
	claim := func(kind, name string) {
		if name == "" {
			bad("%s without a name", kind)
			return
		}
		if prev, dup := names[name]; dup {
			bad("%s %q reuses the name of a %s", kind, name, prev)
			return
		}
		names[name] = kind
	}

	waypoints := make(map[string]bool, len(c.Waypoints))
	for _, w := range c.Waypoints {
		claim("waypoint", w.Name)
		waypoints[w.Name] = true
	}
	for _, o := range c.Obstacles {
		claim("obstacle", o.Name)
		switch o.Shape {
		case "sphere":
			if o.Radius <= 0 {
				bad("obstacle %q: radius must be positive", o.Name)
			}
		case "box":
			h := o.HalfExtents
			if h[0] <= 0 || h[1] <= 0 || h[2] <= 0 {
				bad("obstacle %q: half_extents must be positive", o.Name)
			}
		default:
			bad("obstacle %q: unknown shape %q", o.Name, o.Shape)
		}
		if o.Mass < 0 || o.Health < 0 {
			bad("obstacle %q: mass and health must not be negative", o.Name)
		}
	}
	for _, s := range c.Sentries {
		claim("sentry", s.Name)
		if s.Speed < 0 {
			bad("sentry %q: speed must not be negative", s.Name)
		}
		if s.FireRate <= 0 {
			bad("sentry %q: fire_rate must be positive", s.Name)
		}
		if s.ProximityRadius <= 0 || s.Radius <= 0 {
			bad("sentry %q: proximity_radius and radius must be positive", s.Name)
		}
		if s.Health < 0 {
			bad("sentry %q: health must not be negative", s.Name)
		}
		if _, ok := c.Projectiles[s.Projectile]; !ok {
			bad("sentry %q: unknown projectile type %q", s.Name, s.Projectile)
		}
		for _, wp := range s.Waypoints {
			if !waypoints[wp] {
				bad("sentry %q: unknown waypoint %q", s.Name, wp)
			}
		}
	}
	for _, p := range c.Pawns {
		claim("pawn", p.Name)
		if len(p.Path) == 0 {
			bad("pawn %q: path is empty", p.Name)
		}
		if p.Speed < 0 || p.Radius <= 0 || p.Health < 0 {
			bad("pawn %q: speed and health must not be negative, radius must be positive", p.Name)
		}
	}
	return errors.Join(errs...)
}

// ProjectileNames returns the projectile type names in sorted order.
func (c *Config) ProjectileNames() []string {
	out := make([]string, 0, len(c.Projectiles))
	for name := range c.Projectiles {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
