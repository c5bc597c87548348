package projectile

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrUnknownType   = errors.New("projectile: unknown type")
	ErrDuplicateType = errors.New("projectile: type already registered")
	ErrInvalidConfig = errors.New("projectile: invalid config")
)

// Registry maps projectile type names to their tuning.
type Registry struct {
	mu    sync.RWMutex
	types map[string]Config
}

func NewRegistry() *Registry {
	return &Registry{types: make(map[string]Config)}
}

func (r *Registry) Register(name string, cfg Config) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.types[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateType, name)
	}
	r.types[name] = cfg
	return nil
}

func (r *Registry) Lookup(name string) (Config, error) {
	r.mu.RLock()
	cfg, ok := r.types[name]
	r.mu.RUnlock()
	if !ok {
		return Config{}, fmt.Errorf("%w: %s", ErrUnknownType, name)
	}
	return cfg, nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.types))
	for n := range r.types {
		names = append(names, n)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

func (c Config) Validate() error {
	var errs []error
	if c.Speed <= 0 {
		errs = append(errs, fmt.Errorf("%w: speed must be positive", ErrInvalidConfig))
	}
	if c.Radius <= 0 {
		errs = append(errs, fmt.Errorf("%w: radius must be positive", ErrInvalidConfig))
	}
	if c.Damage < 0 || c.ImpulseMultiplier < 0 || c.Lifetime < 0 {
		errs = append(errs, fmt.Errorf("%w: damage, impulse multiplier and lifetime must not be negative", ErrInvalidConfig))
	}
	return errors.Join(errs...)
}
