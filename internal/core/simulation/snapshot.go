package simulation

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/zeusync/sentry/internal/core/geom"
	"github.com/zeusync/sentry/internal/core/sentry"
	"github.com/zeusync/sentry/internal/core/world"
	"github.com/zeusync/sentry/internal/core/world/memworld"
)

// Snapshot is the observable state at the end of a tick.
type Snapshot struct {
	RunID    string            `json:"run_id"`
	Tick     uint64            `json:"tick"`
	Time     float64           `json:"time"`
	Sentries []sentry.State    `json:"sentries"`
	Bodies   []BodyState       `json:"bodies"`
	Counters map[string]uint64 `json:"counters"`
}

type BodyState struct {
	ID       world.EntityID `json:"id"`
	Name     string         `json:"name"`
	Kind     world.Kind     `json:"kind"`
	Shape    string         `json:"shape"`
	Position mgl64.Vec3     `json:"position"`
	Rotation geom.Rotator   `json:"rotation"`
	Extent   mgl64.Vec3     `json:"extent"`
	Health   *float64       `json:"health,omitempty"`
	Velocity *mgl64.Vec3    `json:"velocity,omitempty"`
}

func bodyState(b *memworld.Body) BodyState {
	s := BodyState{
		ID:       b.ID(),
		Name:     b.Name(),
		Kind:     b.Kind(),
		Shape:    b.Shape().String(),
		Position: b.Position(),
		Rotation: b.Rotation(),
		Extent:   b.Extent(),
	}
	if h, ok := b.Health(); ok {
		v := h.Current()
		s.Health = &v
	}
	if rb, ok := b.Rigid(); ok {
		v := rb.Velocity
		s.Velocity = &v
	}
	return s
}

// Find returns the body state with the given name.
func (s Snapshot) Find(name string) (BodyState, bool) {
	for _, b := range s.Bodies {
		if b.Name == name {
			return b, true
		}
	}
	return BodyState{}, false
}
