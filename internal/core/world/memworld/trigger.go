package memworld

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/zeusync/sentry/internal/core/world"
)

// trigger is a sphere attached to its owner's position that reports bodies entering and leaving
// it. Triggers never block queries.
type trigger struct {
	owner       world.EntityID
	radius      float64
	listener    world.OverlapListener
	overlapping map[world.EntityID]*Body
}

// AddTrigger attaches a proximity sphere to owner. Overlaps are evaluated on every Step.
func (w *World) AddTrigger(owner world.EntityID, radius float64, l world.OverlapListener) error {
	if radius <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidRadius, radius)
	}
	if _, ok := w.Body(owner); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEntity, owner)
	}
	w.triggers = append(w.triggers, &trigger{
		owner:       owner,
		radius:      radius,
		listener:    l,
		overlapping: make(map[world.EntityID]*Body),
	})
	return nil
}

// Overlapping returns the ids currently inside owner's trigger, ascending.
func (w *World) Overlapping(owner world.EntityID) []world.EntityID {
	for _, t := range w.triggers {
		if t.owner == owner {
			return sortedIDs(t.overlapping)
		}
	}
	return nil
}

func (w *World) dropTrigger(owner world.EntityID) {
	kept := w.triggers[:0]
	for _, t := range w.triggers {
		if t.owner != owner {
			kept = append(kept, t)
		}
	}
	w.triggers = kept
}

// notifyRemoved sends exit notifications for a body that left the world.
func (w *World) notifyRemoved(b *Body) {
	for _, t := range append([]*trigger(nil), w.triggers...) {
		if _, ok := t.overlapping[b.id]; ok {
			delete(t.overlapping, b.id)
			t.listener.OnProximityExit(b)
		}
	}
}

func (w *World) updateTriggers() {
	// listeners may destroy entities, which edits w.triggers
	for _, t := range append([]*trigger(nil), w.triggers...) {
		owner, ok := w.Body(t.owner)
		if !ok {
			continue
		}
		current := w.inside(owner.pos, t.radius, t.owner)

		var exited, entered []*Body
		for _, id := range sortedIDs(t.overlapping) {
			if _, still := current[id]; !still {
				exited = append(exited, t.overlapping[id])
			}
		}
		for _, id := range sortedIDs(current) {
			if _, was := t.overlapping[id]; !was {
				entered = append(entered, current[id])
			}
		}
		t.overlapping = current

		for _, b := range exited {
			t.listener.OnProximityExit(b)
		}
		for _, b := range entered {
			if b.alive {
				t.listener.OnProximityEnter(b)
			}
		}
	}
}

func (w *World) inside(center mgl64.Vec3, r float64, skip world.EntityID) map[world.EntityID]*Body {
	pad := mgl64.Vec3{r, r, r}
	out := make(map[world.EntityID]*Body)
	for _, b := range w.index.query(center.Sub(pad), center.Add(pad)) {
		if b.alive && b.id != skip && overlapsSphere(b, center, r) {
			out[b.id] = b
		}
	}
	return out
}

func sortedIDs(m map[world.EntityID]*Body) []world.EntityID {
	ids := make([]world.EntityID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
