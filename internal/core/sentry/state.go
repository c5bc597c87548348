package sentry

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/zeusync/sentry/internal/core/geom"
	"github.com/zeusync/sentry/internal/core/world"
)

// State is a read-only view of an agent, used for snapshots.
type State struct {
	ID               world.EntityID `json:"id"`
	Name             string         `json:"name"`
	Mode             string         `json:"mode"`
	Position         mgl64.Vec3     `json:"position"`
	Aim              geom.Rotator   `json:"aim"`
	Target           world.EntityID `json:"target,omitempty"`
	HasSeenTarget    bool           `json:"has_seen_target"`
	LastKnownTarget  mgl64.Vec3     `json:"last_known_target"`
	SelectedWaypoint int            `json:"selected_waypoint"`
	Shots            int            `json:"shots"`
	Dead             bool           `json:"dead"`
}

func (a *Agent) State() State {
	s := State{
		ID:               a.id,
		Name:             a.cfg.Name,
		Mode:             a.mode.String(),
		Aim:              a.Aim(),
		Target:           a.target,
		HasSeenTarget:    a.hasSeenTarget,
		LastKnownTarget:  a.lastKnownTarget,
		SelectedWaypoint: noWaypoint,
		Shots:            a.shots,
		Dead:             a.dead,
	}
	if idx, ok := a.SelectedWaypoint(); ok {
		s.SelectedWaypoint = idx
	}
	s.Position, _ = a.Position()
	return s
}

func (a *Agent) ID() world.EntityID { return a.id }
func (a *Agent) Name() string       { return a.cfg.Name }
func (a *Agent) Config() Config     { return a.cfg }
func (a *Agent) Mode() Mode         { return a.mode }
func (a *Agent) Dead() bool         { return a.dead }
func (a *Agent) Shots() int         { return a.shots }

// Target is the current target handle; world.None when there is none.
func (a *Agent) Target() world.EntityID { return a.target }

// LastKnownTargetPosition is where the target was last seen. It is stale by nature.
func (a *Agent) LastKnownTargetPosition() mgl64.Vec3 { return a.lastKnownTarget }

func (a *Agent) HasEverSeenTarget() bool { return a.hasSeenTarget }

func (a *Agent) LastFireTime() float64 { return a.lastFire }

// SelectedWaypoint returns the index of the waypoint being walked to.
func (a *Agent) SelectedWaypoint() (int, bool) {
	if !a.hasSelected {
		return noWaypoint, false
	}
	return a.selected, true
}

// PreviousWaypoint is the index of the last committed selection, -1 before the first one.
func (a *Agent) PreviousWaypoint() int { return a.previous }

// Aim is the combined gimbal rotation.
func (a *Agent) Aim() geom.Rotator {
	return geom.Rotator{Pitch: a.pitch.Pitch, Yaw: a.yaw.Yaw}
}

func (a *Agent) YawRotation() geom.Rotator   { return a.yaw }
func (a *Agent) PitchRotation() geom.Rotator { return a.pitch }

func (a *Agent) Position() (mgl64.Vec3, bool) {
	self, ok := world.Resolve(a.world, a.id)
	if !ok {
		return mgl64.Vec3{}, false
	}
	return self.Position(), true
}

// AimOrigin is the pitch pivot, from which visibility rays are cast.
func (a *Agent) AimOrigin() mgl64.Vec3 {
	pos, _ := a.Position()
	return a.aimOrigin(pos)
}

// Muzzle is the world position and rotation a projectile would be spawned with.
func (a *Agent) Muzzle() (mgl64.Vec3, geom.Rotator) {
	pos, _ := a.Position()
	return a.muzzle(pos)
}

// TargetIsVisible reports a clear line of sight from the aim origin to the current target.
func (a *Agent) TargetIsVisible() bool {
	pos, ok := a.Position()
	if !ok {
		return false
	}
	_, visible := a.visibleTarget(pos)
	return visible
}

// CanReachWaypoint reports a clear line from the agent to the waypoint at index.
func (a *Agent) CanReachWaypoint(index int) bool {
	if index < 0 || index >= len(a.cfg.Waypoints) {
		return false
	}
	pos, ok := a.Position()
	if !ok {
		return false
	}
	wp, ok := world.Resolve(a.world, a.cfg.Waypoints[index])
	if !ok {
		return false
	}
	return a.canReach(pos, wp)
}
