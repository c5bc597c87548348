package sentry

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeusync/sentry/internal/core/events"
	"github.com/zeusync/sentry/internal/core/events/bus"
	"github.com/zeusync/sentry/internal/core/geom"
	"github.com/zeusync/sentry/internal/core/world"
	"github.com/zeusync/sentry/internal/core/world/memworld"
)

type spawnCall struct {
	kind       string
	pos        mgl64.Vec3
	rot        geom.Rotator
	instigator world.EntityID
	at         float64
}

type recordingSpawner struct {
	w     *memworld.World
	calls []spawnCall
	err   error
}

func (s *recordingSpawner) Spawn(kind string, pos mgl64.Vec3, rot geom.Rotator, instigator world.EntityID) (world.EntityID, error) {
	if s.err != nil {
		return world.None, s.err
	}
	s.calls = append(s.calls, spawnCall{kind: kind, pos: pos, rot: rot, instigator: instigator, at: s.w.Now()})
	return world.EntityID(1000 + len(s.calls)), nil
}

func (s *recordingSpawner) Destroy(world.EntityID) {}

type fixture struct {
	w     *memworld.World
	bus   bus.EventBus
	sp    *recordingSpawner
	body  *memworld.Body
	agent *Agent
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b := bus.New()
	w := memworld.New(memworld.WithBus(b))
	body, err := w.Add(memworld.BodySpec{Name: "sentry", Kind: world.KindSentry, Shape: memworld.ShapeSphere, Radius: 20, Blocking: true, Health: 100})
	require.NoError(t, err)
	return &fixture{w: w, bus: b, sp: &recordingSpawner{w: w}, body: body}
}

func (f *fixture) build(t *testing.T, mutate func(*Config)) *Agent {
	t.Helper()
	cfg := DefaultConfig()
	cfg.ProjectileType = "bolt"
	if mutate != nil {
		mutate(&cfg)
	}
	a, err := New(f.body.ID(), cfg, f.w, f.sp, WithBus(f.bus), WithRand(rand.New(rand.NewSource(7))))
	require.NoError(t, err)
	f.agent = a
	return a
}

func (f *fixture) tick(dt float64) {
	f.w.Advance(dt)
	f.agent.Tick(dt)
}

func (f *fixture) pawn(t *testing.T, pos mgl64.Vec3) *memworld.Body {
	t.Helper()
	b, err := f.w.Add(memworld.BodySpec{Name: "pawn", Kind: world.KindPawn, Position: pos, Shape: memworld.ShapeSphere, Radius: 10, Blocking: true, Health: 100})
	require.NoError(t, err)
	return b
}

func (f *fixture) waypoint(t *testing.T, pos mgl64.Vec3) world.EntityID {
	t.Helper()
	b, err := f.w.Add(memworld.BodySpec{Kind: world.KindWaypoint, Position: pos, Shape: memworld.ShapeSphere, Radius: 1})
	require.NoError(t, err)
	return b.ID()
}

func (f *fixture) wall(t *testing.T, pos mgl64.Vec3) *memworld.Body {
	t.Helper()
	b, err := f.w.Add(memworld.BodySpec{Name: "wall", Kind: world.KindObstacle, Position: pos, Shape: memworld.ShapeBox, HalfExtents: mgl64.Vec3{5, 50, 50}, Blocking: true})
	require.NoError(t, err)
	return b
}

func (f *fixture) position() mgl64.Vec3 {
	pos, _ := f.agent.Position()
	return pos
}

func TestNewValidates(t *testing.T) {
	f := newFixture(t)
	_, err := New(f.body.ID(), Config{FireRate: 0, Speed: -1}, f.w, f.sp)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "fire rate")
	assert.Contains(t, err.Error(), "speed")
	assert.Contains(t, err.Error(), "projectile type")

	cfg := DefaultConfig()
	cfg.ProjectileType = "bolt"
	_, err = New(99, cfg, f.w, f.sp)
	assert.ErrorIs(t, err, ErrUnknownEntity)

	cfg.Waypoints = []world.EntityID{world.None}
	_, err = New(f.body.ID(), cfg, f.w, f.sp)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNoTargetIsNeverVisible(t *testing.T) {
	f := newFixture(t)
	a := f.build(t, nil)
	f.pawn(t, mgl64.Vec3{100, 0, 0})

	for i := 0; i < 4; i++ {
		f.tick(0.25)
		assert.False(t, a.TargetIsVisible())
		assert.Equal(t, ModePatrol, a.Mode())
	}
	assert.Empty(t, f.sp.calls)
	assert.Equal(t, world.None, a.Target())
}

func TestAcquisitionRules(t *testing.T) {
	f := newFixture(t)
	a := f.build(t, nil)
	first := f.pawn(t, mgl64.Vec3{100, 0, 0})
	second := f.pawn(t, mgl64.Vec3{0, 100, 0})
	crate := f.wall(t, mgl64.Vec3{-100, 0, 0})

	a.OnProximityEnter(crate)
	assert.Equal(t, world.None, a.Target())

	a.OnProximityEnter(first)
	assert.Equal(t, first.ID(), a.Target())

	// last entered wins
	a.OnProximityEnter(second)
	assert.Equal(t, second.ID(), a.Target())

	// exits of anything but the target are ignored
	a.OnProximityExit(first)
	assert.Equal(t, second.ID(), a.Target())

	a.OnProximityExit(second)
	assert.Equal(t, world.None, a.Target())
}

func TestPlayerFilter(t *testing.T) {
	f := newFixture(t)
	cfg := DefaultConfig()
	cfg.ProjectileType = "bolt"
	a, err := New(f.body.ID(), cfg, f.w, f.sp, WithPlayerFilter(func(e world.Entity) bool { return e.Name() == "intruder" }))
	require.NoError(t, err)

	a.OnProximityEnter(f.pawn(t, mgl64.Vec3{100, 0, 0}))
	assert.Equal(t, world.None, a.Target())

	intruder, err := f.w.Add(memworld.BodySpec{Name: "intruder", Kind: world.KindObstacle, Position: mgl64.Vec3{50, 0, 0}, Shape: memworld.ShapeSphere, Radius: 1})
	require.NoError(t, err)
	a.OnProximityEnter(intruder)
	assert.Equal(t, intruder.ID(), a.Target())
}

// anonymousHitWorld reports a blocking hit without an entity on every raycast, like static
// geometry a host world does not expose as an entity.
type anonymousHitWorld struct {
	*memworld.World
}

func (w anonymousHitWorld) Raycast(origin, dest mgl64.Vec3, _ world.EntityID) (world.Hit, bool) {
	return world.Hit{ImpactPoint: origin.Add(dest).Mul(0.5), Blocking: true}, true
}

func TestAnonymousBlockingHitHidesTarget(t *testing.T) {
	f := newFixture(t)
	cfg := DefaultConfig()
	cfg.ProjectileType = "bolt"
	a, err := New(f.body.ID(), cfg, anonymousHitWorld{f.w}, f.sp)
	require.NoError(t, err)
	f.agent = a

	a.OnProximityEnter(f.pawn(t, mgl64.Vec3{200, 0, 0}))
	assert.False(t, a.TargetIsVisible())

	f.tick(0.25)
	assert.Equal(t, ModePatrol, a.Mode())
	assert.False(t, a.HasEverSeenTarget())
	assert.Empty(t, f.sp.calls)
}

func TestVisibility(t *testing.T) {
	f := newFixture(t)
	a := f.build(t, nil)
	p := f.pawn(t, mgl64.Vec3{200, 0, 0})
	a.OnProximityEnter(p)

	// the target's own collider does not occlude it
	assert.True(t, a.TargetIsVisible())

	wall := f.wall(t, mgl64.Vec3{100, 0, 0})
	assert.False(t, a.TargetIsVisible())

	f.w.Destroy(wall.ID())
	assert.True(t, a.TargetIsVisible())

	// a stale handle degrades to not visible
	f.w.Destroy(p.ID())
	assert.False(t, a.TargetIsVisible())
	f.tick(0.25)
	assert.Equal(t, ModePatrol, a.Mode())
}

func TestEngageFiresAtFireRate(t *testing.T) {
	f := newFixture(t)
	a := f.build(t, func(c *Config) {
		c.AimOffset = mgl64.Vec3{0, 0, 10}
		c.MuzzleOffset = mgl64.Vec3{30, 0, 0}
	})
	p := f.pawn(t, mgl64.Vec3{1000, 0, 10})
	a.OnProximityEnter(p)

	for i := 0; i < 24; i++ {
		f.tick(0.125)
		assert.Equal(t, ModeEngage, a.Mode())
	}

	assert.True(t, a.HasEverSeenTarget())
	assert.Equal(t, p.Position(), a.LastKnownTargetPosition())

	// construction at t=0 starts the fire timer; ticks land on multiples of 0.125
	require.Len(t, f.sp.calls, 6)
	for i, c := range f.sp.calls {
		assert.InDelta(t, 0.5*float64(i+1), c.at, 1e-12)
		assert.Equal(t, "bolt", c.kind)
		assert.Equal(t, f.body.ID(), c.instigator)
		assert.True(t, c.pos.ApproxEqualThreshold(mgl64.Vec3{30, 0, 10}, 1e-9), "muzzle %v", c.pos)
		assert.InDelta(t, 0, c.rot.Yaw, 1e-9)
		assert.InDelta(t, 0, c.rot.Pitch, 1e-9)
	}
	assert.Equal(t, 6, a.Shots())
	assert.Equal(t, 3.0, a.LastFireTime())
}

func TestFireIntervalWithAccumulatedClock(t *testing.T) {
	f := newFixture(t)
	a := f.build(t, func(c *Config) {
		c.AimOffset = mgl64.Vec3{0, 0, 10}
		c.FireRate = 2
	})
	a.OnProximityEnter(f.pawn(t, mgl64.Vec3{1000, 0, 10}))

	// aligned from the first tick; 1/60 s ticks sum to 0.5 s only up to rounding
	var firedOn []int
	for i := 1; i <= 60; i++ {
		f.tick(1.0 / 60)
		if len(f.sp.calls) > len(firedOn) {
			firedOn = append(firedOn, i)
		}
	}
	assert.Equal(t, []int{30, 60}, firedOn)
}

func TestShotsNeverCloserThanFireInterval(t *testing.T) {
	f := newFixture(t)
	a := f.build(t, func(c *Config) { c.FireRate = 2 })
	p := f.pawn(t, mgl64.Vec3{500, 0, 0})
	a.OnProximityEnter(p)

	dts := []float64{0.125, 0.25, 0.0625, 0.5, 0.125, 0.0625, 0.25}
	for i := 0; i < 70; i++ {
		f.tick(dts[i%len(dts)])
	}
	require.NotEmpty(t, f.sp.calls)
	for i := 1; i < len(f.sp.calls); i++ {
		assert.GreaterOrEqual(t, f.sp.calls[i].at-f.sp.calls[i-1].at, 0.5)
	}
}

func TestMisalignmentRestartsFireTimer(t *testing.T) {
	f := newFixture(t)
	a := f.build(t, nil)
	p := f.pawn(t, mgl64.Vec3{0, 1000, 0})
	a.OnProximityEnter(p)

	// aim closes 62.5% of the remaining 90° each tick: 33.75°, 12.66°, 4.75°
	f.tick(0.125)
	assert.Equal(t, 0.125, a.LastFireTime())
	assert.InDelta(t, 56.25, a.Aim().Yaw, 1e-6)
	f.tick(0.125)
	assert.Equal(t, 0.25, a.LastFireTime())

	// aligned from t=0.375 on; the interval counts from the last misaligned tick
	for i := 0; i < 3; i++ {
		f.tick(0.125)
		assert.Empty(t, f.sp.calls)
		assert.Equal(t, 0.25, a.LastFireTime())
	}
	f.tick(0.125)
	require.Len(t, f.sp.calls, 1)
	assert.Equal(t, 0.75, f.sp.calls[0].at)
	assert.InDelta(t, 90, f.sp.calls[0].rot.Yaw, 1)
}

func TestAimDecomposesIntoYawAndPitch(t *testing.T) {
	f := newFixture(t)
	a := f.build(t, nil)
	p := f.pawn(t, mgl64.Vec3{300, 300, 300})
	a.OnProximityEnter(p)

	for i := 0; i < 40; i++ {
		f.tick(0.125)
	}
	assert.InDelta(t, 45, a.YawRotation().Yaw, 1e-3)
	assert.Zero(t, a.YawRotation().Pitch)
	assert.InDelta(t, 35.264, a.PitchRotation().Pitch, 1e-3)
	assert.Zero(t, a.PitchRotation().Yaw)

	want := geom.SafeNormal(mgl64.Vec3{1, 1, 1})
	assert.True(t, a.Aim().Vector().ApproxEqualThreshold(want, 1e-4))
	// only the gimbal turns
	assert.Equal(t, geom.Rotator{}, f.body.Rotation())
}

func TestFailedSpawnDoesNotCountAsShot(t *testing.T) {
	f := newFixture(t)
	a := f.build(t, nil)
	a.OnProximityEnter(f.pawn(t, mgl64.Vec3{500, 0, 0}))
	f.sp.err = errors.New("no such projectile")

	for i := 0; i < 8; i++ {
		f.tick(0.125)
	}
	assert.Zero(t, a.Shots())
	assert.Zero(t, a.LastFireTime())

	f.sp.err = nil
	f.tick(0.125)
	assert.Equal(t, 1, a.Shots())
}

func TestChaseToLastKnownPosition(t *testing.T) {
	f := newFixture(t)
	a := f.build(t, nil)
	p := f.pawn(t, mgl64.Vec3{200, 0, 0})
	a.OnProximityEnter(p)

	f.tick(0.5)
	require.Equal(t, ModeEngage, a.Mode())
	a.OnProximityExit(p)

	// the target keeps moving but the chase goal is fixed
	f.w.SetPosition(p.ID(), mgl64.Vec3{0, 900, 0})

	for i, x := range []float64{50, 100, 150} {
		f.tick(0.5)
		assert.Equal(t, ModeChase, a.Mode(), "tick %d", i)
		assert.True(t, a.HasEverSeenTarget())
		assert.True(t, f.position().ApproxEqualThreshold(mgl64.Vec3{x, 0, 0}, 1e-9))
	}
	f.tick(0.5)
	assert.Equal(t, ModeChase, a.Mode())
	assert.False(t, a.HasEverSeenTarget())
	assert.Equal(t, mgl64.Vec3{200, 0, 0}, a.LastKnownTargetPosition())

	f.tick(0.5)
	assert.Equal(t, ModePatrol, a.Mode())
}

func TestReentryInterruptsChase(t *testing.T) {
	f := newFixture(t)
	a := f.build(t, nil)
	p := f.pawn(t, mgl64.Vec3{400, 0, 0})
	a.OnProximityEnter(p)
	f.tick(0.5)
	a.OnProximityExit(p)
	f.tick(0.5)
	require.Equal(t, ModeChase, a.Mode())

	a.OnProximityEnter(p)
	f.tick(0.5)
	assert.Equal(t, ModeEngage, a.Mode())
}

func TestHiddenTargetIsChasedNotPatrolled(t *testing.T) {
	f := newFixture(t)
	a := f.build(t, func(c *Config) { c.Speed = 0 })
	p := f.pawn(t, mgl64.Vec3{200, 0, 0})
	a.OnProximityEnter(p)
	f.tick(0.25)

	f.wall(t, mgl64.Vec3{100, 0, 0})
	for i := 0; i < 10; i++ {
		f.tick(0.25)
		assert.Equal(t, ModeChase, a.Mode())
		assert.True(t, a.HasEverSeenTarget())
	}
	assert.Equal(t, p.ID(), a.Target())
}

func TestPatrolConvergesOnWaypoint(t *testing.T) {
	f := newFixture(t)
	wp := f.waypoint(t, mgl64.Vec3{0, 100, 0})
	a := f.build(t, func(c *Config) {
		c.Speed = 200
		c.Waypoints = []world.EntityID{wp}
	})

	f.tick(0.125)
	idx, ok := a.SelectedWaypoint()
	require.True(t, ok)
	assert.Equal(t, 0, idx)
	assert.Equal(t, mgl64.Vec3{}, f.position())

	f.tick(0.125)
	assert.InDelta(t, 56.25, a.YawRotation().Yaw, 1e-9)

	for _, y := range []float64{25, 50, 75, 100} {
		if y > 25 {
			f.tick(0.125)
		}
		_, ok = a.SelectedWaypoint()
		assert.True(t, ok)
		assert.True(t, f.position().ApproxEqualThreshold(mgl64.Vec3{0, y, 0}, 1e-9), "want y=%v got %v", y, f.position())
	}

	f.tick(0.125)
	_, ok = a.SelectedWaypoint()
	assert.False(t, ok)
	assert.Equal(t, 0, a.PreviousWaypoint())

	// a single waypoint is selected again
	f.tick(0.125)
	idx, ok = a.SelectedWaypoint()
	assert.True(t, ok)
	assert.Equal(t, 0, idx)
}

func TestPatrolNeverRepeatsPreviousWaypoint(t *testing.T) {
	f := newFixture(t)
	wps := []world.EntityID{
		f.waypoint(t, mgl64.Vec3{300, 0, 0}),
		f.waypoint(t, mgl64.Vec3{0, 300, 0}),
		f.waypoint(t, mgl64.Vec3{-300, 0, 0}),
		f.waypoint(t, mgl64.Vec3{0, -300, 0}),
	}
	a := f.build(t, func(c *Config) {
		c.Speed = 400
		c.Waypoints = wps
	})

	var picks []int
	selected := false
	for i := 0; i < 600; i++ {
		f.tick(0.25)
		idx, ok := a.SelectedWaypoint()
		if ok && !selected {
			picks = append(picks, idx)
		}
		selected = ok
	}
	require.Greater(t, len(picks), 20)
	seen := map[int]bool{}
	for i, p := range picks {
		seen[p] = true
		if i > 0 {
			assert.NotEqual(t, picks[i-1], p, "pick %d", i)
		}
	}
	assert.Len(t, seen, len(wps))
}

func TestUnreachableWaypointIsNeverSelected(t *testing.T) {
	f := newFixture(t)
	open := f.waypoint(t, mgl64.Vec3{0, 200, 0})
	hidden := f.waypoint(t, mgl64.Vec3{400, 0, 0})
	_, err := f.w.Add(memworld.BodySpec{Name: "bunker", Kind: world.KindObstacle, Position: mgl64.Vec3{300, 0, 0}, Shape: memworld.ShapeBox, HalfExtents: mgl64.Vec3{5, 500, 50}, Blocking: true})
	require.NoError(t, err)
	a := f.build(t, func(c *Config) {
		c.Speed = 400
		c.Waypoints = []world.EntityID{open, hidden}
	})
	assert.True(t, a.CanReachWaypoint(0))
	assert.False(t, a.CanReachWaypoint(1))
	assert.False(t, a.CanReachWaypoint(2))

	for i := 0; i < 50; i++ {
		f.tick(0.25)
		if idx, ok := a.SelectedWaypoint(); ok {
			assert.Equal(t, 0, idx)
		}
	}
	// after reaching the open waypoint only the hidden one is a candidate, so the agent waits
	assert.Equal(t, 0, a.PreviousWaypoint())
	assert.True(t, f.position().ApproxEqualThreshold(mgl64.Vec3{0, 200, 0}, 1e-9))
}

func TestBlockingWaypointIsUnreachable(t *testing.T) {
	f := newFixture(t)
	solid, err := f.w.Add(memworld.BodySpec{Kind: world.KindWaypoint, Position: mgl64.Vec3{100, 0, 0}, Shape: memworld.ShapeSphere, Radius: 5, Blocking: true})
	require.NoError(t, err)
	a := f.build(t, func(c *Config) { c.Waypoints = []world.EntityID{solid.ID()} })

	assert.False(t, a.CanReachWaypoint(0))
	for i := 0; i < 10; i++ {
		f.tick(0.25)
	}
	_, ok := a.SelectedWaypoint()
	assert.False(t, ok)
}

func TestRemovedWaypointClearsSelection(t *testing.T) {
	f := newFixture(t)
	wp := f.waypoint(t, mgl64.Vec3{0, 400, 0})
	a := f.build(t, func(c *Config) { c.Waypoints = []world.EntityID{wp} })

	f.tick(0.25)
	_, ok := a.SelectedWaypoint()
	require.True(t, ok)

	f.w.Destroy(wp)
	f.tick(0.25)
	_, ok = a.SelectedWaypoint()
	assert.False(t, ok)
	f.tick(0.25)
	_, ok = a.SelectedWaypoint()
	assert.False(t, ok)
	assert.Equal(t, mgl64.Vec3{}, f.position())
}

func TestTriggerDrivenAcquisition(t *testing.T) {
	f := newFixture(t)
	a := f.build(t, nil)
	require.NoError(t, f.w.AddTrigger(f.body.ID(), DefaultProximityRadius, a))

	p := f.pawn(t, mgl64.Vec3{300, 0, 0})
	f.w.Step(0)
	assert.Equal(t, p.ID(), a.Target())

	f.w.SetPosition(p.ID(), mgl64.Vec3{900, 0, 0})
	f.w.Step(0)
	assert.Equal(t, world.None, a.Target())

	f.w.SetPosition(p.ID(), mgl64.Vec3{100, 0, 0})
	f.w.Step(0)
	require.Equal(t, p.ID(), a.Target())
	f.w.Destroy(p.ID())
	assert.Equal(t, world.None, a.Target())
}

func TestDeathRemovesAgent(t *testing.T) {
	f := newFixture(t)
	a := f.build(t, nil)
	require.NoError(t, f.w.OnDeath(f.body.ID(), a))

	died := 0
	_, err := f.bus.Subscribe(events.SentryDied, func(bus.Event) error { died++; return nil })
	require.NoError(t, err)

	p := f.pawn(t, mgl64.Vec3{300, 0, 0})
	a.OnProximityEnter(p)

	d, _ := f.body.DamageReceiver()
	d.TakeDamage(60)
	assert.False(t, a.Dead())
	d.TakeDamage(60)
	assert.True(t, a.Dead())
	assert.Equal(t, 1, died)

	_, alive := f.w.Lookup(f.body.ID())
	assert.False(t, alive)

	f.tick(1)
	assert.Empty(t, f.sp.calls)
	a.OnDeath()
	assert.Equal(t, 1, died)
}

func TestModeChangesArePublished(t *testing.T) {
	f := newFixture(t)
	a := f.build(t, nil)
	var changes []events.ModeChange
	_, err := f.bus.Subscribe(events.ModeChanged, func(e bus.Event) error {
		changes = append(changes, e.Data().(events.ModeChange))
		return nil
	})
	require.NoError(t, err)

	p := f.pawn(t, mgl64.Vec3{100, 0, 0})
	f.tick(0.25)
	assert.Empty(t, changes)

	a.OnProximityEnter(p)
	f.tick(0.25)
	f.tick(0.25)
	a.OnProximityExit(p)
	f.tick(0.25)

	require.Len(t, changes, 2)
	assert.Equal(t, "patrol", changes[0].From)
	assert.Equal(t, "engage", changes[0].To)
	assert.Equal(t, 0.5, changes[0].Time)
	assert.Equal(t, "chase", changes[1].To)
}

func TestSeedIsStablePerName(t *testing.T) {
	assert.Equal(t, Seed("alpha", 3), Seed("alpha", 3))
	assert.NotEqual(t, Seed("alpha", 3), Seed("beta", 3))
	assert.NotEqual(t, Seed("alpha", 3), Seed("alpha", 4))

	r1, r2 := NewRand("alpha", 1), NewRand("alpha", 1)
	for i := 0; i < 5; i++ {
		assert.Equal(t, r1.Intn(100), r2.Intn(100))
	}
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "patrol", ModePatrol.String())
	assert.Equal(t, "chase", ModeChase.String())
	assert.Equal(t, "engage", ModeEngage.String())
	assert.Equal(t, "unknown", Mode(9).String())
}
