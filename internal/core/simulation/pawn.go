package simulation

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/zeusync/sentry/internal/core/geom"
	"github.com/zeusync/sentry/internal/core/world"
)

// Pawn is a scripted player-like body that walks a path of points at constant speed.
type Pawn struct {
	id       world.EntityID
	name     string
	world    world.World
	path     []mgl64.Vec3
	speed    float64
	loop     bool
	next     int
	finished bool
}

func newPawn(id world.EntityID, name string, w world.World, path []mgl64.Vec3, speed float64, loop bool) *Pawn {
	return &Pawn{
		id:       id,
		name:     name,
		world:    w,
		path:     append([]mgl64.Vec3(nil), path...),
		speed:    speed,
		loop:     loop,
		finished: len(path) == 0,
	}
}

func (p *Pawn) ID() world.EntityID { return p.id }
func (p *Pawn) Name() string       { return p.name }

// Finished reports that a non-looping pawn reached the end of its path.
func (p *Pawn) Finished() bool { return p.finished }

func (p *Pawn) Alive() bool {
	_, ok := world.Resolve(p.world, p.id)
	return ok
}

// Tick walks speed*dt along the path. Distance left over after reaching a point carries on
// towards the next one.
func (p *Pawn) Tick(dt float64) {
	e, ok := world.Resolve(p.world, p.id)
	if !ok || p.finished {
		return
	}
	start := e.Position()
	pos := start
	remaining := p.speed * dt
	// a full lap of coincident points must not spin forever
	for hops := 0; remaining > 0 && !p.finished && hops <= len(p.path); hops++ {
		goal := p.path[p.next]
		d := geom.Distance(pos, goal)
		if d > remaining {
			pos = pos.Add(geom.DirectionTo(pos, goal).Mul(remaining))
			break
		}
		pos = goal
		remaining -= d
		p.advance()
	}
	if pos == start {
		return
	}
	p.world.SetPosition(p.id, pos)
	p.world.SetRotation(p.id, geom.RotFromX(pos.Sub(start)).YawOnly())
}

func (p *Pawn) advance() {
	p.next++
	if p.next < len(p.path) {
		return
	}
	if p.loop {
		p.next = 0
		return
	}
	p.next = len(p.path) - 1
	p.finished = true
}
