package memworld

import (
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/zeusync/sentry/internal/core/geom"
	"github.com/zeusync/sentry/internal/core/world"
)

const parallelEpsilon = 1e-12

func (w *World) Raycast(origin, dest mgl64.Vec3, ignore world.EntityID) (world.Hit, bool) {
	return w.trace(origin, dest, 0, ignore)
}

// SweptMove moves a body along offset. The body's collider is swept as a sphere of its bounding
// radius; the move stops where it first touches a blocking body other than ignore.
func (w *World) SweptMove(id world.EntityID, offset mgl64.Vec3, ignore world.EntityID) (world.Hit, bool) {
	b, ok := w.Body(id)
	if !ok {
		return world.Hit{}, false
	}
	start := b.pos
	hit, found := w.trace(start, start.Add(offset), b.BoundingRadius(), id, ignore)
	if !found {
		w.index.move(b, start.Add(offset))
		return world.Hit{}, false
	}
	w.index.move(b, start.Add(geom.SafeNormal(offset).Mul(hit.Distance)))
	return hit, true
}

// trace finds the nearest blocking body touched by a sphere of the given radius moving from
// origin to dest, skipping the ignored ids. A zero radius is a line trace.
func (w *World) trace(origin, dest mgl64.Vec3, radius float64, ignore ...world.EntityID) (world.Hit, bool) {
	d := dest.Sub(origin)
	length := d.Len()
	if length < parallelEpsilon {
		return world.Hit{}, false
	}

	lo, hi := geom.MinMax(origin, dest)
	pad := mgl64.Vec3{radius, radius, radius}
	candidates := w.index.query(lo.Sub(pad), hi.Add(pad))

	var (
		best  world.Hit
		bestT = math.Inf(1)
		found bool
	)
	for _, b := range candidates {
		if !b.alive || !b.blocking || slices.Contains(ignore, b.id) {
			continue
		}
		t, normal, impact, ok := sweepBody(b, origin, d, radius)
		if !ok || t > bestT || (t == bestT && found && b.id > best.Entity.ID()) {
			continue
		}
		bestT = t
		best = world.Hit{
			Entity:      b,
			Component:   b,
			ImpactPoint: impact,
			Normal:      normal,
			Distance:    t * length,
			Blocking:    true,
		}
		found = true
	}
	return best, found
}

// sweepBody intersects the moving sphere origin + d*t, t in [0,1], with the body collider.
func sweepBody(b *Body, origin, d mgl64.Vec3, radius float64) (t float64, normal, impact mgl64.Vec3, ok bool) {
	switch b.shape {
	case ShapeBox:
		lo, hi := b.box()
		pad := mgl64.Vec3{radius, radius, radius}
		t, normal, ok = segmentBox(origin, d, lo.Sub(pad), hi.Add(pad))
		if !ok {
			return 0, mgl64.Vec3{}, mgl64.Vec3{}, false
		}
		center := origin.Add(d.Mul(t))
		return t, normal, clampToBox(center, lo, hi), true
	default:
		t, ok = segmentSphere(origin, d, b.pos, b.radius+radius)
		if !ok {
			return 0, mgl64.Vec3{}, mgl64.Vec3{}, false
		}
		center := origin.Add(d.Mul(t))
		normal = geom.SafeNormal(center.Sub(b.pos))
		if geom.IsZero(normal, 0) {
			normal = geom.SafeNormal(d).Mul(-1)
		}
		return t, normal, b.pos.Add(normal.Mul(b.radius)), true
	}
}

// segmentSphere returns the first t in [0,1] at which o + d*t lies on the sphere. A start point
// inside the sphere reports t = 0.
func segmentSphere(o, d, c mgl64.Vec3, r float64) (float64, bool) {
	m := o.Sub(c)
	cc := m.Dot(m) - r*r
	if cc <= 0 {
		return 0, true
	}
	b := m.Dot(d)
	if b > 0 {
		return 0, false
	}
	a := d.Dot(d)
	if a < parallelEpsilon {
		return 0, false
	}
	disc := b*b - a*cc
	if disc < 0 {
		return 0, false
	}
	t := (-b - math.Sqrt(disc)) / a
	if t < 0 || t > 1 {
		return 0, false
	}
	return t, true
}

// segmentBox is the slab test of o + d*t, t in [0,1], against the box [lo, hi]. The normal is
// the outward normal of the entered face, or opposes d when the start point is inside.
func segmentBox(o, d, lo, hi mgl64.Vec3) (float64, mgl64.Vec3, bool) {
	tmin, tmax := 0.0, 1.0
	axis, sign := -1, 0.0
	for i := 0; i < 3; i++ {
		if math.Abs(d[i]) < parallelEpsilon {
			if o[i] < lo[i] || o[i] > hi[i] {
				return 0, mgl64.Vec3{}, false
			}
			continue
		}
		inv := 1 / d[i]
		t1 := (lo[i] - o[i]) * inv
		t2 := (hi[i] - o[i]) * inv
		s := -1.0
		if t1 > t2 {
			t1, t2 = t2, t1
			s = 1
		}
		if t1 > tmin {
			tmin = t1
			axis, sign = i, s
		}
		if t2 < tmax {
			tmax = t2
		}
		if tmin > tmax {
			return 0, mgl64.Vec3{}, false
		}
	}
	var n mgl64.Vec3
	if axis >= 0 {
		n[axis] = sign
	} else {
		n = geom.SafeNormal(d).Mul(-1)
	}
	return tmin, n, true
}

func clampToBox(p, lo, hi mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{
		mgl64.Clamp(p[0], lo[0], hi[0]),
		mgl64.Clamp(p[1], lo[1], hi[1]),
		mgl64.Clamp(p[2], lo[2], hi[2]),
	}
}

// overlapsSphere reports whether the body collider intersects the sphere (center, r).
func overlapsSphere(b *Body, center mgl64.Vec3, r float64) bool {
	if b.shape == ShapeBox {
		lo, hi := b.box()
		return geom.Distance(center, clampToBox(center, lo, hi)) <= r
	}
	return geom.Distance(center, b.pos) <= r+b.radius
}
