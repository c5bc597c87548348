package memworld

import (
	"math"

	"github.com/dhconnelly/rtreego"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	indexMinChildren = 25
	indexMaxChildren = 50
	minRectSide      = 1e-6
)

// spatialIndex is the broadphase: bodies are stored by their bounding box, queries return the
// candidates whose boxes intersect the query box, and the exact test happens afterwards.
type spatialIndex struct {
	tree *rtreego.Rtree
}

func newSpatialIndex() *spatialIndex {
	return &spatialIndex{tree: rtreego.NewTree(3, indexMinChildren, indexMaxChildren)}
}

func (ix *spatialIndex) insert(b *Body) {
	lo, hi := b.box()
	b.bounds = rectFromBox(lo, hi)
	ix.tree.Insert(b)
}

func (ix *spatialIndex) remove(b *Body) {
	ix.tree.Delete(b)
}

// move must be used instead of mutating a body position in place: the tree locates entries by
// their stored bounds.
func (ix *spatialIndex) move(b *Body, pos mgl64.Vec3) {
	ix.remove(b)
	b.pos = pos
	ix.insert(b)
}

func (ix *spatialIndex) query(lo, hi mgl64.Vec3) []*Body {
	found := ix.tree.SearchIntersect(rectFromBox(lo, hi))
	out := make([]*Body, 0, len(found))
	for _, s := range found {
		if b, ok := s.(*Body); ok {
			out = append(out, b)
		}
	}
	return out
}

func (ix *spatialIndex) size() int { return ix.tree.Size() }

func rectFromBox(lo, hi mgl64.Vec3) rtreego.Rect {
	lengths := make([]float64, 3)
	for i := range lengths {
		lengths[i] = math.Max(hi[i]-lo[i], minRectSide)
	}
	r, err := rtreego.NewRect(rtreego.Point{lo[0], lo[1], lo[2]}, lengths)
	if err != nil {
		// lengths are strictly positive so this is unreachable
		panic(err)
	}
	return r
}
