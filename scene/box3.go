package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// BoundingBox is a world- or local-space axis-aligned box.
// The zero value is "empty": Min > Max on every axis, so unioning it
// with any real box yields that box unchanged.
type BoundingBox struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

const boxInf = float32(1e20)

// EmptyBox returns a box that contains nothing.
func EmptyBox() BoundingBox {
	return BoundingBox{
		Min: mgl32.Vec3{boxInf, boxInf, boxInf},
		Max: mgl32.Vec3{-boxInf, -boxInf, -boxInf},
	}
}

// BoxAt returns a zero-volume box collapsed onto a single point.
func BoxAt(p mgl32.Vec3) BoundingBox {
	return BoundingBox{Min: p, Max: p}
}

func (b BoundingBox) IsEmpty() bool {
	return b.Min.X() > b.Max.X() || b.Min.Y() > b.Max.Y() || b.Min.Z() > b.Max.Z()
}

func (b BoundingBox) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Union grows b to also cover other.
func (b BoundingBox) Union(other BoundingBox) BoundingBox {
	if other.IsEmpty() {
		return b
	}
	if b.IsEmpty() {
		return other
	}
	return BoundingBox{
		Min: mgl32.Vec3{
			min32(b.Min.X(), other.Min.X()),
			min32(b.Min.Y(), other.Min.Y()),
			min32(b.Min.Z(), other.Min.Z()),
		},
		Max: mgl32.Vec3{
			max32(b.Max.X(), other.Max.X()),
			max32(b.Max.Y(), other.Max.Y()),
			max32(b.Max.Z(), other.Max.Z()),
		},
	}
}

// Transform returns the conservative AABB of the box under an affine
// transform: push all 8 corners through the matrix and re-box them.
func (b BoundingBox) Transform(m mgl32.Mat4) BoundingBox {
	if b.IsEmpty() {
		return b
	}
	corners := [8]mgl32.Vec3{
		{b.Min.X(), b.Min.Y(), b.Min.Z()},
		{b.Max.X(), b.Min.Y(), b.Min.Z()},
		{b.Min.X(), b.Max.Y(), b.Min.Z()},
		{b.Max.X(), b.Max.Y(), b.Min.Z()},
		{b.Min.X(), b.Min.Y(), b.Max.Z()},
		{b.Max.X(), b.Min.Y(), b.Max.Z()},
		{b.Min.X(), b.Max.Y(), b.Max.Z()},
		{b.Max.X(), b.Max.Y(), b.Max.Z()},
	}

	out := EmptyBox()
	for _, c := range corners {
		wc := m.Mul4x1(c.Vec4(1.0)).Vec3()
		out.Min = mgl32.Vec3{min32(out.Min.X(), wc.X()), min32(out.Min.Y(), wc.Y()), min32(out.Min.Z(), wc.Z())}
		out.Max = mgl32.Vec3{max32(out.Max.X(), wc.X()), max32(out.Max.Y(), wc.Y()), max32(out.Max.Z(), wc.Z())}
	}
	return out
}

// IntersectsRay performs a slab test. On hit it returns the entry point
// and true; a ray starting inside the box hits at its origin.
// Degenerate (zero-length) directions never hit.
func (b BoundingBox) IntersectsRay(origin, dir mgl32.Vec3) (mgl32.Vec3, bool) {
	if b.IsEmpty() || dir.Len() < 1e-12 {
		return mgl32.Vec3{}, false
	}

	tMin := float32(-boxInf)
	tMax := float32(boxInf)
	for axis := 0; axis < 3; axis++ {
		d := dir[axis]
		if math.Abs(float64(d)) < 1e-12 {
			// Ray parallel to the slab: miss unless origin is inside it.
			if origin[axis] < b.Min[axis] || origin[axis] > b.Max[axis] {
				return mgl32.Vec3{}, false
			}
			continue
		}
		inv := 1.0 / d
		t0 := (b.Min[axis] - origin[axis]) * inv
		t1 := (b.Max[axis] - origin[axis]) * inv
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		tMin = max32(tMin, t0)
		tMax = min32(tMax, t1)
		if tMin > tMax {
			return mgl32.Vec3{}, false
		}
	}
	if tMax < 0 {
		return mgl32.Vec3{}, false
	}
	t := tMin
	if t < 0 {
		t = 0
	}
	return origin.Add(dir.Mul(t)), true
}

// DistanceToPoint returns the distance from p to the nearest point of
// the box; zero if p is inside.
func (b BoundingBox) DistanceToPoint(p mgl32.Vec3) float32 {
	var sum float32
	for axis := 0; axis < 3; axis++ {
		var d float32
		if p[axis] < b.Min[axis] {
			d = b.Min[axis] - p[axis]
		} else if p[axis] > b.Max[axis] {
			d = p[axis] - b.Max[axis]
		}
		sum += d * d
	}
	return float32(math.Sqrt(float64(sum)))
}

// FurthestDistanceToPoint returns the distance from p to the corner of
// the box furthest from it. Used for far-clip-plane fitting.
func (b BoundingBox) FurthestDistanceToPoint(p mgl32.Vec3) float32 {
	var sum float32
	for axis := 0; axis < 3; axis++ {
		d0 := p[axis] - b.Min[axis]
		d1 := p[axis] - b.Max[axis]
		d := max32(d0*d0, d1*d1)
		sum += d
	}
	return float32(math.Sqrt(float64(sum)))
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
