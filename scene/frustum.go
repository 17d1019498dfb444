package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// FrustumResult classifies a box against the view frustum.
type FrustumResult int

const (
	FrustumOutside FrustumResult = iota
	FrustumIntersects
	FrustumInside
)

func (r FrustumResult) String() string {
	switch r {
	case FrustumOutside:
		return "outside"
	case FrustumIntersects:
		return "intersects"
	default:
		return "inside"
	}
}

// Frustum holds the six clip planes of a camera, in order Left, Right,
// Bottom, Top, Near, Far. Plane is Ax + By + Cz + D = 0 with the
// normal pointing INSIDE the frustum.
type Frustum struct {
	Planes [6]mgl32.Vec4
}

// ExtractFrustum builds a frustum from a view-projection matrix using
// row combinations (Gribb/Hartmann). Planes are normalized so signed
// distances are in world units.
func ExtractFrustum(vp mgl32.Mat4) Frustum {
	var planes [6]mgl32.Vec4

	row := func(i int) mgl32.Vec4 {
		return mgl32.Vec4{vp.At(i, 0), vp.At(i, 1), vp.At(i, 2), vp.At(i, 3)}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	planes[0] = r3.Add(r0) // Left
	planes[1] = r3.Sub(r0) // Right
	planes[2] = r3.Add(r1) // Bottom
	planes[3] = r3.Sub(r1) // Top
	planes[4] = r3.Add(r2) // Near (GL-style depth)
	planes[5] = r3.Sub(r2) // Far

	for i := 0; i < 6; i++ {
		length := float32(math.Sqrt(float64(planes[i][0]*planes[i][0] + planes[i][1]*planes[i][1] + planes[i][2]*planes[i][2])))
		if length > 0 {
			planes[i] = planes[i].Mul(1.0 / length)
		}
	}

	return Frustum{Planes: planes}
}

// ClassifyBox returns whether the box is fully inside, fully outside,
// or crossing the frustum boundary. Per plane, the positive vertex
// (corner furthest along the plane normal) decides rejection and the
// negative vertex decides full containment.
func (f *Frustum) ClassifyBox(box BoundingBox) FrustumResult {
	if box.IsEmpty() {
		return FrustumOutside
	}

	result := FrustumInside
	for i := 0; i < 6; i++ {
		plane := f.Planes[i]

		var p, n mgl32.Vec3
		for axis := 0; axis < 3; axis++ {
			if plane[axis] > 0 {
				p[axis] = box.Max[axis]
				n[axis] = box.Min[axis]
			} else {
				p[axis] = box.Min[axis]
				n[axis] = box.Max[axis]
			}
		}

		if plane[0]*p[0]+plane[1]*p[1]+plane[2]*p[2]+plane[3] < 0 {
			return FrustumOutside
		}
		if plane[0]*n[0]+plane[1]*n[1]+plane[2]*n[2]+plane[3] < 0 {
			result = FrustumIntersects
		}
	}
	return result
}

// ContainsBox reports plain visibility, losing the inside/intersects
// distinction.
func (f *Frustum) ContainsBox(box BoundingBox) bool {
	return f.ClassifyBox(box) != FrustumOutside
}
