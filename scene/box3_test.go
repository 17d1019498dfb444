package scene

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestBoxUnion(t *testing.T) {
	a := BoundingBox{Min: mgl32.Vec3{-1, -1, -1}, Max: mgl32.Vec3{1, 1, 1}}
	b := BoundingBox{Min: mgl32.Vec3{0, 0, 0}, Max: mgl32.Vec3{5, 2, 1}}

	u := a.Union(b)
	if !approxVec(u.Min, mgl32.Vec3{-1, -1, -1}, 0) || !approxVec(u.Max, mgl32.Vec3{5, 2, 1}, 0) {
		t.Fatalf("union = %v..%v", u.Min, u.Max)
	}

	// Empty is the identity element.
	if got := a.Union(EmptyBox()); got != a {
		t.Fatalf("union with empty changed the box")
	}
	if got := EmptyBox().Union(a); got != a {
		t.Fatalf("empty union box = %v..%v", got.Min, got.Max)
	}
}

func TestBoxTransformIsConservative(t *testing.T) {
	box := BoundingBox{Min: mgl32.Vec3{-1, -1, -1}, Max: mgl32.Vec3{1, 1, 1}}
	// 45 degrees about Z grows the XY footprint to sqrt(2).
	m := mgl32.HomogRotate3DZ(mgl32.DegToRad(45))

	got := box.Transform(m)
	want := float32(1.41421356)
	if !approx(got.Max.X(), want, 1e-4) || !approx(got.Max.Y(), want, 1e-4) {
		t.Fatalf("rotated box max = %v", got.Max)
	}
	if !approx(got.Max.Z(), 1, 1e-6) {
		t.Fatalf("rotation about Z changed the Z extent: %v", got.Max)
	}
}

func TestBoxIntersectsRay(t *testing.T) {
	box := BoundingBox{Min: mgl32.Vec3{-1, -1, -1}, Max: mgl32.Vec3{1, 1, 1}}

	tests := []struct {
		name   string
		origin mgl32.Vec3
		dir    mgl32.Vec3
		hit    bool
		point  mgl32.Vec3
	}{
		{"head on", mgl32.Vec3{0, -10, 0}, mgl32.Vec3{0, 1, 0}, true, mgl32.Vec3{0, -1, 0}},
		{"from inside", mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0}, true, mgl32.Vec3{0, 0, 0}},
		{"pointing away", mgl32.Vec3{0, -10, 0}, mgl32.Vec3{0, -1, 0}, false, mgl32.Vec3{}},
		{"parallel miss", mgl32.Vec3{0, -10, 5}, mgl32.Vec3{0, 1, 0}, false, mgl32.Vec3{}},
		{"diagonal corner", mgl32.Vec3{-10, -10, -10}, mgl32.Vec3{1, 1, 1}, true, mgl32.Vec3{-1, -1, -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			point, hit := box.IntersectsRay(tt.origin, tt.dir)
			if hit != tt.hit {
				t.Fatalf("hit = %v, want %v", hit, tt.hit)
			}
			if hit && !approxVec(point, tt.point, 1e-4) {
				t.Fatalf("entry point = %v, want %v", point, tt.point)
			}
		})
	}
}

func TestBoxDistances(t *testing.T) {
	box := BoundingBox{Min: mgl32.Vec3{-1, -1, -1}, Max: mgl32.Vec3{1, 1, 1}}

	if d := box.DistanceToPoint(mgl32.Vec3{0, 0, 0}); d != 0 {
		t.Fatalf("inside distance = %f", d)
	}
	if d := box.DistanceToPoint(mgl32.Vec3{4, 0, 0}); !approx(d, 3, 1e-5) {
		t.Fatalf("outside distance = %f, want 3", d)
	}
	if d := box.FurthestDistanceToPoint(mgl32.Vec3{2, 0, 0}); !approx(d, 3.3166248, 1e-4) {
		t.Fatalf("furthest distance = %f", d)
	}
}

func TestFrustumClassification(t *testing.T) {
	camera := frontCamera()
	frustum := camera.Frustum()

	tests := []struct {
		name string
		box  BoundingBox
		want FrustumResult
	}{
		{
			"fully inside",
			BoundingBox{Min: mgl32.Vec3{-1, -1, -1}, Max: mgl32.Vec3{1, 1, 1}},
			FrustumInside,
		},
		{
			"fully behind",
			BoundingBox{Min: mgl32.Vec3{-1, -1001, -1}, Max: mgl32.Vec3{1, -999, 1}},
			FrustumOutside,
		},
		{
			"straddling the near plane",
			BoundingBox{Min: mgl32.Vec3{-1, -11, -1}, Max: mgl32.Vec3{1, 1, 1}},
			FrustumIntersects,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := frustum.ClassifyBox(tt.box); got != tt.want {
				t.Fatalf("classification = %v, want %v", got, tt.want)
			}
		})
	}
}
