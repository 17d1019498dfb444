package scene

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func hitScene(t *testing.T) (*Scene, *CameraState) {
	t.Helper()
	s := NewScene(NewContext())
	camera := frontCamera()
	return s, camera
}

func TestHitTestBounds(t *testing.T) {
	s, camera := hitScene(t)

	n := NewNode(s.Context())
	n.SetGeometry(newBoxGeometry(mgl32.Vec3{1, 1, 1}))
	s.Root().AddChild(n)
	s.Frame(0, camera, nil)

	hits := s.HitTest(camera.Position, mgl32.Vec3{0, 1, 0}, true)
	if len(hits) != 1 {
		t.Fatalf("hits = %d, want 1", len(hits))
	}
	if hits[0].Node != n {
		t.Fatalf("hit wrong node")
	}
	if hits[0].Triangle != -1 {
		t.Fatalf("bounds hit reported triangle %d", hits[0].Triangle)
	}
	// Entry face of the unit box from y = -10.
	if !approx(hits[0].Distance, 9, 1e-4) {
		t.Fatalf("hit distance = %f, want 9", hits[0].Distance)
	}
}

func TestHitTestMiss(t *testing.T) {
	s, camera := hitScene(t)

	n := NewNode(s.Context())
	n.SetGeometry(newBoxGeometry(mgl32.Vec3{1, 1, 1}))
	s.Root().AddChild(n)
	s.Frame(0, camera, nil)

	hits := s.HitTest(camera.Position, mgl32.Vec3{0, -1, 0}, true)
	if len(hits) != 0 {
		t.Fatalf("hits = %d, want 0", len(hits))
	}
}

func TestHitTestHighAccuracy(t *testing.T) {
	s, camera := hitScene(t)

	n := NewNode(s.Context())
	n.SetGeometry(newBoxGeometry(mgl32.Vec3{1, 1, 1}))
	n.SetHighAccuracyHitTest(true)
	s.Root().AddChild(n)
	s.Frame(0, camera, nil)

	// boundsOnly is overridden by the node flag.
	hits := s.HitTest(camera.Position, mgl32.Vec3{0, 1, 0}, true)
	if len(hits) != 1 {
		t.Fatalf("hits = %d, want 1", len(hits))
	}
	if hits[0].Triangle < 0 || hits[0].Element != 0 {
		t.Fatalf("expected a triangle-level hit, got %+v", hits[0])
	}
	if !approxVec(hits[0].Point, mgl32.Vec3{0, -1, 0}, 1e-4) {
		t.Fatalf("hit point = %v, want (0,-1,0)", hits[0].Point)
	}
}

func TestHitTestUnselectableStillRecurses(t *testing.T) {
	s, camera := hitScene(t)

	parent := NewNode(s.Context())
	parent.SetGeometry(newBoxGeometry(mgl32.Vec3{1, 1, 1}))
	parent.SetSelectable(false)
	child := NewNode(s.Context())
	child.SetGeometry(newBoxGeometry(mgl32.Vec3{1, 1, 1}))
	child.SetPosition(mgl32.Vec3{0, 5, 0})
	s.Root().AddChild(parent)
	parent.AddChild(child)
	s.Frame(0, camera, nil)

	hits := s.HitTest(camera.Position, mgl32.Vec3{0, 1, 0}, true)
	if len(hits) != 1 {
		t.Fatalf("hits = %d, want 1", len(hits))
	}
	if hits[0].Node != child {
		t.Fatalf("unselectable parent intercepted the ray")
	}
}

func TestHitTestSortedByDistance(t *testing.T) {
	s, camera := hitScene(t)

	far := NewNode(s.Context())
	far.SetGeometry(newBoxGeometry(mgl32.Vec3{1, 1, 1}))
	far.SetPosition(mgl32.Vec3{0, 20, 0})
	near := NewNode(s.Context())
	near.SetGeometry(newBoxGeometry(mgl32.Vec3{1, 1, 1}))
	s.Root().AddChild(far)
	s.Root().AddChild(near)
	s.Frame(0, camera, nil)

	hits := s.HitTest(camera.Position, mgl32.Vec3{0, 1, 0}, true)
	if len(hits) != 2 {
		t.Fatalf("hits = %d, want 2", len(hits))
	}
	if hits[0].Node != near || hits[1].Node != far {
		t.Fatalf("hits not sorted nearest first")
	}
}

func TestHitTestSkipsHidden(t *testing.T) {
	s, camera := hitScene(t)

	n := NewNode(s.Context())
	n.SetGeometry(newBoxGeometry(mgl32.Vec3{1, 1, 1}))
	s.Root().AddChild(n)
	n.SetHidden(true)
	s.Frame(0, camera, nil)

	hits := s.HitTest(camera.Position, mgl32.Vec3{0, 1, 0}, true)
	if len(hits) != 0 {
		t.Fatalf("hidden node hit %d times", len(hits))
	}
}

func TestRayTriangle(t *testing.T) {
	a := mgl32.Vec3{-1, 0, -1}
	b := mgl32.Vec3{1, 0, -1}
	c := mgl32.Vec3{0, 0, 1}

	if tHit, ok := rayTriangle(mgl32.Vec3{0, -5, 0}, mgl32.Vec3{0, 1, 0}, a, b, c); !ok || !approx(tHit, 5, 1e-5) {
		t.Fatalf("center ray: ok=%v t=%f", ok, tHit)
	}
	if _, ok := rayTriangle(mgl32.Vec3{5, -5, 0}, mgl32.Vec3{0, 1, 0}, a, b, c); ok {
		t.Fatalf("offset ray reported a hit")
	}
	// Behind the origin.
	if _, ok := rayTriangle(mgl32.Vec3{0, 5, 0}, mgl32.Vec3{0, 1, 0}, a, b, c); ok {
		t.Fatalf("triangle behind the origin reported a hit")
	}
}
