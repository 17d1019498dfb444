package scene

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestLocalTransformOrder(t *testing.T) {
	ctx := NewContext()
	n := NewNode(ctx)
	n.SetPosition(mgl32.Vec3{1, 2, 3})
	n.SetScale(mgl32.Vec3{2, 2, 2})
	n.SetRotation(mgl32.QuatRotate(math.Pi/2, mgl32.Vec3{0, 0, 1}))

	n.ComputeTransforms(mgl32.Ident4(), mgl32.Ident4())

	if !approxVec(n.ComputedPosition(), mgl32.Vec3{1, 2, 3}, 1e-5) {
		t.Fatalf("world position = %v", n.ComputedPosition())
	}

	// Scale first, then rotate, then translate: (1,0,0) -> (2,0,0) ->
	// (0,2,0) -> (1,4,3).
	p := n.ComputedTransform().Mul4x1(mgl32.Vec4{1, 0, 0, 1}).Vec3()
	if !approxVec(p, mgl32.Vec3{1, 4, 3}, 1e-5) {
		t.Fatalf("transformed point = %v, want (1,4,3)", p)
	}
}

func TestParentChildComposition(t *testing.T) {
	ctx := NewContext()
	parent := NewNode(ctx)
	child := NewNode(ctx)
	parent.AddChild(child)

	parent.SetPosition(mgl32.Vec3{5, 0, 0})
	parent.SetRotation(mgl32.QuatRotate(math.Pi/2, mgl32.Vec3{0, 0, 1}))
	child.SetPosition(mgl32.Vec3{1, 0, 0})

	parent.ComputeTransforms(mgl32.Ident4(), mgl32.Ident4())

	if !approxVec(child.ComputedPosition(), mgl32.Vec3{5, 1, 0}, 1e-5) {
		t.Fatalf("child world position = %v, want (5,1,0)", child.ComputedPosition())
	}
}

func TestComputeTransformsIdempotent(t *testing.T) {
	ctx := NewContext()
	root := NewNode(ctx)
	child := NewNode(ctx)
	root.AddChild(child)

	root.SetPosition(mgl32.Vec3{0.1, 0.2, 0.3})
	root.SetRotationEuler(mgl32.Vec3{0.4, 0.5, 0.6})
	child.SetPosition(mgl32.Vec3{1, 2, 3})
	child.SetScale(mgl32.Vec3{0.5, 2, 3})

	root.ComputeTransforms(mgl32.Ident4(), mgl32.Ident4())
	first := child.ComputedTransform()
	root.ComputeTransforms(mgl32.Ident4(), mgl32.Ident4())
	second := child.ComputedTransform()

	// Unchanged inputs must reproduce the matrix exactly, not just
	// within epsilon.
	if first != second {
		t.Fatalf("recompute drifted:\n%v\n%v", first, second)
	}
}

func TestScalePivot(t *testing.T) {
	ctx := NewContext()
	n := NewNode(ctx)
	pivot := mgl32.Vec3{1, 0, 0}
	n.SetScalePivot(&pivot)
	n.SetScale(mgl32.Vec3{2, 2, 2})
	n.ComputeTransforms(mgl32.Ident4(), mgl32.Ident4())

	// The pivot is the fixed point of the scale.
	at := n.ComputedTransform().Mul4x1(pivot.Vec4(1)).Vec3()
	if !approxVec(at, pivot, 1e-5) {
		t.Fatalf("pivot moved to %v", at)
	}
	origin := n.ComputedTransform().Mul4x1(mgl32.Vec4{0, 0, 0, 1}).Vec3()
	if !approxVec(origin, mgl32.Vec3{-1, 0, 0}, 1e-5) {
		t.Fatalf("origin scaled to %v, want (-1,0,0)", origin)
	}
}

func TestRotationPivot(t *testing.T) {
	ctx := NewContext()
	n := NewNode(ctx)
	pivot := mgl32.Vec3{1, 0, 0}
	n.SetRotationPivot(&pivot)
	n.SetRotation(mgl32.QuatRotate(math.Pi, mgl32.Vec3{0, 0, 1}))
	n.ComputeTransforms(mgl32.Ident4(), mgl32.Ident4())

	origin := n.ComputedTransform().Mul4x1(mgl32.Vec4{0, 0, 0, 1}).Vec3()
	if !approxVec(origin, mgl32.Vec3{2, 0, 0}, 1e-5) {
		t.Fatalf("origin rotated to %v, want (2,0,0)", origin)
	}
}

func TestWorldRotationIgnoresScale(t *testing.T) {
	ctx := NewContext()
	parent := NewNode(ctx)
	child := NewNode(ctx)
	parent.AddChild(child)

	parent.SetScale(mgl32.Vec3{3, 3, 3})
	parent.SetRotation(mgl32.QuatRotate(math.Pi/2, mgl32.Vec3{0, 0, 1}))
	parent.ComputeTransforms(mgl32.Ident4(), mgl32.Ident4())

	// The accumulated world rotation must stay orthonormal.
	rot := child.ComputedRotation()
	for col := 0; col < 3; col++ {
		length := rot.Col(col).Vec3().Len()
		if !approx(length, 1, 1e-5) {
			t.Fatalf("rotation column %d has length %f", col, length)
		}
	}
}

func TestSetWorldTransform(t *testing.T) {
	ctx := NewContext()
	parent := NewNode(ctx)
	child := NewNode(ctx)
	parent.AddChild(child)

	parent.SetPosition(mgl32.Vec3{3, 0, 0})
	parent.SetRotation(mgl32.QuatRotate(math.Pi/2, mgl32.Vec3{0, 0, 1}))
	parent.ComputeTransforms(mgl32.Ident4(), mgl32.Ident4())

	child.SetWorldTransform(mgl32.Vec3{3, 2, 0}, mgl32.QuatIdent())

	if !approxVec(child.ComputedPosition(), mgl32.Vec3{3, 2, 0}, 1e-4) {
		t.Fatalf("child world position = %v, want (3,2,0)", child.ComputedPosition())
	}
}

func TestSetWorldTransformOnRoot(t *testing.T) {
	ctx := NewContext()
	n := NewNode(ctx)
	n.SetWorldTransform(mgl32.Vec3{7, 8, 9}, mgl32.QuatIdent())
	if !approxVec(n.ComputedPosition(), mgl32.Vec3{7, 8, 9}, 1e-5) {
		t.Fatalf("root world position = %v", n.ComputedPosition())
	}
}

func TestEulerRoundTrip(t *testing.T) {
	ctx := NewContext()
	n := NewNode(ctx)
	want := mgl32.Vec3{0.3, 0.4, 0.5}
	n.SetRotationEuler(want)

	got := n.RotationEuler()
	if !approxVec(got, want, 1e-4) {
		t.Fatalf("euler round trip = %v, want %v", got, want)
	}

	// Quaternion setter keeps the euler cache in sync.
	q := mgl32.AnglesToQuat(0.3, 0.4, 0.5, mgl32.XYZ)
	n.SetRotation(q)
	got = n.RotationEuler()
	if !approxVec(got, want, 1e-4) {
		t.Fatalf("euler from quaternion = %v, want %v", got, want)
	}
}

func TestEulerNormalization(t *testing.T) {
	ctx := NewContext()
	n := NewNode(ctx)
	n.SetRotationEuler(mgl32.Vec3{-math.Pi / 2, 3 * math.Pi, 0})

	got := n.RotationEuler()
	want := mgl32.Vec3{3 * math.Pi / 2, math.Pi, 0}
	if !approxVec(got, want, 1e-4) {
		t.Fatalf("normalized euler = %v, want %v", got, want)
	}
}

func TestBoundingBoxFollowsGeometry(t *testing.T) {
	ctx := NewContext()
	n := NewNode(ctx)
	n.SetGeometry(newBoxGeometry(mgl32.Vec3{1, 1, 1}))
	n.SetPosition(mgl32.Vec3{10, 0, 0})
	n.ComputeTransforms(mgl32.Ident4(), mgl32.Ident4())

	box := n.WorldBoundingBox()
	if !approxVec(box.Min, mgl32.Vec3{9, -1, -1}, 1e-5) || !approxVec(box.Max, mgl32.Vec3{11, 1, 1}, 1e-5) {
		t.Fatalf("world box = %v..%v", box.Min, box.Max)
	}
}

type capturingObserver struct {
	updates int
	last    mgl32.Mat4
}

func (o *capturingObserver) OnTransformUpdate(node *Node, worldTransform mgl32.Mat4) {
	o.updates++
	o.last = worldTransform
}

func TestTransformObserverNotified(t *testing.T) {
	ctx := NewContext()
	n := NewNode(ctx)
	obs := &capturingObserver{}
	n.SetTransformObserver(obs)

	n.SetPosition(mgl32.Vec3{1, 1, 1})
	n.ComputeTransforms(mgl32.Ident4(), mgl32.Ident4())

	if obs.updates != 1 {
		t.Fatalf("observer updates = %d, want 1", obs.updates)
	}
	if obs.last != n.ComputedTransform() {
		t.Fatalf("observer saw stale transform")
	}
}
