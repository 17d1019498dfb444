package scene

import (
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
)

// The atomic transform path lets foreign goroutines (a physics
// integrator, a network interpolator) move nodes without taking the
// graph thread. It works on a lock-free mirror of the transform state:
//
//   - Foreign writes merge into a pending record and immediately
//     publish a recomputed world snapshot, derived from the parent's
//     last published snapshot. No child recursion happens across
//     threads; descendants pick the change up at the next frame.
//   - The graph thread drains pending records into the canonical local
//     fields at the top of each frame, and republishes every node's
//     snapshot from the canonical fields after the transform pass.
//
// Readers on any goroutine therefore always see a coherent, possibly
// one-frame-stale snapshot. That staleness window is the contract, not
// a bug. The atomic path composes plain translate-rotate-scale; pivots
// are a graph-thread feature and are not applied here.

// transformSnapshot is the immutable published state of one node.
type transformSnapshot struct {
	position mgl32.Vec3
	rotation mgl32.Quat
	scale    mgl32.Vec3

	worldTransform mgl32.Mat4
	worldRotation  mgl32.Mat4
	worldPosition  mgl32.Vec3
	worldBounds    BoundingBox
}

// pendingTransform accumulates foreign writes between frames.
type pendingTransform struct {
	position mgl32.Vec3
	rotation mgl32.Quat
	scale    mgl32.Vec3

	hasPosition bool
	hasRotation bool
	hasScale    bool
}

type atomicTransform struct {
	last    atomic.Pointer[transformSnapshot]
	pending atomic.Pointer[pendingTransform]
}

func (m *atomicTransform) init(n *Node) {
	m.last.Store(&transformSnapshot{
		position:       n.position,
		rotation:       n.rotation,
		scale:          n.scale,
		worldTransform: n.computedTransform,
		worldRotation:  n.computedRotation,
		worldPosition:  n.computedPosition,
		worldBounds:    n.computedBoundingBox,
	})
}

// merge folds one field write into the pending record with a CAS loop,
// so concurrent foreign writers never lose each other's fields.
func (m *atomicTransform) merge(update func(p *pendingTransform)) pendingTransform {
	for {
		old := m.pending.Load()
		var next pendingTransform
		if old != nil {
			next = *old
		}
		update(&next)
		if m.pending.CompareAndSwap(old, &next) {
			return next
		}
	}
}

// SetPositionAtomic moves the node from a foreign goroutine. Safe to
// call concurrently with the frame pipeline; the canonical fields
// absorb the write at the next frame.
func (n *Node) SetPositionAtomic(p mgl32.Vec3) {
	pending := n.mirror.merge(func(pt *pendingTransform) {
		pt.position = p
		pt.hasPosition = true
	})
	n.publishSnapshot(pending)
}

// SetRotationAtomic rotates the node from a foreign goroutine.
func (n *Node) SetRotationAtomic(q mgl32.Quat) {
	pending := n.mirror.merge(func(pt *pendingTransform) {
		pt.rotation = q
		pt.hasRotation = true
	})
	n.publishSnapshot(pending)
}

// SetScaleAtomic scales the node from a foreign goroutine.
func (n *Node) SetScaleAtomic(s mgl32.Vec3) {
	pending := n.mirror.merge(func(pt *pendingTransform) {
		pt.scale = s
		pt.hasScale = true
	})
	n.publishSnapshot(pending)
}

// SetWorldTransformAtomic positions the node in world space from a
// foreign goroutine, back-solving the local values against the
// parent's last published snapshot.
func (n *Node) SetWorldTransformAtomic(worldPosition mgl32.Vec3, worldRotation mgl32.Quat) {
	position := worldPosition
	rotation := worldRotation
	if parent := n.parent; parent != nil {
		ps := parent.mirror.last.Load()
		position = ps.worldTransform.Inv().Mul4x1(worldPosition.Vec4(1)).Vec3()
		rotation = mgl32.Mat4ToQuat(ps.worldRotation).Inverse().Mul(worldRotation).Normalize()
	}
	pending := n.mirror.merge(func(pt *pendingTransform) {
		pt.position = position
		pt.hasPosition = true
		pt.rotation = rotation
		pt.hasRotation = true
	})
	n.publishSnapshot(pending)
}

// publishSnapshot recomputes this node's world snapshot from the
// pending local values and the parent's last published world state.
func (n *Node) publishSnapshot(pending pendingTransform) {
	last := n.mirror.last.Load()

	next := *last
	if pending.hasPosition {
		next.position = pending.position
	}
	if pending.hasRotation {
		next.rotation = pending.rotation
	}
	if pending.hasScale {
		next.scale = pending.scale
	}

	parentWorld := mgl32.Ident4()
	parentRotation := mgl32.Ident4()
	if parent := n.parent; parent != nil {
		ps := parent.mirror.last.Load()
		parentWorld = ps.worldTransform
		parentRotation = ps.worldRotation
	}

	local := mgl32.Translate3D(next.position.X(), next.position.Y(), next.position.Z()).
		Mul4(next.rotation.Mat4()).
		Mul4(mgl32.Scale3D(next.scale.X(), next.scale.Y(), next.scale.Z()))

	next.worldTransform = parentWorld.Mul4(local)
	next.worldRotation = parentRotation.Mul4(next.rotation.Mat4())
	next.worldPosition = next.worldTransform.Col(3).Vec3()
	if g := n.geometry; g != nil {
		next.worldBounds = g.BoundingBox().Transform(next.worldTransform)
	} else {
		next.worldBounds = BoxAt(next.worldPosition)
	}

	n.mirror.last.Store(&next)
}

// WorldTransformAtomic returns the last published world transform.
// Callable from any goroutine.
func (n *Node) WorldTransformAtomic() mgl32.Mat4 {
	return n.mirror.last.Load().worldTransform
}

// WorldPositionAtomic returns the last published world position.
// Callable from any goroutine.
func (n *Node) WorldPositionAtomic() mgl32.Vec3 {
	return n.mirror.last.Load().worldPosition
}

// WorldRotationAtomic returns the last published world rotation.
// Callable from any goroutine.
func (n *Node) WorldRotationAtomic() mgl32.Quat {
	return mgl32.Mat4ToQuat(n.mirror.last.Load().worldRotation)
}

// WorldBoundingBoxAtomic returns the last published world bounds.
// Callable from any goroutine.
func (n *Node) WorldBoundingBoxAtomic() BoundingBox {
	return n.mirror.last.Load().worldBounds
}

// applyAtomicWrites drains the subtree's pending foreign writes into
// the canonical local fields. Runs on the graph thread at the top of
// the frame, before animations and transforms.
func (n *Node) applyAtomicWrites() {
	if pending := n.mirror.pending.Swap(nil); pending != nil {
		if pending.hasPosition {
			n.setPosition(pending.position)
		}
		if pending.hasRotation {
			n.setRotation(pending.rotation)
		}
		if pending.hasScale {
			n.setScale(pending.scale)
		}
	}
	for _, child := range n.children {
		child.applyAtomicWrites()
	}
}

// syncAtomic republishes every node's snapshot from the canonical
// fields after the transform pass, closing the staleness window for
// foreign readers.
func (n *Node) syncAtomic() {
	n.mirror.last.Store(&transformSnapshot{
		position:       n.position,
		rotation:       n.rotation,
		scale:          n.scale,
		worldTransform: n.computedTransform,
		worldRotation:  n.computedRotation,
		worldPosition:  n.computedPosition,
		worldBounds:    n.computedBoundingBox,
	})
	for _, child := range n.children {
		child.syncAtomic()
	}
}
