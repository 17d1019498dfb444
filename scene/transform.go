package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Position returns the local translation.
func (n *Node) Position() mgl32.Vec3 { return n.position }

// Rotation returns the local rotation quaternion.
func (n *Node) Rotation() mgl32.Quat { return n.rotation }

// RotationEuler returns the cached local Euler angles (radians).
func (n *Node) RotationEuler() mgl32.Vec3 { return n.euler }

// Scale returns the local scale factors.
func (n *Node) Scale() mgl32.Vec3 { return n.scale }

func (n *Node) Opacity() float32 { return n.opacity }

func (n *Node) Hidden() bool { return n.hidden }

// ComputedTransform returns the world transform from the last
// canonical transform pass.
func (n *Node) ComputedTransform() mgl32.Mat4 { return n.computedTransform }

// ComputedRotation returns the accumulated world rotation matrix,
// which ignores translation and scale. Used for light and sound
// direction transforms.
func (n *Node) ComputedRotation() mgl32.Mat4 { return n.computedRotation }

func (n *Node) ComputedPosition() mgl32.Vec3 { return n.computedPosition }

func (n *Node) ComputedOpacity() float32 { return n.computedOpacity }

// WorldBoundingBox returns this node's own bounds in world space.
func (n *Node) WorldBoundingBox() BoundingBox { return n.computedBoundingBox }

// UmbrellaBoundingBox returns the union of this node's world bounds
// and all descendants', from the last visibility pass.
func (n *Node) UmbrellaBoundingBox() BoundingBox { return n.umbrellaBoundingBox }

// Transform setters. Every local TRS/opacity write is funneled through
// the animation machinery with a zero-length span, so immediate writes
// and user-authored animations share one code path and the previous
// value is always the interpolation start.

func (n *Node) SetPosition(p mgl32.Vec3) {
	n.checkThread("SetPosition")
	n.setPositionAnimated(p, 0, nil)
}

// AnimatePosition interpolates the local position to p over the given
// span in seconds. onComplete may be nil.
func (n *Node) AnimatePosition(p mgl32.Vec3, seconds float32, onComplete func()) {
	n.checkThread("AnimatePosition")
	n.setPositionAnimated(p, seconds, onComplete)
}

func (n *Node) setPositionAnimated(p mgl32.Vec3, seconds float32, onComplete func()) {
	animate(n, n.position, p, seconds, lerpVec3, (*Node).setPosition, onComplete)
}

func (n *Node) setPosition(p mgl32.Vec3) {
	n.position = p
}

func (n *Node) SetRotation(q mgl32.Quat) {
	n.checkThread("SetRotation")
	n.setRotationAnimated(q, 0, nil)
}

func (n *Node) AnimateRotation(q mgl32.Quat, seconds float32, onComplete func()) {
	n.checkThread("AnimateRotation")
	n.setRotationAnimated(q, seconds, onComplete)
}

func (n *Node) setRotationAnimated(q mgl32.Quat, seconds float32, onComplete func()) {
	animate(n, n.rotation, q, seconds, lerpQuat, (*Node).setRotation, onComplete)
}

func (n *Node) setRotation(q mgl32.Quat) {
	n.rotation = q
	n.euler = eulerFromQuat(q)
}

// SetRotationEuler sets the local rotation from Euler angles in
// radians, applied X then Y then Z. Angles are normalized to [0, 2π).
func (n *Node) SetRotationEuler(euler mgl32.Vec3) {
	n.checkThread("SetRotationEuler")
	animate(n, n.euler, normalizeAngles(euler), 0, lerpVec3, (*Node).setEuler, nil)
}

func (n *Node) AnimateRotationEuler(euler mgl32.Vec3, seconds float32, onComplete func()) {
	n.checkThread("AnimateRotationEuler")
	animate(n, n.euler, normalizeAngles(euler), seconds, lerpVec3, (*Node).setEuler, onComplete)
}

func (n *Node) setEuler(euler mgl32.Vec3) {
	n.euler = euler
	n.rotation = mgl32.AnglesToQuat(euler.X(), euler.Y(), euler.Z(), mgl32.XYZ)
}

func (n *Node) SetScale(s mgl32.Vec3) {
	n.checkThread("SetScale")
	n.setScaleAnimated(s, 0, nil)
}

func (n *Node) AnimateScale(s mgl32.Vec3, seconds float32, onComplete func()) {
	n.checkThread("AnimateScale")
	n.setScaleAnimated(s, seconds, onComplete)
}

func (n *Node) setScaleAnimated(s mgl32.Vec3, seconds float32, onComplete func()) {
	animate(n, n.scale, s, seconds, lerpVec3, (*Node).setScale, onComplete)
}

func (n *Node) setScale(s mgl32.Vec3) {
	n.scale = s
}

func (n *Node) SetOpacity(opacity float32) {
	n.checkThread("SetOpacity")
	animate(n, n.opacity, opacity, 0, lerpFloat, func(node *Node, v float32) { node.opacity = v }, nil)
}

func (n *Node) AnimateOpacity(opacity float32, seconds float32, onComplete func()) {
	n.checkThread("AnimateOpacity")
	animate(n, n.opacity, opacity, seconds, lerpFloat, func(node *Node, v float32) { node.opacity = v }, onComplete)
}

// SetHidden fades the hidden-flag opacity channel to 0 (hidden) or 1.
// The flag itself flips immediately; the derived opacity is animatable
// like any other property (zero span here, so it lands immediately).
func (n *Node) SetHidden(hidden bool) {
	n.checkThread("SetHidden")
	n.hidden = hidden
	target := float32(1)
	if hidden {
		target = 0
	}
	animate(n, n.opacityFromHiddenFlag, target, 0, lerpFloat,
		func(node *Node, v float32) { node.opacityFromHiddenFlag = v }, nil)
}

// SetScalePivot sets the point (in local space) scaling is applied
// around. Nil clears it.
func (n *Node) SetScalePivot(pivot *mgl32.Vec3) {
	n.checkThread("SetScalePivot")
	n.scalePivot = pivot
}

// SetRotationPivot sets the point (in local space) rotation is applied
// around. Nil clears it.
func (n *Node) SetRotationPivot(pivot *mgl32.Vec3) {
	n.checkThread("SetRotationPivot")
	n.rotationPivot = pivot
}

// localTransform composes M = T · (Pr · R · Pr⁻¹) · (Ps · S · Ps⁻¹),
// collapsing to T · R · S when no pivots are set.
func (n *Node) localTransform() mgl32.Mat4 {
	scale := mgl32.Scale3D(n.scale.X(), n.scale.Y(), n.scale.Z())
	if p := n.scalePivot; p != nil {
		scale = mgl32.Translate3D(p.X(), p.Y(), p.Z()).
			Mul4(scale).
			Mul4(mgl32.Translate3D(-p.X(), -p.Y(), -p.Z()))
	}

	rotate := n.rotation.Mat4()
	if p := n.rotationPivot; p != nil {
		rotate = mgl32.Translate3D(p.X(), p.Y(), p.Z()).
			Mul4(rotate).
			Mul4(mgl32.Translate3D(-p.X(), -p.Y(), -p.Z()))
	}

	translate := mgl32.Translate3D(n.position.X(), n.position.Y(), n.position.Z())
	return translate.Mul4(rotate).Mul4(scale)
}

// ComputeTransforms runs the canonical top-down transform pass:
// world = parentWorld · local, world rotation accumulates separately
// without scale or translation, and the world bounding box is refreshed
// from the attached geometry (or collapses onto the world position).
func (n *Node) ComputeTransforms(parentTransform, parentRotation mgl32.Mat4) {
	n.checkThread("ComputeTransforms")
	n.doComputeTransform(parentTransform)
	n.computedRotation = parentRotation.Mul4(n.rotation.Mat4())

	for _, child := range n.children {
		child.ComputeTransforms(n.computedTransform, n.computedRotation)
	}
}

func (n *Node) doComputeTransform(parentTransform mgl32.Mat4) {
	n.computedTransform = parentTransform.Mul4(n.localTransform())
	n.computedPosition = n.computedTransform.Col(3).Vec3()
	if n.geometry != nil {
		n.computedBoundingBox = n.geometry.BoundingBox().Transform(n.computedTransform)
	} else {
		n.computedBoundingBox = BoxAt(n.computedPosition)
	}
	if n.observer != nil {
		n.observer.OnTransformUpdate(n, n.computedTransform)
	}
}

// SetWorldTransform positions an attached node in world space by
// back-solving the local transform against the parent's computed
// transform, then recomputes the subtree. Roots take world space as
// local space directly.
func (n *Node) SetWorldTransform(worldPosition mgl32.Vec3, worldRotation mgl32.Quat) {
	n.checkThread("SetWorldTransform")
	if n.parent == nil {
		n.setPosition(worldPosition)
		n.setRotation(worldRotation)
		n.ComputeTransforms(mgl32.Ident4(), mgl32.Ident4())
		return
	}

	parent := n.parent
	invParent := parent.computedTransform.Inv()
	n.setPosition(invParent.Mul4x1(worldPosition.Vec4(1)).Vec3())

	parentRot := mgl32.Mat4ToQuat(parent.computedRotation)
	n.setRotation(parentRot.Inverse().Mul(worldRotation).Normalize())

	n.ComputeTransforms(parent.computedTransform, parent.computedRotation)
}

func eulerFromQuat(q mgl32.Quat) mgl32.Vec3 {
	// XYZ intrinsic convention, matching AnglesToQuat(mgl32.XYZ).
	w, x, y, z := q.W, q.V.X(), q.V.Y(), q.V.Z()

	sinX := 2 * (w*x + y*z)
	cosX := 1 - 2*(x*x+y*y)
	ex := float32(math.Atan2(float64(sinX), float64(cosX)))

	sinY := 2 * (w*y - z*x)
	var ey float32
	if sinY >= 1 {
		ey = float32(math.Pi / 2)
	} else if sinY <= -1 {
		ey = float32(-math.Pi / 2)
	} else {
		ey = float32(math.Asin(float64(sinY)))
	}

	sinZ := 2 * (w*z + x*y)
	cosZ := 1 - 2*(y*y+z*z)
	ez := float32(math.Atan2(float64(sinZ), float64(cosZ)))

	return mgl32.Vec3{ex, ey, ez}
}

func normalizeAngles(euler mgl32.Vec3) mgl32.Vec3 {
	const twoPi = 2 * math.Pi
	for i := 0; i < 3; i++ {
		a := math.Mod(float64(euler[i]), twoPi)
		if a < 0 {
			a += twoPi
		}
		euler[i] = float32(a)
	}
	return euler
}
