package scene

import "github.com/go-gl/mathgl/mgl32"

// Constraint adjusts a node's computed world transform after the
// canonical transform pass, typically against the camera. Constraints
// never touch the local TRS fields.
type Constraint interface {
	Apply(node *Node, worldTransform mgl32.Mat4, camera *CameraState) mgl32.Mat4
}

// ApplyConstraints is the per-frame constraint pass, run after
// ComputeTransforms. Nodes whose parent's transform changed in this
// pass recompute their own world transform first, so constraint edits
// cascade down the tree without a second full transform pass.
func (n *Node) ApplyConstraints(camera *CameraState, parentTransform mgl32.Mat4, parentUpdated bool) {
	n.checkThread("ApplyConstraints")

	updated := false
	if parentUpdated {
		n.doComputeTransform(parentTransform)
		updated = true
	}

	if len(n.constraints) > 0 {
		transform := n.computedTransform
		for _, constraint := range n.constraints {
			transform = constraint.Apply(n, transform, camera)
		}
		n.computedTransform = transform
		n.refreshFromComputedTransform()
		updated = true
	}

	for _, child := range n.children {
		child.ApplyConstraints(camera, n.computedTransform, updated)
	}
}

// refreshFromComputedTransform re-derives the world position and
// bounding box after a constraint rewrote the computed transform.
func (n *Node) refreshFromComputedTransform() {
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

// BillboardAxis selects which axes a billboard constraint may rotate
// around.
type BillboardAxis int

const (
	// BillboardFree rotates freely to face the camera.
	BillboardFree BillboardAxis = iota
	// BillboardX rotates only around the world X axis.
	BillboardX
	// BillboardY rotates only around the world Y axis.
	BillboardY
)

// BillboardConstraint turns a node toward the camera each frame,
// rotating about the node's world position so translation and scale
// are preserved.
type BillboardConstraint struct {
	Axis BillboardAxis
}

func (c *BillboardConstraint) Apply(node *Node, worldTransform mgl32.Mat4, camera *CameraState) mgl32.Mat4 {
	position := worldTransform.Col(3).Vec3()

	target := camera.Position.Sub(position)
	switch c.Axis {
	case BillboardX:
		target[1] = 0
		target[2] = 0
	case BillboardY:
		target[0] = 0
		target[2] = 0
	}
	if target.Len() < rayEpsilon {
		return worldTransform
	}
	target = target.Normalize()

	forward := worldTransform.Mul4x1(mgl32.Vec3{0, 0, 1}.Vec4(0)).Vec3()
	if forward.Len() < rayEpsilon {
		return worldTransform
	}
	forward = forward.Normalize()

	rotation := mgl32.QuatBetweenVectors(forward, target).Mat4()
	return mgl32.Translate3D(position.X(), position.Y(), position.Z()).
		Mul4(rotation).
		Mul4(mgl32.Translate3D(-position.X(), -position.Y(), -position.Z())).
		Mul4(worldTransform)
}
