package scene

// UpdateVisibility runs the top-down culling pass. The umbrella
// bounding box is rebuilt from the world boxes of the subtree (which
// requires a transform pass to have run) and classified against the
// camera frustum:
//
//   - Inside: the whole subtree is visible, no per-child tests.
//   - Outside: the whole subtree is invisible, recursion stops.
//   - Intersects: this node is visible, children refine individually.
//
// Portal nodes never let Outside short-circuit their subtree; portal
// content may be visible through geometry the umbrella box does not
// cover.
func (n *Node) UpdateVisibility(camera *CameraState) {
	n.checkThread("UpdateVisibility")

	if n.ctx.DisableCulling {
		n.setVisibilityRecursive(true)
		return
	}

	n.umbrellaBoundingBox = EmptyBox()
	n.computeUmbrellaBounds(&n.umbrellaBoundingBox)

	switch camera.Frustum().ClassifyBox(n.umbrellaBoundingBox) {
	case FrustumInside:
		n.setVisibilityRecursive(true)
	case FrustumOutside:
		if n.Kind == KindPortal {
			n.visible = true
			for _, child := range n.children {
				child.UpdateVisibility(camera)
			}
			return
		}
		n.setVisibilityRecursive(false)
	default:
		n.visible = true
		for _, child := range n.children {
			child.UpdateVisibility(camera)
		}
	}
}

func (n *Node) setVisibilityRecursive(visible bool) {
	n.visible = visible
	for _, child := range n.children {
		child.setVisibilityRecursive(visible)
	}
}

func (n *Node) computeUmbrellaBounds(bounds *BoundingBox) {
	*bounds = bounds.Union(n.computedBoundingBox)
	for _, child := range n.children {
		child.computeUmbrellaBounds(bounds)
	}
}
