package scene

import (
	"slices"
)

// SortKey orders one drawable geometry element within a frame. Keys
// are rebuilt every frame by UpdateSortKeys and consumed by the draw
// submission pass after a deterministic stable sort.
type SortKey struct {
	RenderingOrder int32
	HierarchyID    uint32
	HierarchyDepth int32
	Distance       float32
	LightsHash     uint32
	ElementHint    uint32
	Opaque         bool

	NodeID  uint64
	Element int
	Node    *Node
}

// RenderParams carries the traversal state of one sort-key pass.
// The stacks mirror the recursion: an entry is pushed entering a node
// and popped leaving it.
type RenderParams struct {
	ZFar float32

	// FurthestDistanceFromCamera accumulates the max far extent of any
	// visible bounding box, for far-clip-plane fitting.
	FurthestDistanceFromCamera float32

	camera *CameraState

	parentOpacity   float32
	lights          []*Light
	hierarchyDepths []int32
	distances       []float32
	hierarchyID     uint32
}

// NewRenderParams seeds the traversal state for one frame.
func NewRenderParams(camera *CameraState, zFar float32) *RenderParams {
	return &RenderParams{
		ZFar:            zFar,
		camera:          camera,
		parentOpacity:   1,
		hierarchyDepths: []int32{-1},
		distances:       []float32{0},
	}
}

// UpdateSortKeys is the per-frame top-down pass assigning each visible
// drawable element its ordering key. Invisible subtrees are skipped
// entirely: the umbrella-box visibility test guarantees no visible
// node hides below an invisible one.
//
// Hierarchical grouping: a node flagged for hierarchical rendering
// (or any descendant of one) carries a shared hierarchy id and depth,
// and every member except the designated top reuses the top's camera
// distance. That pins the relative order of the whole cluster under
// any camera movement.
func (n *Node) UpdateSortKeys(depth int32, params *RenderParams) {
	n.checkThread("UpdateSortKeys")

	if depth == 0 {
		n.ctx.sortDebugIndex = 0
	}

	if !n.visible {
		return
	}

	parentOpacity := params.parentOpacity
	n.computedInverseTranspose = n.computedTransform.Inv().Transpose()
	n.computedOpacity = parentOpacity * n.opacity * n.opacityFromHiddenFlag
	params.parentOpacity = n.computedOpacity

	for _, light := range n.lights {
		light.setTransformed(n.computedTransform, n.computedRotation)
		params.lights = append(params.lights, light)
	}
	n.computedLights = append(n.computedLights[:0], params.lights...)

	for _, sound := range n.sounds {
		sound.transformedPosition = n.computedTransform.Mul4x1(sound.Position.Vec4(1)).Vec3()
	}

	// Hierarchy bookkeeping. A node is hierarchical if flagged or if
	// its parent was; the top of a hierarchy is a flagged node whose
	// parent was not hierarchical.
	parentHierarchyDepth := params.hierarchyDepths[len(params.hierarchyDepths)-1]
	parentDistance := params.distances[len(params.distances)-1]

	isParentHierarchical := parentHierarchyDepth >= 0
	isHierarchical := n.hierarchicalRendering || isParentHierarchical
	isTopOfHierarchy := n.hierarchicalRendering && !isParentHierarchical

	var hierarchyID uint32
	var hierarchyDepth int32
	var distanceFromCamera float32
	var furthestDistanceFromCamera float32

	if isHierarchical {
		hierarchyDepth = parentHierarchyDepth + 1
		params.hierarchyDepths = append(params.hierarchyDepths, hierarchyDepth)
		if isTopOfHierarchy {
			params.hierarchyID++
			hierarchyID = params.hierarchyID
		} else {
			hierarchyID = params.hierarchyID
			// Members of a hierarchy share the top's distance so the
			// group's internal order never flips.
			distanceFromCamera = parentDistance
		}
	} else {
		params.hierarchyDepths = append(params.hierarchyDepths, -1)
	}

	if n.geometry != nil {
		if !isHierarchical || isTopOfHierarchy {
			distanceFromCamera = n.computedPosition.Sub(params.camera.Position).Len()
			furthestDistanceFromCamera = n.computedBoundingBox.FurthestDistanceToPoint(params.camera.Position)
		}

		lightsHash := hashLights(n.influencingLights(params.lights))

		elements := n.geometry.ElementCount()
		n.sortKeys = n.sortKeys[:0]
		for element := 0; element < elements; element++ {
			n.sortKeys = append(n.sortKeys, SortKey{
				RenderingOrder: n.renderingOrder,
				HierarchyID:    hierarchyID,
				HierarchyDepth: hierarchyDepth,
				Distance:       distanceFromCamera,
				LightsHash:     lightsHash,
				ElementHint:    n.geometry.ElementSortHint(element),
				Opaque:         n.geometry.ElementOpaque(element) && n.computedOpacity >= 1,
				NodeID:         n.id,
				Element:        element,
				Node:           n,
			})
		}

		if n.ctx.DebugSortOrder {
			n.ctx.log.Debugf("[%d] node %d pos=%v order=%d hierarchy=(%d,%d) depth=%d dist=%f lights=%08x",
				n.ctx.sortDebugIndex, n.id, n.computedPosition, n.renderingOrder,
				hierarchyID, hierarchyDepth, depth, distanceFromCamera, lightsHash)
		}
	} else {
		n.sortKeys = n.sortKeys[:0]
		if n.ctx.DebugSortOrder {
			n.ctx.log.Debugf("[%d] empty node %d pos=%v depth=%d skipped",
				n.ctx.sortDebugIndex, n.id, n.computedPosition, depth)
		}
	}
	n.ctx.sortDebugIndex++

	params.distances = append(params.distances, distanceFromCamera)
	if furthestDistanceFromCamera > params.FurthestDistanceFromCamera {
		params.FurthestDistanceFromCamera = furthestDistanceFromCamera
	}

	for _, child := range n.children {
		child.UpdateSortKeys(depth+1, params)
	}

	params.lights = params.lights[:len(params.lights)-len(n.lights)]
	params.hierarchyDepths = params.hierarchyDepths[:len(params.hierarchyDepths)-1]
	params.distances = params.distances[:len(params.distances)-1]
	params.parentOpacity = parentOpacity
}

// influencingLights filters the accumulated light set down to those
// actually affecting this node: bitmask overlap plus attenuation-range
// test against the world bounding box. Ambient and directional lights
// never attenuate.
func (n *Node) influencingLights(lights []*Light) []*Light {
	out := make([]*Light, 0, len(lights))
	for _, light := range lights {
		if light.influences(n.lightReceivingBitMask, n.computedBoundingBox) {
			out = append(out, light)
		}
	}
	return out
}

// CollectSortKeys appends the keys of every visible drawable element
// in the subtree, skipping nodes whose composite opacity is at or
// below the hidden threshold.
func (n *Node) CollectSortKeys(out *[]SortKey) {
	n.checkThread("CollectSortKeys")
	if n.visible && n.geometry != nil && n.computedOpacity > HiddenOpacityThreshold {
		*out = append(*out, n.sortKeys...)
	}
	for _, child := range n.children {
		child.CollectSortKeys(out)
	}
}

// SortKeys orders keys deterministically: explicit rendering order
// first, then hierarchy grouping (id, then depth so ancestors precede
// their members), then distance far-to-near for correct transparency,
// then material/light signatures, with node id and element index as
// the final total-order tie-break. Identical inputs always produce an
// identical order.
func SortKeys(keys []SortKey) {
	slices.SortStableFunc(keys, func(a, b SortKey) int {
		switch {
		case a.RenderingOrder != b.RenderingOrder:
			return cmp32(a.RenderingOrder, b.RenderingOrder)
		case a.HierarchyID != b.HierarchyID:
			return cmpU32(a.HierarchyID, b.HierarchyID)
		case a.HierarchyDepth != b.HierarchyDepth:
			return cmp32(a.HierarchyDepth, b.HierarchyDepth)
		case a.Distance != b.Distance:
			// Far to near.
			if a.Distance > b.Distance {
				return -1
			}
			return 1
		case a.LightsHash != b.LightsHash:
			return cmpU32(a.LightsHash, b.LightsHash)
		case a.ElementHint != b.ElementHint:
			return cmpU32(a.ElementHint, b.ElementHint)
		case a.NodeID != b.NodeID:
			if a.NodeID < b.NodeID {
				return -1
			}
			return 1
		default:
			return a.Element - b.Element
		}
	})
}

func cmp32(a, b int32) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

func cmpU32(a, b uint32) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}
