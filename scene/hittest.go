package scene

import (
	"slices"

	"github.com/go-gl/mathgl/mgl32"
)

// HitResult is one ray intersection found by HitTest, ordered nearest
// first in the returned slice.
type HitResult struct {
	Node     *Node
	Point    mgl32.Vec3
	Distance float32
	// Element and Triangle identify the intersected primitive for
	// high-accuracy hits. Both are -1 for bounds-only hits.
	Element  int
	Triangle int
}

const rayEpsilon = 1e-7

// HitTest intersects a world-space ray against the subtree. A node is
// a candidate when it is visible, carries geometry, sits above the
// hidden-opacity threshold and is selectable; selectability is not
// inherited, so the subtree is walked even below unselectable nodes.
//
// With boundsOnly the world bounding box is the intersection target;
// nodes flagged for high-accuracy testing get triangle-level tests
// regardless. Results come back sorted by distance.
func (n *Node) HitTest(origin, direction mgl32.Vec3, boundsOnly bool) []HitResult {
	n.checkThread("HitTest")

	if direction.Len() < rayEpsilon {
		return nil
	}
	direction = direction.Normalize()

	var results []HitResult
	n.hitTest(origin, direction, boundsOnly, &results)
	slices.SortStableFunc(results, func(a, b HitResult) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		default:
			return 0
		}
	})
	return results
}

func (n *Node) hitTest(origin, direction mgl32.Vec3, boundsOnly bool, out *[]HitResult) {
	if n.visible && n.geometry != nil && n.selectable && n.computedOpacity > HiddenOpacityThreshold {
		if point, ok := n.computedBoundingBox.IntersectsRay(origin, direction); ok {
			if boundsOnly && !n.highAccuracyHitTest {
				*out = append(*out, HitResult{
					Node:     n,
					Point:    point,
					Distance: point.Sub(origin).Len(),
					Element:  -1,
					Triangle: -1,
				})
			} else {
				n.hitTestGeometry(origin, direction, out)
			}
		}
	}

	for _, child := range n.children {
		child.hitTest(origin, direction, boundsOnly, out)
	}
}

// hitTestGeometry walks every triangle of every element in world space
// and records the nearest intersection of the node, if any.
func (n *Node) hitTestGeometry(origin, direction mgl32.Vec3, out *[]HitResult) {
	best := HitResult{Distance: boxInf, Element: -1, Triangle: -1}

	for element := 0; element < n.geometry.ElementCount(); element++ {
		index := 0
		n.geometry.Triangles(element, func(a, b, c mgl32.Vec3) bool {
			wa := n.computedTransform.Mul4x1(a.Vec4(1)).Vec3()
			wb := n.computedTransform.Mul4x1(b.Vec4(1)).Vec3()
			wc := n.computedTransform.Mul4x1(c.Vec4(1)).Vec3()

			if t, ok := rayTriangle(origin, direction, wa, wb, wc); ok && t < best.Distance {
				best = HitResult{
					Node:     n,
					Point:    origin.Add(direction.Mul(t)),
					Distance: t,
					Element:  element,
					Triangle: index,
				}
			}
			index++
			return true
		})
	}

	if best.Node != nil {
		*out = append(*out, best)
	}
}

// rayTriangle is the Möller-Trumbore intersection test. It returns the
// ray parameter t for hits in front of the origin, culling nothing
// (both winding orders hit).
func rayTriangle(origin, direction, a, b, c mgl32.Vec3) (float32, bool) {
	edge1 := b.Sub(a)
	edge2 := c.Sub(a)

	p := direction.Cross(edge2)
	det := edge1.Dot(p)
	if det > -rayEpsilon && det < rayEpsilon {
		return 0, false
	}
	invDet := 1 / det

	s := origin.Sub(a)
	u := s.Dot(p) * invDet
	if u < 0 || u > 1 {
		return 0, false
	}

	q := s.Cross(edge1)
	v := direction.Dot(q) * invDet
	if v < 0 || u+v > 1 {
		return 0, false
	}

	t := edge2.Dot(q) * invDet
	if t < rayEpsilon {
		return 0, false
	}
	return t, true
}
