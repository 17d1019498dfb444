package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// boxGeometry is a test double: an axis-aligned box centered on the
// local origin with a full triangle walk for hit testing.
type boxGeometry struct {
	half     mgl32.Vec3
	elements int
	opaque   bool
	released bool
}

func newBoxGeometry(half mgl32.Vec3) *boxGeometry {
	return &boxGeometry{half: half, elements: 1, opaque: true}
}

func (g *boxGeometry) BoundingBox() BoundingBox {
	return BoundingBox{Min: g.half.Mul(-1), Max: g.half}
}

func (g *boxGeometry) ElementCount() int { return g.elements }

func (g *boxGeometry) ElementSortHint(element int) uint32 { return uint32(element) }

func (g *boxGeometry) ElementOpaque(element int) bool { return g.opaque }

func (g *boxGeometry) Triangles(element int, fn func(a, b, c mgl32.Vec3) bool) {
	x, y, z := g.half.X(), g.half.Y(), g.half.Z()
	v := [8]mgl32.Vec3{
		{-x, -y, -z}, {x, -y, -z}, {x, y, -z}, {-x, y, -z},
		{-x, -y, z}, {x, -y, z}, {x, y, z}, {-x, y, z},
	}
	quads := [6][4]int{
		{0, 1, 2, 3}, // bottom
		{4, 5, 6, 7}, // top
		{0, 1, 5, 4}, // front
		{2, 3, 7, 6}, // back
		{1, 2, 6, 5}, // right
		{3, 0, 4, 7}, // left
	}
	for _, q := range quads {
		if !fn(v[q[0]], v[q[1]], v[q[2]]) {
			return
		}
		if !fn(v[q[0]], v[q[2]], v[q[3]]) {
			return
		}
	}
}

func (g *boxGeometry) Release() { g.released = true }

// recordingDriver captures draw submissions in order.
type recordingDriver struct {
	nodes     []*Node
	opacities []float32
}

func (d *recordingDriver) Draw(node *Node, element int, transform, inverseTranspose mgl32.Mat4, opacity float32) {
	d.nodes = append(d.nodes, node)
	d.opacities = append(d.opacities, opacity)
}

// recordingWorld counts physics registrations.
type recordingWorld struct {
	added   int
	removed int
}

func (w *recordingWorld) AddBody(body *PhysicsBody)    { w.added++ }
func (w *recordingWorld) RemoveBody(body *PhysicsBody) { w.removed++ }

func approx(a, b, eps float32) bool {
	return float32(math.Abs(float64(a-b))) <= eps
}

func approxVec(a, b mgl32.Vec3, eps float32) bool {
	return approx(a.X(), b.X(), eps) && approx(a.Y(), b.Y(), eps) && approx(a.Z(), b.Z(), eps)
}

// frontCamera looks down +Y from 10 units out, with the world origin
// well inside the frustum.
func frontCamera() *CameraState {
	c := NewCameraState()
	c.Position = mgl32.Vec3{0, -10, 0}
	c.UpdateFrustum()
	return c
}
