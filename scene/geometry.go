package scene

import "github.com/go-gl/mathgl/mgl32"

// Geometry is the drawable attachment contract. The graph core never
// touches vertex or index storage: it needs the local-space bounding
// box for culling, the element list for sort-key generation, and a
// triangle walk for high-accuracy hit testing.
type Geometry interface {
	// BoundingBox returns the geometry bounds in local (model) space.
	BoundingBox() BoundingBox

	// ElementCount returns the number of independently drawable
	// elements (one draw call each).
	ElementCount() int

	// ElementSortHint returns a per-element contribution folded into
	// that element's sort key, typically a material signature.
	ElementSortHint(element int) uint32

	// ElementOpaque reports whether the element can go into the opaque
	// bucket; translucent elements sort back-to-front.
	ElementOpaque(element int) bool

	// Triangles walks the triangles of one element in local space.
	// Return false from fn to stop early.
	Triangles(element int, fn func(a, b, c mgl32.Vec3) bool)
}

// Releaser is implemented by geometries holding GPU-adjacent resources
// that must be freed on node destruction.
type Releaser interface {
	Release()
}

// RenderDriver consumes the per-element draw submissions produced from
// the sorted key list. Implementations bind the actual material and
// issue the draw; the core only supplies transforms and opacity.
type RenderDriver interface {
	Draw(node *Node, element int, transform, inverseTranspose mgl32.Mat4, opacity float32)
}

// SpatialSound is a positional audio attachment. The graph only moves
// it; playback lives elsewhere.
type SpatialSound struct {
	Name     string
	Position mgl32.Vec3

	transformedPosition mgl32.Vec3
}

func (s *SpatialSound) TransformedPosition() mgl32.Vec3 {
	return s.transformedPosition
}

// ParticleEmitter is an attachment handle. Simulation of the particles
// themselves is a collaborator concern; the graph owns placement and
// lifecycle only.
type ParticleEmitter struct {
	Rate         float32
	MaxParticles int
	ConeAngle    float32
}

// TransformObserver is notified after the canonical transform pass
// recomputes a node's world transform. Held as a non-owning reference.
type TransformObserver interface {
	OnTransformUpdate(node *Node, worldTransform mgl32.Mat4)
}
