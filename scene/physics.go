package scene

import "github.com/go-gl/mathgl/mgl32"

type BodyKind int

const (
	BodyStatic BodyKind = iota
	BodyDynamic
	BodyKinematic
)

// PhysicsBody ties a node to a physics world. The graph registers the
// body on scene attach and unregisters it on detach or when the body
// is cleared; the simulation itself is a collaborator.
type PhysicsBody struct {
	Kind        BodyKind
	Mass        float32
	Velocity    mgl32.Vec3
	HalfExtents mgl32.Vec3

	node       *Node
	registered bool
}

// Node returns the owner, or nil if the body has been cleared.
func (b *PhysicsBody) Node() *Node {
	return b.node
}

// PhysicsWorld receives body handles as nodes enter and leave a scene.
// AddBody for an already-registered body and RemoveBody for an
// unregistered one are never issued by the graph.
type PhysicsWorld interface {
	AddBody(body *PhysicsBody)
	RemoveBody(body *PhysicsBody)
}
