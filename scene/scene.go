package scene

import "github.com/go-gl/mathgl/mgl32"

// Scene owns a node tree and drives the per-frame pipeline over it.
// The goroutine that creates the scene owns the graph: structural and
// pipeline calls from any other goroutine panic. The Atomic* family on
// Node is the one sanctioned cross-thread entry point.
type Scene struct {
	ctx   *Context
	guard threadGuard
	root  *Node

	physics PhysicsWorld

	// FurthestDistance is the far extent of the last frame's visible
	// geometry, for far-clip-plane fitting.
	FurthestDistance float32

	keys []SortKey
}

// NewScene creates an empty scene owned by the calling goroutine.
func NewScene(ctx *Context) *Scene {
	s := &Scene{
		ctx:   ctx,
		guard: newThreadGuard(),
	}
	s.root = NewNode(ctx)
	s.root.Name = "root"
	s.root.scene = s
	return s
}

// Root returns the tree root. Attach content by adding children to it.
func (s *Scene) Root() *Node {
	return s.root
}

func (s *Scene) Context() *Context {
	return s.ctx
}

// SetPhysicsWorld installs the physics collaborator. Bodies already
// registered with the scene are handed over; a previous world gets
// them removed first.
func (s *Scene) SetPhysicsWorld(world PhysicsWorld) {
	s.guard.check("SetPhysicsWorld")
	if s.physics != nil {
		s.forEachRegisteredBody(s.root, s.physics.RemoveBody)
	}
	s.physics = world
	if world != nil {
		s.forEachRegisteredBody(s.root, world.AddBody)
	}
}

func (s *Scene) forEachRegisteredBody(n *Node, fn func(*PhysicsBody)) {
	if n.physicsBody != nil && n.physicsBody.registered {
		fn(n.physicsBody)
	}
	for _, child := range n.children {
		s.forEachRegisteredBody(child, fn)
	}
}

// registerBody marks a body as scene-registered and hands it to the
// physics world if one is installed. Idempotent: re-attaching a
// subtree to the same scene never double-registers.
func (s *Scene) registerBody(body *PhysicsBody) {
	if body.registered {
		return
	}
	body.registered = true
	if s.physics != nil {
		s.physics.AddBody(body)
	}
}

func (s *Scene) unregisterBody(body *PhysicsBody) {
	if !body.registered {
		return
	}
	body.registered = false
	if s.physics != nil {
		s.physics.RemoveBody(body)
	}
}

// Frame runs one full pipeline pass:
//
//  1. drain foreign atomic writes into the canonical fields
//  2. advance actions and animations
//  3. visibility, classified against the previous frame's transforms
//  4. canonical transform pass and constraints
//  5. sort-key generation and deterministic ordering
//  6. draw submission (skipped when driver is nil)
//  7. republish atomic snapshots
//
// Visibility deliberately consumes the previous frame's boxes: the
// one-frame lag is invisible at interactive rates and keeps culling
// independent of this frame's edits.
//
// The Step* methods expose the same pipeline piecewise so an engine
// shell can schedule each phase as its own system.
func (s *Scene) Frame(dt float32, camera *CameraState, driver RenderDriver) {
	s.StepBehaviors(dt)
	s.StepVisibility(camera)
	s.StepTransforms(camera)
	s.StepSortKeys(camera)
	s.Draw(driver)
	s.StepSync()
}

// StepBehaviors drains foreign atomic writes into the canonical
// fields, then advances actions and in-flight animations.
func (s *Scene) StepBehaviors(dt float32) {
	s.guard.check("StepBehaviors")
	s.root.applyAtomicWrites()
	tickActions(s.root, dt)
	s.root.TickAnimations(dt)
}

// StepVisibility refreshes the frustum and runs the culling pass over
// the previous frame's transforms.
func (s *Scene) StepVisibility(camera *CameraState) {
	s.guard.check("StepVisibility")
	camera.UpdateFrustum()
	s.root.UpdateVisibility(camera)
}

// StepTransforms runs the canonical transform pass and applies
// constraints on top of it.
func (s *Scene) StepTransforms(camera *CameraState) {
	s.guard.check("StepTransforms")
	s.root.ComputeTransforms(mgl32.Ident4(), mgl32.Ident4())
	s.root.ApplyConstraints(camera, mgl32.Ident4(), false)
}

// StepSortKeys regenerates, collects and sorts the frame's draw keys.
func (s *Scene) StepSortKeys(camera *CameraState) {
	s.guard.check("StepSortKeys")
	params := NewRenderParams(camera, camera.Far)
	s.root.UpdateSortKeys(0, params)
	s.FurthestDistance = params.FurthestDistanceFromCamera

	s.keys = s.keys[:0]
	s.root.CollectSortKeys(&s.keys)
	SortKeys(s.keys)
}

// Draw submits the sorted keys to the driver. Nil drivers are allowed
// for headless passes.
func (s *Scene) Draw(driver RenderDriver) {
	s.guard.check("Draw")
	if driver == nil {
		return
	}
	for _, key := range s.keys {
		key.Node.Render(key.Element, driver)
	}
}

// StepSync republishes the atomic snapshots from the canonical fields.
// Last phase of the frame.
func (s *Scene) StepSync() {
	s.guard.check("StepSync")
	s.root.syncAtomic()
}

func tickActions(n *Node, dt float32) {
	n.ProcessActions(dt)
	for _, child := range n.children {
		tickActions(child, dt)
	}
}

// SortedKeys returns the draw order of the last Frame. Valid until the
// next Frame call.
func (s *Scene) SortedKeys() []SortKey {
	s.guard.check("SortedKeys")
	return s.keys
}

// HitTest intersects a world-space ray against the whole tree.
func (s *Scene) HitTest(origin, direction mgl32.Vec3, boundsOnly bool) []HitResult {
	return s.root.HitTest(origin, direction, boundsOnly)
}
