package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// HiddenOpacityThreshold is the composite opacity at or below which a
// node is skipped by rendering and hit testing.
const HiddenOpacityThreshold = 0.02

// NodeKind selects the rendering/culling behavior of a node. Kinds are
// a closed set dispatched by switch, not subtypes.
type NodeKind int

const (
	// KindNormal is an ordinary scene-graph node.
	KindNormal NodeKind = iota
	// KindPortal can show content that is not covered by its umbrella
	// bounding box, so culling never short-circuits its subtree.
	KindPortal
	// KindPortalFrame is the visible silhouette geometry of a portal.
	KindPortalFrame
)

// Node is the scene-graph entity: a local transform, optional
// attachments, and an ordered list of exclusively-owned children.
//
// All methods except the Atomic* family must be called from the
// goroutine owning the scene the node is attached to.
type Node struct {
	id   uint64
	ctx  *Context
	Kind NodeKind
	Name string

	// Local transform state. Pivots are optional; nil means origin.
	position      mgl32.Vec3
	rotation      mgl32.Quat
	euler         mgl32.Vec3
	scale         mgl32.Vec3
	scalePivot    *mgl32.Vec3
	rotationPivot *mgl32.Vec3

	// Computed once per frame by the canonical pipeline.
	computedTransform        mgl32.Mat4
	computedInverseTranspose mgl32.Mat4
	computedRotation         mgl32.Mat4
	computedPosition         mgl32.Vec3
	computedBoundingBox      BoundingBox
	umbrellaBoundingBox      BoundingBox
	computedOpacity          float32
	computedLights           []*Light

	opacity               float32
	opacityFromHiddenFlag float32
	hidden                bool
	visible               bool
	selectable            bool
	highAccuracyHitTest   bool
	hierarchicalRendering bool
	renderingOrder        int32
	lightReceivingBitMask uint32
	shadowCastingBitMask  uint32

	parent   *Node // non-owning back-reference
	children []*Node
	scene    *Scene // non-owning back-reference

	geometry        Geometry
	lights          []*Light
	sounds          []*SpatialSound
	physicsBody     *PhysicsBody
	particleEmitter *ParticleEmitter
	constraints     []Constraint
	actions         []*Action
	tweens          []propertyAnimation
	animations      map[string][]ExecutableAnimation
	observer        TransformObserver

	mirror atomicTransform

	sortKeys []SortKey
}

// NewNode creates a standalone node: no parent, identity transform,
// invisible until a scene attach runs the first visibility pass.
func NewNode(ctx *Context) *Node {
	n := &Node{
		id:                    ctx.nextNodeID(),
		ctx:                   ctx,
		rotation:              mgl32.QuatIdent(),
		scale:                 mgl32.Vec3{1, 1, 1},
		computedTransform:     mgl32.Ident4(),
		computedRotation:      mgl32.Ident4(),
		computedBoundingBox:   EmptyBox(),
		umbrellaBoundingBox:   EmptyBox(),
		opacity:               1,
		opacityFromHiddenFlag: 1,
		computedOpacity:       1,
		selectable:            true,
		lightReceivingBitMask: 1,
		shadowCastingBitMask:  1,
		animations:            make(map[string][]ExecutableAnimation),
	}
	n.mirror.init(n)
	return n
}

func (n *Node) ID() uint64 {
	return n.id
}

func (n *Node) Context() *Context {
	return n.ctx
}

func (n *Node) checkThread(op string) {
	if n.scene != nil {
		n.scene.guard.check(op)
	}
}

// Parent returns the parent node, nil for roots.
func (n *Node) Parent() *Node {
	return n.parent
}

// Children returns the owned child list. Callers must not mutate it.
func (n *Node) Children() []*Node {
	return n.children
}

func (n *Node) Scene() *Scene {
	return n.scene
}

// AddChild appends child to this node's owned children and cascades
// the scene attachment to the whole new subtree. A node can have only
// one parent; attach-while-attached is a programming error.
func (n *Node) AddChild(child *Node) {
	n.checkThread("AddChild")
	if child == nil {
		panic("scene: AddChild with nil child")
	}
	if child.parent != nil {
		panic(fmt.Sprintf("scene: node %d already has a parent, detach it first", child.id))
	}
	child.parent = n
	n.children = append(n.children, child)
	child.setScene(n.scene)
}

// RemoveFromParent detaches this node (and thereby its subtree) from
// its parent and from the scene context, unregistering any owned
// physics bodies.
func (n *Node) RemoveFromParent() {
	n.checkThread("RemoveFromParent")
	parent := n.parent
	if parent == nil {
		return
	}
	for i, child := range parent.children {
		if child == n {
			parent.children = append(parent.children[:i], parent.children[i+1:]...)
			break
		}
	}
	n.parent = nil
	n.setScene(nil)
}

// RemoveAllChildren detaches every child subtree.
func (n *Node) RemoveAllChildren() {
	n.checkThread("RemoveAllChildren")
	for len(n.children) > 0 {
		n.children[len(n.children)-1].RemoveFromParent()
	}
}

// setScene cascades scene membership through the subtree, keeping the
// physics world registration in sync. Idempotent per scene.
func (n *Node) setScene(s *Scene) {
	if n.scene == s {
		// Re-attaching to the same scene must not double-register.
		if s != nil && n.physicsBody != nil {
			s.registerBody(n.physicsBody)
		}
	} else {
		if n.scene != nil && n.physicsBody != nil {
			n.scene.unregisterBody(n.physicsBody)
		}
		n.scene = s
		if s != nil {
			if n.physicsBody != nil {
				s.registerBody(n.physicsBody)
			}
		} else {
			n.visible = false
		}
	}
	for _, child := range n.children {
		child.setScene(s)
	}
}

// Destroy detaches the node and recursively releases GPU-adjacent
// geometry resources of the subtree. The node must not be used after.
func (n *Node) Destroy() {
	n.checkThread("Destroy")
	n.RemoveFromParent()
	n.destroyRecursive()
}

func (n *Node) destroyRecursive() {
	n.RemoveAllActions()
	n.RemoveAllAnimations()
	if rel, ok := n.geometry.(Releaser); ok {
		rel.Release()
	}
	n.geometry = nil
	n.observer = nil
	for _, child := range n.children {
		child.destroyRecursive()
	}
}

// SetGeometry attaches (or with nil, clears) the drawable geometry.
func (n *Node) SetGeometry(g Geometry) {
	n.checkThread("SetGeometry")
	n.geometry = g
}

func (n *Node) Geometry() Geometry {
	return n.geometry
}

func (n *Node) AddLight(l *Light) {
	n.checkThread("AddLight")
	n.lights = append(n.lights, l)
}

func (n *Node) RemoveLight(l *Light) {
	n.checkThread("RemoveLight")
	for i, candidate := range n.lights {
		if candidate == l {
			n.lights = append(n.lights[:i], n.lights[i+1:]...)
			return
		}
	}
}

func (n *Node) Lights() []*Light {
	return n.lights
}

// ComputedLights returns the set of lights influencing this node as of
// the last sort-key pass.
func (n *Node) ComputedLights() []*Light {
	return n.computedLights
}

func (n *Node) AddSound(s *SpatialSound) {
	n.checkThread("AddSound")
	n.sounds = append(n.sounds, s)
}

func (n *Node) RemoveSound(s *SpatialSound) {
	n.checkThread("RemoveSound")
	for i, candidate := range n.sounds {
		if candidate == s {
			n.sounds = append(n.sounds[:i], n.sounds[i+1:]...)
			return
		}
	}
}

func (n *Node) SetParticleEmitter(e *ParticleEmitter) {
	n.checkThread("SetParticleEmitter")
	n.particleEmitter = e
}

func (n *Node) ParticleEmitter() *ParticleEmitter {
	return n.particleEmitter
}

// InitPhysicsBody creates and attaches a physics body, registering it
// with the scene's physics world if the node is attached.
func (n *Node) InitPhysicsBody(kind BodyKind, mass float32, halfExtents mgl32.Vec3) *PhysicsBody {
	n.checkThread("InitPhysicsBody")
	n.ClearPhysicsBody()
	body := &PhysicsBody{
		Kind:        kind,
		Mass:        mass,
		HalfExtents: halfExtents,
		node:        n,
	}
	n.physicsBody = body
	if n.scene != nil {
		n.scene.registerBody(body)
	}
	return body
}

// ClearPhysicsBody detaches the body, unregistering it first.
func (n *Node) ClearPhysicsBody() {
	n.checkThread("ClearPhysicsBody")
	if n.physicsBody == nil {
		return
	}
	if n.scene != nil {
		n.scene.unregisterBody(n.physicsBody)
	}
	n.physicsBody.node = nil
	n.physicsBody = nil
}

func (n *Node) PhysicsBody() *PhysicsBody {
	return n.physicsBody
}

func (n *Node) AddConstraint(c Constraint) {
	n.checkThread("AddConstraint")
	n.constraints = append(n.constraints, c)
}

func (n *Node) RemoveConstraint(c Constraint) {
	n.checkThread("RemoveConstraint")
	for i, candidate := range n.constraints {
		if candidate == c {
			n.constraints = append(n.constraints[:i], n.constraints[i+1:]...)
			return
		}
	}
}

func (n *Node) RemoveAllConstraints() {
	n.checkThread("RemoveAllConstraints")
	n.constraints = nil
}

// SetTransformObserver installs a non-owning observer notified after
// every canonical transform recomputation of this node.
func (n *Node) SetTransformObserver(obs TransformObserver) {
	n.checkThread("SetTransformObserver")
	n.observer = obs
}

func (n *Node) Visible() bool {
	return n.visible
}

func (n *Node) Selectable() bool {
	return n.selectable
}

func (n *Node) SetSelectable(selectable bool) {
	n.checkThread("SetSelectable")
	n.selectable = selectable
}

func (n *Node) HighAccuracyHitTest() bool {
	return n.highAccuracyHitTest
}

// SetHighAccuracyHitTest forces triangle-level hit testing for this
// node even when the caller asked for bounds only.
func (n *Node) SetHighAccuracyHitTest(enabled bool) {
	n.checkThread("SetHighAccuracyHitTest")
	n.highAccuracyHitTest = enabled
}

func (n *Node) HierarchicalRendering() bool {
	return n.hierarchicalRendering
}

// SetHierarchicalRendering marks this node as the root of a rendering
// hierarchy: the whole subtree shares one camera distance so its
// internal draw order never flips as the camera moves.
func (n *Node) SetHierarchicalRendering(enabled bool) {
	n.checkThread("SetHierarchicalRendering")
	n.hierarchicalRendering = enabled
}

func (n *Node) RenderingOrder() int32 {
	return n.renderingOrder
}

// SetRenderingOrder sets the explicit draw-order tie-break. Lower
// renders first.
func (n *Node) SetRenderingOrder(order int32) {
	n.checkThread("SetRenderingOrder")
	n.renderingOrder = order
}

func (n *Node) LightReceivingBitMask() uint32 {
	return n.lightReceivingBitMask
}

func (n *Node) SetLightReceivingBitMask(mask uint32) {
	n.checkThread("SetLightReceivingBitMask")
	n.lightReceivingBitMask = mask
}

func (n *Node) ShadowCastingBitMask() uint32 {
	return n.shadowCastingBitMask
}

func (n *Node) SetShadowCastingBitMask(mask uint32) {
	n.checkThread("SetShadowCastingBitMask")
	n.shadowCastingBitMask = mask
}

// CountVisibleNodes reports how many nodes of the subtree passed the
// last visibility pass.
func (n *Node) CountVisibleNodes() int {
	count := 0
	if n.visible {
		count = 1
	}
	for _, child := range n.children {
		count += child.CountVisibleNodes()
	}
	return count
}

// Render submits this node's geometry elements to the driver if the
// composite opacity is above the hidden threshold.
func (n *Node) Render(element int, driver RenderDriver) {
	n.checkThread("Render")
	if n.geometry == nil || n.computedOpacity <= HiddenOpacityThreshold {
		return
	}
	driver.Draw(n, element, n.computedTransform, n.computedInverseTranspose, n.computedOpacity)
}
