package scene

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// propertyAnimation is one in-flight interpolated change of a single
// animatable property. Every transform/opacity setter funnels through
// this machinery so explicit animations and plain writes share one
// code path.
type propertyAnimation interface {
	// advance applies the value for elapsed+dt and reports completion.
	advance(node *Node, dt float32) bool
	// finish jumps to the end value and fires the completion callback.
	// Used by synchronous cancellation.
	finish(node *Node)
}

type tween[T any] struct {
	start, end T
	duration   float32
	elapsed    float32
	lerp       func(a, b T, t float32) T
	apply      func(node *Node, v T)
	onComplete func()
}

func (tw *tween[T]) advance(node *Node, dt float32) bool {
	tw.elapsed += dt
	if tw.duration <= 0 || tw.elapsed >= tw.duration {
		tw.finish(node)
		return true
	}
	t := tw.elapsed / tw.duration
	tw.apply(node, tw.lerp(tw.start, tw.end, t))
	return false
}

func (tw *tween[T]) finish(node *Node) {
	tw.apply(node, tw.end)
	if tw.onComplete != nil {
		cb := tw.onComplete
		tw.onComplete = nil
		cb()
	}
}

func lerpFloat(a, b float32, t float32) float32 {
	return a + (b-a)*t
}

func lerpVec3(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}

func lerpQuat(a, b mgl32.Quat, t float32) mgl32.Quat {
	return mgl32.QuatSlerp(a, b, t)
}

// animate queues a property change. Duration at or below zero applies
// the end value immediately, on the calling (graph-owning) goroutine.
func animate[T any](n *Node, start, end T, duration float32,
	lerp func(a, b T, t float32) T, apply func(node *Node, v T), onComplete func()) {

	tw := &tween[T]{
		start:      start,
		end:        end,
		duration:   duration,
		lerp:       lerp,
		apply:      apply,
		onComplete: onComplete,
	}
	if duration <= 0 {
		tw.finish(n)
		return
	}
	n.tweens = append(n.tweens, tw)
}

// TickAnimations advances in-flight property changes and named
// animations by dt seconds. First step of the frame pipeline.
func (n *Node) TickAnimations(dt float32) {
	n.checkThread("TickAnimations")

	kept := n.tweens[:0]
	for _, tw := range n.tweens {
		if !tw.advance(n, dt) {
			kept = append(kept, tw)
		}
	}
	for i := len(kept); i < len(n.tweens); i++ {
		n.tweens[i] = nil
	}
	n.tweens = kept

	for _, sequences := range n.animations {
		for _, anim := range sequences {
			anim.Tick(n, dt)
		}
	}

	for _, child := range n.children {
		child.TickAnimations(dt)
	}
}

// CancelAnimations synchronously completes all in-flight property
// changes, jumping each to its end value and firing its completion
// callback so dependents (physics refresh, observers) are not left
// stale.
func (n *Node) CancelAnimations() {
	n.checkThread("CancelAnimations")
	tweens := n.tweens
	n.tweens = nil
	for _, tw := range tweens {
		tw.finish(n)
	}
}

// ExecutableAnimation is a named, user-authored animation bound to a
// node under a key. The graph drives Tick once per frame while the
// animation is running.
type ExecutableAnimation interface {
	// Start begins (or restarts) playback. onFinish may be nil.
	Start(node *Node, onFinish func())
	// Tick advances playback by dt seconds.
	Tick(node *Node, dt float32)
	// Pause freezes playback, keeping current values.
	Pause()
	// Terminate stops playback immediately and fires the pending
	// onFinish callback.
	Terminate()
}

// AddAnimation registers an animation sequence under a key, replacing
// (and terminating) any previous sequence with the same key.
func (n *Node) AddAnimation(key string, sequence ...ExecutableAnimation) {
	n.checkThread("AddAnimation")
	n.RemoveAnimation(key)
	n.animations[key] = sequence
}

// RemoveAnimation terminates and unregisters the sequence under key.
func (n *Node) RemoveAnimation(key string) {
	n.checkThread("RemoveAnimation")
	sequence, ok := n.animations[key]
	if !ok {
		return
	}
	for _, anim := range sequence {
		anim.Terminate()
	}
	delete(n.animations, key)
}

// AnimationKeys enumerates the registered animation keys in sorted
// order.
func (n *Node) AnimationKeys() []string {
	n.checkThread("AnimationKeys")
	keys := make([]string, 0, len(n.animations))
	for key := range n.animations {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// RunAnimation starts the sequence under key; optionally recurses into
// the subtree.
func (n *Node) RunAnimation(key string, recursive bool) {
	n.checkThread("RunAnimation")
	if sequence, ok := n.animations[key]; ok {
		for _, anim := range sequence {
			anim.Start(n, nil)
		}
	}
	if recursive {
		for _, child := range n.children {
			child.RunAnimation(key, recursive)
		}
	}
}

// PauseAnimation pauses the sequence under key; optionally recurses.
func (n *Node) PauseAnimation(key string, recursive bool) {
	n.checkThread("PauseAnimation")
	if sequence, ok := n.animations[key]; ok {
		for _, anim := range sequence {
			anim.Pause()
		}
	}
	if recursive {
		for _, child := range n.children {
			child.PauseAnimation(key, recursive)
		}
	}
}

// RemoveAllAnimations terminates and drops every registered sequence.
func (n *Node) RemoveAllAnimations() {
	n.checkThread("RemoveAllAnimations")
	for _, sequence := range n.animations {
		for _, anim := range sequence {
			anim.Terminate()
		}
	}
	clear(n.animations)
}

// TransformAnimation is a ready-made ExecutableAnimation interpolating
// a node's local TRS to a target over a fixed duration.
type TransformAnimation struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
	Duration float32

	running  bool
	paused   bool
	elapsed  float32
	from     [3]any // captured start values
	onFinish func()
}

func (a *TransformAnimation) Start(node *Node, onFinish func()) {
	a.running = true
	a.paused = false
	a.elapsed = 0
	a.from = [3]any{node.Position(), node.Rotation(), node.Scale()}
	a.onFinish = onFinish
}

func (a *TransformAnimation) Tick(node *Node, dt float32) {
	if !a.running || a.paused {
		return
	}
	a.elapsed += dt
	t := float32(1)
	if a.Duration > 0 && a.elapsed < a.Duration {
		t = a.elapsed / a.Duration
	}
	node.setPosition(lerpVec3(a.from[0].(mgl32.Vec3), a.Position, t))
	node.setRotation(lerpQuat(a.from[1].(mgl32.Quat), a.Rotation, t))
	node.setScale(lerpVec3(a.from[2].(mgl32.Vec3), a.Scale, t))
	if t >= 1 {
		a.running = false
		a.fireFinish()
	}
}

func (a *TransformAnimation) Pause() {
	a.paused = true
}

func (a *TransformAnimation) Terminate() {
	if a.running {
		a.running = false
		a.fireFinish()
	}
}

func (a *TransformAnimation) fireFinish() {
	if a.onFinish != nil {
		cb := a.onFinish
		a.onFinish = nil
		cb()
	}
}
