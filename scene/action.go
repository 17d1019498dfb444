package scene

// ActionKind is the closed set of per-frame behaviors a node can run.
type ActionKind int

const (
	// ActionPerFrame runs every tick until its repeat budget is spent.
	ActionPerFrame ActionKind = iota
	// ActionTimed runs every tick for Duration seconds, then completes
	// (or restarts while repeats remain).
	ActionTimed
	// ActionOneShot runs exactly once and removes itself.
	ActionOneShot
)

// Action is a behavior attached to a node, advanced once per frame
// tick by the pipeline. Never advanced concurrently for one node.
type Action struct {
	Kind     ActionKind
	Duration float32 // seconds, ActionTimed only
	// Repeats is the number of times the action restarts after
	// completing. Negative repeats forever.
	Repeats int
	// Func receives the owning node and the frame delta in seconds.
	Func func(node *Node, dt float32)
	// OnFinish fires when the action leaves the pending list, whether
	// it completed or was cancelled.
	OnFinish func()

	elapsed float32
}

// tick advances the action by dt and reports whether it should stay in
// the pending list.
func (a *Action) tick(node *Node, dt float32) bool {
	if a.Func != nil {
		a.Func(node, dt)
	}

	switch a.Kind {
	case ActionOneShot:
		return false

	case ActionPerFrame:
		if a.Repeats < 0 {
			return true
		}
		if a.Repeats == 0 {
			return false
		}
		a.Repeats--
		return true

	case ActionTimed:
		a.elapsed += dt
		if a.elapsed < a.Duration {
			return true
		}
		if a.Repeats == 0 {
			return false
		}
		if a.Repeats > 0 {
			a.Repeats--
		}
		a.elapsed = 0
		return true
	}
	return false
}

// ProcessActions runs every pending action once. Completed actions are
// removed and notified. The frame pipeline runs this before the
// transform pass, so an action's edits land in the same frame.
func (n *Node) ProcessActions(dt float32) {
	n.checkThread("ProcessActions")

	kept := n.actions[:0]
	for _, action := range n.actions {
		if action.tick(n, dt) {
			kept = append(kept, action)
		} else if action.OnFinish != nil {
			action.OnFinish()
		}
	}
	// Clear the tail so dropped actions do not linger.
	for i := len(kept); i < len(n.actions); i++ {
		n.actions[i] = nil
	}
	n.actions = kept
}

// RunAction queues an action on this node.
func (n *Node) RunAction(action *Action) {
	n.checkThread("RunAction")
	n.actions = append(n.actions, action)
}

// RemoveAction cancels a pending action immediately, firing OnFinish.
func (n *Node) RemoveAction(action *Action) {
	n.checkThread("RemoveAction")
	for i, candidate := range n.actions {
		if candidate == action {
			n.actions = append(n.actions[:i], n.actions[i+1:]...)
			if action.OnFinish != nil {
				action.OnFinish()
			}
			return
		}
	}
}

// RemoveAllActions cancels every pending action, firing each OnFinish.
func (n *Node) RemoveAllActions() {
	n.checkThread("RemoveAllActions")
	actions := n.actions
	n.actions = nil
	for _, action := range actions {
		if action.OnFinish != nil {
			action.OnFinish()
		}
	}
}
