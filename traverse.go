package ebb

// Setupper is implemented by behaviors that need one-time initialization
// before the driver loop starts.
type Setupper interface {
	Setup(t *Tree, id NodeID) error
}

// Updater is implemented by behaviors that run once per frame.
type Updater interface {
	Update(t *Tree, id NodeID) error
}

// Renderable is implemented by behaviors that contribute to a camera's
// draw pass. ctx is only valid for the duration of the call.
type Renderable interface {
	Draw(t *Tree, id NodeID, ctx *RenderContext)
}

// Persister is implemented by behaviors that carry trailing data in the
// tree file. Save and Load must be symmetric.
type Persister interface {
	Save(w *Writer) error
	Load(r *Reader) error
}

// component describes the hooks one optional node component contributes.
// Hooks run in table order; the recursion into children is applied by the
// caller after every hook has run, so a hook cannot suppress it.
type component struct {
	name   string
	has    func(n *Node) bool
	setup  func(t *Tree, id NodeID) error
	update func(t *Tree, id NodeID) error
	save   func(n *Node, w *Writer) error
	load   func(t *Tree, n *Node, r *Reader) error
}

// components is ordered: transform, camera, target, display, tween, behavior.
// The same order defines the trailing data layout of a node record.
var components []component

func init() {
	components = []component{
		transformComponent,
		cameraComponent,
		targetComponent,
		displayComponent,
		tweenComponent,
		behaviorComponent,
	}
}

var behaviorComponent = component{
	name: "behavior",
	has:  func(n *Node) bool { return n.Behavior != nil },
	setup: func(t *Tree, id NodeID) error {
		if s, ok := t.nodes[id-1].Behavior.(Setupper); ok {
			return s.Setup(t, id)
		}
		return nil
	},
	update: func(t *Tree, id NodeID) error {
		if u, ok := t.nodes[id-1].Behavior.(Updater); ok {
			return u.Update(t, id)
		}
		return nil
	},
	save: func(n *Node, w *Writer) error {
		if p, ok := n.Behavior.(Persister); ok {
			return p.Save(w)
		}
		return nil
	},
	load: func(_ *Tree, n *Node, r *Reader) error {
		if p, ok := n.Behavior.(Persister); ok {
			return p.Load(r)
		}
		return nil
	},
}

// --- Traversal ---

// Setup runs the setup hooks of id and then of every descendant, in
// depth-first pre-order. The first error aborts the traversal.
func (t *Tree) Setup(id NodeID) error {
	return t.visit(id, func(c *component) func(*Tree, NodeID) error { return c.setup })
}

// Update runs the per-frame hooks of id and then of every descendant, in
// depth-first pre-order. The first error aborts the traversal.
func (t *Tree) Update(id NodeID) error {
	return t.visit(id, func(c *component) func(*Tree, NodeID) error { return c.update })
}

func (t *Tree) visit(id NodeID, hook func(*component) func(*Tree, NodeID) error) error {
	n := t.Node(id)
	for i := range components {
		c := &components[i]
		fn := hook(c)
		if fn == nil || !c.has(n) {
			continue
		}
		if err := fn(t, id); err != nil {
			return err
		}
		// A hook may dispose its own node.
		if !t.Valid(id) {
			return nil
		}
	}
	// Hooks may reshape the child list; iterate over a snapshot.
	children := append([]NodeID(nil), n.children...)
	for _, child := range children {
		if !t.Valid(child) || t.nodes[child-1].parent != id {
			continue
		}
		if err := t.visit(child, hook); err != nil {
			return err
		}
	}
	return nil
}

// Walk calls fn for id and every descendant in depth-first pre-order.
// Returning false from fn skips that node's children.
func (t *Tree) Walk(id NodeID, fn func(id NodeID) bool) {
	t.Node(id)
	t.walk(id, fn)
}

func (t *Tree) walk(id NodeID, fn func(id NodeID) bool) {
	if !fn(id) {
		return
	}
	for _, child := range t.nodes[id-1].children {
		t.walk(child, fn)
	}
}

// FindAll returns id and every descendant whose capabilities include caps,
// in depth-first pre-order. The node FindAll is called on is included.
// A zero caps matches every node. The result is a fresh slice.
func (t *Tree) FindAll(id NodeID, caps Capability) []NodeID {
	var out []NodeID
	t.Walk(id, func(n NodeID) bool {
		if t.nodes[n-1].Caps().Has(caps) {
			out = append(out, n)
		}
		return true
	})
	return out
}

// FindChild returns the index'th direct child of id whose capabilities
// include caps, or Nil if there is no such child.
func (t *Tree) FindChild(id NodeID, caps Capability, index int) NodeID {
	for _, child := range t.Node(id).children {
		if t.nodes[child-1].Caps().Has(caps) {
			if index == 0 {
				return child
			}
			index--
		}
	}
	return Nil
}

// FindType returns id and every descendant persisted under typeName, in
// depth-first pre-order.
func (t *Tree) FindType(id NodeID, typeName string) []NodeID {
	var out []NodeID
	t.Walk(id, func(n NodeID) bool {
		if t.nodes[n-1].typeName == typeName {
			out = append(out, n)
		}
		return true
	})
	return out
}

// draw dispatches a renderable node's draw hook.
func (t *Tree) draw(id NodeID, ctx *RenderContext) {
	n := t.nodes[id-1]
	if n.Target != nil && n.Camera == nil {
		drawTarget(n.Target, ctx)
	}
	if r, ok := n.Behavior.(Renderable); ok {
		r.Draw(t, id, ctx)
	}
}
