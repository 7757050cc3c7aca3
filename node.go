package ebb

import (
	"go.uber.org/zap"
)

// Node is the fundamental scene graph element. A single flat struct is used
// for every node type; optional components (Transform, Camera, ...) select
// which hooks run during traversal and persistence.
//
// Nodes are owned by a Tree and addressed by NodeID. A *Node obtained from
// Tree.Node stays valid until the node is disposed.
type Node struct {
	// Identity
	ID   NodeID
	Kind Kind

	// Active is observed on the root by NodeTreeManager. Clearing it stops
	// the driver loop after the current cycle.
	Active bool

	typeName string

	// Hierarchy
	parent   NodeID
	children []NodeID

	// Local type registrations. Lookups that miss walk up to the root.
	types map[string]*NodeType

	// Components (nil when absent)
	Transform *Transform
	Camera    *Camera
	Target    RenderTarget
	Display   *Display
	Tween     *Tween
	Behavior  any

	disposed bool
}

// nodeDefaults sets the common default field values shared by all constructors.
func nodeDefaults(n *Node, typeName string, kind Kind) *Node {
	n.typeName = typeName
	n.Kind = kind
	n.Active = true
	return n
}

// NewNode creates a detached plain node of type "Node".
func NewNode() *Node {
	return nodeDefaults(&Node{}, "Node", KindNode)
}

// NewObject creates a detached node of type "Object" carrying an identity
// Transform.
func NewObject() *Node {
	n := nodeDefaults(&Node{}, "Object", KindObject)
	n.Transform = NewTransform()
	return n
}

// NewCustom creates a detached node of the given type name driven by b.
// b may implement any of Setupper, Updater, Renderable and Persister.
// Set the Transform field on the result to make the node transform-bearing.
func NewCustom(typeName string, b any) *Node {
	n := nodeDefaults(&Node{}, typeName, KindCustom)
	n.Behavior = b
	return n
}

// TypeName returns the name the node is persisted under.
func (n *Node) TypeName() string {
	return n.typeName
}

// Parent returns the parent handle, or Nil for a root.
func (n *Node) Parent() NodeID {
	return n.parent
}

// Caps returns the capabilities the node currently satisfies.
func (n *Node) Caps() Capability {
	var c Capability
	if n.Transform != nil {
		c |= CapTransform
	}
	if n.Camera != nil {
		c |= CapCamera
	}
	if n.Target != nil {
		c |= CapTarget
		if n.Camera == nil {
			c |= CapRenderable
		}
	}
	if n.Display != nil {
		c |= CapWindow
	}
	if n.Tween != nil {
		c |= CapAnimated
	}
	if n.Behavior != nil {
		c |= CapBehavior
		if _, ok := n.Behavior.(Renderable); ok {
			c |= CapRenderable
		}
	}
	return c
}

// IsDisposed returns true if this node has been disposed.
func (n *Node) IsDisposed() bool {
	return n.disposed
}

// --- Tree ---

// Tree is an arena of nodes. It holds the only owning references; nodes
// refer to each other through NodeID handles, so detaching and reparenting
// never leaves a dangling parent.
//
// A Tree is not safe for concurrent use.
type Tree struct {
	nodes []*Node // nodes[id-1]
	free  []NodeID
	live  int
	root  NodeID

	log       *zap.Logger
	debug     bool
	clock     Clock
	newTarget TargetFactory

	screenshots []string // queued labels, see Screenshot
}

// NewTree creates a tree with a pre-created active root of type "Node".
// No node types are registered; see AddType and BuiltinTypes.
func NewTree() *Tree {
	t := &Tree{
		log:       zap.NewNop(),
		clock:     NewClock(),
		newTarget: defaultTargetFactory,
	}
	t.root = t.Add(Nil, NewNode())
	return t
}

// Root returns the root created by NewTree.
func (t *Tree) Root() NodeID {
	return t.root
}

// Len returns the number of live nodes in the arena, detached subtrees
// included.
func (t *Tree) Len() int {
	return t.live
}

// Valid reports whether id names a live node of this tree.
func (t *Tree) Valid(id NodeID) bool {
	if id == Nil || int(id) > len(t.nodes) {
		return false
	}
	n := t.nodes[id-1]
	return n != nil && !n.disposed
}

// Node returns the node named by id.
// Panics if id is not a live node of this tree.
func (t *Tree) Node(id NodeID) *Node {
	if !t.Valid(id) {
		panic("ebb: invalid node handle")
	}
	return t.nodes[id-1]
}

// Add inserts the detached node n into the arena and appends it to parent's
// children. A Nil parent makes n a new root.
// Panics if n is nil or already belongs to a tree.
func (t *Tree) Add(parent NodeID, n *Node) NodeID {
	if n == nil {
		panic("ebb: cannot add nil node")
	}
	if n.ID != Nil || n.disposed {
		panic("ebb: node already belongs to a tree")
	}
	var id NodeID
	if k := len(t.free); k > 0 {
		id = t.free[k-1]
		t.free = t.free[:k-1]
		t.nodes[id-1] = n
	} else {
		t.nodes = append(t.nodes, n)
		id = NodeID(len(t.nodes))
	}
	n.ID = id
	n.parent = Nil
	t.live++
	if parent != Nil {
		t.AddChild(parent, id)
	}
	return id
}

// AddChild appends child to parent's children.
// If child already has a parent, it is removed from that parent first.
// Panics if child is an ancestor of parent (cycle).
func (t *Tree) AddChild(parent, child NodeID) {
	p := t.Node(parent)
	c := t.Node(child)
	if t.isAncestor(child, parent) {
		panic("ebb: adding child would create a cycle")
	}
	if c.parent != Nil {
		t.nodes[c.parent-1].removeChildByID(child)
	}
	c.parent = parent
	p.children = append(p.children, child)
	if t.debug {
		t.debugCheckTreeDepth(child)
		t.debugCheckChildCount(parent)
	}
}

// RemoveChild detaches child from parent. The child becomes a root and
// keeps its own subtree.
// Panics if child's parent is not parent.
func (t *Tree) RemoveChild(parent, child NodeID) {
	p := t.Node(parent)
	c := t.Node(child)
	if c.parent != parent {
		panic("ebb: child's parent is not this node")
	}
	p.removeChildByID(child)
	c.parent = Nil
}

// Remove detaches id from its parent. No-op for a root.
func (t *Tree) Remove(id NodeID) {
	n := t.Node(id)
	if n.parent == Nil {
		return
	}
	t.RemoveChild(n.parent, id)
}

// Dispose detaches id and releases it and every descendant. Handles to
// disposed nodes become invalid and may be reissued by later Adds.
func (t *Tree) Dispose(id NodeID) {
	t.Remove(id)
	t.dispose(id)
	if id == t.root {
		t.root = Nil
	}
}

func (t *Tree) dispose(id NodeID) {
	n := t.nodes[id-1]
	for _, child := range n.children {
		t.dispose(child)
	}
	n.disposed = true
	n.children = nil
	n.parent = Nil
	n.types = nil
	n.Camera = nil
	n.Target = nil
	n.Display = nil
	n.Tween = nil
	n.Behavior = nil
	n.ID = Nil
	t.nodes[id-1] = nil
	t.free = append(t.free, id)
	t.live--
}

// Parent returns the parent of id, or Nil for a root.
func (t *Tree) Parent(id NodeID) NodeID {
	return t.Node(id).parent
}

// Children returns the child list. The returned slice MUST NOT be mutated by the caller.
func (t *Tree) Children(id NodeID) []NodeID {
	return t.Node(id).children
}

// NumChildren returns the number of children.
func (t *Tree) NumChildren(id NodeID) int {
	return len(t.Node(id).children)
}

// ChildAt returns the child at the given index.
func (t *Tree) ChildAt(id NodeID, index int) NodeID {
	return t.Node(id).children[index]
}

// FindRoot walks parent handles from id until it reaches a root.
func (t *Tree) FindRoot(id NodeID) NodeID {
	for {
		p := t.Node(id).parent
		if p == Nil {
			return id
		}
		id = p
	}
}

// Active reports whether the root of id's tree is active.
func (t *Tree) Active(id NodeID) bool {
	return t.Node(t.FindRoot(id)).Active
}

// SetActive sets the Active flag on the root of id's tree.
func (t *Tree) SetActive(id NodeID, active bool) {
	t.Node(t.FindRoot(id)).Active = active
}

// --- Helpers ---

// isAncestor reports whether candidate is id or one of its ancestors.
func (t *Tree) isAncestor(candidate, id NodeID) bool {
	for p := id; p != Nil; p = t.nodes[p-1].parent {
		if p == candidate {
			return true
		}
	}
	return false
}

// removeChildByID removes child from n.children without clearing its parent.
func (n *Node) removeChildByID(child NodeID) {
	for i, c := range n.children {
		if c == child {
			copy(n.children[i:], n.children[i+1:])
			n.children = n.children[:len(n.children)-1]
			return
		}
	}
}
