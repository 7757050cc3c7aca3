package ebb

import (
	"fmt"

	"github.com/pkg/errors"
)

// Factory creates a new detached node of a registered type.
type Factory func() *Node

// NodeType binds a persisted type name to the factory that reconstructs it.
// Registrations are compared by pointer: registering the same *NodeType
// twice is a no-op, two different *NodeType values may not share a name
// within one scope.
type NodeType struct {
	Name string
	New  Factory
}

// Built-in node types.
var (
	NodeTypeNode = &NodeType{Name: "Node", New: NewNode}

	NodeTypeObject = &NodeType{Name: "Object", New: NewObject}

	// NodeTypeCamera constructs a camera without a render target; the
	// target is created from the persisted dimensions when the camera loads.
	NodeTypeCamera = &NodeType{Name: "Camera", New: func() *Node {
		return newCameraNode(nil, defaultFOV, defaultNear, defaultFar)
	}}

	NodeTypeRenderTexture = &NodeType{Name: "RenderTexture", New: newRenderTextureNode}

	NodeTypeWindow = &NodeType{Name: "Window", New: func() *Node {
		return NewWindowNode(0, 0, "")
	}}

	NodeTypeTween = &NodeType{Name: "Tween", New: func() *Node {
		return NewTweenNode(TweenConfig{})
	}}
)

// BuiltinTypes returns every node type provided by the package, in a form
// suitable for AddType(root, BuiltinTypes()...).
func BuiltinTypes() []*NodeType {
	return []*NodeType{
		NodeTypeNode,
		NodeTypeObject,
		NodeTypeCamera,
		NodeTypeRenderTexture,
		NodeTypeWindow,
		NodeTypeTween,
	}
}

// UnknownTypeError is returned when a type name cannot be resolved from a
// node or any of its ancestors.
type UnknownTypeError struct {
	Name string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("ebb: unknown node type %q", e.Name)
}

// Is makes errors.Is(err, ErrUnknownType) match.
func (e *UnknownTypeError) Is(target error) bool {
	return target == ErrUnknownType
}

// AddType registers types at id and every current descendant of id.
// Nodes attached later do not receive the registration directly but still
// resolve it through their ancestors.
//
// Registration is validated for the whole subtree before anything is
// applied: on error nothing is registered.
func (t *Tree) AddType(id NodeID, types ...*NodeType) error {
	for _, nt := range types {
		if err := validType(nt); err != nil {
			return err
		}
	}
	for i, nt := range types {
		for _, other := range types[:i] {
			if other.Name == nt.Name && other != nt {
				return errors.Wrapf(ErrTypeConflict, "type %q registered twice", nt.Name)
			}
		}
	}
	if err := t.checkTypes(id, types); err != nil {
		return err
	}
	t.applyTypes(id, types)
	return nil
}

func validType(nt *NodeType) error {
	switch {
	case nt == nil:
		return errors.Wrap(ErrInvalidType, "nil node type")
	case nt.Name == "":
		return errors.Wrap(ErrInvalidType, "empty type name")
	case len(nt.Name) > maxTypeName:
		return errors.Wrapf(ErrInvalidType, "type name %q exceeds %d bytes", nt.Name, maxTypeName)
	case nt.New == nil:
		return errors.Wrapf(ErrInvalidType, "type %q has no factory", nt.Name)
	}
	for i := 0; i < len(nt.Name); i++ {
		if nt.Name[i] == 0 {
			return errors.Wrapf(ErrInvalidType, "type name %q contains NUL", nt.Name)
		}
	}
	return nil
}

// checkTypes verifies that no node in id's subtree already resolves one of
// the names to a different *NodeType.
func (t *Tree) checkTypes(id NodeID, types []*NodeType) error {
	for _, nt := range types {
		if existing := t.lookupType(id, nt.Name); existing != nil && existing != nt {
			return errors.Wrapf(ErrTypeConflict, "type %q already registered in scope", nt.Name)
		}
	}
	for _, child := range t.nodes[id-1].children {
		if err := t.checkTypes(child, types); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tree) applyTypes(id NodeID, types []*NodeType) {
	n := t.nodes[id-1]
	if n.types == nil {
		n.types = make(map[string]*NodeType, len(types))
	}
	for _, nt := range types {
		n.types[nt.Name] = nt
	}
	for _, child := range n.children {
		t.applyTypes(child, types)
	}
}

// lookupType resolves name from id's local map, then its ancestors.
func (t *Tree) lookupType(id NodeID, name string) *NodeType {
	for p := id; p != Nil; p = t.nodes[p-1].parent {
		if nt, ok := t.nodes[p-1].types[name]; ok {
			return nt
		}
	}
	return nil
}

// LookupType returns the type registered under name as seen from id, or nil.
func (t *Tree) LookupType(id NodeID, name string) *NodeType {
	t.Node(id)
	return t.lookupType(id, name)
}

// Construct creates a new detached node of the named type using the
// registry visible from id. The result must be attached with Add.
func (t *Tree) Construct(id NodeID, name string) (*Node, error) {
	t.Node(id)
	nt := t.lookupType(id, name)
	if nt == nil {
		return nil, &UnknownTypeError{Name: name}
	}
	n := nt.New()
	if n == nil {
		return nil, errors.Wrapf(ErrInvalidType, "factory for %q returned nil", name)
	}
	n.typeName = nt.Name
	return n, nil
}

// effectiveTypes collects the registry visible from id. Entries nearer to
// id are kept when a name repeats up the chain.
func (t *Tree) effectiveTypes(id NodeID) []*NodeType {
	seen := make(map[string]bool)
	var out []*NodeType
	for p := id; p != Nil; p = t.nodes[p-1].parent {
		for name, nt := range t.nodes[p-1].types {
			if !seen[name] {
				seen[name] = true
				out = append(out, nt)
			}
		}
	}
	return out
}
