package ebb

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// Transform is a 4x4 affine matrix holding translation, rotation and scale.
//
// Every mutating operation post-multiplies the stored matrix (M = M * op),
// so the operation is applied in the node's local frame: translating after
// a rotation moves along the rotated axes.
type Transform struct {
	Matrix mgl32.Mat4
}

// NewTransform returns an identity transform.
func NewTransform() *Transform {
	return &Transform{Matrix: mgl32.Ident4()}
}

// Translate moves the transform by v in its local frame.
func (tr *Transform) Translate(v mgl32.Vec3) {
	tr.Matrix = tr.Matrix.Mul4(mgl32.Translate3D(v[0], v[1], v[2]))
}

// Rotate rotates by Euler angles in radians, applied X then Y then Z.
func (tr *Transform) Rotate(euler mgl32.Vec3) {
	q := mgl32.AnglesToQuat(euler[0], euler[1], euler[2], mgl32.XYZ)
	tr.Matrix = tr.Matrix.Mul4(q.Mat4())
}

// RotateQuat rotates by q.
func (tr *Transform) RotateQuat(q mgl32.Quat) {
	tr.Matrix = tr.Matrix.Mul4(q.Normalize().Mat4())
}

// Scale scales the local axes by v.
func (tr *Transform) Scale(v mgl32.Vec3) {
	tr.Matrix = tr.Matrix.Mul4(mgl32.Scale3D(v[0], v[1], v[2]))
}

// SetTranslation overwrites the translation column, leaving rotation and
// scale untouched.
func (tr *Transform) SetTranslation(v mgl32.Vec3) {
	tr.Matrix.SetCol(3, v.Vec4(1))
}

// Position returns the translation column.
func (tr *Transform) Position() mgl32.Vec3 {
	return tr.Matrix.Col(3).Vec3()
}

// ScaleFactors returns the lengths of the three basis vectors.
func (tr *Transform) ScaleFactors() mgl32.Vec3 {
	return mgl32.Vec3{
		tr.Matrix.Col(0).Vec3().Len(),
		tr.Matrix.Col(1).Vec3().Len(),
		tr.Matrix.Col(2).Vec3().Len(),
	}
}

// Mul returns tr * other. tr is not modified.
func (tr *Transform) Mul(other *Transform) *Transform {
	return &Transform{Matrix: tr.Matrix.Mul4(other.Matrix)}
}

// Reset restores the identity matrix.
func (tr *Transform) Reset() {
	tr.Matrix = mgl32.Ident4()
}

// --- World transform ---

// BrokenChainError reports that a node without a transform sits between a
// transform-bearing node and a transform-bearing ancestor. The world
// transform returned alongside it only covers the unbroken part of the chain.
type BrokenChainError struct {
	Node NodeID // node whose world transform was requested
	At   NodeID // first ancestor without a transform
}

func (e *BrokenChainError) Error() string {
	return fmt.Sprintf("ebb: transform chain of node %d interrupted at node %d", e.Node, e.At)
}

// Is makes errors.Is(err, ErrBrokenChain) match.
func (e *BrokenChainError) Is(target error) bool {
	return target == ErrBrokenChain
}

// WorldTransform composes id's local transform with the local transforms of
// its consecutive transform-bearing ancestors: world = parentWorld * local.
//
// Composition stops at the first ancestor without a transform. If another
// transform-bearing node exists above that ancestor the partial result is
// returned together with a *BrokenChainError. A node without a transform
// returns ErrNoTransform.
func (t *Tree) WorldTransform(id NodeID) (*Transform, error) {
	n := t.Node(id)
	if n.Transform == nil {
		return nil, errors.Wrapf(ErrNoTransform, "node %d (%s)", id, n.typeName)
	}
	m := n.Transform.Matrix
	p := n.parent
	for p != Nil {
		pn := t.nodes[p-1]
		if pn.Transform == nil {
			break
		}
		m = pn.Transform.Matrix.Mul4(m)
		p = pn.parent
	}
	world := &Transform{Matrix: m}
	if p == Nil {
		return world, nil
	}
	for q := t.nodes[p-1].parent; q != Nil; q = t.nodes[q-1].parent {
		if t.nodes[q-1].Transform != nil {
			return world, &BrokenChainError{Node: id, At: p}
		}
	}
	return world, nil
}

// WorldPosition returns the translation of id's world transform.
func (t *Tree) WorldPosition(id NodeID) (mgl32.Vec3, error) {
	world, err := t.WorldTransform(id)
	if world == nil {
		return mgl32.Vec3{}, err
	}
	return world.Position(), err
}

// nearestTransform returns the closest ancestor of id (id excluded) that
// carries a transform, or Nil.
func (t *Tree) nearestTransform(id NodeID) NodeID {
	for p := t.Node(id).parent; p != Nil; p = t.nodes[p-1].parent {
		if t.nodes[p-1].Transform != nil {
			return p
		}
	}
	return Nil
}

var transformComponent = component{
	name: "transform",
	has:  func(n *Node) bool { return n.Transform != nil },
	save: func(n *Node, w *Writer) error {
		return w.Mat4(n.Transform.Matrix)
	},
	load: func(_ *Tree, n *Node, r *Reader) error {
		m, err := r.Mat4()
		if err != nil {
			return err
		}
		n.Transform.Matrix = m
		return nil
	},
}
