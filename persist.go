package ebb

import (
	"bufio"
	"io"
	"os"

	"github.com/pkg/errors"
)

// Save writes the subtree rooted at id to w:
//
//	type name (NUL-terminated)
//	child count (uint32)
//	child records
//	trailing component data
//
// Components write their data in the order transform, camera, render
// texture, window, tween, behavior.
func (t *Tree) Save(id NodeID, w io.Writer) error {
	t.Node(id)
	bw := bufio.NewWriter(w)
	if err := t.save(id, NewWriter(bw)); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return errors.Wrap(err, "ebb: flush tree data")
	}
	return nil
}

func (t *Tree) save(id NodeID, w *Writer) error {
	n := t.nodes[id-1]
	if err := w.String(n.typeName); err != nil {
		return err
	}
	if err := w.Uint32(uint32(len(n.children))); err != nil {
		return err
	}
	for _, child := range n.children {
		if err := t.save(child, w); err != nil {
			return err
		}
	}
	for i := range components {
		c := &components[i]
		if c.save == nil || !c.has(n) {
			continue
		}
		if err := c.save(n, w); err != nil {
			return errors.Wrapf(err, "save %s of node %d (%s)", c.name, id, n.typeName)
		}
	}
	return nil
}

// Load reads one node record from r into the existing node id. The record's
// type name must equal id's type name. Children in the record are
// constructed through the registry visible from id and appended after any
// existing children; component data replaces id's own.
//
// On error every child added by this call is disposed. Component data of id
// may already have been overwritten.
//
// If r does not implement io.ByteReader it is buffered and Load may consume
// bytes past the end of the record.
func (t *Tree) Load(id NodeID, r io.Reader) error {
	n := t.Node(id)
	rd := NewReader(r)
	name, err := rd.String(maxTypeName)
	if err != nil {
		return err
	}
	if name != n.typeName {
		return errors.Wrapf(ErrTypeMismatch, "record %q loaded into %q", name, n.typeName)
	}
	before := len(n.children)
	if err := t.loadBody(id, rd); err != nil {
		t.disposeChildrenFrom(id, before)
		return err
	}
	return nil
}

// LoadNode reads one node record from r, constructs it through the
// registry visible from id, and returns it as a new root. The new root
// receives a copy of that registry so its own subtree can be reloaded.
// On error nothing is left in the tree.
func (t *Tree) LoadNode(id NodeID, r io.Reader) (NodeID, error) {
	t.Node(id)
	rd := NewReader(r)
	name, err := rd.String(maxTypeName)
	if err != nil {
		return Nil, err
	}
	n, err := t.Construct(id, name)
	if err != nil {
		return Nil, err
	}
	types := t.effectiveTypes(id)
	root := t.Add(Nil, n)
	t.applyTypes(root, types)
	if err := t.loadBody(root, rd); err != nil {
		t.Dispose(root)
		return Nil, err
	}
	return root, nil
}

// loadBody reads everything that follows a record's type name.
func (t *Tree) loadBody(id NodeID, r *Reader) error {
	count, err := r.Uint32()
	if err != nil {
		return err
	}
	if count > maxChildren {
		return errors.Wrapf(ErrMalformed, "child count %d", count)
	}
	for i := uint32(0); i < count; i++ {
		name, err := r.String(maxTypeName)
		if err != nil {
			return err
		}
		child, err := t.Construct(id, name)
		if err != nil {
			return err
		}
		if err := t.loadBody(t.Add(id, child), r); err != nil {
			return err
		}
	}
	n := t.nodes[id-1]
	for i := range components {
		c := &components[i]
		if c.load == nil || !c.has(n) {
			continue
		}
		if err := c.load(t, n, r); err != nil {
			return errors.Wrapf(err, "load %s of node %d (%s)", c.name, id, n.typeName)
		}
	}
	return nil
}

func (t *Tree) disposeChildrenFrom(id NodeID, index int) {
	n := t.nodes[id-1]
	for len(n.children) > index {
		t.Dispose(n.children[len(n.children)-1])
	}
}

// SaveFile writes the subtree rooted at id to the named file, creating or
// truncating it.
func (t *Tree) SaveFile(id NodeID, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "ebb: create %s", path)
	}
	if err := t.Save(id, f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "ebb: close %s", path)
	}
	return nil
}

// LoadFile loads the named file into id as Load does. Data after the
// record is reported as ErrMalformed.
func (t *Tree) LoadFile(id NodeID, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "ebb: open %s", path)
	}
	defer f.Close()
	br := bufio.NewReader(f)
	before := t.NumChildren(id)
	if err := t.Load(id, br); err != nil {
		return errors.Wrapf(err, "ebb: load %s", path)
	}
	if err := expectEOF(br); err != nil {
		t.disposeChildrenFrom(id, before)
		return errors.Wrapf(err, "ebb: load %s", path)
	}
	return nil
}

// LoadNodeFile loads the named file as a new root as LoadNode does.
func (t *Tree) LoadNodeFile(id NodeID, path string) (NodeID, error) {
	f, err := os.Open(path)
	if err != nil {
		return Nil, errors.Wrapf(err, "ebb: open %s", path)
	}
	defer f.Close()
	br := bufio.NewReader(f)
	root, err := t.LoadNode(id, br)
	if err != nil {
		return Nil, errors.Wrapf(err, "ebb: load %s", path)
	}
	if err := expectEOF(br); err != nil {
		t.Dispose(root)
		return Nil, errors.Wrapf(err, "ebb: load %s", path)
	}
	return root, nil
}

func expectEOF(br *bufio.Reader) error {
	_, err := br.ReadByte()
	switch {
	case err == io.EOF:
		return nil
	case err != nil:
		return errors.Wrap(err, "ebb: read tree data")
	}
	return errors.Wrap(ErrMalformed, "trailing data after root record")
}
