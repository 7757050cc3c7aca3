package ebb

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Manager is an auxiliary per-frame system driven alongside the tree, such
// as a renderer or an ECS bridge.
type Manager interface {
	Setup() error
	Update() error
}

// NodeTreeManager drives a tree through its lifetime: setup exactly once,
// then repeated update cycles until the root is deactivated. Each cycle
// updates every manager in registration order and then the tree.
type NodeTreeManager struct {
	tree     *Tree
	root     NodeID
	managers []Manager

	setup   bool
	stopped bool
	frames  uint64
}

// NewNodeTreeManager returns a driver for the tree rooted at root.
func NewNodeTreeManager(t *Tree, root NodeID) *NodeTreeManager {
	t.Node(root)
	return &NodeTreeManager{tree: t, root: root}
}

// Tree returns the driven tree.
func (m *NodeTreeManager) Tree() *Tree {
	return m.tree
}

// Root returns the driven root.
func (m *NodeTreeManager) Root() NodeID {
	return m.root
}

// AddManager appends an auxiliary manager. Managers added after Setup are
// not set up.
func (m *NodeTreeManager) AddManager(mgr Manager) {
	m.managers = append(m.managers, mgr)
}

// Frames returns the number of completed update cycles.
func (m *NodeTreeManager) Frames() uint64 {
	return m.frames
}

// Stopped reports whether the driver has observed an inactive root.
func (m *NodeTreeManager) Stopped() bool {
	return m.stopped
}

// Setup sets up every manager and then the tree. Only the first call does
// any work.
func (m *NodeTreeManager) Setup() error {
	if m.setup {
		return nil
	}
	m.setup = true
	for _, mgr := range m.managers {
		if err := mgr.Setup(); err != nil {
			return errors.Wrap(err, "manager setup")
		}
	}
	if err := m.tree.Setup(m.root); err != nil {
		return errors.Wrap(err, "tree setup")
	}
	m.tree.log.Debug("node tree set up", zap.Int("nodes", m.tree.Len()))
	return nil
}

// Step runs one update cycle, setting up first if needed. Once the tree
// holding the driven node is inactive, or the node is disposed, Step returns
// ErrStopped without updating anything.
func (m *NodeTreeManager) Step() error {
	if err := m.Setup(); err != nil {
		return err
	}
	if m.stopped || !m.tree.Valid(m.root) || !m.tree.Active(m.root) {
		if !m.stopped {
			m.stopped = true
			m.tree.log.Debug("node tree stopped", zap.Uint64("frames", m.frames))
		}
		return ErrStopped
	}

	var stats frameStats
	var t0 time.Time
	if m.tree.debug {
		t0 = time.Now()
	}

	for _, mgr := range m.managers {
		if err := mgr.Update(); err != nil {
			return errors.Wrapf(err, "manager update, frame %d", m.frames)
		}
	}

	if m.tree.debug {
		stats.managers = time.Since(t0)
		t0 = time.Now()
	}

	if err := m.tree.Update(m.root); err != nil {
		return errors.Wrapf(err, "tree update, frame %d", m.frames)
	}
	m.frames++

	if m.tree.debug {
		stats.frame = m.frames
		stats.update = time.Since(t0)
		stats.nodeCount = m.tree.Len()
		m.tree.debugLog(stats)
	}
	return nil
}

// Run sets up and then steps until the root becomes inactive. It returns
// nil on a normal stop and the first error otherwise.
func (m *NodeTreeManager) Run() error {
	for {
		err := m.Step()
		if errors.Is(err, ErrStopped) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
