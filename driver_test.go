package ebb

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stopAfter deactivates the root after n of its own updates.
type stopAfter struct {
	n, updates, setups int
}

func (s *stopAfter) Setup(*Tree, NodeID) error {
	s.setups++
	return nil
}

func (s *stopAfter) Update(t *Tree, id NodeID) error {
	s.updates++
	if s.updates == s.n {
		t.SetActive(t.FindRoot(id), false)
	}
	return nil
}

// fakeManager records its calls into a shared journal.
type fakeManager struct {
	name      string
	journal   *[]string
	setupErr  error
	updateErr error
}

func (m *fakeManager) Setup() error {
	*m.journal = append(*m.journal, "setup "+m.name)
	return m.setupErr
}

func (m *fakeManager) Update() error {
	*m.journal = append(*m.journal, "update "+m.name)
	return m.updateErr
}

func TestNewNodeTreeManager(t *testing.T) {
	tr := NewTree()
	m := NewNodeTreeManager(tr, tr.Root())
	if m.Tree() != tr || m.Root() != tr.Root() {
		t.Error("manager should keep its tree and root")
	}
	if m.Frames() != 0 || m.Stopped() {
		t.Error("new manager should have no frames and not be stopped")
	}
	expectPanic(t, "invalid root", func() { NewNodeTreeManager(tr, 99) })
}

func TestRunStopsAfterExactUpdates(t *testing.T) {
	for _, n := range []int{1, 2, 10} {
		tr := NewTree()
		s := &stopAfter{n: n}
		tr.Add(tr.Root(), NewCustom("Stopper", s))
		m := NewNodeTreeManager(tr, tr.Root())

		require.NoError(t, m.Run())
		assert.Equal(t, n, s.updates, "updates")
		assert.Equal(t, 1, s.setups, "setups")
		assert.Equal(t, uint64(n), m.Frames())
		assert.True(t, m.Stopped())
	}
}

func TestSubtreeDriverStops(t *testing.T) {
	for _, n := range []int{1, 4} {
		tr := NewTree()
		win := tr.Add(tr.Root(), NewWindowNode(320, 240, "sub"))
		s := &stopAfter{n: n}
		tr.Add(win, NewCustom("Stopper", s))
		m := NewNodeTreeManager(tr, win)

		require.NoError(t, m.Run())
		assert.Equal(t, n, s.updates, "updates")
		assert.Equal(t, uint64(n), m.Frames())
		assert.True(t, m.Stopped())
		assert.False(t, tr.Active(win))
	}
}

func TestSubtreeDriverStopsOnDispose(t *testing.T) {
	tr := NewTree()
	sub := tr.Add(tr.Root(), NewObject())
	m := NewNodeTreeManager(tr, sub)

	require.NoError(t, m.Step())
	tr.Dispose(sub)
	assert.ErrorIs(t, m.Step(), ErrStopped)
	assert.Equal(t, uint64(1), m.Frames())
}

func TestStepAfterStop(t *testing.T) {
	tr := NewTree()
	s := &stopAfter{n: 1}
	tr.Add(tr.Root(), NewCustom("Stopper", s))
	m := NewNodeTreeManager(tr, tr.Root())

	require.NoError(t, m.Step())
	assert.ErrorIs(t, m.Step(), ErrStopped)

	// Reactivating does not restart a stopped driver.
	tr.SetActive(tr.Root(), true)
	assert.ErrorIs(t, m.Step(), ErrStopped)
	assert.Equal(t, 1, s.updates)
}

func TestInactiveRootNeverUpdates(t *testing.T) {
	tr := NewTree()
	s := &stopAfter{n: 100}
	tr.Add(tr.Root(), NewCustom("Stopper", s))
	tr.SetActive(tr.Root(), false)
	m := NewNodeTreeManager(tr, tr.Root())

	require.NoError(t, m.Run())
	assert.Equal(t, 1, s.setups, "setup still runs once")
	assert.Equal(t, 0, s.updates)
}

func TestDisposedRootStops(t *testing.T) {
	tr := NewTree()
	m := NewNodeTreeManager(tr, tr.Root())
	require.NoError(t, m.Step())
	tr.Dispose(tr.Root())
	assert.ErrorIs(t, m.Step(), ErrStopped)
}

func TestManagersRunBeforeTree(t *testing.T) {
	tr := NewTree()
	var journal []string
	addRecorder(tr, tr.Root(), "node", &journal)
	m := NewNodeTreeManager(tr, tr.Root())
	m.AddManager(&fakeManager{name: "first", journal: &journal})
	m.AddManager(&fakeManager{name: "second", journal: &journal})

	require.NoError(t, m.Step())
	require.NoError(t, m.Step())

	want := []string{
		"setup first", "setup second", "setup node",
		"update first", "update second", "update node",
		"update first", "update second", "update node",
	}
	assert.Equal(t, want, journal)
}

func TestSetupOnlyOnce(t *testing.T) {
	tr := NewTree()
	var journal []string
	addRecorder(tr, tr.Root(), "node", &journal)
	m := NewNodeTreeManager(tr, tr.Root())

	require.NoError(t, m.Setup())
	require.NoError(t, m.Setup())
	require.NoError(t, m.Step())
	assert.Equal(t, []string{"setup node", "update node"}, journal)
}

func TestSetupErrors(t *testing.T) {
	boom := errors.New("boom")

	t.Run("manager", func(t *testing.T) {
		tr := NewTree()
		var journal []string
		m := NewNodeTreeManager(tr, tr.Root())
		m.AddManager(&fakeManager{name: "bad", journal: &journal, setupErr: boom})
		err := m.Run()
		assert.True(t, errors.Is(err, boom))
		assert.Contains(t, err.Error(), "manager setup")
	})

	t.Run("tree", func(t *testing.T) {
		tr := NewTree()
		tr.Add(tr.Root(), NewCustom("Recorder", &recorder{setupErr: boom}))
		m := NewNodeTreeManager(tr, tr.Root())
		err := m.Run()
		assert.True(t, errors.Is(err, boom))
		assert.Contains(t, err.Error(), "tree setup")
	})
}

func TestUpdateErrorStopsRun(t *testing.T) {
	boom := errors.New("boom")
	tr := NewTree()
	var journal []string
	tr.Add(tr.Root(), NewCustom("Recorder", &recorder{name: "bad", journal: &journal, updateErr: boom}))
	m := NewNodeTreeManager(tr, tr.Root())

	err := m.Run()
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, uint64(0), m.Frames())
	assert.Equal(t, []string{"setup bad", "update bad"}, journal)
}

func TestManagerUpdateError(t *testing.T) {
	boom := errors.New("boom")
	tr := NewTree()
	var journal []string
	addRecorder(tr, tr.Root(), "node", &journal)
	m := NewNodeTreeManager(tr, tr.Root())
	m.AddManager(&fakeManager{name: "bad", journal: &journal, updateErr: boom})

	assert.True(t, errors.Is(m.Step(), boom))
	assert.NotContains(t, journal, "update node", "tree is not updated after a manager fails")
}

func TestWindowCloseStopsRun(t *testing.T) {
	tr := NewTree()
	win := tr.Add(tr.Root(), NewWindowNode(320, 240, "test"))
	host := &fakeWindow{openFor: 3}
	tr.Node(win).Display.Attach(host)
	m := NewNodeTreeManager(tr, win)

	require.NoError(t, m.Run())
	assert.Equal(t, 3, host.updates)
	// The closing frame itself completes, the next one stops.
	assert.Equal(t, uint64(4), m.Frames())
	assert.False(t, tr.Active(win))
}
