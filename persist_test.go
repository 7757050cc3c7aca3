package ebb

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counter is a Persister behavior used to exercise user trailing data.
type counter struct {
	N     uint32
	Label string
}

func (c *counter) Save(w *Writer) error {
	if err := w.Uint32(c.N); err != nil {
		return err
	}
	return w.String(c.Label)
}

func (c *counter) Load(r *Reader) error {
	n, err := r.Uint32()
	if err != nil {
		return err
	}
	label, err := r.String(64)
	if err != nil {
		return err
	}
	c.N, c.Label = n, label
	return nil
}

var counterType = &NodeType{Name: "Counter", New: func() *Node {
	n := NewCustom("Counter", &counter{})
	n.Transform = NewTransform()
	return n
}}

func newPersistTree(t *testing.T) *Tree {
	t.Helper()
	tr := newTestTree(t)
	require.NoError(t, tr.AddType(tr.Root(), counterType))
	return tr
}

// buildScene populates a tree with one node of every built-in type and a
// custom persisted type.
func buildScene(t *testing.T, tr *Tree) {
	t.Helper()
	obj := tr.Add(tr.Root(), NewObject())
	tr.Node(obj).Transform.Translate(mgl32.Vec3{1, 2, 3})
	tr.Node(obj).Transform.Rotate(mgl32.Vec3{0.1, 0.2, 0.3})

	cam := NewCamera(&fakeTarget{w: 64, h: 32}, 0.9, 0.5, 250)
	cam.Camera.Background = Color{0.25, 0.5, 0.75, 1}
	cam.Transform.Translate(mgl32.Vec3{0, 0, 10})
	tr.Add(obj, cam)

	rt, err := NewRenderTextureNode(tr, 16, 8)
	require.NoError(t, err)
	tr.Add(obj, rt)

	tr.Add(obj, NewTweenNode(TweenConfig{
		From:     mgl32.Vec3{0, 0, 0},
		To:       mgl32.Vec3{4, 5, 6},
		Duration: 2.5,
		Ease:     EaseOutBounce,
		Loop:     true,
	}))

	tr.Add(tr.Root(), NewWindowNode(640, 480, "hello ebb"))

	c := counterType.New()
	c.Behavior.(*counter).N = 42
	c.Behavior.(*counter).Label = "answer"
	c.Transform.Scale(mgl32.Vec3{2, 2, 2})
	cid := tr.Add(tr.Root(), c)
	tr.Add(cid, NewNode())
}

// assertSameTree checks structure and every persisted field.
func assertSameTree(t *testing.T, ta *Tree, a NodeID, tb *Tree, b NodeID) {
	t.Helper()
	na, nb := ta.Node(a), tb.Node(b)
	require.Equal(t, na.TypeName(), nb.TypeName())
	assert.Equal(t, na.Kind, nb.Kind, na.TypeName())
	assert.Equal(t, na.Caps(), nb.Caps(), na.TypeName())

	if na.Transform != nil {
		assertMatrix(t, na.TypeName()+" transform", nb.Transform.Matrix, na.Transform.Matrix)
	}
	if na.Camera != nil {
		ca, cb := na.Camera, nb.Camera
		assertNear(t, "FOV", cb.FOV, ca.FOV)
		assertNear(t, "Aspect", cb.Aspect, ca.Aspect)
		assertNear(t, "Near", cb.Near, ca.Near)
		assertNear(t, "Far", cb.Far, ca.Far)
		assert.InDelta(t, ca.Background.R, cb.Background.R, epsilon)
		assert.InDelta(t, ca.Background.G, cb.Background.G, epsilon)
		assert.InDelta(t, ca.Background.B, cb.Background.B, epsilon)
	}
	if na.Target != nil {
		require.NotNil(t, nb.Target, na.TypeName())
		assert.Equal(t, na.Target.Width(), nb.Target.Width())
		assert.Equal(t, na.Target.Height(), nb.Target.Height())
	}
	if na.Display != nil {
		assert.Equal(t, na.Display.Width, nb.Display.Width)
		assert.Equal(t, na.Display.Height, nb.Display.Height)
		assert.Equal(t, na.Display.Title, nb.Display.Title)
	}
	if na.Tween != nil {
		assert.Equal(t, na.Tween.TweenConfig, nb.Tween.TweenConfig)
	}
	if ca, ok := na.Behavior.(*counter); ok {
		assert.Equal(t, ca, nb.Behavior.(*counter))
	}

	require.Equal(t, ta.NumChildren(a), tb.NumChildren(b), na.TypeName())
	for i := 0; i < ta.NumChildren(a); i++ {
		assertSameTree(t, ta, ta.ChildAt(a, i), tb, tb.ChildAt(b, i))
	}
}

func saveBytes(t *testing.T, tr *Tree, id NodeID) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, tr.Save(id, &buf))
	return buf.Bytes()
}

// --- Scenarios ---

func TestSaveEmptyTree(t *testing.T) {
	tr := NewTree()
	got := saveBytes(t, tr, tr.Root())
	want := []byte("Node\x00\x00\x00\x00\x00")
	assert.Equal(t, want, got)
}

func TestLoadEmptyTree(t *testing.T) {
	tr := NewTree()
	require.NoError(t, tr.AddType(tr.Root(), NodeTypeNode))
	require.NoError(t, tr.Load(tr.Root(), bytes.NewReader([]byte("Node\x00\x00\x00\x00\x00"))))
	assert.Equal(t, 0, tr.NumChildren(tr.Root()))
}

func TestRoundTrip(t *testing.T) {
	src := newPersistTree(t)
	buildScene(t, src)
	data := saveBytes(t, src, src.Root())

	dst := newPersistTree(t)
	require.NoError(t, dst.Load(dst.Root(), bytes.NewReader(data)))
	assertSameTree(t, src, src.Root(), dst, dst.Root())

	// Saving the loaded tree reproduces the same bytes.
	assert.Equal(t, data, saveBytes(t, dst, dst.Root()))
}

func TestLoadNodeReturnsNewRoot(t *testing.T) {
	src := newPersistTree(t)
	buildScene(t, src)
	data := saveBytes(t, src, src.Root())

	dst := newPersistTree(t)
	root, err := dst.LoadNode(dst.Root(), bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, Nil, dst.Parent(root))
	assert.Equal(t, 0, dst.NumChildren(dst.Root()), "loading target is untouched")
	assertSameTree(t, src, src.Root(), dst, root)

	// The new root carries the registry it was loaded with.
	_, err = dst.Construct(root, "Counter")
	assert.NoError(t, err)
	require.NoError(t, dst.Load(root, bytes.NewReader(data)))
	assert.Equal(t, 2*src.NumChildren(src.Root()), dst.NumChildren(root), "Load appends children")
}

func TestLoadUnknownType(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.String("Node"))
	require.NoError(t, w.Uint32(1))
	require.NoError(t, w.String("Frobnicator"))
	require.NoError(t, w.Uint32(0))

	tr := newTestTree(t)
	err := tr.Load(tr.Root(), &buf)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownType)
	var ute *UnknownTypeError
	require.True(t, errors.As(err, &ute))
	assert.Equal(t, "Frobnicator", ute.Name)
	assert.Equal(t, 0, tr.NumChildren(tr.Root()))
	assert.Equal(t, 1, tr.Len())
}

func TestLoadNodeUnknownRootType(t *testing.T) {
	tr := newTestTree(t)
	_, err := tr.LoadNode(tr.Root(), strings.NewReader("Frobnicator\x00\x00\x00\x00\x00"))
	assert.ErrorIs(t, err, ErrUnknownType)
	assert.Equal(t, 1, tr.Len())
}

func TestLoadTruncatedNeverSucceeds(t *testing.T) {
	src := newPersistTree(t)
	buildScene(t, src)
	data := saveBytes(t, src, src.Root())

	for n := 0; n < len(data); n++ {
		dst := newPersistTree(t)
		err := dst.Load(dst.Root(), bytes.NewReader(data[:n]))
		if !errors.Is(err, ErrTruncated) {
			t.Fatalf("prefix %d/%d: err = %v, want ErrTruncated", n, len(data), err)
		}
		if dst.NumChildren(dst.Root()) != 0 || dst.Len() != 1 {
			t.Fatalf("prefix %d: partially loaded nodes left behind (%d nodes)", n, dst.Len())
		}

		_, err = dst.LoadNode(dst.Root(), bytes.NewReader(data[:n]))
		if !errors.Is(err, ErrTruncated) {
			t.Fatalf("LoadNode prefix %d: err = %v, want ErrTruncated", n, err)
		}
		if dst.Len() != 1 {
			t.Fatalf("LoadNode prefix %d: %d nodes left", n, dst.Len())
		}
	}
}

func TestLoadKeepsExistingChildrenOnError(t *testing.T) {
	tr := newTestTree(t)
	existing := tr.Add(tr.Root(), NewNode())

	data := []byte("Node\x00\x02\x00\x00\x00Node\x00\x00\x00\x00\x00Nope\x00")
	err := tr.Load(tr.Root(), bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrUnknownType)
	assert.Equal(t, []NodeID{existing}, tr.Children(tr.Root()))
}

func TestLoadTypeMismatch(t *testing.T) {
	src := newTestTree(t)
	obj := src.Add(src.Root(), NewObject())
	data := saveBytes(t, src, obj)

	dst := newTestTree(t)
	err := dst.Load(dst.Root(), bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestLoadIntoObject(t *testing.T) {
	src := newTestTree(t)
	obj := src.Add(src.Root(), NewObject())
	src.Node(obj).Transform.Translate(mgl32.Vec3{7, 8, 9})
	data := saveBytes(t, src, obj)

	dst := newTestTree(t)
	target := dst.Add(dst.Root(), NewObject())
	require.NoError(t, dst.Load(target, bytes.NewReader(data)))
	assertVec3(t, "Position", dst.Node(target).Transform.Position(), mgl32.Vec3{7, 8, 9})
}

func TestLoadMalformed(t *testing.T) {
	le := func(v uint32) string {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], v)
		return string(b[:])
	}
	tests := []struct {
		name string
		data string
		want error
	}{
		{"type name too long", strings.Repeat("N", maxTypeName+1) + "\x00", ErrMalformed},
		{"child count too large", "Node\x00" + le(maxChildren+1), ErrMalformed},
		{"zero-size render texture", "Node\x00" + le(1) + "RenderTexture\x00" + le(0) + le(0) + le(8), ErrInvalidTarget},
		{"bad ease", "Node\x00" + le(1) + "Tween\x00" + le(0) + strings.Repeat("\x00", 28) + "\x09\x00", ErrMalformed},
		{"bad loop flag", "Node\x00" + le(1) + "Tween\x00" + le(0) + strings.Repeat("\x00", 28) + "\x00\x07", ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTestTree(t)
			err := tr.Load(tr.Root(), strings.NewReader(tt.data))
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, 1, tr.Len())
		})
	}
}

func TestProjectionRecomputedAfterLoad(t *testing.T) {
	src := newTestTree(t)
	cam := src.Add(src.Root(), NewCamera(&fakeTarget{w: 30, h: 10}, 1.2, 0.3, 70))
	data := saveBytes(t, src, cam)

	dst := newTestTree(t)
	loaded := dst.Add(dst.Root(), NewCamera(&fakeTarget{w: 1, h: 1}, 0.5, 1, 2))
	c := dst.Node(loaded).Camera
	_ = c.Projection() // prime the cache with the old parameters

	require.NoError(t, dst.Load(loaded, bytes.NewReader(data)))
	assertMatrix(t, "Projection", c.Projection(), mgl32.Perspective(1.2, 3, 0.3, 70))
	assert.Equal(t, 30, dst.Node(loaded).Target.Width())
}

func TestLoadReleasesReplacedTargets(t *testing.T) {
	src := newTestTree(t)
	cam := src.Add(src.Root(), NewCamera(&fakeTarget{w: 30, h: 10}, 1.2, 0.3, 70))
	rtNode, err := NewRenderTextureNode(src, 6, 3)
	require.NoError(t, err)
	tex := src.Add(src.Root(), rtNode)

	dst := newTestTree(t)
	oldCam := &fakeTarget{w: 1, h: 1}
	loadedCam := dst.Add(dst.Root(), NewCamera(oldCam, 0.5, 1, 2))
	require.NoError(t, dst.Load(loadedCam, bytes.NewReader(saveBytes(t, src, cam))))
	assert.Equal(t, 1, oldCam.disposed)
	assert.NotSame(t, oldCam, dst.Node(loadedCam).Target)

	dstTex, err := NewRenderTextureNode(dst, 2, 2)
	require.NoError(t, err)
	oldTex := dstTex.Target.(*fakeTarget)
	loadedTex := dst.Add(dst.Root(), dstTex)
	require.NoError(t, dst.Load(loadedTex, bytes.NewReader(saveBytes(t, src, tex))))
	assert.Equal(t, 1, oldTex.disposed)
	assert.Equal(t, 6, dst.Node(loadedTex).Target.Width())
}

func TestSaveCameraWithoutTarget(t *testing.T) {
	tr := newTestTree(t)
	tr.Add(tr.Root(), NewCamera(nil, 1, 0.1, 10))
	err := tr.Save(tr.Root(), &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrInvalidTarget)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestSaveWriteError(t *testing.T) {
	tr := newTestTree(t)
	buildScene(t, tr)
	assert.Error(t, tr.Save(tr.Root(), failingWriter{}))
}

// --- Files ---

func TestSaveFileLoadFile(t *testing.T) {
	src := newPersistTree(t)
	buildScene(t, src)
	path := filepath.Join(t.TempDir(), "scene.ebb")
	require.NoError(t, src.SaveFile(src.Root(), path))

	dst := newPersistTree(t)
	require.NoError(t, dst.LoadFile(dst.Root(), path))
	assertSameTree(t, src, src.Root(), dst, dst.Root())

	other := newPersistTree(t)
	root, err := other.LoadNodeFile(other.Root(), path)
	require.NoError(t, err)
	assertSameTree(t, src, src.Root(), other, root)
}

func TestLoadFileTrailingData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trailing.ebb")
	require.NoError(t, os.WriteFile(path, []byte("Node\x00\x01\x00\x00\x00Node\x00\x00\x00\x00\x00junk"), 0o644))

	tr := newTestTree(t)
	err := tr.LoadFile(tr.Root(), path)
	assert.ErrorIs(t, err, ErrMalformed)
	assert.Equal(t, 0, tr.NumChildren(tr.Root()))

	_, err = tr.LoadNodeFile(tr.Root(), path)
	assert.ErrorIs(t, err, ErrMalformed)
	assert.Equal(t, 1, tr.Len())
}

func TestLoadFileMissing(t *testing.T) {
	tr := newTestTree(t)
	err := tr.LoadFile(tr.Root(), filepath.Join(t.TempDir(), "missing.ebb"))
	require.Error(t, err)
	assert.True(t, os.IsNotExist(errors.Cause(err)))
}
