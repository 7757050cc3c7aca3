package ebb

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/pkg/errors"
)

// RenderTarget is an off-screen surface a camera draws into. GPU resources
// are never persisted; a target is rebuilt from its dimensions on load.
type RenderTarget interface {
	// Clear fills the whole target with c.
	Clear(c Color)
	// Image returns the backing image, or nil if the target has none.
	Image() *ebiten.Image
	Width() int
	Height() int
}

// TargetFactory creates a render target of the given size.
type TargetFactory func(w, h int) (RenderTarget, error)

func defaultTargetFactory(w, h int) (RenderTarget, error) {
	return NewRenderTexture(w, h)
}

// SetTargetFactory replaces the factory used to rebuild render targets
// while loading cameras and render textures. A nil f restores the default,
// which allocates Ebitengine images.
func (t *Tree) SetTargetFactory(f TargetFactory) {
	if f == nil {
		f = defaultTargetFactory
	}
	t.newTarget = f
}

// NewTarget creates a render target through the tree's factory.
// Returns ErrInvalidTarget for non-positive dimensions.
func (t *Tree) NewTarget(w, h int) (RenderTarget, error) {
	if w <= 0 || h <= 0 {
		return nil, errors.Wrapf(ErrInvalidTarget, "size %dx%d", w, h)
	}
	rt, err := t.newTarget(w, h)
	if err != nil {
		return nil, errors.Wrapf(err, "create %dx%d render target", w, h)
	}
	if rt == nil {
		return nil, errors.Wrapf(ErrInvalidTarget, "factory returned no %dx%d target", w, h)
	}
	return rt, nil
}

// RenderTexture is an off-screen canvas backed by an *ebiten.Image. It is
// owned by the node or caller that created it and is not pooled.
type RenderTexture struct {
	image *ebiten.Image
	w, h  int
}

// NewRenderTexture creates an off-screen canvas of the given size.
// Returns ErrInvalidTarget for non-positive dimensions.
func NewRenderTexture(w, h int) (*RenderTexture, error) {
	if w <= 0 || h <= 0 {
		return nil, errors.Wrapf(ErrInvalidTarget, "size %dx%d", w, h)
	}
	return &RenderTexture{
		image: ebiten.NewImage(w, h),
		w:     w,
		h:     h,
	}, nil
}

// Image returns the underlying *ebiten.Image for direct manipulation.
func (rt *RenderTexture) Image() *ebiten.Image {
	return rt.image
}

// Width returns the texture width in pixels.
func (rt *RenderTexture) Width() int {
	return rt.w
}

// Height returns the texture height in pixels.
func (rt *RenderTexture) Height() int {
	return rt.h
}

// Clear fills the texture with c.
func (rt *RenderTexture) Clear(c Color) {
	if rt.image == nil {
		return
	}
	if c == (Color{}) {
		rt.image.Clear()
		return
	}
	rt.image.Fill(c.toRGBA())
}

// DrawImage draws src onto this texture using the provided options.
func (rt *RenderTexture) DrawImage(src *ebiten.Image, op *ebiten.DrawImageOptions) {
	if rt.image == nil {
		return
	}
	rt.image.DrawImage(src, op)
}

// Resize deallocates the old image and creates a new one at the given dimensions.
func (rt *RenderTexture) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return errors.Wrapf(ErrInvalidTarget, "size %dx%d", width, height)
	}
	if rt.image != nil {
		rt.image.Deallocate()
	}
	rt.image = ebiten.NewImage(width, height)
	rt.w = width
	rt.h = height
	return nil
}

// Dispose deallocates the underlying image. The RenderTexture should not be
// used after calling Dispose.
func (rt *RenderTexture) Dispose() {
	if rt.image != nil {
		rt.image.Deallocate()
		rt.image = nil
	}
}

// targetDisposer is implemented by targets that hold GPU resources.
type targetDisposer interface {
	Dispose()
}

// replaceTarget installs rt on n and releases the target it replaces.
func replaceTarget(n *Node, rt RenderTarget) {
	if old, ok := n.Target.(targetDisposer); ok && n.Target != rt {
		old.Dispose()
	}
	n.Target = rt
}

// --- RenderTexture node ---

func newRenderTextureNode() *Node {
	return nodeDefaults(&Node{}, "RenderTexture", KindRenderTexture)
}

// NewRenderTextureNode creates a detached renderable node owning a w×h
// target allocated through t's factory. During a camera pass the target is
// composited into the camera's target, scaled to fit.
func NewRenderTextureNode(t *Tree, w, h int) (*Node, error) {
	rt, err := t.NewTarget(w, h)
	if err != nil {
		return nil, err
	}
	n := newRenderTextureNode()
	n.Target = rt
	return n, nil
}

// drawTarget composites src into the destination of ctx.
func drawTarget(src RenderTarget, ctx *RenderContext) {
	if ctx == nil || ctx.Target == nil {
		return
	}
	img, dst := src.Image(), ctx.Target.Image()
	if img == nil || dst == nil || img == dst {
		return
	}
	var op ebiten.DrawImageOptions
	op.GeoM.Scale(
		float64(ctx.Target.Width())/float64(src.Width()),
		float64(ctx.Target.Height())/float64(src.Height()),
	)
	dst.DrawImage(img, &op)
}

// saveTargetSize writes the dimensions a target is rebuilt from.
func saveTargetSize(rt RenderTarget, w *Writer) error {
	if rt == nil {
		return errors.Wrap(ErrInvalidTarget, "node has no render target")
	}
	if err := w.Uint32(uint32(rt.Width())); err != nil {
		return err
	}
	return w.Uint32(uint32(rt.Height()))
}

// loadTarget reads target dimensions and allocates a fresh target.
func loadTarget(t *Tree, r *Reader) (RenderTarget, error) {
	w, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	h, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	if w > 1<<16 || h > 1<<16 {
		return nil, errors.Wrapf(ErrMalformed, "render target size %dx%d", w, h)
	}
	return t.NewTarget(int(w), int(h))
}

var targetComponent = component{
	name: "rendertexture",
	has:  func(n *Node) bool { return n.Kind == KindRenderTexture },
	save: func(n *Node, w *Writer) error {
		return saveTargetSize(n.Target, w)
	},
	load: func(t *Tree, n *Node, r *Reader) error {
		rt, err := loadTarget(t, r)
		if err != nil {
			return err
		}
		replaceTarget(n, rt)
		return nil
	},
}
