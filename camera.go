package ebb

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Camera defaults, used by NodeTypeCamera and DefaultConfig.
const (
	defaultFOV  = float32(45 * math.Pi / 180)
	defaultNear = float32(0.1)
	defaultFar  = float32(100)
)

// RenderContext is the per-pass state handed to every Renderable. It
// replaces any notion of a process-wide "current camera".
type RenderContext struct {
	View       mgl32.Mat4 // inverse of the camera's world transform
	Projection mgl32.Mat4
	Eye        mgl32.Vec3 // camera world position
	Target     RenderTarget
	Camera     NodeID
}

// Camera is the camera component of a node. The node also carries a
// Transform (its world transform places the eye) and owns its render target.
type Camera struct {
	// FOV is the vertical field of view in radians.
	FOV    float32
	Aspect float32
	Near   float32
	Far    float32
	// Background is the color the target is cleared with each pass.
	Background Color

	projection mgl32.Mat4
	key        [4]float32
	valid      bool
}

// Projection returns the perspective matrix for the current parameters.
// It is recomputed whenever FOV, Aspect, Near or Far have changed since the
// last call.
func (c *Camera) Projection() mgl32.Mat4 {
	key := [4]float32{c.FOV, c.Aspect, c.Near, c.Far}
	if !c.valid || key != c.key {
		c.projection = mgl32.Perspective(c.FOV, c.Aspect, c.Near, c.Far)
		c.key = key
		c.valid = true
	}
	return c.projection
}

// SetPerspective sets every projection parameter at once.
func (c *Camera) SetPerspective(fov, aspect, near, far float32) {
	c.FOV, c.Aspect, c.Near, c.Far = fov, aspect, near, far
}

// NewCamera creates a detached camera node drawing into target. The aspect
// ratio is taken from the target's dimensions.
func NewCamera(target RenderTarget, fov, near, far float32) *Node {
	return newCameraNode(target, fov, near, far)
}

func newCameraNode(target RenderTarget, fov, near, far float32) *Node {
	n := nodeDefaults(&Node{}, "Camera", KindCamera)
	n.Transform = NewTransform()
	n.Camera = &Camera{
		FOV:        fov,
		Aspect:     1,
		Near:       near,
		Far:        far,
		Background: ColorBlack,
	}
	n.Target = target
	if target != nil && target.Height() > 0 {
		n.Camera.Aspect = float32(target.Width()) / float32(target.Height())
	}
	return n
}

// SetCameraTarget replaces the render target of camera node id and updates
// its aspect ratio.
func (t *Tree) SetCameraTarget(id NodeID, target RenderTarget) error {
	n := t.Node(id)
	if n.Camera == nil {
		return errors.Errorf("ebb: node %d is not a camera", id)
	}
	if target == nil || target.Width() <= 0 || target.Height() <= 0 {
		return errors.WithStack(ErrInvalidTarget)
	}
	n.Target = target
	n.Camera.Aspect = float32(target.Width()) / float32(target.Height())
	return nil
}

// RenderPass clears the camera's target and draws every renderable node of
// the camera's tree into it, in depth-first pre-order.
func (t *Tree) RenderPass(id NodeID) error {
	n := t.Node(id)
	if n.Camera == nil {
		return errors.Errorf("ebb: node %d is not a camera", id)
	}
	if n.Target == nil {
		return errors.Wrapf(ErrInvalidTarget, "camera %d has no render target", id)
	}
	n.Target.Clear(n.Camera.Background)

	world, err := t.WorldTransform(id)
	if err != nil {
		if !errors.Is(err, ErrBrokenChain) {
			return err
		}
		t.log.Warn("camera transform chain broken",
			zap.Uint32("camera", uint32(id)),
			zap.Error(err),
		)
	}

	ctx := &RenderContext{
		View:       world.Matrix.Inv(),
		Projection: n.Camera.Projection(),
		Eye:        world.Position(),
		Target:     n.Target,
		Camera:     id,
	}
	for _, r := range t.FindAll(t.FindRoot(id), CapRenderable) {
		t.draw(r, ctx)
	}
	return nil
}

var cameraComponent = component{
	name: "camera",
	has:  func(n *Node) bool { return n.Camera != nil },
	update: func(t *Tree, id NodeID) error {
		return t.RenderPass(id)
	},
	save: func(n *Node, w *Writer) error {
		c := n.Camera
		for _, v := range [...]float32{c.FOV, c.Aspect, c.Near, c.Far} {
			if err := w.Float32(v); err != nil {
				return err
			}
		}
		bg := mgl32.Vec3{float32(c.Background.R), float32(c.Background.G), float32(c.Background.B)}
		if err := w.Vec3(bg); err != nil {
			return err
		}
		return saveTargetSize(n.Target, w)
	},
	load: func(t *Tree, n *Node, r *Reader) error {
		var p [4]float32
		for i := range p {
			v, err := r.Float32()
			if err != nil {
				return err
			}
			p[i] = v
		}
		bg, err := r.Vec3()
		if err != nil {
			return err
		}
		rt, err := loadTarget(t, r)
		if err != nil {
			return err
		}
		c := n.Camera
		c.SetPerspective(p[0], p[1], p[2], p[3])
		c.Background = Color{R: float64(bg[0]), G: float64(bg[1]), B: float64(bg[2]), A: 1}
		c.valid = false
		replaceTarget(n, rt)
		return nil
	},
}
