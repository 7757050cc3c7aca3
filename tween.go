package ebb

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// Ease selects a persisted easing curve.
type Ease uint8

const (
	EaseLinear Ease = iota
	EaseInQuad
	EaseOutQuad
	EaseInOutQuad
	EaseInOutCubic
	EaseOutBounce
)

var easeFuncs = [...]ease.TweenFunc{
	EaseLinear:     ease.Linear,
	EaseInQuad:     ease.InQuad,
	EaseOutQuad:    ease.OutQuad,
	EaseInOutQuad:  ease.InOutQuad,
	EaseInOutCubic: ease.InOutCubic,
	EaseOutBounce:  ease.OutBounce,
}

// Func returns the easing function for e. Unknown values fall back to linear.
func (e Ease) Func() ease.TweenFunc {
	if int(e) < len(easeFuncs) {
		return easeFuncs[e]
	}
	return ease.Linear
}

// TweenConfig describes a translation animation.
type TweenConfig struct {
	From, To mgl32.Vec3
	// Duration in seconds.
	Duration float32
	Ease     Ease
	// Loop restarts the animation from From when it finishes.
	Loop bool
}

// Tween is the tween component of a node. On each update it moves the
// nearest transform-bearing ancestor of its node from From to To, one gween
// tween per axis. Time is read from the tree's Clock.
type Tween struct {
	TweenConfig
	// Done is set once a non-looping tween has reached To.
	Done bool

	axes    [3]*gween.Tween
	last    float32
	started bool
}

// NewTweenNode creates a detached tween node. Attach it below the object it
// should animate.
func NewTweenNode(cfg TweenConfig) *Node {
	n := nodeDefaults(&Node{}, "Tween", KindTween)
	n.Tween = &Tween{TweenConfig: cfg}
	n.Tween.Reset()
	return n
}

// Reset rebuilds the per-axis tweens from the current configuration and
// rewinds the animation.
func (tw *Tween) Reset() {
	fn := tw.Ease.Func()
	for i := range tw.axes {
		tw.axes[i] = gween.New(tw.From[i], tw.To[i], tw.Duration, fn)
	}
	tw.Done = false
	tw.started = false
}

// advance steps every axis by dt seconds and returns the current position.
func (tw *Tween) advance(dt float32) mgl32.Vec3 {
	var pos mgl32.Vec3
	finished := true
	for i, a := range tw.axes {
		v, done := a.Update(dt)
		pos[i] = v
		if !done {
			finished = false
		}
	}
	if finished {
		if tw.Loop {
			for _, a := range tw.axes {
				a.Reset()
			}
		} else {
			tw.Done = true
		}
	}
	return pos
}

var tweenComponent = component{
	name: "tween",
	has:  func(n *Node) bool { return n.Tween != nil },
	setup: func(t *Tree, id NodeID) error {
		t.nodes[id-1].Tween.Reset()
		return nil
	},
	update: func(t *Tree, id NodeID) error {
		tw := t.nodes[id-1].Tween
		if tw.Done {
			return nil
		}
		target := t.nearestTransform(id)
		if target == Nil {
			return errors.Wrapf(ErrNoTransform, "tween %d has no transform-bearing ancestor", id)
		}
		now := t.clock.ElapsedSeconds()
		var dt float32
		if tw.started {
			dt = now - tw.last
		}
		tw.started = true
		tw.last = now
		t.nodes[target-1].Transform.SetTranslation(tw.advance(dt))
		return nil
	},
	save: func(n *Node, w *Writer) error {
		tw := n.Tween
		if err := w.Vec3(tw.From); err != nil {
			return err
		}
		if err := w.Vec3(tw.To); err != nil {
			return err
		}
		if err := w.Float32(tw.Duration); err != nil {
			return err
		}
		if err := w.Uint8(uint8(tw.Ease)); err != nil {
			return err
		}
		var loop uint8
		if tw.Loop {
			loop = 1
		}
		return w.Uint8(loop)
	},
	load: func(_ *Tree, n *Node, r *Reader) error {
		var cfg TweenConfig
		var err error
		if cfg.From, err = r.Vec3(); err != nil {
			return err
		}
		if cfg.To, err = r.Vec3(); err != nil {
			return err
		}
		if cfg.Duration, err = r.Float32(); err != nil {
			return err
		}
		e, err := r.Uint8()
		if err != nil {
			return err
		}
		if int(e) >= len(easeFuncs) {
			return errors.Wrapf(ErrMalformed, "unknown ease %d", e)
		}
		loop, err := r.Uint8()
		if err != nil {
			return err
		}
		if loop > 1 {
			return errors.Wrapf(ErrMalformed, "loop flag %d", loop)
		}
		cfg.Ease = Ease(e)
		cfg.Loop = loop == 1
		n.Tween.TweenConfig = cfg
		n.Tween.Reset()
		return nil
	},
}
