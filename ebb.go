package ebb

import (
	"image/color"

	"github.com/pkg/errors"
)

// Color represents an RGBA color with components in [0, 1]. Not premultiplied.
// Premultiplication occurs when the color is handed to Ebitengine.
type Color struct {
	R, G, B, A float64
}

// ColorBlack is the default camera background.
var ColorBlack = Color{0, 0, 0, 1}

// toRGBA converts an ebb Color to a premultiplied color.RGBA.
func (c Color) toRGBA() color.RGBA {
	return color.RGBA{
		R: uint8(clamp01(c.R*c.A) * 255),
		G: uint8(clamp01(c.G*c.A) * 255),
		B: uint8(clamp01(c.B*c.A) * 255),
		A: uint8(clamp01(c.A) * 255),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// NodeID identifies a node in a Tree. IDs are only meaningful for the Tree
// that issued them.
type NodeID uint32

// Nil is the invalid NodeID. A node whose parent is Nil is a root.
const Nil NodeID = 0

// Kind tags the built-in variant a node was created as. Behavior is not
// selected by Kind but by the components present on the node; Kind is kept
// for inspection and debugging.
type Kind uint8

const (
	KindNode          Kind = iota // plain grouping node
	KindObject                    // node with a Transform
	KindCamera                    // Object with a Camera and render target
	KindRenderTexture             // renderable off-screen image
	KindWindow                    // persisted window description
	KindTween                     // animates the nearest Object ancestor
	KindCustom                    // user type driven by a Behavior
)

var kindNames = [...]string{
	KindNode:          "node",
	KindObject:        "object",
	KindCamera:        "camera",
	KindRenderTexture: "rendertexture",
	KindWindow:        "window",
	KindTween:         "tween",
	KindCustom:        "custom",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Capability is a bitmask of behaviors a node satisfies independent of its
// concrete type. Values can be combined with bitwise OR.
type Capability uint16

const (
	CapTransform  Capability = 1 << iota // carries a local Transform
	CapCamera                            // runs a draw pass on update
	CapRenderable                        // contributes to a camera's draw pass
	CapTarget                            // owns a render target
	CapWindow                            // describes a window
	CapAnimated                          // drives a tween
	CapBehavior                          // has a user Behavior attached
)

// Has reports whether c contains every bit of want. Has(0) is always true.
func (c Capability) Has(want Capability) bool {
	return c&want == want
}

// Errors reported by the engine. Returned errors wrap these sentinels, so
// test them with errors.Is.
var (
	ErrUnknownType   = errors.New("ebb: unknown node type")
	ErrTypeConflict  = errors.New("ebb: conflicting node type registration")
	ErrInvalidType   = errors.New("ebb: invalid node type")
	ErrTypeMismatch  = errors.New("ebb: record type does not match node")
	ErrTruncated     = errors.New("ebb: truncated tree data")
	ErrMalformed     = errors.New("ebb: malformed tree data")
	ErrInvalidTarget = errors.New("ebb: invalid render target")
	ErrNoTransform   = errors.New("ebb: node has no transform")
	ErrBrokenChain   = errors.New("ebb: transform chain interrupted")
	ErrStopped       = errors.New("ebb: node tree stopped")
	ErrInvalidNode   = errors.New("ebb: invalid node handle")
)
