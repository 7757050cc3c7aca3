package ebb

import (
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a console logger writing to stderr. Debug enables
// debug-level output.
func NewLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if !debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
		cfg.Development = false
	}
	return cfg.Build()
}

// SetLogger replaces the tree's logger. A nil l disables logging.
func (t *Tree) SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	t.log = l
}

// Logger returns the tree's logger.
func (t *Tree) Logger() *zap.Logger {
	return t.log
}

// SetDebugMode enables or disables debug mode. When enabled, tree depth and
// child count warnings are logged on AddChild and the driver logs per-frame
// timing at debug level.
func (t *Tree) SetDebugMode(enabled bool) {
	t.debug = enabled
}

// frameStats holds per-frame timing. Only populated in debug mode.
type frameStats struct {
	frame     uint64
	managers  time.Duration
	update    time.Duration
	nodeCount int
}

func (t *Tree) debugLog(stats frameStats) {
	if !t.debug {
		return
	}
	t.log.Debug("frame",
		zap.Uint64("frame", stats.frame),
		zap.Duration("managers", stats.managers),
		zap.Duration("update", stats.update),
		zap.Duration("total", stats.managers+stats.update),
		zap.Int("nodes", stats.nodeCount),
	)
}

const debugMaxTreeDepth = 32

// debugCheckTreeDepth warns if the depth of id exceeds debugMaxTreeDepth.
func (t *Tree) debugCheckTreeDepth(id NodeID) {
	depth := 0
	for p := id; p != Nil; p = t.nodes[p-1].parent {
		depth++
	}
	if depth > debugMaxTreeDepth {
		t.log.Warn("tree depth exceeds threshold",
			zap.Uint32("node", uint32(id)),
			zap.Int("depth", depth),
			zap.Int("threshold", debugMaxTreeDepth),
		)
	}
}

const debugMaxChildCount = 1000

// debugCheckChildCount warns if id has more than debugMaxChildCount children.
func (t *Tree) debugCheckChildCount(id NodeID) {
	if n := len(t.nodes[id-1].children); n > debugMaxChildCount {
		t.log.Warn("child count exceeds threshold",
			zap.Uint32("node", uint32(id)),
			zap.Int("children", n),
			zap.Int("threshold", debugMaxChildCount),
		)
	}
}

// Dump writes an indented outline of the subtree rooted at id to w, one
// node per line with its handle, type, kind and capabilities.
func (t *Tree) Dump(w io.Writer, id NodeID) error {
	t.Node(id)
	var err error
	depth := make(map[NodeID]int)
	t.Walk(id, func(n NodeID) bool {
		if err != nil {
			return false
		}
		d := 0
		if n != id {
			d = depth[t.nodes[n-1].parent] + 1
		}
		depth[n] = d
		node := t.nodes[n-1]
		_, err = fmt.Fprintf(w, "%s%s #%d [%s] %s\n",
			strings.Repeat("  ", d), node.typeName, n, node.Kind, capNames(node.Caps()))
		return true
	})
	return err
}

var capLabels = [...]struct {
	c    Capability
	name string
}{
	{CapTransform, "transform"},
	{CapCamera, "camera"},
	{CapRenderable, "renderable"},
	{CapTarget, "target"},
	{CapWindow, "window"},
	{CapAnimated, "animated"},
	{CapBehavior, "behavior"},
}

func capNames(c Capability) string {
	var parts []string
	for _, l := range capLabels {
		if c&l.c != 0 {
			parts = append(parts, l.name)
		}
	}
	return strings.Join(parts, ",")
}
