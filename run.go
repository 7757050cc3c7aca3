package ebb

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// RunConfig configures the window created by Run.
type RunConfig struct {
	// Title is the window title. Empty uses the first Window node's title.
	Title string
	// Width and Height are the logical screen size. Zero uses the first
	// Window node's size, then 640x480.
	Width, Height int
	// Camera is the camera whose target is presented each frame. Nil draws
	// nothing to the screen.
	Camera NodeID
	// ShowFPS overlays the current FPS and TPS.
	ShowFPS bool
	// ScreenshotDir receives the captures queued with Tree.Screenshot.
	// Empty means "screenshots".
	ScreenshotDir string
}

// Run opens an Ebitengine window and drives m from the game loop: each
// Ebitengine update runs one Step, each draw presents the configured
// camera's target. Window nodes without a host window are attached to the
// Ebitengine window, so closing it deactivates the root.
//
// Run blocks until the root is deactivated or an error occurs.
func Run(m *NodeTreeManager, cfg RunConfig) error {
	g, err := newGame(m, cfg)
	if err != nil {
		return err
	}
	var win *ebitenWindow
	for _, id := range m.tree.FindAll(m.root, CapWindow) {
		d := m.tree.nodes[id-1].Display
		if d.host != nil {
			continue
		}
		if win == nil {
			win = newEbitenWindow()
		}
		d.Attach(win)
	}
	ebiten.SetWindowTitle(g.cfg.Title)
	ebiten.SetWindowSize(g.cfg.Width, g.cfg.Height)
	m.tree.log.Info("starting game loop",
		zap.String("title", g.cfg.Title),
		zap.Int("width", g.cfg.Width),
		zap.Int("height", g.cfg.Height),
	)
	return ebiten.RunGame(g)
}

// game adapts a NodeTreeManager to ebiten.Game.
type game struct {
	m   *NodeTreeManager
	cfg RunConfig
	fps *fpsOverlay
}

func newGame(m *NodeTreeManager, cfg RunConfig) (*game, error) {
	t := m.tree
	if cfg.Title == "" || cfg.Width <= 0 || cfg.Height <= 0 {
		if w := t.FindAll(m.root, CapWindow); len(w) > 0 {
			d := t.nodes[w[0]-1].Display
			if cfg.Title == "" {
				cfg.Title = d.Title
			}
			if cfg.Width <= 0 || cfg.Height <= 0 {
				cfg.Width, cfg.Height = d.Width, d.Height
			}
		}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = 640, 480
	}
	if cfg.ScreenshotDir == "" {
		cfg.ScreenshotDir = "screenshots"
	}
	if cfg.Camera != Nil {
		if !t.Valid(cfg.Camera) || t.nodes[cfg.Camera-1].Camera == nil {
			return nil, errors.Wrapf(ErrInvalidNode, "camera %d", cfg.Camera)
		}
		if t.nodes[cfg.Camera-1].Target == nil {
			rt, err := t.NewTarget(cfg.Width, cfg.Height)
			if err != nil {
				return nil, err
			}
			if err := t.SetCameraTarget(cfg.Camera, rt); err != nil {
				return nil, err
			}
		}
	}
	g := &game{m: m, cfg: cfg}
	if cfg.ShowFPS {
		g.fps = newFPSOverlay(t.clock)
	}
	return g, nil
}

func (g *game) Update() error {
	err := g.m.Step()
	if errors.Is(err, ErrStopped) {
		return ebiten.Termination
	}
	return err
}

func (g *game) Draw(screen *ebiten.Image) {
	t := g.m.tree
	var rt RenderTarget
	if id := g.cfg.Camera; id != Nil && t.Valid(id) {
		rt = t.nodes[id-1].Target
	}
	if rt != nil && rt.Image() != nil {
		b := screen.Bounds()
		var op ebiten.DrawImageOptions
		op.GeoM.Scale(
			float64(b.Dx())/float64(rt.Width()),
			float64(b.Dy())/float64(rt.Height()),
		)
		screen.DrawImage(rt.Image(), &op)
	}
	if g.fps != nil {
		g.fps.Draw(screen)
	}
	t.flushScreenshots(rt, g.cfg.ScreenshotDir)
}

func (g *game) Layout(_, _ int) (int, int) {
	return g.cfg.Width, g.cfg.Height
}
