package ebb

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

// fpsOverlay shows the current FPS and TPS in the top-left corner of the
// screen. Its text is redrawn about every half second.
type fpsOverlay struct {
	img   *ebiten.Image
	clock Clock
	last  float32
	drawn bool
}

func newFPSOverlay(clock Clock) *fpsOverlay {
	// 100x32 is enough for "FPS: 60.0\nTPS: 60.0"
	return &fpsOverlay{img: ebiten.NewImage(100, 32), clock: clock}
}

func (o *fpsOverlay) Draw(screen *ebiten.Image) {
	now := o.clock.ElapsedSeconds()
	if !o.drawn || now-o.last >= 0.5 {
		o.last = now
		o.drawn = true
		o.img.Clear()
		// Semi-transparent background for readability
		o.img.Fill(color.RGBA{0, 0, 0, 128})
		ebitenutil.DebugPrint(o.img, fmt.Sprintf("FPS: %.1f\nTPS: %.1f", ebiten.ActualFPS(), ebiten.ActualTPS()))
	}
	screen.DrawImage(o.img, nil)
}
