package ebb

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Screenshot queues a labeled capture of the presented camera's target. Run
// writes it as a PNG into RunConfig.ScreenshotDir after the next draw, with
// a timestamped file name. Safe to call from any hook.
func (t *Tree) Screenshot(label string) {
	t.screenshots = append(t.screenshots, label)
}

// flushScreenshots captures rt once for every queued label. rt may be nil.
// Failures are logged and the queue is emptied either way.
func (t *Tree) flushScreenshots(rt RenderTarget, dir string) {
	if len(t.screenshots) == 0 {
		return
	}
	defer func() { t.screenshots = t.screenshots[:0] }()

	var img *ebiten.Image
	if rt != nil {
		img = rt.Image()
	}
	if img == nil {
		t.log.Warn("screenshot skipped: target has no image", zap.Int("queued", len(t.screenshots)))
		return
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.log.Error("screenshot", zap.String("dir", dir), zap.Error(err))
		return
	}

	b := img.Bounds()
	pixels := make([]byte, 4*b.Dx()*b.Dy())
	img.ReadPixels(pixels)
	shot := unpremultiply(pixels, b.Dx(), b.Dy())

	stamp := time.Now().Format("20060102_150405")
	for _, label := range t.screenshots {
		path := filepath.Join(dir, fmt.Sprintf("%s_%s.png", stamp, sanitizeLabel(label)))
		if err := writePNG(path, shot); err != nil {
			t.log.Error("screenshot", zap.Error(err))
			continue
		}
		t.log.Info("screenshot written", zap.String("path", path))
	}
}

// unpremultiply converts premultiplied RGBA pixels to straight-alpha NRGBA.
func unpremultiply(pixels []byte, w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i+3 < len(pixels) && i+3 < len(img.Pix); i += 4 {
		r, g, b, a := pixels[i], pixels[i+1], pixels[i+2], pixels[i+3]
		if a > 0 && a < 255 {
			r = uint8(min(int(r)*255/int(a), 255))
			g = uint8(min(int(g)*255/int(a), 255))
			b = uint8(min(int(b)*255/int(a), 255))
		}
		img.Pix[i] = r
		img.Pix[i+1] = g
		img.Pix[i+2] = b
		img.Pix[i+3] = a
	}
	return img
}

// writePNG encodes img to a PNG file at path.
func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return errors.Wrapf(err, "encode %s", path)
	}
	return errors.Wrapf(f.Close(), "close %s", path)
}

// sanitizeLabel replaces characters that are unsafe in file names with
// underscores and falls back to "unlabeled" for empty strings.
func sanitizeLabel(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return "unlabeled"
	}
	var b strings.Builder
	b.Grow(len(label))
	for _, r := range label {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
