package ebb

import (
	"io"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the YAML configuration read by scene viewers:
//
//	window:
//	  title: ebb
//	  width: 640
//	  height: 480
//	  show_fps: false
//	scene: scene.ebb
//	screenshot_dir: screenshots
//	debug: false
//	camera:
//	  fov: 45          # degrees
//	  near: 0.1
//	  far: 100
//	  background: [0, 0, 0]
type Config struct {
	Window        WindowConfig `yaml:"window"`
	// Scene is the path of a tree file to load, if any.
	Scene         string       `yaml:"scene"`
	// ScreenshotDir receives captures queued with Tree.Screenshot.
	ScreenshotDir string       `yaml:"screenshot_dir"`

	Debug  bool         `yaml:"debug"`
	Camera CameraConfig `yaml:"camera"`
}

// WindowConfig sizes and titles the host window.
type WindowConfig struct {
	Title   string `yaml:"title"`
	Width   int    `yaml:"width"`
	Height  int    `yaml:"height"`
	ShowFPS bool   `yaml:"show_fps"`
}

// CameraConfig holds the projection of the default camera.
type CameraConfig struct {
	// FOV is the vertical field of view in degrees.
	FOV        float32    `yaml:"fov"`
	Near       float32    `yaml:"near"`
	Far        float32    `yaml:"far"`
	Background [3]float64 `yaml:"background"`
}

// DefaultConfig returns the configuration used for keys a file leaves out.
func DefaultConfig() Config {
	return Config{
		Window:        WindowConfig{Title: "ebb", Width: 640, Height: 480},
		ScreenshotDir: "screenshots",
		Camera: CameraConfig{
			FOV:  mgl32.RadToDeg(defaultFOV),
			Near: defaultNear,
			Far:  defaultFar,
		},
	}
}

// LoadConfig decodes YAML from r over DefaultConfig. Unknown keys are
// rejected. An empty document yields the defaults.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, errors.Wrap(err, "ebb: decode config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case c.Window.Width <= 0 || c.Window.Height <= 0:
		return errors.Errorf("ebb: invalid window size %dx%d", c.Window.Width, c.Window.Height)
	case c.Camera.FOV <= 0 || c.Camera.FOV >= 180:
		return errors.Errorf("ebb: camera fov %g out of range (0, 180)", c.Camera.FOV)
	case c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near:
		return errors.Errorf("ebb: invalid camera clip planes near=%g far=%g", c.Camera.Near, c.Camera.Far)
	}
	return nil
}

// RunConfig returns the settings for Run presenting camera.
func (c Config) RunConfig(camera NodeID) RunConfig {
	return RunConfig{
		Title:         c.Window.Title,
		Width:         c.Window.Width,
		Height:        c.Window.Height,
		Camera:        camera,
		ShowFPS:       c.Window.ShowFPS,
		ScreenshotDir: c.ScreenshotDir,
	}
}

// NewCamera creates a detached camera node with the configured
// perspective, drawing into a window-sized target allocated through t.
func (c Config) NewCamera(t *Tree) (*Node, error) {
	rt, err := t.NewTarget(c.Window.Width, c.Window.Height)
	if err != nil {
		return nil, err
	}
	n := NewCamera(rt, mgl32.DegToRad(c.Camera.FOV), c.Camera.Near, c.Camera.Far)
	bg := c.Camera.Background
	n.Camera.Background = Color{R: bg[0], G: bg[1], B: bg[2], A: 1}
	return n, nil
}
