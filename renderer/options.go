package renderer

import (
	"fmt"
	"io"

	"github.com/achilleasa/procrt/log"
	"github.com/achilleasa/procrt/scene"
	"github.com/pelletier/go-toml/v2"
)

type Options struct {
	// Frame dims.
	Width  int `toml:"width"`
	Height int `toml:"height"`

	// The preset rendered first.
	Scene int `toml:"scene"`

	// Software device tuning.
	Workers  int `toml:"workers"`
	MaxDepth int `toml:"max_depth"`

	// Number of frames rendered by headless runs.
	Frames int `toml:"frames"`

	// Overrides the preset sample count if non-zero; must be a power of two.
	SamplesPerPixel uint32 `toml:"samples_per_pixel"`

	LogLevel string `toml:"log_level"`

	// Image written by headless runs.
	Output string `toml:"output"`
}

// Get the default render options.
func DefaultOptions() Options {
	return Options{
		Width:    1280,
		Height:   720,
		Scene:    scene.InitialPreset,
		MaxDepth: 10,
		Frames:   1,
		Output:   "frame.png",
	}
}

// Overlay the TOML document read from r on top of opts. Unknown keys are
// rejected.
func LoadOptions(r io.Reader, opts *Options) error {
	if err := toml.NewDecoder(r).DisallowUnknownFields().Decode(opts); err != nil {
		return fmt.Errorf("renderer: could not parse options: %w", err)
	}
	return opts.Validate()
}

// Check that the options describe a renderable configuration.
func (o Options) Validate() error {
	switch {
	case o.Width <= 0 || o.Height <= 0:
		return fmt.Errorf("%w: invalid frame size %dx%d", ErrInvalidOptions, o.Width, o.Height)
	case o.Scene < 0 || o.Scene >= len(scene.Presets):
		return fmt.Errorf("%w: scene %d outside [0, %d)", ErrInvalidOptions, o.Scene, len(scene.Presets))
	case o.Workers < 0:
		return fmt.Errorf("%w: negative worker count %d", ErrInvalidOptions, o.Workers)
	case o.MaxDepth < 0:
		return fmt.Errorf("%w: negative max depth %d", ErrInvalidOptions, o.MaxDepth)
	case o.Frames < 0:
		return fmt.Errorf("%w: negative frame count %d", ErrInvalidOptions, o.Frames)
	case o.SamplesPerPixel&(o.SamplesPerPixel-1) != 0:
		return fmt.Errorf("%w: samples per pixel %d is not a power of two", ErrInvalidOptions, o.SamplesPerPixel)
	}
	if _, err := log.ParseLevel(o.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	return nil
}
