package cmd

import (
	"fmt"
	"math"

	"github.com/achilleasa/procrt/asset"
	"github.com/achilleasa/procrt/renderer"
	"github.com/urfave/cli"
)

// Build the render options: defaults, then the config file, then any
// explicitly set flags.
func renderOptions(ctx *cli.Context) (renderer.Options, error) {
	opts := renderer.DefaultOptions()

	if path := ctx.GlobalString("config"); path != "" {
		res, err := asset.Open(path)
		if err != nil {
			return opts, err
		}
		err = renderer.LoadOptions(res, &opts)
		res.Close()
		if err != nil {
			return opts, err
		}
	}

	if ctx.IsSet("width") {
		opts.Width = ctx.Int("width")
	}
	if ctx.IsSet("height") {
		opts.Height = ctx.Int("height")
	}
	if ctx.IsSet("scene") {
		opts.Scene = ctx.Int("scene")
	}
	if ctx.IsSet("spp") {
		spp := ctx.Int("spp")
		if spp < 0 || int64(spp) > math.MaxUint32 {
			return opts, fmt.Errorf("%w: samples per pixel %d out of range", renderer.ErrInvalidOptions, spp)
		}
		opts.SamplesPerPixel = uint32(spp)
	}
	if ctx.IsSet("workers") {
		opts.Workers = ctx.Int("workers")
	}
	if ctx.IsSet("max-depth") {
		opts.MaxDepth = ctx.Int("max-depth")
	}
	if ctx.IsSet("frames") {
		opts.Frames = ctx.Int("frames")
	}
	if ctx.IsSet("out") {
		opts.Output = ctx.String("out")
	}

	return opts, opts.Validate()
}
