package cmd

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/achilleasa/procrt/gpu/cpu"
	"github.com/achilleasa/procrt/renderer"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// Render frames of the selected preset and save the last one as a PNG.
func RenderFrame(ctx *cli.Context) error {
	opts, err := renderOptions(ctx)
	if err != nil {
		return err
	}
	setupLogging(ctx, opts.LogLevel)

	dev := cpu.NewDevice(cpu.Options{Workers: opts.Workers, MaxDepth: opts.MaxDepth})
	defer dev.Close()

	presenter := renderer.NewImagePresenter()
	r, err := renderer.NewRenderState(dev, presenter, opts)
	if err != nil {
		return err
	}
	defer r.Close()

	if err = r.RenderFrames(max(opts.Frames, 1)); err != nil {
		return err
	}

	f, err := os.Create(opts.Output)
	if err != nil {
		return err
	}
	if err = presenter.WritePNG(f); err != nil {
		f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	logger.Noticef("wrote frame to %s", opts.Output)

	// Display stats
	displayFrameStats(r.Stats())

	return nil
}

// Render the selected preset in a window until it is closed.
func RenderInteractive(ctx *cli.Context) error {
	opts, err := renderOptions(ctx)
	if err != nil {
		return err
	}
	setupLogging(ctx, opts.LogLevel)

	window, err := renderer.NewWindow(opts.Width, opts.Height, "procrt")
	if err != nil {
		return err
	}
	defer window.Close()

	// The framebuffer may be larger than the requested window size
	opts.Width, opts.Height = window.FramebufferSize()

	dev := cpu.NewDevice(cpu.Options{Workers: opts.Workers, MaxDepth: opts.MaxDepth})
	defer dev.Close()

	r, err := renderer.NewRenderState(dev, window, opts)
	if err != nil {
		return err
	}
	defer r.Close()

	if err = r.Run(window); err != nil {
		return err
	}

	displayFrameStats(r.Stats())
	return nil
}

func displayFrameStats(stats renderer.FrameStats) {
	avg := func(d time.Duration) time.Duration {
		if stats.Frames == 0 {
			return 0
		}
		return d / time.Duration(stats.Frames)
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Stage", "Last frame", "Avg per frame", "Total"})
	rows := []struct {
		name        string
		last, total time.Duration
	}{
		{"change scene", stats.Last.ChangeScene, stats.Total.ChangeScene},
		{"update scene", stats.Last.UpdateScene, stats.Total.UpdateScene},
		{"dispatch", stats.Last.Dispatch, stats.Total.Dispatch},
		{"present", stats.Last.Present, stats.Total.Present},
	}
	for _, row := range rows {
		table.Append([]string{
			row.name,
			fmt.Sprintf("%s", row.last),
			fmt.Sprintf("%s", avg(row.total)),
			fmt.Sprintf("%s", row.total),
		})
	}
	table.SetFooter([]string{"TOTAL", fmt.Sprintf("%s", stats.Last.Total()), fmt.Sprintf("%s", stats.AvgFrameTime()), fmt.Sprintf("%s", stats.Total.Total())})

	table.Render()
	logger.Noticef(
		"frame statistics: %d frames of scene %d (%s) at %d spp; %d scene changes, %d resizes; %d bottom-level builds, %d top-level builds, %d top-level updates\n%s",
		stats.Frames, stats.Scene, stats.SceneName, stats.SamplesPerPixel,
		stats.SceneChanges, stats.Resizes,
		stats.Accel.BottomLevelBuilds, stats.Accel.TopLevelBuilds, stats.Accel.TopLevelUpdates,
		buf.String(),
	)
}
