package main

import (
	"os"
	"runtime"

	"github.com/achilleasa/procrt/cmd"
	"github.com/achilleasa/procrt/log"
	"github.com/urfave/cli"
)

func init() {
	// glfw must be driven from the main thread.
	runtime.LockOSThread()
}

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	renderFlags := []cli.Flag{
		cli.IntFlag{
			Name:  "width",
			Value: 1280,
			Usage: "frame width",
		},
		cli.IntFlag{
			Name:  "height",
			Value: 720,
			Usage: "frame height",
		},
		cli.IntFlag{
			Name:  "scene, s",
			Value: 4,
			Usage: "index of the first scene preset",
		},
		cli.IntFlag{
			Name:  "spp",
			Usage: "override the preset samples per pixel",
		},
		cli.IntFlag{
			Name:  "workers",
			Usage: "number of tracing goroutines (defaults to GOMAXPROCS)",
		},
		cli.IntFlag{
			Name:  "max-depth",
			Value: 10,
			Usage: "maximum number of ray bounces",
		},
	}

	app := cli.NewApp()
	app.Name = "procrt"
	app.Usage = "ray trace procedural scenes"
	app.Version = "0.0.1"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
		cli.StringFlag{
			Name:  "config, c",
			Usage: "load render options from a TOML file path or http(s) URL",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "interactive",
			Usage: "render an interactive view of the scene presets",
			Description: `
Open a window and render the scene presets. W/A/S/D move the camera and the
pointer turns it. Space cycles to the next preset, X/C double and halve the
samples per pixel, Z toggles adaptive sampling, M toggles stratified sampling,
Tab toggles the stage timing overlay and Escape quits.`,
			Flags:  renderFlags,
			Action: cmd.RenderInteractive,
		},
		{
			Name:        "frame",
			Usage:       "render frames without a window and save the last one",
			Description: `Render a fixed number of frames of a scene preset and write the last one to a PNG file.`,
			Flags: append([]cli.Flag{
				cli.IntFlag{
					Name:  "frames, n",
					Value: 1,
					Usage: "number of frames to render",
				},
				cli.StringFlag{
					Name:  "out, o",
					Value: "frame.png",
					Usage: "image filename for the rendered frame",
				},
			}, renderFlags...),
			Action: cmd.RenderFrame,
		},
		{
			Name:   "scenes",
			Usage:  "list the scene presets",
			Action: cmd.ListScenes,
			Subcommands: []cli.Command{
				{
					Name:   "list",
					Usage:  "list the scene presets in cycling order",
					Action: cmd.ListScenes,
				},
				{
					Name:      "info",
					Usage:     "display the contents of a scene preset",
					ArgsUsage: "scene_index",
					Action:    cmd.ShowSceneInfo,
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.New("procrt").Error(err)
		os.Exit(1)
	}
}
