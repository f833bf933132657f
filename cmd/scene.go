package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/achilleasa/procrt/scene"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// List the scene presets in cycling order.
func ListScenes(ctx *cli.Context) error {
	setupLogging(ctx, "")

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Index", "Name", "Objects", "Lights", "Bounds"})

	cat := scene.NewCatalog()
	for index, preset := range scene.Presets {
		if err := cat.LoadPreset(index); err != nil {
			return err
		}
		initial := ""
		if index == scene.InitialPreset {
			initial = " *"
		}
		table.Append([]string{
			fmt.Sprintf("%2d%s", index, initial),
			preset.Name,
			fmt.Sprint(len(cat.Objects())),
			fmt.Sprint(len(cat.Lights())),
			fmt.Sprint(cat.Bounds()),
		})
	}
	table.SetFooter([]string{"", "", "", "", fmt.Sprintf("%d presets", len(scene.Presets))})

	table.Render()
	logger.Noticef("scene presets (* marks the initial scene)\n%s", buf.String())
	return nil
}

// Display the catalog contents of one preset.
func ShowSceneInfo(ctx *cli.Context) error {
	setupLogging(ctx, "")

	if ctx.NArg() != 1 {
		return errors.New("missing scene index argument")
	}
	index, err := strconv.Atoi(ctx.Args().First())
	if err != nil {
		return fmt.Errorf("invalid scene index %q", ctx.Args().First())
	}

	cat := scene.NewCatalog()
	if err = cat.LoadPreset(index); err != nil {
		return err
	}

	// Display scene info
	logger.Noticef("scene %d (%s):\n%s", index, scene.Presets[index].Name, cat.Stats())
	return nil
}
