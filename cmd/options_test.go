package cmd

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/urfave/cli"
)

func testContext(t *testing.T, global, args []string) *cli.Context {
	t.Helper()
	globalSet := flag.NewFlagSet("procrt", flag.ContinueOnError)
	globalSet.String("config", "", "")
	if err := globalSet.Parse(global); err != nil {
		t.Fatal(err)
	}

	set := flag.NewFlagSet("frame", flag.ContinueOnError)
	for _, name := range []string{"width", "height", "scene", "spp", "workers", "max-depth", "frames"} {
		set.Int(name, 0, "")
	}
	set.String("out", "frame.png", "")
	if err := set.Parse(args); err != nil {
		t.Fatal(err)
	}
	app := cli.NewApp()
	return cli.NewContext(app, set, cli.NewContext(app, globalSet, nil))
}

func TestRenderOptionsPrecedence(t *testing.T) {
	config := filepath.Join(t.TempDir(), "procrt.toml")
	doc := "width = 640\nheight = 480\nscene = 8\nframes = 4\n"
	if err := os.WriteFile(config, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	specs := []struct {
		global, args []string
		expW, expH   int
		expScene     int
		expFrames    int
		expSpp       uint32
	}{
		// Defaults only.
		{nil, nil, 1280, 720, 4, 1, 0},
		// Config overrides defaults.
		{[]string{"-config", config}, nil, 640, 480, 8, 4, 0},
		// Flags override the config.
		{[]string{"-config", config}, []string{"-width", "32", "-spp", "2"}, 32, 480, 8, 4, 2},
		// Unset flags keep their zero default out of the options.
		{nil, []string{"-frames", "3"}, 1280, 720, 4, 3, 0},
	}

	for specIndex, spec := range specs {
		opts, err := renderOptions(testContext(t, spec.global, spec.args))
		if err != nil {
			t.Fatalf("[spec %d] %v", specIndex, err)
		}
		if opts.Width != spec.expW || opts.Height != spec.expH || opts.Scene != spec.expScene || opts.Frames != spec.expFrames || opts.SamplesPerPixel != spec.expSpp {
			t.Fatalf("[spec %d] unexpected options %+v", specIndex, opts)
		}
	}
}

func TestRenderOptionsErrors(t *testing.T) {
	config := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(config, []byte("unknown_key = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	specs := []struct {
		global, args []string
	}{
		{[]string{"-config", config}, nil},
		{[]string{"-config", filepath.Join(t.TempDir(), "missing.toml")}, nil},
		{nil, []string{"-scene", "99"}},
		{nil, []string{"-width", "0"}},
		// Negative counts must not wrap around.
		{nil, []string{"-spp", "-1"}},
		{nil, []string{"-spp", "3"}},
	}

	for specIndex, spec := range specs {
		if _, err := renderOptions(testContext(t, spec.global, spec.args)); err == nil {
			t.Fatalf("[spec %d] expected an error", specIndex)
		}
	}
}
