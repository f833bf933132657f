package renderer

import (
	"bytes"
	"errors"
	"image/png"
	"strings"
	"testing"

	"github.com/achilleasa/procrt/gpu/cpu"
	"github.com/achilleasa/procrt/motion"
	"github.com/achilleasa/procrt/scene"
)

// scriptedEvents returns one batch of events per poll and a Close event
// once the script is exhausted.
type scriptedEvents struct {
	batches [][]Event
	polls   int
}

func (s *scriptedEvents) PollEvents() []Event {
	s.polls++
	if len(s.batches) == 0 {
		return []Event{Close{}}
	}
	batch := s.batches[0]
	s.batches = s.batches[1:]
	return batch
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Width = 8
	opts.Height = 6
	opts.Scene = 8
	opts.SamplesPerPixel = 1
	return opts
}

func newTestState(t *testing.T, opts Options) (*RenderState, *ImagePresenter) {
	t.Helper()
	dev := cpu.NewDevice(cpu.Options{Workers: 2, MaxDepth: 4})
	t.Cleanup(dev.Close)

	presenter := NewImagePresenter()
	s, err := NewRenderState(dev, presenter, opts)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Close)
	return s, presenter
}

func TestNewRenderStateErrors(t *testing.T) {
	dev := cpu.NewDevice(cpu.Options{Workers: 1})
	defer dev.Close()

	if _, err := NewRenderState(dev, nil, testOptions()); !errors.Is(err, ErrNoPresenter) {
		t.Fatalf("expected ErrNoPresenter; got %v", err)
	}

	opts := testOptions()
	opts.Scene = len(scene.Presets)
	if _, err := NewRenderState(dev, NewImagePresenter(), opts); !errors.Is(err, ErrInvalidOptions) {
		t.Fatalf("expected ErrInvalidOptions; got %v", err)
	}
}

func TestRenderFrames(t *testing.T) {
	s, presenter := newTestState(t, testOptions())

	if err := s.RenderFrames(3); err != nil {
		t.Fatal(err)
	}
	if presenter.Frames() != 3 {
		t.Fatalf("expected 3 presented frames; got %d", presenter.Frames())
	}

	img := presenter.Image()
	if img.Rect.Dx() != 8 || img.Rect.Dy() != 6 {
		t.Fatalf("expected an 8x6 image; got %v", img.Rect)
	}
	lit := false
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0 || img.Pix[i+1] != 0 || img.Pix[i+2] != 0 {
			lit = true
		}
	}
	if !lit {
		t.Fatal("expected a non-empty image")
	}

	stats := s.Stats()
	if stats.Frames != 3 || stats.SceneChanges != 1 || stats.Scene != 8 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if stats.Accel.TopLevelBuilds != 1 || stats.Accel.TopLevelUpdates != 3 {
		t.Fatalf("expected one build and three updates; got %+v", stats.Accel)
	}
	if stats.SamplesPerPixel != 1 {
		t.Fatalf("expected the sample override to apply; got %d spp", stats.SamplesPerPixel)
	}
	if cam := s.Camera(); cam.FrameIndex != 3 || cam.NumLights != uint32(len(s.catalog.Lights())) {
		t.Fatalf("expected the camera to advance once per frame; got frame %d with %d lights", cam.FrameIndex, cam.NumLights)
	}

	var buf bytes.Buffer
	if err := presenter.WritePNG(&buf); err != nil {
		t.Fatal(err)
	}
	decoded, err := png.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.Bounds() != img.Rect {
		t.Fatalf("expected png bounds %v; got %v", img.Rect, decoded.Bounds())
	}
}

func TestResizeRecreatesSurfaceOnly(t *testing.T) {
	s, presenter := newTestState(t, testOptions())
	if err := s.Frame(); err != nil {
		t.Fatal(err)
	}
	before := s.Stats().Accel

	specs := []struct {
		w, h       int
		expW, expH int
	}{
		{4, 2, 4, 2},
		// Minimized windows report a zero size.
		{0, 0, 1, 1},
		{3, 5, 3, 5},
	}

	for specIndex, spec := range specs {
		if err := s.HandleEvent(Resize{Width: spec.w, Height: spec.h}); err != nil {
			t.Fatalf("[spec %d] %v", specIndex, err)
		}
		surface := s.output.Get()
		if surface.Width() != spec.expW || surface.Height() != spec.expH {
			t.Fatalf("[spec %d] expected a %dx%d surface; got %dx%d", specIndex, spec.expW, spec.expH, surface.Width(), surface.Height())
		}
		if err := s.Frame(); err != nil {
			t.Fatalf("[spec %d] %v", specIndex, err)
		}
		if img := presenter.Image(); img.Rect.Dx() != spec.expW || img.Rect.Dy() != spec.expH {
			t.Fatalf("[spec %d] expected a %dx%d frame; got %v", specIndex, spec.expW, spec.expH, img.Rect)
		}
	}

	after := s.Stats()
	if after.Accel.TopLevelBuilds != before.TopLevelBuilds || after.Accel.BottomLevelBuilds != before.BottomLevelBuilds {
		t.Fatalf("expected resizes to leave acceleration structures alone; got %+v, before %+v", after.Accel, before)
	}
	if after.Resizes != len(specs) {
		t.Fatalf("expected %d resizes; got %d", len(specs), after.Resizes)
	}

	// Same size is a no-op.
	surface := s.output.Get()
	if err := s.HandleEvent(Resize{Width: 3, Height: 5}); err != nil {
		t.Fatal(err)
	}
	if s.output.Get() != surface {
		t.Fatal("expected the surface to be kept when the size does not change")
	}
}

func TestSceneChangeRebuilds(t *testing.T) {
	s, _ := newTestState(t, testOptions())
	if err := s.Frame(); err != nil {
		t.Fatal(err)
	}

	if err := s.HandleEvent(KeyDown{Key: motion.KeySpace}); err != nil {
		t.Fatal(err)
	}
	if err := s.Frame(); err != nil {
		t.Fatal(err)
	}
	if s.SceneIndex() != 9 {
		t.Fatalf("expected scene 9; got %d", s.SceneIndex())
	}
	stats := s.Stats()
	if stats.Accel.TopLevelBuilds != 2 || stats.SceneChanges != 2 {
		t.Fatalf("expected a rebuild on scene change; got %+v", stats)
	}

	// Frames without a scene change only update.
	if err := s.Frame(); err != nil {
		t.Fatal(err)
	}
	if builds := s.Stats().Accel.TopLevelBuilds; builds != 2 {
		t.Fatalf("expected no rebuild without a scene change; got %d builds", builds)
	}
	if cam := s.Camera(); cam.FrameIndex != 2 {
		t.Fatalf("expected the preset camera to restart the frame index; got %d", cam.FrameIndex)
	}
}

func TestSceneCycle(t *testing.T) {
	opts := testOptions()
	opts.Scene = 3
	s, _ := newTestState(t, opts)
	if err := s.MaybeChangeScene(); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < len(scene.Presets); i++ {
		if err := s.HandleEvent(KeyDown{Key: motion.KeySpace}); err != nil {
			t.Fatal(err)
		}
		if err := s.MaybeChangeScene(); err != nil {
			t.Fatalf("[change %d] %v", i, err)
		}
	}
	if s.SceneIndex() != 3 {
		t.Fatalf("expected %d scene changes to return to scene 3; got %d", len(scene.Presets), s.SceneIndex())
	}
}

func TestRunUntilQuit(t *testing.T) {
	specs := []struct {
		batches   [][]Event
		expFrames int
	}{
		{
			[][]Event{
				{KeyDown{Key: motion.KeyW}, PointerMove{DX: 4, DY: -2}},
				nil,
				{KeyDown{Key: motion.KeyEscape}},
			},
			2,
		},
		{
			[][]Event{nil, nil, nil},
			3,
		},
		{
			[][]Event{{Close{}}},
			0,
		},
	}

	for specIndex, spec := range specs {
		s, presenter := newTestState(t, testOptions())
		events := &scriptedEvents{batches: spec.batches}
		if err := s.Run(events); err != nil {
			t.Fatalf("[spec %d] %v", specIndex, err)
		}
		if !s.Quit() {
			t.Fatalf("[spec %d] expected quit to be requested", specIndex)
		}
		if presenter.Frames() != spec.expFrames {
			t.Fatalf("[spec %d] expected %d frames; got %d", specIndex, spec.expFrames, presenter.Frames())
		}
	}
}

func TestMovementReachesCamera(t *testing.T) {
	s, _ := newTestState(t, testOptions())
	if err := s.Frame(); err != nil {
		t.Fatal(err)
	}
	start := s.Camera()

	if err := s.HandleEvent(KeyDown{Key: motion.KeyW}); err != nil {
		t.Fatal(err)
	}
	if err := s.Frame(); err != nil {
		t.Fatal(err)
	}
	moved := s.Camera()
	if moved.LookFrom == start.LookFrom {
		t.Fatal("expected the camera to move forward")
	}

	data, err := s.cameraCB.Get().Map()
	if err != nil {
		t.Fatal(err)
	}
	uploaded, err := scene.DecodeCamera(data)
	s.cameraCB.Get().Unmap()
	if err != nil {
		t.Fatal(err)
	}
	if uploaded.LookFrom != moved.LookFrom || uploaded.FrameIndex != moved.FrameIndex {
		t.Fatalf("expected the camera buffer to hold the advanced camera; got %+v", uploaded)
	}
}

func TestLoadOptions(t *testing.T) {
	specs := []struct {
		doc    string
		expErr bool
		check  func(Options) bool
	}{
		{
			"width = 320\nheight = 200\nscene = 9\nsamples_per_pixel = 4\nlog_level = \"debug\"\n",
			false,
			func(o Options) bool {
				return o.Width == 320 && o.Height == 200 && o.Scene == 9 && o.SamplesPerPixel == 4 && o.LogLevel == "debug" && o.MaxDepth == 10
			},
		},
		// Unset keys keep their defaults.
		{
			"frames = 5\n",
			false,
			func(o Options) bool { return o.Frames == 5 && o.Width == 1280 && o.Scene == scene.InitialPreset },
		},
		{"widht = 10\n", true, nil},
		{"width = -1\n", true, nil},
		{"scene = 16\n", true, nil},
		{"log_level = \"loud\"\n", true, nil},
		{"width = \"wide\"\n", true, nil},
		{"samples_per_pixel = 12\n", true, nil},
		{"samples_per_pixel = -4\n", true, nil},
		{
			"samples_per_pixel = 0\n",
			false,
			func(o Options) bool { return o.SamplesPerPixel == 0 },
		},
		{
			"samples_per_pixel = 1\n",
			false,
			func(o Options) bool { return o.SamplesPerPixel == 1 },
		},
	}

	for specIndex, spec := range specs {
		opts := DefaultOptions()
		err := LoadOptions(strings.NewReader(spec.doc), &opts)
		if spec.expErr {
			if err == nil {
				t.Fatalf("[spec %d] expected an error", specIndex)
			}
			continue
		}
		if err != nil {
			t.Fatalf("[spec %d] %v", specIndex, err)
		}
		if !spec.check(opts) {
			t.Fatalf("[spec %d] unexpected options %+v", specIndex, opts)
		}
	}
}
