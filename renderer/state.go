package renderer

import (
	"fmt"
	"time"

	"github.com/achilleasa/procrt/accel"
	"github.com/achilleasa/procrt/gpu"
	"github.com/achilleasa/procrt/log"
	"github.com/achilleasa/procrt/motion"
	"github.com/achilleasa/procrt/scene"
)

// RenderState owns everything needed to render frames of the active
// preset: the scene catalog, the camera and its integrator, the
// acceleration structures and the device buffers bound to every dispatch.
type RenderState struct {
	logger    log.Logger
	device    gpu.Device
	presenter Presenter

	catalog    *scene.Catalog
	camera     scene.Camera
	integrator *motion.Integrator
	accel      *accel.Builder

	pipeline gpu.Slot[gpu.Pipeline]
	objects  gpu.Slot[gpu.Buffer]
	lights   gpu.Slot[gpu.Buffer]
	cameraCB gpu.Slot[gpu.Buffer]
	output   gpu.Slot[gpu.Surface]

	width, height int

	// Preset overrides.
	samplesPerPixel uint32

	sceneIndex  int
	sceneLoaded bool
	sceneChange bool
	quit        bool

	stats FrameStats
}

// Create a render state for the given device. The first preset is built
// by the first call to Frame.
func NewRenderState(device gpu.Device, presenter Presenter, opts Options) (*RenderState, error) {
	if presenter == nil {
		return nil, ErrNoPresenter
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	s := &RenderState{
		logger:          log.New("renderer"),
		device:          device,
		presenter:       presenter,
		catalog:         scene.NewCatalog(),
		accel:           accel.NewBuilder(device),
		width:           opts.Width,
		height:          opts.Height,
		samplesPerPixel: opts.SamplesPerPixel,
		sceneIndex:      opts.Scene,
		sceneChange:     true,
	}
	s.integrator = motion.NewIntegrator(&s.camera, nil)

	if err := s.init(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *RenderState) init() error {
	hitGroups := make([]gpu.HitGroupDesc, len(scene.HitGroups))
	for i, hg := range scene.HitGroups {
		hitGroups[i] = gpu.HitGroupDesc{
			Name:         hg.Name,
			Intersection: hg.Intersection,
			ClosestHit:   hg.ClosestHit,
		}
	}
	pipeline, err := s.device.CreatePipeline(hitGroups)
	if err != nil {
		return fmt.Errorf("renderer: could not create pipeline: %w", err)
	}
	s.pipeline.Replace(pipeline)

	cameraCB, err := s.device.Allocate("camera", scene.CameraRecordSize, nil)
	if err != nil {
		return fmt.Errorf("renderer: could not allocate camera buffer: %w", err)
	}
	s.cameraCB.Replace(cameraCB)

	surface, err := s.device.CreateSurface(s.width, s.height)
	if err != nil {
		return fmt.Errorf("renderer: could not create output surface: %w", err)
	}
	s.output.Replace(surface)

	s.logger.Infof("using device %q with a %dx%d output", s.device.Name(), s.width, s.height)
	return nil
}

// Release all device resources owned by the render state. The device
// itself is left open.
func (s *RenderState) Close() {
	if err := s.device.Flush(); err != nil {
		s.logger.Warningf("could not flush device: %v", err)
	}
	s.output.Release()
	s.cameraCB.Release()
	s.lights.Release()
	s.objects.Release()
	s.pipeline.Release()
	s.accel.Close()
}

// Get the index of the active preset.
func (s *RenderState) SceneIndex() int {
	return s.sceneIndex
}

// Get the current camera.
func (s *RenderState) Camera() scene.Camera {
	return s.camera
}

// Check whether a quit was requested.
func (s *RenderState) Quit() bool {
	return s.quit
}

// Get render statistics.
func (s *RenderState) Stats() FrameStats {
	stats := s.stats
	stats.Scene = s.sceneIndex
	stats.SceneName = scene.Presets[s.sceneIndex].Name
	stats.SamplesPerPixel = s.camera.SamplesPerPixel
	stats.Accel = s.accel.Stats()
	return stats
}

// Handle an input event.
func (s *RenderState) HandleEvent(ev Event) error {
	switch ev := ev.(type) {
	case KeyDown:
		s.onKeyDown(ev.Key)
	case PointerMove:
		s.integrator.OnPointerMove(ev.DX, ev.DY)
	case Resize:
		return s.onResize(ev.Width, ev.Height)
	case Close:
		s.quit = true
	default:
		return fmt.Errorf("renderer: unsupported event %T", ev)
	}
	return nil
}

func (s *RenderState) onKeyDown(key motion.Key) {
	switch s.integrator.OnKeyDown(key) {
	case motion.RequestQuit:
		s.quit = true
	case motion.RequestSceneChange:
		s.sceneChange = true
	}
}

// Recreate the output surface. Acceleration structures are not touched.
func (s *RenderState) onResize(width, height int) error {
	width, height = max(1, width), max(1, height)
	if width == s.width && height == s.height {
		return nil
	}

	if err := s.device.Flush(); err != nil {
		return fmt.Errorf("renderer: resize: %w", err)
	}
	surface, err := s.device.CreateSurface(width, height)
	if err != nil {
		return fmt.Errorf("renderer: resize: %w", err)
	}
	s.output.Replace(surface)
	s.width, s.height = width, height
	s.stats.Resizes++

	s.logger.Infof("output resized to %dx%d", width, height)
	return nil
}

// Render frames until a quit is requested, draining all pending events
// before each frame.
func (s *RenderState) Run(events EventSource) error {
	for !s.quit {
		for _, ev := range events.PollEvents() {
			if err := s.HandleEvent(ev); err != nil {
				return err
			}
		}
		if s.quit {
			break
		}
		if err := s.Frame(); err != nil {
			return err
		}
	}
	return nil
}

// Render a fixed number of frames without input.
func (s *RenderState) RenderFrames(frames int) error {
	for i := 0; i < frames && !s.quit; i++ {
		if err := s.Frame(); err != nil {
			return err
		}
	}
	return nil
}

// Render one frame.
func (s *RenderState) Frame() error {
	var times StageTimes

	start := time.Now()
	if err := s.MaybeChangeScene(); err != nil {
		return err
	}
	mark := time.Now()
	times.ChangeScene = mark.Sub(start)

	if err := s.UpdateScene(); err != nil {
		return err
	}
	times.UpdateScene = time.Since(mark)
	mark = time.Now()

	if err := s.Dispatch(); err != nil {
		return err
	}
	times.Dispatch = time.Since(mark)
	mark = time.Now()

	if err := s.Present(); err != nil {
		return err
	}
	times.Present = time.Since(mark)

	s.stats.Frames++
	s.stats.Last = times
	s.stats.Total = s.stats.Total.add(times)

	s.logger.Debugf("frame %d: %d ms at %d spp", s.camera.FrameIndex, times.Total().Nanoseconds()/1e6, s.camera.SamplesPerPixel)

	if observer, ok := s.presenter.(frameObserver); ok {
		observer.ObserveFrame(s.Stats())
	}
	return nil
}

// Rebuild the catalog, the acceleration structures and the scene buffers if
// a scene change was requested. The first call loads the initial preset;
// later ones advance to the next preset.
func (s *RenderState) MaybeChangeScene() error {
	if !s.sceneChange {
		return nil
	}

	index := s.sceneIndex
	if s.sceneLoaded {
		index = scene.NextPreset(index)
	}

	if err := s.device.Flush(); err != nil {
		return fmt.Errorf("renderer: scene change: %w", err)
	}
	s.objects.Release()
	s.lights.Release()

	if err := s.catalog.LoadPreset(index); err != nil {
		return err
	}
	if err := s.accel.Rebuild(s.catalog); err != nil {
		return err
	}
	if err := s.uploadScene(); err != nil {
		return fmt.Errorf("renderer: scene change: %w", err)
	}

	s.camera = s.catalog.Camera()
	if s.samplesPerPixel != 0 {
		s.camera.SamplesPerPixel = s.samplesPerPixel
	}
	s.integrator.OnSceneChange()

	s.sceneIndex = index
	s.sceneLoaded = true
	s.sceneChange = false
	s.stats.SceneChanges++

	s.logger.Noticef(
		"scene %d: %s (%d objects, %d lights)",
		index, scene.Presets[index].Name, len(s.catalog.Objects()), len(s.catalog.Lights()),
	)
	return nil
}

func (s *RenderState) uploadScene() error {
	data, err := scene.EncodeObjects(s.catalog.Objects())
	if err != nil {
		return err
	}
	objects, err := s.device.Allocate("objects", max(len(data), scene.ObjectRecordSize), data)
	if err != nil {
		return err
	}
	s.objects.Replace(objects)

	data = scene.EncodeLights(s.catalog.Lights())
	lights, err := s.device.Allocate("lights", len(data), data)
	if err != nil {
		return err
	}
	s.lights.Replace(lights)
	return nil
}

// Advance the camera, upload it and refit the top-level structure.
func (s *RenderState) UpdateScene() error {
	s.integrator.Advance(len(s.catalog.Lights()))

	data, err := scene.EncodeCamera(s.camera)
	if err != nil {
		return fmt.Errorf("renderer: update: %w", err)
	}
	cameraCB := s.cameraCB.Get()
	mapped, err := cameraCB.Map()
	if err != nil {
		return fmt.Errorf("renderer: update: %w", err)
	}
	copy(mapped, data)
	cameraCB.Unmap()

	return s.accel.UpdateScene(s.catalog.Instances())
}

// Trace the output surface and wait for the device to finish.
func (s *RenderState) Dispatch() error {
	bindings := gpu.Bindings{
		TopLevel: s.accel.TopLevel(),
		Objects:  s.objects.Get(),
		Lights:   s.lights.Get(),
		Camera:   s.cameraCB.Get(),
		Output:   s.output.Get(),
	}
	if err := s.device.DispatchRays(s.pipeline.Get(), bindings, s.width, s.height); err != nil {
		return fmt.Errorf("renderer: dispatch: %w", err)
	}
	if err := s.device.Flush(); err != nil {
		return fmt.Errorf("renderer: dispatch: %w", err)
	}
	return nil
}

// Hand the output surface to the presenter.
func (s *RenderState) Present() error {
	surface := s.output.Get()
	if err := s.device.Transition(surface, gpu.StateUnorderedAccess, gpu.StateCopySource); err != nil {
		return fmt.Errorf("renderer: present: %w", err)
	}

	pixels, err := surface.Pixels()
	if err == nil {
		err = s.presenter.Present(surface.Width(), surface.Height(), pixels)
	}

	if terr := s.device.Transition(surface, gpu.StateCopySource, gpu.StateUnorderedAccess); terr != nil && err == nil {
		err = terr
	}
	if err != nil {
		return fmt.Errorf("renderer: present: %w", err)
	}
	return nil
}
