package renderer

import (
	"fmt"

	"github.com/achilleasa/procrt/motion"
	"github.com/achilleasa/procrt/types"
	"github.com/go-gl/gl/v2.1/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
)

const (
	// Height in pixels for the stage timing overlay.
	stackedSeriesHeight uint32 = 40

	// Number of frames shown by the stage timing overlay.
	stackedSeriesLen = 256
)

var keyMap = map[glfw.Key]motion.Key{
	glfw.KeyEscape: motion.KeyEscape,
	glfw.KeySpace:  motion.KeySpace,
	glfw.KeyW:      motion.KeyW,
	glfw.KeyA:      motion.KeyA,
	glfw.KeyS:      motion.KeyS,
	glfw.KeyD:      motion.KeyD,
	glfw.KeyZ:      motion.KeyZ,
	glfw.KeyM:      motion.KeyM,
	glfw.KeyX:      motion.KeyX,
	glfw.KeyC:      motion.KeyC,
}

// Overlay colors for the change scene, update, dispatch and present stages.
var stageColors = []types.Vec3{
	{1.0, 0.3, 0.3},
	{0.3, 1.0, 0.3},
	{0.3, 0.5, 1.0},
	{1.0, 1.0, 0.3},
}

// Window is an opengl window that presents frames with vsync and collects
// keyboard, pointer and resize input. It must be created and used from the
// main OS thread.
type Window struct {
	window *glfw.Window

	// opengl handles
	texture      uint32
	texFbo       uint32
	texW, texH   int
	fbW, fbH     int
	pendingInput []Event

	// Pointer position of the previous cursor event.
	lastCursorPos types.Vec2
	haveCursor    bool

	// Display options
	showUI      bool
	stageSeries *stackedSeries
}

// Open a window with a framebuffer of the requested size.
func NewWindow(width, height int, title string) (*Window, error) {
	w := &Window{
		stageSeries: makeStackedSeries(len(stageColors), stackedSeriesLen),
	}
	if err := w.initGL(width, height, title); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

func (w *Window) initGL(width, height int, title string) error {
	var err error
	if err = glfw.Init(); err != nil {
		return fmt.Errorf("failed to initialize glfw: %s", err.Error())
	}

	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ContextVersionMajor, 2)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	w.window, err = glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		return fmt.Errorf("could not create opengl window: %s", err.Error())
	}
	w.window.MakeContextCurrent()

	if err = gl.Init(); err != nil {
		return fmt.Errorf("could not init opengl: %s", err.Error())
	}
	glfw.SwapInterval(1)

	// Setup texture for image data; storage is allocated by the first Present
	gl.GenTextures(1, &w.texture)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, w.texture)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.GenFramebuffers(1, &w.texFbo)

	w.fbW, w.fbH = w.window.GetFramebufferSize()

	// Bind event callbacks
	w.window.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
	if glfw.RawMouseMotionSupported() {
		w.window.SetInputMode(glfw.RawMouseMotion, glfw.True)
	}
	w.window.SetKeyCallback(w.onKeyEvent)
	w.window.SetCursorPosCallback(w.onCursorPosEvent)
	w.window.SetFramebufferSizeCallback(w.onFramebufferSizeEvent)

	return nil
}

// Get the framebuffer size in pixels.
func (w *Window) FramebufferSize() (int, int) {
	return w.fbW, w.fbH
}

// Close the window and terminate glfw.
func (w *Window) Close() {
	if w.window != nil {
		if w.texFbo != 0 {
			gl.DeleteFramebuffers(1, &w.texFbo)
			gl.DeleteTextures(1, &w.texture)
		}
		w.window.Destroy()
		w.window = nil
	}
	glfw.Terminate()
}

// Process pending window events and return the ones received since the
// previous call.
func (w *Window) PollEvents() []Event {
	glfw.PollEvents()
	if w.window.ShouldClose() {
		w.pendingInput = append(w.pendingInput, Close{})
	}
	events := w.pendingInput
	w.pendingInput = nil
	return events
}

// Upload the frame to the window texture, blit it to the back buffer and
// swap.
func (w *Window) Present(width, height int, pixels []byte) error {
	if len(pixels) < width*height*4 {
		return fmt.Errorf("renderer: frame data size %d too small for %dx%d pixels", len(pixels), width, height)
	}

	gl.BindTexture(gl.TEXTURE_2D, w.texture)
	if width != w.texW || height != w.texH {
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(width), int32(height), 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
		gl.BindFramebuffer(gl.READ_FRAMEBUFFER, w.texFbo)
		gl.FramebufferTexture2D(gl.READ_FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, w.texture, 0)
		gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)
		w.texW, w.texH = width, height
	}
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))

	// Frame rows are stored top row first so flip while blitting
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, w.texFbo)
	gl.BlitFramebuffer(0, 0, int32(width), int32(height), 0, int32(w.fbH), int32(w.fbW), 0, gl.COLOR_BUFFER_BIT, gl.LINEAR)
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)

	if w.showUI {
		w.renderUI()
	}

	w.window.SwapBuffers()
	return nil
}

// Record the stage times of a finished frame for the overlay.
func (w *Window) ObserveFrame(stats FrameStats) {
	stages := []float32{
		float32(stats.Last.ChangeScene.Seconds() * 1e3),
		float32(stats.Last.UpdateScene.Seconds() * 1e3),
		float32(stats.Last.Dispatch.Seconds() * 1e3),
		float32(stats.Last.Present.Seconds() * 1e3),
	}
	for seriesIndex, ms := range stages {
		w.stageSeries.Append(seriesIndex, ms)
	}
}

func (w *Window) renderUI() {
	// Setup ortho projection for UI bits
	gl.Disable(gl.DEPTH_TEST)
	gl.MatrixMode(gl.PROJECTION)
	gl.LoadIdentity()
	gl.Ortho(0, float64(w.fbW), float64(w.fbH), 0, -1, 1)
	gl.Viewport(0, 0, int32(w.fbW), int32(w.fbH))
	gl.MatrixMode(gl.MODELVIEW)
	gl.LoadIdentity()

	w.stageSeries.Render(uint32(max(w.fbH, int(stackedSeriesHeight)))-stackedSeriesHeight, stackedSeriesHeight)
}

func (w *Window) onKeyEvent(_ *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if action != glfw.Press && action != glfw.Repeat {
		return
	}

	if key == glfw.KeyTab {
		if action == glfw.Press {
			w.showUI = !w.showUI
			if w.showUI {
				w.stageSeries.Clear()
			}
		}
		return
	}

	mapped, ok := keyMap[key]
	if !ok {
		return
	}
	w.pendingInput = append(w.pendingInput, KeyDown{Key: mapped})
}

func (w *Window) onCursorPosEvent(_ *glfw.Window, xPos, yPos float64) {
	newPos := types.Vec2{float32(xPos), float32(yPos)}
	if !w.haveCursor {
		w.lastCursorPos = newPos
		w.haveCursor = true
		return
	}

	delta := newPos.Sub(w.lastCursorPos)
	w.lastCursorPos = newPos
	if delta[0] == 0 && delta[1] == 0 {
		return
	}
	w.pendingInput = append(w.pendingInput, PointerMove{DX: delta[0], DY: delta[1]})
}

func (w *Window) onFramebufferSizeEvent(_ *glfw.Window, width, height int) {
	w.fbW, w.fbH = width, height
	w.pendingInput = append(w.pendingInput, Resize{Width: width, Height: height})
}

type stackedSeries struct {
	series [][]float32
	colors []types.Vec3
}

func makeStackedSeries(numSeries, histCount int) *stackedSeries {
	s := &stackedSeries{
		series: make([][]float32, numSeries),
		colors: stageColors[:numSeries],
	}

	for sIndex := 0; sIndex < numSeries; sIndex++ {
		s.series[sIndex] = make([]float32, histCount)
	}

	return s
}

// Clear series
func (s *stackedSeries) Clear() {
	histCount := len(s.series[0])
	for sIndex := 0; sIndex < len(s.series); sIndex++ {
		s.series[sIndex] = make([]float32, histCount)
	}
}

// Shift series values and append new value at the end.
func (s *stackedSeries) Append(seriesIndex int, val float32) {
	s.series[seriesIndex] = append(s.series[seriesIndex][1:], val)
}

// Draw the series as stacked columns scaled to the largest column total.
func (s *stackedSeries) Render(rY, rHeight uint32) {
	var peak float32
	for x := 0; x < len(s.series[0]); x++ {
		var sum float32
		for seriesIndex := 0; seriesIndex < len(s.series); seriesIndex++ {
			sum += s.series[seriesIndex][x]
		}
		peak = max(peak, sum)
	}
	if peak == 0 {
		return
	}
	scale := float32(rHeight) / peak

	gl.LineWidth(1.0)
	gl.Begin(gl.LINES)
	for x := 0; x < len(s.series[0]); x++ {
		y := float32(rY + rHeight)
		for seriesIndex := 0; seriesIndex < len(s.series); seriesIndex++ {
			sH := s.series[seriesIndex][x] * scale
			gl.Color3fv(&s.colors[seriesIndex][0])
			gl.Vertex2f(float32(x), y)
			gl.Vertex2f(float32(x), y-sH)
			y -= sH
		}
	}
	gl.End()
	gl.Color3f(1, 1, 1)
}
