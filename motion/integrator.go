package motion

import (
	"time"

	"github.com/achilleasa/procrt/scene"
	"github.com/achilleasa/procrt/types"
	"github.com/chewxy/math32"
)

const (
	// Momentum components below this magnitude snap to zero.
	dampingThreshold float32 = 1e-4
	dampingDivisor   float32 = 1.1

	// Momentum added per movement key press.
	moveStep float32 = 0.1

	// Pointer delta to radians.
	pointerScale = 0.003 * math32.Pi / 2

	// Allowed angle (radians) between the view direction and the up axis.
	minPolarAngle float32 = 0.17
	maxPolarAngle float32 = 2.96

	slowFrame = 30 * time.Millisecond
	fastFrame = 10 * time.Millisecond
)

var worldUp = types.XYZ(0, 1, 0)

// Key identifies the keyboard keys the integrator reacts to.
type Key uint8

const (
	KeyUnknown Key = iota
	KeyEscape
	KeySpace
	KeyW
	KeyA
	KeyS
	KeyD
	KeyZ
	KeyM
	KeyX
	KeyC
)

// Request is an action the integrator cannot perform itself and hands
// back to the caller.
type Request uint8

const (
	RequestNone Request = iota
	RequestQuit
	RequestSceneChange
)

// Clock returns the current time.
type Clock func() time.Time

// Integrator applies keyboard and pointer input to a camera and advances
// it once per frame.
type Integrator struct {
	camera   *scene.Camera
	momentum types.Vec3

	autoAdapt    bool
	savedSamples uint32

	clock Clock
	last  time.Time
}

// Create an integrator that drives cam. A nil clock defaults to time.Now.
func NewIntegrator(cam *scene.Camera, clock Clock) *Integrator {
	if clock == nil {
		clock = time.Now
	}
	return &Integrator{
		camera: cam,
		clock:  clock,
		last:   clock(),
	}
}

// Get the current camera momentum.
func (in *Integrator) Momentum() types.Vec3 {
	return in.momentum
}

// Check whether adaptive sampling is enabled.
func (in *Integrator) AutoAdapt() bool {
	return in.autoAdapt
}

// Advance the camera by one frame: damp and apply momentum, adapt the
// sample count to the time since the previous call, bump the frame index
// and refresh the light count. Returns the measured frame time.
func (in *Integrator) Advance(numLights int) time.Duration {
	cam := in.camera

	for axis := 0; axis < 3; axis++ {
		if math32.Abs(in.momentum[axis]) < dampingThreshold {
			in.momentum[axis] = 0
		} else {
			in.momentum[axis] /= dampingDivisor
		}
	}
	cam.LookFrom = cam.LookFrom.Add(in.momentum)
	cam.LookAt = cam.LookAt.Add(in.momentum)

	now := in.clock()
	elapsed := now.Sub(in.last)
	in.last = now

	if in.autoAdapt {
		switch {
		case elapsed > slowFrame:
			if cam.SamplesPerPixel > 1 {
				cam.SamplesPerPixel /= 2
			}
		case elapsed < fastFrame:
			cam.SamplesPerPixel *= 2
		}
	}

	cam.FrameIndex++
	cam.NumLights = uint32(numLights)
	return elapsed
}

// Handle a key press.
func (in *Integrator) OnKeyDown(key Key) Request {
	cam := in.camera
	dir := cam.EyeDir().Normalize()

	switch key {
	case KeyEscape:
		return RequestQuit
	case KeySpace:
		return RequestSceneChange
	case KeyW:
		in.momentum = in.momentum.Add(dir.Mul(moveStep))
	case KeyS:
		in.momentum = in.momentum.Sub(dir.Mul(moveStep))
	case KeyA:
		in.momentum = in.momentum.Add(dir.Cross(worldUp).Mul(moveStep))
	case KeyD:
		in.momentum = in.momentum.Sub(dir.Cross(worldUp).Mul(moveStep))
	case KeyZ:
		if !in.autoAdapt {
			in.savedSamples = cam.SamplesPerPixel
		} else {
			cam.SamplesPerPixel = in.savedSamples
		}
		in.autoAdapt = !in.autoAdapt
	case KeyM:
		cam.Stratify = !cam.Stratify
	case KeyX:
		cam.SamplesPerPixel *= 2
	case KeyC:
		if cam.SamplesPerPixel > 1 {
			cam.SamplesPerPixel /= 2
		}
	}
	return RequestNone
}

// Handle a relative pointer motion. Horizontal motion yaws and vertical
// motion pitches the view; pitches that bring the view too close to the
// poles are discarded.
func (in *Integrator) OnPointerMove(dx, dy float32) {
	cam := in.camera
	eyeDir := cam.EyeDir()

	horizontal := dx * pointerScale
	vertical := dy * pointerScale

	right := eyeDir.Cross(worldUp).Normalize()
	up := eyeDir.Cross(right).Normalize()

	pitch := types.HomogRotate3D(right, -vertical)
	yaw := types.HomogRotate3D(up, -horizontal)
	newDir := pitch.Then(yaw).TransformVector(eyeDir).Normalize()

	polar := newDir.AngleTo(worldUp)
	if polar < minPolarAngle || polar > maxPolarAngle {
		return
	}
	cam.LookAt = cam.LookFrom.Add(newDir)
}

// Reset per-scene state after the camera was replaced by a new preset.
func (in *Integrator) OnSceneChange() {
	in.autoAdapt = false
}
