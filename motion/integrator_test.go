package motion

import (
	"testing"
	"time"

	"github.com/achilleasa/procrt/scene"
	"github.com/achilleasa/procrt/types"
	"github.com/chewxy/math32"
)

// A clock that advances by a configurable step on every read.
type stepClock struct {
	now  time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.now = c.now.Add(c.step)
	return c.now
}

func newCamera() *scene.Camera {
	return &scene.Camera{
		LookFrom:        types.XYZ(0, 0, 0),
		LookAt:          types.XYZ(0, 0, 1),
		SamplesPerPixel: 16,
	}
}

func TestMomentumDecay(t *testing.T) {
	cam := newCamera()
	clk := &stepClock{step: 20 * time.Millisecond}
	in := NewIntegrator(cam, clk.Now)

	if req := in.OnKeyDown(KeyW); req != RequestNone {
		t.Fatalf("expected no request; got %d", req)
	}
	if got := in.Momentum(); !got.ApproxEqual(types.XYZ(0, 0, 0.1), 1e-6) {
		t.Fatalf("expected momentum (0, 0, 0.1); got %v", got)
	}

	in.Advance(0)
	expZ := float32(0.1 / 1.1)
	if got := in.Momentum()[2]; math32.Abs(got-expZ) > 1e-6 {
		t.Fatalf("expected damped momentum %f; got %f", expZ, got)
	}
	if got := cam.LookFrom[2]; math32.Abs(got-expZ) > 1e-6 {
		t.Fatalf("expected look-from to move by %f; got %f", expZ, got)
	}
	if got := cam.LookAt[2]; math32.Abs(got-(1+expZ)) > 1e-6 {
		t.Fatalf("expected look-at to move by %f; got %f", expZ, got)
	}

	// The momentum keeps shrinking and eventually snaps to zero.
	prev := in.Momentum()[2]
	for frame := 0; frame < 200; frame++ {
		in.Advance(0)
		cur := in.Momentum()[2]
		if math32.Abs(cur) > math32.Abs(prev) {
			t.Fatalf("frame %d: momentum grew from %f to %f", frame, prev, cur)
		}
		prev = cur
	}
	if prev != 0 {
		t.Fatalf("expected momentum to reach zero; got %f", prev)
	}
	if cam.FrameIndex != 201 {
		t.Fatalf("expected frame index 201; got %d", cam.FrameIndex)
	}
}

func TestStrafe(t *testing.T) {
	cam := newCamera()
	in := NewIntegrator(cam, nil)

	in.OnKeyDown(KeyA)
	// eye (0,0,1) x up (0,1,0) = (-1,0,0)
	if got := in.Momentum(); !got.ApproxEqual(types.XYZ(-0.1, 0, 0), 1e-6) {
		t.Fatalf("expected momentum (-0.1, 0, 0); got %v", got)
	}
	in.OnKeyDown(KeyD)
	in.OnKeyDown(KeyS)
	if got := in.Momentum(); !got.ApproxEqual(types.XYZ(0, 0, -0.1), 1e-6) {
		t.Fatalf("expected momentum (0, 0, -0.1); got %v", got)
	}
}

func TestAdaptiveSampling(t *testing.T) {
	type spec struct {
		frameTime  time.Duration
		initialSpp uint32
		expSpp     uint32
	}

	specs := []spec{
		{35 * time.Millisecond, 16, 8},
		{5 * time.Millisecond, 16, 32},
		{20 * time.Millisecond, 16, 16},
		{35 * time.Millisecond, 1, 1},
	}

	for specIndex, s := range specs {
		cam := newCamera()
		cam.SamplesPerPixel = s.initialSpp
		clk := &stepClock{step: s.frameTime}
		in := NewIntegrator(cam, clk.Now)

		in.OnKeyDown(KeyZ)
		if !in.AutoAdapt() {
			t.Fatalf("[spec %d] expected adaptive sampling to be enabled", specIndex)
		}

		if elapsed := in.Advance(2); elapsed != s.frameTime {
			t.Fatalf("[spec %d] expected elapsed %s; got %s", specIndex, s.frameTime, elapsed)
		}
		if cam.SamplesPerPixel != s.expSpp {
			t.Fatalf("[spec %d] expected spp %d; got %d", specIndex, s.expSpp, cam.SamplesPerPixel)
		}
		if cam.NumLights != 2 {
			t.Fatalf("[spec %d] expected 2 lights; got %d", specIndex, cam.NumLights)
		}
	}
}

func TestAdaptiveSamplingDisabled(t *testing.T) {
	cam := newCamera()
	clk := &stepClock{step: 100 * time.Millisecond}
	in := NewIntegrator(cam, clk.Now)

	in.Advance(0)
	if cam.SamplesPerPixel != 16 {
		t.Fatalf("expected spp to stay at 16; got %d", cam.SamplesPerPixel)
	}
}

func TestSampleKeys(t *testing.T) {
	cam := newCamera()
	clk := &stepClock{step: 5 * time.Millisecond}
	in := NewIntegrator(cam, clk.Now)

	in.OnKeyDown(KeyX)
	if cam.SamplesPerPixel != 32 {
		t.Fatalf("expected spp 32; got %d", cam.SamplesPerPixel)
	}
	for i := 0; i < 10; i++ {
		in.OnKeyDown(KeyC)
	}
	if cam.SamplesPerPixel != 1 {
		t.Fatalf("expected spp to bottom out at 1; got %d", cam.SamplesPerPixel)
	}

	in.OnKeyDown(KeyM)
	if !cam.Stratify {
		t.Fatal("expected stratification to be enabled")
	}

	// Enabling adaptive sampling saves the spp and disabling it restores it.
	cam.SamplesPerPixel = 4
	in.OnKeyDown(KeyZ)
	in.Advance(0)
	in.Advance(0)
	if cam.SamplesPerPixel != 16 {
		t.Fatalf("expected fast frames to raise spp to 16; got %d", cam.SamplesPerPixel)
	}
	in.OnKeyDown(KeyZ)
	if in.AutoAdapt() || cam.SamplesPerPixel != 4 {
		t.Fatalf("expected spp to be restored to 4; got %d", cam.SamplesPerPixel)
	}

	in.OnKeyDown(KeyZ)
	in.OnSceneChange()
	if in.AutoAdapt() {
		t.Fatal("expected scene change to disable adaptive sampling")
	}
}

func TestRequests(t *testing.T) {
	in := NewIntegrator(newCamera(), nil)
	if req := in.OnKeyDown(KeyEscape); req != RequestQuit {
		t.Fatalf("expected quit request; got %d", req)
	}
	if req := in.OnKeyDown(KeySpace); req != RequestSceneChange {
		t.Fatalf("expected scene change request; got %d", req)
	}
	if req := in.OnKeyDown(KeyUnknown); req != RequestNone {
		t.Fatalf("expected no request; got %d", req)
	}
}

func TestPointerMove(t *testing.T) {
	cam := newCamera()
	cam.LookAt = types.XYZ(0, 0, 5)
	in := NewIntegrator(cam, nil)

	in.OnPointerMove(100, 0)
	dir := cam.EyeDir()
	if math32.Abs(dir.Len()-1) > 1e-5 {
		t.Fatalf("expected unit view direction; got length %f", dir.Len())
	}
	if math32.Abs(dir[1]) > 1e-5 {
		t.Fatalf("expected horizontal motion to keep the view level; got %v", dir)
	}
	expAngle := 100 * pointerScale
	if got := dir.AngleTo(types.XYZ(0, 0, 1)); math32.Abs(got-expAngle) > 1e-4 {
		t.Fatalf("expected yaw of %f; got %f", expAngle, got)
	}

	// A quarter turn pitch points the view at a pole; the move is rejected.
	before := cam.LookAt
	in.OnPointerMove(0, 333)
	if cam.LookAt != before {
		t.Fatalf("expected view to stay clamped; look-at moved from %v to %v", before, cam.LookAt)
	}

	// Small pitches are accepted.
	in.OnPointerMove(0, 50)
	if cam.LookAt == before {
		t.Fatal("expected small pitch to move the view")
	}
	if polar := cam.EyeDir().AngleTo(types.XYZ(0, 1, 0)); polar < minPolarAngle || polar > maxPolarAngle {
		t.Fatalf("polar angle %f outside the allowed range", polar)
	}
}
