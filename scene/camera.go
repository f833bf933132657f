package scene

import "github.com/achilleasa/procrt/types"

// Camera holds the view parameters uploaded to the ray generation program
// every frame.
type Camera struct {
	LookFrom   types.Vec3
	LookAt     types.Vec3
	Background types.Vec3

	// Vertical field of view in degrees.
	VFov float32

	FocusDist float32

	// Aperture cone angle in degrees; 0 disables depth of field.
	DefocusAngle float32

	// Incremented once per frame; seeds per-pixel sampling.
	FrameIndex uint32

	SamplesPerPixel uint32
	Stratify        bool

	// Number of entries in the light list.
	NumLights uint32
}

// Get the unnormalized view direction.
func (c *Camera) EyeDir() types.Vec3 {
	return c.LookAt.Sub(c.LookFrom)
}

func defaultCamera(lookFrom, lookAt, background types.Vec3, vfov, focusDist, defocusAngle float32) Camera {
	return Camera{
		LookFrom:        lookFrom,
		LookAt:          lookAt,
		Background:      background,
		VFov:            vfov,
		FocusDist:       focusDist,
		DefocusAngle:    defocusAngle,
		SamplesPerPixel: 16,
	}
}
