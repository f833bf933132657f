package renderer

import (
	"time"

	"github.com/achilleasa/procrt/accel"
)

// StageTimes holds the time spent in each stage of the frame cycle.
type StageTimes struct {
	ChangeScene time.Duration
	UpdateScene time.Duration
	Dispatch    time.Duration
	Present     time.Duration
}

// Get the sum of all stage times.
func (st StageTimes) Total() time.Duration {
	return st.ChangeScene + st.UpdateScene + st.Dispatch + st.Present
}

func (st StageTimes) add(other StageTimes) StageTimes {
	return StageTimes{
		ChangeScene: st.ChangeScene + other.ChangeScene,
		UpdateScene: st.UpdateScene + other.UpdateScene,
		Dispatch:    st.Dispatch + other.Dispatch,
		Present:     st.Present + other.Present,
	}
}

type FrameStats struct {
	// Number of rendered frames.
	Frames int

	// The active preset.
	Scene     int
	SceneName string

	SamplesPerPixel uint32

	SceneChanges int
	Resizes      int

	// Stage times for the last frame and for the whole run.
	Last  StageTimes
	Total StageTimes

	// Acceleration structure build counts.
	Accel accel.Stats
}

// Get the average time per frame.
func (fs FrameStats) AvgFrameTime() time.Duration {
	if fs.Frames == 0 {
		return 0
	}
	return fs.Total.Total() / time.Duration(fs.Frames)
}
