package renderer

import "github.com/achilleasa/procrt/motion"

// Event is an input notification delivered to the render loop.
type Event interface {
	isEvent()
}

// KeyDown reports a key press.
type KeyDown struct {
	Key motion.Key
}

// PointerMove reports a relative pointer motion.
type PointerMove struct {
	DX, DY float32
}

// Resize reports a new output size in pixels.
type Resize struct {
	Width, Height int
}

// Close reports that the output window was closed.
type Close struct{}

func (KeyDown) isEvent()     {}
func (PointerMove) isEvent() {}
func (Resize) isEvent()      {}
func (Close) isEvent()       {}

// EventSource returns the events received since the previous call without
// blocking.
type EventSource interface {
	PollEvents() []Event
}

// Presenter displays or stores a finished frame. pixels holds width x
// height RGBA8 values, top row first, and is only valid for the duration
// of the call.
type Presenter interface {
	Present(width, height int, pixels []byte) error
}

// frameObserver is implemented by presenters that display frame statistics.
type frameObserver interface {
	ObserveFrame(stats FrameStats)
}
