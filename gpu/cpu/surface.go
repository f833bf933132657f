package cpu

import (
	"fmt"

	"github.com/achilleasa/procrt/gpu"
)

type surface struct {
	device *Device

	width, height int
	pixels        []byte

	// Guarded by the device lock.
	state    gpu.ResourceState
	pending  bool
	released bool
}

func (s *surface) Width() int {
	return s.width
}

func (s *surface) Height() int {
	return s.height
}

func (s *surface) State() gpu.ResourceState {
	s.device.mu.Lock()
	defer s.device.mu.Unlock()
	return s.state
}

// Get the surface pixels.
func (s *surface) Pixels() ([]byte, error) {
	s.device.mu.Lock()
	defer s.device.mu.Unlock()

	switch {
	case s.released:
		return nil, fmt.Errorf("cpu device (%s): read surface: %w", s.device.name, gpu.ErrReleased)
	case s.pending:
		return nil, fmt.Errorf("cpu device (%s): read surface: %w", s.device.name, gpu.ErrBusy)
	case s.state != gpu.StateCopySource:
		return nil, fmt.Errorf("cpu device (%s): read surface in state %s: %w", s.device.name, s.state, gpu.ErrInvalidState)
	}
	return s.pixels, nil
}

func (s *surface) Release() {
	s.device.mu.Lock()
	s.released = true
	s.device.mu.Unlock()
}
