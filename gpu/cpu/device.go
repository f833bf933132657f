package cpu

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/achilleasa/procrt/gpu"
	"github.com/achilleasa/procrt/log"
)

// Resource addresses are aligned to this boundary.
const addressAlignment = 256

// Options configures the software device.
type Options struct {
	// Number of goroutines that trace rays. Defaults to GOMAXPROCS.
	Workers int

	// Maximum number of bounces per camera ray. Defaults to 10.
	MaxDepth int
}

// Device implements gpu.Device by running the ray tracing programs on the
// host CPU. Builds complete synchronously; ray dispatches run in the
// background until Flush is called.
type Device struct {
	logger log.Logger
	name   string

	workers  int
	maxDepth int

	mu          sync.Mutex
	nextAddress gpu.Address
	bottomLevel map[gpu.Address]*bottomLevel
	pending     *job
	closed      bool
}

// A submitted dispatch and the resources it reads or writes.
type job struct {
	wg       sync.WaitGroup
	buffers  []*buffer
	topLevel *topLevel
	surface  *surface
}

// Create a new software device.
func NewDevice(opts Options) *Device {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = 10
	}

	d := &Device{
		logger:      log.New("cpu device"),
		name:        fmt.Sprintf("cpu (%d workers)", opts.Workers),
		workers:     opts.Workers,
		maxDepth:    opts.MaxDepth,
		nextAddress: addressAlignment,
		bottomLevel: make(map[gpu.Address]*bottomLevel),
	}
	d.logger.Debugf("created device %s, max depth %d", d.name, d.maxDepth)
	return d
}

// Get the device name.
func (d *Device) Name() string {
	return d.name
}

// Reserve an address range of the given size. Must be called with the
// device lock held.
func (d *Device) reserveAddress(size int) gpu.Address {
	addr := d.nextAddress
	span := (max(size, 1) + addressAlignment - 1) / addressAlignment * addressAlignment
	d.nextAddress += gpu.Address(span)
	return addr
}

// Allocate a host visible buffer.
func (d *Device) Allocate(name string, size int, contents []byte) (gpu.Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("cpu device (%s): could not allocate buffer %s of size %d", d.name, name, size)
	}
	if len(contents) > size {
		return nil, fmt.Errorf("cpu device (%s): insufficient buffer space (%d) in %s for copying data of length %d", d.name, size, name, len(contents))
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, fmt.Errorf("cpu device (%s): %w", d.name, gpu.ErrReleased)
	}

	b := &buffer{
		device:  d,
		name:    name,
		data:    make([]byte, size),
		address: d.reserveAddress(size),
	}
	copy(b.data, contents)
	return b, nil
}

// Create an output surface.
func (d *Device) CreateSurface(width, height int) (gpu.Surface, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("cpu device (%s): invalid surface dimensions %dx%d", d.name, width, height)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, fmt.Errorf("cpu device (%s): %w", d.name, gpu.ErrReleased)
	}
	return &surface{
		device: d,
		width:  width,
		height: height,
		state:  gpu.StateUnorderedAccess,
		pixels: make([]byte, width*height*4),
	}, nil
}

// Transition a surface between resource states.
func (d *Device) Transition(s gpu.Surface, before, after gpu.ResourceState) error {
	surf, ok := s.(*surface)
	if !ok || surf.device != d {
		return fmt.Errorf("cpu device (%s): %w", d.name, gpu.ErrForeignHandle)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	switch {
	case surf.released:
		return fmt.Errorf("cpu device (%s): transition: %w", d.name, gpu.ErrReleased)
	case surf.pending:
		return fmt.Errorf("cpu device (%s): transition: %w", d.name, gpu.ErrBusy)
	case surf.state != before:
		return fmt.Errorf("cpu device (%s): transition from %s but surface is in state %s: %w", d.name, before, surf.state, gpu.ErrInvalidState)
	}
	surf.state = after
	return nil
}

// Wait for pending work to complete.
func (d *Device) Flush() error {
	d.mu.Lock()
	j := d.pending
	d.mu.Unlock()
	if j == nil {
		return nil
	}

	j.wg.Wait()

	d.mu.Lock()
	if d.pending == j {
		d.retire(j)
	}
	d.mu.Unlock()
	return nil
}

// Clear the pending flags of a completed job. Must be called with the
// device lock held.
func (d *Device) retire(j *job) {
	for _, b := range j.buffers {
		b.pending = false
	}
	if j.topLevel != nil {
		j.topLevel.pending = false
	}
	if j.surface != nil {
		j.surface.pending = false
	}
	d.pending = nil
}

// Wait for pending work and mark the device as closed.
func (d *Device) Close() {
	_ = d.Flush()

	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.bottomLevel = make(map[gpu.Address]*bottomLevel)
	d.logger.Debugf("closed device %s", d.name)
}
