package cpu

import (
	"fmt"

	"github.com/achilleasa/procrt/gpu"
)

type buffer struct {
	// Associated Device.
	device *Device

	// A name for identifying the buffer.
	name string

	data    []byte
	address gpu.Address

	// Guarded by the device lock.
	mapped   bool
	pending  bool
	released bool
}

// Get buffer name.
func (b *buffer) Name() string {
	return b.name
}

// Get buffer size.
func (b *buffer) Size() int {
	return len(b.data)
}

// Get buffer address.
func (b *buffer) Address() gpu.Address {
	return b.address
}

// Map buffer contents for host access.
func (b *buffer) Map() ([]byte, error) {
	b.device.mu.Lock()
	defer b.device.mu.Unlock()

	switch {
	case b.released:
		return nil, fmt.Errorf("cpu device (%s): could not map buffer %s: %w", b.device.name, b.name, gpu.ErrReleased)
	case b.pending:
		return nil, fmt.Errorf("cpu device (%s): could not map buffer %s: %w", b.device.name, b.name, gpu.ErrBusy)
	}
	b.mapped = true
	return b.data, nil
}

// Release host mapping.
func (b *buffer) Unmap() {
	b.device.mu.Lock()
	b.mapped = false
	b.device.mu.Unlock()
}

// Release buffer.
func (b *buffer) Release() {
	b.device.mu.Lock()
	b.released = true
	b.device.mu.Unlock()
}

// Get a read-only view of the buffer contents for device-side use. Must be
// called with the device lock held.
func (b *buffer) contents() ([]byte, error) {
	if b.released {
		return nil, fmt.Errorf("cpu device (%s): buffer %s: %w", b.device.name, b.name, gpu.ErrReleased)
	}
	return b.data, nil
}

// Convert a gpu.Buffer into a buffer owned by d.
func (d *Device) ownBuffer(b gpu.Buffer, role string) (*buffer, error) {
	buf, ok := b.(*buffer)
	if !ok || buf == nil || buf.device != d {
		return nil, fmt.Errorf("cpu device (%s): %s buffer: %w", d.name, role, gpu.ErrForeignHandle)
	}
	return buf, nil
}
