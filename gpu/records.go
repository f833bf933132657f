package gpu

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	// Size of a packed instance descriptor.
	InstanceDescSize = 64

	// Size of a packed AABB record.
	AABBSize = 24

	// Instance IDs and hit-group offsets are 24 bit fields.
	MaxInstanceID = 1<<24 - 1
)

var byteOrder = binary.LittleEndian

// InstanceDesc is the packed top-level instance layout.
type InstanceDesc struct {
	// Row-major 3x4 object to world transform.
	Transform [12]float32

	// Instance ID in the low 24 bits, mask in the high 8 bits.
	IDAndMask uint32

	// Hit-group contribution in the low 24 bits, flags in the high 8 bits.
	HitGroupAndFlags uint32

	// Address of the bottom-level structure this instance references.
	BottomLevel Address
}

// Pack an instance descriptor.
func NewInstanceDesc(transform [12]float32, id uint32, mask uint8, hitGroup uint32, flags uint8, blas Address) InstanceDesc {
	return InstanceDesc{
		Transform:        transform,
		IDAndMask:        id&MaxInstanceID | uint32(mask)<<24,
		HitGroupAndFlags: hitGroup&MaxInstanceID | uint32(flags)<<24,
		BottomLevel:      blas,
	}
}

func (d InstanceDesc) ID() uint32 {
	return d.IDAndMask & MaxInstanceID
}

func (d InstanceDesc) Mask() uint8 {
	return uint8(d.IDAndMask >> 24)
}

func (d InstanceDesc) HitGroup() uint32 {
	return d.HitGroupAndFlags & MaxInstanceID
}

func (d InstanceDesc) Flags() uint8 {
	return uint8(d.HitGroupAndFlags >> 24)
}

// Pack instance descriptors.
func EncodeInstances(instances []InstanceDesc) ([]byte, error) {
	return binary.Append(make([]byte, 0, len(instances)*InstanceDescSize), byteOrder, instances)
}

// Unpack count instance descriptors.
func DecodeInstances(data []byte, count int) ([]InstanceDesc, error) {
	if len(data) < count*InstanceDescSize {
		return nil, fmt.Errorf("gpu: instance data size %d too small for %d instances", len(data), count)
	}
	out := make([]InstanceDesc, count)
	if _, err := binary.Decode(data, byteOrder, out); err != nil {
		return nil, fmt.Errorf("gpu: could not decode instances: %w", err)
	}
	return out, nil
}

// Overwrite the transform of the index-th packed instance descriptor.
func PutInstanceTransform(data []byte, index int, transform [12]float32) {
	off := index * InstanceDescSize
	for i, v := range transform {
		byteOrder.PutUint32(data[off+i*4:], math.Float32bits(v))
	}
}

// AABB is a packed axis aligned bounding box.
type AABB struct {
	Min [3]float32
	Max [3]float32
}

// Pack AABB records.
func EncodeAABBs(boxes []AABB) ([]byte, error) {
	return binary.Append(make([]byte, 0, len(boxes)*AABBSize), byteOrder, boxes)
}

// Unpack count AABB records.
func DecodeAABBs(data []byte, count int) ([]AABB, error) {
	if len(data) < count*AABBSize {
		return nil, fmt.Errorf("gpu: aabb data size %d too small for %d boxes", len(data), count)
	}
	out := make([]AABB, count)
	if _, err := binary.Decode(data, byteOrder, out); err != nil {
		return nil, fmt.Errorf("gpu: could not decode aabbs: %w", err)
	}
	return out, nil
}
