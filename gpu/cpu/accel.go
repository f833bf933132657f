package cpu

import (
	"fmt"

	"github.com/achilleasa/procrt/gpu"
	"github.com/achilleasa/procrt/types"
)

const (
	bvhNodeSize = 32

	// Update scratch space needed per instance.
	updateScratchPerInstance = 8
)

type bottomLevel struct {
	device  *Device
	name    string
	address gpu.Address

	// Object space primitive bounds.
	boxes  []gpu.AABB
	bounds [2]types.Vec3

	released bool
}

func (b *bottomLevel) Name() string {
	return b.name
}

func (b *bottomLevel) Address() gpu.Address {
	return b.address
}

func (b *bottomLevel) Release() {
	b.device.mu.Lock()
	defer b.device.mu.Unlock()
	if b.released {
		return
	}
	b.released = true
	delete(b.device.bottomLevel, b.address)
}

// A resolved top-level instance.
type instance struct {
	desc          gpu.InstanceDesc
	objectToWorld types.Mat4
	worldToObject types.Mat4
	blas          *bottomLevel

	// World space bounds.
	bbox   [2]types.Vec3
	center types.Vec3
}

func (in *instance) BBox() [2]types.Vec3 {
	return in.bbox
}

func (in *instance) Center() types.Vec3 {
	return in.center
}

// Recompute the instance transforms and world bounds from its descriptor.
func (in *instance) update(desc gpu.InstanceDesc, blas *bottomLevel) {
	in.desc = desc
	in.blas = blas
	in.objectToWorld = types.Mat4FromAffine3x4(desc.Transform)
	in.worldToObject = in.objectToWorld.InvAffine()

	in.bbox = emptyBBox()
	lo, hi := blas.bounds[0], blas.bounds[1]
	for corner := 0; corner < 8; corner++ {
		p := lo
		if corner&1 != 0 {
			p[0] = hi[0]
		}
		if corner&2 != 0 {
			p[1] = hi[1]
		}
		if corner&4 != 0 {
			p[2] = hi[2]
		}
		wp := in.objectToWorld.TransformPoint(p)
		in.bbox[0] = types.MinVec3(in.bbox[0], wp)
		in.bbox[1] = types.MaxVec3(in.bbox[1], wp)
	}
	in.center = in.bbox[0].Add(in.bbox[1]).Mul(0.5)
}

type topLevel struct {
	device      *Device
	name        string
	address     gpu.Address
	allowUpdate bool

	instances []instance

	// Maps leaf item ranges to instance indices.
	order []int32
	nodes []bvhNode

	// Guarded by the device lock.
	pending  bool
	released bool
}

func (t *topLevel) Name() string {
	return t.name
}

func (t *topLevel) Address() gpu.Address {
	return t.address
}

func (t *topLevel) Release() {
	t.device.mu.Lock()
	t.released = true
	t.device.mu.Unlock()
}

// Build a bottom-level structure over procedural geometry.
func (d *Device) BuildBottomLevel(name string, geometry []gpu.GeometryDesc) (gpu.AccelerationStructure, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, fmt.Errorf("cpu device (%s): %w", d.name, gpu.ErrReleased)
	}

	blas := &bottomLevel{
		device: d,
		name:   name,
		bounds: emptyBBox(),
	}
	for gi, geom := range geometry {
		buf, err := d.ownBuffer(geom.AABBs, "aabb")
		if err != nil {
			return nil, err
		}
		data, err := buf.contents()
		if err != nil {
			return nil, err
		}
		boxes, err := gpu.DecodeAABBs(data, geom.Count)
		if err != nil {
			return nil, fmt.Errorf("cpu device (%s): build %s geometry %d: %w", d.name, name, gi, err)
		}
		for bi, box := range boxes {
			lo, hi := types.Vec3(box.Min), types.Vec3(box.Max)
			if lo[0] > hi[0] || lo[1] > hi[1] || lo[2] > hi[2] {
				return nil, fmt.Errorf("cpu device (%s): build %s: geometry %d aabb %d is inverted", d.name, name, gi, bi)
			}
			blas.bounds[0] = types.MinVec3(blas.bounds[0], lo)
			blas.bounds[1] = types.MaxVec3(blas.bounds[1], hi)
		}
		blas.boxes = append(blas.boxes, boxes...)
	}
	if len(blas.boxes) == 0 {
		return nil, fmt.Errorf("cpu device (%s): build %s: no procedural geometry", d.name, name)
	}

	blas.address = d.reserveAddress(bvhNodeSize * (len(blas.boxes) + 1))
	d.bottomLevel[blas.address] = blas
	d.logger.Debugf("built bottom-level structure %s with %d aabbs at 0x%x", name, len(blas.boxes), blas.address)
	return blas, nil
}

// Query the requirements of a top-level build over n instances.
func (d *Device) TopLevelPrebuildInfo(n int) gpu.PrebuildInfo {
	return gpu.PrebuildInfo{
		ResultSize:        bvhNodeSize*(2*n+1) + gpu.InstanceDescSize*n,
		ScratchSize:       bvhNodeSize * max(n, 1),
		UpdateScratchSize: updateScratchPerInstance * n,
	}
}

// Build or refit a top-level structure.
func (d *Device) BuildTopLevel(name string, inputs gpu.TopLevelInputs) (gpu.AccelerationStructure, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, fmt.Errorf("cpu device (%s): %w", d.name, gpu.ErrReleased)
	}

	descs, err := d.readInstances(inputs)
	if err != nil {
		return nil, fmt.Errorf("cpu device (%s): build %s: %w", d.name, name, err)
	}

	if inputs.Mode == gpu.BuildModeUpdate {
		return d.refitTopLevel(name, inputs, descs)
	}

	tlas := &topLevel{
		device:      d,
		name:        name,
		allowUpdate: inputs.AllowUpdate,
		instances:   make([]instance, len(descs)),
		order:       make([]int32, 0, len(descs)),
	}
	workList := make([]boundedVolume, len(descs))
	index := make(map[boundedVolume]int32, len(descs))
	for i, desc := range descs {
		blas, err := d.resolveBottomLevel(i, desc)
		if err != nil {
			return nil, fmt.Errorf("cpu device (%s): build %s: %w", d.name, name, err)
		}
		tlas.instances[i].update(desc, blas)
		workList[i] = &tlas.instances[i]
		index[workList[i]] = int32(i)
	}

	tlas.nodes = buildBVH(d.logger, workList, 1, func(leaf *bvhNode, items []boundedVolume) {
		leaf.setItems(uint32(len(tlas.order)), uint32(len(items)))
		for _, item := range items {
			tlas.order = append(tlas.order, index[item])
		}
	})
	tlas.address = d.reserveAddress(d.TopLevelPrebuildInfo(len(descs)).ResultSize)
	return tlas, nil
}

func (d *Device) readInstances(inputs gpu.TopLevelInputs) ([]gpu.InstanceDesc, error) {
	if inputs.NumInstances < 0 {
		return nil, fmt.Errorf("invalid instance count %d", inputs.NumInstances)
	}
	if inputs.NumInstances == 0 {
		return nil, nil
	}
	buf, err := d.ownBuffer(inputs.Instances, "instance")
	if err != nil {
		return nil, err
	}
	data, err := buf.contents()
	if err != nil {
		return nil, err
	}
	return gpu.DecodeInstances(data, inputs.NumInstances)
}

func (d *Device) resolveBottomLevel(index int, desc gpu.InstanceDesc) (*bottomLevel, error) {
	blas, ok := d.bottomLevel[desc.BottomLevel]
	if !ok {
		return nil, fmt.Errorf("instance %d references unknown bottom-level structure 0x%x: %w", index, desc.BottomLevel, gpu.ErrForeignHandle)
	}
	return blas, nil
}

// Refit the source structure in place. Must be called with the device lock
// held.
func (d *Device) refitTopLevel(name string, inputs gpu.TopLevelInputs, descs []gpu.InstanceDesc) (gpu.AccelerationStructure, error) {
	src, ok := inputs.Source.(*topLevel)
	switch {
	case !ok || src == nil || src.device != d:
		return nil, fmt.Errorf("cpu device (%s): update %s: source: %w", d.name, name, gpu.ErrForeignHandle)
	case src.released:
		return nil, fmt.Errorf("cpu device (%s): update %s: source: %w", d.name, name, gpu.ErrReleased)
	case src.pending:
		return nil, fmt.Errorf("cpu device (%s): update %s: %w", d.name, name, gpu.ErrBusy)
	case !src.allowUpdate:
		return nil, fmt.Errorf("cpu device (%s): update %s: source was not built with updates enabled: %w", d.name, name, gpu.ErrInvalidUpdate)
	case len(descs) != len(src.instances):
		return nil, fmt.Errorf("cpu device (%s): update %s: instance count changed from %d to %d: %w", d.name, name, len(src.instances), len(descs), gpu.ErrInvalidUpdate)
	}

	scratch, err := d.ownBuffer(inputs.Scratch, "scratch")
	if err != nil {
		return nil, fmt.Errorf("cpu device (%s): update %s: %w", d.name, name, err)
	}
	if need := d.TopLevelPrebuildInfo(len(descs)).UpdateScratchSize; scratch.released || scratch.Size() < need {
		return nil, fmt.Errorf("cpu device (%s): update %s: scratch buffer %s holds %d bytes, need %d: %w", d.name, name, scratch.name, scratch.Size(), need, gpu.ErrInvalidUpdate)
	}

	for i, desc := range descs {
		blas, err := d.resolveBottomLevel(i, desc)
		if err != nil {
			return nil, fmt.Errorf("cpu device (%s): update %s: %w", d.name, name, err)
		}
		src.instances[i].update(desc, blas)
	}

	refitBVH(src.nodes, func(first, count int) [2]types.Vec3 {
		bbox := emptyBBox()
		for _, idx := range src.order[first : first+count] {
			bbox[0] = types.MinVec3(bbox[0], src.instances[idx].bbox[0])
			bbox[1] = types.MaxVec3(bbox[1], src.instances[idx].bbox[1])
		}
		return bbox
	})
	return src, nil
}
