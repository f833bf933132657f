package accel

import (
	"errors"
	"fmt"
	"time"

	"github.com/achilleasa/procrt/gpu"
	"github.com/achilleasa/procrt/log"
	"github.com/achilleasa/procrt/scene"
)

const (
	// Instance mask; every instance is visible to every ray.
	instanceMask = 1

	// Some drivers reject zero-sized update scratch buffers.
	minScratchSize = 8
)

var (
	ErrTopologyChanged = errors.New("accel: instance count or shape references changed")
	ErrNotBuilt        = errors.New("accel: acceleration structures have not been built")
)

// Stats counts the builds issued by a Builder.
type Stats struct {
	BottomLevelBuilds int
	TopLevelBuilds    int
	TopLevelUpdates   int
}

// Builder owns the bottom and top-level acceleration structures of the
// current scene.
type Builder struct {
	logger log.Logger
	device gpu.Device

	// AABB buffers are uploaded once per bound and survive rebuilds.
	aabbs       [scene.NumBounds]gpu.Slot[gpu.Buffer]
	bottomLevel [scene.NumBounds]gpu.Slot[gpu.AccelerationStructure]

	instances gpu.Slot[gpu.Buffer]
	scratch   gpu.Slot[gpu.Buffer]
	topLevel  gpu.Slot[gpu.AccelerationStructure]

	// The bound referenced by each instance of the last rebuild.
	bounds []scene.Bound

	stats Stats
}

// Create a new builder for the given device.
func NewBuilder(device gpu.Device) *Builder {
	return &Builder{
		logger: log.New("accel"),
		device: device,
	}
}

// Get the current top-level structure.
func (b *Builder) TopLevel() gpu.AccelerationStructure {
	return b.topLevel.Get()
}

// Get build statistics.
func (b *Builder) Stats() Stats {
	return b.stats
}

// Release all held structures and buffers.
func (b *Builder) Close() {
	b.releaseScene()
	for i := range b.aabbs {
		b.aabbs[i].Release()
	}
}

func (b *Builder) releaseScene() {
	b.topLevel.Release()
	b.scratch.Release()
	b.instances.Release()
	for i := range b.bottomLevel {
		b.bottomLevel[i].Release()
	}
	b.bounds = nil
}

// Release everything built for the previous scene and build the structures
// for cat. Waits for the device to finish before returning.
func (b *Builder) Rebuild(cat *scene.Catalog) error {
	start := time.Now()

	// Pending dispatches may still read the structures we are about to release.
	if err := b.device.Flush(); err != nil {
		return fmt.Errorf("accel: rebuild: %w", err)
	}
	b.releaseScene()

	if err := b.rebuild(cat); err != nil {
		b.releaseScene()
		return fmt.Errorf("accel: rebuild: %w", err)
	}

	b.logger.Infof(
		"built acceleration structures for %d instances over %d bounds in %d ms",
		len(b.bounds), len(cat.Bounds()), time.Since(start).Nanoseconds()/1e6,
	)
	return nil
}

func (b *Builder) rebuild(cat *scene.Catalog) error {
	for _, bound := range cat.Bounds() {
		if err := b.buildBottomLevel(bound); err != nil {
			return err
		}
	}

	instances := cat.Instances()
	descs := make([]gpu.InstanceDesc, len(instances))
	bounds := make([]scene.Bound, len(instances))
	for i, inst := range instances {
		bound := inst.Shape.Bound()
		if !b.bottomLevel[bound].Valid() {
			return fmt.Errorf("instance %d references %s without a bottom-level structure", i, bound)
		}
		descs[i] = gpu.NewInstanceDesc(
			inst.Transform.Affine3x4(),
			inst.ID,
			instanceMask,
			inst.HitGroup,
			0,
			b.bottomLevel[bound].Get().Address(),
		)
		bounds[i] = bound
	}

	data, err := gpu.EncodeInstances(descs)
	if err != nil {
		return err
	}
	instBuf, err := b.device.Allocate("instances", max(len(data), gpu.InstanceDescSize), data)
	if err != nil {
		return err
	}
	b.instances.Replace(instBuf)

	info := b.device.TopLevelPrebuildInfo(len(descs))
	scratch, err := b.device.Allocate("tlas update scratch", max(info.UpdateScratchSize, minScratchSize), nil)
	if err != nil {
		return err
	}
	b.scratch.Replace(scratch)

	tlas, err := b.device.BuildTopLevel("tlas", gpu.TopLevelInputs{
		Instances:    instBuf,
		NumInstances: len(descs),
		Mode:         gpu.BuildModeBuild,
		AllowUpdate:  true,
	})
	if err != nil {
		return err
	}
	b.topLevel.Replace(tlas)
	b.stats.TopLevelBuilds++
	b.bounds = bounds

	b.logger.Debugf("top-level structure: %d instances, result %d bytes, update scratch %d bytes", len(descs), info.ResultSize, scratch.Size())
	return b.device.Flush()
}

func (b *Builder) buildBottomLevel(bound scene.Bound) error {
	if !b.aabbs[bound].Valid() {
		lo, hi := bound.Extents()
		data, err := gpu.EncodeAABBs([]gpu.AABB{{Min: lo, Max: hi}})
		if err != nil {
			return err
		}
		buf, err := b.device.Allocate("aabb "+bound.String(), len(data), data)
		if err != nil {
			return err
		}
		b.aabbs[bound].Replace(buf)
	}

	blas, err := b.device.BuildBottomLevel("blas "+bound.String(), []gpu.GeometryDesc{
		{AABBs: b.aabbs[bound].Get(), Count: 1, Opaque: true},
	})
	if err != nil {
		return err
	}
	b.bottomLevel[bound].Replace(blas)
	b.stats.BottomLevelBuilds++
	return nil
}

// Rewrite the instance transforms and refit the top-level structure in
// place. The instance count and the bound referenced by every instance must
// match the last rebuild.
func (b *Builder) UpdateScene(instances []scene.Instance) error {
	if !b.topLevel.Valid() {
		return ErrNotBuilt
	}
	if len(instances) != len(b.bounds) {
		return fmt.Errorf("%w: %d instances, expected %d", ErrTopologyChanged, len(instances), len(b.bounds))
	}
	for i, inst := range instances {
		if bound := inst.Shape.Bound(); bound != b.bounds[i] {
			return fmt.Errorf("%w: instance %d references %s, expected %s", ErrTopologyChanged, i, bound, b.bounds[i])
		}
	}

	// The instance buffer must not be written while a dispatch reads it.
	if err := b.device.Flush(); err != nil {
		return fmt.Errorf("accel: update: %w", err)
	}

	instBuf := b.instances.Get()
	data, err := instBuf.Map()
	if err != nil {
		return fmt.Errorf("accel: update: %w", err)
	}
	for i, inst := range instances {
		gpu.PutInstanceTransform(data, i, inst.Transform.Affine3x4())
	}
	instBuf.Unmap()

	_, err = b.device.BuildTopLevel("tlas", gpu.TopLevelInputs{
		Instances:    instBuf,
		NumInstances: len(instances),
		Mode:         gpu.BuildModeUpdate,
		Source:       b.topLevel.Get(),
		Scratch:      b.scratch.Get(),
	})
	if err != nil {
		return fmt.Errorf("accel: update: %w", err)
	}
	b.stats.TopLevelUpdates++

	return b.device.Flush()
}
