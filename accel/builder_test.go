package accel

import (
	"errors"
	"testing"

	"github.com/achilleasa/procrt/gpu"
	"github.com/achilleasa/procrt/gpu/cpu"
	"github.com/achilleasa/procrt/scene"
	"github.com/achilleasa/procrt/types"
)

func loadPreset(t *testing.T, index int) *scene.Catalog {
	t.Helper()
	cat := scene.NewCatalog()
	if err := cat.LoadPreset(index); err != nil {
		t.Fatal(err)
	}
	return cat
}

func TestRebuild(t *testing.T) {
	dev := cpu.NewDevice(cpu.Options{Workers: 1})
	defer dev.Close()

	specs := []struct {
		preset         int
		expBottomLevel int
	}{
		// Spheres only.
		{0, 1},
		// Quads only.
		{8, 1},
		// Quads and smoke cubes.
		{9, 2},
	}

	for specIndex, spec := range specs {
		b := NewBuilder(dev)
		cat := loadPreset(t, spec.preset)
		if err := b.Rebuild(cat); err != nil {
			t.Fatalf("[spec %d] %v", specIndex, err)
		}

		stats := b.Stats()
		if stats.BottomLevelBuilds != spec.expBottomLevel {
			t.Fatalf("[spec %d] expected %d bottom-level builds; got %d", specIndex, spec.expBottomLevel, stats.BottomLevelBuilds)
		}
		if stats.TopLevelBuilds != 1 || stats.TopLevelUpdates != 0 {
			t.Fatalf("[spec %d] expected one top-level build and no updates; got %+v", specIndex, stats)
		}
		if b.TopLevel() == nil {
			t.Fatalf("[spec %d] expected a top-level structure", specIndex)
		}

		data, err := b.instances.Get().Map()
		if err != nil {
			t.Fatalf("[spec %d] %v", specIndex, err)
		}
		descs, err := gpu.DecodeInstances(data, len(cat.Instances()))
		b.instances.Get().Unmap()
		if err != nil {
			t.Fatalf("[spec %d] %v", specIndex, err)
		}
		for i, inst := range cat.Instances() {
			desc := descs[i]
			if desc.ID() != uint32(i) || desc.HitGroup() != inst.HitGroup || desc.Mask() != instanceMask {
				t.Fatalf("[spec %d] instance %d: unexpected descriptor %+v", specIndex, i, desc)
			}
			if exp := b.bottomLevel[inst.Shape.Bound()].Get().Address(); desc.BottomLevel != exp {
				t.Fatalf("[spec %d] instance %d: expected bottom-level address 0x%x; got 0x%x", specIndex, i, exp, desc.BottomLevel)
			}
		}
		b.Close()
	}
}

func TestUpdateSceneRefitsOnly(t *testing.T) {
	dev := cpu.NewDevice(cpu.Options{Workers: 1})
	defer dev.Close()

	b := NewBuilder(dev)
	defer b.Close()

	cat := loadPreset(t, 0)
	if err := b.Rebuild(cat); err != nil {
		t.Fatal(err)
	}

	instances := append([]scene.Instance(nil), cat.Instances()...)
	for frame := 0; frame < 5; frame++ {
		instances[0].Transform = types.Translate3D(0, float32(frame), 0)
		if err := b.UpdateScene(instances); err != nil {
			t.Fatal(err)
		}
	}

	expStats := Stats{BottomLevelBuilds: 1, TopLevelBuilds: 1, TopLevelUpdates: 5}
	if b.Stats() != expStats {
		t.Fatalf("expected stats %+v; got %+v", expStats, b.Stats())
	}

	data, err := b.instances.Get().Map()
	if err != nil {
		t.Fatal(err)
	}
	descs, err := gpu.DecodeInstances(data, len(instances))
	b.instances.Get().Unmap()
	if err != nil {
		t.Fatal(err)
	}
	if got := types.Mat4FromAffine3x4(descs[0].Transform); !got.ApproxEqual(instances[0].Transform, 1e-6) {
		t.Fatalf("expected instance transform to be rewritten; got %v", got)
	}
}

func TestUpdateSceneTopology(t *testing.T) {
	dev := cpu.NewDevice(cpu.Options{Workers: 1})
	defer dev.Close()

	b := NewBuilder(dev)
	defer b.Close()

	cat := loadPreset(t, 0)
	if err := b.UpdateScene(cat.Instances()); !errors.Is(err, ErrNotBuilt) {
		t.Fatalf("expected ErrNotBuilt; got %v", err)
	}
	if err := b.Rebuild(cat); err != nil {
		t.Fatal(err)
	}

	fewer := cat.Instances()[1:]
	reshaped := append([]scene.Instance(nil), cat.Instances()...)
	reshaped[0].Shape = scene.Quad

	specs := [][]scene.Instance{fewer, reshaped}
	for specIndex, spec := range specs {
		if err := b.UpdateScene(spec); !errors.Is(err, ErrTopologyChanged) {
			t.Fatalf("[spec %d] expected ErrTopologyChanged; got %v", specIndex, err)
		}
	}
	if b.Stats().TopLevelUpdates != 0 {
		t.Fatalf("expected rejected updates not to reach the device; got %d updates", b.Stats().TopLevelUpdates)
	}
}

func TestAABBsSurviveRebuild(t *testing.T) {
	dev := cpu.NewDevice(cpu.Options{Workers: 1})
	defer dev.Close()

	b := NewBuilder(dev)
	defer b.Close()

	if err := b.Rebuild(loadPreset(t, 8)); err != nil {
		t.Fatal(err)
	}
	quadAABBs := b.aabbs[scene.UnitQuad].Get()
	firstTLAS := b.TopLevel()

	if err := b.Rebuild(loadPreset(t, 9)); err != nil {
		t.Fatal(err)
	}
	if b.aabbs[scene.UnitQuad].Get() != quadAABBs {
		t.Fatal("expected the quad aabb buffer to be reused across rebuilds")
	}
	if !b.aabbs[scene.UnitCube].Valid() {
		t.Fatal("expected the cube aabb buffer to be uploaded")
	}
	if b.TopLevel() == firstTLAS {
		t.Fatal("expected a new top-level structure after rebuild")
	}
	if _, err := quadAABBs.Map(); err != nil {
		t.Fatalf("expected the reused aabb buffer to remain valid; got %v", err)
	}
	quadAABBs.Unmap()
}
