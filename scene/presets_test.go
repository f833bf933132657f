package scene

import (
	"encoding/binary"
	"errors"
	"reflect"
	"testing"

	"github.com/achilleasa/procrt/types"
)

func TestPresetCycle(t *testing.T) {
	if len(Presets) != 16 {
		t.Fatalf("expected 16 presets; got %d", len(Presets))
	}

	visited := make(map[int]bool)
	index := InitialPreset
	for step := 0; step < len(Presets); step++ {
		visited[index] = true
		index = NextPreset(index)
	}
	if index != InitialPreset {
		t.Fatalf("expected cycle to return to preset %d; got %d", InitialPreset, index)
	}
	if len(visited) != len(Presets) {
		t.Fatalf("expected cycle to visit %d presets; visited %d", len(Presets), len(visited))
	}
}

func TestPresetInvariants(t *testing.T) {
	type spec struct {
		objects int
		lights  []uint32
	}

	// Presets with a random object count only check invariants.
	specs := map[int]spec{
		0:  {6, []uint32{0}},
		1:  {6, []uint32{0}},
		7:  {5, []uint32{3}},
		8:  {18, []uint32{2}},
		9:  {8, []uint32{2}},
		10: {8, []uint32{2}},
		11: {18, []uint32{2, 12, 13, 14, 15, 16, 17}},
		12: {13, []uint32{2}},
		13: {13, []uint32{2, 6}},
		14: {13, []uint32{2, 6, 7, 8, 9, 10, 11, 12}},
		15: {3410, []uint32{2400}},
	}

	cat := NewCatalog()
	for index := range Presets {
		if err := cat.LoadPreset(index); err != nil {
			t.Fatalf("[preset %d] unexpected error: %v", index, err)
		}

		objects, instances := cat.Objects(), cat.Instances()
		if len(objects) != len(instances) {
			t.Fatalf("[preset %d] expected %d instances; got %d", index, len(objects), len(instances))
		}
		for i, inst := range instances {
			if inst.ID != uint32(i) {
				t.Fatalf("[preset %d] instance %d has ID %d", index, i, inst.ID)
			}
			slot, err := ResolveHitGroup(objects[i].Shape, objects[i].Material.Kind)
			if err != nil || slot != inst.HitGroup {
				t.Fatalf("[preset %d] instance %d hit group %d does not match resolved slot %d (%v)", index, i, inst.HitGroup, slot, err)
			}
		}
		for _, l := range cat.Lights() {
			if int(l) >= len(objects) {
				t.Fatalf("[preset %d] light index %d out of range", index, l)
			}
		}
		if cam := cat.Camera(); cam.SamplesPerPixel != 16 || cam.Stratify || cam.FrameIndex != 0 {
			t.Fatalf("[preset %d] unexpected preset camera %+v", index, cam)
		}

		if s, exists := specs[index]; exists {
			if len(objects) != s.objects {
				t.Fatalf("[preset %d] expected %d objects; got %d", index, s.objects, len(objects))
			}
			if !reflect.DeepEqual(cat.Lights(), s.lights) {
				t.Fatalf("[preset %d] expected lights %v; got %v", index, s.lights, cat.Lights())
			}
		}
	}
}

func TestPresetsAreDeterministic(t *testing.T) {
	for _, index := range []int{4, 15} {
		first := NewCatalog()
		second := NewCatalog()
		if err := first.LoadPreset(index); err != nil {
			t.Fatal(err)
		}
		if err := second.LoadPreset(index); err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(first.Objects(), second.Objects()) || !reflect.DeepEqual(first.Instances(), second.Instances()) {
			t.Fatalf("[preset %d] expected identical catalogs across loads", index)
		}
	}
}

func TestLoadPresetReplacesContents(t *testing.T) {
	cat := NewCatalog()
	if err := cat.LoadPreset(15); err != nil {
		t.Fatal(err)
	}
	if err := cat.LoadPreset(0); err != nil {
		t.Fatal(err)
	}
	if len(cat.Objects()) != 6 || len(cat.Lights()) != 1 {
		t.Fatalf("expected previous preset contents to be dropped; got %d objects", len(cat.Objects()))
	}
	if cat.Camera().LookFrom != types.XYZ(0, 0, -0.5) {
		t.Fatalf("expected basic preset camera; got %+v", cat.Camera())
	}

	if err := cat.LoadPreset(len(Presets)); !errors.Is(err, ErrUnknownPreset) {
		t.Fatalf("expected ErrUnknownPreset; got %v", err)
	}
}

func TestRecordLayout(t *testing.T) {
	if got := binary.Size(ObjectRecord{}); got != ObjectRecordSize {
		t.Fatalf("expected object record size %d; got %d", ObjectRecordSize, got)
	}
	if got := binary.Size(CameraRecord{}); got != CameraRecordSize {
		t.Fatalf("expected camera record size %d; got %d", CameraRecordSize, got)
	}

	cam := Camera{
		LookFrom:        types.XYZ(1, 2, 3),
		LookAt:          types.XYZ(4, 5, 6),
		Background:      types.XYZ(0.1, 0.2, 0.3),
		VFov:            40,
		FocusDist:       10,
		DefocusAngle:    0.6,
		FrameIndex:      7,
		SamplesPerPixel: 16,
		Stratify:        true,
		NumLights:       3,
	}
	data, err := EncodeCamera(cam)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != CameraRecordSize {
		t.Fatalf("expected %d bytes; got %d", CameraRecordSize, len(data))
	}
	if got := binary.LittleEndian.Uint32(data[56:]); got != 7 {
		t.Fatalf("expected frame index at offset 56; got %d", got)
	}
	if got := binary.LittleEndian.Uint32(data[64:]); got != 1 {
		t.Fatalf("expected stratify flag at offset 64; got %d", got)
	}

	decoded, err := DecodeCamera(data)
	if err != nil {
		t.Fatal(err)
	}
	if decoded != cam {
		t.Fatalf("expected decoded camera %+v; got %+v", cam, decoded)
	}

	cat := NewCatalog()
	if err := cat.LoadPreset(8); err != nil {
		t.Fatal(err)
	}
	objData, err := EncodeObjects(cat.Objects())
	if err != nil {
		t.Fatal(err)
	}
	if len(objData) != len(cat.Objects())*ObjectRecordSize {
		t.Fatalf("expected %d bytes of object data; got %d", len(cat.Objects())*ObjectRecordSize, len(objData))
	}
	objects, err := DecodeObjects(objData)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(objects, cat.Objects()) {
		t.Fatal("expected decoded objects to match the catalog")
	}

	if got := len(EncodeLights(nil)); got != LightRecordSize {
		t.Fatalf("expected empty light list to occupy %d bytes; got %d", LightRecordSize, got)
	}
}
