package scene

import (
	"encoding/binary"
	"fmt"

	"github.com/achilleasa/procrt/types"
)

// Sizes of the packed records shared with the shader programs.
const (
	ObjectRecordSize = 96
	CameraRecordSize = 72
	LightRecordSize  = 4
)

var byteOrder = binary.LittleEndian

// MaterialRecord is the packed (4 byte aligned) material layout.
type MaterialRecord struct {
	Albedo          [3]float32
	Fuzz            float32
	RefractionIndex float32
	Density         float32
	Kind            uint32
}

// ObjectRecord is the packed object layout.
type ObjectRecord struct {
	Material MaterialRecord
	Shape    uint32
	Q        [3]float32
	U        [3]float32
	V        [3]float32
	Normal   [3]float32
	Center   [3]float32
	Radius   float32
}

// CameraRecord is the packed camera constant buffer layout.
type CameraRecord struct {
	LookFrom        [3]float32
	_               float32
	LookAt          [3]float32
	_               float32
	Background      [3]float32
	VFov            float32
	FocusDist       float32
	DefocusAngle    float32
	FrameIndex      uint32
	SamplesPerPixel uint32
	Stratify        uint32
	NumLights       uint32
}

func NewObjectRecord(o Object) ObjectRecord {
	return ObjectRecord{
		Material: MaterialRecord{
			Albedo:          o.Material.Albedo,
			Fuzz:            o.Material.Fuzz,
			RefractionIndex: o.Material.RefractionIndex,
			Density:         o.Material.Density,
			Kind:            uint32(o.Material.Kind),
		},
		Shape:  uint32(o.Shape),
		Q:      o.Q,
		U:      o.U,
		V:      o.V,
		Normal: o.Normal,
		Center: o.Center,
		Radius: o.Radius,
	}
}

// Expand the record back to an object.
func (r ObjectRecord) Object() Object {
	return Object{
		Shape: Shape(r.Shape),
		Material: Material{
			Kind:            MaterialKind(r.Material.Kind),
			Albedo:          r.Material.Albedo,
			Fuzz:            r.Material.Fuzz,
			RefractionIndex: r.Material.RefractionIndex,
			Density:         r.Material.Density,
		},
		Q:      r.Q,
		U:      r.U,
		V:      r.V,
		Normal: r.Normal,
		Center: r.Center,
		Radius: r.Radius,
	}
}

func NewCameraRecord(c Camera) CameraRecord {
	var stratify uint32
	if c.Stratify {
		stratify = 1
	}
	return CameraRecord{
		LookFrom:        c.LookFrom,
		LookAt:          c.LookAt,
		Background:      c.Background,
		VFov:            c.VFov,
		FocusDist:       c.FocusDist,
		DefocusAngle:    c.DefocusAngle,
		FrameIndex:      c.FrameIndex,
		SamplesPerPixel: c.SamplesPerPixel,
		Stratify:        stratify,
		NumLights:       c.NumLights,
	}
}

func (r CameraRecord) Camera() Camera {
	return Camera{
		LookFrom:        types.Vec3(r.LookFrom),
		LookAt:          types.Vec3(r.LookAt),
		Background:      types.Vec3(r.Background),
		VFov:            r.VFov,
		FocusDist:       r.FocusDist,
		DefocusAngle:    r.DefocusAngle,
		FrameIndex:      r.FrameIndex,
		SamplesPerPixel: r.SamplesPerPixel,
		Stratify:        r.Stratify != 0,
		NumLights:       r.NumLights,
	}
}

// Pack objects into a byte slice.
func EncodeObjects(objects []Object) ([]byte, error) {
	records := make([]ObjectRecord, len(objects))
	for i, o := range objects {
		records[i] = NewObjectRecord(o)
	}
	return binary.Append(make([]byte, 0, len(records)*ObjectRecordSize), byteOrder, records)
}

// Unpack a byte slice produced by EncodeObjects.
func DecodeObjects(data []byte) ([]Object, error) {
	if len(data)%ObjectRecordSize != 0 {
		return nil, fmt.Errorf("scene: object data size %d is not a multiple of %d", len(data), ObjectRecordSize)
	}
	records := make([]ObjectRecord, len(data)/ObjectRecordSize)
	if _, err := binary.Decode(data, byteOrder, records); err != nil {
		return nil, fmt.Errorf("scene: could not decode objects: %w", err)
	}
	objects := make([]Object, len(records))
	for i, r := range records {
		objects[i] = r.Object()
	}
	return objects, nil
}

// Pack the camera into its constant buffer layout.
func EncodeCamera(c Camera) ([]byte, error) {
	return binary.Append(make([]byte, 0, CameraRecordSize), byteOrder, NewCameraRecord(c))
}

// Unpack a camera constant buffer.
func DecodeCamera(data []byte) (Camera, error) {
	var r CameraRecord
	if len(data) < CameraRecordSize {
		return Camera{}, fmt.Errorf("scene: camera data size %d is smaller than %d", len(data), CameraRecordSize)
	}
	if _, err := binary.Decode(data, byteOrder, &r); err != nil {
		return Camera{}, fmt.Errorf("scene: could not decode camera: %w", err)
	}
	return r.Camera(), nil
}

// Pack the light list. An empty list still occupies one record so the
// buffer can always be bound.
func EncodeLights(lights []uint32) []byte {
	out := make([]byte, LightRecordSize*max(1, len(lights)))
	for i, l := range lights {
		byteOrder.PutUint32(out[i*LightRecordSize:], l)
	}
	return out
}

// Unpack count light indices.
func DecodeLights(data []byte, count int) ([]uint32, error) {
	if len(data) < count*LightRecordSize {
		return nil, fmt.Errorf("scene: light data size %d too small for %d lights", len(data), count)
	}
	out := make([]uint32, count)
	for i := range out {
		out[i] = byteOrder.Uint32(data[i*LightRecordSize:])
	}
	return out, nil
}
