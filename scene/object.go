package scene

import (
	"fmt"

	"github.com/achilleasa/procrt/types"
)

// The primitive shape. Values match the object type ids read by the
// intersection programs.
type Shape uint32

const (
	Sphere Shape = iota
	Quad
	VolumetricCube
	numShapes
)

func (s Shape) String() string {
	switch s {
	case Sphere:
		return "sphere"
	case Quad:
		return "quad"
	case VolumetricCube:
		return "volumetric cube"
	}
	return fmt.Sprintf("shape(%d)", uint32(s))
}

// The canonical object space bound of a shape. Every instance of a shape
// shares the bottom-level structure built for its bound.
type Bound uint32

const (
	// Axis aligned cube spanning [-1, 1] on every axis.
	UnitCube Bound = iota

	// Unit square in the z=0 plane with a negligible thickness.
	UnitQuad

	NumBounds
)

// The half thickness of the unit quad bound.
const QuadHalfThickness float32 = 1e-5

// Get the canonical bound used by this shape.
func (s Shape) Bound() Bound {
	if s == Quad {
		return UnitQuad
	}
	return UnitCube
}

// Get the min and max corners of the bound.
func (b Bound) Extents() (types.Vec3, types.Vec3) {
	if b == UnitQuad {
		return types.XYZ(-1, -1, -QuadHalfThickness), types.XYZ(1, 1, QuadHalfThickness)
	}
	return types.XYZ(-1, -1, -1), types.XYZ(1, 1, 1)
}

func (b Bound) String() string {
	switch b {
	case UnitCube:
		return "unit cube"
	case UnitQuad:
		return "unit quad"
	}
	return fmt.Sprintf("bound(%d)", uint32(b))
}

// Object holds the per-primitive data read by the shader programs.
type Object struct {
	Shape    Shape
	Material Material

	// Quads: corner, edge vectors and unit normal.
	Q      types.Vec3
	U      types.Vec3
	V      types.Vec3
	Normal types.Vec3

	// Spheres.
	Center types.Vec3
	Radius float32
}

// Instance places a canonical shape in world space.
type Instance struct {
	// Object to world transform.
	Transform types.Mat4

	// Index of the object this instance draws.
	ID uint32

	// Offset into the hit-group table.
	HitGroup uint32

	Shape Shape
}
