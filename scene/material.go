package scene

import (
	"fmt"

	"github.com/achilleasa/procrt/types"
)

// The material kind. Values match the material type ids read by the
// closest-hit programs.
type MaterialKind uint32

const (
	Lambertian MaterialKind = iota
	Metal
	Dielectric
	DiffuseLight
	Smoke
	numMaterialKinds
)

func (k MaterialKind) String() string {
	switch k {
	case Lambertian:
		return "lambertian"
	case Metal:
		return "metal"
	case Dielectric:
		return "dielectric"
	case DiffuseLight:
		return "diffuse light"
	case Smoke:
		return "smoke"
	}
	return fmt.Sprintf("material(%d)", uint32(k))
}

// Material describes how light interacts with an object. Materials are plain
// values and are copied into every object that uses them.
type Material struct {
	Kind MaterialKind

	// Albedo for reflective materials, emitted radiance for lights.
	Albedo types.Vec3

	// Metal fuzz factor.
	Fuzz float32

	// Dielectric index of refraction.
	RefractionIndex float32

	// Smoke density.
	Density float32
}

// Define a diffuse material.
func NewLambertian(albedo types.Vec3) Material {
	return Material{Kind: Lambertian, Albedo: albedo}
}

// Define a reflective material with the given fuzziness.
func NewMetal(albedo types.Vec3, fuzz float32) Material {
	return Material{Kind: Metal, Albedo: albedo, Fuzz: fuzz}
}

// Define a clear dielectric with the given refraction index.
func NewDielectric(ior float32) Material {
	return NewTintedDielectric(types.XYZ(1, 1, 1), ior)
}

// Define a tinted dielectric.
func NewTintedDielectric(albedo types.Vec3, ior float32) Material {
	return Material{Kind: Dielectric, Albedo: albedo, RefractionIndex: ior}
}

// Define an emissive material.
func NewDiffuseLight(emit types.Vec3) Material {
	return Material{Kind: DiffuseLight, Albedo: emit}
}

// Define a constant density participating medium.
func NewSmoke(albedo types.Vec3, density float32) Material {
	return Material{Kind: Smoke, Albedo: albedo, Density: density}
}
