package scene

import "fmt"

// Intersection program names.
const (
	IntersectSphere      = "IntersectionProceduralSphere"
	IntersectQuad        = "IntersectionProceduralQuad"
	IntersectSmokeSphere = "IntersectionProceduralSmokeSphere"
	IntersectSmokeCube   = "IntersectionProceduralSmokeCube"
	IntersectGlassCube   = "IntersectionProceduralGlassCube"
)

// Closest-hit program names.
const (
	ShadeLambertian   = "ClosestHitProceduralLambertian"
	ShadeMetal        = "ClosestHitProceduralMetal"
	ShadeDielectric   = "ClosestHitProceduralDielectric"
	ShadeDiffuseLight = "ClosestHitProceduralDiffuseLight"
	ShadeSmoke        = "ClosestHitProceduralSmoke"
)

// HitGroup pairs the intersection and closest-hit programs used for one
// shape/material combination.
type HitGroup struct {
	Name         string
	Shape        Shape
	Kind         MaterialKind
	Intersection string
	ClosestHit   string
}

// The hit-group table. The slot index of each entry is the hit-group offset
// stored in instances; the order must match the pipeline's shader table.
var HitGroups = []HitGroup{
	{"HitGroupProceduralLambertianSphere", Sphere, Lambertian, IntersectSphere, ShadeLambertian},
	{"HitGroupProceduralMetalSphere", Sphere, Metal, IntersectSphere, ShadeMetal},
	{"HitGroupProceduralDielectricSphere", Sphere, Dielectric, IntersectSphere, ShadeDielectric},
	{"HitGroupProceduralDiffuseLightSphere", Sphere, DiffuseLight, IntersectSphere, ShadeDiffuseLight},
	{"HitGroupProceduralSmokeSphere", Sphere, Smoke, IntersectSmokeSphere, ShadeSmoke},
	{"HitGroupProceduralLambertianQuad", Quad, Lambertian, IntersectQuad, ShadeLambertian},
	{"HitGroupProceduralMetalQuad", Quad, Metal, IntersectQuad, ShadeMetal},
	{"HitGroupProceduralDielectricQuad", Quad, Dielectric, IntersectQuad, ShadeDielectric},
	{"HitGroupProceduralDiffuseLightQuad", Quad, DiffuseLight, IntersectQuad, ShadeDiffuseLight},
	{"HitGroupProceduralSmokeCube", VolumetricCube, Smoke, IntersectSmokeCube, ShadeSmoke},
	{"HitGroupProceduralGlassCube", VolumetricCube, Dielectric, IntersectGlassCube, ShadeDielectric},
}

var hitGroupIndex = func() map[hitGroupKey]uint32 {
	index := make(map[hitGroupKey]uint32, len(HitGroups))
	for slot, hg := range HitGroups {
		index[hitGroupKey{hg.Shape, hg.Kind}] = uint32(slot)
	}
	return index
}()

type hitGroupKey struct {
	shape Shape
	kind  MaterialKind
}

// Map a shape/material combination to its hit-group slot. Combinations
// without a registered hit group fail with ErrUnsupportedCombination.
func ResolveHitGroup(shape Shape, kind MaterialKind) (uint32, error) {
	slot, exists := hitGroupIndex[hitGroupKey{shape, kind}]
	if !exists {
		return 0, fmt.Errorf("%w: %s/%s", ErrUnsupportedCombination, shape, kind)
	}
	return slot, nil
}
