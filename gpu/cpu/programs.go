package cpu

import (
	"math"

	"github.com/achilleasa/procrt/scene"
	"github.com/achilleasa/procrt/types"
	"github.com/chewxy/math32"
)

// Minimum hit distance; avoids self intersections of scattered rays.
const rayTMin float32 = 1e-3

type ray struct {
	origin types.Vec3
	dir    types.Vec3
}

func (r ray) at(t float32) types.Vec3 {
	return r.origin.Add(r.dir.Mul(t))
}

// A ray being tested against one instance. The object space ray uses the
// unnormalized transformed direction so both rays share the same t.
type rayQuery struct {
	world  ray
	object ray
	tMax   float32
	inst   *instance
}

// An intersection program reports the hit distance and the outward surface
// normal of the closest hit in (rayTMin, q.tMax).
type intersectionProgram func(ctx *traceContext, q *rayQuery, obj *scene.Object) (t float32, outward types.Vec3, ok bool)

type hitRecord struct {
	t         float32
	point     types.Vec3
	normal    types.Vec3
	frontFace bool
	object    *scene.Object
}

// Orient the normal against the incoming ray.
func (h *hitRecord) setFaceNormal(r ray, outward types.Vec3) {
	h.frontFace = r.dir.Dot(outward) < 0
	h.normal = outward
	if !h.frontFace {
		h.normal = outward.Neg()
	}
}

type scatterResult struct {
	emitted     types.Vec3
	attenuation types.Vec3
	scattered   ray
	ok          bool
}

// A closest-hit program evaluates the material at a hit.
type closestHitProgram func(ctx *traceContext, r ray, h *hitRecord) scatterResult

var intersectionPrograms = map[string]intersectionProgram{
	scene.IntersectSphere:      intersectSphere,
	scene.IntersectQuad:        intersectQuad,
	scene.IntersectSmokeSphere: intersectSmokeSphere,
	scene.IntersectSmokeCube:   intersectSmokeCube,
	scene.IntersectGlassCube:   intersectGlassCube,
}

var closestHitPrograms = map[string]closestHitProgram{
	scene.ShadeLambertian:   shadeLambertian,
	scene.ShadeMetal:        shadeMetal,
	scene.ShadeDielectric:   shadeDielectric,
	scene.ShadeDiffuseLight: shadeDiffuseLight,
	scene.ShadeSmoke:        shadeSmoke,
}

// Both roots of the ray/sphere quadratic, nearest first.
func sphereRoots(r ray, center types.Vec3, radius float32) (float32, float32, bool) {
	oc := center.Sub(r.origin)
	a := r.dir.LenSq()
	if a == 0 {
		return 0, 0, false
	}
	h := r.dir.Dot(oc)
	c := oc.LenSq() - radius*radius
	disc := h*h - a*c
	if disc < 0 {
		return 0, 0, false
	}
	sq := math32.Sqrt(disc)
	return (h - sq) / a, (h + sq) / a, true
}

func hitSphere(r ray, center types.Vec3, radius, tMin, tMax float32) (float32, bool) {
	t0, t1, ok := sphereRoots(r, center, radius)
	if !ok {
		return 0, false
	}
	if t0 > tMin && t0 < tMax {
		return t0, true
	}
	if t1 > tMin && t1 < tMax {
		return t1, true
	}
	return 0, false
}

func intersectSphere(_ *traceContext, q *rayQuery, obj *scene.Object) (float32, types.Vec3, bool) {
	t, ok := hitSphere(q.world, obj.Center, obj.Radius, rayTMin, q.tMax)
	if !ok || obj.Radius == 0 {
		return 0, types.Vec3{}, false
	}
	return t, q.world.at(t).Sub(obj.Center).Mul(1 / obj.Radius), true
}

func quadNormal(obj *scene.Object) types.Vec3 {
	if obj.Normal.LenSq() > 0 {
		return obj.Normal
	}
	return obj.U.Cross(obj.V).Normalize()
}

func hitQuad(r ray, obj *scene.Object, tMin, tMax float32) (float32, bool) {
	n := obj.U.Cross(obj.V)
	nn := n.LenSq()
	if nn == 0 {
		return 0, false
	}
	normal := quadNormal(obj)
	denom := normal.Dot(r.dir)
	if math32.Abs(denom) < 1e-8 {
		return 0, false
	}
	t := (normal.Dot(obj.Q) - normal.Dot(r.origin)) / denom
	if t <= tMin || t >= tMax {
		return 0, false
	}

	planar := r.at(t).Sub(obj.Q)
	w := n.Mul(1 / nn)
	alpha := w.Dot(planar.Cross(obj.V))
	beta := w.Dot(obj.U.Cross(planar))
	if alpha < 0 || alpha > 1 || beta < 0 || beta > 1 {
		return 0, false
	}
	return t, true
}

func intersectQuad(_ *traceContext, q *rayQuery, obj *scene.Object) (float32, types.Vec3, bool) {
	t, ok := hitQuad(q.world, obj, rayTMin, q.tMax)
	if !ok {
		return 0, types.Vec3{}, false
	}
	return t, quadNormal(obj), true
}

// Slab test against the unit cube in object space. Returns the entry and
// exit distances along with the outward object space normals of the faces
// crossed.
func unitCubeSlabs(r ray) (tNear, tFar float32, nNear, nFar types.Vec3, ok bool) {
	tNear, tFar = -math.MaxFloat32, math.MaxFloat32
	for a := 0; a < 3; a++ {
		if r.dir[a] == 0 {
			if r.origin[a] < -1 || r.origin[a] > 1 {
				return 0, 0, nNear, nFar, false
			}
			continue
		}
		inv := 1 / r.dir[a]
		t0 := (-1 - r.origin[a]) * inv
		t1 := (1 - r.origin[a]) * inv
		// Entering through the face that faces the ray.
		sign := float32(-1)
		if inv < 0 {
			t0, t1 = t1, t0
			sign = 1
		}
		if t0 > tNear {
			tNear = t0
			nNear = types.Vec3{}
			nNear[a] = sign
		}
		if t1 < tFar {
			tFar = t1
			nFar = types.Vec3{}
			nFar[a] = -sign
		}
		if tFar < tNear {
			return 0, 0, nNear, nFar, false
		}
	}
	return tNear, tFar, nNear, nFar, true
}

// Sample a scattering distance inside a medium spanning [t0, t1] along r.
func sampleMedium(ctx *traceContext, r ray, t0, t1, tMax, density float32) (float32, bool) {
	t0 = max(t0, rayTMin)
	t1 = min(t1, tMax)
	if t0 >= t1 || density <= 0 {
		return 0, false
	}

	rayLength := r.dir.Len()
	inside := (t1 - t0) * rayLength
	hitDistance := -math32.Log(1-ctx.rng.Float32()) / density
	if hitDistance > inside {
		return 0, false
	}
	return t0 + hitDistance/rayLength, true
}

// Arbitrary normal reported for volume scattering events.
var mediumNormal = types.XYZ(1, 0, 0)

func intersectSmokeSphere(ctx *traceContext, q *rayQuery, obj *scene.Object) (float32, types.Vec3, bool) {
	t0, t1, ok := sphereRoots(q.world, obj.Center, obj.Radius)
	if !ok {
		return 0, types.Vec3{}, false
	}
	t, ok := sampleMedium(ctx, q.world, t0, t1, q.tMax, obj.Material.Density)
	return t, mediumNormal, ok
}

func intersectSmokeCube(ctx *traceContext, q *rayQuery, obj *scene.Object) (float32, types.Vec3, bool) {
	t0, t1, _, _, ok := unitCubeSlabs(q.object)
	if !ok {
		return 0, types.Vec3{}, false
	}
	t, ok := sampleMedium(ctx, q.world, t0, t1, q.tMax, obj.Material.Density)
	return t, mediumNormal, ok
}

func intersectGlassCube(_ *traceContext, q *rayQuery, _ *scene.Object) (float32, types.Vec3, bool) {
	t0, t1, n0, n1, ok := unitCubeSlabs(q.object)
	if !ok {
		return 0, types.Vec3{}, false
	}

	var t float32
	var n types.Vec3
	switch {
	case t0 > rayTMin && t0 < q.tMax:
		t, n = t0, n0
	case t1 > rayTMin && t1 < q.tMax:
		t, n = t1, n1
	default:
		return 0, types.Vec3{}, false
	}

	// Normals transform with the inverse transpose.
	outward := q.inst.worldToObject.Transpose().TransformVector(n).Normalize()
	return t, outward, true
}

func shadeLambertian(ctx *traceContext, r ray, h *hitRecord) scatterResult {
	lights := ctx.frame.lights
	basis := newONB(h.normal)

	var dir types.Vec3
	sampled := false
	if len(lights) > 0 && ctx.rng.Float32() < 0.5 {
		dir, sampled = ctx.sampleLight(h.point)
	}
	if !sampled {
		dir = basis.transform(randomCosineDirection(ctx.rng))
	}
	dir = dir.Normalize()

	scatterPdf := max(0, h.normal.Dot(dir)) / math32.Pi
	pdf := scatterPdf
	if len(lights) > 0 {
		pdf = 0.5*scatterPdf + 0.5*ctx.lightPdf(h.point, dir, h.normal)
	}
	if scatterPdf <= 0 || pdf <= 0 {
		return scatterResult{}
	}

	return scatterResult{
		attenuation: h.object.Material.Albedo.Mul(scatterPdf / pdf),
		scattered:   ray{origin: h.point, dir: dir},
		ok:          true,
	}
}

func shadeMetal(ctx *traceContext, r ray, h *hitRecord) scatterResult {
	mat := &h.object.Material
	dir := reflect(r.dir.Normalize(), h.normal).Normalize().Add(randomUnitVector(ctx.rng).Mul(mat.Fuzz))
	if dir.Dot(h.normal) <= 0 {
		return scatterResult{}
	}
	return scatterResult{
		attenuation: mat.Albedo,
		scattered:   ray{origin: h.point, dir: dir},
		ok:          true,
	}
}

func shadeDielectric(ctx *traceContext, r ray, h *hitRecord) scatterResult {
	mat := &h.object.Material
	ri := mat.RefractionIndex
	if ri <= 0 {
		ri = 1
	}
	if h.frontFace {
		ri = 1 / ri
	}

	unit := r.dir.Normalize()
	cosTheta := min(unit.Neg().Dot(h.normal), 1)
	sinTheta := math32.Sqrt(max(0, 1-cosTheta*cosTheta))

	var dir types.Vec3
	if ri*sinTheta > 1 || reflectance(cosTheta, ri) > ctx.rng.Float32() {
		dir = reflect(unit, h.normal)
	} else {
		dir = refract(unit, h.normal, ri)
	}
	return scatterResult{
		attenuation: mat.Albedo,
		scattered:   ray{origin: h.point, dir: dir},
		ok:          true,
	}
}

// Lights emit from both faces.
func shadeDiffuseLight(_ *traceContext, _ ray, h *hitRecord) scatterResult {
	return scatterResult{emitted: h.object.Material.Albedo}
}

// Isotropic phase function.
func shadeSmoke(ctx *traceContext, _ ray, h *hitRecord) scatterResult {
	return scatterResult{
		attenuation: h.object.Material.Albedo,
		scattered:   ray{origin: h.point, dir: randomUnitVector(ctx.rng)},
		ok:          true,
	}
}
