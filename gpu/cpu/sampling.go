package cpu

import (
	"math/rand/v2"

	"github.com/achilleasa/procrt/types"
	"github.com/chewxy/math32"
)

// An orthonormal basis around a direction.
type onb struct {
	u, v, w types.Vec3
}

func newONB(n types.Vec3) onb {
	w := n.Normalize()
	a := types.XYZ(1, 0, 0)
	if math32.Abs(w[0]) > 0.9 {
		a = types.XYZ(0, 1, 0)
	}
	v := w.Cross(a).Normalize()
	u := w.Cross(v)
	return onb{u: u, v: v, w: w}
}

// Map a vector from the local basis to world space.
func (b onb) transform(local types.Vec3) types.Vec3 {
	return b.u.Mul(local[0]).Add(b.v.Mul(local[1])).Add(b.w.Mul(local[2]))
}

func randomRange(rng *rand.Rand, lo, hi float32) float32 {
	return lo + (hi-lo)*rng.Float32()
}

// Uniformly distributed unit vector.
func randomUnitVector(rng *rand.Rand) types.Vec3 {
	z := randomRange(rng, -1, 1)
	r := math32.Sqrt(max(0, 1-z*z))
	phi := 2 * math32.Pi * rng.Float32()
	return types.XYZ(r*math32.Cos(phi), r*math32.Sin(phi), z)
}

// Cosine weighted direction around +z.
func randomCosineDirection(rng *rand.Rand) types.Vec3 {
	r1 := rng.Float32()
	r2 := rng.Float32()
	phi := 2 * math32.Pi * r1
	sq := math32.Sqrt(r2)
	return types.XYZ(math32.Cos(phi)*sq, math32.Sin(phi)*sq, math32.Sqrt(max(0, 1-r2)))
}

// Point on the unit disk in the z=0 plane.
func randomInUnitDisk(rng *rand.Rand) types.Vec2 {
	r := math32.Sqrt(rng.Float32())
	phi := 2 * math32.Pi * rng.Float32()
	return types.XY(r*math32.Cos(phi), r*math32.Sin(phi))
}

// Direction around +z towards a sphere subtending a cone with the given
// cosine of the half angle.
func randomToSphere(rng *rand.Rand, cosThetaMax float32) types.Vec3 {
	r1 := rng.Float32()
	r2 := rng.Float32()
	z := 1 + r2*(cosThetaMax-1)
	phi := 2 * math32.Pi * r1
	sinTheta := math32.Sqrt(max(0, 1-z*z))
	return types.XYZ(math32.Cos(phi)*sinTheta, math32.Sin(phi)*sinTheta, z)
}

// Solid angle of the cone subtended by a sphere of squared radius r2 seen
// from squared distance d2. Computes 1-sqrt(1-x) as x/(1+sqrt(1-x)) to keep
// precision for distant spheres.
func coneSolidAngle(r2, d2 float32) (cosThetaMax, solidAngle float32) {
	x := r2 / d2
	root := math32.Sqrt(max(0, 1-x))
	return root, 2 * math32.Pi * x / (1 + root)
}

func reflect(v, n types.Vec3) types.Vec3 {
	return v.Sub(n.Mul(2 * v.Dot(n)))
}

func refract(uv, n types.Vec3, etaRatio float32) types.Vec3 {
	cosTheta := min(uv.Neg().Dot(n), 1)
	perp := uv.Add(n.Mul(cosTheta)).Mul(etaRatio)
	parallel := n.Mul(-math32.Sqrt(math32.Abs(1 - perp.LenSq())))
	return perp.Add(parallel)
}

// Schlick's approximation of the Fresnel reflectance.
func reflectance(cosine, refractionIndex float32) float32 {
	r0 := (1 - refractionIndex) / (1 + refractionIndex)
	r0 = r0 * r0
	return r0 + (1-r0)*math32.Pow(1-cosine, 5)
}
