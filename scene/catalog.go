package scene

import (
	"github.com/achilleasa/procrt/types"
	"github.com/chewxy/math32"
)

// Catalog accumulates the objects, instances and light list of a scene.
// Instances and objects share indices: instance i draws object i.
type Catalog struct {
	objects   []Object
	instances []Instance
	lights    []uint32

	// The camera supplied by the preset that populated the catalog.
	camera Camera
}

// Create an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{}
}

// Get the object list.
func (c *Catalog) Objects() []Object {
	return c.objects
}

// Get the instance list.
func (c *Catalog) Instances() []Instance {
	return c.instances
}

// Get the indices of the objects used for light importance sampling.
func (c *Catalog) Lights() []uint32 {
	return c.lights
}

// Get the preset camera.
func (c *Catalog) Camera() Camera {
	return c.camera
}

// Replace the catalog camera.
func (c *Catalog) SetCamera(cam Camera) {
	c.camera = cam
}

// Drop all objects, instances and lights.
func (c *Catalog) Reset() {
	c.objects = nil
	c.instances = nil
	c.lights = nil
	c.camera = Camera{}
}

// Get the distinct bounds referenced by the instance list in order of
// first use.
func (c *Catalog) Bounds() []Bound {
	var seen [NumBounds]bool
	out := make([]Bound, 0, NumBounds)
	for _, inst := range c.instances {
		b := inst.Shape.Bound()
		if !seen[b] {
			seen[b] = true
			out = append(out, b)
		}
	}
	return out
}

// Add a sphere. The unit cube bound is scaled by the radius and moved to the
// sphere center.
func (c *Catalog) AddSphere(center types.Vec3, radius float32, mat Material, isLight bool) error {
	obj := Object{
		Shape:    Sphere,
		Material: mat,
		Center:   center,
		Radius:   radius,
	}
	transform := types.Scale3D(radius, radius, radius).Then(types.TranslateV(center))
	return c.add(transform, obj, isLight)
}

// Add a parallelogram with corner q spanned by the u and v edges. The unit
// quad x axis maps to v, its y axis to u and its z axis to the quad normal.
func (c *Catalog) AddQuad(q, u, v types.Vec3, mat Material, isLight bool) error {
	transform, obj := quadPlacement(q, u, v, mat)
	return c.add(transform, obj, isLight)
}

// Add a box between corners a and b rotated about a by rot (degrees around
// X, Y and Z). Smoke and dielectric boxes are a single volumetric cube;
// everything else becomes six quads.
func (c *Catalog) AddBox(a, b types.Vec3, mat Material, rot types.Vec3, isLight bool) error {
	rotation := types.RotateRollPitchYaw(
		types.DegToRad(rot[0]),
		types.DegToRad(rot[1]),
		types.DegToRad(rot[2]),
	)

	if mat.Kind == Smoke || mat.Kind == Dielectric {
		transform := types.Translate3D(signOf(a[0], b[0]), signOf(a[1], b[1]), signOf(a[2], b[2])).
			Then(rotation).
			Then(types.Scale3D(
				math32.Abs(b[0]-a[0])/2,
				math32.Abs(b[1]-a[1])/2,
				math32.Abs(b[2]-a[2])/2,
			)).
			Then(types.TranslateV(a))
		return c.add(transform, Object{Shape: VolumetricCube, Material: mat}, isLight)
	}

	// Resolve once so a failure leaves no partial box behind.
	hitGroup, err := ResolveHitGroup(Quad, mat.Kind)
	if err != nil {
		return err
	}

	lo, hi := types.MinVec3(a, b), types.MaxVec3(a, b)
	dx := types.XYZ(hi[0]-lo[0], 0, 0)
	dy := types.XYZ(0, hi[1]-lo[1], 0)
	dz := types.XYZ(0, 0, hi[2]-lo[2])

	rotatePoint := func(p types.Vec3) types.Vec3 {
		return rotation.TransformVector(p.Sub(a)).Add(a)
	}
	rotateVec := rotation.TransformVector

	faces := [6][3]types.Vec3{
		{types.XYZ(lo[0], lo[1], hi[2]), dx, dy},       // front
		{types.XYZ(hi[0], lo[1], hi[2]), dz.Neg(), dy}, // right
		{types.XYZ(hi[0], lo[1], lo[2]), dx.Neg(), dy}, // back
		{types.XYZ(lo[0], lo[1], lo[2]), dz, dy},       // left
		{types.XYZ(lo[0], hi[1], hi[2]), dx, dz.Neg()}, // top
		{types.XYZ(lo[0], lo[1], lo[2]), dx, dz},       // bottom
	}
	for _, face := range faces {
		transform, obj := quadPlacement(rotatePoint(face[0]), rotateVec(face[1]), rotateVec(face[2]), mat)
		c.insert(transform, obj, hitGroup, isLight)
	}
	return nil
}

func (c *Catalog) add(transform types.Mat4, obj Object, isLight bool) error {
	hitGroup, err := ResolveHitGroup(obj.Shape, obj.Material.Kind)
	if err != nil {
		return err
	}
	c.insert(transform, obj, hitGroup, isLight)
	return nil
}

func (c *Catalog) insert(transform types.Mat4, obj Object, hitGroup uint32, isLight bool) {
	c.instances = append(c.instances, Instance{
		Transform: transform,
		ID:        uint32(len(c.instances)),
		HitGroup:  hitGroup,
		Shape:     obj.Shape,
	})
	if isLight {
		c.lights = append(c.lights, uint32(len(c.objects)))
	}
	c.objects = append(c.objects, obj)
}

func quadPlacement(q, u, v types.Vec3, mat Material) (types.Mat4, Object) {
	xBasis := v.Mul(0.5)
	yBasis := u.Mul(0.5)
	zBasis := u.Cross(v).Normalize()

	transform := types.Ident4()
	transform.SetCol(0, xBasis, 0)
	transform.SetCol(1, yBasis, 0)
	transform.SetCol(2, zBasis, 0)
	transform.SetCol(3, q.Add(xBasis).Add(yBasis), 1)

	return transform, Object{
		Shape:    Quad,
		Material: mat,
		Q:        q,
		U:        u,
		V:        v,
		Normal:   zBasis,
	}
}

func signOf(a, b float32) float32 {
	if a < b {
		return 1
	}
	return -1
}
