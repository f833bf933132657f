package types

import (
	"testing"

	"github.com/chewxy/math32"
)

func TestThenAppliesInOrder(t *testing.T) {
	m := Scale3D(2, 2, 2).Then(Translate3D(1, 0, 0))
	if got := m.TransformPoint(XYZ(1, 1, 1)); !got.ApproxEqual(XYZ(3, 2, 2), 1e-6) {
		t.Fatalf("expected scale then translate to give (3, 2, 2); got %v", got)
	}

	m = Translate3D(1, 0, 0).Then(Scale3D(2, 2, 2))
	if got := m.TransformPoint(XYZ(1, 1, 1)); !got.ApproxEqual(XYZ(4, 2, 2), 1e-6) {
		t.Fatalf("expected translate then scale to give (4, 2, 2); got %v", got)
	}
}

func TestRotations(t *testing.T) {
	type spec struct {
		m   Mat4
		in  Vec3
		exp Vec3
	}

	quarter := math32.Pi / 2
	specs := []spec{
		{HomogRotate3DX(quarter), XYZ(0, 1, 0), XYZ(0, 0, 1)},
		{HomogRotate3DY(quarter), XYZ(0, 0, 1), XYZ(1, 0, 0)},
		{HomogRotate3DZ(quarter), XYZ(1, 0, 0), XYZ(0, 1, 0)},
		{HomogRotate3D(XYZ(0, 1, 0), quarter), XYZ(0, 0, 1), XYZ(1, 0, 0)},
		// Roll is applied before pitch.
		{RotateRollPitchYaw(quarter, 0, quarter), XYZ(1, 0, 0), XYZ(0, 0, 1)},
		// Pitch is applied before yaw.
		{RotateRollPitchYaw(quarter, quarter, 0), XYZ(0, 1, 0), XYZ(1, 0, 0)},
	}

	for specIndex, s := range specs {
		if got := s.m.TransformVector(s.in); !got.ApproxEqual(s.exp, 1e-5) {
			t.Fatalf("[spec %d] expected %v; got %v", specIndex, s.exp, got)
		}
	}
}

func TestInvAffine(t *testing.T) {
	m := Scale3D(2, 3, 4).Then(HomogRotate3DY(0.3)).Then(Translate3D(5, -1, 2))
	if got := m.Mul4(m.InvAffine()); !got.ApproxEqual(Ident4(), 1e-5) {
		t.Fatalf("expected M * inv(M) to be the identity; got %v", got)
	}

	if got := Scale3D(0, 1, 1).InvAffine(); got != (Mat4{}) {
		t.Fatalf("expected singular matrix to invert to zero; got %v", got)
	}
}

func TestAffine3x4(t *testing.T) {
	m := Scale3D(2, 3, 4).Then(Translate3D(5, 6, 7))
	exp := [12]float32{
		2, 0, 0, 5,
		0, 3, 0, 6,
		0, 0, 4, 7,
	}
	if got := m.Affine3x4(); got != exp {
		t.Fatalf("expected row-major affine %v; got %v", exp, got)
	}
	if got := Mat4FromAffine3x4(exp); got != m {
		t.Fatalf("expected expanded matrix %v; got %v", m, got)
	}
}

func TestVectorHelpers(t *testing.T) {
	if got := XYZ(0, 0, 0).Normalize(); got != (Vec3{}) {
		t.Fatalf("expected zero vector to normalize to zero; got %v", got)
	}
	if got := XYZ(3, 0, 4).Normalize(); !got.ApproxEqual(XYZ(0.6, 0, 0.8), 1e-6) {
		t.Fatalf("expected (0.6, 0, 0.8); got %v", got)
	}
	if got := XYZ(1, 0, 0).AngleTo(XYZ(0, 1, 0)); math32.Abs(got-math32.Pi/2) > 1e-6 {
		t.Fatalf("expected right angle; got %f", got)
	}
	if got := XYZ(1, 0, 0).Cross(XYZ(0, 1, 0)); got != XYZ(0, 0, 1) {
		t.Fatalf("expected x cross y to be z; got %v", got)
	}
}
