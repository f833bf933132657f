package types

import "github.com/chewxy/math32"

// A 4x4 matrix stored in column-major order (m[col*4+row]). Matrices act on
// column vectors so A.Mul4(B) applies B first and A second. Use Then for
// composing transforms in application order.
type Mat4 [16]float32

// Create identity matrix.
func Ident4() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Create a translation matrix.
func Translate3D(x, y, z float32) Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		x, y, z, 1,
	}
}

// Create a translation matrix from a vector.
func TranslateV(v Vec3) Mat4 {
	return Translate3D(v[0], v[1], v[2])
}

// Create a scale matrix.
func Scale3D(x, y, z float32) Mat4 {
	return Mat4{
		x, 0, 0, 0,
		0, y, 0, 0,
		0, 0, z, 0,
		0, 0, 0, 1,
	}
}

// Create a rotation matrix around the X axis.
func HomogRotate3DX(angle float32) Mat4 {
	sin, cos := math32.Sin(angle), math32.Cos(angle)
	return Mat4{
		1, 0, 0, 0,
		0, cos, sin, 0,
		0, -sin, cos, 0,
		0, 0, 0, 1,
	}
}

// Create a rotation matrix around the Y axis.
func HomogRotate3DY(angle float32) Mat4 {
	sin, cos := math32.Sin(angle), math32.Cos(angle)
	return Mat4{
		cos, 0, -sin, 0,
		0, 1, 0, 0,
		sin, 0, cos, 0,
		0, 0, 0, 1,
	}
}

// Create a rotation matrix around the Z axis.
func HomogRotate3DZ(angle float32) Mat4 {
	sin, cos := math32.Sin(angle), math32.Cos(angle)
	return Mat4{
		cos, sin, 0, 0,
		-sin, cos, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Create a rotation matrix that rolls around Z first, then pitches
// around X and finally yaws around Y. Angles are in radians.
func RotateRollPitchYaw(pitch, yaw, roll float32) Mat4 {
	return HomogRotate3DZ(roll).Then(HomogRotate3DX(pitch)).Then(HomogRotate3DY(yaw))
}

// Create a rotation matrix around an arbitrary normalized axis.
func HomogRotate3D(axis Vec3, angle float32) Mat4 {
	return QuatFromAxisAngle(axis, angle).Mat4()
}

// Convert degrees to radians.
func DegToRad(deg float32) float32 {
	return deg * math32.Pi / 180.0
}

// Multiply two matrices.
func (m Mat4) Mul4(m2 Mat4) Mat4 {
	var out Mat4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += m[k*4+row] * m2[col*4+k]
			}
			out[col*4+row] = sum
		}
	}
	return out
}

// Compose two transforms so that m is applied first and next second.
func (m Mat4) Then(next Mat4) Mat4 {
	return next.Mul4(m)
}

// Multiply matrix with a 4 component column vector.
func (m Mat4) Mul4x1(v Vec4) Vec4 {
	return Vec4{
		m[0]*v[0] + m[4]*v[1] + m[8]*v[2] + m[12]*v[3],
		m[1]*v[0] + m[5]*v[1] + m[9]*v[2] + m[13]*v[3],
		m[2]*v[0] + m[6]*v[1] + m[10]*v[2] + m[14]*v[3],
		m[3]*v[0] + m[7]*v[1] + m[11]*v[2] + m[15]*v[3],
	}
}

// Transform a point (w = 1).
func (m Mat4) TransformPoint(p Vec3) Vec3 {
	return m.Mul4x1(p.Vec4(1)).Vec3()
}

// Transform a direction (w = 0).
func (m Mat4) TransformVector(v Vec3) Vec3 {
	return m.Mul4x1(v.Vec4(0)).Vec3()
}

// Set the column to the given vector and w value.
func (m *Mat4) SetCol(col int, v Vec3, w float32) {
	m[col*4], m[col*4+1], m[col*4+2], m[col*4+3] = v[0], v[1], v[2], w
}

// Transpose matrix.
func (m Mat4) Transpose() Mat4 {
	var out Mat4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			out[row*4+col] = m[col*4+row]
		}
	}
	return out
}

// Invert an affine transformation (bottom row 0,0,0,1). A singular linear
// part yields the zero matrix.
func (m Mat4) InvAffine() Mat4 {
	a00, a01, a02 := m[0], m[4], m[8]
	a10, a11, a12 := m[1], m[5], m[9]
	a20, a21, a22 := m[2], m[6], m[10]

	c00 := a11*a22 - a12*a21
	c01 := a12*a20 - a10*a22
	c02 := a10*a21 - a11*a20

	det := a00*c00 + a01*c01 + a02*c02
	if math32.Abs(det) < 1e-12 {
		return Mat4{}
	}
	invDet := 1.0 / det

	var out Mat4
	// inverse = adj(A) / det; adj is the transposed cofactor matrix.
	out[0] = c00 * invDet
	out[1] = c01 * invDet
	out[2] = c02 * invDet
	out[4] = (a02*a21 - a01*a22) * invDet
	out[5] = (a00*a22 - a02*a20) * invDet
	out[6] = (a01*a20 - a00*a21) * invDet
	out[8] = (a01*a12 - a02*a11) * invDet
	out[9] = (a02*a10 - a00*a12) * invDet
	out[10] = (a00*a11 - a01*a10) * invDet

	t := Vec3{m[12], m[13], m[14]}
	it := out.TransformVector(t).Neg()
	out[12], out[13], out[14], out[15] = it[0], it[1], it[2], 1
	return out
}

// Export the top three rows as a row-major 3x4 matrix, the layout used by
// ray tracing instance descriptors.
func (m Mat4) Affine3x4() [12]float32 {
	var out [12]float32
	for row := 0; row < 3; row++ {
		for col := 0; col < 4; col++ {
			out[row*4+col] = m[col*4+row]
		}
	}
	return out
}

// Expand a row-major 3x4 matrix into a Mat4.
func Mat4FromAffine3x4(a [12]float32) Mat4 {
	out := Ident4()
	for row := 0; row < 3; row++ {
		for col := 0; col < 4; col++ {
			out[col*4+row] = a[row*4+col]
		}
	}
	return out
}

// Return true if all elements of the two matrices are within eps.
func (m Mat4) ApproxEqual(m2 Mat4, eps float32) bool {
	for i := range m {
		if math32.Abs(m[i]-m2[i]) > eps {
			return false
		}
	}
	return true
}
