package math

// Mat3 represents a 3x3 matrix in column-major order.
type Mat3 [9]float32

// Mat3Identity returns an identity matrix.
func Mat3Identity() Mat3 {
	return Mat3{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	}
}

// Mat3FromQuat builds a rotation matrix from a quaternion.
func Mat3FromQuat(q Quat) Mat3 {
	x, y, z, w := q.X, q.Y, q.Z, q.W

	xx := x * x
	yy := y * y
	zz := z * z
	xy := x * y
	xz := x * z
	yz := y * z
	wx := w * x
	wy := w * y
	wz := w * z

	return Mat3{
		1 - 2*(yy+zz), 2 * (xy + wz), 2 * (xz - wy),
		2 * (xy - wz), 1 - 2*(xx+zz), 2 * (yz + wx),
		2 * (xz + wy), 2 * (yz - wx), 1 - 2*(xx+yy),
	}
}

// Row returns row i of the matrix as a vector.
func (m Mat3) Row(i int) Vec3 {
	return Vec3{X: m[i], Y: m[i+3], Z: m[i+6]}
}

// Col returns column i of the matrix as a vector.
func (m Mat3) Col(i int) Vec3 {
	return Vec3{X: m[i*3], Y: m[i*3+1], Z: m[i*3+2]}
}
