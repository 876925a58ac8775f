package math

import "math"

// Quat represents a quaternion for 3D rotations.
// Components are stored as X, Y, Z, W where W is the scalar part.
type Quat struct {
	X, Y, Z, W float32
}

// QuatIdentity returns an identity quaternion (no rotation).
func QuatIdentity() Quat {
	return Quat{X: 0, Y: 0, Z: 0, W: 1}
}

// QuatFromAxisAngle creates a quaternion from axis-angle rotation.
// axis should be normalized, angle is in radians.
func QuatFromAxisAngle(axis Vec3, angle float32) Quat {
	halfAngle := angle / 2
	s := float32(math.Sin(float64(halfAngle)))
	return Quat{
		X: axis.X * s,
		Y: axis.Y * s,
		Z: axis.Z * s,
		W: float32(math.Cos(float64(halfAngle))),
	}
}

// QuatFromMat3 extracts the rotation quaternion from a 3x3 rotation matrix.
// The matrix must be orthonormal; the result is normalized.
func QuatFromMat3(m Mat3) Quat {
	var q Quat
	trace := m[0] + m[4] + m[8]
	switch {
	case trace > 0:
		s := float32(math.Sqrt(float64(trace+1))) * 2
		q = Quat{
			X: (m[5] - m[7]) / s,
			Y: (m[6] - m[2]) / s,
			Z: (m[1] - m[3]) / s,
			W: s / 4,
		}
	case m[0] > m[4] && m[0] > m[8]:
		s := float32(math.Sqrt(float64(1+m[0]-m[4]-m[8]))) * 2
		q = Quat{
			X: s / 4,
			Y: (m[3] + m[1]) / s,
			Z: (m[6] + m[2]) / s,
			W: (m[5] - m[7]) / s,
		}
	case m[4] > m[8]:
		s := float32(math.Sqrt(float64(1+m[4]-m[0]-m[8]))) * 2
		q = Quat{
			X: (m[3] + m[1]) / s,
			Y: s / 4,
			Z: (m[7] + m[5]) / s,
			W: (m[6] - m[2]) / s,
		}
	default:
		s := float32(math.Sqrt(float64(1+m[8]-m[0]-m[4]))) * 2
		q = Quat{
			X: (m[6] + m[2]) / s,
			Y: (m[7] + m[5]) / s,
			Z: s / 4,
			W: (m[1] - m[3]) / s,
		}
	}
	return q.Normalize()
}

// Normalize returns a normalized quaternion.
func (q Quat) Normalize() Quat {
	length := float32(math.Sqrt(float64(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)))
	if length < 0.0001 {
		return QuatIdentity()
	}
	invLen := 1.0 / length
	return Quat{
		X: q.X * invLen,
		Y: q.Y * invLen,
		Z: q.Z * invLen,
		W: q.W * invLen,
	}
}

// Dot returns the dot product of two quaternions.
func (q Quat) Dot(other Quat) float32 {
	return q.X*other.X + q.Y*other.Y + q.Z*other.Z + q.W*other.W
}

// Mul multiplies two quaternions (combines rotations).
func (q Quat) Mul(other Quat) Quat {
	return Quat{
		X: q.W*other.X + q.X*other.W + q.Y*other.Z - q.Z*other.Y,
		Y: q.W*other.Y - q.X*other.Z + q.Y*other.W + q.Z*other.X,
		Z: q.W*other.Z + q.X*other.Y - q.Y*other.X + q.Z*other.W,
		W: q.W*other.W - q.X*other.X - q.Y*other.Y - q.Z*other.Z,
	}
}

// Conjugate returns the conjugate quaternion. For a unit quaternion this is
// its inverse rotation.
func (q Quat) Conjugate() Quat {
	return Quat{X: -q.X, Y: -q.Y, Z: -q.Z, W: q.W}
}

// IsFinite reports whether all components are finite (neither NaN nor Inf).
func (q Quat) IsFinite() bool {
	return isFinite(q.X) && isFinite(q.Y) && isFinite(q.Z) && isFinite(q.W)
}
