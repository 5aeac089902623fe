// Package geom holds the 2D math shared by every part of the engine: cross products,
// rotations, rigid transforms, sweeps, bounding boxes and the small matrix solves used
// by the constraint solvers. Vectors and matrices are mathgl's mgl64 types.
package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Cross returns the 2D cross product (z component) of a and b.
func Cross(a, b mgl64.Vec2) float64 {
	return a[0]*b[1] - a[1]*b[0]
}

// CrossVS returns the cross product of a vector and a scalar: (s*v.y, -s*v.x).
func CrossVS(v mgl64.Vec2, s float64) mgl64.Vec2 {
	return mgl64.Vec2{s * v[1], -s * v[0]}
}

// CrossSV returns the cross product of a scalar and a vector: (-s*v.y, s*v.x).
func CrossSV(s float64, v mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{-s * v[1], s * v[0]}
}

// Skew returns the vector rotated by 90 degrees counter clockwise.
func Skew(v mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{-v[1], v[0]}
}

// Normalize returns the unit vector of v and its original length.
// Vectors shorter than Epsilon are returned unchanged with a zero length.
func Normalize(v mgl64.Vec2) (mgl64.Vec2, float64) {
	length := v.Len()
	if length < Epsilon {
		return v, 0.0
	}
	inv := 1.0 / length
	return mgl64.Vec2{v[0] * inv, v[1] * inv}, length
}

func Distance(a, b mgl64.Vec2) float64 {
	return b.Sub(a).Len()
}

func DistanceSquared(a, b mgl64.Vec2) float64 {
	return b.Sub(a).LenSqr()
}

func MinVec(a, b mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{math.Min(a[0], b[0]), math.Min(a[1], b[1])}
}

func MaxVec(a, b mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{math.Max(a[0], b[0]), math.Max(a[1], b[1])}
}

func AbsVec(a mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{math.Abs(a[0]), math.Abs(a[1])}
}

func Neg(a mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{-a[0], -a[1]}
}

// IsValidFloat reports whether x is neither NaN nor infinite.
func IsValidFloat(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func IsValidVec(v mgl64.Vec2) bool {
	return IsValidFloat(v[0]) && IsValidFloat(v[1])
}

// Solve22 solves m * x = b for x where m is a 2x2 matrix. A singular matrix yields zero.
func Solve22(m mgl64.Mat2, b mgl64.Vec2) mgl64.Vec2 {
	a11, a12, a21, a22 := m[0], m[2], m[1], m[3]
	det := a11*a22 - a12*a21
	if det != 0.0 {
		det = 1.0 / det
	}
	return mgl64.Vec2{det * (a22*b[0] - a12*b[1]), det * (a11*b[1] - a21*b[0])}
}

// Solve33 solves m * x = b for x where m is a 3x3 matrix. A singular matrix yields zero.
func Solve33(m mgl64.Mat3, b mgl64.Vec3) mgl64.Vec3 {
	ex, ey, ez := m.Col(0), m.Col(1), m.Col(2)
	det := ex.Dot(ey.Cross(ez))
	if det != 0.0 {
		det = 1.0 / det
	}
	return mgl64.Vec3{
		det * b.Dot(ey.Cross(ez)),
		det * ex.Dot(b.Cross(ez)),
		det * ex.Dot(ey.Cross(b)),
	}
}

// Solve33Upper solves the upper 2x2 block of m * x = b, ignoring the third row and column.
func Solve33Upper(m mgl64.Mat3, b mgl64.Vec2) mgl64.Vec2 {
	a11, a12, a21, a22 := m[0], m[3], m[1], m[4]
	det := a11*a22 - a12*a21
	if det != 0.0 {
		det = 1.0 / det
	}
	return mgl64.Vec2{det * (a22*b[0] - a12*b[1]), det * (a11*b[1] - a21*b[0])}
}

// Inverse22 returns the inverse of the upper 2x2 block of m as a 3x3 matrix with a zero
// third row and column. A singular block yields zero.
func Inverse22(m mgl64.Mat3) mgl64.Mat3 {
	a, b, c, d := m[0], m[3], m[1], m[4]
	det := a*d - b*c
	if det != 0.0 {
		det = 1.0 / det
	}
	return mgl64.Mat3{
		det * d, -det * c, 0,
		-det * b, det * a, 0,
		0, 0, 0,
	}
}

// SymInverse33 returns the inverse of a symmetric 3x3 matrix. A singular matrix yields zero.
func SymInverse33(m mgl64.Mat3) mgl64.Mat3 {
	ex, ey, ez := m.Col(0), m.Col(1), m.Col(2)
	det := ex.Dot(ey.Cross(ez))
	if det != 0.0 {
		det = 1.0 / det
	}

	a11, a12, a13 := ex[0], ey[0], ez[0]
	a22, a23 := ey[1], ez[1]
	a33 := ez[2]

	var r mgl64.Mat3
	r[0] = det * (a22*a33 - a23*a23)
	r[1] = det * (a13*a23 - a12*a33)
	r[2] = det * (a12*a23 - a13*a22)

	r[3] = r[1]
	r[4] = det * (a11*a33 - a13*a13)
	r[5] = det * (a13*a12 - a11*a23)

	r[6] = r[2]
	r[7] = r[5]
	r[8] = det * (a11*a22 - a12*a12)
	return r
}

// Mul22 multiplies the upper 2x2 block of m by v.
func Mul22(m mgl64.Mat3, v mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{m[0]*v[0] + m[3]*v[1], m[1]*v[0] + m[4]*v[1]}
}
