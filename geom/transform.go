package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Rot is a rotation stored as its sine and cosine.
type Rot struct {
	S, C float64
}

// NewRot creates a rotation from an angle in radians.
func NewRot(angle float64) Rot {
	return Rot{S: math.Sin(angle), C: math.Cos(angle)}
}

// RotIdentity returns the zero rotation.
func RotIdentity() Rot {
	return Rot{S: 0.0, C: 1.0}
}

func (q Rot) GetAngle() float64 {
	return math.Atan2(q.S, q.C)
}

func (q Rot) GetXAxis() mgl64.Vec2 {
	return mgl64.Vec2{q.C, q.S}
}

func (q Rot) GetYAxis() mgl64.Vec2 {
	return mgl64.Vec2{-q.S, q.C}
}

// Mat2 returns the rotation as a mathgl matrix.
func (q Rot) Mat2() mgl64.Mat2 {
	return mgl64.Mat2{q.C, q.S, -q.S, q.C}
}

// Rotate rotates v by q.
func (q Rot) Rotate(v mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{q.C*v[0] - q.S*v[1], q.S*v[0] + q.C*v[1]}
}

// InvRotate rotates v by the inverse of q.
func (q Rot) InvRotate(v mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{q.C*v[0] + q.S*v[1], -q.S*v[0] + q.C*v[1]}
}

// Mul returns q * r.
func (q Rot) Mul(r Rot) Rot {
	return Rot{
		S: q.S*r.C + q.C*r.S,
		C: q.C*r.C - q.S*r.S,
	}
}

// MulT returns transpose(q) * r.
func (q Rot) MulT(r Rot) Rot {
	return Rot{
		S: q.C*r.S - q.S*r.C,
		C: q.C*r.C + q.S*r.S,
	}
}

// Transform represents a position and a rotation in 2D space
type Transform struct {
	P mgl64.Vec2
	Q Rot
}

// NewTransform creates an identity transform
func NewTransform() Transform {
	return Transform{Q: RotIdentity()}
}

func MakeTransform(position mgl64.Vec2, angle float64) Transform {
	return Transform{P: position, Q: NewRot(angle)}
}

// Apply maps a local point to world space.
func (xf Transform) Apply(v mgl64.Vec2) mgl64.Vec2 {
	return xf.Q.Rotate(v).Add(xf.P)
}

// ApplyInv maps a world point to local space.
func (xf Transform) ApplyInv(v mgl64.Vec2) mgl64.Vec2 {
	return xf.Q.InvRotate(v.Sub(xf.P))
}

// Mul returns a * b: the transform b expressed in a's parent frame.
func (xf Transform) Mul(b Transform) Transform {
	return Transform{
		Q: xf.Q.Mul(b.Q),
		P: xf.Q.Rotate(b.P).Add(xf.P),
	}
}

// MulT returns inverse(a) * b: the transform b expressed in a's frame.
func (xf Transform) MulT(b Transform) Transform {
	return Transform{
		Q: xf.Q.MulT(b.Q),
		P: xf.Q.InvRotate(b.P.Sub(xf.P)),
	}
}

// Sweep describes the motion of a body over a time step for continuous collision.
// Shapes are defined relative to the body origin, which may not coincide with the
// center of mass, so the local center is carried along.
type Sweep struct {
	LocalCenter mgl64.Vec2 // local center of mass position
	C0, C       mgl64.Vec2 // center world positions
	A0, A       float64    // world angles

	// Alpha0 is the fraction of the current time step in [0,1] at which C0 and A0 hold.
	Alpha0 float64
}

// GetTransform returns the interpolated transform at beta in [0,1].
func (s Sweep) GetTransform(beta float64) Transform {
	c := s.C0.Mul(1.0 - beta).Add(s.C.Mul(beta))
	angle := (1.0-beta)*s.A0 + beta*s.A

	q := NewRot(angle)
	return Transform{
		Q: q,
		P: c.Sub(q.Rotate(s.LocalCenter)),
	}
}

// Advance moves the start of the sweep forward to alpha.
func (s *Sweep) Advance(alpha float64) {
	beta := (alpha - s.Alpha0) / (1.0 - s.Alpha0)
	s.C0 = s.C0.Add(s.C.Sub(s.C0).Mul(beta))
	s.A0 += beta * (s.A - s.A0)
	s.Alpha0 = alpha
}

// Normalize shifts both angles so that A0 lies in [0, 2pi) without changing the motion.
func (s *Sweep) Normalize() {
	twoPi := 2.0 * math.Pi
	d := twoPi * math.Floor(s.A0/twoPi)
	s.A0 -= d
	s.A -= d
}
