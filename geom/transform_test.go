package geom

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestRotRoundTrip(t *testing.T) {
	angles := []float64{0, 0.3, math.Pi / 2, -2.5, math.Pi}

	for _, angle := range angles {
		q := NewRot(angle)
		v := mgl64.Vec2{1.5, -0.25}

		back := q.InvRotate(q.Rotate(v))
		if !back.ApproxEqualThreshold(v, 1e-6) {
			t.Errorf("angle %v: InvRotate(Rotate(v)) = %v, want %v", angle, back, v)
		}
		if !mgl64.FloatEqualThreshold(q.GetAngle(), math.Atan2(math.Sin(angle), math.Cos(angle)), 1e-6) {
			t.Errorf("GetAngle() = %v for angle %v", q.GetAngle(), angle)
		}
		if got := q.Mat2().Mul2x1(v); !got.ApproxEqualThreshold(q.Rotate(v), 1e-6) {
			t.Errorf("Mat2().Mul2x1(v) = %v, want %v", got, q.Rotate(v))
		}
	}
}

func TestRotComposition(t *testing.T) {
	a := NewRot(0.4)
	b := NewRot(1.1)

	if got := a.Mul(b).GetAngle(); !mgl64.FloatEqualThreshold(got, 1.5, 1e-6) {
		t.Errorf("Mul angle = %v, want 1.5", got)
	}
	if got := a.MulT(b).GetAngle(); !mgl64.FloatEqualThreshold(got, 0.7, 1e-6) {
		t.Errorf("MulT angle = %v, want 0.7", got)
	}
}

func TestTransformApply(t *testing.T) {
	xf := MakeTransform(mgl64.Vec2{1, 2}, math.Pi/2)

	world := xf.Apply(mgl64.Vec2{1, 0})
	if !world.ApproxEqualThreshold(mgl64.Vec2{1, 3}, 1e-6) {
		t.Errorf("Apply() = %v, want (1, 3)", world)
	}

	local := xf.ApplyInv(world)
	if !local.ApproxEqualThreshold(mgl64.Vec2{1, 0}, 1e-6) {
		t.Errorf("ApplyInv() = %v, want (1, 0)", local)
	}

	other := MakeTransform(mgl64.Vec2{-3, 0.5}, 0.25)
	rel := xf.MulT(other)
	p := mgl64.Vec2{0.3, 0.7}
	if got, want := xf.Apply(rel.Apply(p)), other.Apply(p); !got.ApproxEqualThreshold(want, 1e-6) {
		t.Errorf("MulT composition = %v, want %v", got, want)
	}
	if got, want := xf.Mul(rel).Apply(p), other.Apply(p); !got.ApproxEqualThreshold(want, 1e-6) {
		t.Errorf("Mul composition = %v, want %v", got, want)
	}
}

func TestSweep(t *testing.T) {
	s := Sweep{
		LocalCenter: mgl64.Vec2{0, 0},
		C0:          mgl64.Vec2{0, 0},
		C:           mgl64.Vec2{4, 0},
		A0:          0,
		A:           1,
	}

	xf := s.GetTransform(0.5)
	if !xf.P.ApproxEqualThreshold(mgl64.Vec2{2, 0}, 1e-6) {
		t.Errorf("GetTransform(0.5).P = %v, want (2, 0)", xf.P)
	}
	if !mgl64.FloatEqualThreshold(xf.Q.GetAngle(), 0.5, 1e-6) {
		t.Errorf("GetTransform(0.5) angle = %v, want 0.5", xf.Q.GetAngle())
	}

	s.Advance(0.25)
	if !s.C0.ApproxEqualThreshold(mgl64.Vec2{1, 0}, 1e-6) || !mgl64.FloatEqualThreshold(s.A0, 0.25, 1e-6) {
		t.Errorf("Advance(0.25) gave C0 = %v, A0 = %v", s.C0, s.A0)
	}
	if s.Alpha0 != 0.25 {
		t.Errorf("Alpha0 = %v, want 0.25", s.Alpha0)
	}

	s.A0 = 7
	s.A = 8
	s.Normalize()
	if s.A0 < 0 || s.A0 >= 2*math.Pi || !mgl64.FloatEqualThreshold(s.A-s.A0, 1, 1e-6) {
		t.Errorf("Normalize() gave A0 = %v, A = %v", s.A0, s.A)
	}
}

func TestSolves(t *testing.T) {
	m := mgl64.Mat2{4, 1, 2, 3} // columns (4,1) and (2,3)
	b := mgl64.Vec2{10, 7}
	x := Solve22(m, b)
	if got := m.Mul2x1(x); !got.ApproxEqualThreshold(b, 1e-6) {
		t.Errorf("Solve22: m*x = %v, want %v", got, b)
	}

	m3 := mgl64.Mat3{
		4, 1, 0.5,
		1, 3, 0.2,
		0.5, 0.2, 2,
	}
	b3 := mgl64.Vec3{1, 2, 3}
	x3 := Solve33(m3, b3)
	if got := m3.Mul3x1(x3); !got.ApproxEqualThreshold(b3, 1e-6) {
		t.Errorf("Solve33: m*x = %v, want %v", got, b3)
	}

	inv := SymInverse33(m3)
	if got := inv.Mul3(m3); !got.ApproxEqualThreshold(mgl64.Ident3(), 1e-6) {
		t.Errorf("SymInverse33 * m = %v, want identity", got)
	}

	x2 := Solve33Upper(m3, mgl64.Vec2{1, 2})
	if got := Mul22(m3, x2); !got.ApproxEqualThreshold(mgl64.Vec2{1, 2}, 1e-6) {
		t.Errorf("Solve33Upper: m*x = %v, want (1, 2)", got)
	}

	inv22 := Inverse22(m3)
	if got := Mul22(inv22, Mul22(m3, mgl64.Vec2{0.3, -0.4})); !got.ApproxEqualThreshold(mgl64.Vec2{0.3, -0.4}, 1e-6) {
		t.Errorf("Inverse22 round trip = %v", got)
	}

	if got := Solve22(mgl64.Mat2{}, b); got != (mgl64.Vec2{}) {
		t.Errorf("singular Solve22 = %v, want zero", got)
	}
}

func TestCrossHelpers(t *testing.T) {
	a := mgl64.Vec2{1, 0}
	b := mgl64.Vec2{0, 1}

	if Cross(a, b) != 1 {
		t.Errorf("Cross(x, y) = %v, want 1", Cross(a, b))
	}
	if CrossVS(a, 1) != (mgl64.Vec2{0, -1}) {
		t.Errorf("CrossVS = %v", CrossVS(a, 1))
	}
	if CrossSV(1, a) != (mgl64.Vec2{0, 1}) {
		t.Errorf("CrossSV = %v", CrossSV(1, a))
	}

	n, l := Normalize(mgl64.Vec2{3, 4})
	if l != 5 || !n.ApproxEqualThreshold(mgl64.Vec2{0.6, 0.8}, 1e-6) {
		t.Errorf("Normalize = %v, %v", n, l)
	}
	if _, l := Normalize(mgl64.Vec2{}); l != 0 {
		t.Errorf("Normalize(zero) length = %v, want 0", l)
	}
}
