package plank

import (
	"math"

	"github.com/akmonengine/plank/constraint"
	"github.com/akmonengine/plank/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// WeldJointDef glues two bodies together. A positive FrequencyHz softens the
// angular constraint.
type WeldJointDef struct {
	BaseJointDef

	LocalAnchorA mgl64.Vec2
	LocalAnchorB mgl64.Vec2

	// ReferenceAngle is bodyB angle minus bodyA angle in the reference state.
	ReferenceAngle float64

	FrequencyHz  float64
	DampingRatio float64
}

func (def *WeldJointDef) GetType() JointType {
	return JointTypeWeld
}

// Initialize sets the bodies, anchors and reference angle from a world anchor.
func (def *WeldJointDef) Initialize(bodyA, bodyB *Body, anchor mgl64.Vec2) {
	def.BodyA = bodyA
	def.BodyB = bodyB
	def.LocalAnchorA = bodyA.GetLocalPoint(anchor)
	def.LocalAnchorB = bodyB.GetLocalPoint(anchor)
	def.ReferenceAngle = bodyB.GetAngle() - bodyA.GetAngle()
}

// WeldJoint - removes all relative motion between two bodies
type WeldJoint struct {
	joint

	frequencyHz  float64
	dampingRatio float64
	bias         float64

	localAnchorA   mgl64.Vec2
	localAnchorB   mgl64.Vec2
	referenceAngle float64
	gamma          float64
	impulse        mgl64.Vec3

	rA, rB mgl64.Vec2
	mass   mgl64.Mat3
}

func newWeldJoint(def *WeldJointDef) *WeldJoint {
	return &WeldJoint{
		joint:          newBaseJoint(JointTypeWeld, &def.BaseJointDef),
		localAnchorA:   def.LocalAnchorA,
		localAnchorB:   def.LocalAnchorB,
		referenceAngle: def.ReferenceAngle,
		frequencyHz:    def.FrequencyHz,
		dampingRatio:   def.DampingRatio,
	}
}

// weldMass builds the 3x3 constraint mass matrix for the anchor offsets.
func weldMass(rA, rB mgl64.Vec2, mA, mB, iA, iB float64) mgl64.Mat3 {
	exx := mA + mB + rA[1]*rA[1]*iA + rB[1]*rB[1]*iB
	eyx := -rA[1]*rA[0]*iA - rB[1]*rB[0]*iB
	ezx := -rA[1]*iA - rB[1]*iB
	eyy := mA + mB + rA[0]*rA[0]*iA + rB[0]*rB[0]*iB
	ezy := rA[0]*iA + rB[0]*iB
	return mgl64.Mat3FromCols(
		mgl64.Vec3{exx, eyx, ezx},
		mgl64.Vec3{eyx, eyy, ezy},
		mgl64.Vec3{ezx, ezy, iA + iB},
	)
}

func (j *WeldJoint) InitVelocityConstraints(data *constraint.SolverData) {
	j.loadBodies()

	aA := data.Positions[j.indexA].A
	vA, wA := data.Velocities[j.indexA].V, data.Velocities[j.indexA].W
	aB := data.Positions[j.indexB].A
	vB, wB := data.Velocities[j.indexB].V, data.Velocities[j.indexB].W

	qA, qB := geom.NewRot(aA), geom.NewRot(aB)

	j.rA = qA.Rotate(j.localAnchorA.Sub(j.localCenterA))
	j.rB = qB.Rotate(j.localAnchorB.Sub(j.localCenterB))

	// J = [-I -r1_skew I r2_skew]
	//     [ 0       -1 0       1]
	// r_skew = [-ry; rx]

	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB

	K := weldMass(j.rA, j.rB, mA, mB, iA, iB)

	switch {
	case j.frequencyHz > 0.0:
		j.mass = geom.Inverse22(K)

		invM := iA + iB
		m := 0.0
		if invM > 0.0 {
			m = 1.0 / invM
		}

		C := aB - aA - j.referenceAngle
		j.gamma, j.bias = softness(m, j.frequencyHz, j.dampingRatio, C, data.Step.Dt)

		invM += j.gamma
		j.mass[8] = 0.0
		if invM != 0.0 {
			j.mass[8] = 1.0 / invM
		}
	case K[8] == 0.0:
		j.mass = geom.Inverse22(K)
		j.gamma = 0.0
		j.bias = 0.0
	default:
		j.mass = geom.SymInverse33(K)
		j.gamma = 0.0
		j.bias = 0.0
	}

	if data.Step.WarmStarting {
		// Scale impulses to support a variable time step.
		j.impulse = j.impulse.Mul(data.Step.DtRatio)

		P := mgl64.Vec2{j.impulse[0], j.impulse[1]}

		vA = vA.Sub(P.Mul(mA))
		wA -= iA * (geom.Cross(j.rA, P) + j.impulse[2])

		vB = vB.Add(P.Mul(mB))
		wB += iB * (geom.Cross(j.rB, P) + j.impulse[2])
	} else {
		j.impulse = mgl64.Vec3{}
	}

	data.Velocities[j.indexA] = constraint.Velocity{V: vA, W: wA}
	data.Velocities[j.indexB] = constraint.Velocity{V: vB, W: wB}
}

func (j *WeldJoint) SolveVelocityConstraints(data *constraint.SolverData) {
	vA, wA := data.Velocities[j.indexA].V, data.Velocities[j.indexA].W
	vB, wB := data.Velocities[j.indexB].V, data.Velocities[j.indexB].W

	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB

	if j.frequencyHz > 0.0 {
		Cdot2 := wB - wA

		impulse2 := -j.mass[8] * (Cdot2 + j.bias + j.gamma*j.impulse[2])
		j.impulse[2] += impulse2

		wA -= iA * impulse2
		wB += iB * impulse2

		Cdot1 := vB.Add(geom.CrossSV(wB, j.rB)).Sub(vA).Sub(geom.CrossSV(wA, j.rA))

		impulse1 := geom.Neg(geom.Mul22(j.mass, Cdot1))
		j.impulse[0] += impulse1[0]
		j.impulse[1] += impulse1[1]

		P := impulse1

		vA = vA.Sub(P.Mul(mA))
		wA -= iA * geom.Cross(j.rA, P)

		vB = vB.Add(P.Mul(mB))
		wB += iB * geom.Cross(j.rB, P)
	} else {
		Cdot1 := vB.Add(geom.CrossSV(wB, j.rB)).Sub(vA).Sub(geom.CrossSV(wA, j.rA))
		Cdot2 := wB - wA
		Cdot := mgl64.Vec3{Cdot1[0], Cdot1[1], Cdot2}

		impulse := j.mass.Mul3x1(Cdot).Mul(-1.0)
		j.impulse = j.impulse.Add(impulse)

		P := mgl64.Vec2{impulse[0], impulse[1]}

		vA = vA.Sub(P.Mul(mA))
		wA -= iA * (geom.Cross(j.rA, P) + impulse[2])

		vB = vB.Add(P.Mul(mB))
		wB += iB * (geom.Cross(j.rB, P) + impulse[2])
	}

	data.Velocities[j.indexA] = constraint.Velocity{V: vA, W: wA}
	data.Velocities[j.indexB] = constraint.Velocity{V: vB, W: wB}
}

func (j *WeldJoint) SolvePositionConstraints(data *constraint.SolverData) bool {
	cA, aA := data.Positions[j.indexA].C, data.Positions[j.indexA].A
	cB, aB := data.Positions[j.indexB].C, data.Positions[j.indexB].A

	qA, qB := geom.NewRot(aA), geom.NewRot(aB)

	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB

	rA := qA.Rotate(j.localAnchorA.Sub(j.localCenterA))
	rB := qB.Rotate(j.localAnchorB.Sub(j.localCenterB))

	var positionError, angularError float64

	K := weldMass(rA, rB, mA, mB, iA, iB)

	C1 := cB.Add(rB).Sub(cA).Sub(rA)
	positionError = C1.Len()

	if j.frequencyHz > 0.0 {
		P := geom.Neg(geom.Solve33Upper(K, C1))

		cA = cA.Sub(P.Mul(mA))
		aA -= iA * geom.Cross(rA, P)

		cB = cB.Add(P.Mul(mB))
		aB += iB * geom.Cross(rB, P)
	} else {
		C2 := aB - aA - j.referenceAngle
		angularError = math.Abs(C2)

		C := mgl64.Vec3{C1[0], C1[1], C2}

		var impulse mgl64.Vec3
		if K[8] > 0.0 {
			impulse = geom.Solve33(K, C).Mul(-1.0)
		} else {
			impulse2 := geom.Neg(geom.Solve33Upper(K, C1))
			impulse = mgl64.Vec3{impulse2[0], impulse2[1], 0.0}
		}

		P := mgl64.Vec2{impulse[0], impulse[1]}

		cA = cA.Sub(P.Mul(mA))
		aA -= iA * (geom.Cross(rA, P) + impulse[2])

		cB = cB.Add(P.Mul(mB))
		aB += iB * (geom.Cross(rB, P) + impulse[2])
	}

	data.Positions[j.indexA] = constraint.Position{C: cA, A: aA}
	data.Positions[j.indexB] = constraint.Position{C: cB, A: aB}

	return positionError <= geom.LinearSlop && angularError <= geom.AngularSlop
}

func (j *WeldJoint) GetAnchorA() mgl64.Vec2 {
	return j.bodyA.GetWorldPoint(j.localAnchorA)
}

func (j *WeldJoint) GetAnchorB() mgl64.Vec2 {
	return j.bodyB.GetWorldPoint(j.localAnchorB)
}

func (j *WeldJoint) GetReactionForce(invDt float64) mgl64.Vec2 {
	return mgl64.Vec2{j.impulse[0], j.impulse[1]}.Mul(invDt)
}

func (j *WeldJoint) GetReactionTorque(invDt float64) float64 {
	return invDt * j.impulse[2]
}

func (j *WeldJoint) GetLocalAnchorA() mgl64.Vec2 {
	return j.localAnchorA
}

func (j *WeldJoint) GetLocalAnchorB() mgl64.Vec2 {
	return j.localAnchorB
}

func (j *WeldJoint) GetReferenceAngle() float64 {
	return j.referenceAngle
}

func (j *WeldJoint) SetFrequency(hz float64) {
	j.frequencyHz = hz
}

func (j *WeldJoint) GetFrequency() float64 {
	return j.frequencyHz
}

func (j *WeldJoint) SetDampingRatio(ratio float64) {
	j.dampingRatio = ratio
}

func (j *WeldJoint) GetDampingRatio() float64 {
	return j.dampingRatio
}
