package plank

import (
	"math"

	"github.com/akmonengine/plank/constraint"
	"github.com/akmonengine/plank/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// RopeJointDef bounds the distance between two anchors by MaxLength.
type RopeJointDef struct {
	BaseJointDef

	LocalAnchorA mgl64.Vec2
	LocalAnchorB mgl64.Vec2

	MaxLength float64
}

func NewRopeJointDef() RopeJointDef {
	return RopeJointDef{
		LocalAnchorA: mgl64.Vec2{-1.0, 0.0},
		LocalAnchorB: mgl64.Vec2{1.0, 0.0},
	}
}

func (def *RopeJointDef) GetType() JointType {
	return JointTypeRope
}

// RopeJoint - maximum distance between two anchors
type RopeJoint struct {
	joint

	localAnchorA mgl64.Vec2
	localAnchorB mgl64.Vec2
	maxLength    float64
	length       float64
	impulse      float64

	u      mgl64.Vec2
	rA, rB mgl64.Vec2
	mass   float64
	state  LimitState
}

func newRopeJoint(def *RopeJointDef) *RopeJoint {
	return &RopeJoint{
		joint:        newBaseJoint(JointTypeRope, &def.BaseJointDef),
		localAnchorA: def.LocalAnchorA,
		localAnchorB: def.LocalAnchorB,
		maxLength:    def.MaxLength,
	}
}

func (j *RopeJoint) InitVelocityConstraints(data *constraint.SolverData) {
	j.loadBodies()

	cA, aA := data.Positions[j.indexA].C, data.Positions[j.indexA].A
	vA, wA := data.Velocities[j.indexA].V, data.Velocities[j.indexA].W
	cB, aB := data.Positions[j.indexB].C, data.Positions[j.indexB].A
	vB, wB := data.Velocities[j.indexB].V, data.Velocities[j.indexB].W

	qA, qB := geom.NewRot(aA), geom.NewRot(aB)

	j.rA = qA.Rotate(j.localAnchorA.Sub(j.localCenterA))
	j.rB = qB.Rotate(j.localAnchorB.Sub(j.localCenterB))
	j.u = cB.Add(j.rB).Sub(cA).Sub(j.rA)

	j.length = j.u.Len()

	C := j.length - j.maxLength
	if C > 0.0 {
		j.state = LimitAtUpper
	} else {
		j.state = LimitInactive
	}

	if j.length > geom.LinearSlop {
		j.u = j.u.Mul(1.0 / j.length)
	} else {
		j.u = mgl64.Vec2{}
		j.mass = 0.0
		j.impulse = 0.0
		return
	}

	// Compute effective mass.
	crA := geom.Cross(j.rA, j.u)
	crB := geom.Cross(j.rB, j.u)
	invMass := j.invMassA + j.invIA*crA*crA + j.invMassB + j.invIB*crB*crB

	j.mass = 0.0
	if invMass != 0.0 {
		j.mass = 1.0 / invMass
	}

	if data.Step.WarmStarting {
		// Scale the impulse to support a variable time step.
		j.impulse *= data.Step.DtRatio

		P := j.u.Mul(j.impulse)
		vA = vA.Sub(P.Mul(j.invMassA))
		wA -= j.invIA * geom.Cross(j.rA, P)
		vB = vB.Add(P.Mul(j.invMassB))
		wB += j.invIB * geom.Cross(j.rB, P)
	} else {
		j.impulse = 0.0
	}

	data.Velocities[j.indexA] = constraint.Velocity{V: vA, W: wA}
	data.Velocities[j.indexB] = constraint.Velocity{V: vB, W: wB}
}

func (j *RopeJoint) SolveVelocityConstraints(data *constraint.SolverData) {
	vA, wA := data.Velocities[j.indexA].V, data.Velocities[j.indexA].W
	vB, wB := data.Velocities[j.indexB].V, data.Velocities[j.indexB].W

	// Cdot = dot(u, v + cross(w, r))
	vpA := vA.Add(geom.CrossSV(wA, j.rA))
	vpB := vB.Add(geom.CrossSV(wB, j.rB))
	C := j.length - j.maxLength
	Cdot := j.u.Dot(vpB.Sub(vpA))

	// Predictive constraint.
	if C < 0.0 {
		Cdot += data.Step.InvDt * C
	}

	impulse := -j.mass * Cdot
	oldImpulse := j.impulse
	j.impulse = math.Min(0.0, j.impulse+impulse)
	impulse = j.impulse - oldImpulse

	P := j.u.Mul(impulse)
	vA = vA.Sub(P.Mul(j.invMassA))
	wA -= j.invIA * geom.Cross(j.rA, P)
	vB = vB.Add(P.Mul(j.invMassB))
	wB += j.invIB * geom.Cross(j.rB, P)

	data.Velocities[j.indexA] = constraint.Velocity{V: vA, W: wA}
	data.Velocities[j.indexB] = constraint.Velocity{V: vB, W: wB}
}

func (j *RopeJoint) SolvePositionConstraints(data *constraint.SolverData) bool {
	cA, aA := data.Positions[j.indexA].C, data.Positions[j.indexA].A
	cB, aB := data.Positions[j.indexB].C, data.Positions[j.indexB].A

	qA, qB := geom.NewRot(aA), geom.NewRot(aB)

	rA := qA.Rotate(j.localAnchorA.Sub(j.localCenterA))
	rB := qB.Rotate(j.localAnchorB.Sub(j.localCenterB))
	u, length := geom.Normalize(cB.Add(rB).Sub(cA).Sub(rA))

	C := mgl64.Clamp(length-j.maxLength, 0.0, geom.MaxLinearCorrection)

	impulse := -j.mass * C
	P := u.Mul(impulse)

	cA = cA.Sub(P.Mul(j.invMassA))
	aA -= j.invIA * geom.Cross(rA, P)
	cB = cB.Add(P.Mul(j.invMassB))
	aB += j.invIB * geom.Cross(rB, P)

	data.Positions[j.indexA] = constraint.Position{C: cA, A: aA}
	data.Positions[j.indexB] = constraint.Position{C: cB, A: aB}

	return length-j.maxLength < geom.LinearSlop
}

func (j *RopeJoint) GetAnchorA() mgl64.Vec2 {
	return j.bodyA.GetWorldPoint(j.localAnchorA)
}

func (j *RopeJoint) GetAnchorB() mgl64.Vec2 {
	return j.bodyB.GetWorldPoint(j.localAnchorB)
}

func (j *RopeJoint) GetReactionForce(invDt float64) mgl64.Vec2 {
	return j.u.Mul(invDt * j.impulse)
}

func (j *RopeJoint) GetReactionTorque(invDt float64) float64 {
	return 0.0
}

func (j *RopeJoint) GetLocalAnchorA() mgl64.Vec2 {
	return j.localAnchorA
}

func (j *RopeJoint) GetLocalAnchorB() mgl64.Vec2 {
	return j.localAnchorB
}

func (j *RopeJoint) SetMaxLength(length float64) {
	j.maxLength = length
}

func (j *RopeJoint) GetMaxLength() float64 {
	return j.maxLength
}

func (j *RopeJoint) GetLimitState() LimitState {
	return j.state
}
