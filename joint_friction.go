package plank

import (
	"github.com/akmonengine/plank/constraint"
	"github.com/akmonengine/plank/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// FrictionJointDef describes top-down friction: relative motion is resisted
// up to MaxForce and MaxTorque.
type FrictionJointDef struct {
	BaseJointDef

	LocalAnchorA mgl64.Vec2
	LocalAnchorB mgl64.Vec2

	MaxForce  float64
	MaxTorque float64
}

func (def *FrictionJointDef) GetType() JointType {
	return JointTypeFriction
}

// Initialize sets the bodies and anchors from a world anchor.
func (def *FrictionJointDef) Initialize(bodyA, bodyB *Body, anchor mgl64.Vec2) {
	def.BodyA = bodyA
	def.BodyB = bodyB
	def.LocalAnchorA = bodyA.GetLocalPoint(anchor)
	def.LocalAnchorB = bodyB.GetLocalPoint(anchor)
}

// FrictionJoint - planar friction between two bodies
type FrictionJoint struct {
	joint

	localAnchorA mgl64.Vec2
	localAnchorB mgl64.Vec2

	linearImpulse  mgl64.Vec2
	angularImpulse float64
	maxForce       float64
	maxTorque      float64

	rA, rB      mgl64.Vec2
	linearMass  mgl64.Mat3
	angularMass float64
}

func newFrictionJoint(def *FrictionJointDef) *FrictionJoint {
	return &FrictionJoint{
		joint:        newBaseJoint(JointTypeFriction, &def.BaseJointDef),
		localAnchorA: def.LocalAnchorA,
		localAnchorB: def.LocalAnchorB,
		maxForce:     def.MaxForce,
		maxTorque:    def.MaxTorque,
	}
}

func (j *FrictionJoint) InitVelocityConstraints(data *constraint.SolverData) {
	j.loadBodies()

	aA := data.Positions[j.indexA].A
	vA, wA := data.Velocities[j.indexA].V, data.Velocities[j.indexA].W
	aB := data.Positions[j.indexB].A
	vB, wB := data.Velocities[j.indexB].V, data.Velocities[j.indexB].W

	qA, qB := geom.NewRot(aA), geom.NewRot(aB)

	// Compute the effective mass matrix.
	j.rA = qA.Rotate(j.localAnchorA.Sub(j.localCenterA))
	j.rB = qB.Rotate(j.localAnchorB.Sub(j.localCenterB))

	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB

	var K mgl64.Mat3
	K[0] = mA + mB + iA*j.rA[1]*j.rA[1] + iB*j.rB[1]*j.rB[1]
	K[1] = -iA*j.rA[0]*j.rA[1] - iB*j.rB[0]*j.rB[1]
	K[3] = K[1]
	K[4] = mA + mB + iA*j.rA[0]*j.rA[0] + iB*j.rB[0]*j.rB[0]

	j.linearMass = geom.Inverse22(K)

	j.angularMass = iA + iB
	if j.angularMass > 0.0 {
		j.angularMass = 1.0 / j.angularMass
	}

	if data.Step.WarmStarting {
		// Scale impulses to support a variable time step.
		j.linearImpulse = j.linearImpulse.Mul(data.Step.DtRatio)
		j.angularImpulse *= data.Step.DtRatio

		P := j.linearImpulse
		vA = vA.Sub(P.Mul(mA))
		wA -= iA * (geom.Cross(j.rA, P) + j.angularImpulse)
		vB = vB.Add(P.Mul(mB))
		wB += iB * (geom.Cross(j.rB, P) + j.angularImpulse)
	} else {
		j.linearImpulse = mgl64.Vec2{}
		j.angularImpulse = 0.0
	}

	data.Velocities[j.indexA] = constraint.Velocity{V: vA, W: wA}
	data.Velocities[j.indexB] = constraint.Velocity{V: vB, W: wB}
}

func (j *FrictionJoint) SolveVelocityConstraints(data *constraint.SolverData) {
	vA, wA := data.Velocities[j.indexA].V, data.Velocities[j.indexA].W
	vB, wB := data.Velocities[j.indexB].V, data.Velocities[j.indexB].W

	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB

	h := data.Step.Dt

	// Solve angular friction
	{
		Cdot := wB - wA
		impulse := -j.angularMass * Cdot

		oldImpulse := j.angularImpulse
		maxImpulse := h * j.maxTorque
		j.angularImpulse = mgl64.Clamp(j.angularImpulse+impulse, -maxImpulse, maxImpulse)
		impulse = j.angularImpulse - oldImpulse

		wA -= iA * impulse
		wB += iB * impulse
	}

	// Solve linear friction
	{
		Cdot := vB.Add(geom.CrossSV(wB, j.rB)).Sub(vA).Sub(geom.CrossSV(wA, j.rA))

		impulse := geom.Neg(geom.Mul22(j.linearMass, Cdot))
		oldImpulse := j.linearImpulse
		j.linearImpulse = j.linearImpulse.Add(impulse)

		maxImpulse := h * j.maxForce
		if j.linearImpulse.LenSqr() > maxImpulse*maxImpulse {
			j.linearImpulse, _ = geom.Normalize(j.linearImpulse)
			j.linearImpulse = j.linearImpulse.Mul(maxImpulse)
		}

		impulse = j.linearImpulse.Sub(oldImpulse)

		vA = vA.Sub(impulse.Mul(mA))
		wA -= iA * geom.Cross(j.rA, impulse)
		vB = vB.Add(impulse.Mul(mB))
		wB += iB * geom.Cross(j.rB, impulse)
	}

	data.Velocities[j.indexA] = constraint.Velocity{V: vA, W: wA}
	data.Velocities[j.indexB] = constraint.Velocity{V: vB, W: wB}
}

func (j *FrictionJoint) SolvePositionConstraints(data *constraint.SolverData) bool {
	return true
}

func (j *FrictionJoint) GetAnchorA() mgl64.Vec2 {
	return j.bodyA.GetWorldPoint(j.localAnchorA)
}

func (j *FrictionJoint) GetAnchorB() mgl64.Vec2 {
	return j.bodyB.GetWorldPoint(j.localAnchorB)
}

func (j *FrictionJoint) GetReactionForce(invDt float64) mgl64.Vec2 {
	return j.linearImpulse.Mul(invDt)
}

func (j *FrictionJoint) GetReactionTorque(invDt float64) float64 {
	return invDt * j.angularImpulse
}

func (j *FrictionJoint) GetLocalAnchorA() mgl64.Vec2 {
	return j.localAnchorA
}

func (j *FrictionJoint) GetLocalAnchorB() mgl64.Vec2 {
	return j.localAnchorB
}

func (j *FrictionJoint) SetMaxForce(force float64) {
	j.maxForce = force
}

func (j *FrictionJoint) GetMaxForce() float64 {
	return j.maxForce
}

func (j *FrictionJoint) SetMaxTorque(torque float64) {
	j.maxTorque = torque
}

func (j *FrictionJoint) GetMaxTorque() float64 {
	return j.maxTorque
}
