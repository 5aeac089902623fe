package plank

import (
	"math"

	"github.com/akmonengine/plank/constraint"
	"github.com/akmonengine/plank/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// DistanceJointDef describes a distance joint: the two anchors are kept at a
// fixed distance, rigidly or through a soft spring.
type DistanceJointDef struct {
	BaseJointDef

	LocalAnchorA mgl64.Vec2
	LocalAnchorB mgl64.Vec2

	// Length is the rest length. It should not be close to zero.
	Length float64

	// FrequencyHz is the spring frequency. Zero makes the joint rigid.
	FrequencyHz  float64
	DampingRatio float64
}

func NewDistanceJointDef() DistanceJointDef {
	return DistanceJointDef{Length: 1.0}
}

func (def *DistanceJointDef) GetType() JointType {
	return JointTypeDistance
}

// Initialize sets the bodies and anchors from world anchors. The length is the
// current distance between the anchors.
func (def *DistanceJointDef) Initialize(bodyA, bodyB *Body, anchorA, anchorB mgl64.Vec2) {
	def.BodyA = bodyA
	def.BodyB = bodyB
	def.LocalAnchorA = bodyA.GetLocalPoint(anchorA)
	def.LocalAnchorB = bodyB.GetLocalPoint(anchorB)
	def.Length = anchorB.Sub(anchorA).Len()
}

// DistanceJoint - keeps two anchors at a given distance
type DistanceJoint struct {
	joint

	frequencyHz  float64
	dampingRatio float64
	bias         float64

	localAnchorA mgl64.Vec2
	localAnchorB mgl64.Vec2
	gamma        float64
	impulse      float64
	length       float64

	u      mgl64.Vec2
	rA, rB mgl64.Vec2
	mass   float64
}

func newDistanceJoint(def *DistanceJointDef) *DistanceJoint {
	return &DistanceJoint{
		joint:        newBaseJoint(JointTypeDistance, &def.BaseJointDef),
		localAnchorA: def.LocalAnchorA,
		localAnchorB: def.LocalAnchorB,
		length:       def.Length,
		frequencyHz:  def.FrequencyHz,
		dampingRatio: def.DampingRatio,
	}
}

// softness returns the gamma and bias of a spring with the given effective
// mass and position error, or zeros when hz is not positive.
func softness(mass, hz, dampingRatio, C, h float64) (gamma, bias float64) {
	if hz <= 0.0 {
		return 0.0, 0.0
	}

	// Frequency
	omega := 2.0 * math.Pi * hz

	// Damping coefficient
	d := 2.0 * mass * dampingRatio * omega

	// Spring stiffness
	k := mass * omega * omega

	// magic formulas
	gamma = h * (d + h*k)
	if gamma != 0.0 {
		gamma = 1.0 / gamma
	}
	bias = C * h * k * gamma
	return gamma, bias
}

func (j *DistanceJoint) InitVelocityConstraints(data *constraint.SolverData) {
	j.loadBodies()

	cA, aA := data.Positions[j.indexA].C, data.Positions[j.indexA].A
	vA, wA := data.Velocities[j.indexA].V, data.Velocities[j.indexA].W
	cB, aB := data.Positions[j.indexB].C, data.Positions[j.indexB].A
	vB, wB := data.Velocities[j.indexB].V, data.Velocities[j.indexB].W

	qA, qB := geom.NewRot(aA), geom.NewRot(aB)

	j.rA = qA.Rotate(j.localAnchorA.Sub(j.localCenterA))
	j.rB = qB.Rotate(j.localAnchorB.Sub(j.localCenterB))
	j.u = cB.Add(j.rB).Sub(cA).Sub(j.rA)

	// Handle singularity.
	length := j.u.Len()
	if length > geom.LinearSlop {
		j.u = j.u.Mul(1.0 / length)
	} else {
		j.u = mgl64.Vec2{}
	}

	crAu := geom.Cross(j.rA, j.u)
	crBu := geom.Cross(j.rB, j.u)
	invMass := j.invMassA + j.invIA*crAu*crAu + j.invMassB + j.invIB*crBu*crBu

	// Compute the effective mass matrix.
	j.mass = 0.0
	if invMass != 0.0 {
		j.mass = 1.0 / invMass
	}

	j.gamma, j.bias = softness(j.mass, j.frequencyHz, j.dampingRatio, length-j.length, data.Step.Dt)
	if j.frequencyHz > 0.0 {
		invMass += j.gamma
		j.mass = 0.0
		if invMass != 0.0 {
			j.mass = 1.0 / invMass
		}
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

func (j *DistanceJoint) SolveVelocityConstraints(data *constraint.SolverData) {
	vA, wA := data.Velocities[j.indexA].V, data.Velocities[j.indexA].W
	vB, wB := data.Velocities[j.indexB].V, data.Velocities[j.indexB].W

	// Cdot = dot(u, v + cross(w, r))
	vpA := vA.Add(geom.CrossSV(wA, j.rA))
	vpB := vB.Add(geom.CrossSV(wB, j.rB))
	Cdot := j.u.Dot(vpB.Sub(vpA))

	impulse := -j.mass * (Cdot + j.bias + j.gamma*j.impulse)
	j.impulse += impulse

	P := j.u.Mul(impulse)
	vA = vA.Sub(P.Mul(j.invMassA))
	wA -= j.invIA * geom.Cross(j.rA, P)
	vB = vB.Add(P.Mul(j.invMassB))
	wB += j.invIB * geom.Cross(j.rB, P)

	data.Velocities[j.indexA] = constraint.Velocity{V: vA, W: wA}
	data.Velocities[j.indexB] = constraint.Velocity{V: vB, W: wB}
}

func (j *DistanceJoint) SolvePositionConstraints(data *constraint.SolverData) bool {
	if j.frequencyHz > 0.0 {
		// There is no position correction for soft distance constraints.
		return true
	}

	cA, aA := data.Positions[j.indexA].C, data.Positions[j.indexA].A
	cB, aB := data.Positions[j.indexB].C, data.Positions[j.indexB].A

	qA, qB := geom.NewRot(aA), geom.NewRot(aB)

	rA := qA.Rotate(j.localAnchorA.Sub(j.localCenterA))
	rB := qB.Rotate(j.localAnchorB.Sub(j.localCenterB))
	u, length := geom.Normalize(cB.Add(rB).Sub(cA).Sub(rA))

	C := mgl64.Clamp(length-j.length, -geom.MaxLinearCorrection, geom.MaxLinearCorrection)

	impulse := -j.mass * C
	P := u.Mul(impulse)

	cA = cA.Sub(P.Mul(j.invMassA))
	aA -= j.invIA * geom.Cross(rA, P)
	cB = cB.Add(P.Mul(j.invMassB))
	aB += j.invIB * geom.Cross(rB, P)

	data.Positions[j.indexA] = constraint.Position{C: cA, A: aA}
	data.Positions[j.indexB] = constraint.Position{C: cB, A: aB}

	return math.Abs(C) < geom.LinearSlop
}

func (j *DistanceJoint) GetAnchorA() mgl64.Vec2 {
	return j.bodyA.GetWorldPoint(j.localAnchorA)
}

func (j *DistanceJoint) GetAnchorB() mgl64.Vec2 {
	return j.bodyB.GetWorldPoint(j.localAnchorB)
}

func (j *DistanceJoint) GetReactionForce(invDt float64) mgl64.Vec2 {
	return j.u.Mul(invDt * j.impulse)
}

func (j *DistanceJoint) GetReactionTorque(invDt float64) float64 {
	return 0.0
}

func (j *DistanceJoint) GetLocalAnchorA() mgl64.Vec2 {
	return j.localAnchorA
}

func (j *DistanceJoint) GetLocalAnchorB() mgl64.Vec2 {
	return j.localAnchorB
}

func (j *DistanceJoint) GetLength() float64 {
	return j.length
}

func (j *DistanceJoint) SetLength(length float64) {
	j.length = length
}

func (j *DistanceJoint) GetFrequency() float64 {
	return j.frequencyHz
}

func (j *DistanceJoint) SetFrequency(hz float64) {
	j.frequencyHz = hz
}

func (j *DistanceJoint) GetDampingRatio() float64 {
	return j.dampingRatio
}

func (j *DistanceJoint) SetDampingRatio(ratio float64) {
	j.dampingRatio = ratio
}
