package plank

import (
	"fmt"
	"math"

	"github.com/akmonengine/plank/constraint"
	"github.com/akmonengine/plank/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// PulleyJointDef describes a pulley: each body hangs from a fixed ground
// anchor and lengthA + ratio * lengthB stays constant.
type PulleyJointDef struct {
	BaseJointDef

	GroundAnchorA mgl64.Vec2
	GroundAnchorB mgl64.Vec2
	LocalAnchorA  mgl64.Vec2
	LocalAnchorB  mgl64.Vec2

	LengthA float64
	LengthB float64

	// Ratio is the pulley ratio, used to simulate a block-and-tackle.
	Ratio float64
}

func NewPulleyJointDef() PulleyJointDef {
	return PulleyJointDef{
		BaseJointDef:  BaseJointDef{CollideConnected: true},
		GroundAnchorA: mgl64.Vec2{-1.0, 1.0},
		GroundAnchorB: mgl64.Vec2{1.0, 1.0},
		LocalAnchorA:  mgl64.Vec2{-1.0, 0.0},
		LocalAnchorB:  mgl64.Vec2{1.0, 0.0},
		Ratio:         1.0,
	}
}

func (def *PulleyJointDef) GetType() JointType {
	return JointTypePulley
}

// Initialize sets the bodies, anchors and lengths from world coordinates.
func (def *PulleyJointDef) Initialize(bodyA, bodyB *Body, groundA, groundB, anchorA, anchorB mgl64.Vec2, ratio float64) {
	def.BodyA = bodyA
	def.BodyB = bodyB
	def.GroundAnchorA = groundA
	def.GroundAnchorB = groundB
	def.LocalAnchorA = bodyA.GetLocalPoint(anchorA)
	def.LocalAnchorB = bodyB.GetLocalPoint(anchorB)
	def.LengthA = anchorA.Sub(groundA).Len()
	def.LengthB = anchorB.Sub(groundB).Len()
	def.Ratio = ratio
}

// PulleyJoint - two bodies hanging on a rope through two fixed pulleys
type PulleyJoint struct {
	joint

	groundAnchorA mgl64.Vec2
	groundAnchorB mgl64.Vec2
	lengthA       float64
	lengthB       float64

	localAnchorA mgl64.Vec2
	localAnchorB mgl64.Vec2
	constant     float64
	ratio        float64
	impulse      float64

	uA, uB mgl64.Vec2
	rA, rB mgl64.Vec2
	mass   float64
}

func newPulleyJoint(def *PulleyJointDef) (*PulleyJoint, error) {
	if math.Abs(def.Ratio) <= geom.Epsilon {
		return nil, fmt.Errorf("%w: pulley ratio must not be zero", ErrInvalidDefinition)
	}

	return &PulleyJoint{
		joint:         newBaseJoint(JointTypePulley, &def.BaseJointDef),
		groundAnchorA: def.GroundAnchorA,
		groundAnchorB: def.GroundAnchorB,
		localAnchorA:  def.LocalAnchorA,
		localAnchorB:  def.LocalAnchorB,
		lengthA:       def.LengthA,
		lengthB:       def.LengthB,
		ratio:         def.Ratio,
		constant:      def.LengthA + def.Ratio*def.LengthB,
	}, nil
}

// ropeDirection returns the unit direction from the ground anchor to the body
// anchor, and the rope length. Short ropes have no direction.
func ropeDirection(anchor, ground mgl64.Vec2) (mgl64.Vec2, float64) {
	u := anchor.Sub(ground)
	length := u.Len()
	if length > 10.0*geom.LinearSlop {
		return u.Mul(1.0 / length), length
	}
	return mgl64.Vec2{}, length
}

func (j *PulleyJoint) InitVelocityConstraints(data *constraint.SolverData) {
	j.loadBodies()

	cA, aA := data.Positions[j.indexA].C, data.Positions[j.indexA].A
	vA, wA := data.Velocities[j.indexA].V, data.Velocities[j.indexA].W
	cB, aB := data.Positions[j.indexB].C, data.Positions[j.indexB].A
	vB, wB := data.Velocities[j.indexB].V, data.Velocities[j.indexB].W

	qA, qB := geom.NewRot(aA), geom.NewRot(aB)

	j.rA = qA.Rotate(j.localAnchorA.Sub(j.localCenterA))
	j.rB = qB.Rotate(j.localAnchorB.Sub(j.localCenterB))

	// Get the pulley axes.
	j.uA, _ = ropeDirection(cA.Add(j.rA), j.groundAnchorA)
	j.uB, _ = ropeDirection(cB.Add(j.rB), j.groundAnchorB)

	// Compute effective mass.
	ruA := geom.Cross(j.rA, j.uA)
	ruB := geom.Cross(j.rB, j.uB)

	mA := j.invMassA + j.invIA*ruA*ruA
	mB := j.invMassB + j.invIB*ruB*ruB

	j.mass = mA + j.ratio*j.ratio*mB
	if j.mass > 0.0 {
		j.mass = 1.0 / j.mass
	}

	if data.Step.WarmStarting {
		// Scale impulses to support variable time steps.
		j.impulse *= data.Step.DtRatio

		// Warm starting.
		PA := j.uA.Mul(-j.impulse)
		PB := j.uB.Mul(-j.ratio * j.impulse)

		vA = vA.Add(PA.Mul(j.invMassA))
		wA += j.invIA * geom.Cross(j.rA, PA)
		vB = vB.Add(PB.Mul(j.invMassB))
		wB += j.invIB * geom.Cross(j.rB, PB)
	} else {
		j.impulse = 0.0
	}

	data.Velocities[j.indexA] = constraint.Velocity{V: vA, W: wA}
	data.Velocities[j.indexB] = constraint.Velocity{V: vB, W: wB}
}

func (j *PulleyJoint) SolveVelocityConstraints(data *constraint.SolverData) {
	vA, wA := data.Velocities[j.indexA].V, data.Velocities[j.indexA].W
	vB, wB := data.Velocities[j.indexB].V, data.Velocities[j.indexB].W

	vpA := vA.Add(geom.CrossSV(wA, j.rA))
	vpB := vB.Add(geom.CrossSV(wB, j.rB))

	Cdot := -j.uA.Dot(vpA) - j.ratio*j.uB.Dot(vpB)
	impulse := -j.mass * Cdot
	j.impulse += impulse

	PA := j.uA.Mul(-impulse)
	PB := j.uB.Mul(-j.ratio * impulse)
	vA = vA.Add(PA.Mul(j.invMassA))
	wA += j.invIA * geom.Cross(j.rA, PA)
	vB = vB.Add(PB.Mul(j.invMassB))
	wB += j.invIB * geom.Cross(j.rB, PB)

	data.Velocities[j.indexA] = constraint.Velocity{V: vA, W: wA}
	data.Velocities[j.indexB] = constraint.Velocity{V: vB, W: wB}
}

func (j *PulleyJoint) SolvePositionConstraints(data *constraint.SolverData) bool {
	cA, aA := data.Positions[j.indexA].C, data.Positions[j.indexA].A
	cB, aB := data.Positions[j.indexB].C, data.Positions[j.indexB].A

	qA, qB := geom.NewRot(aA), geom.NewRot(aB)

	rA := qA.Rotate(j.localAnchorA.Sub(j.localCenterA))
	rB := qB.Rotate(j.localAnchorB.Sub(j.localCenterB))

	// Get the pulley axes.
	uA, lengthA := ropeDirection(cA.Add(rA), j.groundAnchorA)
	uB, lengthB := ropeDirection(cB.Add(rB), j.groundAnchorB)

	// Compute effective mass.
	ruA := geom.Cross(rA, uA)
	ruB := geom.Cross(rB, uB)

	mA := j.invMassA + j.invIA*ruA*ruA
	mB := j.invMassB + j.invIB*ruB*ruB

	mass := mA + j.ratio*j.ratio*mB
	if mass > 0.0 {
		mass = 1.0 / mass
	}

	C := j.constant - lengthA - j.ratio*lengthB
	linearError := math.Abs(C)

	impulse := -mass * C

	PA := uA.Mul(-impulse)
	PB := uB.Mul(-j.ratio * impulse)

	cA = cA.Add(PA.Mul(j.invMassA))
	aA += j.invIA * geom.Cross(rA, PA)
	cB = cB.Add(PB.Mul(j.invMassB))
	aB += j.invIB * geom.Cross(rB, PB)

	data.Positions[j.indexA] = constraint.Position{C: cA, A: aA}
	data.Positions[j.indexB] = constraint.Position{C: cB, A: aB}

	return linearError < geom.LinearSlop
}

func (j *PulleyJoint) GetAnchorA() mgl64.Vec2 {
	return j.bodyA.GetWorldPoint(j.localAnchorA)
}

func (j *PulleyJoint) GetAnchorB() mgl64.Vec2 {
	return j.bodyB.GetWorldPoint(j.localAnchorB)
}

func (j *PulleyJoint) GetReactionForce(invDt float64) mgl64.Vec2 {
	return j.uB.Mul(invDt * j.impulse)
}

func (j *PulleyJoint) GetReactionTorque(invDt float64) float64 {
	return 0.0
}

func (j *PulleyJoint) GetGroundAnchorA() mgl64.Vec2 {
	return j.groundAnchorA
}

func (j *PulleyJoint) GetGroundAnchorB() mgl64.Vec2 {
	return j.groundAnchorB
}

func (j *PulleyJoint) GetLengthA() float64 {
	return j.lengthA
}

func (j *PulleyJoint) GetLengthB() float64 {
	return j.lengthB
}

func (j *PulleyJoint) GetRatio() float64 {
	return j.ratio
}

func (j *PulleyJoint) GetLocalAnchorA() mgl64.Vec2 {
	return j.localAnchorA
}

func (j *PulleyJoint) GetLocalAnchorB() mgl64.Vec2 {
	return j.localAnchorB
}

// GetCurrentLengthA returns the current rope length on side A.
func (j *PulleyJoint) GetCurrentLengthA() float64 {
	return j.GetAnchorA().Sub(j.groundAnchorA).Len()
}

func (j *PulleyJoint) GetCurrentLengthB() float64 {
	return j.GetAnchorB().Sub(j.groundAnchorB).Len()
}
