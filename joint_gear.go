package plank

import (
	"fmt"
	"math"

	"github.com/akmonengine/plank/constraint"
	"github.com/akmonengine/plank/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// GearJointDef connects two revolute or prismatic joints so that
// coordinate1 + ratio * coordinate2 stays constant. Both joints must have a
// static or kinematic bodyA, and BodyA/BodyB must be the bodyB of Joint1 and
// Joint2.
type GearJointDef struct {
	BaseJointDef

	Joint1 Joint
	Joint2 Joint

	Ratio float64
}

// NewGearJointDef fills the bodies from the two gears.
func NewGearJointDef(joint1, joint2 Joint, ratio float64) GearJointDef {
	def := GearJointDef{Joint1: joint1, Joint2: joint2, Ratio: ratio}
	if joint1 != nil {
		def.BodyA = joint1.GetBodyB()
	}
	if joint2 != nil {
		def.BodyB = joint2.GetBodyB()
	}
	return def
}

func (def *GearJointDef) GetType() JointType {
	return JointTypeGear
}

// gearSide is the part of a gear joint built from one of its two joints.
type gearSide struct {
	jointType      JointType
	localAnchor    mgl64.Vec2
	localAnchorRef mgl64.Vec2
	localAxisRef   mgl64.Vec2
	referenceAngle float64
}

// GearJoint - couples the coordinates of two joints
type GearJoint struct {
	joint

	joint1 Joint
	joint2 Joint

	sideA gearSide
	sideB gearSide

	// bodyC and bodyD are the reference bodies of joint1 and joint2.
	bodyC *Body
	bodyD *Body

	constant float64
	ratio    float64
	impulse  float64

	indexC, indexD int
	lcC, lcD       mgl64.Vec2
	mC, mD         float64
	iC, iD         float64

	JvAC, JvBD         mgl64.Vec2
	JwA, JwB, JwC, JwD float64
	mass               float64
}

func newGearSide(j Joint) (gearSide, error) {
	switch g := j.(type) {
	case *RevoluteJoint:
		return gearSide{
			jointType:      JointTypeRevolute,
			localAnchorRef: g.localAnchorA,
			localAnchor:    g.localAnchorB,
			referenceAngle: g.referenceAngle,
		}, nil
	case *PrismaticJoint:
		return gearSide{
			jointType:      JointTypePrismatic,
			localAnchorRef: g.localAnchorA,
			localAnchor:    g.localAnchorB,
			referenceAngle: g.referenceAngle,
			localAxisRef:   g.localXAxisA,
		}, nil
	default:
		return gearSide{}, fmt.Errorf("%w: gear joint needs revolute or prismatic joints", ErrInvalidDefinition)
	}
}

// coordinate returns the joint coordinate of side s, body being the moving
// body and ref the reference body.
func (s gearSide) coordinate(body, ref *Body) float64 {
	if s.jointType == JointTypeRevolute {
		return body.sweep.A - ref.sweep.A - s.referenceAngle
	}

	xf, xfRef := body.xf, ref.xf
	pRef := s.localAnchorRef
	p := xfRef.Q.InvRotate(xf.Q.Rotate(s.localAnchor).Add(xf.P.Sub(xfRef.P)))
	return p.Sub(pRef).Dot(s.localAxisRef)
}

func newGearJoint(def *GearJointDef) (*GearJoint, error) {
	if def.Joint1 == nil || def.Joint2 == nil {
		return nil, fmt.Errorf("%w: gear joint needs two joints", ErrInvalidDefinition)
	}

	sideA, err := newGearSide(def.Joint1)
	if err != nil {
		return nil, err
	}
	sideB, err := newGearSide(def.Joint2)
	if err != nil {
		return nil, err
	}

	j := &GearJoint{
		joint:  newBaseJoint(JointTypeGear, &def.BaseJointDef),
		joint1: def.Joint1,
		joint2: def.Joint2,
		sideA:  sideA,
		sideB:  sideB,
		ratio:  def.Ratio,
	}

	j.bodyC = def.Joint1.GetBodyA()
	j.bodyA = def.Joint1.GetBodyB()
	j.bodyD = def.Joint2.GetBodyA()
	j.bodyB = def.Joint2.GetBodyB()

	coordinateA := sideA.coordinate(j.bodyA, j.bodyC)
	coordinateB := sideB.coordinate(j.bodyB, j.bodyD)
	j.constant = coordinateA + j.ratio*coordinateB

	return j, nil
}

func (j *GearJoint) GetJoint1() Joint {
	return j.joint1
}

func (j *GearJoint) GetJoint2() Joint {
	return j.joint2
}

func (j *GearJoint) SetRatio(ratio float64) {
	j.ratio = ratio
}

func (j *GearJoint) GetRatio() float64 {
	return j.ratio
}

// jacobian computes the constraint rows and the inverse effective mass for
// the given body angles and centers.
func (j *GearJoint) jacobian(qA, qB, qC, qD geom.Rot) (JvAC, JvBD mgl64.Vec2, JwA, JwB, JwC, JwD, mass float64) {
	if j.sideA.jointType == JointTypeRevolute {
		JwA = 1.0
		JwC = 1.0
		mass += j.invIA + j.iC
	} else {
		u := qC.Rotate(j.sideA.localAxisRef)
		rC := qC.Rotate(j.sideA.localAnchorRef.Sub(j.lcC))
		rA := qA.Rotate(j.sideA.localAnchor.Sub(j.localCenterA))
		JvAC = u
		JwC = geom.Cross(rC, u)
		JwA = geom.Cross(rA, u)
		mass += j.mC + j.invMassA + j.iC*JwC*JwC + j.invIA*JwA*JwA
	}

	if j.sideB.jointType == JointTypeRevolute {
		JwB = j.ratio
		JwD = j.ratio
		mass += j.ratio * j.ratio * (j.invIB + j.iD)
	} else {
		u := qD.Rotate(j.sideB.localAxisRef)
		rD := qD.Rotate(j.sideB.localAnchorRef.Sub(j.lcD))
		rB := qB.Rotate(j.sideB.localAnchor.Sub(j.localCenterB))
		JvBD = u.Mul(j.ratio)
		JwD = j.ratio * geom.Cross(rD, u)
		JwB = j.ratio * geom.Cross(rB, u)
		mass += j.ratio*j.ratio*(j.mD+j.invMassB) + j.iD*JwD*JwD + j.invIB*JwB*JwB
	}
	return
}

func (j *GearJoint) InitVelocityConstraints(data *constraint.SolverData) {
	j.loadBodies()
	j.indexC = j.bodyC.islandIndex
	j.indexD = j.bodyD.islandIndex
	j.lcC = j.bodyC.sweep.LocalCenter
	j.lcD = j.bodyD.sweep.LocalCenter
	j.mC = j.bodyC.invMass
	j.mD = j.bodyD.invMass
	j.iC = j.bodyC.invI
	j.iD = j.bodyD.invI

	qA := geom.NewRot(data.Positions[j.indexA].A)
	qB := geom.NewRot(data.Positions[j.indexB].A)
	qC := geom.NewRot(data.Positions[j.indexC].A)
	qD := geom.NewRot(data.Positions[j.indexD].A)

	vA, wA := data.Velocities[j.indexA].V, data.Velocities[j.indexA].W
	vB, wB := data.Velocities[j.indexB].V, data.Velocities[j.indexB].W
	vC, wC := data.Velocities[j.indexC].V, data.Velocities[j.indexC].W
	vD, wD := data.Velocities[j.indexD].V, data.Velocities[j.indexD].W

	j.JvAC, j.JvBD, j.JwA, j.JwB, j.JwC, j.JwD, j.mass = j.jacobian(qA, qB, qC, qD)

	// Compute effective mass.
	if j.mass > 0.0 {
		j.mass = 1.0 / j.mass
	} else {
		j.mass = 0.0
	}

	if data.Step.WarmStarting {
		vA = vA.Add(j.JvAC.Mul(j.invMassA * j.impulse))
		wA += j.invIA * j.impulse * j.JwA
		vB = vB.Add(j.JvBD.Mul(j.invMassB * j.impulse))
		wB += j.invIB * j.impulse * j.JwB
		vC = vC.Sub(j.JvAC.Mul(j.mC * j.impulse))
		wC -= j.iC * j.impulse * j.JwC
		vD = vD.Sub(j.JvBD.Mul(j.mD * j.impulse))
		wD -= j.iD * j.impulse * j.JwD
	} else {
		j.impulse = 0.0
	}

	data.Velocities[j.indexA] = constraint.Velocity{V: vA, W: wA}
	data.Velocities[j.indexB] = constraint.Velocity{V: vB, W: wB}
	data.Velocities[j.indexC] = constraint.Velocity{V: vC, W: wC}
	data.Velocities[j.indexD] = constraint.Velocity{V: vD, W: wD}
}

func (j *GearJoint) SolveVelocityConstraints(data *constraint.SolverData) {
	vA, wA := data.Velocities[j.indexA].V, data.Velocities[j.indexA].W
	vB, wB := data.Velocities[j.indexB].V, data.Velocities[j.indexB].W
	vC, wC := data.Velocities[j.indexC].V, data.Velocities[j.indexC].W
	vD, wD := data.Velocities[j.indexD].V, data.Velocities[j.indexD].W

	Cdot := j.JvAC.Dot(vA.Sub(vC)) + j.JvBD.Dot(vB.Sub(vD))
	Cdot += (j.JwA*wA - j.JwC*wC) + (j.JwB*wB - j.JwD*wD)

	impulse := -j.mass * Cdot
	j.impulse += impulse

	vA = vA.Add(j.JvAC.Mul(j.invMassA * impulse))
	wA += j.invIA * impulse * j.JwA
	vB = vB.Add(j.JvBD.Mul(j.invMassB * impulse))
	wB += j.invIB * impulse * j.JwB
	vC = vC.Sub(j.JvAC.Mul(j.mC * impulse))
	wC -= j.iC * impulse * j.JwC
	vD = vD.Sub(j.JvBD.Mul(j.mD * impulse))
	wD -= j.iD * impulse * j.JwD

	data.Velocities[j.indexA] = constraint.Velocity{V: vA, W: wA}
	data.Velocities[j.indexB] = constraint.Velocity{V: vB, W: wB}
	data.Velocities[j.indexC] = constraint.Velocity{V: vC, W: wC}
	data.Velocities[j.indexD] = constraint.Velocity{V: vD, W: wD}
}

func (j *GearJoint) SolvePositionConstraints(data *constraint.SolverData) bool {
	cA, aA := data.Positions[j.indexA].C, data.Positions[j.indexA].A
	cB, aB := data.Positions[j.indexB].C, data.Positions[j.indexB].A
	cC, aC := data.Positions[j.indexC].C, data.Positions[j.indexC].A
	cD, aD := data.Positions[j.indexD].C, data.Positions[j.indexD].A

	qA, qB, qC, qD := geom.NewRot(aA), geom.NewRot(aB), geom.NewRot(aC), geom.NewRot(aD)

	JvAC, JvBD, JwA, JwB, JwC, JwD, mass := j.jacobian(qA, qB, qC, qD)

	var coordinateA, coordinateB float64
	if j.sideA.jointType == JointTypeRevolute {
		coordinateA = aA - aC - j.sideA.referenceAngle
	} else {
		rA := qA.Rotate(j.sideA.localAnchor.Sub(j.localCenterA))
		pC := j.sideA.localAnchorRef.Sub(j.lcC)
		pA := qC.InvRotate(rA.Add(cA.Sub(cC)))
		coordinateA = pA.Sub(pC).Dot(j.sideA.localAxisRef)
	}
	if j.sideB.jointType == JointTypeRevolute {
		coordinateB = aB - aD - j.sideB.referenceAngle
	} else {
		rB := qB.Rotate(j.sideB.localAnchor.Sub(j.localCenterB))
		pD := j.sideB.localAnchorRef.Sub(j.lcD)
		pB := qD.InvRotate(rB.Add(cB.Sub(cD)))
		coordinateB = pB.Sub(pD).Dot(j.sideB.localAxisRef)
	}

	C := (coordinateA + j.ratio*coordinateB) - j.constant

	impulse := 0.0
	if mass > 0.0 {
		impulse = -C / mass
	}

	cA = cA.Add(JvAC.Mul(j.invMassA * impulse))
	aA += j.invIA * impulse * JwA
	cB = cB.Add(JvBD.Mul(j.invMassB * impulse))
	aB += j.invIB * impulse * JwB
	cC = cC.Sub(JvAC.Mul(j.mC * impulse))
	aC -= j.iC * impulse * JwC
	cD = cD.Sub(JvBD.Mul(j.mD * impulse))
	aD -= j.iD * impulse * JwD

	data.Positions[j.indexA] = constraint.Position{C: cA, A: aA}
	data.Positions[j.indexB] = constraint.Position{C: cB, A: aB}
	data.Positions[j.indexC] = constraint.Position{C: cC, A: aC}
	data.Positions[j.indexD] = constraint.Position{C: cD, A: aD}

	return math.Abs(C) < geom.LinearSlop
}

func (j *GearJoint) GetAnchorA() mgl64.Vec2 {
	return j.bodyA.GetWorldPoint(j.sideA.localAnchor)
}

func (j *GearJoint) GetAnchorB() mgl64.Vec2 {
	return j.bodyB.GetWorldPoint(j.sideB.localAnchor)
}

func (j *GearJoint) GetReactionForce(invDt float64) mgl64.Vec2 {
	return j.JvAC.Mul(invDt * j.impulse)
}

func (j *GearJoint) GetReactionTorque(invDt float64) float64 {
	return invDt * j.impulse * j.JwA
}
