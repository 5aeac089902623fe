package plank

import (
	"math"

	"github.com/akmonengine/plank/constraint"
	"github.com/akmonengine/plank/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// RevoluteJointDef describes a revolute joint: both bodies share an anchor
// point and rotate freely around it, optionally with a limit and a motor.
type RevoluteJointDef struct {
	BaseJointDef

	LocalAnchorA mgl64.Vec2
	LocalAnchorB mgl64.Vec2

	// ReferenceAngle is bodyB angle minus bodyA angle in the reference state.
	ReferenceAngle float64

	EnableLimit bool
	LowerAngle  float64
	UpperAngle  float64

	EnableMotor    bool
	MotorSpeed     float64
	MaxMotorTorque float64
}

func (def *RevoluteJointDef) GetType() JointType {
	return JointTypeRevolute
}

// Initialize sets the bodies, anchors and reference angle from a world anchor.
func (def *RevoluteJointDef) Initialize(bodyA, bodyB *Body, anchor mgl64.Vec2) {
	def.BodyA = bodyA
	def.BodyB = bodyB
	def.LocalAnchorA = bodyA.GetLocalPoint(anchor)
	def.LocalAnchorB = bodyB.GetLocalPoint(anchor)
	def.ReferenceAngle = bodyB.GetAngle() - bodyA.GetAngle()
}

// RevoluteJoint - point to point constraint with an angular limit and motor
type RevoluteJoint struct {
	joint

	localAnchorA   mgl64.Vec2
	localAnchorB   mgl64.Vec2
	referenceAngle float64

	impulse      mgl64.Vec3
	motorImpulse float64

	enableMotor    bool
	maxMotorTorque float64
	motorSpeed     float64

	enableLimit bool
	lowerAngle  float64
	upperAngle  float64

	rA, rB mgl64.Vec2
	// mass is the effective mass of the point to point constraint.
	mass mgl64.Mat3
	// motorMass is the effective mass of the motor and limit.
	motorMass  float64
	limitState LimitState
}

func newRevoluteJoint(def *RevoluteJointDef) *RevoluteJoint {
	return &RevoluteJoint{
		joint:          newBaseJoint(JointTypeRevolute, &def.BaseJointDef),
		localAnchorA:   def.LocalAnchorA,
		localAnchorB:   def.LocalAnchorB,
		referenceAngle: def.ReferenceAngle,
		lowerAngle:     def.LowerAngle,
		upperAngle:     def.UpperAngle,
		maxMotorTorque: def.MaxMotorTorque,
		motorSpeed:     def.MotorSpeed,
		enableLimit:    def.EnableLimit,
		enableMotor:    def.EnableMotor,
		limitState:     LimitInactive,
	}
}

func (j *RevoluteJoint) InitVelocityConstraints(data *constraint.SolverData) {
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

	fixedRotation := iA+iB == 0.0

	exx := mA + mB + j.rA[1]*j.rA[1]*iA + j.rB[1]*j.rB[1]*iB
	eyx := -j.rA[1]*j.rA[0]*iA - j.rB[1]*j.rB[0]*iB
	ezx := -j.rA[1]*iA - j.rB[1]*iB
	eyy := mA + mB + j.rA[0]*j.rA[0]*iA + j.rB[0]*j.rB[0]*iB
	ezy := j.rA[0]*iA + j.rB[0]*iB
	j.mass = mgl64.Mat3FromCols(
		mgl64.Vec3{exx, eyx, ezx},
		mgl64.Vec3{eyx, eyy, ezy},
		mgl64.Vec3{ezx, ezy, iA + iB},
	)

	j.motorMass = iA + iB
	if j.motorMass > 0.0 {
		j.motorMass = 1.0 / j.motorMass
	}

	if !j.enableMotor || fixedRotation {
		j.motorImpulse = 0.0
	}

	if j.enableLimit && !fixedRotation {
		jointAngle := aB - aA - j.referenceAngle
		switch {
		case math.Abs(j.upperAngle-j.lowerAngle) < 2.0*geom.AngularSlop:
			j.limitState = LimitEqual
		case jointAngle <= j.lowerAngle:
			if j.limitState != LimitAtLower {
				j.impulse[2] = 0.0
			}
			j.limitState = LimitAtLower
		case jointAngle >= j.upperAngle:
			if j.limitState != LimitAtUpper {
				j.impulse[2] = 0.0
			}
			j.limitState = LimitAtUpper
		default:
			j.limitState = LimitInactive
			j.impulse[2] = 0.0
		}
	} else {
		j.limitState = LimitInactive
	}

	if data.Step.WarmStarting {
		// Scale impulses to support a variable time step.
		j.impulse = j.impulse.Mul(data.Step.DtRatio)
		j.motorImpulse *= data.Step.DtRatio

		P := mgl64.Vec2{j.impulse[0], j.impulse[1]}

		vA = vA.Sub(P.Mul(mA))
		wA -= iA * (geom.Cross(j.rA, P) + j.motorImpulse + j.impulse[2])

		vB = vB.Add(P.Mul(mB))
		wB += iB * (geom.Cross(j.rB, P) + j.motorImpulse + j.impulse[2])
	} else {
		j.impulse = mgl64.Vec3{}
		j.motorImpulse = 0.0
	}

	data.Velocities[j.indexA] = constraint.Velocity{V: vA, W: wA}
	data.Velocities[j.indexB] = constraint.Velocity{V: vB, W: wB}
}

func (j *RevoluteJoint) SolveVelocityConstraints(data *constraint.SolverData) {
	vA, wA := data.Velocities[j.indexA].V, data.Velocities[j.indexA].W
	vB, wB := data.Velocities[j.indexB].V, data.Velocities[j.indexB].W

	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB

	fixedRotation := iA+iB == 0.0

	// Solve motor constraint.
	if j.enableMotor && j.limitState != LimitEqual && !fixedRotation {
		Cdot := wB - wA - j.motorSpeed
		impulse := -j.motorMass * Cdot
		oldImpulse := j.motorImpulse
		maxImpulse := data.Step.Dt * j.maxMotorTorque
		j.motorImpulse = mgl64.Clamp(j.motorImpulse+impulse, -maxImpulse, maxImpulse)
		impulse = j.motorImpulse - oldImpulse

		wA -= iA * impulse
		wB += iB * impulse
	}

	// Solve limit constraint.
	if j.enableLimit && j.limitState != LimitInactive && !fixedRotation {
		Cdot1 := vB.Add(geom.CrossSV(wB, j.rB)).Sub(vA).Sub(geom.CrossSV(wA, j.rA))
		Cdot2 := wB - wA
		Cdot := mgl64.Vec3{Cdot1[0], Cdot1[1], Cdot2}

		impulse := geom.Solve33(j.mass, Cdot).Mul(-1)

		switch j.limitState {
		case LimitEqual:
			j.impulse = j.impulse.Add(impulse)
		case LimitAtLower, LimitAtUpper:
			newImpulse := j.impulse[2] + impulse[2]
			if (j.limitState == LimitAtLower && newImpulse < 0.0) || (j.limitState == LimitAtUpper && newImpulse > 0.0) {
				ez := j.mass.Col(2)
				rhs := geom.Neg(Cdot1).Add(mgl64.Vec2{ez[0], ez[1]}.Mul(j.impulse[2]))
				reduced := geom.Solve33Upper(j.mass, rhs)
				impulse[0] = reduced[0]
				impulse[1] = reduced[1]
				impulse[2] = -j.impulse[2]
				j.impulse[0] += reduced[0]
				j.impulse[1] += reduced[1]
				j.impulse[2] = 0.0
			} else {
				j.impulse = j.impulse.Add(impulse)
			}
		}

		P := mgl64.Vec2{impulse[0], impulse[1]}

		vA = vA.Sub(P.Mul(mA))
		wA -= iA * (geom.Cross(j.rA, P) + impulse[2])

		vB = vB.Add(P.Mul(mB))
		wB += iB * (geom.Cross(j.rB, P) + impulse[2])
	} else {
		// Solve point to point constraint
		Cdot := vB.Add(geom.CrossSV(wB, j.rB)).Sub(vA).Sub(geom.CrossSV(wA, j.rA))
		impulse := geom.Solve33Upper(j.mass, geom.Neg(Cdot))

		j.impulse[0] += impulse[0]
		j.impulse[1] += impulse[1]

		vA = vA.Sub(impulse.Mul(mA))
		wA -= iA * geom.Cross(j.rA, impulse)

		vB = vB.Add(impulse.Mul(mB))
		wB += iB * geom.Cross(j.rB, impulse)
	}

	data.Velocities[j.indexA] = constraint.Velocity{V: vA, W: wA}
	data.Velocities[j.indexB] = constraint.Velocity{V: vB, W: wB}
}

func (j *RevoluteJoint) SolvePositionConstraints(data *constraint.SolverData) bool {
	cA, aA := data.Positions[j.indexA].C, data.Positions[j.indexA].A
	cB, aB := data.Positions[j.indexB].C, data.Positions[j.indexB].A

	angularError := 0.0
	positionError := 0.0

	fixedRotation := j.invIA+j.invIB == 0.0

	// Solve angular limit constraint.
	if j.enableLimit && j.limitState != LimitInactive && !fixedRotation {
		angle := aB - aA - j.referenceAngle
		limitImpulse := 0.0

		switch j.limitState {
		case LimitEqual:
			// Prevent large angular corrections
			C := mgl64.Clamp(angle-j.lowerAngle, -geom.MaxAngularCorrection, geom.MaxAngularCorrection)
			limitImpulse = -j.motorMass * C
			angularError = math.Abs(C)
		case LimitAtLower:
			C := angle - j.lowerAngle
			angularError = -C

			// Prevent large angular corrections and allow some slop.
			C = mgl64.Clamp(C+geom.AngularSlop, -geom.MaxAngularCorrection, 0.0)
			limitImpulse = -j.motorMass * C
		case LimitAtUpper:
			C := angle - j.upperAngle
			angularError = C

			C = mgl64.Clamp(C-geom.AngularSlop, 0.0, geom.MaxAngularCorrection)
			limitImpulse = -j.motorMass * C
		}

		aA -= j.invIA * limitImpulse
		aB += j.invIB * limitImpulse
	}

	// Solve point to point constraint.
	{
		qA, qB := geom.NewRot(aA), geom.NewRot(aB)
		rA := qA.Rotate(j.localAnchorA.Sub(j.localCenterA))
		rB := qB.Rotate(j.localAnchorB.Sub(j.localCenterB))

		C := cB.Add(rB).Sub(cA).Sub(rA)
		positionError = C.Len()

		mA, mB := j.invMassA, j.invMassB
		iA, iB := j.invIA, j.invIB

		kxx := mA + mB + iA*rA[1]*rA[1] + iB*rB[1]*rB[1]
		kxy := -iA*rA[0]*rA[1] - iB*rB[0]*rB[1]
		kyy := mA + mB + iA*rA[0]*rA[0] + iB*rB[0]*rB[0]
		K := mgl64.Mat2{kxx, kxy, kxy, kyy}

		impulse := geom.Neg(geom.Solve22(K, C))

		cA = cA.Sub(impulse.Mul(mA))
		aA -= iA * geom.Cross(rA, impulse)

		cB = cB.Add(impulse.Mul(mB))
		aB += iB * geom.Cross(rB, impulse)
	}

	data.Positions[j.indexA] = constraint.Position{C: cA, A: aA}
	data.Positions[j.indexB] = constraint.Position{C: cB, A: aB}

	return positionError <= geom.LinearSlop && angularError <= geom.AngularSlop
}

func (j *RevoluteJoint) GetAnchorA() mgl64.Vec2 {
	return j.bodyA.GetWorldPoint(j.localAnchorA)
}

func (j *RevoluteJoint) GetAnchorB() mgl64.Vec2 {
	return j.bodyB.GetWorldPoint(j.localAnchorB)
}

func (j *RevoluteJoint) GetReactionForce(invDt float64) mgl64.Vec2 {
	return mgl64.Vec2{j.impulse[0], j.impulse[1]}.Mul(invDt)
}

func (j *RevoluteJoint) GetReactionTorque(invDt float64) float64 {
	return invDt * j.impulse[2]
}

func (j *RevoluteJoint) GetLocalAnchorA() mgl64.Vec2 {
	return j.localAnchorA
}

func (j *RevoluteJoint) GetLocalAnchorB() mgl64.Vec2 {
	return j.localAnchorB
}

func (j *RevoluteJoint) GetReferenceAngle() float64 {
	return j.referenceAngle
}

// GetJointAngle returns the current angle of bodyB relative to bodyA, in radians.
func (j *RevoluteJoint) GetJointAngle() float64 {
	return j.bodyB.sweep.A - j.bodyA.sweep.A - j.referenceAngle
}

func (j *RevoluteJoint) GetJointSpeed() float64 {
	return j.bodyB.angularVelocity - j.bodyA.angularVelocity
}

func (j *RevoluteJoint) IsLimitEnabled() bool {
	return j.enableLimit
}

func (j *RevoluteJoint) EnableLimit(flag bool) {
	if flag == j.enableLimit {
		return
	}
	j.wakeBodies()
	j.enableLimit = flag
	j.impulse[2] = 0.0
}

func (j *RevoluteJoint) GetLowerLimit() float64 {
	return j.lowerAngle
}

func (j *RevoluteJoint) GetUpperLimit() float64 {
	return j.upperAngle
}

// SetLimits sets the angle range. lower must not exceed upper.
func (j *RevoluteJoint) SetLimits(lower, upper float64) {
	if lower > upper {
		lower, upper = upper, lower
	}
	if lower == j.lowerAngle && upper == j.upperAngle {
		return
	}
	j.wakeBodies()
	j.impulse[2] = 0.0
	j.lowerAngle = lower
	j.upperAngle = upper
}

func (j *RevoluteJoint) IsMotorEnabled() bool {
	return j.enableMotor
}

func (j *RevoluteJoint) EnableMotor(flag bool) {
	if flag == j.enableMotor {
		return
	}
	j.wakeBodies()
	j.enableMotor = flag
}

func (j *RevoluteJoint) GetMotorSpeed() float64 {
	return j.motorSpeed
}

func (j *RevoluteJoint) SetMotorSpeed(speed float64) {
	if speed == j.motorSpeed {
		return
	}
	j.wakeBodies()
	j.motorSpeed = speed
}

func (j *RevoluteJoint) GetMaxMotorTorque() float64 {
	return j.maxMotorTorque
}

func (j *RevoluteJoint) SetMaxMotorTorque(torque float64) {
	if torque == j.maxMotorTorque {
		return
	}
	j.wakeBodies()
	j.maxMotorTorque = torque
}

// GetMotorTorque returns the motor torque applied during the last step.
func (j *RevoluteJoint) GetMotorTorque(invDt float64) float64 {
	return invDt * j.motorImpulse
}

func (j *RevoluteJoint) GetLimitState() LimitState {
	return j.limitState
}
