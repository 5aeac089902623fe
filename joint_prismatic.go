package plank

import (
	"math"

	"github.com/akmonengine/plank/constraint"
	"github.com/akmonengine/plank/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// PrismaticJointDef describes a prismatic joint: bodyB slides along an axis
// fixed in bodyA, without relative rotation.
type PrismaticJointDef struct {
	BaseJointDef

	LocalAnchorA mgl64.Vec2
	LocalAnchorB mgl64.Vec2
	// LocalAxisA is the unit translation axis in bodyA.
	LocalAxisA     mgl64.Vec2
	ReferenceAngle float64

	EnableLimit      bool
	LowerTranslation float64
	UpperTranslation float64

	EnableMotor   bool
	MaxMotorForce float64
	MotorSpeed    float64
}

func NewPrismaticJointDef() PrismaticJointDef {
	return PrismaticJointDef{LocalAxisA: mgl64.Vec2{1.0, 0.0}}
}

func (def *PrismaticJointDef) GetType() JointType {
	return JointTypePrismatic
}

// Initialize sets the bodies, anchors, axis and reference angle from a world
// anchor and a world axis.
func (def *PrismaticJointDef) Initialize(bodyA, bodyB *Body, anchor, axis mgl64.Vec2) {
	def.BodyA = bodyA
	def.BodyB = bodyB
	def.LocalAnchorA = bodyA.GetLocalPoint(anchor)
	def.LocalAnchorB = bodyB.GetLocalPoint(anchor)
	def.LocalAxisA = bodyA.GetLocalVector(axis)
	def.ReferenceAngle = bodyB.GetAngle() - bodyA.GetAngle()
}

// PrismaticJoint - a slider with a translation limit and a linear motor
type PrismaticJoint struct {
	joint

	localAnchorA   mgl64.Vec2
	localAnchorB   mgl64.Vec2
	localXAxisA    mgl64.Vec2
	localYAxisA    mgl64.Vec2
	referenceAngle float64

	impulse      mgl64.Vec3
	motorImpulse float64

	lowerTranslation float64
	upperTranslation float64
	maxMotorForce    float64
	motorSpeed       float64
	enableLimit      bool
	enableMotor      bool
	limitState       LimitState

	axis, perp mgl64.Vec2
	s1, s2     float64
	a1, a2     float64
	K          mgl64.Mat3
	motorMass  float64
}

func newPrismaticJoint(def *PrismaticJointDef) *PrismaticJoint {
	xAxis, _ := geom.Normalize(def.LocalAxisA)
	return &PrismaticJoint{
		joint:            newBaseJoint(JointTypePrismatic, &def.BaseJointDef),
		localAnchorA:     def.LocalAnchorA,
		localAnchorB:     def.LocalAnchorB,
		localXAxisA:      xAxis,
		localYAxisA:      geom.CrossSV(1.0, xAxis),
		referenceAngle:   def.ReferenceAngle,
		lowerTranslation: def.LowerTranslation,
		upperTranslation: def.UpperTranslation,
		maxMotorForce:    def.MaxMotorForce,
		motorSpeed:       def.MotorSpeed,
		enableLimit:      def.EnableLimit,
		enableMotor:      def.EnableMotor,
		limitState:       LimitInactive,
	}
}

// prismaticMass builds the 3x3 mass of the perpendicular, angular and axial
// constraints.
func prismaticMass(mA, mB, iA, iB, s1, s2, a1, a2 float64) mgl64.Mat3 {
	k11 := mA + mB + iA*s1*s1 + iB*s2*s2
	k12 := iA*s1 + iB*s2
	k13 := iA*s1*a1 + iB*s2*a2
	k22 := iA + iB
	if k22 == 0.0 {
		// For bodies with fixed rotation.
		k22 = 1.0
	}
	k23 := iA*a1 + iB*a2
	k33 := mA + mB + iA*a1*a1 + iB*a2*a2

	return mgl64.Mat3FromCols(
		mgl64.Vec3{k11, k12, k13},
		mgl64.Vec3{k12, k22, k23},
		mgl64.Vec3{k13, k23, k33},
	)
}

func (j *PrismaticJoint) InitVelocityConstraints(data *constraint.SolverData) {
	j.loadBodies()

	cA, aA := data.Positions[j.indexA].C, data.Positions[j.indexA].A
	vA, wA := data.Velocities[j.indexA].V, data.Velocities[j.indexA].W
	cB, aB := data.Positions[j.indexB].C, data.Positions[j.indexB].A
	vB, wB := data.Velocities[j.indexB].V, data.Velocities[j.indexB].W

	qA, qB := geom.NewRot(aA), geom.NewRot(aB)

	// Compute the effective masses.
	rA := qA.Rotate(j.localAnchorA.Sub(j.localCenterA))
	rB := qB.Rotate(j.localAnchorB.Sub(j.localCenterB))
	d := cB.Sub(cA).Add(rB).Sub(rA)

	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB

	// Compute motor Jacobian and effective mass.
	j.axis = qA.Rotate(j.localXAxisA)
	j.a1 = geom.Cross(d.Add(rA), j.axis)
	j.a2 = geom.Cross(rB, j.axis)

	j.motorMass = mA + mB + iA*j.a1*j.a1 + iB*j.a2*j.a2
	if j.motorMass > 0.0 {
		j.motorMass = 1.0 / j.motorMass
	}

	// Prismatic constraint.
	j.perp = qA.Rotate(j.localYAxisA)
	j.s1 = geom.Cross(d.Add(rA), j.perp)
	j.s2 = geom.Cross(rB, j.perp)

	j.K = prismaticMass(mA, mB, iA, iB, j.s1, j.s2, j.a1, j.a2)

	// Compute motor and limit terms.
	if j.enableLimit {
		jointTranslation := j.axis.Dot(d)
		switch {
		case math.Abs(j.upperTranslation-j.lowerTranslation) < 2.0*geom.LinearSlop:
			j.limitState = LimitEqual
		case jointTranslation <= j.lowerTranslation:
			if j.limitState != LimitAtLower {
				j.limitState = LimitAtLower
				j.impulse[2] = 0.0
			}
		case jointTranslation >= j.upperTranslation:
			if j.limitState != LimitAtUpper {
				j.limitState = LimitAtUpper
				j.impulse[2] = 0.0
			}
		default:
			j.limitState = LimitInactive
			j.impulse[2] = 0.0
		}
	} else {
		j.limitState = LimitInactive
		j.impulse[2] = 0.0
	}

	if !j.enableMotor {
		j.motorImpulse = 0.0
	}

	if data.Step.WarmStarting {
		// Account for variable time step.
		j.impulse = j.impulse.Mul(data.Step.DtRatio)
		j.motorImpulse *= data.Step.DtRatio

		axial := j.motorImpulse + j.impulse[2]
		P := j.perp.Mul(j.impulse[0]).Add(j.axis.Mul(axial))
		LA := j.impulse[0]*j.s1 + j.impulse[1] + axial*j.a1
		LB := j.impulse[0]*j.s2 + j.impulse[1] + axial*j.a2

		vA = vA.Sub(P.Mul(mA))
		wA -= iA * LA

		vB = vB.Add(P.Mul(mB))
		wB += iB * LB
	} else {
		j.impulse = mgl64.Vec3{}
		j.motorImpulse = 0.0
	}

	data.Velocities[j.indexA] = constraint.Velocity{V: vA, W: wA}
	data.Velocities[j.indexB] = constraint.Velocity{V: vB, W: wB}
}

func (j *PrismaticJoint) SolveVelocityConstraints(data *constraint.SolverData) {
	vA, wA := data.Velocities[j.indexA].V, data.Velocities[j.indexA].W
	vB, wB := data.Velocities[j.indexB].V, data.Velocities[j.indexB].W

	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB

	// Solve linear motor constraint.
	if j.enableMotor && j.limitState != LimitEqual {
		Cdot := j.axis.Dot(vB.Sub(vA)) + j.a2*wB - j.a1*wA
		impulse := j.motorMass * (j.motorSpeed - Cdot)
		oldImpulse := j.motorImpulse
		maxImpulse := data.Step.Dt * j.maxMotorForce
		j.motorImpulse = mgl64.Clamp(j.motorImpulse+impulse, -maxImpulse, maxImpulse)
		impulse = j.motorImpulse - oldImpulse

		P := j.axis.Mul(impulse)
		LA := impulse * j.a1
		LB := impulse * j.a2

		vA = vA.Sub(P.Mul(mA))
		wA -= iA * LA

		vB = vB.Add(P.Mul(mB))
		wB += iB * LB
	}

	Cdot1 := mgl64.Vec2{
		j.perp.Dot(vB.Sub(vA)) + j.s2*wB - j.s1*wA,
		wB - wA,
	}

	if j.enableLimit && j.limitState != LimitInactive {
		// Solve prismatic and limit constraint in block form.
		Cdot2 := j.axis.Dot(vB.Sub(vA)) + j.a2*wB - j.a1*wA
		Cdot := mgl64.Vec3{Cdot1[0], Cdot1[1], Cdot2}

		f1 := j.impulse
		df := geom.Solve33(j.K, Cdot.Mul(-1))
		j.impulse = j.impulse.Add(df)

		switch j.limitState {
		case LimitAtLower:
			j.impulse[2] = math.Max(j.impulse[2], 0.0)
		case LimitAtUpper:
			j.impulse[2] = math.Min(j.impulse[2], 0.0)
		}

		// f2(1:2) = invK(1:2,1:2) * (-Cdot(1:2) - K(1:2,3) * (f2(3) - f1(3))) + f1(1:2)
		ez := j.K.Col(2)
		b := geom.Neg(Cdot1).Sub(mgl64.Vec2{ez[0], ez[1]}.Mul(j.impulse[2] - f1[2]))
		f2r := geom.Solve33Upper(j.K, b).Add(mgl64.Vec2{f1[0], f1[1]})
		j.impulse[0] = f2r[0]
		j.impulse[1] = f2r[1]

		df = j.impulse.Sub(f1)

		P := j.perp.Mul(df[0]).Add(j.axis.Mul(df[2]))
		LA := df[0]*j.s1 + df[1] + df[2]*j.a1
		LB := df[0]*j.s2 + df[1] + df[2]*j.a2

		vA = vA.Sub(P.Mul(mA))
		wA -= iA * LA

		vB = vB.Add(P.Mul(mB))
		wB += iB * LB
	} else {
		// Limit is inactive, just solve the prismatic constraint in block form.
		df := geom.Solve33Upper(j.K, geom.Neg(Cdot1))
		j.impulse[0] += df[0]
		j.impulse[1] += df[1]

		P := j.perp.Mul(df[0])
		LA := df[0]*j.s1 + df[1]
		LB := df[0]*j.s2 + df[1]

		vA = vA.Sub(P.Mul(mA))
		wA -= iA * LA

		vB = vB.Add(P.Mul(mB))
		wB += iB * LB
	}

	data.Velocities[j.indexA] = constraint.Velocity{V: vA, W: wA}
	data.Velocities[j.indexB] = constraint.Velocity{V: vB, W: wB}
}

func (j *PrismaticJoint) SolvePositionConstraints(data *constraint.SolverData) bool {
	cA, aA := data.Positions[j.indexA].C, data.Positions[j.indexA].A
	cB, aB := data.Positions[j.indexB].C, data.Positions[j.indexB].A

	qA, qB := geom.NewRot(aA), geom.NewRot(aB)

	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB

	// Compute fresh Jacobians
	rA := qA.Rotate(j.localAnchorA.Sub(j.localCenterA))
	rB := qB.Rotate(j.localAnchorB.Sub(j.localCenterB))
	d := cB.Add(rB).Sub(cA).Sub(rA)

	axis := qA.Rotate(j.localXAxisA)
	a1 := geom.Cross(d.Add(rA), axis)
	a2 := geom.Cross(rB, axis)
	perp := qA.Rotate(j.localYAxisA)

	s1 := geom.Cross(d.Add(rA), perp)
	s2 := geom.Cross(rB, perp)

	C1 := mgl64.Vec2{perp.Dot(d), aB - aA - j.referenceAngle}

	linearError := math.Abs(C1[0])
	angularError := math.Abs(C1[1])

	active := false
	C2 := 0.0
	if j.enableLimit {
		translation := axis.Dot(d)
		switch {
		case math.Abs(j.upperTranslation-j.lowerTranslation) < 2.0*geom.LinearSlop:
			// Prevent large linear corrections
			C2 = mgl64.Clamp(translation, -geom.MaxLinearCorrection, geom.MaxLinearCorrection)
			linearError = math.Max(linearError, math.Abs(translation))
			active = true
		case translation <= j.lowerTranslation:
			// Prevent large linear corrections and allow some slop.
			C2 = mgl64.Clamp(translation-j.lowerTranslation+geom.LinearSlop, -geom.MaxLinearCorrection, 0.0)
			linearError = math.Max(linearError, j.lowerTranslation-translation)
			active = true
		case translation >= j.upperTranslation:
			C2 = mgl64.Clamp(translation-j.upperTranslation-geom.LinearSlop, 0.0, geom.MaxLinearCorrection)
			linearError = math.Max(linearError, translation-j.upperTranslation)
			active = true
		}
	}

	K := prismaticMass(mA, mB, iA, iB, s1, s2, a1, a2)

	var impulse mgl64.Vec3
	if active {
		impulse = geom.Solve33(K, mgl64.Vec3{-C1[0], -C1[1], -C2})
	} else {
		impulse1 := geom.Solve33Upper(K, geom.Neg(C1))
		impulse = mgl64.Vec3{impulse1[0], impulse1[1], 0.0}
	}

	P := perp.Mul(impulse[0]).Add(axis.Mul(impulse[2]))
	LA := impulse[0]*s1 + impulse[1] + impulse[2]*a1
	LB := impulse[0]*s2 + impulse[1] + impulse[2]*a2

	cA = cA.Sub(P.Mul(mA))
	aA -= iA * LA
	cB = cB.Add(P.Mul(mB))
	aB += iB * LB

	data.Positions[j.indexA] = constraint.Position{C: cA, A: aA}
	data.Positions[j.indexB] = constraint.Position{C: cB, A: aB}

	return linearError <= geom.LinearSlop && angularError <= geom.AngularSlop
}

func (j *PrismaticJoint) GetAnchorA() mgl64.Vec2 {
	return j.bodyA.GetWorldPoint(j.localAnchorA)
}

func (j *PrismaticJoint) GetAnchorB() mgl64.Vec2 {
	return j.bodyB.GetWorldPoint(j.localAnchorB)
}

func (j *PrismaticJoint) GetReactionForce(invDt float64) mgl64.Vec2 {
	return j.perp.Mul(j.impulse[0]).Add(j.axis.Mul(j.motorImpulse + j.impulse[2])).Mul(invDt)
}

func (j *PrismaticJoint) GetReactionTorque(invDt float64) float64 {
	return invDt * j.impulse[1]
}

func (j *PrismaticJoint) GetLocalAnchorA() mgl64.Vec2 {
	return j.localAnchorA
}

func (j *PrismaticJoint) GetLocalAnchorB() mgl64.Vec2 {
	return j.localAnchorB
}

func (j *PrismaticJoint) GetLocalAxisA() mgl64.Vec2 {
	return j.localXAxisA
}

func (j *PrismaticJoint) GetReferenceAngle() float64 {
	return j.referenceAngle
}

// GetJointTranslation returns the distance between the anchors along the axis.
func (j *PrismaticJoint) GetJointTranslation() float64 {
	pA := j.bodyA.GetWorldPoint(j.localAnchorA)
	pB := j.bodyB.GetWorldPoint(j.localAnchorB)
	axis := j.bodyA.GetWorldVector(j.localXAxisA)
	return pB.Sub(pA).Dot(axis)
}

func (j *PrismaticJoint) GetJointSpeed() float64 {
	bA, bB := j.bodyA, j.bodyB

	rA := bA.xf.Q.Rotate(j.localAnchorA.Sub(bA.sweep.LocalCenter))
	rB := bB.xf.Q.Rotate(j.localAnchorB.Sub(bB.sweep.LocalCenter))
	p1 := bA.sweep.C.Add(rA)
	p2 := bB.sweep.C.Add(rB)
	d := p2.Sub(p1)
	axis := bA.xf.Q.Rotate(j.localXAxisA)

	vA, vB := bA.linearVelocity, bB.linearVelocity
	wA, wB := bA.angularVelocity, bB.angularVelocity

	return d.Dot(geom.CrossSV(wA, axis)) +
		axis.Dot(vB.Add(geom.CrossSV(wB, rB)).Sub(vA).Sub(geom.CrossSV(wA, rA)))
}

func (j *PrismaticJoint) IsLimitEnabled() bool {
	return j.enableLimit
}

func (j *PrismaticJoint) EnableLimit(flag bool) {
	if flag == j.enableLimit {
		return
	}
	j.wakeBodies()
	j.enableLimit = flag
	j.impulse[2] = 0.0
}

func (j *PrismaticJoint) GetLowerLimit() float64 {
	return j.lowerTranslation
}

func (j *PrismaticJoint) GetUpperLimit() float64 {
	return j.upperTranslation
}

func (j *PrismaticJoint) SetLimits(lower, upper float64) {
	if lower > upper {
		lower, upper = upper, lower
	}
	if lower == j.lowerTranslation && upper == j.upperTranslation {
		return
	}
	j.wakeBodies()
	j.lowerTranslation = lower
	j.upperTranslation = upper
	j.impulse[2] = 0.0
}

func (j *PrismaticJoint) IsMotorEnabled() bool {
	return j.enableMotor
}

func (j *PrismaticJoint) EnableMotor(flag bool) {
	if flag == j.enableMotor {
		return
	}
	j.wakeBodies()
	j.enableMotor = flag
}

func (j *PrismaticJoint) GetMotorSpeed() float64 {
	return j.motorSpeed
}

func (j *PrismaticJoint) SetMotorSpeed(speed float64) {
	if speed == j.motorSpeed {
		return
	}
	j.wakeBodies()
	j.motorSpeed = speed
}

func (j *PrismaticJoint) GetMaxMotorForce() float64 {
	return j.maxMotorForce
}

func (j *PrismaticJoint) SetMaxMotorForce(force float64) {
	if force == j.maxMotorForce {
		return
	}
	j.wakeBodies()
	j.maxMotorForce = force
}

// GetMotorForce returns the motor force applied during the last step.
func (j *PrismaticJoint) GetMotorForce(invDt float64) float64 {
	return invDt * j.motorImpulse
}

func (j *PrismaticJoint) GetLimitState() LimitState {
	return j.limitState
}
