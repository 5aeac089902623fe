package plank

import (
	"math"

	"github.com/akmonengine/plank/constraint"
	"github.com/akmonengine/plank/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// WheelJointDef describes a wheel: bodyB moves along an axis fixed in bodyA
// on a spring, and rotates freely or under a motor.
type WheelJointDef struct {
	BaseJointDef

	LocalAnchorA mgl64.Vec2
	LocalAnchorB mgl64.Vec2

	// LocalAxisA is the suspension axis in bodyA.
	LocalAxisA mgl64.Vec2

	// EnableLimit bounds the translation along the axis between
	// LowerTranslation and UpperTranslation.
	EnableLimit      bool
	LowerTranslation float64
	UpperTranslation float64

	EnableMotor    bool
	MaxMotorTorque float64
	MotorSpeed     float64

	// FrequencyHz is the suspension frequency. Zero disables the suspension.
	FrequencyHz  float64
	DampingRatio float64
}

func NewWheelJointDef() WheelJointDef {
	return WheelJointDef{
		LocalAxisA:   mgl64.Vec2{1.0, 0.0},
		FrequencyHz:  2.0,
		DampingRatio: 0.7,
	}
}

func (def *WheelJointDef) GetType() JointType {
	return JointTypeWheel
}

// Initialize sets the bodies, anchors and axis from a world anchor and axis.
func (def *WheelJointDef) Initialize(bodyA, bodyB *Body, anchor, axis mgl64.Vec2) {
	def.BodyA = bodyA
	def.BodyB = bodyB
	def.LocalAnchorA = bodyA.GetLocalPoint(anchor)
	def.LocalAnchorB = bodyB.GetLocalPoint(anchor)
	def.LocalAxisA = bodyA.GetLocalVector(axis)
}

// WheelJoint - line constraint with a suspension spring, a translation limit
// and a rotational motor
type WheelJoint struct {
	joint

	frequencyHz  float64
	dampingRatio float64

	localAnchorA mgl64.Vec2
	localAnchorB mgl64.Vec2
	localXAxisA  mgl64.Vec2
	localYAxisA  mgl64.Vec2

	impulse       float64
	motorImpulse  float64
	springImpulse float64
	limitImpulse  float64

	lowerTranslation float64
	upperTranslation float64
	enableLimit      bool
	limitState       LimitState

	maxMotorTorque float64
	motorSpeed     float64
	enableMotor    bool

	ax, ay   mgl64.Vec2
	sAx, sBx float64
	sAy, sBy float64

	mass       float64
	motorMass  float64
	springMass float64
	axialMass  float64

	bias  float64
	gamma float64
}

func newWheelJoint(def *WheelJointDef) *WheelJoint {
	axis, _ := geom.Normalize(def.LocalAxisA)
	return &WheelJoint{
		joint:          newBaseJoint(JointTypeWheel, &def.BaseJointDef),
		localAnchorA:   def.LocalAnchorA,
		localAnchorB:   def.LocalAnchorB,
		localXAxisA:    axis,
		localYAxisA:    geom.CrossSV(1.0, axis),
		maxMotorTorque:   def.MaxMotorTorque,
		motorSpeed:       def.MotorSpeed,
		enableMotor:      def.EnableMotor,
		lowerTranslation: def.LowerTranslation,
		upperTranslation: def.UpperTranslation,
		enableLimit:      def.EnableLimit,
		limitState:       LimitInactive,
		frequencyHz:      def.FrequencyHz,
		dampingRatio:     def.DampingRatio,
	}
}

func (j *WheelJoint) InitVelocityConstraints(data *constraint.SolverData) {
	j.loadBodies()

	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB

	cA, aA := data.Positions[j.indexA].C, data.Positions[j.indexA].A
	vA, wA := data.Velocities[j.indexA].V, data.Velocities[j.indexA].W
	cB, aB := data.Positions[j.indexB].C, data.Positions[j.indexB].A
	vB, wB := data.Velocities[j.indexB].V, data.Velocities[j.indexB].W

	qA, qB := geom.NewRot(aA), geom.NewRot(aB)

	// Compute the effective masses.
	rA := qA.Rotate(j.localAnchorA.Sub(j.localCenterA))
	rB := qB.Rotate(j.localAnchorB.Sub(j.localCenterB))
	d := cB.Add(rB).Sub(cA).Sub(rA)

	// Point to line constraint
	j.ay = qA.Rotate(j.localYAxisA)
	j.sAy = geom.Cross(d.Add(rA), j.ay)
	j.sBy = geom.Cross(rB, j.ay)

	j.mass = mA + mB + iA*j.sAy*j.sAy + iB*j.sBy*j.sBy
	if j.mass > 0.0 {
		j.mass = 1.0 / j.mass
	}

	// Axial constraints: spring and limit
	j.ax = qA.Rotate(j.localXAxisA)
	j.sAx = geom.Cross(d.Add(rA), j.ax)
	j.sBx = geom.Cross(rB, j.ax)

	invMass := mA + mB + iA*j.sAx*j.sAx + iB*j.sBx*j.sBx
	j.axialMass = 0.0
	if invMass > 0.0 {
		j.axialMass = 1.0 / invMass
	}

	j.springMass = 0.0
	j.bias = 0.0
	j.gamma = 0.0
	if j.frequencyHz > 0.0 && invMass > 0.0 {
		C := d.Dot(j.ax)
		j.gamma, j.bias = softness(j.axialMass, j.frequencyHz, j.dampingRatio, C, data.Step.Dt)

		j.springMass = invMass + j.gamma
		if j.springMass > 0.0 {
			j.springMass = 1.0 / j.springMass
		}
	} else {
		j.springImpulse = 0.0
	}

	if j.enableLimit {
		translation := d.Dot(j.ax)
		switch {
		case math.Abs(j.upperTranslation-j.lowerTranslation) < 2.0*geom.LinearSlop:
			j.limitState = LimitEqual
		case translation <= j.lowerTranslation:
			if j.limitState != LimitAtLower {
				j.limitState = LimitAtLower
				j.limitImpulse = 0.0
			}
		case translation >= j.upperTranslation:
			if j.limitState != LimitAtUpper {
				j.limitState = LimitAtUpper
				j.limitImpulse = 0.0
			}
		default:
			j.limitState = LimitInactive
			j.limitImpulse = 0.0
		}
	} else {
		j.limitState = LimitInactive
		j.limitImpulse = 0.0
	}

	// Rotational motor
	if j.enableMotor {
		j.motorMass = iA + iB
		if j.motorMass > 0.0 {
			j.motorMass = 1.0 / j.motorMass
		}
	} else {
		j.motorMass = 0.0
		j.motorImpulse = 0.0
	}

	if data.Step.WarmStarting {
		// Account for variable time step.
		j.impulse *= data.Step.DtRatio
		j.springImpulse *= data.Step.DtRatio
		j.motorImpulse *= data.Step.DtRatio
		j.limitImpulse *= data.Step.DtRatio

		axialImpulse := j.springImpulse + j.limitImpulse
		P := j.ay.Mul(j.impulse).Add(j.ax.Mul(axialImpulse))
		LA := j.impulse*j.sAy + axialImpulse*j.sAx + j.motorImpulse
		LB := j.impulse*j.sBy + axialImpulse*j.sBx + j.motorImpulse

		vA = vA.Sub(P.Mul(mA))
		wA -= iA * LA
		vB = vB.Add(P.Mul(mB))
		wB += iB * LB
	} else {
		j.impulse = 0.0
		j.springImpulse = 0.0
		j.motorImpulse = 0.0
		j.limitImpulse = 0.0
	}

	data.Velocities[j.indexA] = constraint.Velocity{V: vA, W: wA}
	data.Velocities[j.indexB] = constraint.Velocity{V: vB, W: wB}
}

func (j *WheelJoint) SolveVelocityConstraints(data *constraint.SolverData) {
	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB

	vA, wA := data.Velocities[j.indexA].V, data.Velocities[j.indexA].W
	vB, wB := data.Velocities[j.indexB].V, data.Velocities[j.indexB].W

	// Solve spring constraint
	{
		Cdot := j.ax.Dot(vB.Sub(vA)) + j.sBx*wB - j.sAx*wA
		impulse := -j.springMass * (Cdot + j.bias + j.gamma*j.springImpulse)
		j.springImpulse += impulse

		P := j.ax.Mul(impulse)
		vA = vA.Sub(P.Mul(mA))
		wA -= iA * impulse * j.sAx
		vB = vB.Add(P.Mul(mB))
		wB += iB * impulse * j.sBx
	}

	// Solve rotational motor constraint
	{
		Cdot := wB - wA - j.motorSpeed
		impulse := -j.motorMass * Cdot

		oldImpulse := j.motorImpulse
		maxImpulse := data.Step.Dt * j.maxMotorTorque
		j.motorImpulse = mgl64.Clamp(j.motorImpulse+impulse, -maxImpulse, maxImpulse)
		impulse = j.motorImpulse - oldImpulse

		wA -= iA * impulse
		wB += iB * impulse
	}

	// Solve limit constraint
	if j.enableLimit && j.limitState != LimitInactive {
		Cdot := j.ax.Dot(vB.Sub(vA)) + j.sBx*wB - j.sAx*wA
		impulse := -j.axialMass * Cdot

		oldImpulse := j.limitImpulse
		switch j.limitState {
		case LimitAtLower:
			j.limitImpulse = math.Max(oldImpulse+impulse, 0.0)
		case LimitAtUpper:
			j.limitImpulse = math.Min(oldImpulse+impulse, 0.0)
		default:
			j.limitImpulse += impulse
		}
		impulse = j.limitImpulse - oldImpulse

		P := j.ax.Mul(impulse)
		vA = vA.Sub(P.Mul(mA))
		wA -= iA * impulse * j.sAx
		vB = vB.Add(P.Mul(mB))
		wB += iB * impulse * j.sBx
	}

	// Solve point to line constraint
	{
		Cdot := j.ay.Dot(vB.Sub(vA)) + j.sBy*wB - j.sAy*wA
		impulse := -j.mass * Cdot
		j.impulse += impulse

		P := j.ay.Mul(impulse)
		vA = vA.Sub(P.Mul(mA))
		wA -= iA * impulse * j.sAy
		vB = vB.Add(P.Mul(mB))
		wB += iB * impulse * j.sBy
	}

	data.Velocities[j.indexA] = constraint.Velocity{V: vA, W: wA}
	data.Velocities[j.indexB] = constraint.Velocity{V: vB, W: wB}
}

func (j *WheelJoint) SolvePositionConstraints(data *constraint.SolverData) bool {
	cA, aA := data.Positions[j.indexA].C, data.Positions[j.indexA].A
	cB, aB := data.Positions[j.indexB].C, data.Positions[j.indexB].A

	qA, qB := geom.NewRot(aA), geom.NewRot(aB)

	rA := qA.Rotate(j.localAnchorA.Sub(j.localCenterA))
	rB := qB.Rotate(j.localAnchorB.Sub(j.localCenterB))
	d := cB.Sub(cA).Add(rB).Sub(rA)

	ay := qA.Rotate(j.localYAxisA)

	sAy := geom.Cross(d.Add(rA), ay)
	sBy := geom.Cross(rB, ay)

	C := d.Dot(ay)

	k := j.invMassA + j.invMassB + j.invIA*sAy*sAy + j.invIB*sBy*sBy

	impulse := 0.0
	if k != 0.0 {
		impulse = -C / k
	}

	P := ay.Mul(impulse)

	cA = cA.Sub(P.Mul(j.invMassA))
	aA -= j.invIA * impulse * sAy
	cB = cB.Add(P.Mul(j.invMassB))
	aB += j.invIB * impulse * sBy

	limitError := 0.0
	if j.enableLimit {
		cA, aA, cB, aB, limitError = j.solveLimitPosition(cA, aA, cB, aB)
	}

	data.Positions[j.indexA] = constraint.Position{C: cA, A: aA}
	data.Positions[j.indexB] = constraint.Position{C: cB, A: aB}

	return math.Abs(C) <= geom.LinearSlop && limitError <= geom.LinearSlop
}

// solveLimitPosition pushes the translation back inside the limits.
func (j *WheelJoint) solveLimitPosition(cA mgl64.Vec2, aA float64, cB mgl64.Vec2, aB float64) (mgl64.Vec2, float64, mgl64.Vec2, float64, float64) {
	qA, qB := geom.NewRot(aA), geom.NewRot(aB)

	rA := qA.Rotate(j.localAnchorA.Sub(j.localCenterA))
	rB := qB.Rotate(j.localAnchorB.Sub(j.localCenterB))
	d := cB.Sub(cA).Add(rB).Sub(rA)

	ax := qA.Rotate(j.localXAxisA)
	sAx := geom.Cross(d.Add(rA), ax)
	sBx := geom.Cross(rB, ax)

	translation := d.Dot(ax)
	C := 0.0
	linearError := 0.0
	switch {
	case math.Abs(j.upperTranslation-j.lowerTranslation) < 2.0*geom.LinearSlop:
		// Prevent large angular corrections.
		C = mgl64.Clamp(translation-j.lowerTranslation, -geom.MaxLinearCorrection, geom.MaxLinearCorrection)
		linearError = math.Abs(translation - j.lowerTranslation)
	case translation <= j.lowerTranslation:
		C = mgl64.Clamp(translation-j.lowerTranslation+geom.LinearSlop, -geom.MaxLinearCorrection, 0.0)
		linearError = j.lowerTranslation - translation
	case translation >= j.upperTranslation:
		C = mgl64.Clamp(translation-j.upperTranslation-geom.LinearSlop, 0.0, geom.MaxLinearCorrection)
		linearError = translation - j.upperTranslation
	}
	if C == 0.0 {
		return cA, aA, cB, aB, linearError
	}

	k := j.invMassA + j.invMassB + j.invIA*sAx*sAx + j.invIB*sBx*sBx
	impulse := 0.0
	if k != 0.0 {
		impulse = -C / k
	}

	P := ax.Mul(impulse)
	cA = cA.Sub(P.Mul(j.invMassA))
	aA -= j.invIA * impulse * sAx
	cB = cB.Add(P.Mul(j.invMassB))
	aB += j.invIB * impulse * sBx

	return cA, aA, cB, aB, linearError
}

func (j *WheelJoint) GetAnchorA() mgl64.Vec2 {
	return j.bodyA.GetWorldPoint(j.localAnchorA)
}

func (j *WheelJoint) GetAnchorB() mgl64.Vec2 {
	return j.bodyB.GetWorldPoint(j.localAnchorB)
}

func (j *WheelJoint) GetReactionForce(invDt float64) mgl64.Vec2 {
	return j.ay.Mul(j.impulse).Add(j.ax.Mul(j.springImpulse + j.limitImpulse)).Mul(invDt)
}

func (j *WheelJoint) GetReactionTorque(invDt float64) float64 {
	return invDt * j.motorImpulse
}

func (j *WheelJoint) GetLocalAnchorA() mgl64.Vec2 {
	return j.localAnchorA
}

func (j *WheelJoint) GetLocalAnchorB() mgl64.Vec2 {
	return j.localAnchorB
}

func (j *WheelJoint) GetLocalAxisA() mgl64.Vec2 {
	return j.localXAxisA
}

// GetJointTranslation returns the translation of the anchors along the axis.
func (j *WheelJoint) GetJointTranslation() float64 {
	pA := j.bodyA.GetWorldPoint(j.localAnchorA)
	pB := j.bodyB.GetWorldPoint(j.localAnchorB)
	axis := j.bodyA.GetWorldVector(j.localXAxisA)
	return pB.Sub(pA).Dot(axis)
}

func (j *WheelJoint) GetJointSpeed() float64 {
	return j.bodyB.angularVelocity - j.bodyA.angularVelocity
}

func (j *WheelJoint) IsLimitEnabled() bool {
	return j.enableLimit
}

func (j *WheelJoint) EnableLimit(flag bool) {
	if flag == j.enableLimit {
		return
	}
	j.wakeBodies()
	j.enableLimit = flag
	j.limitImpulse = 0.0
}

func (j *WheelJoint) GetLowerLimit() float64 {
	return j.lowerTranslation
}

func (j *WheelJoint) GetUpperLimit() float64 {
	return j.upperTranslation
}

func (j *WheelJoint) SetLimits(lower, upper float64) {
	if lower > upper {
		lower, upper = upper, lower
	}
	if lower == j.lowerTranslation && upper == j.upperTranslation {
		return
	}
	j.wakeBodies()
	j.lowerTranslation = lower
	j.upperTranslation = upper
	j.limitImpulse = 0.0
}

func (j *WheelJoint) GetLimitState() LimitState {
	return j.limitState
}

func (j *WheelJoint) IsMotorEnabled() bool {
	return j.enableMotor
}

func (j *WheelJoint) EnableMotor(flag bool) {
	j.wakeBodies()
	j.enableMotor = flag
}

func (j *WheelJoint) SetMotorSpeed(speed float64) {
	j.wakeBodies()
	j.motorSpeed = speed
}

func (j *WheelJoint) GetMotorSpeed() float64 {
	return j.motorSpeed
}

func (j *WheelJoint) SetMaxMotorTorque(torque float64) {
	j.wakeBodies()
	j.maxMotorTorque = torque
}

func (j *WheelJoint) GetMaxMotorTorque() float64 {
	return j.maxMotorTorque
}

func (j *WheelJoint) GetMotorTorque(invDt float64) float64 {
	return invDt * j.motorImpulse
}

func (j *WheelJoint) SetSpringFrequencyHz(hz float64) {
	j.frequencyHz = hz
}

func (j *WheelJoint) GetSpringFrequencyHz() float64 {
	return j.frequencyHz
}

func (j *WheelJoint) SetSpringDampingRatio(ratio float64) {
	j.dampingRatio = ratio
}

func (j *WheelJoint) GetSpringDampingRatio() float64 {
	return j.dampingRatio
}
