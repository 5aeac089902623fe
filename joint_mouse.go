package plank

import (
	"math"

	"github.com/akmonengine/plank/constraint"
	"github.com/akmonengine/plank/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// MouseJointDef describes a soft spring pulling a point of bodyB towards a
// world target. BodyA is only used as a reference and is usually static.
type MouseJointDef struct {
	BaseJointDef

	// Target is the initial world target, also the grabbed point on bodyB.
	Target mgl64.Vec2

	// MaxForce bounds the constraint force, usually a multiple of the body weight.
	MaxForce float64

	FrequencyHz  float64
	DampingRatio float64
}

func NewMouseJointDef() MouseJointDef {
	return MouseJointDef{
		FrequencyHz:  5.0,
		DampingRatio: 0.7,
	}
}

func (def *MouseJointDef) GetType() JointType {
	return JointTypeMouse
}

// MouseJoint - drags a body point towards a target
type MouseJoint struct {
	joint

	localAnchorB mgl64.Vec2
	targetA      mgl64.Vec2
	frequencyHz  float64
	dampingRatio float64
	beta         float64

	impulse  mgl64.Vec2
	maxForce float64
	gamma    float64

	rB   mgl64.Vec2
	mass mgl64.Mat3
	C    mgl64.Vec2
}

func newMouseJoint(def *MouseJointDef) *MouseJoint {
	return &MouseJoint{
		joint:        newBaseJoint(JointTypeMouse, &def.BaseJointDef),
		targetA:      def.Target,
		localAnchorB: def.BodyB.GetLocalPoint(def.Target),
		maxForce:     def.MaxForce,
		frequencyHz:  def.FrequencyHz,
		dampingRatio: def.DampingRatio,
	}
}

// SetTarget moves the target and wakes bodyB.
func (j *MouseJoint) SetTarget(target mgl64.Vec2) {
	if target != j.targetA {
		j.bodyB.SetAwake(true)
		j.targetA = target
	}
}

func (j *MouseJoint) GetTarget() mgl64.Vec2 {
	return j.targetA
}

func (j *MouseJoint) SetMaxForce(force float64) {
	j.maxForce = force
}

func (j *MouseJoint) GetMaxForce() float64 {
	return j.maxForce
}

func (j *MouseJoint) SetFrequency(hz float64) {
	j.frequencyHz = hz
}

func (j *MouseJoint) GetFrequency() float64 {
	return j.frequencyHz
}

func (j *MouseJoint) SetDampingRatio(ratio float64) {
	j.dampingRatio = ratio
}

func (j *MouseJoint) GetDampingRatio() float64 {
	return j.dampingRatio
}

func (j *MouseJoint) InitVelocityConstraints(data *constraint.SolverData) {
	j.loadBodies()

	cB, aB := data.Positions[j.indexB].C, data.Positions[j.indexB].A
	vB, wB := data.Velocities[j.indexB].V, data.Velocities[j.indexB].W

	qB := geom.NewRot(aB)

	mass := j.bodyB.GetMass()

	// Frequency
	omega := 2.0 * math.Pi * j.frequencyHz

	// Damping coefficient
	d := 2.0 * mass * j.dampingRatio * omega

	// Spring stiffness
	k := mass * omega * omega

	// magic formulas
	// gamma has units of inverse mass.
	// beta has units of inverse time.
	h := data.Step.Dt
	j.gamma = h * (d + h*k)
	if j.gamma != 0.0 {
		j.gamma = 1.0 / j.gamma
	}
	j.beta = h * k * j.gamma

	// Compute the effective mass matrix.
	j.rB = qB.Rotate(j.localAnchorB.Sub(j.localCenterB))

	// K    = [(1/m1 + 1/m2) * eye(2) - skew(r1) * invI1 * skew(r1) - skew(r2) * invI2 * skew(r2)]
	//      = [1/m1+1/m2     0    ] + invI1 * [r1.y*r1.y -r1.x*r1.y] + invI2 * [r1.y*r1.y -r1.x*r1.y]
	//        [    0     1/m1+1/m2]           [-r1.x*r1.y r1.x*r1.x]           [-r1.x*r1.y r1.x*r1.x]
	var K mgl64.Mat3
	K[0] = j.invMassB + j.invIB*j.rB[1]*j.rB[1] + j.gamma
	K[1] = -j.invIB * j.rB[0] * j.rB[1]
	K[3] = K[1]
	K[4] = j.invMassB + j.invIB*j.rB[0]*j.rB[0] + j.gamma
	j.mass = geom.Inverse22(K)

	j.C = cB.Add(j.rB).Sub(j.targetA).Mul(j.beta)

	// Cheat with some damping
	wB *= 0.98

	if data.Step.WarmStarting {
		j.impulse = j.impulse.Mul(data.Step.DtRatio)
		vB = vB.Add(j.impulse.Mul(j.invMassB))
		wB += j.invIB * geom.Cross(j.rB, j.impulse)
	} else {
		j.impulse = mgl64.Vec2{}
	}

	data.Velocities[j.indexB] = constraint.Velocity{V: vB, W: wB}
}

func (j *MouseJoint) SolveVelocityConstraints(data *constraint.SolverData) {
	vB, wB := data.Velocities[j.indexB].V, data.Velocities[j.indexB].W

	// Cdot = v + cross(w, r)
	Cdot := vB.Add(geom.CrossSV(wB, j.rB))
	impulse := geom.Mul22(j.mass, Cdot.Add(j.C).Add(j.impulse.Mul(j.gamma)).Mul(-1.0))

	oldImpulse := j.impulse
	j.impulse = j.impulse.Add(impulse)
	maxImpulse := data.Step.Dt * j.maxForce
	if j.impulse.LenSqr() > maxImpulse*maxImpulse {
		j.impulse = j.impulse.Mul(maxImpulse / j.impulse.Len())
	}
	impulse = j.impulse.Sub(oldImpulse)

	vB = vB.Add(impulse.Mul(j.invMassB))
	wB += j.invIB * geom.Cross(j.rB, impulse)

	data.Velocities[j.indexB] = constraint.Velocity{V: vB, W: wB}
}

func (j *MouseJoint) SolvePositionConstraints(data *constraint.SolverData) bool {
	return true
}

func (j *MouseJoint) GetAnchorA() mgl64.Vec2 {
	return j.targetA
}

func (j *MouseJoint) GetAnchorB() mgl64.Vec2 {
	return j.bodyB.GetWorldPoint(j.localAnchorB)
}

func (j *MouseJoint) GetReactionForce(invDt float64) mgl64.Vec2 {
	return j.impulse.Mul(invDt)
}

func (j *MouseJoint) GetReactionTorque(invDt float64) float64 {
	return 0.0
}
