package plank

import (
	"fmt"

	"github.com/akmonengine/plank/constraint"
	"github.com/akmonengine/plank/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// ConstantVolumeJointDef describes a ring of at least three bodies whose
// enclosed area is kept constant. Consecutive bodies are linked by distance
// joints, either given in Joints or created with the joint.
type ConstantVolumeJointDef struct {
	BaseJointDef

	Bodies []*Body
	// Joints optionally holds the ring edges, Joints[i] linking Bodies[i] to
	// the next body. Left empty, the edges are created from FrequencyHz and
	// DampingRatio.
	Joints []*DistanceJoint

	FrequencyHz  float64
	DampingRatio float64
}

func NewConstantVolumeJointDef() ConstantVolumeJointDef {
	return ConstantVolumeJointDef{}
}

func (def *ConstantVolumeJointDef) GetType() JointType {
	return JointTypeConstantVolume
}

func (def *ConstantVolumeJointDef) base() *BaseJointDef {
	if len(def.Bodies) >= 2 {
		def.BodyA = def.Bodies[0]
		def.BodyB = def.Bodies[1]
	}
	return &def.BaseJointDef
}

// AddBody appends a body to the ring.
func (def *ConstantVolumeJointDef) AddBody(b *Body) {
	def.Bodies = append(def.Bodies, b)
}

// AddBodyAndJoint appends a body and the existing distance joint linking it
// to the next body of the ring.
func (def *ConstantVolumeJointDef) AddBodyAndJoint(b *Body, j *DistanceJoint) {
	def.AddBody(b)
	def.Joints = append(def.Joints, j)
}

// ConstantVolumeJoint - keeps the area of a ring of bodies constant
type ConstantVolumeJoint struct {
	joint

	bodies         []*Body
	targetLengths  []float64
	targetVolume   float64
	distanceJoints []*DistanceJoint
	normals        []mgl64.Vec2
	d              []mgl64.Vec2

	impulse float64
}

func newConstantVolumeJoint(w *World, def *ConstantVolumeJointDef) (*ConstantVolumeJoint, error) {
	n := len(def.Bodies)
	if n < 3 {
		return nil, fmt.Errorf("%w: constant volume joint needs at least three bodies, got %d", ErrInvalidDefinition, n)
	}
	if len(def.Joints) != 0 && len(def.Joints) != n {
		return nil, fmt.Errorf("%w: constant volume joint has %d bodies and %d joints", ErrInvalidDefinition, n, len(def.Joints))
	}
	for _, b := range def.Bodies {
		if b == nil || b.world != w {
			return nil, fmt.Errorf("%w: constant volume joint body is not in this world", ErrInvalidDefinition)
		}
	}

	j := &ConstantVolumeJoint{
		joint:         newBaseJoint(JointTypeConstantVolume, &def.BaseJointDef),
		bodies:        append([]*Body(nil), def.Bodies...),
		targetLengths: make([]float64, n),
		normals:       make([]mgl64.Vec2, n),
		d:             make([]mgl64.Vec2, n),
	}
	j.collideConnected = false

	for i := range j.bodies {
		next := (i + 1) % n
		j.targetLengths[i] = j.bodies[i].GetWorldCenter().Sub(j.bodies[next].GetWorldCenter()).Len()
	}
	j.targetVolume = j.bodyArea()

	if len(def.Joints) != 0 {
		j.distanceJoints = append([]*DistanceJoint(nil), def.Joints...)
		return j, nil
	}

	j.distanceJoints = make([]*DistanceJoint, n)
	for i := range j.bodies {
		next := (i + 1) % n
		djd := NewDistanceJointDef()
		djd.FrequencyHz = def.FrequencyHz
		djd.DampingRatio = def.DampingRatio
		djd.CollideConnected = def.CollideConnected
		djd.Initialize(j.bodies[i], j.bodies[next], j.bodies[i].GetWorldCenter(), j.bodies[next].GetWorldCenter())

		created, err := w.CreateJoint(&djd)
		if err != nil {
			for _, dj := range j.distanceJoints[:i] {
				_ = w.DestroyJoint(dj)
			}
			return nil, err
		}
		j.distanceJoints[i] = created.(*DistanceJoint)
	}

	return j, nil
}

func (j *ConstantVolumeJoint) GetBodies() []*Body {
	return j.bodies
}

func (j *ConstantVolumeJoint) GetJoints() []*DistanceJoint {
	return j.distanceJoints
}

// references reports whether the ring holds the body or the distance joint.
func (j *ConstantVolumeJoint) references(target Joint, body *Body) bool {
	for _, b := range j.bodies {
		if body != nil && b == body {
			return true
		}
	}
	for _, dj := range j.distanceJoints {
		if target != nil && Joint(dj) == target {
			return true
		}
	}
	return false
}

// Inflate scales the target area.
func (j *ConstantVolumeJoint) Inflate(factor float64) {
	j.targetVolume *= factor
}

func (j *ConstantVolumeJoint) GetTargetVolume() float64 {
	return j.targetVolume
}

// bodyArea is the signed area of the ring of body centers.
func (j *ConstantVolumeJoint) bodyArea() float64 {
	area := 0.0
	n := len(j.bodies)
	for i := range j.bodies {
		a := j.bodies[i].GetWorldCenter()
		b := j.bodies[(i+1)%n].GetWorldCenter()
		area += geom.Cross(a, b)
	}
	return 0.5 * area
}

func (j *ConstantVolumeJoint) solverArea(positions []constraint.Position) float64 {
	area := 0.0
	n := len(j.bodies)
	for i := range j.bodies {
		a := positions[j.bodies[i].islandIndex].C
		b := positions[j.bodies[(i+1)%n].islandIndex].C
		area += geom.Cross(a, b)
	}
	return 0.5 * area
}

// constrainEdges pushes every body along the averaged edge normals to restore
// the target area.
func (j *ConstantVolumeJoint) constrainEdges(positions []constraint.Position) bool {
	n := len(j.bodies)
	perimeter := 0.0
	for i := range j.bodies {
		next := (i + 1) % n
		delta := positions[j.bodies[next].islandIndex].C.Sub(positions[j.bodies[i].islandIndex].C)
		dist := delta.Len()
		if dist < geom.Epsilon {
			dist = 1.0
		}
		j.normals[i] = mgl64.Vec2{delta[1] / dist, -delta[0] / dist}
		perimeter += dist
	}

	deltaArea := j.targetVolume - j.solverArea(positions)
	toExtrude := 0.5 * deltaArea / perimeter

	done := true
	for i := range j.bodies {
		next := (i + 1) % n
		delta := j.normals[i].Add(j.normals[next]).Mul(toExtrude)
		normSqrd := delta.LenSqr()
		if normSqrd > geom.MaxLinearCorrection*geom.MaxLinearCorrection {
			delta = delta.Mul(geom.MaxLinearCorrection / delta.Len())
		}
		if normSqrd > geom.LinearSlop*geom.LinearSlop {
			done = false
		}
		index := j.bodies[next].islandIndex
		positions[index].C = positions[index].C.Add(delta)
	}

	return done
}

// loadEdges stores in d[i] the vector from the previous to the next body.
func (j *ConstantVolumeJoint) loadEdges(positions []constraint.Position) {
	n := len(j.bodies)
	for i := range j.bodies {
		prev := (i + n - 1) % n
		next := (i + 1) % n
		j.d[i] = positions[j.bodies[next].islandIndex].C.Sub(positions[j.bodies[prev].islandIndex].C)
	}
}

func (j *ConstantVolumeJoint) applyImpulse(velocities []constraint.Velocity, impulse float64) {
	for i, b := range j.bodies {
		index := b.islandIndex
		velocities[index].V = velocities[index].V.Add(mgl64.Vec2{j.d[i][1], -j.d[i][0]}.Mul(b.invMass * 0.5 * impulse))
	}
}

func (j *ConstantVolumeJoint) InitVelocityConstraints(data *constraint.SolverData) {
	j.loadBodies()
	j.loadEdges(data.Positions)

	if data.Step.WarmStarting {
		j.impulse *= data.Step.DtRatio
		j.applyImpulse(data.Velocities, j.impulse)
	} else {
		j.impulse = 0.0
	}
}

func (j *ConstantVolumeJoint) SolveVelocityConstraints(data *constraint.SolverData) {
	crossMassSum := 0.0
	dotMassSum := 0.0

	j.loadEdges(data.Positions)
	for i, b := range j.bodies {
		dotMassSum += j.d[i].LenSqr() * b.invMass
		crossMassSum += geom.Cross(data.Velocities[b.islandIndex].V, j.d[i])
	}
	if dotMassSum == 0.0 {
		return
	}

	lambda := -2.0 * crossMassSum / dotMassSum
	j.impulse += lambda
	j.applyImpulse(data.Velocities, lambda)
}

func (j *ConstantVolumeJoint) SolvePositionConstraints(data *constraint.SolverData) bool {
	return j.constrainEdges(data.Positions)
}

func (j *ConstantVolumeJoint) GetAnchorA() mgl64.Vec2 {
	return j.bodyA.GetWorldCenter()
}

func (j *ConstantVolumeJoint) GetAnchorB() mgl64.Vec2 {
	return j.bodyB.GetWorldCenter()
}

func (j *ConstantVolumeJoint) GetReactionForce(invDt float64) mgl64.Vec2 {
	return mgl64.Vec2{}
}

func (j *ConstantVolumeJoint) GetReactionTorque(invDt float64) float64 {
	return 0.0
}
