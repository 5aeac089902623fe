package plank

import (
	"math"
	"time"

	"github.com/akmonengine/plank/constraint"
	"github.com/akmonengine/plank/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// island is the scratch space used to solve a group of connected bodies. It is
// refilled at each traversal and its buffers are reused across steps.
type island struct {
	listener ContactListener

	bodies   []*Body
	contacts []*Contact
	joints   []Joint

	positions  []constraint.Position
	velocities []constraint.Velocity

	contactInputs []constraint.ContactInput
	contactSolver constraint.ContactSolver
}

func (isl *island) clear() {
	clear(isl.bodies)
	clear(isl.contacts)
	clear(isl.joints)
	isl.bodies = isl.bodies[:0]
	isl.contacts = isl.contacts[:0]
	isl.joints = isl.joints[:0]
}

func (isl *island) addBody(body *Body) {
	body.islandIndex = len(isl.bodies)
	isl.bodies = append(isl.bodies, body)
}

func (isl *island) addContact(c *Contact) {
	isl.contacts = append(isl.contacts, c)
}

func (isl *island) addJoint(j Joint) {
	isl.joints = append(isl.joints, j)
}

// prepare sizes the position and velocity arrays to the bodies.
func (isl *island) prepare() {
	n := len(isl.bodies)
	if cap(isl.positions) < n {
		isl.positions = make([]constraint.Position, n, 2*n)
		isl.velocities = make([]constraint.Velocity, n, 2*n)
	}
	isl.positions = isl.positions[:n]
	isl.velocities = isl.velocities[:n]
}

// loadContacts fills the solver inputs from the island contacts.
func (isl *island) loadContacts(step constraint.TimeStep) {
	isl.contactInputs = isl.contactInputs[:0]

	for _, c := range isl.contacts {
		fixtureA := c.fixtureA
		fixtureB := c.fixtureB
		bodyA := fixtureA.body
		bodyB := fixtureB.body

		isl.contactInputs = append(isl.contactInputs, constraint.ContactInput{
			Manifold:     &c.manifold,
			Friction:     c.friction,
			Restitution:  c.restitution,
			RadiusA:      fixtureA.shape.GetRadius(),
			RadiusB:      fixtureB.shape.GetRadius(),
			IndexA:       bodyA.islandIndex,
			IndexB:       bodyB.islandIndex,
			InvMassA:     bodyA.invMass,
			InvMassB:     bodyB.invMass,
			InvIA:        bodyA.invI,
			InvIB:        bodyB.invI,
			LocalCenterA: bodyA.sweep.LocalCenter,
			LocalCenterB: bodyB.sweep.LocalCenter,
		})
	}

	isl.contactSolver.Initialize(step, isl.contactInputs, isl.positions, isl.velocities)
}

// solve integrates the island over a full step, then puts it to sleep if every
// body has been still long enough.
func (isl *island) solve(profile *Profile, step constraint.TimeStep, gravity mgl64.Vec2, allowSleep bool) {
	start := time.Now()

	h := step.Dt
	isl.prepare()

	// Integrate velocities and apply damping. Initialize the body state.
	for i, b := range isl.bodies {
		c := b.sweep.C
		a := b.sweep.A
		v := b.linearVelocity
		w := b.angularVelocity

		// Store positions for continuous collision.
		b.sweep.C0 = b.sweep.C
		b.sweep.A0 = b.sweep.A

		if b.bodyType == DynamicBody {
			v = v.Add(gravity.Mul(b.gravityScale).Add(b.force.Mul(b.invMass)).Mul(h))
			w += h * b.invI * b.torque

			// Pade approximation of the damping differential equation, stable for
			// large damping values and time steps.
			v = v.Mul(1.0 / (1.0 + h*b.linearDamping))
			w *= 1.0 / (1.0 + h*b.angularDamping)
		}

		isl.positions[i] = constraint.Position{C: c, A: a}
		isl.velocities[i] = constraint.Velocity{V: v, W: w}
	}

	data := constraint.SolverData{
		Step:       step,
		Positions:  isl.positions,
		Velocities: isl.velocities,
	}

	// Initialize velocity constraints.
	isl.loadContacts(step)
	isl.contactSolver.InitializeVelocityConstraints()

	if step.WarmStarting {
		isl.contactSolver.WarmStart()
	}

	for _, j := range isl.joints {
		j.InitVelocityConstraints(&data)
	}

	profile.SolveInit += time.Since(start)

	// Solve velocity constraints.
	mark := time.Now()
	for i := 0; i < step.VelocityIterations; i++ {
		for _, j := range isl.joints {
			j.SolveVelocityConstraints(&data)
		}
		isl.contactSolver.SolveVelocityConstraints()
	}

	// Store impulses for warm starting.
	isl.contactSolver.StoreImpulses()
	profile.SolveVelocity += time.Since(mark)

	isl.integratePositions(h)

	// Solve position constraints.
	mark = time.Now()
	positionSolved := false
	for i := 0; i < step.PositionIterations; i++ {
		contactsOkay := isl.contactSolver.SolvePositionConstraints()

		jointsOkay := true
		for _, j := range isl.joints {
			jointOkay := j.SolvePositionConstraints(&data)
			jointsOkay = jointsOkay && jointOkay
		}

		if contactsOkay && jointsOkay {
			// Exit early if the position errors are small.
			positionSolved = true
			break
		}
	}

	// Copy state buffers back to the bodies.
	isl.syncBodies()
	profile.SolvePosition += time.Since(mark)

	isl.report()

	if !allowSleep {
		return
	}

	minSleepTime := math.MaxFloat64

	const linTolSqr = geom.LinearSleepTolerance * geom.LinearSleepTolerance
	const angTolSqr = geom.AngularSleepTolerance * geom.AngularSleepTolerance

	for _, b := range isl.bodies {
		if b.bodyType == StaticBody {
			continue
		}

		if !b.IsSleepingAllowed() ||
			b.angularVelocity*b.angularVelocity > angTolSqr ||
			b.linearVelocity.Dot(b.linearVelocity) > linTolSqr {
			b.sleepTime = 0.0
			minSleepTime = 0.0
		} else {
			b.sleepTime += h
			minSleepTime = math.Min(minSleepTime, b.sleepTime)
		}
	}

	if minSleepTime >= geom.TimeToSleep && positionSolved {
		for _, b := range isl.bodies {
			b.SetAwake(false)
		}
	}
}

// solveTOI resolves a time of impact sub-step. Only the two bodies of the
// event are moved by the position correction; the other bodies of the island
// act as if static.
func (isl *island) solveTOI(subStep constraint.TimeStep, toiIndexA, toiIndexB int) {
	isl.prepare()

	// Initialize the body state.
	for i, b := range isl.bodies {
		isl.positions[i] = constraint.Position{C: b.sweep.C, A: b.sweep.A}
		isl.velocities[i] = constraint.Velocity{V: b.linearVelocity, W: b.angularVelocity}
	}

	isl.loadContacts(subStep)

	// Solve position constraints.
	for i := 0; i < subStep.PositionIterations; i++ {
		if isl.contactSolver.SolveTOIPositionConstraints(toiIndexA, toiIndexB) {
			break
		}
	}

	// Leap of faith to new safe state.
	isl.bodies[toiIndexA].sweep.C0 = isl.positions[toiIndexA].C
	isl.bodies[toiIndexA].sweep.A0 = isl.positions[toiIndexA].A
	isl.bodies[toiIndexB].sweep.C0 = isl.positions[toiIndexB].C
	isl.bodies[toiIndexB].sweep.A0 = isl.positions[toiIndexB].A

	// No warm starting is needed for TOI events because warm
	// starting impulses were applied in the discrete solver.
	isl.contactSolver.InitializeVelocityConstraints()

	// Solve velocity constraints.
	for i := 0; i < subStep.VelocityIterations; i++ {
		isl.contactSolver.SolveVelocityConstraints()
	}

	// Don't store the TOI contact forces for warm starting
	// because they can be quite large.

	isl.integratePositions(subStep.Dt)
	isl.syncBodies()

	isl.report()
}

// integratePositions moves the island positions with the solved velocities,
// clamping large motions.
func (isl *island) integratePositions(h float64) {
	for i := range isl.bodies {
		c := isl.positions[i].C
		a := isl.positions[i].A
		v := isl.velocities[i].V
		w := isl.velocities[i].W

		translation := v.Mul(h)
		if translation.Dot(translation) > geom.MaxTranslationSquared {
			ratio := geom.MaxTranslation / translation.Len()
			v = v.Mul(ratio)
		}

		rotation := h * w
		if rotation*rotation > geom.MaxRotationSquared {
			ratio := geom.MaxRotation / math.Abs(rotation)
			w *= ratio
		}

		// Integrate
		c = c.Add(v.Mul(h))
		a += h * w

		isl.positions[i] = constraint.Position{C: c, A: a}
		isl.velocities[i] = constraint.Velocity{V: v, W: w}
	}
}

func (isl *island) syncBodies() {
	for i, b := range isl.bodies {
		b.sweep.C = isl.positions[i].C
		b.sweep.A = isl.positions[i].A
		b.linearVelocity = isl.velocities[i].V
		b.angularVelocity = isl.velocities[i].W
		b.synchronizeTransform()
	}
}

// report sends the solved impulses to the contact listener.
func (isl *island) report() {
	if isl.listener == nil {
		return
	}

	for i, c := range isl.contacts {
		vc := &isl.contactSolver.VelocityConstraints[i]

		impulse := ContactImpulse{Count: vc.PointCount}
		for j := 0; j < vc.PointCount; j++ {
			impulse.NormalImpulses[j] = vc.Points[j].NormalImpulse
			impulse.TangentImpulses[j] = vc.Points[j].TangentImpulse
		}

		isl.listener.PostSolve(c, &impulse)
	}
}
