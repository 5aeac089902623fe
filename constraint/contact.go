package constraint

import (
	"math"

	"github.com/akmonengine/plank/collision"
	"github.com/akmonengine/plank/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// ContactInput is what the solver needs to know about one touching contact.
// Manifold is read at initialization and receives the impulses in StoreImpulses.
type ContactInput struct {
	Manifold *collision.Manifold

	Friction    float64
	Restitution float64

	RadiusA, RadiusB float64

	// IndexA and IndexB are island indices into SolverData.
	IndexA, IndexB int

	InvMassA, InvMassB float64
	InvIA, InvIB       float64

	LocalCenterA, LocalCenterB mgl64.Vec2
}

// VelocityConstraintPoint - per point data of the velocity solver
type VelocityConstraintPoint struct {
	RA, RB         mgl64.Vec2
	NormalImpulse  float64
	TangentImpulse float64
	NormalMass     float64
	TangentMass    float64
	VelocityBias   float64
}

// VelocityConstraint - velocity solver state for one contact
type VelocityConstraint struct {
	Points     [geom.MaxManifoldPoints]VelocityConstraintPoint
	Normal     mgl64.Vec2
	PointCount int

	IndexA, IndexB     int
	InvMassA, InvMassB float64
	InvIA, InvIB       float64

	Friction    float64
	Restitution float64

	manifold *collision.Manifold
}

// positionConstraint keeps the manifold in local coordinates so that it can be
// re-evaluated as the positions change.
type positionConstraint struct {
	localPoints [geom.MaxManifoldPoints]mgl64.Vec2
	localNormal mgl64.Vec2
	localPoint  mgl64.Vec2
	kind        collision.ManifoldType
	pointCount  int

	indexA, indexB             int
	invMassA, invMassB         float64
	invIA, invIB               float64
	localCenterA, localCenterB mgl64.Vec2
	radiusA, radiusB           float64
}

// ContactSolver solves the contacts of one island with sequential impulses.
// It is reusable: Initialize resets it for a new set of contacts without
// releasing its buffers.
type ContactSolver struct {
	Step                TimeStep
	Positions           []Position
	Velocities          []Velocity
	VelocityConstraints []VelocityConstraint

	positionConstraints []positionConstraint
}

// ============================================================================
// Setup
// ============================================================================

// Initialize loads the contacts and scales the carried impulses by the step
// ratio when warm starting, or clears them otherwise.
func (cs *ContactSolver) Initialize(step TimeStep, contacts []ContactInput, positions []Position, velocities []Velocity) {
	cs.Step = step
	cs.Positions = positions
	cs.Velocities = velocities

	cs.VelocityConstraints = cs.VelocityConstraints[:0]
	cs.positionConstraints = cs.positionConstraints[:0]

	for i := range contacts {
		in := &contacts[i]
		manifold := in.Manifold

		vc := VelocityConstraint{
			Friction:    in.Friction,
			Restitution: in.Restitution,
			IndexA:      in.IndexA,
			IndexB:      in.IndexB,
			InvMassA:    in.InvMassA,
			InvMassB:    in.InvMassB,
			InvIA:       in.InvIA,
			InvIB:       in.InvIB,
			PointCount:  manifold.PointCount,
			manifold:    manifold,
		}

		pc := positionConstraint{
			indexA:       in.IndexA,
			indexB:       in.IndexB,
			invMassA:     in.InvMassA,
			invMassB:     in.InvMassB,
			invIA:        in.InvIA,
			invIB:        in.InvIB,
			localCenterA: in.LocalCenterA,
			localCenterB: in.LocalCenterB,
			localNormal:  manifold.LocalNormal,
			localPoint:   manifold.LocalPoint,
			pointCount:   manifold.PointCount,
			radiusA:      in.RadiusA,
			radiusB:      in.RadiusB,
			kind:         manifold.Type,
		}

		for j := 0; j < manifold.PointCount; j++ {
			mp := &manifold.Points[j]
			vcp := &vc.Points[j]

			if step.WarmStarting {
				vcp.NormalImpulse = step.DtRatio * mp.NormalImpulse
				vcp.TangentImpulse = step.DtRatio * mp.TangentImpulse
			}

			pc.localPoints[j] = mp.LocalPoint
		}

		cs.VelocityConstraints = append(cs.VelocityConstraints, vc)
		cs.positionConstraints = append(cs.positionConstraints, pc)
	}
}

// InitializeVelocityConstraints computes the lever arms, effective masses and
// restitution bias of every point from the current positions.
func (cs *ContactSolver) InitializeVelocityConstraints() {
	for i := range cs.VelocityConstraints {
		vc := &cs.VelocityConstraints[i]
		pc := &cs.positionConstraints[i]

		mA, mB := vc.InvMassA, vc.InvMassB
		iA, iB := vc.InvIA, vc.InvIB

		cA, aA := cs.Positions[vc.IndexA].C, cs.Positions[vc.IndexA].A
		vA, wA := cs.Velocities[vc.IndexA].V, cs.Velocities[vc.IndexA].W
		cB, aB := cs.Positions[vc.IndexB].C, cs.Positions[vc.IndexB].A
		vB, wB := cs.Velocities[vc.IndexB].V, cs.Velocities[vc.IndexB].W

		xfA := bodyTransform(cA, aA, pc.localCenterA)
		xfB := bodyTransform(cB, aB, pc.localCenterB)

		var worldManifold collision.WorldManifold
		worldManifold.Initialize(vc.manifold, xfA, pc.radiusA, xfB, pc.radiusB)

		vc.Normal = worldManifold.Normal
		tangent := geom.CrossVS(vc.Normal, 1.0)

		for j := 0; j < vc.PointCount; j++ {
			vcp := &vc.Points[j]

			vcp.RA = worldManifold.Points[j].Sub(cA)
			vcp.RB = worldManifold.Points[j].Sub(cB)

			rnA := geom.Cross(vcp.RA, vc.Normal)
			rnB := geom.Cross(vcp.RB, vc.Normal)
			kNormal := mA + mB + iA*rnA*rnA + iB*rnB*rnB
			vcp.NormalMass = 0.0
			if kNormal > 0.0 {
				vcp.NormalMass = 1.0 / kNormal
			}

			rtA := geom.Cross(vcp.RA, tangent)
			rtB := geom.Cross(vcp.RB, tangent)
			kTangent := mA + mB + iA*rtA*rtA + iB*rtB*rtB
			vcp.TangentMass = 0.0
			if kTangent > 0.0 {
				vcp.TangentMass = 1.0 / kTangent
			}

			// Setup a velocity bias for restitution.
			vcp.VelocityBias = 0.0
			dv := vB.Add(geom.CrossSV(wB, vcp.RB)).Sub(vA).Sub(geom.CrossSV(wA, vcp.RA))
			vRel := vc.Normal.Dot(dv)
			if vRel < -geom.VelocityThreshold {
				vcp.VelocityBias = -vc.Restitution * vRel
			}
		}
	}
}

// ============================================================================
// Velocity
// ============================================================================

// WarmStart applies the carried impulses to the velocities.
func (cs *ContactSolver) WarmStart() {
	for i := range cs.VelocityConstraints {
		vc := &cs.VelocityConstraints[i]

		mA, iA := vc.InvMassA, vc.InvIA
		mB, iB := vc.InvMassB, vc.InvIB

		vA, wA := cs.Velocities[vc.IndexA].V, cs.Velocities[vc.IndexA].W
		vB, wB := cs.Velocities[vc.IndexB].V, cs.Velocities[vc.IndexB].W

		normal := vc.Normal
		tangent := geom.CrossVS(normal, 1.0)

		for j := 0; j < vc.PointCount; j++ {
			vcp := &vc.Points[j]
			p := normal.Mul(vcp.NormalImpulse).Add(tangent.Mul(vcp.TangentImpulse))
			wA -= iA * geom.Cross(vcp.RA, p)
			vA = vA.Sub(p.Mul(mA))
			wB += iB * geom.Cross(vcp.RB, p)
			vB = vB.Add(p.Mul(mB))
		}

		cs.Velocities[vc.IndexA] = Velocity{V: vA, W: wA}
		cs.Velocities[vc.IndexB] = Velocity{V: vB, W: wB}
	}
}

// SolveVelocityConstraints runs one sequential impulse pass. The accumulated
// normal impulse is kept non negative and the friction impulse is clamped by
// the friction coefficient times the updated normal impulse.
func (cs *ContactSolver) SolveVelocityConstraints() {
	for i := range cs.VelocityConstraints {
		vc := &cs.VelocityConstraints[i]

		mA, iA := vc.InvMassA, vc.InvIA
		mB, iB := vc.InvMassB, vc.InvIB

		vA, wA := cs.Velocities[vc.IndexA].V, cs.Velocities[vc.IndexA].W
		vB, wB := cs.Velocities[vc.IndexB].V, cs.Velocities[vc.IndexB].W

		normal := vc.Normal
		tangent := geom.CrossVS(normal, 1.0)
		friction := vc.Friction

		for j := 0; j < vc.PointCount; j++ {
			vcp := &vc.Points[j]

			// Normal constraint.
			dv := vB.Add(geom.CrossSV(wB, vcp.RB)).Sub(vA).Sub(geom.CrossSV(wA, vcp.RA))
			vn := dv.Dot(normal)

			lambda := -vcp.NormalMass * (vn - vcp.VelocityBias)

			// Clamp the accumulated impulse.
			newImpulse := math.Max(vcp.NormalImpulse+lambda, 0.0)
			lambda = newImpulse - vcp.NormalImpulse
			vcp.NormalImpulse = newImpulse

			p := normal.Mul(lambda)
			vA = vA.Sub(p.Mul(mA))
			wA -= iA * geom.Cross(vcp.RA, p)
			vB = vB.Add(p.Mul(mB))
			wB += iB * geom.Cross(vcp.RB, p)

			// Friction constraint.
			dv = vB.Add(geom.CrossSV(wB, vcp.RB)).Sub(vA).Sub(geom.CrossSV(wA, vcp.RA))
			vt := dv.Dot(tangent)

			lambda = vcp.TangentMass * (-vt)

			maxFriction := friction * vcp.NormalImpulse
			newImpulse = mgl64.Clamp(vcp.TangentImpulse+lambda, -maxFriction, maxFriction)
			lambda = newImpulse - vcp.TangentImpulse
			vcp.TangentImpulse = newImpulse

			p = tangent.Mul(lambda)
			vA = vA.Sub(p.Mul(mA))
			wA -= iA * geom.Cross(vcp.RA, p)
			vB = vB.Add(p.Mul(mB))
			wB += iB * geom.Cross(vcp.RB, p)
		}

		cs.Velocities[vc.IndexA] = Velocity{V: vA, W: wA}
		cs.Velocities[vc.IndexB] = Velocity{V: vB, W: wB}
	}
}

// StoreImpulses writes the accumulated impulses back into the manifolds for
// the next step's warm start.
func (cs *ContactSolver) StoreImpulses() {
	for i := range cs.VelocityConstraints {
		vc := &cs.VelocityConstraints[i]
		for j := 0; j < vc.PointCount; j++ {
			vc.manifold.Points[j].NormalImpulse = vc.Points[j].NormalImpulse
			vc.manifold.Points[j].TangentImpulse = vc.Points[j].TangentImpulse
		}
	}
}

// ============================================================================
// Position
// ============================================================================

// SolvePositionConstraints runs one non linear Gauss-Seidel pass and reports
// whether the worst separation is within tolerance.
func (cs *ContactSolver) SolvePositionConstraints() bool {
	minSeparation := cs.solvePositions(geom.Baumgarte, -1, -1, true)

	// We can't expect minSeparation >= -LinearSlop because we don't
	// push the separation above -LinearSlop.
	return minSeparation >= -3.0*geom.LinearSlop
}

// SolveTOIPositionConstraints is the sub-step variant: only the two bodies of
// the time of impact event are moved, with a stiffer correction.
func (cs *ContactSolver) SolveTOIPositionConstraints(toiIndexA, toiIndexB int) bool {
	minSeparation := cs.solvePositions(geom.TOIBaumgarte, toiIndexA, toiIndexB, false)

	return minSeparation >= -1.5*geom.LinearSlop
}

func (cs *ContactSolver) solvePositions(baumgarte float64, toiIndexA, toiIndexB int, allBodies bool) float64 {
	minSeparation := 0.0

	for i := range cs.positionConstraints {
		pc := &cs.positionConstraints[i]

		indexA, indexB := pc.indexA, pc.indexB
		localCenterA, localCenterB := pc.localCenterA, pc.localCenterB

		mA, iA := pc.invMassA, pc.invIA
		mB, iB := pc.invMassB, pc.invIB
		if !allBodies {
			mA, iA = 0.0, 0.0
			if indexA == toiIndexA || indexA == toiIndexB {
				mA, iA = pc.invMassA, pc.invIA
			}
			mB, iB = 0.0, 0.0
			if indexB == toiIndexA || indexB == toiIndexB {
				mB, iB = pc.invMassB, pc.invIB
			}
		}

		cA, aA := cs.Positions[indexA].C, cs.Positions[indexA].A
		cB, aB := cs.Positions[indexB].C, cs.Positions[indexB].A

		// Solve normal constraints.
		for j := 0; j < pc.pointCount; j++ {
			xfA := bodyTransform(cA, aA, localCenterA)
			xfB := bodyTransform(cB, aB, localCenterB)

			normal, point, separation := pc.evaluate(xfA, xfB, j)

			rA := point.Sub(cA)
			rB := point.Sub(cB)

			// Track max constraint error.
			minSeparation = math.Min(minSeparation, separation)

			// Prevent large corrections and allow slop.
			c := mgl64.Clamp(baumgarte*(separation+geom.LinearSlop), -geom.MaxLinearCorrection, 0.0)

			// Compute the effective mass.
			rnA := geom.Cross(rA, normal)
			rnB := geom.Cross(rB, normal)
			k := mA + mB + iA*rnA*rnA + iB*rnB*rnB

			// Compute normal impulse.
			impulse := 0.0
			if k > 0.0 {
				impulse = -c / k
			}

			p := normal.Mul(impulse)

			cA = cA.Sub(p.Mul(mA))
			aA -= iA * geom.Cross(rA, p)

			cB = cB.Add(p.Mul(mB))
			aB += iB * geom.Cross(rB, p)
		}

		cs.Positions[indexA] = Position{C: cA, A: aA}
		cs.Positions[indexB] = Position{C: cB, A: aB}
	}

	return minSeparation
}

// evaluate returns the world normal, the contact point and the separation of
// point index under the given transforms.
func (pc *positionConstraint) evaluate(xfA, xfB geom.Transform, index int) (normal, point mgl64.Vec2, separation float64) {
	switch pc.kind {
	case collision.ManifoldCircles:
		pointA := xfA.Apply(pc.localPoint)
		pointB := xfB.Apply(pc.localPoints[0])
		normal, _ = geom.Normalize(pointB.Sub(pointA))
		point = pointA.Add(pointB).Mul(0.5)
		separation = pointB.Sub(pointA).Dot(normal) - pc.radiusA - pc.radiusB

	case collision.ManifoldFaceA:
		normal = xfA.Q.Rotate(pc.localNormal)
		planePoint := xfA.Apply(pc.localPoint)

		clipPoint := xfB.Apply(pc.localPoints[index])
		separation = clipPoint.Sub(planePoint).Dot(normal) - pc.radiusA - pc.radiusB
		point = clipPoint

	case collision.ManifoldFaceB:
		normal = xfB.Q.Rotate(pc.localNormal)
		planePoint := xfB.Apply(pc.localPoint)

		clipPoint := xfA.Apply(pc.localPoints[index])
		separation = clipPoint.Sub(planePoint).Dot(normal) - pc.radiusA - pc.radiusB
		point = clipPoint

		// Ensure normal points from A to B.
		normal = geom.Neg(normal)
	}

	return normal, point, separation
}

// bodyTransform rebuilds a body origin transform from its center of mass.
func bodyTransform(c mgl64.Vec2, a float64, localCenter mgl64.Vec2) geom.Transform {
	q := geom.NewRot(a)
	return geom.Transform{Q: q, P: c.Sub(q.Rotate(localCenter))}
}
