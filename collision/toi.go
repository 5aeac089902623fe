package collision

import (
	"math"

	"github.com/akmonengine/plank/geom"
	"github.com/akmonengine/plank/gjk"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	toiMaxIterations     = 20
	toiMaxRootIterations = 50
)

// TOIInput holds two proxies moving along their sweeps over [0, TMax].
type TOIInput struct {
	ProxyA gjk.DistanceProxy
	ProxyB gjk.DistanceProxy
	SweepA geom.Sweep
	SweepB geom.Sweep
	// TMax is the sweep interval upper bound, in [0, 1].
	TMax float64
}

// TOIState is the outcome of a time of impact query.
type TOIState int

const (
	TOIStateUnknown TOIState = iota
	TOIStateFailed
	TOIStateOverlapped
	TOIStateTouching
	TOIStateSeparated
)

func (s TOIState) String() string {
	switch s {
	case TOIStateFailed:
		return "failed"
	case TOIStateOverlapped:
		return "overlapped"
	case TOIStateTouching:
		return "touching"
	case TOIStateSeparated:
		return "separated"
	default:
		return "unknown"
	}
}

type TOIOutput struct {
	State TOIState
	T     float64
}

type separationType int

const (
	separationPoints separationType = iota
	separationFaceA
	separationFaceB
)

// separationFunction measures the distance between the two proxies along a
// fixed axis derived from the GJK simplex, as a function of sweep time.
type separationFunction struct {
	proxyA, proxyB *gjk.DistanceProxy
	sweepA, sweepB geom.Sweep
	kind           separationType
	localPoint     mgl64.Vec2
	axis           mgl64.Vec2
}

func (f *separationFunction) initialize(cache *gjk.SimplexCache, proxyA *gjk.DistanceProxy, sweepA geom.Sweep, proxyB *gjk.DistanceProxy, sweepB geom.Sweep, t1 float64) float64 {
	f.proxyA = proxyA
	f.proxyB = proxyB
	f.sweepA = sweepA
	f.sweepB = sweepB

	xfA := sweepA.GetTransform(t1)
	xfB := sweepB.GetTransform(t1)

	if cache.Count == 1 {
		f.kind = separationPoints
		localPointA := proxyA.GetVertex(cache.IndexA[0])
		localPointB := proxyB.GetVertex(cache.IndexB[0])
		pointA := xfA.Apply(localPointA)
		pointB := xfB.Apply(localPointB)
		var s float64
		f.axis, s = geom.Normalize(pointB.Sub(pointA))
		return s
	}

	if cache.IndexA[0] == cache.IndexA[1] {
		// Two points on B and one on A.
		f.kind = separationFaceB
		localPointB1 := proxyB.GetVertex(cache.IndexB[0])
		localPointB2 := proxyB.GetVertex(cache.IndexB[1])

		f.axis, _ = geom.Normalize(geom.CrossVS(localPointB2.Sub(localPointB1), 1.0))
		normal := xfB.Q.Rotate(f.axis)

		f.localPoint = localPointB1.Add(localPointB2).Mul(0.5)
		pointB := xfB.Apply(f.localPoint)

		pointA := xfA.Apply(proxyA.GetVertex(cache.IndexA[0]))

		s := pointA.Sub(pointB).Dot(normal)
		if s < 0.0 {
			f.axis = geom.Neg(f.axis)
			s = -s
		}
		return s
	}

	// Two points on A and one or two points on B.
	f.kind = separationFaceA
	localPointA1 := proxyA.GetVertex(cache.IndexA[0])
	localPointA2 := proxyA.GetVertex(cache.IndexA[1])

	f.axis, _ = geom.Normalize(geom.CrossVS(localPointA2.Sub(localPointA1), 1.0))
	normal := xfA.Q.Rotate(f.axis)

	f.localPoint = localPointA1.Add(localPointA2).Mul(0.5)
	pointA := xfA.Apply(f.localPoint)

	pointB := xfB.Apply(proxyB.GetVertex(cache.IndexB[0]))

	s := pointB.Sub(pointA).Dot(normal)
	if s < 0.0 {
		f.axis = geom.Neg(f.axis)
		s = -s
	}
	return s
}

// findMinSeparation returns the deepest points along the axis at time t.
func (f *separationFunction) findMinSeparation(t float64) (indexA, indexB int, separation float64) {
	xfA := f.sweepA.GetTransform(t)
	xfB := f.sweepB.GetTransform(t)

	switch f.kind {
	case separationPoints:
		axisA := xfA.Q.InvRotate(f.axis)
		axisB := xfB.Q.InvRotate(geom.Neg(f.axis))

		indexA = f.proxyA.GetSupport(axisA)
		indexB = f.proxyB.GetSupport(axisB)

		pointA := xfA.Apply(f.proxyA.GetVertex(indexA))
		pointB := xfB.Apply(f.proxyB.GetVertex(indexB))
		return indexA, indexB, pointB.Sub(pointA).Dot(f.axis)

	case separationFaceA:
		normal := xfA.Q.Rotate(f.axis)
		pointA := xfA.Apply(f.localPoint)

		axisB := xfB.Q.InvRotate(geom.Neg(normal))

		indexB = f.proxyB.GetSupport(axisB)
		pointB := xfB.Apply(f.proxyB.GetVertex(indexB))
		return -1, indexB, pointB.Sub(pointA).Dot(normal)

	case separationFaceB:
		normal := xfB.Q.Rotate(f.axis)
		pointB := xfB.Apply(f.localPoint)

		axisA := xfA.Q.InvRotate(geom.Neg(normal))

		indexA = f.proxyA.GetSupport(axisA)
		pointA := xfA.Apply(f.proxyA.GetVertex(indexA))
		return indexA, -1, pointA.Sub(pointB).Dot(normal)
	}

	return -1, -1, 0.0
}

// evaluate returns the separation of the given support points at time t.
func (f *separationFunction) evaluate(indexA, indexB int, t float64) float64 {
	xfA := f.sweepA.GetTransform(t)
	xfB := f.sweepB.GetTransform(t)

	switch f.kind {
	case separationPoints:
		pointA := xfA.Apply(f.proxyA.GetVertex(indexA))
		pointB := xfB.Apply(f.proxyB.GetVertex(indexB))
		return pointB.Sub(pointA).Dot(f.axis)

	case separationFaceA:
		normal := xfA.Q.Rotate(f.axis)
		pointA := xfA.Apply(f.localPoint)
		pointB := xfB.Apply(f.proxyB.GetVertex(indexB))
		return pointB.Sub(pointA).Dot(normal)

	case separationFaceB:
		normal := xfB.Q.Rotate(f.axis)
		pointB := xfB.Apply(f.localPoint)
		pointA := xfA.Apply(f.proxyA.GetVertex(indexA))
		return pointA.Sub(pointB).Dot(normal)
	}

	return 0.0
}

// TimeOfImpact computes the upper bound on time before two shapes penetrate,
// using conservative advancement. Time is expressed as a fraction in [0, TMax].
// The shapes are considered touching once their core distance is within a
// target a few linear slops below the sum of their radii; this keeps a small
// overlap so the position solver has something to work on.
func TimeOfImpact(input *TOIInput) TOIOutput {
	output := TOIOutput{State: TOIStateUnknown, T: input.TMax}

	proxyA := &input.ProxyA
	proxyB := &input.ProxyB

	sweepA := input.SweepA
	sweepB := input.SweepB

	// Large rotations can make the root finder fail, so we normalize the
	// sweep angles.
	sweepA.Normalize()
	sweepB.Normalize()

	tMax := input.TMax

	totalRadius := proxyA.Radius + proxyB.Radius
	target := math.Max(geom.LinearSlop, totalRadius-3.0*geom.LinearSlop)
	tolerance := 0.25 * geom.LinearSlop

	t1 := 0.0
	iter := 0

	// Prepare input for distance query.
	var cache gjk.SimplexCache
	distanceInput := gjk.DistanceInput{
		ProxyA:   input.ProxyA,
		ProxyB:   input.ProxyB,
		UseRadii: false,
	}

	// The outer loop progressively attempts to compute new separating axes.
	// This loop terminates when an axis is repeated (no progress is made).
	for {
		xfA := sweepA.GetTransform(t1)
		xfB := sweepB.GetTransform(t1)

		// Get the distance between shapes. We can also use the results
		// to get a separating axis.
		distanceInput.TransformA = xfA
		distanceInput.TransformB = xfB
		distanceOutput := gjk.Distance(&cache, &distanceInput)

		// If the shapes are overlapped, we give up on continuous collision.
		if distanceOutput.Distance <= 0.0 {
			output.State = TOIStateOverlapped
			output.T = 0.0
			break
		}

		if distanceOutput.Distance < target+tolerance {
			// Victory!
			output.State = TOIStateTouching
			output.T = t1
			break
		}

		// Initialize the separating axis.
		var fcn separationFunction
		fcn.initialize(&cache, proxyA, sweepA, proxyB, sweepB, t1)

		// Compute the TOI on the separating axis. We do this by successively
		// resolving the deepest point. This loop is bounded by the number of vertices.
		done := false
		t2 := tMax
		pushBackIter := 0
		for {
			// Find the deepest point at t2. Store the witness point indices.
			indexA, indexB, s2 := fcn.findMinSeparation(t2)

			// Is the final configuration separated?
			if s2 > target+tolerance {
				// Victory!
				output.State = TOIStateSeparated
				output.T = tMax
				done = true
				break
			}

			// Has the separation reached tolerance?
			if s2 > target-tolerance {
				// Advance the sweeps
				t1 = t2
				break
			}

			// Compute the initial separation of the witness points.
			s1 := fcn.evaluate(indexA, indexB, t1)

			// Check for initial overlap. This might happen if the root finder
			// runs out of iterations.
			if s1 < target-tolerance {
				output.State = TOIStateFailed
				output.T = t1
				done = true
				break
			}

			// Check for touching
			if s1 <= target+tolerance {
				// Victory! t1 should hold the TOI (could be 0.0).
				output.State = TOIStateTouching
				output.T = t1
				done = true
				break
			}

			// Compute 1D root of: f(x) - target = 0
			rootIterCount := 0
			a1, a2 := t1, t2
			for {
				// Use a mix of the secant rule and bisection.
				var t float64
				if rootIterCount&1 != 0 {
					// Secant rule to improve convergence.
					t = a1 + (target-s1)*(a2-a1)/(s2-s1)
				} else {
					// Bisection to guarantee progress.
					t = 0.5 * (a1 + a2)
				}
				rootIterCount++

				s := fcn.evaluate(indexA, indexB, t)

				if math.Abs(s-target) < tolerance {
					// t2 holds a tentative value for t1
					t2 = t
					break
				}

				// Ensure we continue to bracket the root.
				if s > target {
					a1 = t
					s1 = s
				} else {
					a2 = t
					s2 = s
				}

				if rootIterCount == toiMaxRootIterations {
					break
				}
			}

			pushBackIter++

			if pushBackIter == geom.MaxPolygonVertices {
				break
			}
		}

		iter++

		if done {
			break
		}

		if iter == toiMaxIterations {
			// Root finder got stuck. Semi-victory.
			output.State = TOIStateFailed
			output.T = t1
			break
		}
	}

	return output
}
