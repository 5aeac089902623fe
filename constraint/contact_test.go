package constraint

import (
	"math"
	"testing"

	"github.com/akmonengine/plank/collision"
	"github.com/akmonengine/plank/geom"
	"github.com/akmonengine/plank/shape"
	"github.com/go-gl/mathgl/mgl64"
)

// Helper functions to build a two body island

func defaultStep() TimeStep {
	return TimeStep{
		Dt:                 1.0 / 60.0,
		InvDt:              60.0,
		DtRatio:            1.0,
		VelocityIterations: 8,
		PositionIterations: 3,
		WarmStarting:       true,
	}
}

// circlePair collides two unit-mass circles of radius 1, A at the origin.
func circlePair(xB float64, invMassA float64) (*collision.Manifold, ContactInput) {
	manifold := &collision.Manifold{}
	collision.CollideCircles(manifold,
		shape.NewCircle(1), geom.MakeTransform(mgl64.Vec2{0, 0}, 0),
		shape.NewCircle(1), geom.MakeTransform(mgl64.Vec2{xB, 0}, 0))

	return manifold, ContactInput{
		Manifold: manifold,
		Friction: 0.2,
		RadiusA:  1,
		RadiusB:  1,
		IndexA:   0,
		IndexB:   1,
		InvMassA: invMassA,
		InvMassB: 1,
		InvIA:    invMassA,
		InvIB:    1,
	}
}

// boxOnGround drops a 1x1 box with its bottom at y=0.5-depth onto a static
// ground whose top is at y=0.5.
func boxOnGround(depth float64) (*collision.Manifold, ContactInput, []Position) {
	ground := shape.NewBox(5, 0.5)
	box := shape.NewBox(0.5, 0.5)
	boxY := 1.0 - depth

	manifold := &collision.Manifold{}
	collision.CollidePolygons(manifold,
		ground, geom.MakeTransform(mgl64.Vec2{0, 0}, 0),
		box, geom.MakeTransform(mgl64.Vec2{0, boxY}, 0))

	md := box.ComputeMass(1)
	input := ContactInput{
		Manifold: manifold,
		Friction: 0.6,
		RadiusA:  ground.Radius,
		RadiusB:  box.Radius,
		IndexA:   0,
		IndexB:   1,
		InvMassA: 0,
		InvMassB: 1 / md.Mass,
		InvIA:    0,
		InvIB:    1 / md.I,
	}
	positions := []Position{{C: mgl64.Vec2{0, 0}}, {C: mgl64.Vec2{0, boxY}}}
	return manifold, input, positions
}

// =============================================================================
// Velocity Tests
// =============================================================================

func TestSolveVelocityHeadOn(t *testing.T) {
	tests := []struct {
		name        string
		restitution float64
		speed       float64
		wantA       float64
		wantB       float64
	}{
		{"inelastic", 0.0, 5, 2.5, 2.5},
		{"elastic swaps velocities", 1.0, 5, 0, 5},
		{"slow impact is inelastic", 1.0, 0.5, 0.25, 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, input := circlePair(1.9, 1)
			input.Restitution = tt.restitution

			positions := []Position{{C: mgl64.Vec2{0, 0}}, {C: mgl64.Vec2{1.9, 0}}}
			velocities := []Velocity{{V: mgl64.Vec2{tt.speed, 0}}, {}}

			var cs ContactSolver
			cs.Initialize(defaultStep(), []ContactInput{input}, positions, velocities)
			cs.InitializeVelocityConstraints()
			for i := 0; i < 10; i++ {
				cs.SolveVelocityConstraints()
			}

			if !mgl64.FloatEqualThreshold(velocities[0].V[0], tt.wantA, 1e-6) {
				t.Errorf("vA = %v, want %v", velocities[0].V[0], tt.wantA)
			}
			if !mgl64.FloatEqualThreshold(velocities[1].V[0], tt.wantB, 1e-6) {
				t.Errorf("vB = %v, want %v", velocities[1].V[0], tt.wantB)
			}

			momentum := velocities[0].V[0] + velocities[1].V[0]
			if !mgl64.FloatEqualThreshold(momentum, tt.speed, 1e-6) {
				t.Errorf("momentum = %v, want %v", momentum, tt.speed)
			}
		})
	}
}

func TestStaticBodyIsNeverMoved(t *testing.T) {
	manifold, input, positions := boxOnGround(0.1)
	if manifold.PointCount != 2 {
		t.Fatalf("PointCount = %d, want 2", manifold.PointCount)
	}

	velocities := []Velocity{{}, {V: mgl64.Vec2{0.3, -4}, W: 0.5}}

	var cs ContactSolver
	cs.Initialize(defaultStep(), []ContactInput{input}, positions, velocities)
	cs.InitializeVelocityConstraints()
	cs.WarmStart()
	for i := 0; i < 50; i++ {
		cs.SolveVelocityConstraints()
	}
	for i := 0; i < 50; i++ {
		cs.SolvePositionConstraints()
	}

	if velocities[0] != (Velocity{}) {
		t.Errorf("static velocity = %+v, want zero", velocities[0])
	}
	if positions[0] != (Position{}) {
		t.Errorf("static position = %+v, want origin", positions[0])
	}
	if velocities[1].V[1] < -1e-3 {
		t.Errorf("box still approaches the ground at %v", velocities[1].V[1])
	}
}

func TestFrictionIsBoundedByNormalImpulse(t *testing.T) {
	_, input, positions := boxOnGround(0.01)
	velocities := []Velocity{{}, {V: mgl64.Vec2{3, -2}}}

	var cs ContactSolver
	cs.Initialize(defaultStep(), []ContactInput{input}, positions, velocities)
	cs.InitializeVelocityConstraints()
	for i := 0; i < 8; i++ {
		cs.SolveVelocityConstraints()

		for j, p := range cs.VelocityConstraints[0].Points[:cs.VelocityConstraints[0].PointCount] {
			if p.NormalImpulse < 0 {
				t.Fatalf("iteration %d point %d: normal impulse %v is negative", i, j, p.NormalImpulse)
			}
			if math.Abs(p.TangentImpulse) > input.Friction*p.NormalImpulse+1e-12 {
				t.Fatalf("iteration %d point %d: friction %v exceeds %v", i, j, p.TangentImpulse, input.Friction*p.NormalImpulse)
			}
		}
	}

	// Friction slows the slide without reversing it.
	if v := velocities[1].V[0]; v >= 3 || v < 0 {
		t.Errorf("sliding velocity = %v, want in [0, 3)", v)
	}
}

// =============================================================================
// Warm Start Tests
// =============================================================================

func TestWarmStartCarriesImpulses(t *testing.T) {
	tests := []struct {
		name         string
		warmStarting bool
		dtRatio      float64
		expected     float64
	}{
		{"warm starting", true, 1.0, 2.0},
		{"rescaled by dt ratio", true, 0.5, 1.0},
		{"disabled", false, 1.0, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manifold, input := circlePair(1.9, 1)
			manifold.Points[0].NormalImpulse = 2.0

			step := defaultStep()
			step.WarmStarting = tt.warmStarting
			step.DtRatio = tt.dtRatio

			positions := []Position{{C: mgl64.Vec2{0, 0}}, {C: mgl64.Vec2{1.9, 0}}}
			velocities := []Velocity{{}, {}}

			var cs ContactSolver
			cs.Initialize(step, []ContactInput{input}, positions, velocities)
			cs.InitializeVelocityConstraints()

			if got := cs.VelocityConstraints[0].Points[0].NormalImpulse; got != tt.expected {
				t.Fatalf("NormalImpulse = %v, want %v", got, tt.expected)
			}

			cs.WarmStart()
			// The impulse pushes A along -x and B along +x.
			if !mgl64.FloatEqualThreshold(velocities[1].V[0], tt.expected, 1e-6) {
				t.Errorf("vB = %v, want %v", velocities[1].V[0], tt.expected)
			}
			if !mgl64.FloatEqualThreshold(velocities[0].V[0], -tt.expected, 1e-6) {
				t.Errorf("vA = %v, want %v", velocities[0].V[0], -tt.expected)
			}
		})
	}
}

func TestStoreImpulses(t *testing.T) {
	manifold, input := circlePair(1.9, 1)

	positions := []Position{{C: mgl64.Vec2{0, 0}}, {C: mgl64.Vec2{1.9, 0}}}
	velocities := []Velocity{{V: mgl64.Vec2{4, 0}}, {}}

	var cs ContactSolver
	cs.Initialize(defaultStep(), []ContactInput{input}, positions, velocities)
	cs.InitializeVelocityConstraints()
	cs.SolveVelocityConstraints()
	cs.StoreImpulses()

	if manifold.Points[0].NormalImpulse != cs.VelocityConstraints[0].Points[0].NormalImpulse {
		t.Errorf("manifold impulse = %v, solver impulse = %v", manifold.Points[0].NormalImpulse, cs.VelocityConstraints[0].Points[0].NormalImpulse)
	}
	if !mgl64.FloatEqualThreshold(manifold.Points[0].NormalImpulse, 2.0, 1e-6) {
		t.Errorf("NormalImpulse = %v, want 2", manifold.Points[0].NormalImpulse)
	}
}

func TestInitializeReusesBuffers(t *testing.T) {
	_, input := circlePair(1.9, 1)
	positions := []Position{{C: mgl64.Vec2{0, 0}}, {C: mgl64.Vec2{1.9, 0}}}
	velocities := []Velocity{{}, {}}

	var cs ContactSolver
	cs.Initialize(defaultStep(), []ContactInput{input, input}, positions, velocities)
	cs.Initialize(defaultStep(), []ContactInput{input}, positions, velocities)

	if len(cs.VelocityConstraints) != 1 || len(cs.positionConstraints) != 1 {
		t.Errorf("got %d velocity and %d position constraints, want 1 each", len(cs.VelocityConstraints), len(cs.positionConstraints))
	}
}

// =============================================================================
// Position Tests
// =============================================================================

func TestSolvePositionConverges(t *testing.T) {
	_, input, positions := boxOnGround(0.1)
	velocities := []Velocity{{}, {}}

	var cs ContactSolver
	cs.Initialize(defaultStep(), []ContactInput{input}, positions, velocities)
	cs.InitializeVelocityConstraints()

	converged := false
	for i := 0; i < 100 && !converged; i++ {
		converged = cs.SolvePositionConstraints()
	}
	if !converged {
		t.Fatal("position solver did not converge")
	}

	// The box bottom is back within a few slops of the ground top.
	bottom := positions[1].C[1] - 0.5 - 2*geom.PolygonRadius
	if bottom < 0.5-3*geom.LinearSlop-1e-3 {
		t.Errorf("box bottom = %v, ground top = 0.5", bottom)
	}
	if math.Abs(positions[1].A) > 0.05 {
		t.Errorf("angle = %v, want close to 0", positions[1].A)
	}
}

func TestSolveTOIPositionMovesOnlyTOIBodies(t *testing.T) {
	_, input := circlePair(1.5, 1)
	positions := []Position{{C: mgl64.Vec2{0, 0}}, {C: mgl64.Vec2{1.5, 0}}}
	velocities := []Velocity{{}, {}}

	var cs ContactSolver
	cs.Initialize(defaultStep(), []ContactInput{input}, positions, velocities)

	// Only B takes part in the event: A must stay put.
	for i := 0; i < 20; i++ {
		if cs.SolveTOIPositionConstraints(1, 1) {
			break
		}
	}

	if positions[0].C != (mgl64.Vec2{0, 0}) {
		t.Errorf("A moved to %v", positions[0].C)
	}
	if positions[1].C[0] <= 1.5 {
		t.Errorf("B at %v, want pushed along +x", positions[1].C)
	}
}
