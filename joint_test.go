package plank

import (
	"errors"
	"math"
	"testing"

	"github.com/akmonengine/plank/constraint"
	"github.com/akmonengine/plank/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// newJointWorld creates a world with a static anchor body at the origin. The
// anchor has no fixture, so nothing collides with it.
func newJointWorld(t *testing.T, gravity mgl64.Vec2) (*World, *Body) {
	t.Helper()

	w := NewWorld(gravity)
	ground, err := w.CreateBody(nil)
	if err != nil {
		t.Fatalf("CreateBody(ground) failed: %v", err)
	}
	return w, ground
}

func createJoint(t *testing.T, w *World, def JointDef) Joint {
	t.Helper()

	j, err := w.CreateJoint(def)
	if err != nil {
		t.Fatalf("CreateJoint(%s) failed: %v", def.GetType(), err)
	}
	return j
}

// =============================================================================
// Joint creation and destruction
// =============================================================================

func TestCreateJoint_Errors(t *testing.T) {
	w, ground := newJointWorld(t, mgl64.Vec2{})
	box := createDynamicBox(t, w, mgl64.Vec2{1, 0}, 0.5)
	other := NewWorld(mgl64.Vec2{})
	stranger := createDynamicBox(t, other, mgl64.Vec2{}, 0.5)

	revolute := &RevoluteJointDef{}
	revolute.Initialize(ground, box, mgl64.Vec2{})
	revoluteJoint := createJoint(t, w, revolute)

	distance := NewDistanceJointDef()
	distance.Initialize(ground, box, mgl64.Vec2{}, mgl64.Vec2{1, 0})
	distanceJoint := createJoint(t, w, &distance)

	sameBody := NewDistanceJointDef()
	sameBody.BodyA = box
	sameBody.BodyB = box

	otherWorld := NewDistanceJointDef()
	otherWorld.BodyA = ground
	otherWorld.BodyB = stranger

	missingBody := NewDistanceJointDef()
	missingBody.BodyA = ground

	pulley := NewPulleyJointDef()
	pulley.Initialize(ground, box, mgl64.Vec2{0, 5}, mgl64.Vec2{1, 5}, mgl64.Vec2{}, mgl64.Vec2{1, 0}, 0.0)

	gearOverDistance := NewGearJointDef(revoluteJoint, distanceJoint, 1.0)

	ring := NewConstantVolumeJointDef()
	ring.AddBody(ground)
	ring.AddBody(box)

	tests := []struct {
		name     string
		def      JointDef
		expected error
	}{
		{"nil definition", nil, ErrInvalidDefinition},
		{"same body", &sameBody, ErrInvalidDefinition},
		{"missing body", &missingBody, ErrInvalidDefinition},
		{"body of another world", &otherWorld, ErrDestroyed},
		{"pulley without ratio", &pulley, ErrInvalidDefinition},
		{"gear over a distance joint", &gearOverDistance, ErrInvalidDefinition},
		{"ring of two bodies", &ring, ErrInvalidDefinition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			count := w.GetJointCount()

			j, err := w.CreateJoint(tt.def)
			if !errors.Is(err, tt.expected) {
				t.Errorf("CreateJoint error = %v, expected %v", err, tt.expected)
			}
			if j != nil {
				t.Error("Expected no joint")
			}
			if w.GetJointCount() != count {
				t.Errorf("Joint count changed from %d to %d", count, w.GetJointCount())
			}
		})
	}
}

func TestDestroyJoint(t *testing.T) {
	w, ground := newJointWorld(t, mgl64.Vec2{})
	box := createDynamicBox(t, w, mgl64.Vec2{1, 0}, 0.5)

	def := &RevoluteJointDef{}
	def.Initialize(ground, box, mgl64.Vec2{})
	j := createJoint(t, w, def)

	if len(ground.GetJointEdges()) != 1 || len(box.GetJointEdges()) != 1 {
		t.Fatal("Expected a joint edge on both bodies")
	}

	if err := w.DestroyJoint(j); err != nil {
		t.Fatalf("DestroyJoint failed: %v", err)
	}
	if w.GetJointCount() != 0 {
		t.Errorf("Expected 0 joints, got %d", w.GetJointCount())
	}
	if len(ground.GetJointEdges()) != 0 || len(box.GetJointEdges()) != 0 {
		t.Error("Joint edges were not removed")
	}
	if err := w.DestroyJoint(j); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Second DestroyJoint error = %v, expected ErrDestroyed", err)
	}
}

func TestJoint_CollideConnected(t *testing.T) {
	tests := []struct {
		name             string
		collideConnected bool
		expectedContacts int
	}{
		{"filtered", false, 0},
		{"colliding", true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := newTestWorld(t)
			a := createDynamicBox(t, w, mgl64.Vec2{0, 5}, 0.5)
			b := createDynamicBox(t, w, mgl64.Vec2{0.9, 5}, 0.5)

			def := NewDistanceJointDef()
			def.Initialize(a, b, a.GetPosition(), b.GetPosition())
			def.CollideConnected = tt.collideConnected
			createJoint(t, w, &def)

			w.SetGravity(mgl64.Vec2{})
			stepWorld(t, w, 1)

			contacts := 0
			for _, c := range w.GetContacts() {
				if c.GetFixtureA().GetBody() != a && c.GetFixtureB().GetBody() != a {
					continue
				}
				if c.IsTouching() {
					contacts++
				}
			}
			if contacts != tt.expectedContacts {
				t.Errorf("Expected %d touching contacts, got %d", tt.expectedContacts, contacts)
			}
		})
	}
}

// =============================================================================
// Revolute
// =============================================================================

func TestRevoluteJoint_Pendulum(t *testing.T) {
	w, ground := newJointWorld(t, mgl64.Vec2{0, -10})
	bob := createDynamicCircle(t, w, mgl64.Vec2{2, 0}, 0.25)

	def := &RevoluteJointDef{}
	def.Initialize(ground, bob, mgl64.Vec2{})
	createJoint(t, w, def)

	lowest := 0.0
	for i := 0; i < 120; i++ {
		stepWorld(t, w, 1)
		if r := bob.GetPosition().Len(); math.Abs(r-2.0) > 0.01 {
			t.Fatalf("Step %d: pendulum radius %v, expected 2", i, r)
		}
		lowest = math.Min(lowest, bob.GetPosition()[1])
	}

	if lowest > -1.95 {
		t.Errorf("Pendulum did not swing through the bottom, lowest y = %v", lowest)
	}
}

func TestRevoluteJoint_LimitAndMotor(t *testing.T) {
	t.Run("limit", func(t *testing.T) {
		w, ground := newJointWorld(t, mgl64.Vec2{0, -10})
		arm := createDynamicBox(t, w, mgl64.Vec2{1, 0}, 0.25)

		def := &RevoluteJointDef{}
		def.Initialize(ground, arm, mgl64.Vec2{})
		def.EnableLimit = true
		def.LowerAngle = -0.25 * math.Pi
		def.UpperAngle = 0.25 * math.Pi
		j := createJoint(t, w, def).(*RevoluteJoint)

		stepWorld(t, w, 120)

		angle := j.GetJointAngle()
		if angle < def.LowerAngle-2*geom.AngularSlop || angle > def.UpperAngle+2*geom.AngularSlop {
			t.Errorf("Joint angle %v outside the limits", angle)
		}
		if j.GetLimitState() != LimitAtLower {
			t.Errorf("Limit state = %v, expected at lower", j.GetLimitState())
		}
	})

	t.Run("motor", func(t *testing.T) {
		w, ground := newJointWorld(t, mgl64.Vec2{})
		wheel := createDynamicCircle(t, w, mgl64.Vec2{}, 0.5)

		def := &RevoluteJointDef{}
		def.Initialize(ground, wheel, mgl64.Vec2{})
		def.EnableMotor = true
		def.MotorSpeed = 2.0
		def.MaxMotorTorque = 1000.0
		j := createJoint(t, w, def).(*RevoluteJoint)

		stepWorld(t, w, 30)

		if speed := j.GetJointSpeed(); !mgl64.FloatEqualThreshold(speed, 2.0, 1e-6) {
			t.Errorf("Joint speed = %v, expected 2", speed)
		}
	})
}

// =============================================================================
// Prismatic
// =============================================================================

func TestPrismaticJoint_Slide(t *testing.T) {
	w, ground := newJointWorld(t, mgl64.Vec2{5, -10})
	slider := createDynamicBox(t, w, mgl64.Vec2{}, 0.5)

	def := NewPrismaticJointDef()
	def.Initialize(ground, slider, mgl64.Vec2{}, mgl64.Vec2{1, 0})
	def.EnableLimit = true
	def.LowerTranslation = -1.0
	def.UpperTranslation = 1.0
	j := createJoint(t, w, &def).(*PrismaticJoint)

	stepWorld(t, w, 120)

	p := slider.GetPosition()
	if math.Abs(p[1]) > geom.LinearSlop {
		t.Errorf("Slider left its axis: %v", p)
	}
	if math.Abs(slider.GetAngle()) > geom.AngularSlop {
		t.Errorf("Slider rotated: %v", slider.GetAngle())
	}
	if translation := j.GetJointTranslation(); translation > 1.0+geom.LinearSlop || translation < 0.9 {
		t.Errorf("Translation = %v, expected at the upper limit", translation)
	}
}

// =============================================================================
// Distance and rope
// =============================================================================

func TestDistanceJoint_KeepsLength(t *testing.T) {
	w, ground := newJointWorld(t, mgl64.Vec2{0, -10})
	bob := createDynamicCircle(t, w, mgl64.Vec2{3, 0}, 0.25)

	def := NewDistanceJointDef()
	def.Initialize(ground, bob, mgl64.Vec2{}, bob.GetPosition())
	j := createJoint(t, w, &def).(*DistanceJoint)

	if !mgl64.FloatEqualThreshold(j.GetLength(), 3.0, 1e-12) {
		t.Fatalf("Length = %v, expected 3", j.GetLength())
	}

	stepWorld(t, w, 120)

	if d := bob.GetPosition().Len(); math.Abs(d-3.0) > 0.02 {
		t.Errorf("Distance = %v, expected 3", d)
	}
}

func TestRopeJoint_MaxLength(t *testing.T) {
	w, ground := newJointWorld(t, mgl64.Vec2{0, -10})
	bob := createDynamicCircle(t, w, mgl64.Vec2{1, 0}, 0.25)

	def := NewRopeJointDef()
	def.BodyA = ground
	def.BodyB = bob
	def.LocalAnchorA = mgl64.Vec2{}
	def.LocalAnchorB = mgl64.Vec2{}
	def.MaxLength = 2.0
	j := createJoint(t, w, &def).(*RopeJoint)

	// Slack rope: free fall.
	stepWorld(t, w, 1)
	if j.GetLimitState() != LimitInactive {
		t.Errorf("Limit state = %v, expected inactive", j.GetLimitState())
	}

	stepWorld(t, w, 120)

	if d := bob.GetPosition().Len(); d > 2.0+0.02 {
		t.Errorf("Distance = %v, expected at most 2", d)
	}
}

// =============================================================================
// Pulley
// =============================================================================

func TestPulleyJoint_ConstantLength(t *testing.T) {
	w, _ := newJointWorld(t, mgl64.Vec2{0, -10})
	heavy := createDynamicBox(t, w, mgl64.Vec2{-2, 0}, 0.5)
	light := createDynamicBox(t, w, mgl64.Vec2{2, 0}, 0.5)
	heavy.GetFixtures()[0].SetDensity(3.0)
	heavy.ResetMassData()

	def := NewPulleyJointDef()
	def.Initialize(heavy, light, mgl64.Vec2{-2, 5}, mgl64.Vec2{2, 5}, heavy.GetPosition(), light.GetPosition(), 1.0)
	j := createJoint(t, w, &def).(*PulleyJoint)

	total := j.GetLengthA() + j.GetRatio()*j.GetLengthB()
	if !mgl64.FloatEqualThreshold(total, 10.0, 1e-12) {
		t.Fatalf("Initial rope length = %v, expected 10", total)
	}

	stepWorld(t, w, 60)

	current := j.GetCurrentLengthA() + j.GetRatio()*j.GetCurrentLengthB()
	if math.Abs(current-total) > 0.02 {
		t.Errorf("Rope length = %v, expected %v", current, total)
	}
	if heavy.GetPosition()[1] >= 0.0 || light.GetPosition()[1] <= 0.0 {
		t.Errorf("Heavy body at %v and light body at %v: heavy should go down", heavy.GetPosition(), light.GetPosition())
	}
}

// =============================================================================
// Mouse
// =============================================================================

func TestMouseJoint_FollowsTarget(t *testing.T) {
	w, ground := newJointWorld(t, mgl64.Vec2{})
	box := createDynamicBox(t, w, mgl64.Vec2{}, 0.5)

	def := NewMouseJointDef()
	def.BodyA = ground
	def.BodyB = box
	def.Target = box.GetPosition()
	def.MaxForce = 1000.0 * box.GetMass()
	j := createJoint(t, w, &def).(*MouseJoint)

	j.SetTarget(mgl64.Vec2{2, 1})
	stepWorld(t, w, 180)

	if d := box.GetPosition().Sub(mgl64.Vec2{2, 1}).Len(); d > 0.05 {
		t.Errorf("Box at %v, expected close to the target", box.GetPosition())
	}
}

// =============================================================================
// Gear
// =============================================================================

func TestGearJoint_Ratio(t *testing.T) {
	w, ground := newJointWorld(t, mgl64.Vec2{})
	wheel1 := createDynamicCircle(t, w, mgl64.Vec2{0, 0}, 1.0)
	wheel2 := createDynamicCircle(t, w, mgl64.Vec2{3, 0}, 1.0)

	def1 := &RevoluteJointDef{}
	def1.Initialize(ground, wheel1, wheel1.GetPosition())
	def1.EnableMotor = true
	def1.MotorSpeed = 1.0
	def1.MaxMotorTorque = 10000.0
	joint1 := createJoint(t, w, def1).(*RevoluteJoint)

	def2 := &RevoluteJointDef{}
	def2.Initialize(ground, wheel2, wheel2.GetPosition())
	joint2 := createJoint(t, w, def2).(*RevoluteJoint)

	gearDef := NewGearJointDef(joint1, joint2, 2.0)
	gear := createJoint(t, w, &gearDef).(*GearJoint)

	if gear.GetJoint1() != Joint(joint1) || gear.GetJoint2() != Joint(joint2) {
		t.Error("Gear joints mismatch")
	}

	stepWorld(t, w, 60)

	angle1 := joint1.GetJointAngle()
	angle2 := joint2.GetJointAngle()
	if math.Abs(angle1) < 0.5 {
		t.Fatalf("Driving wheel barely turned: %v", angle1)
	}
	if residual := angle1 + 2.0*angle2; math.Abs(residual) > 0.01 {
		t.Errorf("angle1 + 2*angle2 = %v, expected 0", residual)
	}
}

// solverDataFor indexes every body of w as a single island.
func solverDataFor(w *World) *constraint.SolverData {
	data := &constraint.SolverData{Step: constraint.TimeStep{Dt: 1.0 / 60.0, InvDt: 60.0, DtRatio: 1.0}}
	for i, b := range w.GetBodies() {
		b.islandIndex = i
		data.Positions = append(data.Positions, constraint.Position{C: b.sweep.C, A: b.sweep.A})
		data.Velocities = append(data.Velocities, constraint.Velocity{})
	}
	return data
}

func TestGearJoint_PositionError(t *testing.T) {
	w, ground := newJointWorld(t, mgl64.Vec2{})
	wheel1 := createDynamicCircle(t, w, mgl64.Vec2{0, 0}, 1.0)
	wheel2 := createDynamicCircle(t, w, mgl64.Vec2{3, 0}, 1.0)

	def1 := &RevoluteJointDef{}
	def1.Initialize(ground, wheel1, wheel1.GetPosition())
	def2 := &RevoluteJointDef{}
	def2.Initialize(ground, wheel2, wheel2.GetPosition())

	gearDef := NewGearJointDef(createJoint(t, w, def1), createJoint(t, w, def2), 2.0)
	gear := createJoint(t, w, &gearDef).(*GearJoint)

	data := solverDataFor(w)
	gear.InitVelocityConstraints(data)
	if !gear.SolvePositionConstraints(data) {
		t.Error("Gear at its initial angles should report no error")
	}

	data = solverDataFor(w)
	data.Positions[wheel1.islandIndex].A += 0.5
	gear.InitVelocityConstraints(data)
	if gear.SolvePositionConstraints(data) {
		t.Error("Gear turned off its ratio should report an error")
	}
}

// =============================================================================
// Wheel
// =============================================================================

func TestWheelJoint(t *testing.T) {
	t.Run("suspension axis", func(t *testing.T) {
		w, ground := newJointWorld(t, mgl64.Vec2{0, -10})
		wheel := createDynamicCircle(t, w, mgl64.Vec2{}, 0.5)

		def := NewWheelJointDef()
		def.Initialize(ground, wheel, mgl64.Vec2{}, mgl64.Vec2{0, 1})
		def.FrequencyHz = 4.0
		j := createJoint(t, w, &def).(*WheelJoint)

		stepWorld(t, w, 240)

		p := wheel.GetPosition()
		if math.Abs(p[0]) > geom.LinearSlop {
			t.Errorf("Wheel left the suspension axis: %v", p)
		}
		// A 4 Hz spring sags by g / (2*pi*f)^2.
		sag := 10.0 / math.Pow(2.0*math.Pi*4.0, 2)
		if math.Abs(j.GetJointTranslation()+sag) > 0.01 {
			t.Errorf("Translation = %v, expected %v", j.GetJointTranslation(), -sag)
		}
	})

	t.Run("motor", func(t *testing.T) {
		w, ground := newJointWorld(t, mgl64.Vec2{})
		wheel := createDynamicCircle(t, w, mgl64.Vec2{}, 0.5)

		def := NewWheelJointDef()
		def.Initialize(ground, wheel, mgl64.Vec2{}, mgl64.Vec2{0, 1})
		def.EnableMotor = true
		def.MotorSpeed = 3.0
		def.MaxMotorTorque = 1000.0
		createJoint(t, w, &def)

		stepWorld(t, w, 30)

		if speed := wheel.GetAngularVelocity(); !mgl64.FloatEqualThreshold(speed, 3.0, 1e-6) {
			t.Errorf("Wheel speed = %v, expected 3", speed)
		}
	})
}

func TestWheelJoint_Limit(t *testing.T) {
	tests := []struct {
		name          string
		enableLimit   bool
		lower, upper  float64
		expectedState LimitState
		expected      float64
	}{
		{"stops at the lower limit", true, -0.5, 0.5, LimitAtLower, -0.5},
		{"equal limits hold the axis", true, 0.0, 0.0, LimitEqual, 0.0},
		{"disabled limit", false, -0.5, 0.5, LimitInactive, math.Inf(-1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, ground := newJointWorld(t, mgl64.Vec2{0, -10})
			wheel := createDynamicCircle(t, w, mgl64.Vec2{}, 0.5)

			def := NewWheelJointDef()
			def.Initialize(ground, wheel, mgl64.Vec2{}, mgl64.Vec2{0, 1})
			def.FrequencyHz = 0.0
			def.EnableLimit = tt.enableLimit
			def.LowerTranslation = tt.lower
			def.UpperTranslation = tt.upper
			j := createJoint(t, w, &def).(*WheelJoint)

			stepWorld(t, w, 120)

			translation := j.GetJointTranslation()
			if j.GetLimitState() != tt.expectedState {
				t.Errorf("Limit state = %v, expected %v", j.GetLimitState(), tt.expectedState)
			}
			if math.IsInf(tt.expected, -1) {
				if translation > -1.0 {
					t.Errorf("Translation = %v, expected a free fall", translation)
				}
				return
			}
			if math.Abs(translation-tt.expected) > 2.0*geom.LinearSlop {
				t.Errorf("Translation = %v, expected %v", translation, tt.expected)
			}
			if p := wheel.GetPosition(); math.Abs(p[0]) > geom.LinearSlop {
				t.Errorf("Wheel left the suspension axis: %v", p)
			}
		})
	}
}

func TestWheelJoint_SetLimits(t *testing.T) {
	w, ground := newJointWorld(t, mgl64.Vec2{})
	wheel := createDynamicCircle(t, w, mgl64.Vec2{}, 0.5)

	def := NewWheelJointDef()
	def.Initialize(ground, wheel, mgl64.Vec2{}, mgl64.Vec2{1, 0})
	def.FrequencyHz = 0.0
	j := createJoint(t, w, &def).(*WheelJoint)

	j.SetLimits(1.0, -1.0)
	if j.GetLowerLimit() != -1.0 || j.GetUpperLimit() != 1.0 {
		t.Errorf("Limits = [%v, %v], expected [-1, 1]", j.GetLowerLimit(), j.GetUpperLimit())
	}
	j.EnableLimit(true)
	if !j.IsLimitEnabled() {
		t.Fatal("Limit should be enabled")
	}

	wheel.SetLinearVelocity(mgl64.Vec2{3, 0})
	stepWorld(t, w, 60)

	if translation := j.GetJointTranslation(); math.Abs(translation-1.0) > 2.0*geom.LinearSlop {
		t.Errorf("Translation = %v, expected the upper limit", translation)
	}
	if j.GetLimitState() != LimitAtUpper {
		t.Errorf("Limit state = %v, expected %v", j.GetLimitState(), LimitAtUpper)
	}
}

// =============================================================================
// Weld
// =============================================================================

func TestWeldJoint_RigidPair(t *testing.T) {
	w, _ := newJointWorld(t, mgl64.Vec2{0, -10})
	a := createDynamicBox(t, w, mgl64.Vec2{0, 0}, 0.5)
	b := createDynamicBox(t, w, mgl64.Vec2{1, 0}, 0.5)

	def := &WeldJointDef{}
	def.Initialize(a, b, mgl64.Vec2{0.5, 0})
	createJoint(t, w, def)

	b.SetAngularVelocity(3.0)
	stepWorld(t, w, 60)

	if rel := b.GetAngle() - a.GetAngle(); math.Abs(rel) > 0.02 {
		t.Errorf("Relative angle = %v, expected 0", rel)
	}
	if d := b.GetPosition().Sub(a.GetPosition()).Len(); math.Abs(d-1.0) > 0.02 {
		t.Errorf("Distance = %v, expected 1", d)
	}
}

// =============================================================================
// Friction
// =============================================================================

func TestFrictionJoint_StopsBody(t *testing.T) {
	w, ground := newJointWorld(t, mgl64.Vec2{})
	box := createDynamicBox(t, w, mgl64.Vec2{}, 0.5)
	box.SetLinearVelocity(mgl64.Vec2{5, 0})
	box.SetAngularVelocity(2.0)

	def := &FrictionJointDef{MaxForce: 10.0, MaxTorque: 10.0}
	def.Initialize(ground, box, box.GetWorldCenter())
	createJoint(t, w, def)

	stepWorld(t, w, 60)

	if speed := box.GetLinearVelocity().Len(); speed > 0.01 {
		t.Errorf("Linear speed = %v, expected 0", speed)
	}
	if spin := math.Abs(box.GetAngularVelocity()); spin > 0.01 {
		t.Errorf("Angular speed = %v, expected 0", spin)
	}
}

// =============================================================================
// Constant volume
// =============================================================================

func createRing(t *testing.T, w *World, count int, radius float64) *ConstantVolumeJointDef {
	t.Helper()

	def := NewConstantVolumeJointDef()
	def.FrequencyHz = 10.0
	def.DampingRatio = 1.0
	for i := 0; i < count; i++ {
		angle := 2.0 * math.Pi * float64(i) / float64(count)
		p := mgl64.Vec2{radius * math.Cos(angle), radius * math.Sin(angle)}
		def.AddBody(createDynamicCircle(t, w, p, 0.25))
	}
	return &def
}

func TestConstantVolumeJoint_KeepsArea(t *testing.T) {
	w, _ := newJointWorld(t, mgl64.Vec2{})
	def := createRing(t, w, 8, 3.0)
	j := createJoint(t, w, def).(*ConstantVolumeJoint)

	if len(j.GetJoints()) != 8 || w.GetJointCount() != 9 {
		t.Fatalf("Expected 8 edges and 9 joints, got %d and %d", len(j.GetJoints()), w.GetJointCount())
	}

	target := j.GetTargetVolume()
	if target <= 0 {
		t.Fatalf("Target area = %v, expected positive for a counter-clockwise ring", target)
	}

	// Push one body toward the center.
	j.GetBodies()[0].SetLinearVelocity(mgl64.Vec2{-5, 0})
	stepWorld(t, w, 120)

	if area := j.bodyArea(); math.Abs(area-target) > 0.05*target {
		t.Errorf("Ring area = %v, expected %v", area, target)
	}

	if err := w.DestroyJoint(j); err != nil {
		t.Fatalf("DestroyJoint failed: %v", err)
	}
	if w.GetJointCount() != 0 {
		t.Errorf("Expected the ring edges to go with the joint, %d joints left", w.GetJointCount())
	}
}

func TestConstantVolumeJoint_Inflate(t *testing.T) {
	w, _ := newJointWorld(t, mgl64.Vec2{})
	def := createRing(t, w, 6, 2.0)
	def.FrequencyHz = 0.0
	j := createJoint(t, w, def).(*ConstantVolumeJoint)

	before := j.GetTargetVolume()
	j.Inflate(1.5)
	if !mgl64.FloatEqualThreshold(j.GetTargetVolume(), 1.5*before, 1e-12) {
		t.Errorf("Target area = %v, expected %v", j.GetTargetVolume(), 1.5*before)
	}
}

// =============================================================================
// Dependent joints
// =============================================================================

func TestDestroyJoint_DestroysGear(t *testing.T) {
	w, groundA := newJointWorld(t, mgl64.Vec2{})
	groundB, err := w.CreateBody(nil)
	if err != nil {
		t.Fatalf("CreateBody failed: %v", err)
	}
	wheel1 := createDynamicCircle(t, w, mgl64.Vec2{0, 0}, 1.0)
	wheel2 := createDynamicCircle(t, w, mgl64.Vec2{3, 0}, 1.0)

	def1 := &RevoluteJointDef{}
	def1.Initialize(groundA, wheel1, wheel1.GetPosition())
	joint1 := createJoint(t, w, def1)

	def2 := &RevoluteJointDef{}
	def2.Initialize(groundB, wheel2, wheel2.GetPosition())
	joint2 := createJoint(t, w, def2)

	gearDef := NewGearJointDef(joint1, joint2, 1.0)
	gear := createJoint(t, w, &gearDef)

	listener := &goodbyeListener{}
	w.SetDestructionListener(listener)

	if err := w.DestroyJoint(joint1); err != nil {
		t.Fatalf("DestroyJoint failed: %v", err)
	}
	if w.GetJointCount() != 1 {
		t.Errorf("Expected 1 joint left, got %d", w.GetJointCount())
	}
	if len(listener.joints) != 1 || listener.joints[0] != gear {
		t.Errorf("Expected a goodbye for the gear only, got %v", listener.joints)
	}
	if err := w.DestroyJoint(gear); !errors.Is(err, ErrDestroyed) {
		t.Errorf("DestroyJoint(gear) error = %v, expected ErrDestroyed", err)
	}

	wheel1.SetAngularVelocity(1.0)
	stepWorld(t, w, 10)
}

func TestConstantVolumeJoint_Destruction(t *testing.T) {
	tests := []struct {
		name     string
		destroy  func(w *World, j *ConstantVolumeJoint) error
		goodbyes int
	}{
		{
			name: "ring joint",
			destroy: func(w *World, j *ConstantVolumeJoint) error {
				return w.DestroyJoint(j)
			},
			goodbyes: 6,
		},
		{
			name: "ring edge",
			destroy: func(w *World, j *ConstantVolumeJoint) error {
				return w.DestroyJoint(j.GetJoints()[3])
			},
			goodbyes: 6,
		},
		{
			name: "ring body",
			destroy: func(w *World, j *ConstantVolumeJoint) error {
				return w.DestroyBody(j.GetBodies()[2])
			},
			goodbyes: 7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := newJointWorld(t, mgl64.Vec2{})
			j := createJoint(t, w, createRing(t, w, 6, 2.0)).(*ConstantVolumeJoint)

			listener := &goodbyeListener{}
			w.SetDestructionListener(listener)

			if err := tt.destroy(w, j); err != nil {
				t.Fatalf("Destroy failed: %v", err)
			}
			if w.GetJointCount() != 0 {
				t.Errorf("Expected 0 joints, got %d", w.GetJointCount())
			}
			if len(listener.joints) != tt.goodbyes {
				t.Errorf("Expected %d joint goodbyes, got %d", tt.goodbyes, len(listener.joints))
			}
			for _, b := range w.GetBodies() {
				if len(b.GetJointEdges()) != 0 {
					t.Errorf("Body at %v still has joint edges", b.GetPosition())
				}
			}

			stepWorld(t, w, 10)
		})
	}
}
