package plank

import (
	"math"
	"testing"

	"github.com/akmonengine/plank/collision"
	"github.com/akmonengine/plank/shape"
	"github.com/go-gl/mathgl/mgl64"
)

func createFilteredBox(t *testing.T, w *World, position mgl64.Vec2, filter Filter) *Body {
	t.Helper()

	def := NewBodyDef()
	def.Type = DynamicBody
	def.Position = position
	b, err := w.CreateBody(&def)
	if err != nil {
		t.Fatalf("CreateBody failed: %v", err)
	}

	fd := NewFixtureDef()
	fd.Shape = shape.NewBox(0.5, 0.5)
	fd.Density = 1.0
	fd.Filter = filter
	if _, err := b.CreateFixture(&fd); err != nil {
		t.Fatalf("CreateFixture failed: %v", err)
	}
	return b
}

func touchingContacts(w *World) int {
	count := 0
	for _, c := range w.GetContacts() {
		if c.IsTouching() {
			count++
		}
	}
	return count
}

// =============================================================================
// Filtering
// =============================================================================

func TestContactManager_Filter(t *testing.T) {
	tests := []struct {
		name             string
		filterA          Filter
		filterB          Filter
		expectedContacts int
	}{
		{
			name:             "default filters collide",
			filterA:          DefaultFilter(),
			filterB:          DefaultFilter(),
			expectedContacts: 1,
		},
		{
			name:             "mask excludes category",
			filterA:          Filter{CategoryBits: 0x0002, MaskBits: 0xFFFF},
			filterB:          Filter{CategoryBits: 0x0001, MaskBits: 0xFFFD},
			expectedContacts: 0,
		},
		{
			name:             "positive group overrides masks",
			filterA:          Filter{CategoryBits: 0x0002, MaskBits: 0x0000, GroupIndex: 3},
			filterB:          Filter{CategoryBits: 0x0004, MaskBits: 0x0000, GroupIndex: 3},
			expectedContacts: 1,
		},
		{
			name:             "negative group never collides",
			filterA:          Filter{CategoryBits: 0x0001, MaskBits: 0xFFFF, GroupIndex: -2},
			filterB:          Filter{CategoryBits: 0x0001, MaskBits: 0xFFFF, GroupIndex: -2},
			expectedContacts: 0,
		},
		{
			name:             "different groups use masks",
			filterA:          Filter{CategoryBits: 0x0001, MaskBits: 0xFFFF, GroupIndex: -2},
			filterB:          Filter{CategoryBits: 0x0001, MaskBits: 0xFFFF, GroupIndex: -3},
			expectedContacts: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWorld(mgl64.Vec2{})
			createFilteredBox(t, w, mgl64.Vec2{0, 0}, tt.filterA)
			createFilteredBox(t, w, mgl64.Vec2{0.9, 0}, tt.filterB)

			stepWorld(t, w, 1)

			if got := touchingContacts(w); got != tt.expectedContacts {
				t.Errorf("Expected %d touching contacts, got %d", tt.expectedContacts, got)
			}
		})
	}
}

func TestContactManager_Refilter(t *testing.T) {
	w := NewWorld(mgl64.Vec2{})
	a := createFilteredBox(t, w, mgl64.Vec2{0, 0}, DefaultFilter())
	createFilteredBox(t, w, mgl64.Vec2{0.9, 0}, DefaultFilter())

	stepWorld(t, w, 1)
	if touchingContacts(w) != 1 {
		t.Fatalf("Expected 1 touching contact, got %d", touchingContacts(w))
	}

	filter := DefaultFilter()
	filter.GroupIndex = -1
	a.GetFixtures()[0].SetFilterData(filter)

	filterB := DefaultFilter()
	filterB.GroupIndex = -1
	for _, b := range w.GetBodies() {
		if b != a {
			b.GetFixtures()[0].SetFilterData(filterB)
		}
	}

	stepWorld(t, w, 1)
	if w.GetContactCount() != 0 {
		t.Errorf("Expected the contact to be destroyed after refiltering, got %d", w.GetContactCount())
	}
}

type vetoFilter struct{}

func (vetoFilter) ShouldCollide(fixtureA, fixtureB *Fixture) bool {
	return false
}

func TestContactManager_CustomFilter(t *testing.T) {
	w := NewWorld(mgl64.Vec2{})
	w.SetContactFilter(vetoFilter{})
	createFilteredBox(t, w, mgl64.Vec2{0, 0}, DefaultFilter())
	createFilteredBox(t, w, mgl64.Vec2{0.9, 0}, DefaultFilter())

	stepWorld(t, w, 1)
	if w.GetContactCount() != 0 {
		t.Errorf("Expected no contact, got %d", w.GetContactCount())
	}

	// Restoring the default filter creates the contact again.
	w.SetContactFilter(nil)
	for _, b := range w.GetBodies() {
		b.GetFixtures()[0].Refilter()
	}
	// The pair is found at the end of the first step and updated by the second.
	stepWorld(t, w, 2)
	if touchingContacts(w) != 1 {
		t.Errorf("Expected 1 touching contact, got %d", touchingContacts(w))
	}
}

func TestContactManager_StaticPairsIgnored(t *testing.T) {
	w := NewWorld(mgl64.Vec2{})
	for i := 0; i < 2; i++ {
		def := NewBodyDef()
		def.Position = mgl64.Vec2{float64(i) * 0.5, 0}
		b, err := w.CreateBody(&def)
		if err != nil {
			t.Fatalf("CreateBody failed: %v", err)
		}
		if _, err := b.CreateFixtureFromShape(shape.NewBox(0.5, 0.5), 0); err != nil {
			t.Fatalf("CreateFixture failed: %v", err)
		}
	}

	stepWorld(t, w, 1)
	if w.GetContactCount() != 0 {
		t.Errorf("Static bodies should not create contacts, got %d", w.GetContactCount())
	}
}

func TestContactManager_ContactDestroyedWhenApart(t *testing.T) {
	w := NewWorld(mgl64.Vec2{})
	createFilteredBox(t, w, mgl64.Vec2{0, 0}, DefaultFilter())
	b := createFilteredBox(t, w, mgl64.Vec2{0.9, 0}, DefaultFilter())

	stepWorld(t, w, 1)
	if w.GetContactCount() != 1 {
		t.Fatalf("Expected 1 contact, got %d", w.GetContactCount())
	}

	if err := b.SetTransform(mgl64.Vec2{10, 0}, 0); err != nil {
		t.Fatalf("SetTransform failed: %v", err)
	}
	stepWorld(t, w, 1)
	if w.GetContactCount() != 0 {
		t.Errorf("Expected the contact to be destroyed, got %d", w.GetContactCount())
	}
}

// =============================================================================
// Contact properties
// =============================================================================

func TestContact_MixedMaterial(t *testing.T) {
	w := NewWorld(mgl64.Vec2{})

	fixtures := make([]*Fixture, 2)
	materials := []struct{ friction, restitution float64 }{{0.4, 0.1}, {0.9, 0.6}}
	for i, m := range materials {
		def := NewBodyDef()
		def.Type = DynamicBody
		def.Position = mgl64.Vec2{float64(i) * 0.9, 0}
		b, err := w.CreateBody(&def)
		if err != nil {
			t.Fatalf("CreateBody failed: %v", err)
		}
		fd := NewFixtureDef()
		fd.Shape = shape.NewBox(0.5, 0.5)
		fd.Density = 1.0
		fd.Friction = m.friction
		fd.Restitution = m.restitution
		if fixtures[i], err = b.CreateFixture(&fd); err != nil {
			t.Fatalf("CreateFixture failed: %v", err)
		}
	}

	stepWorld(t, w, 1)
	if w.GetContactCount() != 1 {
		t.Fatalf("Expected 1 contact, got %d", w.GetContactCount())
	}
	c := w.GetContacts()[0]

	if expected := math.Sqrt(0.4 * 0.9); !mgl64.FloatEqualThreshold(c.GetFriction(), expected, 1e-12) {
		t.Errorf("Friction = %v, expected %v", c.GetFriction(), expected)
	}
	if c.GetRestitution() != 0.6 {
		t.Errorf("Restitution = %v, expected 0.6", c.GetRestitution())
	}

	c.SetFriction(0.0)
	c.SetRestitution(0.0)
	c.ResetFriction()
	c.ResetRestitution()
	if !mgl64.FloatEqualThreshold(c.GetFriction(), math.Sqrt(0.4*0.9), 1e-12) || c.GetRestitution() != 0.6 {
		t.Error("Reset should restore the mixed material")
	}

	wm := c.GetWorldManifold()
	if !wm.Normal.ApproxEqualThreshold(mgl64.Vec2{1, 0}, 1e-9) && !wm.Normal.ApproxEqualThreshold(mgl64.Vec2{-1, 0}, 1e-9) {
		t.Errorf("World manifold normal = %v, expected along x", wm.Normal)
	}
}

// =============================================================================
// Listener hooks
// =============================================================================

type solveRecorder struct {
	disable   bool
	preSolve  int
	postSolve int
	maxNormal float64
	states    [][2]collision.PointState
}

func (r *solveRecorder) BeginContact(c *Contact) {}

func (r *solveRecorder) EndContact(c *Contact) {}

func (r *solveRecorder) PreSolve(c *Contact, oldManifold *collision.Manifold) {
	r.preSolve++
	state1, state2 := collision.GetPointStates(oldManifold, c.GetManifold())
	r.states = append(r.states, [2]collision.PointState{state1[0], state2[0]})
	if r.disable {
		c.SetEnabled(false)
	}
}

func (r *solveRecorder) PostSolve(c *Contact, impulse *ContactImpulse) {
	r.postSolve++
	for i := 0; i < impulse.Count; i++ {
		r.maxNormal = math.Max(r.maxNormal, impulse.NormalImpulses[i])
	}
}

func TestContactListener_PreAndPostSolve(t *testing.T) {
	tests := []struct {
		name          string
		disable       bool
		expectResting bool
	}{
		{"solid contact", false, true},
		{"disabled contact", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := newTestWorld(t)
			recorder := &solveRecorder{disable: tt.disable}
			w.SetContactListener(recorder)

			box := createDynamicBox(t, w, mgl64.Vec2{0, 0.5}, 0.5)
			stepWorld(t, w, 30)

			if recorder.preSolve == 0 {
				t.Fatal("PreSolve was never called")
			}
			if recorder.states[0][1] != collision.PointStateAdd {
				t.Errorf("First PreSolve point state = %v, expected added", recorder.states[0][1])
			}

			resting := box.GetPosition()[1] > 0.4
			if resting != tt.expectResting {
				t.Errorf("Box at y=%v, resting = %v, expected %v", box.GetPosition()[1], resting, tt.expectResting)
			}

			if tt.expectResting {
				if recorder.postSolve == 0 || recorder.maxNormal <= 0 {
					t.Errorf("PostSolve calls = %d, max normal impulse = %v", recorder.postSolve, recorder.maxNormal)
				}
			} else if recorder.postSolve != 0 {
				t.Errorf("Disabled contacts should not be solved, got %d PostSolve calls", recorder.postSolve)
			}
		})
	}
}
