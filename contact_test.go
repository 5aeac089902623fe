package plank

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func restingContact(t *testing.T) (*World, *Contact) {
	t.Helper()

	w, _ := newTestWorld(t)
	w.SetAllowSleeping(false)
	createDynamicBox(t, w, mgl64.Vec2{0, 0.5}, 0.5)
	stepWorld(t, w, 60)

	contacts := w.GetContacts()
	if len(contacts) != 1 {
		t.Fatalf("Expected 1 contact, got %d", len(contacts))
	}
	c := contacts[0]
	if c.GetManifold().PointCount != 2 {
		t.Fatalf("Expected 2 manifold points, got %d", c.GetManifold().PointCount)
	}
	return w, c
}

func TestContact_UpdateKeepsImpulses(t *testing.T) {
	tests := []struct {
		name         string
		changeIDs    bool
		keepImpulses bool
	}{
		{"matching feature ids", false, true},
		{"mismatched feature ids", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, c := restingContact(t)

			manifold := c.GetManifold()
			before := make([]float64, manifold.PointCount)
			for i := 0; i < manifold.PointCount; i++ {
				before[i] = manifold.Points[i].NormalImpulse
				if before[i] <= 0 {
					t.Fatalf("Point %d carries no normal impulse", i)
				}
				if tt.changeIDs {
					// Box edges never reach this index.
					manifold.Points[i].ID.ReferenceEdge = 7
				}
			}

			c.update(w)

			manifold = c.GetManifold()
			if manifold.PointCount != len(before) {
				t.Fatalf("Expected %d points after update, got %d", len(before), manifold.PointCount)
			}
			for i := 0; i < manifold.PointCount; i++ {
				got := manifold.Points[i].NormalImpulse
				if tt.keepImpulses && got != before[i] {
					t.Errorf("Point %d impulse = %v, expected %v", i, got, before[i])
				}
				if !tt.keepImpulses && got != 0 {
					t.Errorf("Point %d impulse = %v, expected 0", i, got)
				}
			}
		})
	}
}
