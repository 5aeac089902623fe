package constraint

import (
	"math"
	"testing"
)

func TestMixFriction(t *testing.T) {
	tests := []struct {
		name     string
		a, b     float64
		expected float64
	}{
		{"both zero", 0.0, 0.0, 0.0},
		{"one frictionless surface slides", 0.0, 0.8, 0.0},
		{"same friction", 0.5, 0.5, 0.5},
		{"geometric mean", 0.2, 0.8, 0.4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MixFriction(tt.a, tt.b)
			if math.Abs(result-tt.expected) > 1e-10 {
				t.Errorf("MixFriction() = %v, want %v", result, tt.expected)
			}
			if MixFriction(tt.b, tt.a) != result {
				t.Error("MixFriction is not symmetric")
			}
		})
	}
}

func TestMixRestitution(t *testing.T) {
	tests := []struct {
		name     string
		a, b     float64
		expected float64
	}{
		{"both zero restitution", 0.0, 0.0, 0.0},
		{"one zero, one high restitution - returns max", 0.0, 0.8, 0.8},
		{"both same restitution", 0.5, 0.5, 0.5},
		{"different restitutions - returns max", 0.7, 0.3, 0.7},
		{"both perfect restitution", 1.0, 1.0, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MixRestitution(tt.a, tt.b)
			if math.Abs(result-tt.expected) > 1e-10 {
				t.Errorf("MixRestitution() = %v, want %v", result, tt.expected)
			}
		})
	}
}
