package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/akmonengine/plank"
	"github.com/go-gl/mathgl/mgl64"
)

func validConfig() Config {
	return Config{
		GravityY:           -10,
		TimeStep:           1.0 / 60.0,
		Steps:              120,
		VelocityIterations: 8,
		PositionIterations: 3,
		SceneType:          "box",
		BodiesCount:        1,
		Workers:            2,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"zero timestep", func(c *Config) { c.TimeStep = 0 }, true},
		{"negative steps", func(c *Config) { c.Steps = -1 }, true},
		{"no velocity iterations", func(c *Config) { c.VelocityIterations = 0 }, true},
		{"no bodies", func(c *Config) { c.BodiesCount = 0 }, true},
		{"no workers", func(c *Config) { c.Workers = 0 }, true},
		{"unknown scene", func(c *Config) { c.SceneType = "castle" }, true},
		{"unknown scene with a snapshot", func(c *Config) { c.SceneType = "castle"; c.SceneFile = "world.plank" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.mutate(&config)

			err := config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestScenes(t *testing.T) {
	tests := []struct {
		scene          string
		size           int
		expectedBodies int
		expectedJoints int
	}{
		{"box", 3, 4, 0},
		{"pyramid", 4, 11, 0},
		{"bridge", 5, 6, 6},
	}

	for _, tt := range tests {
		t.Run(tt.scene, func(t *testing.T) {
			w := plank.NewWorld(mgl64.Vec2{0, -10})
			if err := scenes[tt.scene](w, tt.size); err != nil {
				t.Fatalf("Scene failed: %v", err)
			}
			if w.GetBodyCount() != tt.expectedBodies {
				t.Errorf("Expected %d bodies, got %d", tt.expectedBodies, w.GetBodyCount())
			}
			if w.GetJointCount() != tt.expectedJoints {
				t.Errorf("Expected %d joints, got %d", tt.expectedJoints, w.GetJointCount())
			}

			for i := 0; i < 60; i++ {
				if err := w.Step(1.0/60.0, 8, 3); err != nil {
					t.Fatalf("Step failed: %v", err)
				}
			}
		})
	}
}

func TestBoxScene_Report(t *testing.T) {
	config := validConfig()
	w, err := loadWorld(&config)
	if err != nil {
		t.Fatalf("loadWorld failed: %v", err)
	}
	for i := 0; i < config.Steps; i++ {
		if err := w.Step(config.TimeStep, config.VelocityIterations, config.PositionIterations); err != nil {
			t.Fatalf("Step failed: %v", err)
		}
	}

	report := buildReport(w, config.Steps, config.TimeStep, 0)
	report.Probes = probe(w, 5, config.Workers)

	if report.BodyCount != 2 {
		t.Fatalf("Expected 2 bodies, got %d", report.BodyCount)
	}
	box := report.Bodies[1]
	if box.Position[1] < 0.4 || box.Position[1] > 0.6 {
		t.Errorf("Box should rest on the ground, at y=%v", box.Position[1])
	}

	center := report.Probes[2]
	if !center.Hit || center.Body != 1 {
		t.Errorf("Center probe should hit the box, got %+v", center)
	}
	if center.Height < 0.9 || center.Height > 1.1 {
		t.Errorf("Center probe height = %v, expected the box top", center.Height)
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(report); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	var decoded Report
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded.BodyCount != report.BodyCount || len(decoded.Probes) != 5 {
		t.Error("Report does not survive JSON encoding")
	}
}

func TestSaveAndLoadWorld(t *testing.T) {
	config := validConfig()
	config.SceneType = "bridge"
	config.BodiesCount = 4
	w, err := loadWorld(&config)
	if err != nil {
		t.Fatalf("loadWorld failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "bridge.plank")
	if err := saveWorld(path, w); err != nil {
		t.Fatalf("saveWorld failed: %v", err)
	}
	if info, err := os.Stat(path); err != nil || info.Size() == 0 {
		t.Fatalf("Snapshot was not written: %v", err)
	}

	config.SceneFile = path
	loaded, err := loadWorld(&config)
	if err != nil {
		t.Fatalf("loadWorld from snapshot failed: %v", err)
	}
	if loaded.GetBodyCount() != w.GetBodyCount() || loaded.GetJointCount() != w.GetJointCount() {
		t.Errorf("Loaded %d bodies and %d joints, expected %d and %d",
			loaded.GetBodyCount(), loaded.GetJointCount(), w.GetBodyCount(), w.GetJointCount())
	}
}
