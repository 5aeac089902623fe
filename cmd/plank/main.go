package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/akmonengine/plank"
	"github.com/akmonengine/plank/serialize"
	"github.com/go-gl/mathgl/mgl64"
)

// Build information (set by build script)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// ==================== CLI CONFIGURATION ====================

type Config struct {
	// Simulation parameters
	GravityX           float64
	GravityY           float64
	TimeStep           float64
	Steps              int
	VelocityIterations int
	PositionIterations int
	SleepEnabled       bool
	Continuous         bool

	// Scene settings
	SceneFile   string
	SceneType   string
	BodiesCount int

	// Output settings
	SaveFile   string
	ReportFile string
	Probes     int
	Workers    int
	Verbose    bool
	Quiet      bool
	ProfileCPU string
	ProfileMem string
}

func (c *Config) Validate() error {
	if c.TimeStep <= 0 || c.TimeStep > 1 {
		return fmt.Errorf("timestep must be in (0, 1], got %v", c.TimeStep)
	}
	if c.Steps < 0 {
		return fmt.Errorf("steps must not be negative")
	}
	if c.VelocityIterations < 1 || c.PositionIterations < 1 {
		return fmt.Errorf("iterations must be at least 1")
	}
	if c.BodiesCount < 1 {
		return fmt.Errorf("bodies must be at least 1")
	}
	if c.Probes < 0 {
		return fmt.Errorf("probes must not be negative")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	if c.SceneFile == "" {
		if _, ok := scenes[c.SceneType]; !ok {
			return fmt.Errorf("unknown scene type %q", c.SceneType)
		}
	}
	return nil
}

func parseFlags() *Config {
	config := &Config{}

	// Simulation parameters
	flag.Float64Var(&config.GravityX, "gravity-x", 0.0, "gravity X component")
	flag.Float64Var(&config.GravityY, "gravity-y", -10.0, "gravity Y component")
	flag.Float64Var(&config.TimeStep, "timestep", 1.0/60.0, "physics time step")
	flag.IntVar(&config.Steps, "steps", 120, "number of steps to run")
	flag.IntVar(&config.VelocityIterations, "velocity-iterations", 8, "velocity solver iterations")
	flag.IntVar(&config.PositionIterations, "position-iterations", 3, "position solver iterations")
	flag.BoolVar(&config.SleepEnabled, "sleep", true, "enable body sleeping")
	flag.BoolVar(&config.Continuous, "continuous", true, "enable continuous collision")

	// Scene settings
	flag.StringVar(&config.SceneFile, "scene", "", "world snapshot to load instead of a built-in scene")
	flag.StringVar(&config.SceneType, "scene-type", "box", "built-in scene (box, pyramid, bridge)")
	flag.IntVar(&config.BodiesCount, "bodies", 10, "size of the built-in scene")

	// Output settings
	flag.StringVar(&config.SaveFile, "save", "", "write a world snapshot after the run")
	flag.StringVar(&config.ReportFile, "report", "", "write a JSON report (- for stdout)")
	flag.IntVar(&config.Probes, "probes", 0, "number of vertical rays cast over the scene after the run")
	flag.IntVar(&config.Workers, "workers", runtime.NumCPU(), "number of goroutines casting the probes")
	flag.BoolVar(&config.Verbose, "verbose", false, "verbose output")
	flag.BoolVar(&config.Quiet, "quiet", false, "minimal output")
	flag.StringVar(&config.ProfileCPU, "profile-cpu", "", "CPU profile output file")
	flag.StringVar(&config.ProfileMem, "profile-mem", "", "memory profile output file")

	var showVersion bool
	flag.BoolVar(&showVersion, "version", false, "show version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "plank - headless 2D rigid body simulation\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -scene-type pyramid -bodies 20 -report -\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -steps 600 -save world.plank\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -scene world.plank -probes 64 -report report.json\n", os.Args[0])
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("plank version %s\n", Version)
		fmt.Printf("Built: %s\n", BuildTime)
		os.Exit(0)
	}

	if err := config.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	return config
}

// ==================== REPORT ====================

type BodyReport struct {
	Index    int        `json:"index"`
	Type     string     `json:"type"`
	Position [2]float64 `json:"position"`
	Angle    float64    `json:"angle"`
	Velocity [2]float64 `json:"velocity"`
	Awake    bool       `json:"awake"`
}

type ProbeReport struct {
	X      float64 `json:"x"`
	Hit    bool    `json:"hit"`
	Height float64 `json:"height,omitempty"`
	Body   int     `json:"body,omitempty"`
}

type Report struct {
	Steps          int           `json:"steps"`
	SimulatedTime  float64       `json:"simulatedTime"`
	WallTime       time.Duration `json:"wallTimeNs"`
	AverageStep    time.Duration `json:"averageStepNs"`
	BodyCount      int           `json:"bodyCount"`
	AwakeCount     int           `json:"awakeCount"`
	JointCount     int           `json:"jointCount"`
	ContactCount   int           `json:"contactCount"`
	ContactsBegun  int           `json:"contactsBegun"`
	ProxyCount     int           `json:"proxyCount"`
	TreeHeight     int           `json:"treeHeight"`
	LastStep       plank.Profile `json:"lastStep"`
	Bodies         []BodyReport  `json:"bodies"`
	Probes         []ProbeReport `json:"probes,omitempty"`
	OutOfBounds    int           `json:"outOfBounds"`
	SleepingBodies int           `json:"sleepingBodies"`
}

func buildReport(w *plank.World, steps int, dt float64, wall time.Duration) *Report {
	report := &Report{
		Steps:         steps,
		SimulatedTime: float64(steps) * dt,
		WallTime:      wall,
		BodyCount:     w.GetBodyCount(),
		JointCount:    w.GetJointCount(),
		ContactCount:  w.GetContactCount(),
		ProxyCount:    w.GetProxyCount(),
		TreeHeight:    w.GetTreeHeight(),
		LastStep:      w.GetProfile(),
	}
	if steps > 0 {
		report.AverageStep = wall / time.Duration(steps)
	}

	for i, b := range w.GetBodies() {
		if b.IsAwake() {
			report.AwakeCount++
		} else if b.GetType() == plank.DynamicBody {
			report.SleepingBodies++
		}
		p, v := b.GetPosition(), b.GetLinearVelocity()
		report.Bodies = append(report.Bodies, BodyReport{
			Index:    i,
			Type:     b.GetType().String(),
			Position: [2]float64{p[0], p[1]},
			Angle:    b.GetAngle(),
			Velocity: [2]float64{v[0], v[1]},
			Awake:    b.IsAwake(),
		})
	}
	return report
}

// probe casts count vertical rays over the width of the scene and records
// the first surface each ray hits.
func probe(w *plank.World, count, workers int) []ProbeReport {
	if count == 0 || w.GetBodyCount() == 0 {
		return nil
	}

	bodyIndex := make(map[*plank.Body]int, w.GetBodyCount())
	minX, maxX, maxY := 0.0, 0.0, 0.0
	for i, b := range w.GetBodies() {
		bodyIndex[b] = i
		for _, f := range b.GetFixtures() {
			aabb := f.GetAABB()
			minX = min(minX, aabb.LowerBound[0])
			maxX = max(maxX, aabb.UpperBound[0])
			maxY = max(maxY, aabb.UpperBound[1])
		}
	}

	rays := make([]plank.Ray, count)
	for i := range rays {
		x := minX + (maxX-minX)*(float64(i)+0.5)/float64(count)
		rays[i] = plank.Ray{P1: mgl64.Vec2{x, maxY + 1}, P2: mgl64.Vec2{x, -1000}}
	}

	hits := w.RayCastBatch(rays, workers)
	probes := make([]ProbeReport, count)
	for i, hit := range hits {
		probes[i] = ProbeReport{X: rays[i].P1[0], Hit: hit.Hit}
		if hit.Hit {
			probes[i].Height = hit.Point[1]
			probes[i].Body = bodyIndex[hit.Fixture.GetBody()]
		}
	}
	return probes
}

func writeReport(path string, report *Report) error {
	var out io.Writer = os.Stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

func loadWorld(config *Config) (*plank.World, error) {
	if config.SceneFile != "" {
		f, err := os.Open(config.SceneFile)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		decoder := serialize.NewDecoder(f)
		decoder.Unsupported = func(err *serialize.UnsupportedObjectError) bool {
			log.Printf("Skipping %v", err)
			return true
		}
		return decoder.Decode()
	}

	w := plank.NewWorld(mgl64.Vec2{config.GravityX, config.GravityY})
	if err := scenes[config.SceneType](w, config.BodiesCount); err != nil {
		return nil, err
	}
	return w, nil
}

func saveWorld(path string, w *plank.World) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := serialize.NewEncoder(f)
	encoder.Unsupported = func(err *serialize.UnsupportedObjectError) bool {
		log.Printf("Skipping %v", err)
		return true
	}
	return encoder.Encode(w)
}

// ==================== MAIN APPLICATION ====================

func main() {
	config := parseFlags()

	if config.Quiet {
		log.SetOutput(io.Discard)
	} else {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	if config.ProfileCPU != "" {
		f, err := os.Create(config.ProfileCPU)
		if err != nil {
			log.Fatal("Could not create CPU profile:", err)
		}
		defer f.Close()

		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("Could not start CPU profile:", err)
		}
		defer pprof.StopCPUProfile()
	}

	w, err := loadWorld(config)
	if err != nil {
		log.Fatalf("Failed to setup scene: %v", err)
	}
	if config.SceneFile != "" {
		log.Printf("Loaded %d bodies and %d joints from %s", w.GetBodyCount(), w.GetJointCount(), config.SceneFile)
	} else {
		log.Printf("Generated %s scene with %d bodies", config.SceneType, w.GetBodyCount())
	}

	w.SetAllowSleeping(config.SleepEnabled)
	w.SetContinuousPhysics(config.Continuous)
	if config.Verbose {
		w.SetLogger(log.Default())
	}

	contactsBegun, outOfBounds := 0, 0
	w.Events().Subscribe(plank.BEGIN_CONTACT, func(plank.Event) {
		contactsBegun++
	})
	w.Events().Subscribe(plank.OUT_OF_BOUNDS, func(event plank.Event) {
		outOfBounds++
		if body := event.(plank.OutOfBoundsEvent).Body; body.GetWorld() != nil {
			if err := w.DestroyBody(body); err != nil {
				log.Printf("Could not remove body out of bounds: %v", err)
			}
		}
	})

	start := time.Now()
	for step := 0; step < config.Steps; step++ {
		if err := w.Step(config.TimeStep, config.VelocityIterations, config.PositionIterations); err != nil {
			log.Fatalf("Step %d failed: %v", step, err)
		}
		if config.Verbose && step%60 == 0 {
			profile := w.GetProfile()
			log.Printf("Step %d | Bodies: %d | Contacts: %d | Step: %v | Solve: %v",
				step, w.GetBodyCount(), w.GetContactCount(), profile.Step, profile.Solve)
		}
	}
	wall := time.Since(start)

	log.Printf("Simulation completed:")
	log.Printf("  Steps: %d (%.2fs simulated) in %v", config.Steps, float64(config.Steps)*config.TimeStep, wall)
	log.Printf("  Bodies: %d, Contacts: %d, Tree height: %d", w.GetBodyCount(), w.GetContactCount(), w.GetTreeHeight())

	if config.ReportFile != "" {
		report := buildReport(w, config.Steps, config.TimeStep, wall)
		report.ContactsBegun = contactsBegun
		report.OutOfBounds = outOfBounds
		report.Probes = probe(w, config.Probes, config.Workers)
		if err := writeReport(config.ReportFile, report); err != nil {
			log.Fatalf("Could not write report: %v", err)
		}
	}

	if config.SaveFile != "" {
		if err := saveWorld(config.SaveFile, w); err != nil {
			log.Fatalf("Could not save world: %v", err)
		}
		log.Printf("Saved world to %s", config.SaveFile)
	}

	if config.ProfileMem != "" {
		f, err := os.Create(config.ProfileMem)
		if err != nil {
			log.Printf("Could not create memory profile: %v", err)
			return
		}
		defer f.Close()
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Printf("Could not write memory profile: %v", err)
		}
	}
}
