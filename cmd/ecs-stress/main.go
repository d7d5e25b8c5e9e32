package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"time"

	"github.com/pkg/profile"
	"go.uber.org/zap"

	"github.com/plus3/luminara/app"
)

func main() {
	duration := flag.Duration("duration", 10*time.Second, "The total duration the test should run for.")
	entityCount := flag.Int("entities", 10000, "The initial number of entities to create.")
	churn := flag.Int("churn", 100, "Entities despawned and respawned every frame.")
	workers := flag.Int("workers", 0, "Scheduler workers; 0 uses the config file or GOMAXPROCS.")
	configPath := flag.String("config", "", "Optional .toml or .yaml config file.")
	profileMode := flag.String("profile", "", "Write a profile to the working directory: cpu, mem, block or trace.")
	gcPauseMetrics := flag.Bool("gc-pause-metrics", false, "Enable detailed GC pause metrics in the report.")
	seed := flag.Int64("seed", 1, "Random seed for the initial population.")
	flag.Parse()

	cfg := app.DefaultConfig()
	if *configPath != "" {
		loaded, err := app.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
		cfg = *loaded
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}

	log, err := app.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if stop := startProfile(*profileMode); stop != nil {
		defer stop()
	}

	log.Info("starting ECS stress test")

	// 1. Setup the App and the workload
	a := app.New(app.WithConfig(cfg), app.WithLogger(log))
	a.AddPlugin(&Workload{Churn: *churn})
	if err := a.Err(); err != nil {
		log.Fatal("setup failed", zap.Error(err))
	}

	// 2. Populate the World with initial entities
	log.Info("populating world", zap.Int("entities", *entityCount))
	rng := rand.New(rand.NewSource(*seed))
	for i := 0; i < *entityCount; i++ {
		SpawnRandomEntity(a.World(), rng, rng.Intn(4))
	}
	log.Info("population complete")

	// 3. Run the simulation loop
	report := &Report{
		Duration:       *duration,
		Entities:       *entityCount,
		Components:     workloadComponents,
		Workers:        cfg.Parallelism().Workers,
		Churn:          *churn,
		GCPauseMetrics: *gcPauseMetrics,
	}
	runtime.ReadMemStats(&report.MemBefore)

	log.Info("running simulation", zap.Duration("duration", *duration))
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	start := time.Now()
	for ctx.Err() == nil {
		frameStart := time.Now()
		if err := a.Update(); err != nil {
			log.Error("frame failed", zap.Error(err))
			break
		}
		report.Frames.Add(time.Since(frameStart))
	}

	report.Elapsed = time.Since(start)
	report.Frames.Summarize()
	report.World = a.World().Stats()
	report.Schedule = a.Schedule().Stats()
	runtime.ReadMemStats(&report.MemAfter)

	log.Info("simulation finished", zap.Int("frames", len(report.Frames.Samples)))

	// 4. Generate Report to Console
	fmt.Println("\n\n--- Stress Test Report ---")
	if err := report.Generate(os.Stdout); err != nil {
		log.Fatal("failed to generate report", zap.Error(err))
	}
	fmt.Println("--- End of Report ---")
}

func startProfile(mode string) func() {
	var opt func(*profile.Profile)
	switch mode {
	case "":
		return nil
	case "cpu":
		opt = profile.CPUProfile
	case "mem":
		opt = profile.MemProfileAllocs
	case "block":
		opt = profile.BlockProfile
	case "trace":
		opt = profile.TraceProfile
	default:
		fmt.Fprintf(os.Stderr, "unknown profile mode %q\n", mode)
		os.Exit(2)
	}
	return profile.Start(opt, profile.ProfilePath("."), profile.NoShutdownHook).Stop
}
