package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"primordium/config"
	"primordium/entity"
	"primordium/sim"
	"primordium/telemetry"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	seed := flag.Uint64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Uint64("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	entities := flag.Int("entities", 0, "Initial population (0 = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	snapshotPath := flag.String("snapshot", "", "Snapshot file to resume from")
	saveSnapshot := flag.String("save-snapshot", "", "Write a snapshot to this path on exit")
	quiet := flag.Bool("quiet", false, "Suppress periodic stats logging")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = uint64(time.Now().UnixNano())
	}
	initialEntities := cfg.Simulation.InitialEntities
	if *entities > 0 {
		initialEntities = *entities
	}
	statsWindowSec := cfg.Telemetry.StatsWindow
	if *statsWindow > 0 {
		statsWindowSec = *statsWindow
	}
	outDir := cfg.Telemetry.OutputDir
	if *outputDir != "" {
		outDir = *outputDir
	}

	s := sim.New(cfg, initialEntities, rngSeed)
	if *snapshotPath != "" {
		snap, err := sim.LoadSnapshot(*snapshotPath)
		if err != nil {
			slog.Error("failed to load snapshot", "path", *snapshotPath, "error", err)
			os.Exit(1)
		}
		if err := s.Restore(snap); err != nil {
			slog.Error("failed to restore snapshot", "path", *snapshotPath, "error", err)
			os.Exit(1)
		}
		slog.Info("resumed from snapshot", "path", *snapshotPath, "tick", s.TickCount)
	}

	output, err := telemetry.NewOutputManager(outDir)
	if err != nil {
		slog.Error("failed to initialize output", "error", err)
		os.Exit(1)
	}
	defer output.Close()
	if err := output.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config snapshot", "error", err)
		os.Exit(1)
	}

	collector := telemetry.NewCollector(statsWindowSec, cfg.Derived.DT32)

	slog.Info("starting simulation",
		"seed", rngSeed,
		"entities", initialEntities,
		"max_ticks", *maxTicks,
		"stats_window_sec", statsWindowSec,
	)

	for {
		collector.Record(s.Tick())

		if collector.ShouldFlush(s.TickCount) {
			energies, ages := sampleLiving(s)
			stats := collector.Flush(s, energies, ages)
			if !*quiet {
				slog.Info("stats", "window", stats)
			}
			if err := output.WriteTelemetry(stats); err != nil {
				slog.Error("failed to write telemetry", "error", err)
				os.Exit(1)
			}
		}

		if s.Arena.Count() == 0 {
			slog.Info("population extinct", "tick", s.TickCount)
			break
		}
		if *maxTicks > 0 && s.TickCount >= *maxTicks {
			slog.Info("max ticks reached", "tick", s.TickCount)
			break
		}
	}

	if *saveSnapshot != "" {
		snap, err := s.Snapshot()
		if err != nil {
			slog.Error("failed to snapshot", "error", err)
			os.Exit(1)
		}
		if err := snap.Save(*saveSnapshot); err != nil {
			slog.Error("failed to save snapshot", "path", *saveSnapshot, "error", err)
			os.Exit(1)
		}
		slog.Info("snapshot saved", "path", *saveSnapshot, "tick", s.TickCount)
	}
}

func sampleLiving(s *sim.State) (energies, ages []float64) {
	s.Arena.IterAlive(func(_ int, e *entity.Entity) {
		energies = append(energies, float64(e.Energy))
		ages = append(ages, float64(e.Age))
	})
	return energies, ages
}
