package main

import (
	"flag"
	"log/slog"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/pthm-cable/duel/config"
	"github.com/pthm-cable/duel/evolve"
	"github.com/pthm-cable/duel/neural"
	"github.com/pthm-cable/duel/sim"
	"github.com/pthm-cable/duel/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	generations := flag.Int("generations", 50, "Number of generations to train")
	workers := flag.Int("workers", 0, "Parallel match workers (0 = use config)")
	outDir := flag.String("out", "", "Output directory for CSV logs and snapshots (empty = use config)")
	archivePath := flag.String("archive", "", "Champion archive JSON to preload")
	exhibit := flag.Bool("exhibit", false, "Play an exhibition match between the top two champions after training")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	logFormat := flag.String("log-format", "json", "Log format: json or text")
	dumpConfig := flag.String("dump-config", "", "Write the effective config YAML to this path and exit")

	flag.Parse()

	// Set up slog before anything that logs
	handlerOpts := &slog.HandlerOptions{Level: parseLevel(*logLevel)}
	var handler slog.Handler
	if *logFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, handlerOpts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, handlerOpts)
	}
	slog.SetDefault(slog.New(handler))

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	if *workers > 0 {
		cfg.Evolution.Workers = *workers
	}
	if *outDir != "" {
		cfg.Telemetry.OutputDir = *outDir
	}

	if *dumpConfig != "" {
		if err := cfg.WriteYAML(*dumpConfig); err != nil {
			slog.Error("failed to write config", "error", err)
			os.Exit(1)
		}
		slog.Info("config written", "path", *dumpConfig)
		return
	}

	// Set up seed
	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(rngSeed))

	runner := sim.NewRunner(cfg)
	pop := evolve.NewPopulation(evolve.SettingsFromConfig(cfg), runner, rng)

	om, err := telemetry.NewOutputManager(cfg.Telemetry.OutputDir)
	if err != nil {
		slog.Error("failed to initialize output", "error", err)
		os.Exit(1)
	}
	if err := om.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config snapshot", "error", err)
		om.Close()
		os.Exit(1)
	}

	rec := telemetry.NewRecorder(om, cfg.Telemetry.ArchiveSize, cfg.Telemetry.FlushEvery)

	if *archivePath != "" {
		loaded, err := telemetry.LoadArchiveFromFile(*archivePath)
		if err != nil {
			slog.Error("failed to load champion archive", "error", err)
			om.Close()
			os.Exit(1)
		}
		for _, entry := range loaded.Entries() {
			g := &neural.Genome{Weights: entry.Weights, Fitness: entry.Fitness}
			rec.Archive().Consider(g, entry.Generation)
		}
		slog.Info("champion archive preloaded", "path", *archivePath, "champions", loaded.Size())
	}

	slog.Info("starting training",
		"seed", rngSeed,
		"generations", *generations,
		"population", cfg.Evolution.PopulationSize,
		"matches_per_eval", cfg.Evolution.MatchesPerEval,
		"workers", cfg.Evolution.Workers,
		"steps_per_match", cfg.Derived.StepsPerMatch,
		"output", om.Dir(),
	)

	trainer := evolve.NewTrainer(pop, rng)

	lastGen := 0
	pending := 0
	for done := 0; done < *generations; {
		if done+pending < *generations && trainer.Request() {
			pending++
		}

		res, ok := trainer.Poll()
		if !ok {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		pending--
		done++
		lastGen = res.Generation

		stats, err := rec.Record(res)
		if err != nil {
			slog.Error("failed to write telemetry", "error", err)
			trainer.Stop()
			om.Close()
			os.Exit(1)
		}
		stats.LogStats()
	}
	trainer.Stop()

	if err := rec.Close(lastGen); err != nil {
		slog.Error("failed to flush telemetry", "error", err)
		om.Close()
		os.Exit(1)
	}

	if best, ok := rec.Archive().Best(); ok {
		slog.Info("training complete",
			"generations", *generations,
			"best_fitness", best.Fitness,
			"archived_champions", rec.Archive().Size(),
			"output", om.Dir(),
		)
	} else {
		slog.Info("training complete", "generations", *generations)
	}

	if *exhibit {
		runExhibition(runner, rec.Archive(), rngSeed)
	}

	if err := om.Close(); err != nil {
		slog.Error("failed to close output", "error", err)
		os.Exit(1)
	}
}

// runExhibition plays a single match between the two best archived
// champions and logs the outcome.
func runExhibition(runner *sim.Runner, archive *telemetry.Archive, seed int64) {
	c1, c2, err := archive.TopTwo()
	if err != nil {
		slog.Warn("exhibition skipped", "error", err)
		return
	}

	res := runner.RunMatch(c1, c2, rand.New(rand.NewSource(seed+1)))
	slog.Info("exhibition",
		"winner", res.Winner,
		"elapsed", res.Elapsed,
		"ticks", res.Ticks,
		"shots_a", res.Shots[0],
		"shots_b", res.Shots[1],
		"hits_a", res.Hits[0],
		"hits_b", res.Hits[1],
		"fitness_a", res.Fitness[0],
		"fitness_b", res.Fitness[1],
	)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
