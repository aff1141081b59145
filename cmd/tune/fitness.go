package main

import (
	"math"
	"math/rand"
	"runtime"
	"sync"

	"github.com/pthm-cable/duel/config"
	"github.com/pthm-cable/duel/evolve"
	"github.com/pthm-cable/duel/sim"
	"github.com/pthm-cable/duel/telemetry"
)

// FitnessEvaluator scores a hyperparameter candidate by running short
// training sessions from scratch and measuring how fit the champions
// get. CMA-ES minimizes, so the score is the negated mean best fitness
// across seeds.
type FitnessEvaluator struct {
	params      *ParamVector
	baseConfig  *config.Config
	generations int
	seeds       []int64
	workers     int

	mu           sync.Mutex
	bestScore    float64
	bestArchive  *telemetry.Archive
	lastProgress float64
}

// NewFitnessEvaluator creates an evaluator that trains for the given
// number of generations on each seed. Workers is the per-session
// match worker count; zero divides the CPUs across the seed sessions.
func NewFitnessEvaluator(params *ParamVector, baseConfig *config.Config, generations int, seeds []int64, workers int) *FitnessEvaluator {
	if workers <= 0 {
		workers = runtime.NumCPU() / len(seeds)
		if workers < 1 {
			workers = 1
		}
	}
	return &FitnessEvaluator{
		params:      params,
		baseConfig:  baseConfig,
		generations: generations,
		seeds:       seeds,
		workers:     workers,
		bestScore:   math.Inf(1),
	}
}

// Evaluate runs one training session per seed in parallel and returns
// the negated mean of the final best fitnesses. Lower is better.
func (e *FitnessEvaluator) Evaluate(values []float64) float64 {
	cfg := e.tunedConfig(values)

	type session struct {
		best     float64
		progress float64
		archive  *telemetry.Archive
	}
	results := make([]session, len(e.seeds))

	var wg sync.WaitGroup
	for idx, seed := range e.seeds {
		wg.Add(1)
		go func(idx int, seed int64) {
			defer wg.Done()
			best, progress, arch := e.runSession(cfg, seed)
			results[idx] = session{best: best, progress: progress, archive: arch}
		}(idx, seed)
	}
	wg.Wait()

	var meanBest, meanProgress float64
	bestSeed := 0
	for i, res := range results {
		meanBest += res.best
		meanProgress += res.progress
		if res.best > results[bestSeed].best {
			bestSeed = i
		}
	}
	meanBest /= float64(len(results))
	meanProgress /= float64(len(results))

	score := -meanBest

	e.mu.Lock()
	e.lastProgress = meanProgress
	if score < e.bestScore {
		e.bestScore = score
		e.bestArchive = results[bestSeed].archive
	}
	e.mu.Unlock()

	return score
}

// runSession trains a fresh population and reports the final best
// fitness, the gain over the first generation, and the champions seen.
func (e *FitnessEvaluator) runSession(cfg *config.Config, seed int64) (float64, float64, *telemetry.Archive) {
	rng := rand.New(rand.NewSource(seed))
	runner := sim.NewRunner(cfg)
	pop := evolve.NewPopulation(evolve.SettingsFromConfig(cfg), runner, rng)
	arch := telemetry.NewArchive(8)

	var firstBest float64
	for g := 0; g < e.generations; g++ {
		pop.Evaluate(rng)
		if g == 0 {
			firstBest = pop.BestFitness
		}
		champ, second := pop.TopTwo()
		arch.Consider(champ, pop.Generation)
		arch.Consider(second, pop.Generation)
		if g < e.generations-1 {
			pop.Evolve(rng)
		}
	}
	return pop.BestFitness, pop.BestFitness - firstBest, arch
}

// tunedConfig copies the base config and applies the candidate values.
// Config holds only value sections, so a shallow copy is a full copy.
func (e *FitnessEvaluator) tunedConfig(values []float64) *config.Config {
	cfg := *e.baseConfig
	e.params.ApplyToConfig(&cfg, values)
	cfg.Evolution.Workers = e.workers
	cfg.Telemetry.OutputDir = ""
	return &cfg
}

// BestArchive returns the champion archive from the best candidate so
// far, or nil before the first evaluation.
func (e *FitnessEvaluator) BestArchive() *telemetry.Archive {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bestArchive
}

// LastProgress returns the mean fitness gain of the most recent
// evaluation, for progress reporting.
func (e *FitnessEvaluator) LastProgress() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastProgress
}
