package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/duel/evolve"
)

// GenerationStats holds the aggregated record of one generation,
// written as a CSV row and logged as a structured group.
type GenerationStats struct {
	Generation int `csv:"generation"`

	// Fitness distribution across the population
	BestFitness  float64 `csv:"best_fitness"`
	WorstFitness float64 `csv:"worst_fitness"`
	MeanFitness  float64 `csv:"mean_fitness"`
	StdFitness   float64 `csv:"std_fitness"`
	FitnessP10   float64 `csv:"fitness_p10"`
	FitnessP50   float64 `csv:"fitness_p50"`
	FitnessP90   float64 `csv:"fitness_p90"`

	// Match outcomes during evaluation
	Matches  int     `csv:"matches"`
	Decided  int     `csv:"decided"`
	Draws    int     `csv:"draws"`
	DrawRate float64 `csv:"draw_rate"`
	Shots    int     `csv:"shots"`
	Hits     int     `csv:"hits"`
	HitRate  float64 `csv:"hit_rate"`

	// Phase timings
	EvalMS   int64 `csv:"eval_ms"`
	EvolveMS int64 `csv:"evolve_ms"`
}

// StatsFromResult aggregates a finished generation into a flat record.
func StatsFromResult(res evolve.GenerationResult) GenerationStats {
	s := GenerationStats{
		Generation:  res.Generation,
		BestFitness: res.BestFitness,
		Matches:     res.Summary.Matches,
		Decided:     res.Summary.Decided,
		Draws:       res.Summary.Draws,
		Shots:       res.Summary.Shots,
		Hits:        res.Summary.Hits,
		EvalMS:      res.EvalDuration.Milliseconds(),
		EvolveMS:    res.EvolveDuration.Milliseconds(),
	}

	if res.Summary.Matches > 0 {
		s.DrawRate = float64(res.Summary.Draws) / float64(res.Summary.Matches)
	}
	if res.Summary.Shots > 0 {
		s.HitRate = float64(res.Summary.Hits) / float64(res.Summary.Shots)
	}

	if n := len(res.Fitnesses); n > 0 {
		sorted := make([]float64, n)
		copy(sorted, res.Fitnesses)
		sort.Float64s(sorted)

		s.WorstFitness = sorted[0]
		s.MeanFitness = stat.Mean(sorted, nil)
		if n > 1 {
			s.StdFitness = stat.StdDev(sorted, nil)
		}
		s.FitnessP10 = stat.Quantile(0.10, stat.Empirical, sorted, nil)
		s.FitnessP50 = stat.Quantile(0.50, stat.Empirical, sorted, nil)
		s.FitnessP90 = stat.Quantile(0.90, stat.Empirical, sorted, nil)
	}

	return s
}

// LogValue implements slog.LogValuer for structured logging.
func (s GenerationStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("generation", s.Generation),
		slog.Float64("best_fitness", s.BestFitness),
		slog.Float64("worst_fitness", s.WorstFitness),
		slog.Float64("mean_fitness", s.MeanFitness),
		slog.Float64("std_fitness", s.StdFitness),
		slog.Float64("fitness_p10", s.FitnessP10),
		slog.Float64("fitness_p50", s.FitnessP50),
		slog.Float64("fitness_p90", s.FitnessP90),
		slog.Int("matches", s.Matches),
		slog.Int("decided", s.Decided),
		slog.Int("draws", s.Draws),
		slog.Float64("draw_rate", s.DrawRate),
		slog.Int("shots", s.Shots),
		slog.Int("hits", s.Hits),
		slog.Float64("hit_rate", s.HitRate),
		slog.Int64("eval_ms", s.EvalMS),
		slog.Int64("evolve_ms", s.EvolveMS),
	)
}

// LogStats logs the generation record using slog.
func (s GenerationStats) LogStats() {
	slog.Info("generation",
		"generation", s.Generation,
		"best_fitness", s.BestFitness,
		"mean_fitness", s.MeanFitness,
		"std_fitness", s.StdFitness,
		"fitness_p50", s.FitnessP50,
		"matches", s.Matches,
		"decided", s.Decided,
		"draws", s.Draws,
		"hit_rate", s.HitRate,
		"eval_ms", s.EvalMS,
		"evolve_ms", s.EvolveMS,
	)
}
