package telemetry

import (
	"log/slog"
	"time"
)

// PerfSample holds timing data for a single generation.
type PerfSample struct {
	EvalDuration   time.Duration
	EvolveDuration time.Duration
}

// Total returns the combined generation duration.
func (s PerfSample) Total() time.Duration {
	return s.EvalDuration + s.EvolveDuration
}

// PerfCollector tracks generation timings over a rolling window.
type PerfCollector struct {
	windowSize  int
	samples     []PerfSample
	writeIndex  int
	sampleCount int
}

// NewPerfCollector creates a performance collector averaging over the
// last windowSize generations.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 10
	}
	return &PerfCollector{
		windowSize: windowSize,
		samples:    make([]PerfSample, windowSize),
	}
}

// Record adds one generation's phase timings to the window.
func (p *PerfCollector) Record(eval, evolve time.Duration) {
	p.samples[p.writeIndex] = PerfSample{EvalDuration: eval, EvolveDuration: evolve}
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
}

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	AvgGeneration time.Duration
	MinGeneration time.Duration
	MaxGeneration time.Duration

	AvgEval   time.Duration
	AvgEvolve time.Duration

	// Share of generation time spent evaluating, in percent
	EvalPct float64

	GenerationsPerMin float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	if p.sampleCount == 0 {
		return PerfStats{}
	}

	var totalGen, totalEval, totalEvolve time.Duration
	var minGen, maxGen time.Duration
	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		gen := s.Total()
		totalGen += gen
		totalEval += s.EvalDuration
		totalEvolve += s.EvolveDuration

		if i == 0 || gen < minGen {
			minGen = gen
		}
		if gen > maxGen {
			maxGen = gen
		}
	}

	n := time.Duration(p.sampleCount)
	avgGen := totalGen / n

	var evalPct float64
	if avgGen > 0 {
		evalPct = float64(totalEval) / float64(totalGen) * 100
	}
	var perMin float64
	if avgGen > 0 {
		perMin = float64(time.Minute) / float64(avgGen)
	}

	return PerfStats{
		AvgGeneration:     avgGen,
		MinGeneration:     minGen,
		MaxGeneration:     maxGen,
		AvgEval:           totalEval / n,
		AvgEvolve:         totalEvolve / n,
		EvalPct:           evalPct,
		GenerationsPerMin: perMin,
	}
}

// LogStats logs performance statistics.
func (s PerfStats) LogStats() {
	slog.Info("perf",
		"avg_gen_ms", s.AvgGeneration.Milliseconds(),
		"min_gen_ms", s.MinGeneration.Milliseconds(),
		"max_gen_ms", s.MaxGeneration.Milliseconds(),
		"avg_eval_ms", s.AvgEval.Milliseconds(),
		"avg_evolve_ms", s.AvgEvolve.Milliseconds(),
		"eval_pct", int(s.EvalPct*10)/10.0,
		"gen_per_min", int(s.GenerationsPerMin*10)/10.0,
	)
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("avg_gen_ms", s.AvgGeneration.Milliseconds()),
		slog.Int64("min_gen_ms", s.MinGeneration.Milliseconds()),
		slog.Int64("max_gen_ms", s.MaxGeneration.Milliseconds()),
		slog.Int64("avg_eval_ms", s.AvgEval.Milliseconds()),
		slog.Int64("avg_evolve_ms", s.AvgEvolve.Milliseconds()),
		slog.Float64("eval_pct", s.EvalPct),
		slog.Float64("gen_per_min", s.GenerationsPerMin),
	)
}

// PerfStatsCSV is a flat struct for CSV export of performance stats.
type PerfStatsCSV struct {
	Generation  int     `csv:"generation"`
	AvgGenMS    int64   `csv:"avg_gen_ms"`
	MinGenMS    int64   `csv:"min_gen_ms"`
	MaxGenMS    int64   `csv:"max_gen_ms"`
	AvgEvalMS   int64   `csv:"avg_eval_ms"`
	AvgEvolveMS int64   `csv:"avg_evolve_ms"`
	EvalPct     float64 `csv:"eval_pct"`
	GenPerMin   float64 `csv:"gen_per_min"`
}

// ToCSV converts PerfStats to a flat CSV-friendly struct.
func (s PerfStats) ToCSV(generation int) PerfStatsCSV {
	return PerfStatsCSV{
		Generation:  generation,
		AvgGenMS:    s.AvgGeneration.Milliseconds(),
		MinGenMS:    s.MinGeneration.Milliseconds(),
		MaxGenMS:    s.MaxGeneration.Milliseconds(),
		AvgEvalMS:   s.AvgEval.Milliseconds(),
		AvgEvolveMS: s.AvgEvolve.Milliseconds(),
		EvalPct:     s.EvalPct,
		GenPerMin:   s.GenerationsPerMin,
	}
}
