package telemetry

import (
	"github.com/pthm-cable/duel/evolve"
)

// Recorder consumes generation results: it derives stats, feeds the
// rolling perf window, maintains the champion archive, and writes
// rows through the output manager.
type Recorder struct {
	out     *OutputManager
	perf    *PerfCollector
	archive *Archive

	flushEvery int
	recorded   int
	flushedAt  int
}

// NewRecorder wires a recorder to an output manager. out may be nil,
// in which case nothing is written to disk but stats and the archive
// still accumulate. flushEvery controls how often the perf row and
// the archive snapshot are written.
func NewRecorder(out *OutputManager, archiveSize, flushEvery int) *Recorder {
	if flushEvery < 1 {
		flushEvery = 10
	}
	return &Recorder{
		out:        out,
		perf:       NewPerfCollector(flushEvery),
		archive:    NewArchive(archiveSize),
		flushEvery: flushEvery,
		flushedAt:  -1,
	}
}

// Record ingests one finished generation and returns its stats.
func (r *Recorder) Record(res evolve.GenerationResult) (GenerationStats, error) {
	stats := StatsFromResult(res)
	r.perf.Record(res.EvalDuration, res.EvolveDuration)
	for _, champ := range res.Champions {
		r.archive.Consider(champ, res.Generation)
	}
	r.recorded++

	if err := r.out.WriteGeneration(stats); err != nil {
		return stats, err
	}
	if r.recorded%r.flushEvery == 0 {
		if err := r.flush(res.Generation); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func (r *Recorder) flush(generation int) error {
	r.flushedAt = r.recorded
	if err := r.out.WritePerf(r.perf.Stats(), generation); err != nil {
		return err
	}
	return r.out.WriteArchive(r.archive)
}

// Archive exposes the champion archive.
func (r *Recorder) Archive() *Archive {
	return r.archive
}

// Perf returns performance stats over the current window.
func (r *Recorder) Perf() PerfStats {
	return r.perf.Stats()
}

// Close writes the final perf row and archive snapshot for anything
// recorded since the last flush.
func (r *Recorder) Close(lastGeneration int) error {
	if r.recorded == 0 || r.recorded == r.flushedAt {
		return nil
	}
	return r.flush(lastGeneration)
}
