// Package sim executes headless duels between two controllers and
// scores both sides. It owns the fixed-timestep match loop and the
// fitness function; everything it needs is captured in a Runner so
// matches can run concurrently without touching shared state.
package sim

import (
	"math"
	"math/rand"

	"github.com/pthm-cable/duel/config"
	"github.com/pthm-cable/duel/game"
	"github.com/pthm-cable/duel/neural"
)

// FitnessWeights holds the scoring coefficients applied to a finished
// match. The categories keep pure camping and pure spraying from
// dominating: aggression pays through hits and accuracy, presence
// through proximity and survival.
type FitnessWeights struct {
	Win             float64
	Death           float64 // subtracted when the ship dies
	Hit             float64
	Accuracy        float64
	Engagement      float64 // per shot fired, up to EngagementCap shots
	EngagementCap   int
	Proximity       float64 // scaled by mean closeness over the match
	ProximityRange  float64
	Survival        float64 // scaled by survived fraction, ship alive at the end
	SurvivalPartial float64 // same, ship killed before the end
}

// WeightsFromConfig builds the fitness weights from the loaded
// configuration.
func WeightsFromConfig(c *config.Config) FitnessWeights {
	return FitnessWeights{
		Win:             c.Fitness.WinBonus,
		Death:           c.Fitness.DeathPenalty,
		Hit:             c.Fitness.HitBonus,
		Accuracy:        c.Fitness.AccuracyBonus,
		Engagement:      c.Fitness.EngagementBonus,
		EngagementCap:   c.Fitness.EngagementCap,
		Proximity:       c.Fitness.ProximityBonus,
		ProximityRange:  c.Fitness.ProximityRange,
		Survival:        c.Fitness.SurvivalBonus,
		SurvivalPartial: c.Fitness.SurvivalPartial,
	}
}

// MatchResult is what one finished duel produced: the fitness deltas
// to fold into each genome, plus the raw statistics telemetry wants.
type MatchResult struct {
	Fitness [2]float64
	Winner  int // ship index, or -1 on a draw
	Hits    [2]int
	Shots   [2]int
	Elapsed float64
	Ticks   int
}

// Runner executes matches under one tuning snapshot. It is immutable
// after construction and safe to share across goroutines; each match
// gets its own random source.
type Runner struct {
	Params   game.Params
	Weights  FitnessWeights
	DT       float64
	MaxSteps int
}

// NewRunner builds a Runner from the loaded configuration.
func NewRunner(c *config.Config) *Runner {
	return &Runner{
		Params:   game.ParamsFromConfig(c),
		Weights:  WeightsFromConfig(c),
		DT:       c.Match.DT,
		MaxSteps: c.Derived.StepsPerMatch,
	}
}

// RunMatch plays one full duel between a (ship 0) and b (ship 1) and
// returns both fitness deltas. The rng drives only the randomized
// start state, so a seeded source reproduces the match bit for bit.
func (r *Runner) RunMatch(a, b *neural.Genome, rng *rand.Rand) MatchResult {
	s := game.NewRandomized(r.Params, rng)
	genomes := [2]*neural.Genome{a, b}

	proximitySum := 0.0
	ticks := 0
	for step := 0; step < r.MaxSteps; step++ {
		var acts [2]game.Action
		for i := range genomes {
			acts[i] = neural.ActionFromOutputs(genomes[i].Evaluate(neural.Sense(s, i)))
		}
		s.Update(r.DT, acts)
		ticks++

		d := game.ToroidalDist(s.Ships[0].X, s.Ships[0].Y, s.Ships[1].X, s.Ships[1].Y,
			r.Params.ArenaWidth, r.Params.ArenaHeight)
		proximitySum += 1 - math.Min(d/r.Weights.ProximityRange, 1)

		if s.Over {
			break
		}
	}

	avgProximity := 0.0
	if ticks > 0 {
		avgProximity = proximitySum / float64(ticks)
	}

	res := MatchResult{
		Winner:  s.Winner,
		Elapsed: s.Elapsed,
		Ticks:   ticks,
	}
	for i := range s.Ships {
		res.Hits[i] = s.Ships[i].HitsScored
		res.Shots[i] = s.Ships[i].ShotsFired
		res.Fitness[i] = r.score(s, i, avgProximity)
	}
	return res
}

// score computes one ship's fitness from the terminal state and the
// match-averaged proximity.
func (r *Runner) score(s *game.State, i int, avgProximity float64) float64 {
	w := &r.Weights
	sh := &s.Ships[i]

	f := 0.0
	if s.Winner == i {
		f += w.Win
	}
	if !sh.Alive {
		f -= w.Death
	}
	f += float64(sh.HitsScored) * w.Hit
	if sh.ShotsFired > 0 {
		f += float64(sh.HitsScored) / float64(sh.ShotsFired) * w.Accuracy
	}
	shots := sh.ShotsFired
	if shots > w.EngagementCap {
		shots = w.EngagementCap
	}
	f += float64(shots) * w.Engagement
	f += avgProximity * w.Proximity

	survived := s.Elapsed / r.Params.MatchDuration
	if sh.Alive {
		f += survived * w.Survival
	} else {
		f += survived * w.SurvivalPartial
	}
	return f
}
