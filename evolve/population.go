// Package evolve maintains the genome population and produces
// successive generations through tournament selection, crossover,
// mutation, and elitism. Evaluation fans matches out across workers
// while staying bit-for-bit reproducible for a given seed.
package evolve

import (
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"sync"

	"github.com/pthm-cable/duel/config"
	"github.com/pthm-cable/duel/neural"
	"github.com/pthm-cable/duel/sim"
)

// Settings holds the genetic algorithm parameters.
type Settings struct {
	PopulationSize   int
	MatchesPerEval   int // matches each genome initiates per evaluation round
	TournamentSize   int
	EliteCount       int
	MutationRate     float64
	MutationStrength float64
	CrossoverRate    float64
	Workers          int // parallel match workers; 0 = NumCPU
}

// SettingsFromConfig builds Settings from the loaded configuration.
func SettingsFromConfig(c *config.Config) Settings {
	return Settings{
		PopulationSize:   c.Evolution.PopulationSize,
		MatchesPerEval:   c.Evolution.MatchesPerEval,
		TournamentSize:   c.Evolution.TournamentSize,
		EliteCount:       c.Evolution.EliteCount,
		MutationRate:     c.Evolution.MutationRate,
		MutationStrength: c.Evolution.MutationStrength,
		CrossoverRate:    c.Evolution.CrossoverRate,
		Workers:          c.Evolution.Workers,
	}
}

// EvalSummary aggregates one evaluation round for reporting.
type EvalSummary struct {
	Matches int
	Decided int // matches that ended with a winner
	Draws   int
	Shots   int // both sides combined
	Hits    int
}

// Population is a fixed-size set of genomes plus the generation
// counter. Evaluate assigns fitness in place; Evolve replaces the
// genome set wholesale.
type Population struct {
	Genomes     []*neural.Genome
	Generation  int
	BestFitness float64

	settings Settings
	runner   *sim.Runner
}

// NewPopulation creates a randomly initialized population. The
// settings are checked up front: a population this package cannot
// evolve is a configuration bug, not a runtime condition.
func NewPopulation(s Settings, runner *sim.Runner, rng *rand.Rand) *Population {
	if s.PopulationSize < 2 {
		panic(fmt.Sprintf("evolve: population size %d, need at least 2", s.PopulationSize))
	}
	if s.TournamentSize < 1 {
		panic(fmt.Sprintf("evolve: tournament size %d, need at least 1", s.TournamentSize))
	}
	if s.EliteCount < 0 || s.EliteCount > s.PopulationSize {
		panic(fmt.Sprintf("evolve: elite count %d outside [0,%d]", s.EliteCount, s.PopulationSize))
	}
	if s.MatchesPerEval < 1 {
		panic(fmt.Sprintf("evolve: matches per eval %d, need at least 1", s.MatchesPerEval))
	}

	genomes := make([]*neural.Genome, s.PopulationSize)
	for i := range genomes {
		genomes[i] = neural.NewGenome(rng)
	}
	return &Population{
		Genomes:  genomes,
		settings: s,
		runner:   runner,
	}
}

// matchup is one scheduled duel: initiator, opponent, and the seed
// its private random source starts from.
type matchup struct {
	a, b int
	seed int64
}

// buildSchedule draws the full round of pairings and per-match seeds
// from the master rng in a fixed order. Opponents are uniform over
// the population excluding the initiator: the draw is over n-1 slots
// and shifted past the initiator, so a self-match cannot be sampled.
func (p *Population) buildSchedule(rng *rand.Rand) []matchup {
	n := len(p.Genomes)
	jobs := make([]matchup, 0, n*p.settings.MatchesPerEval)
	for i := 0; i < n; i++ {
		for m := 0; m < p.settings.MatchesPerEval; m++ {
			j := rng.Intn(n - 1)
			if j >= i {
				j++
			}
			jobs = append(jobs, matchup{a: i, b: j, seed: rng.Int63()})
		}
	}
	return jobs
}

// Evaluate scores the whole population: fitness is reset, every
// genome initiates its scheduled matches, and both participants of
// each match accumulate its fitness deltas.
//
// The schedule (pairings and seeds) is drawn before any match runs
// and results are folded back in schedule order, so the outcome is
// identical for any worker count.
func (p *Population) Evaluate(rng *rand.Rand) EvalSummary {
	for _, g := range p.Genomes {
		g.Fitness = 0
	}

	jobs := p.buildSchedule(rng)
	results := make([]sim.MatchResult, len(jobs))

	workers := p.settings.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	idxCh := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := range idxCh {
				job := jobs[k]
				matchRNG := rand.New(rand.NewSource(job.seed))
				results[k] = p.runner.RunMatch(p.Genomes[job.a], p.Genomes[job.b], matchRNG)
			}
		}()
	}
	for k := range jobs {
		idxCh <- k
	}
	close(idxCh)
	wg.Wait()

	var summary EvalSummary
	summary.Matches = len(jobs)
	for k, job := range jobs {
		res := &results[k]
		p.Genomes[job.a].Fitness += res.Fitness[0]
		p.Genomes[job.b].Fitness += res.Fitness[1]
		if res.Winner >= 0 {
			summary.Decided++
		} else {
			summary.Draws++
		}
		summary.Shots += res.Shots[0] + res.Shots[1]
		summary.Hits += res.Hits[0] + res.Hits[1]
	}

	best := math.Inf(-1)
	for _, g := range p.Genomes {
		if g.Fitness > best {
			best = g.Fitness
		}
	}
	p.BestFitness = best
	return summary
}

// Evolve replaces the population with the next generation: the top
// EliteCount genomes survive verbatim with fitness cleared, the rest
// are bred by tournament selection, single-point crossover, and
// unconditional mutation.
func (p *Population) Evolve(rng *rand.Rand) {
	n := len(p.Genomes)
	if n == 0 {
		panic("evolve: empty population")
	}

	sort.SliceStable(p.Genomes, func(i, j int) bool {
		return p.Genomes[i].Fitness > p.Genomes[j].Fitness
	})

	next := make([]*neural.Genome, 0, n)
	for i := 0; i < p.settings.EliteCount && i < n; i++ {
		elite := p.Genomes[i].Clone()
		elite.Fitness = 0
		next = append(next, elite)
	}

	for len(next) < n {
		p1 := p.tournamentSelect(rng)
		p2 := p.tournamentSelect(rng)

		var child *neural.Genome
		if rng.Float64() < p.settings.CrossoverRate {
			child = p1.Crossover(p2, rng)
		} else {
			child = p1.Clone()
			child.Fitness = 0
		}
		child.Mutate(rng, p.settings.MutationRate, p.settings.MutationStrength)
		next = append(next, child)
	}

	p.Genomes = next
	p.Generation++
}

// tournamentSelect picks TournamentSize genomes uniformly with
// replacement and returns the fittest.
func (p *Population) tournamentSelect(rng *rand.Rand) *neural.Genome {
	best := p.Genomes[rng.Intn(len(p.Genomes))]
	for k := 1; k < p.settings.TournamentSize; k++ {
		c := p.Genomes[rng.Intn(len(p.Genomes))]
		if c.Fitness > best.Fitness {
			best = c
		}
	}
	return best
}

// TopTwo returns clones of the two fittest genomes of the current,
// already-scored population. It never reorders or mutates the
// population.
func (p *Population) TopTwo() (*neural.Genome, *neural.Genome) {
	if len(p.Genomes) < 2 {
		panic(fmt.Sprintf("evolve: population of %d has no top two", len(p.Genomes)))
	}

	first, second := 0, -1
	for i := 1; i < len(p.Genomes); i++ {
		if p.Genomes[i].Fitness > p.Genomes[first].Fitness {
			second = first
			first = i
		} else if second < 0 || p.Genomes[i].Fitness > p.Genomes[second].Fitness {
			second = i
		}
	}
	return p.Genomes[first].Clone(), p.Genomes[second].Clone()
}
