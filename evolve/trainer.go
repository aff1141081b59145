package evolve

import (
	"math/rand"
	"sync"
	"time"

	"github.com/pthm-cable/duel/neural"
)

// GenerationResult is the complete outcome of one evaluate-then-evolve
// cycle, published as a single value. Champions are clones, and
// Fitnesses is a copy, so the consumer never reaches into the
// population while the next cycle runs.
type GenerationResult struct {
	Generation  int // generation that was evaluated
	BestFitness float64
	Fitnesses   []float64
	Champions   [2]*neural.Genome
	Summary     EvalSummary

	EvalDuration   time.Duration
	EvolveDuration time.Duration
}

// RunGeneration executes one full cycle: evaluate the current
// population, snapshot the scores and champions, then evolve.
func (p *Population) RunGeneration(rng *rand.Rand) GenerationResult {
	evalStart := time.Now()
	summary := p.Evaluate(rng)
	evalDur := time.Since(evalStart)

	gen := p.Generation
	fits := make([]float64, len(p.Genomes))
	for i, g := range p.Genomes {
		fits[i] = g.Fitness
	}
	c1, c2 := p.TopTwo()

	evolveStart := time.Now()
	p.Evolve(rng)

	return GenerationResult{
		Generation:     gen,
		BestFitness:    p.BestFitness,
		Fitnesses:      fits,
		Champions:      [2]*neural.Genome{c1, c2},
		Summary:        summary,
		EvalDuration:   evalDur,
		EvolveDuration: time.Since(evolveStart),
	}
}

// Trainer runs generations on a background goroutine so the caller
// can stay responsive. One request produces one GenerationResult;
// at most one result is buffered, and Poll never blocks.
//
// The trainer owns the population and the rng it was given. Callers
// must not touch either directly while the trainer is live; results
// carry everything a consumer needs.
type Trainer struct {
	pop *Population
	rng *rand.Rand

	requests chan struct{}
	results  chan GenerationResult
	stop     chan struct{}
	wg       sync.WaitGroup
}

// NewTrainer starts the background loop. Stop must be called to
// release it.
func NewTrainer(pop *Population, rng *rand.Rand) *Trainer {
	t := &Trainer{
		pop:      pop,
		rng:      rng,
		requests: make(chan struct{}, 1),
		results:  make(chan GenerationResult, 1),
		stop:     make(chan struct{}),
	}
	t.wg.Add(1)
	go t.loop()
	return t
}

func (t *Trainer) loop() {
	defer t.wg.Done()
	for {
		select {
		case <-t.stop:
			return
		case <-t.requests:
			res := t.pop.RunGeneration(t.rng)
			select {
			case t.results <- res:
			case <-t.stop:
				return
			}
		}
	}
}

// Request queues one generation. It reports false when a request is
// already queued; the generation in flight is unaffected either way.
func (t *Trainer) Request() bool {
	select {
	case t.requests <- struct{}{}:
		return true
	default:
		return false
	}
}

// Poll hands over a finished generation if one is ready, without
// blocking.
func (t *Trainer) Poll() (GenerationResult, bool) {
	select {
	case res := <-t.results:
		return res, true
	default:
		return GenerationResult{}, false
	}
}

// Stop shuts the loop down and waits for it. A generation already
// running finishes first; its result is discarded if nobody polled.
// After Stop returns the population is safe to use directly again.
func (t *Trainer) Stop() {
	close(t.stop)
	t.wg.Wait()
}
