package neural

import (
	"math"
	"math/rand"
	"testing"
)

func TestNewGenomeShape(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	g := NewGenome(rng)

	if len(g.Weights) != GenomeSize {
		t.Fatalf("genome length = %d, want %d", len(g.Weights), GenomeSize)
	}
	if g.Fitness != 0 {
		t.Errorf("fresh genome fitness = %g, want 0", g.Fitness)
	}
	for i, w := range g.Weights {
		if w < -1 || w >= 1 {
			t.Fatalf("weight[%d] = %g, outside [-1, 1)", i, w)
		}
	}
}

func TestEvaluateOutputBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 20; trial++ {
		g := NewGenome(rng)
		var in [InputCount]float64
		for i := range in {
			in[i] = rng.Float64()*2 - 1
		}
		out := g.Evaluate(in)
		for i, v := range out {
			if v <= 0 || v >= 1 || math.IsNaN(v) {
				t.Fatalf("output[%d] = %g, want in (0, 1)", i, v)
			}
		}
	}
}

func TestEvaluateZeroGenome(t *testing.T) {
	g := &Genome{Weights: make([]float64, GenomeSize)}
	out := g.Evaluate([InputCount]float64{})
	for i, v := range out {
		if v != 0.5 {
			t.Errorf("zero genome output[%d] = %g, want 0.5", i, v)
		}
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	g := NewGenome(rng)
	var in [InputCount]float64
	for i := range in {
		in[i] = rng.Float64()
	}
	a := g.Evaluate(in)
	b := g.Evaluate(in)
	if a != b {
		t.Errorf("same genome and inputs gave %v then %v", a, b)
	}
}

func TestCrossoverSplice(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	a := NewGenome(rng)
	b := NewGenome(rng)
	a.Fitness = 40
	b.Fitness = 60

	child := a.Crossover(b, rng)

	if len(child.Weights) != GenomeSize {
		t.Fatalf("child length = %d, want %d", len(child.Weights), GenomeSize)
	}
	if child.Fitness != 0 {
		t.Errorf("child fitness = %g, want 0", child.Fitness)
	}
	for i, w := range child.Weights {
		if w != a.Weights[i] && w != b.Weights[i] {
			t.Fatalf("weight[%d] = %g matches neither parent", i, w)
		}
	}
}

func TestCrossoverSinglePoint(t *testing.T) {
	// Parents with constant distinct weights expose the cut: the child
	// must switch from a's value to b's value at most once.
	a := &Genome{Weights: make([]float64, GenomeSize)}
	b := &Genome{Weights: make([]float64, GenomeSize)}
	for i := range a.Weights {
		a.Weights[i] = 1
		b.Weights[i] = -1
	}

	rng := rand.New(rand.NewSource(9))
	for trial := 0; trial < 50; trial++ {
		child := a.Crossover(b, rng)
		switches := 0
		for i := 1; i < len(child.Weights); i++ {
			if child.Weights[i] != child.Weights[i-1] {
				switches++
			}
		}
		if switches > 1 {
			t.Fatalf("trial %d: child switches parents %d times, want at most 1", trial, switches)
		}
	}
}

func TestCrossoverLengthMismatchPanics(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	a := NewGenome(rng)
	bad := &Genome{Weights: make([]float64, GenomeSize-1)}

	defer func() {
		if recover() == nil {
			t.Error("crossover with mismatched genome did not panic")
		}
	}()
	a.Crossover(bad, rng)
}

func TestMutateRateZeroIsNoop(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	g := NewGenome(rng)
	before := g.Clone()

	g.Mutate(rng, 0, 0.4)

	for i := range g.Weights {
		if g.Weights[i] != before.Weights[i] {
			t.Fatalf("weight[%d] changed with rate 0", i)
		}
	}
}

func TestMutateRateOneBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	g := NewGenome(rng)
	before := g.Clone()
	const strength = 0.4

	g.Mutate(rng, 1, strength)

	for i := range g.Weights {
		delta := g.Weights[i] - before.Weights[i]
		if math.Abs(delta) > strength+1e-12 {
			// The clamp may shrink a delta but never grow one.
			t.Fatalf("weight[%d] moved by %g, beyond strength %g", i, delta, strength)
		}
		if math.Abs(g.Weights[i]) > WeightClamp {
			t.Fatalf("weight[%d] = %g, outside clamp", i, g.Weights[i])
		}
	}
}

func TestMutateClampsRunaway(t *testing.T) {
	g := &Genome{Weights: make([]float64, GenomeSize)}
	for i := range g.Weights {
		g.Weights[i] = WeightClamp
	}
	rng := rand.New(rand.NewSource(4))

	g.Mutate(rng, 1, 10)

	for i, w := range g.Weights {
		if w > WeightClamp || w < -WeightClamp {
			t.Fatalf("weight[%d] = %g escaped [-%g, %g]", i, w, WeightClamp, WeightClamp)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	g := NewGenome(rng)
	g.Fitness = 123

	c := g.Clone()
	if c.Fitness != g.Fitness {
		t.Errorf("clone fitness = %g, want %g", c.Fitness, g.Fitness)
	}
	c.Weights[0] = 99
	if g.Weights[0] == 99 {
		t.Error("mutating the clone reached the original")
	}
}

func BenchmarkEvaluate(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	g := NewGenome(rng)
	var in [InputCount]float64
	for i := range in {
		in[i] = rng.Float64()*2 - 1
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		g.Evaluate(in)
	}
}
