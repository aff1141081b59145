// Package neural implements the evolvable ship controller: a
// fixed-topology feed-forward network whose flattened weight vector
// is the genome, plus the sensor encoding that feeds it.
package neural

import (
	"fmt"
	"math"
	"math/rand"
)

// Network topology. The genome length is coupled to these; changing
// them invalidates any stored weights.
const (
	InputCount  = 14
	HiddenCount = 16
	OutputCount = 4

	// GenomeSize counts one weight per connection plus one bias per
	// neuron: (InputCount+1)*HiddenCount + (HiddenCount+1)*OutputCount.
	GenomeSize = (InputCount+1)*HiddenCount + (HiddenCount+1)*OutputCount

	// WeightClamp bounds every weight after mutation, keeping network
	// dynamics stable across many generations.
	WeightClamp = 3.0
)

// Genome is one evolvable controller: the flat weight vector and the
// fitness it accumulated in the current evaluation round. Weights are
// laid out per hidden neuron (input weights then bias), then per
// output neuron (hidden weights then bias). Init, Evaluate, Crossover
// and Mutate all index this layout identically; heredity depends on
// that order never changing.
type Genome struct {
	Weights []float64
	Fitness float64
}

// NewGenome returns a genome with weights drawn uniformly from [-1, 1).
func NewGenome(rng *rand.Rand) *Genome {
	w := make([]float64, GenomeSize)
	for i := range w {
		w[i] = rng.Float64()*2 - 1
	}
	return &Genome{Weights: w}
}

// Clone returns a deep copy, fitness included.
func (g *Genome) Clone() *Genome {
	w := make([]float64, len(g.Weights))
	copy(w, g.Weights)
	return &Genome{Weights: w, Fitness: g.Fitness}
}

// Evaluate runs one forward pass. Hidden activations are tanh, output
// activations sigmoid, so the four control signals land in (0, 1):
// thrust, turn left, turn right, fire.
func (g *Genome) Evaluate(inputs [InputCount]float64) [OutputCount]float64 {
	g.mustSized()

	idx := 0
	var hidden [HiddenCount]float64
	for h := 0; h < HiddenCount; h++ {
		sum := 0.0
		for i := 0; i < InputCount; i++ {
			sum += g.Weights[idx] * inputs[i]
			idx++
		}
		sum += g.Weights[idx] // bias
		idx++
		hidden[h] = math.Tanh(sum)
	}

	var out [OutputCount]float64
	for o := 0; o < OutputCount; o++ {
		sum := 0.0
		for h := 0; h < HiddenCount; h++ {
			sum += g.Weights[idx] * hidden[h]
			idx++
		}
		sum += g.Weights[idx] // bias
		idx++
		out[o] = sigmoid(sum)
	}
	return out
}

// Crossover returns a child spliced at a single random cut: weights
// below the cut come from g, the rest from other. The child starts
// with zero fitness.
func (g *Genome) Crossover(other *Genome, rng *rand.Rand) *Genome {
	g.mustSized()
	other.mustSized()

	cut := rng.Intn(GenomeSize)
	w := make([]float64, GenomeSize)
	copy(w[:cut], g.Weights[:cut])
	copy(w[cut:], other.Weights[cut:])
	return &Genome{Weights: w}
}

// Mutate perturbs each weight independently with probability rate by
// a uniform delta in [-strength, strength], then clamps it to
// [-WeightClamp, WeightClamp].
func (g *Genome) Mutate(rng *rand.Rand, rate, strength float64) {
	g.mustSized()

	for i, w := range g.Weights {
		if rng.Float64() < rate {
			w += (rng.Float64()*2 - 1) * strength
			if w > WeightClamp {
				w = WeightClamp
			} else if w < -WeightClamp {
				w = -WeightClamp
			}
			g.Weights[i] = w
		}
	}
}

// mustSized panics when the weight vector does not match the
// topology. A mismatch is a programmer error, never user data.
func (g *Genome) mustSized() {
	if len(g.Weights) != GenomeSize {
		panic(fmt.Sprintf("neural: genome has %d weights, topology requires %d", len(g.Weights), GenomeSize))
	}
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
