package telemetry

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"sort"

	"github.com/pthm-cable/duel/neural"
)

// ArchiveEntry preserves one champion's weights and provenance.
type ArchiveEntry struct {
	Generation int
	Fitness    float64
	Weights    []float64
}

// Archive keeps the best champions seen across a run, sorted by
// fitness descending and bounded in size.
type Archive struct {
	entries []ArchiveEntry
	maxSize int
}

// NewArchive creates an empty archive with the given capacity.
func NewArchive(maxSize int) *Archive {
	if maxSize < 1 {
		maxSize = 16
	}
	return &Archive{
		entries: make([]ArchiveEntry, 0, maxSize),
		maxSize: maxSize,
	}
}

// Consider offers a champion for archiving. The weights are copied,
// so the caller keeps ownership of the genome. Returns true if the
// champion was admitted.
func (a *Archive) Consider(g *neural.Genome, generation int) bool {
	if g == nil {
		return false
	}

	// Insertion point, sorted descending by fitness.
	idx := sort.Search(len(a.entries), func(i int) bool {
		return a.entries[i].Fitness < g.Fitness
	})

	// Full and the entry would rank below everything kept.
	if len(a.entries) >= a.maxSize && idx >= a.maxSize {
		return false
	}

	entry := ArchiveEntry{
		Generation: generation,
		Fitness:    g.Fitness,
		Weights:    append([]float64(nil), g.Weights...),
	}

	a.entries = append(a.entries, ArchiveEntry{})
	copy(a.entries[idx+1:], a.entries[idx:])
	a.entries[idx] = entry

	if len(a.entries) > a.maxSize {
		a.entries = a.entries[:a.maxSize]
	}
	return true
}

// Size returns the number of archived champions.
func (a *Archive) Size() int {
	return len(a.entries)
}

// TopFitness returns the highest archived fitness, or 0 when empty.
func (a *Archive) TopFitness() float64 {
	if len(a.entries) == 0 {
		return 0
	}
	return a.entries[0].Fitness
}

// Entries returns a copy of the archive contents, best first.
func (a *Archive) Entries() []ArchiveEntry {
	return append([]ArchiveEntry(nil), a.entries...)
}

// Best returns the top champion as a genome, or false when empty.
func (a *Archive) Best() (*neural.Genome, bool) {
	if len(a.entries) == 0 {
		return nil, false
	}
	return a.genomeAt(0), true
}

// TopTwo returns the two best champions for an exhibition match.
func (a *Archive) TopTwo() (*neural.Genome, *neural.Genome, error) {
	if len(a.entries) < 2 {
		return nil, nil, fmt.Errorf("archive holds %d champions, need 2", len(a.entries))
	}
	return a.genomeAt(0), a.genomeAt(1), nil
}

// Sample selects a champion using tournament selection with k=3.
// Returns nil if the archive is empty.
func (a *Archive) Sample(rng *rand.Rand) *neural.Genome {
	if len(a.entries) == 0 {
		return nil
	}

	const tournamentSize = 3
	best := -1
	for i := 0; i < tournamentSize; i++ {
		idx := rng.Intn(len(a.entries))
		if best < 0 || a.entries[idx].Fitness > a.entries[best].Fitness {
			best = idx
		}
	}
	return a.genomeAt(best)
}

// genomeAt rebuilds entry i as a standalone genome.
func (a *Archive) genomeAt(i int) *neural.Genome {
	return &neural.Genome{
		Weights: append([]float64(nil), a.entries[i].Weights...),
		Fitness: a.entries[i].Fitness,
	}
}

// archiveEntryJSON is the JSON-serializable form of an entry.
type archiveEntryJSON struct {
	Generation int       `json:"generation"`
	Fitness    float64   `json:"fitness"`
	Weights    []float64 `json:"weights"`
}

// archiveJSON pins the network topology alongside the entries so a
// file from a different build cannot be loaded silently.
type archiveJSON struct {
	Inputs  int                `json:"inputs"`
	Hidden  int                `json:"hidden"`
	Outputs int                `json:"outputs"`
	Entries []archiveEntryJSON `json:"entries"`
}

// MarshalJSON serializes the archive to JSON, best champion first.
func (a *Archive) MarshalJSON() ([]byte, error) {
	export := archiveJSON{
		Inputs:  neural.InputCount,
		Hidden:  neural.HiddenCount,
		Outputs: neural.OutputCount,
		Entries: make([]archiveEntryJSON, len(a.entries)),
	}
	for i, entry := range a.entries {
		export.Entries[i] = archiveEntryJSON{
			Generation: entry.Generation,
			Fitness:    entry.Fitness,
			Weights:    entry.Weights,
		}
	}
	return json.MarshalIndent(export, "", "  ")
}

// LoadArchiveFromFile reads a champion archive JSON file. Entries
// whose topology or weight count does not match the compiled network
// make the load fail.
func LoadArchiveFromFile(path string) (*Archive, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading champion archive: %w", err)
	}

	var raw archiveJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing champion archive: %w", err)
	}

	if raw.Inputs != neural.InputCount || raw.Hidden != neural.HiddenCount || raw.Outputs != neural.OutputCount {
		return nil, fmt.Errorf("champion archive topology %d-%d-%d does not match %d-%d-%d",
			raw.Inputs, raw.Hidden, raw.Outputs,
			neural.InputCount, neural.HiddenCount, neural.OutputCount)
	}

	maxSize := 16
	if len(raw.Entries) > maxSize {
		maxSize = len(raw.Entries)
	}
	a := NewArchive(maxSize)

	for i, ej := range raw.Entries {
		if len(ej.Weights) != neural.GenomeSize {
			return nil, fmt.Errorf("champion %d has %d weights, want %d", i, len(ej.Weights), neural.GenomeSize)
		}
		g := &neural.Genome{Weights: ej.Weights, Fitness: ej.Fitness}
		a.Consider(g, ej.Generation)
	}

	return a, nil
}
