package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/duel/config"
)

func main() {
	configPath := flag.String("config", "", "path to config YAML (defaults used when empty)")
	budget := flag.Int("budget", 60, "maximum number of candidate evaluations")
	numSeeds := flag.Int("seeds", 3, "training seeds per candidate")
	generations := flag.Int("generations", 15, "generations per training session")
	workers := flag.Int("workers", 0, "match workers per session (0 = CPUs/seeds)")
	outDir := flag.String("out", "tune", "output directory for eval log and best config")
	popSize := flag.Int("pop-size", 0, "CMA-ES population size (0 = auto)")
	flag.Parse()

	if *numSeeds < 1 {
		log.Fatalf("need at least one seed, got %d", *numSeeds)
	}
	if *generations < 1 {
		log.Fatalf("need at least one generation, got %d", *generations)
	}

	baseConfig, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		log.Fatalf("creating output dir: %v", err)
	}

	seeds := make([]int64, *numSeeds)
	for i := range seeds {
		seeds[i] = int64(i*1000 + 42)
	}

	params := NewParamVector()
	evaluator := NewFitnessEvaluator(params, baseConfig, *generations, seeds, *workers)

	evalFile, err := os.Create(filepath.Join(*outDir, "evals.csv"))
	if err != nil {
		log.Fatalf("creating eval log: %v", err)
	}
	defer evalFile.Close()

	evalLog := csv.NewWriter(evalFile)
	header := []string{"eval", "score", "mean_best", "progress"}
	for _, spec := range params.Specs {
		header = append(header, spec.Name)
	}
	if err := evalLog.Write(header); err != nil {
		log.Fatalf("writing eval log header: %v", err)
	}
	evalLog.Flush()

	dim := params.Dim()
	cmaPop := *popSize
	if cmaPop <= 0 {
		// 4 + floor(3 ln n), the usual CMA-ES default.
		cmaPop = 4 + int(3.0*math.Log(float64(dim)))
	}

	fmt.Printf("tuning %d parameters, budget %d evals, %d seeds x %d generations, CMA population %d\n",
		dim, *budget, *numSeeds, *generations, cmaPop)

	start := time.Now()

	var mu sync.Mutex
	evalCount := 0
	bestScore := 0.0
	var bestValues []float64
	haveBest := false

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			raw := params.Denormalize(x)
			score := evaluator.Evaluate(raw)
			clamped := params.Clamp(raw)
			progress := evaluator.LastProgress()

			mu.Lock()
			evalCount++
			n := evalCount
			if !haveBest || score < bestScore {
				bestScore = score
				bestValues = append([]float64(nil), clamped...)
				haveBest = true
			}
			best := bestScore

			row := []string{
				strconv.Itoa(n),
				strconv.FormatFloat(score, 'f', 4, 64),
				strconv.FormatFloat(-score, 'f', 4, 64),
				strconv.FormatFloat(progress, 'f', 4, 64),
			}
			for _, v := range clamped {
				row = append(row, strconv.FormatFloat(v, 'f', 4, 64))
			}
			if err := evalLog.Write(row); err != nil {
				log.Printf("writing eval log: %v", err)
			}
			evalLog.Flush()
			mu.Unlock()

			fmt.Printf("[%3d/%d] best_fitness=%.2f progress=%.2f best_so_far=%.2f elapsed=%s\n",
				n, *budget, -score, progress, -best, formatDuration(time.Since(start)))
			return score
		},
	}

	x0 := params.Normalize(params.DefaultVector())
	settings := &optimize.Settings{
		FuncEvaluations: *budget,
		Concurrent:      0,
	}
	method := &optimize.CmaEsChol{
		InitStepSize: 0.3,
		Population:   cmaPop,
	}

	// Every candidate passes through the wrapped Func, so the tracked
	// best covers the optimizer's final point too.
	if _, err := optimize.Minimize(problem, x0, settings, method); err != nil {
		fmt.Printf("optimizer stopped: %v\n", err)
	}

	if !haveBest {
		log.Fatalf("no evaluations completed")
	}

	fmt.Printf("\nbest mean fitness %.2f after %d evals in %s\n", -bestScore, evalCount, formatDuration(time.Since(start)))
	for i, spec := range params.Specs {
		fmt.Printf("  %-18s %.4f\n", spec.Name, bestValues[i])
	}

	bestConfig := *baseConfig
	params.ApplyToConfig(&bestConfig, bestValues)
	configOut := filepath.Join(*outDir, "best_config.yaml")
	if err := bestConfig.WriteYAML(configOut); err != nil {
		log.Fatalf("writing best config: %v", err)
	}
	fmt.Printf("wrote %s\n", configOut)

	if arch := evaluator.BestArchive(); arch != nil && arch.Size() > 0 {
		data, err := arch.MarshalJSON()
		if err != nil {
			log.Fatalf("encoding champions: %v", err)
		}
		champOut := filepath.Join(*outDir, "champions.json")
		if err := os.WriteFile(champOut, data, 0644); err != nil {
			log.Fatalf("writing champions: %v", err)
		}
		fmt.Printf("wrote %s\n", champOut)
	}
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
