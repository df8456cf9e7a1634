package ml

import (
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sync"

	"cropsense/internal/common"
)

// ForestConfig holds the random forest hyperparameters.
type ForestConfig struct {
	NumTrees        int
	MaxDepth        int // 0 grows trees until leaves are pure
	MinSamplesSplit int
	MaxFeatures     int // 0 uses floor(sqrt(features))
	Bootstrap       bool
	Seed            int64
}

// DefaultForestConfig mirrors the classifier the crop model has always been trained with.
func DefaultForestConfig() ForestConfig {
	return ForestConfig{
		NumTrees:        common.DefaultNumTrees,
		MinSamplesSplit: 2,
		Bootstrap:       true,
		Seed:            common.DefaultRandomSeed,
	}
}

// RandomForest is an ensemble of decision trees whose leaf distributions
// are averaged into a single per-class probability vector.
type RandomForest struct {
	NumFeatures int            `json:"num_features"`
	NumClasses  int            `json:"num_classes"`
	Trees       []DecisionTree `json:"trees"`
}

// FitRandomForest trains a forest on x with integer class codes y in [0, nClasses).
// Each tree draws from its own source seeded with cfg.Seed plus the tree index,
// so the result does not depend on goroutine scheduling.
func FitRandomForest(x [][]float64, y []int, nClasses int, cfg ForestConfig) (*RandomForest, error) {
	if len(x) == 0 {
		return nil, fmt.Errorf("%w: empty training set", ErrData)
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("%w: %d rows but %d labels", ErrData, len(x), len(y))
	}
	if nClasses <= 0 {
		return nil, fmt.Errorf("%w: no classes", ErrData)
	}
	if cfg.NumTrees <= 0 {
		return nil, fmt.Errorf("%w: number of trees must be positive, got %d", ErrData, cfg.NumTrees)
	}

	nFeatures := len(x[0])
	for i, row := range x {
		if len(row) != nFeatures {
			return nil, fmt.Errorf("%w: row %d has %d features, want %d", ErrData, i, len(row), nFeatures)
		}
		if y[i] < 0 || y[i] >= nClasses {
			return nil, fmt.Errorf("%w: row %d has class code %d outside [0, %d)", ErrData, i, y[i], nClasses)
		}
	}

	params := treeParams{
		maxDepth:        cfg.MaxDepth,
		minSamplesSplit: cfg.MinSamplesSplit,
		maxFeatures:     cfg.MaxFeatures,
	}
	if params.minSamplesSplit < 2 {
		params.minSamplesSplit = 2
	}
	if params.maxFeatures <= 0 {
		params.maxFeatures = int(math.Max(1, math.Floor(math.Sqrt(float64(nFeatures)))))
	}

	forest := &RandomForest{
		NumFeatures: nFeatures,
		NumClasses:  nClasses,
		Trees:       make([]DecisionTree, cfg.NumTrees),
	}

	n := len(x)
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < runtime.GOMAXPROCS(0); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range jobs {
				rnd := rand.New(rand.NewSource(cfg.Seed + int64(t)))
				idx := make([]int, n)
				for j := range idx {
					if cfg.Bootstrap {
						idx[j] = rnd.Intn(n)
					} else {
						idx[j] = j
					}
				}
				forest.Trees[t] = fitTree(x, y, idx, nClasses, params, rnd)
			}
		}()
	}
	for t := 0; t < cfg.NumTrees; t++ {
		jobs <- t
	}
	close(jobs)
	wg.Wait()

	return forest, nil
}

// PredictProba returns the mean class distribution over all trees.
// The caller guarantees len(x) == NumFeatures.
func (f *RandomForest) PredictProba(x []float64) []float64 {
	out := make([]float64, f.NumClasses)
	for i := range f.Trees {
		for c, p := range f.Trees[i].predictProba(x) {
			out[c] += p
		}
	}
	for c := range out {
		out[c] /= float64(len(f.Trees))
	}
	return out
}

// Predict returns the class code with the highest mean probability; ties go
// to the lower code.
func (f *RandomForest) Predict(x []float64) int {
	return argmax(f.PredictProba(x))
}

// Validate checks a forest restored from disk before it is used.
func (f *RandomForest) Validate() error {
	if f.NumFeatures <= 0 || f.NumClasses <= 0 {
		return fmt.Errorf("forest has %d features and %d classes", f.NumFeatures, f.NumClasses)
	}
	if len(f.Trees) == 0 {
		return fmt.Errorf("forest has no trees")
	}
	for i := range f.Trees {
		if err := f.Trees[i].validate(f.NumFeatures, f.NumClasses); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}

func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
