package ml

import (
	"math/rand"
	"sort"
)

// FeatureScore is the permutation importance of one input column.
type FeatureScore struct {
	Name             string  `json:"name"`
	Importance       float64 `json:"importance"`
	PermutedAccuracy float64 `json:"permuted_accuracy"`
}

// PermutationImportance shuffles each column of x in turn and reports how
// far the forest's accuracy on y falls. Scores are sorted most important
// first; a negative importance means shuffling happened to help.
func PermutationImportance(forest *RandomForest, x [][]float64, y []int, seed int64) []FeatureScore {
	if forest == nil || len(x) == 0 || len(x) != len(y) {
		return nil
	}

	baseline := forestAccuracy(forest, x, y)
	rnd := rand.New(rand.NewSource(seed))

	shuffled := make([][]float64, len(x))
	for i := range x {
		shuffled[i] = make([]float64, len(x[i]))
	}

	nFeatures := len(x[0])
	scores := make([]FeatureScore, 0, nFeatures)
	for f := 0; f < nFeatures; f++ {
		perm := rnd.Perm(len(x))
		for i := range x {
			copy(shuffled[i], x[i])
			shuffled[i][f] = x[perm[i]][f]
		}

		acc := forestAccuracy(forest, shuffled, y)
		name := ""
		if f < len(FeatureColumns) {
			name = FeatureColumns[f]
		}
		scores = append(scores, FeatureScore{
			Name:             name,
			Importance:       baseline - acc,
			PermutedAccuracy: acc,
		})
	}

	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Importance > scores[j].Importance })
	return scores
}

func forestAccuracy(forest *RandomForest, x [][]float64, y []int) float64 {
	predicted := make([]int, len(x))
	for i, row := range x {
		predicted[i] = forest.Predict(row)
	}
	return Accuracy(y, predicted)
}
