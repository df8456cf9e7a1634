package ml

import (
	"fmt"
	"math"
	"math/rand"
)

// TrainTestSplit shuffles the row indices 0..n-1 with a seeded source and
// holds out ceil(testSize*n) of them.
func TrainTestSplit(n int, testSize float64, seed int64) (train, test []int, err error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, fmt.Errorf("%w: test size must be in (0, 1), got %v", ErrData, testSize)
	}
	nTest := int(math.Ceil(testSize * float64(n)))
	if nTest < 1 || n-nTest < 1 {
		return nil, nil, fmt.Errorf("%w: %d rows cannot be split with test size %v", ErrData, n, testSize)
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return perm[nTest:], perm[:nTest], nil
}

// Accuracy returns the fraction of positions where predicted equals actual.
func Accuracy(actual, predicted []int) float64 {
	if len(actual) == 0 || len(actual) != len(predicted) {
		return 0
	}
	correct := 0
	for i := range actual {
		if actual[i] == predicted[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(actual))
}
