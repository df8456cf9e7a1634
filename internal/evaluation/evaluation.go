// Package evaluation scores a trained classifier on its holdout partition
// and writes the per-class report next to the model artifacts.
package evaluation

import (
	"errors"
	"fmt"
	"time"

	"github.com/sjwhitworth/golearn/base"
	gleval "github.com/sjwhitworth/golearn/evaluation"
)

// ErrInvalidLabels reports truth and prediction slices that cannot be compared.
var ErrInvalidLabels = errors.New("invalid evaluation labels")

// ClassStats holds the holdout statistics of one crop.
type ClassStats struct {
	Class     string  `json:"class"`
	Support   int     `json:"support"`
	Predicted int     `json:"predicted"`
	Correct   int     `json:"correct"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// Results is the evaluation of one training run.
type Results struct {
	Model       string       `json:"model,omitempty"`
	Dataset     string       `json:"dataset,omitempty"`
	GeneratedAt time.Time    `json:"generated_at"`
	Samples     int          `json:"samples"`
	Correct     int          `json:"correct"`
	Accuracy    float64      `json:"accuracy"`
	MacroF1     float64      `json:"macro_f1"`
	Classes     []ClassStats `json:"classes"`

	// Confusion[i][j] counts rows of class i predicted as class j.
	Confusion [][]int `json:"confusion"`
}

// Evaluate compares encoded truth and predictions. classes maps codes to
// names; every code must index into it.
func Evaluate(classes []string, truth, predicted []int) (*Results, error) {
	if len(truth) != len(predicted) {
		return nil, fmt.Errorf("%w: %d truth labels, %d predictions", ErrInvalidLabels, len(truth), len(predicted))
	}
	k := len(classes)
	if k == 0 {
		return nil, fmt.Errorf("%w: no classes", ErrInvalidLabels)
	}
	for i := range truth {
		if t, p := truth[i], predicted[i]; t < 0 || t >= k || p < 0 || p >= k {
			return nil, fmt.Errorf("%w: code out of range at row %d", ErrInvalidLabels, i)
		}
	}

	r := &Results{
		GeneratedAt: time.Now().UTC(),
		Samples:     len(truth),
		Classes:     make([]ClassStats, k),
		Confusion:   make([][]int, k),
	}
	for i := range r.Confusion {
		r.Confusion[i] = make([]int, k)
	}
	for c := range classes {
		r.Classes[c].Class = classes[c]
	}
	if r.Samples == 0 {
		return r, nil
	}

	ref, err := classGrid(classes, truth)
	if err != nil {
		return nil, err
	}
	gen, err := classGrid(classes, predicted)
	if err != nil {
		return nil, err
	}
	cm, err := gleval.GetConfusionMatrix(ref, gen)
	if err != nil {
		return nil, fmt.Errorf("confusion matrix: %w", err)
	}

	for i, actual := range classes {
		for j, guess := range classes {
			r.Confusion[i][j] = cm[actual][guess]
		}
	}
	r.Accuracy = gleval.GetAccuracy(cm)

	var f1Sum float64
	seen := 0
	for c, name := range classes {
		s := &r.Classes[c]
		s.Correct = r.Confusion[c][c]
		for j := 0; j < k; j++ {
			s.Support += r.Confusion[c][j]
			s.Predicted += r.Confusion[j][c]
		}
		r.Correct += s.Correct

		// golearn divides by zero for classes missing from either side.
		if s.Predicted > 0 {
			s.Precision = gleval.GetPrecision(name, cm)
		}
		if s.Support > 0 {
			s.Recall = gleval.GetRecall(name, cm)
		}
		if s.Correct > 0 {
			s.F1 = gleval.GetF1Score(name, cm)
		}
		// Classes absent from both sides carry no signal.
		if s.Support > 0 || s.Predicted > 0 {
			f1Sum += s.F1
			seen++
		}
	}
	if seen > 0 {
		r.MacroF1 = f1Sum / float64(seen)
	}
	return r, nil
}

// classGrid lays encoded labels out as a single class column. Class values
// are registered in code order so both grids share one value table.
func classGrid(classes []string, labels []int) (*base.DenseInstances, error) {
	attr := base.NewCategoricalAttribute()
	attr.SetName("crop")
	sysVals := make([][]byte, len(classes))
	for i, c := range classes {
		sysVals[i] = attr.GetSysValFromString(c)
	}

	grid := base.NewDenseInstances()
	spec := grid.AddAttribute(attr)
	if err := grid.AddClassAttribute(attr); err != nil {
		return nil, fmt.Errorf("class attribute: %w", err)
	}
	if err := grid.Extend(len(labels)); err != nil {
		return nil, fmt.Errorf("allocate rows: %w", err)
	}
	for row, code := range labels {
		grid.Set(spec, row, sysVals[code])
	}
	return grid, nil
}
