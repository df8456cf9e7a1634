package ml

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// NumFeatures is the width of every feature vector fed to the classifier.
const NumFeatures = 7

// LabelColumn names the dataset column holding the crop name.
const LabelColumn = "label"

// FeatureColumns lists the model inputs in the order the classifier expects them.
var FeatureColumns = [NumFeatures]string{"N", "P", "K", "temperature", "humidity", "ph", "rainfall"}

// Record is a single labeled row of the training dataset.
type Record struct {
	Features [NumFeatures]float64
	Label    string
}

// Dataset holds the labeled rows read from a CSV file.
type Dataset struct {
	Records []Record
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return len(d.Records)
}

// Matrix returns the feature rows as slices, sharing no memory with the dataset.
func (d *Dataset) Matrix() [][]float64 {
	out := make([][]float64, len(d.Records))
	for i, r := range d.Records {
		row := make([]float64, NumFeatures)
		copy(row, r.Features[:])
		out[i] = row
	}
	return out
}

// Labels returns the label column.
func (d *Dataset) Labels() []string {
	out := make([]string, len(d.Records))
	for i, r := range d.Records {
		out[i] = r.Label
	}
	return out
}

// LoadDataset reads a CSV dataset from disk.
func LoadDataset(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open dataset %s: %v", ErrData, path, err)
	}
	defer f.Close()

	ds, err := ReadDataset(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// ReadDataset parses a CSV stream with a header row. Columns are matched by
// name, so their order is free and extra columns are ignored.
func ReadDataset(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: dataset is empty", ErrData)
		}
		return nil, fmt.Errorf("%w: read header: %v", ErrData, err)
	}

	featureIdx, labelIdx, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	ds := &Dataset{}
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrData, line, err)
		}

		var rec Record
		for i, col := range featureIdx {
			raw := strings.TrimSpace(row[col])
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: line %d: column %s: non-numeric value %q", ErrData, line, FeatureColumns[i], raw)
			}
			rec.Features[i] = v
		}

		rec.Label = strings.TrimSpace(row[labelIdx])
		if rec.Label == "" {
			return nil, fmt.Errorf("%w: line %d: empty %s", ErrData, line, LabelColumn)
		}
		ds.Records = append(ds.Records, rec)
	}

	if len(ds.Records) == 0 {
		return nil, fmt.Errorf("%w: dataset has no rows", ErrData)
	}
	return ds, nil
}

func resolveColumns(header []string) ([NumFeatures]int, int, error) {
	positions := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := positions[name]; !dup {
			positions[name] = i
		}
	}

	var featureIdx [NumFeatures]int
	var missing []string
	for i, name := range FeatureColumns {
		pos, ok := positions[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		featureIdx[i] = pos
	}
	labelIdx, ok := positions[LabelColumn]
	if !ok {
		missing = append(missing, LabelColumn)
	}

	if len(missing) > 0 {
		return featureIdx, 0, fmt.Errorf("%w: missing required columns: %s", ErrData, strings.Join(missing, ", "))
	}
	return featureIdx, labelIdx, nil
}
