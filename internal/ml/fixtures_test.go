package ml

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// cropProfile is the centre of one synthetic crop cluster, in FeatureColumns order.
type cropProfile struct {
	label  string
	centre [NumFeatures]float64
}

var testProfiles = []cropProfile{
	{"rice", [NumFeatures]float64{80, 48, 40, 23.5, 82, 6.4, 236}},
	{"maize", [NumFeatures]float64{78, 48, 20, 22.4, 65, 6.2, 84}},
	{"chickpea", [NumFeatures]float64{40, 68, 80, 18.9, 17, 7.3, 80}},
	{"coffee", [NumFeatures]float64{101, 29, 30, 25.5, 58, 6.8, 158}},
}

// syntheticRows returns perClass noisy rows around every profile.
func syntheticRows(perClass int, seed int64) [][]string {
	rnd := rand.New(rand.NewSource(seed))
	rows := make([][]string, 0, perClass*len(testProfiles))
	for i := 0; i < perClass; i++ {
		for _, p := range testProfiles {
			row := make([]string, 0, NumFeatures+1)
			for _, c := range p.centre {
				row = append(row, fmt.Sprintf("%.3f", c+rnd.NormFloat64()*c*0.02))
			}
			row = append(row, p.label)
			rows = append(rows, row)
		}
	}
	return rows
}

func csvHeader() []string {
	return append(append([]string{}, FeatureColumns[:]...), LabelColumn)
}

func writeCSV(t *testing.T, dir string, header []string, rows [][]string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString(strings.Join(header, ","))
	b.WriteString("\n")
	for _, r := range rows {
		b.WriteString(strings.Join(r, ","))
		b.WriteString("\n")
	}
	path := filepath.Join(dir, "crop_data.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func syntheticDataset(t *testing.T, perClass int) *Dataset {
	t.Helper()
	var b strings.Builder
	b.WriteString(strings.Join(csvHeader(), ",") + "\n")
	for _, r := range syntheticRows(perClass, 7) {
		b.WriteString(strings.Join(r, ",") + "\n")
	}
	ds, err := ReadDataset(strings.NewReader(b.String()))
	require.NoError(t, err)
	return ds
}

func testLabels() []string {
	out := make([]string, len(testProfiles))
	for i, p := range testProfiles {
		out[i] = p.label
	}
	return out
}

func smallTrainerConfig() TrainerConfig {
	cfg := DefaultTrainerConfig()
	cfg.Forest.NumTrees = 15
	return cfg
}
