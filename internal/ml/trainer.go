package ml

import (
	"fmt"
	"time"

	"cropsense/internal/common"

	"github.com/rs/zerolog/log"
)

// TrainerConfig controls a training run.
type TrainerConfig struct {
	Forest   ForestConfig
	TestSize float64
}

// DefaultTrainerConfig holds out 20% of the rows and trains the default forest.
func DefaultTrainerConfig() TrainerConfig {
	return TrainerConfig{
		Forest:   DefaultForestConfig(),
		TestSize: common.DefaultTestSize,
	}
}

// TrainingResult carries the fitted pair and its holdout diagnostics.
type TrainingResult struct {
	Forest      *RandomForest
	Encoder     *LabelEncoder
	Accuracy    float64
	TrainRows   int
	HoldoutRows int

	// Encoded holdout labels and the forest's votes for them, index aligned.
	HoldoutTruth     []int
	HoldoutPredicted []int

	Importance []FeatureScore
}

// Train fits the label encoder on every label, splits the rows, fits the
// forest on the training partition and scores it on the holdout.
func Train(ds *Dataset, cfg TrainerConfig) (*TrainingResult, error) {
	if ds == nil || ds.Len() == 0 {
		return nil, fmt.Errorf("%w: dataset has no rows", ErrData)
	}

	labels := ds.Labels()
	encoder, err := FitLabelEncoder(labels)
	if err != nil {
		return nil, err
	}
	y, err := encoder.EncodeAll(labels)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrData, err)
	}

	trainIdx, testIdx, err := TrainTestSplit(ds.Len(), cfg.TestSize, cfg.Forest.Seed)
	if err != nil {
		return nil, err
	}

	x := ds.Matrix()
	trainX, trainY := gather(x, y, trainIdx)
	testX, testY := gather(x, y, testIdx)

	start := time.Now()
	forest, err := FitRandomForest(trainX, trainY, encoder.Len(), cfg.Forest)
	if err != nil {
		return nil, err
	}

	predicted := make([]int, len(testX))
	for i, row := range testX {
		predicted[i] = forest.Predict(row)
	}
	accuracy := Accuracy(testY, predicted)

	log.Info().
		Int("train_rows", len(trainX)).
		Int("holdout_rows", len(testX)).
		Int("classes", encoder.Len()).
		Int("trees", len(forest.Trees)).
		Dur("elapsed", time.Since(start)).
		Float64("accuracy", accuracy).
		Msg("model trained")

	return &TrainingResult{
		Forest:      forest,
		Encoder:     encoder,
		Accuracy:    accuracy,
		TrainRows:   len(trainX),
		HoldoutRows: len(testX),

		HoldoutTruth:     testY,
		HoldoutPredicted: predicted,

		Importance: PermutationImportance(forest, testX, testY, cfg.Forest.Seed),
	}, nil
}

// Metadata summarizes the run for the sidecar file.
func (r *TrainingResult) Metadata(version, dataset string, cfg TrainerConfig) ModelMetadata {
	return ModelMetadata{
		Version:         version,
		TrainedAt:       time.Now().UTC(),
		Dataset:         dataset,
		Features:        FeatureColumns[:],
		Classes:         r.Encoder.Classes(),
		HoldoutAccuracy: r.Accuracy,
		TrainingRows:    r.TrainRows,
		HoldoutRows:     r.HoldoutRows,
		NumTrees:        len(r.Forest.Trees),
		Seed:            cfg.Forest.Seed,

		FeatureImportance: r.Importance,
	}
}

// TrainFromFile loads the dataset at datasetPath, trains, and writes the
// pair named by target along with its metadata sidecar. Nothing is written
// unless the dataset loads and trains cleanly.
func TrainFromFile(datasetPath string, target Candidate, cfg TrainerConfig) (*TrainingResult, error) {
	ds, err := LoadDataset(datasetPath)
	if err != nil {
		return nil, err
	}

	result, err := Train(ds, cfg)
	if err != nil {
		return nil, err
	}

	if err := SaveArtifacts(target, result.Forest, result.Encoder); err != nil {
		return nil, err
	}
	if err := SaveMetadata(target.MetadataPath(), result.Metadata(target.Name, datasetPath, cfg)); err != nil {
		log.Warn().Err(err).Str("path", target.MetadataPath()).Msg("failed to write model metadata")
	}

	log.Info().
		Str("model", target.ModelPath).
		Str("encoder", target.EncoderPath).
		Msg("model and encoder saved")
	return result, nil
}

func gather(x [][]float64, y []int, idx []int) ([][]float64, []int) {
	gx := make([][]float64, len(idx))
	gy := make([]int, len(idx))
	for i, j := range idx {
		gx[i] = x[j]
		gy[i] = y[j]
	}
	return gx, gy
}
