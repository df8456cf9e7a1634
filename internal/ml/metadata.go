package ml

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// ModelMetadata describes a training run. It lives in a sidecar file next
// to the classifier and is informational only.
type ModelMetadata struct {
	Version         string    `json:"version"`
	TrainedAt       time.Time `json:"trained_at"`
	Dataset         string    `json:"dataset,omitempty"`
	Features        []string  `json:"features"`
	Classes         []string  `json:"classes"`
	HoldoutAccuracy float64   `json:"holdout_accuracy"`
	TrainingRows    int       `json:"training_rows"`
	HoldoutRows     int       `json:"holdout_rows"`
	NumTrees        int       `json:"num_trees"`
	Seed            int64     `json:"seed"`

	FeatureImportance []FeatureScore `json:"feature_importance,omitempty"`
}

// SaveMetadata writes md as indented JSON.
func SaveMetadata(path string, md ModelMetadata) error {
	data, err := json.MarshalIndent(md, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode metadata: %v", ErrIO, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: write metadata: %v", ErrIO, err)
	}
	return nil
}

func loadModelMetadata(path string) (*ModelMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var md ModelMetadata
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("decode metadata %s: %w", path, err)
	}
	return &md, nil
}
