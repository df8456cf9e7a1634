package ml

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Artifact file names inside the model directory.
const (
	ImprovedModelFile   = "crop_model_improved.json"
	ImprovedEncoderFile = "label_encoder_improved.json"
	BaselineModelFile   = "crop_model.json"
	BaselineEncoderFile = "label_encoder.json"
)

// Candidate variant names.
const (
	VariantImproved = "improved"
	VariantBaseline = "baseline"
)

const (
	classifierKind = "random_forest/v1"
	encoderKind    = "label_encoder/v1"
)

// Candidate names one classifier/encoder pair on disk. The two files are only
// valid together.
type Candidate struct {
	Name        string
	ModelPath   string
	EncoderPath string
}

// MetadataPath returns the sidecar file written next to the classifier.
func (c Candidate) MetadataPath() string {
	return strings.TrimSuffix(c.ModelPath, filepath.Ext(c.ModelPath)) + ".meta.json"
}

// DefaultCandidates lists the recognized pairs in dir, most preferred first.
func DefaultCandidates(dir string) []Candidate {
	improved, _ := CandidateFor(dir, VariantImproved)
	baseline, _ := CandidateFor(dir, VariantBaseline)
	return []Candidate{improved, baseline}
}

// CandidateFor returns the pair descriptor for a named variant.
func CandidateFor(dir, variant string) (Candidate, error) {
	switch variant {
	case VariantImproved:
		return Candidate{
			Name:        VariantImproved,
			ModelPath:   filepath.Join(dir, ImprovedModelFile),
			EncoderPath: filepath.Join(dir, ImprovedEncoderFile),
		}, nil
	case VariantBaseline:
		return Candidate{
			Name:        VariantBaseline,
			ModelPath:   filepath.Join(dir, BaselineModelFile),
			EncoderPath: filepath.Join(dir, BaselineEncoderFile),
		}, nil
	default:
		return Candidate{}, fmt.Errorf("unknown model variant %q (want %s or %s)", variant, VariantImproved, VariantBaseline)
	}
}

// ResolveCandidate returns the first candidate whose classifier and encoder
// both exist according to exists. It touches nothing but the predicate.
func ResolveCandidate(candidates []Candidate, exists func(path string) bool) (Candidate, error) {
	for _, c := range candidates {
		if exists(c.ModelPath) && exists(c.EncoderPath) {
			return c, nil
		}
	}

	tried := make([]string, 0, len(candidates))
	for _, c := range candidates {
		tried = append(tried, fmt.Sprintf("(%s, %s)", c.ModelPath, c.EncoderPath))
	}
	return Candidate{}, fmt.Errorf("%w: no complete model and label encoder pair among %s", ErrMissingArtifact, strings.Join(tried, ", "))
}

// FileExists reports whether path names a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

type classifierDocument struct {
	Kind     string        `json:"kind"`
	Features []string      `json:"features"`
	Forest   *RandomForest `json:"forest"`
}

type encoderDocument struct {
	Kind    string   `json:"kind"`
	Classes []string `json:"classes"`
}

// SaveArtifacts writes the classifier and encoder of c, replacing any
// previous pair. Both files are staged next to their targets and renamed
// only once both have been written; if the encoder cannot be placed the
// previous classifier is restored.
func SaveArtifacts(c Candidate, forest *RandomForest, encoder *LabelEncoder) error {
	if forest == nil || encoder == nil {
		return fmt.Errorf("%w: nothing to save", ErrIO)
	}
	if forest.NumClasses != encoder.Len() {
		return fmt.Errorf("%w: classifier has %d classes but encoder has %d", ErrIO, forest.NumClasses, encoder.Len())
	}

	model, err := json.Marshal(classifierDocument{
		Kind:     classifierKind,
		Features: FeatureColumns[:],
		Forest:   forest,
	})
	if err != nil {
		return fmt.Errorf("%w: encode classifier: %v", ErrIO, err)
	}
	enc, err := json.MarshalIndent(encoderDocument{
		Kind:    encoderKind,
		Classes: encoder.Classes(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode label encoder: %v", ErrIO, err)
	}

	modelTmp, err := stageFile(c.ModelPath, model)
	if err != nil {
		return err
	}
	encTmp, err := stageFile(c.EncoderPath, enc)
	if err != nil {
		os.Remove(modelTmp)
		return err
	}

	// The previous classifier is kept aside until the encoder lands so a
	// failed swap never pairs a new classifier with an old encoder.
	backup := c.ModelPath + ".bak"
	hadModel := FileExists(c.ModelPath)
	if hadModel {
		if err := os.Rename(c.ModelPath, backup); err != nil {
			os.Remove(modelTmp)
			os.Remove(encTmp)
			return fmt.Errorf("%w: set aside previous classifier: %v", ErrIO, err)
		}
	}
	restore := func() {
		os.Remove(c.ModelPath)
		if hadModel {
			os.Rename(backup, c.ModelPath)
		}
	}

	if err := os.Rename(modelTmp, c.ModelPath); err != nil {
		os.Remove(modelTmp)
		os.Remove(encTmp)
		restore()
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	if err := os.Rename(encTmp, c.EncoderPath); err != nil {
		os.Remove(encTmp)
		restore()
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	if hadModel {
		os.Remove(backup)
	}
	return nil
}

func stageFile(target string, data []byte) (string, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("%w: create output directory: %v", ErrIO, err)
	}
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("%w: write %s: %v", ErrIO, target, err)
	}
	return tmp, nil
}

// LoadArtifacts reads and cross-checks the pair named by c.
func LoadArtifacts(c Candidate) (*RandomForest, *LabelEncoder, error) {
	var model classifierDocument
	if err := readJSON(c.ModelPath, &model); err != nil {
		return nil, nil, err
	}
	if model.Kind != classifierKind || model.Forest == nil {
		return nil, nil, fmt.Errorf("%w: %s is not a %s classifier", ErrIO, c.ModelPath, classifierKind)
	}
	if model.Forest.NumFeatures != NumFeatures {
		return nil, nil, fmt.Errorf("%w: %s expects %d features, want %d", ErrIO, c.ModelPath, model.Forest.NumFeatures, NumFeatures)
	}
	if err := model.Forest.Validate(); err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrIO, c.ModelPath, err)
	}

	var doc encoderDocument
	if err := readJSON(c.EncoderPath, &doc); err != nil {
		return nil, nil, err
	}
	if doc.Kind != encoderKind {
		return nil, nil, fmt.Errorf("%w: %s is not a %s document", ErrIO, c.EncoderPath, encoderKind)
	}
	encoder, err := NewLabelEncoder(doc.Classes)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrIO, c.EncoderPath, err)
	}

	if model.Forest.NumClasses != encoder.Len() {
		return nil, nil, fmt.Errorf("%w: artifact pair mismatch: classifier has %d classes, encoder has %d",
			ErrIO, model.Forest.NumClasses, encoder.Len())
	}
	return model.Forest, encoder, nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrIO, path, err)
	}
	return nil
}
