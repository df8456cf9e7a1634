package ml

import (
	"fmt"
	"sort"
)

// LabelEncoder maps crop names to contiguous integer codes. Classes are kept
// sorted, so the code of a label depends only on the label set.
type LabelEncoder struct {
	classes []string
	index   map[string]int
}

// FitLabelEncoder builds an encoder over the distinct labels.
func FitLabelEncoder(labels []string) (*LabelEncoder, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("%w: no labels to encode", ErrData)
	}

	seen := make(map[string]struct{})
	classes := make([]string, 0)
	for _, l := range labels {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		classes = append(classes, l)
	}
	sort.Strings(classes)

	return newLabelEncoder(classes), nil
}

// NewLabelEncoder restores an encoder from its class list. The list must be
// strictly increasing, which is what FitLabelEncoder produces.
func NewLabelEncoder(classes []string) (*LabelEncoder, error) {
	if len(classes) == 0 {
		return nil, fmt.Errorf("label encoder has no classes")
	}
	for i := 1; i < len(classes); i++ {
		if classes[i-1] >= classes[i] {
			return nil, fmt.Errorf("label encoder classes not sorted or not unique at %d (%q, %q)", i, classes[i-1], classes[i])
		}
	}
	c := make([]string, len(classes))
	copy(c, classes)
	return newLabelEncoder(c), nil
}

func newLabelEncoder(classes []string) *LabelEncoder {
	index := make(map[string]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	return &LabelEncoder{classes: classes, index: index}
}

// Len returns the number of classes.
func (e *LabelEncoder) Len() int {
	return len(e.classes)
}

// Classes returns a copy of the class list, ordered by code.
func (e *LabelEncoder) Classes() []string {
	out := make([]string, len(e.classes))
	copy(out, e.classes)
	return out
}

// Encode returns the code for a label seen during fitting.
func (e *LabelEncoder) Encode(label string) (int, error) {
	code, ok := e.index[label]
	if !ok {
		return 0, fmt.Errorf("unknown label %q", label)
	}
	return code, nil
}

// EncodeAll encodes every label, failing on the first unknown one.
func (e *LabelEncoder) EncodeAll(labels []string) ([]int, error) {
	out := make([]int, len(labels))
	for i, l := range labels {
		code, err := e.Encode(l)
		if err != nil {
			return nil, err
		}
		out[i] = code
	}
	return out, nil
}

// Decode returns the label for a code.
func (e *LabelEncoder) Decode(code int) (string, error) {
	if code < 0 || code >= len(e.classes) {
		return "", fmt.Errorf("unknown class code %d", code)
	}
	return e.classes[code], nil
}
