package evaluation

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/rs/zerolog/log"
)

// Report file names written by GenerateReport.
const (
	SummaryFile   = "evaluation_summary.txt"
	ClassFile     = "class_report.csv"
	ConfusionFile = "confusion_matrix.csv"
	JSONFile      = "evaluation.json"
)

// Reporter writes evaluation reports
type Reporter struct {
	results    *Results
	outputPath string
}

// NewReporter creates a reporter writing into outputPath.
func NewReporter(results *Results, outputPath string) *Reporter {
	return &Reporter{
		results:    results,
		outputPath: outputPath,
	}
}

// GenerateReport writes every report format
func (r *Reporter) GenerateReport() error {
	if err := os.MkdirAll(r.outputPath, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := r.generateSummary(); err != nil {
		return err
	}
	if err := r.generateClassReport(); err != nil {
		return err
	}
	if err := r.generateConfusionMatrix(); err != nil {
		return err
	}
	return r.generateJSONReport()
}

func (r *Reporter) generateSummary() error {
	summaryPath := filepath.Join(r.outputPath, SummaryFile)
	file, err := os.Create(summaryPath)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	fmt.Fprintf(file, "MODEL EVALUATION SUMMARY\n")
	fmt.Fprintf(file, "========================\n\n")
	if r.results.Model != "" {
		fmt.Fprintf(file, "Model: %s\n", r.results.Model)
	}
	if r.results.Dataset != "" {
		fmt.Fprintf(file, "Dataset: %s\n", r.results.Dataset)
	}
	fmt.Fprintf(file, "Generated: %s\n\n", r.results.GeneratedAt.Format("2006-01-02 15:04:05"))

	fmt.Fprintf(file, "HOLDOUT METRICS\n")
	fmt.Fprintf(file, "---------------\n")
	fmt.Fprintf(file, "Samples: %d\n", r.results.Samples)
	fmt.Fprintf(file, "Correct: %d\n", r.results.Correct)
	fmt.Fprintf(file, "Accuracy: %.2f%%\n", r.results.Accuracy*100)
	fmt.Fprintf(file, "Macro F1: %.4f\n", r.results.MacroF1)

	if weakest := r.weakestClasses(5); len(weakest) > 0 {
		fmt.Fprintf(file, "\nLOWEST RECALL\n")
		fmt.Fprintf(file, "-------------\n")
		for _, s := range weakest {
			fmt.Fprintf(file, "%s: %.2f%% recall over %d rows\n", s.Class, s.Recall*100, s.Support)
		}
	}

	log.Info().Str("file", summaryPath).Msg("Summary report generated")
	return nil
}

func (r *Reporter) generateClassReport() error {
	csvPath := filepath.Join(r.outputPath, ClassFile)
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create class report: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"class", "support", "predicted", "correct", "precision", "recall", "f1"}); err != nil {
		return err
	}
	for _, s := range r.results.Classes {
		record := []string{
			s.Class,
			strconv.Itoa(s.Support),
			strconv.Itoa(s.Predicted),
			strconv.Itoa(s.Correct),
			fmt.Sprintf("%.4f", s.Precision),
			fmt.Sprintf("%.4f", s.Recall),
			fmt.Sprintf("%.4f", s.F1),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}

	log.Info().Str("file", csvPath).Msg("Class report generated")
	return nil
}

func (r *Reporter) generateConfusionMatrix() error {
	csvPath := filepath.Join(r.outputPath, ConfusionFile)
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create confusion matrix: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	header := []string{"actual\\predicted"}
	for _, s := range r.results.Classes {
		header = append(header, s.Class)
	}
	if err := writer.Write(header); err != nil {
		return err
	}
	for i, row := range r.results.Confusion {
		record := []string{r.results.Classes[i].Class}
		for _, n := range row {
			record = append(record, strconv.Itoa(n))
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}

	log.Info().Str("file", csvPath).Msg("Confusion matrix generated")
	return nil
}

func (r *Reporter) generateJSONReport() error {
	jsonPath := filepath.Join(r.outputPath, JSONFile)

	data, err := json.MarshalIndent(r.results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	if err := os.WriteFile(jsonPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write JSON report: %w", err)
	}

	log.Info().Str("file", jsonPath).Msg("JSON report generated")
	return nil
}

// weakestClasses returns up to n classes with holdout rows, lowest recall first.
func (r *Reporter) weakestClasses(n int) []ClassStats {
	var present []ClassStats
	for _, s := range r.results.Classes {
		if s.Support > 0 {
			present = append(present, s)
		}
	}
	sort.SliceStable(present, func(i, j int) bool { return present[i].Recall < present[j].Recall })
	if len(present) > n {
		present = present[:n]
	}
	return present
}

// PrintSummary prints a short summary to w
func (r *Reporter) PrintSummary(w io.Writer) {
	fmt.Fprintln(w, "\n=== EVALUATION RESULTS ===")
	if r.results.Model != "" {
		fmt.Fprintf(w, "Model: %s\n", r.results.Model)
	}
	fmt.Fprintf(w, "Holdout Samples: %d\n", r.results.Samples)
	fmt.Fprintf(w, "Accuracy: %.2f%%\n", r.results.Accuracy*100)
	fmt.Fprintf(w, "Macro F1: %.4f\n", r.results.MacroF1)
	fmt.Fprintln(w, "==========================")
}
