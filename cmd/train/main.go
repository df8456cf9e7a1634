package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"cropsense/internal/common"
	"cropsense/internal/evaluation"
	"cropsense/internal/ml"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type options struct {
	dataPath  string
	outDir    string
	variant   string
	reportDir string
	logLevel  string
	config    ml.TrainerConfig
}

// parseFlags reads the command line. A plain run writes the baseline pair;
// the improved pair, which the server prefers, is opt-in.
func parseFlags(args []string) (*options, error) {
	o := &options{config: ml.DefaultTrainerConfig()}
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	fs.StringVar(&o.dataPath, "data", common.DefaultDatasetPath, "Path to the labeled crop CSV")
	fs.StringVar(&o.outDir, "out", common.DefaultModelDir, "Directory for the model and encoder files")
	fs.StringVar(&o.variant, "variant", ml.VariantBaseline, "Artifact pair to write: baseline or improved")
	fs.IntVar(&o.config.Forest.NumTrees, "trees", o.config.Forest.NumTrees, "Number of trees in the forest")
	fs.IntVar(&o.config.Forest.MaxDepth, "max-depth", o.config.Forest.MaxDepth, "Maximum tree depth, 0 for unlimited")
	fs.Int64Var(&o.config.Forest.Seed, "seed", o.config.Forest.Seed, "Random seed for the split and the forest")
	fs.Float64Var(&o.config.TestSize, "test-size", o.config.TestSize, "Fraction of rows held out for scoring")
	fs.StringVar(&o.reportDir, "report", "", "Directory for evaluation reports (empty to skip)")
	fs.StringVar(&o.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return o, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		os.Exit(2)
	}

	level, err := zerolog.ParseLevel(opts.logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	target, err := ml.CandidateFor(opts.outDir, opts.variant)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid variant")
	}
	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", opts.outDir).Msg("Failed to create model directory")
	}

	cfg := opts.config
	fmt.Println("=== Training Configuration ===")
	fmt.Printf("Dataset: %s\n", opts.dataPath)
	fmt.Printf("Model: %s\n", target.ModelPath)
	fmt.Printf("Encoder: %s\n", target.EncoderPath)
	fmt.Printf("Trees: %d  Seed: %d  Test Size: %.2f\n", cfg.Forest.NumTrees, cfg.Forest.Seed, cfg.TestSize)
	fmt.Println("==============================")

	result, err := ml.TrainFromFile(opts.dataPath, target, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Training failed")
	}

	fmt.Printf("Model Accuracy: %.2f%%\n", result.Accuracy*100)
	fmt.Println("Permutation Importance:")
	for _, s := range result.Importance {
		fmt.Printf("  %-12s %+.4f\n", s.Name, s.Importance)
	}

	if opts.reportDir != "" {
		writeReport(result, target, opts.dataPath, opts.reportDir)
	}

	log.Info().
		Str("variant", target.Name).
		Str("model", target.ModelPath).
		Msg("Training completed successfully")
}

// writeReport is best effort: the artifacts are already saved.
func writeReport(result *ml.TrainingResult, target ml.Candidate, dataset, dir string) {
	results, err := evaluation.Evaluate(result.Encoder.Classes(), result.HoldoutTruth, result.HoldoutPredicted)
	if err != nil {
		log.Error().Err(err).Msg("Failed to evaluate holdout")
		return
	}
	results.Model = target.ModelPath
	results.Dataset = dataset

	reporter := evaluation.NewReporter(results, dir)
	if err := reporter.GenerateReport(); err != nil {
		log.Error().Err(err).Msg("Failed to generate reports")
		return
	}
	reporter.PrintSummary(os.Stdout)
}
