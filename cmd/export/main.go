package main

import (
	"flag"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"cropsense/internal/common"
	"cropsense/internal/storage"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	var (
		dataPath   = flag.String("data", os.Getenv(common.EnvDataPath), "Prediction history directory (defaults to DATA_PATH)")
		outputPath = flag.String("output", "", "Output file path (empty for stdout)")
		format     = flag.String("format", storage.FormatJSONL, "Output format: jsonl or csv")
		days       = flag.Int("days", 30, "Number of days to export (0 for all)")
		crop       = flag.String("crop", "", "Only export recommendations of this crop")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if *dataPath == "" {
		log.Fatal().Msg("no data path: pass -data or set DATA_PATH")
	}

	// The server holds the database lock while running.
	store, err := storage.New(*dataPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open prediction history")
	}
	defer store.Close()

	end := time.Now().UTC()
	start := time.Unix(0, 0).UTC()
	if *days > 0 {
		start = end.AddDate(0, 0, -*days)
	}

	records, err := store.PredictionsInRange(start, end)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read prediction history")
	}
	if *crop != "" {
		records = filterCrop(records, *crop)
	}

	var out io.Writer = os.Stdout
	if *outputPath != "" {
		f, err := os.Create(*outputPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create output file")
		}
		defer f.Close()
		out = f
	}

	if err := storage.ExportPredictions(out, *format, records); err != nil {
		log.Fatal().Err(err).Msg("Export failed")
	}

	logSummary(records)
}

func filterCrop(records []storage.PredictionRecord, crop string) []storage.PredictionRecord {
	var kept []storage.PredictionRecord
	for _, r := range records {
		if strings.EqualFold(r.Crop, crop) {
			kept = append(kept, r)
		}
	}
	return kept
}

func logSummary(records []storage.PredictionRecord) {
	if len(records) == 0 {
		log.Warn().Msg("No records found matching criteria")
		return
	}

	counts := make(map[string]int)
	for _, r := range records {
		counts[r.Crop]++
	}
	crops := make([]string, 0, len(counts))
	for c := range counts {
		crops = append(crops, c)
	}
	sort.Strings(crops)

	ev := log.Info().
		Int("records", len(records)).
		Time("from", records[0].Timestamp).
		Time("to", records[len(records)-1].Timestamp)
	for _, c := range crops {
		ev = ev.Int("crop_"+c, counts[c])
	}
	ev.Msg("Export completed")
}
