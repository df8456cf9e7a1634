package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"
)

// Export formats accepted by ExportPredictions.
const (
	FormatJSONL = "jsonl"
	FormatCSV   = "csv"
)

var csvHeader = []string{
	"id", "timestamp", "location", "crop_choice", "soil", "acres",
	"N", "P", "K", "temperature", "humidity", "ph", "rainfall",
	"crop", "yield_tons", "risk", "weather_source", "model",
}

// ExportPredictions writes records as newline-delimited JSON or CSV.
func ExportPredictions(w io.Writer, format string, records []PredictionRecord) error {
	switch format {
	case FormatJSONL:
		enc := json.NewEncoder(w)
		for _, r := range records {
			if err := enc.Encode(r); err != nil {
				return fmt.Errorf("write json record: %w", err)
			}
		}
		return nil
	case FormatCSV:
		return exportCSV(w, records)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

func exportCSV(w io.Writer, records []PredictionRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := make([]string, 0, len(csvHeader))
		row = append(row, r.ID, r.Timestamp.Format(time.RFC3339), r.Location, r.CropChoice, r.Soil, formatFloat(r.Acres))
		// Seven feature columns, blank when the record predates them.
		for i := 0; i < 7; i++ {
			if i < len(r.Features) {
				row = append(row, formatFloat(r.Features[i]))
			} else {
				row = append(row, "")
			}
		}
		row = append(row, r.Crop, formatFloat(r.YieldTons), r.Risk, r.WeatherSource, r.Model)
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
