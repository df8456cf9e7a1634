package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

// PredictionRecord is one served recommendation.
type PredictionRecord struct {
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	Location      string    `json:"location"`
	CropChoice    string    `json:"crop_choice"`
	Soil          string    `json:"soil"`
	Acres         float64   `json:"acres"`
	Features      []float64 `json:"features"`
	Crop          string    `json:"crop"`
	YieldTons     float64   `json:"yield_tons"`
	Risk          string    `json:"risk"`
	WeatherSource string    `json:"weather_source"`
	Model         string    `json:"model"`
}

// StorePrediction stores a record in the predictions bucket, assigning an ID
// and timestamp when they are unset, and returns the stored record.
func (s *Store) StorePrediction(record PredictionRecord) (PredictionRecord, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(predictionsBucket))

		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal prediction record: %w", err)
		}

		return b.Put(recordKey(record.Timestamp, record.ID), data)
	})
	if err != nil {
		return PredictionRecord{}, err
	}
	return record, nil
}

// RecentPredictions returns up to limit records, newest first.
func (s *Store) RecentPredictions(limit int) ([]PredictionRecord, error) {
	if limit <= 0 {
		return []PredictionRecord{}, nil
	}

	records := make([]PredictionRecord, 0, limit)
	err := s.scanNewest(predictionsBucket, func(v []byte) bool {
		var r PredictionRecord
		if err := json.Unmarshal(v, &r); err != nil {
			return true // Skip malformed records
		}
		records = append(records, r)
		return len(records) < limit
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// PredictionsInRange returns the records stored between start and end,
// inclusive, oldest first.
func (s *Store) PredictionsInRange(start, end time.Time) ([]PredictionRecord, error) {
	var records []PredictionRecord
	err := s.scanRange(predictionsBucket, start, end, func(v []byte) bool {
		var r PredictionRecord
		if err := json.Unmarshal(v, &r); err != nil {
			return true // Skip malformed records
		}
		records = append(records, r)
		return true
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// CountPredictions returns the number of stored records.
func (s *Store) CountPredictions() (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket([]byte(predictionsBucket)).Stats().KeyN
		return nil
	})
	return n, err
}
