// Package storage provides persistent prediction history for the crop advisor.
// It uses BoltDB as the underlying storage engine and keys every record by
// its timestamp so cursor order is chronological.
//
// The package provides thread-safe operations for storing and retrieving
// time-series records with efficient range queries and automatic bucket management.
package storage

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const (
	// DatabaseFile is the BoltDB file created under the data path.
	DatabaseFile = "cropsense.db"

	predictionsBucket = "predictions" // Bucket name for storing served recommendations
)

// Store provides persistent storage for prediction history using BoltDB.
type Store struct {
	db *bbolt.DB // BoltDB database instance
}

// New creates a new storage instance with the specified data path.
// It creates the directory if needed, opens the database and creates the buckets.
func New(dataPath string) (*Store, error) {
	if err := os.MkdirAll(dataPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	dbPath := filepath.Join(dataPath, DatabaseFile)

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(predictionsBucket)); err != nil {
			return fmt.Errorf("create predictions bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection gracefully.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// timeKey is the zero-padded nanosecond prefix shared by every key written at t.
func timeKey(t time.Time) []byte {
	return []byte(fmt.Sprintf("%020d", t.UnixNano()))
}

func recordKey(t time.Time, id string) []byte {
	return []byte(fmt.Sprintf("%s_%s", timeKey(t), id))
}

// scanRange walks keys from start to end inclusive in chronological order,
// calling fn for each value until it returns false.
func (s *Store) scanRange(bucketName string, start, end time.Time, fn func(v []byte) bool) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		c := b.Cursor()

		startKey := timeKey(start)
		// '~' sorts after every character of the id suffix
		endKey := append(timeKey(end), []byte("_~")...)

		for k, v := c.Seek(startKey); k != nil && bytes.Compare(k, endKey) <= 0; k, v = c.Next() {
			if !fn(v) {
				break
			}
		}
		return nil
	})
}

// scanNewest walks keys from the most recent backwards until fn returns false.
func (s *Store) scanNewest(bucketName string, fn func(v []byte) bool) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(bucketName)).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if !fn(v) {
				break
			}
		}
		return nil
	})
}
