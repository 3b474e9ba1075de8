// Package storage provides persistent storage for feature importance runs.
// It uses BoltDB as the underlying storage engine to keep completed run
// records and dataset snapshots, so rankings can be compared across runs.
//
// Run records are keyed by method and start time, which makes time-range
// queries per method a single cursor scan.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"featimp/internal/importance"

	"github.com/klauspost/compress/zstd"
	"go.etcd.io/bbolt"
)

const (
	runsBucket     = "runs"     // Bucket name for importance run records
	datasetsBucket = "datasets" // Bucket name for compressed dataset snapshots
)

// Store provides persistent storage for importance runs using BoltDB.
type Store struct {
	db      *bbolt.DB     // BoltDB database instance
	encoder *zstd.Encoder // Dataset snapshot compressor
	decoder *zstd.Decoder // Dataset snapshot decompressor
}

// New creates a new storage instance with the specified data path.
// It initializes the BoltDB database and creates necessary buckets.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, "featimp.db")

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(runsBucket)); err != nil {
			return fmt.Errorf("create runs bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(datasetsBucket)); err != nil {
			return fmt.Errorf("create datasets bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		db.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &Store{db: db, encoder: encoder, decoder: decoder}, nil
}

// Close closes the database connection gracefully.
func (s *Store) Close() error {
	if s.decoder != nil {
		s.decoder.Close()
		s.decoder = nil
	}
	if s.encoder != nil {
		s.encoder.Close()
		s.encoder = nil
	}
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

func runKey(method string, ts time.Time) []byte {
	return []byte(fmt.Sprintf("%s_%020d", method, ts.UnixNano()))
}

// SaveRun stores a completed run under "method_timestamp".
func (s *Store) SaveRun(res *importance.Result) error {
	if res == nil || res.Importance == nil {
		return fmt.Errorf("refusing to store a run without an importance report")
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(runsBucket))

		data, err := json.Marshal(res)
		if err != nil {
			return fmt.Errorf("marshal run: %w", err)
		}
		return b.Put(runKey(res.Method, res.StartedAt), data)
	})
}

// GetRuns retrieves the runs of a method started within [start, end],
// ordered by start time.
func (s *Store) GetRuns(method string, start, end time.Time) ([]importance.Result, error) {
	var runs []importance.Result

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(runsBucket)).Cursor()

		prefix := []byte(method + "_")
		endKey := runKey(method, end)
		for k, v := c.Seek(runKey(method, start)); k != nil && bytes.Compare(k, endKey) <= 0; k, v = c.Next() {
			if !bytes.HasPrefix(k, prefix) {
				continue
			}
			var res importance.Result
			if err := json.Unmarshal(v, &res); err != nil {
				return fmt.Errorf("unmarshal run %s: %w", k, err)
			}
			runs = append(runs, res)
		}
		return nil
	})

	return runs, err
}

// LatestRun returns the most recent run of a method.
func (s *Store) LatestRun(method string) (*importance.Result, error) {
	var res *importance.Result

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(runsBucket)).Cursor()
		prefix := []byte(method + "_")

		// Seek past the last possible key of the method, then step back.
		k, v := c.Seek([]byte(method + "`"))
		if k == nil {
			k, v = c.Last()
		} else {
			k, v = c.Prev()
		}
		if k == nil || !bytes.HasPrefix(k, prefix) {
			return nil
		}
		res = &importance.Result{}
		return json.Unmarshal(v, res)
	})
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("no runs stored for method %s", method)
	}
	return res, nil
}
