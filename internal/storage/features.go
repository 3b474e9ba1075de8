package storage

import (
	"encoding/json"
	"fmt"

	"featimp/internal/dataset"

	"go.etcd.io/bbolt"
)

// DatasetRecord is the serialized form of a feature matrix and its events.
type DatasetRecord struct {
	Features []string       `json:"features"`
	Rows     [][]float64    `json:"rows"`
	Events   dataset.Events `json:"events"`
}

// StoreDataset stores a zstd-compressed snapshot of X and ev under name,
// replacing any previous snapshot with that name.
func (s *Store) StoreDataset(name string, X *dataset.Matrix, ev *dataset.Events) error {
	if err := ev.Validate(X); err != nil {
		return err
	}

	n, f := X.Dims()
	rec := DatasetRecord{Features: X.Names(), Rows: make([][]float64, n), Events: *ev}
	for i := range rec.Rows {
		row := make([]float64, f)
		for j := range row {
			row[j] = X.At(i, j)
		}
		rec.Rows[i] = row
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal dataset: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(datasetsBucket))
		return b.Put([]byte(name), s.encoder.EncodeAll(data, nil))
	})
}

// LoadDataset restores the snapshot stored under name.
func (s *Store) LoadDataset(name string) (*dataset.Matrix, *dataset.Events, error) {
	var raw []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(datasetsBucket)).Get([]byte(name))
		if v == nil {
			return fmt.Errorf("dataset %q not found", name)
		}
		raw = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	data, err := s.decoder.DecodeAll(raw, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("decompress dataset: %w", err)
	}

	var rec DatasetRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, nil, fmt.Errorf("unmarshal dataset: %w", err)
	}

	X, err := dataset.NewMatrix(rec.Features, rec.Rows)
	if err != nil {
		return nil, nil, err
	}
	if err := rec.Events.Validate(X); err != nil {
		return nil, nil, err
	}
	return X, &rec.Events, nil
}

// ListDatasets returns the names of all stored snapshots.
func (s *Store) ListDatasets() ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(datasetsBucket)).ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	return names, err
}
