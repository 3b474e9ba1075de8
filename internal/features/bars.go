// Package features turns price bars into a labelled dataset for importance
// analysis: rolling microstructure features per bar, a forward-return label
// and the span over which that label was determined.
package features

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// Bar is one observation of the traded price. Bid and ask volumes are the
// resting depth at the bar close and may be zero when unknown.
type Bar struct {
	Time      time.Time
	Price     float64
	Volume    float64
	BidVolume float64
	AskVolume float64
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05"}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// LoadCSV reads bars from a CSV file with a header row. The timestamp and
// price columns are required; volume, bid_volume and ask_volume are optional.
// Rows that fail to parse are skipped. Bars are returned in time order.
func LoadCSV(path string) ([]Bar, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	bars, skipped, err := ReadCSV(file)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("file", path).
		Int("bars", len(bars)).
		Int("skipped", skipped).
		Msg("CSV bars loaded")
	return bars, nil
}

// ReadCSV parses bars from r. It returns the bars and the number of skipped
// rows.
func ReadCSV(r io.Reader) ([]Bar, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read CSV header: %w", err)
	}

	indices := make(map[string]int)
	for i, col := range header {
		indices[col] = i
	}
	for _, col := range []string{"timestamp", "price"} {
		if _, ok := indices[col]; !ok {
			return nil, 0, fmt.Errorf("CSV header lacks %q column", col)
		}
	}

	optional := func(record []string, col string) float64 {
		idx, ok := indices[col]
		if !ok || idx >= len(record) {
			return 0
		}
		v, err := strconv.ParseFloat(record[idx], 64)
		if err != nil {
			return 0
		}
		return v
	}

	var bars []Bar
	skipped := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("failed to read CSV record: %w", err)
		}
		if len(record) <= indices["timestamp"] || len(record) <= indices["price"] {
			skipped++
			continue
		}

		ts, err := parseTime(record[indices["timestamp"]])
		if err != nil {
			skipped++
			continue
		}
		price, err := strconv.ParseFloat(record[indices["price"]], 64)
		if err != nil || price <= 0 {
			skipped++
			continue
		}

		bars = append(bars, Bar{
			Time:      ts,
			Price:     price,
			Volume:    optional(record, "volume"),
			BidVolume: optional(record, "bid_volume"),
			AskVolume: optional(record, "ask_volume"),
		})
	}

	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Time.Before(bars[j].Time)
	})
	return bars, skipped, nil
}
