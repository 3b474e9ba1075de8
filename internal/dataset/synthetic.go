package dataset

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// SyntheticConfig describes a generated bar dataset with a known answer:
// informative columns carry the label, noise columns carry nothing.
type SyntheticConfig struct {
	Samples     int
	Informative int
	Noise       int
	// Sigma is the gaussian noise added to informative columns. Zero copies
	// the label exactly.
	Sigma    float64
	Interval time.Duration
	// Horizon is the number of bars each label looks ahead.
	Horizon int
	Start   time.Time
	Seed    uint64
}

// Synthetic generates a dataset per cfg. Labels are drawn from {-1, 1};
// informative features are named I0.., noise features N0...
func Synthetic(cfg SyntheticConfig) (*Matrix, *Events, error) {
	if cfg.Samples <= 0 || cfg.Informative+cfg.Noise <= 0 {
		return nil, nil, fmt.Errorf("synthetic dataset needs samples and features")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Start.IsZero() {
		cfg.Start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))

	names := make([]string, 0, cfg.Informative+cfg.Noise)
	for i := 0; i < cfg.Informative; i++ {
		names = append(names, fmt.Sprintf("I%d", i))
	}
	for i := 0; i < cfg.Noise; i++ {
		names = append(names, fmt.Sprintf("N%d", i))
	}

	rows := make([][]float64, cfg.Samples)
	ev := &Events{
		Labels: make([]float64, cfg.Samples),
		Spans:  make([]Span, cfg.Samples),
	}
	for i := range rows {
		label := -1.0
		if rng.Float64() < 0.5 {
			label = 1.0
		}
		row := make([]float64, 0, len(names))
		for k := 0; k < cfg.Informative; k++ {
			row = append(row, label+cfg.Sigma*rng.NormFloat64())
		}
		for k := 0; k < cfg.Noise; k++ {
			row = append(row, rng.NormFloat64())
		}
		rows[i] = row

		start := cfg.Start.Add(time.Duration(i) * cfg.Interval)
		ev.Labels[i] = label
		ev.Spans[i] = Span{Start: start, End: start.Add(time.Duration(cfg.Horizon) * cfg.Interval)}
	}

	m, err := NewMatrix(names, rows)
	if err != nil {
		return nil, nil, err
	}
	return m, ev, nil
}
