package features

import (
	"fmt"
	"math"
	"time"

	"featimp/internal/dataset"
)

// Feature column names produced by Build.
const (
	ColReturn   = "ret_1"
	ColVWAPDev  = "vwap_dev"
	ColTickImb  = "tick_imb"
	ColDepthImb = "depth_imb"
)

// BuildConfig controls the feature windows and the label horizon.
type BuildConfig struct {
	// Window is the number of bars in the VWAP and tick imbalance windows.
	Window int
	// VWAPSpan bounds the VWAP window in time. Zero means unbounded.
	VWAPSpan time.Duration
	// Horizon is the number of bars until the label is resolved.
	Horizon int
}

// Build computes one row per bar that has both a previous bar and a bar
// Horizon steps ahead. The label is the sign of the forward return (flat
// counts as -1) and the span runs from the bar to the bar that resolves it.
func Build(bars []Bar, cfg BuildConfig) (*dataset.Matrix, *dataset.Events, error) {
	if cfg.Window < 1 {
		return nil, nil, fmt.Errorf("feature window must be positive, got %d", cfg.Window)
	}
	if cfg.Horizon < 1 {
		return nil, nil, fmt.Errorf("label horizon must be positive, got %d", cfg.Horizon)
	}
	if len(bars) < cfg.Horizon+2 {
		return nil, nil, fmt.Errorf("need at least %d bars, got %d", cfg.Horizon+2, len(bars))
	}

	span := cfg.VWAPSpan
	if span <= 0 {
		span = bars[len(bars)-1].Time.Sub(bars[0].Time) + time.Nanosecond
	}
	vwap := NewVWAP(span, cfg.Window)
	tick := NewTickImb(cfg.Window)
	vwap.Add(bars[0].Time, bars[0].Price, bars[0].Volume)

	names := []string{ColReturn, ColVWAPDev, ColTickImb, ColDepthImb}
	var rows [][]float64
	ev := &dataset.Events{}

	for i := 1; i+cfg.Horizon < len(bars); i++ {
		b, prev := bars[i], bars[i-1]
		vwap.Add(b.Time, b.Price, b.Volume)
		tick.Add(sign(b.Price - prev.Price))

		dev := 0.0
		if v, std := vwap.Calc(b.Time); std > 0 {
			dev = (b.Price - v) / std
		}

		rows = append(rows, []float64{
			math.Log(b.Price / prev.Price),
			dev,
			tick.Ratio(),
			DepthImb(b.BidVolume, b.AskVolume),
		})

		ahead := bars[i+cfg.Horizon]
		label := -1.0
		if ahead.Price > b.Price {
			label = 1
		}
		ev.Labels = append(ev.Labels, label)
		ev.Spans = append(ev.Spans, dataset.Span{Start: b.Time, End: ahead.Time})
	}

	X, err := dataset.NewMatrix(names, rows)
	if err != nil {
		return nil, nil, err
	}
	if err := ev.Validate(X); err != nil {
		return nil, nil, err
	}
	return X, ev, nil
}

func sign(d float64) int8 {
	switch {
	case d > 0:
		return 1
	case d < 0:
		return -1
	}
	return 0
}
