package features

import (
	"container/ring"
	"math"
	"time"
)

type sample struct {
	p, v float64
	t    time.Time
}

// VWAP is a rolling volume-weighted average price over the last size bars
// that fall inside a time window. Bars carry their own timestamps, so a
// replay of historical data produces the same values as a live feed.
type VWAP struct {
	win  time.Duration
	ring *ring.Ring
}

func NewVWAP(win time.Duration, size int) *VWAP {
	if size <= 0 {
		size = 1
	}
	return &VWAP{win: win, ring: ring.New(size)}
}

func (v *VWAP) Add(t time.Time, price, volume float64) {
	v.ring.Value = sample{price, volume, t}
	v.ring = v.ring.Next()
}

// Calc returns the VWAP and the unweighted price std of the bars within the
// window ending at now. Both are zero when the window holds no volume.
func (v *VWAP) Calc(now time.Time) (value, std float64) {
	var pv, vv float64
	var count int
	var sum, sumSquared float64
	cutoff := now.Add(-v.win)

	v.ring.Do(func(x any) {
		if s, ok := x.(sample); ok && s.t.After(cutoff) && !s.t.After(now) {
			pv += s.p * s.v
			vv += s.v
			sum += s.p
			sumSquared += s.p * s.p
			count++
		}
	})

	if vv == 0 || count == 0 {
		return 0, 0
	}

	value = pv / vv
	mean := sum / float64(count)
	variance := (sumSquared / float64(count)) - (mean * mean)
	if variance > 0 {
		std = math.Sqrt(variance)
	}
	return
}
