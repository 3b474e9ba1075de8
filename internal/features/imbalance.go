package features

import "math"

// DepthImb is the order book imbalance in [-1, 1]. Negative or non-finite
// volumes yield 0.
func DepthImb(bid, ask float64) float64 {
	if !valid(bid) || !valid(ask) || bid+ask == 0 {
		return 0
	}
	return (bid - ask) / (bid + ask)
}

func valid(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// TickImb tracks the mean sign of the last n price changes.
type TickImb struct {
	buf []int8
	max int
}

func NewTickImb(n int) *TickImb {
	if n <= 0 {
		n = 1
	}
	return &TickImb{max: n}
}

func (t *TickImb) Add(sign int8) {
	if len(t.buf) == t.max {
		t.buf = t.buf[1:]
	}
	t.buf = append(t.buf, sign)
}

func (t *TickImb) Ratio() float64 {
	if len(t.buf) == 0 {
		return 0
	}
	var s int
	for _, v := range t.buf {
		s += int(v)
	}
	return float64(s) / float64(len(t.buf))
}
