package importance

import (
	"encoding/json"
	"math"
	"sort"
)

// Stat is the aggregated importance of one feature.
type Stat struct {
	Mean float64
	Std  float64
}

type statJSON struct {
	Mean *float64 `json:"mean"`
	Std  *float64 `json:"std"`
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

// MarshalJSON encodes non-finite values as null.
func (s Stat) MarshalJSON() ([]byte, error) {
	return json.Marshal(statJSON{Mean: finite(s.Mean), Std: finite(s.Std)})
}

// UnmarshalJSON decodes null as NaN.
func (s *Stat) UnmarshalJSON(data []byte) error {
	var raw statJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Mean, s.Std = orNaN(raw.Mean), orNaN(raw.Std)
	return nil
}

// Report maps every feature to its importance mean and dispersion.
// It is built once per computation and never modified afterwards.
type Report struct {
	Method   string          `json:"method"`
	Features []string        `json:"features"`
	Stats    map[string]Stat `json:"stats"`
}

func newReport(method string, names []string, stats []Stat) *Report {
	r := &Report{
		Method:   method,
		Features: append([]string(nil), names...),
		Stats:    make(map[string]Stat, len(names)),
	}
	for i, n := range names {
		r.Stats[n] = stats[i]
	}
	return r
}

// Get returns the statistics of the named feature.
func (r *Report) Get(name string) (Stat, bool) {
	s, ok := r.Stats[name]
	return s, ok
}

// Mean returns the mean importance of the named feature, NaN if unknown.
func (r *Report) Mean(name string) float64 {
	if s, ok := r.Stats[name]; ok {
		return s.Mean
	}
	return math.NaN()
}

// Ranked returns the feature names by decreasing mean. NaN means sort last;
// ties keep column order.
func (r *Report) Ranked() []string {
	out := append([]string(nil), r.Features...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := r.Stats[out[i]].Mean, r.Stats[out[j]].Mean
		if math.IsNaN(b) {
			return !math.IsNaN(a)
		}
		return a > b
	})
	return out
}
