package features

import (
	"math"
	"testing"
)

func TestDepthImb_ValidInputs(t *testing.T) {
	testCases := []struct {
		name     string
		bid      float64
		ask      float64
		expected float64
	}{
		{"balanced book", 100.0, 100.0, 0.0},
		{"bid heavy", 150.0, 100.0, 0.2},
		{"ask heavy", 100.0, 150.0, -0.2},
		{"zero ask", 100.0, 0.0, 1.0},
		{"zero bid", 0.0, 100.0, -1.0},
		{"empty book", 0.0, 0.0, 0.0},
		{"large values", 1e6, 2e6, -0.3333333333333333},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := DepthImb(tc.bid, tc.ask)
			if math.Abs(result-tc.expected) > 1e-10 {
				t.Errorf("Expected %.10f, got %.10f", tc.expected, result)
			}
		})
	}
}

func TestDepthImb_InvalidInputs(t *testing.T) {
	testCases := []struct {
		name string
		bid  float64
		ask  float64
	}{
		{"NaN bid", math.NaN(), 100.0},
		{"NaN ask", 100.0, math.NaN()},
		{"Inf bid", math.Inf(1), 100.0},
		{"Inf ask", 100.0, math.Inf(-1)},
		{"negative bid", -50.0, 100.0},
		{"negative ask", 100.0, -50.0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if result := DepthImb(tc.bid, tc.ask); result != 0 {
				t.Errorf("Expected 0 for invalid input, got %f", result)
			}
		})
	}
}

func TestTickImb_Window(t *testing.T) {
	ti := NewTickImb(3)
	if r := ti.Ratio(); r != 0 {
		t.Errorf("Expected 0 for empty window, got %f", r)
	}

	ti.Add(1)
	ti.Add(1)
	ti.Add(-1)
	if r := ti.Ratio(); math.Abs(r-1.0/3) > 1e-12 {
		t.Errorf("Expected 1/3, got %f", r)
	}

	// The oldest sign drops out.
	ti.Add(-1)
	if r := ti.Ratio(); math.Abs(r+1.0/3) > 1e-12 {
		t.Errorf("Expected -1/3, got %f", r)
	}
}
