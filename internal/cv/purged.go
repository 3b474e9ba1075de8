// Package cv implements leakage-aware cross-validation for labels whose
// outcomes are determined over overlapping time windows.
package cv

import (
	"fmt"

	"featimp/internal/common"
	"featimp/internal/dataset"
)

// Fold is one train/test partition of sample indices. Both sides are sorted.
type Fold struct {
	Train []int
	Test  []int
}

// Splitter yields train/test folds over n samples.
type Splitter interface {
	Split(n int) ([]Fold, error)
	NSplits() int
}

// PurgedKFold splits samples into contiguous test blocks and removes from
// the training set every sample whose span overlaps the test block, plus an
// embargo of int(n*PctEmbargo) samples after it.
type PurgedKFold struct {
	nSplits    int
	spans      []dataset.Span
	pctEmbargo float64
	purging    bool
}

// NewPurgedKFold validates its arguments and returns a splitter bound to spans.
func NewPurgedKFold(nSplits int, spans []dataset.Span, pctEmbargo float64, purging bool) (*PurgedKFold, error) {
	if nSplits < 2 {
		return nil, fmt.Errorf("%w: need at least 2 splits, got %d", common.ErrInvalidConfiguration, nSplits)
	}
	if pctEmbargo < 0 || pctEmbargo >= 1 {
		return nil, fmt.Errorf("%w: embargo fraction must be in [0, 1), got %f", common.ErrInvalidConfiguration, pctEmbargo)
	}
	if err := dataset.ValidateSpans(spans, len(spans)); err != nil {
		return nil, err
	}
	if nSplits > len(spans) {
		return nil, fmt.Errorf("%w: %d splits for %d samples", common.ErrInvalidConfiguration, nSplits, len(spans))
	}
	return &PurgedKFold{
		nSplits:    nSplits,
		spans:      append([]dataset.Span(nil), spans...),
		pctEmbargo: pctEmbargo,
		purging:    purging,
	}, nil
}

// NSplits returns the number of folds.
func (p *PurgedKFold) NSplits() int {
	return p.nSplits
}

// Embargo returns the number of samples embargoed after each test block.
func (p *PurgedKFold) Embargo(n int) int {
	return int(float64(n) * p.pctEmbargo)
}

// Split returns the folds for n samples, which must equal the number of spans.
// Test blocks follow the array_split convention: the first n%k blocks hold
// one extra sample. A fold whose training set is purged empty is an error.
func (p *PurgedKFold) Split(n int) ([]Fold, error) {
	if n != len(p.spans) {
		return nil, fmt.Errorf("%w: splitter bound to %d spans, got %d samples", common.ErrDimensionMismatch, len(p.spans), n)
	}

	embargo := p.Embargo(n)
	folds := make([]Fold, 0, p.nSplits)
	start := 0
	for k := 0; k < p.nSplits; k++ {
		size := n / p.nSplits
		if k < n%p.nSplits {
			size++
		}
		end := start + size
		f := p.fold(start, end, embargo)
		if len(f.Train) == 0 {
			return nil, fmt.Errorf("%w: fold %d has no training samples left after purging", common.ErrInvalidConfiguration, k)
		}
		folds = append(folds, f)
		start = end
	}
	return folds, nil
}

func (p *PurgedKFold) fold(st, end, embargo int) Fold {
	n := len(p.spans)
	test := make([]int, 0, end-st)
	for i := st; i < end; i++ {
		test = append(test, i)
	}

	train := make([]int, 0, n-len(test))
	if !p.purging {
		for i := 0; i < n; i++ {
			if i < st || i >= end {
				train = append(train, i)
			}
		}
		return Fold{Train: train, Test: test}
	}

	t0 := p.spans[st].Start
	maxEnd := p.spans[st].End
	for i := st; i < end; i++ {
		if p.spans[i].End.After(maxEnd) {
			maxEnd = p.spans[i].End
		}
	}

	// Before the block: keep samples resolved no later than the test start.
	for i := 0; i < st; i++ {
		if !p.spans[i].End.After(t0) {
			train = append(train, i)
		}
	}

	// After the block: first sample starting no earlier than the last test
	// outcome, then skip the embargo.
	after := end
	for after < n && p.spans[after].Start.Before(maxEnd) {
		after++
	}
	for i := after + embargo; i < n; i++ {
		train = append(train, i)
	}

	return Fold{Train: train, Test: test}
}
