package common

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration is returned for unknown scoring names, methods or
	// out of range parameters. It is always raised before any fold runs.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrDimensionMismatch is returned when features, labels, weights and
	// spans are not aligned or spans are malformed.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrFitFailure wraps any error raised by a classifier fit.
	ErrFitFailure = errors.New("fit failure")
)

// StageError identifies the stage of an importance computation that failed.
// Fold is -1 and Feature is empty when they do not apply.
type StageError struct {
	Stage   string
	Fold    int
	Feature string
	Err     error
}

func (e *StageError) Error() string {
	msg := e.Stage
	if e.Feature != "" {
		msg += fmt.Sprintf(" feature=%s", e.Feature)
	}
	if e.Fold >= 0 {
		msg += fmt.Sprintf(" fold=%d", e.Fold)
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError wraps err with stage context. Fit errors are also marked
// with ErrFitFailure so callers can match them with errors.Is.
func NewStageError(stage string, fold int, err error) *StageError {
	if stage == StageFit && !errors.Is(err, ErrFitFailure) {
		err = fmt.Errorf("%w: %w", ErrFitFailure, err)
	}
	return &StageError{Stage: stage, Fold: fold, Err: err}
}

// WithFeature returns a copy of the error tagged with a feature name.
func (e *StageError) WithFeature(name string) *StageError {
	c := *e
	c.Feature = name
	return &c
}
