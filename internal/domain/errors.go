package domain

import (
	"errors"
	"fmt"
)

// ErrEmptyInput is returned when zero records reach the threshold gate.
var ErrEmptyInput = errors.New("no records reached the threshold gate")

// SchemaError reports a malformed input source, such as a missing required
// column. Fatal; raised before the pipeline proper starts.
type SchemaError struct {
	Source string
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error in %s: required column %q is missing", e.Source, e.Column)
}

// MissingRateError reports a record whose currency has no entry in the rate
// table. Recoverable per record; the run continues.
type MissingRateError struct {
	Currency string
}

func (e *MissingRateError) Error() string {
	return fmt.Sprintf("no exchange rate for currency %q", e.Currency)
}

// ThresholdExceededError aborts the whole run when the failure ratio is
// strictly above the configured ceiling. Nothing is persisted.
type ThresholdExceededError struct {
	Ratio   float64
	Ceiling float64
}

func (e *ThresholdExceededError) Error() string {
	return fmt.Sprintf("failure ratio %.4f exceeds ceiling %.4f", e.Ratio, e.Ceiling)
}

// PersistenceError reports a failed store write. The transaction is rolled
// back, so no output table is partially committed.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist run results: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
