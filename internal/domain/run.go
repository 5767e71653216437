package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrorKind classifies per-record failures recorded in the error log.
type ErrorKind string

const (
	ErrorKindMissingRate ErrorKind = "MISSING_RATE"
)

// ConversionLogEntry records one successful currency conversion. Timestamps
// are wall clock at processing time, not derived from input data.
type ConversionLogEntry struct {
	Timestamp        time.Time
	SaleID           string
	OriginalCurrency string
	Rate             decimal.Decimal
	OriginalAmount   decimal.Decimal
	ConvertedAmount  decimal.Decimal
}

// ErrorLogEntry records one failed record. Every rejected record has exactly
// one entry with a matching SaleID.
type ErrorLogEntry struct {
	Timestamp time.Time
	SaleID    string
	Kind      ErrorKind
	Detail    string
}

// Outcome is the terminal state of a pipeline run.
type Outcome string

const (
	OutcomeCommitted          Outcome = "COMMITTED"
	OutcomeAborted            Outcome = "ABORTED"
	OutcomePersistenceFailure Outcome = "PERSISTENCE_FAILURE"
)

// RunResult summarizes one pipeline run. Accepted + Rejected always equals
// Total for the records that entered the enrichment stage.
type RunResult struct {
	RunID        uuid.UUID
	Total        int
	Accepted     int
	Rejected     int
	FailureRatio float64
	Outcome      Outcome
}
