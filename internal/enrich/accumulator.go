package enrich

import (
	"sync"

	"github.com/rkeller/salespipe/internal/domain"
)

// Accumulator collects per-record outcomes for one run. It replaces global
// accumulator state with an explicit object: appends are serialized under one
// mutex so concurrent workers can share it.
type Accumulator struct {
	mu         sync.Mutex
	enriched   []domain.EnrichedRecord
	conversion []domain.ConversionLogEntry
	errors     []domain.ErrorLogEntry
	rejected   []domain.SaleRecord
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Add folds one outcome into the run state. A rejected record appends exactly
// one error-log entry and one rejected payload; an accepted record appends
// exactly one enriched record and one conversion-log entry.
func (a *Accumulator) Add(outcome Outcome) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch {
	case outcome.Accepted != nil:
		a.enriched = append(a.enriched, outcome.Accepted.Record)
		a.conversion = append(a.conversion, outcome.Accepted.Log)
	case outcome.Rejected != nil:
		a.errors = append(a.errors, outcome.Rejected.Log)
		a.rejected = append(a.rejected, outcome.Rejected.Record)
	}
}

// Counts returns the accepted and rejected record totals.
func (a *Accumulator) Counts() (accepted, rejected int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.enriched), len(a.rejected)
}

// Enriched returns the accepted records in completion order.
func (a *Accumulator) Enriched() []domain.EnrichedRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]domain.EnrichedRecord(nil), a.enriched...)
}

// ConversionLog returns one entry per accepted record.
func (a *Accumulator) ConversionLog() []domain.ConversionLogEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]domain.ConversionLogEntry(nil), a.conversion...)
}

// ErrorLog returns one entry per rejected record.
func (a *Accumulator) ErrorLog() []domain.ErrorLogEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]domain.ErrorLogEntry(nil), a.errors...)
}

// RejectedRecords returns the original pre-join payloads of failed records.
func (a *Accumulator) RejectedRecords() []domain.SaleRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]domain.SaleRecord(nil), a.rejected...)
}
