package pipeline

import (
	"context"
	"errors"
	"log"

	"github.com/rkeller/salespipe/internal/clean"
	"github.com/rkeller/salespipe/internal/domain"
	"github.com/rkeller/salespipe/internal/enrich"
	"github.com/rkeller/salespipe/internal/rates"
	"github.com/rkeller/salespipe/internal/repository"

	"github.com/google/uuid"
)

// Options carries the run-level knobs of the pipeline.
type Options struct {
	TargetCurrency string
	FailureCeiling float64
	Workers        int
}

// Pipeline wires the stages of one batch run: clean, enrich with accumulated
// failures, threshold gate, atomic persist.
type Pipeline struct {
	provider rates.Provider
	store    repository.ResultStore
	opts     Options
}

// New builds a pipeline over a rate provider and a result store.
func New(provider rates.Provider, store repository.ResultStore, opts Options) *Pipeline {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Pipeline{
		provider: provider,
		store:    store,
		opts:     opts,
	}
}

// Run executes one single-pass batch run. The returned RunResult carries the
// counts, the failure ratio, and the terminal outcome; a non-nil error is one
// of the fatal run-level conditions (empty input, threshold breach,
// persistence failure). Per-record failures never surface here; they end up
// in the error log and rejected records.
func (p *Pipeline) Run(
	ctx context.Context,
	sales []domain.SaleRecord,
	reference []domain.ProductReference,
) (domain.RunResult, error) {
	result := domain.RunResult{RunID: uuid.New()}

	cleaned, report := clean.Clean(sales)
	log.Printf("[PIPELINE] run %s: %d raw records, %d cleaned (%d missing fields, %d non-positive, %d duplicates)",
		result.RunID, len(sales), len(cleaned), report.Missing, report.NonPositive, report.Duplicate)

	table, usedFallback := p.provider.Fetch(ctx, p.opts.TargetCurrency)
	if usedFallback {
		log.Printf("[PIPELINE] run %s: fallback exchange rates in use", result.RunID)
	}

	enricher := enrich.New(reference, table)
	acc := enrich.Run(enricher, cleaned, p.opts.Workers)

	accepted, rejected := acc.Counts()
	result.Accepted = accepted
	result.Rejected = rejected
	result.Total = accepted + rejected

	ratio, err := enrich.Evaluate(accepted, rejected, p.opts.FailureCeiling)
	result.FailureRatio = ratio
	if err != nil {
		var threshold *domain.ThresholdExceededError
		if errors.As(err, &threshold) {
			result.Outcome = domain.OutcomeAborted
			log.Printf("[PIPELINE] run %s aborted: ratio %.4f > ceiling %.4f, nothing persisted",
				result.RunID, threshold.Ratio, threshold.Ceiling)
			return result, err
		}
		result.Outcome = domain.OutcomeAborted
		return result, err
	}

	if err := p.store.Replace(ctx, result.RunID, acc.Enriched(), acc.ErrorLog(), acc.RejectedRecords()); err != nil {
		result.Outcome = domain.OutcomePersistenceFailure
		log.Printf("[PIPELINE] run %s failed to persist: %v", result.RunID, err)
		return result, err
	}

	result.Outcome = domain.OutcomeCommitted
	log.Printf("[PIPELINE] run %s committed: %d accepted, %d rejected, ratio %.4f",
		result.RunID, accepted, rejected, ratio)
	return result, nil
}
