package repository

import (
	"context"

	"github.com/rkeller/salespipe/internal/domain"

	"github.com/google/uuid"
)

// ResultStore persists the three outputs of one run. Replace is atomic: all
// three tables are fully replaced, or none of them changes.
type ResultStore interface {
	Replace(
		ctx context.Context,
		runID uuid.UUID,
		enriched []domain.EnrichedRecord,
		errorLog []domain.ErrorLogEntry,
		rejected []domain.SaleRecord,
	) error
}
