package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rkeller/salespipe/internal/db"
	"github.com/rkeller/salespipe/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type resultRepository struct {
	conn *db.Connection
}

// NewResultRepository wires a result store backed by Postgres. All three
// table replaces run inside one transaction, so a re-run against the same
// store overwrites prior results entirely and a failed write leaves the
// previous run's tables untouched.
func NewResultRepository(conn *db.Connection) ResultStore {
	return &resultRepository{conn: conn}
}

func (r *resultRepository) Replace(
	ctx context.Context,
	runID uuid.UUID,
	enriched []domain.EnrichedRecord,
	errorLog []domain.ErrorLogEntry,
	rejected []domain.SaleRecord,
) error {
	if r.conn == nil {
		return &domain.PersistenceError{Err: fmt.Errorf("result repository not initialized")}
	}

	err := r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		for _, table := range []string{"cleaned_sales_data", "error_log", "rejected_records"} {
			if _, err := tx.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s", table)); err != nil {
				return fmt.Errorf("failed to truncate %s: %w", table, err)
			}
		}

		for _, record := range enriched {
			attrs, err := json.Marshal(record.Sale.Attrs)
			if err != nil {
				return fmt.Errorf("failed to encode sale attributes: %w", err)
			}
			product, err := json.Marshal(record.Product)
			if err != nil {
				return fmt.Errorf("failed to encode product attributes: %w", err)
			}

			_, err = tx.Exec(
				ctx,
				`INSERT INTO cleaned_sales_data (run_id, sale_id, product_id, sale_amount, currency, converted_amount, attributes, product_attributes)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				runID,
				record.Sale.SaleID,
				record.Sale.ProductID,
				record.Sale.SaleAmount.String(),
				record.Sale.Currency,
				record.ConvertedAmount.String(),
				attrs,
				product,
			)
			if err != nil {
				return fmt.Errorf("failed to insert cleaned sale %s: %w", record.Sale.SaleID, err)
			}
		}

		for _, entry := range errorLog {
			_, err := tx.Exec(
				ctx,
				`INSERT INTO error_log (run_id, sale_id, error_kind, detail, created_at)
				 VALUES ($1, $2, $3, $4, $5)`,
				runID,
				entry.SaleID,
				string(entry.Kind),
				entry.Detail,
				entry.Timestamp,
			)
			if err != nil {
				return fmt.Errorf("failed to insert error log for sale %s: %w", entry.SaleID, err)
			}
		}

		for _, record := range rejected {
			attrs, err := json.Marshal(record.Attrs)
			if err != nil {
				return fmt.Errorf("failed to encode rejected attributes: %w", err)
			}

			_, err = tx.Exec(
				ctx,
				`INSERT INTO rejected_records (run_id, sale_id, product_id, sale_amount, currency, attributes)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				runID,
				record.SaleID,
				record.ProductID,
				record.SaleAmount.String(),
				record.Currency,
				attrs,
			)
			if err != nil {
				return fmt.Errorf("failed to insert rejected record %s: %w", record.SaleID, err)
			}
		}

		return nil
	})
	if err != nil {
		return &domain.PersistenceError{Err: err}
	}

	return nil
}
