package enrich

import (
	"github.com/rkeller/salespipe/internal/domain"
)

// Evaluate computes the run failure ratio and applies the ceiling. The gate
// runs after every record has been attempted; it is a post-hoc check, not a
// short circuit. Exactly the ceiling passes; strictly above it aborts the run
// with a ThresholdExceededError. Zero totals return ErrEmptyInput.
func Evaluate(accepted, rejected int, ceiling float64) (float64, error) {
	total := accepted + rejected
	if total == 0 {
		return 0, domain.ErrEmptyInput
	}

	ratio := float64(rejected) / float64(total)
	if ratio > ceiling {
		return ratio, &domain.ThresholdExceededError{Ratio: ratio, Ceiling: ceiling}
	}

	return ratio, nil
}
