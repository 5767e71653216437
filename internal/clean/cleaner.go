package clean

import (
	"sort"
	"strings"

	"github.com/rkeller/salespipe/internal/domain"
)

// Report counts records dropped per reason. These drops happen before error
// tracking starts and never feed the failure-ratio calculation.
type Report struct {
	Missing     int
	NonPositive int
	Duplicate   int
}

// Dropped returns the total number of records removed.
func (r Report) Dropped() int {
	return r.Missing + r.NonPositive + r.Duplicate
}

// Clean filters raw sale records: rows with a required field missing, rows
// with a non-positive amount, and exact duplicates (first occurrence kept)
// are removed. Cleaning never fails; it only removes.
func Clean(records []domain.SaleRecord) ([]domain.SaleRecord, Report) {
	var report Report
	seen := make(map[string]bool, len(records))
	cleaned := make([]domain.SaleRecord, 0, len(records))

	for _, record := range records {
		if record.SaleID == "" || record.ProductID == "" || record.Currency == "" || !record.AmountOK {
			report.Missing++
			continue
		}
		if record.SaleAmount.Sign() <= 0 {
			report.NonPositive++
			continue
		}

		key := fingerprint(record)
		if seen[key] {
			report.Duplicate++
			continue
		}
		seen[key] = true

		cleaned = append(cleaned, record)
	}

	return cleaned, report
}

// fingerprint builds a key over every field, so only rows identical in full
// count as duplicates.
func fingerprint(record domain.SaleRecord) string {
	var b strings.Builder
	b.WriteString(record.SaleID)
	b.WriteByte('\x1f')
	b.WriteString(record.ProductID)
	b.WriteByte('\x1f')
	b.WriteString(record.SaleAmount.String())
	b.WriteByte('\x1f')
	b.WriteString(record.Currency)

	keys := make([]string, 0, len(record.Attrs))
	for key := range record.Attrs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		b.WriteByte('\x1f')
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(record.Attrs[key])
	}

	return b.String()
}
