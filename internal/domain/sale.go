package domain

import (
	"github.com/shopspring/decimal"
)

// SaleRecord is one raw sales row after schema typing. Attrs carries every
// column beyond the required four, untouched.
type SaleRecord struct {
	SaleID     string
	ProductID  string
	SaleAmount decimal.Decimal
	// AmountOK reports whether sale_amount held a parseable number. Rows
	// where it did not are treated as missing a required field.
	AmountOK bool
	Currency string
	Attrs    map[string]string
}

// ProductReference is one row of the read-only product lookup table.
type ProductReference struct {
	ProductID string
	Attrs     map[string]string
}

// RateTable maps currency codes to positive conversion rates relative to the
// run's base currency. Immutable after fetch; shared read-only by workers.
type RateTable map[string]decimal.Decimal

// EnrichedRecord is a cleaned sale joined against the product reference and
// converted to the target currency. Product is empty when the join found no
// match; the record is still accepted.
type EnrichedRecord struct {
	Sale            SaleRecord
	Product         map[string]string
	ConvertedAmount decimal.Decimal
}
