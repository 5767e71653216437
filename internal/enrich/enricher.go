package enrich

import (
	"sync"
	"time"

	"github.com/rkeller/salespipe/internal/domain"
)

// Accepted carries a successfully enriched record and its conversion-log
// entry; they are created together, one entry per record.
type Accepted struct {
	Record domain.EnrichedRecord
	Log    domain.ConversionLogEntry
}

// Rejected carries the original pre-join sale record and its error-log entry.
type Rejected struct {
	Record domain.SaleRecord
	Log    domain.ErrorLogEntry
}

// Outcome is the tagged result of one per-record attempt: exactly one of
// Accepted or Rejected is set.
type Outcome struct {
	Accepted *Accepted
	Rejected *Rejected
}

// Enricher left-joins cleaned sales against the product reference and
// converts amounts to the target currency. The rate table is fetched once and
// shared read-only, so Process is safe to call from multiple workers.
type Enricher struct {
	reference map[string]domain.ProductReference
	rates     domain.RateTable
	now       func() time.Time
}

// New builds an Enricher over an immutable reference table and rate table.
func New(reference []domain.ProductReference, rates domain.RateTable) *Enricher {
	byProduct := make(map[string]domain.ProductReference, len(reference))
	for _, ref := range reference {
		if _, ok := byProduct[ref.ProductID]; ok {
			continue
		}
		byProduct[ref.ProductID] = ref
	}
	return &Enricher{
		reference: byProduct,
		rates:     rates,
		now:       time.Now,
	}
}

// Process attempts to enrich one record. A missing reference match leaves the
// product fields empty but does not reject the record; only a missing
// exchange rate does. ConvertedAmount = round(SaleAmount / rate, 2), rounding
// half away from zero.
func (e *Enricher) Process(record domain.SaleRecord) Outcome {
	rate, ok := e.rates[record.Currency]
	if !ok {
		err := &domain.MissingRateError{Currency: record.Currency}
		return Outcome{Rejected: &Rejected{
			Record: record,
			Log: domain.ErrorLogEntry{
				Timestamp: e.now(),
				SaleID:    record.SaleID,
				Kind:      domain.ErrorKindMissingRate,
				Detail:    err.Error(),
			},
		}}
	}

	product := map[string]string{}
	if ref, found := e.reference[record.ProductID]; found {
		product = ref.Attrs
	}

	converted := record.SaleAmount.Div(rate).Round(2)

	return Outcome{Accepted: &Accepted{
		Record: domain.EnrichedRecord{
			Sale:            record,
			Product:         product,
			ConvertedAmount: converted,
		},
		Log: domain.ConversionLogEntry{
			Timestamp:        e.now(),
			SaleID:           record.SaleID,
			OriginalCurrency: record.Currency,
			Rate:             rate,
			OriginalAmount:   record.SaleAmount,
			ConvertedAmount:  converted,
		},
	}}
}

// Run processes every record through the enricher and reduces the outcomes
// into one accumulator. With workers > 1 the per-record conversions run
// concurrently; appends serialize inside the accumulator, and final ordering
// follows completion order.
func Run(e *Enricher, records []domain.SaleRecord, workers int) *Accumulator {
	acc := NewAccumulator()

	if workers <= 1 {
		for _, record := range records {
			acc.Add(e.Process(record))
		}
		return acc
	}

	queue := make(chan domain.SaleRecord)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for record := range queue {
				acc.Add(e.Process(record))
			}
		}()
	}

	for _, record := range records {
		queue <- record
	}
	close(queue)
	wg.Wait()

	return acc
}
