package enrich

import (
	"strconv"
	"testing"

	"github.com/rkeller/salespipe/internal/domain"

	"github.com/shopspring/decimal"
)

func sale(id, product, amount, currency string) domain.SaleRecord {
	return domain.SaleRecord{
		SaleID:     id,
		ProductID:  product,
		SaleAmount: decimal.RequireFromString(amount),
		AmountOK:   true,
		Currency:   currency,
	}
}

func testRates() domain.RateTable {
	return domain.RateTable{
		"USD": decimal.NewFromInt(1),
		"EUR": decimal.NewFromFloat(1.1),
	}
}

func testReference() []domain.ProductReference {
	return []domain.ProductReference{
		{ProductID: "P1", Attrs: map[string]string{"category": "tools"}},
	}
}

func TestProcessConvertsAndLogs(t *testing.T) {
	enricher := New(testReference(), testRates())

	outcome := enricher.Process(sale("S1", "P1", "100", "EUR"))
	if outcome.Accepted == nil {
		t.Fatalf("expected accepted outcome, got %+v", outcome)
	}

	want := decimal.RequireFromString("90.91")
	if !outcome.Accepted.Record.ConvertedAmount.Equal(want) {
		t.Fatalf("expected converted amount %s, got %s", want, outcome.Accepted.Record.ConvertedAmount)
	}
	if outcome.Accepted.Record.Product["category"] != "tools" {
		t.Fatalf("expected joined product attributes, got %+v", outcome.Accepted.Record.Product)
	}

	entry := outcome.Accepted.Log
	if entry.SaleID != "S1" || entry.OriginalCurrency != "EUR" {
		t.Fatalf("unexpected conversion log entry: %+v", entry)
	}
	if !entry.Rate.Equal(decimal.NewFromFloat(1.1)) || !entry.ConvertedAmount.Equal(want) {
		t.Fatalf("unexpected conversion log amounts: %+v", entry)
	}
	if entry.Timestamp.IsZero() {
		t.Fatalf("expected a wall-clock timestamp")
	}
}

// Pins the rounding rule: two decimals, half away from zero.
func TestProcessRoundsHalfAwayFromZero(t *testing.T) {
	rates := domain.RateTable{"XTS": decimal.NewFromInt(4)}
	enricher := New(nil, rates)

	// 40.10 / 4 = 10.025, which rounds up to 10.03.
	outcome := enricher.Process(sale("S1", "P1", "40.10", "XTS"))
	if outcome.Accepted == nil {
		t.Fatalf("expected accepted outcome")
	}
	if got := outcome.Accepted.Record.ConvertedAmount; !got.Equal(decimal.RequireFromString("10.03")) {
		t.Fatalf("expected 10.03, got %s", got)
	}
}

func TestProcessRejectsMissingRate(t *testing.T) {
	enricher := New(testReference(), testRates())

	record := sale("S9", "P1", "55", "XYZ")
	record.Attrs = map[string]string{"region": "west"}

	outcome := enricher.Process(record)
	if outcome.Rejected == nil {
		t.Fatalf("expected rejected outcome, got %+v", outcome)
	}

	if outcome.Rejected.Record.SaleID != "S9" || outcome.Rejected.Record.Attrs["region"] != "west" {
		t.Fatalf("rejected payload must be the original record, got %+v", outcome.Rejected.Record)
	}
	entry := outcome.Rejected.Log
	if entry.Kind != domain.ErrorKindMissingRate || entry.SaleID != "S9" {
		t.Fatalf("unexpected error log entry: %+v", entry)
	}
}

func TestProcessAcceptsUnmatchedProduct(t *testing.T) {
	enricher := New(testReference(), testRates())

	outcome := enricher.Process(sale("S2", "UNKNOWN", "10", "USD"))
	if outcome.Accepted == nil {
		t.Fatalf("join miss must not reject the record, got %+v", outcome)
	}
	if len(outcome.Accepted.Record.Product) != 0 {
		t.Fatalf("expected empty product attributes, got %+v", outcome.Accepted.Record.Product)
	}
}

func TestRunCountsAlwaysBalance(t *testing.T) {
	enricher := New(testReference(), testRates())
	records := []domain.SaleRecord{
		sale("S1", "P1", "10", "USD"),
		sale("S2", "P1", "20", "EUR"),
		sale("S3", "P1", "30", "XYZ"),
		sale("S4", "P9", "40", "USD"),
	}

	acc := Run(enricher, records, 1)
	accepted, rejected := acc.Counts()
	if accepted+rejected != len(records) {
		t.Fatalf("accepted %d + rejected %d != total %d", accepted, rejected, len(records))
	}
	if accepted != 3 || rejected != 1 {
		t.Fatalf("unexpected counts: accepted=%d rejected=%d", accepted, rejected)
	}
	if len(acc.ConversionLog()) != accepted {
		t.Fatalf("expected one conversion log entry per accepted record")
	}
	if len(acc.ErrorLog()) != rejected || len(acc.RejectedRecords()) != rejected {
		t.Fatalf("expected one error log entry and one rejected payload per rejection")
	}
}

func TestRunParallelMatchesSerial(t *testing.T) {
	enricher := New(testReference(), testRates())

	var records []domain.SaleRecord
	for i := 0; i < 200; i++ {
		currency := "USD"
		if i%10 == 0 {
			currency = "XYZ"
		}
		records = append(records, sale("S"+strconv.Itoa(i), "P1", "10", currency))
	}

	serial := Run(enricher, records, 1)
	parallel := Run(enricher, records, 4)

	serialAccepted, serialRejected := serial.Counts()
	parallelAccepted, parallelRejected := parallel.Counts()
	if serialAccepted != parallelAccepted || serialRejected != parallelRejected {
		t.Fatalf("parallel counts diverged: serial %d/%d parallel %d/%d",
			serialAccepted, serialRejected, parallelAccepted, parallelRejected)
	}

	serialIDs := rejectedIDs(serial)
	for id := range rejectedIDs(parallel) {
		if !serialIDs[id] {
			t.Fatalf("parallel run rejected unexpected record %s", id)
		}
	}
}

func rejectedIDs(acc *Accumulator) map[string]bool {
	ids := make(map[string]bool)
	for _, record := range acc.RejectedRecords() {
		ids[record.SaleID] = true
	}
	return ids
}
