package ingest

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/rkeller/salespipe/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func TestReadSalesCSV(t *testing.T) {
	data := `Sale ID,Product ID,Sale Amount,Currency,Region
S1,P1,100.50,USD,north
S2,P2,20,EUR,south
`

	records, err := ReadSales("sales.csv", strings.NewReader(data))
	if err != nil {
		t.Fatalf("ReadSales returned error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	first := records[0]
	if first.SaleID != "S1" || first.ProductID != "P1" || first.Currency != "USD" {
		t.Fatalf("unexpected first record: %+v", first)
	}
	if !first.AmountOK || !first.SaleAmount.Equal(decimal.RequireFromString("100.50")) {
		t.Fatalf("unexpected amount: %+v", first)
	}
	if first.Attrs["region"] != "north" {
		t.Fatalf("expected passthrough region attribute, got %+v", first.Attrs)
	}
}

func TestReadSalesMissingColumnIsSchemaError(t *testing.T) {
	data := `sale_id,product_id,sale_amount
S1,P1,10
`

	_, err := ReadSales("sales.csv", strings.NewReader(data))
	var schemaErr *domain.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if schemaErr.Column != "currency" {
		t.Fatalf("expected currency to be the missing column, got %q", schemaErr.Column)
	}
}

func TestReadSalesNonNumericAmountIsNotSchemaError(t *testing.T) {
	data := `sale_id,product_id,sale_amount,currency
S1,P1,not-a-number,USD
`

	records, err := ReadSales("sales.csv", strings.NewReader(data))
	if err != nil {
		t.Fatalf("ReadSales returned error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].AmountOK {
		t.Fatalf("expected AmountOK to be false for non-numeric amount")
	}
}

func TestReadSalesSkipsBlankRows(t *testing.T) {
	data := "sale_id,product_id,sale_amount,currency\n" +
		",,,\n" +
		"S1,P1,10,USD\n"

	records, err := ReadSales("sales.csv", strings.NewReader(data))
	if err != nil {
		t.Fatalf("ReadSales returned error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected blank row to be skipped, got %d records", len(records))
	}
}

func TestReadSalesXLSX(t *testing.T) {
	f := excelize.NewFile()
	rows := [][]any{
		{"sale_id", "product_id", "sale_amount", "currency"},
		{"S1", "P1", 42.5, "GBP"},
	}
	for idx, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, idx+1)
		if err != nil {
			t.Fatalf("failed to build cell name: %v", err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("failed to write sheet row: %v", err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("failed to serialize workbook: %v", err)
	}

	records, err := ReadSales("sales.xlsx", &buf)
	if err != nil {
		t.Fatalf("ReadSales returned error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if !records[0].SaleAmount.Equal(decimal.RequireFromString("42.5")) {
		t.Fatalf("unexpected amount: %s", records[0].SaleAmount)
	}
}

func TestReadSalesUnsupportedFormat(t *testing.T) {
	_, err := ReadSales("sales.parquet", strings.NewReader("data"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestReadReference(t *testing.T) {
	data := `product_id,category,name
P1,tools,Hammer
P2,fasteners,Screw
`

	references, err := ReadReference("products.csv", strings.NewReader(data))
	if err != nil {
		t.Fatalf("ReadReference returned error: %v", err)
	}
	if len(references) != 2 {
		t.Fatalf("expected 2 references, got %d", len(references))
	}
	if references[0].ProductID != "P1" || references[0].Attrs["category"] != "tools" {
		t.Fatalf("unexpected reference: %+v", references[0])
	}
}

func TestReadReferenceMissingKeyColumn(t *testing.T) {
	data := `sku,category
P1,tools
`

	_, err := ReadReference("products.csv", strings.NewReader(data))
	var schemaErr *domain.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
}
