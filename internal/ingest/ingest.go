package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/rkeller/salespipe/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat is returned when an input file is not supported.
var ErrUnsupportedFormat = errors.New("unsupported file format")

var byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

// Required columns after header sanitization.
const (
	columnSaleID     = "sale_id"
	columnProductID  = "product_id"
	columnSaleAmount = "sale_amount"
	columnCurrency   = "currency"
)

var requiredSaleColumns = []string{columnSaleID, columnProductID, columnSaleAmount, columnCurrency}

type tableData struct {
	headers []string
	rows    [][]string
}

// ReadSales loads raw sale records from a CSV or XLSX source. It checks
// structural shape only: a missing required column is a SchemaError, but no
// business validation happens here. Extra columns are carried through as
// record attributes.
func ReadSales(fileName string, data io.Reader) ([]domain.SaleRecord, error) {
	table, err := readTable(fileName, data)
	if err != nil {
		return nil, err
	}

	index, err := requireColumns(fileName, table.headers, requiredSaleColumns)
	if err != nil {
		return nil, err
	}

	records := make([]domain.SaleRecord, 0, len(table.rows))
	for _, row := range table.rows {
		record := domain.SaleRecord{
			SaleID:    cell(row, index[columnSaleID]),
			ProductID: cell(row, index[columnProductID]),
			Currency:  cell(row, index[columnCurrency]),
			Attrs:     passthrough(table.headers, row, requiredSaleColumns),
		}

		if raw := cell(row, index[columnSaleAmount]); raw != "" {
			if amount, parseErr := decimal.NewFromString(raw); parseErr == nil {
				record.SaleAmount = amount
				record.AmountOK = true
			}
		}

		records = append(records, record)
	}

	return records, nil
}

// ReadReference loads the product reference table from a CSV or XLSX source.
func ReadReference(fileName string, data io.Reader) ([]domain.ProductReference, error) {
	table, err := readTable(fileName, data)
	if err != nil {
		return nil, err
	}

	index, err := requireColumns(fileName, table.headers, []string{columnProductID})
	if err != nil {
		return nil, err
	}

	references := make([]domain.ProductReference, 0, len(table.rows))
	for _, row := range table.rows {
		references = append(references, domain.ProductReference{
			ProductID: cell(row, index[columnProductID]),
			Attrs:     passthrough(table.headers, row, []string{columnProductID}),
		})
	}

	return references, nil
}

func readTable(fileName string, data io.Reader) (tableData, error) {
	if data == nil {
		return tableData{}, errors.New("data reader is required")
	}

	payload, err := io.ReadAll(data)
	if err != nil {
		return tableData{}, fmt.Errorf("failed to read input: %w", err)
	}
	if len(payload) == 0 {
		return tableData{}, errors.New("file is empty")
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".csv":
		return parseCSV(payload)
	case ".xlsx":
		return parseExcel(payload)
	default:
		return tableData{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

func parseCSV(payload []byte) (tableData, error) {
	reader := bufio.NewReader(bytes.NewReader(payload))
	if prefix, err := reader.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = reader.Discard(len(byteOrderMark))
	}

	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return tableData{}, fmt.Errorf("failed to read csv: %w", err)
	}

	return normalizeTable(records)
}

func parseExcel(payload []byte) (tableData, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return tableData{}, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return tableData{}, errors.New("excel file has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return tableData{}, fmt.Errorf("failed to read rows from xlsx: %w", err)
	}

	return normalizeTable(rows)
}

func normalizeTable(records [][]string) (tableData, error) {
	if len(records) == 0 {
		return tableData{}, errors.New("no rows found in file")
	}

	var headerRow []string
	var dataRows [][]string

	for _, row := range records {
		if isBlankRow(row) {
			continue
		}
		if headerRow == nil {
			headerRow = row
			continue
		}
		dataRows = append(dataRows, row)
	}

	if headerRow == nil {
		return tableData{}, errors.New("header row could not be detected")
	}

	headers := sanitizeHeaders(headerRow)
	for i := range dataRows {
		dataRows[i] = padRow(dataRows[i], len(headers))
	}

	return tableData{headers: headers, rows: dataRows}, nil
}

func sanitizeHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	seen := make(map[string]int)

	for idx, value := range raw {
		name := strings.ToLower(strings.TrimSpace(value))
		name = strings.ReplaceAll(name, " ", "_")
		name = strings.ReplaceAll(name, ".", "_")
		name = strings.ReplaceAll(name, "-", "_")
		name = strings.Trim(name, "_")
		if name == "" {
			name = fmt.Sprintf("column_%d", idx+1)
		}

		base := name
		count := seen[base]
		if count > 0 {
			name = fmt.Sprintf("%s_%d", base, count+1)
		}
		seen[base] = count + 1

		headers[idx] = name
	}

	return headers
}

func requireColumns(source string, headers []string, required []string) (map[string]int, error) {
	index := make(map[string]int, len(headers))
	for idx, header := range headers {
		if _, ok := index[header]; !ok {
			index[header] = idx
		}
	}

	for _, column := range required {
		if _, ok := index[column]; !ok {
			return nil, &domain.SchemaError{Source: source, Column: column}
		}
	}

	return index, nil
}

func passthrough(headers []string, row []string, exclude []string) map[string]string {
	excluded := make(map[string]bool, len(exclude))
	for _, column := range exclude {
		excluded[column] = true
	}

	attrs := make(map[string]string)
	for idx, header := range headers {
		if excluded[header] {
			continue
		}
		attrs[header] = cell(row, idx)
	}
	return attrs
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func padRow(row []string, length int) []string {
	if len(row) >= length {
		return row[:length]
	}
	padded := make([]string, length)
	copy(padded, row)
	return padded
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
