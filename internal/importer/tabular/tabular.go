// Package tabular turns uploaded ledger files into a rectangular grid of
// trimmed cell strings. It knows nothing about headers or field meaning.
package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"

	enc "github.com/MrJamesThe3rd/ledgerport/internal/encoding"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
)

var (
	ErrNoSheet = errors.New("workbook has no sheets")
	ErrEmpty   = errors.New("file has no content")
)

var (
	magicZIP = []byte{'P', 'K', 0x03, 0x04}
	magicOLE = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// Grid is the decoded sheet: rows in source order, each row's cells in
// column order. Rows may have different lengths.
type Grid [][]string

// Table is a decoded upload.
type Table struct {
	Format Format
	Sheet  string
	Rows   Grid
}

// Sniff picks the decoder for the payload. Container signatures win over
// the file name; anything unrecognised is treated as delimited text.
func Sniff(data []byte, filename string) Format {
	switch {
	case bytes.HasPrefix(data, magicZIP):
		return FormatXLSX
	case bytes.HasPrefix(data, magicOLE):
		return FormatXLS
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".xls":
		return FormatXLS
	}

	return FormatCSV
}

// Decode reads the whole payload into a Table. The first sheet of a
// workbook is used and every row is kept, including banner rows above
// the header.
func Decode(data []byte, filename string) (*Table, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmpty
	}

	t := &Table{Format: Sniff(data, filename)}

	var err error

	switch t.Format {
	case FormatXLSX:
		t.Sheet, t.Rows, err = decodeXLSX(data)
	case FormatXLS:
		t.Sheet, t.Rows, err = decodeXLS(data)
	default:
		t.Rows, err = DecodeCSV(bytes.NewReader(data))
	}

	if err != nil {
		return nil, err
	}

	if t.Rows.Blank() {
		return nil, ErrEmpty
	}

	return t, nil
}

// DecodeCSV reads delimited text in any encoding NewUTF8Reader understands.
// The delimiter is sniffed from the first non-blank line.
func DecodeCSV(r io.Reader) (Grid, error) {
	utf8r, err := enc.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	text, err := io.ReadAll(utf8r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	reader := csv.NewReader(bytes.NewReader(text))
	reader.Comma = detectDelimiter(text)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	grid := make(Grid, 0, len(records))
	for _, rec := range records {
		grid = append(grid, trimRow(rec))
	}

	return grid, nil
}

func decodeXLSX(data []byte) (string, Grid, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", nil, ErrNoSheet
	}

	// Raw values keep date cells as serial numbers instead of whatever
	// display format the exporting ERP chose.
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return "", nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	grid := make(Grid, 0, len(rows))
	for _, row := range rows {
		grid = append(grid, trimRow(row))
	}

	return sheets[0], grid, nil
}

func decodeXLS(data []byte) (string, Grid, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", nil, fmt.Errorf("open xls: %w", err)
	}

	if len(workbook.GetSheets()) == 0 {
		return "", nil, ErrNoSheet
	}

	sheet, err := workbook.GetSheet(0)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrNoSheet, err)
	}

	var grid Grid

	for _, row := range sheet.GetRows() {
		cols := row.GetCols()

		cells := make([]string, 0, len(cols))
		for _, cell := range cols {
			cells = append(cells, strings.TrimSpace(cell.GetString()))
		}

		grid = append(grid, cells)
	}

	return "", grid, nil
}

// Blank reports whether every cell of the grid is empty.
func (g Grid) Blank() bool {
	for _, row := range g {
		if !BlankRow(row) {
			return false
		}
	}

	return true
}

// BlankRow reports whether every cell trims to empty.
func BlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}

	return true
}

func trimRow(row []string) []string {
	out := make([]string, len(row))
	for i, c := range row {
		out[i] = strings.TrimSpace(c)
	}

	return out
}

// detectDelimiter counts candidate separators over the first few non-blank
// lines, so a banner line without separators does not decide the result.
// Comma wins ties and is the default.
func detectDelimiter(text []byte) rune {
	const sampleLines = 10

	var sample strings.Builder

	n := 0

	for l := range strings.Lines(string(text)) {
		if strings.TrimSpace(l) == "" {
			continue
		}

		sample.WriteString(l)

		if n++; n == sampleLines {
			break
		}
	}

	best, bestCount := ',', 0

	for _, d := range []rune{',', ';', '\t', '|'} {
		if c := strings.Count(sample.String(), string(d)); c > bestCount {
			best, bestCount = d, c
		}
	}

	return best
}
