package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// csvRow fixes the export column order and its Korean header. Every header
// is a recognised import synonym, so an exported file imports back under the
// same row keys.
type csvRow struct {
	CustomerName string `csv:"거래처"`
	CustomerCode string `csv:"코드"`
	ItemName     string `csv:"품명"`
	Spec         string `csv:"규격"`
	Unit         string `csv:"단위"`
	Qty          string `csv:"수량"`
	UnitPrice    string `csv:"단가"`
	Debit        string `csv:"매출금액"`
	PrevBalance  string `csv:"전일잔액"`
	Deposit      string `csv:"입금액"`
	Balance      string `csv:"금일잔액"`
	Remark       string `csv:"비고"`
	ProfitLoss   string `csv:"손익"`
	TxDate       string `csv:"일자"`
	DocNo        string `csv:"전표"`
	LineNo       string `csv:"라인"`
	RowKey       string `csv:"erp_row_key"`
}

// WriteCSV writes entries as a BOM-prefixed, CRLF-terminated CSV that
// spreadsheet tools open as UTF-8.
func WriteCSV(w io.Writer, entries []*Entry) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("writing bom: %w", err)
	}

	rows := make([]csvRow, len(entries))
	for i, e := range entries {
		rows[i] = csvRow{
			CustomerName: e.CustomerName,
			CustomerCode: e.CustomerCode,
			ItemName:     e.ItemName,
			Spec:         e.Spec,
			Unit:         e.Unit,
			Qty:          numText(e.Qty),
			UnitPrice:    numText(e.UnitPrice),
			Debit:        numText(e.Amount),
			PrevBalance:  numText(e.PrevBalance),
			Deposit:      numText(e.Deposit),
			Balance:      numText(e.CurrBalance),
			Remark:       e.Memo,
			ProfitLoss:   numText(e.ProfitLoss),
			TxDate:       e.TxDate.Format(time.DateOnly),
			DocNo:        e.DocNo,
			LineNo:       e.LineNo,
			RowKey:       e.RowKey,
		}
	}

	cw := csv.NewWriter(w)
	cw.UseCRLF = true

	if err := gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(cw)); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}

	return nil
}

func numText(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}

	return d.Decimal.String()
}
