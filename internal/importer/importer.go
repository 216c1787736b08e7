package importer

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/ledgerport/internal/importer/header"
	"github.com/MrJamesThe3rd/ledgerport/internal/importer/normalize"
	"github.com/MrJamesThe3rd/ledgerport/internal/importer/reconcile"
	"github.com/MrJamesThe3rd/ledgerport/internal/importer/rowkey"
	"github.com/MrJamesThe3rd/ledgerport/internal/importer/tabular"
	"github.com/MrJamesThe3rd/ledgerport/internal/ledger"
)

// Stage names the pipeline phase a fatal error came from.
type Stage string

const (
	StageForm   Stage = "form"
	StageDecode Stage = "decode"
	StageSheet  Stage = "sheet"
	StageEmpty  Stage = "empty"
	StageUpsert Stage = "upsert"
)

var ErrBaseDate = errors.New("base date is not a recognisable date")

// StageError is a whole-import failure tagged with its stage.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// StageOf returns the stage of a StageError in err's chain.
func StageOf(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}

	return "", false
}

const (
	MinScanRows = 8
	MaxScanRows = header.DefaultScanRows

	DefaultSampleRows = 5
)

// Options tune the parser. Zero values select the defaults.
type Options struct {
	HeaderScanRows int
	KeyMode        rowkey.Mode
	SampleRows     int
}

// Column is one resolved header column.
type Column struct {
	Index int    `json:"index"`
	Label string `json:"label"`
}

// Diagnostics explain how a file was read, mainly to debug header misses.
type Diagnostics struct {
	Format         string                   `json:"format"`
	Sheet          string                   `json:"sheet,omitempty"`
	HeaderRow      int                      `json:"header_row"`
	HeaderFallback bool                     `json:"header_fallback"`
	HeaderMap      map[header.Field]Column  `json:"header_map"`
	BaseDate       string                   `json:"base_date,omitempty"`
	SampleIn       [][]string               `json:"sample_in"`
	SampleOut      []*ledger.Entry          `json:"-"`
	Rejected       map[reconcile.Reason]int `json:"rejected"`
	DuplicateKeys  int                      `json:"duplicate_keys"`
}

// Result is a parsed upload ready to be upserted.
type Result struct {
	Entries     []*ledger.Entry
	Scanned     int
	Valid       int
	Diagnostics Diagnostics
}

// Parse runs Decode, Detect, Extract, Reconcile and Key over one upload.
// Row-level problems are tallied in the diagnostics; only whole-file
// failures return an error, always a *StageError.
func Parse(data []byte, filename, baseDate string, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	base, ok := normalize.BaseDate(baseDate)
	if !ok {
		return nil, &StageError{Stage: StageForm, Err: fmt.Errorf("%w: %q", ErrBaseDate, baseDate)}
	}

	table, err := tabular.Decode(data, filename)
	if err != nil {
		return nil, decodeError(err)
	}

	det := header.Detect(table.Rows, opts.HeaderScanRows)

	res := &Result{
		Diagnostics: Diagnostics{
			Format:         string(table.Format),
			Sheet:          table.Sheet,
			HeaderRow:      det.Row,
			HeaderFallback: det.Fallback,
			HeaderMap:      make(map[header.Field]Column, len(det.Map)),
			BaseDate:       base,
			SampleIn:       [][]string{},
			Rejected:       make(map[reconcile.Reason]int),
		},
	}

	for f, i := range det.Map {
		res.Diagnostics.HeaderMap[f] = Column{Index: i, Label: det.Labels[f]}
	}

	var st reconcile.State

	for i, raw := range table.Rows[det.Row+1:] {
		res.Scanned++

		if len(res.Diagnostics.SampleIn) < opts.SampleRows {
			res.Diagnostics.SampleIn = append(res.Diagnostics.SampleIn, raw)
		}

		if tabular.BlankRow(raw) {
			res.Diagnostics.Rejected[reconcile.ReasonBlank]++
			continue
		}

		var out reconcile.Outcome

		out, st = reconcile.Reconcile(st, extract(raw, det.Map, i+1, base))
		if out.Rejected != "" {
			res.Diagnostics.Rejected[out.Rejected]++
			continue
		}

		e, ok := toEntry(out.Row, opts.KeyMode)
		if !ok {
			res.Diagnostics.Rejected[reconcile.ReasonMissingKey]++
			continue
		}

		res.Entries = append(res.Entries, e)

		if len(res.Diagnostics.SampleOut) < opts.SampleRows {
			res.Diagnostics.SampleOut = append(res.Diagnostics.SampleOut, e)
		}
	}

	res.Valid = len(res.Entries)

	return res, nil
}

func (o Options) withDefaults() Options {
	if o.HeaderScanRows <= 0 {
		o.HeaderScanRows = MaxScanRows
	}

	o.HeaderScanRows = min(max(o.HeaderScanRows, MinScanRows), MaxScanRows)

	if o.KeyMode == "" {
		o.KeyMode = rowkey.ModeEncoded
	}

	if o.SampleRows < 0 {
		o.SampleRows = 0
	} else if o.SampleRows == 0 {
		o.SampleRows = DefaultSampleRows
	}

	return o
}

func decodeError(err error) error {
	switch {
	case errors.Is(err, tabular.ErrEmpty):
		return &StageError{Stage: StageEmpty, Err: err}
	case errors.Is(err, tabular.ErrNoSheet):
		return &StageError{Stage: StageSheet, Err: err}
	default:
		return &StageError{Stage: StageDecode, Err: err}
	}
}

// extract builds the typed view of one data row. Only columns named by m
// are read.
func extract(raw []string, m header.Map, line int, base string) reconcile.Row {
	cell := func(f header.Field) string {
		i, ok := m.Index(f)
		if !ok || i >= len(raw) {
			return ""
		}

		return normalize.Text(raw[i])
	}

	num := func(f header.Field) decimal.NullDecimal {
		return normalize.Number(cell(f))
	}

	return reconcile.Row{
		Line:             line,
		Date:             normalize.Date(cell(header.FieldDate), base),
		Code:             cell(header.FieldCode),
		Name:             cell(header.FieldName),
		Item:             cell(header.FieldItem),
		Spec:             cell(header.FieldSpec),
		Unit:             cell(header.FieldUnit),
		Memo:             cell(header.FieldMemo),
		DocNo:            cell(header.FieldDocNo),
		LineNo:           cell(header.FieldLineNo),
		RowKey:           cell(header.FieldRowKey),
		Qty:              num(header.FieldQty),
		UnitPrice:        num(header.FieldUnitPrice),
		Amount:           num(header.FieldAmount),
		Credit:           num(header.FieldCredit),
		Deposit:          num(header.FieldDeposit),
		PrevBalance:      num(header.FieldPrevBalance),
		CurrBalance:      num(header.FieldCurrBalance),
		ProfitLoss:       num(header.FieldProfitLoss),
		HasDepositColumn: m.Has(header.FieldDeposit),
	}
}

func toEntry(r reconcile.Row, mode rowkey.Mode) (*ledger.Entry, bool) {
	key := rowkey.Synthesize(rowkey.Parts{
		Explicit:  r.RowKey,
		Date:      r.Date,
		DocNo:     r.DocNo,
		LineNo:    r.LineNo,
		Code:      r.Code,
		Name:      r.Name,
		Item:      r.Item,
		Spec:      r.Spec,
		Qty:       r.Qty,
		UnitPrice: r.UnitPrice,
		Amount:    r.Amount,
	}, mode)
	if key == "" {
		return nil, false
	}

	date, err := time.Parse(time.DateOnly, r.Date)
	if err != nil {
		return nil, false
	}

	return &ledger.Entry{
		RowKey:       key,
		TxDate:       date,
		CustomerCode: r.Code,
		CustomerName: r.Name,
		DocNo:        r.DocNo,
		LineNo:       r.LineNo,
		ItemName:     r.Item,
		Spec:         r.Spec,
		Unit:         r.Unit,
		Qty:          r.Qty,
		UnitPrice:    r.UnitPrice,
		Amount:       r.Amount,
		Credit:       r.Credit,
		PrevBalance:  r.PrevBalance,
		Deposit:      r.Deposit,
		CurrBalance:  r.CurrBalance,
		ProfitLoss:   r.ProfitLoss,
		Memo:         r.Memo,
	}, true
}
