package ledger

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/ledgerport/internal/importer"
	"github.com/MrJamesThe3rd/ledgerport/internal/ledger"
)

// entryResponse keeps the read surface's historical names: amount is
// debit, curr_balance is balance and memo is remark.
type entryResponse struct {
	RowKey       string       `json:"erp_row_key"`
	TxDate       string       `json:"tx_date"`
	CustomerCode string       `json:"erp_customer_code"`
	CustomerName string       `json:"customer_name"`
	DocNo        string       `json:"doc_no,omitempty"`
	LineNo       string       `json:"line_no,omitempty"`
	ItemName     string       `json:"item_name"`
	Spec         string       `json:"spec"`
	Unit         string       `json:"unit"`
	Qty          *json.Number `json:"qty"`
	UnitPrice    *json.Number `json:"unit_price"`
	Debit        *json.Number `json:"debit"`
	Credit       *json.Number `json:"credit"`
	PrevBalance  *json.Number `json:"prev_balance"`
	Deposit      *json.Number `json:"deposit"`
	Balance      *json.Number `json:"balance"`
	ProfitLoss   *json.Number `json:"profit_loss"`
	Remark       string       `json:"remark"`
	ImportID     *uuid.UUID   `json:"import_id,omitempty"`
	UpdatedAt    *time.Time   `json:"updated_at,omitempty"`
}

type sumResponse struct {
	Debit   json.Number `json:"debit"`
	Credit  json.Number `json:"credit"`
	Balance json.Number `json:"balance"`
	Deposit json.Number `json:"deposit"`
}

type searchResponse struct {
	Rows     []entryResponse `json:"rows"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	Limit    int             `json:"limit"`
	Sum      sumResponse     `json:"sum"`
	SumScope ledger.SumScope `json:"sum_scope"`
}

type diagnosticsResponse struct {
	importer.Diagnostics
	SampleOut []entryResponse `json:"sample_out"`
}

type importResponse struct {
	ImportID    uuid.UUID           `json:"import_id"`
	Scanned     int                 `json:"scanned"`
	Valid       int                 `json:"valid"`
	Upserted    int64               `json:"upserted"`
	Diagnostics diagnosticsResponse `json:"diagnostics"`
}

type importRunResponse struct {
	ID        uuid.UUID           `json:"id"`
	Filename  string              `json:"filename"`
	Format    string              `json:"format"`
	BaseDate  string              `json:"base_date,omitempty"`
	HeaderRow int                 `json:"header_row"`
	Scanned   int                 `json:"scanned"`
	Valid     int                 `json:"valid"`
	Upserted  int64               `json:"upserted"`
	Status    ledger.ImportStatus `json:"status"`
	Error     string              `json:"error,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

func number(d decimal.NullDecimal) *json.Number {
	if !d.Valid {
		return nil
	}

	return new(json.Number(d.Decimal.String()))
}

func toEntryResponse(e *ledger.Entry) entryResponse {
	resp := entryResponse{
		RowKey:       e.RowKey,
		TxDate:       e.TxDate.Format(time.DateOnly),
		CustomerCode: e.CustomerCode,
		CustomerName: e.CustomerName,
		DocNo:        e.DocNo,
		LineNo:       e.LineNo,
		ItemName:     e.ItemName,
		Spec:         e.Spec,
		Unit:         e.Unit,
		Qty:          number(e.Qty),
		UnitPrice:    number(e.UnitPrice),
		Debit:        number(e.Amount),
		Credit:       number(e.Credit),
		PrevBalance:  number(e.PrevBalance),
		Deposit:      number(e.Deposit),
		Balance:      number(e.CurrBalance),
		ProfitLoss:   number(e.ProfitLoss),
		Remark:       e.Memo,
		ImportID:     e.ImportID,
	}

	if !e.UpdatedAt.IsZero() {
		resp.UpdatedAt = new(e.UpdatedAt)
	}

	return resp
}

func toEntryResponseList(entries []*ledger.Entry) []entryResponse {
	resp := make([]entryResponse, len(entries))
	for i, e := range entries {
		resp[i] = toEntryResponse(e)
	}

	return resp
}

func toSearchResponse(res *ledger.SearchResult) searchResponse {
	return searchResponse{
		Rows:  toEntryResponseList(res.Rows),
		Total: res.Total,
		Page:  res.Page,
		Limit: res.Limit,
		Sum: sumResponse{
			Debit:   json.Number(res.Sum.Debit.String()),
			Credit:  json.Number(res.Sum.Credit.String()),
			Balance: json.Number(res.Sum.Balance.String()),
			Deposit: json.Number(res.Sum.Deposit.String()),
		},
		SumScope: res.SumScope,
	}
}

func toImportResponse(r *importer.Report) importResponse {
	return importResponse{
		ImportID: r.ImportID,
		Scanned:  r.Scanned,
		Valid:    r.Valid,
		Upserted: r.Upserted,
		Diagnostics: diagnosticsResponse{
			Diagnostics: r.Diagnostics,
			SampleOut:   toEntryResponseList(r.Diagnostics.SampleOut),
		},
	}
}

func toImportRunResponse(imp *ledger.Import) importRunResponse {
	resp := importRunResponse{
		ID:        imp.ID,
		Filename:  imp.Filename,
		Format:    imp.Format,
		HeaderRow: imp.HeaderRow,
		Scanned:   imp.Scanned,
		Valid:     imp.Valid,
		Upserted:  imp.Upserted,
		Status:    imp.Status,
		Error:     imp.Error,
		CreatedAt: imp.CreatedAt,
	}

	if imp.BaseDate != nil {
		resp.BaseDate = imp.BaseDate.Format(time.DateOnly)
	}

	return resp
}
