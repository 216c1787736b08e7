package ledger

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("not found")

// Entry is one line of a customer's transaction history, keyed by RowKey.
type Entry struct {
	RowKey       string
	TxDate       time.Time
	CustomerCode string
	CustomerName string
	DocNo        string
	LineNo       string
	ItemName     string
	Spec         string
	Unit         string
	Qty          decimal.NullDecimal
	UnitPrice    decimal.NullDecimal
	Amount       decimal.NullDecimal // sale value, exposed as "debit"
	Credit       decimal.NullDecimal
	PrevBalance  decimal.NullDecimal
	Deposit      decimal.NullDecimal
	CurrBalance  decimal.NullDecimal // exposed as "balance"
	ProfitLoss   decimal.NullDecimal
	Memo         string // exposed as "remark"
	ImportID     *uuid.UUID
	UpdatedAt    time.Time
}

// ImportStatus is the lifecycle state of an import run.
type ImportStatus string

const (
	ImportRunning   ImportStatus = "running"
	ImportCompleted ImportStatus = "completed"
	ImportFailed    ImportStatus = "failed"
)

// Import is one row of the import journal.
type Import struct {
	ID        uuid.UUID
	Filename  string
	Format    string
	BaseDate  *time.Time
	HeaderRow int
	Scanned   int
	Valid     int
	Upserted  int64
	Status    ImportStatus
	Error     string
	CreatedAt time.Time
}

// SumScope says which rows a search aggregate covers.
type SumScope string

const (
	SumScopeFilter SumScope = "filter" // every row matching the filter
	SumScopePage   SumScope = "page"   // only the returned page
)

// Sum aggregates the measure columns of a set of entries.
type Sum struct {
	Debit   decimal.Decimal
	Credit  decimal.Decimal
	Balance decimal.Decimal
	Deposit decimal.Decimal
}

// Add accumulates e into s. Absent values count as zero.
func (s Sum) Add(e *Entry) Sum {
	s.Debit = s.Debit.Add(orZero(e.Amount))
	s.Credit = s.Credit.Add(orZero(e.Credit))
	s.Balance = s.Balance.Add(orZero(e.CurrBalance))
	s.Deposit = s.Deposit.Add(orZero(e.Deposit))

	return s
}

func orZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}

	return d.Decimal
}
