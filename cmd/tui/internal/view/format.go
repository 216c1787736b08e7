package view

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const dbTimeout = 5 * time.Second

var printer = message.NewPrinter(language.Korean)

// FormatAmount renders a ledger measure with digit grouping. Absent values
// render empty.
func FormatAmount(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}

	return FormatDecimal(d.Decimal)
}

func FormatDecimal(d decimal.Decimal) string {
	if d.IsInteger() {
		return printer.Sprintf("%d", d.IntPart())
	}

	return printer.Sprintf("%.2f", d.InexactFloat64())
}

// FormatDate formats a time.Time into YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}

// DbCtx returns a context with a standard timeout for database operations.
func DbCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), dbTimeout)
}
