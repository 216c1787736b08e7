// Package reconcile applies the ledger business rules to one typed row at a
// time. Callers fold Reconcile over the data region in source order,
// threading State from one call to the next.
package reconcile

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/cloudflare/ahocorasick"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/ledgerport/internal/importer/normalize"
)

// DepositLabel replaces a blank item name on deposit rows.
const DepositLabel = "입금"

// slugRunes bounds the length of a code synthesised from a customer name.
const slugRunes = 24

var (
	subtotalMarkers = ahocorasick.NewStringMatcher([]string{"합계", "총계", "소계"})
	depositMarkers  = ahocorasick.NewStringMatcher([]string{"입금", "수금"})

	rePlaceholder = regexp.MustCompile(`(?i)^UNK-\d+$`)
)

// Kind separates sales from deposits. The two populate amount fields
// differently.
type Kind string

const (
	KindSale    Kind = "sale"
	KindDeposit Kind = "deposit"
)

// Reason names why a row was left out of the valid set.
type Reason string

const (
	ReasonBlank           Reason = "blank"
	ReasonSubtotal        Reason = "subtotal"
	ReasonMissingDate     Reason = "missing_date"
	ReasonMissingIdentity Reason = "missing_identity"
	ReasonMissingKey      Reason = "missing_key"
)

// Reasons lists every rejection reason in reporting order.
func Reasons() []Reason {
	return []Reason{ReasonBlank, ReasonSubtotal, ReasonMissingDate, ReasonMissingIdentity, ReasonMissingKey}
}

// Row is the header-indexed, typed view of one data row. Number fields are
// invalid when the source cell was absent or not numeric.
type Row struct {
	Line int // 1-based position within the data region

	Date   string // ISO date, empty when missing
	Code   string
	Name   string
	Item   string
	Spec   string
	Unit   string
	Memo   string
	DocNo  string
	LineNo string
	RowKey string

	Qty         decimal.NullDecimal
	UnitPrice   decimal.NullDecimal
	Amount      decimal.NullDecimal
	Credit      decimal.NullDecimal
	Deposit     decimal.NullDecimal
	PrevBalance decimal.NullDecimal
	CurrBalance decimal.NullDecimal
	ProfitLoss  decimal.NullDecimal

	// HasDepositColumn is set when the header maps a deposit column.
	HasDepositColumn bool
}

// State carries the last real customer identity seen in the current import.
type State struct {
	LastName string
	LastCode string
}

// Outcome is the reconciled row. Rejected is empty for rows that pass.
type Outcome struct {
	Row      Row
	Kind     Kind
	Rejected Reason
}

// Reconcile applies subtotal filtering, identity carry-forward, deposit
// classification, amount derivation and code synthesis to r. The date gate
// runs last so that rejected rows still show what would have been
// extracted.
func Reconcile(st State, r Row) (Outcome, State) {
	if isSubtotal(r) {
		return Outcome{Row: r, Rejected: ReasonSubtotal}, st
	}

	r, st = carryForward(st, r)

	kind := classify(r)
	if kind == KindDeposit {
		r = applyDeposit(r)
	} else {
		r = deriveSale(r)
	}

	if r.Code == "" || r.Code == "0" {
		r.Code = synthesizeCode(r.Name, r.Line)
	}

	out := Outcome{Row: r, Kind: kind}

	switch {
	case r.Date == "":
		out.Rejected = ReasonMissingDate
	case r.Code == "" && r.Name == "":
		out.Rejected = ReasonMissingIdentity
	}

	return out, st
}

// IsPlaceholder reports whether code was synthesised from a row position.
func IsPlaceholder(code string) bool {
	return rePlaceholder.MatchString(code)
}

func isSubtotal(r Row) bool {
	return contains(subtotalMarkers, r.Name) || contains(subtotalMarkers, r.Item) || contains(subtotalMarkers, r.Memo)
}

func carryForward(st State, r Row) (Row, State) {
	if r.Name == "" && st.LastName != "" {
		r.Name = st.LastName
	}

	if (r.Code == "" || r.Code == "0" || IsPlaceholder(r.Code)) && st.LastCode != "" {
		r.Code = st.LastCode
	}

	if r.Name != "" {
		st.LastName = r.Name
	}

	if r.Code != "" && r.Code != "0" && !IsPlaceholder(r.Code) {
		st.LastCode = r.Code
	}

	return r, st
}

// classify checks markers before column presence, so a row that looks like
// both a sale and a deposit is treated as a deposit.
func classify(r Row) Kind {
	if contains(depositMarkers, r.Item) || contains(depositMarkers, r.Memo) {
		return KindDeposit
	}

	if r.HasDepositColumn && r.Item == "" && r.Memo == "" {
		return KindDeposit
	}

	return KindSale
}

func applyDeposit(r Row) Row {
	for _, c := range []decimal.NullDecimal{r.Deposit, r.Amount, r.CurrBalance} {
		if c.Valid {
			r.Deposit = c
			break
		}
	}

	r.Amount = decimal.NullDecimal{}

	if r.Item == "" {
		r.Item = DepositLabel
	}

	return r
}

func deriveSale(r Row) Row {
	if !r.Qty.Valid || r.Qty.Decimal.IsZero() {
		return r
	}

	if !r.Amount.Valid && r.UnitPrice.Valid {
		r.Amount = decimal.NewNullDecimal(normalize.Round(r.Qty.Decimal.Mul(r.UnitPrice.Decimal)))
	}

	if !r.UnitPrice.Valid && r.Amount.Valid {
		r.UnitPrice = decimal.NewNullDecimal(normalize.Round(r.Amount.Decimal.Div(r.Qty.Decimal)))
	}

	return r
}

func synthesizeCode(name string, line int) string {
	if s := Slug(name); s != "" {
		return s
	}

	return "UNK-" + strconv.Itoa(line)
}

// Slug keeps the letters and digits of s, Hangul included, and truncates
// to the first 24 of them.
func Slug(s string) string {
	var b strings.Builder

	n := 0

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}

		b.WriteRune(r)

		n++
		if n == slugRunes {
			break
		}
	}

	return b.String()
}

func contains(m *ahocorasick.Matcher, s string) bool {
	if s == "" {
		return false
	}

	return len(m.MatchThreadSafe([]byte(s))) > 0
}
