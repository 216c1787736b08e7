// Package rowkey derives the erp_row_key used as the upsert conflict target.
package rowkey

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// Mode selects how a composed key is made safe for storage.
type Mode string

const (
	ModeEncoded Mode = "encoded" // percent-encoded, human readable
	ModeHash    Mode = "hash"    // sha1 hex of the composed key
)

const sep = "|"

// Parts are the normalised fields a key may be composed from.
type Parts struct {
	Explicit  string
	Date      string
	DocNo     string
	LineNo    string
	Code      string
	Name      string
	Item      string
	Spec      string
	Qty       decimal.NullDecimal
	UnitPrice decimal.NullDecimal
	Amount    decimal.NullDecimal
}

// ParseMode validates a configured mode. Blank selects ModeEncoded.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeEncoded:
		return ModeEncoded, nil
	case ModeHash:
		return ModeHash, nil
	default:
		return "", fmt.Errorf("unknown row key mode %q", s)
	}
}

// Synthesize returns the row key for p. An explicit key wins verbatim.
// Otherwise the document tuple is used when a document or line number is
// present, falling back to the content tuple. The result is empty only
// when every contributing field is empty.
func Synthesize(p Parts, mode Mode) string {
	if k := strings.TrimSpace(p.Explicit); k != "" {
		return k
	}

	who := p.Code
	if who == "" {
		who = p.Name
	}

	var fields []string

	if p.DocNo != "" || p.LineNo != "" {
		fields = []string{p.Date, p.DocNo, p.LineNo, who}
	} else {
		fields = []string{p.Date, who, p.Item, p.Spec, num(p.Qty), num(p.UnitPrice), num(p.Amount)}
	}

	if allEmpty(fields) {
		return ""
	}

	raw := strings.Join(fields, sep)

	if mode == ModeHash {
		sum := sha1.Sum([]byte(raw))
		return hex.EncodeToString(sum[:])
	}

	return encode(raw)
}

// encode percent-encodes everything outside the unreserved set, with %20
// for spaces.
func encode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func num(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}

	return d.Decimal.String()
}

func allEmpty(fields []string) bool {
	for _, f := range fields {
		if f != "" {
			return false
		}
	}

	return true
}
