package normalize_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/ledgerport/internal/importer/normalize"
)

func TestSerialToDate(t *testing.T) {
	assert.Equal(t, "1899-12-31", normalize.SerialToDate(1).Format(time.DateOnly))
	assert.Equal(t, "1900-03-01", normalize.SerialToDate(61).Format(time.DateOnly))
	assert.Equal(t, "2025-11-01", normalize.SerialToDate(45962).Format(time.DateOnly))
	assert.Equal(t, "2025-11-09", normalize.SerialToDate(45970).Format(time.DateOnly))
}

func TestDate(t *testing.T) {
	type args struct {
		raw  string
		base string
	}

	type testCase struct {
		name string
		args args
		want string
	}

	tests := []testCase{
		{name: "ISO", args: args{raw: "2025-11-09"}, want: "2025-11-09"},
		{name: "ISOPadded", args: args{raw: "  2025-11-09 "}, want: "2025-11-09"},
		{name: "Compact", args: args{raw: "20251109"}, want: "2025-11-09"},
		{name: "Serial", args: args{raw: "45970"}, want: "2025-11-09"},
		{name: "SerialWithTime", args: args{raw: "45970.75"}, want: "2025-11-09"},
		{name: "Dotted", args: args{raw: "2025.11.09"}, want: "2025-11-09"},
		{name: "DottedTrailing", args: args{raw: "2025. 11. 9."}, want: "2025-11-09"},
		{name: "Slashed", args: args{raw: "2025/11/9"}, want: "2025-11-09"},
		{name: "TwoDigitYear", args: args{raw: "25-11-9"}, want: "2025-11-09"},
		{name: "KoreanUnits", args: args{raw: "2025년 11월 9일"}, want: "2025-11-09"},
		{name: "DateTime", args: args{raw: "2025-11-09 13:45:00"}, want: "2025-11-09"},
		{name: "RFC3339", args: args{raw: "2025-11-09T13:45:00+09:00"}, want: "2025-11-09"},
		{name: "USLayout", args: args{raw: "11/9/2025"}, want: "2025-11-09"},
		{name: "EnglishMonth", args: args{raw: "Nov 9, 2025"}, want: "2025-11-09"},
		{name: "SmallNumberIsNotSerial", args: args{raw: "1500"}, want: ""},
		{name: "LargeNumberIsNotSerial", args: args{raw: "123456"}, want: ""},
		{name: "InvalidISOMonth", args: args{raw: "2025-13-01"}, want: ""},
		{name: "InvalidDay", args: args{raw: "2025.02.30"}, want: ""},
		{name: "Garbage", args: args{raw: "합계"}, want: ""},
		{name: "BlankUsesBase", args: args{raw: "", base: "2025-11-01"}, want: "2025-11-01"},
		{name: "GarbageUsesBase", args: args{raw: "n/a", base: "2025-11-01"}, want: "2025-11-01"},
		{name: "ParsedBeatsBase", args: args{raw: "20251109", base: "2025-11-01"}, want: "2025-11-09"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalize.Date(tt.args.raw, tt.args.base))
		})
	}
}

func TestBaseDate(t *testing.T) {
	got, ok := normalize.BaseDate("")
	assert.True(t, ok)
	assert.Empty(t, got)

	got, ok = normalize.BaseDate("2025.11.01")
	assert.True(t, ok)
	assert.Equal(t, "2025-11-01", got)

	_, ok = normalize.BaseDate("yesterday")
	assert.False(t, ok)
}

func TestNumber(t *testing.T) {
	type testCase struct {
		name  string
		raw   string
		want  string
		valid bool
	}

	tests := []testCase{
		{name: "Plain", raw: "1000", want: "1000", valid: true},
		{name: "Thousands", raw: "1,234,567", want: "1234567", valid: true},
		{name: "Currency", raw: "₩ 15,000원", want: "15000", valid: true},
		{name: "NonBreakingSpace", raw: "12\u00a0000", want: "12000", valid: true},
		{name: "Parenthesised", raw: "(1,500)", want: "-1500", valid: true},
		{name: "Negative", raw: "-42", want: "-42", valid: true},
		{name: "Fraction", raw: "3.25", want: "3.25", valid: true},
		{name: "Zero", raw: "0", want: "0", valid: true},
		{name: "Blank", raw: "   ", valid: false},
		{name: "Dash", raw: "-", valid: false},
		{name: "Text", raw: "합계", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalize.Number(tt.raw)
			require.Equal(t, tt.valid, got.Valid)

			if tt.valid {
				assert.True(t, decimal.RequireFromString(tt.want).Equal(got.Decimal), "got %s", got.Decimal)
			}
		})
	}
}

func TestRound(t *testing.T) {
	assert.Equal(t, "3", normalize.Round(decimal.RequireFromString("2.5")).String())
	assert.Equal(t, "-3", normalize.Round(decimal.RequireFromString("-2.5")).String())
	assert.Equal(t, "2", normalize.Round(decimal.RequireFromString("2.49")).String())
}
