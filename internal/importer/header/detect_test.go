package header_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/ledgerport/internal/importer/header"
)

func TestMatcher_Classify(t *testing.T) {
	type testCase struct {
		name   string
		cell   string
		want   header.Field
		wantOK bool
	}

	tests := []testCase{
		{name: "Exact", cell: "일자", want: header.FieldDate, wantOK: true},
		{name: "DecoratedCode", cell: "거래처코드(ERP)", want: header.FieldCode, wantOK: true},
		{name: "NameNotCode", cell: "거래처명", want: header.FieldName, wantOK: true},
		{name: "BareCustomer", cell: "거래처", want: header.FieldName, wantOK: true},
		{name: "DepositOverAmount", cell: "입금액", want: header.FieldDeposit, wantOK: true},
		{name: "PrevBalanceOverBalance", cell: "전일잔액", want: header.FieldPrevBalance, wantOK: true},
		{name: "CurrBalance", cell: "금일잔액", want: header.FieldCurrBalance, wantOK: true},
		{name: "DocDateIsDate", cell: "전표일자", want: header.FieldDate, wantOK: true},
		{name: "DocNumber", cell: "전표번호", want: header.FieldDocNo, wantOK: true},
		{name: "ShortLine", cell: "라인", want: header.FieldLineNo, wantOK: true},
		{name: "ItemSpec", cell: "품목규격", want: header.FieldSpec, wantOK: true},
		{name: "SalesAmount", cell: "매출금액", want: header.FieldAmount, wantOK: true},
		{name: "EnglishCaseInsensitive", cell: "Unit Price", want: header.FieldUnitPrice, wantOK: true},
		{name: "EnglishSpacedKey", cell: " ERP_ROW_KEY ", want: header.FieldRowKey, wantOK: true},
		{name: "InnerSpaces", cell: "거래처 코드", want: header.FieldCode, wantOK: true},
		{name: "Unknown", cell: "담당자", wantOK: false},
		{name: "Blank", cell: "  ", wantOK: false},
	}

	m := header.NewMatcher()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := m.Classify(tt.cell)
			assert.Equal(t, tt.wantOK, ok)

			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestColumns(t *testing.T) {
	got := header.Columns([]string{"일자", "코드", "거래처", "품명", "수량", "단가", "담당자"})

	assert.Equal(t, header.Map{
		header.FieldDate:      0,
		header.FieldCode:      1,
		header.FieldName:      2,
		header.FieldItem:      3,
		header.FieldQty:       4,
		header.FieldUnitPrice: 5,
	}, got)
	assert.False(t, got.Has(header.FieldAmount))
}

func TestColumns_FirstColumnWins(t *testing.T) {
	got := header.Columns([]string{"금액", "일자", "공급가액"})

	idx, ok := got.Index(header.FieldAmount)
	require.True(t, ok)
	assert.Equal(t, 0, idx)
}

func TestDetect_HeaderBelowBanners(t *testing.T) {
	headerRow := []string{"일자", "코드", "거래처", "품명", "수량", "단가"}
	banners := [][]string{
		{"거래처별 매출원장"},
		{},
		{"기간: 2025-11-01 ~ 2025-11-30"},
	}

	for above := 0; above <= 3; above++ {
		for pos := above; pos < 8; pos++ {
			t.Run(fmt.Sprintf("above=%d/pos=%d", above, pos), func(t *testing.T) {
				var grid [][]string

				for i := 0; i < pos; i++ {
					if i < above {
						grid = append(grid, banners[i%len(banners)])
						continue
					}

					grid = append(grid, []string{})
				}

				grid = append(grid, headerRow)
				grid = append(grid, []string{"2025-11-01", "C1", "가가", "사과", "10", "1000"})

				d := header.Detect(grid, 8)
				assert.Equal(t, pos, d.Row)
				assert.Equal(t, 6, d.Score)
				assert.False(t, d.Fallback)
			})
		}
	}
}

func TestDetect_TieGoesToEarliestRow(t *testing.T) {
	grid := [][]string{
		{"title"},
		{"일자", "거래처"},
		{"거래일자", "고객명"},
	}

	d := header.Detect(grid, 10)
	assert.Equal(t, 1, d.Row)
	assert.Equal(t, "거래처", d.Labels[header.FieldName])
}

func TestDetect_Fallback(t *testing.T) {
	grid := [][]string{
		{"거래처", "x", "y"},
		{"a", "b", "c"},
	}

	d := header.Detect(grid, 10)
	assert.True(t, d.Fallback)
	assert.Equal(t, 0, d.Row)
	assert.Equal(t, header.Map{header.FieldName: 0}, d.Map)
}

func TestDetect_RespectsScanBound(t *testing.T) {
	grid := make([][]string, 0, 12)
	for i := 0; i < 10; i++ {
		grid = append(grid, []string{"banner"})
	}

	grid = append(grid, []string{"일자", "코드", "거래처"})

	d := header.Detect(grid, 8)
	assert.True(t, d.Fallback)
	assert.Equal(t, 0, d.Row)

	d = header.Detect(grid, 30)
	assert.False(t, d.Fallback)
	assert.Equal(t, 10, d.Row)
}

func TestDetect_EmptyGrid(t *testing.T) {
	d := header.Detect(nil, 8)
	assert.True(t, d.Fallback)
	assert.Empty(t, d.Map)
}
