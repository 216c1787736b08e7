package tabular_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/korean"

	"github.com/MrJamesThe3rd/ledgerport/internal/importer/tabular"
)

func buildXLSX(t *testing.T, rows [][]any) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	return buf.Bytes()
}

func TestSniff(t *testing.T) {
	type args struct {
		data     []byte
		filename string
	}

	type testCase struct {
		name string
		args args
		want tabular.Format
	}

	tests := []testCase{
		{
			name: "ZipSignature",
			args: args{data: []byte("PK\x03\x04rest"), filename: "ledger.csv"},
			want: tabular.FormatXLSX,
		},
		{
			name: "OLESignature",
			args: args{data: []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1, 0x00}, filename: "upload"},
			want: tabular.FormatXLS,
		},
		{
			name: "ExtensionFallback",
			args: args{data: []byte("garbage"), filename: "LEDGER.XLSX"},
			want: tabular.FormatXLSX,
		},
		{
			name: "DefaultCSV",
			args: args{data: []byte("일자,코드\n"), filename: ""},
			want: tabular.FormatCSV,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tabular.Sniff(tt.args.data, tt.args.filename))
		})
	}
}

func TestDecode_CSV(t *testing.T) {
	csv := "\xEF\xBB\xBF매출원장 2025-11\n" +
		" 일자 , 코드 ,거래처\n" +
		"2025-11-01,C1, 가가 \n" +
		",,\n"

	table, err := tabular.Decode([]byte(csv), "ledger.csv")
	require.NoError(t, err)

	assert.Equal(t, tabular.FormatCSV, table.Format)
	require.Len(t, table.Rows, 4)
	assert.Equal(t, []string{"매출원장 2025-11"}, table.Rows[0])
	assert.Equal(t, []string{"일자", "코드", "거래처"}, table.Rows[1])
	assert.Equal(t, []string{"2025-11-01", "C1", "가가"}, table.Rows[2])
	assert.True(t, tabular.BlankRow(table.Rows[3]))
}

func TestDecode_CSVSemicolonAndEUCKR(t *testing.T) {
	text := "매출원장\n일자;거래처;금액\n2025-11-01;가가;\"1,000\"\n"

	encoded, err := korean.EUCKR.NewEncoder().Bytes([]byte(text))
	require.NoError(t, err)

	table, err := tabular.Decode(encoded, "export.csv")
	require.NoError(t, err)

	require.Len(t, table.Rows, 3)
	assert.Equal(t, []string{"일자", "거래처", "금액"}, table.Rows[1])
	assert.Equal(t, []string{"2025-11-01", "가가", "1,000"}, table.Rows[2])
}

func TestDecode_XLSX(t *testing.T) {
	data := buildXLSX(t, [][]any{
		{"거래처원장"},
		{"일자", "코드", "거래처", "품명", "수량", "단가"},
		{45962, "C1", "가가", "사과", 10, 1000},
		{"2025-11-02", "", "", "배", 5, 2000},
	})

	table, err := tabular.Decode(data, "upload.bin")
	require.NoError(t, err)

	assert.Equal(t, tabular.FormatXLSX, table.Format)
	assert.Equal(t, "Sheet1", table.Sheet)
	require.Len(t, table.Rows, 4)
	assert.Equal(t, []string{"거래처원장"}, table.Rows[0])
	assert.Equal(t, []string{"일자", "코드", "거래처", "품명", "수량", "단가"}, table.Rows[1])
	assert.Equal(t, "45962", table.Rows[2][0])
	assert.Equal(t, "10", table.Rows[2][4])
	assert.Equal(t, "2025-11-02", table.Rows[3][0])
}

func TestDecode_Errors(t *testing.T) {
	type testCase struct {
		name    string
		data    []byte
		wantErr error
	}

	tests := []testCase{
		{name: "Empty", data: nil, wantErr: tabular.ErrEmpty},
		{name: "Whitespace", data: []byte("  \n\t\n"), wantErr: tabular.ErrEmpty},
		{name: "OnlySeparators", data: []byte(",,,\n, ,\n"), wantErr: tabular.ErrEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tabular.Decode(tt.data, "x.csv")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDecode_CorruptWorkbook(t *testing.T) {
	data := append([]byte("PK\x03\x04"), bytes.Repeat([]byte{0x01}, 64)...)

	_, err := tabular.Decode(data, "broken.xlsx")
	require.Error(t, err)
	assert.NotErrorIs(t, err, tabular.ErrEmpty)
	assert.NotErrorIs(t, err, tabular.ErrNoSheet)
}
