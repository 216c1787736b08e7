package ledger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	ledgerhttp "github.com/MrJamesThe3rd/ledgerport/internal/http/ledger"
	"github.com/MrJamesThe3rd/ledgerport/internal/importer"
	"github.com/MrJamesThe3rd/ledgerport/internal/ledger"
)

const scenarioCSV = "일자,코드,거래처,품명,수량,단가\n" +
	"2025-11-01,C1,가가,사과,10,1000\n" +
	"2025-11-02,,,배,5,2000\n"

func newRouter(t *testing.T, maxUpload int64) (*ledger.MockRepository, http.Handler) {
	t.Helper()

	ctrl := gomock.NewController(t)
	repo := ledger.NewMockRepository(ctrl)

	ledgerSvc := ledger.NewService(repo, ledger.Options{})
	importSvc := importer.NewService(ledgerSvc, importer.Options{}, nil)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Route("/api/v1/ledger", ledgerhttp.NewHandler(importSvc, ledgerSvc, maxUpload).Routes)

	return repo, r
}

func uploadRequest(t *testing.T, filename, content string, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer

	mw := multipart.NewWriter(&body)

	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)

		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}

	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}

	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ledger/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))

	return out
}

func TestHandler_Import(t *testing.T) {
	repo, router := newRouter(t, 1<<20)

	repo.EXPECT().CreateImport(gomock.Any(), gomock.Any()).Return(nil)
	repo.EXPECT().UpsertEntries(gomock.Any(), gomock.Len(2)).Return(int64(2), nil)
	repo.EXPECT().FinishImport(gomock.Any(), gomock.Any()).Return(nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "nov.csv", scenarioCSV, map[string]string{"base_date": "2025-11-30"}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.EqualValues(t, 2, body["scanned"])
	assert.EqualValues(t, 2, body["valid"])
	assert.EqualValues(t, 2, body["upserted"])
	assert.NotEmpty(t, body["import_id"])

	diag := body["diagnostics"].(map[string]any)
	assert.Equal(t, "csv", diag["format"])
	assert.EqualValues(t, 0, diag["header_row"])
	assert.Equal(t, "2025-11-30", diag["base_date"])

	samples := diag["sample_out"].([]any)
	require.Len(t, samples, 2)

	second := samples[1].(map[string]any)
	assert.Equal(t, "C1", second["erp_customer_code"])
	assert.Equal(t, "가가", second["customer_name"])
	assert.EqualValues(t, 10000, second["debit"])
	assert.Nil(t, second["balance"])
}

func TestHandler_Import_Errors(t *testing.T) {
	type args struct {
		filename string
		content  string
		fields   map[string]string
	}

	type testCase struct {
		name   string
		args   args
		status int
		stage  string
	}

	tests := []testCase{
		{
			name:   "MissingFile",
			args:   args{fields: map[string]string{"base_date": "2025-11-01"}},
			status: http.StatusBadRequest,
			stage:  "form",
		},
		{
			name:   "EmptyFile",
			args:   args{filename: "empty.csv", content: "  \n"},
			status: http.StatusBadRequest,
			stage:  "empty",
		},
		{
			name:   "CorruptWorkbook",
			args:   args{filename: "broken.xlsx", content: "PK\x03\x04garbage"},
			status: http.StatusBadRequest,
			stage:  "decode",
		},
		{
			name:   "BadBaseDate",
			args:   args{filename: "nov.csv", content: scenarioCSV, fields: map[string]string{"base_date": "tomorrow"}},
			status: http.StatusBadRequest,
			stage:  "form",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, router := newRouter(t, 1<<20)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, uploadRequest(t, tt.args.filename, tt.args.content, tt.args.fields))

			require.Equal(t, tt.status, rec.Code, rec.Body.String())

			body := decodeBody(t, rec)
			assert.Equal(t, tt.stage, body["stage"])
			assert.Equal(t, tt.stage, body["error"].(map[string]any)["code"])
			assert.NotEmpty(t, body["request_id"])
		})
	}
}

func TestHandler_Import_TooLarge(t *testing.T) {
	_, router := newRouter(t, 64)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "big.csv", strings.Repeat(scenarioCSV, 10), nil))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "form", decodeBody(t, rec)["stage"])
}

func TestHandler_Import_UpsertFailure(t *testing.T) {
	repo, router := newRouter(t, 1<<20)

	repo.EXPECT().CreateImport(gomock.Any(), gomock.Any()).Return(nil)
	repo.EXPECT().UpsertEntries(gomock.Any(), gomock.Any()).Return(int64(0), errors.New("deadlock detected"))
	repo.EXPECT().FinishImport(gomock.Any(), gomock.Any()).Return(nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "nov.csv", scenarioCSV, nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "upsert", body["stage"])

	errBody := body["error"].(map[string]any)
	assert.Contains(t, errBody["message"], "deadlock detected")

	details := errBody["details"].(map[string]any)
	assert.EqualValues(t, 2, details["valid"])
	assert.EqualValues(t, 0, details["upserted"])
}

func TestHandler_Search(t *testing.T) {
	repo, router := newRouter(t, 0)

	from := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)

	rows := []*ledger.Entry{{
		RowKey:       "k1",
		TxDate:       from,
		CustomerCode: "C1",
		CustomerName: "가가",
		ItemName:     "사과",
		Amount:       decimal.NewNullDecimal(decimal.NewFromInt(10000)),
		CurrBalance:  decimal.NewNullDecimal(decimal.NewFromInt(52000)),
		Memo:         "11월분",
	}}

	repo.EXPECT().SearchEntries(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, f ledger.SearchFilter) ([]*ledger.Entry, error) {
		require.NotNil(t, f.From)
		assert.True(t, from.Equal(*f.From))
		assert.Nil(t, f.To)
		assert.Equal(t, "가가", f.Query)
		assert.Equal(t, 10, f.Limit)
		assert.Equal(t, 10, f.Offset)
		return rows, nil
	})
	repo.EXPECT().CountEntries(gomock.Any(), gomock.Any()).Return(11, nil)
	repo.EXPECT().SumEntries(gomock.Any(), gomock.Any()).Return(ledger.Sum{
		Debit:   decimal.NewFromInt(110000),
		Balance: decimal.NewFromInt(52000),
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ledger/search?date_from=2025-11-01&q=%EA%B0%80%EA%B0%80&page=2&limit=10", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.EqualValues(t, 11, body["total"])
	assert.EqualValues(t, 2, body["page"])
	assert.EqualValues(t, 10, body["limit"])
	assert.Equal(t, "filter", body["sum_scope"])

	sum := body["sum"].(map[string]any)
	assert.EqualValues(t, 110000, sum["debit"])
	assert.EqualValues(t, 0, sum["credit"])

	got := body["rows"].([]any)
	require.Len(t, got, 1)

	row := got[0].(map[string]any)
	assert.Equal(t, "2025-11-01", row["tx_date"])
	assert.EqualValues(t, 10000, row["debit"])
	assert.EqualValues(t, 52000, row["balance"])
	assert.Equal(t, "11월분", row["remark"])
}

func TestHandler_Search_BadQuery(t *testing.T) {
	for _, q := range []string{"date_from=2025/13/01", "date_to=yesterday", "page=0", "limit=abc"} {
		t.Run(q, func(t *testing.T) {
			_, router := newRouter(t, 0)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ledger/search?"+q, nil))

			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "query", decodeBody(t, rec)["stage"])
		})
	}
}

func TestHandler_Search_CSV(t *testing.T) {
	repo, router := newRouter(t, 0)

	repo.EXPECT().SearchEntries(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, f ledger.SearchFilter) ([]*ledger.Entry, error) {
		assert.Equal(t, ledger.DefaultExportMax, f.Limit)
		assert.Zero(t, f.Offset)
		return []*ledger.Entry{{
			RowKey:       "k1",
			TxDate:       time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC),
			CustomerCode: "C1",
			CustomerName: "가가",
		}}, nil
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ledger/search?format=csv&page=3", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="ledger.csv"`)

	text := rec.Body.String()
	assert.True(t, strings.HasPrefix(text, "\ufeff거래처,코드,품명"))
	assert.Contains(t, text, "\r\n가가,C1,")
}

func TestHandler_ListImports(t *testing.T) {
	repo, router := newRouter(t, 0)

	base := time.Date(2025, 11, 30, 0, 0, 0, 0, time.UTC)

	repo.EXPECT().ListImports(gomock.Any(), 5).Return([]*ledger.Import{{
		Filename: "nov.xlsx",
		Format:   "xlsx",
		BaseDate: &base,
		Valid:    2,
		Upserted: 2,
		Status:   ledger.ImportCompleted,
	}}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ledger/imports?limit=5", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var got []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "nov.xlsx", got[0]["filename"])
	assert.Equal(t, "2025-11-30", got[0]["base_date"])
	assert.Equal(t, "completed", got[0]["status"])
}
