package ledger

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/ledgerport/internal/http/httpx"
	"github.com/MrJamesThe3rd/ledgerport/internal/importer"
	"github.com/MrJamesThe3rd/ledgerport/internal/ledger"
)

// StageQuery tags a rejected search request.
const StageQuery = "query"

const multipartMemory = 32 << 20

type Handler struct {
	importSvc *importer.Service
	ledgerSvc *ledger.Service
	maxUpload int64
}

func NewHandler(importSvc *importer.Service, ledgerSvc *ledger.Service, maxUpload int64) *Handler {
	return &Handler{
		importSvc: importSvc,
		ledgerSvc: ledgerSvc,
		maxUpload: maxUpload,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/import", h.importFile)
	r.Get("/search", h.search)
	r.Get("/imports", h.listImports)
}

func (h *Handler) importFile(w http.ResponseWriter, r *http.Request) {
	if h.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.WriteError(w, r, http.StatusRequestEntityTooLarge, string(importer.StageForm),
				fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit), nil)

			return
		}

		httpx.WriteError(w, r, http.StatusBadRequest, string(importer.StageForm), "failed to parse form: "+err.Error(), nil)

		return
	}

	file, fh, err := r.FormFile("file")
	if err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, string(importer.StageForm), "file field is required", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, string(importer.StageForm), "failed to read file: "+err.Error(), nil)
		return
	}

	report, err := h.importSvc.Import(r.Context(), importer.Upload{
		Filename: fh.Filename,
		Data:     data,
		BaseDate: r.FormValue("base_date"),
	})
	if err != nil {
		h.writeImportError(w, r, report, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toImportResponse(report))
}

func (h *Handler) writeImportError(w http.ResponseWriter, r *http.Request, report *importer.Report, err error) {
	stage, ok := importer.StageOf(err)
	if !ok {
		slog.Error("ledger import failed", "error", err)
		httpx.WriteError(w, r, http.StatusInternalServerError, "", err.Error(), nil)

		return
	}

	var details any
	if report != nil {
		details = toImportResponse(report)
	}

	status := http.StatusBadRequest
	if stage == importer.StageUpsert {
		status = http.StatusInternalServerError
	}

	httpx.WriteError(w, r, status, string(stage), err.Error(), details)
}

func parseSearchParams(r *http.Request) (ledger.SearchParams, error) {
	q := r.URL.Query()

	p := ledger.SearchParams{Query: q.Get("q")}

	for name, dst := range map[string]**time.Time{"date_from": &p.From, "date_to": &p.To} {
		s := q.Get(name)
		if s == "" {
			continue
		}

		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return p, fmt.Errorf("%s must be YYYY-MM-DD, got %q", name, s)
		}

		*dst = &t
	}

	for name, dst := range map[string]*int{"page": &p.Page, "limit": &p.Limit} {
		s := q.Get(name)
		if s == "" {
			continue
		}

		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return p, fmt.Errorf("%s must be a positive integer, got %q", name, s)
		}

		*dst = n
	}

	return p, nil
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	p, err := parseSearchParams(r)
	if err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, StageQuery, err.Error(), nil)
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		h.export(w, r, p)
		return
	}

	res, err := h.ledgerSvc.Search(r.Context(), p)
	if err != nil {
		slog.Error("ledger search failed", "error", err)
		httpx.WriteError(w, r, http.StatusInternalServerError, "", err.Error(), nil)

		return
	}

	httpx.WriteJSON(w, http.StatusOK, toSearchResponse(res))
}

// export buffers the file so a failed query still gets a JSON error.
func (h *Handler) export(w http.ResponseWriter, r *http.Request, p ledger.SearchParams) {
	var buf bytes.Buffer

	n, err := h.ledgerSvc.Export(r.Context(), p, &buf)
	if err != nil {
		slog.Error("ledger export failed", "error", err)
		httpx.WriteError(w, r, http.StatusInternalServerError, "", err.Error(), nil)

		return
	}

	slog.Debug("ledger export", "rows", n)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="ledger.csv"`)
	w.WriteHeader(http.StatusOK)

	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("failed to write export", "error", err)
	}
}

func (h *Handler) listImports(w http.ResponseWriter, r *http.Request) {
	limit := 0

	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			httpx.WriteError(w, r, http.StatusBadRequest, StageQuery, fmt.Sprintf("limit must be a positive integer, got %q", s), nil)
			return
		}

		limit = n
	}

	imports, err := h.ledgerSvc.ListImports(r.Context(), limit)
	if err != nil {
		slog.Error("listing imports failed", "error", err)
		httpx.WriteError(w, r, http.StatusInternalServerError, "", err.Error(), nil)

		return
	}

	resp := make([]importRunResponse, len(imports))
	for i, imp := range imports {
		resp[i] = toImportRunResponse(imp)
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}
