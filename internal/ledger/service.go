package ledger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/ledgerport/internal/metrics"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=ledger
type Repository interface {
	UpsertEntries(ctx context.Context, entries []*Entry) (int64, error)
	SearchEntries(ctx context.Context, filter SearchFilter) ([]*Entry, error)
	CountEntries(ctx context.Context, filter SearchFilter) (int, error)
	SumEntries(ctx context.Context, filter SearchFilter) (Sum, error)

	CreateImport(ctx context.Context, imp *Import) error
	FinishImport(ctx context.Context, imp *Import) error
	ListImports(ctx context.Context, limit int) ([]*Import, error)
}

const (
	MinChunkSize = 500
	MaxChunkSize = 1000

	DefaultLimit       = 50
	DefaultMaxLimit    = 500
	DefaultExportMax   = 50000
	DefaultImportsList = 20
	MaxImportsList     = 100
)

type Options struct {
	ChunkSize int
	MaxLimit  int
	SumScope  SumScope
	ExportMax int
	Metrics   *metrics.Metrics
}

type Service struct {
	repo Repository
	opts Options
}

func NewService(repo Repository, opts Options) *Service {
	opts.ChunkSize = min(max(opts.ChunkSize, MinChunkSize), MaxChunkSize)

	if opts.MaxLimit <= 0 {
		opts.MaxLimit = DefaultMaxLimit
	}

	if opts.ExportMax <= 0 {
		opts.ExportMax = DefaultExportMax
	}

	if opts.SumScope != SumScopePage {
		opts.SumScope = SumScopeFilter
	}

	return &Service{repo: repo, opts: opts}
}

// ChunkSize reports the effective, clamped chunk size.
func (s *Service) ChunkSize() int {
	return s.opts.ChunkSize
}

// UpsertReport describes how far a batched upsert got.
type UpsertReport struct {
	Chunks     int   // chunks submitted successfully
	Upserted   int64 // rows inserted or updated
	Duplicates int   // rows collapsed because a later row had the same key
}

// Upsert writes entries in sequential chunks keyed on RowKey. Rows sharing
// a key are collapsed first, the last one winning, since a single statement
// may not touch the same row twice. The first failing chunk stops the run;
// the report then covers the chunks that succeeded.
func (s *Service) Upsert(ctx context.Context, entries []*Entry) (UpsertReport, error) {
	unique, dupes := collapse(entries)
	report := UpsertReport{Duplicates: dupes}

	total := (len(unique) + s.opts.ChunkSize - 1) / s.opts.ChunkSize

	for i := 0; i < len(unique); i += s.opts.ChunkSize {
		chunk := unique[i:min(i+s.opts.ChunkSize, len(unique))]

		start := time.Now()

		n, err := s.repo.UpsertEntries(ctx, chunk)
		if err != nil {
			slog.Warn("ledger upsert chunk failed",
				"chunk", report.Chunks+1, "chunks", total, "upserted", report.Upserted, "error", err)

			return report, fmt.Errorf("upserting chunk %d of %d: %w", report.Chunks+1, total, err)
		}

		s.opts.Metrics.ChunkUpserted(time.Since(start))

		report.Chunks++
		report.Upserted += n
	}

	return report, nil
}

// collapse drops earlier rows whose key reappears later. Order follows the
// first appearance of each key.
func collapse(entries []*Entry) ([]*Entry, int) {
	pos := make(map[string]int, len(entries))
	out := make([]*Entry, 0, len(entries))

	for _, e := range entries {
		if i, ok := pos[e.RowKey]; ok {
			out[i] = e
			continue
		}

		pos[e.RowKey] = len(out)
		out = append(out, e)
	}

	return out, len(entries) - len(out)
}

// SearchFilter is the storage-level query. Limit <= 0 means no limit.
type SearchFilter struct {
	From   *time.Time
	To     *time.Time
	Query  string
	Offset int
	Limit  int
}

// SearchParams is a caller request before pagination is normalised.
type SearchParams struct {
	From  *time.Time
	To    *time.Time
	Query string
	Page  int
	Limit int
}

type SearchResult struct {
	Rows     []*Entry
	Total    int
	Page     int
	Limit    int
	Sum      Sum
	SumScope SumScope
}

func (s *Service) Search(ctx context.Context, p SearchParams) (*SearchResult, error) {
	page := max(p.Page, 1)

	limit := p.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	limit = min(limit, s.opts.MaxLimit)

	filter := SearchFilter{
		From:   p.From,
		To:     p.To,
		Query:  p.Query,
		Offset: (page - 1) * limit,
		Limit:  limit,
	}

	rows, err := s.repo.SearchEntries(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("searching entries: %w", err)
	}

	total, err := s.repo.CountEntries(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("counting entries: %w", err)
	}

	res := &SearchResult{
		Rows:     rows,
		Total:    total,
		Page:     page,
		Limit:    limit,
		SumScope: s.opts.SumScope,
	}

	if s.opts.SumScope == SumScopePage {
		for _, e := range rows {
			res.Sum = res.Sum.Add(e)
		}

		return res, nil
	}

	res.Sum, err = s.repo.SumEntries(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("summing entries: %w", err)
	}

	return res, nil
}

// Export writes every entry matching p as CSV, up to the export cap.
// Pagination fields of p are ignored.
func (s *Service) Export(ctx context.Context, p SearchParams, w io.Writer) (int, error) {
	rows, err := s.repo.SearchEntries(ctx, SearchFilter{
		From:  p.From,
		To:    p.To,
		Query: p.Query,
		Limit: s.opts.ExportMax,
	})
	if err != nil {
		return 0, fmt.Errorf("searching entries: %w", err)
	}

	if err := WriteCSV(w, rows); err != nil {
		return 0, err
	}

	return len(rows), nil
}

// StartImport journals a new import run before any entry is written, so
// entries can reference it.
func (s *Service) StartImport(ctx context.Context, imp *Import) error {
	imp.ID = uuid.New()
	imp.Status = ImportRunning

	if err := s.repo.CreateImport(ctx, imp); err != nil {
		return fmt.Errorf("creating import: %w", err)
	}

	return nil
}

// FinishImport closes a journaled run with its outcome.
func (s *Service) FinishImport(ctx context.Context, imp *Import, upserted int64, runErr error) error {
	imp.Upserted = upserted
	imp.Status = ImportCompleted
	imp.Error = ""

	if runErr != nil {
		imp.Status = ImportFailed
		imp.Error = runErr.Error()
	}

	if err := s.repo.FinishImport(ctx, imp); err != nil {
		return fmt.Errorf("finishing import: %w", err)
	}

	return nil
}

func (s *Service) ListImports(ctx context.Context, limit int) ([]*Import, error) {
	if limit <= 0 {
		limit = DefaultImportsList
	}

	return s.repo.ListImports(ctx, min(limit, MaxImportsList))
}
