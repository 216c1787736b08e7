package importer

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/ledgerport/internal/ledger"
	"github.com/MrJamesThe3rd/ledgerport/internal/metrics"
)

// Ledger is the persistence side of an import.
type Ledger interface {
	Upsert(ctx context.Context, entries []*ledger.Entry) (ledger.UpsertReport, error)
	StartImport(ctx context.Context, imp *ledger.Import) error
	FinishImport(ctx context.Context, imp *ledger.Import, upserted int64, runErr error) error
}

type Service struct {
	ledger  Ledger
	opts    Options
	metrics *metrics.Metrics
}

func NewService(l Ledger, opts Options, m *metrics.Metrics) *Service {
	return &Service{ledger: l, opts: opts.withDefaults(), metrics: m}
}

// Upload is one file handed to the pipeline.
type Upload struct {
	Filename string
	Data     []byte
	BaseDate string
}

// Report summarises an import. Scanned, Valid and Upserted let a caller
// spot silent loss: Valid well above Upserted points at persistence.
type Report struct {
	ImportID    uuid.UUID
	Scanned     int
	Valid       int
	Upserted    int64
	Diagnostics Diagnostics
}

// Import parses u and upserts the valid rows. Parse failures return a nil
// report. An upsert failure returns the partial report together with a
// StageUpsert error.
func (s *Service) Import(ctx context.Context, u Upload) (*Report, error) {
	res, err := Parse(u.Data, u.Filename, u.BaseDate, s.opts)
	if err != nil {
		stage, _ := StageOf(err)
		s.metrics.ImportFinished(string(stage))

		return nil, err
	}

	s.metrics.Rows("valid", res.Valid)

	for reason, n := range res.Diagnostics.Rejected {
		s.metrics.Rows(string(reason), n)
	}

	report := &Report{
		Scanned:     res.Scanned,
		Valid:       res.Valid,
		Diagnostics: res.Diagnostics,
	}

	imp := &ledger.Import{
		Filename:  u.Filename,
		Format:    res.Diagnostics.Format,
		HeaderRow: res.Diagnostics.HeaderRow,
		Scanned:   res.Scanned,
		Valid:     res.Valid,
	}

	if res.Diagnostics.BaseDate != "" {
		if t, err := time.Parse(time.DateOnly, res.Diagnostics.BaseDate); err == nil {
			imp.BaseDate = &t
		}
	}

	if err := s.ledger.StartImport(ctx, imp); err != nil {
		s.metrics.ImportFinished(string(StageUpsert))
		return report, &StageError{Stage: StageUpsert, Err: err}
	}

	report.ImportID = imp.ID

	for _, e := range res.Entries {
		e.ImportID = &imp.ID
	}

	up, upErr := s.ledger.Upsert(ctx, res.Entries)

	report.Upserted = up.Upserted
	report.Diagnostics.DuplicateKeys = up.Duplicates

	s.metrics.Rows("upserted", int(up.Upserted))

	// The journal is written even when the client has gone away.
	if err := s.ledger.FinishImport(context.WithoutCancel(ctx), imp, up.Upserted, upErr); err != nil {
		slog.Error("failed to finish import journal", "import_id", imp.ID, "error", err)
	}

	if upErr != nil {
		s.metrics.ImportFinished(string(StageUpsert))
		return report, &StageError{Stage: StageUpsert, Err: upErr}
	}

	s.metrics.ImportFinished("ok")

	slog.Info("ledger import finished",
		"import_id", imp.ID,
		"filename", u.Filename,
		"format", res.Diagnostics.Format,
		"header_row", res.Diagnostics.HeaderRow,
		"scanned", report.Scanned,
		"valid", report.Valid,
		"upserted", report.Upserted,
	)

	return report, nil
}
