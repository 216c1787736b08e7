package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrJamesThe3rd/ledgerport/internal/ledger"
)

// DB is the subset of *pgxpool.Pool the store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	db DB
}

func New(db DB) *Store {
	return &Store{db: db}
}

// entryColumns is the insert column order; entryValues must follow it.
var entryColumns = []string{
	"erp_row_key", "tx_date", "erp_customer_code", "customer_name", "doc_no", "line_no",
	"item_name", "spec", "unit", "qty", "unit_price", "amount", "credit",
	"prev_balance", "deposit", "curr_balance", "profit_loss", "memo", "import_id",
}

func entryValues(e *ledger.Entry) []any {
	return []any{
		e.RowKey, e.TxDate, e.CustomerCode, nullText(e.CustomerName), nullText(e.DocNo), nullText(e.LineNo),
		nullText(e.ItemName), nullText(e.Spec), nullText(e.Unit), e.Qty, e.UnitPrice, e.Amount, e.Credit,
		e.PrevBalance, e.Deposit, e.CurrBalance, e.ProfitLoss, nullText(e.Memo), e.ImportID,
	}
}

// upsertSQL builds one multi-row INSERT ... ON CONFLICT statement for n rows.
func upsertSQL(n int) string {
	var b strings.Builder

	b.WriteString("INSERT INTO ledger_entries (")
	b.WriteString(strings.Join(entryColumns, ", "))
	b.WriteString(", updated_at) VALUES ")

	width := len(entryColumns)

	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(", ")
		}

		b.WriteString("(")

		for j := 0; j < width; j++ {
			fmt.Fprintf(&b, "$%d, ", i*width+j+1)
		}

		b.WriteString("NOW())")
	}

	b.WriteString(" ON CONFLICT (erp_row_key) DO UPDATE SET ")

	for _, c := range entryColumns[1:] {
		if c == "import_id" {
			// A row keeps the import that first wrote it.
			b.WriteString("import_id = COALESCE(ledger_entries.import_id, EXCLUDED.import_id), ")
			continue
		}

		fmt.Fprintf(&b, "%s = EXCLUDED.%s, ", c, c)
	}

	b.WriteString("updated_at = NOW()")

	return b.String()
}

// UpsertEntries writes entries in one statement and returns the number of
// rows inserted or updated. Keys must be unique within the call.
func (s *Store) UpsertEntries(ctx context.Context, entries []*ledger.Entry) (int64, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	args := make([]any, 0, len(entries)*len(entryColumns))
	for _, e := range entries {
		args = append(args, entryValues(e)...)
	}

	tag, err := s.db.Exec(ctx, upsertSQL(len(entries)), args...)
	if err != nil {
		return 0, fmt.Errorf("upserting ledger entries: %w", err)
	}

	return tag.RowsAffected(), nil
}

const selectEntryColumns = `
	erp_row_key, tx_date, erp_customer_code, COALESCE(customer_name, ''), COALESCE(doc_no, ''),
	COALESCE(line_no, ''), COALESCE(item_name, ''), COALESCE(spec, ''), COALESCE(unit, ''),
	qty, unit_price, amount, credit, prev_balance, deposit, curr_balance, profit_loss,
	COALESCE(memo, ''), import_id, updated_at
`

func scanEntry(row pgx.Row) (*ledger.Entry, error) {
	var e ledger.Entry

	if err := row.Scan(
		&e.RowKey, &e.TxDate, &e.CustomerCode, &e.CustomerName, &e.DocNo,
		&e.LineNo, &e.ItemName, &e.Spec, &e.Unit,
		&e.Qty, &e.UnitPrice, &e.Amount, &e.Credit, &e.PrevBalance, &e.Deposit, &e.CurrBalance, &e.ProfitLoss,
		&e.Memo, &e.ImportID, &e.UpdatedAt,
	); err != nil {
		return nil, err
	}

	return &e, nil
}

// where renders the filter shared by search, count and sum.
func where(f ledger.SearchFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)

	argIdx := 1

	if f.From != nil {
		conds = append(conds, fmt.Sprintf("tx_date >= $%d", argIdx))
		args = append(args, *f.From)
		argIdx++
	}

	if f.To != nil {
		conds = append(conds, fmt.Sprintf("tx_date <= $%d", argIdx))
		args = append(args, *f.To)
		argIdx++
	}

	if q := strings.TrimSpace(f.Query); q != "" {
		p := fmt.Sprintf("$%d", argIdx)
		conds = append(conds, "(customer_name ILIKE "+p+
			" OR erp_customer_code ILIKE "+p+
			" OR item_name ILIKE "+p+
			" OR spec ILIKE "+p+
			" OR memo ILIKE "+p+
			" OR doc_no ILIKE "+p+")")
		args = append(args, "%"+escapeLike(q)+"%")
	}

	if len(conds) == 0 {
		return "", nil
	}

	return " WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (s *Store) SearchEntries(ctx context.Context, filter ledger.SearchFilter) ([]*ledger.Entry, error) {
	cond, args := where(filter)

	query := `SELECT ` + selectEntryColumns + ` FROM ledger_entries` + cond +
		` ORDER BY tx_date ASC, doc_no ASC NULLS LAST, line_no ASC NULLS LAST, erp_row_key ASC`

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("searching ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*ledger.Entry

	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning ledger entry: %w", err)
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ledger entries: %w", err)
	}

	return entries, nil
}

func (s *Store) CountEntries(ctx context.Context, filter ledger.SearchFilter) (int, error) {
	cond, args := where(filter)

	var n int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM ledger_entries`+cond, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting ledger entries: %w", err)
	}

	return n, nil
}

func (s *Store) SumEntries(ctx context.Context, filter ledger.SearchFilter) (ledger.Sum, error) {
	cond, args := where(filter)

	query := `SELECT COALESCE(SUM(amount), 0), COALESCE(SUM(credit), 0),
		COALESCE(SUM(curr_balance), 0), COALESCE(SUM(deposit), 0)
		FROM ledger_entries` + cond

	var sum ledger.Sum
	if err := s.db.QueryRow(ctx, query, args...).Scan(&sum.Debit, &sum.Credit, &sum.Balance, &sum.Deposit); err != nil {
		return ledger.Sum{}, fmt.Errorf("summing ledger entries: %w", err)
	}

	return sum, nil
}

func (s *Store) CreateImport(ctx context.Context, imp *ledger.Import) error {
	query := `
		INSERT INTO ledger_imports (id, filename, format, base_date, header_row, scanned, valid, upserted, status, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		RETURNING created_at
	`

	err := s.db.QueryRow(ctx, query,
		imp.ID,
		imp.Filename,
		imp.Format,
		imp.BaseDate,
		imp.HeaderRow,
		imp.Scanned,
		imp.Valid,
		imp.Upserted,
		imp.Status,
		imp.Error,
	).Scan(&imp.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating import: %w", err)
	}

	return nil
}

func (s *Store) FinishImport(ctx context.Context, imp *ledger.Import) error {
	query := `
		UPDATE ledger_imports
		SET upserted = $1, status = $2, error = $3
		WHERE id = $4
	`

	tag, err := s.db.Exec(ctx, query, imp.Upserted, imp.Status, imp.Error, imp.ID)
	if err != nil {
		return fmt.Errorf("finishing import: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("finishing import %s: %w", imp.ID, ledger.ErrNotFound)
	}

	return nil
}

func (s *Store) ListImports(ctx context.Context, limit int) ([]*ledger.Import, error) {
	query := `
		SELECT id, filename, format, base_date, header_row, scanned, valid, upserted, status, error, created_at
		FROM ledger_imports
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("listing imports: %w", err)
	}
	defer rows.Close()

	var imports []*ledger.Import

	for rows.Next() {
		var (
			imp    ledger.Import
			status string
		)

		if err := rows.Scan(
			&imp.ID, &imp.Filename, &imp.Format, &imp.BaseDate, &imp.HeaderRow,
			&imp.Scanned, &imp.Valid, &imp.Upserted, &status, &imp.Error, &imp.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning import: %w", err)
		}

		imp.Status = ledger.ImportStatus(status)
		imports = append(imports, &imp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating imports: %w", err)
	}

	return imports, nil
}

func nullText(s string) *string {
	if s == "" {
		return nil
	}

	return new(s)
}
