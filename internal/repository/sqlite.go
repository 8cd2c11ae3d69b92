package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/dfalmeida/notas-extractor/constants"
	"github.com/dfalmeida/notas-extractor/internal/document"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS ledger (
	id           TEXT PRIMARY KEY,
	source_id    TEXT NOT NULL,
	filename     TEXT NOT NULL,
	processed_at TEXT NOT NULL,
	status       TEXT NOT NULL,
	row_count    INTEGER NOT NULL,
	message      TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS ledger_source_idx ON ledger (source_id);

CREATE TABLE IF NOT EXISTS extracted_rows (
	source_filename         TEXT NOT NULL,
	source_id               TEXT NOT NULL,
	fornecedor_razao_social TEXT,
	fornecedor_cnpj         TEXT,
	nota_numero             TEXT,
	nota_data               TEXT,
	item_index              INTEGER,
	item_descricao          TEXT,
	item_quantidade         TEXT,
	item_valor_unitario     TEXT,
	item_valor_total        TEXT,
	nota_valor_total        TEXT,
	cpf_associado           TEXT,
	metodo_extracao         TEXT NOT NULL,
	confidence              REAL NOT NULL,
	processed_at            TEXT NOT NULL,
	observacoes             TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS extracted_rows_source_idx ON extracted_rows (source_id);
`

// SQLite is the embedded ledger and row store. One writer connection keeps
// modernc's file locking out of the way; the batch runner is serial anyway.
type SQLite struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenSQLite opens (or creates) the database at dsn and ensures the schema.
// Use ":memory:" in tests.
func OpenSQLite(dsn string, logger *slog.Logger) (*SQLite, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	logger.Debug("repository.sqlite.open", "dsn", dsn)
	return &SQLite{db: db, logger: logger}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Processed(ctx context.Context, sourceID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM ledger WHERE source_id = ?)`, sourceID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ledger lookup: %w", err)
	}
	return exists, nil
}

func (s *SQLite) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.ProcessedAt.IsZero() {
		e.ProcessedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ledger (id, source_id, filename, processed_at, status, row_count, message)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SourceID, e.Filename, e.ProcessedAt.UTC().Format(time.RFC3339),
		string(e.Status), e.Rows, e.Message,
	)
	if err != nil {
		return fmt.Errorf("ledger record: %w", err)
	}
	return nil
}

func (s *SQLite) Entries(ctx context.Context, limit int) ([]Entry, error) {
	q := `SELECT id, source_id, filename, processed_at, status, row_count, message
		 FROM ledger ORDER BY processed_at DESC, id`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e  Entry
			ts string
			st string
		)
		if err := rows.Scan(&e.ID, &e.SourceID, &e.Filename, &ts, &st, &e.Rows, &e.Message); err != nil {
			return nil, err
		}
		e.Status = constants.LedgerStatus(st)
		if e.ProcessedAt, err = time.Parse(time.RFC3339, ts); err != nil {
			return nil, fmt.Errorf("ledger timestamp %q: %w", ts, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// AppendRows replaces each source's previously stored rows and inserts the
// new ones in a single transaction. Delete-then-insert rather than upsert:
// synthetic rows carry a NULL item_index, which no unique key can match, and
// a re-extraction may legitimately yield fewer items than before.
func (s *SQLite) AppendRows(ctx context.Context, in []document.CanonicalRow) error {
	if len(in) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, id := range sourceOrder(in) {
		if _, err := tx.ExecContext(ctx, `DELETE FROM extracted_rows WHERE source_id = ?`, id); err != nil {
			return fmt.Errorf("clear rows for %s: %w", id, err)
		}
	}
	insert := fmt.Sprintf(
		`INSERT INTO extracted_rows (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rowColumns)
	for _, r := range in {
		if _, err := tx.ExecContext(ctx, insert, r.Values()...); err != nil {
			return fmt.Errorf("insert row for %s: %w", r.SourceID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Debug("repository.rows.appended", "count", len(in))
	return nil
}

func (s *SQLite) Rows(ctx context.Context, limit int) ([]document.CanonicalRow, error) {
	q := fmt.Sprintf(
		`SELECT %s FROM extracted_rows ORDER BY processed_at, source_id, item_index`,
		rowColumns)
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("select rows: %w", err)
	}
	defer rows.Close()

	var out []document.CanonicalRow
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
