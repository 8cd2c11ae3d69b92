package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dfalmeida/notas-extractor/constants"
	"github.com/dfalmeida/notas-extractor/internal/document"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS ledger (
	id           TEXT PRIMARY KEY,
	source_id    TEXT NOT NULL,
	filename     TEXT NOT NULL,
	processed_at TIMESTAMPTZ NOT NULL,
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
	confidence              DOUBLE PRECISION NOT NULL,
	processed_at            TEXT NOT NULL,
	observacoes             TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS extracted_rows_source_idx ON extracted_rows (source_id);
`

// PostgresConfig tunes the pgx pool for shared deployments.
type PostgresConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// Postgres is the shared-deployment ledger and row store.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// OpenPostgres creates the pool and ensures the schema.
func OpenPostgres(ctx context.Context, cfg PostgresConfig, logger *slog.Logger) (*Postgres, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "notas-extractor"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = cfg.StatementTimeout.String()
	}

	dialCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	logger.Info("repository.postgres.open")
	return &Postgres{pool: pool, logger: logger}, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// Ping verifies connectivity, for startup health checks.
func (p *Postgres) Ping(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return p.pool.Ping(ctx)
}

func (p *Postgres) Processed(ctx context.Context, sourceID string) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM ledger WHERE source_id = $1)`, sourceID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ledger lookup: %w", err)
	}
	return exists, nil
}

func (p *Postgres) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.ProcessedAt.IsZero() {
		e.ProcessedAt = time.Now()
	}
	_, err := p.pool.Exec(ctx,
		`INSERT INTO ledger (id, source_id, filename, processed_at, status, row_count, message)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.SourceID, e.Filename, e.ProcessedAt.UTC(), string(e.Status), e.Rows, e.Message,
	)
	if err != nil {
		return fmt.Errorf("ledger record: %w", err)
	}
	return nil
}

func (p *Postgres) Entries(ctx context.Context, limit int) ([]Entry, error) {
	q := `SELECT id, source_id, filename, processed_at, status, row_count, message
		 FROM ledger ORDER BY processed_at DESC, id`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := p.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e  Entry
			st string
		)
		if err := rows.Scan(&e.ID, &e.SourceID, &e.Filename, &e.ProcessedAt, &st, &e.Rows, &e.Message); err != nil {
			return nil, err
		}
		e.Status = constants.LedgerStatus(st)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (p *Postgres) AppendRows(ctx context.Context, in []document.CanonicalRow) error {
	if len(in) == 0 {
		return nil
	}
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, id := range sourceOrder(in) {
		if _, err := tx.Exec(ctx, `DELETE FROM extracted_rows WHERE source_id = $1`, id); err != nil {
			return fmt.Errorf("clear rows for %s: %w", id, err)
		}
	}
	insert := fmt.Sprintf(
		`INSERT INTO extracted_rows (%s)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		rowColumns)
	for _, r := range in {
		if _, err := tx.Exec(ctx, insert, r.Values()...); err != nil {
			return fmt.Errorf("insert row for %s: %w", r.SourceID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	p.logger.Debug("repository.rows.appended", "count", len(in))
	return nil
}

func (p *Postgres) Rows(ctx context.Context, limit int) ([]document.CanonicalRow, error) {
	q := fmt.Sprintf(
		`SELECT %s FROM extracted_rows ORDER BY processed_at, source_id, item_index`,
		rowColumns)
	args := []any{}
	if limit > 0 {
		q += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := p.pool.Query(ctx, q, args...)
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
