package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/bom-cli/internal/model"
)

// Pool is the subset of *pgxpool.Pool used by PostgresStore. pgxmock pools
// satisfy it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	vendor         TEXT NOT NULL,
	job_id         TEXT NOT NULL DEFAULT '',
	customer_id    TEXT NOT NULL DEFAULT '',
	bom_file       TEXT NOT NULL,
	placement_file TEXT NOT NULL DEFAULT '',
	artifact       TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL DEFAULT 'running',
	rows_out       INTEGER NOT NULL DEFAULT 0,
	unmatched      INTEGER NOT NULL DEFAULT 0,
	error          TEXT NOT NULL DEFAULT '',
	diagnostics    JSONB,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at    TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS run_records (
	run_id          TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	designator      TEXT NOT NULL,
	value           TEXT NOT NULL DEFAULT '',
	vendor_part_no  TEXT NOT NULL DEFAULT '',
	component_class TEXT NOT NULL DEFAULT '',
	footprint       TEXT NOT NULL DEFAULT '',
	description     TEXT NOT NULL DEFAULT '',
	layer           TEXT NOT NULL DEFAULT '',
	x               DOUBLE PRECISION,
	y               DOUBLE PRECISION,
	rotation        DOUBLE PRECISION,
	device_type     TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, designator)
);

CREATE INDEX IF NOT EXISTS idx_runs_vendor ON runs(vendor);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, run model.Run) (*model.Run, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.Status == "" {
		run.Status = model.RunStatusRunning
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, vendor, job_id, customer_id, bom_file, placement_file, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.ID, string(run.Vendor), run.JobID, run.CustomerID, run.BOMFile, run.PlacementFile,
		string(run.Status), run.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}
	return &run, nil
}

func (s *PostgresStore) FinishRun(ctx context.Context, runID string, out RunOutcome) error {
	var diag []byte
	if out.Diagnostics != nil {
		b, err := json.Marshal(out.Diagnostics)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal diagnostics")
		}
		diag = b
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, artifact = $2, rows_out = $3, unmatched = $4, error = $5, diagnostics = $6, finished_at = $7
		 WHERE id = $8`,
		string(out.Status), out.Artifact, out.RowsOut, out.Unmatched, out.Error, diag, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	r, err := scanPostgresRun(s.pool.QueryRow(ctx, `SELECT `+runColumns+` FROM runs WHERE id = $1`, runID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("postgres: get run %s: run not found", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Vendor != "" {
		where = append(where, `vendor = `+arg(string(filter.Vendor)))
	}
	if filter.Status != "" {
		where = append(where, `status = `+arg(string(filter.Status)))
	}

	query := `SELECT ` + runColumns + ` FROM runs`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += ` ORDER BY created_at DESC, id LIMIT ` + arg(limit)
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPostgresRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

// SaveRecords replaces a run's records in one transaction, loading the new
// set with COPY.
func (s *PostgresStore) SaveRecords(ctx context.Context, runID string, recs []model.MergedRecord) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: save records: begin tx")
	}

	if _, err := tx.Exec(ctx, `DELETE FROM run_records WHERE run_id = $1`, runID); err != nil {
		_ = tx.Rollback(ctx)
		return 0, eris.Wrapf(err, "postgres: clear records for run %s", runID)
	}

	var n int64
	if len(recs) > 0 {
		rows := make([][]any, 0, len(recs))
		for _, m := range recs {
			rows = append(rows, recordValues(runID, m))
		}
		n, err = tx.CopyFrom(ctx, pgx.Identifier{"run_records"}, recordColumns, pgx.CopyFromRows(rows))
		if err != nil {
			_ = tx.Rollback(ctx)
			return 0, eris.Wrap(err, "postgres: COPY INTO run_records")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: save records: commit")
	}
	return n, nil
}

func (s *PostgresStore) ListRecords(ctx context.Context, runID string) ([]model.MergedRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT designator, value, vendor_part_no, component_class, footprint, description, layer, x, y, rotation, device_type
		 FROM run_records WHERE run_id = $1`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list records for run %s", runID)
	}
	defer rows.Close()

	var out []model.MergedRecord
	for rows.Next() {
		var m model.MergedRecord
		if err := rows.Scan(&m.Designator, &m.Value, &m.VendorPartNo, &m.ComponentClass, &m.Footprint,
			&m.Description, &m.Layer, &m.X, &m.Y, &m.Rotation, &m.DeviceType); err != nil {
			return nil, eris.Wrap(err, "postgres: scan record")
		}
		out = append(out, m)
	}
	return sortedRecords(out), eris.Wrap(rows.Err(), "postgres: list records iterate")
}

func scanPostgresRun(row scannable) (*model.Run, error) {
	var (
		r        model.Run
		vendor   string
		status   string
		diagNull *[]byte
	)
	err := row.Scan(&r.ID, &vendor, &r.JobID, &r.CustomerID, &r.BOMFile, &r.PlacementFile, &r.Artifact,
		&status, &r.RowsOut, &r.Unmatched, &r.Error, &diagNull, &r.CreatedAt, &r.FinishedAt)
	if err != nil {
		return nil, err
	}
	r.Vendor = model.Vendor(vendor)
	r.Status = model.RunStatus(status)
	if diagNull != nil && len(*diagNull) > 0 {
		if r.Diagnostics, err = unmarshalDiagnostics(*diagNull); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal diagnostics")
		}
	}
	return &r, nil
}
