package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/bom-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id             TEXT PRIMARY KEY,
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
	diagnostics    TEXT,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at    DATETIME
);

CREATE TABLE IF NOT EXISTS run_records (
	run_id          TEXT NOT NULL REFERENCES runs(id),
	designator      TEXT NOT NULL,
	value           TEXT NOT NULL DEFAULT '',
	vendor_part_no  TEXT NOT NULL DEFAULT '',
	component_class TEXT NOT NULL DEFAULT '',
	footprint       TEXT NOT NULL DEFAULT '',
	description     TEXT NOT NULL DEFAULT '',
	layer           TEXT NOT NULL DEFAULT '',
	x               REAL,
	y               REAL,
	rotation        REAL,
	device_type     TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, designator)
);

CREATE INDEX IF NOT EXISTS idx_runs_vendor ON runs(vendor);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, run model.Run) (*model.Run, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.Status == "" {
		run.Status = model.RunStatusRunning
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, vendor, job_id, customer_id, bom_file, placement_file, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, string(run.Vendor), run.JobID, run.CustomerID, run.BOMFile, run.PlacementFile,
		string(run.Status), run.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return &run, nil
}

func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, out RunOutcome) error {
	diag, err := marshalDiagnostics(out.Diagnostics)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal diagnostics")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, artifact = ?, rows_out = ?, unmatched = ?, error = ?, diagnostics = ?, finished_at = ?
		 WHERE id = ?`,
		string(out.Status), out.Artifact, out.RowsOut, out.Unmatched, out.Error, diag, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

const runColumns = `id, vendor, job_id, customer_id, bom_file, placement_file, artifact, status,
	rows_out, unmatched, error, diagnostics, created_at, finished_at`

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, runID)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	var (
		where []string
		args  []any
	)
	if filter.Vendor != "" {
		where = append(where, `vendor = ?`)
		args = append(args, string(filter.Vendor))
	}
	if filter.Status != "" {
		where = append(where, `status = ?`)
		args = append(args, string(filter.Status))
	}

	query := `SELECT ` + runColumns + ` FROM runs`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	args = append(args, limit)
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) SaveRecords(ctx context.Context, runID string, recs []model.MergedRecord) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: save records: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_records WHERE run_id = ?`, runID); err != nil {
		return 0, eris.Wrapf(err, "sqlite: clear records for run %s", runID)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_records (`+strings.Join(recordColumns, ", ")+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare record insert")
	}
	defer stmt.Close()

	for _, m := range recs {
		if _, err := stmt.ExecContext(ctx, recordValues(runID, m)...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert record %s", m.Designator)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: save records: commit")
	}
	return int64(len(recs)), nil
}

func (s *SQLiteStore) ListRecords(ctx context.Context, runID string) ([]model.MergedRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT designator, value, vendor_part_no, component_class, footprint, description, layer, x, y, rotation, device_type
		 FROM run_records WHERE run_id = ?`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list records for run %s", runID)
	}
	defer rows.Close()

	var out []model.MergedRecord
	for rows.Next() {
		var (
			m       model.MergedRecord
			x, y, r sql.NullFloat64
		)
		if err := rows.Scan(&m.Designator, &m.Value, &m.VendorPartNo, &m.ComponentClass, &m.Footprint,
			&m.Description, &m.Layer, &x, &y, &r, &m.DeviceType); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan record")
		}
		m.X, m.Y, m.Rotation = nullFloat(x), nullFloat(y), nullFloat(r)
		out = append(out, m)
	}
	return sortedRecords(out), eris.Wrap(rows.Err(), "sqlite: list records iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var (
		r        model.Run
		diag     sql.NullString
		finished sql.NullTime
	)
	err := row.Scan(&r.ID, &r.Vendor, &r.JobID, &r.CustomerID, &r.BOMFile, &r.PlacementFile, &r.Artifact,
		&r.Status, &r.RowsOut, &r.Unmatched, &r.Error, &diag, &r.CreatedAt, &finished)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	if diag.Valid && diag.String != "" {
		if r.Diagnostics, err = unmarshalDiagnostics([]byte(diag.String)); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal diagnostics")
		}
	}
	return &r, nil
}

func nullFloat(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

func marshalDiagnostics(d *model.Diagnostics) (any, error) {
	if d == nil {
		return nil, nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func unmarshalDiagnostics(b []byte) (*model.Diagnostics, error) {
	var d model.Diagnostics
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, err
	}
	return &d, nil
}
