package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bom-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

var runRowColumns = []string{
	"id", "vendor", "job_id", "customer_id", "bom_file", "placement_file", "artifact", "status",
	"rows_out", "unmatched", "error", "diagnostics", "created_at", "finished_at",
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS runs`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs("run-1", "kaon", "job", "cust", "bom.xlsx", "placecom.html", "running", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background(), model.Run{
		ID:            "run-1",
		Vendor:        model.VendorKaon,
		JobID:         "job",
		CustomerID:    "cust",
		BOMFile:       "bom.xlsx",
		PlacementFile: "placecom.html",
	})
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusRunning, run.Status)
	assert.False(t, run.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FinishRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET status = \$1`).
		WithArgs("failed", "", 0, 0, "boom", pgxmock.AnyArg(), pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.FinishRun(context.Background(), "missing", RunOutcome{Status: model.RunStatusFailed, Error: "boom"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT id, vendor, .* FROM runs WHERE id = \$1`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows(runRowColumns).
			AddRow("run-1", "lg", "", "", "bom.csv", "pnp.txt", "", "running", 0, 0, "", nil, created, nil))

	run, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, model.VendorLG, run.Vendor)
	assert.Equal(t, model.RunStatusRunning, run.Status)
	assert.Equal(t, created, run.CreatedAt)
	assert.Nil(t, run.Diagnostics)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, vendor, .* FROM runs WHERE id = \$1`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns_Filters(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM runs WHERE vendor = \$1 AND status = \$2 ORDER BY created_at DESC, id LIMIT \$3 OFFSET \$4`).
		WithArgs("dme", "complete", 10, 20).
		WillReturnRows(pgxmock.NewRows(runRowColumns))

	runs, err := s.ListRuns(context.Background(), RunFilter{
		Vendor: model.VendorDME,
		Status: model.RunStatusComplete,
		Limit:  10,
		Offset: 20,
	})
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns_DefaultLimit(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM runs ORDER BY created_at DESC, id LIMIT \$1$`).
		WithArgs(defaultListLimit).
		WillReturnError(errors.New("connection reset"))

	_, err := s.ListRuns(context.Background(), RunFilter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: list runs")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRecords(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM run_records WHERE run_id = \$1`).
		WithArgs("run-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"run_records"}, recordColumns).WillReturnResult(2)
	mock.ExpectCommit()

	x := 1.5
	n, err := s.SaveRecords(context.Background(), "run-1", []model.MergedRecord{
		{Designator: "R1", Value: "1K", X: &x, Y: &x, Rotation: &x},
		{Designator: "R2", Value: "2K"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRecords_CopyFails(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM run_records`).
		WithArgs("run-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectCopyFrom(pgx.Identifier{"run_records"}, recordColumns).WillReturnError(errors.New("permission denied"))
	mock.ExpectRollback()

	_, err := s.SaveRecords(context.Background(), "run-1", []model.MergedRecord{{Designator: "R1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO run_records")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRecords(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	x := 10.0
	mock.ExpectQuery(`FROM run_records WHERE run_id = \$1`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"designator", "value", "vendor_part_no", "component_class", "footprint", "description",
			"layer", "x", "y", "rotation", "device_type",
		}).
			AddRow("R10", "1K", "", "", "", "", "", nil, nil, nil, "").
			AddRow("R2", "2K", "", "", "", "", "T", &x, &x, &x, ""))

	recs, err := s.ListRecords(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "R2", recs[0].Designator)
	require.NotNil(t, recs[0].X)
	assert.InDelta(t, 10.0, *recs[0].X, 1e-9)
	assert.Nil(t, recs[1].X)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Close(t *testing.T) {
	called := false
	s := &PostgresStore{closeFn: func() { called = true }}
	require.NoError(t, s.Close())
	assert.True(t, called)
}
