package database

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nycenv/aqingest/models"
)

func newRunStoreMock(t *testing.T) (*RunStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRunStore(db), mock
}

var runRowColumns = []string{
	"run_id", "source_file", "start_timestamp", "end_timestamp",
	"records_ingested", "records_approved", "records_rejected", "records_deduped",
	"status", "error_message",
}

func TestStartRun(t *testing.T) {
	store, mock := newRunStoreMock(t)

	mock.ExpectExec("INSERT INTO ingestion_runs").
		WithArgs("extract.csv", models.RunStarted).
		WillReturnResult(sqlmock.NewResult(7, 1))

	runID, err := store.StartRun("extract.csv")
	require.NoError(t, err)
	assert.Equal(t, int64(7), runID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFinishRunSuccess(t *testing.T) {
	store, mock := newRunStoreMock(t)

	mock.ExpectExec("UPDATE ingestion_runs").
		WithArgs(100, 95, 5, 2, models.RunSuccess, nil, int64(7), models.RunStarted).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.FinishRun(7, 100, 95, 5, 2, models.RunSuccess, "")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFinishRunFailedCarriesMessage(t *testing.T) {
	store, mock := newRunStoreMock(t)

	mock.ExpectExec("UPDATE ingestion_runs").
		WithArgs(0, 0, 0, 0, models.RunFailed, "boom", int64(7), models.RunStarted).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.FinishRun(7, 0, 0, 0, 0, models.RunFailed, "boom")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFinishRunAlreadyClosed(t *testing.T) {
	store, mock := newRunStoreMock(t)

	// Status guard matches no row: the run was closed by an earlier call.
	mock.ExpectExec("UPDATE ingestion_runs").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.FinishRun(7, 1, 1, 0, 0, models.RunSuccess, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already closed")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRun(t *testing.T) {
	store, mock := newRunStoreMock(t)

	started := time.Date(2024, 6, 14, 10, 0, 0, 0, time.UTC)
	ended := started.Add(time.Minute)
	mock.ExpectQuery("SELECT .+ FROM ingestion_runs WHERE run_id").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(runRowColumns).
			AddRow(7, "extract.csv", started, ended, 100, 95, 5, 2, models.RunSuccess, nil))

	run, err := store.GetRun(7)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, int64(7), run.RunID)
	assert.Equal(t, "extract.csv", run.SourceFile)
	assert.Equal(t, 100, run.RecordsIngested)
	assert.Equal(t, models.RunSuccess, run.Status)
	require.NotNil(t, run.EndTimestamp)
	assert.Equal(t, ended, *run.EndTimestamp)
	assert.Empty(t, run.ErrorMessage)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRunNotFound(t *testing.T) {
	store, mock := newRunStoreMock(t)

	mock.ExpectQuery("SELECT .+ FROM ingestion_runs WHERE run_id").
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows(runRowColumns))

	run, err := store.GetRun(404)
	require.NoError(t, err)
	assert.Nil(t, run)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListRuns(t *testing.T) {
	store, mock := newRunStoreMock(t)

	started := time.Date(2024, 6, 14, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT .+ FROM ingestion_runs ORDER BY run_id DESC").
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows(runRowColumns).
			AddRow(8, "b.csv", started, nil, 0, 0, 0, 0, models.RunStarted, nil).
			AddRow(7, "a.csv", started, started, 10, 8, 2, 0, models.RunFailed, "boom"))

	runs, err := store.ListRuns(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, int64(8), runs[0].RunID)
	assert.Nil(t, runs[0].EndTimestamp)
	assert.Equal(t, "boom", runs[1].ErrorMessage)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListRunsDefaultLimit(t *testing.T) {
	store, mock := newRunStoreMock(t)

	mock.ExpectQuery("SELECT .+ FROM ingestion_runs ORDER BY run_id DESC").
		WithArgs(50).
		WillReturnRows(sqlmock.NewRows(runRowColumns))

	runs, err := store.ListRuns(0)
	require.NoError(t, err)
	assert.Empty(t, runs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListRejects(t *testing.T) {
	store, mock := newRunStoreMock(t)

	rejectedAt := time.Date(2024, 6, 14, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT .+ FROM ingestion_rejects WHERE run_id").
		WithArgs(int64(7), 100).
		WillReturnRows(sqlmock.NewRows(
			[]string{"reject_id", "run_id", "raw_record", "error_reason", "source_file", "rejected_at"}).
			AddRow(1, 7, []byte(`{"error_reason":"Missing required field: name"}`),
				"Missing required field: name", "extract.csv", rejectedAt))

	rejects, err := store.ListRejects(7, 0)
	require.NoError(t, err)
	require.Len(t, rejects, 1)
	assert.Equal(t, int64(7), rejects[0].RunID)
	assert.Equal(t, "Missing required field: name", rejects[0].ErrorReason)
	assert.JSONEq(t, `{"error_reason":"Missing required field: name"}`, string(rejects[0].RawRecord))
	require.NoError(t, mock.ExpectationsWereMet())
}
