// database/run_store.go
package database

import (
	"database/sql"
	"fmt"

	"github.com/nycenv/aqingest/logger"
	"github.com/nycenv/aqingest/models"
)

// RunStore owns the ingestion_runs audit rows. Start and finish writes are
// committed independently of the load transaction, so a run row survives even
// when everything downstream of it rolls back.
type RunStore struct {
	db *sql.DB
}

func NewRunStore(db *sql.DB) *RunStore {
	return &RunStore{db: db}
}

// StartRun inserts a STARTED run row for the given source file and returns
// its generated id.
func (s *RunStore) StartRun(sourceFile string) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO ingestion_runs (source_file, status) VALUES (?, ?)`,
		sourceFile, models.RunStarted,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run row for %s: %w", sourceFile, err)
	}

	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read run id for %s: %w", sourceFile, err)
	}
	logger.Log.Infof("Run started: run_id=%d source_file=%s", runID, sourceFile)
	return runID, nil
}

// FinishRun closes a run exactly once: end timestamp, counters, terminal
// status and optional error message. The status guard makes closure
// idempotent-unsafe on purpose — an already-closed run is an error, never a
// silent rewrite.
func (s *RunStore) FinishRun(runID int64, ingested, approved, rejected, deduped int, status string, errorMessage string) error {
	errMsg := sql.NullString{String: errorMessage, Valid: errorMessage != ""}

	res, err := s.db.Exec(
		`UPDATE ingestion_runs
		 SET end_timestamp = CURRENT_TIMESTAMP,
		     records_ingested = ?,
		     records_approved = ?,
		     records_rejected = ?,
		     records_deduped = ?,
		     status = ?,
		     error_message = ?
		 WHERE run_id = ? AND status = ?`,
		ingested, approved, rejected, deduped, status, errMsg, runID, models.RunStarted,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run %d: %w", runID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows for run %d: %w", runID, err)
	}
	if affected == 0 {
		return fmt.Errorf("run %d not found or already closed", runID)
	}
	logger.Log.Infof("Run finished: run_id=%d status=%s ingested=%d approved=%d rejected=%d deduped=%d",
		runID, status, ingested, approved, rejected, deduped)
	return nil
}

const runColumns = `run_id, source_file, start_timestamp, end_timestamp,
	records_ingested, records_approved, records_rejected, records_deduped,
	status, error_message`

// GetRun retrieves one run row, or nil when no such run exists.
func (s *RunStore) GetRun(runID int64) (*models.IngestionRun, error) {
	row := s.db.QueryRow(
		`SELECT `+runColumns+` FROM ingestion_runs WHERE run_id = ?`, runID,
	)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run %d: %w", runID, err)
	}
	return run, nil
}

// ListRuns retrieves the most recent runs, newest first.
func (s *RunStore) ListRuns(limit int) ([]models.IngestionRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT `+runColumns+` FROM ingestion_runs ORDER BY run_id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query ingestion_runs: %w", err)
	}
	defer rows.Close()

	var runs []models.IngestionRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run rows: %w", err)
	}
	return runs, nil
}

// ListRejects retrieves reject rows for one run, oldest first.
func (s *RunStore) ListRejects(runID int64, limit int) ([]models.IngestionReject, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(
		`SELECT reject_id, run_id, raw_record, error_reason, source_file, rejected_at
		 FROM ingestion_rejects WHERE run_id = ? ORDER BY reject_id LIMIT ?`,
		runID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query ingestion_rejects for run %d: %w", runID, err)
	}
	defer rows.Close()

	var rejects []models.IngestionReject
	for rows.Next() {
		var r models.IngestionReject
		var raw []byte
		if err := rows.Scan(&r.RejectID, &r.RunID, &raw, &r.ErrorReason, &r.SourceFile, &r.RejectedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reject row: %w", err)
		}
		r.RawRecord = raw
		rejects = append(rejects, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reject rows: %w", err)
	}
	return rejects, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.IngestionRun, error) {
	var run models.IngestionRun
	var endTS sql.NullTime
	var errMsg sql.NullString

	err := row.Scan(
		&run.RunID, &run.SourceFile, &run.StartTimestamp, &endTS,
		&run.RecordsIngested, &run.RecordsApproved, &run.RecordsRejected, &run.RecordsDeduped,
		&run.Status, &errMsg,
	)
	if err != nil {
		return nil, err
	}
	if endTS.Valid {
		run.EndTimestamp = &endTS.Time
	}
	if errMsg.Valid {
		run.ErrorMessage = errMsg.String
	}
	return &run, nil
}
