// models/run.go
package models

import "time"

// Run lifecycle statuses. A run is created STARTED and moves exactly once to
// SUCCESS or FAILED when it is closed; there are no other transitions.
const (
	RunStarted = "STARTED"
	RunSuccess = "SUCCESS"
	RunFailed  = "FAILED"
)

// IngestionRun is the audit row bracketing one execution of the pipeline
// against one source file. Counters follow the pre-dedup convention:
// records_ingested = records_approved + records_rejected, and records_deduped
// is the number of approved records removed by deduplication before loading.
type IngestionRun struct {
	RunID           int64      `db:"run_id" json:"run_id"`
	SourceFile      string     `db:"source_file" json:"source_file"`
	StartTimestamp  time.Time  `db:"start_timestamp" json:"start_timestamp"`
	EndTimestamp    *time.Time `db:"end_timestamp" json:"end_timestamp,omitempty"`
	RecordsIngested int        `db:"records_ingested" json:"records_ingested"`
	RecordsApproved int        `db:"records_approved" json:"records_approved"`
	RecordsRejected int        `db:"records_rejected" json:"records_rejected"`
	RecordsDeduped  int        `db:"records_deduped" json:"records_deduped"`
	Status          string     `db:"status" json:"status"`
	ErrorMessage    string     `db:"error_message" json:"error_message,omitempty"`
}

// RunSummary is what a completed ingestion reports back to its caller.
// Inserted is the number of measurement rows actually written; re-ingested
// unique_ids count toward Approved but not toward Inserted.
type RunSummary struct {
	RunID    int64  `json:"run_id"`
	Ingested int    `json:"records_ingested"`
	Approved int    `json:"records_approved"`
	Rejected int    `json:"records_rejected"`
	Deduped  int    `json:"records_deduped"`
	Inserted int    `json:"measurements_inserted"`
	Status   string `json:"status"`
}
