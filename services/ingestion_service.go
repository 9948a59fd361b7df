// services/ingestion_service.go
package services

import (
	"database/sql"
	"path/filepath"
	"sort"

	"github.com/nycenv/aqingest/config"
	"github.com/nycenv/aqingest/database"
	"github.com/nycenv/aqingest/ingest"
	"github.com/nycenv/aqingest/logger"
	"github.com/nycenv/aqingest/models"
)

// IngestionService runs the whole pipeline for one batch: validate, dedup,
// load, with run bookkeeping bracketing it. One run is processed start to
// finish before another begins; there is no intra-run parallelism.
type IngestionService struct {
	cfg    *config.Config
	runs   *database.RunStore
	loader *database.Loader
}

func NewIngestionService(cfg *config.Config, db *sql.DB) *IngestionService {
	return &IngestionService{
		cfg:    cfg,
		runs:   database.NewRunStore(db),
		loader: database.NewLoader(db, cfg.Database.BatchSize),
	}
}

// Runs exposes the run store for the query handlers.
func (s *IngestionService) Runs() *database.RunStore {
	return s.runs
}

// IngestFile ingests a CSV file from disk. The run row is opened before the
// file is read, so even a read failure leaves a queryable FAILED run.
func (s *IngestionService) IngestFile(path string) (*models.RunSummary, error) {
	sourceFile := filepath.Base(path)

	runID, err := s.runs.StartRun(sourceFile)
	if err != nil {
		return nil, err
	}

	records, err := ingest.ReadCSV(path)
	if err != nil {
		return nil, s.fail(runID, err)
	}
	return s.run(runID, records, sourceFile)
}

// Ingest runs the pipeline against records already in memory, bracketed by
// their own run row.
func (s *IngestionService) Ingest(records []models.RawRecord, sourceFile string) (*models.RunSummary, error) {
	runID, err := s.runs.StartRun(sourceFile)
	if err != nil {
		return nil, err
	}
	return s.run(runID, records, sourceFile)
}

func (s *IngestionService) run(runID int64, raw []models.RawRecord, sourceFile string) (*models.RunSummary, error) {
	if s.cfg.Testing.ForceReject && len(raw) > 0 {
		raw = append(raw, forcedReject(raw[0]))
		logger.Log.Warn("testing.force_reject is on: appended a record with a blanked name")
	}
	logger.Log.Infof("Records read: %d", len(raw))

	validator := ingest.NewValidator(s.cfg.Validation)
	valid, rejected := validator.ValidateAll(raw)
	logger.Log.Infof("Valid records: %d", len(valid))
	logger.Log.Infof("Rejected records: %d", len(rejected))
	logRejectSummary(rejected, 5)

	// Counters follow the pre-dedup convention: approved/rejected are counted
	// at validation, deduped is the number removed below.
	deduped := valid
	removed := 0
	if s.cfg.Deduplication.Enabled {
		var err error
		deduped, err = ingest.Deduplicate(valid, s.cfg.Deduplication.Keys)
		if err != nil {
			return nil, s.fail(runID, err)
		}
		removed = len(valid) - len(deduped)
	}
	logger.Log.Infof("Records after deduplication: %d", len(deduped))

	inserted, _, err := s.loader.Load(deduped, rejected, sourceFile, runID)
	if err != nil {
		return nil, s.fail(runID, err)
	}

	if err := s.runs.FinishRun(runID, len(raw), len(valid), len(rejected), removed, models.RunSuccess, ""); err != nil {
		return nil, err
	}

	return &models.RunSummary{
		RunID:    runID,
		Ingested: len(raw),
		Approved: len(valid),
		Rejected: len(rejected),
		Deduped:  removed,
		Inserted: inserted,
		Status:   models.RunSuccess,
	}, nil
}

// fail closes the run FAILED with the triggering error and hands the error
// back. The load transaction has already rolled back by the time we get
// here, so the FAILED run row is the only trace the run leaves.
func (s *IngestionService) fail(runID int64, cause error) error {
	logger.Log.Errorf("Ingestion failed for run_id=%d: %v", runID, cause)
	if err := s.runs.FinishRun(runID, 0, 0, 0, 0, models.RunFailed, cause.Error()); err != nil {
		logger.Log.Errorf("Additionally failed to mark run %d as FAILED: %v", runID, err)
	}
	return cause
}

func forcedReject(src models.RawRecord) models.RawRecord {
	forced := make(models.RawRecord, len(src))
	for k, v := range src {
		forced[k] = v
	}
	forced["name"] = nil
	return forced
}

// logRejectSummary logs the most common rejection reasons plus a small sample
// of rejected records, so a failed extract can be diagnosed from the log
// without querying the reject table.
func logRejectSummary(rejected []models.RejectedRecord, sampleSize int) {
	if len(rejected) == 0 {
		return
	}

	counts := make(map[string]int)
	for _, r := range rejected {
		reason := r.Reason
		if reason == "" {
			reason = "Validation failed"
		}
		counts[reason]++
	}

	type reasonCount struct {
		reason string
		count  int
	}
	ordered := make([]reasonCount, 0, len(counts))
	for reason, count := range counts {
		ordered = append(ordered, reasonCount{reason, count})
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].count != ordered[j].count {
			return ordered[i].count > ordered[j].count
		}
		return ordered[i].reason < ordered[j].reason
	})

	logger.Log.Warnf("Reject summary: %d rejected total", len(rejected))
	for i, rc := range ordered {
		if i >= 5 {
			break
		}
		logger.Log.Warnf("Reject reason (%d): %s", rc.count, rc.reason)
	}

	for i, r := range rejected {
		if i >= sampleSize {
			break
		}
		logger.Log.Warnf("Reject sample %d: reason=%s unique_id=%v indicator_id=%v geo_place_name=%v start_date=%v",
			i+1, r.Reason, r.Fields["unique_id"], r.Fields["indicator_id"],
			r.Fields["geo_place_name"], r.Fields["start_date"])
	}
}
