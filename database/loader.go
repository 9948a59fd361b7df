// database/loader.go
package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nycenv/aqingest/logger"
	"github.com/nycenv/aqingest/models"
	"github.com/nycenv/aqingest/utils"
)

const defaultBatchSize = 500

// Loader owns the write transaction for one run: dimension rows first, then
// fact rows, then reject rows, all committed together. Any failure rolls the
// whole transaction back, so no partial load survives. batchSize only shapes
// how many rows travel per INSERT statement, never the semantics.
type Loader struct {
	db        *sql.DB
	batchSize int
}

func NewLoader(db *sql.DB, batchSize int) *Loader {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Loader{db: db, batchSize: batchSize}
}

// ExtractIndicators derives the unique indicator dimension rows referenced by
// a batch, keyed on indicator_id, first occurrence wins, first-seen order.
func ExtractIndicators(records []models.Record) []models.Indicator {
	seen := make(map[int64]bool, len(records))
	var dims []models.Indicator
	for _, r := range records {
		if seen[r.IndicatorID] {
			continue
		}
		seen[r.IndicatorID] = true
		dims = append(dims, models.Indicator{
			IndicatorID: r.IndicatorID,
			Name:        r.Name,
			Measure:     r.Measure,
			MeasureInfo: r.MeasureInfo,
		})
	}
	return dims
}

// ExtractGeographicAreas derives the unique geographic dimension rows
// referenced by a batch, keyed on geo_join_id, first occurrence wins.
func ExtractGeographicAreas(records []models.Record) []models.GeographicArea {
	seen := make(map[string]bool, len(records))
	var dims []models.GeographicArea
	for _, r := range records {
		if seen[r.GeoJoinID] {
			continue
		}
		seen[r.GeoJoinID] = true
		dims = append(dims, models.GeographicArea{
			GeoJoinID:    r.GeoJoinID,
			GeoTypeName:  r.GeoTypeName,
			GeoPlaceName: r.GeoPlaceName,
		})
	}
	return dims
}

// Load writes one run's batch. Dimensions go first because the fact table
// references them by foreign key. It returns the measurement and reject rows
// actually inserted: a unique_id that already exists in the fact table is a
// silent no-op and does not count.
func (l *Loader) Load(valid []models.Record, rejected []models.RejectedRecord, sourceFile string, runID int64) (int, int, error) {
	tx, err := l.db.Begin()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin load transaction: %w", err)
	}
	defer tx.Rollback()

	if err := l.upsertIndicators(tx, ExtractIndicators(valid)); err != nil {
		return 0, 0, err
	}
	if err := l.upsertGeographic(tx, ExtractGeographicAreas(valid)); err != nil {
		return 0, 0, err
	}

	measurementsInserted, err := l.insertMeasurements(tx, valid, runID)
	if err != nil {
		return 0, 0, err
	}

	rejectsInserted, err := l.insertRejects(tx, rejected, sourceFile, runID)
	if err != nil {
		return 0, 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit load transaction: %w", err)
	}

	logger.Log.Infof("Load complete for run %d: %d new measurements (%d presented), %d rejects",
		runID, measurementsInserted, len(valid), rejectsInserted)
	return measurementsInserted, rejectsInserted, nil
}

// The no-op ON DUPLICATE KEY UPDATE makes colliding ids silent skips (the
// existing row wins) while leaving every other constraint, foreign keys
// included, free to fail the transaction. Affected-row counts then reflect
// only rows actually inserted.
func (l *Loader) upsertIndicators(tx *sql.Tx, dims []models.Indicator) error {
	for start := 0; start < len(dims); start += l.batchSize {
		chunk := dims[start:min(start+l.batchSize, len(dims))]
		query := `INSERT INTO indicators (indicator_id, name, measure, measure_info) VALUES ` +
			placeholders(len(chunk), 4) +
			` ON DUPLICATE KEY UPDATE indicator_id = indicator_id`

		args := make([]any, 0, len(chunk)*4)
		for _, d := range chunk {
			args = append(args, d.IndicatorID, d.Name, nullable(d.Measure), nullable(d.MeasureInfo))
		}
		if _, err := tx.Exec(query, args...); err != nil {
			return fmt.Errorf("failed to insert indicator dimensions: %w", err)
		}
	}
	return nil
}

func (l *Loader) upsertGeographic(tx *sql.Tx, dims []models.GeographicArea) error {
	for start := 0; start < len(dims); start += l.batchSize {
		chunk := dims[start:min(start+l.batchSize, len(dims))]
		query := `INSERT INTO geographic (geo_join_id, geo_type_name, geo_place_name) VALUES ` +
			placeholders(len(chunk), 3) +
			` ON DUPLICATE KEY UPDATE geo_join_id = geo_join_id`

		args := make([]any, 0, len(chunk)*3)
		for _, d := range chunk {
			args = append(args, d.GeoJoinID, nullable(d.GeoTypeName), nullable(d.GeoPlaceName))
		}
		if _, err := tx.Exec(query, args...); err != nil {
			return fmt.Errorf("failed to insert geographic dimensions: %w", err)
		}
	}
	return nil
}

func (l *Loader) insertMeasurements(tx *sql.Tx, records []models.Record, runID int64) (int, error) {
	inserted := 0
	for start := 0; start < len(records); start += l.batchSize {
		chunk := records[start:min(start+l.batchSize, len(records))]
		query := `INSERT INTO measurements
			(unique_id, indicator_id, geo_join_id, time_period, start_date, data_value, message, run_id) VALUES ` +
			placeholders(len(chunk), 8) +
			` ON DUPLICATE KEY UPDATE unique_id = unique_id`

		args := make([]any, 0, len(chunk)*8)
		for _, r := range chunk {
			var startDate any
			if !r.StartDate.IsZero() {
				startDate = r.StartDate.Format(models.DateLayout)
			}
			var dataValue any
			if r.DataValue != nil {
				dataValue = *r.DataValue
			}
			args = append(args,
				r.UniqueID, r.IndicatorID, r.GeoJoinID,
				nullable(r.TimePeriod), startDate, dataValue, nullable(r.Message), runID,
			)
		}

		res, err := tx.Exec(query, args...)
		if err != nil {
			return 0, fmt.Errorf("failed to insert measurements: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to read measurement insert count: %w", err)
		}
		inserted += int(affected)
	}
	return inserted, nil
}

// Rejects are append-only: no conflict target, identical rejections from
// separate runs each get their own row.
func (l *Loader) insertRejects(tx *sql.Tx, rejected []models.RejectedRecord, sourceFile string, runID int64) (int, error) {
	inserted := 0
	for start := 0; start < len(rejected); start += l.batchSize {
		chunk := rejected[start:min(start+l.batchSize, len(rejected))]
		query := `INSERT INTO ingestion_rejects (run_id, raw_record, error_reason, source_file) VALUES ` +
			placeholders(len(chunk), 4)

		args := make([]any, 0, len(chunk)*4)
		for _, r := range chunk {
			payload, reason, err := rejectPayload(r)
			if err != nil {
				return 0, err
			}
			args = append(args, runID, payload, reason, sourceFile)
		}

		res, err := tx.Exec(query, args...)
		if err != nil {
			return 0, fmt.Errorf("failed to insert rejects: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to read reject insert count: %w", err)
		}
		inserted += int(affected)
	}
	return inserted, nil
}

// rejectPayload serializes the cleaned record, NaN-sanitized so the JSON
// encoder cannot choke, with the error reason embedded alongside the fields.
func rejectPayload(r models.RejectedRecord) ([]byte, string, error) {
	reason := r.Reason
	if reason == "" {
		reason = "Validation failed"
	}

	sanitized, _ := utils.SanitizeForJSON(r.Fields).(map[string]any)
	if sanitized == nil {
		sanitized = map[string]any{}
	}
	sanitized["error_reason"] = reason

	payload, err := json.Marshal(sanitized)
	if err != nil {
		return nil, "", fmt.Errorf("failed to serialize reject payload: %w", err)
	}
	return payload, reason, nil
}

func placeholders(rows, cols int) string {
	row := "(" + strings.TrimSuffix(strings.Repeat("?, ", cols), ", ") + ")"
	out := make([]string, rows)
	for i := range out {
		out[i] = row
	}
	return strings.Join(out, ", ")
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
