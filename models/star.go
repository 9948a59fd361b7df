// models/star.go
package models

import (
	"encoding/json"
	"time"
)

// Indicator is a dimension row identified by indicator_id. Dimension rows are
// write-once per id: later records with the same id never overwrite them.
type Indicator struct {
	IndicatorID int64  `db:"indicator_id" json:"indicator_id"`
	Name        string `db:"name" json:"name"`
	Measure     string `db:"measure" json:"measure,omitempty"`
	MeasureInfo string `db:"measure_info" json:"measure_info,omitempty"`
}

// GeographicArea is a dimension row identified by geo_join_id. The join id is
// kept as an opaque string code, the way the source carries it.
type GeographicArea struct {
	GeoJoinID    string `db:"geo_join_id" json:"geo_join_id"`
	GeoTypeName  string `db:"geo_type_name" json:"geo_type_name"`
	GeoPlaceName string `db:"geo_place_name" json:"geo_place_name"`
}

// Measurement is the fact row: one observed value tied to an indicator, a
// geographic area and a time point. unique_id is globally unique across runs;
// re-ingesting an id is a silent no-op at load time.
type Measurement struct {
	UniqueID      int64     `db:"unique_id" json:"unique_id"`
	IndicatorID   int64     `db:"indicator_id" json:"indicator_id"`
	GeoJoinID     string    `db:"geo_join_id" json:"geo_join_id"`
	TimePeriod    string    `db:"time_period" json:"time_period,omitempty"`
	StartDate     time.Time `db:"start_date" json:"start_date"`
	DataValue     *float64  `db:"data_value" json:"data_value,omitempty"`
	Message       string    `db:"message" json:"message,omitempty"`
	RunID         int64     `db:"run_id" json:"run_id"`
	LoadTimestamp time.Time `db:"load_timestamp" json:"load_timestamp"`
}

// IngestionReject is the persisted form of a RejectedRecord, tagged with the
// run and source file it came from. Rejects are append-only.
type IngestionReject struct {
	RejectID    int64           `db:"reject_id" json:"reject_id"`
	RunID       int64           `db:"run_id" json:"run_id"`
	RawRecord   json.RawMessage `db:"raw_record" json:"raw_record"`
	ErrorReason string          `db:"error_reason" json:"error_reason"`
	SourceFile  string          `db:"source_file" json:"source_file"`
	RejectedAt  time.Time       `db:"rejected_at" json:"rejected_at"`
}
