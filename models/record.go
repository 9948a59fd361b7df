// models/record.go
package models

import (
	"fmt"
	"strconv"
	"time"
)

// DateLayout is the canonical form for dates in keys, JSON payloads and the DB.
const DateLayout = "2006-01-02"

// RawRecord is one row as read from a source file, keyed by normalized
// (lowercase, underscores-for-spaces) column name. Values are whatever the
// reader produced; CSV sources yield strings. A RawRecord has no identity
// beyond its position in the source.
type RawRecord map[string]any

// Record is a measurement record that passed validation. The columns the
// pipeline understands are typed fields; any additional columns the source
// carried ride along in Extra, cleaned but otherwise untouched.
type Record struct {
	UniqueID     int64      `json:"unique_id"`
	IndicatorID  int64      `json:"indicator_id"`
	Name         string     `json:"name"`
	Measure      string     `json:"measure,omitempty"`
	MeasureInfo  string     `json:"measure_info,omitempty"`
	GeoTypeName  string     `json:"geo_type_name"`
	GeoJoinID    string     `json:"geo_join_id"`
	GeoPlaceName string     `json:"geo_place_name"`
	TimePeriod   string     `json:"time_period,omitempty"`
	StartDate    time.Time  `json:"start_date"`
	DataValue    *float64   `json:"data_value,omitempty"`
	Message      string     `json:"message,omitempty"`

	Extra map[string]any `json:"-"`
}

// Field returns the canonical string form of a named field, for building
// composite deduplication keys. ok is false only when the record carries no
// field of that name at all; a null/empty value still reports ok=true, the
// same way an explicit null column would.
func (r *Record) Field(name string) (string, bool) {
	switch name {
	case "unique_id":
		return strconv.FormatInt(r.UniqueID, 10), true
	case "indicator_id":
		return strconv.FormatInt(r.IndicatorID, 10), true
	case "name":
		return r.Name, true
	case "measure":
		return r.Measure, true
	case "measure_info":
		return r.MeasureInfo, true
	case "geo_type_name":
		return r.GeoTypeName, true
	case "geo_join_id":
		return r.GeoJoinID, true
	case "geo_place_name":
		return r.GeoPlaceName, true
	case "time_period":
		return r.TimePeriod, true
	case "start_date":
		return r.StartDate.Format(DateLayout), true
	case "data_value":
		if r.DataValue == nil {
			return "", true
		}
		return strconv.FormatFloat(*r.DataValue, 'g', -1, 64), true
	case "message":
		return r.Message, true
	}
	v, ok := r.Extra[name]
	if !ok {
		return "", false
	}
	if v == nil {
		return "", true
	}
	return fmt.Sprint(v), true
}

// RejectedRecord keeps a cleaned-as-far-as-possible record together with the
// reason validation turned it away. It is an audit artifact, not a dropped
// record: original field values survive aside from NaN-to-null normalization.
type RejectedRecord struct {
	Fields map[string]any `json:"fields"`
	Reason string         `json:"error_reason"`
}
