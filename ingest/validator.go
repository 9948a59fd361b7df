// ingest/validator.go
package ingest

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/nycenv/aqingest/config"
	"github.com/nycenv/aqingest/models"
)

// Validator classifies raw records as valid (coerced into a typed Record) or
// rejected (cleaned as far as possible, plus a reason). Per-record failures
// are values, never errors: a bad row is a reject, not an abort.
type Validator struct {
	RequiredFields []string
	NumericFields  []string
	DateFields     []string
}

func NewValidator(cfg config.ValidationConfig) *Validator {
	return &Validator{
		RequiredFields: cfg.RequiredFields,
		NumericFields:  cfg.NumericFields,
		DateFields:     cfg.DateFields,
	}
}

// Date layouts accepted for date fields, tried in order.
var dateLayouts = []string{
	models.DateLayout,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01/02/2006",
	"1/2/2006",
}

// CleanValue normalizes a single value for validation and DB insertion:
// NaN and infinite floats become nil, strings are trimmed and empty strings
// become nil. Everything else passes through.
func CleanValue(value any) any {
	switch v := value.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		return v
	case float32:
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return f
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil
		}
		return s
	default:
		return value
	}
}

// ValidateRecord runs the fixed validation sequence on one raw record:
// normalize, required-field check, identifier coercion, numeric coercion,
// date coercion. The first failure wins. On success the returned Record is
// non-nil; on failure the returned RejectedRecord carries the partially
// cleaned fields and the reason.
func (v *Validator) ValidateRecord(raw models.RawRecord) (*models.Record, *models.RejectedRecord) {
	cleaned := make(map[string]any, len(raw))
	for k, val := range raw {
		cleaned[k] = CleanValue(val)
	}

	for _, field := range v.RequiredFields {
		if cleaned[field] == nil {
			return nil, &models.RejectedRecord{
				Fields: cleaned,
				Reason: "Missing required field: " + field,
			}
		}
	}

	uniqueID, err := toInt64(cleaned["unique_id"])
	if err == nil {
		cleaned["unique_id"] = uniqueID
	}
	indicatorID, err2 := toInt64(cleaned["indicator_id"])
	if err2 == nil {
		cleaned["indicator_id"] = indicatorID
	}
	if err != nil || err2 != nil {
		return nil, &models.RejectedRecord{Fields: cleaned, Reason: "Invalid integer field"}
	}

	for _, field := range v.NumericFields {
		if cleaned[field] == nil {
			continue
		}
		n, err := toFloat64(cleaned[field])
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, &models.RejectedRecord{
				Fields: cleaned,
				Reason: fmt.Sprintf("Invalid numeric value for %s", field),
			}
		}
		cleaned[field] = n
	}

	dates := make(map[string]time.Time, len(v.DateFields))
	for _, field := range v.DateFields {
		if cleaned[field] == nil {
			continue
		}
		d, err := toDate(cleaned[field])
		if err != nil {
			return nil, &models.RejectedRecord{
				Fields: cleaned,
				Reason: fmt.Sprintf("Invalid date format for %s", field),
			}
		}
		dates[field] = d
		cleaned[field] = d.Format(models.DateLayout)
	}

	return buildRecord(cleaned, dates, uniqueID, indicatorID), nil
}

// ValidateAll partitions a batch into valid and rejected records, preserving
// order within each partition. len(valid)+len(rejected) always equals
// len(records).
func (v *Validator) ValidateAll(records []models.RawRecord) ([]models.Record, []models.RejectedRecord) {
	valid := make([]models.Record, 0, len(records))
	rejected := make([]models.RejectedRecord, 0)

	for _, raw := range records {
		rec, rej := v.ValidateRecord(raw)
		if rec != nil {
			valid = append(valid, *rec)
		} else {
			rejected = append(rejected, *rej)
		}
	}
	return valid, rejected
}

// knownFields are the columns that map onto typed Record fields; everything
// else lands in Record.Extra.
var knownFields = map[string]bool{
	"unique_id": true, "indicator_id": true, "name": true,
	"measure": true, "measure_info": true, "geo_type_name": true,
	"geo_join_id": true, "geo_place_name": true, "time_period": true,
	"start_date": true, "data_value": true, "message": true,
}

func buildRecord(cleaned map[string]any, dates map[string]time.Time, uniqueID, indicatorID int64) *models.Record {
	rec := &models.Record{
		UniqueID:     uniqueID,
		IndicatorID:  indicatorID,
		Name:         stringField(cleaned, "name"),
		Measure:      stringField(cleaned, "measure"),
		MeasureInfo:  stringField(cleaned, "measure_info"),
		GeoTypeName:  stringField(cleaned, "geo_type_name"),
		GeoJoinID:    stringField(cleaned, "geo_join_id"),
		GeoPlaceName: stringField(cleaned, "geo_place_name"),
		TimePeriod:   stringField(cleaned, "time_period"),
		Message:      stringField(cleaned, "message"),
	}

	if d, ok := dates["start_date"]; ok {
		rec.StartDate = d
	} else if raw := cleaned["start_date"]; raw != nil {
		// start_date outside the configured date fields still gets a
		// best-effort parse so the fact row has a usable date.
		if d, err := toDate(raw); err == nil {
			rec.StartDate = d
		}
	}

	if raw := cleaned["data_value"]; raw != nil {
		if n, err := toFloat64(raw); err == nil && !math.IsNaN(n) && !math.IsInf(n, 0) {
			rec.DataValue = &n
		}
	}

	for k, val := range cleaned {
		if knownFields[k] {
			continue
		}
		if rec.Extra == nil {
			rec.Extra = make(map[string]any)
		}
		rec.Extra[k] = val
	}
	return rec
}

func stringField(cleaned map[string]any, name string) string {
	v := cleaned[name]
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func toInt64(value any) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	default:
		return 0, fmt.Errorf("cannot interpret %T as integer", value)
	}
}

func toFloat64(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return 0, fmt.Errorf("cannot interpret %T as number", value)
	}
}

func toDate(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range dateLayouts {
			if d, err := time.Parse(layout, s); err == nil {
				return d, nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized date %q", s)
	default:
		return time.Time{}, fmt.Errorf("cannot interpret %T as date", value)
	}
}
