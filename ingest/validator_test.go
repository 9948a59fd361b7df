package ingest

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nycenv/aqingest/config"
	"github.com/nycenv/aqingest/models"
)

func defaultValidator() *Validator {
	return NewValidator(config.ValidationConfig{
		RequiredFields: config.DefaultRequiredFields,
		NumericFields:  config.DefaultNumericFields,
		DateFields:     config.DefaultDateFields,
	})
}

func validRaw() models.RawRecord {
	return models.RawRecord{
		"unique_id":      "101",
		"indicator_id":   "640",
		"name":           "PM2.5",
		"measure":        "Mean",
		"measure_info":   "mcg/m3",
		"geo_type_name":  "City",
		"geo_join_id":    "3651000",
		"geo_place_name": "New York",
		"time_period":    "2023",
		"start_date":     "2023-01-01",
		"data_value":     "12.5",
		"message":        "",
	}
}

func TestValidateRecordCoercesFields(t *testing.T) {
	rec, rej := defaultValidator().ValidateRecord(validRaw())
	require.Nil(t, rej)
	require.NotNil(t, rec)

	assert.Equal(t, int64(101), rec.UniqueID)
	assert.Equal(t, int64(640), rec.IndicatorID)
	assert.Equal(t, "PM2.5", rec.Name)
	assert.Equal(t, "3651000", rec.GeoJoinID)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), rec.StartDate)
	require.NotNil(t, rec.DataValue)
	assert.Equal(t, 12.5, *rec.DataValue)
	assert.Equal(t, "", rec.Message)
}

func TestValidateRecordTrimsWhitespace(t *testing.T) {
	raw := validRaw()
	raw["unique_id"] = "  101  "
	raw["name"] = "  PM2.5  "

	rec, rej := defaultValidator().ValidateRecord(raw)
	require.Nil(t, rej)
	assert.Equal(t, int64(101), rec.UniqueID)
	assert.Equal(t, "PM2.5", rec.Name)
}

func TestValidateRecordMissingRequiredField(t *testing.T) {
	raw := validRaw()
	delete(raw, "start_date")

	rec, rej := defaultValidator().ValidateRecord(raw)
	require.Nil(t, rec)
	require.NotNil(t, rej)
	assert.Equal(t, "Missing required field: start_date", rej.Reason)
}

func TestValidateRecordEmptyStringIsMissing(t *testing.T) {
	raw := validRaw()
	raw["name"] = "   "

	rec, rej := defaultValidator().ValidateRecord(raw)
	require.Nil(t, rec)
	require.NotNil(t, rej)
	assert.Equal(t, "Missing required field: name", rej.Reason)
}

func TestValidateRecordInvalidInteger(t *testing.T) {
	raw := validRaw()
	raw["indicator_id"] = "PM2.5"

	rec, rej := defaultValidator().ValidateRecord(raw)
	require.Nil(t, rec)
	require.NotNil(t, rej)
	assert.Equal(t, "Invalid integer field", rej.Reason)
}

func TestValidateRecordInvalidNumeric(t *testing.T) {
	raw := validRaw()
	raw["data_value"] = "abc"

	rec, rej := defaultValidator().ValidateRecord(raw)
	require.Nil(t, rec)
	require.NotNil(t, rej)
	assert.Equal(t, "Invalid numeric value for data_value", rej.Reason)
}

func TestValidateRecordNaNStringRejected(t *testing.T) {
	raw := validRaw()
	raw["data_value"] = "NaN"

	rec, rej := defaultValidator().ValidateRecord(raw)
	require.Nil(t, rec)
	require.NotNil(t, rej)
	assert.Contains(t, rej.Reason, "data_value")
}

func TestValidateRecordFloatNaNBecomesNull(t *testing.T) {
	// A float NaN from an in-memory producer is a null marker, not a value;
	// data_value is optional so the record stays valid.
	raw := validRaw()
	raw["data_value"] = math.NaN()

	rec, rej := defaultValidator().ValidateRecord(raw)
	require.Nil(t, rej)
	require.NotNil(t, rec)
	assert.Nil(t, rec.DataValue)
}

func TestValidateRecordInvalidDate(t *testing.T) {
	raw := validRaw()
	raw["start_date"] = "bad-date"

	rec, rej := defaultValidator().ValidateRecord(raw)
	require.Nil(t, rec)
	require.NotNil(t, rej)
	assert.Equal(t, "Invalid date format for start_date", rej.Reason)
}

func TestValidateRecordAcceptsAlternateDateLayouts(t *testing.T) {
	raw := validRaw()
	raw["start_date"] = "01/02/2023"

	rec, rej := defaultValidator().ValidateRecord(raw)
	require.Nil(t, rej)
	assert.Equal(t, time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC), rec.StartDate)
}

func TestValidateRecordUnknownColumnsLandInExtra(t *testing.T) {
	raw := validRaw()
	raw["borough_code"] = "K"

	rec, rej := defaultValidator().ValidateRecord(raw)
	require.Nil(t, rej)
	require.NotNil(t, rec.Extra)
	assert.Equal(t, "K", rec.Extra["borough_code"])
}

func TestValidateRecordRejectKeepsCleanedFields(t *testing.T) {
	raw := validRaw()
	raw["start_date"] = "bad-date"
	raw["name"] = "  PM2.5  "

	_, rej := defaultValidator().ValidateRecord(raw)
	require.NotNil(t, rej)
	assert.Equal(t, "PM2.5", rej.Fields["name"])
	assert.Equal(t, "bad-date", rej.Fields["start_date"])
	// Identifier coercion happened before the date failed.
	assert.Equal(t, int64(101), rej.Fields["unique_id"])
}

func TestValidateAllConservesCount(t *testing.T) {
	bad := validRaw()
	delete(bad, "geo_place_name")
	worse := validRaw()
	worse["unique_id"] = "xyz"

	records := []models.RawRecord{validRaw(), bad, validRaw(), worse}
	valid, rejected := defaultValidator().ValidateAll(records)

	assert.Len(t, valid, 2)
	assert.Len(t, rejected, 2)
	assert.Equal(t, len(records), len(valid)+len(rejected))
}

func TestValidateAllPreservesOrderWithinPartitions(t *testing.T) {
	first := validRaw()
	second := validRaw()
	second["unique_id"] = "102"
	bad := validRaw()
	bad["indicator_id"] = "nope"

	valid, rejected := defaultValidator().ValidateAll([]models.RawRecord{first, bad, second})

	require.Len(t, valid, 2)
	require.Len(t, rejected, 1)
	assert.Equal(t, int64(101), valid[0].UniqueID)
	assert.Equal(t, int64(102), valid[1].UniqueID)
}

func TestCleanValue(t *testing.T) {
	assert.Nil(t, CleanValue(""))
	assert.Nil(t, CleanValue("   "))
	assert.Nil(t, CleanValue(math.NaN()))
	assert.Nil(t, CleanValue(math.Inf(1)))
	assert.Equal(t, "x", CleanValue(" x "))
	assert.Equal(t, 12.5, CleanValue(12.5))
	assert.Equal(t, 7, CleanValue(7))
}
