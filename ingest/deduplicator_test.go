package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nycenv/aqingest/models"
)

var dedupKeys = []string{"unique_id", "indicator_id", "geo_place_name", "start_date"}

func measurement(uniqueID, indicatorID int64, place string, day int) models.Record {
	return models.Record{
		UniqueID:     uniqueID,
		IndicatorID:  indicatorID,
		GeoPlaceName: place,
		StartDate:    time.Date(2020, 1, day, 0, 0, 0, 0, time.UTC),
	}
}

func TestDeduplicateRemovesExactDuplicates(t *testing.T) {
	records := []models.Record{
		measurement(1, 10, "NY", 1),
		measurement(1, 10, "NY", 1),
	}

	unique, err := Deduplicate(records, dedupKeys)
	require.NoError(t, err)
	require.Len(t, unique, 1)
	assert.Equal(t, int64(1), unique[0].UniqueID)
}

func TestDeduplicateKeepsDistinctRecords(t *testing.T) {
	records := []models.Record{
		measurement(1, 10, "New York", 1),
		measurement(2, 10, "New York", 1),
		measurement(1, 10, "Brooklyn", 1),
		measurement(1, 10, "New York", 2),
	}

	unique, err := Deduplicate(records, dedupKeys)
	require.NoError(t, err)
	assert.Len(t, unique, 4)
}

func TestDeduplicatePreservesFirstOccurrenceOrder(t *testing.T) {
	a := measurement(1, 10, "NY", 1)
	b := measurement(2, 10, "NY", 1)
	records := []models.Record{a, b, a, b, a}

	unique, err := Deduplicate(records, dedupKeys)
	require.NoError(t, err)
	require.Len(t, unique, 2)
	assert.Equal(t, int64(1), unique[0].UniqueID)
	assert.Equal(t, int64(2), unique[1].UniqueID)
}

func TestDeduplicateMissingKeyIsFatal(t *testing.T) {
	records := []models.Record{measurement(1, 10, "NY", 1)}

	_, err := Deduplicate(records, []string{"unique_id", "no_such_field"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no_such_field")
}

func TestDeduplicateKeyFromExtraField(t *testing.T) {
	a := measurement(1, 10, "NY", 1)
	a.Extra = map[string]any{"borough_code": "K"}
	b := measurement(2, 10, "NY", 1)
	b.Extra = map[string]any{"borough_code": "K"}

	unique, err := Deduplicate([]models.Record{a, b}, []string{"borough_code"})
	require.NoError(t, err)
	assert.Len(t, unique, 1)
}

func TestCountDuplicatesMatchesRemovedCount(t *testing.T) {
	records := []models.Record{
		measurement(1, 10, "NY", 1),
		measurement(1, 10, "NY", 1),
		measurement(2, 10, "NY", 1),
		measurement(1, 10, "NY", 1),
	}

	unique, err := Deduplicate(records, dedupKeys)
	require.NoError(t, err)
	count, err := CountDuplicates(records, dedupKeys)
	require.NoError(t, err)
	assert.Equal(t, len(records)-len(unique), count)
	assert.Equal(t, 2, count)
}

func TestCountDuplicatesMissingKeyIsFatal(t *testing.T) {
	records := []models.Record{measurement(1, 10, "NY", 1)}

	_, err := CountDuplicates(records, []string{"missing"})
	require.Error(t, err)
}

func TestDeduplicateAdjacentFieldsDoNotCollide(t *testing.T) {
	a := measurement(1, 10, "ab", 1)
	a.GeoPlaceName = "ab"
	b := measurement(1, 10, "a", 1)
	b.GeoPlaceName = "a"
	b.Extra = map[string]any{}

	unique, err := Deduplicate([]models.Record{a, b}, []string{"unique_id", "geo_place_name"})
	require.NoError(t, err)
	assert.Len(t, unique, 2)
}
