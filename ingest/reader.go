// ingest/reader.go
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/nycenv/aqingest/logger"
	"github.com/nycenv/aqingest/models"
)

// csvRow mirrors the known columns of the air-quality extract. Values stay
// strings here; type coercion is the Validator's job, not the reader's.
type csvRow struct {
	UniqueID     string `csv:"unique_id"`
	IndicatorID  string `csv:"indicator_id"`
	Name         string `csv:"name"`
	Measure      string `csv:"measure"`
	MeasureInfo  string `csv:"measure_info"`
	GeoTypeName  string `csv:"geo_type_name"`
	GeoJoinID    string `csv:"geo_join_id"`
	GeoPlaceName string `csv:"geo_place_name"`
	TimePeriod   string `csv:"time_period"`
	StartDate    string `csv:"start_date"`
	DataValue    string `csv:"data_value"`
	Message      string `csv:"message"`
}

// ReadCSV reads a source file into raw records. Column names are normalized
// to lowercase with underscores so the rest of the pipeline can address
// fields consistently regardless of how the extract spells its headers.
func ReadCSV(path string) ([]models.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open source file %s: %w", path, err)
	}
	defer f.Close()

	records, err := DecodeCSV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV %s: %w", path, err)
	}
	logger.Log.Infof("Read %d records from %s", len(records), path)
	return records, nil
}

// DecodeCSV decodes CSV data into raw records. Known columns are decoded via
// csvutil into csvRow; any column the schema does not know about is carried
// through untouched so rejects keep their full original payload.
func DecodeCSV(r io.Reader) ([]models.RawRecord, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	normalized := NormalizeHeader(header)

	dec, err := csvutil.NewDecoder(cr, normalized...)
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV decoder: %w", err)
	}

	present := make(map[string]bool, len(normalized))
	for _, name := range normalized {
		present[name] = true
	}

	var records []models.RawRecord
	for {
		var row csvRow
		if err := dec.Decode(&row); errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, fmt.Errorf("failed to decode CSV record %d: %w", len(records)+1, err)
		}
		records = append(records, rawFromRow(&row, present, normalized, dec.Record(), dec.Unused()))
	}
	return records, nil
}

// NormalizeHeader lowercases column names, trims whitespace and replaces
// spaces with underscores ("Geo Place Name" -> "geo_place_name").
func NormalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")
	}
	return out
}

func rawFromRow(row *csvRow, present map[string]bool, header, record []string, unused []int) models.RawRecord {
	raw := make(models.RawRecord, len(header))

	known := []struct {
		name  string
		value string
	}{
		{"unique_id", row.UniqueID},
		{"indicator_id", row.IndicatorID},
		{"name", row.Name},
		{"measure", row.Measure},
		{"measure_info", row.MeasureInfo},
		{"geo_type_name", row.GeoTypeName},
		{"geo_join_id", row.GeoJoinID},
		{"geo_place_name", row.GeoPlaceName},
		{"time_period", row.TimePeriod},
		{"start_date", row.StartDate},
		{"data_value", row.DataValue},
		{"message", row.Message},
	}
	for _, f := range known {
		if present[f.name] {
			raw[f.name] = f.value
		}
	}

	// Columns csvutil had no field for pass through by position.
	for _, i := range unused {
		if i < len(header) && i < len(record) {
			raw[header[i]] = record[i]
		}
	}
	return raw
}
