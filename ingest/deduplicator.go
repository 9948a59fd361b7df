// ingest/deduplicator.go
package ingest

import (
	"fmt"
	"strings"

	"github.com/nycenv/aqingest/models"
)

// Composite keys join field values with a unit separator so adjacent fields
// cannot collide ("ab"+"c" vs "a"+"bc").
const keySeparator = "\x1f"

// Deduplicate drops every record whose composite key was already seen,
// keeping first occurrences in their original order. A record that lacks one
// of the key fields is a hard error: by the time records reach dedup they
// have passed validation, so a missing key signals an upstream contract
// violation, not bad data.
func Deduplicate(records []models.Record, keys []string) ([]models.Record, error) {
	seen := make(map[string]bool, len(records))
	unique := make([]models.Record, 0, len(records))

	for _, rec := range records {
		key, err := buildKey(&rec, keys)
		if err != nil {
			return nil, err
		}
		if !seen[key] {
			seen[key] = true
			unique = append(unique, rec)
		}
	}
	return unique, nil
}

// CountDuplicates performs the same key-building pass as Deduplicate but only
// counts collisions, for run accounting.
func CountDuplicates(records []models.Record, keys []string) (int, error) {
	seen := make(map[string]bool, len(records))
	duplicates := 0

	for _, rec := range records {
		key, err := buildKey(&rec, keys)
		if err != nil {
			return 0, err
		}
		if seen[key] {
			duplicates++
		} else {
			seen[key] = true
		}
	}
	return duplicates, nil
}

func buildKey(rec *models.Record, keys []string) (string, error) {
	parts := make([]string, len(keys))
	for i, k := range keys {
		v, ok := rec.Field(k)
		if !ok {
			return "", fmt.Errorf("deduplication key %q missing in record unique_id=%d", k, rec.UniqueID)
		}
		parts[i] = v
	}
	return strings.Join(parts, keySeparator), nil
}
