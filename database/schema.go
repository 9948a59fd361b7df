// database/schema.go
package database

import (
	"database/sql"
	"fmt"

	"github.com/nycenv/aqingest/logger"
)

const createIngestionRuns = `
CREATE TABLE IF NOT EXISTS ingestion_runs (
	run_id           BIGINT AUTO_INCREMENT PRIMARY KEY,
	source_file      VARCHAR(255) NOT NULL,
	start_timestamp  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	end_timestamp    TIMESTAMP NULL,
	records_ingested INT NOT NULL DEFAULT 0,
	records_approved INT NOT NULL DEFAULT 0,
	records_rejected INT NOT NULL DEFAULT 0,
	records_deduped  INT NOT NULL DEFAULT 0,
	status           VARCHAR(16) NOT NULL DEFAULT 'STARTED',
	error_message    TEXT NULL
)`

const createIndicators = `
CREATE TABLE IF NOT EXISTS indicators (
	indicator_id BIGINT PRIMARY KEY,
	name         TEXT NOT NULL,
	measure      TEXT NULL,
	measure_info TEXT NULL
)`

const createGeographic = `
CREATE TABLE IF NOT EXISTS geographic (
	geo_join_id    VARCHAR(64) PRIMARY KEY,
	geo_type_name  TEXT NULL,
	geo_place_name TEXT NULL
)`

const createMeasurements = `
CREATE TABLE IF NOT EXISTS measurements (
	unique_id      BIGINT PRIMARY KEY,
	indicator_id   BIGINT NOT NULL,
	geo_join_id    VARCHAR(64) NOT NULL,
	time_period    VARCHAR(64) NULL,
	start_date     DATE NULL,
	data_value     DOUBLE NULL,
	message        TEXT NULL,
	run_id         BIGINT NOT NULL,
	load_timestamp TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	CONSTRAINT fk_measurements_indicator  FOREIGN KEY (indicator_id) REFERENCES indicators (indicator_id),
	CONSTRAINT fk_measurements_geographic FOREIGN KEY (geo_join_id) REFERENCES geographic (geo_join_id),
	CONSTRAINT fk_measurements_run        FOREIGN KEY (run_id) REFERENCES ingestion_runs (run_id)
)`

const createIngestionRejects = `
CREATE TABLE IF NOT EXISTS ingestion_rejects (
	reject_id    BIGINT AUTO_INCREMENT PRIMARY KEY,
	run_id       BIGINT NOT NULL,
	raw_record   JSON NOT NULL,
	error_reason TEXT NOT NULL,
	source_file  VARCHAR(255) NOT NULL,
	rejected_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	CONSTRAINT fk_rejects_run FOREIGN KEY (run_id) REFERENCES ingestion_runs (run_id)
)`

// Dimension and run tables must exist before the fact table that references
// them by foreign key.
var createStatements = []string{
	createIngestionRuns,
	createIndicators,
	createGeographic,
	createMeasurements,
	createIngestionRejects,
}

// Reverse dependency order for the destructive reset path.
var dropStatements = []string{
	"DROP TABLE IF EXISTS ingestion_rejects",
	"DROP TABLE IF EXISTS measurements",
	"DROP TABLE IF EXISTS geographic",
	"DROP TABLE IF EXISTS indicators",
	"DROP TABLE IF EXISTS ingestion_runs",
}

// Migrate ensures the schema exists. With reset=true it drops everything
// first, wiping all ingested data and run history.
func Migrate(db *sql.DB, reset bool) error {
	if reset {
		logger.Log.Warn("Resetting schema: dropping all ingestion tables")
		for _, stmt := range dropStatements {
			if _, err := db.Exec(stmt); err != nil {
				return fmt.Errorf("failed to drop table: %w", err)
			}
		}
	}

	for _, stmt := range createStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	logger.Log.Info("Database tables verified/created")
	return nil
}
