// main.go
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/nycenv/aqingest/config"
	"github.com/nycenv/aqingest/database"
	"github.com/nycenv/aqingest/handlers"
	"github.com/nycenv/aqingest/logger"
	"github.com/nycenv/aqingest/services"
)

func main() {
	configPath := flag.String("config", "", "path to the yaml config file")
	ingestPath := flag.String("ingest", "", "ingest this CSV file and exit instead of serving")
	resetDB := flag.Bool("reset-db", false, "drop and recreate all ingestion tables before starting (destructive)")
	flag.Parse()

	path := resolveConfigPath(*configPath)
	cfg, err := config.LoadConfig(path)
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	if err := logger.Initialize(cfg.App.LogLevel, cfg.App.LogJSON); err != nil {
		log.Fatalf("Error initializing logger: %v", err)
	}
	defer logger.Sync()
	logger.Log.Infof("Configuration loaded from %s (db: %s, batch size: %d)",
		path, cfg.Database.DBName, cfg.Database.BatchSize)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Log.Fatalf("Error initializing database: %v", err)
	}
	defer database.Close(db)

	if err := database.Migrate(db, *resetDB); err != nil {
		logger.Log.Fatalf("Error migrating schema: %v", err)
	}

	ingestion := services.NewIngestionService(cfg, db)
	refresh := services.NewRefreshService(cfg, ingestion)

	if *ingestPath != "" {
		runOnce(ingestion, *ingestPath)
		return
	}

	mux := http.NewServeMux()
	handlers.New(ingestion, refresh).Register(mux)
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.Ping(); err != nil {
			logger.Log.Errorf("Health check failed: DB ping error: %v", err)
			http.Error(w, `{"status": "error", "message": "database connection error"}`, http.StatusInternalServerError)
			return
		}
		fmt.Fprintln(w, `{"status": "ok", "message": "air quality ingestion service is healthy"}`)
	})

	addr := ":" + cfg.Server.Port
	logger.Log.Infof("Server starting on http://localhost%s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Log.Fatalf("Error starting server: %v", err)
	}
}

// runOnce runs a single ingestion against a local file, the original batch
// mode. The run row carries the outcome either way; the exit code mirrors it.
func runOnce(ingestion *services.IngestionService, path string) {
	summary, err := ingestion.IngestFile(path)
	if err != nil {
		logger.Log.Errorf("Ingestion failed: %v", err)
		logger.Sync()
		os.Exit(1)
	}
	logger.Log.Infof("Run %d finished: ingested=%d approved=%d rejected=%d deduped=%d inserted=%d status=%s",
		summary.RunID, summary.Ingested, summary.Approved, summary.Rejected,
		summary.Deduped, summary.Inserted, summary.Status)
}

func resolveConfigPath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	for _, p := range []string{"config.yaml", "config/config.yaml"} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return "config/config.yaml"
}
