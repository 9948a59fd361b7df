// services/refresh_service.go
package services

import (
	"fmt"
	"os"

	"github.com/nycenv/aqingest/config"
	"github.com/nycenv/aqingest/ingest"
	"github.com/nycenv/aqingest/logger"
	"github.com/nycenv/aqingest/models"
)

// RefreshService decides whether the portal has newer data than we have
// ingested and, if so, downloads the extract and runs it through the
// pipeline.
type RefreshService struct {
	cfg       *config.Config
	ingestion *IngestionService
}

func NewRefreshService(cfg *config.Config, ingestion *IngestionService) *RefreshService {
	return &RefreshService{cfg: cfg, ingestion: ingestion}
}

// CheckAndIngest ingests the configured source. Unless forced, it first
// scrapes the dataset page and skips the download when the advertised
// "last updated" date is not newer than our last successful run. A nil
// summary with a nil error means the skip path was taken.
func (s *RefreshService) CheckAndIngest(force bool) (*models.RunSummary, error) {
	if !force {
		stale, err := s.sourceIsNewer()
		if err != nil {
			return nil, err
		}
		if !stale {
			logger.Log.Info("Dataset is not newer than the last successful run, skipping ingestion")
			return nil, nil
		}
	}

	localPath, err := ingest.DownloadSourceCSV(s.cfg.Source)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := os.Remove(localPath); err != nil {
			logger.Log.Errorf("Failed to remove temporary file %s: %v", localPath, err)
		}
	}()

	return s.ingestion.IngestFile(localPath)
}

func (s *RefreshService) sourceIsNewer() (bool, error) {
	if s.cfg.Source.PageURL == "" {
		return false, fmt.Errorf("dataset page URL is not configured; use force to ingest anyway")
	}

	fresh, err := ingest.FetchSourceFreshness(s.cfg.Source.PageURL, s.cfg.Source.UpdatedSelector)
	if err != nil {
		return false, fmt.Errorf("failed to check dataset freshness: %w", err)
	}

	last, err := s.lastSuccessfulRun()
	if err != nil {
		return false, err
	}
	if last == nil {
		// Nothing ingested yet, anything the portal has is new to us.
		return true, nil
	}
	return fresh.LastUpdated.After(last.StartTimestamp), nil
}

func (s *RefreshService) lastSuccessfulRun() (*models.IngestionRun, error) {
	runs, err := s.ingestion.Runs().ListRuns(50)
	if err != nil {
		return nil, err
	}
	for i := range runs {
		if runs[i].Status == models.RunSuccess {
			return &runs[i], nil
		}
	}
	return nil, nil
}
