// ingest/downloader.go
package ingest

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/nycenv/aqingest/config"
	"github.com/nycenv/aqingest/logger"
)

// DownloadFile downloads a file from a URL and saves it to a local path.
func DownloadFile(url string, localSavePath string) error {
	logger.Log.Infof("Downloading %s to %s", url, localSavePath)

	client := http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("failed to make GET request to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download file from %s: received status code %d", url, resp.StatusCode)
	}

	dir := filepath.Dir(localSavePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	outFile, err := os.Create(localSavePath)
	if err != nil {
		return fmt.Errorf("failed to create local file %s: %w", localSavePath, err)
	}
	defer outFile.Close()

	if _, err := io.Copy(outFile, resp.Body); err != nil {
		return fmt.Errorf("failed to copy downloaded content to %s: %w", localSavePath, err)
	}

	logger.Log.Infof("Successfully downloaded %s", url)
	return nil
}

// DownloadSourceCSV fetches the configured air-quality extract and saves it
// under the download dir with a timestamped name. It returns the local path
// of the downloaded file.
func DownloadSourceCSV(src config.SourceConfig) (string, error) {
	if src.CSVURL == "" {
		return "", fmt.Errorf("source CSV URL is not configured")
	}
	dir := src.DownloadDir
	if dir == "" {
		dir = "temp_data"
	}

	localPath := filepath.Join(dir, fmt.Sprintf("air_quality_%s.csv", time.Now().Format("20060102_150405")))
	if err := DownloadFile(src.CSVURL, localPath); err != nil {
		return "", fmt.Errorf("failed to download source CSV: %w", err)
	}
	return localPath, nil
}
