// ingest/freshness.go
package ingest

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/nycenv/aqingest/logger"
)

// SourceFreshness is what the open-data portal page reports about the
// dataset, used to decide whether a re-ingestion is worthwhile.
type SourceFreshness struct {
	PageURL     string
	LastUpdated time.Time
	RawDateText string
	CheckedAt   time.Time
}

// The portal renders the update date either as "June 14, 2024" or as
// "06/14/2024" depending on the page variant.
var (
	longDateRegex  = regexp.MustCompile(`([A-Z][a-z]+ \d{1,2}, \d{4})`)
	shortDateRegex = regexp.MustCompile(`(\d{2}/\d{2}/\d{4})`)
)

const (
	longDateLayout  = "January 2, 2006"
	shortDateLayout = "01/02/2006"
)

// FetchSourceFreshness scrapes the dataset page and extracts the
// "Data Last Updated" date from the element matched by selector.
func FetchSourceFreshness(pageURL, selector string) (*SourceFreshness, error) {
	if selector == "" {
		// Searching the whole body works but is fragile; the selector should
		// come from config.
		logger.Log.Warnf("No CSS selector configured for the dataset page, falling back to 'body'")
		selector = "body"
	}
	logger.Log.Infof("Checking dataset freshness at %s (selector: %q)", pageURL, selector)

	client := http.Client{Timeout: 20 * time.Second}
	res, err := client.Get(pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get URL %s: %w", pageURL, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to get URL %s: status code %d", pageURL, res.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML from %s: %w", pageURL, err)
	}

	text := strings.TrimSpace(doc.Find(selector).Text())
	updated, raw, err := parseUpdatedDate(text)
	if err != nil {
		return nil, fmt.Errorf("no update date found on %s within %q: %w", pageURL, selector, err)
	}

	logger.Log.Infof("Dataset page reports last update %s", updated.Format("2006-01-02"))
	return &SourceFreshness{
		PageURL:     pageURL,
		LastUpdated: updated,
		RawDateText: raw,
		CheckedAt:   time.Now().UTC(),
	}, nil
}

func parseUpdatedDate(text string) (time.Time, string, error) {
	if m := longDateRegex.FindString(text); m != "" {
		d, err := time.Parse(longDateLayout, m)
		if err == nil {
			return d, m, nil
		}
	}
	if m := shortDateRegex.FindString(text); m != "" {
		d, err := time.Parse(shortDateLayout, m)
		if err == nil {
			return d, m, nil
		}
	}
	return time.Time{}, "", fmt.Errorf("no recognizable date in %q", truncate(text, 120))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
