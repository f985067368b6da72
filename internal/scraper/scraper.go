// Package scraper retrieves the announcements page and extracts newly
// published notice entries from it.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	maxAttempts  = 3
	retryDelay   = 5 * time.Second
	fetchTimeout = 30 * time.Second
)

// Notice is a candidate entry extracted from the announcements page.
// Date is nil when the page carries no parseable date for the entry.
type Notice struct {
	Title string
	Link  string
	Date  *time.Time
}

// Fetcher retrieves and parses the announcements page.
type Fetcher struct {
	client    *http.Client
	sourceURL string
	logger    *slog.Logger

	// delay between retry attempts; shortened in tests.
	delay time.Duration
}

// New creates a Fetcher for the given source URL.
func New(sourceURL string, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		client:    &http.Client{Timeout: fetchTimeout},
		sourceURL: sourceURL,
		logger:    logger,
		delay:     retryDelay,
	}
}

// FetchNew retrieves the page and returns the entries whose link is not in
// known, sorted by date descending with undated entries last. Transport
// failures and missing page structure are retried up to maxAttempts with a
// fixed delay; after exhausting attempts an empty slice is returned, never an
// error: a failed fetch means "no new notices this cycle".
func (f *Fetcher) FetchNew(ctx context.Context, known map[string]struct{}) []Notice {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		notices, err := f.fetchOnce(ctx, known)
		if err == nil {
			return notices
		}

		f.logger.Error("scrape attempt failed",
			"attempt", attempt, "max_attempts", maxAttempts, "error", err)

		if attempt < maxAttempts {
			select {
			case <-time.After(f.delay):
			case <-ctx.Done():
				return nil
			}
		}
	}
	return nil
}

// fetchOnce performs a single page retrieval and extraction pass.
func (f *Fetcher) fetchOnce(ctx context.Context, known map[string]struct{}) ([]Notice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}

	list, err := noticeList(doc)
	if err != nil {
		return nil, err
	}

	var notices []Notice
	list.Find("li").Each(func(_ int, li *goquery.Selection) {
		anchor := li.Find("a").First()
		if anchor.Length() == 0 {
			return
		}
		link, ok := anchor.Attr("href")
		if !ok || link == "" {
			return
		}
		if _, seen := known[link]; seen {
			return
		}

		notices = append(notices, Notice{
			Title: strings.TrimSpace(anchor.Text()),
			Link:  link,
			Date:  extractDate(li),
		})
	})

	sortByDateDesc(notices)
	return notices, nil
}

// noticeList walks the expected page structure down to the <ul> holding the
// notice items. Any missing level is a recoverable structural error.
func noticeList(doc *goquery.Document) (*goquery.Selection, error) {
	container := doc.Find("div.vc_tta-container").First()
	if container.Length() == 0 {
		return nil, fmt.Errorf("notices container not found")
	}

	panel := container.Find("div.vc_tta-panel.vc_active").First()
	if panel.Length() == 0 {
		return nil, fmt.Errorf("active notices panel not found")
	}

	wrapper := panel.Find("div.gen-list").First()
	if wrapper.Length() == 0 {
		return nil, fmt.Errorf("notices list wrapper not found")
	}

	list := wrapper.Find("ul").First()
	if list.Length() == 0 {
		return nil, fmt.Errorf("notices list not found")
	}
	return list, nil
}

// extractDate looks for a span whose class contains "date" inside the item
// and parses its text. A missing or unparseable date yields nil; the entry is
// kept either way.
func extractDate(li *goquery.Selection) *time.Time {
	var raw string
	li.Find("span").EachWithBreak(func(_ int, span *goquery.Selection) bool {
		class, _ := span.Attr("class")
		if strings.Contains(strings.ToLower(class), "date") {
			raw = strings.TrimSpace(span.Text())
			return false
		}
		return true
	})
	if raw == "" {
		return nil
	}
	return parseDate(raw)
}

// parseDate tries DD-MM-YYYY first, then YYYY-MM-DD.
func parseDate(raw string) *time.Time {
	for _, layout := range []string{"02-01-2006", "2006-01-02"} {
		if d, err := time.Parse(layout, raw); err == nil {
			return &d
		}
	}
	return nil
}

// sortByDateDesc orders entries newest first. Entries with no date are
// treated as older than any dated entry. The sort is stable so undated
// entries keep their page order.
func sortByDateDesc(notices []Notice) {
	sort.SliceStable(notices, func(i, j int) bool {
		di, dj := notices[i].Date, notices[j].Date
		if di == nil {
			return false
		}
		if dj == nil {
			return true
		}
		return di.After(*dj)
	})
}
