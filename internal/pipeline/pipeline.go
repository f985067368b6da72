// Package pipeline drives the scrape → dedup → summarize → persist → alert
// cycle. Each candidate notice moves through a strictly sequential state
// machine; a failure at any stage skips that notice without affecting the
// rest of the cycle.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/examwatch/noticebot/internal/eventbus"
	"github.com/examwatch/noticebot/internal/metrics"
	"github.com/examwatch/noticebot/internal/scraper"
	"github.com/examwatch/noticebot/internal/storage"
	"github.com/examwatch/noticebot/internal/summarizer"
)

const (
	downloadAttempts   = 3
	downloadRetryDelay = 5 * time.Second
	downloadTimeout    = 30 * time.Second

	// Anything smaller than this is a truncated or bogus document.
	minDocumentBytes = 100
)

// Gateway is the slice of the persistence gateway the pipeline needs.
type Gateway interface {
	KnownLinks(ctx context.Context) map[string]struct{}
	SubscriberIDs(ctx context.Context) []int64
	AddNotice(ctx context.Context, candidate *storage.Notice) (*storage.Notice, bool)
	UpdateNoticeStatus(ctx context.Context, id int64, status string) bool
}

// Fetcher produces candidate notices not present in the known-link set.
type Fetcher interface {
	FetchNew(ctx context.Context, known map[string]struct{}) []scraper.Notice
}

// Alerter fans a processed notice out to subscribers.
type Alerter interface {
	SendAlerts(ctx context.Context, notice *storage.Notice, summary string, chatIDs []int64) int
}

// EventPublisher lets the pipeline emit events without depending on a
// concrete event bus implementation.
type EventPublisher interface {
	Publish(eventType string, payload map[string]string)
}

// noticeResult is the terminal state of one notice within a cycle.
type noticeResult string

const (
	resultAlerted noticeResult = "alerted"
	resultSkipped noticeResult = "skipped"
)

// Processor runs the per-notice state machine.
type Processor struct {
	fetcher    Fetcher
	gateway    Gateway
	summarizer summarizer.Summarizer
	alerter    Alerter
	metrics    *metrics.Metrics
	logger     *slog.Logger

	// events is optional; when set, cycle aborts and alerted notices are
	// published as events.
	events EventPublisher

	client  *http.Client
	tempDir string
	delay   time.Duration
}

// NewProcessor creates a Processor. Downloaded documents are written under
// tempDir and removed when the notice reaches a terminal state.
func NewProcessor(
	fetcher Fetcher,
	gateway Gateway,
	sum summarizer.Summarizer,
	alerter Alerter,
	m *metrics.Metrics,
	logger *slog.Logger,
	tempDir string,
) *Processor {
	return &Processor{
		fetcher:    fetcher,
		gateway:    gateway,
		summarizer: sum,
		alerter:    alerter,
		metrics:    m,
		logger:     logger,
		client:     &http.Client{Timeout: downloadTimeout},
		tempDir:    tempDir,
		delay:      downloadRetryDelay,
	}
}

// SetEventPublisher attaches an event publisher for pipeline lifecycle events.
func (p *Processor) SetEventPublisher(pub EventPublisher) { p.events = pub }

// RunCycle executes one full polling cycle. Anything unexpected is caught
// here so the scheduler always lives to run the next cycle.
func (p *Processor) RunCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("cycle aborted by unexpected error", "panic", r)
			p.metrics.CyclesTotal.WithLabelValues("aborted").Inc()
			p.publish(eventbus.EventCycleAborted, map[string]string{
				"error": fmt.Sprint(r),
			})
		}
	}()

	p.logger.Info("checking for new notices")

	known := p.gateway.KnownLinks(ctx)
	candidates := p.fetcher.FetchNew(ctx, known)
	p.logger.Info("scrape finished", "new_notices", len(candidates), "known_links", len(known))

	if len(candidates) == 0 {
		p.metrics.CyclesTotal.WithLabelValues("idle").Inc()
		return
	}

	// One subscriber-list read per cycle, not per notice.
	chatIDs := p.gateway.SubscriberIDs(ctx)
	p.logger.Info("loaded subscribers", "count", len(chatIDs))

	for _, candidate := range candidates {
		result := p.processNotice(ctx, candidate, chatIDs)
		p.metrics.NoticesTotal.WithLabelValues(string(result)).Inc()
	}

	p.metrics.CyclesTotal.WithLabelValues("completed").Inc()
}

// processNotice walks one candidate through
// Discovered → DocumentFetched → Summarized → Persisted → Alerted → Done.
// Any stage-local failure moves the notice to Skipped; the temporary
// document artifact is removed regardless of the terminal state.
func (p *Processor) processNotice(ctx context.Context, candidate scraper.Notice, chatIDs []int64) noticeResult {
	logger := p.logger.With("title", candidate.Title, "link", candidate.Link)
	logger.Info("processing notice")

	// DocumentFetched
	pdfPath, ok := p.downloadDocument(ctx, candidate.Link, logger)
	if !ok {
		return resultSkipped
	}
	// Done: artifact cleanup happens no matter how the notice ends.
	defer func() {
		if err := os.Remove(pdfPath); err != nil {
			logger.Error("failed to remove temporary document", "path", pdfPath, "error", err)
		}
	}()

	// Summarized: the adapter absorbs its own failures into the summary
	// text, so this stage cannot skip the notice.
	summary := p.summarizer.Summarize(ctx, pdfPath)

	// Persisted
	persisted, added := p.gateway.AddNotice(ctx, &storage.Notice{
		Title:   candidate.Title,
		Link:    candidate.Link,
		Date:    candidate.Date,
		Summary: summary,
	})
	if !added {
		logger.Info("notice not persisted, skipping alerts")
		return resultSkipped
	}

	// Alerted
	failed := p.alerter.SendAlerts(ctx, persisted, summary, chatIDs)
	p.metrics.AlertsSentTotal.Inc()
	if failed > 0 {
		p.metrics.AlertFailedTotal.Add(float64(failed))
	}

	if !p.gateway.UpdateNoticeStatus(ctx, persisted.ID, storage.StatusSent) {
		logger.Error("alerts sent but status update failed", "id", persisted.ID)
	}

	p.publish(eventbus.EventNoticeAlerted, map[string]string{
		"title": persisted.Title,
		"link":  persisted.Link,
	})

	logger.Info("notice processed")
	return resultAlerted
}

// downloadDocument fetches the linked document to a temp file. Transport
// errors are retried with a fixed delay; a wrong content type or an
// implausibly small artifact is terminal for this notice.
func (p *Processor) downloadDocument(ctx context.Context, link string, logger *slog.Logger) (string, bool) {
	for attempt := 1; attempt <= downloadAttempts; attempt++ {
		path, retryable, err := p.tryDownload(ctx, link)
		if err == nil {
			return path, true
		}

		logger.Error("document download failed",
			"attempt", attempt, "max_attempts", downloadAttempts, "error", err)

		if !retryable {
			return "", false
		}
		if attempt < downloadAttempts {
			select {
			case <-time.After(p.delay):
			case <-ctx.Done():
				return "", false
			}
		}
	}
	return "", false
}

// tryDownload performs a single download attempt. The second return value
// reports whether the failure is worth retrying.
func (p *Processor) tryDownload(ctx context.Context, link string) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", false, fmt.Errorf("creating request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("fetching document: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return "", true, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/pdf") {
		return "", false, fmt.Errorf("downloaded file is not a PDF (content-type %q)", ct)
	}

	if err := os.MkdirAll(p.tempDir, 0750); err != nil {
		return "", false, fmt.Errorf("creating temp directory: %w", err)
	}

	path := filepath.Join(p.tempDir, uuid.NewString()+".pdf")
	f, err := os.Create(path) //nolint:gosec // path is built from our own temp dir
	if err != nil {
		return "", false, fmt.Errorf("creating temp file: %w", err)
	}

	written, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", true, fmt.Errorf("writing document: %w", err)
	}

	if written < minDocumentBytes {
		_ = os.Remove(path)
		return "", false, fmt.Errorf("downloaded document too small (%d bytes)", written)
	}

	return path, false, nil
}

// publish emits an event when a publisher is attached.
func (p *Processor) publish(eventType string, payload map[string]string) {
	if p.events == nil {
		return
	}
	p.events.Publish(eventType, payload)
}
