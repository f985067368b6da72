package pipeline

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examwatch/noticebot/internal/metrics"
	"github.com/examwatch/noticebot/internal/scraper"
	"github.com/examwatch/noticebot/internal/storage"
)

// --- fakes ---

type fakeFetcher struct {
	notices []scraper.Notice
}

func (f *fakeFetcher) FetchNew(context.Context, map[string]struct{}) []scraper.Notice {
	return f.notices
}

type fakeGateway struct {
	added    []*storage.Notice
	statuses map[int64]string
	chatIDs  []int64
	nextID   int64
	reject   map[string]bool // titles to report as duplicates
}

func newFakeGateway(chatIDs ...int64) *fakeGateway {
	return &fakeGateway{
		statuses: make(map[int64]string),
		chatIDs:  chatIDs,
		reject:   make(map[string]bool),
	}
}

func (g *fakeGateway) KnownLinks(context.Context) map[string]struct{} { return nil }

func (g *fakeGateway) SubscriberIDs(context.Context) []int64 { return g.chatIDs }

func (g *fakeGateway) AddNotice(_ context.Context, candidate *storage.Notice) (*storage.Notice, bool) {
	if g.reject[candidate.Title] {
		return nil, false
	}
	g.nextID++
	n := *candidate
	n.ID = g.nextID
	n.Status = storage.StatusNew
	g.added = append(g.added, &n)
	g.statuses[n.ID] = n.Status
	return &n, true
}

func (g *fakeGateway) UpdateNoticeStatus(_ context.Context, id int64, status string) bool {
	if _, ok := g.statuses[id]; !ok {
		return false
	}
	g.statuses[id] = status
	return true
}

type fakeSummarizer struct {
	summary string
}

func (f *fakeSummarizer) Summarize(context.Context, string) string { return f.summary }

type alertCall struct {
	notice  *storage.Notice
	summary string
	chatIDs []int64
}

type fakeAlerter struct {
	calls []alertCall
}

func (f *fakeAlerter) SendAlerts(_ context.Context, n *storage.Notice, summary string, ids []int64) int {
	f.calls = append(f.calls, alertCall{notice: n, summary: summary, chatIDs: ids})
	return 0
}

// --- document server ---

// docServer serves a valid PDF for every path except those in broken
// (HTTP 500) and htmlPaths (wrong content type).
func docServer(t *testing.T, broken, htmlPaths map[string]bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case broken[r.URL.Path]:
			w.WriteHeader(http.StatusInternalServerError)
		case htmlPaths[r.URL.Path]:
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html>not a pdf</html>"))
		default:
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write([]byte("%PDF-1.4 " + strings.Repeat("x", 200)))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

type env struct {
	proc    *Processor
	gateway *fakeGateway
	alerter *fakeAlerter
	tempDir string
}

func newEnv(t *testing.T, fetcher Fetcher, gw *fakeGateway) *env {
	t.Helper()
	alerter := &fakeAlerter{}
	tempDir := t.TempDir()
	proc := NewProcessor(
		fetcher, gw,
		&fakeSummarizer{summary: "• Exam date changed"},
		alerter,
		metrics.New(),
		slog.New(slog.DiscardHandler),
		tempDir,
	)
	proc.delay = 0
	return &env{proc: proc, gateway: gw, alerter: alerter, tempDir: tempDir}
}

func TestRunCycle_HappyPath(t *testing.T) {
	srv := docServer(t, nil, nil)
	fetcher := &fakeFetcher{notices: []scraper.Notice{
		{Title: "Notice A", Link: srv.URL + "/a.pdf"},
	}}
	e := newEnv(t, fetcher, newFakeGateway(111, 222))

	e.proc.RunCycle(context.Background())

	require.Len(t, e.gateway.added, 1)
	assert.Equal(t, "• Exam date changed", e.gateway.added[0].Summary)

	require.Len(t, e.alerter.calls, 1)
	assert.Equal(t, []int64{111, 222}, e.alerter.calls[0].chatIDs)
	assert.Equal(t, "• Exam date changed", e.alerter.calls[0].summary)

	// Status reaches Sent only after the fanout.
	assert.Equal(t, storage.StatusSent, e.gateway.statuses[e.gateway.added[0].ID])
}

func TestRunCycle_PartialFailureIsolation(t *testing.T) {
	srv := docServer(t, map[string]bool{"/b.pdf": true}, nil)
	fetcher := &fakeFetcher{notices: []scraper.Notice{
		{Title: "A", Link: srv.URL + "/a.pdf"},
		{Title: "B", Link: srv.URL + "/b.pdf"},
		{Title: "C", Link: srv.URL + "/c.pdf"},
	}}
	e := newEnv(t, fetcher, newFakeGateway(111))

	e.proc.RunCycle(context.Background())

	// B's download fails; A and C still complete the full pipeline.
	require.Len(t, e.gateway.added, 2)
	assert.Equal(t, "A", e.gateway.added[0].Title)
	assert.Equal(t, "C", e.gateway.added[1].Title)
	assert.Len(t, e.alerter.calls, 2)
	for _, n := range e.gateway.added {
		assert.Equal(t, storage.StatusSent, e.gateway.statuses[n.ID])
	}
}

func TestRunCycle_WrongContentTypeSkipsNotice(t *testing.T) {
	srv := docServer(t, nil, map[string]bool{"/a.pdf": true})
	fetcher := &fakeFetcher{notices: []scraper.Notice{
		{Title: "A", Link: srv.URL + "/a.pdf"},
	}}
	e := newEnv(t, fetcher, newFakeGateway(111))

	e.proc.RunCycle(context.Background())

	assert.Empty(t, e.gateway.added, "nothing may be persisted for a non-PDF response")
	assert.Empty(t, e.alerter.calls, "no alert may be sent for a skipped notice")
}

func TestRunCycle_TooSmallDocumentSkipsAndCleansUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("tiny"))
	}))
	defer srv.Close()

	fetcher := &fakeFetcher{notices: []scraper.Notice{
		{Title: "A", Link: srv.URL + "/a.pdf"},
	}}
	e := newEnv(t, fetcher, newFakeGateway(111))

	e.proc.RunCycle(context.Background())

	assert.Empty(t, e.gateway.added)
	entries, err := os.ReadDir(e.tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "partial artifact must be deleted")
}

func TestRunCycle_DuplicateNotPersistedNotAlerted(t *testing.T) {
	srv := docServer(t, nil, nil)
	fetcher := &fakeFetcher{notices: []scraper.Notice{
		{Title: "Dup", Link: srv.URL + "/dup.pdf"},
	}}
	gw := newFakeGateway(111)
	gw.reject["Dup"] = true
	e := newEnv(t, fetcher, gw)

	e.proc.RunCycle(context.Background())

	assert.Empty(t, e.alerter.calls, "a duplicate must not trigger alerts")
}

func TestRunCycle_CleansUpArtifactsAfterSuccess(t *testing.T) {
	srv := docServer(t, nil, nil)
	fetcher := &fakeFetcher{notices: []scraper.Notice{
		{Title: "A", Link: srv.URL + "/a.pdf"},
	}}
	e := newEnv(t, fetcher, newFakeGateway(111))

	e.proc.RunCycle(context.Background())

	entries, err := os.ReadDir(e.tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary document must be removed after processing")
}

func TestRunCycle_NoCandidatesDoesNothing(t *testing.T) {
	e := newEnv(t, &fakeFetcher{}, newFakeGateway(111))

	e.proc.RunCycle(context.Background())

	assert.Empty(t, e.gateway.added)
	assert.Empty(t, e.alerter.calls)
}

// panicFetcher simulates an unclassified failure inside a cycle.
type panicFetcher struct{}

func (panicFetcher) FetchNew(context.Context, map[string]struct{}) []scraper.Notice {
	panic("unexpected")
}

func TestRunCycle_RecoversFromUnexpectedPanic(t *testing.T) {
	e := newEnv(t, panicFetcher{}, newFakeGateway())

	assert.NotPanics(t, func() {
		e.proc.RunCycle(context.Background())
	}, "a cycle-level failure must not take down the scheduler")
}
