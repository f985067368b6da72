package gateway

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examwatch/noticebot/internal/storage"
)

// --- in-memory stores for tests ---

type memNoticeStore struct {
	notices   []storage.Notice
	nextID    int64
	listCalls int
	failList  bool
}

func (m *memNoticeStore) CreateNotice(_ context.Context, n *storage.Notice) (*storage.Notice, error) {
	m.nextID++
	out := *n
	out.ID = m.nextID
	out.CreatedAt = time.Now().UTC()
	m.notices = append(m.notices, out)
	return &out, nil
}

func (m *memNoticeStore) NoticeExists(_ context.Context, title, link string) (bool, error) {
	for _, n := range m.notices {
		if n.Title == title || n.Link == link {
			return true, nil
		}
	}
	return false, nil
}

func (m *memNoticeStore) ListLinks(_ context.Context) ([]string, error) {
	m.listCalls++
	if m.failList {
		return nil, errors.New("store unavailable")
	}
	links := make([]string, 0, len(m.notices))
	for _, n := range m.notices {
		links = append(links, n.Link)
	}
	return links, nil
}

func (m *memNoticeStore) UpdateStatus(_ context.Context, id int64, status string) (bool, error) {
	for i := range m.notices {
		if m.notices[i].ID == id {
			m.notices[i].Status = status
			return true, nil
		}
	}
	return false, nil
}

type memSubscriberStore struct {
	subs      map[int64]storage.Subscriber
	listCalls int
}

func newMemSubscriberStore() *memSubscriberStore {
	return &memSubscriberStore{subs: make(map[int64]storage.Subscriber)}
}

func (m *memSubscriberStore) CreateSubscriber(_ context.Context, s *storage.Subscriber) (bool, error) {
	if _, ok := m.subs[s.ChatID]; ok {
		return false, nil
	}
	m.subs[s.ChatID] = *s
	return true, nil
}

func (m *memSubscriberStore) ListChatIDs(_ context.Context) ([]int64, error) {
	m.listCalls++
	ids := make([]int64, 0, len(m.subs))
	for id := range m.subs {
		ids = append(ids, id)
	}
	return ids, nil
}

// --- test fixture ---

type fixture struct {
	gw   *Gateway
	nst  *memNoticeStore
	sst  *memSubscriberStore
	time time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		nst:  &memNoticeStore{},
		sst:  newMemSubscriberStore(),
		time: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	f.gw = New(f.nst, f.sst, slog.New(slog.DiscardHandler), DefaultTTL)
	f.gw.now = func() time.Time { return f.time }
	return f
}

func (f *fixture) advance(d time.Duration) { f.time = f.time.Add(d) }

func TestSubscriberIDs_CachedWithinTTL(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.gw.AddSubscriber(ctx, 111, "alice")
	ids := f.gw.SubscriberIDs(ctx)
	require.Equal(t, []int64{111}, ids)
	assert.Equal(t, 1, f.sst.listCalls)

	// Within TTL: served from the snapshot, no extra store query.
	f.advance(time.Hour)
	_ = f.gw.SubscriberIDs(ctx)
	assert.Equal(t, 1, f.sst.listCalls)

	// Past TTL: refreshed from the store.
	f.advance(2 * time.Hour)
	_ = f.gw.SubscriberIDs(ctx)
	assert.Equal(t, 2, f.sst.listCalls)
}

func TestAddSubscriber_InvalidatesSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.gw.AddSubscriber(ctx, 111, "alice")
	require.Len(t, f.gw.SubscriberIDs(ctx), 1)

	// A write within the TTL window must be visible on the next read.
	created := f.gw.AddSubscriber(ctx, 222, "bob")
	require.True(t, created)

	ids := f.gw.SubscriberIDs(ctx)
	assert.ElementsMatch(t, []int64{111, 222}, ids)
}

func TestAddSubscriber_ExistingDoesNotInvalidate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.gw.AddSubscriber(ctx, 111, "alice")
	_ = f.gw.SubscriberIDs(ctx)
	calls := f.sst.listCalls

	created := f.gw.AddSubscriber(ctx, 111, "alice")
	assert.False(t, created)

	_ = f.gw.SubscriberIDs(ctx)
	assert.Equal(t, calls, f.sst.listCalls, "re-adding an existing subscriber should not drop the snapshot")
}

func TestKnownLinks_TTLAndRefresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, added := f.gw.AddNotice(ctx, &storage.Notice{Title: "A", Link: "L1"})
	require.True(t, added)

	links := f.gw.KnownLinks(ctx)
	assert.Contains(t, links, "L1")
	assert.Equal(t, 1, f.nst.listCalls)

	f.advance(time.Hour)
	_ = f.gw.KnownLinks(ctx)
	assert.Equal(t, 1, f.nst.listCalls)

	f.advance(DefaultTTL)
	_ = f.gw.KnownLinks(ctx)
	assert.Equal(t, 2, f.nst.listCalls)
}

func TestAddNotice_UpdatesLiveLinkSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Warm the snapshot first.
	_ = f.gw.KnownLinks(ctx)
	require.Equal(t, 1, f.nst.listCalls)

	_, added := f.gw.AddNotice(ctx, &storage.Notice{Title: "A", Link: "L1"})
	require.True(t, added)

	// The new link is visible without a store round trip.
	links := f.gw.KnownLinks(ctx)
	assert.Contains(t, links, "L1")
	assert.Equal(t, 1, f.nst.listCalls)
}

func TestAddNotice_RejectsDuplicateTitle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, added := f.gw.AddNotice(ctx, &storage.Notice{Title: "A", Link: "L1"})
	require.True(t, added)

	// Same title, different link: still rejected.
	n, added := f.gw.AddNotice(ctx, &storage.Notice{Title: "A", Link: "L2"})
	assert.False(t, added)
	assert.Nil(t, n)
}

func TestAddNotice_RejectsDuplicateLink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, added := f.gw.AddNotice(ctx, &storage.Notice{Title: "A", Link: "L1"})
	require.True(t, added)

	_, added = f.gw.AddNotice(ctx, &storage.Notice{Title: "B", Link: "L1"})
	assert.False(t, added)
}

func TestAddNotice_SetsStatusNew(t *testing.T) {
	f := newFixture(t)

	n, added := f.gw.AddNotice(context.Background(), &storage.Notice{Title: "A", Link: "L1", Status: "bogus"})
	require.True(t, added)
	assert.Equal(t, storage.StatusNew, n.Status)
	assert.NotZero(t, n.ID)
}

func TestKnownLinks_StoreFailureYieldsEmptySet(t *testing.T) {
	f := newFixture(t)
	f.nst.failList = true

	links := f.gw.KnownLinks(context.Background())
	assert.Empty(t, links)

	// A failed refresh must not poison the cache: once the store recovers,
	// the next read re-queries it.
	f.nst.failList = false
	_, _ = f.gw.AddNotice(context.Background(), &storage.Notice{Title: "A", Link: "L1"})
	links = f.gw.KnownLinks(context.Background())
	assert.Contains(t, links, "L1")
}

func TestUpdateNoticeStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	n, added := f.gw.AddNotice(ctx, &storage.Notice{Title: "A", Link: "L1"})
	require.True(t, added)

	assert.True(t, f.gw.UpdateNoticeStatus(ctx, n.ID, storage.StatusSent))
	assert.Equal(t, storage.StatusSent, f.nst.notices[0].Status)

	// Unknown ID is reported as failure, not an error.
	assert.False(t, f.gw.UpdateNoticeStatus(ctx, 9999, storage.StatusSent))
}
