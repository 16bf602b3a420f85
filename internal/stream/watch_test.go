package stream

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWatcher(t *testing.T, rawURL string, filter URIFilter) *mediaWatcher {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	require.NoError(t, err)
	return newMediaWatcher(&http.Client{}, req, newURLQueue(), filter, defaultWatchOptions())
}

func drainQueue(q *urlQueue, n int) []queueItem {
	items := make([]queueItem, 0, n)
	for i := 0; i < n; i++ {
		select {
		case item := <-q.ch:
			items = append(items, item)
		default:
			return items
		}
	}
	return items
}

func TestEnqueueNewSegments_DedupIsIdempotent(t *testing.T) {
	w := newTestWatcher(t, "https://host/live/x.m3u8", nil)

	gotNew := w.enqueueNewSegments([]string{"a.ts", "b.ts"})
	assert.True(t, gotNew)

	gotNew = w.enqueueNewSegments([]string{"a.ts", "b.ts"})
	assert.False(t, gotNew, "presenting the same playlist twice must add no new queue entries")

	items := drainQueue(w.queue, 3)
	require.Len(t, items, 2)
	assert.Equal(t, "https://host/live/a.ts", items[0].url)
	assert.Equal(t, "https://host/live/b.ts", items[1].url)
}

func TestEnqueueNewSegments_AbsoluteAndRelativeURIs(t *testing.T) {
	w := newTestWatcher(t, "https://host/live/x.m3u8", nil)

	w.enqueueNewSegments([]string{"https://cdn/a.ts", "b.ts"})

	items := drainQueue(w.queue, 2)
	require.Len(t, items, 2)
	assert.Equal(t, "https://cdn/a.ts", items[0].url)
	assert.Equal(t, "https://host/live/b.ts", items[1].url)
}

func TestEnqueueNewSegments_FilterDropsButStillMarksSeen(t *testing.T) {
	filter := func(uri string) bool { return uri != "preloading-1.ts" }
	w := newTestWatcher(t, "https://host/live/x.m3u8", filter)

	gotNew := w.enqueueNewSegments([]string{"preloading-1.ts", "a.ts"})
	assert.True(t, gotNew)

	items := drainQueue(w.queue, 2)
	require.Len(t, items, 1, "the filtered uri must not be enqueued")
	assert.Equal(t, "https://host/live/a.ts", items[0].url)

	// Re-presenting the filtered uri adds nothing: it was already marked seen.
	gotNew = w.enqueueNewSegments([]string{"preloading-1.ts"})
	assert.False(t, gotNew)
}

func TestPlaylistBaseURL_StripsLastSegmentAndQuery(t *testing.T) {
	u, err := url.Parse("https://host/live/x.m3u8?token=abc")
	require.NoError(t, err)

	base := playlistBaseURL(u)
	assert.Equal(t, "https://host/live/", base.String())
}
