package stream

import (
	"net/http"
	"net/url"
	"time"

	"github.com/alvarorichard/streamlive/internal/util"
)

// URIFilter decides whether a newly-discovered segment URI should be
// enqueued for fetching. It is always called on an already-deduplicated
// URI, so returning false still marks the URI "seen". Resolvers supply
// this to drop site-specific artefacts (for example, afreeca.tv's
// "preloading" segments) without the core hard-coding any site's quirks.
type URIFilter func(uri string) bool

// watchOptions carries the tunables C4/C5 accept from the facade's
// functional options, with spec.md's defaults baked in.
type watchOptions struct {
	maxRetries      int
	requestTimeout  time.Duration
	pollMinInterval time.Duration
}

func defaultWatchOptions() watchOptions {
	return watchOptions{
		maxRetries:     12,
		requestTimeout: 10 * time.Second,
	}
}

// mediaWatcher implements C4: polls one media playlist, deduplicates
// segment URIs across refreshes, and pushes resolved absolute URLs onto
// queue until a terminal condition is reached.
type mediaWatcher struct {
	client      *http.Client
	request     *http.Request
	queue       *urlQueue
	filter      URIFilter
	opts        watchOptions
	seen        map[string]struct{}
	failCounter int
	baseURL     *url.URL
}

func newMediaWatcher(client *http.Client, request *http.Request, queue *urlQueue, filter URIFilter, opts watchOptions) *mediaWatcher {
	return &mediaWatcher{
		client:  client,
		request: request,
		queue:   queue,
		filter:  filter,
		opts:    opts,
		seen:    make(map[string]struct{}),
		baseURL: playlistBaseURL(request.URL),
	}
}

// run executes the watcher loop until ENDLIST, the retry budget is
// exhausted, or the fetcher side drops the queue. It always ends by
// pushing exactly one StreamOver item.
func (w *mediaWatcher) run() {
	defer w.sendStreamOver()

	for {
		if w.failCounter > w.opts.maxRetries {
			util.Warn("stream: watcher exceeded retry budget", "retries", w.failCounter)
			return
		}

		body, err := fetchPlaylistText(w.client, w.request, w.opts.requestTimeout)
		if err != nil {
			util.Debug("stream: playlist fetch failed", "err", err)
			w.failCounter++
			continue
		}

		parsed, err := parseMediaPlaylist(body)
		if err != nil {
			util.Debug("stream: playlist parse failed", "err", err)
			w.failCounter++
			continue
		}

		if w.enqueueNewSegments(parsed.segmentURIs) {
			w.failCounter = 0
		}

		if parsed.endList {
			util.Info("stream: media playlist reached ENDLIST")
			return
		}

		if !w.sleepForTargetDuration(parsed.targetDuration) {
			return
		}
		w.failCounter++
	}
}

// enqueueNewSegments inserts each URI into the dedup set, resolves it to
// an absolute URL, and enqueues it unless the filter drops it. Returns
// true if at least one segment was newly seen this iteration.
func (w *mediaWatcher) enqueueNewSegments(uris []string) bool {
	gotNew := false
	for _, uri := range uris {
		if _, dup := w.seen[uri]; dup {
			continue
		}
		w.seen[uri] = struct{}{}
		gotNew = true

		absolute, err := resolveSegmentURL(w.baseURL, uri)
		if err != nil {
			util.Debug("stream: segment uri resolution failed", "uri", uri, "err", err)
			continue
		}

		if w.filter != nil && !w.filter(uri) {
			continue
		}

		w.queue.push(queueItem{kind: queueItemURL, url: absolute})
	}
	return gotNew
}

// sleepForTargetDuration blocks for d unless the fetcher has already
// dropped the queue, in which case it returns false so the caller can
// stop the watcher promptly instead of waiting out the full sleep.
func (w *mediaWatcher) sleepForTargetDuration(d time.Duration) bool {
	if d <= 0 {
		d = time.Second
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-w.queue.done():
		return false
	}
}

func (w *mediaWatcher) sendStreamOver() {
	w.queue.push(queueItem{kind: queueItemStreamOver})
}
