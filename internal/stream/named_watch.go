package stream

import (
	"net/http"
	"net/url"
	"time"

	"github.com/bluenviron/gohlslib/v2/pkg/playlist"

	"github.com/alvarorichard/streamlive/internal/util"
)

// variantSelectMode picks how namedWatcher chooses a variant stream out of
// a master playlist on each refresh.
type variantSelectMode int

const (
	// selectByName requires a matching EXT-X-MEDIA NAME attribute and
	// picks the first variant stream associated with that media group.
	selectByName variantSelectMode = iota
	// selectFirstListed simply takes the first variant stream, used by
	// resolvers that don't need named-group selection.
	selectFirstListed
)

// namedWatcher implements C5: resolves a master playlist to one variant
// media playlist per refresh, then reuses mediaWatcher's dedup/enqueue
// logic against that resolved playlist.
type namedWatcher struct {
	client  *http.Client
	request *http.Request
	queue   *urlQueue
	filter  URIFilter
	opts    watchOptions
	mode    variantSelectMode
	name    string

	seen        map[string]struct{}
	failCounter int
	baseURL     *url.URL
}

func newNamedWatcher(client *http.Client, request *http.Request, queue *urlQueue, mode variantSelectMode, name string, filter URIFilter, opts watchOptions) *namedWatcher {
	return &namedWatcher{
		client:  client,
		request: request,
		queue:   queue,
		filter:  filter,
		opts:    opts,
		mode:    mode,
		name:    name,
		seen:    make(map[string]struct{}),
		baseURL: playlistBaseURL(request.URL),
	}
}

func (w *namedWatcher) run() {
	defer func() { w.queue.push(queueItem{kind: queueItemStreamOver}) }()

	for {
		if w.failCounter > w.opts.maxRetries {
			util.Warn("stream: named watcher exceeded retry budget", "retries", w.failCounter)
			return
		}

		masterBody, err := fetchPlaylistText(w.client, w.request, w.opts.requestTimeout)
		if err != nil {
			util.Debug("stream: master playlist fetch failed", "err", err)
			w.failCounter++
			continue
		}

		master, err := parseMultivariantPlaylist(masterBody)
		if err != nil {
			util.Debug("stream: master playlist parse failed", "err", err)
			w.failCounter++
			continue
		}

		variantURI, ok := w.selectVariant(master)
		if !ok {
			w.failCounter++
			// No media playlist was reached this iteration, so there is no
			// TARGETDURATION to poll against yet; fall back to the sleep's
			// own default so a persistently-absent named group still backs
			// off between master re-fetches instead of spinning (spec.md
			// §8: "after retry-limit iterations" implies a retry cadence,
			// not a tight loop).
			if !w.sleep(0) {
				return
			}
			continue
		}

		variantURL, err := resolveSegmentURL(w.baseURL, variantURI)
		if err != nil {
			util.Debug("stream: variant uri resolution failed", "uri", variantURI, "err", err)
			w.failCounter++
			continue
		}
		parsedVariantURL, err := url.Parse(variantURL)
		if err == nil {
			w.baseURL = playlistBaseURL(parsedVariantURL)
		}

		mediaReq := w.request.Clone(w.request.Context())
		mediaURL, err := url.Parse(variantURL)
		if err != nil {
			w.failCounter++
			continue
		}
		mediaReq.URL = mediaURL

		body, err := fetchPlaylistText(w.client, mediaReq, w.opts.requestTimeout)
		if err != nil {
			util.Debug("stream: resolved media playlist fetch failed", "err", err)
			w.failCounter++
			continue
		}

		parsed, err := parseMediaPlaylist(body)
		if err != nil {
			util.Debug("stream: resolved media playlist parse failed", "err", err)
			w.failCounter++
			continue
		}

		if w.enqueueNewSegments(parsed.segmentURIs) {
			w.failCounter = 0
		}

		if parsed.endList {
			util.Info("stream: named playlist reached ENDLIST")
			return
		}

		if !w.sleep(parsed.targetDuration) {
			return
		}
		w.failCounter++
	}
}

// selectVariant picks a variant-stream URI per w.mode. In selectByName
// mode it requires an EXT-X-MEDIA entry whose Name equals w.name and a
// variant stream associated with that media group; absence of either is
// reported as ok=false so the caller retries rather than aborting (the
// origin may still be publishing the named group under a brief delay).
func (w *namedWatcher) selectVariant(master *playlist.Multivariant) (string, bool) {
	if len(master.Variants) == 0 {
		return "", false
	}

	if w.mode == selectFirstListed {
		return master.Variants[0].URI, true
	}

	var groupID string
	found := false
	for _, rendition := range master.Renditions {
		if rendition != nil && rendition.Name == w.name {
			groupID = rendition.GroupID
			found = true
			break
		}
	}
	if !found {
		return "", false
	}

	for _, variant := range master.Variants {
		if variant.Audio == groupID || variant.Video == groupID || variant.Subtitles == groupID {
			return variant.URI, true
		}
	}
	return "", false
}

func (w *namedWatcher) enqueueNewSegments(uris []string) bool {
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

func (w *namedWatcher) sleep(d time.Duration) bool {
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
