package stream

import (
	"net/http"
	"time"
)

// DownloaderOption configures the tunables of the HLS entry points: retry
// budget, per-request timeout and per-chunk timeout. The chunked
// downloader's 60s inactivity timeout is a fixed constant and has no
// option. Mirrors the
// functional-options idiom used by the withny-dl-style Go HLS client this
// core is modeled on.
type DownloaderOption func(*watchOptions, *fetchTimeouts)

type fetchTimeouts struct {
	requestTimeout time.Duration
	chunkTimeout   time.Duration
}

func defaultFetchTimeouts() fetchTimeouts {
	return fetchTimeouts{
		requestTimeout: 10 * time.Second,
		chunkTimeout:   10 * time.Second,
	}
}

// WithMaxRetries overrides the default retry budget of 12 consecutive
// no-progress watcher iterations before the download is declared over.
func WithMaxRetries(n int) DownloaderOption {
	return func(w *watchOptions, _ *fetchTimeouts) { w.maxRetries = n }
}

// WithRequestTimeout overrides the 10s per-request (playlist or segment)
// deadline.
func WithRequestTimeout(d time.Duration) DownloaderOption {
	return func(w *watchOptions, f *fetchTimeouts) {
		w.requestTimeout = d
		f.requestTimeout = d
	}
}

// WithChunkTimeout overrides the 10s per-chunk inactivity deadline applied
// while streaming one segment's body.
func WithChunkTimeout(d time.Duration) DownloaderOption {
	return func(_ *watchOptions, f *fetchTimeouts) { f.chunkTimeout = d }
}

func resolveOptions(opts []DownloaderOption) (watchOptions, fetchTimeouts) {
	w := defaultWatchOptions()
	f := defaultFetchTimeouts()
	for _, opt := range opts {
		opt(&w, &f)
	}
	return w, f
}

// DownloadChunkedRequest is a convenience alias kept symmetrical with the
// HLS entry points below; it simply delegates to DownloadChunked.
func DownloadChunkedRequest(client *http.Client, req *http.Request) *EventStream {
	return DownloadChunked(client, req, nil)
}

// DownloadHLS wires a mediaWatcher (C4) and segmentFetcher (C6) together
// and returns the public event stream immediately; the watcher and
// fetcher both run in background goroutines. filter may be nil.
func DownloadHLS(client *http.Client, req *http.Request, filter URIFilter, opts ...DownloaderOption) *EventStream {
	watchOpts, fetchOpts := resolveOptions(opts)

	queue := newURLQueue()
	producer, public := newEventProducer(defaultEventBuffer)

	watcher := newMediaWatcher(client, req, queue, filter, watchOpts)
	fetcher := newSegmentFetcher(client, req.Header.Clone(), queue, producer, fetchOpts.requestTimeout, fetchOpts.chunkTimeout)

	go watcher.run()
	go fetcher.run()
	go func() {
		<-public.closed
		queue.markDone()
	}()

	return public
}

// DownloadHLSNamed wires a namedWatcher (C5) resolving variantName out of
// a master playlist, then behaves exactly like DownloadHLS from the
// resolved media playlist onward.
func DownloadHLSNamed(client *http.Client, req *http.Request, variantName string, filter URIFilter, opts ...DownloaderOption) *EventStream {
	return downloadNamed(client, req, selectByName, variantName, filter, opts...)
}

// DownloadHLSFirstVariant is the "first-listed" mode some resolvers use
// when no named media group applies.
func DownloadHLSFirstVariant(client *http.Client, req *http.Request, filter URIFilter, opts ...DownloaderOption) *EventStream {
	return downloadNamed(client, req, selectFirstListed, "", filter, opts...)
}

func downloadNamed(client *http.Client, req *http.Request, mode variantSelectMode, name string, filter URIFilter, opts ...DownloaderOption) *EventStream {
	watchOpts, fetchOpts := resolveOptions(opts)

	queue := newURLQueue()
	producer, public := newEventProducer(defaultEventBuffer)

	watcher := newNamedWatcher(client, req, queue, mode, name, filter, watchOpts)
	fetcher := newSegmentFetcher(client, req.Header.Clone(), queue, producer, fetchOpts.requestTimeout, fetchOpts.chunkTimeout)

	go watcher.run()
	go fetcher.run()
	go func() {
		<-public.closed
		queue.markDone()
	}()

	return public
}
