package stream

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/alvarorichard/streamlive/internal/util"
)

// segmentFetcher implements C6: drains the url queue produced by a
// mediaWatcher or namedWatcher, GETs each URL under per-request and
// per-chunk deadlines, and forwards bytes to the public event stream. A
// single segment failing never aborts the download; only StreamOver does.
type segmentFetcher struct {
	client         *http.Client
	headers        http.Header
	queue          *urlQueue
	producer       *eventProducer
	requestTimeout time.Duration
	chunkTimeout   time.Duration
}

func newSegmentFetcher(client *http.Client, headers http.Header, queue *urlQueue, producer *eventProducer, requestTimeout, chunkTimeout time.Duration) *segmentFetcher {
	return &segmentFetcher{
		client:         client,
		headers:        headers,
		queue:          queue,
		producer:       producer,
		requestTimeout: requestTimeout,
		chunkTimeout:   chunkTimeout,
	}
}

func (f *segmentFetcher) run() {
	for {
		item, ok := f.queue.pop()
		if !ok {
			return
		}

		switch item.kind {
		case queueItemStreamOver:
			f.producer.send(Event{Kind: EventEnd})
			return
		case queueItemURL:
			if !f.fetchOne(item.url) {
				f.queue.markDone()
				return
			}
		}
	}
}

// fetchOne downloads a single segment. It returns false only when the
// consumer has dropped the stream (so run() should stop entirely);
// ordinary per-segment failures return true so the loop continues with
// the next queued URL, per spec.md §4.6/§7.
func (f *segmentFetcher) fetchOne(rawURL string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), f.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return f.producer.send(Event{Kind: EventError, Err: ParseError("invalid segment url", err)})
	}
	for k, vs := range f.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return f.producer.send(Event{Kind: EventError, Err: NetworkError("segment request failed", err)})
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return f.producer.send(Event{Kind: EventError, Err: HTTPError(resp.StatusCode, "segment returned error status")})
	}

	return f.streamBody(resp.Body)
}

func (f *segmentFetcher) streamBody(body io.Reader) bool {
	buf := make([]byte, 32*1024)
	type readResult struct {
		n   int
		err error
	}

	for {
		results := make(chan readResult, 1)
		go func() {
			n, err := body.Read(buf)
			results <- readResult{n, err}
		}()

		select {
		case r := <-results:
			if r.n > 0 {
				chunk := make([]byte, r.n)
				copy(chunk, buf[:r.n])
				if !f.producer.send(Event{Kind: EventBytes, Bytes: chunk}) {
					return false
				}
			}
			if r.err != nil {
				if r.err != io.EOF {
					return f.producer.send(Event{Kind: EventError, Err: NetworkError("segment read failed", r.err)})
				}
				return true
			}
		case <-time.After(f.chunkTimeout):
			util.Warn("stream: segment chunk inactivity timeout", "timeout", f.chunkTimeout)
			return f.producer.send(Event{Kind: EventError, Err: NetworkError("segment inactivity timeout", context.DeadlineExceeded)})
		}
	}
}
