package stream

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/alvarorichard/streamlive/internal/util"
)

// chunkedInactivityTimeout bounds how long a chunked download may go
// without receiving a new chunk before it is abandoned as a network
// timeout.
const chunkedInactivityTimeout = 60 * time.Second

// ProgressFunc is called after every chunk written during a chunked
// download, with the cumulative byte count. It may be nil.
type ProgressFunc func(total int64)

// downloadChunked streams a single HTTP response body into buffer-sized
// events, honoring the overall inter-chunk inactivity deadline. It never
// buffers the whole response: each read from the body is forwarded as its
// own Bytes event.
func downloadChunked(ctx context.Context, client *http.Client, req *http.Request, producer *eventProducer, onProgress ProgressFunc) {
	resp, err := client.Do(req.WithContext(ctx))
	if err != nil {
		producer.send(Event{Kind: EventError, Err: NetworkError("chunked request failed", err)})
		producer.send(Event{Kind: EventEnd})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		producer.send(Event{Kind: EventError, Err: HTTPError(resp.StatusCode, "chunked request returned error status")})
		producer.send(Event{Kind: EventEnd})
		return
	}

	var total int64
	buf := make([]byte, 32*1024)
	timer := time.NewTimer(chunkedInactivityTimeout)
	defer timer.Stop()

	type readResult struct {
		n   int
		err error
	}
	results := make(chan readResult, 1)

	for {
		go func() {
			n, err := resp.Body.Read(buf)
			results <- readResult{n, err}
		}()

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(chunkedInactivityTimeout)

		select {
		case r := <-results:
			if r.n > 0 {
				chunk := make([]byte, r.n)
				copy(chunk, buf[:r.n])
				total += int64(r.n)
				if onProgress != nil {
					onProgress(total)
				}
				if !producer.send(Event{Kind: EventBytes, Bytes: chunk}) {
					return
				}
			}
			if r.err != nil {
				if r.err != io.EOF {
					producer.send(Event{Kind: EventError, Err: NetworkError("chunked read failed", r.err)})
				}
				producer.send(Event{Kind: EventEnd})
				return
			}
		case <-timer.C:
			util.Warn("stream: chunked download inactive too long", "timeout", chunkedInactivityTimeout)
			producer.send(Event{Kind: EventError, Err: NetworkError("inactivity timeout", context.DeadlineExceeded)})
			producer.send(Event{Kind: EventEnd})
			return
		case <-ctx.Done():
			producer.send(Event{Kind: EventEnd})
			return
		}
	}
}

// DownloadChunked issues request and returns an EventStream that yields the
// response body as a series of Bytes events followed by End, or an Error
// followed by End on failure. Work happens in a background goroutine; the
// call returns immediately.
func DownloadChunked(client *http.Client, req *http.Request, onProgress ProgressFunc) *EventStream {
	producer, public := newEventProducer(defaultEventBuffer)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer cancel()
		downloadChunked(ctx, client, req, producer, onProgress)
	}()
	go func() {
		<-public.closed
		cancel()
	}()
	return public
}
