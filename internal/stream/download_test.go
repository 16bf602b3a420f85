package stream

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDownloadHLS_SimplePlaylistEndsCleanly exercises scenario S2 from the
// core's testable properties: a three-segment playlist with ENDLIST
// should yield exactly the three segments' bytes, in order, followed by
// End, with no further events after.
func TestDownloadHLS_SimplePlaylistEndsCleanly(t *testing.T) {
	const segmentBody = "0123456789" // 10 bytes, repeated per segment below

	mux := http.NewServeMux()
	mux.HandleFunc("/live/x.m3u8", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "#EXTM3U\n#EXT-X-TARGETDURATION:2\n#EXT-X-VERSION:3\n"+
			"#EXTINF:2.0,\na.ts\n#EXTINF:2.0,\nb.ts\n#EXTINF:2.0,\nc.ts\n#EXT-X-ENDLIST\n")
	})
	for _, seg := range []string{"a.ts", "b.ts", "c.ts"} {
		seg := seg
		mux.HandleFunc("/live/"+seg, func(w http.ResponseWriter, r *http.Request) {
			io := strings.NewReader(segmentBody)
			_, _ = io.WriteTo(w)
		})
	}
	srv := httptest.NewServer(mux)
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/live/x.m3u8", nil)
	require.NoError(t, err)

	es := DownloadHLS(srv.Client(), req, nil, WithMaxRetries(2))

	var collected strings.Builder
	var sawEnd bool
	for i := 0; i < 100; i++ {
		ev, ok := es.Next()
		if !ok {
			break
		}
		switch ev.Kind {
		case EventBytes:
			collected.Write(ev.Bytes)
		case EventEnd:
			sawEnd = true
		case EventError:
			t.Fatalf("unexpected error event: %v", ev.Err)
		}
		if sawEnd {
			break
		}
	}

	assert.True(t, sawEnd, "download must end with an End event")
	assert.Equal(t, strings.Repeat(segmentBody, 3), collected.String())
}

// TestDownloadHLS_SegmentFailureDoesNotAbortDownload exercises scenario
// S4: one segment returning a 500 surfaces an Error event but the
// download continues to the next segment and still reaches End.
func TestDownloadHLS_SegmentFailureDoesNotAbortDownload(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/live/x.m3u8", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "#EXTM3U\n#EXT-X-TARGETDURATION:2\n"+
			"#EXTINF:2.0,\na.ts\n#EXTINF:2.0,\nb.ts\n#EXT-X-ENDLIST\n")
	})
	mux.HandleFunc("/live/a.ts", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "AAAA")
	})
	mux.HandleFunc("/live/b.ts", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/live/x.m3u8", nil)
	require.NoError(t, err)

	es := DownloadHLS(srv.Client(), req, nil)

	var sawError, sawEnd bool
	var bytesReceived strings.Builder
	for i := 0; i < 100; i++ {
		ev, ok := es.Next()
		if !ok {
			break
		}
		switch ev.Kind {
		case EventBytes:
			bytesReceived.Write(ev.Bytes)
		case EventError:
			sawError = true
			assert.Equal(t, KindHTTP, ev.Err.Kind)
		case EventEnd:
			sawEnd = true
		}
		if sawEnd {
			break
		}
	}

	assert.True(t, sawError)
	assert.True(t, sawEnd)
	assert.Equal(t, "AAAA", bytesReceived.String())
}

// TestEventStream_CloseStopsFurtherDelivery exercises the cancellation
// contract: once the consumer calls Close, a producer blocked trying to
// send must observe it and stop producing, rather than hang forever.
func TestEventStream_CloseStopsFurtherDelivery(t *testing.T) {
	producer, public := newEventProducer(1)
	stopped := make(chan struct{})

	go func() {
		for {
			if !producer.send(Event{Kind: EventBytes, Bytes: []byte("x")}) {
				close(stopped)
				return
			}
		}
	}()

	// Let the producer fill its buffer and block on the next send, then
	// close the consumer side.
	time.Sleep(20 * time.Millisecond)
	public.Close()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("producer did not observe Close and stop")
	}
}
