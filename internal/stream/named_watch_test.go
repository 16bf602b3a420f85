package stream

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDownloadHLSNamed_ResolvesMediaGroupByName exercises scenario S5: a
// master playlist lists two variants ("low", "high") and a media group
// NAME="src" associated with the "high" variant; requesting "src" must
// stream the "high" variant's segments.
func TestDownloadHLSNamed_ResolvesMediaGroupByName(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/live/master.m3u8", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "#EXTM3U\n"+
			"#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID=\"grp-high\",NAME=\"src\",DEFAULT=YES\n"+
			"#EXT-X-STREAM-INF:BANDWIDTH=500000,AUDIO=\"grp-low\"\nlow.m3u8\n"+
			"#EXT-X-STREAM-INF:BANDWIDTH=5000000,AUDIO=\"grp-high\"\nhigh.m3u8\n")
	})
	mux.HandleFunc("/live/high.m3u8", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "#EXTM3U\n#EXT-X-TARGETDURATION:2\n"+
			"#EXTINF:2.0,\nh1.ts\n#EXTINF:2.0,\nh2.ts\n#EXT-X-ENDLIST\n")
	})
	mux.HandleFunc("/live/h1.ts", func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, "HIGH1") })
	mux.HandleFunc("/live/h2.ts", func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, "HIGH2") })
	mux.HandleFunc("/live/low.m3u8", func(w http.ResponseWriter, r *http.Request) {
		t.Error("watcher must not fetch the unselected variant")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/live/master.m3u8", nil)
	require.NoError(t, err)

	es := DownloadHLSNamed(srv.Client(), req, "src", nil, WithMaxRetries(2))

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

	assert.True(t, sawEnd)
	assert.Equal(t, "HIGH1HIGH2", collected.String())
}

// TestDownloadHLSNamed_AbsentNameEndsAfterRetryBudget exercises the boundary
// behaviour: a master playlist whose named variant never appears never
// advances, and the watcher gives up after its retry budget, emitting End.
func TestDownloadHLSNamed_AbsentNameEndsAfterRetryBudget(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/live/master.m3u8", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "#EXTM3U\n"+
			"#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID=\"grp-high\",NAME=\"src\",DEFAULT=YES\n"+
			"#EXT-X-STREAM-INF:BANDWIDTH=5000000,AUDIO=\"grp-high\"\nhigh.m3u8\n")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/live/master.m3u8", nil)
	require.NoError(t, err)

	// maxRetries=0: the absent-variant path sleeps a default 1s before each
	// retry, so this exercises the give-up path after exactly one such sleep
	// instead of stretching the test out over several.
	es := DownloadHLSNamed(srv.Client(), req, "absent", nil, WithMaxRetries(0))

	var sawEnd bool
	for i := 0; i < 100; i++ {
		ev, ok := es.Next()
		if !ok {
			break
		}
		if ev.Kind == EventEnd {
			sawEnd = true
			break
		}
		if ev.Kind == EventBytes {
			t.Fatal("no segment should ever be fetched for an absent named group")
		}
	}

	assert.True(t, sawEnd, "watcher must give up and emit End once the retry budget is exhausted")
}
