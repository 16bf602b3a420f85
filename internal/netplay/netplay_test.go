package netplay

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alvarorichard/streamlive/internal/stream"
)

// TestBridge_PipesBytesInOrderThenCloses exercises C10's contract: a
// connected player receives every Bytes event from an EventStream in
// order, and the connection closes once the stream reaches End.
func TestBridge_PipesBytesInOrderThenCloses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "first second")
	}))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	es := stream.DownloadChunkedRequest(srv.Client(), req)

	bridge, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer bridge.Close()

	pipeErr := make(chan error, 1)
	go func() { pipeErr <- bridge.Pipe(es) }()

	conn, err := net.DialTimeout("tcp", bridge.Addr(), time.Second)
	require.NoError(t, err)
	defer conn.Close()

	got, err := io.ReadAll(conn)
	require.NoError(t, err)
	assert.Equal(t, "first second", string(got))
	require.NoError(t, <-pipeErr)
}
