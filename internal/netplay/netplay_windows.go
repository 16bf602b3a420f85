//go:build windows

package netplay

import (
	"github.com/Microsoft/go-winio"

	"github.com/alvarorichard/streamlive/internal/stream"
)

// ListenPipe opens a Windows named pipe instead of a TCP socket, for
// players that prefer to attach via `\\.\pipe\...` the way the teacher's
// mpv IPC socket already does on Windows (internal/player/player.go picks
// a `\\.\pipe\goanime_mpvsocket_*` path on GOOS=windows). Kept alongside
// Listen rather than replacing it since mpv's own "tcp://" source works
// cross-platform and named pipes are only needed when a caller wants
// parity with the existing IPC-socket convention.
func ListenPipe(pipeName string) (*Bridge, error) {
	l, err := winio.ListenPipe(pipeName, nil)
	if err != nil {
		return nil, stream.NetworkError("netplay named pipe listen failed", err)
	}
	return &Bridge{listener: l}, nil
}
