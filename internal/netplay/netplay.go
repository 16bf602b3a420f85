// Package netplay implements the network-play TCP bridge spec.md names
// in §1 as an out-of-scope CLI concern: a local listener a media player
// can attach to while a live download is still in progress, rather than
// waiting for a file to exist on disk. Grounded on the teacher's mpv
// spawn idiom (internal/player/player.go's StartVideo, which execs mpv
// against a socket/URL) — here mpv is pointed at our own listener instead
// of the origin URL directly, so every byte it reads has already passed
// through the download core's retry/timeout handling.
package netplay

import (
	"fmt"
	"io"
	"net"
	"os/exec"
	"time"

	"github.com/alvarorichard/streamlive/internal/stream"
	"github.com/alvarorichard/streamlive/internal/util"
)

// Bridge accepts exactly one player connection and copies every Bytes
// event from an EventStream to it, in order, until End or the connection
// breaks.
type Bridge struct {
	listener net.Listener
}

// Listen opens a TCP listener on addr (e.g. "127.0.0.1:0" to let the OS
// pick a free port). Callers read Bridge.Addr() to learn the actual port
// before spawning a player against it.
func Listen(addr string) (*Bridge, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, stream.NetworkError("netplay listen failed", err)
	}
	return &Bridge{listener: l}, nil
}

// Addr returns the address the player should connect to.
func (b *Bridge) Addr() string {
	return b.listener.Addr().String()
}

// Close stops accepting new connections.
func (b *Bridge) Close() error {
	return b.listener.Close()
}

// Pipe accepts one connection and forwards es until it ends, then closes
// the connection. Errors mid-stream are logged and treated as a dropped
// connection, matching the core's own "consumer goes away, everything
// upstream unwinds lazily" cancellation model.
func (b *Bridge) Pipe(es *stream.EventStream) error {
	conn, err := b.listener.Accept()
	if err != nil {
		return stream.NetworkError("netplay accept failed", err)
	}
	defer conn.Close()

	for {
		ev, ok := es.Next()
		if !ok {
			return nil
		}
		switch ev.Kind {
		case stream.EventBytes:
			if _, err := conn.Write(ev.Bytes); err != nil {
				util.Warn("netplay: player connection write failed, closing bridge", "err", err)
				es.Close()
				return stream.IOError("netplay write failed", err)
			}
		case stream.EventError:
			util.Warn("netplay: upstream segment error", "err", ev.Err)
		case stream.EventEnd:
			return nil
		}
	}
}

// SpawnMPV starts mpv against the bridge's local address, the same way
// the teacher's StartVideo execs mpv against a URL, but pointed at a
// "tcp://" pseudo-URL mpv treats as a raw stream source.
func SpawnMPV(addr string, extraArgs ...string) (*exec.Cmd, error) {
	args := append([]string{"--no-terminal", "--quiet", fmt.Sprintf("tcp://%s", addr)}, extraArgs...)
	cmd := exec.Command("mpv", args...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start mpv: %w", err)
	}
	return cmd, nil
}

// drainUntilConnected is a small readiness helper: it waits for the
// bridge's listener to be dialable before the caller spawns a player,
// avoiding a race where mpv connects before Pipe has called Accept.
func drainUntilConnected(addr string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 200*time.Millisecond)
		if err == nil {
			return conn.Close()
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("netplay: %s not reachable within %s", addr, timeout)
}

// WaitReady blocks until the bridge's address accepts a probe connection,
// or timeout elapses.
func (b *Bridge) WaitReady(timeout time.Duration) error {
	return drainUntilConnected(b.Addr(), timeout)
}

var _ io.Closer = (*Bridge)(nil)
