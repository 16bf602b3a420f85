package stream

import (
	"sync"

	"github.com/alvarorichard/streamlive/internal/util"
)

// defaultEventBuffer sizes the internal event channel so a burst of
// segment bytes doesn't force the fetcher to block on every send. It is
// also the bound: once this many events are buffered, send blocks until
// the consumer reads one or closes the stream.
const defaultEventBuffer = 32

// EventKind discriminates the three shapes an Event can take.
type EventKind int

const (
	// EventBytes carries a chunk of segment body in producer order.
	EventBytes EventKind = iota
	// EventEnd signals the producer is finished; it is always the last
	// event on a stream.
	EventEnd
	// EventError carries a non-fatal (fetcher) or informational (chunked)
	// failure. It never terminates the stream by itself except when it is
	// immediately followed by EventEnd.
	EventError
)

// Event is the single value type flowing across the public event stream.
// Exactly one of Bytes/Err is meaningful, selected by Kind.
type Event struct {
	Kind  EventKind
	Bytes []byte
	Err   *Error
}

// EventStream is the pull-style, single-producer/single-consumer sequence
// of Events a download exposes to its caller. It wraps a channel instead
// of exposing one directly so Close() can be called safely more than once
// and from a goroutine other than the reader's.
type EventStream struct {
	ch     <-chan Event
	closed chan struct{}
	once   sync.Once
}

func newEventStream(ch <-chan Event, closed chan struct{}) *EventStream {
	return &EventStream{ch: ch, closed: closed}
}

// Next blocks for the next Event, or returns ok=false once the producer
// has sent End and the channel has drained.
func (s *EventStream) Next() (Event, bool) {
	ev, ok := <-s.ch
	return ev, ok
}

// Close signals the producer side to stop; cancellation is lazy, observed
// by the fetcher on its next send, which in turn causes the watcher to
// observe a dropped queue and exit. Safe to call more than once, including
// concurrently from more than one goroutine.
func (s *EventStream) Close() {
	s.once.Do(func() { close(s.closed) })
}

// eventProducer is the sender-side handle used internally by the fetcher.
// It owns emitting at most one End and detects a closed consumer so sends
// become no-ops (logged) rather than panics.
type eventProducer struct {
	ch     chan<- Event
	closed <-chan struct{}
	ended  bool
}

func newEventProducer(buffer int) (*eventProducer, *EventStream) {
	ch := make(chan Event, buffer)
	closedSig := make(chan struct{})
	return &eventProducer{ch: ch, closed: closedSig}, newEventStream(ch, closedSig)
}

// send delivers an event unless the consumer has already closed the
// stream or the producer already emitted End. Returns false when the
// caller should stop producing.
func (p *eventProducer) send(ev Event) bool {
	if p.ended {
		return false
	}
	select {
	case <-p.closed:
		util.Debug("stream: dropping event, consumer closed", "kind", ev.Kind)
		return false
	default:
	}
	select {
	case p.ch <- ev:
		if ev.Kind == EventEnd {
			p.ended = true
			close(p.ch)
		}
		return ev.Kind != EventEnd
	case <-p.closed:
		util.Debug("stream: dropping event, consumer closed", "kind", ev.Kind)
		return false
	}
}
