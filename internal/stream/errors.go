// Package stream implements the live HLS download core: a media- and
// master-playlist watcher paired with a segment fetcher, unified behind a
// single pull-style event stream.
package stream

import (
	"encoding/json"
	"errors"
	"net/url"

	pkgerrors "github.com/pkg/errors"
)

// Kind classifies a failure produced anywhere in the download core. It is
// the single taxonomy every underlying library error is converted into
// before it can cross a channel boundary.
type Kind int

const (
	// KindNetwork covers connection, DNS, TLS and timeout failures.
	KindNetwork Kind = iota
	// KindHTTP covers a non-2xx response treated as fatal for the request
	// that produced it.
	KindHTTP
	// KindParse covers playlist, JSON, regex and URL parse failures.
	KindParse
	// KindIO covers writer-side failures (disk full, pipe closed).
	KindIO
	// KindResolver covers a site plug-in reporting it cannot service a URL.
	KindResolver
	// KindOffline is the explicit "stream is not live" signal a resolver
	// returns instead of a generic error.
	KindOffline
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindHTTP:
		return "http"
	case KindParse:
		return "parse"
	case KindIO:
		return "io"
	case KindResolver:
		return "resolver"
	case KindOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// Error is the taxonomy value carried by Event.Error. It wraps the
// underlying cause and is safe to pass across goroutines (it holds no
// unexported mutable state and no live connection handles).
type Error struct {
	Kind    Kind
	Status  int // populated for KindHTTP; 0 otherwise
	cause   error
	message string
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.message + ": " + e.cause.Error()
	}
	return e.message
}

// Unwrap lets errors.Is/errors.As see through to the underlying cause.
func (e *Error) Unwrap() error { return e.cause }

func newErr(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, message: message, cause: cause}
}

// NetworkError wraps a transport-level failure (dial, TLS, timeout).
func NetworkError(message string, cause error) *Error {
	return newErr(KindNetwork, message, pkgerrors.Wrap(cause, message))
}

// HTTPError wraps a semantically fatal non-2xx response.
func HTTPError(status int, message string) *Error {
	e := newErr(KindHTTP, message, nil)
	e.Status = status
	return e
}

// ParseError wraps a playlist/JSON/regex/URL parse failure.
func ParseError(message string, cause error) *Error {
	return newErr(KindParse, message, pkgerrors.Wrap(cause, message))
}

// IOError wraps a writer-side failure.
func IOError(message string, cause error) *Error {
	return newErr(KindIO, message, pkgerrors.Wrap(cause, message))
}

// ResolverError wraps a site plug-in's refusal or failure to resolve a URL.
func ResolverError(message string, cause error) *Error {
	return newErr(KindResolver, message, pkgerrors.Wrap(cause, message))
}

// Offline reports that a resolver determined the target stream is not
// currently live. Callers typically render this as a distinct, non-fatal
// user notice rather than a generic failure.
func Offline(message string) *Error {
	return newErr(KindOffline, message, nil)
}

// FromJSON converts a json.Unmarshal-style failure into the taxonomy.
func FromJSON(err error) *Error {
	var syn *json.SyntaxError
	var typ *json.UnmarshalTypeError
	if errors.As(err, &syn) || errors.As(err, &typ) {
		return ParseError("malformed json", err)
	}
	return ParseError("json decode failed", err)
}

// FromURL converts a url.Parse-style failure into the taxonomy.
func FromURL(err error) *Error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return ParseError("invalid url", err)
	}
	return ParseError("invalid url", err)
}

// FromRegexCompile converts a regexp.Compile failure into the taxonomy.
// Kept as a named conversion (rather than inlined at call sites) because
// every resolver plugin compiles its own extraction pattern and should
// report failures the same way.
func FromRegexCompile(err error) *Error {
	return ParseError("invalid pattern", err)
}
