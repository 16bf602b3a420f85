// Package resolver defines the site-resolver contract the download core
// consumes (spec.md §4.8) and a small registry dispatching a URL to the
// concrete plugin that knows how to handle its host.
package resolver

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sync"

	"github.com/alvarorichard/streamlive/internal/stream"
)

// Status is the tri-state liveness a Handle reports, modeled directly on
// afreeca.rs's RESULT field mapping (0 -> Offline, 1 -> Online, else ->
// Unknown).
type Status int

const (
	StatusUnknown Status = iota
	StatusOnline
	StatusOffline
)

func (s Status) String() string {
	switch s {
	case StatusOnline:
		return "online"
	case StatusOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// Handle is the site-resolved object the core consumes: metadata getters
// plus a factory that knows which of chunked/HLS/HLS-named stream to
// start. Concrete resolvers build a Handle in Resolve and the core never
// needs to know which site produced it.
type Handle interface {
	Status() Status
	Title() string
	Author() string
	Extension() string
	DefaultName() string
	BuildStream(client *http.Client) (*stream.EventStream, error)
}

// Resolver maps a user-supplied URL to a Handle. Implementations may
// perform network I/O (landing page scrape, JSON endpoint calls) and
// follow redirects before returning.
type Resolver interface {
	// CanResolve reports whether this resolver recognizes url's host.
	CanResolve(rawURL string) bool
	Resolve(rawURL string) (Handle, error)
}

// Registry dispatches a URL to the first registered Resolver that claims
// it, mirroring how rsget_lib picks a plugin by regex match on the URL.
type Registry struct {
	mu        sync.RWMutex
	resolvers []Resolver
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds r to the dispatch list. Order matters only in the
// pathological case where two resolvers both claim the same URL; the
// first registered wins.
func (reg *Registry) Register(r Resolver) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.resolvers = append(reg.resolvers, r)
}

// Resolve finds a Resolver willing to handle rawURL and delegates to it.
func (reg *Registry) Resolve(rawURL string) (Handle, error) {
	if _, err := url.Parse(rawURL); err != nil {
		return nil, stream.FromURL(err)
	}

	reg.mu.RLock()
	defer reg.mu.RUnlock()
	for _, r := range reg.resolvers {
		if r.CanResolve(rawURL) {
			return r.Resolve(rawURL)
		}
	}
	return nil, stream.ResolverError(fmt.Sprintf("no resolver registered for %s", rawURL), nil)
}

// HostPattern compiles a regular expression to be matched against a raw
// URL, reporting a compile failure as a KindParse error. The bundled
// plugins do not call it; they compile their patterns with
// regexp.MustCompile.
func HostPattern(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, stream.FromRegexCompile(err)
	}
	return re, nil
}
