package stream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bluenviron/gohlslib/v2/pkg/playlist"
)

// allowableExcessDuration is the slack granted to a segment's declared
// duration over the playlist's own TARGETDURATION before the playlist is
// treated as malformed. Real broadcasters routinely violate the letter of
// the HLS spec by a few seconds; gohlslib's parser is strict about syntax
// but not about this particular inter-field consistency rule, so the
// excess check is applied here explicitly.
const allowableExcessDuration = 10 * time.Second

// fetchPlaylistText performs the single playlist GET shared by C4 and C5:
// clone headers, attach a per-attempt timeout, return the raw body.
func fetchPlaylistText(client *http.Client, base *http.Request, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(base.Context(), timeout)
	defer cancel()
	req := cloneRequest(base, ctx)
	resp, err := client.Do(req)
	if err != nil {
		return "", NetworkError("playlist request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", HTTPError(resp.StatusCode, "playlist request returned error status")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", NetworkError("playlist body read failed", err)
	}
	return string(body), nil
}

// cloneRequest reconstructs base with the same method, URL, and headers
// bound to ctx. http.Request bodies for GET requests are always nil, so
// unlike the Rust source (which special-cases an uncloneable body) this is
// always a plain reconstruction.
func cloneRequest(base *http.Request, ctx context.Context) *http.Request {
	return base.Clone(ctx)
}

// parsedMediaPlaylist bundles what the watcher needs out of one fetch.
type parsedMediaPlaylist struct {
	targetDuration time.Duration
	endList        bool
	segmentURIs    []string
}

// parseMediaPlaylist parses body as an HLS media playlist, permitting a
// segment's declared duration to exceed TARGETDURATION by up to
// allowableExcessDuration (spec.md §8, boundary behaviours).
func parseMediaPlaylist(body string) (*parsedMediaPlaylist, error) {
	pl, err := playlist.Unmarshal([]byte(body))
	if err != nil {
		return nil, ParseError("m3u8 parse failed", err)
	}
	media, ok := pl.(*playlist.Media)
	if !ok {
		return nil, ParseError("expected media playlist, got multivariant", nil)
	}

	target := time.Duration(media.TargetDuration) * time.Second
	uris := make([]string, 0, len(media.Segments))
	for _, seg := range media.Segments {
		if seg == nil {
			continue
		}
		if seg.Duration > target+allowableExcessDuration {
			return nil, ParseError(fmt.Sprintf("segment duration exceeds target+%s", allowableExcessDuration), nil)
		}
		uris = append(uris, strings.TrimSpace(seg.URI))
	}

	return &parsedMediaPlaylist{
		targetDuration: target,
		endList:        media.EndList,
		segmentURIs:    uris,
	}, nil
}

// parseMultivariantPlaylist parses body as an HLS master playlist.
func parseMultivariantPlaylist(body string) (*playlist.Multivariant, error) {
	pl, err := playlist.Unmarshal([]byte(body))
	if err != nil {
		return nil, ParseError("m3u8 parse failed", err)
	}
	mv, ok := pl.(*playlist.Multivariant)
	if !ok {
		return nil, ParseError("expected multivariant playlist, got media", nil)
	}
	return mv, nil
}

// resolveSegmentURL turns a (possibly relative) segment URI into an
// absolute URL against base, where base is computed as
// playlistURL.join(".") — i.e. the playlist URL with its last path
// segment and query stripped, matching the Rust source's
// `request.url().join(".")`.
func resolveSegmentURL(base *url.URL, uri string) (string, error) {
	if u, err := url.Parse(uri); err == nil && u.IsAbs() {
		return uri, nil
	}
	ref, err := url.Parse(uri)
	if err != nil {
		return "", ParseError("invalid segment uri", err)
	}
	return base.ResolveReference(ref).String(), nil
}

// playlistBaseURL computes `url.join(".")`: the directory the playlist
// lives in, with any query discarded.
func playlistBaseURL(playlistURL *url.URL) *url.URL {
	base := *playlistURL
	base.RawQuery = ""
	base.Fragment = ""
	if idx := strings.LastIndex(base.Path, "/"); idx >= 0 {
		base.Path = base.Path[:idx+1]
	}
	return &base
}
