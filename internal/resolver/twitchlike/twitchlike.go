// Package twitchlike resolves broadcast URLs for a Twitch-style platform:
// a username in the path, a Helix-style stream-info lookup, an
// access-token exchange, and a master playlist whose first-listed variant
// stream is downloaded through C5. Grounded directly on
// original_source/rsget_lib/src/plugins/twitch.rs.
package twitchlike

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/alvarorichard/streamlive/internal/resolver"
	"github.com/alvarorichard/streamlive/internal/stream"
)

var usernamePattern = regexp.MustCompile(`twitchlike\.tv/([a-zA-Z0-9_]+)`)

// defaultClientID falls back to a public client id the way twitch.rs does
// when TWITCH_TOKEN is unset; kept as a named constant rather than a
// literal inline so its origin is obvious.
const defaultClientID = "kimne78kx3ncx6brgo4mv6wki5h1ko"

// Client resolves twitch-like URLs.
type Client struct {
	http     *resty.Client
	clientID string
}

// New builds a Client, reading a client id override from TWITCH_TOKEN the
// same way twitch.rs's Twitch::new does.
func New() *Client {
	id := os.Getenv("TWITCH_TOKEN")
	if id == "" {
		id = defaultClientID
	}
	return &Client{
		http:     resty.New().SetTimeout(15 * time.Second).SetRetryCount(2),
		clientID: id,
	}
}

func (c *Client) CanResolve(rawURL string) bool {
	return usernamePattern.MatchString(rawURL)
}

type streamInfo struct {
	Data []struct {
		Title string `json:"title"`
	} `json:"data"`
}

type accessTokenResponse struct {
	Token string `json:"token"`
	Sig   string `json:"sig"`
}

func (c *Client) Resolve(rawURL string) (resolver.Handle, error) {
	m := usernamePattern.FindStringSubmatch(rawURL)
	if m == nil {
		return nil, stream.ResolverError("url does not match twitch-like pattern", nil)
	}
	username := m[1]

	var info streamInfo
	resp, err := c.http.R().
		SetHeader("Client-ID", c.clientID).
		SetResult(&info).
		Get(fmt.Sprintf("https://api.twitchlike.tv/helix/streams?user_login=%s", username))
	if err != nil {
		return nil, stream.NetworkError("stream info request failed", err)
	}
	if resp.IsError() {
		return nil, stream.HTTPError(resp.StatusCode(), "stream info request returned error status")
	}

	if len(info.Data) == 0 {
		return &handle{status: resolver.StatusOffline, author: username}, nil
	}

	title := info.Data[0].Title

	token, err := c.fetchAccessToken(username)
	if err != nil {
		return nil, err
	}

	masterURL := fmt.Sprintf(
		"https://usher.twitchlike.tv/api/channel/hls/%s.m3u8?token=%s&sig=%s&allow_source=true&player=streamlive",
		username, token.Token, token.Sig,
	)

	req, err := http.NewRequest(http.MethodGet, masterURL, nil)
	if err != nil {
		return nil, stream.FromURL(err)
	}

	return &handle{
		status:  resolver.StatusOnline,
		title:   title,
		author:  username,
		request: req,
		// No variant name is stored: BuildStream takes the master
		// playlist's first-listed variant stream.
	}, nil
}

func (c *Client) fetchAccessToken(username string) (*accessTokenResponse, error) {
	var tok accessTokenResponse
	resp, err := c.http.R().
		SetHeader("Client-ID", c.clientID).
		SetResult(&tok).
		Get(fmt.Sprintf("https://api.twitchlike.tv/api/channels/%s/access_token", username))
	if err != nil {
		return nil, stream.NetworkError("access token request failed", err)
	}
	if resp.IsError() {
		return nil, stream.HTTPError(resp.StatusCode(), "access token request returned error status")
	}
	if err := json.Unmarshal(resp.Body(), &tok); err != nil {
		return nil, stream.FromJSON(err)
	}
	return &tok, nil
}

type handle struct {
	status  resolver.Status
	title   string
	author  string
	request *http.Request
}

func (h *handle) Status() resolver.Status { return h.status }
func (h *handle) Title() string           { return h.title }
func (h *handle) Author() string          { return h.author }
func (h *handle) Extension() string       { return "mp4" }

func (h *handle) DefaultName() string {
	return fmt.Sprintf("%s_%s.mp4", h.author, time.Now().UTC().Format("20060102_150405"))
}

// BuildStream delegates to DownloadHLSFirstVariant: the master playlist's
// first-listed variant stream is taken directly. No EXT-X-MEDIA NAME or
// media group is looked up.
func (h *handle) BuildStream(client *http.Client) (*stream.EventStream, error) {
	if h.status != resolver.StatusOnline {
		return nil, stream.Offline(fmt.Sprintf("%s is offline", h.author))
	}
	if h.request == nil {
		return nil, stream.ResolverError("handle has no prepared request", nil)
	}
	return stream.DownloadHLSFirstVariant(client, h.request, nil), nil
}
