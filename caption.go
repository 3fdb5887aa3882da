package caption

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

const (
	defaultEndpoint  = "https://www.youtube.com/youtubei/v1/player?prettyPrint=false"
	defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/15.5 Safari/605.1.15,gzip(gfe)"
	clientVersion    = "2.20250925.01.00"

	maxBodySize = 8 << 20
)

// PlayerRequest represents the YouTube player API request
type PlayerRequest struct {
	Context   Context `json:"context"`
	VideoID   string  `json:"videoId"`
	ContentOK bool    `json:"contentCheckOk"`
	RacyOK    bool    `json:"racyCheckOk"`
}

// Context represents the client context in the request
type Context struct {
	Client ClientInfo `json:"client"`
}

// ClientInfo represents the client information
type ClientInfo struct {
	ClientName       string `json:"clientName"`
	ClientVersion    string `json:"clientVersion"`
	UserAgent        string `json:"userAgent"`
	HL               string `json:"hl"`
	TimeZone         string `json:"timeZone"`
	UTCOffsetMinutes int    `json:"utcOffsetMinutes"`
}

// PlayerResponse represents the YouTube player API response
type PlayerResponse struct {
	PlayabilityStatus *PlayabilityStatus `json:"playabilityStatus"`
	Captions          *Captions          `json:"captions"`
}

// PlayabilityStatus tells whether the video can be played and why not.
type PlayabilityStatus struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// Captions contains caption track information
type Captions struct {
	PlayerCaptionsTracklistRenderer PlayerCaptionsTracklistRenderer `json:"playerCaptionsTracklistRenderer"`
}

// PlayerCaptionsTracklistRenderer contains the caption tracks
type PlayerCaptionsTracklistRenderer struct {
	CaptionTracks []CaptionTrack `json:"captionTracks"`
}

// CaptionTrack represents a single caption track
type CaptionTrack struct {
	BaseURL      string    `json:"baseUrl"`
	LanguageCode string    `json:"languageCode"`
	Kind         string    `json:"kind"`
	Name         TrackName `json:"name"`
}

// TrackName is the display name of a track, either as simple text or as runs.
type TrackName struct {
	SimpleText string `json:"simpleText"`
	Runs       []struct {
		Text string `json:"text"`
	} `json:"runs"`
}

func (n TrackName) String() string {
	if n.SimpleText != "" {
		return n.SimpleText
	}
	var sb strings.Builder
	for _, r := range n.Runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

// SubtitleResponse represents the subtitle content response
type SubtitleResponse struct {
	Events []SubtitleEvent `json:"events"`
}

// SubtitleEvent represents a single subtitle event
type SubtitleEvent struct {
	TStartMs    int               `json:"tStartMs"`
	DDurationMs int               `json:"dDurationMs"`
	Segs        []SubtitleSegment `json:"segs,omitempty"`
}

// SubtitleSegment represents a segment of subtitle text
type SubtitleSegment struct {
	UTF8 string `json:"utf8"`
}

// Entries converts json3 events into caption entries. Events without segments
// and pure line-break events carry no caption text and are dropped.
func (sr *SubtitleResponse) Entries() []Entry {
	entries := make([]Entry, 0, len(sr.Events))
	for _, event := range sr.Events {
		if len(event.Segs) == 0 {
			continue
		}
		var sb strings.Builder
		for _, seg := range event.Segs {
			sb.WriteString(seg.UTF8)
		}
		text := sb.String()
		if text == "\n" {
			continue
		}
		entries = append(entries, Entry{
			Text:     text,
			Start:    float64(event.TStartMs) / 1000.0,
			Duration: float64(event.DDurationMs) / 1000.0,
		})
	}
	return entries
}

// Client lists and downloads captions through the YouTube Innertube player API.
type Client struct {
	httpClient      *http.Client
	timeout         time.Duration
	endpoint        string
	hl              string
	maxElapsedTime  time.Duration
	initialInterval time.Duration
	limiter         *rate.Limiter
	logger          *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for every request.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout. It is applied to a copy of the
// HTTP client, so a client passed to WithHTTPClient is never modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithMaxElapsedTime bounds the total time spent retrying one request.
// Zero disables retries.
func WithMaxElapsedTime(d time.Duration) Option {
	return func(c *Client) {
		c.maxElapsedTime = d
	}
}

// WithRetryInterval sets the first backoff interval.
func WithRetryInterval(d time.Duration) Option {
	return func(c *Client) {
		c.initialInterval = d
	}
}

// WithRateLimit allows at most rps requests per second, with the given burst.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithEndpoint overrides the player API URL.
func WithEndpoint(url string) Option {
	return func(c *Client) {
		c.endpoint = url
	}
}

// WithLanguage sets the interface language sent in the client context.
func WithLanguage(hl string) Option {
	return func(c *Client) {
		c.hl = hl
	}
}

// WithLogger sets the logger used for retry reporting.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates an Innertube client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:      createHTTPClient(),
		endpoint:        defaultEndpoint,
		hl:              "en",
		maxElapsedTime:  30 * time.Second,
		initialInterval: backoff.DefaultInitialInterval,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.httpClient == nil {
		c.httpClient = createHTTPClient()
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c
}

// createHTTPClient creates an HTTP client with a bounded request timeout
func createHTTPClient() *http.Client {
	return &http.Client{
		Transport: http.DefaultTransport.(*http.Transport).Clone(),
		Timeout:   30 * time.Second,
	}
}

// statusError is returned for non-200 responses.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.code, http.StatusText(e.code))
}

func retryable(code int) bool {
	return code >= 500 || code == http.StatusTooManyRequests
}

// doWithRetry sends the request built by newReq with exponential backoff retry.
// Transport errors, 5xx and 429 are retried; other non-200 statuses are not.
func (c *Client) doWithRetry(ctx context.Context, newReq func() (*http.Request, error)) ([]byte, error) {
	var body []byte

	operation := func() error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}
		req, err := newReq()
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			err := &statusError{code: resp.StatusCode}
			if retryable(resp.StatusCode) {
				return err
			}
			return backoff.Permanent(err)
		}

		body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		return err
	}

	backoffConfig := backoff.NewExponentialBackOff()
	backoffConfig.InitialInterval = c.initialInterval
	backoffConfig.MaxElapsedTime = c.maxElapsedTime

	var b backoff.BackOff = backoffConfig
	if c.maxElapsedTime <= 0 {
		b = backoff.WithMaxRetries(backoffConfig, 0)
	}

	notify := func(err error, wait time.Duration) {
		c.logger.Warn("caption: request failed, retrying",
			slog.Duration("wait", wait), slog.Any("err", err))
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify); err != nil {
		return nil, err
	}
	return body, nil
}

// Player fetches the player response for videoID.
func (c *Client) Player(ctx context.Context, videoID string) (*PlayerResponse, error) {
	playerReq := PlayerRequest{
		Context: Context{
			Client: ClientInfo{
				ClientName:       "WEB",
				ClientVersion:    clientVersion,
				UserAgent:        defaultUserAgent,
				HL:               c.hl,
				TimeZone:         "UTC",
				UTCOffsetMinutes: 0,
			},
		},
		VideoID:   videoID,
		ContentOK: true,
		RacyOK:    true,
	}

	playerData, err := json.Marshal(playerReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal player request: %w", err)
	}

	body, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(playerData))
		if err != nil {
			return nil, fmt.Errorf("failed to create player request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", defaultUserAgent)
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get player response: %w", err)
	}

	var playerResp PlayerResponse
	if err := json.Unmarshal(body, &playerResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal player response: %w", err)
	}
	return &playerResp, nil
}

// List returns the caption tracks of videoID in the order YouTube reports them.
// An unplayable video fails with the reason YouTube gives.
func (c *Client) List(ctx context.Context, videoID string) ([]Descriptor, error) {
	playerResp, err := c.Player(ctx, videoID)
	if err != nil {
		return nil, err
	}

	if ps := playerResp.PlayabilityStatus; ps != nil && ps.Status != "" && ps.Status != "OK" {
		if ps.Reason != "" {
			return nil, errors.New(ps.Reason)
		}
		return nil, fmt.Errorf("video %s is not playable: %s", videoID, ps.Status)
	}

	if playerResp.Captions == nil {
		return nil, nil
	}
	tracks := playerResp.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
	descriptors := make([]Descriptor, 0, len(tracks))
	for _, t := range tracks {
		if t.BaseURL == "" {
			continue
		}
		descriptors = append(descriptors, &Track{CaptionTrack: t, client: c})
	}
	return descriptors, nil
}

// Track is a caption track that can be downloaded through its Client.
type Track struct {
	CaptionTrack
	client *Client
}

func (t *Track) LanguageCode() string { return t.CaptionTrack.LanguageCode }

func (t *Track) LanguageName() string { return t.Name.String() }

// Generated reports whether the track is auto-generated speech recognition.
func (t *Track) Generated() bool { return t.Kind == "asr" }

func (t *Track) String() string {
	return fmt.Sprintf("%s (%s) - %s", t.LanguageName(), t.LanguageCode(), t.Kind)
}

// Download fetches the raw json3 subtitle document of the track.
func (t *Track) Download(ctx context.Context) (*SubtitleResponse, error) {
	subtitleURL := t.BaseURL + "&fmt=json3"
	if !strings.Contains(t.BaseURL, "?") {
		subtitleURL = t.BaseURL + "?fmt=json3"
	}

	body, err := t.client.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, subtitleURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create subtitle request: %w", err)
		}
		req.Header.Set("User-Agent", defaultUserAgent)
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get subtitle response: %w", err)
	}

	var subtitleResp SubtitleResponse
	if err := json.Unmarshal(body, &subtitleResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal subtitle response: %w", err)
	}
	return &subtitleResp, nil
}

// Fetch downloads the track and returns its entries in document order.
func (t *Track) Fetch(ctx context.Context) ([]Entry, error) {
	sr, err := t.Download(ctx)
	if err != nil {
		return nil, err
	}
	return sr.Entries(), nil
}
