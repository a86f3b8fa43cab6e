package tenor

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"time-for/domain/search"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultBaseURL is the Tenor v2 API root
	DefaultBaseURL = "https://tenor.googleapis.com/v2"

	// DefaultMediaFormat is the media_formats key whose URL is downloaded
	DefaultMediaFormat = "webm"
)

// Client implements search.Searcher against the Tenor search API
type Client struct {
	apiKey      string
	baseURL     string
	mediaFormat string
	httpClient  *http.Client
	rng         *rand.Rand
	rngMu       sync.Mutex
	log         *logrus.Entry
}

// ClientOption is a functional option for configuring Client
type ClientOption func(*Client)

// WithBaseURL points the client at a different API root (for testing)
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRand sets the random source used to pick among candidates
func WithRand(rng *rand.Rand) ClientOption {
	return func(c *Client) {
		c.rng = rng
	}
}

// WithMediaFormat selects which media format URL is returned
func WithMediaFormat(format string) ClientOption {
	return func(c *Client) {
		if format != "" {
			c.mediaFormat = format
		}
	}
}

// WithLogger sets the client logger
func WithLogger(log *logrus.Entry) ClientOption {
	return func(c *Client) {
		c.log = log
	}
}

// NewClient creates a new Tenor client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:      apiKey,
		baseURL:     DefaultBaseURL,
		mediaFormat: DefaultMediaFormat,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		log:         logrus.NewEntry(logrus.StandardLogger()),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.log = c.log.WithField("component", "tenor")
	return c
}

// searchResponse holds both response shapes; which one is populated tells them apart
type searchResponse struct {
	Results []result  `json:"results"`
	Error   *apiError `json:"error"`
}

type result struct {
	ID           string                 `json:"id"`
	MediaFormats map[string]mediaFormat `json:"media_formats"`
}

type mediaFormat struct {
	URL string `json:"url"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Search picks one clip uniformly among the first candidateCount results for query
func (c *Client) Search(ctx context.Context, query string, candidateCount int) (search.Result, error) {
	if candidateCount <= 0 {
		candidateCount = search.DefaultCandidateCount
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("key", c.apiKey)
	params.Set("limit", strconv.Itoa(candidateCount))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return search.Result{}, &search.TransportError{Op: "request", Err: err}
	}

	c.log.WithFields(logrus.Fields{"query": query, "limit": candidateCount}).Debug("searching")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return search.Result{}, &search.TransportError{Op: "request", Err: err}
	}
	defer resp.Body.Close()

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return search.Result{}, &search.TransportError{
			Op:  "response",
			Err: fmt.Errorf("decode (http %d): %w", resp.StatusCode, err),
		}
	}

	if body.Error != nil {
		return search.Result{}, &search.APIError{Code: body.Error.Code, Message: body.Error.Message}
	}

	c.rngMu.Lock()
	idx, err := search.PickIndex(c.rng, query, candidateCount, len(body.Results))
	c.rngMu.Unlock()
	if err != nil {
		return search.Result{}, err
	}

	format, ok := body.Results[idx].MediaFormats[c.mediaFormat]
	if !ok || format.URL == "" {
		return search.Result{}, &search.TransportError{
			Op:  "response",
			Err: fmt.Errorf("result %q has no %s media format", body.Results[idx].ID, c.mediaFormat),
		}
	}

	c.log.WithFields(logrus.Fields{"query": query, "pool": search.PoolSize(candidateCount, len(body.Results)), "picked": idx}).Debug("resolved clip")
	return search.Result{URL: format.URL, Query: query}, nil
}

// Ensure Client implements search.Searcher
var _ search.Searcher = (*Client)(nil)
