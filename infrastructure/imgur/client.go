package imgur

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"time-for/domain/hosting"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultBaseURL is the Imgur v3 API root
	DefaultBaseURL = "https://api.imgur.com/3"

	providerName = "imgur"
)

// Client implements hosting.Uploader against the Imgur upload endpoint
type Client struct {
	clientID   string
	baseURL    string
	httpClient *http.Client
	log        *logrus.Entry
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

// WithLogger sets the client logger
func WithLogger(log *logrus.Entry) ClientOption {
	return func(c *Client) {
		c.log = log
	}
}

// NewClient creates a new Imgur uploader authenticated with an application client ID
func NewClient(clientID string, opts ...ClientOption) *Client {
	c := &Client{
		clientID:   clientID,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		log:        logrus.NewEntry(logrus.StandardLogger()),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.log = c.log.WithField("component", "imgur")
	return c
}

type uploadResponse struct {
	Data struct {
		Link  string `json:"link"`
		Error any    `json:"error"`
	} `json:"data"`
	Success bool `json:"success"`
	Status  int  `json:"status"`
}

// Upload posts the file at path and returns the share link.
// Videos go up as a multipart "video" field, stills as the raw request body.
func (c *Client) Upload(ctx context.Context, path string, kind hosting.Kind) (hosting.Link, error) {
	var (
		req *http.Request
		err error
	)
	switch kind {
	case hosting.KindStill:
		req, err = c.stillRequest(ctx, path)
	default:
		req, err = c.videoRequest(ctx, path)
	}
	if err != nil {
		return hosting.Link{}, c.fail(err)
	}
	req.Header.Set("Authorization", "Client-ID "+c.clientID)

	c.log.WithFields(logrus.Fields{"path": path, "kind": kind}).Debug("uploading")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return hosting.Link{}, c.fail(err)
	}
	defer resp.Body.Close()

	var body uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return hosting.Link{}, c.fail(fmt.Errorf("%w: decode (http %d): %v", hosting.ErrNoLink, resp.StatusCode, err))
	}
	if body.Data.Link == "" {
		return hosting.Link{}, c.fail(fmt.Errorf("%w (http %d)", hosting.ErrNoLink, resp.StatusCode))
	}

	link := hosting.NewLink(body.Data.Link, kind)
	c.log.WithField("link", link.URL).Debug("uploaded")
	return link, nil
}

func (c *Client) videoRequest(ctx context.Context, path string) (*http.Request, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("video", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req, nil
}

func (c *Client) stillRequest(ctx context.Context, path string) (*http.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	return req, nil
}

func (c *Client) fail(err error) error {
	return &hosting.UploadFailure{Provider: providerName, Err: err}
}

// Ensure Client implements hosting.Uploader
var _ hosting.Uploader = (*Client)(nil)
