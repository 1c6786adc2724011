// Package transport talks HTTP to a MusicCast device: YXC requests against
// the YamahaExtendedControl root and SOAP actions against the UPnP
// AVTransport service.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/anicoll/musiccast-integration/internal/pkg/musiccast"
)

const (
	apiRoot     = "/YamahaExtendedControl/v1/"
	appName     = "MusicCast/1.0"
	defaultWait = 10 * time.Second
)

var ErrResponse = errors.New("transport: device rejected request")

// ResponseError is a request the device answered but refused, either with a
// non-2xx status or a non-zero response_code.
type ResponseError struct {
	Path   string
	Status int
	Code   int64
}

func (e *ResponseError) Error() string {
	if e.Status != http.StatusOK {
		return fmt.Sprintf("%s: %s: http status %d", ErrResponse, e.Path, e.Status)
	}
	return fmt.Sprintf("%s: %s: response_code %d", ErrResponse, e.Path, e.Code)
}

func (e *ResponseError) Unwrap() error {
	return ErrResponse
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithAppPort announces the UDP port event datagrams should be sent to.
func WithAppPort(port int) Option {
	return func(c *Client) {
		c.appPort = port
	}
}

// Client implements musiccast.Transport and musiccast.MediaRenderer.
type Client struct {
	logger  *zap.Logger
	host    string
	baseURL string
	http    *http.Client
	appPort int

	mu       sync.Mutex
	services map[string]avService
}

func New(host string, opts ...Option) *Client {
	c := &Client{
		logger:   zap.L(),
		host:     host,
		baseURL:  "http://" + host + apiRoot,
		http:     &http.Client{Timeout: defaultWait},
		services: map[string]avService{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	return c.request(ctx, http.MethodGet, path, nil)
}

func (c *Client) Post(ctx context.Context, path string, body any) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", path, err)
	}
	return c.request(ctx, http.MethodPost, path, data)
}

func (c *Client) request(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-AppName", appName)
	if c.appPort > 0 {
		req.Header.Set("X-AppPort", strconv.Itoa(c.appPort))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("yxc request", zap.String("host", c.host), zap.String("method", method), zap.String("path", path))
	res, err := c.http.Do(req)
	if err != nil {
		return nil, &musiccast.ConnectionError{Op: method + " " + path, Err: err}
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &musiccast.ConnectionError{Op: "read " + path, Err: err}
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &ResponseError{Path: path, Status: res.StatusCode}
	}
	if code := gjson.GetBytes(data, "response_code"); code.Exists() && code.Int() != 0 {
		return nil, &ResponseError{Path: path, Status: http.StatusOK, Code: code.Int()}
	}
	return data, nil
}
