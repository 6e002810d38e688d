// Package transport sends signed requests to the log service and maps its
// JSON and protobuf bodies to Go values.
package transport

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/GabrielNunesIT/go-libs/logger"
	"github.com/goccy/go-json"

	"github.com/GabrielNunesIT/cls-shipper/internal/metrics"
	"github.com/GabrielNunesIT/cls-shipper/internal/model"
	"github.com/GabrielNunesIT/cls-shipper/internal/sign"
)

// HTTPDoer abstracts HTTP client operations for testing.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Ensure http.Client implements HTTPDoer.
var _ HTTPDoer = (*http.Client)(nil)

const defaultTimeout = 10 * time.Second

// Client is a signed connection to one log service endpoint. Its
// configuration is fixed at construction and it is safe for concurrent use.
type Client struct {
	endpoint string
	scheme   string
	signer   *sign.Signer
	http     HTTPDoer
	timeout  time.Duration
	now      func() time.Time
	logger   logger.ILogger
	signOpts []sign.Option
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client for testing.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		c.http = doer
	}
}

// WithScheme overrides the default "http" scheme.
func WithScheme(scheme string) Option {
	return func(c *Client) {
		c.scheme = scheme
	}
}

// WithTimeout sets the timeout of the default HTTP client. It has no effect
// when WithHTTPClient is also given.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithClock sets the time source used to open signature windows.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// WithLogger sets the logger for request tracing.
func WithLogger(log logger.ILogger) Option {
	return func(c *Client) {
		c.logger = log.SubLogger("Transport")
	}
}

// WithAlgorithm selects the signature algorithm.
func WithAlgorithm(alg sign.Algorithm) Option {
	return func(c *Client) {
		c.signOpts = append(c.signOpts, sign.WithAlgorithm(alg))
	}
}

// New creates a Client for endpoint, a bare host[:port] that is also sent as
// the Host header.
func New(endpoint string, creds sign.Credentials, opts ...Option) (*Client, error) {
	if endpoint == "" {
		return nil, ErrMissingEndpoint
	}

	c := &Client{
		endpoint: endpoint,
		scheme:   "http",
		timeout:  defaultTimeout,
		now:      time.Now,
		logger:   logger.NewConsoleLogger(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}

	signer, err := sign.New(creds, c.signOpts...)
	if err != nil {
		return nil, err
	}
	c.signer = signer

	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}
	return c, nil
}

// Endpoint returns the configured host.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Create POSTs in to path. For FormatJSON the response is decoded into out
// when out is non-nil. For FormatProtobuf in must be a *model.LogGroupList
// and only the status is reported.
func (c *Client) Create(ctx context.Context, path string, format Format, in, out any) error {
	if format == FormatProtobuf {
		list, ok := in.(*model.LogGroupList)
		if !ok {
			return ErrFormatMismatch
		}
		body, err := list.Marshal()
		if err != nil {
			return fmt.Errorf("encoding log group list: %w", err)
		}
		if body == nil {
			body = []byte{}
		}
		_, err = c.do(ctx, http.MethodPost, path, format, body, false)
		return err
	}

	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding %s body: %w", path, err)
	}
	data, err := c.do(ctx, http.MethodPost, path, format, body, true)
	if err != nil {
		return err
	}
	return decode(path, format, data, out)
}

// Get fetches path and decodes the response into out. For FormatProtobuf
// out must be a *model.LogGroupList.
func (c *Client) Get(ctx context.Context, path string, format Format, out any) error {
	if format == FormatProtobuf {
		if _, ok := out.(*model.LogGroupList); !ok {
			return ErrFormatMismatch
		}
	}

	data, err := c.do(ctx, http.MethodGet, path, format, nil, false)
	if err != nil {
		return err
	}
	return decode(path, format, data, out)
}

// Update PUTs in to path as JSON.
func (c *Client) Update(ctx context.Context, path string, in any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding %s body: %w", path, err)
	}
	_, err = c.do(ctx, http.MethodPut, path, FormatJSON, body, true)
	return err
}

// Delete sends DELETE for path.
func (c *Client) Delete(ctx context.Context, path string) error {
	_, err := c.do(ctx, http.MethodDelete, path, FormatJSON, nil, false)
	return err
}

// do signs and sends one request and returns the response body of a 2xx reply.
func (c *Client) do(ctx context.Context, method, path string, format Format, body []byte, withMD5 bool) ([]byte, error) {
	u, err := url.Parse(c.scheme + "://" + c.endpoint + "/" + path)
	if err != nil {
		return nil, fmt.Errorf("building url for %s: %w", path, err)
	}

	headers := map[string]string{"Host": c.endpoint}
	if withMD5 {
		sum := md5.Sum(body)
		headers["Content-MD5"] = hex.EncodeToString(sum[:])
	}
	auth := c.signer.Sign(u, method, sign.NewWindow(c.now()), headers)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Host = c.endpoint
	req.Header.Set("Authorization", auth)
	if body != nil {
		req.Header.Set("Content-Type", format.ContentType())
	}
	if md5sum, ok := headers["Content-MD5"]; ok {
		req.Header.Set("Content-MD5", md5sum)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	elapsed := time.Since(start)
	metrics.TransportLatency.WithLabelValues(method).Observe(elapsed.Seconds())
	if err != nil {
		metrics.TransportRequests.WithLabelValues(method, "error").Inc()
		return nil, fmt.Errorf("cls: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	metrics.TransportRequests.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()
	c.logger.Debugf("cls request: method=%s, path=%s, status=%d, elapsed=%s", method, path, resp.StatusCode, elapsed)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newStatusError(method, path, resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("cls: reading %s response: %w", path, err)
	}
	return data, nil
}

func decode(path string, format Format, data []byte, out any) error {
	if out == nil || len(data) == 0 {
		return nil
	}

	if format == FormatProtobuf {
		list, ok := out.(*model.LogGroupList)
		if !ok {
			return ErrFormatMismatch
		}
		if err := list.Unmarshal(data); err != nil {
			return fmt.Errorf("decoding %s response: %w", path, err)
		}
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
