package xmlrpc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/marmos91/xdrproxy/internal/telemetry"
	"github.com/marmos91/xdrproxy/pkg/xlate/value"
)

// ContentType is sent with every XML-RPC request and response.
const ContentType = "text/xml"

// maxResponseSize bounds a response body read by the client.
const maxResponseSize = 16 << 20

// Client is an XML-RPC client.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient creates a client posting to url (e.g. http://127.0.0.1:8081/xlater).
func NewClient(url string) *Client {
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithTimeout returns a copy of the client using timeout for each request.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	return &Client{
		url:        c.url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// URL returns the endpoint the client posts to.
func (c *Client) URL() string {
	return c.url
}

// Call invokes method with params. A fault response is returned as a *Fault.
func (c *Client) Call(ctx context.Context, method string, params ...value.Value) (value.Value, error) {
	var body bytes.Buffer
	if err := EncodeCall(&body, method, params...); err != nil {
		return value.Nil(), fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &body)
	if err != nil {
		return value.Nil(), fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", ContentType)
	req.Header.Set("Accept", ContentType)
	telemetry.InjectHTTP(ctx, req.Header)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return value.Nil(), fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return value.Nil(), fmt.Errorf("unexpected HTTP status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	return DecodeResponse(io.LimitReader(resp.Body, maxResponseSize))
}

// SetDebugLevel calls system.setDebugLevel.
func (c *Client) SetDebugLevel(ctx context.Context, level int64) error {
	_, err := c.Call(ctx, "system.setDebugLevel", value.Int(level))
	return err
}

// DebugLevel calls system.getDebugLevel.
func (c *Client) DebugLevel(ctx context.Context) (int64, error) {
	v, err := c.Call(ctx, "system.getDebugLevel")
	if err != nil {
		return 0, err
	}
	n, ok := v.AsInt()
	if !ok {
		return 0, fmt.Errorf("system.getDebugLevel returned %s, want int", v.Kind())
	}
	return n, nil
}

// Xlate calls xdr.xlate with a request struct.
func (c *Client) Xlate(ctx context.Context, request value.Value) (value.Value, error) {
	return c.Call(ctx, "xdr.xlate", request)
}
