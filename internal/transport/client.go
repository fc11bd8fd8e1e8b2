package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"resty.dev/v3"

	"github.com/specialistvlad/simgridgo/internal/ctxlog"
)

const (
	// DefaultTimeout bounds a single request, not a whole poll session.
	DefaultTimeout = 30 * time.Second

	headerRequestID = "X-Request-ID"
)

// Doer is the contract the rest of the SDK depends on. *Client implements it;
// tests substitute their own.
type Doer interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

// Config holds everything needed to talk to one service endpoint.
type Config struct {
	BaseURL   string
	Token     string
	UserAgent string
	Timeout   time.Duration
	Encoding  Encoding
	Gzip      bool
}

// Request describes a single call. Body is encoded with Encoding, falling back
// to the client's configured encoding when empty.
type Request struct {
	Method   string
	Route    string
	Body     any
	Encoding Encoding
}

// Response is a fully-read 2xx response.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return errors.New("empty response body")
	}
	return decode(r.ContentType, r.Body, v)
}

// Client is a resty-backed Doer. It is safe for concurrent use.
type Client struct {
	http     *resty.Client
	encoding Encoding
	gzip     bool
}

// New creates a Client for the given configuration.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("transport: base URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Encoding == "" {
		cfg.Encoding = EncodingJSON
	}

	rc := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetTransport(&http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		})
	if cfg.UserAgent != "" {
		rc.SetHeader("User-Agent", cfg.UserAgent)
	}
	if cfg.Token != "" {
		rc.SetAuthToken(cfg.Token)
	}

	return &Client{http: rc, encoding: cfg.Encoding, gzip: cfg.Gzip}, nil
}

// Close releases idle connections held by the client.
func (c *Client) Close() error {
	return c.http.Close()
}

// Do performs one request. Any non-2xx response or connection failure is
// returned as *Error.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	enc := req.Encoding
	if enc == "" {
		enc = c.encoding
	}
	requestID := uuid.NewString()
	logger := ctxlog.FromContext(ctx).With("method", req.Method, "route", req.Route, "request_id", requestID)

	r := c.http.R().
		SetContext(ctx).
		SetHeader(headerRequestID, requestID).
		SetHeader("Accept", enc.ContentType())

	if req.Body != nil {
		payload, err := enc.marshal(req.Body)
		if err != nil {
			return nil, err
		}
		if c.gzip {
			if payload, err = compress(payload); err != nil {
				return nil, err
			}
			r.SetHeader("Content-Encoding", "gzip")
		}
		r.SetHeader("Content-Type", enc.ContentType()).SetBody(payload)
	}

	logger.Debug("Sending request.")
	res, err := r.Execute(req.Method, req.Route)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Debug("Request failed before a response was received.", "error", err)
		return nil, &Error{Kind: KindOther, Message: fmt.Sprintf("%s %s failed", req.Method, req.Route), Err: err}
	}

	body := res.Bytes()
	code := res.StatusCode()
	logger.Debug("Received response.", "status", code, "bytes", len(body))

	if code < 200 || code > 299 {
		return nil, newStatusError(code, res.Status(), body)
	}
	return &Response{
		StatusCode:  code,
		ContentType: res.Header().Get("Content-Type"),
		Body:        body,
	}, nil
}

var _ Doer = (*Client)(nil)
