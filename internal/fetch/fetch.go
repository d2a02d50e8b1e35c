// Package fetch issues outbound requests to the origin with a browser-like header profile
package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/alvarorichard/kaistream/internal/util"
)

// maxBodySize caps how much of a response is read before parsing
const maxBodySize = 8 << 20

// Kind classifies a fetch failure
type Kind int

const (
	KindTransport Kind = iota
	KindTimeout
	KindStatus
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindStatus:
		return "non-2xx"
	default:
		return "transport"
	}
}

// Error is the only error Fetch returns
type Error struct {
	Kind       Kind
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.Kind == KindStatus {
		return fmt.Sprintf("fetch %s: server returned %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is a fetch Error of the given kind
func IsKind(err error, kind Kind) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == kind
}

// Option adjusts a single request
type Option func(*http.Request)

// WithHeader sets (or overrides) one request header
func WithHeader(key, value string) Option {
	return func(req *http.Request) {
		req.Header.Set(key, value)
	}
}

// AsXHR marks the request as an AJAX call originating from referer
func AsXHR(referer string) Option {
	return func(req *http.Request) {
		req.Header.Set("X-Requested-With", "XMLHttpRequest")
		req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
		if referer != "" {
			req.Header.Set("Referer", referer)
		}
	}
}

// Fetcher retrieves raw markup from the origin
type Fetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// Config holds the fetcher's tunables
type Config struct {
	Client    *http.Client
	UserAgent string
	// RequestsPerSecond bounds the outbound request rate; zero disables limiting
	RequestsPerSecond float64
	Burst             int
}

// New creates a fetcher. A nil client falls back to util.NewOriginClient.
func New(cfg Config) *Fetcher {
	client := cfg.Client
	if client == nil {
		client = util.NewOriginClient(0)
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = util.DefaultUserAgent
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Fetcher{client: client, limiter: limiter, userAgent: userAgent}
}

// decorateRequest applies the fixed browser header profile
func (f *Fetcher) decorateRequest(req *http.Request) {
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Connection", "keep-alive")
}

// Fetch performs a GET request and returns the response body.
// Every failure is reported as *Error.
func (f *Fetcher) Fetch(ctx context.Context, url string, opts ...Option) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", classify(url, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &Error{Kind: KindTransport, URL: url, Err: err}
	}

	f.decorateRequest(req)
	for _, opt := range opts {
		opt(req)
	}

	util.Debug("Fetching origin page", "url", url, "xhr", req.Header.Get("X-Requested-With") != "")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", classify(url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return "", &Error{Kind: KindStatus, URL: url, StatusCode: resp.StatusCode, Err: errors.New(resp.Status)}
	}

	body, truncated, err := readBody(resp.Body, maxBodySize)
	if err != nil {
		return "", classify(url, err)
	}
	if truncated {
		util.Warn("Origin response exceeded size limit, parsing truncated body", "url", url, "limit_bytes", maxBodySize)
	}

	return string(body), nil
}

// readBody reads at most limit bytes of r and reports whether more were available
func readBody(r io.Reader, limit int64) ([]byte, bool, error) {
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(body)) > limit {
		return body[:limit], true, nil
	}
	return body, false, nil
}

// FetchDocument fetches url and parses the body as HTML
func (f *Fetcher) FetchDocument(ctx context.Context, url string, opts ...Option) (*goquery.Document, error) {
	body, err := f.Fetch(ctx, url, opts...)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: KindTransport, URL: url, Err: errors.Wrap(err, "failed to parse HTML")}
	}
	return doc, nil
}

func classify(url string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, URL: url, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, URL: url, Err: err}
	}
	return &Error{Kind: KindTransport, URL: url, Err: err}
}
