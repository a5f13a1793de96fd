package portal

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// Client is the HTTP capability the fetch cycle needs from the portal:
// plain GETs and form-encoded POSTs sharing one cookie session, so the
// login cookie set by the portal carries over to the feed downloads.
type Client interface {
	Get(ctx context.Context, url string) (int, []byte, error)
	PostForm(ctx context.Context, url string, form url.Values) (int, []byte, error)
}

// ClientImpl talks to the real portal. The portal only answers requests that
// look like a browser, so every call carries the header set a Firefox session
// would send.
type ClientImpl struct {
	http    *http.Client
	origin  string
	referer string
}

// NewClient builds a portal client with a fresh cookie jar and a bounded
// per-request timeout, so a hung portal delays but never stalls a cycle.
func NewClient(loginURL string, timeout time.Duration) (*ClientImpl, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	parsed, err := url.Parse(loginURL)
	if err != nil {
		return nil, fmt.Errorf("invalid login URL %q: %w", loginURL, err)
	}
	return &ClientImpl{
		http: &http.Client{
			Jar:     jar,
			Timeout: timeout,
		},
		origin:  parsed.Scheme + "://" + parsed.Host,
		referer: loginURL,
	}, nil
}

func (c *ClientImpl) Get(ctx context.Context, target string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, nil, err
	}
	c.setBrowserHeaders(req)
	return c.do(req)
}

func (c *ClientImpl) PostForm(ctx context.Context, target string, form url.Values) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, nil, err
	}
	c.setBrowserHeaders(req)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *ClientImpl) do(req *http.Request) (int, []byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

func (c *ClientImpl) setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:142.0) Gecko/20100101 Firefox/142.0")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "fr,fr-FR;q=0.8,en-US;q=0.5,en;q=0.3")
	req.Header.Set("Origin", c.origin)
	req.Header.Set("Referer", c.referer)
	req.Header.Set("Upgrade-Insecure-Requests", "1")
}
