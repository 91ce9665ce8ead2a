// Package fetch loads pages for the scrapers, over plain HTTP, through a
// headless browser session, or HTTP first with a browser fallback.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/AET-DevOps25/team-stratton-oakmont/internal/module"
)

// UserAgent is sent by both the HTTP client and the browser.
const UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/138.0.0.0 Safari/537.36"

// minContentBytes is the trimmed size below which a page is assumed to be a
// script-rendered shell.
const minContentBytes = 1000

// ErrSessionDead is returned once the browser session stops responding.
// Callers treat it as the end of the batch, not as a per-item failure.
var ErrSessionDead = errors.New("browser session is not alive")

// Via names the transport that produced a page.
type Via string

const (
	ViaHTTP    Via = "http"
	ViaBrowser Via = "browser"
)

// Page is a loaded document.
type Page struct {
	URL  string
	HTML string
	Via  Via
}

// Source loads a page by URL.
type Source interface {
	Fetch(ctx context.Context, pageURL string) (Page, error)
	Close() error
}

// StatusError is a non-success HTTP response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d: %s", e.Code, http.StatusText(e.Code))
}

// Retryable reports whether another attempt at the same page may succeed.
// Client errors other than 408 and 429 are final; browser error pages,
// timeouts, transport failures and 5xx are worth retrying.
func Retryable(err error) bool {
	if errors.Is(err, ErrSessionDead) || errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500 || se.Code == http.StatusTooManyRequests || se.Code == http.StatusRequestTimeout
	}
	return true
}

// HTTPSource fetches pages with a plain HTTP client.
type HTTPSource struct {
	client *http.Client
}

// NewHTTPSource creates an HTTP source with a redirect cap.
func NewHTTPSource(timeout time.Duration) *HTTPSource {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &HTTPSource{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

func (s *HTTPSource) Fetch(ctx context.Context, pageURL string) (Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return Page{}, err
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9,de;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("fetching %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return Page{}, &StatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Page{}, fmt.Errorf("reading %s: %w", pageURL, err)
	}
	return Page{URL: pageURL, HTML: string(body), Via: ViaHTTP}, nil
}

func (s *HTTPSource) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// NeedsJavaScript reports whether html looks like a page that only renders
// in a browser.
func NeedsJavaScript(html string) bool {
	lower := strings.ToLower(html)
	switch {
	case module.HasBrowserError(lower):
		return true
	case strings.Contains(lower, "javascript") && strings.Contains(lower, "required"):
		return true
	case len(strings.TrimSpace(html)) < minContentBytes:
		return true
	case strings.Contains(lower, "<noscript>"):
		return true
	}
	return false
}

// HybridSource tries HTTP first and switches to the browser when the
// response fails or needs JavaScript. Hosts listed in BrowserHosts go to the
// browser directly.
type HybridSource struct {
	HTTP         Source
	Browser      Source
	BrowserHosts []string
}

func (s *HybridSource) Fetch(ctx context.Context, pageURL string) (Page, error) {
	if !s.browserOnly(pageURL) {
		page, err := s.HTTP.Fetch(ctx, pageURL)
		if err == nil && !NeedsJavaScript(page.HTML) {
			return page, nil
		}
	}
	return s.Browser.Fetch(ctx, pageURL)
}

func (s *HybridSource) browserOnly(pageURL string) bool {
	u, err := url.Parse(pageURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range s.BrowserHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

func (s *HybridSource) Close() error {
	return errors.Join(s.HTTP.Close(), s.Browser.Close())
}
