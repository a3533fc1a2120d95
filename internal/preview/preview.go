// Package preview fetches a search result's page and extracts its readable text.
package preview

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	nurl "net/url"
	"regexp"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/go-shiori/go-readability"
	"go.uber.org/zap"

	"github.com/yangwenmai/storyverse/internal/model"
)

const (
	// DefaultMaxRunes caps the preview text.
	DefaultMaxRunes = 2000
	maxBodySize     = 5 * 1024 * 1024
	userAgent       = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Preview is the readable part of a page.
type Preview struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Byline      string `json:"byline,omitempty"`
	Excerpt     string `json:"excerpt,omitempty"`
	Text        string `json:"text"`
	PublishedAt string `json:"published_at,omitempty"`
	WordCount   int    `json:"word_count"`
	Truncated   bool   `json:"truncated"`
}

// Fetcher downloads pages and runs readability over them. Fetches are not
// retried. Unless WithPrivateAddresses is given, connections to loopback,
// private, link-local, multicast and unspecified addresses are refused at
// dial time, which also covers redirects and names resolving to them.
type Fetcher struct {
	client       *http.Client
	maxRunes     int
	allowPrivate bool
	logger       *zap.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithPrivateAddresses lets the fetcher reach non-public addresses.
func WithPrivateAddresses() Option {
	return func(f *Fetcher) { f.allowPrivate = true }
}

// NewFetcher creates a fetcher. maxRunes <= 0 uses DefaultMaxRunes.
func NewFetcher(maxRunes int, logger *zap.Logger, opts ...Option) *Fetcher {
	if maxRunes <= 0 {
		maxRunes = DefaultMaxRunes
	}
	f := &Fetcher{
		maxRunes: maxRunes,
		logger:   logger.Named("preview"),
	}
	for _, opt := range opts {
		opt(f)
	}

	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	if !f.allowPrivate {
		dialer.Control = publicOnly
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	// A proxy would be the only address the guard sees.
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext
	f.client = &http.Client{Timeout: 30 * time.Second, Transport: transport}
	return f
}

// publicOnly refuses connections to addresses that are not publicly routable.
func publicOnly(network, address string, _ syscall.RawConn) error {
	ap, err := netip.ParseAddrPort(address)
	if err != nil {
		return fmt.Errorf("dial %s %s: %w", network, address, model.ErrInvalidInput)
	}
	if !isPublic(ap.Addr()) {
		return fmt.Errorf("dial %s: address %s is not public: %w", network, ap.Addr(), model.ErrInvalidInput)
	}
	return nil
}

func isPublic(addr netip.Addr) bool {
	addr = addr.Unmap()
	return addr.IsValid() &&
		!addr.IsLoopback() &&
		!addr.IsPrivate() &&
		!addr.IsLinkLocalUnicast() &&
		!addr.IsLinkLocalMulticast() &&
		!addr.IsInterfaceLocalMulticast() &&
		!addr.IsMulticast() &&
		!addr.IsUnspecified()
}

// Fetch returns a preview of the page at rawURL. Only http and https URLs
// are accepted.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Preview, error) {
	u, err := nurl.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("preview url %q: %w", rawURL, model.ErrInvalidInput)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en-US;q=0.8,en;q=0.7")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, u)
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, maxBodySize), u)
	if err != nil {
		return nil, fmt.Errorf("readability: %w", err)
	}

	text := normalizeText(article.TextContent)
	p := &Preview{
		URL:       u.String(),
		Title:     strings.TrimSpace(article.Title),
		Byline:    strings.TrimSpace(article.Byline),
		Excerpt:   normalizeText(article.Excerpt),
		WordCount: len(strings.Fields(text)),
	}
	if utf8.RuneCountInString(text) > f.maxRunes {
		text = string([]rune(text)[:f.maxRunes])
		p.Truncated = true
	}
	p.Text = text
	if article.PublishedTime != nil && !article.PublishedTime.IsZero() {
		p.PublishedAt = article.PublishedTime.Format(time.RFC3339)
	}

	f.logger.Debug("preview", zap.String("url", p.URL), zap.Int("words", p.WordCount), zap.Bool("truncated", p.Truncated))
	return p, nil
}

var multiSpace = regexp.MustCompile(`[ \t]+`)
var multiNewline = regexp.MustCompile(`\n{3,}`)

func normalizeText(s string) string {
	s = strings.TrimSpace(s)
	s = multiSpace.ReplaceAllString(s, " ")
	s = multiNewline.ReplaceAllString(s, "\n\n")
	return s
}
