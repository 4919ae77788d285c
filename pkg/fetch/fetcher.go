package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"

	"webindex/pkg/config"
	"webindex/pkg/utils"
)

// Result is a successful fetch. FinalURL is the dereferenced URL after
// redirect following; it is the page's canonical identity from here on.
type Result struct {
	Body     []byte
	FinalURL *url.URL
}

// Fetcher retrieves a page over HTTP, rejecting non-HTML/plain-text
// content, unsupported languages and oversized bodies before returning
// bytes.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Result, error)
}

// HTTPFetcher implements Fetcher on the shared HTTP client. There is no
// retry logic: a transient failure loses the URL for this crawl cycle.
type HTTPFetcher struct {
	client       *http.Client
	userAgent    string
	maxBodyBytes int64
	langMatcher  language.Matcher
	log          *logrus.Entry
}

// NewHTTPFetcher creates an HTTPFetcher from the crawler configuration.
func NewHTTPFetcher(client *http.Client, cfg config.CrawlerConfig, logger *logrus.Entry) (*HTTPFetcher, error) {
	tags := make([]language.Tag, 0, len(cfg.Languages))
	for _, lang := range cfg.Languages {
		tag, err := language.Parse(lang)
		if err != nil {
			return nil, fmt.Errorf("parsing configured language '%s': %w", lang, err)
		}
		tags = append(tags, tag)
	}

	return &HTTPFetcher{
		client:       client,
		userAgent:    cfg.UserAgent,
		maxBodyBytes: cfg.MaxPageSizeBytes,
		langMatcher:  language.NewMatcher(tags),
		log:          logger,
	}, nil
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request for '%s': %w", utils.ErrNetwork, rawURL, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html, text/plain")

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, utils.ErrTooManyRedirects) {
			return nil, fmt.Errorf("%w: '%s'", utils.ErrTooManyRedirects, rawURL)
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: GET '%s': %w", utils.ErrNetwork, rawURL, err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d %s for '%s'", utils.ErrBadStatus, resp.StatusCode, resp.Status, rawURL)
	}

	if err := f.checkContentType(resp); err != nil {
		return nil, err
	}
	if err := f.checkLanguage(resp); err != nil {
		return nil, err
	}

	// +1 to detect exceeding the limit
	limited := io.LimitReader(resp.Body, f.maxBodyBytes+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body of '%s': %w", utils.ErrNetwork, rawURL, err)
	}
	if int64(len(body)) > f.maxBodyBytes {
		return nil, fmt.Errorf("%w: '%s' exceeds %d bytes", utils.ErrTooLarge, rawURL, f.maxBodyBytes)
	}

	if !utf8.Valid(body) {
		return nil, fmt.Errorf("%w: '%s'", utils.ErrDecodeFailure, rawURL)
	}

	finalURL := resp.Request.URL
	if finalURL.String() != rawURL {
		f.log.WithFields(logrus.Fields{"url": rawURL, "final_url": finalURL.String()}).Debug("URL redirected")
	}
	return &Result{Body: body, FinalURL: finalURL}, nil
}

func (f *HTTPFetcher) checkContentType(resp *http.Response) error {
	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if strings.HasPrefix(contentType, "text/html") ||
		strings.HasPrefix(contentType, "application/xhtml+xml") ||
		strings.HasPrefix(contentType, "text/plain") {
		return nil
	}
	return fmt.Errorf("%w: '%s'", utils.ErrUnsupportedContentType, resp.Header.Get("Content-Type"))
}

func (f *HTTPFetcher) checkLanguage(resp *http.Response) error {
	header := resp.Header.Get("Content-Language")
	if header == "" {
		return nil // No declaration, assume acceptable
	}

	var tags []language.Tag
	for _, part := range strings.Split(header, ",") {
		tag, err := language.Parse(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		tags = append(tags, tag)
	}
	if len(tags) == 0 {
		return nil // Unparseable declaration, assume acceptable
	}

	if _, _, conf := f.langMatcher.Match(tags...); conf == language.No {
		return fmt.Errorf("%w: '%s'", utils.ErrUnsupportedLanguage, header)
	}
	return nil
}
