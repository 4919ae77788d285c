package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"

	"webindex/pkg/utils"
)

// maxRobotsBytes bounds robots.txt bodies. Google's own documented cap
// is 500KiB; anything larger is truncated safely since robots files are
// line oriented.
const maxRobotsBytes = 512 * 1024

// RobotsProvider fetches the raw robots.txt text for a domain root.
type RobotsProvider interface {
	FetchRobots(ctx context.Context, domainRoot string) (string, error)
}

// HTTPRobotsProvider fetches robots.txt over the shared HTTP client.
// Unlike page fetches, it applies no content-type or language gates:
// whatever the server returns is handed to the parser.
type HTTPRobotsProvider struct {
	client    *http.Client
	userAgent string
	log       *logrus.Entry
}

// NewHTTPRobotsProvider creates an HTTPRobotsProvider.
func NewHTTPRobotsProvider(client *http.Client, userAgent string, logger *logrus.Entry) *HTTPRobotsProvider {
	return &HTTPRobotsProvider{client: client, userAgent: userAgent, log: logger}
}

// FetchRobots implements RobotsProvider. A 4xx response yields an empty
// ruleset (allow everything); network failures and 5xx responses are
// errors so the caller can retry.
func (p *HTTPRobotsProvider) FetchRobots(ctx context.Context, domainRoot string) (string, error) {
	robotsURL, err := url.JoinPath(domainRoot, "robots.txt")
	if err != nil {
		return "", fmt.Errorf("%w: building robots URL for '%s': %w", utils.ErrBadURL, domainRoot, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: creating request for '%s': %w", utils.ErrNetwork, robotsURL, err)
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: GET '%s': %w", utils.ErrNetwork, robotsURL, err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		p.log.WithFields(logrus.Fields{"url": robotsURL, "status": resp.StatusCode}).Debug("No robots.txt, allowing all")
		return "", nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: status %d for '%s'", utils.ErrBadStatus, resp.StatusCode, robotsURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		return "", fmt.Errorf("%w: reading '%s': %w", utils.ErrNetwork, robotsURL, err)
	}
	return string(body), nil
}

// IsAllowed reports whether the agent may fetch rawURL under the given
// robots.txt text. Malformed rules fail open.
func IsAllowed(robotsData, userAgent, rawURL string) bool {
	if robotsData == "" {
		return true
	}
	robots, err := robotstxt.FromString(robotsData)
	if err != nil {
		return true
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	path := parsed.Path
	if path == "" {
		path = "/"
	}
	return robots.TestAgent(path, userAgent)
}
