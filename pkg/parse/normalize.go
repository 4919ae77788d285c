package parse

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"webindex/pkg/utils"
)

// Normalize canonicalizes a URL string so that equivalent URLs collapse to
// one frontier key. Relative references are resolved against base (which
// may be nil for absolute inputs). The fragment and query are stripped,
// the scheme is forced to "http" (scheme differences must not fragment
// dedup identity), the host is lower-cased and default ports are removed.
// Returns utils.ErrBadURL if the input cannot be parsed, resolves to a
// non-http(s) scheme, or has no parseable host.
func Normalize(raw string, base *url.URL) (string, error) {
	var u *url.URL
	var err error
	if base != nil {
		u, err = base.Parse(raw)
	} else {
		u, err = url.Parse(raw)
	}
	if err != nil {
		return "", fmt.Errorf("%w: parsing '%s': %w", utils.ErrBadURL, raw, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		// Collapses to http below
	default:
		return "", fmt.Errorf("%w: unsupported scheme '%s' in '%s'", utils.ErrBadURL, u.Scheme, raw)
	}

	normalized := *u
	normalized.Scheme = "http"
	normalized.Host = strings.ToLower(normalized.Host)

	// Remove default ports
	host, port, splitErr := net.SplitHostPort(normalized.Host)
	if splitErr == nil && (port == "80" || port == "443") {
		normalized.Host = host
	}

	if normalized.Hostname() == "" {
		return "", fmt.Errorf("%w: no host in '%s'", utils.ErrBadURL, raw)
	}

	if normalized.Path == "" {
		normalized.Path = "/"
	} else if len(normalized.Path) > 1 && strings.HasSuffix(normalized.Path, "/") {
		normalized.Path = normalized.Path[:len(normalized.Path)-1]
	}

	normalized.Fragment = ""
	normalized.RawFragment = ""
	normalized.RawQuery = ""
	normalized.User = nil

	return normalized.String(), nil
}

// DomainRoot strips the path from a URL entirely, yielding the normalized
// bare-domain entry used when a crawl crosses to a new domain.
func DomainRoot(rawURL string) (string, error) {
	normalized, err := Normalize(rawURL, nil)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(normalized)
	if err != nil {
		return "", fmt.Errorf("%w: reparsing '%s': %w", utils.ErrBadURL, normalized, err)
	}
	root := &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}
	return root.String(), nil
}

// Host returns the hostname (without port) of an already-normalized URL,
// used for same-domain classification of discovered links.
func Host(normalizedURL string) (string, error) {
	u, err := url.Parse(normalizedURL)
	if err != nil {
		return "", fmt.Errorf("%w: parsing '%s': %w", utils.ErrBadURL, normalizedURL, err)
	}
	return u.Hostname(), nil
}
