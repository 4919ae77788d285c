package utils

import (
	"context"
	"errors"
	"net"
	"strings"
)

// --- Sentinel Errors for Categorization ---
var (
	// Fetch errors
	ErrNetwork                = errors.New("network failure")
	ErrTooManyRedirects       = errors.New("too many redirects")
	ErrBadStatus              = errors.New("bad HTTP status")
	ErrUnsupportedContentType = errors.New("unsupported content type")
	ErrUnsupportedLanguage    = errors.New("unsupported content language")
	ErrTooLarge               = errors.New("response body too large")
	ErrDecodeFailure          = errors.New("response body is not valid text")

	// Policy denials (silent skips, not failures)
	ErrRobotsDisallowed = errors.New("disallowed by robots.txt")
	ErrRecentlyCrawled  = errors.New("recently crawled, recrawl TTL not expired")
	ErrMaxDepthExceeded = errors.New("maximum crawl depth exceeded")

	// Input / infrastructure errors
	ErrBadURL           = errors.New("URL failed normalization")
	ErrDatabase         = errors.New("database error")
	ErrConfigValidation = errors.New("configuration validation error")
)

// CategorizeError maps an error to a predefined category string for logging.
func CategorizeError(err error) string {
	if err == nil {
		return "None"
	}

	switch {
	case errors.Is(err, ErrTooManyRedirects):
		return "Fetch_TooManyRedirects"
	case errors.Is(err, ErrBadStatus):
		errMsg := err.Error()
		if strings.Contains(errMsg, " 404") {
			return "Fetch_HTTP404"
		}
		if strings.Contains(errMsg, " 403") {
			return "Fetch_HTTP403"
		}
		if strings.Contains(errMsg, " 429") {
			return "Fetch_HTTP429"
		}
		return "Fetch_BadStatus"
	case errors.Is(err, ErrUnsupportedContentType):
		return "Fetch_ContentType"
	case errors.Is(err, ErrUnsupportedLanguage):
		return "Fetch_Language"
	case errors.Is(err, ErrTooLarge):
		return "Fetch_TooLarge"
	case errors.Is(err, ErrDecodeFailure):
		return "Fetch_Decode"
	case errors.Is(err, ErrNetwork):
		return "Fetch_Network"
	case errors.Is(err, ErrRobotsDisallowed):
		return "Policy_Robots"
	case errors.Is(err, ErrRecentlyCrawled):
		return "Policy_Recency"
	case errors.Is(err, ErrMaxDepthExceeded):
		return "Policy_MaxDepth"
	case errors.Is(err, ErrBadURL):
		return "Input_BadURL"
	case errors.Is(err, ErrDatabase):
		return "Database_Other"
	case errors.Is(err, ErrConfigValidation):
		return "Config_Validation"
	}

	// Context errors
	if errors.Is(err, context.Canceled) {
		return "System_ContextCanceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "System_ContextDeadlineExceeded"
	}

	// Raw network errors that escaped wrapping
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return "Network_Timeout"
		}
		return "Network_Other"
	}
	lowerErrMsg := strings.ToLower(err.Error())
	if strings.Contains(lowerErrMsg, "timeout") {
		return "Network_TimeoutGeneric"
	}
	if strings.Contains(lowerErrMsg, "connection refused") {
		return "Network_ConnectionRefused"
	}
	if strings.Contains(lowerErrMsg, "no such host") {
		return "Network_DNSLookup"
	}

	return "Unknown"
}

// IsPolicyDenial reports whether err is a policy decision rather than a
// failure. Policy denials are skipped silently by the scheduler.
func IsPolicyDenial(err error) bool {
	return errors.Is(err, ErrRobotsDisallowed) ||
		errors.Is(err, ErrRecentlyCrawled) ||
		errors.Is(err, ErrMaxDepthExceeded)
}
