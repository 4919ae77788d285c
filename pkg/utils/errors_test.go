package utils

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"Nil", nil, "None"},
		{"Network", fmt.Errorf("%w: dial tcp", ErrNetwork), "Fetch_Network"},
		{"Redirects", fmt.Errorf("%w: 6 hops", ErrTooManyRedirects), "Fetch_TooManyRedirects"},
		{"Status404", fmt.Errorf("%w: status 404 Not Found", ErrBadStatus), "Fetch_HTTP404"},
		{"Status500", fmt.Errorf("%w: status 500 Internal Server Error", ErrBadStatus), "Fetch_BadStatus"},
		{"ContentType", fmt.Errorf("%w: image/png", ErrUnsupportedContentType), "Fetch_ContentType"},
		{"Language", fmt.Errorf("%w: de", ErrUnsupportedLanguage), "Fetch_Language"},
		{"TooLarge", ErrTooLarge, "Fetch_TooLarge"},
		{"Decode", ErrDecodeFailure, "Fetch_Decode"},
		{"Robots", ErrRobotsDisallowed, "Policy_Robots"},
		{"Recency", ErrRecentlyCrawled, "Policy_Recency"},
		{"MaxDepth", ErrMaxDepthExceeded, "Policy_MaxDepth"},
		{"BadURL", fmt.Errorf("%w: '::bogus'", ErrBadURL), "Input_BadURL"},
		{"Database", fmt.Errorf("%w: txn conflict", ErrDatabase), "Database_Other"},
		{"ContextCanceled", context.Canceled, "System_ContextCanceled"},
		{"Unknown", errors.New("something else"), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CategorizeError(tt.err); got != tt.expected {
				t.Errorf("CategorizeError(%v) = %q, want %q", tt.err, got, tt.expected)
			}
		})
	}
}

func TestIsPolicyDenial(t *testing.T) {
	if !IsPolicyDenial(fmt.Errorf("gate: %w", ErrRobotsDisallowed)) {
		t.Error("wrapped ErrRobotsDisallowed should be a policy denial")
	}
	if !IsPolicyDenial(ErrRecentlyCrawled) {
		t.Error("ErrRecentlyCrawled should be a policy denial")
	}
	if IsPolicyDenial(ErrNetwork) {
		t.Error("ErrNetwork is a failure, not a policy denial")
	}
	if IsPolicyDenial(nil) {
		t.Error("nil is not a policy denial")
	}
}
