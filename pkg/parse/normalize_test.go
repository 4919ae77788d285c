package parse

import (
	"errors"
	"net/url"
	"testing"

	"webindex/pkg/utils"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "SchemeForcedToHTTP",
			input:    "https://example.com/path",
			expected: "http://example.com/path",
		},
		{
			name:     "UppercaseSchemeAndHost",
			input:    "HTTPS://Example.COM/Path",
			expected: "http://example.com/Path", // Path case preserved
		},
		{
			name:     "FragmentStripped",
			input:    "http://example.com/page#section",
			expected: "http://example.com/page",
		},
		{
			name:     "QueryStripped",
			input:    "http://example.com/page?q=1&r=2",
			expected: "http://example.com/page",
		},
		{
			name:     "DefaultPort80Removed",
			input:    "http://example.com:80/path",
			expected: "http://example.com/path",
		},
		{
			name:     "Port443Removed",
			input:    "https://example.com:443/path",
			expected: "http://example.com/path",
		},
		{
			name:     "NonDefaultPortKept",
			input:    "http://example.com:8080/path",
			expected: "http://example.com:8080/path",
		},
		{
			name:     "EmptyPathBecomesRoot",
			input:    "http://example.com",
			expected: "http://example.com/",
		},
		{
			name:     "TrailingSlashRemoved",
			input:    "http://example.com/docs/",
			expected: "http://example.com/docs",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Normalize(tt.input, nil)
			if err != nil {
				t.Fatalf("Normalize(%q) error: %v", tt.input, err)
			}
			if result != tt.expected {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNormalizeIdempotence(t *testing.T) {
	inputs := []string{
		"https://Blog.IANA.org/docs/page/?q=1#frag",
		"http://example.com",
		"http://example.com:8080/a/b/",
		"https://sub.domain.example.org/x",
	}

	for _, input := range inputs {
		once, err := Normalize(input, nil)
		if err != nil {
			t.Fatalf("Normalize(%q) error: %v", input, err)
		}
		twice, err := Normalize(once, nil)
		if err != nil {
			t.Fatalf("Normalize(Normalize(%q)) error: %v", input, err)
		}
		if once != twice {
			t.Errorf("not idempotent: Normalize(%q) = %q, renormalized = %q", input, once, twice)
		}
	}
}

func TestNormalizeRelativeResolution(t *testing.T) {
	base, _ := url.Parse("http://example.com/docs/guide")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"RootRelative", "/about", "http://example.com/about"},
		{"PathRelative", "intro", "http://example.com/docs/intro"},
		{"ProtocolRelative", "//other.com/x", "http://other.com/x"},
		{"AbsoluteOverridesBase", "https://elsewhere.org/y", "http://elsewhere.org/y"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Normalize(tt.input, base)
			if err != nil {
				t.Fatalf("Normalize(%q, base) error: %v", tt.input, err)
			}
			if result != tt.expected {
				t.Errorf("Normalize(%q, base) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNormalizeFailures(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"MailtoScheme", "mailto:someone@example.com"},
		{"JavascriptScheme", "javascript:void(0)"},
		{"NoHost", "/relative/without/base"},
		{"Garbage", "http://exa mple.com/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.input, nil)
			if err == nil {
				t.Fatalf("Normalize(%q) succeeded, want error", tt.input)
			}
			if !errors.Is(err, utils.ErrBadURL) {
				t.Errorf("Normalize(%q) error = %v, want ErrBadURL", tt.input, err)
			}
		})
	}
}

func TestDomainRoot(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"https://blog.iana.org/docs/page?x=1", "http://blog.iana.org/"},
		{"http://example.com/", "http://example.com/"},
		{"http://example.com:8080/deep/path", "http://example.com:8080/"},
	}

	for _, tt := range tests {
		result, err := DomainRoot(tt.input)
		if err != nil {
			t.Fatalf("DomainRoot(%q) error: %v", tt.input, err)
		}
		if result != tt.expected {
			t.Errorf("DomainRoot(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestHost(t *testing.T) {
	host, err := Host("http://blog.iana.org:8080/docs")
	if err != nil {
		t.Fatalf("Host error: %v", err)
	}
	if host != "blog.iana.org" {
		t.Errorf("Host = %q, want %q", host, "blog.iana.org")
	}
}
