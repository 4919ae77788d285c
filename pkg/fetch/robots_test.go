package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webindex/pkg/config"
	"webindex/pkg/utils"
)

func testRobotsProvider(t *testing.T) *HTTPRobotsProvider {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	client := NewClient(config.HTTPClientConfig{Timeout: 5 * time.Second}, logger)
	return NewHTTPRobotsProvider(client, "webindex-test/1.0", logrus.NewEntry(logger))
}

func TestFetchRobotsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/robots.txt", r.URL.Path)
		fmt.Fprint(w, "User-agent: *\nDisallow: /private/\n")
	}))
	defer srv.Close()

	p := testRobotsProvider(t)
	data, err := p.FetchRobots(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	assert.Contains(t, data, "Disallow: /private/")
}

func TestFetchRobotsMissingAllowsAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	p := testRobotsProvider(t)
	data, err := p.FetchRobots(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	assert.Empty(t, data)
	assert.True(t, IsAllowed(data, "anybody", srv.URL+"/anything"))
}

func TestFetchRobotsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := testRobotsProvider(t)
	_, err := p.FetchRobots(context.Background(), srv.URL+"/")
	assert.ErrorIs(t, err, utils.ErrBadStatus)
}

func TestIsAllowed(t *testing.T) {
	robots := "User-agent: *\nDisallow: /private/\n\nUser-agent: webindex\nDisallow: /drafts/\n"

	tests := []struct {
		name  string
		agent string
		url   string
		want  bool
	}{
		{"open path", "webindex/1.0", "http://a.com/docs/page", true},
		{"agent-specific block", "webindex/1.0", "http://a.com/drafts/wip", false},
		{"wildcard block for others", "other-bot", "http://a.com/private/x", false},
		{"root path", "other-bot", "http://a.com/", true},
		{"empty path treated as root", "other-bot", "http://a.com", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsAllowed(robots, tc.agent, tc.url))
		})
	}
}

func TestIsAllowedFailsOpen(t *testing.T) {
	assert.True(t, IsAllowed("", "webindex", "http://a.com/x"))
	assert.True(t, IsAllowed("\x00garbage\xffrules", "webindex", "http://a.com/x"))
}
