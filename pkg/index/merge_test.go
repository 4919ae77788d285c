package index

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webindex/pkg/models"
	"webindex/pkg/storage"
)

func TestMergeWritesMetadataAndPostings(t *testing.T) {
	store := storage.NewMemoryStore()
	page := models.IndexedPage{
		URL:         "http://a.com/p",
		Title:       "A Page",
		Description: "About things.",
		Words:       map[string]uint64{"fox": 7, "lazy": 3},
	}

	require.NoError(t, Merge(store, page))

	title, description, ok := store.Metadata("http://a.com/p")
	require.True(t, ok)
	assert.Equal(t, "A Page", title)
	assert.Equal(t, "About things.", description)
	assert.Equal(t, map[string]uint64{"http://a.com/p": 7}, store.Postings("fox"))
}

func TestMergeReplacesStalePostings(t *testing.T) {
	store := storage.NewMemoryStore()
	url := "http://a.com/p"

	require.NoError(t, Merge(store, models.IndexedPage{
		URL: url, Words: map[string]uint64{"old": 5, "kept": 2},
	}))
	require.NoError(t, Merge(store, models.IndexedPage{
		URL: url, Words: map[string]uint64{"kept": 4, "new": 6},
	}))

	assert.Empty(t, store.Postings("old"))
	assert.Equal(t, map[string]uint64{url: 4}, store.Postings("kept"))
	assert.Equal(t, map[string]uint64{url: 6}, store.Postings("new"))
}

func TestMergeIsIdempotent(t *testing.T) {
	store := storage.NewMemoryStore()
	page := models.IndexedPage{
		URL:   "http://a.com/p",
		Title: "A Page",
		Words: map[string]uint64{"fox": 7},
	}

	require.NoError(t, Merge(store, page))
	require.NoError(t, Merge(store, page))

	assert.Equal(t, map[string]uint64{"http://a.com/p": 7}, store.Postings("fox"))
}

func TestMergeTruncatesFields(t *testing.T) {
	store := storage.NewMemoryStore()
	page := models.IndexedPage{
		URL:         "http://a.com/p",
		Title:       strings.Repeat("t", 600),
		Description: strings.Repeat("d", 2000),
		Words:       map[string]uint64{"fox": 7},
	}

	require.NoError(t, Merge(store, page))

	title, description, ok := store.Metadata("http://a.com/p")
	require.True(t, ok)
	assert.Len(t, title, maxTitleRunes)
	assert.Len(t, description, maxDescriptionRunes)
}

func TestServiceDrainsPendingQueue(t *testing.T) {
	store := storage.NewMemoryStore()
	require.NoError(t, store.PushPendingPage(&models.RawCrawledPage{
		URL:   "http://a.com/p",
		Title: "A Page",
		Words: []models.ExtractedWord{{Word: "fox", Origin: "title", Count: 1}},
	}))
	require.NoError(t, store.PushPendingPage(&models.RawCrawledPage{
		URL:   "http://b.com/q",
		Words: []models.ExtractedWord{{Word: "lazy", Origin: "h1", Count: 2}},
	}))

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	svc := NewService(store, time.Hour, logrus.NewEntry(logger))

	processed, err := svc.drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, processed)

	remaining, err := store.CountPendingPages()
	require.NoError(t, err)
	assert.Zero(t, remaining)
	assert.NotEmpty(t, store.Postings("fox"))
	assert.NotEmpty(t, store.Postings("lazy"))
}

func TestServiceRunStopsOnCancel(t *testing.T) {
	store := storage.NewMemoryStore()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	svc := NewService(store, time.Millisecond, logrus.NewEntry(logger))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
