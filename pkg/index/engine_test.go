package index

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"webindex/pkg/models"
)

func TestIndexCombinesTitleAndBodyScores(t *testing.T) {
	// count 3 in body gives len(3)=2; count 1 in title gives len(30)=5.
	page := models.RawCrawledPage{
		URL: "http://example.com/",
		Words: []models.ExtractedWord{
			{Word: "fox", Origin: "p", Count: 3},
			{Word: "fox", Origin: "title", Count: 1},
		},
	}

	indexed := Index(page)
	assert.Equal(t, uint64(7), indexed.Words["fox"])
}

func TestIndexDropsStopWords(t *testing.T) {
	page := models.RawCrawledPage{
		URL: "http://example.com/",
		Words: []models.ExtractedWord{
			{Word: "the", Origin: "title", Count: 10},
			{Word: "and", Origin: "h1", Count: 5},
			{Word: "fox", Origin: "h1", Count: 5},
		},
	}

	indexed := Index(page)
	assert.NotContains(t, indexed.Words, "the")
	assert.NotContains(t, indexed.Words, "and")
	assert.Contains(t, indexed.Words, "fox")
}

func TestIndexCutoffDropsWeakWords(t *testing.T) {
	// Plain-text scores: count 2 gives len(2)=2 (at the cutoff, dropped),
	// count 4 gives len(4)=3 (survives).
	page := models.RawCrawledPage{
		URL: "http://example.com/",
		Words: []models.ExtractedWord{
			{Word: "once", Origin: "p", Count: 1},
			{Word: "twice", Origin: "p", Count: 2},
			{Word: "often", Origin: "p", Count: 4},
		},
	}

	indexed := Index(page)
	assert.NotContains(t, indexed.Words, "once")
	assert.NotContains(t, indexed.Words, "twice")
	assert.Equal(t, uint64(3), indexed.Words["often"])
}

func TestIndexCutoffPrecedesURLBoost(t *testing.T) {
	// "docs" appears once in plain text (score 1), which is cut before
	// boosts; the path boost then re-inserts it at exactly 5, with no
	// trace of the organic score.
	page := models.RawCrawledPage{
		URL: "http://example.com/docs",
		Words: []models.ExtractedWord{
			{Word: "docs", Origin: "p", Count: 1},
		},
	}

	indexed := Index(page)
	assert.Equal(t, uint64(5), indexed.Words["docs"])
}

func TestIndexBoostsInsertAbsentTokens(t *testing.T) {
	page := models.RawCrawledPage{
		URL:   "http://blog.iana.org/docs",
		Words: nil,
	}

	indexed := Index(page)
	assert.Equal(t, map[string]uint64{
		"org":  15,
		"iana": 20,
		"blog": 10,
		"docs": 5,
	}, indexed.Words)
}

func TestIndexURLBoosts(t *testing.T) {
	page := models.RawCrawledPage{
		URL: "http://blog.iana.org/docs/page",
		Words: []models.ExtractedWord{
			{Word: "org", Origin: "p", Count: 4},
			{Word: "iana", Origin: "p", Count: 4},
			{Word: "blog", Origin: "p", Count: 4},
			{Word: "docs", Origin: "p", Count: 4},
			{Word: "page", Origin: "p", Count: 4},
			{Word: "other", Origin: "p", Count: 4},
		},
	}

	indexed := Index(page)
	base := uint64(3) // len(4) for each word before boosts
	assert.Equal(t, base+15, indexed.Words["org"])
	assert.Equal(t, base+20, indexed.Words["iana"])
	assert.Equal(t, base+10, indexed.Words["blog"])
	assert.Equal(t, base+5, indexed.Words["docs"])
	assert.Equal(t, base+5, indexed.Words["page"])
	assert.Equal(t, base, indexed.Words["other"])
}

func TestIndexBareHostScoresAsDomain(t *testing.T) {
	page := models.RawCrawledPage{
		URL: "http://localhost/",
		Words: []models.ExtractedWord{
			{Word: "localhost", Origin: "p", Count: 4},
		},
	}

	indexed := Index(page)
	assert.Equal(t, uint64(3+20), indexed.Words["localhost"])
}

func TestIndexDeepSubdomains(t *testing.T) {
	page := models.RawCrawledPage{
		URL: "http://a.b.example.com/",
		Words: []models.ExtractedWord{
			{Word: "a", Origin: "h1", Count: 1},
			{Word: "b", Origin: "h1", Count: 1},
		},
	}

	indexed := Index(page)
	// "a" is a stop word, so its heading occurrence is filtered; only
	// the subdomain boost remains.
	assert.Equal(t, uint64(10), indexed.Words["a"])
	assert.Equal(t, uint64(5+10), indexed.Words["b"])
}

func TestIndexIsDeterministic(t *testing.T) {
	page := models.RawCrawledPage{
		URL: "http://blog.iana.org/docs/page",
		Words: []models.ExtractedWord{
			{Word: "fox", Origin: "title", Count: 1},
			{Word: "fox", Origin: "p", Count: 3},
			{Word: "iana", Origin: "h2", Count: 4},
		},
	}

	first := Index(page)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first.Words, Index(page).Words)
	}
}

func TestOriginScoreTable(t *testing.T) {
	tests := []struct {
		name string
		word models.ExtractedWord
		want uint64
	}{
		{"title multiplier", models.ExtractedWord{Word: "x", Origin: "title", Count: 1}, 5},  // len(30)
		{"h1 multiplier", models.ExtractedWord{Word: "x", Origin: "h1", Count: 1}, 5},        // len(20)
		{"anchor multiplier", models.ExtractedWord{Word: "x", Origin: "a", Count: 1}, 3},     // len(5)
		{"plain single", models.ExtractedWord{Word: "x", Origin: "p", Count: 1}, 1},          // len(1)
		{"plain repeated", models.ExtractedWord{Word: "x", Origin: "div", Count: 100}, 7},    // len(100)
		{"unknown origin defaults", models.ExtractedWord{Word: "x", Origin: "q", Count: 8}, 4}, // len(8)
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, originScore(tc.word))
		})
	}
}
