package index

import (
	"math/bits"
	"net/url"
	"strings"
	"unicode"

	"webindex/pkg/models"
)

// Per-origin count multipliers. Words in more prominent elements are
// worth more before the log compression step.
var originMultipliers = map[string]uint64{
	"title": 30,
	"h1":    20,
	"h2":    18,
	"h3":    16,
	"h4":    14,
	"h5":    12,
	"h6":    10,
	"a":     5,
}

const defaultMultiplier = 1

// URL-component bonuses added to words that also appear in the page's
// own address.
const (
	tldBoost       = 15
	domainBoost    = 20
	subdomainBoost = 10
	pathBoost      = 5
)

// scoreCutoff is the noise floor: words whose summed organic score is
// at or below it are dropped before URL boosts apply.
const scoreCutoff = 2

// Index turns one raw crawled page into its scored form. It is a pure
// computation: the same page always yields the same scores.
func Index(page models.RawCrawledPage) models.IndexedPage {
	// Sum of log-compressed per-origin scores for each word.
	scores := make(map[string]uint64)
	for _, extracted := range page.Words {
		if IsStopWord(extracted.Word) {
			continue
		}
		scores[extracted.Word] += originScore(extracted)
	}

	for word, score := range scores {
		if score <= scoreCutoff {
			delete(scores, word)
		}
	}

	// Boosts merge additively, inserting tokens that had no organic
	// score (or whose organic score was cut).
	for word, boost := range urlBoosts(page.URL) {
		scores[word] += boost
	}

	return models.IndexedPage{
		URL:         page.URL,
		Title:       page.Title,
		Description: page.Description,
		Words:       scores,
	}
}

// originScore is floor(log2(count * multiplier)) + 1, so repetition
// shows diminishing returns while prominent placement still dominates.
func originScore(word models.ExtractedWord) uint64 {
	multiplier, ok := originMultipliers[word.Origin]
	if !ok {
		multiplier = defaultMultiplier
	}
	weighted := word.Count * multiplier
	if weighted == 0 {
		return 0
	}
	return uint64(bits.Len64(weighted))
}

// urlBoosts maps each word occurring in the page URL to its summed
// bonus. A host like "blog.iana.org" contributes org as TLD, iana as
// domain, and blog as subdomain; each path segment adds a flat bonus.
func urlBoosts(rawURL string) map[string]uint64 {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}

	boosts := make(map[string]uint64)
	labels := strings.Split(parsed.Hostname(), ".")
	switch {
	case len(labels) == 1:
		// Bare hosts score as the domain.
		addBoost(boosts, labels[0], domainBoost)
	case len(labels) >= 2:
		addBoost(boosts, labels[len(labels)-1], tldBoost)
		addBoost(boosts, labels[len(labels)-2], domainBoost)
		for _, label := range labels[:len(labels)-2] {
			addBoost(boosts, label, subdomainBoost)
		}
	}

	for _, segment := range splitSegments(parsed.Path) {
		addBoost(boosts, segment, pathBoost)
	}
	return boosts
}

func addBoost(boosts map[string]uint64, token string, amount uint64) {
	token = strings.ToLower(token)
	if token == "" {
		return
	}
	boosts[token] += amount
}

// splitSegments breaks a URL path into lowercase alphanumeric runs, so
// "/getting-started/ch1" yields getting, started, ch1.
func splitSegments(path string) []string {
	return strings.FieldsFunc(strings.ToLower(path), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
