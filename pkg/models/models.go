package models

import "time"

// UnownedWorker is the owner value for frontier entries in the global pool.
// Any worker that reaches an empty owned pool may pop and claim them.
const UnownedWorker = ""

// FrontierEntry is a queued-but-not-yet-fetched URL. The normalized URL is
// the unique key; an entry is deleted from the frontier when popped.
type FrontierEntry struct {
	URL   string `json:"url"`   // Normalized form
	Depth int    `json:"depth"` // 0 for seeds and cross-domain roots
	Owner string `json:"owner"` // Worker ID, or UnownedWorker
}

// DedupStatus is the recrawl eligibility of a URL in the dedup ledger.
type DedupStatus string

const (
	DedupNeverSeen DedupStatus = "never_seen" // No ledger record
	DedupExpired   DedupStatus = "expired"    // Record exists, recrawl_after has passed
	DedupActive    DedupStatus = "active"     // Record exists, recrawl_after is in the future
)

// String implements fmt.Stringer for logging
func (s DedupStatus) String() string { return string(s) }

// Crawlable reports whether a URL in this state may be fetched again.
func (s DedupStatus) Crawlable() bool { return s != DedupActive }

// ExtractedWord is one (word, origin) aggregate within a single page.
// Origin is the structural tag the word was found under ("title",
// "h1".."h6", "a", "body", ...).
type ExtractedWord struct {
	Word   string `json:"word"`
	Origin string `json:"origin"`
	Count  uint64 `json:"count"`
}

// PageContent is the ephemeral product of fetch+parse for one crawl
// iteration. Links hold raw href values, unresolved.
type PageContent struct {
	Title       string
	Description string
	Words       []ExtractedWord
	Links       []string
}

// RawCrawledPage is a fetched, extracted page awaiting indexing. URL is
// the dereferenced (post-redirect) URL, which is the page's canonical
// identity from fetch time onward.
type RawCrawledPage struct {
	URL         string          `json:"url"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Words       []ExtractedWord `json:"words"`
	FetchedAt   time.Time       `json:"fetched_at"`
}

// IndexedPage is the unit written to persistent storage: one per URL,
// replacing any prior entry for that URL.
type IndexedPage struct {
	URL         string            `json:"url"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Words       map[string]uint64 `json:"words"` // word -> weight
}
