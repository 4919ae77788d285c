package storage

import (
	"time"

	"webindex/pkg/models"
)

// FrontierStore is the durable queue of discovered-but-unfetched URLs.
// It is the single source of truth for cross-worker coordination: all
// mutation happens through atomic pop/push operations, so callers never
// need their own locks.
type FrontierStore interface {
	// Count returns the number of entries currently queued
	Count() (int, error)

	// PopOwned atomically removes and returns one entry owned by the given
	// worker. Returns (nil, nil) when the worker's pool is empty
	PopOwned(owner string) (*models.FrontierEntry, error)

	// PopUnowned atomically removes and returns one entry from the global
	// unowned pool. Returns (nil, nil) when the pool is empty
	PopUnowned() (*models.FrontierEntry, error)

	// Push enqueues a normalized URL. A URL already present in the
	// frontier (under any owner) is left untouched; this is a no-op,
	// not an error
	Push(url string, depth int, owner string) error
}

// DedupLedger records recently-crawled URLs with a recrawl expiry,
// preventing recrawl within the TTL window.
type DedupLedger interface {
	// Status reports recrawl eligibility for a normalized URL
	Status(url string) (models.DedupStatus, error)

	// MarkCrawled records a successful fetch; the URL becomes crawlable
	// again once ttl elapses. Overwrites any prior record
	MarkCrawled(url string, ttl time.Duration) error
}

// IndexStorage persists the inverted index and the pending-page queue
// used when crawling and indexing run as separate processes.
type IndexStorage interface {
	// UpsertMetadata overwrites the site metadata for a URL
	UpsertMetadata(url, title, description string) error

	// ReplacePostings deletes all existing postings for the URL and
	// inserts the new word -> weight set in one logical batch. Calling it
	// twice with the same input leaves storage unchanged
	ReplacePostings(url string, words map[string]uint64) error

	// PushPendingPage parks a raw crawled page for later indexing.
	// A page pushed twice for the same URL replaces the earlier one
	PushPendingPage(page *models.RawCrawledPage) error

	// CountPendingPages returns the number of parked pages
	CountPendingPages() (int, error)

	// PopPendingPage removes and returns one parked page, or (nil, nil)
	// when the queue is empty
	PopPendingPage() (*models.RawCrawledPage, error)
}

// Store combines all storage interfaces for components that need full
// access (the binaries open one Store and hand slices of it around).
type Store interface {
	FrontierStore
	DedupLedger
	IndexStorage

	// Close cleanly closes the backing database
	Close() error
}
