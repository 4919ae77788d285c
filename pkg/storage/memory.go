package storage

import (
	"container/heap"
	"sync"
	"time"

	"webindex/pkg/models"
)

// --- Frontier heap ---

// frontierItem represents an entry in an owner's frontier pool
type frontierItem struct {
	entry    *models.FrontierEntry
	priority int // Lower value means higher priority (depth)
	index    int // The index of the item in the heap (required by heap interface)
}

// frontierHeap implements heap.Interface ordered by depth, so shallow
// pages are crawled before deep ones within a pool
type frontierHeap []*frontierItem

func (fh frontierHeap) Len() int { return len(fh) }

func (fh frontierHeap) Less(i, j int) bool {
	return fh[i].priority < fh[j].priority
}

func (fh frontierHeap) Swap(i, j int) {
	fh[i], fh[j] = fh[j], fh[i]
	fh[i].index = i
	fh[j].index = j
}

// Push adds an element to the heap
func (fh *frontierHeap) Push(x any) {
	n := len(*fh)
	item := x.(*frontierItem)
	item.index = n
	*fh = append(*fh, item)
}

// Pop removes and returns the lowest-depth element from the heap
func (fh *frontierHeap) Pop() any {
	old := *fh
	n := len(old)
	item := old[n-1]
	old[n-1] = nil // avoid memory leak
	item.index = -1
	*fh = old[0 : n-1]
	return item
}

// --- Store ---

type siteMetadata struct {
	title       string
	description string
}

// MemoryStore is an in-process Store implementation: one depth-ordered
// frontier pool per owner plus map state behind a single mutex. It backs
// tests and the "memory" storage backend for dry runs; nothing survives
// process exit.
type MemoryStore struct {
	mu        sync.Mutex
	pools     map[string]*frontierHeap // owner -> pool
	members   map[string]bool          // frontier membership by URL
	ledger    map[string]time.Time     // url -> recrawl_after
	metadata  map[string]siteMetadata
	postings  map[string]map[string]uint64 // word -> url -> weight
	pageWords map[string][]string          // url -> words last written
	pending   map[string]*models.RawCrawledPage
	pendOrder []string // FIFO order of pending URLs

	now func() time.Time // injectable clock for ledger tests
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pools:     make(map[string]*frontierHeap),
		members:   make(map[string]bool),
		ledger:    make(map[string]time.Time),
		metadata:  make(map[string]siteMetadata),
		postings:  make(map[string]map[string]uint64),
		pageWords: make(map[string][]string),
		pending:   make(map[string]*models.RawCrawledPage),
		now:       time.Now,
	}
}

// Count implements FrontierStore
func (s *MemoryStore) Count() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.members), nil
}

// Push implements FrontierStore
func (s *MemoryStore) Push(url string, depth int, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.members[url] {
		return nil // Already queued under some owner
	}
	s.members[url] = true

	pool, ok := s.pools[owner]
	if !ok {
		pool = &frontierHeap{}
		heap.Init(pool)
		s.pools[owner] = pool
	}
	heap.Push(pool, &frontierItem{
		entry:    &models.FrontierEntry{URL: url, Depth: depth, Owner: owner},
		priority: depth,
	})
	return nil
}

// PopOwned implements FrontierStore
func (s *MemoryStore) PopOwned(owner string) (*models.FrontierEntry, error) {
	return s.pop(owner)
}

// PopUnowned implements FrontierStore
func (s *MemoryStore) PopUnowned() (*models.FrontierEntry, error) {
	return s.pop(models.UnownedWorker)
}

func (s *MemoryStore) pop(owner string) (*models.FrontierEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pool, ok := s.pools[owner]
	if !ok || pool.Len() == 0 {
		return nil, nil
	}
	item := heap.Pop(pool).(*frontierItem)
	delete(s.members, item.entry.URL)
	return item.entry, nil
}

// Status implements DedupLedger
func (s *MemoryStore) Status(url string) (models.DedupStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recrawlAfter, ok := s.ledger[url]
	if !ok {
		return models.DedupNeverSeen, nil
	}
	if s.now().Before(recrawlAfter) {
		return models.DedupActive, nil
	}
	return models.DedupExpired, nil
}

// MarkCrawled implements DedupLedger
func (s *MemoryStore) MarkCrawled(url string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger[url] = s.now().Add(ttl)
	return nil
}

// UpsertMetadata implements IndexStorage
func (s *MemoryStore) UpsertMetadata(url, title, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadata[url] = siteMetadata{title: title, description: description}
	return nil
}

// ReplacePostings implements IndexStorage
func (s *MemoryStore) ReplacePostings(url string, words map[string]uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Drop the URL's prior contribution entirely before inserting
	for _, word := range s.pageWords[url] {
		if byURL, ok := s.postings[word]; ok {
			delete(byURL, url)
			if len(byURL) == 0 {
				delete(s.postings, word)
			}
		}
	}

	written := make([]string, 0, len(words))
	for word, weight := range words {
		byURL, ok := s.postings[word]
		if !ok {
			byURL = make(map[string]uint64)
			s.postings[word] = byURL
		}
		byURL[url] = weight
		written = append(written, word)
	}
	s.pageWords[url] = written
	return nil
}

// PushPendingPage implements IndexStorage
func (s *MemoryStore) PushPendingPage(page *models.RawCrawledPage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.pending[page.URL]; !exists {
		s.pendOrder = append(s.pendOrder, page.URL)
	}
	s.pending[page.URL] = page
	return nil
}

// CountPendingPages implements IndexStorage
func (s *MemoryStore) CountPendingPages() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending), nil
}

// PopPendingPage implements IndexStorage
func (s *MemoryStore) PopPendingPage() (*models.RawCrawledPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pendOrder) == 0 {
		return nil, nil
	}
	url := s.pendOrder[0]
	s.pendOrder = s.pendOrder[1:]
	page := s.pending[url]
	delete(s.pending, url)
	return page, nil
}

// Close implements Store
func (s *MemoryStore) Close() error { return nil }

// Postings returns the stored postings for a word as url -> weight.
// Read-side helper for tests and the memory backend.
func (s *MemoryStore) Postings(word string) map[string]uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]uint64, len(s.postings[word]))
	for url, weight := range s.postings[word] {
		out[url] = weight
	}
	return out
}

// Metadata returns the stored title and description for a URL.
func (s *MemoryStore) Metadata(url string) (title, description string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	meta, ok := s.metadata[url]
	return meta.title, meta.description, ok
}
