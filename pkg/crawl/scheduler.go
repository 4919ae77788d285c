package crawl

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"webindex/pkg/config"
	"webindex/pkg/extract"
	"webindex/pkg/fetch"
	"webindex/pkg/index"
	"webindex/pkg/models"
	"webindex/pkg/parse"
	"webindex/pkg/storage"
	"webindex/pkg/utils"
)

// Scheduler runs the crawl: it seeds the frontier and drives a pool of
// workers until all of them starve out or the context is cancelled.
type Scheduler struct {
	cfg      config.CrawlerConfig
	store    storage.Store
	fetcher  fetch.Fetcher
	robots   fetch.RobotsProvider
	fetchSem *semaphore.Weighted
	log      *logrus.Entry
}

// NewScheduler creates a Scheduler. The semaphore caps in-flight
// fetches across all workers.
func NewScheduler(cfg config.CrawlerConfig, store storage.Store, fetcher fetch.Fetcher, robots fetch.RobotsProvider, logger *logrus.Entry) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		store:    store,
		fetcher:  fetcher,
		robots:   robots,
		fetchSem: semaphore.NewWeighted(int64(cfg.MaxConcurrentFetches)),
		log:      logger,
	}
}

// Seed pushes the configured seed URLs into the frontier as unowned
// depth-0 entries. Invalid seeds are logged and skipped.
func (s *Scheduler) Seed() error {
	seeded := 0
	for _, raw := range s.cfg.SeedURLs {
		normalized, err := parse.Normalize(raw, nil)
		if err != nil {
			s.log.WithError(err).WithField("url", raw).Warn("Skipping invalid seed URL")
			continue
		}
		if err := s.store.Push(normalized, 0, models.UnownedWorker); err != nil {
			return fmt.Errorf("%w: seeding frontier with '%s': %w", utils.ErrDatabase, normalized, err)
		}
		seeded++
	}
	s.log.WithField("count", seeded).Info("Frontier seeded")
	return nil
}

// Run starts the worker pool and blocks until every worker has exited.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.WithField("workers", s.cfg.Workers).Info("Starting crawl")

	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		worker := s.newWorker()
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.run(ctx)
		}()
	}
	wg.Wait()

	s.log.Info("All workers finished")
}

func (s *Scheduler) newWorker() *worker {
	id := uuid.NewString()
	logger := s.log.WithField("worker_id", id)
	return &worker{
		id:       id,
		cfg:      s.cfg,
		store:    s.store,
		fetcher:  s.fetcher,
		gate:     NewPolitenessGate(s.robots, s.store, s.cfg.UserAgent, logger),
		fetchSem: s.fetchSem,
		limiter:  rate.NewLimiter(rate.Every(s.cfg.PolitenessDelay), 1),
		log:      logger,
	}
}

// worker owns a slice of the frontier: every same-domain link it
// discovers is pushed under its ID, so one worker serializes all
// traffic to a domain.
type worker struct {
	id       string
	cfg      config.CrawlerConfig
	store    storage.Store
	fetcher  fetch.Fetcher
	gate     *PolitenessGate
	fetchSem *semaphore.Weighted
	limiter  *rate.Limiter
	log      *logrus.Entry
}

// run pops and crawls until the frontier starves or ctx is cancelled.
func (w *worker) run(ctx context.Context) {
	starvedPops := 0
	for {
		if ctx.Err() != nil {
			w.log.Info("Worker stopping, context cancelled")
			return
		}

		entry, err := w.nextEntry()
		if err != nil {
			w.log.WithError(err).Error("Frontier pop failed, worker exiting")
			return
		}
		if entry == nil {
			starvedPops++
			if starvedPops >= w.cfg.StarvationLimit {
				w.log.WithField("empty_pops", starvedPops).Info("Frontier starved, worker exiting")
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.cfg.StarvationBackoff):
			}
			continue
		}
		starvedPops = 0

		w.crawl(ctx, entry)

		if err := w.limiter.Wait(ctx); err != nil {
			return
		}
	}
}

// nextEntry prefers the worker's own pool, falling back to the unowned
// pool. Popping an unowned entry claims its domain: links found under
// it are pushed with this worker's ID.
func (w *worker) nextEntry() (*models.FrontierEntry, error) {
	entry, err := w.store.PopOwned(w.id)
	if err != nil || entry != nil {
		return entry, err
	}
	return w.store.PopUnowned()
}

// crawl runs the full pipeline for one frontier entry. All failures are
// terminal for the URL: logged, never requeued.
func (w *worker) crawl(ctx context.Context, entry *models.FrontierEntry) {
	taskLog := w.log.WithFields(logrus.Fields{"url": entry.URL, "depth": entry.Depth})

	if entry.Depth > w.cfg.MaxDepth {
		taskLog.Debug("Dropping entry beyond max depth")
		return
	}

	if err := w.gate.MayFetch(ctx, entry.URL); err != nil {
		if utils.IsPolicyDenial(err) {
			taskLog.WithField("reason", utils.CategorizeError(err)).Debug("Skipping URL")
		} else {
			taskLog.WithError(err).Error("Politeness gate failed")
		}
		return
	}

	result, err := w.fetch(ctx, entry.URL)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		taskLog.WithFields(logrus.Fields{
			"error":    err,
			"category": utils.CategorizeError(err),
		}).Warn("Fetch failed, dropping URL")
		return
	}

	canonicalURL, err := parse.Normalize(result.FinalURL.String(), nil)
	if err != nil {
		taskLog.WithError(err).Warn("Dereferenced URL failed normalization, dropping")
		return
	}

	content, err := extract.Extract(result.Body)
	if err != nil {
		taskLog.WithError(err).Warn("Extraction failed, dropping URL")
		return
	}

	page := &models.RawCrawledPage{
		URL:         canonicalURL,
		Title:       content.Title,
		Description: content.Description,
		Words:       content.Words,
		FetchedAt:   time.Now().UTC(),
	}

	if err := w.persist(page); err != nil {
		taskLog.WithError(err).Error("Failed to persist crawled page")
		return
	}

	w.enqueueLinks(taskLog, result.FinalURL, content.Links, entry.Depth)
	taskLog.WithField("links", len(content.Links)).Info("Crawled page")
}

// fetch wraps the HTTP fetch in the global concurrency semaphore.
func (w *worker) fetch(ctx context.Context, rawURL string) (*fetch.Result, error) {
	if err := w.fetchSem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer w.fetchSem.Release(1)
	return w.fetcher.Fetch(ctx, rawURL)
}

// persist records the crawl in the dedup ledger and either indexes the
// page inline or parks it for the standalone indexer.
func (w *worker) persist(page *models.RawCrawledPage) error {
	if err := w.store.MarkCrawled(page.URL, w.cfg.RecrawlTTL); err != nil {
		return fmt.Errorf("%w: marking '%s' crawled: %w", utils.ErrDatabase, page.URL, err)
	}

	if w.cfg.DeferIndexing {
		if err := w.store.PushPendingPage(page); err != nil {
			return fmt.Errorf("%w: parking page '%s': %w", utils.ErrDatabase, page.URL, err)
		}
		return nil
	}
	return index.Merge(w.store, index.Index(*page))
}

// enqueueLinks resolves extracted hrefs against the dereferenced page
// URL and pushes the crawlable ones. Same-host links deepen under this
// worker; cross-domain links enter the unowned pool as fresh domain
// roots at depth zero.
func (w *worker) enqueueLinks(taskLog *logrus.Entry, base *url.URL, links []string, depth int) {
	baseHost := strings.ToLower(base.Hostname())

	for _, raw := range links {
		normalized, err := parse.Normalize(raw, base)
		if err != nil {
			taskLog.WithFields(logrus.Fields{"href": raw, "error": err}).Debug("Dropping unparseable link")
			continue
		}

		status, err := w.store.Status(normalized)
		if err != nil {
			taskLog.WithError(err).Error("Dedup ledger read failed, skipping link")
			continue
		}
		if !status.Crawlable() {
			continue
		}

		linkHost, err := parse.Host(normalized)
		if err != nil {
			continue
		}

		if linkHost == baseHost {
			if depth+1 > w.cfg.MaxDepth {
				continue
			}
			if err := w.store.Push(normalized, depth+1, w.id); err != nil {
				taskLog.WithError(err).Error("Frontier push failed")
			}
			continue
		}

		domainRoot, err := parse.DomainRoot(normalized)
		if err != nil {
			continue
		}
		if err := w.store.Push(domainRoot, 0, models.UnownedWorker); err != nil {
			taskLog.WithError(err).Error("Frontier push failed")
		}
	}
}
