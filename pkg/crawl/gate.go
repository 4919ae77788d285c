package crawl

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"webindex/pkg/fetch"
	"webindex/pkg/parse"
	"webindex/pkg/storage"
	"webindex/pkg/utils"
)

// robotsFetchAttempts bounds retries when a domain's robots.txt cannot
// be fetched; after that the gate fails open for the domain.
const robotsFetchAttempts = 3

// PolitenessGate is the per-worker admission check run before every
// fetch. It caches the robots.txt ruleset of the worker's current
// domain and consults the dedup ledger, so a worker that stays on one
// domain pays for the robots fetch only once.
type PolitenessGate struct {
	robots    fetch.RobotsProvider
	ledger    storage.DedupLedger
	userAgent string
	log       *logrus.Entry

	currentDomain string
	ruleset       string
}

// NewPolitenessGate creates a gate with an empty robots cache.
func NewPolitenessGate(robots fetch.RobotsProvider, ledger storage.DedupLedger, userAgent string, logger *logrus.Entry) *PolitenessGate {
	return &PolitenessGate{robots: robots, ledger: ledger, userAgent: userAgent, log: logger}
}

// MayFetch returns nil when the URL may be fetched now. It returns
// ErrRobotsDisallowed or ErrRecentlyCrawled for policy denials, and a
// database error if the ledger cannot be read.
func (g *PolitenessGate) MayFetch(ctx context.Context, normalizedURL string) error {
	domainRoot, err := parse.DomainRoot(normalizedURL)
	if err != nil {
		return err
	}

	if domainRoot != g.currentDomain {
		g.refreshRobots(ctx, domainRoot)
	}

	if !fetch.IsAllowed(g.ruleset, g.userAgent, normalizedURL) {
		return fmt.Errorf("%w: '%s'", utils.ErrRobotsDisallowed, normalizedURL)
	}

	status, err := g.ledger.Status(normalizedURL)
	if err != nil {
		return fmt.Errorf("%w: reading dedup ledger for '%s': %w", utils.ErrDatabase, normalizedURL, err)
	}
	if !status.Crawlable() {
		return fmt.Errorf("%w: '%s'", utils.ErrRecentlyCrawled, normalizedURL)
	}
	return nil
}

// refreshRobots swaps the cached ruleset for a new domain. Fetch
// failures after all attempts leave an empty (allow-all) ruleset.
func (g *PolitenessGate) refreshRobots(ctx context.Context, domainRoot string) {
	g.currentDomain = domainRoot
	g.ruleset = ""

	var lastErr error
	for attempt := 1; attempt <= robotsFetchAttempts; attempt++ {
		ruleset, err := g.robots.FetchRobots(ctx, domainRoot)
		if err == nil {
			g.ruleset = ruleset
			return
		}
		lastErr = err
		if ctx.Err() != nil {
			return
		}
	}
	g.log.WithError(lastErr).WithField("domain", domainRoot).Warn("Robots fetch failed, allowing all paths")
}
