package index

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"webindex/pkg/storage"
	"webindex/pkg/utils"
)

// Service drains the pending-page queue that a deferred-indexing crawl
// leaves behind, scoring and merging each parked page.
type Service struct {
	store        storage.IndexStorage
	pollInterval time.Duration
	log          *logrus.Entry
}

// NewService creates an indexing Service.
func NewService(store storage.IndexStorage, pollInterval time.Duration, logger *logrus.Entry) *Service {
	return &Service{store: store, pollInterval: pollInterval, log: logger}
}

// Run processes pending pages until ctx is cancelled. When the queue is
// empty it sleeps for the poll interval before checking again.
func (s *Service) Run(ctx context.Context) error {
	s.log.WithField("poll_interval", s.pollInterval).Info("Indexer service starting")

	for {
		if err := ctx.Err(); err != nil {
			s.log.Info("Indexer service stopping")
			return err
		}

		processed, err := s.drain(ctx)
		if err != nil {
			return err
		}
		if processed > 0 {
			s.log.WithField("pages", processed).Info("Drained pending pages")
		}

		select {
		case <-ctx.Done():
			s.log.Info("Indexer service stopping")
			return ctx.Err()
		case <-time.After(s.pollInterval):
		}
	}
}

// drain pops and indexes pending pages until the queue is empty. Pages
// that fail to merge are logged and dropped rather than requeued, so a
// poison page cannot wedge the queue.
func (s *Service) drain(ctx context.Context) (int, error) {
	processed := 0
	for {
		if err := ctx.Err(); err != nil {
			return processed, err
		}

		page, err := s.store.PopPendingPage()
		if err != nil {
			return processed, fmt.Errorf("%w: popping pending page: %w", utils.ErrDatabase, err)
		}
		if page == nil {
			return processed, nil
		}

		if err := Merge(s.store, Index(*page)); err != nil {
			s.log.WithError(err).WithField("url", page.URL).Error("Failed to merge page, dropping")
			continue
		}
		processed++
		s.log.WithField("url", page.URL).Debug("Indexed page")
	}
}
