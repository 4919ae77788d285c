package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"webindex/pkg/log"
	"webindex/pkg/models"
	"webindex/pkg/utils"
)

// Key prefixes. The 0x00 separator in composite keys cannot occur in a
// normalized URL or an extracted word.
const (
	frontierKeyPrefix = "frontier:" // frontier:<url> -> FrontierEntry JSON
	ownerKeyPrefix    = "fowner:"   // fowner:<owner>\x00<url> -> empty (pop index)
	dedupKeyPrefix    = "dedup:"    // dedup:<url> -> recrawl_after unix nanos
	metaKeyPrefix     = "meta:"     // meta:<url> -> metadata JSON
	pageWordsPrefix   = "pw:"       // pw:<url> -> []word JSON (for posting replacement)
	postingKeyPrefix  = "post:"     // post:<word>\x00<url> -> weight
	pendingKeyPrefix  = "pending:"  // pending:<url> -> RawCrawledPage JSON

	keySep = "\x00"

	badgerDBDir = "index_db" // Subdirectory within stateDir for Badger files
)

// BadgerStore implements Store using BadgerDB. The frontier, dedup ledger
// and inverted index share one database; all mutation goes through
// transactions, so frontier pops are atomic across processes sharing the
// store serially.
type BadgerStore struct {
	db            *badger.DB
	log           *logrus.Entry
	frontierCount atomic.Int64
	pendingCount  atomic.Int64

	now func() time.Time // injectable clock for ledger tests
}

// NewBadgerStore opens (or creates) the store under stateDir. Existing
// state is always kept: the frontier and ledger are meant to survive
// restarts.
func NewBadgerStore(stateDir string, logger *logrus.Entry) (*BadgerStore, error) {
	dbPath := filepath.Join(stateDir, badgerDBDir)
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("cannot create state directory %s: %w", dbPath, err)
	}
	logger.Infof("Opening index database at: %s", dbPath)

	badgerLogger := log.NewBadgerLogrusAdapter(logger.WithField("component", "badgerdb"))
	opts := badger.DefaultOptions(dbPath).
		WithLogger(badgerLogger).
		WithNumVersionsToKeep(1)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %s: %w", dbPath, err)
	}

	store := &BadgerStore{db: db, log: logger, now: time.Now}

	fCount, err := store.countKeys(frontierKeyPrefix)
	if err != nil {
		logger.Warnf("Failed to count frontier keys on open: %v", err)
	}
	store.frontierCount.Store(int64(fCount))

	pCount, err := store.countKeys(pendingKeyPrefix)
	if err != nil {
		logger.Warnf("Failed to count pending keys on open: %v", err)
	}
	store.pendingCount.Store(int64(pCount))

	logger.Infof("Index database opened (frontier: %d, pending: %d)", fCount, pCount)
	return store, nil
}

// countKeys performs a one-time key scan for a prefix (used at open).
func (s *BadgerStore) countKeys(prefix string) (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

const maxConflictRetries = 10

// dbUpdate wraps db.Update with a retry loop for BadgerDB transaction
// conflicts. Concurrent MVCC transactions on overlapping keys can return
// badger.ErrConflict; these resolve in microseconds, so a tight retry
// loop is sufficient.
func (s *BadgerStore) dbUpdate(fn func(txn *badger.Txn) error) error {
	for i := range maxConflictRetries {
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.log.Debugf("BadgerDB transaction conflict (attempt %d/%d), retrying", i+1, maxConflictRetries)
	}
	return fmt.Errorf("%w: transaction conflict not resolved after %d retries", utils.ErrDatabase, maxConflictRetries)
}

// Count implements FrontierStore
func (s *BadgerStore) Count() (int, error) {
	return int(s.frontierCount.Load()), nil
}

// Push implements FrontierStore
func (s *BadgerStore) Push(url string, depth int, owner string) error {
	frontierKey := []byte(frontierKeyPrefix + url)
	ownerKey := []byte(ownerKeyPrefix + owner + keySep + url)

	added := false
	err := s.dbUpdate(func(txn *badger.Txn) error {
		_, errGet := txn.Get(frontierKey)
		if errGet == nil {
			return nil // Already queued under some owner; push is a no-op
		}
		if !errors.Is(errGet, badger.ErrKeyNotFound) {
			return errGet
		}

		entry := models.FrontierEntry{URL: url, Depth: depth, Owner: owner}
		val, errJSON := json.Marshal(&entry)
		if errJSON != nil {
			return errJSON
		}
		if errSet := txn.Set(frontierKey, val); errSet != nil {
			return errSet
		}
		if errSet := txn.Set(ownerKey, nil); errSet != nil {
			return errSet
		}
		added = true
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: pushing frontier entry '%s': %w", utils.ErrDatabase, url, err)
	}
	if added {
		s.frontierCount.Add(1)
	}
	return nil
}

// PopOwned implements FrontierStore
func (s *BadgerStore) PopOwned(owner string) (*models.FrontierEntry, error) {
	return s.pop(owner)
}

// PopUnowned implements FrontierStore
func (s *BadgerStore) PopUnowned() (*models.FrontierEntry, error) {
	return s.pop(models.UnownedWorker)
}

func (s *BadgerStore) pop(owner string) (*models.FrontierEntry, error) {
	prefix := []byte(ownerKeyPrefix + owner + keySep)

	var entry *models.FrontierEntry
	err := s.dbUpdate(func(txn *badger.Txn) error {
		entry = nil

		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)

		var ownerKey []byte
		it.Rewind()
		if it.Valid() {
			ownerKey = it.Item().KeyCopy(nil)
		}
		it.Close()
		if ownerKey == nil {
			return nil // Pool empty
		}

		url := string(ownerKey[len(prefix):])
		frontierKey := []byte(frontierKeyPrefix + url)

		item, errGet := txn.Get(frontierKey)
		if errGet != nil {
			return errGet
		}
		var decoded models.FrontierEntry
		errVal := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &decoded)
		})
		if errVal != nil {
			return errVal
		}

		if errDel := txn.Delete(frontierKey); errDel != nil {
			return errDel
		}
		if errDel := txn.Delete(ownerKey); errDel != nil {
			return errDel
		}
		entry = &decoded
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: popping frontier entry (owner '%s'): %w", utils.ErrDatabase, owner, err)
	}
	if entry != nil {
		s.frontierCount.Add(-1)
	}
	return entry, nil
}

// Status implements DedupLedger
func (s *BadgerStore) Status(url string) (models.DedupStatus, error) {
	key := []byte(dedupKeyPrefix + url)

	status := models.DedupNeverSeen
	err := s.db.View(func(txn *badger.Txn) error {
		item, errGet := txn.Get(key)
		if errors.Is(errGet, badger.ErrKeyNotFound) {
			return nil
		}
		if errGet != nil {
			return errGet
		}
		return item.Value(func(val []byte) error {
			nanos, errParse := strconv.ParseInt(string(val), 10, 64)
			if errParse != nil {
				s.log.Warnf("Unparseable dedup record for '%s', treating as expired: %v", url, errParse)
				status = models.DedupExpired
				return nil
			}
			if s.now().UnixNano() < nanos {
				status = models.DedupActive
			} else {
				status = models.DedupExpired
			}
			return nil
		})
	})
	if err != nil {
		return status, fmt.Errorf("%w: reading dedup record '%s': %w", utils.ErrDatabase, url, err)
	}
	return status, nil
}

// MarkCrawled implements DedupLedger
func (s *BadgerStore) MarkCrawled(url string, ttl time.Duration) error {
	key := []byte(dedupKeyPrefix + url)
	val := []byte(strconv.FormatInt(s.now().Add(ttl).UnixNano(), 10))

	err := s.dbUpdate(func(txn *badger.Txn) error {
		return txn.Set(key, val)
	})
	if err != nil {
		return fmt.Errorf("%w: marking '%s' crawled: %w", utils.ErrDatabase, url, err)
	}
	return nil
}

type metaRecord struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// UpsertMetadata implements IndexStorage
func (s *BadgerStore) UpsertMetadata(url, title, description string) error {
	val, err := json.Marshal(&metaRecord{Title: title, Description: description})
	if err != nil {
		return err
	}
	key := []byte(metaKeyPrefix + url)

	if err := s.dbUpdate(func(txn *badger.Txn) error {
		return txn.Set(key, val)
	}); err != nil {
		return fmt.Errorf("%w: upserting metadata for '%s': %w", utils.ErrDatabase, url, err)
	}
	return nil
}

// ReplacePostings implements IndexStorage. The URL's previous word set
// (tracked under pw:<url>) is deleted before the new postings are written,
// all inside a single transaction, which is what makes reprocessing a URL
// idempotent.
func (s *BadgerStore) ReplacePostings(url string, words map[string]uint64) error {
	pwKey := []byte(pageWordsPrefix + url)

	err := s.dbUpdate(func(txn *badger.Txn) error {
		var oldWords []string
		item, errGet := txn.Get(pwKey)
		if errGet == nil {
			errVal := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &oldWords)
			})
			if errVal != nil {
				return errVal
			}
		} else if !errors.Is(errGet, badger.ErrKeyNotFound) {
			return errGet
		}

		for _, word := range oldWords {
			key := []byte(postingKeyPrefix + word + keySep + url)
			if errDel := txn.Delete(key); errDel != nil {
				return errDel
			}
		}

		newWords := make([]string, 0, len(words))
		for word, weight := range words {
			key := []byte(postingKeyPrefix + word + keySep + url)
			val := []byte(strconv.FormatUint(weight, 10))
			if errSet := txn.Set(key, val); errSet != nil {
				return errSet
			}
			newWords = append(newWords, word)
		}

		pwVal, errJSON := json.Marshal(newWords)
		if errJSON != nil {
			return errJSON
		}
		return txn.Set(pwKey, pwVal)
	})
	if err != nil {
		return fmt.Errorf("%w: replacing postings for '%s': %w", utils.ErrDatabase, url, err)
	}
	return nil
}

// PushPendingPage implements IndexStorage
func (s *BadgerStore) PushPendingPage(page *models.RawCrawledPage) error {
	val, err := json.Marshal(page)
	if err != nil {
		return err
	}
	key := []byte(pendingKeyPrefix + page.URL)

	added := false
	if err := s.dbUpdate(func(txn *badger.Txn) error {
		_, errGet := txn.Get(key)
		if errors.Is(errGet, badger.ErrKeyNotFound) {
			added = true
		} else if errGet != nil {
			return errGet
		}
		return txn.Set(key, val)
	}); err != nil {
		return fmt.Errorf("%w: pushing pending page '%s': %w", utils.ErrDatabase, page.URL, err)
	}
	if added {
		s.pendingCount.Add(1)
	}
	return nil
}

// CountPendingPages implements IndexStorage
func (s *BadgerStore) CountPendingPages() (int, error) {
	return int(s.pendingCount.Load()), nil
}

// PopPendingPage implements IndexStorage
func (s *BadgerStore) PopPendingPage() (*models.RawCrawledPage, error) {
	prefix := []byte(pendingKeyPrefix)

	var page *models.RawCrawledPage
	err := s.dbUpdate(func(txn *badger.Txn) error {
		page = nil

		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)

		var key []byte
		var decoded models.RawCrawledPage
		it.Rewind()
		if it.Valid() {
			key = it.Item().KeyCopy(nil)
			errVal := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &decoded)
			})
			if errVal != nil {
				it.Close()
				return errVal
			}
		}
		it.Close()
		if key == nil {
			return nil // Queue empty
		}

		if errDel := txn.Delete(key); errDel != nil {
			return errDel
		}
		page = &decoded
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: popping pending page: %w", utils.ErrDatabase, err)
	}
	if page != nil {
		s.pendingCount.Add(-1)
	}
	return page, nil
}

// Close implements Store
func (s *BadgerStore) Close() error {
	s.log.Info("Closing index database...")
	return s.db.Close()
}
