package index

import (
	"fmt"

	"webindex/pkg/models"
	"webindex/pkg/storage"
)

// Field caps applied at the storage boundary.
const (
	maxTitleRunes       = 512
	maxDescriptionRunes = 1024
)

// Merge writes a scored page into the index. Metadata is upserted and
// the page's postings replace whatever was stored for it before, so
// re-merging the same page is a no-op and re-merging a changed page
// never leaves stale words behind.
func Merge(store storage.IndexStorage, page models.IndexedPage) error {
	title := truncateRunes(page.Title, maxTitleRunes)
	description := truncateRunes(page.Description, maxDescriptionRunes)

	if err := store.UpsertMetadata(page.URL, title, description); err != nil {
		return fmt.Errorf("upserting metadata for '%s': %w", page.URL, err)
	}
	if err := store.ReplacePostings(page.URL, page.Words); err != nil {
		return fmt.Errorf("replacing postings for '%s': %w", page.URL, err)
	}
	return nil
}

func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
