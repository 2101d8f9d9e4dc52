package store

import (
	"context"
	"fmt"
	"log"

	"briefing-trends/pkg/filter"
)

const syncBatchSize = 100

// Sync copies every record of src into dst in batches. Records are
// de-duplicated by slug first, so an append-only CSV source with repeated
// rows lands as one row per briefing. It returns the number of records copied.
func Sync(ctx context.Context, src, dst RecordStore) (int, error) {
	records, err := src.ReadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read source records: %w", err)
	}

	unique, err := filter.Apply(ctx, records, filter.NewUniqueSlugFilter())
	if err != nil {
		return 0, err
	}
	log.Printf("Sync: loaded %d records (%d unique), copying in batches...", len(records), len(unique))

	copied := 0
	for start := 0; start < len(unique); start += syncBatchSize {
		end := min(start+syncBatchSize, len(unique))
		if err := dst.Append(ctx, unique[start:end]...); err != nil {
			return copied, fmt.Errorf("failed to copy records %d-%d: %w", start, end, err)
		}
		copied = end
		log.Printf("Sync: progress %d/%d (%.1f%%)", copied, len(unique), float64(copied)*100/float64(len(unique)))
	}

	log.Printf("Sync complete: copied %d records", copied)
	return copied, nil
}
