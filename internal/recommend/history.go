package recommend

import (
	"context"
	"sort"
	"time"
)

// DefaultHistoryLimit is the number of likes used to build a profile.
const DefaultHistoryLimit = 50

// DefaultReadTimeout bounds every individual store read.
const DefaultReadTimeout = 2 * time.Second

// HistoryReader reads a user's bounded like history and follow set.
type HistoryReader struct {
	store   Store
	timeout time.Duration
}

// NewHistoryReader creates a history reader. A non-positive timeout uses DefaultReadTimeout.
func NewHistoryReader(store Store, timeout time.Duration) *HistoryReader {
	if timeout <= 0 {
		timeout = DefaultReadTimeout
	}
	return &HistoryReader{store: store, timeout: timeout}
}

// Interactions returns up to limit likes for userID, most recent first with
// ties broken by record ID ascending. A non-positive limit uses DefaultHistoryLimit.
// An unknown user yields an empty slice. Records without an item ID are dropped.
func (r *HistoryReader) Interactions(ctx context.Context, userID string, limit int) ([]InteractionRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	records, err := r.store.RecentLikes(ctx, userID, limit)
	if err != nil {
		return nil, unavailable("read interactions", err)
	}

	valid := make([]InteractionRecord, 0, len(records))
	for _, rec := range records {
		if rec.ItemID == "" {
			continue
		}
		valid = append(valid, rec)
	}

	sortInteractions(valid)
	if len(valid) > limit {
		valid = valid[:limit]
	}
	return valid, nil
}

// FollowSet returns the set of account IDs userID follows.
func (r *HistoryReader) FollowSet(ctx context.Context, userID string) (map[string]struct{}, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	ids, err := r.store.Following(ctx, userID)
	if err != nil {
		return nil, unavailable("read follow set", err)
	}

	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			set[id] = struct{}{}
		}
	}
	return set, nil
}

// Exists reports whether userID identifies a known account.
func (r *HistoryReader) Exists(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	ok, err := r.store.AccountExists(ctx, userID)
	if err != nil {
		return false, unavailable("check account", err)
	}
	return ok, nil
}

// sortInteractions orders records by occurred_at DESC, then ID ASC.
func sortInteractions(records []InteractionRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].OccurredAt.Equal(records[j].OccurredAt) {
			return records[i].OccurredAt.After(records[j].OccurredAt)
		}
		return records[i].ID < records[j].ID
	})
}
