package recommend

import (
	"context"
	"time"
)

// FallbackSelector supplies popularity-ranked lists when personalization
// produces nothing. A list is never a blend of both strategies.
type FallbackSelector struct {
	store   Store
	timeout time.Duration
}

// NewFallbackSelector creates a fallback selector. A non-positive timeout uses DefaultReadTimeout.
func NewFallbackSelector(store Store, timeout time.Duration) *FallbackSelector {
	if timeout <= 0 {
		timeout = DefaultReadTimeout
	}
	return &FallbackSelector{store: store, timeout: timeout}
}

// NeedsFallback reports whether kind switches to popularity for a personalized
// list of the given length. Only accounts fall back; posts return partial or
// empty lists as they are, and hashtag trends are already popularity based.
func (f *FallbackSelector) NeedsFallback(kind Kind, personalized int) bool {
	return kind == KindAccounts && personalized == 0
}

// PopularAccounts returns up to limit accounts by followers_count DESC, id ASC,
// excluding userID and its follows. Each account's score is its follower count.
// An empty result is not an error.
func (f *FallbackSelector) PopularAccounts(ctx context.Context, userID string, following map[string]struct{}, limit int) ([]CandidateAccount, error) {
	if limit <= 0 {
		return []CandidateAccount{}, nil
	}
	exclude := excludedAccounts(userID, following)

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	accounts, err := f.store.PopularAccounts(ctx, exclude, limit)
	if err != nil {
		return nil, unavailable("read popular accounts", err)
	}

	accounts = withoutExcluded(accounts, exclude)
	for i := range accounts {
		accounts[i].SharedHashtags = nil
		accounts[i].Score = float64(accounts[i].FollowersCount)
	}
	sortByPopularity(accounts)
	if len(accounts) > limit {
		accounts = accounts[:limit]
	}
	return accounts, nil
}
