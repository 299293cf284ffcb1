package recommend

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Account is the account row held by InMemoryStore.
type Account struct {
	ID             string
	Username       string
	FollowersCount int64
}

// like is a stored like row.
type like struct {
	id        int64
	userID    string
	postID    string
	createdAt time.Time
}

// InMemoryStore is an in-memory implementation of Store for tests and local runs.
// Thread-safe via RWMutex.
type InMemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]Account
	posts    map[string]CandidatePost
	likes    []like
	follows  map[string]map[string]struct{} // follower -> followees
	nextLike int64
}

// NewInMemoryStore creates a new in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		accounts: make(map[string]Account),
		posts:    make(map[string]CandidatePost),
		follows:  make(map[string]map[string]struct{}),
	}
}

// AddAccount adds or replaces an account.
func (s *InMemoryStore) AddAccount(a Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[a.ID] = a
}

// AddPost adds or replaces a post.
func (s *InMemoryStore) AddPost(p CandidatePost) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tags := make([]string, len(p.Hashtags))
	copy(tags, p.Hashtags)
	p.Hashtags = tags
	s.posts[p.ID] = p
}

// AddLike records that userID liked postID at the given time.
// Returns the generated like ID.
func (s *InMemoryStore) AddLike(userID, postID string, at time.Time) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextLike++
	s.likes = append(s.likes, like{id: s.nextLike, userID: userID, postID: postID, createdAt: at})
	return s.nextLike
}

// AddFollow records that follower follows followee.
func (s *InMemoryStore) AddFollow(follower, followee string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.follows[follower]
	if !ok {
		set = make(map[string]struct{})
		s.follows[follower] = set
	}
	set[followee] = struct{}{}
}

// AccountExists reports whether the account is known.
func (s *InMemoryStore) AccountExists(ctx context.Context, userID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.accounts[userID]
	return ok, nil
}

// RecentLikes returns the user's likes newest first, ties by like ID ascending.
func (s *InMemoryStore) RecentLikes(ctx context.Context, userID string, limit int) ([]InteractionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []InteractionRecord
	for _, l := range s.likes {
		if l.userID != userID {
			continue
		}
		p, ok := s.posts[l.postID]
		if !ok {
			continue
		}
		tags := make([]string, len(p.Hashtags))
		copy(tags, p.Hashtags)
		records = append(records, InteractionRecord{
			ID:           l.id,
			UserID:       l.userID,
			ItemID:       p.ID,
			ItemHashtags: tags,
			ItemHasMedia: p.HasMedia,
			ItemAuthorID: p.AuthorID,
			OccurredAt:   l.createdAt,
		})
	}

	sortInteractions(records)
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// Following returns followee IDs in ascending order.
func (s *InMemoryStore) Following(ctx context.Context, userID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.follows[userID]))
	for id := range s.follows[userID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// RecentPosts returns posts matching q ordered by created_at DESC, id ASC.
func (s *InMemoryStore) RecentPosts(ctx context.Context, q PostQuery) ([]CandidatePost, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	authors := toSet(q.AuthorIDs)
	tags := normalizeSet(q.Hashtags)

	var posts []CandidatePost
	for _, p := range s.posts {
		if q.ExcludeAuthorID != "" && p.AuthorID == q.ExcludeAuthorID {
			continue
		}
		if !q.Since.IsZero() && p.CreatedAt.Before(q.Since) {
			continue
		}
		if len(authors) > 0 {
			if _, ok := authors[p.AuthorID]; !ok {
				continue
			}
		}
		if len(tags) > 0 && !intersects(p.Hashtags, tags) {
			continue
		}
		cp := p
		cp.Hashtags = append([]string(nil), p.Hashtags...)
		posts = append(posts, cp)
	}

	sort.Slice(posts, func(i, j int) bool {
		if !posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		}
		return posts[i].ID < posts[j].ID
	})

	if q.Limit > 0 && len(posts) > q.Limit {
		posts = posts[:q.Limit]
	}
	return posts, nil
}

// HashtagCounts counts posts per normalized hashtag created at or after since.
func (s *InMemoryStore) HashtagCounts(ctx context.Context, since time.Time) ([]HashtagCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int64)
	for _, p := range s.posts {
		if p.CreatedAt.Before(since) {
			continue
		}
		for tag := range normalizeSet(p.Hashtags) {
			counts[tag]++
		}
	}

	result := make([]HashtagCount, 0, len(counts))
	for name, n := range counts {
		result = append(result, HashtagCount{Name: name, Count: n})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Name < result[j].Name
	})
	return result, nil
}

// AccountsByHashtags finds likers whose liked posts share hashtags with q.Hashtags.
// Results are ordered by shared-hashtag count DESC, id ASC.
func (s *InMemoryStore) AccountsByHashtags(ctx context.Context, q AccountQuery) ([]CandidateAccount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := normalizeSet(q.Hashtags)
	if len(wanted) == 0 {
		return nil, nil
	}
	excluded := toSet(q.ExcludeIDs)

	shared := make(map[string]map[string]struct{})
	for _, l := range s.likes {
		if _, skip := excluded[l.userID]; skip {
			continue
		}
		if !q.Since.IsZero() && l.createdAt.Before(q.Since) {
			continue
		}
		p, ok := s.posts[l.postID]
		if !ok {
			continue
		}
		for tag := range normalizeSet(p.Hashtags) {
			if _, ok := wanted[tag]; !ok {
				continue
			}
			set, ok := shared[l.userID]
			if !ok {
				set = make(map[string]struct{})
				shared[l.userID] = set
			}
			set[tag] = struct{}{}
		}
	}

	accounts := make([]CandidateAccount, 0, len(shared))
	for id, tags := range shared {
		acct := s.accounts[id]
		accounts = append(accounts, CandidateAccount{
			ID:             id,
			Username:       acct.Username,
			FollowersCount: acct.FollowersCount,
			SharedHashtags: sortedKeys(tags),
		})
	}
	sort.Slice(accounts, func(i, j int) bool {
		if len(accounts[i].SharedHashtags) != len(accounts[j].SharedHashtags) {
			return len(accounts[i].SharedHashtags) > len(accounts[j].SharedHashtags)
		}
		return accounts[i].ID < accounts[j].ID
	})

	if q.Limit > 0 && len(accounts) > q.Limit {
		accounts = accounts[:q.Limit]
	}
	return accounts, nil
}

// PopularAccounts returns accounts ordered by followers_count DESC, id ASC.
func (s *InMemoryStore) PopularAccounts(ctx context.Context, excludeIDs []string, limit int) ([]CandidateAccount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	excluded := toSet(excludeIDs)
	accounts := make([]CandidateAccount, 0, len(s.accounts))
	for _, a := range s.accounts {
		if _, skip := excluded[a.ID]; skip {
			continue
		}
		accounts = append(accounts, CandidateAccount{
			ID:             a.ID,
			Username:       a.Username,
			FollowersCount: a.FollowersCount,
		})
	}
	sortByPopularity(accounts)

	if limit > 0 && len(accounts) > limit {
		accounts = accounts[:limit]
	}
	return accounts, nil
}

// SlowStore wraps a Store with an artificial delay for testing timeouts.
// The delay honors context cancellation.
type SlowStore struct {
	Store
	delay time.Duration
}

// NewSlowStore creates a new slow store wrapper.
func NewSlowStore(s Store, delay time.Duration) *SlowStore {
	return &SlowStore{Store: s, delay: delay}
}

func (s *SlowStore) wait(ctx context.Context) error {
	t := time.NewTimer(s.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// AccountExists delays, then delegates.
func (s *SlowStore) AccountExists(ctx context.Context, userID string) (bool, error) {
	if err := s.wait(ctx); err != nil {
		return false, err
	}
	return s.Store.AccountExists(ctx, userID)
}

// RecentLikes delays, then delegates.
func (s *SlowStore) RecentLikes(ctx context.Context, userID string, limit int) ([]InteractionRecord, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	return s.Store.RecentLikes(ctx, userID, limit)
}

// Following delays, then delegates.
func (s *SlowStore) Following(ctx context.Context, userID string) ([]string, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	return s.Store.Following(ctx, userID)
}

// RecentPosts delays, then delegates.
func (s *SlowStore) RecentPosts(ctx context.Context, q PostQuery) ([]CandidatePost, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	return s.Store.RecentPosts(ctx, q)
}

// FailingStore is a Store whose every read returns Err.
type FailingStore struct {
	Err error
}

// AccountExists returns f.Err.
func (f FailingStore) AccountExists(context.Context, string) (bool, error) { return false, f.Err }

// RecentLikes returns f.Err.
func (f FailingStore) RecentLikes(context.Context, string, int) ([]InteractionRecord, error) {
	return nil, f.Err
}

// Following returns f.Err.
func (f FailingStore) Following(context.Context, string) ([]string, error) { return nil, f.Err }

// RecentPosts returns f.Err.
func (f FailingStore) RecentPosts(context.Context, PostQuery) ([]CandidatePost, error) {
	return nil, f.Err
}

// HashtagCounts returns f.Err.
func (f FailingStore) HashtagCounts(context.Context, time.Time) ([]HashtagCount, error) {
	return nil, f.Err
}

// AccountsByHashtags returns f.Err.
func (f FailingStore) AccountsByHashtags(context.Context, AccountQuery) ([]CandidateAccount, error) {
	return nil, f.Err
}

// PopularAccounts returns f.Err.
func (f FailingStore) PopularAccounts(context.Context, []string, int) ([]CandidateAccount, error) {
	return nil, f.Err
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func normalizeSet(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if n := NormalizeHashtag(t); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

func intersects(tags []string, set map[string]struct{}) bool {
	for _, t := range tags {
		if _, ok := set[NormalizeHashtag(t)]; ok {
			return true
		}
	}
	return false
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
