package recommend

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultTrendWindow is the rolling window hashtag trends are counted over.
const DefaultTrendWindow = 7 * 24 * time.Hour

// DefaultTrendHistoryLimit is the number of likes used to build the hashtag affinity set.
const DefaultTrendHistoryLimit = 200

// DefaultAccountWindow bounds how far back likes count toward account overlap.
const DefaultAccountWindow = 30 * 24 * time.Hour

// overFetchFactor is how many candidates are pulled per requested result.
const overFetchFactor = 2

// CandidateOptions tunes the candidate pools.
type CandidateOptions struct {
	ReadTimeout       time.Duration
	TrendWindow       time.Duration
	TrendHistoryLimit int
	AccountWindow     time.Duration
	// PostWindow limits post candidates to this age when positive.
	PostWindow time.Duration
}

func (o CandidateOptions) withDefaults() CandidateOptions {
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = DefaultReadTimeout
	}
	if o.TrendWindow <= 0 {
		o.TrendWindow = DefaultTrendWindow
	}
	if o.TrendHistoryLimit <= 0 {
		o.TrendHistoryLimit = DefaultTrendHistoryLimit
	}
	if o.AccountWindow <= 0 {
		o.AccountWindow = DefaultAccountWindow
	}
	return o
}

// CandidateGenerator pulls raw candidate pools from the store.
// It pre-filters only; scoring and ordering happen downstream.
type CandidateGenerator struct {
	store   Store
	history *HistoryReader
	opts    CandidateOptions
}

// NewCandidateGenerator creates a candidate generator over store.
func NewCandidateGenerator(store Store, opts CandidateOptions) *CandidateGenerator {
	opts = opts.withDefaults()
	return &CandidateGenerator{
		store:   store,
		history: NewHistoryReader(store, opts.ReadTimeout),
		opts:    opts,
	}
}

// Posts returns up to 2×limit recent posts not authored by userID.
//
// Posts carrying a preferred hashtag come first, then posts by followed
// authors, then plain recent posts. Each pool is guaranteed up to limit
// slots before the rest of the budget is filled, so a full hashtag pool
// cannot crowd out followed authors. Duplicates keep their first position.
func (g *CandidateGenerator) Posts(ctx context.Context, userID string, profile PreferenceProfile, following map[string]struct{}, limit int, now time.Time) ([]CandidatePost, error) {
	if limit <= 0 {
		return []CandidatePost{}, nil
	}
	fetch := limit * overFetchFactor

	var since time.Time
	if g.opts.PostWindow > 0 {
		since = now.Add(-g.opts.PostWindow)
	}

	var biased, followed, recent []CandidatePost
	eg, egCtx := errgroup.WithContext(ctx)

	if profile.HasHashtags() {
		eg.Go(func() error {
			posts, err := g.readPosts(egCtx, PostQuery{
				ExcludeAuthorID: userID,
				Hashtags:        profile.PreferredHashtags,
				Since:           since,
				Limit:           fetch,
			})
			biased = posts
			return err
		})
	}
	if len(following) > 0 {
		authors := sortedKeys(following)
		eg.Go(func() error {
			posts, err := g.readPosts(egCtx, PostQuery{
				ExcludeAuthorID: userID,
				AuthorIDs:       authors,
				Since:           since,
				Limit:           fetch,
			})
			followed = posts
			return err
		})
	}
	eg.Go(func() error {
		posts, err := g.readPosts(egCtx, PostQuery{
			ExcludeAuthorID: userID,
			Since:           since,
			Limit:           fetch,
		})
		recent = posts
		return err
	})

	if err := eg.Wait(); err != nil {
		return nil, unavailable("read candidate posts", err)
	}

	return mergePools(userID, limit, fetch, biased, followed, recent), nil
}

// mergePools de-duplicates the pools into at most fetch posts. Each pool
// first contributes up to share new posts in pool order, then the remaining
// budget is topped up from the leftovers in the same order.
func mergePools(userID string, share, fetch int, pools ...[]CandidatePost) []CandidatePost {
	merged := make([]CandidatePost, 0, fetch)
	seen := make(map[string]struct{}, fetch)
	next := make([]int, len(pools))

	take := func(i, quota int) {
		pool := pools[i]
		for taken := 0; next[i] < len(pool) && taken < quota && len(merged) < fetch; next[i]++ {
			p := pool[next[i]]
			if p.AuthorID == userID {
				continue
			}
			if _, dup := seen[p.ID]; dup {
				continue
			}
			seen[p.ID] = struct{}{}
			merged = append(merged, p)
			taken++
		}
	}

	for i := range pools {
		take(i, share)
	}
	for i := range pools {
		take(i, fetch)
	}
	return merged
}

func (g *CandidateGenerator) readPosts(ctx context.Context, q PostQuery) ([]CandidatePost, error) {
	ctx, cancel := context.WithTimeout(ctx, g.opts.ReadTimeout)
	defer cancel()
	return g.store.RecentPosts(ctx, q)
}

// Hashtags returns the trend entries counted over the trend window ending at
// now, and the set of hashtags userID has liked. Entries are unscored.
func (g *CandidateGenerator) Hashtags(ctx context.Context, userID string, now time.Time) ([]HashtagTrendEntry, map[string]struct{}, error) {
	var counts []HashtagCount
	var liked []InteractionRecord

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		readCtx, cancel := context.WithTimeout(egCtx, g.opts.ReadTimeout)
		defer cancel()
		c, err := g.store.HashtagCounts(readCtx, now.Add(-g.opts.TrendWindow))
		if err != nil {
			return unavailable("read hashtag counts", err)
		}
		counts = c
		return nil
	})
	if userID != "" {
		eg.Go(func() error {
			recs, err := g.history.Interactions(egCtx, userID, g.opts.TrendHistoryLimit)
			liked = recs
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, unavailable("read hashtag candidates", err)
	}

	// Stores may report the same tag under different casing
	merged := make(map[string]int64, len(counts))
	for _, c := range counts {
		name := NormalizeHashtag(c.Name)
		if name == "" || c.Count <= 0 {
			continue
		}
		merged[name] += c.Count
	}

	entries := make([]HashtagTrendEntry, 0, len(merged))
	for name, n := range merged {
		entries = append(entries, HashtagTrendEntry{Name: name, RecentCount: n})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	return entries, toSet(likedHashtags(liked)), nil
}

// Accounts returns accounts whose recent likes share hashtags with liked,
// excluding userID and every followed account.
func (g *CandidateGenerator) Accounts(ctx context.Context, userID string, liked []string, following map[string]struct{}, limit int, now time.Time) ([]CandidateAccount, error) {
	if len(liked) == 0 || limit <= 0 {
		return []CandidateAccount{}, nil
	}

	exclude := excludedAccounts(userID, following)

	ctx, cancel := context.WithTimeout(ctx, g.opts.ReadTimeout)
	defer cancel()

	accounts, err := g.store.AccountsByHashtags(ctx, AccountQuery{
		Hashtags:   liked,
		ExcludeIDs: exclude,
		Since:      now.Add(-g.opts.AccountWindow),
		Limit:      limit * overFetchFactor,
	})
	if err != nil {
		return nil, unavailable("read candidate accounts", err)
	}

	return withoutExcluded(accounts, exclude), nil
}

// excludedAccounts lists the requester and followed accounts in ascending order.
func excludedAccounts(userID string, following map[string]struct{}) []string {
	set := make(map[string]struct{}, len(following)+1)
	for id := range following {
		set[id] = struct{}{}
	}
	if userID != "" {
		set[userID] = struct{}{}
	}
	return sortedKeys(set)
}

func withoutExcluded(accounts []CandidateAccount, exclude []string) []CandidateAccount {
	skip := toSet(exclude)
	out := make([]CandidateAccount, 0, len(accounts))
	for _, a := range accounts {
		if _, ok := skip[a.ID]; ok {
			continue
		}
		out = append(out, a)
	}
	return out
}
