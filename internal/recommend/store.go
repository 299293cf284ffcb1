package recommend

import (
	"context"
	"time"
)

// PostQuery filters the recent-post read.
// Non-empty Hashtags and AuthorIDs are combined with AND.
type PostQuery struct {
	// ExcludeAuthorID drops posts by this author (the requester).
	ExcludeAuthorID string
	// AuthorIDs keeps only posts by these authors when non-empty.
	AuthorIDs []string
	// Hashtags keeps only posts carrying at least one of these tags when non-empty.
	Hashtags []string
	// Since keeps only posts created at or after this instant when non-zero.
	Since time.Time
	// Limit caps the number of posts returned.
	Limit int
}

// AccountQuery filters the hashtag-overlap account read.
type AccountQuery struct {
	// Hashtags are the requester's liked hashtags (normalized).
	Hashtags []string
	// ExcludeIDs drops these accounts (requester and existing follows).
	ExcludeIDs []string
	// Since keeps only likes that occurred at or after this instant when non-zero.
	Since time.Time
	// Limit caps the number of accounts returned.
	Limit int
}

// HashtagCount is the number of recent posts carrying a hashtag.
type HashtagCount struct {
	Name  string
	Count int64
}

// Store is the read-only query surface the engine consumes.
// Implementations must honor context cancellation; the engine never writes.
type Store interface {
	// AccountExists reports whether userID identifies a known account.
	AccountExists(ctx context.Context, userID string) (bool, error)

	// RecentLikes returns the user's likes, newest first, enriched with the
	// liked post's hashtags, media flag and author.
	RecentLikes(ctx context.Context, userID string, limit int) ([]InteractionRecord, error)

	// Following returns the IDs of accounts the user follows.
	Following(ctx context.Context, userID string) ([]string, error)

	// RecentPosts returns posts ordered by created_at DESC, id ASC.
	RecentPosts(ctx context.Context, q PostQuery) ([]CandidatePost, error)

	// HashtagCounts returns per-hashtag post counts for posts created at or after since.
	HashtagCounts(ctx context.Context, since time.Time) ([]HashtagCount, error)

	// AccountsByHashtags returns accounts whose liked posts share hashtags with
	// q.Hashtags, with SharedHashtags populated.
	AccountsByHashtags(ctx context.Context, q AccountQuery) ([]CandidateAccount, error)

	// PopularAccounts returns accounts ordered by followers_count DESC, id ASC.
	PopularAccounts(ctx context.Context, excludeIDs []string, limit int) ([]CandidateAccount, error)
}
