// Package recommend implements the personalized recommendation and ranking
// engine: it turns a user's like history into a preference profile, pulls
// candidate posts, hashtags and accounts from a read-only store, scores them
// with an additive explainable model and ranks them deterministically.
package recommend

import (
	"fmt"
	"time"
)

// Kind selects which recommendation list to produce.
type Kind string

// Recommendation kinds.
const (
	KindPosts    Kind = "posts"
	KindHashtags Kind = "hashtags"
	KindAccounts Kind = "accounts"
)

// ParseKind converts a raw string into a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindPosts, KindHashtags, KindAccounts:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
}

// Strategy records how a result list was produced.
type Strategy string

// Ranking strategies. A list is produced by exactly one of them.
const (
	StrategyPersonalized       Strategy = "personalized"
	StrategyPopularityFallback Strategy = "popularity_fallback"
)

// InteractionRecord is one positive signal (a like) enriched with the liked
// item's hashtags, media flag and author.
type InteractionRecord struct {
	ID           int64     `json:"id"`
	UserID       string    `json:"user_id"`
	ItemID       string    `json:"item_id"`
	ItemHashtags []string  `json:"item_hashtags"`
	ItemHasMedia bool      `json:"item_has_media"`
	ItemAuthorID string    `json:"item_author_id"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// PreferenceProfile is the per-request summary of a user's likes.
// It is never persisted.
type PreferenceProfile struct {
	// PreferredHashtags holds at most MaxPreferredHashtags normalized tags,
	// ordered by descending frequency then first-seen order.
	PreferredHashtags []string `json:"preferred_hashtags"`
	// MediaAffinity is the share of liked items carrying media, in [0, 1].
	// NeutralMediaAffinity when there is no history.
	MediaAffinity float64 `json:"media_affinity"`
	// SampleSize is the number of interactions the profile was built from.
	SampleSize int `json:"sample_size"`
}

// HasHashtags reports whether the profile carries any hashtag preference.
func (p PreferenceProfile) HasHashtags() bool {
	return len(p.PreferredHashtags) > 0
}

// CandidatePost is a post eligible for recommendation.
// Counters are denormalized values supplied by the store.
type CandidatePost struct {
	ID           string    `json:"id"`
	AuthorID     string    `json:"author_id"`
	Hashtags     []string  `json:"hashtags"`
	HasMedia     bool      `json:"has_media"`
	CreatedAt    time.Time `json:"created_at"`
	LikesCount   int64     `json:"likes_count"`
	RepostsCount int64     `json:"reposts_count"`
	RepliesCount int64     `json:"replies_count"`
}

// ScoreBreakdown lists every additive term of a post score.
type ScoreBreakdown struct {
	Follow     float64 `json:"follow"`
	Hashtag    float64 `json:"hashtag"`
	Media      float64 `json:"media"`
	Recency    float64 `json:"recency"`
	Engagement float64 `json:"engagement"`
	Base       float64 `json:"base"`
}

// Total sums the terms in a fixed order so equal inputs give bit-identical scores.
func (b ScoreBreakdown) Total() float64 {
	return b.Follow + b.Hashtag + b.Media + b.Recency + b.Engagement + b.Base
}

// ScoredCandidate is a post together with its score and the preferences it matched.
type ScoredCandidate struct {
	Candidate       CandidatePost  `json:"candidate"`
	Score           float64        `json:"score"`
	MatchedHashtags []string       `json:"matched_hashtags"`
	Breakdown       ScoreBreakdown `json:"breakdown"`
}

// HashtagTrendEntry is a trending hashtag derived from the rolling window.
type HashtagTrendEntry struct {
	Name              string  `json:"name"`
	RecentCount       int64   `json:"recent_count"`
	UserAffinityBoost float64 `json:"user_affinity_boost"`
	Score             float64 `json:"score"`
}

// CandidateAccount is an account eligible for follow recommendation.
type CandidateAccount struct {
	ID             string   `json:"id"`
	Username       string   `json:"username,omitempty"`
	FollowersCount int64    `json:"followers_count"`
	SharedHashtags []string `json:"shared_hashtags,omitempty"`
	Score          float64  `json:"score"`
}

// Item is one entry of a recommendation list. Exactly one of Post, Hashtag or
// Account is set, as indicated by Kind.
type Item struct {
	Kind    Kind               `json:"kind"`
	Post    *ScoredCandidate   `json:"post,omitempty"`
	Hashtag *HashtagTrendEntry `json:"hashtag,omitempty"`
	Account *CandidateAccount  `json:"account,omitempty"`
}

// ID returns the identifier of the wrapped entry.
func (i Item) ID() string {
	switch i.Kind {
	case KindPosts:
		if i.Post != nil {
			return i.Post.Candidate.ID
		}
	case KindHashtags:
		if i.Hashtag != nil {
			return i.Hashtag.Name
		}
	case KindAccounts:
		if i.Account != nil {
			return i.Account.ID
		}
	}
	return ""
}

// ProfileSummary is the explanatory profile attached to every result.
type ProfileSummary struct {
	TopHashtags   []string `json:"top_hashtags"`
	MediaAffinity float64  `json:"media_affinity"`
	SampleSize    int      `json:"sample_size"`
}

// Request is a single recommendation request.
type Request struct {
	UserID string
	Kind   Kind
	Limit  int
}

// Result is the ranked output of a recommendation request.
type Result struct {
	Kind        Kind           `json:"kind"`
	Strategy    Strategy       `json:"strategy"`
	Items       []Item         `json:"items"`
	Profile     ProfileSummary `json:"profile_summary"`
	GeneratedAt time.Time      `json:"generated_at"`
}

func summarize(p PreferenceProfile) ProfileSummary {
	top := make([]string, len(p.PreferredHashtags))
	copy(top, p.PreferredHashtags)
	return ProfileSummary{
		TopHashtags:   top,
		MediaAffinity: p.MediaAffinity,
		SampleSize:    p.SampleSize,
	}
}
