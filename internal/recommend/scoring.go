package recommend

import (
	"fmt"
	"time"

	"github.com/onnwee/feedrank/internal/ranking"
)

// Scorer assigns scores to candidates. It holds only immutable weights and is
// safe for concurrent use.
type Scorer struct {
	weights *ranking.Weights
}

// NewScorer creates a scorer. Nil weights use ranking.DefaultWeights.
func NewScorer(weights *ranking.Weights) *Scorer {
	if weights == nil {
		weights = ranking.DefaultWeights()
	}
	return &Scorer{weights: weights}
}

// Weights returns the weights the scorer was configured with.
func (s *Scorer) Weights() ranking.Weights {
	return *s.weights
}

// ScorePost scores a candidate post as the sum of independent terms:
// follow, hashtag affinity, media preference, recency, engagement and base.
// Candidates missing an ID or author, or carrying negative counters, return
// ErrMalformedCandidate.
func (s *Scorer) ScorePost(c CandidatePost, profile PreferenceProfile, following map[string]struct{}, now time.Time) (ScoredCandidate, error) {
	if err := validatePost(c); err != nil {
		return ScoredCandidate{}, err
	}

	w := s.weights.Post
	matched := matchHashtags(c.Hashtags, profile.PreferredHashtags)
	_, followed := following[c.AuthorID]

	b := ScoreBreakdown{
		Follow:     ranking.FollowWeight(followed, w.Follow),
		Hashtag:    ranking.HashtagAffinityWeight(len(matched), w.HashtagMatch),
		Media:      ranking.MediaPreferenceWeight(c.HasMedia, profile.MediaAffinity, w),
		Recency:    ranking.RecencyWeight(c.CreatedAt, now, w),
		Engagement: ranking.EngagementWeight(c.LikesCount, c.RepostsCount, c.RepliesCount, w),
		Base:       w.Base,
	}

	return ScoredCandidate{
		Candidate:       c,
		Score:           b.Total(),
		MatchedHashtags: matched,
		Breakdown:       b,
	}, nil
}

// ScoreHashtag scores a trend entry: recent_count, plus recent_count times the
// affinity multiplier when the user has liked the hashtag.
func (s *Scorer) ScoreHashtag(e HashtagTrendEntry, affinity map[string]struct{}) HashtagTrendEntry {
	_, personal := affinity[e.Name]
	score := ranking.TrendScore(e.RecentCount, personal, s.weights.Hashtag)
	e.Score = score
	e.UserAffinityBoost = score - float64(e.RecentCount)
	if e.UserAffinityBoost < 0 {
		e.UserAffinityBoost = 0
	}
	return e
}

// ScoreAccount scores a hashtag-overlap account by the number of distinct
// hashtags it shares with the requester.
func (s *Scorer) ScoreAccount(a CandidateAccount) (CandidateAccount, error) {
	if a.ID == "" {
		return CandidateAccount{}, fmt.Errorf("%w: account without id", ErrMalformedCandidate)
	}
	a.SharedHashtags = dedupeNormalized(a.SharedHashtags)
	a.Score = float64(len(a.SharedHashtags))
	return a, nil
}

func validatePost(c CandidatePost) error {
	switch {
	case c.ID == "":
		return fmt.Errorf("%w: post without id", ErrMalformedCandidate)
	case c.AuthorID == "":
		return fmt.Errorf("%w: post %s without author", ErrMalformedCandidate, c.ID)
	case c.CreatedAt.IsZero():
		return fmt.Errorf("%w: post %s without created_at", ErrMalformedCandidate, c.ID)
	case c.LikesCount < 0 || c.RepostsCount < 0 || c.RepliesCount < 0:
		return fmt.Errorf("%w: post %s has negative counters", ErrMalformedCandidate, c.ID)
	}
	return nil
}

// matchHashtags returns the candidate's distinct normalized hashtags that
// appear in preferred, in candidate order.
func matchHashtags(candidate []string, preferred []string) []string {
	matched := []string{}
	if len(preferred) == 0 {
		return matched
	}
	pref := make(map[string]struct{}, len(preferred))
	for _, p := range preferred {
		pref[NormalizeHashtag(p)] = struct{}{}
	}
	for _, tag := range dedupeNormalized(candidate) {
		if _, ok := pref[tag]; ok {
			matched = append(matched, tag)
		}
	}
	return matched
}

// dedupeNormalized normalizes tags and drops empties and duplicates, keeping order.
func dedupeNormalized(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, raw := range tags {
		tag := NormalizeHashtag(raw)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
