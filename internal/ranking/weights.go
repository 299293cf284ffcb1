// Package ranking provides the individual scoring terms used by the
// recommendation engine, with calibration support.
package ranking

import (
	"math"
	"time"
)

// Day is the unit used for recency bucketing.
const Day = 24 * time.Hour

// FollowWeight returns w when the candidate's author is followed by the requester.
func FollowWeight(followed bool, w float64) float64 {
	if !followed {
		return 0.0
	}
	return w
}

// HashtagAffinityWeight returns w for every preferred hashtag the candidate carries.
func HashtagAffinityWeight(matches int, w float64) float64 {
	if matches <= 0 {
		return 0.0
	}
	return float64(matches) * w
}

// MediaPreferenceWeight rewards candidates that agree with the user's media leaning.
// It is bonus-only: a media post for a text-leaning user scores 0, not a penalty.
// An affinity of exactly 0.5 is neutral and never contributes.
func MediaPreferenceWeight(hasMedia bool, mediaAffinity float64, w PostWeights) float64 {
	switch {
	case hasMedia && mediaAffinity > 0.5:
		return w.MediaMatch
	case !hasMedia && mediaAffinity < 0.5:
		return w.TextMatch
	default:
		return 0.0
	}
}

// AgeInDays returns the whole number of days between createdAt and now.
// Timestamps in the future count as age zero.
func AgeInDays(createdAt, now time.Time) int {
	age := now.Sub(createdAt)
	if age < 0 {
		return 0
	}
	return int(age / Day)
}

// RecencyWeight buckets a candidate's age in whole days:
// under one day earns RecencyDay, under seven days earns RecencyWeek, older earns 0.
func RecencyWeight(createdAt, now time.Time, w PostWeights) float64 {
	days := AgeInDays(createdAt, now)
	switch {
	case days < 1:
		return w.RecencyDay
	case days < 7:
		return w.RecencyWeek
	default:
		return 0.0
	}
}

// EngagementWeight computes the capped engagement term:
//
//	min(scale * (likes*lw + reposts*rw + replies*pw), cap)
//
// Counts are converted to float64 before weighting so very large counters
// cannot overflow. Negative counters are treated as zero.
func EngagementWeight(likes, reposts, replies int64, w PostWeights) float64 {
	raw := float64(nonNegative(likes))*w.LikeWeight +
		float64(nonNegative(reposts))*w.RepostWeight +
		float64(nonNegative(replies))*w.ReplyWeight
	return math.Min(w.EngagementScale*raw, w.EngagementCap)
}

// TrendScore computes a hashtag's trending score.
// When the user has liked the hashtag before, recent_count*multiplier is added
// on top of the raw count.
func TrendScore(recentCount int64, personal bool, w HashtagWeights) float64 {
	base := float64(nonNegative(recentCount))
	if !personal {
		return base
	}
	return base + base*w.AffinityMultiplier
}

func nonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
