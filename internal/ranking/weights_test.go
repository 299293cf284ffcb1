package ranking

import (
	"math"
	"testing"
	"time"
)

const floatTolerance = 1e-9

// TestFollowWeight tests the social proximity term.
func TestFollowWeight(t *testing.T) {
	if got := FollowWeight(true, 5); got != 5 {
		t.Errorf("expected 5 for followed author, got %f", got)
	}
	if got := FollowWeight(false, 5); got != 0 {
		t.Errorf("expected 0 for unfollowed author, got %f", got)
	}
}

// TestHashtagAffinityWeight tests the per-match hashtag term.
func TestHashtagAffinityWeight(t *testing.T) {
	tests := []struct {
		matches  int
		expected float64
	}{
		{-1, 0},
		{0, 0},
		{1, 3},
		{2, 6},
		{10, 30},
	}

	for _, tt := range tests {
		if got := HashtagAffinityWeight(tt.matches, 3); got != tt.expected {
			t.Errorf("HashtagAffinityWeight(%d) = %f, want %f", tt.matches, got, tt.expected)
		}
	}
}

// TestMediaPreferenceWeight tests the asymmetric media term.
func TestMediaPreferenceWeight(t *testing.T) {
	w := DefaultWeights().Post

	tests := []struct {
		name     string
		hasMedia bool
		affinity float64
		expected float64
	}{
		{"media post, media-leaning user", true, 0.8, 2},
		{"media post, text-leaning user", true, 0.2, 0},
		{"media post, neutral user", true, 0.5, 0},
		{"text post, text-leaning user", false, 0.2, 1},
		{"text post, media-leaning user", false, 0.8, 0},
		{"text post, neutral user", false, 0.5, 0},
		{"text post, 2/3 media user", false, 2.0 / 3.0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MediaPreferenceWeight(tt.hasMedia, tt.affinity, w)
			if got != tt.expected {
				t.Errorf("expected %f, got %f", tt.expected, got)
			}
			if got < 0 {
				t.Errorf("media term must never be negative, got %f", got)
			}
		})
	}
}

// TestRecencyWeight tests whole-day recency buckets.
func TestRecencyWeight(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	w := DefaultWeights().Post

	tests := []struct {
		name      string
		createdAt time.Time
		expected  float64
	}{
		{"just now", now, 2},
		{"12 hours ago", now.Add(-12 * time.Hour), 2},
		{"23h59m ago", now.Add(-24*time.Hour + time.Minute), 2},
		{"exactly one day ago", now.Add(-24 * time.Hour), 1},
		{"three days ago", now.Add(-72 * time.Hour), 1},
		{"six and a half days ago", now.Add(-156 * time.Hour), 1},
		{"exactly seven days ago", now.Add(-7 * Day), 0},
		{"a month ago", now.Add(-30 * Day), 0},
		{"in the future", now.Add(3 * time.Hour), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RecencyWeight(tt.createdAt, now, w); got != tt.expected {
				t.Errorf("expected %f, got %f", tt.expected, got)
			}
		})
	}
}

// TestEngagementWeight tests the capped engagement term.
func TestEngagementWeight(t *testing.T) {
	w := DefaultWeights().Post

	tests := []struct {
		name                    string
		likes, reposts, replies int64
		expected                float64
	}{
		{"no engagement", 0, 0, 0, 0},
		{"likes only", 10, 0, 0, 1.0},
		{"weighted mix", 10, 1, 0, 1.2},
		{"replies weigh triple", 0, 0, 5, 1.5},
		{"exactly at cap", 50, 0, 0, 5.0},
		{"above cap", 40, 10, 10, 5.0},
		{"viral post", 10_000_000, 0, 0, 5.0},
		{"all counters huge", math.MaxInt64, math.MaxInt64, math.MaxInt64, 5.0},
		{"negative counters ignored", -10, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EngagementWeight(tt.likes, tt.reposts, tt.replies, w)
			if math.Abs(got-tt.expected) > floatTolerance {
				t.Errorf("expected %f, got %f", tt.expected, got)
			}
			if got > w.EngagementCap {
				t.Errorf("engagement %f exceeds cap %f", got, w.EngagementCap)
			}
		})
	}
}

// TestTrendScore tests the multiplicative hashtag personalization.
func TestTrendScore(t *testing.T) {
	w := DefaultWeights().Hashtag

	if got := TrendScore(10, false, w); got != 10 {
		t.Errorf("expected 10 for impersonal hashtag, got %f", got)
	}
	if got := TrendScore(10, true, w); got != 30 {
		t.Errorf("expected 30 (3x) for liked hashtag, got %f", got)
	}
	if got := TrendScore(0, true, w); got != 0 {
		t.Errorf("expected 0 for unused hashtag, got %f", got)
	}
}

// TestAgeInDays tests whole-day truncation.
func TestAgeInDays(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	if got := AgeInDays(now.Add(-47*time.Hour), now); got != 1 {
		t.Errorf("expected 1 day, got %d", got)
	}
	if got := AgeInDays(now.Add(48*time.Hour), now); got != 0 {
		t.Errorf("expected future age to clamp to 0, got %d", got)
	}
}
