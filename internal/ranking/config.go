package ranking

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/goccy/go-json"
)

// PostWeights defines the additive term weights for post recommendations.
type PostWeights struct {
	Follow          float64 `json:"follow"`           // Author is followed (default: 5)
	HashtagMatch    float64 `json:"hashtag_match"`    // Per preferred hashtag matched (default: 3)
	MediaMatch      float64 `json:"media_match"`      // Media post for a media-leaning user (default: 2)
	TextMatch       float64 `json:"text_match"`       // Text-only post for a text-leaning user (default: 1)
	RecencyDay      float64 `json:"recency_day"`      // Younger than one day (default: 2)
	RecencyWeek     float64 `json:"recency_week"`     // Younger than seven days (default: 1)
	LikeWeight      float64 `json:"like_weight"`      // Engagement multiplier for likes (default: 1)
	RepostWeight    float64 `json:"repost_weight"`    // Engagement multiplier for reposts (default: 2)
	ReplyWeight     float64 `json:"reply_weight"`     // Engagement multiplier for replies (default: 3)
	EngagementScale float64 `json:"engagement_scale"` // Scale applied to the weighted counts (default: 0.1)
	EngagementCap   float64 `json:"engagement_cap"`   // Upper bound for the engagement term (default: 5)
	Base            float64 `json:"base"`             // Baseline every candidate receives (default: 1)
}

// HashtagWeights defines the ranking weights for trending hashtags.
type HashtagWeights struct {
	// AffinityMultiplier is the extra multiple of recent_count granted to hashtags
	// the user has liked before (default: 2, i.e. 3x total).
	AffinityMultiplier float64 `json:"affinity_multiplier"`
}

// Weights holds all ranking weight configurations.
type Weights struct {
	Post    PostWeights    `json:"post"`    // Post recommendation weights
	Hashtag HashtagWeights `json:"hashtag"` // Hashtag trend weights
}

// CalibrationConfig represents the JSON structure of the calibration file.
type CalibrationConfig struct {
	Version string  `json:"version"` // Config version for future compatibility
	Weights Weights `json:"weights"` // Weight configurations
}

// DefaultWeights returns the default ranking weight configuration.
//
// Post formula:
//
//	score = follow(5) + 3*matched_hashtags + media(2|1|0) + recency(2|1|0)
//	      + min(0.1*(likes + 2*reposts + 3*replies), 5) + 1
//
// Hashtag formula:
//
//	score = recent_count + 2*recent_count (only when the user liked the hashtag)
func DefaultWeights() *Weights {
	return &Weights{
		Post: PostWeights{
			Follow:          5,
			HashtagMatch:    3,
			MediaMatch:      2,
			TextMatch:       1,
			RecencyDay:      2,
			RecencyWeek:     1,
			LikeWeight:      1,
			RepostWeight:    2,
			ReplyWeight:     3,
			EngagementScale: 0.1,
			EngagementCap:   5,
			Base:            1,
		},
		Hashtag: HashtagWeights{
			AffinityMultiplier: 2,
		},
	}
}

// LoadCalibration loads ranking weights from a JSON calibration file.
// An empty path yields the defaults. On any read or parse error the defaults
// are returned together with the error so callers can keep serving.
// Partial configurations are merged onto the defaults.
func LoadCalibration(filePath string) (*Weights, error) {
	if filePath == "" {
		return DefaultWeights(), nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		slog.Warn("failed to read calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), fmt.Errorf("failed to read calibration file: %w", err)
	}

	var config CalibrationConfig
	if err := json.Unmarshal(data, &config); err != nil {
		slog.Warn("failed to parse calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), fmt.Errorf("failed to parse calibration file: %w", err)
	}

	defaults := DefaultWeights()
	merged := MergeCalibration(defaults, &config.Weights)
	logCalibrationOverrides(defaults, merged)

	return merged, nil
}

// MergeCalibration merges override weights onto base weights.
// Only non-zero override values are applied.
func MergeCalibration(base *Weights, override *Weights) *Weights {
	if base == nil {
		return DefaultWeights()
	}

	result := *base
	if override == nil {
		return &result
	}

	mergeFloat(&result.Post.Follow, override.Post.Follow)
	mergeFloat(&result.Post.HashtagMatch, override.Post.HashtagMatch)
	mergeFloat(&result.Post.MediaMatch, override.Post.MediaMatch)
	mergeFloat(&result.Post.TextMatch, override.Post.TextMatch)
	mergeFloat(&result.Post.RecencyDay, override.Post.RecencyDay)
	mergeFloat(&result.Post.RecencyWeek, override.Post.RecencyWeek)
	mergeFloat(&result.Post.LikeWeight, override.Post.LikeWeight)
	mergeFloat(&result.Post.RepostWeight, override.Post.RepostWeight)
	mergeFloat(&result.Post.ReplyWeight, override.Post.ReplyWeight)
	mergeFloat(&result.Post.EngagementScale, override.Post.EngagementScale)
	mergeFloat(&result.Post.EngagementCap, override.Post.EngagementCap)
	mergeFloat(&result.Post.Base, override.Post.Base)

	mergeFloat(&result.Hashtag.AffinityMultiplier, override.Hashtag.AffinityMultiplier)

	return &result
}

func mergeFloat(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}

// logCalibrationOverrides logs which weights differ from the defaults.
func logCalibrationOverrides(defaults *Weights, loaded *Weights) {
	var overrides []string

	check := func(name string, def, got float64) {
		if def != got {
			overrides = append(overrides, fmt.Sprintf("%s: %.2f -> %.2f", name, def, got))
		}
	}

	check("post.follow", defaults.Post.Follow, loaded.Post.Follow)
	check("post.hashtag_match", defaults.Post.HashtagMatch, loaded.Post.HashtagMatch)
	check("post.media_match", defaults.Post.MediaMatch, loaded.Post.MediaMatch)
	check("post.text_match", defaults.Post.TextMatch, loaded.Post.TextMatch)
	check("post.recency_day", defaults.Post.RecencyDay, loaded.Post.RecencyDay)
	check("post.recency_week", defaults.Post.RecencyWeek, loaded.Post.RecencyWeek)
	check("post.like_weight", defaults.Post.LikeWeight, loaded.Post.LikeWeight)
	check("post.repost_weight", defaults.Post.RepostWeight, loaded.Post.RepostWeight)
	check("post.reply_weight", defaults.Post.ReplyWeight, loaded.Post.ReplyWeight)
	check("post.engagement_scale", defaults.Post.EngagementScale, loaded.Post.EngagementScale)
	check("post.engagement_cap", defaults.Post.EngagementCap, loaded.Post.EngagementCap)
	check("post.base", defaults.Post.Base, loaded.Post.Base)
	check("hashtag.affinity_multiplier", defaults.Hashtag.AffinityMultiplier, loaded.Hashtag.AffinityMultiplier)

	if len(overrides) > 0 {
		slog.Info("loaded ranking calibration with overrides",
			"overrides", overrides)
	} else {
		slog.Info("loaded ranking calibration (using all defaults)")
	}
}
