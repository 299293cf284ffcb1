// Package ranking provides the individual scoring terms used by the
// recommendation engine, with calibration support.
//
// Basic Usage:
//
//	// Load calibration (typically at startup)
//	weights, err := ranking.LoadCalibration("configs/ranking.calibration.json")
//	if err != nil {
//		slog.Warn("using default weights", "error", err)
//	}
//
//	// Score a post term by term
//	score := ranking.FollowWeight(followed, weights.Post.Follow) +
//		ranking.HashtagAffinityWeight(matches, weights.Post.HashtagMatch) +
//		ranking.MediaPreferenceWeight(post.HasMedia, profile.MediaAffinity, weights.Post) +
//		ranking.RecencyWeight(post.CreatedAt, now, weights.Post) +
//		ranking.EngagementWeight(post.LikesCount, post.RepostsCount, post.RepliesCount, weights.Post) +
//		weights.Post.Base
//
// Terms:
//
// Every term is independent and additive so each contribution can be audited
// in isolation. The only exception is TrendScore, which personalizes a single
// popularity signal with a multiplier.
//
// Calibration:
//
// Weights can be tuned at deploy time via a JSON file loaded at startup.
// Zero values in the file are ignored, so partial files only override what
// they name. See configs/ranking.calibration.json for the default configuration.
package ranking
