package ranking

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
)

// TestDefaultWeights verifies the default weight configuration.
func TestDefaultWeights(t *testing.T) {
	weights := DefaultWeights()

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"post.follow", weights.Post.Follow, 5},
		{"post.hashtag_match", weights.Post.HashtagMatch, 3},
		{"post.media_match", weights.Post.MediaMatch, 2},
		{"post.text_match", weights.Post.TextMatch, 1},
		{"post.recency_day", weights.Post.RecencyDay, 2},
		{"post.recency_week", weights.Post.RecencyWeek, 1},
		{"post.like_weight", weights.Post.LikeWeight, 1},
		{"post.repost_weight", weights.Post.RepostWeight, 2},
		{"post.reply_weight", weights.Post.ReplyWeight, 3},
		{"post.engagement_scale", weights.Post.EngagementScale, 0.1},
		{"post.engagement_cap", weights.Post.EngagementCap, 5},
		{"post.base", weights.Post.Base, 1},
		{"hashtag.affinity_multiplier", weights.Hashtag.AffinityMultiplier, 2},
	}

	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("expected %s %v, got %v", c.name, c.want, c.got)
		}
	}
}

// TestLoadCalibration_DefaultFile tests loading the shipped calibration file.
func TestLoadCalibration_DefaultFile(t *testing.T) {
	configPath := filepath.Join("..", "..", "configs", "ranking.calibration.json")
	weights, err := LoadCalibration(configPath)

	if _, statErr := os.Stat(configPath); statErr != nil {
		t.Skipf("calibration file not present: %v", statErr)
	}
	if err != nil {
		t.Fatalf("expected no error loading default calibration file, got: %v", err)
	}

	if !weightsEqual(weights, DefaultWeights()) {
		t.Errorf("loaded weights don't match defaults:\nloaded: %+v\ndefaults: %+v",
			weights, DefaultWeights())
	}
}

// TestLoadCalibration_EmptyPath tests loading with empty file path.
func TestLoadCalibration_EmptyPath(t *testing.T) {
	weights, err := LoadCalibration("")
	if err != nil {
		t.Errorf("expected no error with empty path, got: %v", err)
	}
	if !weightsEqual(weights, DefaultWeights()) {
		t.Error("should return defaults when path is empty")
	}
}

// TestLoadCalibration_NonExistentFile tests loading a non-existent file.
func TestLoadCalibration_NonExistentFile(t *testing.T) {
	weights, err := LoadCalibration("/nonexistent/path/to/file.json")
	if err == nil {
		t.Error("expected error when file doesn't exist")
	}
	if !weightsEqual(weights, DefaultWeights()) {
		t.Error("should return defaults when file doesn't exist")
	}
}

// TestLoadCalibration_PartialOverride tests that a partial file only overrides what it names.
func TestLoadCalibration_PartialOverride(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "partial.json")

	cfg := CalibrationConfig{
		Version: "1.0",
		Weights: Weights{
			Post:    PostWeights{Follow: 8, EngagementCap: 3},
			Hashtag: HashtagWeights{AffinityMultiplier: 4},
		},
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("failed to marshal config: %v", err)
	}
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}

	weights, err := LoadCalibration(tmpFile)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if weights.Post.Follow != 8 {
		t.Errorf("expected post.follow 8, got %v", weights.Post.Follow)
	}
	if weights.Post.EngagementCap != 3 {
		t.Errorf("expected post.engagement_cap 3, got %v", weights.Post.EngagementCap)
	}
	if weights.Hashtag.AffinityMultiplier != 4 {
		t.Errorf("expected hashtag.affinity_multiplier 4, got %v", weights.Hashtag.AffinityMultiplier)
	}
	// Untouched values keep their defaults
	if weights.Post.HashtagMatch != 3 {
		t.Errorf("expected post.hashtag_match default 3, got %v", weights.Post.HashtagMatch)
	}
	if weights.Post.Base != 1 {
		t.Errorf("expected post.base default 1, got %v", weights.Post.Base)
	}
}

// TestLoadCalibration_InvalidJSON tests loading invalid JSON.
func TestLoadCalibration_InvalidJSON(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "invalid.json")
	if err := os.WriteFile(tmpFile, []byte("{invalid json}"), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}

	weights, err := LoadCalibration(tmpFile)
	if err == nil {
		t.Error("expected error when JSON is invalid")
	}
	if !weightsEqual(weights, DefaultWeights()) {
		t.Error("should return defaults when JSON is invalid")
	}
}

// TestMergeCalibration tests merging override weights with defaults.
func TestMergeCalibration(t *testing.T) {
	t.Run("nil base returns defaults", func(t *testing.T) {
		merged := MergeCalibration(nil, &Weights{Post: PostWeights{Follow: 9}})
		if !weightsEqual(merged, DefaultWeights()) {
			t.Error("expected defaults for nil base")
		}
	})

	t.Run("nil override copies base", func(t *testing.T) {
		base := DefaultWeights()
		merged := MergeCalibration(base, nil)
		if merged == base {
			t.Error("expected a copy, got the same pointer")
		}
		if !weightsEqual(merged, base) {
			t.Error("expected copy to equal base")
		}
	})

	t.Run("zero values are ignored", func(t *testing.T) {
		merged := MergeCalibration(DefaultWeights(), &Weights{})
		if !weightsEqual(merged, DefaultWeights()) {
			t.Error("empty override should not change anything")
		}
	})

	t.Run("base is not mutated", func(t *testing.T) {
		base := DefaultWeights()
		_ = MergeCalibration(base, &Weights{Post: PostWeights{Base: 10}})
		if base.Post.Base != 1 {
			t.Errorf("base mutated: post.base = %v", base.Post.Base)
		}
	})
}

// weightsEqual compares two Weights structs for equality with floating point tolerance.
func weightsEqual(a, b *Weights) bool {
	const epsilon = 0.001

	pairs := [][2]float64{
		{a.Post.Follow, b.Post.Follow},
		{a.Post.HashtagMatch, b.Post.HashtagMatch},
		{a.Post.MediaMatch, b.Post.MediaMatch},
		{a.Post.TextMatch, b.Post.TextMatch},
		{a.Post.RecencyDay, b.Post.RecencyDay},
		{a.Post.RecencyWeek, b.Post.RecencyWeek},
		{a.Post.LikeWeight, b.Post.LikeWeight},
		{a.Post.RepostWeight, b.Post.RepostWeight},
		{a.Post.ReplyWeight, b.Post.ReplyWeight},
		{a.Post.EngagementScale, b.Post.EngagementScale},
		{a.Post.EngagementCap, b.Post.EngagementCap},
		{a.Post.Base, b.Post.Base},
		{a.Hashtag.AffinityMultiplier, b.Hashtag.AffinityMultiplier},
	}
	for _, p := range pairs {
		if math.Abs(p[0]-p[1]) >= epsilon {
			return false
		}
	}
	return true
}
