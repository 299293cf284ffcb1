package recommend

import (
	"context"
	"fmt"
	"reflect"
	"testing"
)

func TestNormalizeHashtag(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"policy", "policy"},
		{"Policy", "policy"},
		{"#Policy", "policy"},
		{"  #CLIMATE  ", "climate"},
		{"# music ", "music"},
		{"", ""},
		{"#", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.in), func(t *testing.T) {
			if got := NormalizeHashtag(tt.in); got != tt.want {
				t.Errorf("NormalizeHashtag(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestBuildProfile_Scenario(t *testing.T) {
	store := newScenarioStore()
	history, err := NewHistoryReader(store, 0).Interactions(context.Background(), "u", 0)
	if err != nil {
		t.Fatalf("Interactions() error = %v", err)
	}

	profile := BuildProfile(history)

	want := []string{"policy", "climate", "music"}
	if !reflect.DeepEqual(profile.PreferredHashtags, want) {
		t.Errorf("PreferredHashtags = %v, want %v", profile.PreferredHashtags, want)
	}
	if !approxEqual(profile.MediaAffinity, 2.0/3.0) {
		t.Errorf("MediaAffinity = %f, want %f", profile.MediaAffinity, 2.0/3.0)
	}
	if profile.SampleSize != 3 {
		t.Errorf("SampleSize = %d, want 3", profile.SampleSize)
	}
}

func TestBuildProfile_Empty(t *testing.T) {
	for _, in := range [][]InteractionRecord{nil, {}} {
		profile := BuildProfile(in)
		if profile.PreferredHashtags == nil || len(profile.PreferredHashtags) != 0 {
			t.Errorf("PreferredHashtags = %#v, want empty non-nil slice", profile.PreferredHashtags)
		}
		if profile.MediaAffinity != NeutralMediaAffinity {
			t.Errorf("MediaAffinity = %f, want %f", profile.MediaAffinity, NeutralMediaAffinity)
		}
		if profile.SampleSize != 0 {
			t.Errorf("SampleSize = %d, want 0", profile.SampleSize)
		}
	}
}

func TestBuildProfile_Normalization(t *testing.T) {
	profile := BuildProfile([]InteractionRecord{
		{ID: 1, ItemID: "x", ItemHashtags: []string{"#Policy", "policy", "POLICY"}},
		{ID: 2, ItemID: "y", ItemHashtags: []string{" policy ", "", "#", "Art"}},
		{ID: 3, ItemID: "z", ItemHashtags: []string{"art", "film"}},
	})

	// Duplicates within one record count once
	want := []string{"policy", "art", "film"}
	if !reflect.DeepEqual(profile.PreferredHashtags, want) {
		t.Errorf("PreferredHashtags = %v, want %v", profile.PreferredHashtags, want)
	}
	if profile.MediaAffinity != 0 {
		t.Errorf("MediaAffinity = %f, want 0", profile.MediaAffinity)
	}
}

func TestBuildProfile_TruncatesToTop10(t *testing.T) {
	var records []InteractionRecord
	// tag00 appears 12 times, tag01 11 times, and so on
	for i := 0; i < 12; i++ {
		var tags []string
		for j := 0; j <= 11-i; j++ {
			tags = append(tags, fmt.Sprintf("tag%02d", j))
		}
		records = append(records, InteractionRecord{ID: int64(i), ItemID: fmt.Sprintf("p%d", i), ItemHashtags: tags, ItemHasMedia: i%2 == 0})
	}

	profile := BuildProfile(records)

	if len(profile.PreferredHashtags) != MaxPreferredHashtags {
		t.Fatalf("len(PreferredHashtags) = %d, want %d", len(profile.PreferredHashtags), MaxPreferredHashtags)
	}
	for i, tag := range profile.PreferredHashtags {
		if want := fmt.Sprintf("tag%02d", i); tag != want {
			t.Errorf("PreferredHashtags[%d] = %q, want %q", i, tag, want)
		}
	}
	if !approxEqual(profile.MediaAffinity, 0.5) {
		t.Errorf("MediaAffinity = %f, want 0.5", profile.MediaAffinity)
	}
}

func TestBuildProfile_TiesByFirstSeen(t *testing.T) {
	profile := BuildProfile([]InteractionRecord{
		{ID: 1, ItemID: "a", ItemHashtags: []string{"zeta"}},
		{ID: 2, ItemID: "b", ItemHashtags: []string{"alpha"}},
		{ID: 3, ItemID: "c", ItemHashtags: []string{"mid"}},
	})

	want := []string{"zeta", "alpha", "mid"}
	if !reflect.DeepEqual(profile.PreferredHashtags, want) {
		t.Errorf("PreferredHashtags = %v, want %v", profile.PreferredHashtags, want)
	}
}

func TestLikedHashtags(t *testing.T) {
	got := likedHashtags([]InteractionRecord{
		{ItemHashtags: []string{"B", "a"}},
		{ItemHashtags: []string{"#a", "c", ""}},
	})
	want := []string{"b", "a", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("likedHashtags() = %v, want %v", got, want)
	}
}
