package recommend

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"
)

func TestCandidateGenerator_Posts(t *testing.T) {
	store := NewInMemoryStore()
	store.AddPost(CandidatePost{ID: "own", AuthorID: "u", Hashtags: []string{"policy"}, CreatedAt: fixedNow})
	store.AddPost(CandidatePost{ID: "tagged", AuthorID: "a1", Hashtags: []string{"Policy"}, CreatedAt: fixedNow.Add(-10 * 24 * time.Hour)})
	store.AddPost(CandidatePost{ID: "followed", AuthorID: "a2", CreatedAt: fixedNow.Add(-9 * 24 * time.Hour)})
	store.AddPost(CandidatePost{ID: "fresh1", AuthorID: "a3", CreatedAt: fixedNow.Add(-time.Minute)})
	store.AddPost(CandidatePost{ID: "fresh2", AuthorID: "a3", CreatedAt: fixedNow.Add(-2 * time.Minute)})

	gen := NewCandidateGenerator(store, CandidateOptions{})
	profile := PreferenceProfile{PreferredHashtags: []string{"policy"}, MediaAffinity: 0.5}
	following := map[string]struct{}{"a2": {}}

	t.Run("biased then followed then recent", func(t *testing.T) {
		got, err := gen.Posts(context.Background(), "u", profile, following, 10, fixedNow)
		if err != nil {
			t.Fatalf("Posts() error = %v", err)
		}
		var ids []string
		for _, p := range got {
			ids = append(ids, p.ID)
		}
		want := []string{"tagged", "followed", "fresh1", "fresh2"}
		if !reflect.DeepEqual(ids, want) {
			t.Errorf("Posts() = %v, want %v", ids, want)
		}
	})

	t.Run("over-fetch bounded", func(t *testing.T) {
		got, err := gen.Posts(context.Background(), "u", profile, following, 1, fixedNow)
		if err != nil {
			t.Fatalf("Posts() error = %v", err)
		}
		if len(got) != 2 {
			t.Errorf("len = %d, want 2", len(got))
		}
	})

	t.Run("never includes own posts", func(t *testing.T) {
		got, err := gen.Posts(context.Background(), "u", PreferenceProfile{}, nil, 50, fixedNow)
		if err != nil {
			t.Fatalf("Posts() error = %v", err)
		}
		for _, p := range got {
			if p.AuthorID == "u" {
				t.Errorf("Posts() returned own post %q", p.ID)
			}
		}
	})

	t.Run("post window", func(t *testing.T) {
		windowed := NewCandidateGenerator(store, CandidateOptions{PostWindow: 24 * time.Hour})
		got, err := windowed.Posts(context.Background(), "u", profile, following, 10, fixedNow)
		if err != nil {
			t.Fatalf("Posts() error = %v", err)
		}
		if len(got) != 2 {
			t.Errorf("len = %d, want 2 fresh posts", len(got))
		}
	})
}

func TestCandidateGenerator_PostsFollowedShare(t *testing.T) {
	store := newScenarioStore()
	store.AddPost(CandidatePost{ID: "fresh", AuthorID: "a5", CreatedAt: fixedNow.Add(-time.Minute)})
	gen := NewCandidateGenerator(store, CandidateOptions{})

	profile := PreferenceProfile{PreferredHashtags: []string{"policy", "climate", "music"}, MediaAffinity: 2.0 / 3.0}
	following := map[string]struct{}{"a5": {}}

	got, err := gen.Posts(context.Background(), "u", profile, following, 1, fixedNow)
	if err != nil {
		t.Fatalf("Posts() error = %v", err)
	}
	var ids []string
	for _, p := range got {
		ids = append(ids, p.ID)
	}
	want := []string{"p3", "fresh"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("Posts() = %v, want %v", ids, want)
	}
}

func TestMergePools(t *testing.T) {
	post := func(id, author string) CandidatePost { return CandidatePost{ID: id, AuthorID: author} }
	biased := []CandidatePost{post("b1", "a1"), post("b2", "a1"), post("b3", "a1")}
	followed := []CandidatePost{post("b1", "a1"), post("f1", "a2"), post("f2", "a2")}
	recent := []CandidatePost{post("own", "u"), post("r1", "a3"), post("f1", "a2")}

	tests := []struct {
		name         string
		share, fetch int
		want         []string
	}{
		{"each pool gets its share", 1, 3, []string{"b1", "f1", "r1"}},
		{"top up in pool order", 1, 5, []string{"b1", "f1", "r1", "b2", "b3"}},
		{"budget caps shares", 2, 2, []string{"b1", "b2"}},
		{"everything fits", 10, 20, []string{"b1", "b2", "b3", "f1", "f2", "r1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ids []string
			for _, p := range mergePools("u", tt.share, tt.fetch, biased, followed, recent) {
				ids = append(ids, p.ID)
			}
			if !reflect.DeepEqual(ids, tt.want) {
				t.Errorf("mergePools() = %v, want %v", ids, tt.want)
			}
		})
	}
}

func TestCandidateGenerator_Hashtags(t *testing.T) {
	store := newScenarioStore()
	store.AddPost(CandidatePost{ID: "old", AuthorID: "a4", Hashtags: []string{"history"}, CreatedAt: fixedNow.Add(-8 * 24 * time.Hour)})
	store.AddPost(CandidatePost{ID: "p4", AuthorID: "a4", Hashtags: []string{"#POLICY", "art"}, CreatedAt: fixedNow.Add(-time.Hour)})

	gen := NewCandidateGenerator(store, CandidateOptions{})
	entries, affinity, err := gen.Hashtags(context.Background(), "u", fixedNow)
	if err != nil {
		t.Fatalf("Hashtags() error = %v", err)
	}

	counts := make(map[string]int64)
	for _, e := range entries {
		counts[e.Name] = e.RecentCount
	}
	want := map[string]int64{"policy": 3, "climate": 1, "music": 1, "art": 1}
	if !reflect.DeepEqual(counts, want) {
		t.Errorf("counts = %v, want %v", counts, want)
	}

	for _, tag := range []string{"policy", "climate", "music"} {
		if _, ok := affinity[tag]; !ok {
			t.Errorf("affinity missing %q", tag)
		}
	}
	if _, ok := affinity["art"]; ok {
		t.Error("affinity should not contain art")
	}
}

func TestCandidateGenerator_Accounts(t *testing.T) {
	store := newScenarioStore()
	store.AddLike("a4", "p2", fixedNow.Add(-time.Hour))
	store.AddLike("a5", "p1", fixedNow.Add(-time.Hour))
	store.AddLike("a6", "p3", fixedNow.Add(-40*24*time.Hour))

	gen := NewCandidateGenerator(store, CandidateOptions{})
	following := map[string]struct{}{"a5": {}}

	got, err := gen.Accounts(context.Background(), "u", []string{"policy", "climate", "music"}, following, 10, fixedNow)
	if err != nil {
		t.Fatalf("Accounts() error = %v", err)
	}

	// a5 is followed, a6 liked outside the account window and u is the requester
	if len(got) != 1 || got[0].ID != "a4" {
		t.Fatalf("Accounts() = %+v, want only a4", got)
	}
	if !reflect.DeepEqual(got[0].SharedHashtags, []string{"policy"}) {
		t.Errorf("SharedHashtags = %v, want [policy]", got[0].SharedHashtags)
	}

	empty, err := gen.Accounts(context.Background(), "u", nil, following, 10, fixedNow)
	if err != nil {
		t.Fatalf("Accounts() error = %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("Accounts() without liked hashtags = %v, want empty", empty)
	}
}

func TestCandidateGenerator_StoreFailure(t *testing.T) {
	gen := NewCandidateGenerator(FailingStore{Err: errors.New("down")}, CandidateOptions{})
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{"posts", func() error {
			_, err := gen.Posts(ctx, "u", PreferenceProfile{}, nil, 5, fixedNow)
			return err
		}},
		{"hashtags", func() error {
			_, _, err := gen.Hashtags(ctx, "u", fixedNow)
			return err
		}},
		{"accounts", func() error {
			_, err := gen.Accounts(ctx, "u", []string{"policy"}, nil, 5, fixedNow)
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, ErrDataUnavailable) {
				t.Errorf("error = %v, want ErrDataUnavailable", err)
			}
		})
	}
}

func TestCandidateGenerator_PostsDeduplicates(t *testing.T) {
	store := NewInMemoryStore()
	for i := 0; i < 5; i++ {
		store.AddPost(CandidatePost{
			ID:        fmt.Sprintf("p%d", i),
			AuthorID:  "a1",
			Hashtags:  []string{"policy"},
			CreatedAt: fixedNow.Add(-time.Duration(i) * time.Hour),
		})
	}

	gen := NewCandidateGenerator(store, CandidateOptions{})
	got, err := gen.Posts(context.Background(), "u",
		PreferenceProfile{PreferredHashtags: []string{"policy"}},
		map[string]struct{}{"a1": {}}, 10, fixedNow)
	if err != nil {
		t.Fatalf("Posts() error = %v", err)
	}

	seen := make(map[string]bool)
	for _, p := range got {
		if seen[p.ID] {
			t.Errorf("duplicate candidate %q", p.ID)
		}
		seen[p.ID] = true
	}
	if len(got) != 5 {
		t.Errorf("len = %d, want 5", len(got))
	}
}
