package recommend

import (
	"reflect"
	"testing"
)

func scoredIDs(scored []ScoredCandidate) []string {
	ids := make([]string, len(scored))
	for i, s := range scored {
		ids[i] = s.Candidate.ID
	}
	return ids
}

func TestRank(t *testing.T) {
	input := []ScoredCandidate{
		{Candidate: CandidatePost{ID: "c"}, Score: 3},
		{Candidate: CandidatePost{ID: "b"}, Score: 5},
		{Candidate: CandidatePost{ID: "a"}, Score: 3},
		{Candidate: CandidatePost{ID: "d"}, Score: 7},
	}

	tests := []struct {
		name  string
		limit int
		want  []string
	}{
		{"all", 10, []string{"d", "b", "a", "c"}},
		{"truncated", 2, []string{"d", "b"}},
		{"tie kept in id order", 3, []string{"d", "b", "a"}},
		{"zero limit keeps all", 0, []string{"d", "b", "a", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scoredIDs(Rank(input, tt.limit))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Rank() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	input := []ScoredCandidate{
		{Candidate: CandidatePost{ID: "b"}, Score: 1},
		{Candidate: CandidatePost{ID: "a"}, Score: 2},
	}
	before := scoredIDs(input)

	_ = Rank(input, 1)

	if got := scoredIDs(input); !reflect.DeepEqual(got, before) {
		t.Errorf("input reordered to %v, want %v", got, before)
	}
}

func TestRank_Empty(t *testing.T) {
	got := Rank(nil, 5)
	if got == nil || len(got) != 0 {
		t.Errorf("Rank(nil) = %#v, want empty non-nil slice", got)
	}
}

func TestRankHashtags(t *testing.T) {
	got := RankHashtags([]HashtagTrendEntry{
		{Name: "music", Score: 4},
		{Name: "art", Score: 4},
		{Name: "policy", Score: 12},
		{Name: "film", Score: 1},
	}, 3)

	var names []string
	for _, e := range got {
		names = append(names, e.Name)
	}
	want := []string{"policy", "art", "music"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("RankHashtags() = %v, want %v", names, want)
	}
}

func TestRankAccounts(t *testing.T) {
	got := RankAccounts([]CandidateAccount{
		{ID: "z", Score: 1},
		{ID: "y", Score: 2},
		{ID: "x", Score: 1},
	}, 0)

	var ids []string
	for _, a := range got {
		ids = append(ids, a.ID)
	}
	want := []string{"y", "x", "z"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("RankAccounts() = %v, want %v", ids, want)
	}
}

func TestSortByPopularity(t *testing.T) {
	accounts := []CandidateAccount{
		{ID: "b", FollowersCount: 10},
		{ID: "c", FollowersCount: 50},
		{ID: "a", FollowersCount: 10},
	}
	sortByPopularity(accounts)

	var ids []string
	for _, a := range accounts {
		ids = append(ids, a.ID)
	}
	want := []string{"c", "a", "b"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("sortByPopularity() = %v, want %v", ids, want)
	}
}
