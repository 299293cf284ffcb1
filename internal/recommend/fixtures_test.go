package recommend

import (
	"math"
	"time"
)

const epsilon = 1e-9

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

// newScenarioStore builds a store where user "u" liked three posts tagged
// [climate policy], [policy] and [music], the first two carrying media.
func newScenarioStore() *InMemoryStore {
	s := NewInMemoryStore()
	s.AddAccount(Account{ID: "u", Username: "u", FollowersCount: 3})
	for _, a := range []Account{
		{ID: "a1", Username: "alice", FollowersCount: 900},
		{ID: "a2", Username: "bob", FollowersCount: 800},
		{ID: "a3", Username: "carol", FollowersCount: 700},
		{ID: "a4", Username: "dave", FollowersCount: 600},
		{ID: "a5", Username: "erin", FollowersCount: 500},
		{ID: "a6", Username: "frank", FollowersCount: 400},
		{ID: "a7", Username: "grace", FollowersCount: 300},
		{ID: "a8", Username: "heidi", FollowersCount: 200},
	} {
		s.AddAccount(a)
	}

	s.AddPost(CandidatePost{ID: "p1", AuthorID: "a1", Hashtags: []string{"climate", "policy"}, HasMedia: true, CreatedAt: fixedNow.Add(-72 * time.Hour)})
	s.AddPost(CandidatePost{ID: "p2", AuthorID: "a2", Hashtags: []string{"policy"}, HasMedia: true, CreatedAt: fixedNow.Add(-48 * time.Hour)})
	s.AddPost(CandidatePost{ID: "p3", AuthorID: "a3", Hashtags: []string{"music"}, CreatedAt: fixedNow.Add(-24 * time.Hour)})

	// Newest first: p1, p2, p3
	s.AddLike("u", "p1", fixedNow.Add(-1*time.Hour))
	s.AddLike("u", "p2", fixedNow.Add(-2*time.Hour))
	s.AddLike("u", "p3", fixedNow.Add(-3*time.Hour))
	return s
}

func newTestEngine(store Store) *Engine {
	return NewEngine(store, Config{
		Now: func() time.Time { return fixedNow },
	})
}
