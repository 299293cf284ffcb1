package recommend

import "sort"

// Rank orders scored posts by score DESC, then candidate ID ASC, and truncates
// to limit. A non-positive limit keeps every entry. The input is not modified.
func Rank(scored []ScoredCandidate, limit int) []ScoredCandidate {
	return rankBy(scored, limit, func(a, b ScoredCandidate) bool {
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Candidate.ID < b.Candidate.ID
	})
}

// RankHashtags orders trend entries by score DESC, then name ASC.
func RankHashtags(entries []HashtagTrendEntry, limit int) []HashtagTrendEntry {
	return rankBy(entries, limit, func(a, b HashtagTrendEntry) bool {
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Name < b.Name
	})
}

// RankAccounts orders hashtag-overlap accounts by score DESC, then ID ASC.
func RankAccounts(accounts []CandidateAccount, limit int) []CandidateAccount {
	return rankBy(accounts, limit, func(a, b CandidateAccount) bool {
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.ID < b.ID
	})
}

// rankBy sorts a copy of items with less and truncates it to limit.
func rankBy[T any](items []T, limit int, less func(a, b T) bool) []T {
	out := make([]T, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		return less(out[i], out[j])
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// sortByPopularity orders accounts by followers_count DESC, then ID ASC.
func sortByPopularity(accounts []CandidateAccount) {
	sort.SliceStable(accounts, func(i, j int) bool {
		if accounts[i].FollowersCount != accounts[j].FollowersCount {
			return accounts[i].FollowersCount > accounts[j].FollowersCount
		}
		return accounts[i].ID < accounts[j].ID
	})
}
