package recommend

import (
	"sort"
	"strings"
)

// MaxPreferredHashtags is the size of a profile's hashtag preference list.
const MaxPreferredHashtags = 10

// NeutralMediaAffinity is the media affinity assumed without history.
const NeutralMediaAffinity = 0.5

// NormalizeHashtag lower-cases a tag and strips surrounding space and a leading '#'.
func NormalizeHashtag(tag string) string {
	tag = strings.TrimSpace(tag)
	tag = strings.TrimPrefix(tag, "#")
	return strings.ToLower(strings.TrimSpace(tag))
}

// BuildProfile reduces an interaction history into a preference profile.
//
// Hashtags are counted case-insensitively across all interactions; the top
// MaxPreferredHashtags by count are kept, ties resolved by first-seen order.
// MediaAffinity is the fraction of interactions with media, or
// NeutralMediaAffinity when interactions is empty.
func BuildProfile(interactions []InteractionRecord) PreferenceProfile {
	if len(interactions) == 0 {
		return PreferenceProfile{
			PreferredHashtags: []string{},
			MediaAffinity:     NeutralMediaAffinity,
		}
	}

	counts := make(map[string]int)
	order := make([]string, 0)
	withMedia := 0

	for _, rec := range interactions {
		if rec.ItemHasMedia {
			withMedia++
		}
		seen := make(map[string]struct{}, len(rec.ItemHashtags))
		for _, raw := range rec.ItemHashtags {
			tag := NormalizeHashtag(raw)
			if tag == "" {
				continue
			}
			// A record's hashtags form a set
			if _, dup := seen[tag]; dup {
				continue
			}
			seen[tag] = struct{}{}
			if _, known := counts[tag]; !known {
				order = append(order, tag)
			}
			counts[tag]++
		}
	}

	// Stable sort keeps first-seen order among equal counts
	ranked := order
	sort.SliceStable(ranked, func(i, j int) bool {
		return counts[ranked[i]] > counts[ranked[j]]
	})
	if len(ranked) > MaxPreferredHashtags {
		ranked = ranked[:MaxPreferredHashtags]
	}

	return PreferenceProfile{
		PreferredHashtags: ranked,
		MediaAffinity:     float64(withMedia) / float64(len(interactions)),
		SampleSize:        len(interactions),
	}
}

// likedHashtags returns every distinct normalized hashtag across interactions
// in first-seen order.
func likedHashtags(interactions []InteractionRecord) []string {
	seen := make(map[string]struct{})
	var tags []string
	for _, rec := range interactions {
		for _, raw := range rec.ItemHashtags {
			tag := NormalizeHashtag(raw)
			if tag == "" {
				continue
			}
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			tags = append(tags, tag)
		}
	}
	return tags
}
