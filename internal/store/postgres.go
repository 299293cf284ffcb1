// Package store provides the database-backed implementations of the
// recommendation read model.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/onnwee/feedrank/internal/recommend"
	"github.com/onnwee/feedrank/internal/tracing"
)

// PostgresStore implements recommend.Store using PostgreSQL.
// It only reads; writes belong to the services that own the tables.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// AccountExists reports whether the account is known.
func (s *PostgresStore) AccountExists(ctx context.Context, userID string) (exists bool, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "accounts", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	err = s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)`, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check account: %w", err)
	}
	return exists, nil
}

// RecentLikes returns the user's likes newest first, ties by like ID ascending,
// joined with the liked post. Likes of deleted posts are skipped.
func (s *PostgresStore) RecentLikes(ctx context.Context, userID string, limit int) (records []recommend.InteractionRecord, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "likes", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query := `
		SELECT l.id, l.user_id, p.id, p.hashtags, p.has_media, p.author_id, l.created_at
		FROM likes l
		JOIN posts p ON p.id = l.post_id
		WHERE l.user_id = $1 AND p.deleted_at IS NULL
		ORDER BY l.created_at DESC, l.id ASC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query likes: %w", err)
	}
	defer rows.Close()

	records = []recommend.InteractionRecord{}
	for rows.Next() {
		var r recommend.InteractionRecord
		var tags pq.StringArray
		if err = rows.Scan(&r.ID, &r.UserID, &r.ItemID, &tags, &r.ItemHasMedia, &r.ItemAuthorID, &r.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan like: %w", err)
		}
		r.ItemHashtags = []string(tags)
		records = append(records, r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating likes: %w", err)
	}
	return records, nil
}

// Following returns followee IDs in ascending order.
func (s *PostgresStore) Following(ctx context.Context, userID string) (ids []string, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "follows", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	rows, err := s.db.QueryContext(ctx,
		`SELECT followee_id FROM follows WHERE follower_id = $1 ORDER BY followee_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query follows: %w", err)
	}
	defer rows.Close()

	ids = []string{}
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan follow: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating follows: %w", err)
	}
	return ids, nil
}

// RecentPosts returns non-deleted posts matching q ordered by created_at DESC, id ASC.
func (s *PostgresStore) RecentPosts(ctx context.Context, q recommend.PostQuery) (posts []recommend.CandidatePost, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "posts", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query := `
		SELECT p.id, p.author_id, p.hashtags, p.has_media, p.created_at,
		       p.likes_count, p.reposts_count, p.replies_count
		FROM posts p
		WHERE p.deleted_at IS NULL
		  AND ($1 = '' OR p.author_id <> $1)
		  AND (cardinality($2::text[]) = 0 OR p.author_id = ANY($2::text[]))
		  AND (cardinality($3::text[]) = 0 OR p.hashtags && $3::text[])
		  AND ($4::timestamptz IS NULL OR p.created_at >= $4::timestamptz)
		ORDER BY p.created_at DESC, p.id ASC
		LIMIT $5
	`

	rows, err := s.db.QueryContext(ctx, query,
		q.ExcludeAuthorID,
		textArray(q.AuthorIDs),
		textArray(normalizeTags(q.Hashtags)),
		nullTime(q.Since),
		q.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	posts = []recommend.CandidatePost{}
	for rows.Next() {
		var p recommend.CandidatePost
		var tags pq.StringArray
		err = rows.Scan(
			&p.ID,
			&p.AuthorID,
			&tags,
			&p.HasMedia,
			&p.CreatedAt,
			&p.LikesCount,
			&p.RepostsCount,
			&p.RepliesCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		p.Hashtags = []string(tags)
		posts = append(posts, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating posts: %w", err)
	}
	return posts, nil
}

// HashtagCounts counts non-deleted posts per lower-cased hashtag created at or after since.
func (s *PostgresStore) HashtagCounts(ctx context.Context, since time.Time) (counts []recommend.HashtagCount, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "posts", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query := `
		SELECT lower(t.tag) AS name, COUNT(DISTINCT p.id) AS recent_count
		FROM posts p
		CROSS JOIN LATERAL unnest(p.hashtags) AS t(tag)
		WHERE p.deleted_at IS NULL AND p.created_at >= $1 AND t.tag <> ''
		GROUP BY lower(t.tag)
		ORDER BY recent_count DESC, name ASC
	`

	rows, err := s.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query hashtag counts: %w", err)
	}
	defer rows.Close()

	counts = []recommend.HashtagCount{}
	for rows.Next() {
		var c recommend.HashtagCount
		if err = rows.Scan(&c.Name, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan hashtag count: %w", err)
		}
		counts = append(counts, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating hashtag counts: %w", err)
	}
	return counts, nil
}

// AccountsByHashtags finds likers whose liked posts share hashtags with q.Hashtags.
// Results are ordered by distinct shared hashtags DESC, id ASC.
func (s *PostgresStore) AccountsByHashtags(ctx context.Context, q recommend.AccountQuery) (accounts []recommend.CandidateAccount, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "likes", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	tags := normalizeTags(q.Hashtags)
	if len(tags) == 0 {
		return []recommend.CandidateAccount{}, nil
	}

	query := `
		SELECT a.id, a.username, a.followers_count,
		       array_agg(DISTINCT lower(t.tag) ORDER BY lower(t.tag)) AS shared
		FROM likes l
		JOIN posts p ON p.id = l.post_id AND p.deleted_at IS NULL
		JOIN accounts a ON a.id = l.user_id
		CROSS JOIN LATERAL unnest(p.hashtags) AS t(tag)
		WHERE lower(t.tag) = ANY($1::text[])
		  AND NOT (l.user_id = ANY($2::text[]))
		  AND ($3::timestamptz IS NULL OR l.created_at >= $3::timestamptz)
		GROUP BY a.id, a.username, a.followers_count
		ORDER BY COUNT(DISTINCT lower(t.tag)) DESC, a.id ASC
		LIMIT $4
	`

	rows, err := s.db.QueryContext(ctx, query,
		textArray(tags),
		textArray(q.ExcludeIDs),
		nullTime(q.Since),
		q.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts by hashtags: %w", err)
	}
	defer rows.Close()

	accounts = []recommend.CandidateAccount{}
	for rows.Next() {
		var a recommend.CandidateAccount
		var shared pq.StringArray
		if err = rows.Scan(&a.ID, &a.Username, &a.FollowersCount, &shared); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		a.SharedHashtags = []string(shared)
		accounts = append(accounts, a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	return accounts, nil
}

// PopularAccounts returns accounts ordered by followers_count DESC, id ASC.
func (s *PostgresStore) PopularAccounts(ctx context.Context, excludeIDs []string, limit int) (accounts []recommend.CandidateAccount, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "accounts", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query := `
		SELECT id, username, followers_count
		FROM accounts
		WHERE NOT (id = ANY($1::text[]))
		ORDER BY followers_count DESC, id ASC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, textArray(excludeIDs), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query popular accounts: %w", err)
	}
	defer rows.Close()

	accounts = []recommend.CandidateAccount{}
	for rows.Next() {
		var a recommend.CandidateAccount
		if err = rows.Scan(&a.ID, &a.Username, &a.FollowersCount); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating popular accounts: %w", err)
	}
	return accounts, nil
}

// textArray encodes s as a text[] parameter. A nil slice encodes as NULL in
// lib/pq, which would turn ANY/cardinality filters into NULL.
func textArray(s []string) interface{} {
	if s == nil {
		s = []string{}
	}
	return pq.Array(s)
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if n := recommend.NormalizeHashtag(t); n != "" {
			out = append(out, n)
		}
	}
	return out
}
