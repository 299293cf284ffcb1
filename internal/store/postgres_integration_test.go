//go:build integration

// Integration tests for PostgresStore. They start PostgreSQL in a container
// and are skipped when Docker is unavailable.
// Run with: go test -tags=integration -v ./internal/store/...
package store

import (
	"context"
	"database/sql"
	"os/exec"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/onnwee/feedrank/internal/db"
	"github.com/onnwee/feedrank/internal/recommend"
)

var seedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func skipIfNoDocker(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if exec.CommandContext(ctx, "docker", "info").Run() != nil {
		t.Skip("Skipping test: Docker not available")
	}
}

func startPostgres(t *testing.T) *sql.DB {
	t.Helper()
	skipIfNoDocker(t)

	ctx := context.Background()
	schema, err := filepath.Abs(filepath.Join("..", "..", "migrations", "000001_create_read_model.up.sql"))
	if err != nil {
		t.Fatalf("failed to resolve schema path: %v", err)
	}

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("feedrank"),
		postgres.WithUsername("feedrank"),
		postgres.WithPassword("feedrank"),
		postgres.WithInitScripts(schema),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("Warning: failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	conn, err := db.Open(ctx, dsn, db.DefaultPoolConfig())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	if err := db.CheckSchema(ctx, conn); err != nil {
		t.Fatalf("schema check failed: %v", err)
	}
	return conn
}

func seed(t *testing.T, conn *sql.DB) {
	t.Helper()
	statements := []struct {
		query string
		args  []any
	}{
		{`INSERT INTO accounts (id, username, followers_count) VALUES
			('u', 'u', 3), ('a1', 'alice', 900), ('a2', 'bob', 800),
			('a3', 'carol', 700), ('a4', 'dave', 600), ('a5', 'erin', 500)`, nil},
		{`INSERT INTO posts (id, author_id, hashtags, has_media, likes_count, reposts_count, created_at) VALUES
			('p1', 'a1', ARRAY['climate','policy'], true, 10, 1, $1),
			('p2', 'a2', ARRAY['policy'], true, 0, 0, $2),
			('p3', 'a3', ARRAY['music'], false, 0, 0, $3),
			('mine', 'u', ARRAY['policy'], false, 0, 0, $4),
			('old', 'a4', ARRAY['history'], false, 0, 0, $5)`,
			[]any{seedNow.Add(-72 * time.Hour), seedNow.Add(-48 * time.Hour), seedNow.Add(-24 * time.Hour), seedNow, seedNow.Add(-10 * 24 * time.Hour)}},
		{`INSERT INTO likes (user_id, post_id, created_at) VALUES
			('u', 'p1', $1), ('u', 'p2', $2), ('u', 'p3', $3), ('a4', 'p2', $1), ('a5', 'p1', $1)`,
			[]any{seedNow.Add(-1 * time.Hour), seedNow.Add(-2 * time.Hour), seedNow.Add(-3 * time.Hour)}},
		{`INSERT INTO follows (follower_id, followee_id) VALUES ('u', 'a1'), ('u', 'a5')`, nil},
	}

	for _, s := range statements {
		if _, err := conn.Exec(s.query, s.args...); err != nil {
			t.Fatalf("seed failed: %v\n%s", err, s.query)
		}
	}
}

func TestPostgresStore_Integration(t *testing.T) {
	conn := startPostgres(t)
	seed(t, conn)
	s := NewPostgresStore(conn)
	ctx := context.Background()

	t.Run("AccountExists", func(t *testing.T) {
		for id, want := range map[string]bool{"u": true, "ghost": false} {
			got, err := s.AccountExists(ctx, id)
			if err != nil {
				t.Fatalf("AccountExists(%q) error = %v", id, err)
			}
			if got != want {
				t.Errorf("AccountExists(%q) = %v, want %v", id, got, want)
			}
		}
	})

	t.Run("RecentLikes", func(t *testing.T) {
		got, err := s.RecentLikes(ctx, "u", 10)
		if err != nil {
			t.Fatalf("RecentLikes() error = %v", err)
		}
		var items []string
		for _, r := range got {
			items = append(items, r.ItemID)
		}
		if !reflect.DeepEqual(items, []string{"p1", "p2", "p3"}) {
			t.Errorf("RecentLikes() items = %v, want [p1 p2 p3]", items)
		}
		if !reflect.DeepEqual(got[0].ItemHashtags, []string{"climate", "policy"}) || !got[0].ItemHasMedia || got[0].ItemAuthorID != "a1" {
			t.Errorf("RecentLikes()[0] = %+v, want enriched p1", got[0])
		}
	})

	t.Run("Following", func(t *testing.T) {
		got, err := s.Following(ctx, "u")
		if err != nil {
			t.Fatalf("Following() error = %v", err)
		}
		if !reflect.DeepEqual(got, []string{"a1", "a5"}) {
			t.Errorf("Following() = %v, want [a1 a5]", got)
		}
	})

	t.Run("RecentPosts", func(t *testing.T) {
		got, err := s.RecentPosts(ctx, recommend.PostQuery{ExcludeAuthorID: "u", Hashtags: []string{"#Policy"}, Limit: 10})
		if err != nil {
			t.Fatalf("RecentPosts() error = %v", err)
		}
		var ids []string
		for _, p := range got {
			ids = append(ids, p.ID)
		}
		if !reflect.DeepEqual(ids, []string{"p2", "p1"}) {
			t.Errorf("RecentPosts() = %v, want [p2 p1]", ids)
		}

		windowed, err := s.RecentPosts(ctx, recommend.PostQuery{Since: seedNow.Add(-7 * 24 * time.Hour), AuthorIDs: []string{"a4"}, Limit: 10})
		if err != nil {
			t.Fatalf("RecentPosts() error = %v", err)
		}
		if len(windowed) != 0 {
			t.Errorf("RecentPosts() in window = %v, want none", windowed)
		}
	})

	t.Run("HashtagCounts", func(t *testing.T) {
		got, err := s.HashtagCounts(ctx, seedNow.Add(-7*24*time.Hour))
		if err != nil {
			t.Fatalf("HashtagCounts() error = %v", err)
		}
		want := []recommend.HashtagCount{{Name: "policy", Count: 3}, {Name: "climate", Count: 1}, {Name: "music", Count: 1}}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("HashtagCounts() = %v, want %v", got, want)
		}
	})

	t.Run("AccountsByHashtags", func(t *testing.T) {
		got, err := s.AccountsByHashtags(ctx, recommend.AccountQuery{
			Hashtags:   []string{"policy", "climate", "music"},
			ExcludeIDs: []string{"u", "a1", "a5"},
			Limit:      10,
		})
		if err != nil {
			t.Fatalf("AccountsByHashtags() error = %v", err)
		}
		if len(got) != 1 || got[0].ID != "a4" || !reflect.DeepEqual(got[0].SharedHashtags, []string{"policy"}) {
			t.Errorf("AccountsByHashtags() = %+v, want a4 sharing [policy]", got)
		}
	})

	t.Run("PopularAccounts", func(t *testing.T) {
		got, err := s.PopularAccounts(ctx, []string{"u", "a1"}, 3)
		if err != nil {
			t.Fatalf("PopularAccounts() error = %v", err)
		}
		var ids []string
		for _, a := range got {
			ids = append(ids, a.ID)
		}
		if !reflect.DeepEqual(ids, []string{"a2", "a3", "a4"}) {
			t.Errorf("PopularAccounts() = %v, want [a2 a3 a4]", ids)
		}

		all, err := s.PopularAccounts(ctx, nil, 100)
		if err != nil {
			t.Fatalf("PopularAccounts(nil) error = %v", err)
		}
		if len(all) != 6 {
			t.Errorf("PopularAccounts(nil) returned %d accounts, want 6", len(all))
		}
	})

	t.Run("Engine", func(t *testing.T) {
		engine := recommend.NewEngine(NewBreakerStore(s, DefaultBreakerConfig()), recommend.Config{
			Now: func() time.Time { return seedNow },
		})
		result, err := engine.Recommend(ctx, recommend.Request{UserID: "u", Kind: recommend.KindPosts, Limit: 5})
		if err != nil {
			t.Fatalf("Recommend() error = %v", err)
		}
		if len(result.Items) == 0 || result.Items[0].ID() != "p1" {
			t.Errorf("Recommend() items = %+v, want p1 first", result.Items)
		}
		for _, item := range result.Items {
			if item.Post.Candidate.AuthorID == "u" {
				t.Errorf("Recommend() returned own post %s", item.ID())
			}
		}
	})
}
