package recommend

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/onnwee/feedrank/internal/ranking"
	"github.com/onnwee/feedrank/internal/tracing"
)

// Default request limits.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Config holds the engine configuration. Zero values use package defaults.
type Config struct {
	// DefaultLimit is used when a request carries no positive limit.
	DefaultLimit int
	// MaxLimit caps the number of items a request may ask for.
	MaxLimit int
	// HistoryLimit is the number of likes a profile is built from.
	HistoryLimit int
	// TrendHistoryLimit is the number of likes the hashtag affinity set is built from.
	TrendHistoryLimit int
	// TrendWindow is the rolling window hashtag trends are counted over.
	TrendWindow time.Duration
	// AccountWindow bounds how far back likes count toward account overlap.
	AccountWindow time.Duration
	// PostWindow limits post candidates to this age when positive.
	PostWindow time.Duration
	// ReadTimeout bounds every individual store read.
	ReadTimeout time.Duration

	// Weights overrides ranking.DefaultWeights when non-nil.
	Weights *ranking.Weights
	// Logger for engine events. Defaults to slog.Default().
	Logger *slog.Logger
	// Metrics for request tracking. Optional.
	Metrics *Metrics
	// Now returns the reference time for recency and trend windows. Defaults to time.Now.
	Now func() time.Time
}

// Engine produces ranked recommendations. It holds no per-request state and
// is safe for concurrent use.
type Engine struct {
	config     Config
	history    *HistoryReader
	candidates *CandidateGenerator
	scorer     *Scorer
	fallback   *FallbackSelector
	logger     *slog.Logger
	metrics    *Metrics
	now        func() time.Time
}

// NewEngine creates an engine reading from store.
func NewEngine(store Store, cfg Config) *Engine {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultLimit
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = MaxLimit
	}
	if cfg.DefaultLimit > cfg.MaxLimit {
		cfg.DefaultLimit = cfg.MaxLimit
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	scorer := NewScorer(cfg.Weights)
	logger := cfg.Logger.With("component", "recommend")
	w := scorer.Weights()
	logger.Debug("recommend engine configured",
		"default_limit", cfg.DefaultLimit,
		"max_limit", cfg.MaxLimit,
		"follow_weight", w.Post.Follow,
		"hashtag_match_weight", w.Post.HashtagMatch,
		"hashtag_affinity", w.Hashtag.AffinityMultiplier,
	)

	return &Engine{
		config:  cfg,
		history: NewHistoryReader(store, cfg.ReadTimeout),
		candidates: NewCandidateGenerator(store, CandidateOptions{
			ReadTimeout:       cfg.ReadTimeout,
			TrendWindow:       cfg.TrendWindow,
			TrendHistoryLimit: cfg.TrendHistoryLimit,
			AccountWindow:     cfg.AccountWindow,
			PostWindow:        cfg.PostWindow,
		}),
		scorer:   scorer,
		fallback: NewFallbackSelector(store, cfg.ReadTimeout),
		logger:   logger,
		metrics:  cfg.Metrics,
		now:      cfg.Now,
	}
}

// Limit resolves a requested limit: non-positive values use the default and
// larger values are clamped to the maximum.
func (e *Engine) Limit(requested int) int {
	if requested <= 0 {
		return e.config.DefaultLimit
	}
	if requested > e.config.MaxLimit {
		return e.config.MaxLimit
	}
	return requested
}

// Recommend returns the ranked list of req.Kind for req.UserID.
//
// An unknown kind returns ErrInvalidKind. Store failures, timeouts and
// cancellation return an error matching ErrDataUnavailable and no partial
// result. An unknown user yields an empty list.
func (e *Engine) Recommend(ctx context.Context, req Request) (result *Result, err error) {
	started := time.Now()

	kind, err := ParseKind(string(req.Kind))
	if err != nil {
		e.metrics.IncErrors(req.Kind, "invalid_kind")
		return nil, err
	}
	limit := e.Limit(req.Limit)
	now := e.now().UTC()

	ctx, endSpan := tracing.StartSpan(ctx, "recommend")
	defer func() { endSpan(err) }()
	tracing.SetAttributes(ctx,
		attribute.String("recommend.kind", string(kind)),
		attribute.Int("recommend.limit", limit),
	)

	log := e.logger.With("user_id", req.UserID, "kind", string(kind), "limit", limit)

	result, err = e.recommend(ctx, req.UserID, kind, limit, now)
	if err != nil {
		reason := "data_unavailable"
		if errors.Is(err, context.Canceled) {
			reason = "canceled"
		}
		e.metrics.IncErrors(kind, reason)
		log.Warn("recommendation failed", "error", err)
		return nil, err
	}

	latency := time.Since(started)
	e.metrics.ObserveRequest(kind, result.Strategy, latency.Seconds(), len(result.Items))
	tracing.SetAttributes(ctx,
		attribute.String("recommend.strategy", string(result.Strategy)),
		attribute.Int("recommend.items", len(result.Items)),
	)
	attrs := []any{
		"strategy", string(result.Strategy),
		"items", len(result.Items),
		"sample_size", result.Profile.SampleSize,
		"latency_ms", latency.Milliseconds(),
	}
	if len(result.Items) > 0 {
		attrs = append(attrs, "top_item", result.Items[0].ID())
	}
	log.Debug("recommendations generated", attrs...)
	return result, nil
}

func (e *Engine) recommend(ctx context.Context, userID string, kind Kind, limit int, now time.Time) (*Result, error) {
	var (
		exists    bool
		history   []InteractionRecord
		following map[string]struct{}
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		ok, err := e.history.Exists(egCtx, userID)
		exists = ok
		return err
	})
	eg.Go(func() error {
		recs, err := e.history.Interactions(egCtx, userID, e.config.HistoryLimit)
		history = recs
		return err
	})
	eg.Go(func() error {
		set, err := e.history.FollowSet(egCtx, userID)
		following = set
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, unavailable("read history", err)
	}

	result := &Result{
		Kind:        kind,
		Strategy:    StrategyPersonalized,
		Items:       []Item{},
		GeneratedAt: now,
	}

	if !exists {
		result.Profile = summarize(BuildProfile(nil))
		return result, nil
	}

	profile := BuildProfile(history)
	result.Profile = summarize(profile)
	tracing.AddEvent(ctx, "profile_built", attribute.Int("sample_size", profile.SampleSize))

	var err error
	switch kind {
	case KindPosts:
		result.Items, err = e.recommendPosts(ctx, userID, profile, following, limit, now)
	case KindHashtags:
		result.Items, result.Strategy, err = e.recommendHashtags(ctx, userID, limit, now)
	case KindAccounts:
		result.Items, result.Strategy, err = e.recommendAccounts(ctx, userID, history, following, limit, now)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (e *Engine) recommendPosts(ctx context.Context, userID string, profile PreferenceProfile, following map[string]struct{}, limit int, now time.Time) ([]Item, error) {
	candidates, err := e.candidates.Posts(ctx, userID, profile, following, limit, now)
	if err != nil {
		return nil, err
	}
	e.metrics.ObservePoolSize(KindPosts, len(candidates))

	scored := make([]ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		sc, err := e.scorer.ScorePost(c, profile, following, now)
		if err != nil {
			e.dropMalformed(ctx, KindPosts, err)
			continue
		}
		scored = append(scored, sc)
	}

	ranked := Rank(scored, limit)
	items := make([]Item, len(ranked))
	for i := range ranked {
		items[i] = Item{Kind: KindPosts, Post: &ranked[i]}
	}
	return items, nil
}

func (e *Engine) recommendHashtags(ctx context.Context, userID string, limit int, now time.Time) ([]Item, Strategy, error) {
	entries, affinity, err := e.candidates.Hashtags(ctx, userID, now)
	if err != nil {
		return nil, "", err
	}
	e.metrics.ObservePoolSize(KindHashtags, len(entries))

	scored := make([]HashtagTrendEntry, len(entries))
	for i, entry := range entries {
		scored[i] = e.scorer.ScoreHashtag(entry, affinity)
	}

	ranked := RankHashtags(scored, limit)
	items := make([]Item, len(ranked))
	for i := range ranked {
		items[i] = Item{Kind: KindHashtags, Hashtag: &ranked[i]}
	}

	// Without liked hashtags the trend list is plain popularity
	strategy := StrategyPersonalized
	if len(affinity) == 0 {
		strategy = StrategyPopularityFallback
	}
	return items, strategy, nil
}

func (e *Engine) recommendAccounts(ctx context.Context, userID string, history []InteractionRecord, following map[string]struct{}, limit int, now time.Time) ([]Item, Strategy, error) {
	candidates, err := e.candidates.Accounts(ctx, userID, likedHashtags(history), following, limit, now)
	if err != nil {
		return nil, "", err
	}
	e.metrics.ObservePoolSize(KindAccounts, len(candidates))

	scored := make([]CandidateAccount, 0, len(candidates))
	for _, c := range candidates {
		sc, err := e.scorer.ScoreAccount(c)
		if err != nil {
			e.dropMalformed(ctx, KindAccounts, err)
			continue
		}
		if sc.Score <= 0 {
			continue
		}
		scored = append(scored, sc)
	}
	ranked := RankAccounts(scored, limit)
	strategy := StrategyPersonalized

	if e.fallback.NeedsFallback(KindAccounts, len(ranked)) {
		tracing.AddEvent(ctx, "popularity_fallback")
		ranked, err = e.fallback.PopularAccounts(ctx, userID, following, limit)
		if err != nil {
			return nil, "", err
		}
		strategy = StrategyPopularityFallback
	}

	items := make([]Item, len(ranked))
	for i := range ranked {
		items[i] = Item{Kind: KindAccounts, Account: &ranked[i]}
	}
	return items, strategy, nil
}

func (e *Engine) dropMalformed(ctx context.Context, kind Kind, err error) {
	e.metrics.IncMalformed(kind)
	e.logger.DebugContext(ctx, "dropping candidate", "kind", string(kind), "error", err)
}
