package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/onnwee/feedrank/internal/middleware"
	"github.com/onnwee/feedrank/internal/recommend"
	"github.com/onnwee/feedrank/internal/validate"
)

// DefaultRetryAfter is sent with data_unavailable responses.
const DefaultRetryAfter = 5 * time.Second

// Recommender produces ranked recommendation lists.
type Recommender interface {
	Recommend(ctx context.Context, req recommend.Request) (*recommend.Result, error)
}

// RecommendHandlers serves GET /recommendations.
type RecommendHandlers struct {
	engine     Recommender
	retryAfter time.Duration
}

// NewRecommendHandlers creates the recommendation handlers.
func NewRecommendHandlers(engine Recommender) *RecommendHandlers {
	return &RecommendHandlers{engine: engine, retryAfter: DefaultRetryAfter}
}

// RecommendationQuery holds the validated query string of a request.
// A nil Limit selects the server default; an explicit limit must be positive.
type RecommendationQuery struct {
	Kind  string `query:"kind" validate:"required,oneof=posts hashtags accounts"`
	Limit *int   `query:"limit" validate:"omitempty,min=1"`
}

// EngineLimit returns the limit passed to the engine, zero for the default.
func (q RecommendationQuery) EngineLimit() int {
	if q.Limit == nil {
		return 0
	}
	return *q.Limit
}

// RecommendationResponse is the body of a successful request.
type RecommendationResponse struct {
	Kind           recommend.Kind           `json:"kind"`
	Strategy       recommend.Strategy       `json:"strategy"`
	Items          []recommend.Item         `json:"items"`
	ProfileSummary recommend.ProfileSummary `json:"profile_summary"`
	GeneratedAt    string                   `json:"generated_at"`
}

// Recommendations handles GET /recommendations?kind=posts|hashtags|accounts&limit=N.
// The user comes from the authenticated token subject.
func (h *RecommendHandlers) Recommendations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	userID, err := validate.UserID(middleware.GetUserID(ctx))
	if err != nil {
		writeErrorCode(w, ctx, ErrCodeAuthFailed, "Authentication required")
		return
	}

	query, ok := parseRecommendationQuery(w, r)
	if !ok {
		return
	}

	result, err := h.engine.Recommend(ctx, recommend.Request{
		UserID: userID,
		Kind:   recommend.Kind(query.Kind),
		Limit:  query.EngineLimit(),
	})
	if err != nil {
		h.writeEngineError(w, ctx, err)
		return
	}

	items := result.Items
	if items == nil {
		items = []recommend.Item{}
	}
	writeJSON(w, ctx, http.StatusOK, RecommendationResponse{
		Kind:           result.Kind,
		Strategy:       result.Strategy,
		Items:          items,
		ProfileSummary: result.Profile,
		GeneratedAt:    result.GeneratedAt.UTC().Format(time.RFC3339),
	})
}

func parseRecommendationQuery(w http.ResponseWriter, r *http.Request) (RecommendationQuery, bool) {
	ctx := r.Context()
	values := r.URL.Query()

	query := RecommendationQuery{Kind: values.Get("kind")}
	if raw := values.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			writeErrorCode(w, ctx, ErrCodeValidation, "limit must be an integer")
			return query, false
		}
		query.Limit = &limit
	}

	if err := validate.Struct(&query); err != nil {
		code := ErrCodeValidation
		var verr *validate.Error
		if errors.As(err, &verr) && len(verr.Fields) > 0 && verr.Fields[0].Field == "kind" {
			code = ErrCodeInvalidKind
		}
		writeErrorCode(w, ctx, code, err.Error())
		return query, false
	}
	return query, true
}

func (h *RecommendHandlers) writeEngineError(w http.ResponseWriter, ctx context.Context, err error) {
	switch {
	case errors.Is(err, recommend.ErrInvalidKind):
		writeErrorCode(w, ctx, ErrCodeInvalidKind, "kind must be one of: posts, hashtags, accounts")
	case errors.Is(err, recommend.ErrDataUnavailable):
		w.Header().Set("Retry-After", strconv.Itoa(int(h.retryAfter.Seconds())))
		writeErrorCode(w, ctx, ErrCodeDataUnavailable, "Recommendations are temporarily unavailable")
	default:
		slog.ErrorContext(ctx, "unexpected recommendation error", "error", err)
		writeErrorCode(w, ctx, ErrCodeInternal, "Internal server error")
	}
}
