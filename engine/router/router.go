// Package router combines the content and semantic engines behind a single
// query interface. Exact song-name matches route to the content recommender;
// descriptive or mood queries route to semantic search; everything else
// degrades to a fixed mood-based fallback so callers never receive an empty,
// unexplained result for a non-empty catalog.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/MoodTunesAI/moodtunes-mvp/engine/domain"
	"github.com/MoodTunesAI/moodtunes-mvp/engine/semantic"
	"github.com/MoodTunesAI/moodtunes-mvp/pkg/metrics"
)

// ContentRecommender is the exact-match engine surface the router needs.
type ContentRecommender interface {
	Recommend(songName string, k int) ([]domain.Recommendation, error)
}

// SemanticSearcher is the free-text engine surface the router needs. Both
// the in-process engine and the Qdrant-backed remote engine satisfy it.
type SemanticSearcher interface {
	Search(ctx context.Context, query string, topK int) ([]semantic.Result, error)
}

// Options configures candidate pooling and the explore/exploit split.
type Options struct {
	// PoolSize is how many candidates to pull from an engine before the
	// diversity pass.
	PoolSize int
	// ExploitN is the size of the top-ranked "exploit" set.
	ExploitN int
	// ExploreM is how many candidates to sample at random from beyond the
	// exploit set.
	ExploreM int
	// MinScore filters semantic hits; matches below it are treated as "no
	// confident match" and trigger the fallback.
	MinScore float64
	// FallbackQuery is the fixed mood query used when nothing matched.
	FallbackQuery string
}

// DefaultOptions returns the serving defaults.
func DefaultOptions() Options {
	return Options{
		PoolSize:      50,
		ExploitN:      20,
		ExploreM:      5,
		MinScore:      0.1,
		FallbackQuery: "happy upbeat feel good",
	}
}

// Router is stateless across calls except for the read-only engines and the
// seeded sampler. Construct once at process start and share.
type Router struct {
	content  ContentRecommender
	semantic SemanticSearcher
	opts     Options
	logger   *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Router. rng may be nil for a time-seeded sampler; tests
// inject a fixed seed to make the explore set deterministic.
func New(content ContentRecommender, sem SemanticSearcher, opts Options, rng *rand.Rand, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.PoolSize <= 0 {
		opts = DefaultOptions()
	}
	return &Router{content: content, semantic: sem, opts: opts, logger: logger, rng: rng}
}

// Request is one recommendation query. Emotion, Language, and Region are
// optional context appended to the query text before semantic search.
type Request struct {
	Query    string `json:"query"`
	Emotion  string `json:"emotion,omitempty"`
	Language string `json:"language,omitempty"`
	Region   string `json:"region,omitempty"`
	TopK     int    `json:"top_k,omitempty"`
}

// Response carries a human-readable message and the ranked results.
type Response struct {
	Message string                  `json:"message"`
	Results []domain.Recommendation `json:"results"`
}

// Route resolves a request with precedence: exact song-name match, then
// semantic match above MinScore, then the fixed fallback query. Per-request
// engine failures are logged and absorbed; the only error surfaced is
// ErrModelNotLoaded, meaning no engine is ready to serve at all.
func (r *Router) Route(ctx context.Context, req Request) (*Response, error) {
	notLoaded := false

	if err := domain.ValidateQuery(req.Query); err != nil {
		r.logger.Warn("invalid query, serving fallback", "err", err)
		return r.fallback(ctx, req.TopK)
	}

	// 1. Exact song-name match is higher confidence than descriptive search.
	if r.content != nil {
		recs, err := r.content.Recommend(strings.TrimSpace(req.Query), r.opts.PoolSize)
		switch {
		case err == nil && len(recs) > 0:
			metrics.RoutesTotal.WithLabelValues("content").Inc()
			return &Response{
				Message: fmt.Sprintf("Songs similar to %q.", strings.TrimSpace(req.Query)),
				Results: r.diversify(recs, req.TopK),
			}, nil
		case errors.Is(err, domain.ErrSongNotFound):
			// Expected for mood queries; fall through to semantic search.
		case errors.Is(err, domain.ErrModelNotLoaded):
			notLoaded = true
		case err != nil:
			r.logger.Warn("content engine failed, trying semantic", "err", err)
		}
	}

	// 2. Semantic match over the expanded query.
	if r.semantic != nil {
		hits, err := r.semantic.Search(ctx, expandQuery(req), r.opts.PoolSize)
		if err != nil {
			if errors.Is(err, domain.ErrModelNotLoaded) {
				notLoaded = true
			}
			r.logger.Warn("semantic search failed, serving fallback", "err", err)
		} else if confident := r.confident(hits); len(confident) > 0 {
			metrics.RoutesTotal.WithLabelValues("semantic").Inc()
			return &Response{
				Message: "Songs matching your mood.",
				Results: r.diversify(confident, req.TopK),
			}, nil
		}

		// 3. Fallback: fixed mood query rather than an empty answer.
		resp, err := r.fallback(ctx, req.TopK)
		if err == nil {
			return resp, nil
		}
		if errors.Is(err, domain.ErrModelNotLoaded) {
			notLoaded = true
		}
	}

	if notLoaded || r.semantic == nil {
		return nil, fmt.Errorf("router: no engine ready: %w", domain.ErrModelNotLoaded)
	}
	// Engines are up but the catalog produced nothing (e.g. empty catalog).
	return &Response{Message: "No songs available yet.", Results: nil}, nil
}

// fallback serves the fixed mood-based list. MinScore does not apply: a weak
// fallback beats an empty response.
func (r *Router) fallback(ctx context.Context, topK int) (*Response, error) {
	if r.semantic == nil {
		return nil, fmt.Errorf("router: fallback: %w", domain.ErrModelNotLoaded)
	}
	hits, err := r.semantic.Search(ctx, r.opts.FallbackQuery, r.opts.PoolSize)
	if err != nil {
		return nil, fmt.Errorf("router: fallback search: %w", err)
	}
	if len(hits) == 0 {
		return &Response{Message: "No songs available yet.", Results: nil}, nil
	}
	metrics.RoutesTotal.WithLabelValues("fallback").Inc()
	return &Response{
		Message: "Couldn't match that exactly, so here are some mood boosters.",
		Results: r.diversify(toRecommendations(hits), topK),
	}, nil
}

// confident keeps semantic hits at or above the minimum score.
func (r *Router) confident(hits []semantic.Result) []domain.Recommendation {
	kept := make([]semantic.Result, 0, len(hits))
	for _, h := range hits {
		if h.Score >= r.opts.MinScore {
			kept = append(kept, h)
		}
	}
	return toRecommendations(kept)
}

// diversify applies the explore/exploit split: the top ExploitN candidates,
// plus ExploreM sampled at random from the remainder, deduplicated by song
// name in first-seen order. topK > 0 caps the final list.
func (r *Router) diversify(candidates []domain.Recommendation, topK int) []domain.Recommendation {
	exploit := candidates
	if len(exploit) > r.opts.ExploitN {
		exploit = candidates[:r.opts.ExploitN]
	}
	remainder := candidates[len(exploit):]

	picked := append([]domain.Recommendation(nil), exploit...)
	if len(remainder) > 0 && r.opts.ExploreM > 0 {
		m := r.opts.ExploreM
		if m > len(remainder) {
			m = len(remainder)
		}
		r.mu.Lock()
		perm := r.rng.Perm(len(remainder))
		r.mu.Unlock()
		for _, idx := range perm[:m] {
			picked = append(picked, remainder[idx])
		}
	}

	seen := make(map[string]bool, len(picked))
	out := picked[:0]
	for _, rec := range picked {
		key := strings.ToLower(rec.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, rec)
	}
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out
}

// expandQuery appends optional context tokens to the query text. A simple
// query-expansion strategy, not a separate filter stage.
func expandQuery(req Request) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(req.Query))
	if req.Emotion != "" {
		b.WriteString(" ")
		b.WriteString(req.Emotion)
		b.WriteString(" mood")
	}
	if req.Language != "" && !strings.EqualFold(req.Language, "all") {
		b.WriteString(" ")
		b.WriteString(req.Language)
	}
	if req.Region != "" && !strings.EqualFold(req.Region, "global") {
		b.WriteString(" ")
		b.WriteString(req.Region)
	}
	return b.String()
}

func toRecommendations(hits []semantic.Result) []domain.Recommendation {
	recs := make([]domain.Recommendation, len(hits))
	for i, h := range hits {
		recs[i] = domain.Recommendation{
			ID:     h.ID,
			Name:   h.Name,
			Artist: h.Artist,
			Tag:    h.Tag,
			Score:  h.Score,
			Source: domain.SourceSemantic,
		}
	}
	return recs
}
