package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"strings"
	"testing"

	"github.com/MoodTunesAI/moodtunes-mvp/engine/domain"
	"github.com/MoodTunesAI/moodtunes-mvp/engine/semantic"
)

// --- Fakes ---

type fakeContent struct {
	known map[string][]domain.Recommendation
	err   error
}

func (f *fakeContent) Recommend(songName string, k int) ([]domain.Recommendation, error) {
	if f.err != nil {
		return nil, f.err
	}
	recs, ok := f.known[strings.ToLower(songName)]
	if !ok {
		return nil, fmt.Errorf("content: %q: %w", songName, domain.ErrSongNotFound)
	}
	if k < len(recs) {
		recs = recs[:k]
	}
	return recs, nil
}

type fakeSemantic struct {
	hits    map[string][]semantic.Result // keyed by substring of the query
	base    []semantic.Result
	err     error
	queries []string
}

func (f *fakeSemantic) Search(_ context.Context, query string, topK int) ([]semantic.Result, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	for sub, hits := range f.hits {
		if strings.Contains(query, sub) {
			return clamp(hits, topK), nil
		}
	}
	return clamp(f.base, topK), nil
}

func clamp(hits []semantic.Result, topK int) []semantic.Result {
	if topK < len(hits) {
		return hits[:topK]
	}
	return hits
}

func contentRecs(names ...string) []domain.Recommendation {
	recs := make([]domain.Recommendation, len(names))
	for i, n := range names {
		recs[i] = domain.Recommendation{Name: n, Artist: "a", Score: 1 - float64(i)*0.01, Source: domain.SourceContent}
	}
	return recs
}

func semanticHits(score float64, names ...string) []semantic.Result {
	hits := make([]semantic.Result, len(names))
	for i, n := range names {
		hits[i] = semantic.Result{Name: n, Artist: "a", Score: score - float64(i)*0.01}
	}
	return hits
}

func newTestRouter(c ContentRecommender, s SemanticSearcher, opts Options) *Router {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return New(c, s, opts, rand.New(rand.NewSource(42)), logger)
}

// --- Tests ---

func TestRoute_ExactMatchUsesContentEngine(t *testing.T) {
	c := &fakeContent{known: map[string][]domain.Recommendation{
		"blinding lights": contentRecs("Save Your Tears", "Levitating"),
	}}
	s := &fakeSemantic{base: semanticHits(0.9, "Wrong Song")}
	r := newTestRouter(c, s, DefaultOptions())

	resp, err := r.Route(context.Background(), Request{Query: "Blinding Lights"})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if len(resp.Results) == 0 {
		t.Fatal("expected results")
	}
	for _, rec := range resp.Results {
		if rec.Source != domain.SourceContent {
			t.Errorf("result %q sourced from %q, want content", rec.Name, rec.Source)
		}
	}
	if len(s.queries) != 0 {
		t.Errorf("semantic engine consulted for an exact match: %v", s.queries)
	}
}

func TestRoute_MoodQueryUsesSemanticEngine(t *testing.T) {
	c := &fakeContent{known: map[string][]domain.Recommendation{}}
	s := &fakeSemantic{base: semanticHits(0.8, "Eye of the Tiger", "Stronger")}
	r := newTestRouter(c, s, DefaultOptions())

	resp, err := r.Route(context.Background(), Request{Query: "I feel energetic"})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if len(resp.Results) == 0 {
		t.Fatal("mood query must yield a non-empty list")
	}
	for _, rec := range resp.Results {
		if rec.Source != domain.SourceSemantic {
			t.Errorf("result %q sourced from %q, want semantic", rec.Name, rec.Source)
		}
	}
}

func TestRoute_QueryExpansionAppendsContext(t *testing.T) {
	s := &fakeSemantic{base: semanticHits(0.8, "Song")}
	r := newTestRouter(nil, s, DefaultOptions())

	_, err := r.Route(context.Background(), Request{
		Query: "something chill", Emotion: "sad", Language: "Spanish", Region: "LATAM",
	})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	got := s.queries[0]
	want := "something chill sad mood Spanish LATAM"
	if got != want {
		t.Errorf("expanded query = %q, want %q", got, want)
	}
}

func TestRoute_ExpansionSkipsDefaults(t *testing.T) {
	s := &fakeSemantic{base: semanticHits(0.8, "Song")}
	r := newTestRouter(nil, s, DefaultOptions())

	_, err := r.Route(context.Background(), Request{Query: "chill", Language: "All", Region: "Global"})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if s.queries[0] != "chill" {
		t.Errorf("expanded query = %q, want %q", s.queries[0], "chill")
	}
}

func TestRoute_LowConfidenceFallsBack(t *testing.T) {
	s := &fakeSemantic{
		base: semanticHits(0.01, "Weak Match"), // below MinScore
		hits: map[string][]semantic.Result{
			"happy upbeat feel good": semanticHits(0.9, "Mood Booster"),
		},
	}
	r := newTestRouter(nil, s, DefaultOptions())

	resp, err := r.Route(context.Background(), Request{Query: "zxqvw gibberish"})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if len(resp.Results) == 0 {
		t.Fatal("fallback must be non-empty")
	}
	if resp.Results[0].Name != "Mood Booster" {
		t.Errorf("top result = %q, want fallback hit", resp.Results[0].Name)
	}
}

func TestRoute_InvalidQueryServesFallback(t *testing.T) {
	s := &fakeSemantic{base: semanticHits(0.9, "Mood Booster")}
	r := newTestRouter(nil, s, DefaultOptions())

	resp, err := r.Route(context.Background(), Request{Query: "   "})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if len(resp.Results) == 0 {
		t.Fatal("fallback must be non-empty")
	}
}

func TestRoute_EncodingFailureServesFallbackThenNotReady(t *testing.T) {
	// Semantic engine down entirely: fallback also fails, router reports not ready.
	s := &fakeSemantic{err: fmt.Errorf("semantic: %w", domain.ErrModelNotLoaded)}
	c := &fakeContent{err: fmt.Errorf("content: %w", domain.ErrModelNotLoaded)}
	r := newTestRouter(c, s, DefaultOptions())

	_, err := r.Route(context.Background(), Request{Query: "anything"})
	if !errors.Is(err, domain.ErrModelNotLoaded) {
		t.Fatalf("got %v, want ErrModelNotLoaded", err)
	}
}

func TestRoute_ContentDownSemanticStillServes(t *testing.T) {
	c := &fakeContent{err: fmt.Errorf("content: %w", domain.ErrModelNotLoaded)}
	s := &fakeSemantic{base: semanticHits(0.8, "Song A", "Song B")}
	r := newTestRouter(c, s, DefaultOptions())

	resp, err := r.Route(context.Background(), Request{Query: "rainy evening"})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if len(resp.Results) == 0 {
		t.Fatal("semantic engine alone should still serve")
	}
}

func TestRoute_EmptyCatalogSafe(t *testing.T) {
	s := &fakeSemantic{} // no hits at all, no error
	r := newTestRouter(nil, s, DefaultOptions())

	resp, err := r.Route(context.Background(), Request{Query: "anything"})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if len(resp.Results) != 0 {
		t.Errorf("empty catalog should produce empty results, got %v", resp.Results)
	}
	if resp.Message == "" {
		t.Error("empty catalog still needs an explanatory message")
	}
}

func TestDiversify_DeterministicWithFixedSeed(t *testing.T) {
	names := make([]string, 40)
	for i := range names {
		names[i] = fmt.Sprintf("Song %02d", i)
	}
	opts := DefaultOptions()

	run := func() []domain.Recommendation {
		r := newTestRouter(nil, nil, opts)
		return r.diversify(contentRecs(names...), 0)
	}
	a, b := run(), run()
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Name != b[i].Name {
			t.Fatalf("explore sampling not deterministic at %d: %q vs %q", i, a[i].Name, b[i].Name)
		}
	}
	if len(a) != opts.ExploitN+opts.ExploreM {
		t.Errorf("got %d results, want exploit %d + explore %d", len(a), opts.ExploitN, opts.ExploreM)
	}
}

func TestDiversify_DeduplicatesByName(t *testing.T) {
	r := newTestRouter(nil, nil, Options{PoolSize: 10, ExploitN: 3, ExploreM: 0})
	in := contentRecs("Same Song", "same song", "Other Song")
	out := r.diversify(in, 0)
	if len(out) != 2 {
		t.Fatalf("got %d results, want 2 after dedupe: %v", len(out), out)
	}
	if out[0].Name != "Same Song" || out[1].Name != "Other Song" {
		t.Errorf("first-seen order not preserved: %v", out)
	}
}

func TestDiversify_TopKCaps(t *testing.T) {
	r := newTestRouter(nil, nil, DefaultOptions())
	out := r.diversify(contentRecs("A", "B", "C", "D"), 2)
	if len(out) != 2 {
		t.Errorf("got %d results, want topK=2", len(out))
	}
}
