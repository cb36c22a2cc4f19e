package content

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/MoodTunesAI/moodtunes-mvp/engine/domain"
	"github.com/MoodTunesAI/moodtunes-mvp/pkg/bundle"
	"github.com/goccy/go-json"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testCatalog() []domain.Song {
	return []domain.Song{
		{Name: "Blinding Lights", Artist: "The Weeknd", Genre: "pop", Mood: "energetic",
			Audio: map[string]float64{
				domain.AttrDanceability: 0.51, domain.AttrEnergy: 0.73,
				domain.AttrValence: 0.33, domain.AttrTempo: 171,
			}},
		{Name: "Shape of You", Artist: "Ed Sheeran", Genre: "pop", Mood: "happy",
			Audio: map[string]float64{
				domain.AttrDanceability: 0.83, domain.AttrEnergy: 0.65,
				domain.AttrValence: 0.93, domain.AttrTempo: 96,
			}},
		{Name: "Bohemian Rhapsody", Artist: "Queen", Genre: "rock", Mood: "epic",
			Audio: map[string]float64{
				domain.AttrDanceability: 0.39, domain.AttrEnergy: 0.40,
				domain.AttrValence: 0.22, domain.AttrTempo: 72,
			}},
		{Name: "Levitating", Artist: "Dua Lipa", Genre: "pop", Mood: "energetic",
			Audio: map[string]float64{
				domain.AttrDanceability: 0.70, domain.AttrEnergy: 0.82,
				domain.AttrValence: 0.91, domain.AttrTempo: 103,
			}},
	}
}

func trained(t *testing.T) *Recommender {
	t.Helper()
	r := New(testLogger())
	if err := r.Train(testCatalog()); err != nil {
		t.Fatalf("Train: %v", err)
	}
	return r
}

func TestRecommend_NeverReturnsSelf(t *testing.T) {
	r := trained(t)
	recs, err := r.Recommend("Blinding Lights", 1)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d results, want exactly 1", len(recs))
	}
	if recs[0].Name == "Blinding Lights" {
		t.Error("queried song must not appear in its own recommendations")
	}
	if recs[0].Source != domain.SourceContent {
		t.Errorf("source = %q, want content", recs[0].Source)
	}
}

func TestRecommend_CaseInsensitive(t *testing.T) {
	r := trained(t)
	recs, err := r.Recommend("bLiNdInG lIgHtS", 2)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d results, want 2", len(recs))
	}
}

func TestRecommend_AtMostK_DescendingScores(t *testing.T) {
	r := trained(t)
	recs, err := r.Recommend("Shape of You", 10)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	// Catalog has 4 songs; self excluded leaves 3.
	if len(recs) != 3 {
		t.Fatalf("got %d results, want 3", len(recs))
	}
	for i := 1; i < len(recs); i++ {
		if recs[i].Score > recs[i-1].Score {
			t.Errorf("scores not descending at %d: %v then %v", i, recs[i-1].Score, recs[i].Score)
		}
	}
}

func TestRecommend_SongNotFound(t *testing.T) {
	r := trained(t)
	_, err := r.Recommend("I feel energetic", 5)
	if !errors.Is(err, domain.ErrSongNotFound) {
		t.Fatalf("got %v, want ErrSongNotFound", err)
	}
}

func TestRecommend_NotTrained(t *testing.T) {
	r := New(testLogger())
	_, err := r.Recommend("Blinding Lights", 5)
	if !errors.Is(err, domain.ErrModelNotLoaded) {
		t.Fatalf("got %v, want ErrModelNotLoaded", err)
	}
}

func TestTrain_InsufficientData(t *testing.T) {
	r := New(testLogger())
	err := r.Train(testCatalog()[:1])
	if !errors.Is(err, domain.ErrInsufficientData) {
		t.Fatalf("got %v, want ErrInsufficientData", err)
	}
	if r.Ready() {
		t.Error("failed training must not leave the recommender ready")
	}
}

func TestTrain_Idempotent(t *testing.T) {
	a := trained(t)
	b := trained(t)
	ra, _ := a.Recommend("Levitating", 3)
	rb, _ := b.Recommend("Levitating", 3)
	if len(ra) != len(rb) {
		t.Fatalf("result lengths differ: %d vs %d", len(ra), len(rb))
	}
	for i := range ra {
		if ra[i] != rb[i] {
			t.Errorf("rank %d differs: %+v vs %+v", i, ra[i], rb[i])
		}
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	r := trained(t)
	path := filepath.Join(t.TempDir(), "content.json")
	if err := r.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path, testLogger())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want, _ := r.Recommend("Bohemian Rhapsody", 3)
	got, err := loaded.Recommend("Bohemian Rhapsody", 3)
	if err != nil {
		t.Fatalf("Recommend after load: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("lengths differ: %d vs %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("rank %d differs after reload: %+v vs %+v", i, got[i], want[i])
		}
	}
}

func TestLoad_VersionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.json")
	if err := bundle.Save(path, BundleKind, BundleVersion+1, contentState{}); err != nil {
		t.Fatalf("seed bundle: %v", err)
	}
	_, err := Load(path, testLogger())
	if !errors.Is(err, domain.ErrIndexVersion) {
		t.Fatalf("got %v, want ErrIndexVersion", err)
	}
}

func TestLoad_CorruptPayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.json")
	env, _ := json.Marshal(bundle.Envelope{Kind: BundleKind, Version: BundleVersion, Payload: []byte(`{"matrix": "nope"}`)})
	if err := os.WriteFile(path, env, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path, testLogger()); err == nil {
		t.Fatal("expected error for corrupt payload")
	}
}

func TestSave_NotTrained(t *testing.T) {
	r := New(testLogger())
	err := r.Save(filepath.Join(t.TempDir(), "content.json"))
	if !errors.Is(err, domain.ErrModelNotLoaded) {
		t.Fatalf("got %v, want ErrModelNotLoaded", err)
	}
}

func TestBruteIndex_TieBreaksByCatalogOrder(t *testing.T) {
	// Two identical rows tie exactly; the earlier catalog row must rank first.
	ix := newBruteIndex([][]float32{{1, 0}, {0.5, 0.5}, {0.5, 0.5}})
	got := ix.Neighbors([]float32{0.5, 0.5}, 3)
	if got[0].Row != 1 || got[1].Row != 2 {
		t.Errorf("tie order = %d, %d; want 1, 2", got[0].Row, got[1].Row)
	}
}
