// Package content implements the content-based recommender: a nearest-
// neighbor engine over normalized audio feature vectors. Training fits the
// feature pipeline, transforms the catalog into a matrix, and builds a cosine
// index; serving looks a song up by name and returns its nearest neighbors.
package content

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MoodTunesAI/moodtunes-mvp/engine/domain"
	"github.com/MoodTunesAI/moodtunes-mvp/engine/feature"
	"github.com/MoodTunesAI/moodtunes-mvp/pkg/bundle"
)

const (
	// BundleKind and BundleVersion identify the persisted index format.
	BundleKind    = "content"
	BundleVersion = 1
)

// Recommender is either untrained (serve calls fail with ErrModelNotLoaded)
// or ready. Once ready it is read-only and safe for concurrent use.
type Recommender struct {
	pipeline *feature.Pipeline
	songs    []domain.Song
	matrix   [][]float32
	index    *bruteIndex
	byName   map[string]int // lowercased display name -> first catalog row
	logger   *slog.Logger
}

// New creates an untrained Recommender.
func New(logger *slog.Logger) *Recommender {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recommender{logger: logger}
}

// Ready reports whether the recommender has a trained index.
func (r *Recommender) Ready() bool { return r.index != nil }

// Train fits the feature pipeline over records, transforms them into the
// feature matrix, and builds the nearest-neighbor index. It replaces any
// previous state.
func (r *Recommender) Train(records []domain.Song) error {
	p, err := feature.Fit(records)
	if err != nil {
		return fmt.Errorf("content: train: %w", err)
	}
	songs := append([]domain.Song(nil), records...)
	matrix := p.Transform(songs)

	r.pipeline = p
	r.songs = songs
	r.matrix = matrix
	r.index = newBruteIndex(matrix)
	r.byName = nameTable(songs)
	r.logger.Info("content index trained", "songs", len(songs), "dims", p.Dims())
	return nil
}

// Recommend returns up to k songs most similar to the named song, descending
// by similarity. The queried song itself is never included. Lookup is
// case-insensitive over display names; a miss returns ErrSongNotFound, which
// callers recover from by falling back to semantic search.
func (r *Recommender) Recommend(songName string, k int) ([]domain.Recommendation, error) {
	if !r.Ready() {
		return nil, fmt.Errorf("content: recommend %q: %w", songName, domain.ErrModelNotLoaded)
	}
	if k <= 0 {
		return nil, nil
	}

	row, ok := r.byName[strings.ToLower(strings.TrimSpace(songName))]
	if !ok {
		r.logger.Warn("song not in catalog", "song", songName)
		return nil, fmt.Errorf("content: %q: %w", songName, domain.ErrSongNotFound)
	}

	// k+1 because the song is its own nearest neighbor at distance 0.
	neighbors := r.index.Neighbors(r.matrix[row], k+1)
	recs := make([]domain.Recommendation, 0, k)
	for _, n := range neighbors {
		if n.Row == row {
			continue
		}
		if len(recs) == k {
			break
		}
		s := r.songs[n.Row]
		recs = append(recs, domain.Recommendation{
			ID:     s.ID,
			Name:   s.Name,
			Artist: s.Artist,
			Tag:    s.SearchTag,
			Score:  1 - n.Distance,
			Source: domain.SourceContent,
		})
	}
	return recs, nil
}

// Songs returns the catalog snapshot the index was trained on.
func (r *Recommender) Songs() []domain.Song { return r.songs }

// contentState is the serialized form of a trained recommender: the frozen
// pipeline, the catalog snapshot, and the derived feature matrix as one unit.
type contentState struct {
	Pipeline *feature.Pipeline `json:"pipeline"`
	Songs    []domain.Song     `json:"songs"`
	Matrix   [][]float32       `json:"matrix"`
}

// Save persists the trained index to path as a versioned bundle, written
// atomically so in-flight readers of the old file are never torn.
func (r *Recommender) Save(path string) error {
	if !r.Ready() {
		return fmt.Errorf("content: save: %w", domain.ErrModelNotLoaded)
	}
	state := contentState{Pipeline: r.pipeline, Songs: r.songs, Matrix: r.matrix}
	if err := bundle.Save(path, BundleKind, BundleVersion, state); err != nil {
		return err
	}
	r.logger.Info("content index saved", "path", path, "songs", len(r.songs))
	return nil
}

// Load reads a persisted index. An incompatible bundle fails with
// bundle.ErrVersionMismatch wrapped under domain.ErrIndexVersion.
func Load(path string, logger *slog.Logger) (*Recommender, error) {
	r := New(logger)
	var state contentState
	if err := bundle.Load(path, BundleKind, BundleVersion, &state); err != nil {
		if errors.Is(err, bundle.ErrVersionMismatch) {
			return nil, fmt.Errorf("content: load %s: %w: %w", path, domain.ErrIndexVersion, err)
		}
		return nil, fmt.Errorf("content: load: %w", err)
	}
	r.pipeline = state.Pipeline
	r.songs = state.Songs
	r.matrix = state.Matrix
	r.index = newBruteIndex(state.Matrix)
	r.byName = nameTable(state.Songs)
	r.logger.Info("content index loaded", "path", path, "songs", len(state.Songs))
	return r, nil
}

// nameTable maps lowercased display names to their first catalog row, so
// duplicate names resolve deterministically to the earliest record.
func nameTable(songs []domain.Song) map[string]int {
	t := make(map[string]int, len(songs))
	for i, s := range songs {
		key := strings.ToLower(s.Name)
		if _, seen := t[key]; !seen {
			t[key] = i
		}
	}
	return t
}
