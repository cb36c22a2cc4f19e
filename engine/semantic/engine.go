// Package semantic implements the text-embedding search engine. Training
// encodes one synthesized description per song into a shared vector space;
// search encodes a free-form mood query with the same encoder and ranks songs
// by embedding similarity. The package also owns the Qdrant-backed remote
// store used for catalogs too large to serve from an in-process matrix.
package semantic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/MoodTunesAI/moodtunes-mvp/engine/domain"
	"github.com/MoodTunesAI/moodtunes-mvp/pkg/bundle"
	"github.com/MoodTunesAI/moodtunes-mvp/pkg/fn"
	"github.com/MoodTunesAI/moodtunes-mvp/pkg/vecmath"
)

const (
	// BundleKind and BundleVersion identify the persisted index format.
	BundleKind    = "semantic"
	BundleVersion = 1

	// embedBatchSize caps texts per encoder request.
	embedBatchSize = 100
)

// Embedder encodes text into fixed-dimension dense vectors. Catalog and
// query embeddings are only comparable when produced by the same model, so
// implementations expose the model identity for bundle compatibility checks.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// Engine ranks songs against free-text queries by embedding similarity.
// Untrained engines fail serve calls with ErrModelNotLoaded; once trained or
// loaded the engine is read-only and safe for concurrent use.
type Engine struct {
	embedder Embedder
	songs    []domain.Song
	matrix   [][]float32 // unit-normalized, one row per song
	logger   *slog.Logger
}

// NewEngine creates an untrained Engine around an encoder.
func NewEngine(embedder Embedder, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{embedder: embedder, logger: logger}
}

// Ready reports whether the engine holds an embedding matrix.
func (e *Engine) Ready() bool { return e.matrix != nil }

// Train encodes one description per record and stores the unit-normalized
// embedding matrix alongside the catalog snapshot.
func (e *Engine) Train(ctx context.Context, records []domain.Song) error {
	if len(records) < 2 {
		return fmt.Errorf("semantic: train over %d records: %w", len(records), domain.ErrInsufficientData)
	}

	descriptions := fn.Map(records, func(s domain.Song) string { return s.Description() })
	matrix := make([][]float32, 0, len(records))
	for _, batch := range fn.Chunk(descriptions, embedBatchSize) {
		vecs, err := e.embedder.EmbedBatch(ctx, batch)
		if err != nil {
			return fmt.Errorf("semantic: encode %d descriptions: %w: %w", len(batch), domain.ErrEncoding, err)
		}
		for _, v := range vecs {
			matrix = append(matrix, vecmath.Normalize(v))
		}
	}

	e.songs = append([]domain.Song(nil), records...)
	e.matrix = matrix
	e.logger.Info("semantic index trained", "songs", len(records), "model", e.embedder.Model())
	return nil
}

// Search encodes query and returns the topK highest-scoring songs, sorted
// by non-increasing score with exact ties broken by catalog order. Scores
// are dot products over pre-normalized embeddings, i.e. cosine similarity.
func (e *Engine) Search(ctx context.Context, query string, topK int) ([]Result, error) {
	if !e.Ready() {
		return nil, fmt.Errorf("semantic: search: %w", domain.ErrModelNotLoaded)
	}
	if topK <= 0 || len(e.songs) == 0 {
		return nil, nil
	}

	qv, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("semantic: encode query: %w: %w", domain.ErrEncoding, err)
	}
	vecmath.Normalize(qv)

	order := make([]int, len(e.matrix))
	scores := make([]float64, len(e.matrix))
	for i, row := range e.matrix {
		order[i] = i
		scores[i] = vecmath.Dot(row, qv)
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if topK > len(order) {
		topK = len(order)
	}
	results := make([]Result, topK)
	for i, idx := range order[:topK] {
		s := e.songs[idx]
		results[i] = Result{
			ID:     s.ID,
			Name:   s.Name,
			Artist: s.Artist,
			Tag:    s.SearchTag,
			Score:  scores[idx],
		}
	}
	return results, nil
}

// Songs returns the catalog snapshot the index was trained on.
func (e *Engine) Songs() []domain.Song { return e.songs }

// Matrix exposes the embedding matrix for syncing to a remote vector store.
func (e *Engine) Matrix() [][]float32 { return e.matrix }

// semanticState is the serialized index: encoder identity, catalog snapshot,
// and embedding matrix as one unit.
type semanticState struct {
	Model  string        `json:"model"`
	Songs  []domain.Song `json:"songs"`
	Matrix [][]float32   `json:"matrix"`
}

// Save persists the trained index to path as a versioned bundle.
func (e *Engine) Save(path string) error {
	if !e.Ready() {
		return fmt.Errorf("semantic: save: %w", domain.ErrModelNotLoaded)
	}
	state := semanticState{Model: e.embedder.Model(), Songs: e.songs, Matrix: e.matrix}
	if err := bundle.Save(path, BundleKind, BundleVersion, state); err != nil {
		return err
	}
	e.logger.Info("semantic index saved", "path", path, "songs", len(e.songs))
	return nil
}

// LoadEngine reads a persisted index. Bundles written by a different format
// version or a different encoder model fail with ErrIndexVersion: mixing
// encoders would make catalog and query embeddings incomparable.
func LoadEngine(path string, embedder Embedder, logger *slog.Logger) (*Engine, error) {
	e := NewEngine(embedder, logger)
	var state semanticState
	if err := bundle.Load(path, BundleKind, BundleVersion, &state); err != nil {
		if errors.Is(err, bundle.ErrVersionMismatch) {
			return nil, fmt.Errorf("semantic: load %s: %w: %w", path, domain.ErrIndexVersion, err)
		}
		return nil, fmt.Errorf("semantic: load: %w", err)
	}
	if state.Model != embedder.Model() {
		return nil, fmt.Errorf("semantic: load %s: index encoded with %q, running encoder is %q: %w",
			path, state.Model, embedder.Model(), domain.ErrIndexVersion)
	}
	e.songs = state.Songs
	e.matrix = state.Matrix
	e.logger.Info("semantic index loaded", "path", path, "songs", len(state.Songs), "model", state.Model)
	return e, nil
}
