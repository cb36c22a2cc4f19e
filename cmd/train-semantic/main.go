// Package main trains the semantic engine from the song catalog, writes the
// index bundle, and optionally syncs the vectors into Qdrant.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/MoodTunesAI/moodtunes-mvp/engine/catalog"
	"github.com/MoodTunesAI/moodtunes-mvp/engine/semantic"
	"github.com/MoodTunesAI/moodtunes-mvp/pkg/natsutil"
	"github.com/MoodTunesAI/moodtunes-mvp/pkg/ollama"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Config holds all environment-based configuration.
type Config struct {
	CatalogPath string
	IndexPath   string
	OllamaURL   string
	EmbedModel  string
	QdrantURL   string
	Collection  string
	NATSURL     string
}

func loadConfig() Config {
	return Config{
		CatalogPath: envOr("CATALOG_PATH", "data/catalog.db"),
		IndexPath:   envOr("SEMANTIC_INDEX_PATH", "data/semantic.json"),
		OllamaURL:   envOr("OLLAMA_URL", "http://localhost:11434"),
		EmbedModel:  envOr("EMBED_MODEL", "nomic-embed-text"),
		QdrantURL:   os.Getenv("QDRANT_URL"),
		Collection:  envOr("QDRANT_COLLECTION", "moodtunes"),
		NATSURL:     os.Getenv("NATS_URL"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(loadConfig(), logger); err != nil {
		logger.Error("training failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx := context.Background()

	store, err := catalog.Open(ctx, cfg.CatalogPath)
	if err != nil {
		return err
	}
	defer store.Close()

	songs, err := store.List(ctx)
	if err != nil {
		return err
	}
	logger.Info("catalog loaded", "songs", len(songs))

	embedder := ollama.NewEmbedClient(cfg.OllamaURL, cfg.EmbedModel)
	engine := semantic.NewEngine(embedder, logger)
	if err := engine.Train(ctx, songs); err != nil {
		return fmt.Errorf("train: %w", err)
	}
	if err := engine.Save(cfg.IndexPath); err != nil {
		return fmt.Errorf("save index: %w", err)
	}
	logger.Info("semantic index written", "path", cfg.IndexPath)

	// Smoke test: a mood query against the fresh index must return hits.
	if hits, err := engine.Search(ctx, "happy upbeat feel good", 5); err != nil {
		return fmt.Errorf("smoke test: %w", err)
	} else {
		logger.Info("smoke test passed", "hits", len(hits))
	}

	if cfg.QdrantURL != "" {
		if err := syncQdrant(ctx, cfg, engine, logger); err != nil {
			return fmt.Errorf("qdrant sync: %w", err)
		}
	}

	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL)
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Close()

		event := natsutil.IndexUpdated{
			Kind:    semantic.BundleKind,
			Path:    cfg.IndexPath,
			Version: semantic.BundleVersion,
			Songs:   len(songs),
		}
		if err := natsutil.Publish(ctx, nc, natsutil.SubjectIndexUpdated, event); err != nil {
			return fmt.Errorf("announce index: %w", err)
		}
		nc.Flush()
		logger.Info("index update announced")
	}
	return nil
}

// syncQdrant mirrors the trained vectors into the remote store so API
// replicas can serve semantic search without loading the bundle.
func syncQdrant(ctx context.Context, cfg Config, engine *semantic.Engine, logger *slog.Logger) error {
	store, err := semantic.NewStore(cfg.QdrantURL, cfg.Collection)
	if err != nil {
		return err
	}
	defer store.Close()

	matrix := engine.Matrix()
	songs := engine.Songs()
	if len(matrix) == 0 {
		return nil
	}
	// Full re-sync: drop stale points, then recreate.
	if err := store.DeleteCollection(ctx); err != nil {
		logger.Warn("drop collection before sync", "err", err)
	}
	if err := store.EnsureCollection(ctx, len(matrix[0])); err != nil {
		return err
	}

	records := make([]semantic.VectorRecord, len(songs))
	for i, song := range songs {
		// Qdrant point IDs must be UUIDs; catalog IDs may be raw Spotify IDs.
		pointID := uuid.NewSHA1(uuid.NameSpaceURL, []byte(song.Key())).String()
		records[i] = semantic.VectorRecord{
			ID:        pointID,
			Embedding: matrix[i],
			Payload: map[string]any{
				"song_id": song.ID,
				"name":    song.Name,
				"artist":  song.Artist,
				"tag":     song.SearchTag,
			},
		}
	}
	if err := store.Upsert(ctx, records); err != nil {
		return err
	}
	logger.Info("qdrant synced", "collection", cfg.Collection, "points", len(records))
	return nil
}
