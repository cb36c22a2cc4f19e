// Package main trains the content-based recommender from the song catalog
// and writes the index bundle the API serves from.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/MoodTunesAI/moodtunes-mvp/engine/catalog"
	"github.com/MoodTunesAI/moodtunes-mvp/engine/content"
	"github.com/MoodTunesAI/moodtunes-mvp/pkg/natsutil"
	"github.com/nats-io/nats.go"
)

// Config holds all environment-based configuration.
type Config struct {
	CatalogPath string
	IndexPath   string
	NATSURL     string
}

func loadConfig() Config {
	return Config{
		CatalogPath: envOr("CATALOG_PATH", "data/catalog.db"),
		IndexPath:   envOr("CONTENT_INDEX_PATH", "data/content.json"),
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

	rec := content.New(logger)
	if err := rec.Train(songs); err != nil {
		return fmt.Errorf("train: %w", err)
	}
	if err := rec.Save(cfg.IndexPath); err != nil {
		return fmt.Errorf("save index: %w", err)
	}
	logger.Info("content index written", "path", cfg.IndexPath)

	// Smoke test: the first catalog song must produce neighbors.
	if recs, err := rec.Recommend(songs[0].Name, 5); err != nil {
		return fmt.Errorf("smoke test: %w", err)
	} else {
		logger.Info("smoke test passed", "song", songs[0].Name, "neighbors", len(recs))
	}

	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL)
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Close()

		event := natsutil.IndexUpdated{
			Kind:    content.BundleKind,
			Path:    cfg.IndexPath,
			Version: content.BundleVersion,
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
