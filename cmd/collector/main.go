// Package main implements the catalog collector. It pulls tracks from a set
// of mood-tagged Spotify playlists and feeds them into the catalog, either
// directly or through the NATS ingest subject.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/MoodTunesAI/moodtunes-mvp/engine/catalog"
	"github.com/MoodTunesAI/moodtunes-mvp/engine/domain"
	"github.com/MoodTunesAI/moodtunes-mvp/engine/ingest"
	"github.com/MoodTunesAI/moodtunes-mvp/pkg/natsutil"
	"github.com/MoodTunesAI/moodtunes-mvp/pkg/spotify"
	"github.com/nats-io/nats.go"
)

// defaultPlaylists are the seed playlists, tagged with the mood their songs
// inherit.
var defaultPlaylists = []playlistRef{
	{ID: "37i9dQZF1DXcBWIGoYBM5M", Mood: "happy"},     // Today's Top Hits
	{ID: "37i9dQZF1DX7qK8ma5wgG1", Mood: "sad"},       // Sad Songs
	{ID: "37i9dQZF1DX76Wlfdnj7AP", Mood: "energetic"}, // Beast Mode
	{ID: "37i9dQZF1DX3rxVfibe1L0", Mood: "happy"},     // Mood Booster
}

type playlistRef struct {
	ID   string
	Mood string
}

// Config holds all environment-based configuration.
type Config struct {
	SpotifyID     string
	SpotifySecret string
	CatalogPath   string
	NATSURL       string
	Playlists     []playlistRef
	PerPlaylist   int
}

func loadConfig() Config {
	playlists := defaultPlaylists
	if raw := os.Getenv("PLAYLISTS"); raw != "" {
		playlists = parsePlaylists(raw)
	}
	return Config{
		SpotifyID:     os.Getenv("SPOTIFY_CLIENT_ID"),
		SpotifySecret: os.Getenv("SPOTIFY_CLIENT_SECRET"),
		CatalogPath:   envOr("CATALOG_PATH", "data/catalog.db"),
		NATSURL:       os.Getenv("NATS_URL"),
		Playlists:     playlists,
		PerPlaylist:   20,
	}
}

// parsePlaylists reads "id:mood,id:mood" pairs. A pair without a mood keeps
// an empty mood and gets the neutral synthetic profile.
func parsePlaylists(raw string) []playlistRef {
	var refs []playlistRef
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		id, mood, _ := strings.Cut(pair, ":")
		refs = append(refs, playlistRef{ID: id, Mood: mood})
	}
	return refs
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
		logger.Error("collector failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx := context.Background()

	client := spotify.NewClient(ctx, spotify.Config{
		ClientID:     cfg.SpotifyID,
		ClientSecret: cfg.SpotifySecret,
	})

	sink, cleanup, err := buildSink(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	total := 0
	for _, ref := range cfg.Playlists {
		logger.Info("fetching playlist", "playlist", ref.ID, "mood", ref.Mood)
		songs, err := client.FetchPlaylistTracks(ctx, ref.ID, ref.Mood, cfg.PerPlaylist)
		if err != nil {
			logger.Error("playlist fetch failed", "playlist", ref.ID, "err", err)
			continue
		}
		for _, song := range songs {
			if err := sink(ctx, song); err != nil {
				logger.Warn("song rejected", "song", song.Key(), "err", err)
				continue
			}
			total++
		}
	}

	logger.Info("collection complete", "songs", total)
	return nil
}

// buildSink returns the per-song delivery function: NATS publish when
// configured, otherwise the ingest pipeline writing straight into SQLite.
func buildSink(ctx context.Context, cfg Config, logger *slog.Logger) (func(context.Context, domain.Song) error, func(), error) {
	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL)
		if err != nil {
			return nil, nil, fmt.Errorf("nats connect: %w", err)
		}
		sink := func(ctx context.Context, song domain.Song) error {
			return natsutil.Publish(ctx, nc, ingest.IngestSubject, song)
		}
		return sink, func() { nc.Flush(); nc.Close() }, nil
	}

	store, err := catalog.Open(ctx, cfg.CatalogPath)
	if err != nil {
		return nil, nil, err
	}
	pipeline := ingest.NewPipeline(ingest.Deps{Store: store, Logger: logger})
	sink := func(ctx context.Context, song domain.Song) error {
		_, err := pipeline(ctx, song).Unwrap()
		return err
	}
	return sink, func() { store.Close() }, nil
}
