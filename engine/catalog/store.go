// Package catalog persists the song catalog in SQLite. It is the source the
// trainers read from and the ingest pipeline writes into.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MoodTunesAI/moodtunes-mvp/engine/domain"
	"github.com/goccy/go-json"
	_ "modernc.org/sqlite" // register pure-Go SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS songs (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	artist       TEXT NOT NULL,
	genre        TEXT NOT NULL DEFAULT '',
	mood         TEXT NOT NULL DEFAULT '',
	search_tag   TEXT NOT NULL DEFAULT '',
	audio        TEXT NOT NULL DEFAULT '{}',
	is_synthetic INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_songs_name_artist ON songs (lower(name), lower(artist));
`

// Store wraps a SQLite database holding the song catalog.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the catalog at path and ensures the schema exists.
// Pass ":memory:" for an in-memory catalog.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init catalog schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Put inserts or replaces a song keyed by its catalog ID.
func (s *Store) Put(ctx context.Context, song domain.Song) error {
	if song.ID == "" {
		return domain.NewValidationError("id", "", domain.ErrInvalidSong)
	}
	audio, err := json.Marshal(song.Audio)
	if err != nil {
		return fmt.Errorf("encode audio attributes: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO songs (id, name, artist, genre, mood, search_tag, audio, is_synthetic)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			artist = excluded.artist,
			genre = excluded.genre,
			mood = excluded.mood,
			search_tag = excluded.search_tag,
			audio = excluded.audio,
			is_synthetic = excluded.is_synthetic`,
		song.ID, song.Name, song.Artist, song.Genre, song.Mood,
		song.SearchTag, string(audio), boolToInt(song.IsSynthetic))
	if err != nil {
		return fmt.Errorf("put song %s: %w", song.ID, err)
	}
	return nil
}

// Has reports whether a song with the given catalog ID exists.
func (s *Store) Has(ctx context.Context, id string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM songs WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("has song %s: %w", id, err)
	}
	return n > 0, nil
}

// Get returns the song with the given catalog ID.
func (s *Store) Get(ctx context.Context, id string) (domain.Song, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, artist, genre, mood, search_tag, audio, is_synthetic
		FROM songs WHERE id = ?`, id)
	song, err := scanSong(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Song{}, domain.ErrSongNotFound
	}
	if err != nil {
		return domain.Song{}, fmt.Errorf("get song %s: %w", id, err)
	}
	return song, nil
}

// List returns the whole catalog ordered by insertion-stable rowid, so the
// trainers see songs in a deterministic order.
func (s *Store) List(ctx context.Context) ([]domain.Song, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, artist, genre, mood, search_tag, audio, is_synthetic
		FROM songs ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list songs: %w", err)
	}
	defer rows.Close()

	var songs []domain.Song
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, fmt.Errorf("scan song: %w", err)
		}
		songs = append(songs, song)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list songs: %w", err)
	}
	return songs, nil
}

// Count returns the number of songs in the catalog.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM songs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count songs: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSong(row scanner) (domain.Song, error) {
	var (
		song      domain.Song
		audio     string
		synthetic int
	)
	err := row.Scan(&song.ID, &song.Name, &song.Artist, &song.Genre,
		&song.Mood, &song.SearchTag, &audio, &synthetic)
	if err != nil {
		return domain.Song{}, err
	}
	if audio != "" && audio != "{}" {
		if err := json.Unmarshal([]byte(audio), &song.Audio); err != nil {
			return domain.Song{}, fmt.Errorf("decode audio attributes: %w", err)
		}
	}
	song.IsSynthetic = synthetic != 0
	return song, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
