// Package ingest provides the catalog ingestion pipeline that processes
// incoming songs through validation, normalization, and storage stages.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MoodTunesAI/moodtunes-mvp/engine/domain"
	"github.com/MoodTunesAI/moodtunes-mvp/pkg/fn"
	"github.com/MoodTunesAI/moodtunes-mvp/pkg/metrics"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const (
	// IngestSubject is the NATS subject for incoming catalog songs.
	IngestSubject = "catalog.ingest"
	// DLQSubject is the dead letter queue subject for failed messages.
	DLQSubject = "catalog.ingest.dlq"
	// MaxRetries before sending to DLQ.
	MaxRetries = 3
)

// SongStore persists normalized songs. The sqlite catalog implements it.
type SongStore interface {
	Put(ctx context.Context, song domain.Song) error
	Has(ctx context.Context, key string) (bool, error)
}

// Deps holds the external dependencies for the ingestion pipeline.
type Deps struct {
	Store  SongStore
	Logger *slog.Logger
}

// --- Pipeline Stages ---

// Validate checks an incoming song via domain validation.
var Validate fn.Stage[domain.Song, domain.Song] = func(_ context.Context, song domain.Song) fn.Result[domain.Song] {
	if err := domain.ValidateSong(song); err != nil {
		return fn.Err[domain.Song](err)
	}
	return fn.Ok(song)
}

// Normalize trims text fields, assigns an ID when missing, and derives a
// search tag from genre and mood when none was supplied.
var Normalize fn.Stage[domain.Song, domain.Song] = func(_ context.Context, song domain.Song) fn.Result[domain.Song] {
	song.Name = strings.TrimSpace(song.Name)
	song.Artist = strings.TrimSpace(song.Artist)
	song.Genre = strings.TrimSpace(song.Genre)
	song.Mood = strings.TrimSpace(song.Mood)
	song.SearchTag = strings.TrimSpace(song.SearchTag)

	if song.ID == "" {
		song.ID = uuid.NewSHA1(uuid.NameSpaceURL, []byte(song.Key())).String()
	}
	if song.SearchTag == "" {
		song.SearchTag = strings.TrimSpace(song.Genre + " " + song.Mood)
	}
	return fn.Ok(song)
}

// NewStore creates a Store stage that writes the song to the catalog.
func NewStore(store SongStore) fn.Stage[domain.Song, string] {
	return func(ctx context.Context, song domain.Song) fn.Result[string] {
		if err := store.Put(ctx, song); err != nil {
			return fn.Err[string](fmt.Errorf("catalog put: %w", err))
		}
		metrics.IngestedSongs.Inc()
		return fn.Ok(song.Key())
	}
}

// LoggedTap returns a stage that logs entry/exit with duration.
func LoggedTap[T any](name string, log *slog.Logger) fn.Stage[T, T] {
	return func(_ context.Context, t T) fn.Result[T] {
		log.Info("stage.enter", "stage", name)
		start := time.Now()
		defer func() {
			log.Info("stage.exit", "stage", name, "duration", time.Since(start))
		}()
		return fn.Ok(t)
	}
}

// NewPipeline constructs the full ingestion pipeline with all stages wired.
func NewPipeline(deps Deps) fn.Stage[domain.Song, string] {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	validated := fn.Then(LoggedTap[domain.Song]("validate", log), Validate)
	normalized := fn.Then(validated, fn.Then(LoggedTap[domain.Song]("normalize", log), Normalize))
	stored := fn.Then(normalized, fn.Then(LoggedTap[domain.Song]("store", log), NewStore(deps.Store)))

	return stored
}

// dlqMessage is published to the DLQ on repeated failure.
type dlqMessage struct {
	Song    domain.Song `json:"song"`
	Error   string      `json:"error"`
	Retries int         `json:"retries"`
}

// StartConsumer starts a NATS consumer that runs incoming songs through the
// ingestion pipeline with retry and DLQ support.
func StartConsumer(nc *nats.Conn, deps Deps) (*nats.Subscription, error) {
	pipeline := NewPipeline(deps)
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	return nc.Subscribe(IngestSubject, func(msg *nats.Msg) {
		var song domain.Song
		if err := json.Unmarshal(msg.Data, &song); err != nil {
			log.Error("ingest: unmarshal failed", "error", err)
			return
		}

		ctx := context.Background()

		// Dedupe on the normalized key so the check matches what Put stored.
		normalized, _ := Normalize(ctx, song).Unwrap()
		if exists, err := deps.Store.Has(ctx, normalized.Key()); err != nil {
			log.Warn("ingest: dedup check failed", "error", err)
		} else if exists {
			log.Info("ingest: skipping duplicate", "song", song.Key())
			return
		}

		retries := 0
		if msg.Header != nil {
			if v := msg.Header.Get("X-Retry-Count"); v != "" {
				fmt.Sscanf(v, "%d", &retries)
			}
		}

		result := pipeline(ctx, song)
		if result.IsErr() {
			_, pipeErr := result.Unwrap()
			retries++
			log.Error("ingest: pipeline failed",
				"error", pipeErr,
				"song", song.Key(),
				"retry", retries,
			)

			if retries >= MaxRetries {
				dlq := dlqMessage{Song: song, Error: pipeErr.Error(), Retries: retries}
				data, _ := json.Marshal(dlq)
				if err := nc.Publish(DLQSubject, data); err != nil {
					log.Error("ingest: DLQ publish failed", "error", err)
				}
			} else {
				retryMsg := nats.NewMsg(IngestSubject)
				retryMsg.Data = msg.Data
				retryMsg.Header = nats.Header{}
				retryMsg.Header.Set("X-Retry-Count", fmt.Sprintf("%d", retries))
				if err := nc.PublishMsg(retryMsg); err != nil {
					log.Error("ingest: retry publish failed", "error", err)
				}
			}
			return
		}

		key, _ := result.Unwrap()
		log.Info("ingest: success", "song", key)
	})
}
