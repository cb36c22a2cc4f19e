// Package main implements the MoodTunes recommendation API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/MoodTunesAI/moodtunes-mvp/engine/catalog"
	"github.com/MoodTunesAI/moodtunes-mvp/engine/content"
	"github.com/MoodTunesAI/moodtunes-mvp/engine/domain"
	"github.com/MoodTunesAI/moodtunes-mvp/engine/ingest"
	"github.com/MoodTunesAI/moodtunes-mvp/engine/router"
	"github.com/MoodTunesAI/moodtunes-mvp/engine/semantic"
	"github.com/MoodTunesAI/moodtunes-mvp/pkg/metrics"
	"github.com/MoodTunesAI/moodtunes-mvp/pkg/mid"
	"github.com/MoodTunesAI/moodtunes-mvp/pkg/natsutil"
	"github.com/MoodTunesAI/moodtunes-mvp/pkg/ollama"
	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
)

// Config holds all environment-based configuration.
type Config struct {
	Port         string
	ContentPath  string
	SemanticPath string
	CatalogPath  string
	OllamaURL    string
	EmbedModel   string
	QdrantURL    string
	Collection   string
	NATSURL      string
	CORSOrigin   string
	ExploreSeed  int64
}

func loadConfig() Config {
	seed := int64(0)
	if raw := os.Getenv("EXPLORE_SEED"); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil {
			seed = parsed
		}
	}
	return Config{
		Port:         envOr("PORT", "8080"),
		ContentPath:  envOr("CONTENT_INDEX_PATH", "data/content.json"),
		SemanticPath: envOr("SEMANTIC_INDEX_PATH", "data/semantic.json"),
		CatalogPath:  envOr("CATALOG_PATH", "data/catalog.db"),
		OllamaURL:    envOr("OLLAMA_URL", "http://localhost:11434"),
		EmbedModel:   envOr("EMBED_MODEL", "nomic-embed-text"),
		QdrantURL:    os.Getenv("QDRANT_URL"),
		Collection:   envOr("QDRANT_COLLECTION", "moodtunes"),
		NATSURL:      os.Getenv("NATS_URL"),
		CORSOrigin:   envOr("CORS_ORIGIN", "*"),
		ExploreSeed:  seed,
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

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

// serving bundles the router the handlers read. It is swapped atomically
// when a trainer publishes a fresh index.
type serving struct {
	router *router.Router
}

type app struct {
	cfg      Config
	logger   *slog.Logger
	embedder semantic.Embedder
	store    *semantic.VectorStore
	current  atomic.Pointer[serving]
}

// reload builds a router from whatever index bundles exist on disk. A missing
// bundle leaves that engine nil; the router degrades accordingly. Only when
// neither engine can serve does the handler report 503.
func (a *app) reload(kind string) {
	var contentEngine router.ContentRecommender
	if rec, err := content.Load(a.cfg.ContentPath, a.logger); err != nil {
		a.logger.Warn("content index unavailable", "path", a.cfg.ContentPath, "err", err)
		metrics.IndexReloads.WithLabelValues("content", "error").Inc()
	} else {
		contentEngine = rec
		metrics.IndexReloads.WithLabelValues("content", "ok").Inc()
	}

	var semanticEngine router.SemanticSearcher
	if a.store != nil {
		semanticEngine = semantic.NewRemoteEngine(a.store, a.embedder)
		metrics.IndexReloads.WithLabelValues("semantic", "remote").Inc()
	} else if eng, err := semantic.LoadEngine(a.cfg.SemanticPath, a.embedder, a.logger); err != nil {
		a.logger.Warn("semantic index unavailable", "path", a.cfg.SemanticPath, "err", err)
		metrics.IndexReloads.WithLabelValues("semantic", "error").Inc()
	} else {
		semanticEngine = eng
		metrics.IndexReloads.WithLabelValues("semantic", "ok").Inc()
	}

	var rng *rand.Rand
	if a.cfg.ExploreSeed != 0 {
		rng = rand.New(rand.NewSource(a.cfg.ExploreSeed))
	}
	rt := router.New(contentEngine, semanticEngine, router.DefaultOptions(), rng, a.logger)
	a.current.Store(&serving{router: rt})
	a.logger.Info("indices loaded", "trigger", kind,
		"content_ready", contentEngine != nil, "semantic_ready", semanticEngine != nil)
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{
		cfg:      cfg,
		logger:   logger,
		embedder: ollama.NewEmbedClient(cfg.OllamaURL, cfg.EmbedModel),
	}

	// Optional remote vector store. When unset the semantic engine serves
	// from the on-disk bundle.
	if cfg.QdrantURL != "" {
		store, err := semantic.NewStore(cfg.QdrantURL, cfg.Collection)
		if err != nil {
			return fmt.Errorf("qdrant connect: %w", err)
		}
		defer store.Close()
		a.store = store
	}

	a.reload("startup")

	// Hot reload on trainer announcements, plus the catalog ingest consumer.
	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL)
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Close()

		sub, err := natsutil.Subscribe(nc, natsutil.SubjectIndexUpdated,
			func(_ context.Context, event natsutil.IndexUpdated) {
				logger.Info("index update announced", "kind", event.Kind, "songs", event.Songs)
				a.reload(event.Kind)
			})
		if err != nil {
			return fmt.Errorf("nats subscribe: %w", err)
		}
		defer sub.Unsubscribe()

		store, err := catalog.Open(ctx, cfg.CatalogPath)
		if err != nil {
			return fmt.Errorf("open catalog: %w", err)
		}
		defer store.Close()

		ingestSub, err := ingest.StartConsumer(nc, ingest.Deps{Store: store, Logger: logger})
		if err != nil {
			return fmt.Errorf("ingest consumer: %w", err)
		}
		defer ingestSub.Unsubscribe()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", a.handleHealth)
	mux.HandleFunc("POST /api/recommend", a.handleRecommend)
	mux.Handle("GET /metrics", metrics.Handler())

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.RequestID(),
		mid.Logger(logger),
		mid.Metrics(),
		mid.CORS(cfg.CORSOrigin),
		mid.OTel("moodtunes-api"),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// --- Handlers ---

func (a *app) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (a *app) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req router.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}

	s := a.current.Load()
	if s == nil {
		http.Error(w, `{"error":"indices not loaded"}`, http.StatusServiceUnavailable)
		return
	}

	start := time.Now()
	resp, err := s.router.Route(r.Context(), req)
	metrics.SearchDuration.WithLabelValues("router").Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, domain.ErrModelNotLoaded) {
			http.Error(w, `{"error":"indices not loaded"}`, http.StatusServiceUnavailable)
			return
		}
		a.logger.Error("recommend failed", "err", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
