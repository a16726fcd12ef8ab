// Package app wires configuration into the stores, the vision runtime and
// the enrollment and recognition engines. Both binaries share it.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/your-org/attendance/internal/api/handlers"
	"github.com/your-org/attendance/internal/augment"
	"github.com/your-org/attendance/internal/config"
	"github.com/your-org/attendance/internal/identity"
	"github.com/your-org/attendance/internal/queue"
	"github.com/your-org/attendance/internal/storage"
	"github.com/your-org/attendance/internal/vision"
)

type Options struct {
	// SkipVision leaves the engines unset. Used by commands that only read.
	SkipVision bool
	// RequireVision turns a model loading failure into an error instead of
	// a warning.
	RequireVision bool
}

type App struct {
	Config *config.Config
	Store  storage.Store

	// Objects and Producer are nil when their backend is disabled.
	Objects  *storage.MinIOStore
	Producer *queue.Producer

	// Enroller and Matcher are nil when the vision runtime is unavailable.
	Enroller *identity.Enroller
	Matcher  *identity.Matcher

	closers []func()
}

func Open(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	a := &App{Config: cfg}

	store, err := openStore(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	a.Store = store
	a.closers = append(a.closers, store.Close)

	if cfg.MinIO.Enabled {
		objects, err := storage.NewMinIOStore(cfg.MinIO)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect to minio: %w", err)
		}
		if err := objects.EnsureBucket(ctx); err != nil {
			slog.Warn("ensure minio bucket", "error", err)
		}
		a.Objects = objects
	}

	if cfg.NATS.Enabled {
		producer, err := queue.NewProducer(cfg.NATS.URL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect to nats: %w", err)
		}
		a.closers = append(a.closers, producer.Close)
		if err := producer.EnsureStream(ctx); err != nil {
			slog.Warn("ensure nats stream", "error", err)
		}
		a.Producer = producer
	}

	if opts.SkipVision {
		return a, nil
	}

	provider, err := openVision(cfg.Vision)
	if err != nil {
		if opts.RequireVision {
			a.Close()
			return nil, err
		}
		slog.Warn("vision runtime unavailable, enrollment and recognition disabled", "error", err)
		return a, nil
	}
	a.closers = append(a.closers, vision.DestroyRuntime, provider.Close)
	a.UseProvider(provider)

	return a, nil
}

func openStore(ctx context.Context, cfg config.DatabaseConfig) (storage.Store, error) {
	if cfg.Driver == "memory" {
		slog.Warn("using in-memory store, data is lost on exit")
		return storage.NewMemoryStore(), nil
	}

	db, err := storage.NewPostgresStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return db, nil
}

func openVision(cfg config.VisionConfig) (*vision.Provider, error) {
	if err := vision.InitRuntime(cfg.ONNXLibrary); err != nil {
		return nil, err
	}
	provider, err := vision.NewProvider(cfg)
	if err != nil {
		vision.DestroyRuntime()
		return nil, err
	}
	return provider, nil
}

// UseProvider builds the enrollment and recognition engines on top of
// provider and the already opened stores.
func (a *App) UseProvider(provider identity.EmbeddingProvider) {
	cfg := a.Config

	// config.Load has already rejected unknown names. A nil metric defers
	// to the provider.
	metric, err := identity.MetricByName(cfg.Matching.Metric)
	if err != nil {
		slog.Warn("unknown matching metric, using the provider's", "metric", cfg.Matching.Metric)
	}

	a.Enroller = identity.NewEnroller(identity.EnrollConfig{
		AugmentCount: cfg.Enrollment.Augmentations(),
		Serialize:    cfg.Enrollment.SerializeByName(),
	}, provider, augment.New(cfg.Enrollment.Seed), a.Store)

	a.Matcher = identity.NewMatcher(identity.MatchConfig{
		Threshold:   cfg.Matching.Threshold,
		Metric:      metric,
		DedupWindow: cfg.Matching.DedupWindow,
	}, provider, a.Store, a.Store)

	if a.Objects != nil {
		a.Enroller.Objects = a.Objects
		a.Matcher.Objects = a.Objects
	}
	if a.Producer != nil {
		a.Matcher.Events = a.Producer
	}
}

// Readiness lists a check for every backend in use.
func (a *App) Readiness() []handlers.ReadinessCheck {
	checks := []handlers.ReadinessCheck{{Name: "database", Check: a.Store.Ping}}
	if a.Objects != nil {
		checks = append(checks, handlers.ReadinessCheck{Name: "minio", Check: a.Objects.Ping})
	}
	if a.Producer != nil {
		checks = append(checks, handlers.ReadinessCheck{Name: "nats", Check: func(context.Context) error {
			return a.Producer.Ping()
		}})
	}
	checks = append(checks, handlers.ReadinessCheck{Name: "vision", Check: func(context.Context) error {
		if a.Matcher == nil {
			return fmt.Errorf("vision runtime not loaded")
		}
		return nil
	}})
	return checks
}

// Close releases everything Open acquired, in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
