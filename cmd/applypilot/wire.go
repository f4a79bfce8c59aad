package main

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jonathan/applypilot/internal/backend"
	"github.com/jonathan/applypilot/internal/config"
	"github.com/jonathan/applypilot/internal/feed"
	"github.com/jonathan/applypilot/internal/pipeline"
	"github.com/jonathan/applypilot/internal/session"
	"github.com/jonathan/applypilot/internal/storage"
	"github.com/jonathan/applypilot/internal/store"
	"github.com/jonathan/applypilot/internal/syncer"
)

// app bundles the wired collaborators for one CLI invocation.
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	db       *backend.DB
	redis    *redis.Client
	auth     *session.TokenAuth
	session  *session.Tracker
	store    *store.EntityStore
	feed     *feed.Reconciler
	pipeline *pipeline.Pipeline
	syncer   *syncer.Coordinator
}

// newApp loads configuration and wires the full sync core against the real
// collaborators.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if verbose {
		log = log.Level(zerolog.DebugLevel)
	} else {
		log = log.Level(zerolog.InfoLevel)
	}

	db, err := backend.Connect(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return nil, err
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)

	blobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		db.Close()
		_ = redisClient.Close()
		return nil, err
	}

	auth := session.NewTokenAuth(cfg.JWTSecret, cfg.Token)
	tracker := session.NewTracker(ctx, auth, log)
	st := store.New(log)
	rec := feed.NewReconciler(backend.NewRedisFeed(redisClient, log), st, log)
	pipe := pipeline.New(tracker, st, db, blobs, log)
	coord := syncer.NewCoordinator(tracker, st, db, rec, log)

	return &app{
		cfg:      cfg,
		log:      log,
		db:       db,
		redis:    redisClient,
		auth:     auth,
		session:  tracker,
		store:    st,
		feed:     rec,
		pipeline: pipe,
		syncer:   coord,
	}, nil
}

// newBlobStore selects S3 when a bucket is configured, otherwise the local
// filesystem store.
func newBlobStore(ctx context.Context, cfg *config.Config) (storage.BlobStore, error) {
	if cfg.S3Bucket != "" {
		return storage.NewS3Store(ctx, cfg.S3Region, cfg.S3Bucket)
	}
	return storage.NewLocalStore(cfg.StorageDir, cfg.StorageBaseURL), nil
}

func (a *app) close() {
	a.db.Close()
	_ = a.redis.Close()
}

var verbose bool

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}
