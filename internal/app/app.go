// Package app builds the long-lived services of the crawler from
// configuration and owns their shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/sitesearch-crawler/internal/backup"
	"github.com/JakeFAU/sitesearch-crawler/internal/clock/system"
	"github.com/JakeFAU/sitesearch-crawler/internal/config"
	"github.com/JakeFAU/sitesearch-crawler/internal/crawler"
	"github.com/JakeFAU/sitesearch-crawler/internal/extract"
	collyfetcher "github.com/JakeFAU/sitesearch-crawler/internal/fetcher/colly"
	"github.com/JakeFAU/sitesearch-crawler/internal/id/uuid"
	"github.com/JakeFAU/sitesearch-crawler/internal/index/solr"
	"github.com/JakeFAU/sitesearch-crawler/internal/logging"
	"github.com/JakeFAU/sitesearch-crawler/internal/policy/ratelimit"
	kafkapublisher "github.com/JakeFAU/sitesearch-crawler/internal/publisher/kafka"
	pubsubpublisher "github.com/JakeFAU/sitesearch-crawler/internal/publisher/pubsub"
	"github.com/JakeFAU/sitesearch-crawler/internal/storage/gcs"
	"github.com/JakeFAU/sitesearch-crawler/internal/storage/local"
	memoryStorage "github.com/JakeFAU/sitesearch-crawler/internal/storage/memory"
	"github.com/JakeFAU/sitesearch-crawler/internal/storage/postgres"
	redisstore "github.com/JakeFAU/sitesearch-crawler/internal/storage/redis"
	"github.com/JakeFAU/sitesearch-crawler/internal/telemetry"
	"github.com/JakeFAU/sitesearch-crawler/internal/worker"
)

// App holds the shared services for one process.
type App struct {
	cfg    config.Config
	logger *zap.Logger

	clock     crawler.Clock
	ids       crawler.IDGenerator
	fetcher   *collyfetcher.Fetcher
	limiter   *ratelimit.Limiter
	solr      *solr.Client
	blobs     crawler.BlobStore
	backup    *backup.Writer
	publisher crawler.Publisher
	runs      crawler.RunRecorder
	jobs      crawler.JobStore

	checks  map[string]func(context.Context) error
	closers []closer
}

type closer struct {
	name string
	fn   func() error
}

// New initializes every configured service. It fails fast; anything opened
// before the failure is closed again.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{
		cfg:    cfg,
		logger: logger,
		clock:  system.New(),
		ids:    uuid.New(),
		checks: make(map[string]func(context.Context) error),
	}
	a.fetcher = collyfetcher.New(collyfetcher.Config{
		UserAgent:     cfg.Crawler.UserAgent,
		RespectRobots: cfg.Crawler.RespectRobots,
		Timeout:       cfg.HTTP.Timeout(),
		MaxBodyBytes:  cfg.Crawler.MaxBodyBytes,
	}, logger.Named("fetcher"))
	if cfg.Crawler.HostRPS > 0 {
		a.limiter = ratelimit.New(ratelimit.Config{
			DefaultRPS:   cfg.Crawler.HostRPS,
			DefaultBurst: cfg.Crawler.HostBurst,
		})
	}

	steps := []func(context.Context) error{
		a.initTracing,
		a.initIndex,
		a.initBlobs,
		a.initPublisher,
		a.initRunStore,
		a.initJobStore,
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}
	logger.Info("application services initialized",
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.Bool("index_enabled", a.solr != nil),
		zap.Bool("run_history", a.runs != nil),
		zap.String("notification_topic", cfg.NotificationTopic()),
	)
	return a, nil
}

func (a *App) initIndex(context.Context) error {
	if !a.cfg.Index.Enabled {
		return nil
	}
	client, err := solr.New(solr.Config{
		BaseURL:   a.cfg.Index.SolrURL,
		Timeout:   a.cfg.Index.Timeout(),
		Suggester: a.cfg.Index.Suggester,
	}, nil, a.logger.Named("solr"))
	if err != nil {
		return fmt.Errorf("init solr client: %w", err)
	}
	a.solr = client
	a.checks["solr"] = client.Ping
	return nil
}

func (a *App) initBlobs(ctx context.Context) error {
	switch a.cfg.Storage.Backend {
	case config.BackendGCS:
		store, err := gcs.Open(ctx, gcs.Config{
			Bucket:       a.cfg.Storage.GCSBucket,
			VerifyBucket: a.cfg.Storage.VerifyBucket,
		})
		if err != nil {
			return fmt.Errorf("init gcs blob store: %w", err)
		}
		a.blobs = store
		a.closers = append(a.closers, closer{"gcs", store.Close})
	case config.BackendMemory:
		a.blobs = memoryStorage.NewBlobStore()
	default:
		store, err := local.New(local.Config{BaseDir: a.cfg.Storage.LocalDir})
		if err != nil {
			return fmt.Errorf("init local blob store: %w", err)
		}
		a.blobs = store
	}
	writer, err := backup.New(a.blobs, a.cfg.Backup.Prefix)
	if err != nil {
		return fmt.Errorf("init backup writer: %w", err)
	}
	a.backup = writer
	return nil
}

func (a *App) initPublisher(ctx context.Context) error {
	switch {
	case a.cfg.PubSub.TopicName != "":
		pub, err := pubsubpublisher.Open(ctx, a.cfg.PubSub.ProjectID, a.cfg.PubSub.TopicName)
		if err != nil {
			return fmt.Errorf("init pubsub publisher: %w", err)
		}
		a.publisher = pub
		a.closers = append(a.closers, closer{"pubsub", pub.Close})
	case len(a.cfg.Kafka.Brokers) > 0:
		pub, err := kafkapublisher.New(kafkapublisher.Config{
			Brokers:      a.cfg.Kafka.Brokers,
			BatchTimeout: time.Duration(a.cfg.Kafka.BatchTimeoutMs) * time.Millisecond,
		})
		if err != nil {
			return fmt.Errorf("init kafka publisher: %w", err)
		}
		a.publisher = pub
		a.closers = append(a.closers, closer{"kafka", pub.Close})
	}
	return nil
}

func (a *App) initRunStore(ctx context.Context) error {
	if a.cfg.DB.DSN == "" {
		return nil
	}
	store, err := postgres.NewRunStore(ctx, postgres.RunStoreConfig{
		DSN:             a.cfg.DB.DSN,
		Table:           a.cfg.DB.Table,
		MaxConns:        a.cfg.DB.MaxConns,
		MinConns:        a.cfg.DB.MinConns,
		MaxConnLifetime: time.Duration(a.cfg.DB.MaxConnLifetimeMinutes) * time.Minute,
		AutoMigrate:     a.cfg.DB.AutoMigrate,
	})
	if err != nil {
		return fmt.Errorf("init run store: %w", err)
	}
	a.runs = store
	a.checks["postgres"] = store.Ping
	a.closers = append(a.closers, closer{"postgres", func() error {
		store.Close()
		return nil
	}})
	return nil
}

func (a *App) initJobStore(context.Context) error {
	if a.cfg.Redis.Addr == "" {
		a.jobs = memoryStorage.NewJobStore()
		return nil
	}
	store, err := redisstore.New(redisstore.Config{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
		Prefix:   a.cfg.Redis.Prefix,
		TTL:      time.Duration(a.cfg.Redis.TTLHours) * time.Hour,
	})
	if err != nil {
		return fmt.Errorf("init redis job store: %w", err)
	}
	a.jobs = store
	a.checks["redis"] = store.Ping
	a.closers = append(a.closers, closer{"redis", store.Close})
	return nil
}

// Runner assembles a run pipeline over the shared services. backupName
// fixes the backup object name; "" writes one object per run. submit=false
// skips the index even when it is configured.
func (a *App) Runner(backupName string, submit bool) (*worker.Runner, error) {
	sinks := worker.Sinks{
		Backup:    a.backup,
		Publisher: a.publisher,
		Recorder:  a.runs,
	}
	if submit && a.solr != nil {
		sinks.Indexer = a.solr
	}
	pipeline := worker.Pipeline{
		Fetcher:    a.fetcher,
		Extractor:  extract.New(),
		Classifier: crawler.NewClassifier(crawler.DefaultContentRules()...),
		Pacer:      crawler.NewTimerPacer(),
	}
	if a.limiter != nil {
		pipeline.Limiter = a.limiter
	}
	runner, err := worker.NewRunner(pipeline, sinks, a.ids, a.clock, worker.Config{
		BackupObjectName: backupName,
		Topic:            a.cfg.NotificationTopic(),
	}, a.logger.Named("run"))
	if err != nil {
		return nil, fmt.Errorf("build runner: %w", err)
	}
	return runner, nil
}

// Config returns the configuration the App was built from.
func (a *App) Config() config.Config { return a.cfg }

// Logger returns the root logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Clock returns the shared clock.
func (a *App) Clock() crawler.Clock { return a.clock }

// IDs returns the shared ID generator.
func (a *App) IDs() crawler.IDGenerator { return a.ids }

// JobStore returns the job store used by serve mode.
func (a *App) JobStore() crawler.JobStore { return a.jobs }

// Index returns the Solr client, or an error when the index is disabled.
func (a *App) Index() (*solr.Client, error) {
	if a.solr == nil {
		return nil, errors.New("index is disabled (index.enabled=false)")
	}
	return a.solr, nil
}

// ReadinessChecks returns probes for the remote dependencies in use.
func (a *App) ReadinessChecks() map[string]func(context.Context) error {
	out := make(map[string]func(context.Context) error, len(a.checks))
	for name, check := range a.checks {
		out[name] = check
	}
	return out
}

// Close shuts services down in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(); err != nil {
			a.logger.Warn("close service failed", zap.String("service", c.name), zap.Error(err))
		}
	}
	a.closers = nil
}

func (a *App) initTracing(ctx context.Context) error {
	tp, err := telemetry.InitTracerProvider(ctx, logging.ServiceName)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	a.closers = append(a.closers, closer{"tracing", func() error {
		return tp.Shutdown(context.Background())
	}})
	return nil
}
