// Package worker runs crawl pipelines: crawl, submit to the index, back up,
// notify and record. Worker drives Runner from the job queue in serve mode;
// the crawl command calls Runner directly.
package worker

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitesearch-crawler/internal/backup"
	"github.com/JakeFAU/sitesearch-crawler/internal/clock/system"
	"github.com/JakeFAU/sitesearch-crawler/internal/crawler"
	"github.com/JakeFAU/sitesearch-crawler/internal/id/uuid"
	"github.com/JakeFAU/sitesearch-crawler/internal/metrics"
	"github.com/JakeFAU/sitesearch-crawler/internal/telemetry"
)

// Pipeline holds the per-page collaborators shared by every run.
type Pipeline struct {
	Fetcher    crawler.Fetcher
	Extractor  crawler.Extractor
	Classifier *crawler.Classifier
	Limiter    crawler.HostLimiter
	Pacer      crawler.Pacer
}

// Sinks receive the outcome of a run. Nil entries are skipped.
type Sinks struct {
	Indexer   crawler.Indexer
	Backup    *backup.Writer
	Publisher crawler.Publisher
	Recorder  crawler.RunRecorder
}

// Config controls Runner behavior.
type Config struct {
	// BackupObjectName replaces the default "{run_id}.json" object name.
	BackupObjectName string
	// Topic receives run notifications when a publisher is configured.
	Topic string
}

// Runner executes one crawl run end to end.
type Runner struct {
	pipeline Pipeline
	sinks    Sinks
	ids      crawler.IDGenerator
	clock    crawler.Clock
	cfg      Config
	logger   *zap.Logger
}

// NewRunner wires a Runner. ids and clock default to UUID v7 and the system
// clock.
func NewRunner(
	pipeline Pipeline,
	sinks Sinks,
	ids crawler.IDGenerator,
	clock crawler.Clock,
	cfg Config,
	logger *zap.Logger,
) (*Runner, error) {
	if pipeline.Fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if pipeline.Extractor == nil {
		return nil, errors.New("extractor is required")
	}
	if ids == nil {
		ids = uuid.New()
	}
	if clock == nil {
		clock = system.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		pipeline: pipeline,
		sinks:    sinks,
		ids:      ids,
		clock:    clock,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// Execute crawls from params.StartURL and hands the documents to every
// configured sink. An empty runID gets a fresh one. The only errors returned
// are those that prevent the crawl from starting; sink failures are logged
// and recorded on the result.
func (r *Runner) Execute(ctx context.Context, runID string, params crawler.RunParams) (crawler.RunResult, error) {
	if runID == "" {
		id, err := r.ids.NewID()
		if err != nil {
			return crawler.RunResult{}, fmt.Errorf("run id: %w", err)
		}
		runID = id
	}
	logger := r.logger.With(zap.String("run_id", runID))

	orch, err := crawler.NewOrchestrator(
		params,
		r.pipeline.Fetcher,
		r.pipeline.Extractor,
		r.pipeline.Classifier,
		r.pipeline.Limiter,
		r.pipeline.Pacer,
		logger,
	)
	if err != nil {
		return crawler.RunResult{}, fmt.Errorf("new orchestrator: %w", err)
	}

	metrics.IncActiveRuns()
	defer metrics.DecActiveRuns()

	ctx, span := telemetry.Tracer().Start(ctx, "crawl.run", trace.WithAttributes(
		attribute.String("run.id", runID),
		attribute.String("run.start_url", params.StartURL),
		attribute.Int("run.max_pages", params.MaxPages),
	))
	defer span.End()

	started := r.clock.Now()
	result := orch.Run(ctx)
	result.RunID = runID
	result.StartedAt = started

	// Documents already collected are flushed even when the crawl was
	// interrupted.
	sinkCtx := context.WithoutCancel(ctx)
	r.submit(sinkCtx, logger, &result)
	r.backup(sinkCtx, logger, &result)
	result.FinishedAt = r.clock.Now()
	r.notify(sinkCtx, logger, result)
	r.record(sinkCtx, logger, result)

	span.SetAttributes(attribute.Int("run.documents", len(result.Documents)))
	if result.SubmitError != "" || result.BackupError != "" {
		span.SetStatus(codes.Error, "sink failure")
	}
	metrics.ObserveRun(runStatus(ctx, result))
	logger.Info("run complete",
		zap.String("start_url", params.StartURL),
		zap.Int("documents", len(result.Documents)),
		zap.Bool("submitted", result.Submitted),
		zap.String("backup_uri", result.BackupURI),
		zap.Duration("elapsed", result.FinishedAt.Sub(result.StartedAt)),
	)
	return result, nil
}

func (r *Runner) submit(ctx context.Context, logger *zap.Logger, result *crawler.RunResult) {
	switch {
	case r.sinks.Indexer == nil:
		logger.Info("index submission disabled")
		return
	case len(result.Documents) == 0:
		logger.Info("no documents to submit")
		return
	}
	if err := r.sinks.Indexer.Submit(ctx, result.Documents); err != nil {
		result.SubmitError = err.Error()
		logger.Error("index submission failed", zap.Int("documents", len(result.Documents)), zap.Error(err))
		return
	}
	result.Submitted = true
	logger.Info("documents submitted", zap.Int("documents", len(result.Documents)))
}

func (r *Runner) backup(ctx context.Context, logger *zap.Logger, result *crawler.RunResult) {
	if r.sinks.Backup == nil {
		return
	}
	name := r.cfg.BackupObjectName
	if name == "" {
		name = result.RunID + ".json"
	}
	uri, err := r.sinks.Backup.Write(ctx, name, result.Documents)
	if err != nil {
		result.BackupError = err.Error()
		logger.Error("backup write failed", zap.String("object", name), zap.Error(err))
		return
	}
	result.BackupURI = uri
	logger.Info("backup written", zap.String("backup_uri", uri))
}

func (r *Runner) notify(ctx context.Context, logger *zap.Logger, result crawler.RunResult) {
	if r.sinks.Publisher == nil || r.cfg.Topic == "" {
		return
	}
	msg := crawler.RunNotification{
		RunID:      result.RunID,
		StartURL:   result.Params.StartURL,
		Documents:  len(result.Documents),
		Submitted:  result.Submitted,
		BackupURI:  result.BackupURI,
		FinishedAt: result.FinishedAt,
	}
	id, err := r.sinks.Publisher.Publish(ctx, r.cfg.Topic, msg)
	if err != nil {
		logger.Warn("run notification failed", zap.String("topic", r.cfg.Topic), zap.Error(err))
		return
	}
	logger.Debug("run notification published", zap.String("topic", r.cfg.Topic), zap.String("message_id", id))
}

func (r *Runner) record(ctx context.Context, logger *zap.Logger, result crawler.RunResult) {
	if r.sinks.Recorder == nil {
		return
	}
	if err := r.sinks.Recorder.RecordRun(ctx, result); err != nil {
		logger.Error("record run failed", zap.Error(err))
	}
}

// runStatus labels the crawler_runs_total counter.
func runStatus(ctx context.Context, result crawler.RunResult) string {
	status, _ := deriveFinalStatus(ctx, result)
	return string(status)
}
