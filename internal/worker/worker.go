package worker

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/JakeFAU/sitesearch-crawler/internal/crawler"
	"github.com/JakeFAU/sitesearch-crawler/internal/queue/memory"
)

// Executor runs one crawl. *Runner satisfies it.
type Executor interface {
	Execute(ctx context.Context, runID string, params crawler.RunParams) (crawler.RunResult, error)
}

// Worker consumes queue items and tracks each job through the job store.
type Worker struct {
	queue    crawler.Queue
	jobStore crawler.JobStore
	executor Executor
	logger   *zap.Logger
}

// New constructs a Worker.
func New(queue crawler.Queue, jobStore crawler.JobStore, executor Executor, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		queue:    queue,
		jobStore: jobStore,
		executor: executor,
		logger:   logger,
	}
}

// Run blocks, consuming queue items until the context finishes or the queue
// is closed.
func (w *Worker) Run(ctx context.Context) {
	for {
		item, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, memory.ErrQueueClosed) {
				w.logger.Info("queue closed, worker exiting")
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.logger.Debug("dequeued job", zap.String("job_id", item.JobID))
		w.processJob(ctx, item)
	}
}

func (w *Worker) processJob(ctx context.Context, item crawler.QueueItem) {
	logger := w.logger.With(zap.String("job_id", item.JobID))
	if err := w.jobStore.UpdateJobStatus(ctx, item.JobID, crawler.JobStatusRunning, "", nil); err != nil {
		logger.Error("update job status failed", zap.Error(err))
		return
	}

	result, err := w.executor.Execute(ctx, item.JobID, item.Params)
	if err != nil {
		logger.Error("run failed to start", zap.Error(err))
		w.finish(ctx, logger, item.JobID, crawler.JobStatusFailed, err.Error(), nil)
		return
	}

	summary := result.Summary()
	status, errText := deriveFinalStatus(ctx, result)
	w.finish(ctx, logger, item.JobID, status, errText, &summary)
}

func (w *Worker) finish(
	ctx context.Context,
	logger *zap.Logger,
	jobID string,
	status crawler.JobStatus,
	errText string,
	summary *crawler.RunSummary,
) {
	// The final status must land even when shutdown canceled the run.
	if err := w.jobStore.UpdateJobStatus(context.WithoutCancel(ctx), jobID, status, errText, summary); err != nil {
		logger.Error("final job status update failed", zap.Error(err))
		return
	}
	logger.Info("job finished", zap.String("status", string(status)))
}

func deriveFinalStatus(ctx context.Context, result crawler.RunResult) (crawler.JobStatus, string) {
	switch {
	case ctx.Err() != nil:
		return crawler.JobStatusCanceled, "run canceled"
	case len(result.Documents) == 0:
		return crawler.JobStatusFailed, "no pages were fetched"
	case result.SubmitError != "":
		return crawler.JobStatusFailed, result.SubmitError
	case result.BackupError != "":
		return crawler.JobStatusFailed, result.BackupError
	default:
		return crawler.JobStatusSucceeded, ""
	}
}
