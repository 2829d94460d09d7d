package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitesearch-crawler/internal/api"
	"github.com/JakeFAU/sitesearch-crawler/internal/dispatcher"
	queueMemory "github.com/JakeFAU/sitesearch-crawler/internal/queue/memory"
	"github.com/JakeFAU/sitesearch-crawler/internal/worker"
)

// newServeCmd runs the job API and the worker pool until interrupted.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the crawl job API",
		Long: `Starts the HTTP job API and a pool of crawl workers (crawler.concurrency).
Jobs are queued with POST /v1/crawls and tracked with GET /v1/crawls/{job_id}.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	cfg := appInstance.Config()
	logger := appInstance.Logger()
	ctx, stop := context.WithCancel(cmd.Context())
	defer stop()

	runner, err := appInstance.Runner("", true)
	if err != nil {
		return err
	}
	queue := queueMemory.NewQueue(cfg.Crawler.QueueDepth)
	workers := dispatcher.Pool(cfg.Crawler.Concurrency, func(i int) dispatcher.Runner {
		return worker.New(queue, appInstance.JobStore(), runner, logger.Named("worker").With(zap.Int("index", i)))
	})
	dispatch := dispatcher.New(queue, workers)

	apiServer := api.NewServer(appInstance.JobStore(), dispatch, appInstance.IDs(), appInstance.Clock(), cfg, logger.Named("api"))
	for name, check := range appInstance.ReadinessChecks() {
		apiServer.AddReadinessCheck(name, check)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		logger.Info("dispatcher started", zap.Int("workers", len(workers)))
		dispatch.Run(ctx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			serveErr <- err
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeoutSeconds) * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	queue.Close()

	select {
	case <-dispatchDone:
	case <-shutdownCtx.Done():
		logger.Warn("workers still running at shutdown deadline")
	}
	logger.Info("shutdown complete")

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	default:
		return nil
	}
}
