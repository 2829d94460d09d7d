// Package cmd defines the CLI commands of the sitesearch-crawler executable.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitesearch-crawler/internal/app"
	"github.com/JakeFAU/sitesearch-crawler/internal/config"
	"github.com/JakeFAU/sitesearch-crawler/internal/logging"
)

type appKeyType struct{}

// newApp is the application factory; tests swap it out.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app.App, error) {
	return app.New(ctx, cfg, logger)
}

// releaseApp shuts down the services of a built application.
var releaseApp = func(a *app.App) {
	a.Close()
	_ = a.Logger().Sync()
}

// newRootCmd creates the root command and its subcommands. The returned
// release func must run after Execute, on success and failure alike, because
// cobra skips post-run hooks when RunE fails.
func newRootCmd() (*cobra.Command, func()) {
	var (
		cfgFile     string
		appInstance *app.App
	)

	cmd := &cobra.Command{
		Use:   "sitesearch-crawler",
		Short: "Crawl a site and index its pages into Solr.",
		Long: `sitesearch-crawler walks a website breadth-first from a start URL, stays on
the start host, extracts and classifies every HTML page, and submits the batch
to a Solr core. It also serves a job API for queued crawls and can query the
core from the terminal.`,
		SilenceUsage: true,

		// Builds the application once flags are parsed and before any
		// subcommand runs.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			zap.ReplaceGlobals(logger)

			built, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			appInstance = built
			cmd.SetContext(context.WithValue(cmd.Context(), appKeyType{}, built))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML, TOML or JSON)")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newSuggestCmd())

	release := func() {
		if appInstance != nil {
			releaseApp(appInstance)
			appInstance = nil
		}
	}
	return cmd, release
}

func resolveApp(ctx context.Context) (*app.App, error) {
	appInstance, ok := ctx.Value(appKeyType{}).(*app.App)
	if !ok || appInstance == nil {
		return nil, fmt.Errorf("application not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root, release := newRootCmd()
	err := root.ExecuteContext(ctx)
	release()
	if err != nil {
		stop()
		os.Exit(1)
	}
}
