package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/sitesearch-crawler/internal/crawler"
)

type crawlOptions struct {
	startURL     string
	delaySeconds float64
	maxPages     int
	noSubmit     bool
	backupName   string
}

// newCrawlCmd runs a single crawl in the foreground.
func newCrawlCmd() *cobra.Command {
	opts := &crawlOptions{}
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl one site and submit the pages to the index",
		Long: `Crawls breadth-first from --start-url, staying on the start host, until the
frontier is empty or --max-pages documents were collected. The documents are
submitted to Solr in one batch and always written to the backup store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCrawl(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.startURL, "start-url", "", "URL to start from (default crawler.start_url)")
	cmd.Flags().Float64Var(&opts.delaySeconds, "delay", -1, "seconds to wait between fetches (default crawler.delay_seconds)")
	cmd.Flags().IntVar(&opts.maxPages, "max-pages", 0, "maximum documents to collect (default crawler.max_pages_default)")
	cmd.Flags().BoolVar(&opts.noSubmit, "no-submit", false, "skip index submission and only write the backup")
	cmd.Flags().StringVar(&opts.backupName, "backup-name", "", "backup object name (default backup.object_name)")
	return cmd
}

func runCrawl(cmd *cobra.Command, opts *crawlOptions) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	cfg := appInstance.Config()

	params := crawler.RunParams{
		StartURL: cfg.Crawler.StartURL,
		Delay:    cfg.Crawler.Delay(),
		MaxPages: cfg.Crawler.MaxPagesDefault,
	}
	if opts.startURL != "" {
		params.StartURL = opts.startURL
	}
	if cmd.Flags().Changed("delay") {
		params.Delay = time.Duration(opts.delaySeconds * float64(time.Second))
	}
	if cmd.Flags().Changed("max-pages") {
		params.MaxPages = opts.maxPages
	}
	backupName := cfg.Backup.ObjectName
	if opts.backupName != "" {
		backupName = opts.backupName
	}

	runner, err := appInstance.Runner(backupName, !opts.noSubmit)
	if err != nil {
		return err
	}
	result, err := runner.Execute(cmd.Context(), "", params)
	if err != nil {
		return fmt.Errorf("crawl: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s: %d pages (visited %d, failed %d)\n",
		result.RunID, len(result.Documents), result.Stats.Visited, result.Stats.Failed)
	switch {
	case result.Submitted:
		fmt.Fprintln(out, "index: submitted")
	case result.SubmitError != "":
		fmt.Fprintf(out, "index: failed: %s\n", result.SubmitError)
	default:
		fmt.Fprintln(out, "index: skipped")
	}
	if result.BackupURI != "" {
		fmt.Fprintf(out, "backup: %s\n", result.BackupURI)
	}
	if result.BackupError != "" {
		return fmt.Errorf("backup: %s", result.BackupError)
	}
	return nil
}
