package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/sitesearch-crawler/internal/index/solr"
)

const searchPageSize = 10

type searchOptions struct {
	filters []string
	page    int
}

func newSearchCmd() *cobra.Command {
	opts := &searchOptions{}
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Query the index and print ranked hits",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, opts, strings.Join(args, " "))
		},
	}
	cmd.Flags().StringArrayVar(&opts.filters, "fq", nil, "filter query, e.g. tipo_contenido:news (repeatable)")
	cmd.Flags().IntVar(&opts.page, "page", 1, "result page, 10 hits per page")
	return cmd
}

func runSearch(cmd *cobra.Command, opts *searchOptions, text string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	client, err := appInstance.Index()
	if err != nil {
		return err
	}
	page := max(opts.page, 1)

	result, err := client.Search(cmd.Context(), solr.Query{
		Text:    text,
		Start:   (page - 1) * searchPageSize,
		Rows:    searchPageSize,
		Filters: opts.filters,
	})
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	out := cmd.OutOrStdout()
	totalPages := (result.NumFound + searchPageSize - 1) / searchPageSize
	fmt.Fprintf(out, "%d results (page %d of %d)\n", result.NumFound, page, max(totalPages, 1))
	if result.Suggestion != "" {
		fmt.Fprintf(out, "did you mean: %s\n", result.Suggestion)
	}
	for i, hit := range result.Hits {
		fmt.Fprintf(out, "\n%d. %s\n   %s\n", (page-1)*searchPageSize+i+1, hit.Title, hit.URL)
		if hit.Snippet != "" {
			fmt.Fprintf(out, "   %s\n", hit.Snippet)
		}
	}

	fields := make([]string, 0, len(result.Facets))
	for field := range result.Facets {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		values := result.Facets[field]
		if len(values) == 0 {
			continue
		}
		parts := make([]string, 0, len(values))
		for _, v := range values {
			parts = append(parts, fmt.Sprintf("%s (%d)", v.Value, v.Count))
		}
		fmt.Fprintf(out, "\n%s: %s\n", field, strings.Join(parts, ", "))
	}
	return nil
}
