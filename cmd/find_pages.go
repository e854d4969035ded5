package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/reddit-outreach/internal/discovery"
)

func newFindPagesCmd() *cobra.Command {
	var (
		product  string
		maxPages int
		maxURLs  int
	)
	cmd := &cobra.Command{
		Use:   "find-pages",
		Short: "Find, classify, and save relevant Reddit pages for a product",
		Long: `Asks each configured language model, with web search enabled, for Reddit
URLs about the product. Every candidate is rendered, checked for block and
error pages, classified for relevance, and saved only when relevant.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(product) == "" {
				return fmt.Errorf("product name is required")
			}
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			cfg := appInstance.GetConfig()
			if !cmd.Flags().Changed("max-pages") {
				maxPages = cfg.Discovery.MaxPages
			}
			if !cmd.Flags().Changed("max-urls") {
				maxURLs = cfg.Discovery.MaxURLsPerProvider
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Finding Reddit pages for product: %s\n", product)
			fmt.Fprintf(out, "Using LLM providers: %s\n", strings.Join(cfg.LLM.Providers, ", "))
			fmt.Fprintf(out, "Target relevant pages: %d\n", maxPages)
			fmt.Fprintf(out, "Candidate URLs per LLM provider: %d\n", maxURLs)

			result, err := appInstance.FindPages(cmd.Context(), product, discovery.Options{
				MaxPages:           maxPages,
				MaxURLsPerProvider: maxURLs,
			})
			if err != nil {
				appInstance.GetLogger().Error("find pages failed", zap.Error(err))
				return fmt.Errorf("command failed: %w", err)
			}

			renderResult(out, result, false)
			if !result.Success {
				fmt.Fprintf(out, "\n⚠ %s\n", result.Message)
				return nil
			}
			fmt.Fprintln(out, "\n✓ Successfully found and scraped Reddit pages!")
			renderPages(out, result.Pages)
			return nil
		},
	}
	cmd.Flags().StringVar(&product, "product", "", "product name to search for")
	cmd.Flags().IntVar(&maxPages, "max-pages", discovery.DefaultMaxPages, "target number of relevant Reddit pages to save")
	cmd.Flags().IntVar(&maxURLs, "max-urls", discovery.DefaultMaxURLsPerProvider, "maximum candidate Reddit URLs per LLM provider")
	_ = cmd.MarkFlagRequired("product")
	return cmd
}
