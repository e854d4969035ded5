package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/reddit-outreach/internal/discovery"
	"github.com/JakeFAU/reddit-outreach/internal/search"
)

func newFindUsersCmd() *cobra.Command {
	var (
		product  string
		provider string
		maxURLs  int
	)
	cmd := &cobra.Command{
		Use:   "find-users",
		Short: "Search for Reddit pages about a product, scrape them, and extract users",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(product) == "" {
				return fmt.Errorf("product name is required")
			}
			switch provider {
			case "", search.ProviderGoogle, search.ProviderDuckDuckGo:
			default:
				return fmt.Errorf("unsupported search provider %q (choose google or duckduckgo)", provider)
			}
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if provider == "" {
				provider = appInstance.GetConfig().Search.Provider
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Starting workflow for product: %s\n", product)
			fmt.Fprintf(out, "Using search provider: %s\n", provider)
			fmt.Fprintf(out, "Max URLs to search: %d\n", maxURLs)

			result, err := appInstance.FindUsers(cmd.Context(), product, provider, maxURLs)
			if err != nil {
				appInstance.GetLogger().Error("find users failed", zap.Error(err))
				return fmt.Errorf("command failed: %w", err)
			}

			renderResult(out, result, true)
			if !result.Success {
				fmt.Fprintf(out, "\n⚠ %s\n", result.Message)
				return nil
			}
			fmt.Fprintln(out, "\n✓ Workflow completed successfully!")
			renderPages(out, result.Pages)
			return nil
		},
	}
	cmd.Flags().StringVar(&product, "product", "", "product name to search for")
	cmd.Flags().StringVar(&provider, "search-provider", "", "search provider: google or duckduckgo (default from config)")
	cmd.Flags().IntVar(&maxURLs, "max-urls", discovery.DefaultSearchMaxURLs, "maximum number of Reddit URLs to search for")
	_ = cmd.MarkFlagRequired("product")
	return cmd
}
