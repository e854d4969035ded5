package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/reddit-outreach/internal/outreach"
)

func newExtractUsersCmd() *cobra.Command {
	var (
		product string
		pageURL string
	)
	cmd := &cobra.Command{
		Use:   "extract-users",
		Short: "Extract product users from saved, scraped pages",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(product) == "" {
				return fmt.Errorf("product name is required")
			}
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			store := appInstance.GetStore()
			logger := appInstance.GetLogger()
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "Extracting users for product: %s\n", product)
			prod, err := store.GetProductByName(ctx, product)
			if errors.Is(err, outreach.ErrNotFound) {
				return fmt.Errorf("product not found: %s; run find-pages first", product)
			}
			if err != nil {
				return fmt.Errorf("command failed: %w", err)
			}

			var pages []outreach.Page
			if pageURL != "" {
				page, err := store.GetPageByURL(ctx, prod.ID, pageURL)
				if errors.Is(err, outreach.ErrNotFound) {
					return fmt.Errorf("page not found: %s", pageURL)
				}
				if err != nil {
					return fmt.Errorf("command failed: %w", err)
				}
				pages = []outreach.Page{page}
			} else {
				pages, err = store.ListPagesByStatus(ctx, prod.ID, outreach.PageStatusScraped)
				if err != nil {
					return fmt.Errorf("command failed: %w", err)
				}
			}
			if len(pages) == 0 {
				fmt.Fprintln(out, "⚠ No scraped pages found for this product")
				fmt.Fprintln(out, "Run the find-pages command first to find and scrape pages.")
				return nil
			}

			fmt.Fprintf(out, "Processing %d page(s)...\n", len(pages))
			total := 0
			for _, page := range pages {
				if page.Content() == "" {
					fmt.Fprintf(out, "  ⚠ No content for: %s\n", page.URL)
					continue
				}
				created, err := appInstance.ExtractUsers(ctx, prod.Name, page)
				if err != nil {
					logger.Warn("extraction failed", zap.String("url", page.URL), zap.Error(err))
					fmt.Fprintf(out, "  ✗ Error extracting from %s: %v\n", page.URL, err)
					continue
				}
				total += created
				if created > 0 {
					fmt.Fprintf(out, "  ✓ Extracted %d users from: %s\n", created, page.URL)
					users, err := store.ListUsers(ctx, page.ID)
					if err == nil {
						renderUsers(out, page.URL, users)
					}
				} else {
					fmt.Fprintf(out, "  - No users found in: %s\n", page.URL)
				}
			}

			t := newTable(out, "Results")
			t.AppendRow(table.Row{"Product", prod.Name})
			t.AppendRow(table.Row{"Pages Processed", len(pages)})
			t.AppendRow(table.Row{"Users Extracted", total})
			t.Render()
			if total > 0 {
				fmt.Fprintln(out, "\n✓ Successfully extracted users!")
			} else {
				fmt.Fprintln(out, "\n⚠ No users extracted from pages")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&product, "product", "", "product name")
	cmd.Flags().StringVar(&pageURL, "page-url", "", "extract from one saved page instead of every scraped page")
	_ = cmd.MarkFlagRequired("product")
	return cmd
}
