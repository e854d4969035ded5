package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newCreateProductCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create-product",
		Short: "Create a product to discover pages for",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(name) == "" {
				return fmt.Errorf("product name is required")
			}
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			product, created, err := appInstance.GetStore().GetOrCreateProduct(cmd.Context(), name)
			if err != nil {
				return fmt.Errorf("failed to create product: %w", err)
			}
			out := cmd.OutOrStdout()
			if created {
				fmt.Fprintf(out, "✓ Successfully created product: %s (id %d)\n", product.Name, product.ID)
			} else {
				fmt.Fprintf(out, "⚠ Product already exists: %s (id %d)\n", product.Name, product.ID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "product name")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
