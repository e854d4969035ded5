// Package cmd defines and implements the CLI commands for the outreach
// executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/reddit-outreach/internal/app"
	"github.com/JakeFAU/reddit-outreach/internal/config"
	"github.com/JakeFAU/reddit-outreach/internal/discovery"
	"github.com/JakeFAU/reddit-outreach/internal/logging"
	"github.com/JakeFAU/reddit-outreach/internal/outreach"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const (
	appKey    appKeyType = "app"
	holderKey appKeyType = "app-holder"
)

// appHolder carries the App built by the pre-run hook back to execute,
// which closes it whether or not the command succeeded.
type appHolder struct {
	app App
}

// App defines the application interface that commands use. It lets tests
// inject a fake container.
type App interface {
	Close()
	GetLogger() *zap.Logger
	GetStore() outreach.Store
	GetConfig() config.Config
	FindPages(ctx context.Context, product string, opts discovery.Options) (outreach.DiscoveryResult, error)
	FindUsers(ctx context.Context, product, provider string, maxURLs int) (outreach.DiscoveryResult, error)
	ExtractUsers(ctx context.Context, product string, page outreach.Page) (int, error)
}

// newApp is the application factory. It's a variable so tests can replace
// it.
var newApp = func(ctx context.Context, cfg config.Config) (App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, err
	}
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "outreach",
		Short: "Find Reddit discussions of a product and the people in them.",
		Long: `outreach discovers Reddit pages that discuss a product using web-search
enabled language models or a search engine, keeps only the relevant ones,
and extracts the users who demonstrably use the product.`,
		SilenceUsage: true,

		// Builds the application before any subcommand runs.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			appInstance, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			if holder, ok := cmd.Context().Value(holderKey).(*appHolder); ok {
				holder.app = appInstance
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); environment variables use the OUTREACH_ prefix")

	cmd.AddCommand(
		newCreateProductCmd(),
		newFindPagesCmd(),
		newFindUsersCmd(),
		newExtractUsersCmd(),
		newMigrateCmd(&cfgFile),
	)
	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := execute(context.Background(), newRootCmd()); err != nil {
		os.Exit(1)
	}
}

// execute runs root and closes the App afterwards. cobra skips post-run
// hooks when RunE fails, so closing happens here instead.
func execute(ctx context.Context, root *cobra.Command) error {
	holder := &appHolder{}
	err := root.ExecuteContext(context.WithValue(ctx, holderKey, holder))
	if holder.app != nil {
		holder.app.Close()
	}
	return err
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}
