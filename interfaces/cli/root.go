// Package cli implements the dos-etl command line.
package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"data-migration/domain/legacy"
	dm "data-migration/domain/migration"
	"data-migration/infrastructure/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Runner runs synchronisations.
type Runner interface {
	SyncService(ctx context.Context, serviceID int, method string) error
	SyncAll(ctx context.Context, filter legacy.ServiceFilter, concurrency int) error
	Metrics() dm.Metrics
}

// Session is a wired migration ready to run.
type Session struct {
	Runner  Runner
	Logger  *zap.Logger
	Metrics http.Handler
	Close   func()
}

// SessionFactory wires a Session. dryRun selects the in-memory tables.
type SessionFactory func(ctx context.Context, cfg *config.Config, dryRun bool) (*Session, error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigFile string
	LogLevel   string

	config *config.Config
}

// NewRootCommand creates the root command for dos-etl.
func NewRootCommand(factory SessionFactory) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "dos-etl",
		Short: "DoS to DynamoDB data migration",
		Long:  "Synchronises Directory of Services records into the FtRS DynamoDB tables.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.ConfigFile != "" {
				if err := os.Setenv("CONFIG_FILE", opts.ConfigFile); err != nil {
					return fmt.Errorf("failed to set config file: %w", err)
				}
			}
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			if opts.LogLevel != "" {
				cfg.LogLevel = opts.LogLevel
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			opts.config = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")

	cmd.AddCommand(NewMigrateCommand(opts, factory))

	return cmd
}
