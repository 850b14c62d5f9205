package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"data-migration/application/migration"
	"data-migration/domain/legacy"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// methodCLI tags synchronisations started from the command line.
const methodCLI = "cli"

// MigrateOptions holds flags for the migrate command.
type MigrateOptions struct {
	*RootOptions
	ServiceID   int
	DryRun      bool
	MetricsAddr string
	Concurrency int
	TypeIDs     []int
	StatusIDs   []int
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions, factory SessionFactory) *cobra.Command {
	opts := &MigrateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Synchronise DoS services",
		Long: `Synchronise one DoS service, or every service matching the filters,
into the target tables. The metrics are printed as JSON when the run ends.

Example:
  dos-etl migrate --service-id 138179
  dos-etl migrate --type-ids 100 --status-ids 1 --concurrency 8
  dos-etl migrate --dry-run --metrics-addr :9090`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, opts, factory)
		},
	}

	cmd.Flags().IntVar(&opts.ServiceID, "service-id", 0, "sync a single service")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "write to in-memory tables instead of DynamoDB")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 4, "services synchronised in parallel during a full sync")
	cmd.Flags().IntSliceVar(&opts.TypeIDs, "type-ids", []int{100}, "service type ids included in a full sync")
	cmd.Flags().IntSliceVar(&opts.StatusIDs, "status-ids", []int{1}, "service status ids included in a full sync")

	return cmd
}

func runMigrate(cmd *cobra.Command, opts *MigrateOptions, factory SessionFactory) error {
	if opts.ServiceID < 0 {
		return fmt.Errorf("invalid service id %d", opts.ServiceID)
	}
	if opts.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", opts.Concurrency)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := factory(ctx, opts.config, opts.DryRun)
	if err != nil {
		return fmt.Errorf("failed to initialize migration: %w", err)
	}
	if session.Close != nil {
		defer session.Close()
	}
	logger := session.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if opts.MetricsAddr != "" && session.Metrics != nil {
		shutdown, err := serveMetrics(opts.MetricsAddr, session.Metrics, logger)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	if opts.ServiceID > 0 {
		err = runSingle(ctx, session, opts.ServiceID, logger)
	} else {
		err = session.Runner.SyncAll(ctx, legacy.ServiceFilter{
			TypeIDs:   opts.TypeIDs,
			StatusIDs: opts.StatusIDs,
		}, opts.Concurrency)
	}

	if writeErr := writeMetrics(cmd, session.Runner); writeErr != nil {
		logger.Warn("Failed to write metrics", zap.Error(writeErr))
	}
	return err
}

// runSingle fails only for outcomes worth running again.
func runSingle(ctx context.Context, session *Session, serviceID int, logger *zap.Logger) error {
	err := session.Runner.SyncService(ctx, serviceID, methodCLI)
	if err == nil {
		return nil
	}
	kind := migration.KindOf(err)
	if kind.Requeue() {
		return fmt.Errorf("failed to sync service %d: %w", serviceID, err)
	}
	logger.Info("Service not migrated",
		zap.Int("service_id", serviceID),
		zap.String("kind", kind.String()),
		zap.Error(err),
	)
	return nil
}

func writeMetrics(cmd *cobra.Command, runner Runner) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(runner.Metrics())
}

func serveMetrics(addr string, handler http.Handler, logger *zap.Logger) (func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", zap.Error(err))
		}
	}()
	logger.Info("Serving metrics", zap.String("addr", listener.Addr().String()))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Warn("Failed to stop metrics server", zap.Error(err))
		}
		<-done
	}, nil
}
