package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/gaslens/gaslens/internal/auth"
	"github.com/gaslens/gaslens/internal/config"
	"github.com/gaslens/gaslens/internal/observability/metrics"
	"github.com/gaslens/gaslens/internal/server"
	"github.com/gaslens/gaslens/internal/storage"
	subscriptionsDomain "github.com/gaslens/gaslens/internal/subscriptions/domain"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "gaslens-server",
		Short:   "GasLens server - gas prices, swap fee comparison and crypto subscriptions",
		Version: version,
	}

	// Default behavior (no subcommand) is to serve
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runServe()
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newSubscriptionsCmd())
	rootCmd.AddCommand(newSecretCmd())

	return rootCmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func newSubscriptionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "subscriptions",
		Aliases: []string{"subs"},
		Short:   "Manage subscriptions directly in the database",
	}

	cmd.AddCommand(newSubscriptionsListCmd())
	cmd.AddCommand(newSubscriptionsSetCmd("deactivate", "Deactivate a wallet's subscription", false))
	cmd.AddCommand(newSubscriptionsSetCmd("activate", "Reactivate a wallet's latest subscription", true))

	return cmd
}

func newSubscriptionsListCmd() *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List subscriptions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSubscriptions(func(ctx context.Context, svc subscriptionsDomain.Service) error {
				result, err := svc.List(ctx, subscriptionsDomain.PaginationParams{Limit: limit, Offset: offset})
				if err != nil {
					return err
				}
				printSubscriptions(result)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", subscriptionsDomain.DefaultLimit, "maximum rows to show")
	cmd.Flags().IntVar(&offset, "offset", 0, "rows to skip")

	return cmd
}

func newSubscriptionsSetCmd(use, short string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <wallet>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSubscriptions(func(ctx context.Context, svc subscriptionsDomain.Service) error {
				sub, err := svc.SetActive(ctx, args[0], active)
				switch {
				case errors.Is(err, subscriptionsDomain.ErrNotFound):
					return fmt.Errorf("no subscription found for %s", args[0])
				case errors.Is(err, subscriptionsDomain.ErrConflict):
					return fmt.Errorf("%s already has an active subscription", args[0])
				case err != nil:
					return err
				}
				fmt.Printf("✅ Subscription %s %sd for %s\n", sub.ID, use, sub.WalletAddress)
				return nil
			})
		},
	}
}

func newSecretCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Generate an admin secret",
		Long: `Generate a random admin secret for ADMIN_SECRET_KEY.

The secret is printed once. Configure it on the server and pass it to the
CLI with --admin-key, GASLENS_ADMIN_KEY or 'gaslens auth login'.

EXAMPLES:
  gaslens-server secret
  gaslens-server secret --quiet | gh secret set ADMIN_SECRET_KEY
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := auth.GenerateSecret()
			if err != nil {
				return fmt.Errorf("generating secret: %w", err)
			}
			if quiet {
				fmt.Println(secret)
				return nil
			}
			fmt.Println("⚠️  Admin secret (save this - it cannot be retrieved later):")
			fmt.Println()
			fmt.Println("   ", secret)
			fmt.Println()
			fmt.Printf("   Fingerprint: %s\n", auth.Fingerprint(secret))
			fmt.Println("   Usage:")
			fmt.Println("     export ADMIN_SECRET_KEY=<secret>")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print only the secret (for piping)")

	return cmd
}

// withSubscriptions opens the configured store and runs fn against the
// subscription service
func withSubscriptions(fn func(ctx context.Context, svc subscriptionsDomain.Service) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := storage.New(cfg.Storage, slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return fn(ctx, subscriptionsDomain.NewService(store))
}

func printSubscriptions(result *subscriptionsDomain.ListResult) {
	if len(result.Subscriptions) == 0 {
		fmt.Println("No subscriptions found")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WALLET\tTIER\tAMOUNT\tCURRENCY\tACTIVE\tCREATED")
	for _, s := range result.Subscriptions {
		fmt.Fprintf(w, "%s\t%s\t$%.2f\t%s\t%t\t%s\n", s.WalletAddress, s.Tier, s.AmountUSD, s.Currency, s.IsActive, s.CreatedAt)
	}
	w.Flush()

	fmt.Printf("\n%d of %d subscriptions (%d active)\n", len(result.Subscriptions), result.Stats.Total, result.Stats.Active)
}

// Server command

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg)
	logger.Info("starting gaslens-server", "version", version)

	metrics.Init(cfg.Metrics.Enabled, "gaslens")

	store, err := storage.New(cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(context.Background()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	if cfg.Admin.SecretKey == "" {
		logger.Warn("ADMIN_SECRET_KEY not set, admin endpoints will reject every request")
	}

	server.Version = version
	srv := server.New(cfg, store, logger)
	defer srv.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go srv.Run(ctx)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      srv.Handler(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func setupLogger(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Logging.Level),
	}

	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

func parseLogLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
