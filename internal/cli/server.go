package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LeJamon/goMarketd/internal/config"
	"github.com/LeJamon/goMarketd/internal/di"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var (
	// Server flags
	port       int
	bindAddr   string
	standalone bool
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the marketplace daemon",
	Long: `Start the goMarketd server which provides:
- HTTP JSON-RPC API on /
- WebSocket subscriptions to offer events on /ws
- Health check endpoint on /health`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides server.port)")
	serverCmd.Flags().StringVar(&bindAddr, "bind", "", "address to bind to (overrides server.bind)")
	serverCmd.Flags().BoolVar(&standalone, "standalone", false, "enable the ledger_* administration methods")
}

// loadConfig reads the configuration named by the global flags. Without
// --conf, marketd.toml is used when present.
func loadConfig() (*config.Config, error) {
	paths := config.DefaultConfigPaths()
	paths.Env = envFile
	switch {
	case configFile != "":
		paths.Main = configFile
	default:
		if _, err := os.Stat(paths.Main); err != nil {
			paths.Main = ""
		}
	}
	return config.LoadConfig(paths)
}

func runServer(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if port != 0 {
		cfg.Server.Port = port
	}
	if bindAddr != "" {
		cfg.Server.Bind = bindAddr
	}
	if standalone {
		cfg.Server.Standalone = true
	}
	if err := cfg.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	logger, err := cfg.Log.NewLogger()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	container := di.New()
	defer func() {
		if err := container.Close(); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	}()

	provider := di.NewProvider(container, cfg, logger, Version)
	if err := provider.RegisterAll(); err != nil {
		return err
	}
	server, err := provider.Server()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpServer := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           server.Handler(),
		ReadHeaderTimeout: cfg.Server.Timeout,
	}

	logger.Info("starting marketd",
		zap.String("version", Version),
		zap.String("addr", httpServer.Addr),
		zap.String("config", cfg.GetConfigPath()),
		zap.Bool("standalone", cfg.Server.Standalone))

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		server.Close()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
