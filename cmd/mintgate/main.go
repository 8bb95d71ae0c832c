package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/etcmint/mintgate/pkg/api"
	"github.com/etcmint/mintgate/pkg/chain"
	"github.com/etcmint/mintgate/pkg/config"
	"github.com/etcmint/mintgate/pkg/events"
	"github.com/etcmint/mintgate/pkg/ingress"
	"github.com/etcmint/mintgate/pkg/ledger"
	"github.com/etcmint/mintgate/pkg/log"
	"github.com/etcmint/mintgate/pkg/metrics"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mintgate",
	Short: "Mintgate - tokenization operations gateway",
	Long: `Mintgate is an HTTP gateway that fronts a token-factory contract on an
EVM chain. It deploys and manages fungible and non-fungible tokens on
behalf of authenticated clients, serializing all transaction submission
through a single operator key.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Mintgate version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gateway server",
	Long: `Run the gateway server.

All configuration comes from the environment; see the README for the
full variable list. Configuration problems are reported as one batch on
stderr and the process exits with code 1.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return serve(cfg)
	},
}

func serve(cfg *config.Config) error {
	log.Init(log.Config{Level: log.Level(cfg.LogLevel), JSONOutput: cfg.LogJSON})
	logger := log.WithComponent("main")

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()
	metrics.Recorder(broker)

	led := ledger.New(cfg.LedgerSize)

	gateway, err := chain.New(chain.Config{
		RPCURL:         cfg.RPCURL,
		ChainID:        cfg.ChainID,
		PrivateKeyHex:  cfg.PrivateKey,
		FactoryAddress: cfg.FactoryAddress,
		ReceiptTimeout: cfg.ReceiptTimeout(),
	}, led, broker)
	if err != nil {
		return err
	}

	limiter := ingress.NewRateLimiter(cfg.RateLimitWindow, cfg.RateLimitMax)
	stopCleanup := make(chan struct{})
	limiter.StartCleanupJob(stopCleanup)
	defer close(stopCleanup)

	srv := api.NewServer(gateway, api.Options{
		ListenAddr: cfg.ListenAddr(),
		Version:    Version,
		Keys:       ingress.NewKeySet(cfg.APIKeys),
		Limiter:    limiter,
	})

	logger.Info().
		Str("version", Version).
		Str("addr", cfg.ListenAddr()).
		Uint64("chain_id", cfg.ChainID).
		Str("factory", cfg.FactoryAddress).
		Str("signer", gateway.SignerAddress()).
		Msg("starting mintgate")

	serveErr := srv.Start()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err, ok := <-serveErr:
		if ok && err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case s := <-sig:
		logger.Info().Str("signal", s.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	logger.Info().Msg("goodbye")
	return nil
}
