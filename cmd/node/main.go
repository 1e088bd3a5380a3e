package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/validandis/node/internal/chain"
	"github.com/validandis/node/internal/config"
	"github.com/validandis/node/internal/consensus"
	"github.com/validandis/node/internal/dashboard"
	"github.com/validandis/node/internal/network"
	"github.com/validandis/node/internal/node"
	"github.com/validandis/node/internal/obsmetrics"
	"github.com/validandis/node/internal/peer"
	"github.com/validandis/node/internal/rpc"
	"github.com/validandis/node/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the node's YAML config")
	validatorID := flag.String("id", "validator_1", "this node's validator address")
	flag.Parse()
	if flag.NArg() > 0 {
		// The first positional argument, when given, names the validator.
		*validatorID = flag.Arg(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logger := setupLogger(&cfg.Logging)
	logger.Info().Str("validator_id", *validatorID).Msg("starting node")

	var store *storage.Store
	var chainStore chain.Store // left nil for memory-only operation
	if cfg.StoragePath != "" {
		store, err = storage.Open(cfg.StoragePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to open storage")
		}
		defer store.Close()
		chainStore = store
	}

	state := chain.NewState(chainStore)
	for address, balance := range cfg.Genesis {
		state.CreditGenesis(address, balance)
	}

	registry := consensus.NewRegistry()
	for address, stake := range cfg.Validators {
		registry.Register(address, stake)
	}
	for sender, delegate := range cfg.Delegations {
		state.SetDelegate(sender, delegate)
	}

	mempool := chain.NewMempool()
	peers := peer.NewTable()
	listener := network.NewListener(peers)

	board := dashboard.New()
	metrics := obsmetrics.New()

	genesisTimestamp := cfg.EffectiveGenesisTimestamp()

	go func() {
		if err := listener.Serve(cfg.ListenAddr); err != nil {
			logger.Fatal().Err(err).Msg("listener failed")
		}
	}()

	for _, addr := range cfg.BootstrapNodes {
		peers.Add(addr)
		if err := listener.Dial(addr, *validatorID, genesisTimestamp); err != nil {
			logger.Warn().Err(err).Str("peer", addr).Msg("bootstrap dial failed")
		}
	}

	driver := node.NewDriver(*validatorID, registry, state, mempool, peers, listener, genesisTimestamp*1000, board, metrics)

	ctx, cancel := context.WithCancel(context.Background())
	go driver.Run(ctx)

	server := &rpc.Server{
		State:   state,
		Mempool: mempool,
		Peers:   peers,
		Board:   board,
		Metrics: metrics,
	}

	httpServer := &http.Server{
		Addr:    cfg.RPCAddr,
		Handler: server.Handler(cfg.CORS, cfg.RateLimit, logger),
	}

	go func() {
		logger.Info().Str("addr", cfg.RPCAddr).Msg("RPC server starting")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("RPC server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("RPC server shutdown failed")
	}
	if err := listener.Close(); err != nil {
		logger.Error().Err(err).Msg("listener close failed")
	}

	logger.Info().Msg("node stopped")
}

func setupLogger(cfg *config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var logger zerolog.Logger
	if cfg.Format == "console" {
		logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	} else {
		logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
	log.Logger = logger

	return logger
}
