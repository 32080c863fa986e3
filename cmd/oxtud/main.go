// Command oxtud is the UTXO-address index daemon: it follows a remote
// bitcoind-like node over JSON-RPC, maintains the reorg-safe UTXO index,
// and serves listunspent/getaddressinfo/_probe over its own JSON-RPC API.
//
// Usage:
//
//	oxtud    Run the indexer (configured entirely via environment)
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fuxingloh/oxtu/config"
	"github.com/fuxingloh/oxtu/internal/follower"
	klog "github.com/fuxingloh/oxtu/internal/log"
	"github.com/fuxingloh/oxtu/internal/rpcclient"
	"github.com/fuxingloh/oxtu/internal/rpcserver"
	"github.com/fuxingloh/oxtu/internal/storage"
	"github.com/fuxingloh/oxtu/internal/store"
)

func main() {
	// ── 1. Load config from the environment ─────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := klog.WithComponent("main")

	// ── 2. Open storage at DATABASE_PATH/data ───────────────────────────
	dbPath := cfg.DataPath + "/data"
	db, err := storage.NewBadger(dbPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", dbPath).Msg("failed to open database")
	}
	defer db.Close()

	s := store.Open(db)
	defer s.Close()

	// ── 3. Upstream RPC client ───────────────────────────────────────────
	upstream, err := rpcclient.NewWithOptions(rpcclient.Options{
		URL:      cfg.BitcoindRPCURL,
		Username: cfg.BitcoindRPCUsername,
		Password: cfg.BitcoindRPCPassword,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to construct upstream rpc client")
	}

	// ── 4. Downstream JSON-RPC server ───────────────────────────────────
	srv := rpcserver.New(s, upstream, rpcserver.Bech32AddressCodec{}, cfg.MaxCount)
	if err := srv.Start(fmt.Sprintf("%s:%d", cfg.Listen, cfg.Port)); err != nil {
		logger.Fatal().Err(err).Msg("failed to start rpc server")
	}
	logger.Info().Str("addr", srv.Addr()).Msg("rpc server listening")

	// ── 5. Chain follower ────────────────────────────────────────────────
	ctx, cancel := context.WithCancel(context.Background())
	f := follower.New(s, upstream)

	followerErr := make(chan error, 1)
	go func() {
		followerErr <- f.Run(ctx)
	}()

	// ── 6. Wait for shutdown ─────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
		cancel()
		<-followerErr
	case err := <-followerErr:
		// The follower stopped on its own with an error (an invariant
		// violation or a store failure): log it and exit non-zero so a
		// supervisor restarts the process against the last committed tip.
		if err != nil {
			logger.Error().Err(err).Msg("follower stopped with error")
			_ = srv.Stop()
			os.Exit(1)
		}
	}

	if err := srv.Stop(); err != nil {
		logger.Error().Err(err).Msg("rpc server shutdown error")
	}
	logger.Info().Msg("goodbye")
}
