package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/websoft9/honeyshell/internal/config"
	"github.com/websoft9/honeyshell/internal/containers"
	"github.com/websoft9/honeyshell/internal/health"
	"github.com/websoft9/honeyshell/internal/orchestrator"
	"github.com/websoft9/honeyshell/internal/persistence"
	"github.com/websoft9/honeyshell/internal/sshserver"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	setupLogger(cfg)

	log.Info().
		Str("listen", fmt.Sprintf("%s:%d", cfg.ListenHost, cfg.ListenPort)).
		Str("image", cfg.HoneypotImage).
		Msg("starting honeyshell")

	hostKey, err := sshserver.LoadHostKey(cfg.HostKeyPath)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load host key")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	gw, err := persistence.NewMongoGateway(ctx, cfg.MongoURI, cfg.MongoDB, cfg.RedisAddr)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("cannot connect to persistence backend")
	}
	gw.Start()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = gw.Close(shutdownCtx)
	}()

	manager, err := containers.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot create container manager")
	}

	adapter := sshserver.New(hostKey, cfg.SSHBanner, gw)
	orch := orchestrator.New(cfg, adapter, manager, gw)

	addr := fmt.Sprintf("%s:%d", cfg.ListenHost, cfg.ListenPort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", addr).Msg("cannot bind listener")
	}
	log.Info().Str("addr", addr).Msg("ssh listener ready")

	serveCtx, stopServe := context.WithCancel(context.Background())
	var ready atomic.Bool
	ready.Store(true)

	go func() {
		if err := orch.Serve(serveCtx, ln); err != nil {
			log.Error().Err(err).Msg("orchestrator accept loop exited")
		}
	}()

	healthSrv := health.NewServer(cfg.HealthAddr, ready.Load)
	go func() {
		log.Info().Str("addr", cfg.HealthAddr).Msg("health server listening")
		if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	ready.Store(false)
	stopServe()
	_ = ln.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("honeyshell exited")
}

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.LogFormat == "pretty" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
