package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/numguess/internal/config"
	"github.com/robalobadob/numguess/internal/httpserver"
	"github.com/robalobadob/numguess/internal/metrics"
	"github.com/robalobadob/numguess/internal/runner"
	"github.com/robalobadob/numguess/internal/target"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	backend, pinger, err := openBackend(openCtx, cfg)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("open best-score store")
	}
	defer backend.Close()

	gen := target.New()
	if cfg.TargetSeed != 0 {
		log.Warn().Int64("seed", cfg.TargetSeed).Msg("targets are deterministic")
		gen = target.NewSeeded(cfg.TargetSeed)
	}

	m := metrics.New()
	mgr := runner.NewManager(runner.Config{
		Backend:      backend,
		BestScoreKey: cfg.BestScoreKey,
		Generator:    gen,
		IdleTimeout:  cfg.IdleTimeout,
		Round: runner.Options{
			TickInterval:      cfg.TickInterval,
			DefaultDifficulty: cfg.DefaultDifficulty,
			Metrics:           m,
		},
	})
	defer mgr.Close()

	srv := httpserver.New(httpserver.Deps{
		Manager:      mgr,
		Sessions:     httpserver.NewSessions(cfg.SessionSecret, cfg.SessionCookie, cfg.SessionTTL, cfg.Production()),
		Metrics:      m,
		Store:        pinger,
		ClientOrigin: cfg.ClientOrigin,
	})

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("store", cfg.StoreBackend).Msg("starting numguess")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server exited")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown")
	}
}

func setupLogging(cfg *config.Config) {
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}
