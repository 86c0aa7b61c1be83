package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"arena-server/internal/config"
	"arena-server/internal/server"
	"arena-server/internal/session"
	"arena-server/internal/store"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := flag.String("config", "config/server.toml", "path to server.toml (ARENA_CONFIG overrides)")
	addr := flag.String("addr", "", "listen address, overrides [server] bind_address")
	tokenFor := flag.String("token", "", "print a signed token for this client id and exit")
	flag.Parse()

	path := *cfgPath
	if p := os.Getenv("ARENA_CONFIG"); p != "" {
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *addr != "" {
		cfg.Server.BindAddress = *addr
	}

	verifier := server.NewVerifier(cfg.Auth)
	if *tokenFor != "" {
		token, err := verifier.Issue(*tokenFor, *tokenFor, 24*time.Hour)
		if err != nil {
			return fmt.Errorf("issue token: %w", err)
		}
		fmt.Println(token)
		return nil
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	presets, err := config.LoadPresetsOrDefault(cfg.Game.PresetsPath)
	if err != nil {
		return fmt.Errorf("load presets: %w", err)
	}
	if _, ok := presets.Get(cfg.Game.DefaultPreset); !ok {
		return fmt.Errorf("default preset %q not defined", cfg.Game.DefaultPreset)
	}
	log.Info("presets loaded", zap.Strings("names", presets.Names()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	rec, err := store.Open(ctx, cfg.Store, log)
	cancel()
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	matches := store.NewAsync(rec, cfg.Store.QueueSize, log)
	defer func() {
		if err := matches.Close(); err != nil {
			log.Error("close store", zap.Error(err))
		}
		if n := matches.Dropped(); n > 0 {
			log.Warn("match records dropped", zap.Int64("count", n))
		}
	}()

	coord := session.NewCoordinator(
		session.WithLogger(log),
		session.WithRecorder(matches),
		session.WithMaxSessions(cfg.Game.MaxSessions),
		session.WithTickRate(cfg.Game.TickRate),
		session.WithIdleTimeout(cfg.Game.IdleTimeout),
		session.WithSendBuffer(cfg.Server.SendBuffer),
	)

	hub := server.NewHub(server.HubOptions{
		Server:        cfg.Server,
		Sessions:      coord,
		Presets:       presets,
		DefaultPreset: cfg.Game.DefaultPreset,
		Matches:       matches,
		Verifier:      verifier,
		Logger:        log,
	})

	srv := &http.Server{
		Addr:              cfg.Server.BindAddress,
		Handler:           server.SetupRoutes(hub),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting",
			zap.String("name", cfg.Server.Name),
			zap.String("addr", cfg.Server.BindAddress),
			zap.Int("tick_rate", cfg.Game.TickRate),
			zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.Info("shutdown signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := coord.Shutdown(shutdownCtx); err != nil {
		log.Warn("sessions did not stop in time", zap.Error(err))
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	log.Info("server stopped")
	return nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
