package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tilewars/tilewars/internal/bot"
	"github.com/tilewars/tilewars/internal/config"
	"github.com/tilewars/tilewars/internal/game/events"
	"github.com/tilewars/tilewars/internal/server/ws"
)

func main() {
	// Command line flags
	configPath := flag.String("config", "", "Path to config file")
	port := flag.Int("port", -1, "The server port (-1 to use config default)")
	host := flag.String("host", "", "The server host (empty to use config default)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error) (empty to use config default)")
	flag.Parse()

	if err := config.Init(*configPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize config")
	}
	cfg := config.Get()

	if *port == -1 {
		*port = cfg.Server.Port
	}
	if *host == "" {
		*host = cfg.Server.Host
	}
	if *logLevel == "" {
		*logLevel = cfg.Server.LogLevel
	}

	setupLogging(*logLevel, cfg.Server.LogFormat)

	seed := cfg.Bots.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	log.Info().
		Str("host", *host).
		Int("port", *port).
		Int64("seed", seed).
		Msg("Starting game server")

	bus := events.NewBus(log.Logger)
	bus.Subscribe("game.ended", func(e events.Event) {
		log.Info().Str("room", e.RoomID()).Msg("game ended")
	})
	bus.Subscribe("game.tick_fault", func(e events.Event) {
		log.Error().Str("room", e.RoomID()).Msg("game loop fault")
	})

	botManager := bot.NewManager(cfg.Bots.MaxBots, rand.New(rand.NewSource(rng.Int63())), log.Logger)
	gateway := ws.NewServer(cfg, bus, botManager, nil, rng, log.Logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", *host, *port),
		Handler:           gateway.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	config.WatchConfig(func() {
		log.Info().Str("file", config.ConfigFilePath()).Msg("configuration reloaded")
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

		botManager.Shutdown()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP shutdown failed")
		}
		cancel()
	}()

	log.Info().Str("address", srv.Addr).Msg("Server listening")
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to serve")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Server shutdown complete")
}

func setupLogging(level, format string) {
	var logLevel zerolog.Level
	switch level {
	case "debug":
		logLevel = zerolog.DebugLevel
	case "info":
		logLevel = zerolog.InfoLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	default:
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	if format == "json" || os.Getenv("APP_ENV") == "production" {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}
}
