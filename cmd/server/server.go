package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"fenrir/internal/config"
	"fenrir/internal/engine"
	"fenrir/internal/net"
)

func main() {
	configPath := flag.String("config", "", "Path to an optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("server: unable to load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("server: invalid config")
	}

	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		log.Fatal().Err(err).Str("level", cfg.Logging.Level).Msg("server: invalid logging.level")
	}
	zerolog.SetGlobalLevel(level)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	eng := engine.New(cfg.BroadcastRingCapacity)
	commands := make(chan engine.Command, cfg.InboundQueueCapacity)
	sub := eng.Subscribe()

	go eng.Run(commands)

	srv := net.New(cfg.ListenAddress, commands, sub)

	log.Info().Str("address", cfg.ListenAddress).Msg("server: starting")
	go srv.Run(ctx)

	<-ctx.Done()
	close(commands)
}
