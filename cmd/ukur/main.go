package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bratomyr/ukur"
)

func main() {
	configPath := flag.String("config", "", "path to config.yml")
	flag.Parse()

	cfg, err := ukur.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ukur: %v\n", err)
		os.Exit(1)
	}
	log := ukur.NewLogger(cfg.LogLevel)

	app, err := ukur.NewApp(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
	app.Start()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	log.Info().Msg("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	app.Stop(ctx)
}
