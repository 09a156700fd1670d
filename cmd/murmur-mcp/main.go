package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/emmett/murmur/internal/app"
	"github.com/emmett/murmur/internal/config"
	"github.com/emmett/murmur/internal/logging"
)

var Version = "dev"

func main() {
	configFile := flag.String("config", "", "Path to configuration file")
	provider := flag.String("provider", "", "Speech provider override: vosk|volcengine|sensevoice")
	verbose := flag.Bool("verbose", false, "Enable verbose logs")
	flag.Parse()

	cfg, err := config.LoadWithFallback(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *provider != "" {
		cfg.STT.Provider = *provider
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	// stdout carries the protocol, so logs always go to stderr as JSON
	logger, err := logging.New(logging.Options{Verbose: *verbose || cfg.Log.Verbose, JSON: true})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunMCP(ctx, cfg, Version, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
