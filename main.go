package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/haydenm/screenvault/internal"
	"github.com/haydenm/screenvault/pkg/logger"
)

var log = logger.Get("Main")

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (environment only when omitted)")
	flag.Parse()

	config := internal.ScreenVaultConfig{}
	var err error
	if *configPath != "" {
		err = config.LoadFromFile(*configPath)
	} else {
		err = config.LoadFromEnv()
	}
	if err != nil {
		log.Emit(logger.FATAL, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	vault, err := internal.New(config)
	if err != nil {
		log.Emit(logger.FATAL, "Failed to initialise ScreenVault: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := vault.Run(ctx); err != nil {
		log.Emit(logger.FATAL, "ScreenVault stopped with error: %v\n", err)
		os.Exit(1)
	}

	log.Emit(logger.STOP, "ScreenVault stopped\n")
}
